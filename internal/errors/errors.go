// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCourseNotFound is a sentinel error
type ErrCourseNotFound struct {
	CourseID int
}

func (e *ErrCourseNotFound) Error() string {
	return fmt.Sprintf("course with ID %d not found", e.CourseID)
}

// Helper constructor
func NewCourseNotFound(id int) error {
	return &ErrCourseNotFound{CourseID: id}
}
