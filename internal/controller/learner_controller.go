// internal/controller/learner_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dhivaai/microlearn-backend/internal/channel"
	appErrors "github.com/dhivaai/microlearn-backend/internal/errors"
	"github.com/dhivaai/microlearn-backend/internal/model"
	"github.com/dhivaai/microlearn-backend/internal/repository"
)

// LearnerController serves the dashboard-facing management endpoints:
// roster upload, learner settings, and per-course engagement stats.
type LearnerController struct {
	Learners repository.LearnerRepositoryInterface
	Content  repository.ContentRepositoryInterface
	Logs     repository.DeliveryLogRepositoryInterface
	Courses  repository.CourseRepositoryInterface
}

// courseErrorStatus keeps a DB outage from reading as "course not found".
func courseErrorStatus(err error) int {
	var notFound *appErrors.ErrCourseNotFound
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func validPreference(p string) bool {
	switch p {
	case model.PreferenceWhatsapp, model.PreferenceEmail, model.PreferenceBoth:
		return true
	}
	return false
}

type rosterRow struct {
	UserID     int    `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone_number"`
	Preference string `json:"delivery_preference"`
}

// UploadRoster enrolls a batch of learners into a course. The dashboard
// posts already-parsed rows as JSON; one bad row is reported and skipped,
// not a reason to reject the rest.
func (c *LearnerController) UploadRoster(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid course id", http.StatusBadRequest)
		return
	}

	if _, err := c.Courses.GetByID(courseID); err != nil {
		http.Error(w, err.Error(), courseErrorStatus(err))
		return
	}

	var rows []rosterRow
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created := 0
	rowErrors := []string{}
	for i, row := range rows {
		if !validPreference(row.Preference) {
			rowErrors = append(rowErrors, "row "+strconv.Itoa(i)+": invalid delivery preference")
			continue
		}
		learner := &model.Learner{
			UserID:     row.UserID,
			CourseID:   courseID,
			Name:       row.Name,
			Email:      row.Email,
			Phone:      channel.FormatPhone(row.Phone),
			Preference: row.Preference,
			Status:     model.LearnerActive,
		}
		if err := c.Learners.Create(learner); err != nil {
			rowErrors = append(rowErrors, "row "+strconv.Itoa(i)+": "+err.Error())
			continue
		}
		created++
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"created": created,
		"errors":  rowErrors,
	})
}

// UpdateSettings changes a learner's channel preference and/or contact
// methods from the settings screen.
func (c *LearnerController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid learner id", http.StatusBadRequest)
		return
	}

	var body struct {
		Preference *string `json:"delivery_preference"`
		Email      *string `json:"email"`
		Phone      *string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	learner, err := c.Learners.GetByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if learner == nil {
		http.Error(w, "learner not found", http.StatusNotFound)
		return
	}

	if body.Preference != nil {
		if !validPreference(*body.Preference) {
			http.Error(w, "invalid delivery preference", http.StatusBadRequest)
			return
		}
		if err := c.Learners.UpdatePreference(id, *body.Preference); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		learner.Preference = *body.Preference
	}

	if body.Email != nil || body.Phone != nil {
		email := learner.Email
		phone := learner.Phone
		if body.Email != nil {
			email = *body.Email
		}
		if body.Phone != nil {
			phone = channel.FormatPhone(*body.Phone)
		}
		if err := c.Learners.UpdateContact(id, email, phone); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		learner.Email = email
		learner.Phone = phone
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(learner)
}

// CourseStats returns content lifecycle counts plus per-channel delivery
// outcomes for the org analytics dashboard.
func (c *LearnerController) CourseStats(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid course id", http.StatusBadRequest)
		return
	}

	course, err := c.Courses.GetByID(courseID)
	if err != nil {
		http.Error(w, err.Error(), courseErrorStatus(err))
		return
	}

	content, err := c.Content.StatusCounts(courseID)
	if err != nil {
		http.Error(w, "failed to fetch content stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	deliveries, err := c.Logs.ChannelCounts(courseID)
	if err != nil {
		http.Error(w, "failed to fetch delivery stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"course":     course,
		"content":    content,
		"deliveries": deliveries,
	})
}
