package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhivaai/microlearn-backend/internal/channel"
	"github.com/dhivaai/microlearn-backend/internal/model"
)

type fakeContentStore struct {
	due      []model.ContentItem
	listErr  error
	byID     map[int]*model.ContentItem
	getErr   error
	denied   map[int]bool // Claim returns false for these ids
	claimErr map[int]error
	claimed  []int
	released []int
	marked   []int
	markErr  error
}

func (f *fakeContentStore) ListDue(now time.Time) ([]model.ContentItem, error) {
	return f.due, f.listErr
}

func (f *fakeContentStore) GetByID(id int) (*model.ContentItem, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byID[id], nil
}

func (f *fakeContentStore) Claim(id int) (bool, error) {
	if err := f.claimErr[id]; err != nil {
		return false, err
	}
	if f.denied[id] {
		return false, nil
	}
	f.claimed = append(f.claimed, id)
	return true, nil
}

func (f *fakeContentStore) Release(id int) error {
	f.released = append(f.released, id)
	return nil
}

func (f *fakeContentStore) MarkSent(id int, sentAt time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeLearnerStore struct {
	byCourse    map[int][]model.Learner
	byCourseErr map[int]error
	byID        map[int]*model.Learner
	getErr      error
}

func (f *fakeLearnerStore) GetByID(id int) (*model.Learner, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byID[id], nil
}

func (f *fakeLearnerStore) ListActiveByCourse(courseID int) ([]model.Learner, error) {
	if err := f.byCourseErr[courseID]; err != nil {
		return nil, err
	}
	return f.byCourse[courseID], nil
}

type fakeCourseStore struct {
	counts map[int]int
	err    error
}

func (f *fakeCourseStore) CountContentItems(courseID int) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[courseID], nil
}

func dueItem(id, courseID int) model.ContentItem {
	return model.ContentItem{
		ID:        id,
		CourseID:  courseID,
		DayNumber: 1,
		Subject:   "Listening first",
		Intro:     "Welcome.",
		Status:    model.ContentPending,
	}
}

func newTestOrchestrator(content *fakeContentStore, learners *fakeLearnerStore, chat, email *mockSender) *Orchestrator {
	return &Orchestrator{
		Content:  content,
		Learners: learners,
		Courses:  &fakeCourseStore{counts: map[int]int{3: 10}},
		Router:   newTestRouter(chat, email, &mockLogWriter{}),
		Now:      func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) },
		Log:      zerolog.Nop(),
	}
}

func TestRunCycleMarksDeliveredItemSent(t *testing.T) {
	content := &fakeContentStore{due: []model.ContentItem{dueItem(7, 3)}}
	learners := &fakeLearnerStore{byCourse: map[int][]model.Learner{
		3: {{ID: 1, Phone: "919123456789", Preference: model.PreferenceWhatsapp, Status: model.LearnerActive}},
	}}
	chat := &mockSender{result: channel.Result{Success: true}}
	o := newTestOrchestrator(content, learners, chat, &mockSender{})

	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Due != 1 || res.Delivered != 1 || res.Failed != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(content.marked) != 1 || content.marked[0] != 7 {
		t.Errorf("item 7 should be marked sent, got %v", content.marked)
	}
	if len(content.released) != 0 {
		t.Errorf("nothing should be released, got %v", content.released)
	}
}

func TestRunCycleReleasesItemWhenAllAttemptsFail(t *testing.T) {
	content := &fakeContentStore{due: []model.ContentItem{dueItem(7, 3)}}
	learners := &fakeLearnerStore{byCourse: map[int][]model.Learner{
		3: {{ID: 1, Phone: "919123456789", Preference: model.PreferenceWhatsapp, Status: model.LearnerActive}},
	}}
	chat := &mockSender{result: channel.Result{Success: false, Error: "gupshup API error: 500"}}
	o := newTestOrchestrator(content, learners, chat, &mockSender{})

	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed != 1 || res.Delivered != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(content.released) != 1 || content.released[0] != 7 {
		t.Errorf("item 7 should go back to pending, got %v", content.released)
	}
	if len(content.marked) != 0 {
		t.Errorf("nothing should be marked sent, got %v", content.marked)
	}
}

func TestRunCycleSkipsAlreadyClaimedItem(t *testing.T) {
	content := &fakeContentStore{
		due:    []model.ContentItem{dueItem(7, 3)},
		denied: map[int]bool{7: true},
	}
	learners := &fakeLearnerStore{}
	chat := &mockSender{result: channel.Result{Success: true}}
	o := newTestOrchestrator(content, learners, chat, &mockSender{})

	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Skipped != 1 || res.Delivered != 0 || res.Failed != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(chat.calls) != 0 {
		t.Errorf("an unclaimed item must not be delivered")
	}
}

func TestRunCycleScheduledLegKeepsItemClaimed(t *testing.T) {
	content := &fakeContentStore{due: []model.ContentItem{dueItem(7, 3)}}
	learners := &fakeLearnerStore{byCourse: map[int][]model.Learner{
		3: {{ID: 1, Email: "a@x.com", Preference: model.PreferenceBoth, Status: model.LearnerActive}},
	}}
	chat := &mockSender{result: channel.Result{Success: true}}
	o := newTestOrchestrator(content, learners, chat, &mockSender{})
	o.Router.Scheduler = &mockScheduler{}

	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Scheduled != 1 || res.Delivered != 0 || res.Failed != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	// The follow-up worker owns the claimed item from here.
	if len(content.marked) != 0 || len(content.released) != 0 {
		t.Errorf("a scheduled item must stay claimed: marked=%v released=%v", content.marked, content.released)
	}
}

func TestRunCycleContinuesAfterLearnerLookupError(t *testing.T) {
	content := &fakeContentStore{due: []model.ContentItem{dueItem(7, 5), dueItem(8, 3)}}
	learners := &fakeLearnerStore{
		byCourseErr: map[int]error{5: errors.New("db timeout")},
		byCourse: map[int][]model.Learner{
			3: {{ID: 1, Phone: "919123456789", Preference: model.PreferenceWhatsapp, Status: model.LearnerActive}},
		},
	}
	chat := &mockSender{result: channel.Result{Success: true}}
	o := newTestOrchestrator(content, learners, chat, &mockSender{})

	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("a per-item error must not fail the batch: %v", err)
	}
	if res.Failed != 1 || res.Delivered != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(content.released) != 1 || content.released[0] != 7 {
		t.Errorf("the failed item should be released, got %v", content.released)
	}
	if len(content.marked) != 1 || content.marked[0] != 8 {
		t.Errorf("the second item should still be delivered, got %v", content.marked)
	}
}

func TestRunCycleNoActiveLearnersReleasesItem(t *testing.T) {
	content := &fakeContentStore{due: []model.ContentItem{dueItem(7, 3)}}
	learners := &fakeLearnerStore{byCourse: map[int][]model.Learner{3: {}}}
	o := newTestOrchestrator(content, learners, &mockSender{}, &mockSender{})

	res, err := o.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(content.released) != 1 {
		t.Errorf("the item should be released, got %v", content.released)
	}
}

func TestRunCycleListDueErrorPropagates(t *testing.T) {
	content := &fakeContentStore{listErr: errors.New("connection refused")}
	o := newTestOrchestrator(content, &fakeLearnerStore{}, &mockSender{}, &mockSender{})

	res, err := o.RunCycle(context.Background())
	if err == nil {
		t.Fatal("expected the due-items query error to propagate")
	}
	if res != nil {
		t.Errorf("no result expected on a failed query, got %+v", res)
	}
}
