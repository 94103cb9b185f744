package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhivaai/microlearn-backend/internal/channel"
	"github.com/dhivaai/microlearn-backend/internal/model"
	"github.com/dhivaai/microlearn-backend/internal/queue"
)

func newTestFollowUpWorker(content *fakeContentStore, learners *fakeLearnerStore, email *mockSender) *FollowUpWorker {
	return &FollowUpWorker{
		Content:  content,
		Learners: learners,
		Courses:  &fakeCourseStore{counts: map[int]int{3: 10}},
		Router:   newTestRouter(&mockSender{}, email, &mockLogWriter{}),
		Now:      func() time.Time { return time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC) },
		Log:      zerolog.Nop(),
	}
}

func followUpJob() queue.FollowUp {
	return queue.FollowUp{ContentID: 7, LearnerID: 4, Channel: model.ChannelEmail}
}

func TestProcessSendsDelayedEmailAndPromotesItem(t *testing.T) {
	item := dueItem(7, 3)
	item.Status = model.ContentSending
	content := &fakeContentStore{byID: map[int]*model.ContentItem{7: &item}}
	learners := &fakeLearnerStore{byID: map[int]*model.Learner{
		4: {ID: 4, Email: "a@x.com", Preference: model.PreferenceBoth, Status: model.LearnerActive},
	}}
	email := &mockSender{result: channel.Result{Success: true}}
	w := newTestFollowUpWorker(content, learners, email)

	if err := w.Process(context.Background(), followUpJob()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(email.calls) != 1 || email.calls[0] != "a@x.com" {
		t.Errorf("expected one email send, got %v", email.calls)
	}
	if len(content.marked) != 1 || content.marked[0] != 7 {
		t.Errorf("a still-claimed item should be promoted to sent, got %v", content.marked)
	}
}

func TestProcessDoesNotReMarkAlreadySentItem(t *testing.T) {
	item := dueItem(7, 3)
	item.Status = model.ContentSent
	content := &fakeContentStore{byID: map[int]*model.ContentItem{7: &item}}
	learners := &fakeLearnerStore{byID: map[int]*model.Learner{
		4: {ID: 4, Email: "a@x.com", Preference: model.PreferenceBoth, Status: model.LearnerActive},
	}}
	email := &mockSender{result: channel.Result{Success: true}}
	w := newTestFollowUpWorker(content, learners, email)

	if err := w.Process(context.Background(), followUpJob()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The delayed leg still goes out; the status write is skipped.
	if len(email.calls) != 1 {
		t.Errorf("the email leg should still be sent, got %v", email.calls)
	}
	if len(content.marked) != 0 {
		t.Errorf("a sent item must not be re-marked, got %v", content.marked)
	}
}

func TestProcessFailureReleasesClaimedItem(t *testing.T) {
	item := dueItem(7, 3)
	item.Status = model.ContentSending
	content := &fakeContentStore{byID: map[int]*model.ContentItem{7: &item}}
	learners := &fakeLearnerStore{byID: map[int]*model.Learner{
		4: {ID: 4, Email: "a@x.com", Preference: model.PreferenceBoth, Status: model.LearnerActive},
	}}
	email := &mockSender{result: channel.Result{Success: false, Error: "resend API error: 422"}}
	w := newTestFollowUpWorker(content, learners, email)

	if err := w.Process(context.Background(), followUpJob()); err != nil {
		t.Fatalf("a failed send is logged, not retried as a queue error: %v", err)
	}
	if len(content.released) != 1 || content.released[0] != 7 {
		t.Errorf("the item should go back to pending, got %v", content.released)
	}
	if len(content.marked) != 0 {
		t.Errorf("nothing should be marked sent, got %v", content.marked)
	}
}

func TestProcessDropsPausedLearnerAndReleasesClaim(t *testing.T) {
	item := dueItem(7, 3)
	item.Status = model.ContentSending
	content := &fakeContentStore{byID: map[int]*model.ContentItem{7: &item}}
	learners := &fakeLearnerStore{byID: map[int]*model.Learner{
		4: {ID: 4, Email: "a@x.com", Preference: model.PreferenceBoth, Status: model.LearnerPaused},
	}}
	email := &mockSender{result: channel.Result{Success: true}}
	w := newTestFollowUpWorker(content, learners, email)

	if err := w.Process(context.Background(), followUpJob()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(email.calls) != 0 {
		t.Errorf("a paused learner gets no follow-up, got %v", email.calls)
	}
	// The claimed item must go back to pending so the cycle after RESUME
	// can deliver it; dropping the job must not strand it in "sending".
	if len(content.released) != 1 || content.released[0] != 7 {
		t.Errorf("the claimed item should be released, got %v", content.released)
	}
	if len(content.marked) != 0 {
		t.Errorf("nothing should be marked sent, got %v", content.marked)
	}
}

func TestProcessMissingLearnerReleasesClaim(t *testing.T) {
	item := dueItem(7, 3)
	item.Status = model.ContentSending
	content := &fakeContentStore{byID: map[int]*model.ContentItem{7: &item}}
	learners := &fakeLearnerStore{byID: map[int]*model.Learner{}}
	email := &mockSender{result: channel.Result{Success: true}}
	w := newTestFollowUpWorker(content, learners, email)

	if err := w.Process(context.Background(), followUpJob()); err != nil {
		t.Fatalf("a deleted learner is dropped, not retried: %v", err)
	}
	if len(email.calls) != 0 {
		t.Errorf("nothing should be sent for a missing learner")
	}
	if len(content.released) != 1 || content.released[0] != 7 {
		t.Errorf("the claimed item should be released, got %v", content.released)
	}
}

func TestProcessPausedLearnerDoesNotReleaseSettledItem(t *testing.T) {
	item := dueItem(7, 3)
	item.Status = model.ContentSent
	content := &fakeContentStore{byID: map[int]*model.ContentItem{7: &item}}
	learners := &fakeLearnerStore{byID: map[int]*model.Learner{
		4: {ID: 4, Email: "a@x.com", Preference: model.PreferenceBoth, Status: model.LearnerPaused},
	}}
	w := newTestFollowUpWorker(content, learners, &mockSender{})

	if err := w.Process(context.Background(), followUpJob()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.released) != 0 {
		t.Errorf("a sent item must stay sent, got %v", content.released)
	}
}

func TestProcessDropsMissingContentItem(t *testing.T) {
	content := &fakeContentStore{byID: map[int]*model.ContentItem{}}
	learners := &fakeLearnerStore{byID: map[int]*model.Learner{}}
	email := &mockSender{result: channel.Result{Success: true}}
	w := newTestFollowUpWorker(content, learners, email)

	if err := w.Process(context.Background(), followUpJob()); err != nil {
		t.Fatalf("a deleted item is dropped, not retried: %v", err)
	}
	if len(email.calls) != 0 {
		t.Errorf("nothing should be sent for a missing item")
	}
}
