package assistant

import (
	"context"
	"fmt"
	"testing"
	"time"

	"guidepost/app/core/knowledge"
	"guidepost/app/core/tracker"
)

type fakeTracker struct {
	tasks     []tracker.Task
	users     []tracker.User
	listErr   error
	updateErr map[string]error

	dueBeforeDate string
	patches       []patchCall
}

type patchCall struct {
	taskID string
	patch  tracker.TaskPatch
}

func (f *fakeTracker) ListTasks(ctx context.Context, optFields string) ([]tracker.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tasks, nil
}

func (f *fakeTracker) TasksDueBefore(ctx context.Context, date string, optFields string) ([]tracker.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.dueBeforeDate = date
	return f.tasks, nil
}

func (f *fakeTracker) UpdateTask(ctx context.Context, taskID string, patch tracker.TaskPatch) error {
	if err, ok := f.updateErr[taskID]; ok {
		return err
	}
	f.patches = append(f.patches, patchCall{taskID: taskID, patch: patch})
	return nil
}

func (f *fakeTracker) ListUsers(ctx context.Context) ([]tracker.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.users, nil
}

type fakeWriter struct {
	body  string
	err   error
	calls []string
}

func (f *fakeWriter) Describe(ctx context.Context, taskName string) (string, error) {
	f.calls = append(f.calls, taskName)
	if f.err != nil {
		return "", f.err
	}
	return f.body, nil
}

func newTestAssistant(svc *fakeTracker, writer *fakeWriter, blob string) *Assistant {
	a := New("Test Assistant", svc, writer, knowledge.New(blob))
	a.sleep = func(time.Duration) {}
	a.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}
	return a
}

func TestUpcomingFiltersCompletedAndUsesWindow(t *testing.T) {
	svc := &fakeTracker{tasks: []tracker.Task{
		{ID: "1", Name: "Done", Completed: true, DueOn: "2026-09-01"},
		{ID: "2", Name: "Open", Completed: false, DueOn: "2026-09-02"},
	}}
	a := newTestAssistant(svc, &fakeWriter{}, "")

	got, err := a.Upcoming(context.Background(), 0)
	if err != nil {
		t.Fatalf("upcoming failed: %v", err)
	}
	if svc.dueBeforeDate != "2026-09-06" {
		t.Fatalf("unexpected window date: %s", svc.dueBeforeDate)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("unexpected upcoming tasks: %+v", got)
	}
}

func TestUpcomingPropagatesFetchError(t *testing.T) {
	svc := &fakeTracker{listErr: fmt.Errorf("boom")}
	a := newTestAssistant(svc, &fakeWriter{}, "")

	if _, err := a.Upcoming(context.Background(), 7); err == nil {
		t.Fatal("expected error")
	}
}
