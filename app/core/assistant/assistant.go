package assistant

import (
	"context"
	"strings"
	"time"

	"guidepost/app/core/knowledge"
	"guidepost/app/core/tracker"
)

// TaskService is the slice of the tracker client the assistant consumes.
type TaskService interface {
	ListTasks(ctx context.Context, optFields string) ([]tracker.Task, error)
	TasksDueBefore(ctx context.Context, date string, optFields string) ([]tracker.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch tracker.TaskPatch) error
	ListUsers(ctx context.Context) ([]tracker.User, error)
}

// DescriptionWriter generates a task description from its name.
type DescriptionWriter interface {
	Describe(ctx context.Context, taskName string) (string, error)
}

// Assistant implements the task-facing operations: enrichment, status
// aggregation, upcoming queries and bulk reassignment. It holds no durable
// state; every operation works off a fresh fetch.
type Assistant struct {
	name    string
	tracker TaskService
	writer  DescriptionWriter
	lib     *knowledge.Library

	sleep func(time.Duration)
	now   func() time.Time
}

func New(name string, svc TaskService, writer DescriptionWriter, lib *knowledge.Library) *Assistant {
	if strings.TrimSpace(name) == "" {
		name = "AI Assistant"
	}
	return &Assistant{
		name:    name,
		tracker: svc,
		writer:  writer,
		lib:     lib,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

func (a *Assistant) Name() string {
	return a.name
}

// Upcoming returns incomplete tasks due within the next `days` days, in
// the order the tracking service returned them.
func (a *Assistant) Upcoming(ctx context.Context, days int) ([]tracker.Task, error) {
	if days <= 0 {
		days = 7
	}
	target := a.now().AddDate(0, 0, days).Format("2006-01-02")
	tasks, err := a.tracker.TasksDueBefore(ctx, target, tracker.UpcomingFields)
	if err != nil {
		return nil, err
	}
	var upcoming []tracker.Task
	for _, t := range tasks {
		if !t.Completed {
			upcoming = append(upcoming, t)
		}
	}
	return upcoming, nil
}
