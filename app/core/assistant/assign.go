package assistant

import (
	"context"
	"strings"

	"guidepost/app/core/tracker"
	"guidepost/app/pkg/logger"
)

type AssignedTask struct {
	ID    string
	Name  string
	Error string
}

type AssignResult struct {
	Success int
	Failed  int
	Tasks   []AssignedTask
}

// BulkAssign resolves the assignee by case-insensitive substring match
// against the service's user list (first match wins) and patches each
// task with the assignee and optional due date. An unmatched assignee
// returns a zero result without issuing any patch. Per-task failures are
// recorded and never abort the loop.
func (a *Assistant) BulkAssign(ctx context.Context, tasks []tracker.Task, assignee string, dueOn string) (AssignResult, error) {
	var res AssignResult

	users, err := a.tracker.ListUsers(ctx)
	if err != nil {
		return res, err
	}

	needle := strings.ToLower(strings.TrimSpace(assignee))
	var assigneeID string
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), needle) {
			assigneeID = u.ID
			break
		}
	}
	if assigneeID == "" {
		logger.Info("Could not find user: %s", assignee)
		return res, nil
	}

	for _, t := range tasks {
		patch := tracker.TaskPatch{AssigneeID: &assigneeID}
		if strings.TrimSpace(dueOn) != "" {
			due := dueOn
			patch.DueOn = &due
		}
		if err := a.tracker.UpdateTask(ctx, t.ID, patch); err != nil {
			logger.Error("Failed to assign task %s: %v", t.Name, err)
			res.Failed++
			res.Tasks = append(res.Tasks, AssignedTask{ID: t.ID, Name: t.Name, Error: err.Error()})
			continue
		}
		res.Success++
		res.Tasks = append(res.Tasks, AssignedTask{ID: t.ID, Name: t.Name})
	}
	return res, nil
}
