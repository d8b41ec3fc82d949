package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guidepost/app/core/tracker"
	"guidepost/app/pkg/logger"
)

// DescriptionMarker labels notes blocks written by the assistant. A task
// whose notes already exceed the threshold and carry the marker is treated
// as enriched and skipped, which makes re-runs idempotent.
const DescriptionMarker = "TASK DESCRIPTION"

const enrichedNotesThreshold = 200

// enrichPause spaces out provider calls between tasks. It is a fixed
// rate-limit mitigation, not a backoff policy.
const enrichPause = time.Second

type EnrichResult struct {
	Processed int
	Updated   int
	Skipped   int
	Failed    int
}

// Enrich writes generated descriptions into the notes of incomplete tasks.
// limit caps the batch; limit <= 0 processes all. Per-task failures are
// counted and never abort the batch.
func (a *Assistant) Enrich(ctx context.Context, limit int) (EnrichResult, error) {
	tasks, err := a.tracker.ListTasks(ctx, tracker.EnrichFields)
	if err != nil {
		return EnrichResult{}, err
	}

	var pending []tracker.Task
	for _, t := range tasks {
		if !t.Completed {
			pending = append(pending, t)
		}
	}
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	logger.Info("Found %d tasks to enrich", len(pending))

	var res EnrichResult
	for i, t := range pending {
		if len(t.Notes) > enrichedNotesThreshold && strings.Contains(t.Notes, DescriptionMarker) {
			logger.Info("Task already has detailed description, skipping: %s", t.Name)
			res.Skipped++
			continue
		}

		logger.Info("Enriching task %d/%d: %s", i+1, len(pending), t.Name)
		body, err := a.writer.Describe(ctx, t.Name)
		if err != nil {
			logger.Error("Failed to generate description for %s: %v", t.Name, err)
			res.Failed++
			res.Processed++
			a.sleep(enrichPause)
			continue
		}

		notes := a.formatDescription(t.Name, body)
		if strings.TrimSpace(t.Notes) != "" {
			notes = t.Notes + "\n\n" + notes
		}
		if err := a.tracker.UpdateTask(ctx, t.ID, tracker.TaskPatch{Notes: &notes}); err != nil {
			logger.Error("Failed to update task %s: %v", t.Name, err)
			res.Failed++
		} else {
			logger.Info("Updated task description for: %s", t.Name)
			res.Updated++
		}
		res.Processed++

		a.sleep(enrichPause)
	}

	logger.Info("Enrichment summary: processed=%d updated=%d skipped=%d failed=%d",
		res.Processed, res.Updated, res.Skipped, res.Failed)
	return res, nil
}

func (a *Assistant) formatDescription(taskName string, body string) string {
	return fmt.Sprintf("# %s\nGenerated by %s on %s\n\n%s\n\n---\nOriginal task: %s",
		DescriptionMarker, a.name, a.now().Format("2006-01-02"), body, taskName)
}
