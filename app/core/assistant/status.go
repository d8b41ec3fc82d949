package assistant

import (
	"context"
	"math"
	"strings"

	"guidepost/app/core/tracker"
)

type PhaseProgress struct {
	Total      int
	Completed  int
	Percentage float64
}

// StatusSummary is a derived aggregate computed fresh on each request.
type StatusSummary struct {
	Total      int
	Completed  int
	Incomplete int
	Unassigned int
	Overdue    int
	Percentage float64
	Phases     map[string]PhaseProgress
}

// Status fetches all project tasks and aggregates counts, the overall
// completion percentage, and per-phase progress. A task lands in at most
// one phase bucket: the first phase id, in ascending numeric order, whose
// marker appears in the task name.
func (a *Assistant) Status(ctx context.Context) (StatusSummary, error) {
	tasks, err := a.tracker.ListTasks(ctx, tracker.StatusFields)
	if err != nil {
		return StatusSummary{}, err
	}

	today := a.now().Format("2006-01-02")
	summary := StatusSummary{
		Total:  len(tasks),
		Phases: map[string]PhaseProgress{},
	}
	phaseIDs := a.lib.PhaseIDs()

	for _, t := range tasks {
		if t.Completed {
			summary.Completed++
		} else {
			if strings.TrimSpace(t.AssigneeName) == "" {
				summary.Unassigned++
			}
			if t.DueOn != "" && t.DueOn < today {
				summary.Overdue++
			}
		}

		for _, id := range phaseIDs {
			if strings.Contains(t.Name, "PHASE "+id+":") {
				p := summary.Phases[id]
				p.Total++
				if t.Completed {
					p.Completed++
				}
				summary.Phases[id] = p
				break
			}
		}
	}

	summary.Incomplete = summary.Total - summary.Completed
	summary.Percentage = percentage(summary.Completed, summary.Total)
	for id, p := range summary.Phases {
		p.Percentage = percentage(p.Completed, p.Total)
		summary.Phases[id] = p
	}
	return summary, nil
}

// percentage is completed/total*100 rounded to one decimal, 0 when total
// is 0.
func percentage(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}
