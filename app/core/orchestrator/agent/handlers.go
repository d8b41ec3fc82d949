package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"guidepost/app/core/assistant"
	"guidepost/app/core/queue"
	"guidepost/app/core/tracker"
	"guidepost/app/pkg/types"
)

func (g *GuideAgent) registerHandlers() {
	g.command.Register("ask", g.handleAsk)
	g.command.Register("tasks", g.handleTasks)
	g.command.Register("status", g.handleStatus)
	g.command.Register("phase", g.handlePhase)
	g.command.Register("enrich", g.handleEnrich)
	g.command.Register("assign", g.handleAssign)
	g.command.SetHelpProvider(helpText)
}

func helpText() string {
	var b strings.Builder
	b.WriteString("*AI Implementation Assistant - Available Commands*\n\n")
	b.WriteString("• `/assistant help` - Show this help message\n")
	b.WriteString("• `/assistant ask [question]` - Ask the AI expert\n")
	b.WriteString("• `/assistant tasks` - Show upcoming tasks\n")
	b.WriteString("• `/assistant status` - Show implementation progress\n")
	b.WriteString("• `/assistant phase [number]` - Get details about a specific phase\n")
	b.WriteString("• `/assistant enrich [limit]` - Add detailed descriptions to tasks\n")
	b.WriteString("• `/assistant assign [name] [due]` - Assign upcoming unassigned tasks")
	return b.String()
}

func (g *GuideAgent) handleAsk(ctx context.Context, msg types.Message, content string) (string, error) {
	if content == "" {
		return "Please provide a question after 'ask'. For example: `/assistant ask What is the next step?`", nil
	}
	answer, err := g.advisor.Ask(ctx, content)
	if err != nil {
		return "Sorry, I couldn't get an answer to that question. Please try rephrasing.", nil
	}
	g.remember(msg, content, answer)
	return answer, nil
}

func (g *GuideAgent) handleTasks(ctx context.Context, msg types.Message, content string) (string, error) {
	upcoming, err := g.ops.Upcoming(ctx, 7)
	if err != nil {
		return "", fmt.Errorf("retrieving tasks: %w", err)
	}
	if len(upcoming) == 0 {
		return "No upcoming tasks found.", nil
	}
	return formatUpcoming(upcoming), nil
}

func (g *GuideAgent) handleStatus(ctx context.Context, msg types.Message, content string) (string, error) {
	summary, err := g.ops.Status(ctx)
	if err != nil {
		return "Could not retrieve implementation status.", nil
	}
	return g.formatStatus(summary), nil
}

func (g *GuideAgent) handlePhase(ctx context.Context, msg types.Message, content string) (string, error) {
	if _, err := strconv.Atoi(content); err != nil {
		return "Please specify a phase number. For example: `/assistant phase 1`", nil
	}
	phase, ok := g.lib.Phases[content]
	if !ok {
		return fmt.Sprintf("Phase %s not found in the implementation plan.", content), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", phase.Name)
	if phase.Description != "" {
		b.WriteString(phase.Description)
		b.WriteString("\n\n")
	}
	if len(phase.KeyActivities) > 0 {
		b.WriteString("*Key Activities:*\n")
		for _, activity := range phase.KeyActivities {
			fmt.Fprintf(&b, "• %s\n", activity)
		}
		b.WriteString("\n")
	}
	if len(phase.Deliverables) > 0 {
		b.WriteString("*Deliverables:*\n")
		for _, deliverable := range phase.Deliverables {
			fmt.Fprintf(&b, "• %s\n", deliverable)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func (g *GuideAgent) handleEnrich(ctx context.Context, msg types.Message, content string) (string, error) {
	limit := 0
	if content != "" {
		n, err := strconv.Atoi(content)
		if err != nil || n < 0 {
			return "Please provide a numeric limit. For example: `/assistant enrich 5`", nil
		}
		limit = n
	}

	jobs, notify := g.jobQueue()
	if jobs == nil {
		res, err := g.ops.Enrich(ctx, limit)
		if err != nil {
			return "", fmt.Errorf("starting enrichment: %w", err)
		}
		return formatEnrichResult(res), nil
	}

	job := queue.Job{Run: func(runCtx context.Context) error {
		res, err := g.ops.Enrich(runCtx, limit)
		if err != nil {
			if notify != nil {
				notify(runCtx, msg, fmt.Sprintf("❌ Error during task enrichment: %v", err))
			}
			return err
		}
		if notify != nil {
			notify(runCtx, msg, "✅ Task enrichment completed!\n"+formatEnrichResult(res))
		}
		return nil
	}}
	if _, err := jobs.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("starting enrichment: %w", err)
	}

	reply := "Starting task enrichment process"
	if limit > 0 {
		reply += fmt.Sprintf(" for %d tasks", limit)
	}
	return reply + ". This may take a few minutes...", nil
}

func (g *GuideAgent) handleAssign(ctx context.Context, msg types.Message, content string) (string, error) {
	args := strings.Fields(content)
	if len(args) == 0 {
		return "Please provide an assignee name. For example: `/assistant assign dana 2026-09-15`", nil
	}
	name := args[0]
	dueOn := ""
	if len(args) > 1 {
		dueOn = args[1]
	}

	upcoming, err := g.ops.Upcoming(ctx, 7)
	if err != nil {
		return "", fmt.Errorf("retrieving tasks: %w", err)
	}
	var unassigned []tracker.Task
	for _, t := range upcoming {
		if strings.TrimSpace(t.AssigneeName) == "" {
			unassigned = append(unassigned, t)
		}
	}
	if len(unassigned) == 0 {
		return "No unassigned upcoming tasks found.", nil
	}

	res, err := g.ops.BulkAssign(ctx, unassigned, name, dueOn)
	if err != nil {
		return "", fmt.Errorf("assigning tasks: %w", err)
	}
	if res.Success == 0 && res.Failed == 0 {
		return fmt.Sprintf("Could not find user: %s", name), nil
	}
	return fmt.Sprintf("*Bulk Assignment*\nAssigned: %d tasks\nFailed: %d tasks", res.Success, res.Failed), nil
}

func formatUpcoming(tasks []tracker.Task) string {
	var b strings.Builder
	b.WriteString("*Upcoming Tasks:*\n")
	for _, t := range tasks {
		due := t.DueOn
		if due == "" {
			due = "No due date"
		}
		assignee := t.AssigneeName
		if assignee == "" {
			assignee = "Unassigned"
		}
		fmt.Fprintf(&b, "• *%s*\n  Due: %s | Assignee: %s\n", t.Name, due, assignee)
	}
	return strings.TrimSpace(b.String())
}

func (g *GuideAgent) formatStatus(s assistant.StatusSummary) string {
	var b strings.Builder
	b.WriteString("*Implementation Status*\n")
	fmt.Fprintf(&b, "Total Tasks: %d\n", s.Total)
	fmt.Fprintf(&b, "Progress: %d/%d tasks (%.1f%%)\n", s.Completed, s.Total, s.Percentage)
	fmt.Fprintf(&b, "Incomplete: %d tasks\n", s.Incomplete)
	fmt.Fprintf(&b, "Unassigned: %d tasks\n", s.Unassigned)
	fmt.Fprintf(&b, "Overdue: %d tasks\n", s.Overdue)

	if len(s.Phases) > 0 {
		b.WriteString("\n*Progress by Phase:*\n")
		for _, id := range g.lib.PhaseIDs() {
			p, ok := s.Phases[id]
			if !ok {
				continue
			}
			name := g.lib.Phases[id].Name
			if name == "" {
				name = "Phase " + id
			}
			fmt.Fprintf(&b, "• %s: %d/%d (%.1f%%)\n", name, p.Completed, p.Total, p.Percentage)
		}
	}
	return strings.TrimSpace(b.String())
}

func formatEnrichResult(res assistant.EnrichResult) string {
	var b strings.Builder
	b.WriteString("*Task Enrichment Summary*\n")
	fmt.Fprintf(&b, "Processed: %d tasks\n", res.Processed)
	fmt.Fprintf(&b, "Updated: %d tasks\n", res.Updated)
	fmt.Fprintf(&b, "Skipped: %d tasks\n", res.Skipped)
	fmt.Fprintf(&b, "Failed: %d tasks", res.Failed)
	return b.String()
}
