package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"guidepost/app/core/assistant"
	"guidepost/app/core/knowledge"
	"guidepost/app/core/orchestrator/history"
	"guidepost/app/core/queue"
	"guidepost/app/core/tracker"
	"guidepost/app/pkg/types"
)

type fakeAdvisor struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeAdvisor) Ask(ctx context.Context, question string) (string, error) {
	f.asked = append(f.asked, question)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeOps struct {
	enrichRes    assistant.EnrichResult
	enrichErr    error
	enrichLimits []int
	upcoming     []tracker.Task
	upcomingErr  error
	status       assistant.StatusSummary
	statusErr    error
	assignRes    assistant.AssignResult
	assignTasks  []tracker.Task
}

func (f *fakeOps) Enrich(ctx context.Context, limit int) (assistant.EnrichResult, error) {
	f.enrichLimits = append(f.enrichLimits, limit)
	return f.enrichRes, f.enrichErr
}

func (f *fakeOps) Upcoming(ctx context.Context, days int) ([]tracker.Task, error) {
	return f.upcoming, f.upcomingErr
}

func (f *fakeOps) Status(ctx context.Context) (assistant.StatusSummary, error) {
	return f.status, f.statusErr
}

func (f *fakeOps) BulkAssign(ctx context.Context, tasks []tracker.Task, assignee string, dueOn string) (assistant.AssignResult, error) {
	f.assignTasks = tasks
	return f.assignRes, nil
}

const agentBlob = "PHASE 1: Discovery (Week 1-2)\nPHASE 2: Build-out (Week 3-6)\n"

func newTestAgent(advisor *fakeAdvisor, ops *fakeOps) *GuideAgent {
	return NewAgent("AI Assistant", advisor, ops, knowledge.New(agentBlob), history.NewLog(10))
}

func process(t *testing.T, g *GuideAgent, content string) types.Message {
	t.Helper()
	out, err := g.Process(context.Background(), types.Message{
		ID: "m1", Content: content, ChannelID: "slack", UserID: "u1", PeerID: "C1",
	})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	return out
}

func TestProcessEmptyContentGreets(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{})

	out := process(t, g, "   ")
	if !strings.Contains(out.Content, "Hi <@u1>!") {
		t.Fatalf("unexpected greeting: %s", out.Content)
	}
}

func TestProcessFreeTextGoesToAdvisor(t *testing.T) {
	advisor := &fakeAdvisor{answer: "do the kickoff first"}
	g := newTestAgent(advisor, &fakeOps{})

	out := process(t, g, "what should we start with?")
	if out.Content != "do the kickoff first" {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
	if len(advisor.asked) != 1 {
		t.Fatalf("expected one advisory call, got %d", len(advisor.asked))
	}
}

func TestProcessAdvisorFailureApologizes(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{err: fmt.Errorf("status 429")}, &fakeOps{})

	out := process(t, g, "anything")
	if !strings.Contains(out.Content, "Sorry <@u1>") {
		t.Fatalf("expected apology, got: %s", out.Content)
	}
}

func TestProcessRecordsConversation(t *testing.T) {
	advisor := &fakeAdvisor{answer: "here is guidance"}
	log := history.NewLog(10)
	g := NewAgent("AI Assistant", advisor, &fakeOps{}, knowledge.New(agentBlob), log)

	process(t, g, "/ask what is phase one?")

	entries := log.Recent("slack-u1", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if entries[0].Content != "what is phase one?" || entries[1].Content != "here is guidance" {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestAskCommandWithoutQuestionShowsUsage(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{})

	out := process(t, g, "/ask")
	if !strings.Contains(out.Content, "Please provide a question after 'ask'") {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
}

func TestStatusCommandRendersSummary(t *testing.T) {
	ops := &fakeOps{status: assistant.StatusSummary{
		Total: 10, Completed: 4, Incomplete: 6, Unassigned: 2, Overdue: 1, Percentage: 40.0,
		Phases: map[string]assistant.PhaseProgress{
			"2": {Total: 5, Completed: 3, Percentage: 60.0},
		},
	}}
	g := newTestAgent(&fakeAdvisor{}, ops)

	out := process(t, g, "/status")
	for _, want := range []string{
		"*Implementation Status*",
		"Progress: 4/10 tasks (40.0%)",
		"Incomplete: 6 tasks",
		"Overdue: 1 tasks",
		"Build-out (Week 3-6): 3/5 (60.0%)",
	} {
		if !strings.Contains(out.Content, want) {
			t.Fatalf("expected %q in reply:\n%s", want, out.Content)
		}
	}
}

func TestStatusCommandFailureIsSoft(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{statusErr: fmt.Errorf("fetch failed")})

	out := process(t, g, "/status")
	if out.Content != "Could not retrieve implementation status." {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
}

func TestTasksCommandRendersList(t *testing.T) {
	ops := &fakeOps{upcoming: []tracker.Task{
		{Name: "PHASE 1: Kickoff", DueOn: "2026-09-02", AssigneeName: "Dana"},
		{Name: "Loose end"},
	}}
	g := newTestAgent(&fakeAdvisor{}, ops)

	out := process(t, g, "/tasks")
	if !strings.Contains(out.Content, "• *PHASE 1: Kickoff*") {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
	if !strings.Contains(out.Content, "Due: No due date | Assignee: Unassigned") {
		t.Fatalf("expected placeholders for optional fields:\n%s", out.Content)
	}
}

func TestTasksCommandEmptyList(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{})

	out := process(t, g, "/tasks")
	if out.Content != "No upcoming tasks found." {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
}

func TestPhaseCommandRendersKnownPhase(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{})

	out := process(t, g, "/phase 1")
	if !strings.Contains(out.Content, "*Discovery (Week 1-2)*") {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
}

func TestPhaseCommandUnknownNumber(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{})

	out := process(t, g, "/phase 9")
	if out.Content != "Phase 9 not found in the implementation plan." {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
}

func TestPhaseCommandRequiresNumber(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{})

	out := process(t, g, "/phase one")
	if !strings.Contains(out.Content, "Please specify a phase number") {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
}

func TestEnrichCommandWithoutQueueRunsInline(t *testing.T) {
	ops := &fakeOps{enrichRes: assistant.EnrichResult{Processed: 3, Updated: 2, Skipped: 1}}
	g := newTestAgent(&fakeAdvisor{}, ops)

	out := process(t, g, "/enrich 3")
	if !strings.Contains(out.Content, "Processed: 3 tasks") {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
	if len(ops.enrichLimits) != 1 || ops.enrichLimits[0] != 3 {
		t.Fatalf("unexpected limits: %v", ops.enrichLimits)
	}
}

func TestEnrichCommandWithQueueRepliesImmediatelyAndNotifies(t *testing.T) {
	ops := &fakeOps{enrichRes: assistant.EnrichResult{Processed: 2, Updated: 2}}
	g := newTestAgent(&fakeAdvisor{}, ops)

	q := queue.New(4)
	if err := q.Start(context.Background(), 1); err != nil {
		t.Fatalf("queue start failed: %v", err)
	}
	notified := make(chan string, 1)
	g.SetJobQueue(q, func(ctx context.Context, origin types.Message, text string) {
		notified <- text
	})

	out := process(t, g, "/enrich")
	if !strings.Contains(out.Content, "Starting task enrichment process") {
		t.Fatalf("unexpected reply: %s", out.Content)
	}

	select {
	case text := <-notified:
		if !strings.Contains(text, "Task enrichment completed!") {
			t.Fatalf("unexpected notification: %s", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no completion notification")
	}
	q.Stop(time.Second)
}

func TestEnrichCommandRejectsNonNumericLimit(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{})

	out := process(t, g, "/enrich lots")
	if !strings.Contains(out.Content, "numeric limit") {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
}

func TestAssignCommandFiltersUnassigned(t *testing.T) {
	ops := &fakeOps{
		upcoming: []tracker.Task{
			{ID: "1", Name: "owned", AssigneeName: "Dana"},
			{ID: "2", Name: "free"},
		},
		assignRes: assistant.AssignResult{Success: 1},
	}
	g := newTestAgent(&fakeAdvisor{}, ops)

	out := process(t, g, "/assign dana 2026-09-15")
	if !strings.Contains(out.Content, "Assigned: 1 tasks") {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
	if len(ops.assignTasks) != 1 || ops.assignTasks[0].ID != "2" {
		t.Fatalf("expected only unassigned tasks passed: %+v", ops.assignTasks)
	}
}

func TestAssignCommandUnknownUser(t *testing.T) {
	ops := &fakeOps{
		upcoming:  []tracker.Task{{ID: "2", Name: "free"}},
		assignRes: assistant.AssignResult{},
	}
	g := newTestAgent(&fakeAdvisor{}, ops)

	out := process(t, g, "/assign nobody")
	if out.Content != "Could not find user: nobody" {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
}

func TestUnknownCommandPointsToHelp(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{})

	out := process(t, g, "/reticulate")
	if !strings.Contains(out.Content, "Unknown command: reticulate") {
		t.Fatalf("unexpected reply: %s", out.Content)
	}
}

func TestHelpCommandListsSubcommands(t *testing.T) {
	g := newTestAgent(&fakeAdvisor{}, &fakeOps{})

	out := process(t, g, "/help")
	for _, want := range []string{"/assistant ask", "/assistant status", "/assistant enrich"} {
		if !strings.Contains(out.Content, want) {
			t.Fatalf("expected %q in help:\n%s", want, out.Content)
		}
	}
}
