package assistant

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"guidepost/app/core/tracker"
)

func TestEnrichSkipsAlreadyEnrichedTasks(t *testing.T) {
	enriched := "# " + DescriptionMarker + "\n" + strings.Repeat("detail ", 40)
	svc := &fakeTracker{tasks: []tracker.Task{
		{ID: "1", Name: "Already done", Completed: false, Notes: enriched},
	}}
	a := newTestAssistant(svc, &fakeWriter{body: "generated"}, phasedBlob)

	res, err := a.Enrich(context.Background(), 0)
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if res.Skipped != 1 || res.Processed != 0 || res.Updated != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(svc.patches) != 0 {
		t.Fatalf("expected no patches, got %d", len(svc.patches))
	}
}

func TestEnrichLongNotesWithoutMarkerStillEnriched(t *testing.T) {
	svc := &fakeTracker{tasks: []tracker.Task{
		{ID: "1", Name: "Wordy", Completed: false, Notes: strings.Repeat("n", 300)},
	}}
	a := newTestAssistant(svc, &fakeWriter{body: "generated"}, phasedBlob)

	res, err := a.Enrich(context.Background(), 0)
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if res.Updated != 1 || res.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestEnrichWritesFormattedBlock(t *testing.T) {
	svc := &fakeTracker{tasks: []tracker.Task{
		{ID: "1", Name: "Design review", Completed: false, Notes: "existing note"},
	}}
	a := newTestAssistant(svc, &fakeWriter{body: "Generated body."}, phasedBlob)

	res, err := a.Enrich(context.Background(), 0)
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if res.Processed != 1 || res.Updated != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(svc.patches) != 1 || svc.patches[0].patch.Notes == nil {
		t.Fatalf("expected a notes patch, got %+v", svc.patches)
	}
	notes := *svc.patches[0].patch.Notes
	if !strings.HasPrefix(notes, "existing note\n\n") {
		t.Fatalf("expected existing notes preserved: %q", notes)
	}
	for _, want := range []string{
		"# " + DescriptionMarker,
		"Generated by Test Assistant on 2026-08-30",
		"Generated body.",
		"Original task: Design review",
	} {
		if !strings.Contains(notes, want) {
			t.Fatalf("expected %q in notes: %q", want, notes)
		}
	}
}

func TestEnrichLimitCapsBatch(t *testing.T) {
	svc := &fakeTracker{tasks: []tracker.Task{
		{ID: "1", Name: "a"},
		{ID: "2", Name: "b"},
		{ID: "3", Name: "c"},
		{ID: "done", Name: "d", Completed: true},
	}}
	writer := &fakeWriter{body: "generated"}
	a := newTestAssistant(svc, writer, phasedBlob)

	res, err := a.Enrich(context.Background(), 2)
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if res.Processed != 2 || res.Updated != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(writer.calls) != 2 {
		t.Fatalf("expected 2 generation calls, got %d", len(writer.calls))
	}
}

func TestEnrichProviderFailureCountsAsFailed(t *testing.T) {
	svc := &fakeTracker{tasks: []tracker.Task{
		{ID: "1", Name: "a"},
		{ID: "2", Name: "b"},
	}}
	a := newTestAssistant(svc, &fakeWriter{err: fmt.Errorf("status 429")}, phasedBlob)

	res, err := a.Enrich(context.Background(), 0)
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if res.Failed != 2 || res.Processed != 2 || res.Updated != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(svc.patches) != 0 {
		t.Fatalf("expected no patches, got %d", len(svc.patches))
	}
}

func TestEnrichUpdateFailureDoesNotAbortBatch(t *testing.T) {
	svc := &fakeTracker{
		tasks: []tracker.Task{
			{ID: "1", Name: "a"},
			{ID: "2", Name: "b"},
		},
		updateErr: map[string]error{"1": fmt.Errorf("patch rejected")},
	}
	a := newTestAssistant(svc, &fakeWriter{body: "generated"}, phasedBlob)

	res, err := a.Enrich(context.Background(), 0)
	if err != nil {
		t.Fatalf("enrich failed: %v", err)
	}
	if res.Failed != 1 || res.Updated != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestEnrichListFailurePropagates(t *testing.T) {
	a := newTestAssistant(&fakeTracker{listErr: fmt.Errorf("boom")}, &fakeWriter{}, phasedBlob)

	if _, err := a.Enrich(context.Background(), 0); err == nil {
		t.Fatal("expected error")
	}
}
