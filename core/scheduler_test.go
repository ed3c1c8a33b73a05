package core

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerEndToEndQuickAccepted(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		quick: []Submission{{ID: 1, StudentID: 10, ProblemNo: 100, Class: Quick, Lang: "cpp", Code: "ok"}},
		testcases: map[int64][]TestCase{
			100: {{ID: 1, ProblemID: 100, IsPublic: true}, {ID: 2, ProblemID: 100, IsPublic: true}},
		},
	}
	c := NewCoordinator(store)

	out := make(chan WorkStart, 4)
	w := c.registry.Register(false, out)

	c.tick(ctx) // refill + drive + match

	if len(store.queuedIDs) != 1 || store.queuedIDs[0] != 1 {
		t.Fatalf("expected submission 1 to be marked queued, got %+v", store.queuedIDs)
	}
	if c.queues.QuickLen() == 0 && len(out) == 0 {
		t.Fatalf("expected either a pending quick task or a dispatched one")
	}

	// Drain whatever got dispatched to the one worker we registered
	// (only one of the two testcases can be in flight at a time since we
	// only registered one worker), acking results as they complete.
	delivered := map[int64]bool{}
	for len(delivered) < 2 {
		select {
		case ws := <-out:
			delivered[ws.Testcase.ID] = true
			c.handleEvent(ctx, ChannelEvent{
				ChannelID: w.ID, WorkDone: true, Accepted: true,
				Submission: ws.Submission.ID, Testcase: ws.Testcase.ID,
				Result: TestCaseJudgeResult{TestCaseID: ws.Testcase.ID, Verdict: Accepted},
			})
			c.tick(ctx)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for dispatch, delivered=%v", delivered)
		}
	}

	if _, stillTracked := c.judges[1]; stillTracked {
		t.Fatalf("expected submission to be finalized and removed from the judge map")
	}
	if len(store.ended) != 1 || store.ended[0].ID != 1 {
		t.Fatalf("expected UpdateSubmissionEnd to be called once for submission 1, got %+v", store.ended)
	}
}

func TestSchedulerNeverSendsPreciseWorkToQuickOnlyWorker(t *testing.T) {
	c := NewCoordinator(&fakeStore{})

	quickOut := make(chan WorkStart, 4)
	c.registry.Register(false, quickOut)

	sub := Submission{ID: 5, Class: Precise}
	tc := TestCase{ID: 50, IsPublic: false}
	c.queues.Add(sub, tc)

	freePrecise, freeQuick := c.registry.Partition()
	c.match(freePrecise, freeQuick)

	select {
	case ws := <-quickOut:
		t.Fatalf("precise work must never reach a quick-only worker, got %+v", ws)
	default:
	}
	if c.queues.PreciseLen() != 1 {
		t.Fatalf("expected the precise task to remain queued, got len=%d", c.queues.PreciseLen())
	}
}

func TestSchedulerQuickWorkFallsBackToFreePreciseWorker(t *testing.T) {
	c := NewCoordinator(&fakeStore{})

	preciseOut := make(chan WorkStart, 4)
	c.registry.Register(true, preciseOut)

	sub := Submission{ID: 6, Class: Quick}
	tc := TestCase{ID: 60, IsPublic: true}
	c.queues.Add(sub, tc)

	freePrecise, freeQuick := c.registry.Partition()
	c.match(freePrecise, freeQuick)

	select {
	case ws := <-preciseOut:
		if ws.Testcase.ID != 60 {
			t.Fatalf("expected quick testcase 60 to be dispatched, got %+v", ws)
		}
	default:
		t.Fatalf("expected quick work to fall back onto the idle precise worker")
	}
}

func TestSchedulerRefuseRequeuesWithoutCrashing(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(&fakeStore{})
	out := make(chan WorkStart, 1)
	w := c.registry.Register(true, out)

	sub := Submission{ID: 7, Class: Precise}
	tc := TestCase{ID: 70, IsPublic: false}
	c.judges[7] = newJudgeInfo(sub, []TestCase{tc})

	c.handleEvent(ctx, ChannelEvent{ChannelID: w.ID, Refused: true, Submission: 7, Testcase: 70})

	if c.queues.PreciseLen() != 1 {
		t.Fatalf("expected the refused task to be requeued as priority, got len=%d", c.queues.PreciseLen())
	}
}

func TestSchedulerShutdownRequeuesInFlightWork(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(&fakeStore{})
	out := make(chan WorkStart, 1)
	w := c.registry.Register(true, out)
	c.registry.MarkBusy(w.ID, 8, 80)

	sub := Submission{ID: 8, Class: Precise}
	tc := TestCase{ID: 80, IsPublic: false}
	c.judges[8] = newJudgeInfo(sub, []TestCase{tc})

	c.handleEvent(ctx, ChannelEvent{ChannelID: w.ID, Shutdown: true, HasWork: true, Submission: 8, Testcase: 80})

	if c.registry.Lookup(w.ID) != nil {
		t.Fatalf("expected the worker to be removed from the registry")
	}
	if c.queues.PreciseLen() != 1 {
		t.Fatalf("expected the abandoned task to be requeued, got len=%d", c.queues.PreciseLen())
	}
}
