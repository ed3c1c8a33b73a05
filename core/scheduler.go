package core

import (
	"context"
	"log"
	"math/rand"
	"net"
	"sync/atomic"
	"time"
)

const tickInterval = 1000 * time.Millisecond

// Coordinator is the single goroutine that owns the registry, queues, and
// judge map (component F). Every field below except latest is touched
// exclusively from Run's goroutine; latest is an atomic.Value read by
// LatestSnapshot from any goroutine.
type Coordinator struct {
	store    Store
	registry *WorkerRegistry
	queues   *TaskQueue
	judges   map[int64]*JudgeInfo

	events chan ChannelEvent

	snapshot func(Snapshot) // optional hook, e.g. the Redis mirror publisher
	latest   atomic.Value   // Snapshot, for the local status dashboard
}

// Snapshot is a point-in-time view of coordinator health, handed to the
// optional publish hook on every tick.
type Snapshot struct {
	PrecisePending int
	QuickPending   int
	FreePrecise    int
	FreeQuick      int
	BusyWorkers    int
	InFlightJudges int
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{
		store:    store,
		registry: NewWorkerRegistry(),
		queues:   NewTaskQueue(),
		judges:   make(map[int64]*JudgeInfo),
		events:   make(chan ChannelEvent, 128),
	}
}

// OnSnapshot installs a callback invoked with a Snapshot at the end of
// every tick. nil disables it.
func (c *Coordinator) OnSnapshot(fn func(Snapshot)) { c.snapshot = fn }

// LatestSnapshot returns the most recent Snapshot computed by tick, for the
// local status dashboard. Safe to call from any goroutine.
func (c *Coordinator) LatestSnapshot() Snapshot {
	if v, ok := c.latest.Load().(Snapshot); ok {
		return v
	}
	return Snapshot{}
}

// Listen accepts worker connections on addr until ctx is canceled, handing
// each one to Serve with c.events as the shared reporting channel.
func (c *Coordinator) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Printf("coordinator: listening on %s", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Printf("coordinator: accept: %v", err)
				return err
			}
		}
		go Serve(ctx, conn, c.events)
	}
}

// Run drives the coordinator goroutine: the 1s scheduler tick and worker
// events are both handled here, and nowhere else, so registry/queues/judge
// map never need locking.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.handleEvent(ctx, ev)
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Coordinator) handleEvent(ctx context.Context, ev ChannelEvent) {
	switch {
	case ev.NewChannel:
		w := c.registry.Register(ev.IsPrecise, ev.Inbound)
		ev.SetChanID <- w.ID

	case ev.WorkDone:
		c.registry.MarkIdle(ev.ChannelID)
		if info, ok := c.judges[ev.Submission]; ok {
			info.Results[ev.Testcase] = ev.Result
		}
		if err := c.store.InsertTestcaseJudge(ctx, ev.Submission, ev.Result); err != nil {
			log.Printf("coordinator: insert testcase judge: %v", err)
		}

	case ev.Refused:
		if info, ok := c.judges[ev.Submission]; ok {
			for _, tc := range append(append([]TestCase{}, info.Public...), info.Private...) {
				if tc.ID == ev.Testcase {
					c.queues.ForceRejudge(info.Submission, tc)
					break
				}
			}
		}

	case ev.Shutdown:
		c.registry.Remove(ev.ChannelID)
		if ev.HasWork {
			if info, ok := c.judges[ev.Submission]; ok {
				for _, tc := range append(append([]TestCase{}, info.Public...), info.Private...) {
					if tc.ID == ev.Testcase {
						c.queues.ForceRejudge(info.Submission, tc)
						break
					}
				}
			}
		}
	}
}

func (c *Coordinator) tick(ctx context.Context) {
	c.driveStateMachines(ctx)

	freePrecise, freeQuick := c.registry.Partition()

	if len(freePrecise) > 0 || len(freeQuick) > 0 {
		c.refill(ctx, maxInt(len(freePrecise), 8), maxInt(len(freeQuick), 8))
		c.driveStateMachines(ctx)
		freePrecise, freeQuick = c.registry.Partition()
	}

	rand.Shuffle(len(freePrecise), func(i, j int) { freePrecise[i], freePrecise[j] = freePrecise[j], freePrecise[i] })
	rand.Shuffle(len(freeQuick), func(i, j int) { freeQuick[i], freeQuick[j] = freeQuick[j], freeQuick[i] })

	c.match(freePrecise, freeQuick)

	fp, fq := c.registry.Partition()
	busy := c.registry.Len() - len(fp) - len(fq)
	snap := Snapshot{
		PrecisePending: c.queues.PreciseLen(),
		QuickPending:   c.queues.QuickLen(),
		FreePrecise:    len(fp),
		FreeQuick:      len(fq),
		BusyWorkers:    busy,
		InFlightJudges: len(c.judges),
	}
	c.latest.Store(snap)
	if c.snapshot != nil {
		c.snapshot(snap)
	}
}

func (c *Coordinator) driveStateMachines(ctx context.Context) {
	for id, info := range c.judges {
		action := info.Process()
		switch action.Kind {
		case NoOp:
			continue
		case AddPublicTestcase:
			c.queues.AddBatch(info.Submission, action.Testcases, action.Priority)
		case AddPrivateTestcase:
			c.queues.AddBatch(info.Submission, action.Testcases, false)
		case End:
			if err := c.store.UpdateSubmissionEnd(ctx, info.Submission, action.Pass, action.Verdict.String(), action.MaxMemory, action.MaxRuntime); err != nil {
				log.Printf("coordinator: update submission end for %d: %v", id, err)
			}
			delete(c.judges, id)
		}
	}
}

func (c *Coordinator) refill(ctx context.Context, preciseAvail, quickAvail int) {
	precise, quick, err := c.store.ListSubmissions(ctx, preciseAvail, quickAvail)
	if err != nil {
		log.Printf("coordinator: list submissions: %v", err)
		return
	}

	var queuedIDs []int64
	for _, sub := range append(precise, quick...) {
		tcs, err := c.store.ListTestcase(ctx, sub.ProblemNo)
		if err != nil {
			log.Printf("coordinator: list testcase for problem %d: %v", sub.ProblemNo, err)
			continue
		}
		c.judges[sub.ID] = newJudgeInfo(sub, tcs)
		queuedIDs = append(queuedIDs, sub.ID)
	}

	if len(queuedIDs) > 0 {
		if err := c.store.MarkSubmissionQueued(ctx, queuedIDs); err != nil {
			log.Printf("coordinator: mark submission queued: %v", err)
		}
	}
}

// match pairs queue heads with free workers. Precise work is never sent to
// a quick-only worker; quick work prefers a quick-class worker but may
// fall back to an idle precise-class one.
func (c *Coordinator) match(freePrecise, freeQuick []*WorkerChannel) {
	for len(freePrecise) > 0 {
		sub, tc, ok := c.queues.PopPrecise()
		if !ok {
			break
		}
		w := freePrecise[len(freePrecise)-1]
		freePrecise = freePrecise[:len(freePrecise)-1]
		c.dispatch(w, sub, tc)
	}

	for {
		sub, tc, ok := c.queues.PopQuick()
		if !ok {
			break
		}
		var w *WorkerChannel
		if len(freeQuick) > 0 {
			w = freeQuick[len(freeQuick)-1]
			freeQuick = freeQuick[:len(freeQuick)-1]
		} else if len(freePrecise) > 0 {
			w = freePrecise[len(freePrecise)-1]
			freePrecise = freePrecise[:len(freePrecise)-1]
		} else {
			c.queues.ForceRejudge(sub, tc)
			break
		}
		c.dispatch(w, sub, tc)
	}
}

func (c *Coordinator) dispatch(w *WorkerChannel, sub Submission, tc TestCase) {
	c.registry.MarkBusy(w.ID, sub.ID, tc.ID)
	select {
	case w.Outbound <- WorkStart{Submission: sub, Testcase: tc}:
	default:
		c.registry.MarkIdle(w.ID)
		c.queues.ForceRejudge(sub, tc)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
