package core

// WorkerRegistry tracks every connected worker session. It is owned
// exclusively by the scheduler goroutine (component F) — no locking is
// needed because nothing else ever touches it.
type WorkerRegistry struct {
	nextID  int64
	workers map[int64]*WorkerChannel
}

func NewWorkerRegistry() *WorkerRegistry {
	return &WorkerRegistry{workers: make(map[int64]*WorkerChannel)}
}

// Register assigns the next channel id and stores the record.
func (r *WorkerRegistry) Register(isPrecise bool, outbound chan<- WorkStart) *WorkerChannel {
	r.nextID++
	w := &WorkerChannel{ID: r.nextID, IsPrecise: isPrecise, Outbound: outbound}
	r.workers[w.ID] = w
	return w
}

// Remove drops a worker, e.g. after Shutdown.
func (r *WorkerRegistry) Remove(id int64) {
	delete(r.workers, id)
}

// Lookup returns the worker record, or nil if unknown.
func (r *WorkerRegistry) Lookup(id int64) *WorkerChannel {
	return r.workers[id]
}

// MarkBusy records that a worker has been handed one (submission,
// testcase) pair.
func (r *WorkerRegistry) MarkBusy(id, submission, testcase int64) {
	if w, ok := r.workers[id]; ok {
		w.Busy = true
		w.Submission = submission
		w.Testcase = testcase
	}
}

// MarkIdle clears a worker's current assignment.
func (r *WorkerRegistry) MarkIdle(id int64) {
	if w, ok := r.workers[id]; ok {
		w.Busy = false
		w.Submission = 0
		w.Testcase = 0
	}
}

// Partition splits idle workers into precise-capable and quick-only
// subsets. Precise-capable workers may also serve quick work; quick-only
// workers may never serve precise work.
func (r *WorkerRegistry) Partition() (freePrecise, freeQuick []*WorkerChannel) {
	for _, w := range r.workers {
		if w.Busy {
			continue
		}
		if w.IsPrecise {
			freePrecise = append(freePrecise, w)
		} else {
			freeQuick = append(freeQuick, w)
		}
	}
	return freePrecise, freeQuick
}

// Len returns the number of registered workers, busy or idle.
func (r *WorkerRegistry) Len() int {
	return len(r.workers)
}
