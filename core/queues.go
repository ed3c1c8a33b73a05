package core

// taskItem is one (submission, testcase) pair waiting for a worker.
type taskItem struct {
	Submission Submission
	Testcase   TestCase
}

// TaskQueue holds the two priority lanes described in component E:
// precise work (routed to Precise-class testcases) and quick work
// (public testcases). Both are drained tail-first (LIFO); priority
// insertion places an item at the head, ahead of everything already
// waiting, and de-duplicates against the same lane first.
type TaskQueue struct {
	precise []taskItem
	quick   []taskItem
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Add appends a (submission, testcase) pair to the tail of the lane
// selected by testcase.IsPublic.
func (q *TaskQueue) Add(sub Submission, tc TestCase) {
	item := taskItem{Submission: sub, Testcase: tc}
	if tc.IsPublic {
		q.quick = append(q.quick, item)
	} else {
		q.precise = append(q.precise, item)
	}
}

// AddBatch adds every testcase in tcs for sub, each to the tail of its
// routed lane, or to the head (still de-duplicated) when priority is set —
// used when a Precise submission's public tests must jump a congested
// quick lane.
func (q *TaskQueue) AddBatch(sub Submission, tcs []TestCase, priority bool) {
	for _, tc := range tcs {
		if priority {
			q.ForceRejudge(sub, tc)
		} else {
			q.Add(sub, tc)
		}
	}
}

// ForceRejudge re-inserts a (submission, testcase) pair at the head of
// its lane, skipping the insert if that exact pair is already present
// anywhere in the lane.
func (q *TaskQueue) ForceRejudge(sub Submission, tc TestCase) {
	lane := &q.quick
	if !tc.IsPublic {
		lane = &q.precise
	}
	for _, item := range *lane {
		if item.Submission.ID == sub.ID && item.Testcase.ID == tc.ID {
			return
		}
	}
	*lane = append([]taskItem{{Submission: sub, Testcase: tc}}, (*lane)...)
}

// popTail removes and returns the last element of lane, or false if
// empty.
func popTail(lane *[]taskItem) (taskItem, bool) {
	n := len(*lane)
	if n == 0 {
		return taskItem{}, false
	}
	item := (*lane)[n-1]
	*lane = (*lane)[:n-1]
	return item, true
}

// PopPrecise pops the next precise-lane item, LIFO.
func (q *TaskQueue) PopPrecise() (Submission, TestCase, bool) {
	item, ok := popTail(&q.precise)
	return item.Submission, item.Testcase, ok
}

// PopQuick pops the next quick-lane item, LIFO.
func (q *TaskQueue) PopQuick() (Submission, TestCase, bool) {
	item, ok := popTail(&q.quick)
	return item.Submission, item.Testcase, ok
}

func (q *TaskQueue) PreciseLen() int { return len(q.precise) }
func (q *TaskQueue) QuickLen() int   { return len(q.quick) }
