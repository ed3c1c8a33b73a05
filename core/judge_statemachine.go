package core

// verdictOrder gives the total order used to aggregate per-testcase
// verdicts into one submission-level verdict: the worst verdict wins.
var verdictOrder = map[TestCaseJudgeResultInner]int{
	Accepted:            0,
	WrongAnswer:         1,
	RuntimeError:        2,
	MemoryLimitExceeded: 3,
	TimeLimitExceeded:   4,
	CompileFailed:       5,
	NotYetDone:          6,
}

func aggregate(results map[int64]TestCaseJudgeResult, ids []int64) (verdict TestCaseJudgeResultInner, maxRuntime, maxMemory uint64, pass bool) {
	if len(ids) == 0 {
		return CompileFailed, 0, 0, false
	}
	worst := Accepted
	for _, id := range ids {
		r, ok := results[id]
		if !ok {
			// Should not happen once the caller has confirmed every id
			// has a result, but fail closed rather than claim Accepted.
			worst = CompileFailed
			continue
		}
		if verdictOrder[r.Verdict] > verdictOrder[worst] {
			worst = r.Verdict
		}
		if r.TimeUsedMs > maxRuntime {
			maxRuntime = r.TimeUsedMs
		}
		if r.MemoryUsedKb > maxMemory {
			maxMemory = r.MemoryUsedKb
		}
	}
	return worst, maxRuntime, maxMemory, worst == Accepted
}

// Process advances a JudgeInfo by one step given its current results,
// returning the side effect the scheduler must apply. It is safe to call
// repeatedly in the same tick; once State reaches Done it always returns
// NoOp.
func (j *JudgeInfo) Process() JudgeAction {
	switch j.State {
	case InQueue:
		j.State = InPublic
		return JudgeAction{
			Kind:      AddPublicTestcase,
			Priority:  j.Submission.Class == Precise,
			Testcases: j.Public,
		}

	case InPublic:
		if len(j.Results) < len(j.Public) {
			return JudgeAction{Kind: NoOp}
		}
		ids := idsOf(j.Public)
		verdict, maxRuntime, maxMemory, pass := aggregate(j.Results, ids)
		if !pass || j.Submission.Class == Quick {
			j.State = Done
			return JudgeAction{Kind: End, Pass: pass, Verdict: verdict, MaxRuntime: maxRuntime, MaxMemory: maxMemory}
		}
		j.State = InPrivate
		return JudgeAction{Kind: AddPrivateTestcase, Testcases: j.Private}

	case InPrivate:
		total := len(j.Public) + len(j.Private)
		if len(j.Results) < total {
			return JudgeAction{Kind: NoOp}
		}
		ids := append(idsOf(j.Public), idsOf(j.Private)...)
		verdict, maxRuntime, maxMemory, pass := aggregate(j.Results, ids)
		j.State = Done
		return JudgeAction{Kind: End, Pass: pass, Verdict: verdict, MaxRuntime: maxRuntime, MaxMemory: maxMemory}

	default:
		return JudgeAction{Kind: NoOp}
	}
}

func idsOf(tcs []TestCase) []int64 {
	ids := make([]int64, len(tcs))
	for i, tc := range tcs {
		ids[i] = tc.ID
	}
	return ids
}
