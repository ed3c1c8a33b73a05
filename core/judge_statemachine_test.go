package core

import "testing"

func newInfo(class RunClass, public, private int) *JudgeInfo {
	var all []TestCase
	id := int64(1)
	for i := 0; i < public; i++ {
		all = append(all, TestCase{ID: id, IsPublic: true})
		id++
	}
	for i := 0; i < private; i++ {
		all = append(all, TestCase{ID: id, IsPublic: false})
		id++
	}
	return newJudgeInfo(Submission{ID: 1, Class: class}, all)
}

func TestJudgeQuickAcceptedEndsAfterPublic(t *testing.T) {
	j := newInfo(Quick, 2, 0)

	act := j.Process()
	if act.Kind != AddPublicTestcase || j.State != InPublic {
		t.Fatalf("expected InQueue->InPublic with AddPublicTestcase, got %+v state=%v", act, j.State)
	}

	// Not all results in yet.
	j.Results[1] = TestCaseJudgeResult{TestCaseID: 1, Verdict: Accepted}
	if act := j.Process(); act.Kind != NoOp {
		t.Fatalf("expected NoOp while awaiting remaining results, got %+v", act)
	}

	j.Results[2] = TestCaseJudgeResult{TestCaseID: 2, Verdict: Accepted}
	act = j.Process()
	if act.Kind != End || !act.Pass || act.Verdict != Accepted || j.State != Done {
		t.Fatalf("expected a passing End for Quick submission, got %+v state=%v", act, j.State)
	}
}

func TestJudgePreciseWrongAnswerEndsAtPublicStage(t *testing.T) {
	j := newInfo(Precise, 2, 3)
	j.Process() // InQueue -> InPublic

	j.Results[1] = TestCaseJudgeResult{TestCaseID: 1, Verdict: Accepted}
	j.Results[2] = TestCaseJudgeResult{TestCaseID: 2, Verdict: WrongAnswer}

	act := j.Process()
	if act.Kind != End || act.Pass || act.Verdict != WrongAnswer || j.State != Done {
		t.Fatalf("expected a failing End without ever entering InPrivate, got %+v state=%v", act, j.State)
	}
}

func TestJudgePreciseAdvancesToPrivateThenEnds(t *testing.T) {
	j := newInfo(Precise, 2, 2)
	j.Process() // InQueue -> InPublic

	j.Results[1] = TestCaseJudgeResult{TestCaseID: 1, Verdict: Accepted}
	j.Results[2] = TestCaseJudgeResult{TestCaseID: 2, Verdict: Accepted}

	act := j.Process()
	if act.Kind != AddPrivateTestcase || j.State != InPrivate || len(act.Testcases) != 2 {
		t.Fatalf("expected public pass to admit private testcases, got %+v state=%v", act, j.State)
	}

	if act := j.Process(); act.Kind != NoOp {
		t.Fatalf("expected NoOp before private results arrive, got %+v", act)
	}

	j.Results[3] = TestCaseJudgeResult{TestCaseID: 3, Verdict: Accepted, TimeUsedMs: 50, MemoryUsedKb: 2048}
	j.Results[4] = TestCaseJudgeResult{TestCaseID: 4, Verdict: TimeLimitExceeded, TimeUsedMs: 2000, MemoryUsedKb: 4096}

	act = j.Process()
	if act.Kind != End || act.Pass || act.Verdict != TimeLimitExceeded || j.State != Done {
		t.Fatalf("expected failing End with worst verdict across all results, got %+v state=%v", act, j.State)
	}
	if act.MaxRuntime != 2000 || act.MaxMemory != 4096 {
		t.Fatalf("expected max runtime/memory across all testcases, got runtime=%d memory=%d", act.MaxRuntime, act.MaxMemory)
	}
}

func TestAggregateDefaultsToCompileFailedWithNoResults(t *testing.T) {
	verdict, _, _, pass := aggregate(map[int64]TestCaseJudgeResult{}, nil)
	if verdict != CompileFailed || pass {
		t.Fatalf("expected CompileFailed/fail with no results, got verdict=%v pass=%v", verdict, pass)
	}
}
