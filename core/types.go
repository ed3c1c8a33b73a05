package core

import "time"

// RunClass distinguishes the two judging lanes: Quick runs only public
// tests for fast feedback, Precise runs public then private tests.
type RunClass int

const (
	Quick RunClass = iota
	Precise
)

func (c RunClass) String() string {
	if c == Precise {
		return "precise"
	}
	return "quick"
}

// SubmissionState mirrors the submit.state column.
type SubmissionState int

const (
	SubmissionPending SubmissionState = iota
	SubmissionInProgress
	SubmissionFinished
)

// Submission is a row pulled from the submit table.
type Submission struct {
	ID          int64
	StudentID   int64
	ProblemNo   int64
	Class       RunClass
	Lang        string
	Code        string
	SubmittedAt time.Time
}

// TestCase is a row from the testcase table for a given problem.
type TestCase struct {
	ID            int64
	ProblemID     int64
	Input         string
	Output        string
	IsPublic      bool
	TimeLimitMs   uint64
	MemoryLimitKb uint64
	// DecimalMode carries the original source's per-submission decimal
	// comparator flag through to the worker; the coordinator never
	// branches on it. See DESIGN.md Open Question resolutions.
	DecimalMode bool
}

// TestCaseJudgeResultInner is the per-testcase verdict, ordered worst-last
// so aggregation can take a plain max.
type TestCaseJudgeResultInner int

const (
	Accepted TestCaseJudgeResultInner = iota
	WrongAnswer
	RuntimeError
	MemoryLimitExceeded
	TimeLimitExceeded
	CompileFailed
	NotYetDone
)

func (v TestCaseJudgeResultInner) String() string {
	switch v {
	case Accepted:
		return "Accepted"
	case WrongAnswer:
		return "WrongAnswer"
	case RuntimeError:
		return "RuntimeError"
	case MemoryLimitExceeded:
		return "MemoryLimit"
	case TimeLimitExceeded:
		return "TimeLimit"
	case CompileFailed:
		return "CompileFailed"
	default:
		return "NotYetDone"
	}
}

// TestCaseJudgeResult is what a worker reports back for one testcase.
type TestCaseJudgeResult struct {
	TestCaseID    int64
	Verdict       TestCaseJudgeResultInner
	CompileOutput string
	RunOutput     string
	Extra         string
	TimeUsedMs    uint64
	MemoryUsedKb  uint64
	WorkerID      string
}

// JudgeState is the submission-level lifecycle position.
type JudgeState int

const (
	InQueue JudgeState = iota
	InPublic
	InPrivate
	Done
)

// JudgeActionKind is what the judge state machine asks the scheduler to do
// after a process() call.
type JudgeActionKind int

const (
	NoOp JudgeActionKind = iota
	End
	AddPublicTestcase
	AddPrivateTestcase
)

// JudgeAction is the (possibly empty) side effect emitted by process().
type JudgeAction struct {
	Kind       JudgeActionKind
	Priority   bool
	Testcases  []TestCase
	Pass       bool
	Verdict    TestCaseJudgeResultInner
	MaxRuntime uint64
	MaxMemory  uint64
}

// JudgeInfo tracks a single in-flight submission's progress across both
// queue stages.
type JudgeInfo struct {
	Submission Submission
	State      JudgeState
	Public     []TestCase
	Private    []TestCase
	Results    map[int64]TestCaseJudgeResult
}

func newJudgeInfo(sub Submission, all []TestCase) *JudgeInfo {
	info := &JudgeInfo{
		Submission: sub,
		State:      InQueue,
		Results:    make(map[int64]TestCaseJudgeResult),
	}
	for _, tc := range all {
		if tc.IsPublic {
			info.Public = append(info.Public, tc)
		} else {
			info.Private = append(info.Private, tc)
		}
	}
	return info
}

// WorkerChannel is the registry's per-connection bookkeeping record.
type WorkerChannel struct {
	ID        int64
	IsPrecise bool
	Busy      bool
	Outbound  chan<- WorkStart
	Submission int64
	Testcase   int64
}

// WorkStart is sent to a worker session's inbound channel to dispatch one
// (submission, testcase) pair.
type WorkStart struct {
	Submission Submission
	Testcase   TestCase
}
