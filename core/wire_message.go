package core

import "errors"

// MsgType is the frame-level type tag (component A).
type MsgType uint32

const (
	MsgRegister MsgType = iota
	MsgSetTask
	MsgSetTaskAck
	MsgResultSuccess
	MsgResultFailed
	MsgShutdown
	MsgReset
)

func (t MsgType) valid() bool {
	return t <= MsgReset
}

// ErrUnknownMsgType is fatal: the frame declares a type this process does
// not understand.
var ErrUnknownMsgType = errors.New("wire: unknown message type")

// ErrBadShape means a frame decoded fine as a Value tree but that tree
// does not match the expected shape for its declared MsgType.
var ErrBadShape = errors.New("wire: payload does not match message shape")

// Message is the decoded, typed form of a Frame.
type Message struct {
	Type MsgType

	// Register
	IsPreciseServer bool

	// SetTask / SetTaskAck / ResultSuccess / ResultFailed share these.
	SubmissionID int64
	TestCaseID   int64

	// SetTask only
	Lang           string
	Code           string
	Input          string
	ExpectedOutput string
	TimeLimitMs    uint64
	MemoryLimitKb  uint64
	DecimalMode    bool

	// ResultSuccess / ResultFailed only
	CompileOutput string
	RunOutput     string
	Verdict       string
	Extra         string
	TimeUsedMs    uint64
	MemoryUsedKb  uint64
	WorkerID      string
}

// ToFrame serializes a Message to its wire Frame.
func ToFrame(m Message) Frame {
	switch m.Type {
	case MsgRegister:
		return Frame{Type: MsgRegister, Data: VBool(m.IsPreciseServer)}
	case MsgSetTask:
		return Frame{Type: MsgSetTask, Data: VArray(
			VInt(m.SubmissionID),
			VInt(m.TestCaseID),
			VString(m.Lang),
			VString(m.Code),
			VString(m.Input),
			VString(m.ExpectedOutput),
			VUInt(m.TimeLimitMs),
			VUInt(m.MemoryLimitKb),
			VBool(m.DecimalMode),
		)}
	case MsgSetTaskAck:
		return Frame{Type: MsgSetTaskAck, Data: VArray(
			VInt(m.SubmissionID),
			VInt(m.TestCaseID),
		)}
	case MsgResultSuccess, MsgResultFailed:
		return Frame{Type: m.Type, Data: VArray(
			VInt(m.SubmissionID),
			VInt(m.TestCaseID),
			VString(m.CompileOutput),
			VString(m.RunOutput),
			VString(m.Verdict),
			VString(m.Extra),
			VUInt(m.TimeUsedMs),
			VUInt(m.MemoryUsedKb),
			VString(m.WorkerID),
		)}
	case MsgShutdown:
		return Frame{Type: MsgShutdown, Data: VNone()}
	case MsgReset:
		return Frame{Type: MsgReset, Data: VNone()}
	default:
		return Frame{Type: m.Type, Data: VNone()}
	}
}

// FromFrame validates f's payload shape against its declared type and
// builds the typed Message.
func FromFrame(f Frame) (Message, error) {
	switch f.Type {
	case MsgRegister:
		if f.Data.Tag != TagBoolean {
			return Message{}, ErrBadShape
		}
		return Message{Type: MsgRegister, IsPreciseServer: f.Data.Bool}, nil

	case MsgSetTask:
		a, err := arrayOfLen(f.Data, 9)
		if err != nil {
			return Message{}, err
		}
		subID, err := asInt(a[0])
		if err != nil {
			return Message{}, err
		}
		tcID, err := asInt(a[1])
		if err != nil {
			return Message{}, err
		}
		lang, err := asString(a[2])
		if err != nil {
			return Message{}, err
		}
		code, err := asString(a[3])
		if err != nil {
			return Message{}, err
		}
		input, err := asString(a[4])
		if err != nil {
			return Message{}, err
		}
		expected, err := asString(a[5])
		if err != nil {
			return Message{}, err
		}
		tl, err := asUInt(a[6])
		if err != nil {
			return Message{}, err
		}
		ml, err := asUInt(a[7])
		if err != nil {
			return Message{}, err
		}
		decimal, err := asBool(a[8])
		if err != nil {
			return Message{}, err
		}
		return Message{
			Type:           MsgSetTask,
			SubmissionID:   subID,
			TestCaseID:     tcID,
			Lang:           lang,
			Code:           code,
			Input:          input,
			ExpectedOutput: expected,
			TimeLimitMs:    tl,
			MemoryLimitKb:  ml,
			DecimalMode:    decimal,
		}, nil

	case MsgSetTaskAck:
		a, err := arrayOfLen(f.Data, 2)
		if err != nil {
			return Message{}, err
		}
		subID, err := asInt(a[0])
		if err != nil {
			return Message{}, err
		}
		tcID, err := asInt(a[1])
		if err != nil {
			return Message{}, err
		}
		return Message{Type: MsgSetTaskAck, SubmissionID: subID, TestCaseID: tcID}, nil

	case MsgResultSuccess, MsgResultFailed:
		a, err := arrayOfLen(f.Data, 9)
		if err != nil {
			return Message{}, err
		}
		subID, err := asInt(a[0])
		if err != nil {
			return Message{}, err
		}
		tcID, err := asInt(a[1])
		if err != nil {
			return Message{}, err
		}
		compileOut, err := asString(a[2])
		if err != nil {
			return Message{}, err
		}
		runOut, err := asString(a[3])
		if err != nil {
			return Message{}, err
		}
		verdict, err := asString(a[4])
		if err != nil {
			return Message{}, err
		}
		extra, err := asString(a[5])
		if err != nil {
			return Message{}, err
		}
		timeUsed, err := asUInt(a[6])
		if err != nil {
			return Message{}, err
		}
		memUsed, err := asUInt(a[7])
		if err != nil {
			return Message{}, err
		}
		workerID, err := asString(a[8])
		if err != nil {
			return Message{}, err
		}
		return Message{
			Type:          f.Type,
			SubmissionID:  subID,
			TestCaseID:    tcID,
			CompileOutput: compileOut,
			RunOutput:     runOut,
			Verdict:       verdict,
			Extra:         extra,
			TimeUsedMs:    timeUsed,
			MemoryUsedKb:  memUsed,
			WorkerID:      workerID,
		}, nil

	case MsgShutdown:
		if f.Data.Tag != TagNone {
			return Message{}, ErrBadShape
		}
		return Message{Type: MsgShutdown}, nil

	case MsgReset:
		if f.Data.Tag != TagNone {
			return Message{}, ErrBadShape
		}
		return Message{Type: MsgReset}, nil

	default:
		return Message{}, ErrUnknownMsgType
	}
}

func arrayOfLen(v Value, n int) ([]Value, error) {
	if v.Tag != TagArray || len(v.Arr) != n {
		return nil, ErrBadShape
	}
	return v.Arr, nil
}

func asInt(v Value) (int64, error) {
	if v.Tag != TagInteger {
		return 0, ErrBadShape
	}
	return v.Int, nil
}

func asUInt(v Value) (uint64, error) {
	if v.Tag != TagUInt {
		return 0, ErrBadShape
	}
	return v.UInt, nil
}

func asString(v Value) (string, error) {
	if v.Tag != TagString {
		return "", ErrBadShape
	}
	return v.Str, nil
}

func asBool(v Value) (bool, error) {
	if v.Tag != TagBoolean {
		return false, ErrBadShape
	}
	return v.Bool, nil
}
