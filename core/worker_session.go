package core

import (
	"context"
	"log"
	"net"
	"time"
)

// workDeadline is how long a dispatched task may run before the session
// gives up on the worker and terminates the connection.
const workDeadline = 180 * time.Second

// sessionState is the per-connection lifecycle (component B).
type sessionState int

const (
	AwaitingHandshake sessionState = iota
	SessionIdle
	SessionWorking
	SessionTerminated
)

// ChannelEvent is what a worker session reports to the scheduler's single
// inbound channel.
type ChannelEvent struct {
	ChannelID  int64
	NewChannel bool // true only for the very first event from this session
	IsPrecise  bool
	SetChanID  chan<- int64     // scheduler replies with the assigned id here
	Inbound    chan<- WorkStart // registry stores this as the worker's dispatch channel

	WorkDone bool
	Result   TestCaseJudgeResult
	Accepted bool // true for ResultSuccess, false for ResultFailed

	Refused bool

	Shutdown   bool
	Submission int64
	Testcase   int64
	HasWork    bool
}

// WorkerSession owns one TCP connection end to end: handshake, dispatch,
// result intake, and the heartbeat timeout. It runs entirely in its own
// goroutine; the only state shared with the rest of the process is the two
// channels below.
type WorkerSession struct {
	conn    net.Conn
	events  chan<- ChannelEvent
	inbound chan WorkStart

	channelID  int64
	current    *WorkStart
	lastSentAt time.Time
}

// Serve runs a session to completion. It blocks until the connection
// closes, the peer misbehaves, or the heartbeat deadline trips.
func Serve(ctx context.Context, conn net.Conn, events chan<- ChannelEvent) {
	s := &WorkerSession{
		conn:    conn,
		events:  events,
		inbound: make(chan WorkStart, 256),
	}
	defer conn.Close()

	frames := make(chan Message, 16)
	readErr := make(chan error, 1)
	go s.readLoop(frames, readErr)

	first, ok := <-frames
	if !ok || first.Type != MsgRegister {
		return
	}

	setChanID := make(chan int64, 1)
	events <- ChannelEvent{NewChannel: true, IsPrecise: first.IsPreciseServer, SetChanID: setChanID, Inbound: s.inbound}
	select {
	case s.channelID = <-setChanID:
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	state := SessionIdle
	for state != SessionTerminated {
		select {
		case <-ctx.Done():
			s.emitShutdown(events)
			return

		case m, ok := <-frames:
			if !ok {
				s.emitShutdown(events)
				return
			}
			switch m.Type {
			case MsgSetTaskAck:
				s.lastSentAt = time.Now()
			case MsgResultSuccess, MsgResultFailed:
				accepted := m.Type == MsgResultSuccess
				result := resultFromMessage(m, accepted)
				events <- ChannelEvent{
					ChannelID: s.channelID, WorkDone: true, Result: result,
					Accepted: accepted,
					Submission: m.SubmissionID, Testcase: m.TestCaseID,
				}
				s.current = nil
				state = SessionIdle
			case MsgShutdown, MsgReset:
				s.emitShutdown(events)
				return
			}

		case ws := <-s.inbound:
			if s.current != nil {
				events <- ChannelEvent{ChannelID: s.channelID, Refused: true, Submission: ws.Submission.ID, Testcase: ws.Testcase.ID}
				continue
			}
			s.current = &ws
			state = SessionWorking
			s.lastSentAt = time.Now()
			if err := s.sendSetTask(ws); err != nil {
				log.Printf("worker session %d: write SetTask: %v", s.channelID, err)
				s.emitShutdown(events)
				return
			}

		case <-ticker.C:
			if state == SessionWorking && time.Since(s.lastSentAt) > workDeadline {
				log.Printf("worker session %d: heartbeat timeout, terminating", s.channelID)
				s.emitShutdown(events)
				return
			}
		}
	}
}

// Inbound exposes the channel the scheduler uses to dispatch work to this
// session. It is only meaningful after the session has announced itself
// via a NewChannel event, at which point the scheduler stores it on the
// WorkerChannel record.
func (s *WorkerSession) Inbound() chan<- WorkStart { return s.inbound }

func (s *WorkerSession) emitShutdown(events chan<- ChannelEvent) {
	ev := ChannelEvent{ChannelID: s.channelID, Shutdown: true}
	if s.current != nil {
		ev.HasWork = true
		ev.Submission = s.current.Submission.ID
		ev.Testcase = s.current.Testcase.ID
	}
	events <- ev
}

func (s *WorkerSession) sendSetTask(ws WorkStart) error {
	m := Message{
		Type:           MsgSetTask,
		SubmissionID:   ws.Submission.ID,
		TestCaseID:     ws.Testcase.ID,
		Lang:           ws.Submission.Lang,
		Code:           ws.Submission.Code,
		Input:          ws.Testcase.Input,
		ExpectedOutput: ws.Testcase.Output,
		TimeLimitMs:    ws.Testcase.TimeLimitMs,
		MemoryLimitKb:  ws.Testcase.MemoryLimitKb,
		DecimalMode:    ws.Testcase.DecimalMode,
	}
	buf := EncodeFrame(ToFrame(m), nil)
	_, err := s.conn.Write(buf)
	return err
}

// readLoop decodes frames off the connection and feeds them to frames;
// it is the only goroutine that ever reads from conn.
func (s *WorkerSession) readLoop(frames chan<- Message, errc chan<- error) {
	defer close(frames)
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := s.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				frame, consumed, decErr := DecodeFrame(buf)
				if decErr != nil {
					errc <- decErr
					return
				}
				if consumed == 0 {
					break
				}
				buf = buf[consumed:]
				if frame != nil {
					msg, shapeErr := FromFrame(*frame)
					if shapeErr != nil {
						continue
					}
					frames <- msg
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func resultFromMessage(m Message, accepted bool) TestCaseJudgeResult {
	verdict := Accepted
	if !accepted {
		verdict = verdictFromString(m.Verdict)
	}
	return TestCaseJudgeResult{
		TestCaseID:    m.TestCaseID,
		Verdict:       verdict,
		CompileOutput: m.CompileOutput,
		RunOutput:     m.RunOutput,
		Extra:         m.Extra,
		TimeUsedMs:    m.TimeUsedMs,
		MemoryUsedKb:  m.MemoryUsedKb,
		WorkerID:      m.WorkerID,
	}
}

func verdictFromString(s string) TestCaseJudgeResultInner {
	switch s {
	case "Accepted":
		return Accepted
	case "WrongAnswer":
		return WrongAnswer
	case "RuntimeError":
		return RuntimeError
	case "MemoryLimit":
		return MemoryLimitExceeded
	case "TimeLimit":
		return TimeLimitExceeded
	case "CompileFailed":
		return CompileFailed
	default:
		return WrongAnswer
	}
}
