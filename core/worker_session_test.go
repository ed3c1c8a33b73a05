package core

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestWorkerSessionHandshakeAndDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverConn, clientConn := net.Pipe()
	events := make(chan ChannelEvent, 8)

	go Serve(ctx, serverConn, events)

	// Client sends Register(is_precise_server=true).
	writeMsg(t, clientConn, Message{Type: MsgRegister, IsPreciseServer: true})

	ev := recvEvent(t, events)
	if !ev.NewChannel || !ev.IsPrecise {
		t.Fatalf("expected NewChannel/IsPrecise event, got %+v", ev)
	}
	ev.SetChanID <- 1

	sub := Submission{ID: 1, Lang: "cpp", Code: "int main(){}"}
	tc := TestCase{ID: 2, Input: "1\n", Output: "1\n", TimeLimitMs: 1000, MemoryLimitKb: 65536}
	select {
	case ev.Inbound <- WorkStart{Submission: sub, Testcase: tc}:
	case <-time.After(time.Second):
		t.Fatal("timed out sending WorkStart")
	}

	got := readMsg(t, clientConn)
	if got.Type != MsgSetTask || got.SubmissionID != 1 || got.TestCaseID != 2 || got.Lang != "cpp" {
		t.Fatalf("unexpected SetTask on the wire: %+v", got)
	}

	writeMsg(t, clientConn, Message{Type: MsgSetTaskAck, SubmissionID: 1, TestCaseID: 2})

	writeMsg(t, clientConn, Message{
		Type: MsgResultSuccess, SubmissionID: 1, TestCaseID: 2,
		Verdict: "Accepted", TimeUsedMs: 5, MemoryUsedKb: 1024, WorkerID: "host:1:abc",
	})

	doneEv := recvEvent(t, events)
	if !doneEv.WorkDone || !doneEv.Accepted || doneEv.Result.Verdict != Accepted {
		t.Fatalf("expected a WorkDone event with Accepted verdict, got %+v", doneEv)
	}

	clientConn.Close()
}

func TestWorkerSessionRefusesSecondDispatchWhileBusy(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	events := make(chan ChannelEvent, 8)

	go Serve(ctx, serverConn, events)

	writeMsg(t, clientConn, Message{Type: MsgRegister, IsPreciseServer: false})
	ev := recvEvent(t, events)
	ev.SetChanID <- 1

	sub := Submission{ID: 1}
	tc1 := TestCase{ID: 1}
	tc2 := TestCase{ID: 2}

	ev.Inbound <- WorkStart{Submission: sub, Testcase: tc1}
	readMsg(t, clientConn) // drain the first SetTask

	ev.Inbound <- WorkStart{Submission: sub, Testcase: tc2}

	refuseEv := recvEvent(t, events)
	if !refuseEv.Refused || refuseEv.Testcase != 2 {
		t.Fatalf("expected a Refuse event for the second dispatch, got %+v", refuseEv)
	}
}

func writeMsg(t *testing.T, conn net.Conn, m Message) {
	t.Helper()
	buf := EncodeFrame(ToFrame(m), nil)
	if _, err := conn.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readMsg(t *testing.T, conn net.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		frame, n, err := DecodeFrame(buf)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if frame != nil {
			_ = n
			msg, err := FromFrame(*frame)
			if err != nil {
				t.Fatalf("from frame: %v", err)
			}
			return msg
		}
		read, err := conn.Read(tmp)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		buf = append(buf, tmp[:read]...)
	}
}

func recvEvent(t *testing.T, events chan ChannelEvent) ChannelEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a channel event")
		return ChannelEvent{}
	}
}
