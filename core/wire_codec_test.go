package core

import (
	"encoding/binary"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []Message{
		{Type: MsgRegister, IsPreciseServer: true},
		{Type: MsgRegister, IsPreciseServer: false},
		{
			Type: MsgSetTask, SubmissionID: 42, TestCaseID: 7,
			Lang: "cpp", Code: "int main(){}", Input: "1 2\n", ExpectedOutput: "3\n",
			TimeLimitMs: 2000, MemoryLimitKb: 262144, DecimalMode: true,
		},
		{Type: MsgSetTaskAck, SubmissionID: 42, TestCaseID: 7},
		{
			Type: MsgResultSuccess, SubmissionID: 42, TestCaseID: 7,
			CompileOutput: "", RunOutput: "3\n", Verdict: "Accepted", Extra: "",
			TimeUsedMs: 12, MemoryUsedKb: 1024, WorkerID: "host:1:abcdef",
		},
		{
			Type: MsgResultFailed, SubmissionID: 42, TestCaseID: 7,
			CompileOutput: "error: x", RunOutput: "", Verdict: "CompileFailed", Extra: "detail",
			TimeUsedMs: 0, MemoryUsedKb: 0, WorkerID: "host:1:abcdef",
		},
		{Type: MsgShutdown},
		{Type: MsgReset},
	}

	for _, m := range cases {
		t.Run(m.Verdict+string(rune(m.Type)), func(t *testing.T) {
			frame := ToFrame(m)
			buf := EncodeFrame(frame, nil)

			decoded, n, err := DecodeFrame(buf)
			if err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if decoded == nil {
				t.Fatalf("expected a decoded frame, got nil (need more bytes?)")
			}
			if n != len(buf) {
				t.Fatalf("consumed %d bytes, want %d", n, len(buf))
			}

			got, err := FromFrame(*decoded)
			if err != nil {
				t.Fatalf("FromFrame error: %v", err)
			}
			if got != m {
				t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, m)
			}
		})
	}
}

func TestDecodeFrameNeedsMoreBytes(t *testing.T) {
	full := EncodeFrame(ToFrame(Message{Type: MsgRegister, IsPreciseServer: true}), nil)
	for _, partial := range [][]byte{nil, full[:4], full[:len(full)-1]} {
		decoded, n, err := DecodeFrame(partial)
		if err != nil {
			t.Fatalf("unexpected error on partial buffer: %v", err)
		}
		if decoded != nil || n != 0 {
			t.Fatalf("expected (nil, 0) on partial buffer of len %d, got (%v, %d)", len(partial), decoded, n)
		}
	}
}

func TestDecodeFrameSkipsMalformedFrame(t *testing.T) {
	// A frame declaring an array of 9 elements but whose bytes only
	// contain one: guard runs out partway through decoding. The decoder
	// must skip exactly frame_len bytes and return no error, so a later,
	// well-formed frame appended after it can still be decoded.
	bad := EncodeFrame(Frame{Type: MsgSetTask, Data: VArray(VInt(1))}, nil)
	// The array's element count sits right after the frame header and
	// the array tag (bytes 16:20); bump it from the real 1 to 9 without
	// adding the other 8 elements' bytes.
	binary.BigEndian.PutUint32(bad[16:20], 9)
	good := EncodeFrame(ToFrame(Message{Type: MsgRegister, IsPreciseServer: true}), nil)

	buf := append(append([]byte{}, bad...), good...)

	decoded, n, err := DecodeFrame(buf)
	if err != nil {
		t.Fatalf("malformed frame must not be a fatal error: %v", err)
	}
	if decoded != nil {
		t.Fatalf("malformed frame must not decode to a value")
	}
	if n != len(bad) {
		t.Fatalf("expected to skip %d bytes, skipped %d", len(bad), n)
	}

	rest := buf[n:]
	decoded2, n2, err := DecodeFrame(rest)
	if err != nil || decoded2 == nil {
		t.Fatalf("frame following a malformed one must still decode: decoded=%v err=%v", decoded2, err)
	}
	if n2 != len(good) {
		t.Fatalf("consumed %d bytes of trailing frame, want %d", n2, len(good))
	}
}

func TestDecodeFrameUnknownTypeIsFatal(t *testing.T) {
	good := EncodeFrame(ToFrame(Message{Type: MsgRegister, IsPreciseServer: true}), nil)
	// Corrupt the type tag (bytes 8..12) to an out-of-range value.
	buf := append([]byte{}, good...)
	buf[11] = 99

	_, _, err := DecodeFrame(buf)
	if err == nil {
		t.Fatalf("expected a fatal error for an unknown message type")
	}
}

func TestDecodeFrameUnknownValueTagIsFatal(t *testing.T) {
	good := EncodeFrame(ToFrame(Message{Type: MsgRegister, IsPreciseServer: true}), nil)
	buf := append([]byte{}, good...)
	// The value tag lives right after the 8-byte length and 4-byte type.
	buf[15] = 99

	_, _, err := DecodeFrame(buf)
	if err == nil {
		t.Fatalf("expected a fatal error for an unknown value tag")
	}
}
