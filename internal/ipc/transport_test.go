package ipc

import (
	"bytes"
	"io"
	"testing"

	"github.com/covesa/vsm/internal/value"
)

func TestStdioTransportSendFormatsRepr(t *testing.T) {
	var out bytes.Buffer
	tr := NewStdioTransport(bytes.NewReader(nil), &out, nil)

	if err := tr.Send("car.speed", value.OfString("fast")); err != nil {
		t.Fatal(err)
	}
	want := "car.speed='fast'\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestStdioTransportReceiveRoundTrips(t *testing.T) {
	in := bytes.NewBufferString("car.speed=42\nother.sig='hi'\n")
	tr := NewStdioTransport(in, io.Discard, nil)

	signal, raw, err := tr.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if signal != "car.speed" || raw != "42" {
		t.Fatalf("got (%q, %q)", signal, raw)
	}

	signal, raw, err = tr.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if signal != "other.sig" || raw != "'hi'" {
		t.Fatalf("got (%q, %q)", signal, raw)
	}

	if _, _, err := tr.Receive(); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestStdioTransportReceiveRejectsMalformedLine(t *testing.T) {
	in := bytes.NewBufferString("not-a-message\n")
	tr := NewStdioTransport(in, io.Discard, nil)

	if _, _, err := tr.Receive(); err == nil {
		t.Fatal("expected an error for a line with no '='")
	}
}

func TestStdioTransportCloseInvokesCloser(t *testing.T) {
	called := false
	tr := NewStdioTransport(bytes.NewReader(nil), io.Discard, func() error {
		called = true
		return nil
	})
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("expected closer to be invoked")
	}
}

type fakeTransport struct {
	sent     []string
	lines    []string
	pos      int
	closed   bool
	closeErr error
}

func (f *fakeTransport) Send(signal string, v value.Value) error {
	f.sent = append(f.sent, signal+"="+v.Repr())
	return nil
}

func (f *fakeTransport) Receive() (string, string, error) {
	if f.pos >= len(f.lines) {
		return "", "", io.EOF
	}
	line := f.lines[f.pos]
	f.pos++
	signal, raw, _ := cutEquals(line)
	return signal, raw, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return f.closeErr
}

func cutEquals(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func TestFanoutBroadcastsSend(t *testing.T) {
	a := &fakeTransport{}
	b := &fakeTransport{}
	f := NewFanout(a, b)
	defer f.Close()

	if err := f.Send("x.y", value.OfInt(1)); err != nil {
		t.Fatal(err)
	}
	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Fatalf("expected send broadcast to both transports, got a=%v b=%v", a.sent, b.sent)
	}
}

func TestFanoutMultiplexesReceive(t *testing.T) {
	a := &fakeTransport{lines: []string{"a.sig=1"}}
	b := &fakeTransport{lines: []string{"b.sig=2"}}
	f := NewFanout(a, b)
	defer f.Close()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		signal, _, err := f.Receive()
		if err != nil {
			t.Fatal(err)
		}
		seen[signal] = true
	}
	if !seen["a.sig"] || !seen["b.sig"] {
		t.Fatalf("expected to receive from both transports, got %v", seen)
	}
}

func TestFanoutCloseStopsReaders(t *testing.T) {
	a := &fakeTransport{}
	f := NewFanout(a)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if !a.closed {
		t.Fatal("expected wrapped transport to be closed")
	}
}
