package ipc

import (
	"io"
	"sync"

	"github.com/covesa/vsm/internal/value"
)

// message is one (signal, raw value, error) result of a wrapped
// transport's Receive, forwarded by that transport's reader goroutine.
type message struct {
	signal string
	raw    string
	err    error
}

// Fanout combines several transports: Send broadcasts to every
// transport; Receive multiplexes reads across all of them fairly,
// grounded on the original's IPCList, which used select() over the
// transports' file descriptors to read from whichever was ready first.
// Go has no portable equivalent of select() over arbitrary readers, so
// each transport is read from its own goroutine, fanning in to one
// shared channel instead.
type Fanout struct {
	transports []Transport
	msgs       chan message
	closeOnce  sync.Once
	done       chan struct{}
	eofs       int // transports that have reported io.EOF; used only by Receive
}

// NewFanout starts one reader goroutine per transport.
func NewFanout(transports ...Transport) *Fanout {
	f := &Fanout{
		transports: transports,
		msgs:       make(chan message, 64),
		done:       make(chan struct{}),
	}
	for _, t := range transports {
		go f.readLoop(t)
	}
	return f
}

func (f *Fanout) readLoop(t Transport) {
	for {
		signal, raw, err := t.Receive()
		select {
		case f.msgs <- message{signal: signal, raw: raw, err: err}:
		case <-f.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Send writes to every transport, returning the first error
// encountered (after attempting all of them).
func (f *Fanout) Send(signal string, v value.Value) error {
	var firstErr error
	for _, t := range f.transports {
		if err := t.Send(signal, v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Receive returns the next message from whichever transport produced
// one first. It returns io.EOF once every transport has closed.
func (f *Fanout) Receive() (string, string, error) {
	for {
		msg, ok := <-f.msgs
		if !ok {
			return "", "", io.EOF
		}
		if msg.err == io.EOF {
			f.eofs++
			if f.eofs < len(f.transports) {
				continue
			}
		}
		return msg.signal, msg.raw, msg.err
	}
}

// Close stops every reader goroutine and closes every transport.
func (f *Fanout) Close() error {
	var firstErr error
	f.closeOnce.Do(func() { close(f.done) })
	for _, t := range f.transports {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
