package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/covesa/vsm/internal/ruleset"
	"github.com/covesa/vsm/internal/state"
	"github.com/covesa/vsm/internal/value"
)

type fakeScreen struct {
	mu       sync.Mutex
	events   chan tcell.Event
	shows    int
	finished bool
}

func newFakeScreen() *fakeScreen {
	return &fakeScreen{events: make(chan tcell.Event, 8)}
}

func (f *fakeScreen) Init() error { return nil }
func (f *fakeScreen) Fini()       { f.finished = true }
func (f *fakeScreen) Clear()      {}
func (f *fakeScreen) SetContent(x, y int, mainc rune, combc []rune, style tcell.Style) {
}
func (f *fakeScreen) Show() {
	f.mu.Lock()
	f.shows++
	f.mu.Unlock()
}
func (f *fakeScreen) PollEvent() tcell.Event { return <-f.events }
func (f *fakeScreen) EnableMouse()           {}

func (f *fakeScreen) shown() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shows
}

func TestDashboardDrawsOnStateChangeAndQuitsOnKey(t *testing.T) {
	doc := `
- condition: "a.b == 1"
  emit:
    signal: out.sig
    value: 1
`
	signals := map[string]bool{"a.b": true, "out.sig": true}
	parsed, err := ruleset.Parse([]byte(doc), fakeSignalNames(signals), false)
	if err != nil {
		t.Fatal(err)
	}
	store := state.New(nil)

	screen := newFakeScreen()
	d := New(screen, store, parsed.Tree)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	store.Update("a.b", value.OfInt(1))

	time.Sleep(20 * time.Millisecond)
	if screen.shown() < 2 {
		t.Fatalf("expected at least 2 draws (initial + state update), got %d", screen.shown())
	}

	screen.events <- tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return after 'q' key event")
	}
	cancel()
}

type fakeSignalNames map[string]bool

func (f fakeSignalNames) Has(name string) bool { return f[name] }
