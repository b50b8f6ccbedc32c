// Package dashboard implements the optional "--dashboard" live terminal
// UI (SPEC_FULL.md §11.4): a view of the current State Store contents
// alongside every condition's state-machine status. It has no effect on
// dispatch, monitor, or emit behavior; it only reads the State Store and
// the rule tree.
package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"

	"github.com/covesa/vsm/internal/ruletree"
	"github.com/covesa/vsm/internal/state"
)

// Screen is the subset of tcell.Screen the dashboard draws through,
// narrowed for testability.
type Screen interface {
	Init() error
	Fini()
	Clear()
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
	Show()
	PollEvent() tcell.Event
	EnableMouse()
}

// Dashboard renders the State Store and the rule tree's condition
// states, redrawing on every state change and on every key or resize
// event, matching powermetrics-tui's event-loop shape (a PollEvent
// goroutine feeding a channel, merged with the state-change channel).
// A monitor transition that changes no state does not trigger a redraw.
type Dashboard struct {
	screen Screen
	store  *state.Store
	tree   *ruletree.Tree
}

// New builds a Dashboard over an already-initialized screen.
func New(screen Screen, store *state.Store, tree *ruletree.Tree) *Dashboard {
	return &Dashboard{screen: screen, store: store, tree: tree}
}

// Run drives the event loop until ctx is cancelled or the user quits
// with 'q', Escape, or Ctrl-C. It owns no resources beyond the screen
// passed to New; the caller is responsible for screen.Fini().
func (d *Dashboard) Run(ctx context.Context) {
	d.screen.EnableMouse()
	d.screen.Clear()

	events := make(chan tcell.Event)
	go func() {
		for {
			ev := d.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	changes := d.store.Subscribe()
	defer d.store.Unsubscribe(changes)

	d.draw()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' || ev.Rune() == 'Q' {
					return
				}
			case *tcell.EventResize:
				d.screen.Clear()
			}
			d.draw()
		case <-changes:
			d.draw()
		}
	}
}

func (d *Dashboard) draw() {
	d.screen.Clear()
	row := 0
	row = drawText(d.screen, 0, row, "State", tcell.StyleDefault.Bold(true)) + 1

	for _, ev := range d.store.All() {
		line := fmt.Sprintf("%s = %s", ev.Signal, ev.Value.Display())
		row = drawText(d.screen, 0, row, line, tcell.StyleDefault)
	}
	row++

	row = drawText(d.screen, 0, row, "Conditions", tcell.StyleDefault.Bold(true)) + 1
	for _, n := range sortedConditions(d.tree) {
		line := fmt.Sprintf("[%s] %s", n.Condition.State, n.Condition.Source)
		row = drawText(d.screen, 0, row, line, styleFor(n.Condition.State))
	}

	d.screen.Show()
}

func sortedConditions(tree *ruletree.Tree) []*ruletree.Node {
	conditions := ruletree.AllConditions(tree.Root)
	sort.Slice(conditions, func(i, j int) bool {
		return conditions[i].Condition.Source < conditions[j].Condition.Source
	})
	return conditions
}

func styleFor(s ruletree.MonitorState) tcell.Style {
	switch s {
	case ruletree.Failed:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case ruletree.Completed:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case ruletree.Armed, ruletree.MetUnmonitored:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	default:
		return tcell.StyleDefault
	}
}

func drawText(screen Screen, x, y int, text string, style tcell.Style) int {
	for i, r := range text {
		screen.SetContent(x+i, y, r, nil, style)
	}
	return y + 1
}
