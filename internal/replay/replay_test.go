package replay

import (
	"testing"

	"github.com/covesa/vsm/internal/value"
)

func TestParseReadsIncomingAndOutgoing(t *testing.T) {
	log := "> 100,car.speed,5,42\n< 250,car.backup,,True\nnot a log line\n"
	var errs []string
	signals := Parse([]byte(log), func(line string, err error) {
		errs = append(errs, line)
	})

	if len(errs) != 0 {
		t.Fatalf("expected no parse errors, got %v", errs)
	}
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d: %v", len(signals), signals)
	}

	if signals[0].Direction != Incoming || signals[0].Name != "car.speed" || signals[0].TimeMS != 100 {
		t.Errorf("unexpected signal 0: %+v", signals[0])
	}
	if signals[0].Value.Kind() != value.Int || signals[0].Value.IntVal() != 42 {
		t.Errorf("unexpected value for signal 0: %+v", signals[0].Value)
	}

	if signals[1].Direction != Outgoing || signals[1].Name != "car.backup" || signals[1].TimeMS != 250 {
		t.Errorf("unexpected signal 1: %+v", signals[1])
	}
	if signals[1].Value.Kind() != value.Bool || !signals[1].Value.BoolVal() {
		t.Errorf("unexpected value for signal 1: %+v", signals[1].Value)
	}
}

func TestParseReportsMalformedLine(t *testing.T) {
	log := "> 100,car.speed\n"
	var errs []string
	signals := Parse([]byte(log), func(line string, err error) {
		errs = append(errs, line)
	})
	if len(signals) != 0 {
		t.Fatalf("expected no signals from a malformed line, got %v", signals)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 reported error, got %d", len(errs))
	}
}

func TestValidateRate(t *testing.T) {
	if err := ValidateRate(0); err == nil {
		t.Error("expected rate 0 to be rejected")
	}
	if err := ValidateRate(20000); err == nil {
		t.Error("expected rate above 10000 to be rejected")
	}
	if err := ValidateRate(100); err != nil {
		t.Errorf("expected rate 100 to be valid, got %v", err)
	}
}

type fakeReplayEngine struct {
	recorded []struct {
		signal string
		v      value.Value
	}
	emitted []struct {
		signal string
		v      value.Value
	}
	scheduled []struct {
		delayMS int64
		f       func()
	}
}

func (f *fakeReplayEngine) RecordIncoming(signal string, v value.Value) {
	f.recorded = append(f.recorded, struct {
		signal string
		v      value.Value
	}{signal, v})
}

func (f *fakeReplayEngine) EmitDirect(signal string, v value.Value) {
	f.emitted = append(f.emitted, struct {
		signal string
		v      value.Value
	}{signal, v})
}

func (f *fakeReplayEngine) Schedule(delayMS int64, fn func()) {
	f.scheduled = append(f.scheduled, struct {
		delayMS int64
		f       func()
	}{delayMS, fn})
}

func TestRunnerSchedulesAtScaledRemainingDelay(t *testing.T) {
	eng := &fakeReplayEngine{}
	runner := NewRunner(eng, 200, func() int64 { return 0 })

	signals := []Signal{
		{Direction: Incoming, TimeMS: 1000, Name: "a.b", Value: value.OfInt(1)},
		{Direction: Outgoing, TimeMS: 2000, Name: "c.d", Value: value.OfInt(2)},
	}
	runner.Run(signals)

	if len(eng.scheduled) != 2 {
		t.Fatalf("expected 2 scheduled calls, got %d", len(eng.scheduled))
	}
	// rate 200% halves the delay: 1000ms -> 500ms.
	if eng.scheduled[0].delayMS != 500 {
		t.Errorf("expected scaled delay 500, got %d", eng.scheduled[0].delayMS)
	}

	eng.scheduled[0].f()
	if len(eng.recorded) != 1 || eng.recorded[0].signal != "a.b" {
		t.Errorf("expected incoming signal recorded, got %v", eng.recorded)
	}

	eng.scheduled[1].f()
	if len(eng.emitted) != 1 || eng.emitted[0].signal != "c.d" {
		t.Errorf("expected outgoing signal emitted, got %v", eng.emitted)
	}
}

func TestRunnerClampsNegativeRemainingDelayToZero(t *testing.T) {
	eng := &fakeReplayEngine{}
	// now() already past the scaled delay: remaining must clamp to 0.
	runner := NewRunner(eng, 100, func() int64 { return 5000 })

	runner.Run([]Signal{{Direction: Incoming, TimeMS: 100, Name: "a.b", Value: value.OfInt(1)}})

	if eng.scheduled[0].delayMS != 0 {
		t.Errorf("expected delay clamped to 0, got %d", eng.scheduled[0].delayMS)
	}
}
