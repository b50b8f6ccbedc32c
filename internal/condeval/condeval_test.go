package condeval

import (
	"testing"

	"github.com/covesa/vsm/internal/value"
)

func vars(m map[string]value.Value) map[string]value.Value { return m }

func TestEqualityAndLiteral(t *testing.T) {
	p, err := Parse("transmission_gear == 'reverse'")
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Eval(vars(map[string]value.Value{"transmission_gear": value.OfString("reverse")}))
	if err != nil {
		t.Fatal(err)
	}
	if !v.BoolVal() {
		t.Errorf("expected true, got %v", v)
	}
}

func TestXORAlreadyRewritten(t *testing.T) {
	// The ruleset parser rewrites A ^^ B to (A) != (B) before calling Parse.
	p, err := Parse("(phone_call == 'active') != (speed_value > 50.90)")
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Eval(vars(map[string]value.Value{
		"phone_call":  value.OfString("active"),
		"speed_value": value.OfFloat(5.0),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !v.BoolVal() {
		t.Errorf("expected true, got %v", v)
	}
}

func TestOperatorTranslation(t *testing.T) {
	p, err := Parse("a_b == 1 && !(c_d == 2)")
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Eval(vars(map[string]value.Value{
		"a_b": value.OfInt(1),
		"c_d": value.OfInt(3),
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !v.BoolVal() {
		t.Errorf("expected true, got %v", v)
	}
}

func TestUndefinedIdentifier(t *testing.T) {
	p, err := Parse("never_seen == 1")
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Eval(vars(map[string]value.Value{}))
	if _, ok := err.(*UndefinedIdentError); !ok {
		t.Fatalf("expected UndefinedIdentError, got %v", err)
	}
}

func TestArithmeticPromotion(t *testing.T) {
	p, err := Parse("x + 1 > 2.5")
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Eval(vars(map[string]value.Value{"x": value.OfInt(2)}))
	if err != nil {
		t.Fatal(err)
	}
	if !v.BoolVal() {
		t.Errorf("expected true, got %v", v)
	}
}

func TestMismatchedKindComparisonIsFalse(t *testing.T) {
	p, err := Parse("x > 1")
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Eval(vars(map[string]value.Value{"x": value.OfString("hi")}))
	if err != nil {
		t.Fatal(err)
	}
	if v.BoolVal() {
		t.Errorf("expected false for mismatched-kind comparison")
	}
}

func TestIdentCollection(t *testing.T) {
	p, err := Parse("a_b == 1 and (c_d != 2 or e_f < 3)")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"a_b": true, "c_d": true, "e_f": true}
	if len(p.Idents) != len(want) {
		t.Fatalf("got idents %v", p.Idents)
	}
	for _, id := range p.Idents {
		if !want[id] {
			t.Errorf("unexpected ident %q", id)
		}
	}
}
