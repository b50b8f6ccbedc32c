package ruleset

import (
	"reflect"
	"testing"
)

func TestUndotIdentifiers(t *testing.T) {
	rewritten, idents := undotIdentifiers("transmission.gear == 'reverse' and car.backup")
	want := "transmission_gear == 'reverse' and car_backup"
	if rewritten != want {
		t.Errorf("rewritten = %q, want %q", rewritten, want)
	}
	if !reflect.DeepEqual(idents, []string{"transmission.gear", "car.backup"}) {
		t.Errorf("idents = %v", idents)
	}
}

func TestUndotIdentifiersSkipsQuotedText(t *testing.T) {
	_, idents := undotIdentifiers("status == 'a.b.c'")
	if !reflect.DeepEqual(idents, []string{"status"}) {
		t.Errorf("expected only status as identifier, got %v", idents)
	}
}

func TestUndotIdentifiersIgnoresFloatLiterals(t *testing.T) {
	rewritten, idents := undotIdentifiers("speed_value > 50.90")
	if rewritten != "speed_value > 50.90" {
		t.Errorf("rewritten = %q", rewritten)
	}
	if !reflect.DeepEqual(idents, []string{"speed_value"}) {
		t.Errorf("idents = %v", idents)
	}
}

func TestUndotIdentifiersIgnoresReservedWords(t *testing.T) {
	_, idents := undotIdentifiers("a.b == 1 and not False")
	if !reflect.DeepEqual(idents, []string{"a.b"}) {
		t.Errorf("idents = %v", idents)
	}
}

func TestUndot(t *testing.T) {
	if got := Undot("a.b.c"); got != "a_b_c" {
		t.Errorf("Undot() = %q", got)
	}
}
