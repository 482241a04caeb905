package sketchvm

import "testing"

func TestProfileForKnownPlatforms(t *testing.T) {
	for _, id := range []string{"ARDUINO_UNO", "ESP32_NANO"} {
		p, err := ProfileFor(id)
		if err != nil {
			t.Fatalf("ProfileFor(%q): %v", id, err)
		}
		if p.ID != id {
			t.Errorf("ProfileFor(%q).ID = %q", id, p.ID)
		}
		if p.Macros["LED_BUILTIN"] == "" {
			t.Errorf("%s: LED_BUILTIN not predefined", id)
		}
		if !p.ActiveLibraries["Serial"] {
			t.Errorf("%s: Serial should be auto-activated", id)
		}
	}
}

func TestProfileForUnknownPlatform(t *testing.T) {
	_, err := ProfileFor("NONEXISTENT_BOARD")
	if err == nil {
		t.Fatal("ProfileFor(unknown): want error, got nil")
	}
	serr, ok := err.(*Error)
	if !ok {
		t.Fatalf("ProfileFor(unknown) error type = %T, want *Error", err)
	}
	if serr.Kind != KindUnknownPlatform {
		t.Errorf("ProfileFor(unknown) Kind = %v, want KindUnknownPlatform", serr.Kind)
	}
}

func TestProfileWordBitsDiffer(t *testing.T) {
	uno, _ := ProfileFor("ARDUINO_UNO")
	esp, _ := ProfileFor("ESP32_NANO")
	if uno.WordBits != 16 {
		t.Errorf("ARDUINO_UNO.WordBits = %d, want 16", uno.WordBits)
	}
	if esp.WordBits != 32 {
		t.Errorf("ESP32_NANO.WordBits = %d, want 32", esp.WordBits)
	}
}

func TestProfileTableNotSharedMutation(t *testing.T) {
	p, _ := ProfileFor("ARDUINO_UNO")
	orig := p.Pins["A0"]
	p2, _ := ProfileFor("ARDUINO_UNO")
	if p != p2 {
		t.Fatal("ProfileFor should return the same shared instance for repeated lookups")
	}
	if p2.Pins["A0"] != orig {
		t.Errorf("Pins[A0] = %d, want unchanged %d", p2.Pins["A0"], orig)
	}
}
