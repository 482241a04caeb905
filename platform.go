package sketchvm

// Profile is a named, immutable bundle of predefined macros, an
// auto-activated library set, and a pin map for one target board
// (spec §3 "Platform Profile", §4.1). Built exactly once by
// profileTable's init and never mutated afterward; callers that need a
// variant (e.g. a user #define overriding a builtin macro) copy the
// maps they need rather than writing through a Profile.
type Profile struct {
	ID string

	// Macros holds predefined macro name -> integer-ish value, exactly
	// the same shape as google-kati/bootstrap.go's builtin variable
	// seeding, but as a Go map literal instead of embedded make text.
	Macros map[string]string

	// ActiveLibraries is the set of libraries considered "already
	// included" for this board before the sketch's own #include
	// directives run.
	ActiveLibraries map[string]bool

	// Pins maps symbolic pin names (LED_BUILTIN, A0, ...) to numeric
	// pin numbers.
	Pins map[string]int

	ClockHz  int64
	WordBits int // used by sizeof on int/unsigned int
}

func clonedActiveLibraries(libs ...string) map[string]bool {
	m := make(map[string]bool, len(libs))
	for _, l := range libs {
		m[l] = true
	}
	return m
}

var profileTable = map[string]*Profile{
	"ARDUINO_UNO": {
		ID: "ARDUINO_UNO",
		Macros: map[string]string{
			"ARDUINO":             "10819",
			"ARDUINO_ARCH_AVR":    "1",
			"ARDUINO_AVR_UNO":     "1",
			"__AVR_ATmega328P__":  "1",
			"F_CPU":               "16000000L",
			"HIGH":                "1",
			"LOW":                 "0",
			"INPUT":               "0",
			"OUTPUT":              "1",
			"INPUT_PULLUP":        "2",
			"LED_BUILTIN":         "13",
		},
		ActiveLibraries: clonedActiveLibraries("Serial"),
		Pins: map[string]int{
			"LED_BUILTIN": 13,
			"A0":          14,
			"A1":          15,
			"A2":          16,
			"A3":          17,
			"A4":          18,
			"A5":          19,
		},
		ClockHz:  16000000,
		WordBits: 16,
	},
	"ESP32_NANO": {
		ID: "ESP32_NANO",
		Macros: map[string]string{
			"ARDUINO":          "10819",
			"ARDUINO_ARCH_ESP32": "1",
			"ESP32":            "1",
			"F_CPU":            "240000000L",
			"HIGH":             "1",
			"LOW":              "0",
			"INPUT":            "0",
			"OUTPUT":           "1",
			"INPUT_PULLUP":     "2",
			"LED_BUILTIN":      "2",
		},
		ActiveLibraries: clonedActiveLibraries("Serial", "WiFi"),
		Pins: map[string]int{
			"LED_BUILTIN": 2,
			"A0":          1,
			"A1":          2,
		},
		ClockHz:  240000000,
		WordBits: 32,
	},
}

// ProfileFor looks up a built-in Platform Profile by id. The returned
// Profile is shared and must not be mutated by callers; Preprocessor
// copies the maps it needs into its own working set instead.
func ProfileFor(id string) (*Profile, error) {
	p, ok := profileTable[id]
	if !ok {
		return nil, newError(KindUnknownPlatform, 0, "unknown platform %q", id)
	}
	return p, nil
}
