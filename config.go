package sketchvm

import "time"

// Config is the closed set of constructor options from spec §6. It is
// the library analogue of the flag variables google-kati/cmdline.go
// and main.go's parseFlags collect before constructing an Executor;
// here they're grouped into one struct passed to NewInterpreter instead
// of package-level flag vars, since multiple Interpreter instances must
// be able to coexist (spec §9 "Global mutable state").
type Config struct {
	// Platform selects the Platform Profile. Default ARDUINO_UNO.
	Platform string
	// MaxLoopIterations caps loop() iterations. Default 3.
	MaxLoopIterations int
	// ResponseTimeoutMs bounds how long an external read waits before
	// the deterministic fallback value is substituted. Default 5000.
	ResponseTimeoutMs int
	// StepDelay is an artificial delay between ticks, in milliseconds.
	StepDelay int
	// Verbose enables detailed diagnostics.
	Verbose bool
	// Debug enables AST/execution traces.
	Debug bool
}

// DefaultConfig returns the spec §6 default configuration.
func DefaultConfig() Config {
	return Config{
		Platform:          "ARDUINO_UNO",
		MaxLoopIterations: 3,
		ResponseTimeoutMs: 5000,
		StepDelay:         0,
		Verbose:           false,
		Debug:             false,
	}
}

func (c Config) responseTimeout() time.Duration {
	if c.ResponseTimeoutMs <= 0 {
		return 5000 * time.Millisecond
	}
	return time.Duration(c.ResponseTimeoutMs) * time.Millisecond
}

func (c Config) stepDelay() time.Duration {
	return time.Duration(c.StepDelay) * time.Millisecond
}
