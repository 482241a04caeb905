package sketchvm

import (
	"testing"
	"time"
)

// runToCompletion drives interp from Start() through successive Tick()s,
// collecting every emitted Command, until the worker reports Complete
// (or Error, which the caller is expected to check for separately).
func runToCompletion(t *testing.T, interp *Interpreter, maxTicks int) []Command {
	t.Helper()
	var cmds []Command
	interp.OnCommand(func(c Command) { cmds = append(cmds, c) })
	status := interp.Start()
	for i := 0; status != StatusComplete && status != StatusError && i < maxTicks; i++ {
		status = interp.Tick()
	}
	if status != StatusComplete {
		t.Fatalf("interpreter did not reach Complete within %d ticks (last status %v)", maxTicks, status)
	}
	return cmds
}

func commandsOfType(cmds []Command, typ CommandType) []Command {
	var out []Command
	for _, c := range cmds {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func TestInterpreterBlinkSequence(t *testing.T) {
	prog, diag := parse(t, `
void setup() {
  pinMode(13, 1);
}
void loop() {
  digitalWrite(13, 1);
  delay(100);
}
`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	cfg := DefaultConfig()
	cfg.MaxLoopIterations = 1
	interp, err := NewInterpreter(cfg)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	interp.Load(prog)

	cmds := runToCompletion(t, interp, 10)

	if got := commandsOfType(cmds, CmdVersionInfo); len(got) != 1 {
		t.Fatalf("VERSION_INFO count = %d, want 1", len(got))
	}
	if got := commandsOfType(cmds, CmdPinMode); len(got) != 1 || got[0].Pin != 13 || got[0].Value != "1" {
		t.Fatalf("PIN_MODE = %+v, want one command with Pin=13 Value=1", got)
	}
	if got := commandsOfType(cmds, CmdDigitalWrite); len(got) != 1 || got[0].Pin != 13 || got[0].Value != "1" {
		t.Fatalf("DIGITAL_WRITE = %+v, want one command with Pin=13 Value=1", got)
	}
	if got := commandsOfType(cmds, CmdDelay); len(got) != 1 || got[0].Value != "100" {
		t.Fatalf("DELAY = %+v, want one command with Value=100", got)
	}
	if last := cmds[len(cmds)-1]; last.Type != CmdProgramEnd {
		t.Fatalf("last command = %v, want PROGRAM_END", last.Type)
	}
}

func TestInterpreterAnalogReadSerialRoundTrip(t *testing.T) {
	prog, diag := parse(t, `
void setup() {
  Serial.begin(9600);
}
void loop() {
  int sensorValue = analogRead(0);
  Serial.println(sensorValue);
}
`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	cfg := DefaultConfig()
	cfg.MaxLoopIterations = 1
	interp, err := NewInterpreter(cfg)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	interp.Load(prog)
	interp.LoadActiveLibraries(map[string]bool{"Serial": true})

	var cmds []Command
	interp.OnCommand(func(c Command) { cmds = append(cmds, c) })

	status := interp.Start()
	for status == StatusRunning {
		status = interp.Tick()
	}
	if status != StatusSuspended {
		t.Fatalf("status after entering loop() = %v, want Suspended at the analogRead request", status)
	}

	reqs := commandsOfType(cmds, CmdAnalogReadReq)
	if len(reqs) != 1 {
		t.Fatalf("ANALOG_READ_REQUEST count = %d, want 1", len(reqs))
	}
	reqID := reqs[0].RequestID
	if reqID == "" {
		t.Fatal("ANALOG_READ_REQUEST missing RequestID")
	}

	if ok := interp.ResumeWithValue(reqID, Int32Value(512)); !ok {
		t.Fatal("ResumeWithValue returned false for the outstanding request")
	}
	for status = StatusRunning; status != StatusComplete && status != StatusError; {
		status = interp.Tick()
	}

	println := commandsOfType(cmds, CmdSerialPrintln)
	if len(println) != 1 || println[0].Text != "512" {
		t.Fatalf("SERIAL_PRINTLN = %+v, want one command carrying the resumed value 512", println)
	}
}

func TestInterpreterShortCircuitSkipsRHS(t *testing.T) {
	prog, diag := parse(t, `
void setup() {
  if (0 && digitalWrite(13, 1)) {
  }
  if (1 || digitalWrite(13, 1)) {
  }
}
void loop() {
}
`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	cfg := DefaultConfig()
	cfg.MaxLoopIterations = 1
	interp, err := NewInterpreter(cfg)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	interp.Load(prog)

	cmds := runToCompletion(t, interp, 10)
	if got := commandsOfType(cmds, CmdDigitalWrite); len(got) != 0 {
		t.Fatalf("DIGITAL_WRITE emitted %d times, want 0: short-circuit operands must not execute their RHS", len(got))
	}
}

func TestInterpreterSwitchContinuePropagatesToEnclosingLoop(t *testing.T) {
	prog, diag := parse(t, `
void setup() {
}
void loop() {
  for (int i = 0; i < 3; i++) {
    switch (i) {
      case 0:
        continue;
        digitalWrite(1, 1);
      case 1:
        digitalWrite(2, 1);
        break;
      default:
        digitalWrite(3, 1);
        break;
    }
  }
}
`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	cfg := DefaultConfig()
	cfg.MaxLoopIterations = 1
	interp, err := NewInterpreter(cfg)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	interp.Load(prog)

	cmds := runToCompletion(t, interp, 20)
	writes := commandsOfType(cmds, CmdDigitalWrite)
	var pins []int
	for _, c := range writes {
		pins = append(pins, c.Pin)
	}
	if len(pins) != 2 || pins[0] != 2 || pins[1] != 3 {
		t.Fatalf("DIGITAL_WRITE pins = %v, want [2 3]: a `continue` inside a case must skip straight to the "+
			"enclosing loop, neither falling through to the next case's statements nor running the statement "+
			"right after it", pins)
	}
}

func TestInterpreterExternalReadTimeoutUsesFallback(t *testing.T) {
	prog, diag := parse(t, `
void setup() {
}
void loop() {
  int v = digitalRead(13);
  analogWrite(5, v);
}
`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	cfg := DefaultConfig()
	cfg.MaxLoopIterations = 1
	cfg.ResponseTimeoutMs = 1
	interp, err := NewInterpreter(cfg)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	interp.Load(prog)

	var cmds []Command
	interp.OnCommand(func(c Command) { cmds = append(cmds, c) })

	status := interp.Start()
	for status == StatusRunning {
		status = interp.Tick()
	}
	if status != StatusSuspended {
		t.Fatalf("status = %v, want Suspended at digitalRead", status)
	}

	// Do not resume: let the configured 1ms timeout elapse, then the
	// next Tick should observe the deadline and substitute the
	// deterministic fallback (false / 0) rather than block forever.
	time.Sleep(5 * time.Millisecond)
	for status != StatusComplete && status != StatusError {
		status = interp.Tick()
	}
	if status != StatusComplete {
		t.Fatalf("status after timeout = %v, want Complete", status)
	}
	writes := commandsOfType(cmds, CmdAnalogWrite)
	if len(writes) != 1 || writes[0].Value != "0" {
		t.Fatalf("ANALOG_WRITE after timeout = %+v, want one write of the fallback value 0", writes)
	}
}
