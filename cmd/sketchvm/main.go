// Command sketchvm loads an Arduino/C++ sketch, runs it through the
// Preprocessor/Lexer/Parser/Interpreter pipeline, and prints the
// resulting command stream. Grounded on google-kati/cmd/kati/main.go's
// flag-driven CLI that wraps the root package as a library and exposes
// its knobs as flag vars.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.bug.st/serial"

	"github.com/gosketch/sketchvm"
)

var (
	platformFlag     string
	maxLoopFlag      int
	timeoutFlag      int
	stepDelayFlag    int
	verboseFlag      bool
	debugFlag        bool
	dumpASTFlag      bool
	dumpCommandsFlag bool
	serialPortFlag   string
	serialBaudFlag   int
)

func parseFlags() {
	flag.StringVar(&platformFlag, "platform", "ARDUINO_UNO", "target Platform Profile (ARDUINO_UNO, ESP32_NANO)")
	flag.IntVar(&maxLoopFlag, "max_loop_iterations", 3, "cap on loop() iterations, 0 for unbounded")
	flag.IntVar(&timeoutFlag, "response_timeout_ms", 5000, "external-read response timeout in milliseconds")
	flag.IntVar(&stepDelayFlag, "step_delay_ms", 0, "artificial delay between ticks, in milliseconds")
	flag.BoolVar(&verboseFlag, "verbose", false, "enable detailed diagnostics")
	flag.BoolVar(&debugFlag, "debug", false, "enable AST/execution traces")
	flag.BoolVar(&dumpASTFlag, "dump_ast", false, "print the parsed AST instead of running it")
	flag.BoolVar(&dumpCommandsFlag, "dump_commands", true, "print each emitted command to stdout")
	flag.StringVar(&serialPortFlag, "serial", "", "if set, mirror Serial.* command output to this real serial port")
	flag.IntVar(&serialBaudFlag, "serial_baud", 9600, "baud rate for -serial")
}

func main() {
	parseFlags()
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: sketchvm [flags] sketch.ino")
		os.Exit(2)
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "sketchvm: %v\n", err)
		os.Exit(1)
	}

	cfg := sketchvm.Config{
		Platform:          platformFlag,
		MaxLoopIterations: maxLoopFlag,
		ResponseTimeoutMs: timeoutFlag,
		StepDelay:         stepDelayFlag,
		Verbose:           verboseFlag,
		Debug:             debugFlag,
	}

	profile, err := sketchvm.ProfileFor(cfg.Platform)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sketchvm: %v\n", err)
		os.Exit(1)
	}

	pp := sketchvm.NewPreprocessor(profile)
	ppRes := pp.Run(string(src))
	if ppRes.Diagnostics.HasErrors() {
		reportDiagnostics(ppRes.Diagnostics)
		os.Exit(1)
	}

	var diag sketchvm.Diagnostics
	p := sketchvm.NewParser([]byte(ppRes.Source), &diag)
	prog := p.Parse()
	if diag.HasErrors() {
		reportDiagnostics(diag)
		os.Exit(1)
	}

	if dumpASTFlag {
		fmt.Println(prog.Print())
		return
	}

	interp, err := sketchvm.NewInterpreter(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sketchvm: %v\n", err)
		os.Exit(1)
	}
	interp.Load(prog)
	interp.LoadActiveLibraries(ppRes.ActiveLibraries)

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if dumpCommandsFlag {
		interp.OnCommand(func(c sketchvm.Command) { printCommand(out, c) })
	}

	var serialPort serial.Port
	if serialPortFlag != "" {
		mode := &serial.Mode{BaudRate: serialBaudFlag, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
		serialPort, err = serial.Open(serialPortFlag, mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sketchvm: opening %s: %v\n", serialPortFlag, err)
			os.Exit(1)
		}
		defer serialPort.Close()
		interp.OnCommand(func(c sketchvm.Command) { mirrorToSerial(serialPort, c) })
	}

	interp.OnError(func(err error) { fmt.Fprintf(os.Stderr, "sketchvm: %v\n", err) })

	status := interp.Start()
	for status != sketchvm.StatusComplete && status != sketchvm.StatusError {
		status = interp.Tick()
	}
	if status == sketchvm.StatusError {
		os.Exit(1)
	}
}

func printCommand(out *bufio.Writer, c sketchvm.Command) {
	fmt.Fprintf(out, "%d %s", c.Timestamp, c.Type)
	if c.Pin != 0 {
		fmt.Fprintf(out, " pin=%d", c.Pin)
	}
	if c.Value != "" {
		fmt.Fprintf(out, " value=%s", c.Value)
	}
	if c.Text != "" {
		fmt.Fprintf(out, " text=%q", c.Text)
	}
	if c.Library != "" {
		fmt.Fprintf(out, " %s.%s", c.Library, c.Method)
	}
	if c.RequestID != "" {
		fmt.Fprintf(out, " req=%s", c.RequestID)
	}
	if c.Message != "" {
		fmt.Fprintf(out, " msg=%q", c.Message)
	}
	fmt.Fprintln(out)
}

// mirrorToSerial writes the text payload of Serial.print/println/write
// commands to a real hardware port, the way a developer bench-testing a
// sketch against actual wiring would want to observe it (spec's
// command stream carries a structured record, not raw bytes).
func mirrorToSerial(port serial.Port, c sketchvm.Command) {
	switch c.Type {
	case sketchvm.CmdSerialPrint, sketchvm.CmdSerialWrite:
		port.Write([]byte(c.Text))
	case sketchvm.CmdSerialPrintln:
		port.Write([]byte(c.Text + "\n"))
	}
}

func reportDiagnostics(diag sketchvm.Diagnostics) {
	for _, d := range diag {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(d.String()))
	}
}
