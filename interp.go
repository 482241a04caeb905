package sketchvm

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
)

// TickStatus is tick()'s (and start()/step()/resume_with_*'s) return
// status (spec §6: "tick() — advance; returns {running|suspended|
// complete|error}").
type TickStatus int

const (
	StatusRunning TickStatus = iota
	StatusSuspended
	StatusComplete
	StatusError
)

func (s TickStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

type ieventKind int

const (
	ieCmd ieventKind = iota
	ieYield
	ieSuspend
	ieComplete
)

type ievent struct {
	kind  ieventKind
	cmd   Command
	req   *PendingRequest
	fatal bool
}

type resumeMsg struct {
	val          Value
	failed       bool
	errMsg       string
	restoreState RunState
}

// ctrlSignal is the statement-execution control-flow signal used to
// implement break/continue/return without panics, the way a
// tree-walking interpreter's visitor needs some out-of-band way to
// unwind past enclosing loops/blocks.
type ctrlSignal int

const (
	ctrlNone ctrlSignal = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

type execResult struct {
	signal ctrlSignal
	value  Value
}

// Interpreter walks a Program AST and emits a Command stream (spec
// §4.5, §5, §6). Grounded on google-kati/exec.go's Executor (drives
// evaluation, dispatches into the job/worker system) and
// google-kati/worker.go's single-job-at-a-time bookkeeping, adapted
// from a parallel build executor into a single-threaded cooperative
// interpreter with exactly one outstanding external-read request.
//
// Internally, the AST walk runs on a dedicated goroutine so that a
// blocking external-read call site can suspend mid-expression using
// Go's own goroutine stack as its continuation; every public method
// below only ever reads results off a channel and invokes the Sink
// from the CALLER's goroutine, so the Sink itself is never invoked
// from a background thread, per spec §5's "Shared-resource policy".
type Interpreter struct {
	cfg     Config
	profile *Profile
	program *Node
	scope   *ScopeStack
	stats   *Stats
	pending PendingSlot
	state   RunState

	funcs      map[string]*Node
	globalVars []*Node
	libObjects map[string]*LibraryObject
	activeLibs map[string]bool

	sink         multiSink
	onErrorCbs   []func(error)
	diag         Diagnostics
	tsCounter    int64
	randState    uint32
	loopIterDone int

	events    chan ievent
	proceedCh chan struct{}
	resumeCh  chan resumeMsg
	started   bool
	finished  bool
	stepOnce  bool
}

// NewInterpreter constructs an Interpreter for the given configuration
// (spec §6 "Constructor configuration").
func NewInterpreter(cfg Config) (*Interpreter, error) {
	profile, err := ProfileFor(cfg.Platform)
	if err != nil {
		return nil, err
	}
	return &Interpreter{
		cfg:        cfg,
		profile:    profile,
		scope:      newScopeStack(),
		stats:      DefaultStats(),
		funcs:      make(map[string]*Node),
		libObjects: make(map[string]*LibraryObject),
		randState:  0x2545f491,
	}, nil
}

// Load attaches the Program AST to execute; must be called before
// Start.
func (interp *Interpreter) Load(program *Node) { interp.program = program }

// LoadActiveLibraries records the library set a Preprocessor.Run
// activated via #include (spec §4.2), in addition to whatever the
// Platform Profile activates by default. Call before Start.
func (interp *Interpreter) LoadActiveLibraries(libs map[string]bool) {
	if interp.activeLibs == nil {
		interp.activeLibs = make(map[string]bool)
	}
	for name, on := range libs {
		if on {
			interp.activeLibs[name] = true
		}
	}
}

func (interp *Interpreter) libraryIsActive(name string) bool {
	if interp.profile.ActiveLibraries[name] {
		return true
	}
	return interp.activeLibs[name]
}

// OnCommand registers a command-stream observer (spec §6
// "onCommand(fn)").
func (interp *Interpreter) OnCommand(fn func(Command)) { interp.sink.add(SinkFunc(fn)) }

// OnError registers an error observer (spec §6 "onError(fn)"); invoked
// synchronously whenever an ERROR command drains, on the caller's own
// goroutine.
func (interp *Interpreter) OnError(fn func(error)) { interp.onErrorCbs = append(interp.onErrorCbs, fn) }

func (interp *Interpreter) nextTimestamp() int64 {
	interp.tsCounter++
	return interp.tsCounter
}

func (interp *Interpreter) terminated() bool { return interp.state == RunStateTerminated }

// vlog emits a detailed-diagnostics trace line (spec §6 "verbose —
// Enable detailed diagnostics") through glog, the way google-kati's
// exec.go/worker.go gate their own glog.V(1) call sites — the gate
// here is this instance's Config.Verbose rather than glog's
// process-global -v flag, since spec §9 requires multiple Interpreter
// instances to coexist with independent settings in one process.
func (interp *Interpreter) vlog(format string, args ...interface{}) {
	if interp.cfg.Verbose {
		glog.Infof(format, args...)
	}
}

// dlog emits an AST/execution trace line (spec §6 "debug — Enable
// AST/execution traces"), gated on Config.Debug the same way vlog is
// gated on Config.Verbose.
func (interp *Interpreter) dlog(format string, args ...interface{}) {
	if interp.cfg.Debug {
		glog.Infof(format, args...)
	}
}

// emit sends a Command from the worker goroutine to the caller's
// drain loop, which performs the actual Sink.Emit call.
func (interp *Interpreter) emit(c Command) {
	c.Timestamp = interp.nextTimestamp()
	interp.stats.RecordCommand()
	interp.events <- ievent{kind: ieCmd, cmd: c}
}

// checkpoint is a voluntary phase-boundary yield: the worker pauses
// here until the next tick()/step() call lets it proceed.
func (interp *Interpreter) checkpoint() {
	interp.events <- ievent{kind: ieYield}
	<-interp.proceedCh
}

func (interp *Interpreter) maybeStepCheckpoint() {
	if interp.stepOnce {
		interp.stepOnce = false
		interp.checkpoint()
	}
}

// reportError records a diagnostic and emits an ERROR command (spec
// §4.5.7). Fatal kinds panic, unwinding to run()'s recover, which
// terminates the program with a PROGRAM_END payload.
func (interp *Interpreter) reportError(e *Error) {
	interp.diag.add(SeverityError, e.Kind, e.Line, "%s", e.Msg)
	interp.emit(Command{Type: CmdError, Message: e.Error(), Line: e.Line})
	if e.Fatal() {
		panic(e)
	}
}

func (interp *Interpreter) runtimeZero(kind Kind, line int, format string, args ...interface{}) Value {
	interp.reportError(newError(kind, line, format, args...))
	return Value{}
}

// drain reads worker events until a terminal one, invoking the Sink
// (and, for ERROR commands, onError callbacks) synchronously on the
// calling goroutine.
func (interp *Interpreter) drain() TickStatus {
	for ev := range interp.events {
		switch ev.kind {
		case ieCmd:
			interp.sink.Emit(ev.cmd)
			if ev.cmd.Type == CmdError {
				for _, fn := range interp.onErrorCbs {
					fn(fmt.Errorf("%s", ev.cmd.Message))
				}
			}
		case ieYield:
			return StatusRunning
		case ieSuspend:
			return StatusSuspended
		case ieComplete:
			interp.finished = true
			if ev.fatal {
				return StatusError
			}
			return StatusComplete
		}
	}
	return StatusComplete
}

// Start begins execution (spec §6 "start() — begin execution; emits
// VERSION_INFO, PROGRAM_START").
func (interp *Interpreter) Start() TickStatus {
	if interp.started {
		return StatusRunning
	}
	interp.events = make(chan ievent)
	interp.proceedCh = make(chan struct{})
	interp.resumeCh = make(chan resumeMsg)
	interp.started = true
	interp.state = RunStateRunning
	go interp.run()
	return interp.drain()
}

// Tick advances execution (spec §6 "tick()").
func (interp *Interpreter) Tick() TickStatus {
	if interp.finished {
		return StatusComplete
	}
	if !interp.started {
		return interp.Start()
	}
	if interp.pending.Occupied() {
		if req, expired := interp.pending.CheckTimeout(time.Now()); expired {
			interp.diag.add(SeverityWarning, KindTimeout, 0, "external request %s timed out, substituting fallback", req.ID)
			interp.resumeCh <- resumeMsg{val: req.Fallback, restoreState: req.PrevState}
			return interp.drain()
		}
		return StatusSuspended
	}
	if d := interp.cfg.stepDelay(); d > 0 {
		time.Sleep(d)
	}
	interp.proceedCh <- struct{}{}
	return interp.drain()
}

// Step executes one statement then pauses (spec §6 "step()"). Stepping
// granularity is per top-level statement inside a compound body, not
// per individual AST node: instrumenting every recursive eval call
// with a checkpoint would make ordinary (non-stepped) execution pay a
// channel round trip per sub-expression for no benefit.
func (interp *Interpreter) Step() TickStatus {
	interp.stepOnce = true
	return interp.Tick()
}

// Stop terminates the interpreter (spec §6 "stop()"); the next tick()
// after Stop returns Complete immediately. No new phase is started
// after Stop: the only further commands are a SETUP_END or LOOP_END
// closing a phase that was already running, and a final PROGRAM_END.
func (interp *Interpreter) Stop() {
	if !interp.started || interp.finished {
		interp.finished = true
		return
	}
	interp.state = RunStateTerminated
	if interp.pending.Occupied() {
		req := interp.pending.Current()
		interp.pending.Clear()
		interp.resumeCh <- resumeMsg{val: req.Fallback, restoreState: RunStateTerminated}
	} else {
		interp.proceedCh <- struct{}{}
	}
	interp.drain()
}

// ResumeWithValue supplies a value for an outstanding external-read
// request (spec §4.5.6 step 4).
func (interp *Interpreter) ResumeWithValue(requestID string, v Value) bool {
	if !interp.pending.Occupied() {
		return false
	}
	_, prevState, ok := interp.pending.Resolve(requestID)
	if !ok {
		return false
	}
	interp.resumeCh <- resumeMsg{val: v, restoreState: prevState}
	interp.drain()
	return true
}

// ResumeWithError fails an outstanding external-read request with an
// error message (spec §4.5.6 step 4 "fail(requestId, error)").
func (interp *Interpreter) ResumeWithError(requestID, message string) bool {
	if !interp.pending.Occupied() {
		return false
	}
	req := interp.pending.Current()
	_, prevState, ok := interp.pending.Resolve(requestID)
	if !ok {
		return false
	}
	interp.resumeCh <- resumeMsg{val: req.Fallback, failed: true, errMsg: message, restoreState: prevState}
	interp.drain()
	return true
}

// requestExternal implements the external-read protocol's call-site
// half (spec §4.5.6 steps 1-5). cmd is the caller-assembled request
// record (Type, Pin, Args, ... already set); requestExternal only adds
// the fresh RequestID before emitting it.
func (interp *Interpreter) requestExternal(name string, cmd Command, fallback Value) Value {
	prevState := interp.state
	req, err := interp.pending.Begin(name, cmd.Args, interp.cfg.responseTimeout(), fallback, prevState)
	if err != nil {
		interp.reportError(err.(*Error))
		return fallback
	}
	cmd.RequestID = req.ID
	interp.emit(cmd)
	interp.state = RunStateWaiting
	interp.events <- ievent{kind: ieSuspend, req: req}
	msg := <-interp.resumeCh
	interp.state = msg.restoreState
	if msg.failed {
		interp.diag.add(SeverityError, KindExternalFailure, 0, "%s", msg.errMsg)
		interp.emit(Command{Type: CmdError, Message: msg.errMsg})
		return msg.val
	}
	return msg.val
}

// run is the worker goroutine body: the program lifecycle from spec
// §4.5.1.
func (interp *Interpreter) run() {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				e = newError(KindMemoryExhausted, 0, "unrecoverable error: %v", r)
			}
			interp.emit(Command{Type: CmdProgramEnd, Message: e.Error()})
			interp.events <- ievent{kind: ieComplete, fatal: true}
			return
		}
	}()

	interp.collectDecls()
	interp.registerPredeclaredLibraryObjects()
	interp.vlog("sketchvm: collected %d function(s), %d global(s), platform %s", len(interp.funcs), len(interp.globalVars), interp.profile.ID)
	interp.emit(Command{Type: CmdVersionInfo, Text: InterpreterVersion, Message: ParserVersion})
	interp.emit(Command{Type: CmdProgramStart})
	interp.checkpoint()

	for _, vn := range interp.globalVars {
		if interp.terminated() {
			break
		}
		interp.declareVar(vn, true)
	}

	setupFn := interp.funcs["setup"]
	loopFn := interp.funcs["loop"]

	if !interp.terminated() {
		interp.vlog("sketchvm: entering setup()")
		interp.emit(Command{Type: CmdSetupStart})
		if setupFn != nil {
			interp.callUserFunction(setupFn, nil)
		}
		interp.emit(Command{Type: CmdSetupEnd})
		interp.vlog("sketchvm: setup() complete")
		interp.checkpoint()
	}

	maxIter := interp.cfg.MaxLoopIterations
	for it := 0; (maxIter <= 0 || it < maxIter) && !interp.terminated(); it++ {
		interp.vlog("sketchvm: loop() iteration %d", it)
		interp.emit(Command{Type: CmdLoopStart})
		if loopFn != nil {
			interp.callUserFunction(loopFn, nil)
		}
		interp.emit(Command{Type: CmdLoopEnd})
		interp.loopIterDone = it + 1
		if interp.terminated() {
			break
		}
		interp.checkpoint()
	}

	interp.vlog("sketchvm: run finished after %d loop iteration(s)", interp.loopIterDone)
	interp.emit(Command{Type: CmdProgramEnd})
	interp.events <- ievent{kind: ieComplete}
}

// collectDecls implements program lifecycle step 1 (spec §4.5.1):
// "Collect all top-level declarations, binding functions and global
// variables." Grounded on google-kati/dep.go's pattern of walking all
// top-level rules before evaluating any of them.
func (interp *Interpreter) collectDecls() {
	if interp.program == nil {
		return
	}
	for _, c := range interp.program.Children {
		switch c.Kind {
		case NodeFuncDef:
			interp.funcs[c.Ident] = c
		case NodeVarDecl:
			interp.globalVars = append(interp.globalVars, c)
		}
	}
}

// registerPredeclaredLibraryObjects binds the global Serial singletons
// that every sketch can use without an explicit declaration (spec
// §4.5.4: "Serial, Serial1, Serial2, and Serial3 are predeclared
// global instances of the Serial library"), restricted to the ones
// active for this run: those the Platform Profile activates plus any
// added through LoadActiveLibraries.
func (interp *Interpreter) registerPredeclaredLibraryObjects() {
	for _, name := range []string{"Serial", "Serial1", "Serial2", "Serial3"} {
		if !interp.libraryIsActive(name) {
			continue
		}
		def, ok := LookupLibrary(name)
		if !ok {
			continue
		}
		obj, err := def.Construct(nil)
		if err != nil {
			continue
		}
		obj.Def = def
		interp.scope.Declare(name, Value{Kind: VKLibraryObject, lib: obj}, VKLibraryObject, true)
		interp.libObjects[name] = obj
	}
}

func zeroValueFor(k ValueKind) Value {
	switch {
	case k == VKString:
		return StringValue("")
	case k.isFloat():
		return Value{Kind: k}
	case k == VKBool:
		return BoolValue(false)
	case k.isInteger():
		return Value{Kind: k}
	default:
		return Value{Kind: k}
	}
}

// qualifierWords are storage/cv specifiers parseTypeSpecifiers folds
// into the same type string as the base type name (e.g. "const int",
// "static unsigned long"); stripped here so classification keys only on
// the base spelling.
var qualifierWords = map[string]bool{"const": true, "static": true, "volatile": true, "extern": true}

func stripQualifiers(name string) string {
	fields := strings.Fields(name)
	var kept []string
	for _, f := range fields {
		if !qualifierWords[f] {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return "int"
	}
	return strings.Join(kept, " ")
}

// typeKindFromName maps a declared C type spelling to its ValueKind,
// per spec §3's closed Value variant set.
func typeKindFromName(rawName string) ValueKind {
	name := stripQualifiers(rawName)
	switch name {
	case "void":
		return VKVoid
	case "bool":
		return VKBool
	case "char", "signed char":
		return VKInt8
	case "unsigned char", "byte":
		return VKUint8
	case "short", "short int", "signed short":
		return VKInt16
	case "unsigned short":
		return VKUint16
	case "int", "signed int", "signed":
		return VKInt32
	case "unsigned int", "unsigned":
		return VKUint32
	case "long", "long int":
		return VKInt64
	case "unsigned long":
		return VKUint64
	case "float":
		return VKFloat32
	case "double":
		return VKFloat64
	case "String", "string":
		return VKString
	default:
		return VKStruct
	}
}

// declareVar executes one VarDecl: a library-object constructor (spec
// §4.5.4), a basic array with optional brace-initializer (spec §4.5.2
// "Array"), or a plain scalar with optional initializer. parseVarTail
// folds array dims, an initializer/constructor call, and any
// comma-chained declarations into this one node's children, so this
// sorts them out by kind rather than by position.
func (interp *Interpreter) declareVar(n *Node, isGlobal bool) {
	isConst := n.Flags&FlagConst != 0

	var dims []*Node
	var initNode *Node
	var chained []*Node
	for _, c := range n.Children {
		switch c.Kind {
		case NodeArrayDeclarator:
			dims = append(dims, c)
		case NodeVarDecl:
			chained = append(chained, c)
		default:
			initNode = c
		}
	}

	switch {
	case len(dims) > 0:
		interp.declareArrayVar(n, dims, initNode, isGlobal, isConst)
	default:
		if def, ok := LookupLibrary(n.Type); ok {
			var args []Value
			if initNode != nil && initNode.Kind == NodeCallExpr {
				for i := 1; i < len(initNode.Children); i++ {
					v, _ := interp.evalExpr(initNode.Children[i])
					args = append(args, v)
				}
			}
			obj, err := def.Construct(args)
			if err != nil {
				interp.runtimeZero(KindType, n.Line, "%v", err)
				break
			}
			obj.Def = def
			interp.scope.Declare(n.Ident, Value{Kind: VKLibraryObject, lib: obj}, VKLibraryObject, isConst)
			interp.libObjects[n.Ident] = obj
			break
		}

		declKind := typeKindFromName(n.Type)
		if !isGlobal && n.Flags&FlagStatic != 0 {
			interp.scope.DeclareStatic(n.Ident, n.Line, func() Value {
				if initNode != nil {
					v, _ := interp.evalExpr(initNode)
					return ConvertTo(v, declKind)
				}
				return zeroValueFor(declKind)
			}, declKind)
			break
		}
		var initVal Value
		if initNode != nil {
			v, _ := interp.evalExpr(initNode)
			initVal = ConvertTo(v, declKind)
		} else {
			initVal = zeroValueFor(declKind)
		}
		interp.scope.Declare(n.Ident, initVal, declKind, isConst)
		if isGlobal {
			interp.emit(Command{Type: CmdVarSet, Text: n.Ident, Value: initVal.String(), Line: n.Line})
		}
	}

	for _, c := range chained {
		interp.declareVar(c, isGlobal)
	}
}

// declareArrayVar builds an ArrayValue of the declared shape,
// optionally filled from a brace initializer list (spec §3 "Array":
// "element type, total size, shape, dense storage"). Only single- and
// multi-dimensional arrays of scalars are modeled; arrays of struct or
// array-of-array-of-pointer are out of scope, matching this
// interpreter's representative struct/array coverage.
func (interp *Interpreter) declareArrayVar(n *Node, dims []*Node, initNode *Node, isGlobal, isConst bool) {
	elemKind := typeKindFromName(n.Type)
	shape := make([]int, len(dims))
	for i, d := range dims {
		if len(d.Children) == 0 {
			if initNode != nil && initNode.Kind == NodeInitList {
				shape[i] = len(initNode.Children)
			}
			continue
		}
		v, _ := interp.evalExpr(d.Child(0))
		shape[i] = int(v.Int())
	}
	arr := &ArrayValue{ElemKind: elemKind, Shape: shape}
	total := arr.total()
	arr.Elems = make([]Value, total)
	arr.Defined = make([]bool, total)
	for i := range arr.Elems {
		arr.Elems[i] = zeroValueFor(elemKind)
	}
	if initNode != nil && initNode.Kind == NodeInitList {
		for i, c := range initNode.Children {
			if i >= total {
				break
			}
			v, _ := interp.evalExpr(c)
			arr.Elems[i] = ConvertTo(v, elemKind)
			arr.Defined[i] = true
		}
	}
	if err := interp.stats.Allocate(n.Line, int64(total)*int64(SizeOfKind(elemKind, interp.profile.WordBits))); err != nil {
		interp.reportError(err.(*Error))
		return
	}
	interp.scope.Declare(n.Ident, Value{Kind: VKArray, arr: arr}, VKArray, isConst)
	if isGlobal {
		interp.emit(Command{Type: CmdVarSet, Text: n.Ident, Value: "<array>", Line: n.Line})
	}
}

// callUserFunction pushes a function frame, binds parameters, executes
// the body, and pops the frame (spec §4.5.2).
func (interp *Interpreter) callUserFunction(fn *Node, args []Value) Value {
	if err := interp.stats.EnterCall(fn.Line); err != nil {
		interp.reportError(err)
		return Value{}
	}
	defer interp.stats.ExitCall()

	interp.dlog("sketchvm: call %s() at line %d, depth %d", fn.Ident, fn.Line, interp.stats.RecursionDepth)
	defer interp.dlog("sketchvm: return from %s()", fn.Ident)

	interp.scope.pushFunction(fn.Ident)
	defer interp.scope.pop()

	params := fn.Child(1)
	if params != nil {
		for i, p := range params.Children {
			var v Value
			if i < len(args) {
				v = args[i]
			}
			interp.scope.Declare(p.Ident, v, typeKindFromName(p.Type), false)
		}
	}

	body := fn.Child(2)
	if body == nil {
		return Value{}
	}
	res := interp.execStmtList(body.Children)
	if res.signal == ctrlReturn {
		return ConvertTo(res.value, typeKindFromName(fn.Type))
	}
	return Value{}
}

func (interp *Interpreter) execStmtList(stmts []*Node) execResult {
	for _, s := range stmts {
		if interp.terminated() {
			return execResult{}
		}
		r := interp.execStmt(s)
		interp.maybeStepCheckpoint()
		if r.signal != ctrlNone {
			return r
		}
	}
	return execResult{}
}

func (interp *Interpreter) execStmt(n *Node) execResult {
	if n == nil {
		return execResult{}
	}
	interp.dlog("sketchvm: exec %s at line %d", n.Kind, n.Line)
	switch n.Kind {
	case NodeCompoundStmt:
		interp.scope.pushBlock()
		defer interp.scope.pop()
		return interp.execStmtList(n.Children)
	case NodeVarDecl:
		interp.declareVar(n, false)
		return execResult{}
	case NodeIf:
		cond, _ := interp.evalExpr(n.Child(0))
		if cond.Bool() {
			return interp.execStmt(n.Child(1))
		}
		if n.Child(2) != nil {
			return interp.execStmt(n.Child(2))
		}
		return execResult{}
	case NodeWhile:
		for {
			cond, _ := interp.evalExpr(n.Child(0))
			if !cond.Bool() || interp.terminated() {
				break
			}
			r := interp.execStmt(n.Child(1))
			if r.signal == ctrlBreak {
				break
			}
			if r.signal == ctrlReturn {
				return r
			}
		}
		return execResult{}
	case NodeDoWhile:
		for {
			r := interp.execStmt(n.Child(0))
			if r.signal == ctrlBreak {
				break
			}
			if r.signal == ctrlReturn {
				return r
			}
			cond, _ := interp.evalExpr(n.Child(1))
			if !cond.Bool() || interp.terminated() {
				break
			}
		}
		return execResult{}
	case NodeFor:
		interp.scope.pushBlock()
		defer interp.scope.pop()
		interp.execStmt(n.Child(0))
		for {
			cond, _ := interp.evalExpr(n.Child(1))
			if !cond.Bool() || interp.terminated() {
				break
			}
			r := interp.execStmt(n.Child(3))
			if r.signal == ctrlBreak {
				break
			}
			if r.signal == ctrlReturn {
				return r
			}
			interp.evalExpr(n.Child(2))
		}
		return execResult{}
	case NodeRangeFor:
		return interp.execRangeFor(n)
	case NodeSwitch:
		return interp.execSwitch(n)
	case NodeBreak:
		return execResult{signal: ctrlBreak}
	case NodeContinue:
		return execResult{signal: ctrlContinue}
	case NodeReturn:
		var v Value
		if len(n.Children) > 0 {
			v, _ = interp.evalExpr(n.Child(0))
		}
		return execResult{signal: ctrlReturn, value: v}
	case NodeExprStmt:
		interp.evalExpr(n.Child(0))
		return execResult{}
	case NodeEmptyStmt, NodeErrorStmt:
		return execResult{}
	default:
		return execResult{}
	}
}

func (interp *Interpreter) execRangeFor(n *Node) execResult {
	decl := n.Child(0)
	coll, _ := interp.evalExpr(n.Child(1))
	body := n.Child(2)
	if coll.Kind != VKArray {
		interp.runtimeZero(KindType, n.Line, "range-for requires an array operand")
		return execResult{}
	}
	declKind := typeKindFromName(decl.Type)
	for _, elem := range coll.arr.Elems {
		if interp.terminated() {
			break
		}
		interp.scope.pushBlock()
		interp.scope.Declare(decl.Ident, ConvertTo(elem, declKind), declKind, false)
		r := interp.execStmt(body)
		interp.scope.pop()
		if r.signal == ctrlBreak {
			break
		}
		if r.signal == ctrlReturn {
			return r
		}
	}
	return execResult{}
}

func (interp *Interpreter) execSwitch(n *Node) execResult {
	subj, _ := interp.evalExpr(n.Child(0))
	matched := false
	for i := 1; i < len(n.Children); i++ {
		c := n.Children[i]
		if !matched {
			if c.Kind == NodeDefault {
				continue // defer default unless nothing else matches; handled in second pass below
			}
			val, _ := interp.evalExpr(c.Child(0))
			if !valuesEqual(subj, val) {
				continue
			}
			matched = true
		}
		stmts := c.Children
		if c.Kind == NodeCase {
			stmts = c.Children[1:]
		}
		r := interp.execStmtList(stmts)
		if r.signal == ctrlBreak {
			return execResult{}
		}
		if r.signal == ctrlReturn || r.signal == ctrlContinue {
			return r
		}
	}
	if matched {
		return execResult{}
	}
	// no case matched: run from the default label onward, if present.
	runFromDefault := false
	for i := 1; i < len(n.Children); i++ {
		c := n.Children[i]
		if c.Kind == NodeDefault {
			runFromDefault = true
		}
		if !runFromDefault {
			continue
		}
		stmts := c.Children
		if c.Kind == NodeCase {
			stmts = c.Children[1:]
		}
		r := interp.execStmtList(stmts)
		if r.signal == ctrlBreak {
			return execResult{}
		}
		if r.signal == ctrlReturn || r.signal == ctrlContinue {
			return r
		}
	}
	return execResult{}
}

func valuesEqual(a, b Value) bool {
	if a.Kind == VKString || b.Kind == VKString {
		return a.String() == b.String()
	}
	if a.Kind.isFloat() || b.Kind.isFloat() {
		return a.Float() == b.Float()
	}
	return a.Int() == b.Int()
}
