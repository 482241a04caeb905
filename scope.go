package sketchvm

// Variable is one named storage slot in a Scope Frame (spec §3 "Scope
// Frame": "map name -> Variable"). Grounded on google-kati/var.go's
// `Var` interface (`Flavor()`/`Origin()`/override semantics), narrowed
// here to the const/volatile/reference flags this interpreter needs.
type Variable struct {
	Name     string
	Value    Value
	Const    bool
	Volatile bool
	DeclType ValueKind
}

func (vr *Variable) Get() Value { return vr.Value }

func (vr *Variable) Set(v Value) error {
	if vr.Const {
		return newError(KindType, 0, "cannot assign to const variable %q", vr.Name)
	}
	vr.Value = ConvertTo(v, vr.DeclType)
	return nil
}

// refVariable is a Variable whose storage is redirected through a
// Pointer target (spec §4.5.2 "References": "reads and writes go
// through the target. References cannot be rebound.").
type refVariable struct {
	Name   string
	Target Slot
}

func (r *refVariable) Get() Value        { return r.Target.Get() }
func (r *refVariable) Set(v Value) error { return r.Target.Set(v) }

// staticKey identifies one static local's storage slot: the owning
// function's identity plus the declaration's source line, stable
// across repeated calls to the same function (spec §3 "Scope Frame":
// "Static variables live in a side table keyed by (function identity,
// declaration site)").
type staticKey struct {
	funcName string
	line     int
}

// Frame is one level of the Scope Stack (spec §3). isFunctionBoundary
// marks frames pushed by a function call (as opposed to a bare
// compound statement), which matters for static-local binding and for
// where a `return` unwinds to.
type Frame struct {
	vars               map[string]Slot
	isFunctionBoundary bool
	funcName           string
}

func newFrame(isFuncBoundary bool, funcName string) *Frame {
	return &Frame{vars: make(map[string]Slot), isFunctionBoundary: isFuncBoundary, funcName: funcName}
}

// ScopeStack is the interpreter's LIFO sequence of Frames (spec §3
// "The Scope Stack is a LIFO sequence of frames; lookup walks from top
// to bottom"), plus the static-locals side table that survives frame
// pops (spec §4.5.2).
type ScopeStack struct {
	frames  []*Frame
	globals *Frame
	statics map[staticKey]*Variable

	// funcBases holds, for each function frame currently on the call
	// stack, the index into frames where that call's own scope chain
	// begins. Lookup walks down only to the top of this stack (then
	// jumps straight to globals) so a called function's locals never
	// leak into, and the caller's locals never leak down into, an
	// unrelated call further up the same frames slice (spec §3/§4.5.2:
	// each function's locals are visible only within its own scope
	// chain down to globals, never through a caller's frames).
	funcBases []int
}

func newScopeStack() *ScopeStack {
	g := newFrame(true, "")
	return &ScopeStack{globals: g, frames: []*Frame{g}, statics: make(map[staticKey]*Variable)}
}

func (s *ScopeStack) pushFunction(name string) {
	s.funcBases = append(s.funcBases, len(s.frames))
	s.frames = append(s.frames, newFrame(true, name))
}

func (s *ScopeStack) pushBlock() {
	top := s.frames[len(s.frames)-1]
	s.frames = append(s.frames, newFrame(false, top.funcName))
}

func (s *ScopeStack) pop() {
	if len(s.frames) <= 1 {
		return
	}
	idx := len(s.frames) - 1
	if n := len(s.funcBases); n > 0 && s.funcBases[n-1] == idx {
		s.funcBases = s.funcBases[:n-1]
	}
	s.frames = s.frames[:idx]
}

func (s *ScopeStack) top() *Frame { return s.frames[len(s.frames)-1] }

// currentFunc returns the name of the nearest enclosing function
// frame, used as the identity half of a static local's key.
func (s *ScopeStack) currentFunc() string {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].isFunctionBoundary {
			return s.frames[i].funcName
		}
	}
	return ""
}

// Declare inserts a new variable into the top frame (spec §4.5.2:
// "Variable declarations insert into the top frame").
func (s *ScopeStack) Declare(name string, v Value, declType ValueKind, isConst bool) *Variable {
	vr := &Variable{Name: name, Value: ConvertTo(v, declType), Const: isConst, DeclType: declType}
	s.top().vars[name] = vr
	return vr
}

// DeclareStatic binds name to the static-locals side table the first
// time its declaration site executes, reusing the same storage on
// subsequent entries (spec §4.5.2).
func (s *ScopeStack) DeclareStatic(name string, line int, init func() Value, declType ValueKind) *Variable {
	key := staticKey{funcName: s.currentFunc(), line: line}
	vr, ok := s.statics[key]
	if !ok {
		vr = &Variable{Name: name, Value: ConvertTo(init(), declType), DeclType: declType}
		s.statics[key] = vr
	}
	s.top().vars[name] = vr
	return vr
}

// DeclareRef installs a reference variable whose reads/writes forward
// to target (spec §4.5.2 "References").
func (s *ScopeStack) DeclareRef(name string, target Slot) {
	s.top().vars[name] = &refVariable{Name: name, Target: target}
}

// Lookup walks frames top to bottom, per spec §3, but stops at the
// base of the innermost function call instead of continuing into the
// caller's frames: a called function's scope chain is its own block
// frames down to its function frame, then straight to globals, never
// through whatever frames happen to still be on the slice below it.
func (s *ScopeStack) Lookup(name string) (Slot, bool) {
	base := 0
	if n := len(s.funcBases); n > 0 {
		base = s.funcBases[n-1]
	}
	for i := len(s.frames) - 1; i >= base; i-- {
		if slot, ok := s.frames[i].vars[name]; ok {
			return slot, true
		}
	}
	if base != 0 {
		if slot, ok := s.frames[0].vars[name]; ok {
			return slot, true
		}
	}
	return nil, false
}
