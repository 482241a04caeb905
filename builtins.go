package sketchvm

import "math"

// Builtin is one free-function entry from spec §4.5.5 ("Hardware and
// timing functions"). External builtins suspend via the interpreter's
// external-read protocol (§4.5.6); internal ones compute a value with
// no command emitted beyond the pure call itself.
type Builtin struct {
	Name     string
	External bool
	Command  CommandType // zero value if External == false and no command is emitted
	// Call executes an internal (non-suspending) builtin.
	Call func(interp *Interpreter, args []Value) (Value, error)
	// Fallback computes the deterministic timeout substitute for an
	// external builtin (spec §4.5.6 step 6).
	Fallback func(args []Value) Value
}

// builtinRegistry maps function name -> Builtin, mirroring
// google-kati/func.go's funcMap registry shape (name -> behavior),
// generalized from make functions to Arduino runtime functions.
var builtinRegistry = map[string]*Builtin{}

func registerBuiltin(b *Builtin) { builtinRegistry[b.Name] = b }

func init() {
	registerBuiltin(&Builtin{Name: "pinMode", Command: CmdPinMode, Call: func(i *Interpreter, a []Value) (Value, error) { return VoidValue(), nil }})
	registerBuiltin(&Builtin{Name: "digitalWrite", Command: CmdDigitalWrite, Call: func(i *Interpreter, a []Value) (Value, error) { return VoidValue(), nil }})
	registerBuiltin(&Builtin{Name: "analogWrite", Command: CmdAnalogWrite, Call: func(i *Interpreter, a []Value) (Value, error) { return VoidValue(), nil }})
	registerBuiltin(&Builtin{Name: "delay", Command: CmdDelay, Call: func(i *Interpreter, a []Value) (Value, error) { return VoidValue(), nil }})
	registerBuiltin(&Builtin{Name: "delayMicroseconds", Command: CmdDelayMicroseconds, Call: func(i *Interpreter, a []Value) (Value, error) { return VoidValue(), nil }})
	registerBuiltin(&Builtin{Name: "tone", Command: CmdTone, Call: func(i *Interpreter, a []Value) (Value, error) { return VoidValue(), nil }})
	registerBuiltin(&Builtin{Name: "noTone", Command: CmdNoTone, Call: func(i *Interpreter, a []Value) (Value, error) { return VoidValue(), nil }})

	registerBuiltin(&Builtin{Name: "digitalRead", External: true, Command: CmdDigitalReadReq,
		Fallback: func(a []Value) Value { return BoolValue(false) }})
	registerBuiltin(&Builtin{Name: "analogRead", External: true, Command: CmdAnalogReadReq,
		Fallback: func(a []Value) Value { return Int32Value(0) }})
	registerBuiltin(&Builtin{Name: "millis", External: true, Command: CmdMillisReq,
		Fallback: func(a []Value) Value { return Uint32Value(0) }})
	registerBuiltin(&Builtin{Name: "micros", External: true, Command: CmdMicrosReq,
		Fallback: func(a []Value) Value { return Uint32Value(0) }})

	registerMathBuiltins()
	registerCharClassBuiltins()
}

func arg(a []Value, i int) Value {
	if i < 0 || i >= len(a) {
		return Value{}
	}
	return a[i]
}

// registerMathBuiltins wires the pure math helpers from spec §4.5.5
// ("map, constrain, abs, min, max, pow, sqrt, sin/cos/tan, random").
func registerMathBuiltins() {
	pure := func(name string, call func(interp *Interpreter, a []Value) (Value, error)) {
		registerBuiltin(&Builtin{Name: name, Call: call})
	}
	pure("abs", func(i *Interpreter, a []Value) (Value, error) {
		v := arg(a, 0)
		if v.Kind.isFloat() {
			return Float64Value(math.Abs(v.Float())), nil
		}
		n := v.Int()
		if n < 0 {
			n = -n
		}
		return Int64Value(n), nil
	})
	pure("min", func(i *Interpreter, a []Value) (Value, error) {
		x, y := arg(a, 0), arg(a, 1)
		if x.Float() < y.Float() {
			return x, nil
		}
		return y, nil
	})
	pure("max", func(i *Interpreter, a []Value) (Value, error) {
		x, y := arg(a, 0), arg(a, 1)
		if x.Float() > y.Float() {
			return x, nil
		}
		return y, nil
	})
	pure("constrain", func(i *Interpreter, a []Value) (Value, error) {
		x, lo, hi := arg(a, 0), arg(a, 1), arg(a, 2)
		if x.Float() < lo.Float() {
			return lo, nil
		}
		if x.Float() > hi.Float() {
			return hi, nil
		}
		return x, nil
	})
	pure("map", func(i *Interpreter, a []Value) (Value, error) {
		x, inMin, inMax, outMin, outMax := arg(a, 0).Float(), arg(a, 1).Float(), arg(a, 2).Float(), arg(a, 3).Float(), arg(a, 4).Float()
		if inMax == inMin {
			return Int64Value(0), newError(KindDivisionByZero, 0, "map(): in_max == in_min")
		}
		result := (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
		return Int64Value(int64(result)), nil
	})
	pure("pow", func(i *Interpreter, a []Value) (Value, error) {
		return Float64Value(math.Pow(arg(a, 0).Float(), arg(a, 1).Float())), nil
	})
	pure("sqrt", func(i *Interpreter, a []Value) (Value, error) { return Float64Value(math.Sqrt(arg(a, 0).Float())), nil })
	pure("sin", func(i *Interpreter, a []Value) (Value, error) { return Float64Value(math.Sin(arg(a, 0).Float())), nil })
	pure("cos", func(i *Interpreter, a []Value) (Value, error) { return Float64Value(math.Cos(arg(a, 0).Float())), nil })
	pure("tan", func(i *Interpreter, a []Value) (Value, error) { return Float64Value(math.Tan(arg(a, 0).Float())), nil })
	pure("random", func(i *Interpreter, a []Value) (Value, error) {
		if len(a) == 1 {
			return i.pseudoRandom(0, a[0].Int()), nil
		}
		if len(a) >= 2 {
			return i.pseudoRandom(a[0].Int(), a[1].Int()), nil
		}
		return i.pseudoRandom(0, math.MaxInt32), nil
	})
	pure("randomSeed", func(i *Interpreter, a []Value) (Value, error) {
		i.seedRandom(arg(a, 0).Int())
		return VoidValue(), nil
	})
}

// registerCharClassBuiltins wires the character-classification helpers
// (spec §4.5.5: "isDigit/isAlpha/isSpace/...").
func registerCharClassBuiltins() {
	classify := func(name string, fn func(c byte) bool) {
		registerBuiltin(&Builtin{Name: name, Call: func(i *Interpreter, a []Value) (Value, error) {
			c := byte(arg(a, 0).Int())
			return BoolValue(fn(c)), nil
		}})
	}
	classify("isDigit", func(c byte) bool { return c >= '0' && c <= '9' })
	classify("isAlpha", func(c byte) bool { return isAlphaByte(c) })
	classify("isAlphaNumeric", func(c byte) bool { return isAlphaByte(c) || (c >= '0' && c <= '9') })
	classify("isSpace", func(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f' })
	classify("isUpperCase", func(c byte) bool { return c >= 'A' && c <= 'Z' })
	classify("isLowerCase", func(c byte) bool { return c >= 'a' && c <= 'z' })
	classify("isPunct", func(c byte) bool {
		return c >= 33 && c <= 126 && !isAlphaByte(c) && !(c >= '0' && c <= '9')
	})
}

func isAlphaByte(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
