package sketchvm

// MethodClass classifies a library method (spec §4.5.4): internal
// methods compute and return a value without suspending and are
// recorded with a LIBRARY_METHOD_INTERNAL command; external methods
// emit a LIBRARY_METHOD_CALL, or a LIBRARY_METHOD_REQUEST and suspend.
type MethodClass int

const (
	MethodInternal MethodClass = iota
	MethodExternalCall    // emits LIBRARY_METHOD_CALL, does not suspend
	MethodExternalRequest // emits LIBRARY_METHOD_REQUEST, suspends
)

// LibraryMethod is one entry in a LibraryDef's method table.
type LibraryMethod struct {
	Class MethodClass

	// Internal computes a instance method's result directly; set only
	// when Class == MethodInternal.
	Internal func(obj *LibraryObject, args []Value) (Value, error)

	// Perform runs a MethodExternalCall method's side effect and
	// returns its result; set only when Class == MethodExternalCall.
	Perform func(obj *LibraryObject, args []Value) (Value, error)

	// Fallback computes the deterministic substitute value used if a
	// MethodExternalRequest call times out (spec §4.5.6 step 6); set
	// only when Class == MethodExternalRequest.
	Fallback func(obj *LibraryObject, args []Value) Value
}

// LibraryDef is one Library Registry entry (spec §4.5.4 "Library
// Registry"): a constructor plus static and instance method tables.
// Grounded on google-kati/func.go's `funcMap map[string]func() Func`
// registry — here the map value is a constructor-plus-method-tables
// bundle instead of a bare zero-arg constructor, since library objects
// carry mutable instance state that plain make functions never need.
type LibraryDef struct {
	Name          string
	Construct     func(args []Value) (*LibraryObject, error)
	StaticMethods map[string]func(args []Value) (Value, error)
	Methods       map[string]*LibraryMethod
}

// libraryRegistry maps library name -> definition, the way
// google-kati/func.go's funcMap maps function name -> constructor.
var libraryRegistry = map[string]*LibraryDef{}

func registerLibrary(def *LibraryDef) { libraryRegistry[def.Name] = def }

func init() {
	registerLibrary(servoLibrary())
	registerLibrary(neoPixelLibrary())
	registerLibrary(liquidCrystalLibrary())
	registerLibrary(wireLibrary())
	registerLibrary(spiLibrary())
	registerLibrary(eepromLibrary())
	registerLibrary(serialLibrary("Serial"))
	registerLibrary(serialLibrary("Serial1"))
	registerLibrary(serialLibrary("Serial2"))
	registerLibrary(serialLibrary("Serial3"))
}

func servoLibrary() *LibraryDef {
	return &LibraryDef{
		Name: "Servo",
		Construct: func(args []Value) (*LibraryObject, error) {
			return &LibraryObject{LibraryName: "Servo", State: map[string]Value{"pin": Int32Value(-1), "angle": Int32Value(0)}}, nil
		},
		Methods: map[string]*LibraryMethod{
			"attach": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) {
				if len(args) > 0 {
					obj.State["pin"] = args[0]
				}
				return VoidValue(), nil
			}},
			"write": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) {
				if len(args) > 0 {
					obj.State["angle"] = args[0]
				}
				return VoidValue(), nil
			}},
			"read": {Class: MethodInternal, Internal: func(obj *LibraryObject, args []Value) (Value, error) {
				return obj.State["angle"], nil
			}},
			"detach": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) {
				obj.State["pin"] = Int32Value(-1)
				return VoidValue(), nil
			}},
		},
	}
}

func neoPixelLibrary() *LibraryDef {
	return &LibraryDef{
		Name: "Adafruit_NeoPixel",
		Construct: func(args []Value) (*LibraryObject, error) {
			n := 0
			if len(args) > 0 {
				n = int(args[0].Int())
			}
			return &LibraryObject{LibraryName: "Adafruit_NeoPixel", CtorArgs: args, State: map[string]Value{"count": Int32Value(int32(n))}}, nil
		},
		StaticMethods: map[string]func(args []Value) (Value, error){
			"Color": func(args []Value) (Value, error) {
				var r, g, b int64
				if len(args) > 0 {
					r = args[0].Int()
				}
				if len(args) > 1 {
					g = args[1].Int()
				}
				if len(args) > 2 {
					b = args[2].Int()
				}
				return Uint32Value(uint32(r<<16 | g<<8 | b)), nil
			},
		},
		Methods: map[string]*LibraryMethod{
			"begin":     {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"show":      {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"setPixelColor": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"setBrightness": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"numPixels": {Class: MethodExternalRequest,
				Fallback: func(obj *LibraryObject, args []Value) Value { return obj.State["count"] }},
		},
	}
}

func liquidCrystalLibrary() *LibraryDef {
	return &LibraryDef{
		Name: "LiquidCrystal",
		Construct: func(args []Value) (*LibraryObject, error) {
			return &LibraryObject{LibraryName: "LiquidCrystal", CtorArgs: args, State: map[string]Value{}}, nil
		},
		Methods: map[string]*LibraryMethod{
			"begin":     {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"print":     {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"setCursor": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"clear":     {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
		},
	}
}

func wireLibrary() *LibraryDef {
	return &LibraryDef{
		Name: "Wire",
		Construct: func(args []Value) (*LibraryObject, error) {
			return &LibraryObject{LibraryName: "Wire", State: map[string]Value{}}, nil
		},
		Methods: map[string]*LibraryMethod{
			"begin":            {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"beginTransmission": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"endTransmission":  {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return Int32Value(0), nil }},
			"write":            {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"requestFrom":      {Class: MethodExternalRequest, Fallback: func(obj *LibraryObject, args []Value) Value { return Int32Value(0) }},
			"available":        {Class: MethodExternalRequest, Fallback: func(obj *LibraryObject, args []Value) Value { return Int32Value(0) }},
			"read":             {Class: MethodExternalRequest, Fallback: func(obj *LibraryObject, args []Value) Value { return Int32Value(0) }},
		},
	}
}

func spiLibrary() *LibraryDef {
	return &LibraryDef{
		Name: "SPI",
		Construct: func(args []Value) (*LibraryObject, error) {
			return &LibraryObject{LibraryName: "SPI", State: map[string]Value{}}, nil
		},
		Methods: map[string]*LibraryMethod{
			"begin":          {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"transfer":       {Class: MethodExternalRequest, Fallback: func(obj *LibraryObject, args []Value) Value { return Int32Value(0) }},
			"beginTransaction": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"endTransaction": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
		},
	}
}

func eepromLibrary() *LibraryDef {
	return &LibraryDef{
		Name: "EEPROM",
		Construct: func(args []Value) (*LibraryObject, error) {
			return &LibraryObject{LibraryName: "EEPROM", State: map[string]Value{}}, nil
		},
		Methods: map[string]*LibraryMethod{
			"write":  {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"update": {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"read":   {Class: MethodExternalRequest, Fallback: func(obj *LibraryObject, args []Value) Value { return Int32Value(0) }},
		},
	}
}

// serialLibrary builds one Serial/Serial1/Serial2/Serial3 singleton
// definition (spec §4.5.4's explicit naming of all four) whose
// read-family methods suspend (spec §4.5.5: "Serial.* ... read-family
// is external").
func serialLibrary(name string) *LibraryDef {
	return &LibraryDef{
		Name: name,
		Construct: func(args []Value) (*LibraryObject, error) {
			return &LibraryObject{LibraryName: name, State: map[string]Value{}}, nil
		},
		Methods: map[string]*LibraryMethod{
			"begin":     {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"print":     {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"println":   {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"write":     {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"flush":     {Class: MethodExternalCall, Perform: func(obj *LibraryObject, args []Value) (Value, error) { return VoidValue(), nil }},
			"available": {Class: MethodExternalRequest, Fallback: func(obj *LibraryObject, args []Value) Value { return Int32Value(0) }},
			"read":      {Class: MethodExternalRequest, Fallback: func(obj *LibraryObject, args []Value) Value { return Int32Value(-1) }},
			"peek":      {Class: MethodExternalRequest, Fallback: func(obj *LibraryObject, args []Value) Value { return Int32Value(-1) }},
		},
	}
}

// LookupLibrary returns the registry entry for name, if any.
func LookupLibrary(name string) (*LibraryDef, bool) {
	def, ok := libraryRegistry[name]
	return def, ok
}

// Method returns def's method table entry for name, or (nil, false)
// if it does not exist (spec §4.5.4: "Unknown members produce
// UnknownMember errors").
func (def *LibraryDef) Method(name string) (*LibraryMethod, bool) {
	m, ok := def.Methods[name]
	return m, ok
}
