package sketchvm

import "testing"

func TestCommonKind(t *testing.T) {
	for _, tc := range []struct {
		a, b ValueKind
		want ValueKind
	}{
		{VKInt32, VKInt32, VKInt32},
		{VKInt8, VKInt16, VKInt32},
		{VKInt32, VKUint32, VKUint32},
		{VKInt32, VKFloat32, VKFloat32},
		{VKFloat32, VKFloat64, VKFloat64},
		{VKInt64, VKUint64, VKUint64},
		{VKInt64, VKInt32, VKInt64},
		{VKBool, VKBool, VKInt32},
	} {
		if got := CommonKind(tc.a, tc.b); got != tc.want {
			t.Errorf("CommonKind(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestConvertToNarrowing(t *testing.T) {
	for _, tc := range []struct {
		in     Value
		target ValueKind
		want   int64
	}{
		{Int32Value(300), VKUint8, 44},   // 300 % 256
		{Int32Value(-1), VKUint8, 255},
		{Int32Value(-1), VKUint16, 65535},
		{Int64Value(1 << 40), VKInt32, int64(int32(1 << 40))},
	} {
		got := ConvertTo(tc.in, tc.target)
		if got.i != tc.want {
			t.Errorf("ConvertTo(%v, %v).i = %d, want %d", tc.in, tc.target, got.i, tc.want)
		}
	}
}

func TestConvertToFloatRoundTrip(t *testing.T) {
	v := ConvertTo(Int32Value(5), VKFloat64)
	if v.Kind != VKFloat64 || v.Float() != 5 {
		t.Errorf("ConvertTo int->float64 = %+v", v)
	}
	v2 := ConvertTo(v, VKInt32)
	if v2.Kind != VKInt32 || v2.Int() != 5 {
		t.Errorf("ConvertTo float64->int32 = %+v", v2)
	}
}

func TestValueStringRendering(t *testing.T) {
	for _, tc := range []struct {
		v    Value
		want string
	}{
		{BoolValue(true), "true"},
		{Int32Value(-7), "-7"},
		{Uint32Value(7), "7"},
		{StringValue("hi"), "hi"},
		{VoidValue(), ""},
	} {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("%+v.String() = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestSizeOfKindUsesWordBits(t *testing.T) {
	if got := SizeOfKind(VKInt32, 16); got != 2 {
		t.Errorf("SizeOfKind(int, 16-bit) = %d, want 2", got)
	}
	if got := SizeOfKind(VKInt32, 32); got != 4 {
		t.Errorf("SizeOfKind(int, 32-bit) = %d, want 4", got)
	}
	if got := SizeOfKind(VKInt64, 16); got != 8 {
		t.Errorf("SizeOfKind(long) = %d, want 8 regardless of word width", got)
	}
}

func TestArraySlotBounds(t *testing.T) {
	arr := &ArrayValue{ElemKind: VKInt32, Shape: []int{3}, Elems: make([]Value, 3), Defined: make([]bool, 3)}
	slot := arrayElemSlot{arr: arr, idx: 1}
	if err := slot.Set(Int32Value(42)); err != nil {
		t.Fatalf("Set in bounds: %v", err)
	}
	if got := slot.Get().Int(); got != 42 {
		t.Errorf("Get() = %d, want 42", got)
	}
	oob := arrayElemSlot{arr: arr, idx: 10}
	if err := oob.Set(Int32Value(1)); err == nil {
		t.Error("Set out of bounds: want error, got nil")
	}
}

func TestVariableConstRejectsAssignment(t *testing.T) {
	vr := &Variable{Name: "x", Value: Int32Value(1), Const: true, DeclType: VKInt32}
	if err := vr.Set(Int32Value(2)); err == nil {
		t.Error("Set on const variable: want error, got nil")
	}
	if vr.Value.Int() != 1 {
		t.Errorf("const variable value changed to %d after rejected Set", vr.Value.Int())
	}
}
