package sketchvm

import "testing"

func TestScopeLookupWalksTopToBottom(t *testing.T) {
	s := newScopeStack()
	s.Declare("x", Int32Value(1), VKInt32, false)
	s.pushFunction("f")
	s.Declare("x", Int32Value(2), VKInt32, false)

	slot, ok := s.Lookup("x")
	if !ok {
		t.Fatal("Lookup(x) not found")
	}
	if got := slot.Get().Int(); got != 2 {
		t.Errorf("Lookup(x) in nested frame = %d, want 2 (shadowing global)", got)
	}

	s.pop()
	slot, ok = s.Lookup("x")
	if !ok || slot.Get().Int() != 1 {
		t.Errorf("Lookup(x) after pop = %v, want the global binding (1)", slot.Get())
	}
}

func TestScopeGlobalsAlwaysReachable(t *testing.T) {
	s := newScopeStack()
	s.Declare("g", Int32Value(9), VKInt32, false)
	s.pushFunction("f")
	s.pushBlock()
	slot, ok := s.Lookup("g")
	if !ok {
		t.Fatal("global not reachable from nested block")
	}
	if slot.Get().Int() != 9 {
		t.Errorf("global value = %d, want 9", slot.Get().Int())
	}
}

func TestDeclareStaticPersistsAcrossCalls(t *testing.T) {
	s := newScopeStack()
	initCount := 0
	init := func() Value {
		initCount++
		return Int32Value(0)
	}

	s.pushFunction("counter")
	v1 := s.DeclareStatic("n", 10, init, VKInt32)
	v1.Set(Int32Value(int32(v1.Value.Int() + 1)))
	s.pop()

	s.pushFunction("counter")
	v2 := s.DeclareStatic("n", 10, init, VKInt32)
	s.pop()

	if initCount != 1 {
		t.Errorf("static initializer ran %d times, want exactly once", initCount)
	}
	if v2.Value.Int() != 1 {
		t.Errorf("static local value across calls = %d, want 1 (persisted increment)", v2.Value.Int())
	}
}

func TestDeclareStaticDistinctPerDeclSite(t *testing.T) {
	s := newScopeStack()
	zero := func() Value { return Int32Value(0) }

	s.pushFunction("f")
	a := s.DeclareStatic("n", 1, zero, VKInt32)
	b := s.DeclareStatic("n", 2, zero, VKInt32)
	s.pop()

	a.Set(Int32Value(100))
	if b.Value.Int() == 100 {
		t.Error("static locals at different declaration lines share storage, want independent slots")
	}
}

func TestScopeDoesNotLeakThroughNestedFunctionCalls(t *testing.T) {
	s := newScopeStack()
	s.Declare("g", Int32Value(7), VKInt32, false)

	s.pushFunction("caller")
	s.Declare("local", Int32Value(99), VKInt32, false)

	s.pushFunction("callee")
	if _, ok := s.Lookup("local"); ok {
		t.Error("callee resolved caller's local variable; function frames must not leak into each other")
	}
	slot, ok := s.Lookup("g")
	if !ok || slot.Get().Int() != 7 {
		t.Errorf("callee could not reach global through its own scope chain, got %v, ok=%v", slot, ok)
	}
	s.pop()

	slot, ok = s.Lookup("local")
	if !ok || slot.Get().Int() != 99 {
		t.Errorf("caller's own local was corrupted after callee returned, got %v, ok=%v", slot, ok)
	}
	s.pop()
}

func TestDeclareRefForwardsReadsAndWrites(t *testing.T) {
	s := newScopeStack()
	target := s.Declare("x", Int32Value(5), VKInt32, false)
	s.DeclareRef("r", target)

	slot, ok := s.Lookup("r")
	if !ok {
		t.Fatal("ref variable not found")
	}
	if got := slot.Get().Int(); got != 5 {
		t.Errorf("ref read = %d, want 5", got)
	}
	slot.Set(Int32Value(42))
	if target.Value.Int() != 42 {
		t.Errorf("write through ref did not reach target, target = %d", target.Value.Int())
	}
}
