package object

import (
	"context"
	stderrors "errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/wippyai/objrt/errors"
	"github.com/wippyai/objrt/vm"
)

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(context.Background(), vm.DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

// acquire returns a token that stays valid until the test ends.
func acquire(t *testing.T, rt *Runtime) Token {
	t.Helper()
	g, err := rt.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	t.Cleanup(g.Release)
	return g.Token()
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestGuard_ReleaseTwice(t *testing.T) {
	rt := newRuntime(t)
	g, err := rt.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	g.Release()
	g.Release()

	g2, ok := rt.TryAcquire()
	if !ok {
		t.Fatal("lock should be free after Release")
	}
	g2.Release()
}

func TestToken_Misuse(t *testing.T) {
	rt := newRuntime(t)
	other := newRuntime(t)

	g, err := rt.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	b := rt.Builtins(g.Token())
	stale := g.Token()
	g.Release()

	mustPanic(t, "zero token", func() { b.Int.Name(Token{}) })
	mustPanic(t, "stale token", func() { b.Int.Name(stale) })

	tok := acquire(t, other)
	mustPanic(t, "foreign token", func() { b.Int.Name(tok) })

	if stale.Valid() {
		t.Error("stale token reports valid")
	}
}

func TestTryAcquire_Held(t *testing.T) {
	rt := newRuntime(t)
	acquire(t, rt)
	if _, ok := rt.TryAcquire(); ok {
		t.Fatal("TryAcquire should fail while the lock is held")
	}
}

func TestAcquire_Closed(t *testing.T) {
	rt := newRuntime(t)
	if err := rt.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := rt.Acquire()
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLock, Kind: errors.KindClosed}) {
		t.Fatalf("Acquire after Close = %v, want closed error", err)
	}
	if err := rt.With(func(Token) error { return nil }); err == nil {
		t.Fatal("With after Close should fail")
	}
}

func TestType_Name(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	tests := []struct {
		typ  *Type
		want string
	}{
		{b.Object, "object"},
		{b.Type, "type"},
		{b.Int, "int"},
		{b.Bool, "bool"},
		{b.Str, "str"},
		{b.NoneType, "NoneType"},
		{b.ValueError, "ValueError"},
		{b.KeyError, "KeyError"},
	}
	for _, tt := range tests {
		if got := tt.typ.Name(tok); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

func TestType_NameLossy(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)

	p := tok.VM().NewType("Bad\xffName", nil, 0)
	if p == vm.Null {
		t.Fatalf("NewType failed: %v", ErrOccurred(tok))
	}
	typ := TypeFromOwnedPtr(tok, p)
	defer typ.Release(tok)

	if got := typ.Name(tok); got != "Bad�Name" {
		t.Errorf("Name() = %q, want %q", got, "Bad�Name")
	}
}

func heapType(t *testing.T, tok Token, name string, bases ...*Type) *Type {
	t.Helper()
	ptrs := make([]vm.Ptr, len(bases))
	for i, b := range bases {
		ptrs[i] = b.Ptr()
	}
	p := tok.VM().NewType(name, ptrs, 0)
	if p == vm.Null {
		e := ErrOccurred(tok)
		ClearErr(tok)
		t.Fatalf("NewType(%s) failed: %v", name, e)
	}
	typ := TypeFromOwnedPtr(tok, p)
	t.Cleanup(func() { typ.Release(tok) })
	return typ
}

func TestType_IsSubtypeOf(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	base := heapType(t, tok, "Base")
	mid := heapType(t, tok, "Mid", base)
	leaf := heapType(t, tok, "Leaf", mid)

	tests := []struct {
		name string
		a, b *Type
		want bool
	}{
		{"reflexive builtin", b.Int, b.Int, true},
		{"reflexive heap", leaf, leaf, true},
		{"bool is int", b.Bool, b.Int, true},
		{"int is object", b.Int, b.Object, true},
		{"bool is object", b.Bool, b.Object, true},
		{"object is not int", b.Object, b.Int, false},
		{"int is not bool", b.Int, b.Bool, false},
		{"leaf is mid", leaf, mid, true},
		{"leaf is base", leaf, base, true},
		{"leaf is object", leaf, b.Object, true},
		{"base is not leaf", base, leaf, false},
		{"int is not str", b.Int, b.Str, false},
		{"KeyError is LookupError", b.KeyError, b.LookupError, true},
		{"OverflowError is Exception", b.OverflowError, b.Exception, true},
		{"type is object", b.Type, b.Object, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IsSubtypeOf(tok, tt.b); got != tt.want {
				t.Errorf("%s.IsSubtypeOf(%s) = %v, want %v", tt.a.Name(tok), tt.b.Name(tok), got, tt.want)
			}
		})
	}
}

func TestType_EqualIsIdentity(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	one := heapType(t, tok, "Dup")
	two := heapType(t, tok, "Dup")
	if one.Name(tok) != two.Name(tok) {
		t.Fatal("names should match")
	}
	if one.Equal(two) {
		t.Error("distinct type objects with equal names must not be equal")
	}

	again := TypeFromPtr(tok, b.Int.Ptr())
	defer again.Release(tok)
	if !again.Equal(b.Int) {
		t.Error("handles to the same type object must be equal")
	}

	clone := one.Clone(tok)
	defer clone.Release(tok)
	if !clone.Equal(one) {
		t.Error("clone must equal the original")
	}
}

func TestType_CrossRuntime(t *testing.T) {
	rt := newRuntime(t)
	other := newRuntime(t)
	tok := acquire(t, rt)
	otherTok := acquire(t, other)
	b := rt.Builtins(tok)
	ob := other.Builtins(otherTok)

	// Fresh runtimes bootstrap identically, so the builtins share offsets.
	if b.Int.Ptr() != ob.Int.Ptr() {
		t.Fatalf("int at 0x%x and 0x%x, want the same offset", uint32(b.Int.Ptr()), uint32(ob.Int.Ptr()))
	}
	if b.Int.Equal(ob.Int) || ob.Int.Equal(b.Int) {
		t.Error("types of different runtimes must not be equal")
	}
	if !b.Int.Equal(b.Int) {
		t.Error("a type must equal itself")
	}

	five, err := ToObject(otherTok, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer five.Release(otherTok)
	mine, err := ToObject(tok, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer mine.Release(tok)

	mustPanic(t, "IsSubtypeOf foreign type", func() { b.Int.IsSubtypeOf(tok, ob.Object) })
	mustPanic(t, "IsInstance foreign object", func() { b.Int.IsInstance(tok, five) })
	mustPanic(t, "IsInstance foreign borrowed", func() { b.Int.IsInstance(tok, five.Borrow()) })
	mustPanic(t, "TypeOf foreign object", func() { TypeOf(tok, five) })
	mustPanic(t, "Eq foreign object", func() { mine.Eq(tok, five) })
	mustPanic(t, "ToObject foreign object", func() { _, _ = ToObject(tok, five) })

	if !b.Int.IsInstance(tok, mine) || !b.Int.IsSubtypeOf(tok, b.Object) {
		t.Error("same-runtime checks should still succeed")
	}
}

func TestType_CountNetZero(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	v := tok.VM()

	typ := heapType(t, tok, "Counted")
	before := v.RefCount(typ.Ptr())

	h := TypeFromPtr(tok, typ.Ptr())
	if got := v.RefCount(typ.Ptr()); got != before+1 {
		t.Fatalf("RefCount after TypeFromPtr = %d, want %d", got, before+1)
	}
	c := h.Clone(tok)
	if got := v.RefCount(typ.Ptr()); got != before+2 {
		t.Fatalf("RefCount after Clone = %d, want %d", got, before+2)
	}
	c.Release(tok)
	h.Release(tok)
	h.Release(tok)
	if got := v.RefCount(typ.Ptr()); got != before {
		t.Errorf("RefCount after release = %d, want %d", got, before)
	}

	mustPanic(t, "use after release", func() { h.Name(tok) })
}

func TestType_ReleaseFreesHeapType(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	live := rt.Live(tok)

	p := tok.VM().NewType("Transient", nil, 0)
	typ := TypeFromOwnedPtr(tok, p)
	if rt.Live(tok) <= live {
		t.Fatal("NewType should allocate")
	}
	typ.Release(tok)
	if rt.Live(tok) != live {
		t.Errorf("Live = %d, want %d", rt.Live(tok), live)
	}
}

func TestType_FromPtrChecked(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	if _, err := TypeFromPtrChecked(tok, vm.Null); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseHandle, Kind: errors.KindNullPointer}) {
		t.Errorf("null pointer: err = %v", err)
	}

	five, err := ToObject(tok, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer five.Release(tok)
	_, err = TypeFromPtrChecked(tok, five.Ptr())
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseHandle, Kind: errors.KindNotAType}) {
		t.Fatalf("int instance: err = %v", err)
	}
	if !strings.Contains(err.Error(), "int") {
		t.Errorf("error should name the actual type: %v", err)
	}

	if _, err := TypeFromPtrChecked(tok, vm.Ptr(0xfffff0)); err == nil {
		t.Error("pointer outside the heap should be refused")
	}

	// Once grown past four slots, a dict's entry buffer is a live block as
	// large as a type object whose header words are the first key and value.
	d, err := NewDict(tok)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Release(tok)
	if err := d.SetItem(tok, "a", strings.Repeat("A", 64)); err != nil {
		t.Fatal(err)
	}
	for i, k := range []string{"b", "c", "d", "e"} {
		if err := d.SetItem(tok, k, i); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := tok.VM().Memory().ReadU32(uint32(d.Ptr()) + 16)
	if err != nil {
		t.Fatal(err)
	}
	_, err = TypeFromPtrChecked(tok, vm.Ptr(entries))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseHandle, Kind: errors.KindNotAType}) {
		t.Errorf("dict entry buffer: err = %v", err)
	}

	typ, err := TypeFromPtrChecked(tok, b.Str.Ptr())
	if err != nil {
		t.Fatalf("str type refused: %v", err)
	}
	defer typ.Release(tok)
	if !typ.Equal(b.Str) {
		t.Error("checked handle should equal the builtin")
	}
}

func TestType_IsInstance(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	tests := []struct {
		value any
		typ   *Type
		want  bool
	}{
		{5, b.Int, true},
		{"x", b.Int, false},
		{"x", b.Str, true},
		{true, b.Int, true},
		{true, b.Bool, true},
		{7, b.Bool, false},
		{nil, b.NoneType, true},
		{nil, b.Object, true},
		{[]any{1, 2}, b.Tuple, true},
		{map[string]any{"a": 1}, b.Dict, true},
	}
	for _, tt := range tests {
		obj, err := ToObject(tok, tt.value)
		if err != nil {
			t.Fatalf("ToObject(%v): %v", tt.value, err)
		}
		if got := tt.typ.IsInstance(tok, obj); got != tt.want {
			t.Errorf("%s.IsInstance(%s) = %v, want %v", tt.typ.Name(tok), obj.Repr(tok), got, tt.want)
		}
		obj.Release(tok)
	}
}

func TestTypeOf(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	obj, err := ToObject(tok, "hello")
	if err != nil {
		t.Fatal(err)
	}
	defer obj.Release(tok)

	typ := obj.Type(tok)
	defer typ.Release(tok)
	if !typ.Equal(b.Str) {
		t.Errorf("TypeOf(\"hello\") = %s", typ.Name(tok))
	}

	meta := TypeOf(tok, b.Int)
	defer meta.Release(tok)
	if !meta.Equal(b.Type) {
		t.Errorf("TypeOf(int) = %s, want type", meta.Name(tok))
	}
}

func TestType_CallInt(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	res, err := b.Int.Call(tok, Args{"42"}, nil)
	if err != nil {
		t.Fatalf("int(\"42\") failed: %v", err)
	}
	defer res.Release(tok)
	got, err := res.Int64(tok)
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Errorf("int(\"42\") = %d", got)
	}
	if !b.Int.IsInstance(tok, res) {
		t.Error("result should be an int")
	}
}

func TestType_CallIntFailure(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	res, err := b.Int.Call(tok, Args{"abc"}, nil)
	if res != nil {
		t.Fatalf("int(\"abc\") returned %s", res.Repr(tok))
	}

	var fe *Err
	if !stderrors.As(err, &fe) {
		t.Fatalf("error %T is not *Err", err)
	}
	defer fe.Release(tok)

	if fe.TypeName() != "ValueError" {
		t.Errorf("TypeName = %q", fe.TypeName())
	}
	if want := "invalid literal for int() with base 10: 'abc'"; fe.Message() != want {
		t.Errorf("Message = %q, want %q", fe.Message(), want)
	}
	if !fe.Matches(tok, b.ValueError) || !fe.Matches(tok, b.Exception) {
		t.Error("should match ValueError and its bases")
	}
	if fe.Matches(tok, b.TypeError) {
		t.Error("should not match TypeError")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindForeignException}) {
		t.Error("should unwrap to a foreign exception error")
	}

	pending := ErrOccurred(tok)
	if pending == nil {
		t.Fatal("indicator should still be set")
	}
	defer pending.Release(tok)
	if pending.TypeName() != "ValueError" {
		t.Errorf("pending = %v", pending)
	}

	ClearErr(tok)
	if ErrOccurred(tok) != nil {
		t.Error("ClearErr should clear the indicator")
	}
}

func TestType_CallKeywords(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	kw, err := DictFrom(tok, map[string]any{"base": 16})
	if err != nil {
		t.Fatal(err)
	}
	defer kw.Release(tok)

	res, err := b.Int.Call(tok, Args{"ff"}, kw)
	if err != nil {
		t.Fatalf("int('ff', base=16): %v", err)
	}
	defer res.Release(tok)
	if got, _ := res.Int64(tok); got != 255 {
		t.Errorf("int('ff', base=16) = %d", got)
	}
}

func TestType_CallNullVersusEmptyKeywords(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	v := tok.VM()

	slot := v.RegisterConstructor(func(v *vm.VM, typ, args, kwargs vm.Ptr) vm.Ptr {
		return v.NewBool(kwargs == vm.Null)
	})
	probe := TypeFromOwnedPtr(tok, v.NewType("Probe", nil, slot))
	defer probe.Release(tok)

	res, err := probe.Call(tok, NoArgs{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsTrue(tok) {
		t.Error("nil kwargs should reach the constructor as no mapping")
	}
	res.Release(tok)

	empty, err := NewDict(tok)
	if err != nil {
		t.Fatal(err)
	}
	defer empty.Release(tok)
	res, err = probe.Call(tok, NoArgs{}, empty)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsTrue(tok) {
		t.Error("empty kwargs should reach the constructor as a mapping")
	}
	res.Release(tok)
}

func TestType_CallCountsBalance(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)
	live := rt.Live(tok)

	point := heapType(t, tok, "Point")
	before := tok.VM().RefCount(point.Ptr())
	inst, err := point.Call(tok, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !point.IsInstance(tok, inst) || !b.Object.IsInstance(tok, inst) {
		t.Error("instance checks failed")
	}
	inst.Release(tok)
	if got := tok.VM().RefCount(point.Ptr()); got != before {
		t.Errorf("type RefCount = %d, want %d", got, before)
	}

	_, err = b.Object.Call(tok, Args{1}, nil)
	if err == nil {
		t.Fatal("object(1) should fail")
	}
	err.(*Err).Release(tok)
	ClearErr(tok)

	if got := rt.Live(tok); got != live+1 {
		t.Errorf("Live = %d, want %d", got, live+1)
	}
}

func TestType_CallThreeArgType(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	res, err := b.Type.Call(tok, Args{"Made", []any{b.Int}, map[string]any{}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Release(tok)

	made, err := TypeFromPtrChecked(tok, res.Ptr())
	if err != nil {
		t.Fatal(err)
	}
	defer made.Release(tok)
	if made.Name(tok) != "Made" || !made.IsSubtypeOf(tok, b.Int) {
		t.Errorf("type('Made', (int,), {}) = %s", res.Repr(tok))
	}

	mro := made.MRO(tok)
	var names []string
	for _, m := range mro {
		names = append(names, m.Name(tok))
		m.Release(tok)
	}
	if got := strings.Join(names, " "); got != "Made int object" {
		t.Errorf("MRO = %s", got)
	}
}

func TestType_Metaclass(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	b := rt.Builtins(tok)

	res, err := b.Type.Call(tok, Args{"Meta", []any{b.Type}, map[string]any{}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	meta, err := TypeFromPtrChecked(tok, res.Ptr())
	res.Release(tok)
	if err != nil {
		t.Fatal(err)
	}
	defer meta.Release(tok)

	res, err = meta.Call(tok, Args{"X", []any{}, map[string]any{}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Release(tok)
	x, err := TypeFromPtrChecked(tok, res.Ptr())
	if err != nil {
		t.Fatalf("Meta('X', (), {}) is not a type: %v", err)
	}
	defer x.Release(tok)

	xt := TypeOf(tok, x)
	defer xt.Release(tok)
	if !xt.Equal(meta) {
		t.Errorf("type(X) = %s, want Meta", xt.Name(tok))
	}
	if xt.Equal(b.Type) {
		t.Error("type(X) must not be type itself")
	}
	if !meta.IsInstance(tok, x) || !b.Type.IsInstance(tok, x) {
		t.Error("X should be an instance of Meta and of type")
	}
	if x.Name(tok) != "X" || !x.IsSubtypeOf(tok, b.Object) {
		t.Errorf("X = %s", res.Repr(tok))
	}
}

func TestToObject(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)

	tests := []struct {
		value any
		repr  string
	}{
		{nil, "None"},
		{true, "True"},
		{int8(-3), "-3"},
		{uint32(7), "7"},
		{uint64(1 << 40), "1099511627776"},
		{"it's", `"it's"`},
		{[]byte("b"), "'b'"},
		{[]any{1, "a"}, "(1, 'a')"},
		{[]any{1}, "(1,)"},
		{map[string]any{"b": 2, "a": 1}, "{'a': 1, 'b': 2}"},
	}
	for _, tt := range tests {
		obj, err := ToObject(tok, tt.value)
		if err != nil {
			t.Fatalf("ToObject(%v): %v", tt.value, err)
		}
		if got := obj.Repr(tok); got != tt.repr {
			t.Errorf("ToObject(%v).Repr() = %q, want %q", tt.value, got, tt.repr)
		}
		obj.Release(tok)
	}
}

func TestToObject_Errors(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)
	live := rt.Live(tok)

	_, err := ToObject(tok, make(chan int))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConvert, Kind: errors.KindTypeMismatch}) {
		t.Errorf("chan: err = %v", err)
	}
	var mismatch *errors.Error
	if !stderrors.As(err, &mismatch) || mismatch.GoType != "chan int" || mismatch.ForeignType != "object" {
		t.Errorf("chan: err = %#v, want Go type chan int and foreign type object", err)
	}
	_, err = ToObject(tok, uint64(1<<63))
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConvert, Kind: errors.KindOverflow}) {
		t.Errorf("uint64 overflow: err = %v", err)
	}
	_, err = ToObject(tok, []any{1, 2.5})
	if err == nil || !strings.Contains(err.Error(), "argument 1") {
		t.Errorf("nested float: err = %v", err)
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseConvert, Kind: errors.KindInvalidInput}) {
		t.Errorf("nested float: err = %v, want invalid input", err)
	}
	var wrapped *errors.Error
	if !stderrors.As(err, &wrapped) || wrapped.Cause == nil ||
		!stderrors.Is(wrapped.Cause, &errors.Error{Phase: errors.PhaseConvert, Kind: errors.KindTypeMismatch}) {
		t.Errorf("nested float: cause = %v, want the element's type mismatch", err)
	}
	if rt.Live(tok) != live {
		t.Errorf("failed conversions leaked: Live %d -> %d", live, rt.Live(tok))
	}
}

func TestObject_Extract(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)

	s, _ := ToObject(tok, "text")
	defer s.Release(tok)
	n, _ := ToObject(tok, 9)
	defer n.Release(tok)

	if got, err := s.Text(tok); err != nil || got != "text" {
		t.Errorf("Text() = %q, %v", got, err)
	}
	if _, err := s.Int64(tok); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseExtract, Kind: errors.KindTypeMismatch}) {
		t.Errorf("Int64 on str: err = %v", err)
	}
	if _, err := n.Text(tok); err == nil {
		t.Error("Text on int should fail")
	}

	other, _ := ToObject(tok, 9)
	defer other.Release(tok)
	if !n.Eq(tok, other) {
		t.Error("equal ints should compare equal")
	}
	if n.Eq(tok, s) {
		t.Error("int and str should not compare equal")
	}

	none := rt.None(tok)
	defer none.Release(tok)
	if !none.IsNone(tok) || n.IsNone(tok) {
		t.Error("IsNone mismatch")
	}
}

func TestTuple(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)

	tup, err := NewTuple(tok, 1, "two")
	if err != nil {
		t.Fatal(err)
	}
	defer tup.Release(tok)

	if tup.Len(tok) != 2 {
		t.Fatalf("Len = %d", tup.Len(tok))
	}
	if !tup.Get(tok, 5).IsNull() {
		t.Error("out-of-range Get should be null")
	}
	item := tup.Get(tok, 1).Owned(tok)
	defer item.Release(tok)
	if got, _ := item.Text(tok); got != "two" {
		t.Errorf("item 1 = %q", got)
	}

	// A Tuple passed as IntoTuple is the argument list itself.
	b := rt.Builtins(tok)
	if _, err := b.Tuple.Call(tok, tup, nil); err == nil {
		t.Fatal("tuple(1, 'two') should fail")
	} else if !strings.Contains(err.Error(), "at most 1 argument, got 2") {
		t.Errorf("err = %v", err)
	}
	ClearErr(tok)

	res, err := b.Tuple.Call(tok, Args{tup}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Release(tok)
	if res.Ptr() != tup.Ptr() {
		t.Errorf("tuple(tup) = %s, want the same tuple", res.Repr(tok))
	}
}

func TestDict(t *testing.T) {
	rt := newRuntime(t)
	tok := acquire(t, rt)

	d, err := NewDict(tok)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Release(tok)

	if err := d.SetItem(tok, "a", 1); err != nil {
		t.Fatal(err)
	}
	if err := d.SetItem(tok, "a", 2); err != nil {
		t.Fatal(err)
	}
	if err := d.SetItem(tok, "b", make(chan int)); err == nil {
		t.Error("unsupported value should fail")
	}
	if d.Len(tok) != 1 {
		t.Errorf("Len = %d, want 1", d.Len(tok))
	}
	got, ok := d.Get(tok, "a")
	if !ok {
		t.Fatal("key a missing")
	}
	if x, _ := got.Owned(tok).Int64(tok); x != 2 {
		t.Errorf("d['a'] = %d", x)
	}
	if _, ok := d.Get(tok, "zzz"); ok {
		t.Error("missing key reported present")
	}
}

func TestReleasePool_DrainedOnAcquire(t *testing.T) {
	rt := newRuntime(t)

	var p vm.Ptr
	err := rt.With(func(tok Token) error {
		p = tok.VM().NewType("Pooled", nil, 0)
		tok.VM().IncRef(p)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	rt.pool.push(p)
	if rt.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", rt.Pending())
	}

	tok := acquire(t, rt)
	if rt.Pending() != 0 {
		t.Errorf("Pending after Acquire = %d", rt.Pending())
	}
	if got := tok.VM().RefCount(p); got != 1 {
		t.Errorf("RefCount = %d, want 1", got)
	}
	tok.VM().DecRef(p)
}

func TestReleasePool_CollectedHandle(t *testing.T) {
	rt := newRuntime(t)

	var p vm.Ptr
	var before uint32
	_ = rt.With(func(tok Token) error {
		b := rt.Builtins(tok)
		raw := tok.VM().NewType("Leaky", []vm.Ptr{b.Object.Ptr()}, 0)
		p = raw
		keep := TypeFromOwnedPtr(tok, raw)
		t.Cleanup(func() { _ = rt.With(func(tok Token) error { keep.Release(tok); return nil }) })
		before = tok.VM().RefCount(p)

		func() {
			_ = TypeFromPtr(tok, p)
		}()
		return nil
	})

	deadline := time.Now().Add(2 * time.Second)
	for rt.Pending() == 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if rt.Pending() == 0 {
		t.Skip("collector did not run the cleanup in time")
	}

	_ = rt.With(func(tok Token) error {
		if got := tok.VM().RefCount(p); got != before {
			t.Errorf("RefCount = %d, want %d", got, before)
		}
		return nil
	})
}
