package vm

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/objrt/errors"
	"github.com/wippyai/objrt/heap"
)

// Config configures a VM.
type Config struct {
	// InitialPages is the number of 64KiB pages the heap starts with.
	InitialPages uint32
	// MaxPages caps heap growth. Allocation beyond it raises MemoryError.
	MaxPages uint32
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		InitialPages: 1,
		MaxPages:     1024,
	}
}

// Builtins holds the builtin type objects. All of them are immortal.
type Builtins struct {
	Object        Ptr
	Type          Ptr
	Int           Ptr
	Bool          Ptr
	Str           Ptr
	Tuple         Ptr
	Dict          Ptr
	NoneType      Ptr
	BaseException Ptr
	Exception     Ptr
	TypeError     Ptr
	ValueError    Ptr
	Arithmetic    Ptr
	OverflowError Ptr
	LookupError   Ptr
	KeyError      Ptr
	MemoryError   Ptr
	SystemError   Ptr
}

// VM is one instance of the object runtime.
type VM struct {
	lock      sync.Mutex
	obsMu     sync.RWMutex
	heap      *heap.Heap
	mem       *heap.Memory
	observers []Observer
	ctors     []Constructor
	builtins  Builtins
	none      Ptr
	trueObj   Ptr
	falseObj  Ptr
	excType   Ptr
	excValue  Ptr
	live      int
	closed    bool
}

// New opens a heap and bootstraps the builtin types.
func New(ctx context.Context, cfg Config) (*VM, error) {
	h, err := heap.Open(ctx, heap.Options{
		InitialPages: cfg.InitialPages,
		MaxPages:     cfg.MaxPages,
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindOutOfMemory, err, "open heap")
	}

	v := &VM{
		heap:  h,
		mem:   h.Memory(),
		ctors: []Constructor{nil},
	}
	if err := v.bootstrap(); err != nil {
		_ = h.Close(ctx)
		return nil, err
	}

	Logger().Debug("vm ready",
		zap.Int("live_objects", v.live),
		zap.Uint32("heap_bytes", v.heap.Allocator().InUse()))
	return v, nil
}

// Close releases the heap. Pointers obtained from the VM are invalid after.
func (v *VM) Close(ctx context.Context) error {
	if v.closed {
		return nil
	}
	v.closed = true
	return v.heap.Close(ctx)
}

// Closed reports whether Close has been called.
func (v *VM) Closed() bool {
	return v.closed
}

// Lock acquires the execution lock.
func (v *VM) Lock() {
	v.lock.Lock()
}

// TryLock acquires the execution lock if it is free.
func (v *VM) TryLock() bool {
	return v.lock.TryLock()
}

// Unlock releases the execution lock.
func (v *VM) Unlock() {
	v.lock.Unlock()
}

// Builtins returns the builtin type objects.
func (v *VM) Builtins() Builtins {
	return v.builtins
}

// None returns the None singleton (borrowed).
func (v *VM) None() Ptr { return v.none }

// True returns the True singleton (borrowed).
func (v *VM) True() Ptr { return v.trueObj }

// False returns the False singleton (borrowed).
func (v *VM) False() Ptr { return v.falseObj }

// Live returns the number of objects currently allocated, immortals included.
func (v *VM) Live() int {
	return v.live
}

// HeapInUse returns the number of heap bytes allocated.
func (v *VM) HeapInUse() uint32 {
	return v.heap.Allocator().InUse()
}

// Memory exposes the linear memory the runtime lives in.
func (v *VM) Memory() *heap.Memory {
	return v.mem
}

type builtinSpec struct {
	slot   *Ptr
	name   string
	base   *Ptr
	layout Layout
	flags  uint32
	ctor   Constructor
}

func (v *VM) bootstrap() error {
	b := &v.builtins
	specs := []builtinSpec{
		{&b.Object, "object", nil, LayoutObject, FlagBaseType, objectNew},
		{&b.Type, "type", &b.Object, LayoutType, FlagBaseType, typeNew},
		{&b.Int, "int", &b.Object, LayoutInt, FlagBaseType, intNew},
		{&b.Bool, "bool", &b.Int, LayoutInt, 0, boolNew},
		{&b.Str, "str", &b.Object, LayoutStr, FlagBaseType, strNew},
		{&b.Tuple, "tuple", &b.Object, LayoutTuple, FlagBaseType, tupleNew},
		{&b.Dict, "dict", &b.Object, LayoutDict, FlagBaseType, dictNew},
		{&b.NoneType, "NoneType", &b.Object, LayoutObject, 0, noneNew},
		{&b.BaseException, "BaseException", &b.Object, LayoutException, FlagBaseType, exceptionNew},
		{&b.Exception, "Exception", &b.BaseException, LayoutException, FlagBaseType, nil},
		{&b.TypeError, "TypeError", &b.Exception, LayoutException, FlagBaseType, nil},
		{&b.ValueError, "ValueError", &b.Exception, LayoutException, FlagBaseType, nil},
		{&b.Arithmetic, "ArithmeticError", &b.Exception, LayoutException, FlagBaseType, nil},
		{&b.OverflowError, "OverflowError", &b.Arithmetic, LayoutException, FlagBaseType, nil},
		{&b.LookupError, "LookupError", &b.Exception, LayoutException, FlagBaseType, nil},
		{&b.KeyError, "KeyError", &b.LookupError, LayoutException, FlagBaseType, nil},
		{&b.MemoryError, "MemoryError", &b.Exception, LayoutException, FlagBaseType, nil},
		{&b.SystemError, "SystemError", &b.Exception, LayoutException, FlagBaseType, nil},
	}

	// Type objects reference the type "type" in their header, so every type
	// object is allocated before any header is written.
	for _, s := range specs {
		p, err := v.heap.Alloc(typeObjectSize, 8)
		if err != nil {
			return errors.Wrap(errors.PhaseRuntime, errors.KindOutOfMemory, err, "bootstrap "+s.name)
		}
		*s.slot = Ptr(p)
		v.live++
	}

	for _, s := range specs {
		t := *s.slot
		v.setU32(t, offRefcnt, immortalRefcnt)
		v.setPtr(t, offType, b.Type)

		name, err := v.allocCString(s.name)
		if err != nil {
			return err
		}
		v.setPtr(t, offTypeName, name)
		v.setU32(t, offTypeFlags, s.flags)
		v.setU32(t, offTypeLayout, uint32(s.layout))
		if s.ctor != nil {
			v.setU32(t, offTypeCtor, v.RegisterConstructor(s.ctor))
		}

		var chain []Ptr
		chain = append(chain, t)
		if s.base != nil {
			v.setPtr(t, offTypeBase, *s.base)
			chain = append(chain, v.MRO(*s.base)...)
		}
		mro, err := v.allocMRO(chain)
		if err != nil {
			return err
		}
		v.setPtr(t, offTypeMRO, mro)
	}

	// bases tuples need the tuple type to exist
	for _, s := range specs {
		t := *s.slot
		var bases []Ptr
		if s.base != nil {
			bases = []Ptr{*s.base}
		}
		tup := v.NewTuple(len(bases))
		if tup == Null {
			return errors.OutOfMemory(errors.PhaseRuntime, typeObjectSize)
		}
		for i, base := range bases {
			v.TupleSetItem(tup, i, base)
		}
		v.setU32(tup, offRefcnt, immortalRefcnt)
		v.setPtr(t, offTypeBases, tup)
	}

	v.none = v.alloc(b.NoneType, instanceObjectSize)
	v.trueObj = v.alloc(b.Bool, intObjectSize)
	v.falseObj = v.alloc(b.Bool, intObjectSize)
	if v.none == Null || v.trueObj == Null || v.falseObj == Null {
		return errors.OutOfMemory(errors.PhaseRuntime, intObjectSize)
	}
	v.setI64(v.trueObj, offIntValue, 1)
	for _, p := range []Ptr{v.none, v.trueObj, v.falseObj} {
		v.setU32(p, offRefcnt, immortalRefcnt)
	}
	return nil
}

// allocCString copies s into a fresh NUL-terminated buffer.
func (v *VM) allocCString(s string) (Ptr, error) {
	p, err := v.heap.Alloc(uint32(len(s))+1, 1)
	if err != nil {
		return Null, err
	}
	v.setBytes(Ptr(p), 0, []byte(s))
	return Ptr(p), nil
}

func (v *VM) allocMRO(types []Ptr) (Ptr, error) {
	p, err := v.heap.Alloc(4+4*uint32(len(types)), 4)
	if err != nil {
		return Null, err
	}
	v.setU32(Ptr(p), 0, uint32(len(types)))
	for i, t := range types {
		v.setPtr(Ptr(p), 4+4*uint32(i), t)
	}
	return Ptr(p), nil
}
