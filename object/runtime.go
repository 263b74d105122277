package object

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/objrt/errors"
	"github.com/wippyai/objrt/vm"
)

// Runtime owns one object runtime and its execution lock.
type Runtime struct {
	vm   *vm.VM
	pool releasePool
}

// New starts a runtime with the given configuration.
func New(ctx context.Context, cfg vm.Config) (*Runtime, error) {
	v, err := vm.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	Logger().Debug("runtime started",
		zap.Uint32("initial_pages", cfg.InitialPages),
		zap.Uint32("max_pages", cfg.MaxPages))
	return &Runtime{vm: v}, nil
}

// Close shuts the runtime down. It takes the execution lock, so it must not
// be called while the caller holds a Guard. Handles that are still alive
// become unusable.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.vm.Lock()
	defer rt.vm.Unlock()
	if rt.vm.Closed() {
		return nil
	}
	if n := len(rt.pool.take()); n > 0 {
		Logger().Debug("dropping pending releases at close", zap.Int("count", n))
	}
	return rt.vm.Close(ctx)
}

// Acquire blocks until the execution lock is free and takes it. Counts
// queued by collected handles are released before it returns.
func (rt *Runtime) Acquire() (*Guard, error) {
	rt.vm.Lock()
	if rt.vm.Closed() {
		rt.vm.Unlock()
		return nil, errors.Closed(errors.PhaseLock, "runtime")
	}
	rt.drain()
	return &Guard{rt: rt}, nil
}

// TryAcquire is Acquire without blocking. It reports false when the lock is
// held elsewhere or the runtime is closed.
func (rt *Runtime) TryAcquire() (*Guard, bool) {
	if !rt.vm.TryLock() {
		return nil, false
	}
	if rt.vm.Closed() {
		rt.vm.Unlock()
		return nil, false
	}
	rt.drain()
	return &Guard{rt: rt}, true
}

// With runs fn while holding the execution lock.
func (rt *Runtime) With(fn func(tok Token) error) error {
	g, err := rt.Acquire()
	if err != nil {
		return err
	}
	defer g.Release()
	return fn(g.Token())
}

func (rt *Runtime) drain() {
	pending := rt.pool.take()
	if len(pending) == 0 {
		return
	}
	Logger().Debug("releasing collected handles", zap.Int("count", len(pending)))
	for _, p := range pending {
		rt.vm.DecRef(p)
	}
}

// Pending returns the number of counts waiting for the next Acquire.
func (rt *Runtime) Pending() int {
	return rt.pool.len()
}

// VM returns the underlying runtime for use with the raw primitives. The
// token proves the lock is held; the returned value must not be used after
// the token's Guard is released.
func (tok Token) VM() *vm.VM {
	tok.check(nil)
	return tok.g.rt.vm
}

// Live returns the number of objects allocated in the runtime.
func (rt *Runtime) Live(tok Token) int {
	tok.check(rt)
	return rt.vm.Live()
}

// None returns the None singleton.
func (rt *Runtime) None(tok Token) *Object {
	tok.check(rt)
	return ObjectFromPtr(tok, rt.vm.None())
}

// Builtins holds handles to the builtin types.
type Builtins struct {
	Object        *Type
	Type          *Type
	Int           *Type
	Bool          *Type
	Str           *Type
	Tuple         *Type
	Dict          *Type
	NoneType      *Type
	BaseException *Type
	Exception     *Type
	TypeError     *Type
	ValueError    *Type
	ArithmeticErr *Type
	OverflowError *Type
	LookupError   *Type
	KeyError      *Type
	MemoryError   *Type
	SystemError   *Type
}

// Builtins returns fresh handles to the builtin types. The types are
// immortal, so releasing the handles is optional.
func (rt *Runtime) Builtins(tok Token) *Builtins {
	tok.check(rt)
	b := rt.vm.Builtins()
	return &Builtins{
		Object:        TypeFromPtr(tok, b.Object),
		Type:          TypeFromPtr(tok, b.Type),
		Int:           TypeFromPtr(tok, b.Int),
		Bool:          TypeFromPtr(tok, b.Bool),
		Str:           TypeFromPtr(tok, b.Str),
		Tuple:         TypeFromPtr(tok, b.Tuple),
		Dict:          TypeFromPtr(tok, b.Dict),
		NoneType:      TypeFromPtr(tok, b.NoneType),
		BaseException: TypeFromPtr(tok, b.BaseException),
		Exception:     TypeFromPtr(tok, b.Exception),
		TypeError:     TypeFromPtr(tok, b.TypeError),
		ValueError:    TypeFromPtr(tok, b.ValueError),
		ArithmeticErr: TypeFromPtr(tok, b.Arithmetic),
		OverflowError: TypeFromPtr(tok, b.OverflowError),
		LookupError:   TypeFromPtr(tok, b.LookupError),
		KeyError:      TypeFromPtr(tok, b.KeyError),
		MemoryError:   TypeFromPtr(tok, b.MemoryError),
		SystemError:   TypeFromPtr(tok, b.SystemError),
	}
}

// All returns the builtin types in bootstrap order.
func (b *Builtins) All() []*Type {
	return []*Type{
		b.Object, b.Type, b.Int, b.Bool, b.Str, b.Tuple, b.Dict, b.NoneType,
		b.BaseException, b.Exception, b.TypeError, b.ValueError, b.ArithmeticErr,
		b.OverflowError, b.LookupError, b.KeyError, b.MemoryError, b.SystemError,
	}
}

// Lookup finds a builtin type by name.
func (b *Builtins) Lookup(tok Token, name string) (*Type, error) {
	for _, t := range b.All() {
		if t.Name(tok) == name {
			return t, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseHandle, "builtin type", name)
}
