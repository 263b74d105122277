package object

import (
	"fmt"
	"runtime"

	"github.com/wippyai/objrt/vm"
)

// Pointer is anything that names a foreign object.
type Pointer interface {
	Ptr() vm.Ptr
}

// owned is implemented by the handles of this package, which know the
// Runtime their pointer belongs to.
type owned interface {
	owner() *Runtime
}

// checkOwner panics when p is a handle from a Runtime other than tok's.
// Pointers of other implementations are taken on trust.
func checkOwner(tok Token, p Pointer) {
	h, ok := p.(owned)
	if !ok {
		return
	}
	if rt := h.owner(); rt != nil && rt != tok.Runtime() {
		panic("object: handle belongs to a different Runtime")
	}
}

// Ref owns one count on a foreign object.
type Ref struct {
	rt       *Runtime
	ptr      vm.Ptr
	cleanup  runtime.Cleanup
	released bool
}

// adopt wraps a count the caller already owns.
func adopt(rt *Runtime, p vm.Ptr) *Ref {
	r := &Ref{rt: rt, ptr: p}
	r.cleanup = runtime.AddCleanup(r, rt.pool.push, p)
	return r
}

// NewRef takes a new count on p.
func NewRef(tok Token, p vm.Ptr) *Ref {
	rt := tok.Runtime()
	rt.vm.IncRef(p)
	return adopt(rt, p)
}

// Ptr returns the object the reference points at. It panics after Release.
func (r *Ref) Ptr() vm.Ptr {
	if r.released {
		panic("object: use of released reference")
	}
	return r.ptr
}

func (r *Ref) owner() *Runtime { return r.rt }

// Released reports whether Release has been called.
func (r *Ref) Released() bool {
	return r.released
}

// Release gives the count back. Later calls do nothing.
func (r *Ref) Release(tok Token) {
	tok.check(r.rt)
	if r.released {
		return
	}
	r.released = true
	r.cleanup.Stop()
	r.rt.vm.DecRef(r.ptr)
}

// Clone takes another count on the same object.
func (r *Ref) Clone(tok Token) *Ref {
	tok.check(r.rt)
	p := r.Ptr()
	r.rt.vm.IncRef(p)
	return adopt(r.rt, p)
}

// Borrow returns a view without a count of its own.
func (r *Ref) Borrow() Borrowed {
	return Borrowed{rt: r.rt, ptr: r.Ptr()}
}

func (r *Ref) String() string {
	if r.released {
		return "<released>"
	}
	return fmt.Sprintf("<ref 0x%x>", uint32(r.ptr))
}

// Borrowed is a view of an object owned by someone else. It is only valid
// while the lock is held and the owner keeps the object alive.
type Borrowed struct {
	rt  *Runtime
	ptr vm.Ptr
}

// Ptr returns the viewed object.
func (b Borrowed) Ptr() vm.Ptr {
	return b.ptr
}

func (b Borrowed) owner() *Runtime { return b.rt }

// IsNull reports whether the view is empty.
func (b Borrowed) IsNull() bool {
	return b.ptr == vm.Null
}

// Owned upgrades the view to an Object with its own count.
func (b Borrowed) Owned(tok Token) *Object {
	tok.check(b.rt)
	return ObjectFromPtr(tok, b.ptr)
}

// disown hands the count to the caller without decrementing it. The handle
// is released afterwards.
func (r *Ref) disown() vm.Ptr {
	p := r.Ptr()
	r.released = true
	r.cleanup.Stop()
	return p
}
