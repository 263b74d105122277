package object

import (
	"fmt"

	"github.com/wippyai/objrt/errors"
	"github.com/wippyai/objrt/vm"
)

// Object is an owned handle to any foreign object.
type Object struct {
	ref *Ref
}

// ObjectFromPtr takes a new count on p, which must be a live object.
func ObjectFromPtr(tok Token, p vm.Ptr) *Object {
	return &Object{ref: NewRef(tok, p)}
}

// ObjectFromOwnedPtr adopts a count the caller already owns.
func ObjectFromOwnedPtr(tok Token, p vm.Ptr) *Object {
	return &Object{ref: adopt(tok.Runtime(), p)}
}

func (o *Object) Ptr() vm.Ptr {
	return o.ref.Ptr()
}

func (o *Object) owner() *Runtime { return o.ref.rt }

// Type returns the object's type.
func (o *Object) Type(tok Token) *Type {
	return TypeOf(tok, o)
}

// Str renders the object like str().
func (o *Object) Str(tok Token) string {
	tok.check(o.ref.rt)
	return decodeLossy([]byte(o.ref.rt.vm.Str(o.Ptr())))
}

// Repr renders the object like repr().
func (o *Object) Repr(tok Token) string {
	tok.check(o.ref.rt)
	return decodeLossy([]byte(o.ref.rt.vm.Repr(o.Ptr())))
}

// Int64 extracts the value of an int or bool.
func (o *Object) Int64(tok Token) (int64, error) {
	tok.check(o.ref.rt)
	v := o.ref.rt.vm
	x, ok := v.IntValue(o.Ptr())
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseExtract, "int64", o.typeName())
	}
	return x, nil
}

// Text extracts the value of a str.
func (o *Object) Text(tok Token) (string, error) {
	tok.check(o.ref.rt)
	v := o.ref.rt.vm
	s, ok := v.StrValue(o.Ptr())
	if !ok {
		return "", errors.TypeMismatch(errors.PhaseExtract, "string", o.typeName())
	}
	return decodeLossy(s), nil
}

// Eq compares by value the way the runtime does.
func (o *Object) Eq(tok Token, other Pointer) bool {
	tok.check(o.ref.rt)
	checkOwner(tok, other)
	return o.ref.rt.vm.ObjectEq(o.Ptr(), other.Ptr())
}

// IsNone reports whether the object is None.
func (o *Object) IsNone(tok Token) bool {
	tok.check(o.ref.rt)
	return o.ref.rt.vm.IsNone(o.Ptr())
}

// IsTrue applies the runtime's truth rules.
func (o *Object) IsTrue(tok Token) bool {
	tok.check(o.ref.rt)
	return o.ref.rt.vm.IsTrue(o.Ptr())
}

func (o *Object) Release(tok Token) {
	o.ref.Release(tok)
}

func (o *Object) Clone(tok Token) *Object {
	return &Object{ref: o.ref.Clone(tok)}
}

// Borrow returns a view of the object.
func (o *Object) Borrow() Borrowed {
	return o.ref.Borrow()
}

func (o *Object) String() string {
	if o.ref.Released() {
		return "<released object>"
	}
	return fmt.Sprintf("<object at 0x%x>", uint32(o.ref.ptr))
}

// typeName reads the raw type name. Caller holds the lock.
func (o *Object) typeName() string {
	v := o.ref.rt.vm
	return decodeLossy(v.ReadCString(v.TypeName(v.TypeOf(o.Ptr()))))
}
