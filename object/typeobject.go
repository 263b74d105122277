package object

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/objrt/errors"
	"github.com/wippyai/objrt/vm"
)

// Type is an owned handle to a foreign type object. Two handles are equal
// when they point at the same type object, whatever the names say.
type Type struct {
	ref *Ref
}

// TypeFromPtr takes a new count on p. The caller guarantees p is a live
// type object; nothing is checked unless built with the objrtdebug tag.
func TypeFromPtr(tok Token, p vm.Ptr) *Type {
	assertType(tok, p)
	return &Type{ref: NewRef(tok, p)}
}

// TypeFromOwnedPtr adopts a count on p the caller already owns. The same
// contract as TypeFromPtr applies.
func TypeFromOwnedPtr(tok Token, p vm.Ptr) *Type {
	assertType(tok, p)
	return &Type{ref: adopt(tok.Runtime(), p)}
}

// TypeFromPtrChecked is TypeFromPtr for pointers of unknown provenance. It
// refuses null pointers and anything that is not a live type object.
func TypeFromPtrChecked(tok Token, p vm.Ptr) (*Type, error) {
	v := tok.VM()
	if p == vm.Null {
		return nil, errors.NullPointer(errors.PhaseHandle, "type")
	}
	if !v.CheckType(p) {
		actual := "invalid object"
		if v.Valid(p) && v.Valid(v.TypeOf(p)) && v.CheckType(v.TypeOf(p)) {
			actual = decodeLossy(v.ReadCString(v.TypeName(v.TypeOf(p))))
		}
		return nil, errors.NotAType(errors.PhaseHandle, uint32(p), actual)
	}
	return TypeFromPtr(tok, p), nil
}

func assertType(tok Token, p vm.Ptr) {
	if !checkPointers {
		return
	}
	v := tok.VM()
	if p == vm.Null {
		panic(errors.NullPointer(errors.PhaseHandle, "type"))
	}
	if !v.CheckType(p) {
		panic(errors.NotAType(errors.PhaseHandle, uint32(p), "unknown"))
	}
}

// TypeOf returns the type of obj.
func TypeOf(tok Token, obj Pointer) *Type {
	checkOwner(tok, obj)
	v := tok.VM()
	return &Type{ref: NewRef(tok, v.TypeOf(obj.Ptr()))}
}

// Ptr returns the type object's pointer. It panics after Release.
func (t *Type) Ptr() vm.Ptr {
	return t.ref.Ptr()
}

func (t *Type) owner() *Runtime { return t.ref.rt }

// Name returns the type's name. Bytes that are not valid UTF-8 are
// replaced, so Name never fails.
func (t *Type) Name(tok Token) string {
	tok.check(t.ref.rt)
	v := t.ref.rt.vm
	return decodeLossy(v.ReadCString(v.TypeName(t.Ptr())))
}

// IsSubtypeOf reports whether t is other or derives from it. Both types
// must belong to tok's Runtime.
func (t *Type) IsSubtypeOf(tok Token, other *Type) bool {
	tok.check(t.ref.rt)
	checkOwner(tok, other)
	return t.ref.rt.vm.TypeIsSubtype(t.Ptr(), other.Ptr())
}

// IsInstance reports whether obj is an instance of t or of a subtype. A
// handle to an object of another Runtime panics like a foreign token.
func (t *Type) IsInstance(tok Token, obj Pointer) bool {
	tok.check(t.ref.rt)
	checkOwner(tok, obj)
	return t.ref.rt.vm.ObjectTypeCheck(obj.Ptr(), t.Ptr())
}

// Call constructs an instance of t. A nil kwargs passes no mapping at all.
// On failure the returned error is an *Err and the exception stays set in
// the runtime; clear it with ClearErr before calling again, since the
// runtime treats a call made with an exception pending as a SystemError.
func (t *Type) Call(tok Token, args IntoTuple, kwargs *Dict) (*Object, error) {
	tok.check(t.ref.rt)
	v := t.ref.rt.vm

	if args == nil {
		args = NoArgs{}
	}
	tup, err := args.IntoTuple(tok)
	if err != nil {
		return nil, err
	}
	defer tup.Release(tok)

	kw := vm.Null
	if kwargs != nil {
		checkOwner(tok, kwargs)
		kw = kwargs.Ptr()
	}

	res := v.ObjectCall(t.Ptr(), tup.Ptr(), kw)
	if res == vm.Null {
		e := pendingErr(tok)
		Logger().Debug("call failed",
			zap.String("type", t.Name(tok)),
			zap.String("error", e.Error()))
		return nil, e
	}
	return ObjectFromOwnedPtr(tok, res), nil
}

// Equal reports whether both handles point at the same type object of the
// same Runtime.
func (t *Type) Equal(other *Type) bool {
	return t.ref.rt == other.ref.rt && t.Ptr() == other.Ptr()
}

// MRO returns the method resolution order, t first.
func (t *Type) MRO(tok Token) []*Type {
	tok.check(t.ref.rt)
	mro := t.ref.rt.vm.MRO(t.Ptr())
	out := make([]*Type, len(mro))
	for i, p := range mro {
		out[i] = TypeFromPtr(tok, p)
	}
	return out
}

// Release gives back the handle's count. Later calls do nothing; any other
// use afterwards panics.
func (t *Type) Release(tok Token) {
	t.ref.Release(tok)
}

// Clone returns a second handle with its own count.
func (t *Type) Clone(tok Token) *Type {
	return &Type{ref: t.ref.Clone(tok)}
}

// Object returns a generic handle to the type object.
func (t *Type) Object(tok Token) *Object {
	return ObjectFromPtr(tok, t.Ptr())
}

func (t *Type) String() string {
	if t.ref.Released() {
		return "<released type>"
	}
	return fmt.Sprintf("<type at 0x%x>", uint32(t.ref.ptr))
}
