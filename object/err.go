package object

import (
	"github.com/wippyai/objrt/errors"
	"github.com/wippyai/objrt/vm"
)

// Err is a foreign exception seen from Go. It owns counts on the exception
// type and value; Release gives them back.
type Err struct {
	rt       *Runtime
	typ      *Type
	value    *Object
	typeName string
	message  string
}

// pendingErr snapshots the pending exception without clearing it.
func pendingErr(tok Token) *Err {
	rt := tok.Runtime()
	v := rt.vm
	t, val := v.ErrPeek()
	if t == vm.Null {
		return &Err{rt: rt, typeName: "SystemError", message: "error return without exception set"}
	}
	e := &Err{
		rt:       rt,
		typ:      TypeFromPtr(tok, t),
		typeName: decodeLossy(v.ReadCString(v.TypeName(t))),
	}
	if val != vm.Null {
		e.value = ObjectFromPtr(tok, val)
		e.message = decodeLossy([]byte(v.Str(val)))
	}
	return e
}

// ErrOccurred returns the pending exception, or nil when there is none.
// The indicator is left set.
func ErrOccurred(tok Token) *Err {
	if tok.VM().ErrOccurred() == vm.Null {
		return nil
	}
	return pendingErr(tok)
}

// ClearErr discards the pending exception.
func ClearErr(tok Token) {
	tok.VM().ErrClear()
}

func (e *Err) Error() string {
	if e.message == "" {
		return e.typeName
	}
	return e.typeName + ": " + e.message
}

// Unwrap exposes the exception as a structured error so callers can match
// it with errors.Is against KindForeignException.
func (e *Err) Unwrap() error {
	return errors.ForeignException(errors.PhaseCall, e.typeName, e.message)
}

// TypeName returns the name of the exception type.
func (e *Err) TypeName() string {
	return e.typeName
}

// Message returns str() of the exception value.
func (e *Err) Message() string {
	return e.message
}

// Type returns the exception type. The handle belongs to e.
func (e *Err) Type() *Type {
	return e.typ
}

// Value returns the exception instance, or nil when the runtime raised the
// type alone. The handle belongs to e.
func (e *Err) Value() *Object {
	return e.value
}

// Matches reports whether the exception is t or a subtype of it.
func (e *Err) Matches(tok Token, t *Type) bool {
	if e.typ == nil {
		return false
	}
	return e.typ.IsSubtypeOf(tok, t)
}

// Release gives back the counts held by e.
func (e *Err) Release(tok Token) {
	tok.check(e.rt)
	if e.typ != nil {
		e.typ.Release(tok)
	}
	if e.value != nil {
		e.value.Release(tok)
	}
}
