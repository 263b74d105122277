package object

import (
	"github.com/wippyai/objrt/errors"
	"github.com/wippyai/objrt/vm"
)

// IntoTuple is anything that can become a positional argument tuple. The
// returned Tuple is owned by the caller.
type IntoTuple interface {
	IntoTuple(tok Token) (*Tuple, error)
}

// Args converts each Go value with ToObject.
type Args []any

// NoArgs is the empty argument list.
type NoArgs struct{}

// Tuple is an owned handle to a tuple.
type Tuple struct {
	ref *Ref
}

// NewTuple builds a tuple from Go values.
func NewTuple(tok Token, items ...any) (*Tuple, error) {
	return Args(items).IntoTuple(tok)
}

func (a Args) IntoTuple(tok Token) (*Tuple, error) {
	rt := tok.Runtime()
	v := rt.vm
	tup := v.NewTuple(len(a))
	if tup == vm.Null {
		return nil, pendingErr(tok)
	}
	for i, item := range a {
		obj, err := ToObject(tok, item)
		if err != nil {
			v.DecRef(tup)
			return nil, errors.New(errors.PhaseConvert, errors.KindInvalidInput).
				Cause(err).
				Detail("argument %d", i).
				Build()
		}
		// TupleSetItem steals the count, so the handle is disarmed first.
		p := obj.ref.disown()
		v.TupleSetItem(tup, i, p)
	}
	return &Tuple{ref: adopt(rt, tup)}, nil
}

func (NoArgs) IntoTuple(tok Token) (*Tuple, error) {
	return Args(nil).IntoTuple(tok)
}

func (t *Tuple) IntoTuple(tok Token) (*Tuple, error) {
	return t.Clone(tok), nil
}

func (t *Tuple) Ptr() vm.Ptr {
	return t.ref.Ptr()
}

func (t *Tuple) owner() *Runtime { return t.ref.rt }

// Len returns the number of items.
func (t *Tuple) Len(tok Token) int {
	tok.check(t.ref.rt)
	return t.ref.rt.vm.TupleSize(t.Ptr())
}

// Get returns item i as a view, or a null view when i is out of range.
func (t *Tuple) Get(tok Token, i int) Borrowed {
	tok.check(t.ref.rt)
	v := t.ref.rt.vm
	if i < 0 || i >= v.TupleSize(t.Ptr()) {
		return Borrowed{rt: t.ref.rt}
	}
	return Borrowed{rt: t.ref.rt, ptr: v.TupleGetItem(t.Ptr(), i)}
}

func (t *Tuple) Release(tok Token) {
	t.ref.Release(tok)
}

func (t *Tuple) Clone(tok Token) *Tuple {
	return &Tuple{ref: t.ref.Clone(tok)}
}

// Object returns a generic handle to the same tuple.
func (t *Tuple) Object(tok Token) *Object {
	return ObjectFromPtr(tok, t.Ptr())
}
