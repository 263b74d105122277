package vm

import (
	"fmt"
)

// ErrSetObject sets the error indicator to an exception of type t carrying
// value. Neither reference is stolen. A value that is not an instance of t
// is wrapped as the single argument of a new t instance.
func (v *VM) ErrSetObject(t, value Ptr) {
	exc := value
	if value == Null || !v.ObjectTypeCheck(value, t) {
		args := v.NewTuple(btoi(value != Null))
		if args == Null {
			return
		}
		if value != Null {
			v.IncRef(value)
			v.TupleSetItem(args, 0, value)
		}
		exc = v.newException(t, args)
		v.DecRef(args)
		if exc == Null {
			return
		}
	} else {
		v.IncRef(exc)
	}
	v.IncRef(t)
	v.ErrRestore(t, exc)
}

// ErrSetString sets the error indicator to t(msg).
func (v *VM) ErrSetString(t Ptr, msg string) {
	s := v.NewStr([]byte(msg))
	if s == Null {
		return
	}
	v.ErrSetObject(t, s)
	v.DecRef(s)
}

// ErrFormat is ErrSetString with a format string.
func (v *VM) ErrFormat(t Ptr, format string, args ...any) {
	v.ErrSetString(t, fmt.Sprintf(format, args...))
}

// ErrNoMemory sets MemoryError without allocating.
func (v *VM) ErrNoMemory() {
	v.IncRef(v.builtins.MemoryError)
	v.ErrRestore(v.builtins.MemoryError, Null)
}

// ErrOccurred returns the type of the pending exception (borrowed), or Null.
func (v *VM) ErrOccurred() Ptr {
	return v.excType
}

// ErrPeek returns the pending exception type and value without clearing
// them. Both are borrowed; the value may be Null.
func (v *VM) ErrPeek() (t, value Ptr) {
	return v.excType, v.excValue
}

// ErrFetch clears the error indicator and transfers the pending exception
// type and value to the caller.
func (v *VM) ErrFetch() (t, value Ptr) {
	t, value = v.excType, v.excValue
	v.excType, v.excValue = Null, Null
	return t, value
}

// ErrRestore sets the error indicator, stealing both references. Any
// pending exception is released first.
func (v *VM) ErrRestore(t, value Ptr) {
	oldT, oldV := v.excType, v.excValue
	v.excType, v.excValue = t, value
	v.DecRef(oldT)
	v.DecRef(oldV)
}

// ErrClear releases and clears the pending exception.
func (v *VM) ErrClear() {
	v.ErrRestore(Null, Null)
}

// ErrMatches reports whether the pending exception is t or a subtype.
func (v *VM) ErrMatches(t Ptr) bool {
	return v.excType != Null && v.TypeIsSubtype(v.excType, t)
}

// ExceptionArgs returns the args tuple of an exception instance (borrowed).
func (v *VM) ExceptionArgs(exc Ptr) Ptr {
	return v.ptrAt(exc, offExcArgs)
}

// newException creates an instance of exception type t holding args, which
// is not stolen.
func (v *VM) newException(t, args Ptr) Ptr {
	exc := v.alloc(t, excObjectSize)
	if exc == Null {
		return Null
	}
	v.IncRef(args)
	v.setPtr(exc, offExcArgs, args)
	return exc
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
