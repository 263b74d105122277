// Package vm implements the foreign object runtime: a manually
// reference-counted object system whose objects live in wasm linear memory.
//
// Every object begins with an 8-byte header:
//
//	+0  refcnt  u32
//	+4  type    u32  pointer to the object's type object
//
// Type objects extend the header with a NUL-terminated name, a base pointer,
// a tuple of direct bases, a method resolution order, flags, a constructor
// slot and an instance layout. Ints, strs, tuples, dicts and exception
// instances each have a fixed layout documented in layout.go.
//
// # Contract
//
// VM methods are the runtime's primitives. They perform no locking and no
// pointer validation: the caller must hold the execution lock (Lock/Unlock)
// and pass live pointers of the right kind. A corrupt pointer that falls
// outside linear memory panics with a *Fault; one that stays inside it is
// undefined behaviour, exactly as in a C runtime.
//
// Functions that can fail follow the C convention: they return Null and
// leave an exception set in the error indicator (ErrOccurred, ErrFetch).
//
// # Reference Counts
//
// New objects start with a count of 1 owned by the caller. Functions named
// ...SetItem steal the reference passed to them; getters return borrowed
// pointers. Builtin types and the None/True/False singletons are immortal:
// IncRef and DecRef leave their counts untouched.
//
// # Types
//
// The builtin hierarchy is object, type, int, bool, str, tuple, dict,
// NoneType and an exception tree rooted at BaseException. NewType creates
// heap types with multiple inheritance; their MRO is the C3 linearization of
// their bases and TypeIsSubtype walks it.
package vm
