// Package object provides safe handles over the vm object runtime.
//
// A Runtime owns one vm.VM. All access to foreign memory goes through a
// Token, which proves that the runtime's execution lock is held:
//
//	g, err := rt.Acquire()
//	if err != nil {
//	    return err
//	}
//	defer g.Release()
//	tok := g.Token()
//
// # Handles
//
// Ref, Object, Tuple, Dict, Type and Err each own exactly one reference
// count on a foreign object. Release gives it back; a second Release is a
// no-op. Clone takes a new count, so two handles never share one. Using a
// handle after Release panics.
//
// A handle that becomes unreachable without Release is not leaked: its
// pointer is queued and released the next time the lock is acquired. Code
// should still call Release, since the queue only drains on Acquire.
//
// Borrowed is a view with no count of its own. It is valid only while the
// lock is held and the object it came from is alive.
//
// # Types
//
// Type is the handle to a foreign type object. Identity is pointer
// equality; subtype and instance checks are answered by the runtime itself.
// Calling a Type constructs an instance:
//
//	intType := rt.Builtins(tok).Int
//	v, err := intType.Call(tok, object.Args{"42"}, nil)
//
// A failing call returns *Err and leaves the exception set in the runtime;
// inspect it with ErrOccurred and discard it with ClearErr.
package object
