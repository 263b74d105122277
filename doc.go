// Package objrt provides safe Go handles over an unmanaged, reference-counted
// object runtime whose objects live in WebAssembly linear memory.
//
// The foreign runtime follows the classic C object model: every object starts
// with a reference count and a pointer to its type object, type objects carry
// a NUL-terminated name and a method resolution order, and calling a type
// constructs an instance. Host code never touches those pointers directly; it
// goes through the handle layer, which ties every count it owns to exactly one
// release and requires proof that the runtime's execution lock is held.
//
// # Architecture Overview
//
//	objrt/          Root package with the Memory and Allocator interfaces
//	├── heap/       wazero-backed linear memory and free-list allocator
//	├── vm/         The foreign runtime: layouts, refcounts, types, call protocol
//	├── object/     Safe handles: Token, Ref, Object, Tuple, Dict, Type, Err
//	├── errors/     Structured error types
//	└── cmd/objrt/  CLI and interactive type explorer
//
// # Quick Start
//
//	rt, err := object.New(ctx, vm.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	err = rt.With(func(tok object.Token) error {
//	    intType := rt.Builtins(tok).Int
//	    defer intType.Release(tok)
//
//	    v, err := intType.Call(tok, object.Args{"42"}, nil)
//	    if err != nil {
//	        return err
//	    }
//	    defer v.Release(tok)
//	    fmt.Println(v.Repr(tok)) // 42
//	    return nil
//	})
//
// # Execution Lock
//
// The runtime has a single execution lock. Runtime.Acquire blocks until it is
// free and returns a Guard whose Token must be passed to every operation that
// reads foreign memory. Tokens cannot be constructed outside the object
// package and stop working once their Guard is released.
//
// # Reference Counting
//
// Every Ref, Object, Tuple, Dict, Type and Err owns one count. Release gives it
// back exactly once; Clone takes a new one. Handles that are garbage collected
// without Release are queued and released the next time the lock is acquired.
package objrt
