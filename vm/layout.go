package vm

import (
	"fmt"
)

// Ptr is a raw pointer into the runtime's linear memory.
type Ptr uint32

// Null is the null pointer.
const Null Ptr = 0

// Object header.
const (
	offRefcnt  = 0
	offType    = 4
	headerSize = 8
)

// Type object layout.
const (
	offTypeName    = 8  // char*
	offTypeBase    = 12 // borrowed, kept alive through bases
	offTypeBases   = 16 // tuple, owned
	offTypeMRO     = 20 // raw buffer: count u32, then count type pointers, borrowed
	offTypeFlags   = 24
	offTypeCtor    = 28 // constructor table index, 0 = inherit
	offTypeLayout  = 32
	typeObjectSize = 36
)

// Instance layouts.
const (
	offIntValue   = 8
	intObjectSize = 16

	offStrLen  = 8
	offStrData = 12

	offTupleLen   = 8
	offTupleItems = 12

	offDictLen     = 8
	offDictCap     = 12
	offDictEntries = 16 // raw buffer of cap (key, value) pairs
	dictObjectSize = 20

	offExcArgs    = 8 // tuple, owned
	excObjectSize = 12

	offInstDict        = 8 // dict or Null, owned
	instanceObjectSize = 12
)

// immortalRefcnt marks objects that are never deallocated.
const immortalRefcnt = 1 << 30

// Type flags.
const (
	FlagHeapType uint32 = 1 << iota // created by NewType
	FlagBaseType                    // may be subclassed
)

// Layout identifies the memory layout instances of a type use.
type Layout uint32

const (
	LayoutObject Layout = iota
	LayoutType
	LayoutInt
	LayoutStr
	LayoutTuple
	LayoutDict
	LayoutException
)

func (l Layout) String() string {
	switch l {
	case LayoutObject:
		return "object"
	case LayoutType:
		return "type"
	case LayoutInt:
		return "int"
	case LayoutStr:
		return "str"
	case LayoutTuple:
		return "tuple"
	case LayoutDict:
		return "dict"
	case LayoutException:
		return "exception"
	default:
		return fmt.Sprintf("layout(%d)", uint32(l))
	}
}

// Fault is the panic value raised when a pointer leads outside linear memory
// or a count is manipulated on a dead object.
type Fault struct {
	Err error
	Op  string
	Ptr Ptr
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("vm fault: %s at 0x%x: %v", f.Op, uint32(f.Ptr), f.Err)
	}
	return fmt.Sprintf("vm fault: %s at 0x%x", f.Op, uint32(f.Ptr))
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func (v *VM) u32(p Ptr, off uint32) uint32 {
	x, err := v.mem.ReadU32(uint32(p) + off)
	if err != nil {
		panic(&Fault{Op: "read", Ptr: p, Err: err})
	}
	return x
}

func (v *VM) setU32(p Ptr, off uint32, x uint32) {
	if err := v.mem.WriteU32(uint32(p)+off, x); err != nil {
		panic(&Fault{Op: "write", Ptr: p, Err: err})
	}
}

func (v *VM) ptrAt(p Ptr, off uint32) Ptr {
	return Ptr(v.u32(p, off))
}

func (v *VM) setPtr(p Ptr, off uint32, x Ptr) {
	v.setU32(p, off, uint32(x))
}

func (v *VM) i64(p Ptr, off uint32) int64 {
	x, err := v.mem.ReadU64(uint32(p) + off)
	if err != nil {
		panic(&Fault{Op: "read", Ptr: p, Err: err})
	}
	return int64(x)
}

func (v *VM) setI64(p Ptr, off uint32, x int64) {
	if err := v.mem.WriteU64(uint32(p)+off, uint64(x)); err != nil {
		panic(&Fault{Op: "write", Ptr: p, Err: err})
	}
}

// bytesAt returns a copy of n bytes at p+off.
func (v *VM) bytesAt(p Ptr, off, n uint32) []byte {
	view, err := v.mem.Read(uint32(p)+off, n)
	if err != nil {
		panic(&Fault{Op: "read", Ptr: p, Err: err})
	}
	out := make([]byte, n)
	copy(out, view)
	return out
}

func (v *VM) setBytes(p Ptr, off uint32, b []byte) {
	if err := v.mem.Write(uint32(p)+off, b); err != nil {
		panic(&Fault{Op: "write", Ptr: p, Err: err})
	}
}
