package vm

import (
	"go.uber.org/zap"
)

// alloc allocates an object of size bytes whose type is typ, with a count of
// 1 owned by the caller. The new object owns a reference to typ. On failure
// MemoryError is set and Null returned.
func (v *VM) alloc(typ Ptr, size uint32) Ptr {
	raw, err := v.heap.Alloc(size, 8)
	if err != nil {
		Logger().Warn("object allocation failed",
			zap.Uint32("size", size),
			zap.Error(err))
		v.ErrNoMemory()
		return Null
	}
	p := Ptr(raw)
	v.setU32(p, offRefcnt, 1)
	v.setPtr(p, offType, typ)
	v.IncRef(typ)
	v.live++
	v.notify(Event{Kind: EventAllocated, Ptr: p, Type: typ})
	return p
}

// IncRef increments the count of p. Null is ignored.
func (v *VM) IncRef(p Ptr) {
	if p == Null {
		return
	}
	rc := v.u32(p, offRefcnt)
	if rc >= immortalRefcnt {
		return
	}
	if rc == 0 {
		panic(&Fault{Op: "incref of freed object", Ptr: p})
	}
	v.setU32(p, offRefcnt, rc+1)
}

// DecRef decrements the count of p and deallocates it when the count
// reaches zero. Null is ignored.
func (v *VM) DecRef(p Ptr) {
	if p == Null {
		return
	}
	rc := v.u32(p, offRefcnt)
	if rc >= immortalRefcnt {
		return
	}
	if rc == 0 {
		panic(&Fault{Op: "decref of freed object", Ptr: p})
	}
	rc--
	v.setU32(p, offRefcnt, rc)
	if rc == 0 {
		v.dealloc(p)
	}
}

// RefCount returns the raw count of p.
func (v *VM) RefCount(p Ptr) uint32 {
	return v.u32(p, offRefcnt)
}

// Immortal reports whether p is never deallocated.
func (v *VM) Immortal(p Ptr) bool {
	return v.u32(p, offRefcnt) >= immortalRefcnt
}

// Valid reports whether p is the start of a live allocation with a non-zero
// count. It never faults, so it is the one primitive that may be used on a
// pointer of unknown provenance.
func (v *VM) Valid(p Ptr) bool {
	if p == Null {
		return false
	}
	size, ok := v.heap.Allocator().SizeOf(uint32(p))
	if !ok || size < headerSize {
		return false
	}
	return v.u32(p, offRefcnt) != 0
}

func (v *VM) dealloc(p Ptr) {
	typ := v.TypeOf(p)
	debugf("dealloc 0x%x (%s)", uint32(p), v.typeNameString(typ))

	switch v.layoutOf(typ) {
	case LayoutType:
		v.deallocType(p)
	case LayoutTuple:
		n := int(v.u32(p, offTupleLen))
		for i := 0; i < n; i++ {
			v.DecRef(v.TupleGetItem(p, i))
		}
	case LayoutDict:
		n := int(v.u32(p, offDictLen))
		entries := v.ptrAt(p, offDictEntries)
		for i := 0; i < n; i++ {
			v.DecRef(v.ptrAt(entries, uint32(8*i)))
			v.DecRef(v.ptrAt(entries, uint32(8*i+4)))
		}
		if entries != Null {
			v.heap.Free(uint32(entries), 0, 4)
		}
	case LayoutException:
		v.DecRef(v.ptrAt(p, offExcArgs))
	case LayoutObject:
		v.DecRef(v.ptrAt(p, offInstDict))
	}

	v.setU32(p, offRefcnt, 0)
	v.notify(Event{Kind: EventFreed, Ptr: p, Type: typ})
	v.heap.Free(uint32(p), 0, 8)
	v.live--
	v.DecRef(typ)
}

func (v *VM) deallocType(t Ptr) {
	Logger().Debug("type deallocated", zap.String("name", v.typeNameString(t)))
	if name := v.ptrAt(t, offTypeName); name != Null {
		v.heap.Free(uint32(name), 0, 1)
	}
	if mro := v.ptrAt(t, offTypeMRO); mro != Null {
		v.heap.Free(uint32(mro), 0, 4)
	}
	v.DecRef(v.ptrAt(t, offTypeBases))
}
