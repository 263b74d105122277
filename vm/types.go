package vm

import (
	"bytes"
	"strings"

	"go.uber.org/zap"
)

// TypeOf returns the type of o (borrowed).
func (v *VM) TypeOf(o Ptr) Ptr {
	return v.ptrAt(o, offType)
}

// TypeName returns the pointer to t's NUL-terminated name buffer. The buffer
// is owned by t and lives exactly as long as it does.
func (v *VM) TypeName(t Ptr) Ptr {
	return v.ptrAt(t, offTypeName)
}

// ReadCString returns a copy of the NUL-terminated bytes at p.
func (v *VM) ReadCString(p Ptr) []byte {
	b, err := v.mem.ReadCString(uint32(p))
	if err != nil {
		panic(&Fault{Op: "read string", Ptr: p, Err: err})
	}
	return b
}

// typeNameString is the raw name for diagnostics, not decoded.
func (v *VM) typeNameString(t Ptr) string {
	return string(v.ReadCString(v.TypeName(t)))
}

// TypeBase returns t's solid base, or Null for object (borrowed).
func (v *VM) TypeBase(t Ptr) Ptr {
	return v.ptrAt(t, offTypeBase)
}

// TypeBases returns the tuple of t's direct bases (borrowed).
func (v *VM) TypeBases(t Ptr) Ptr {
	return v.ptrAt(t, offTypeBases)
}

// TypeFlags returns t's flags.
func (v *VM) TypeFlags(t Ptr) uint32 {
	return v.u32(t, offTypeFlags)
}

// TypeLayout returns the instance layout of t.
func (v *VM) TypeLayout(t Ptr) Layout {
	return v.layoutOf(t)
}

func (v *VM) layoutOf(t Ptr) Layout {
	return Layout(v.u32(t, offTypeLayout))
}

// MRO returns t's method resolution order, t first. The pointers are
// borrowed.
func (v *VM) MRO(t Ptr) []Ptr {
	buf := v.ptrAt(t, offTypeMRO)
	if buf == Null {
		return nil
	}
	n := v.u32(buf, 0)
	out := make([]Ptr, n)
	for i := range out {
		out[i] = v.ptrAt(buf, 4+4*uint32(i))
	}
	return out
}

// TypeIsSubtype reports whether a is b or derives from it. It walks a's MRO
// and falls back to the base chain for a type without one.
func (v *VM) TypeIsSubtype(a, b Ptr) bool {
	if a == b {
		return true
	}
	buf := v.ptrAt(a, offTypeMRO)
	if buf != Null {
		n := v.u32(buf, 0)
		for i := uint32(0); i < n; i++ {
			if v.ptrAt(buf, 4+4*i) == b {
				return true
			}
		}
		return false
	}
	for t := v.TypeBase(a); t != Null; t = v.TypeBase(t) {
		if t == b {
			return true
		}
	}
	return b == v.builtins.Object
}

// ObjectTypeCheck reports whether o is an instance of t or of a subtype.
func (v *VM) ObjectTypeCheck(o, t Ptr) bool {
	ot := v.TypeOf(o)
	return ot == t || v.TypeIsSubtype(ot, t)
}

// TypeCheck reports whether o is a type object.
func (v *VM) TypeCheck(o Ptr) bool {
	return v.ObjectTypeCheck(o, v.builtins.Type)
}

// maxMetaDepth bounds the walk from a type to its metatypes in CheckType.
const maxMetaDepth = 8

// CheckType reports whether p looks like a live type object. Unlike the
// other primitives it tolerates pointers of unknown provenance: it only reads
// inside allocations whose size it has checked, and the chain of metatypes
// above p must reach type within maxMetaDepth steps.
func (v *VM) CheckType(p Ptr) bool {
	t := p
	for depth := 0; depth < maxMetaDepth; depth++ {
		if !v.typeShape(t) {
			return false
		}
		meta := v.TypeOf(t)
		if !v.typeShape(meta) || v.layoutOf(meta) != LayoutType || !v.mroContains(meta, v.builtins.Type) {
			return false
		}
		if meta == v.builtins.Type {
			return true
		}
		t = meta
	}
	return false
}

func (v *VM) blockSize(p Ptr) uint32 {
	if p == Null {
		return 0
	}
	size, ok := v.heap.Allocator().SizeOf(uint32(p))
	if !ok {
		return 0
	}
	return size
}

// typeShape reports whether t is a live block laid out like a type object:
// a known layout, a terminated name and an MRO buffer whose entries are
// blocks large enough to be types.
func (v *VM) typeShape(t Ptr) bool {
	if v.blockSize(t) < typeObjectSize || v.u32(t, offRefcnt) == 0 {
		return false
	}
	if v.layoutOf(t) > LayoutException {
		return false
	}

	name := v.ptrAt(t, offTypeName)
	n := v.blockSize(name)
	if n == 0 || bytes.IndexByte(v.bytesAt(name, 0, n), 0) < 0 {
		return false
	}

	mro := v.ptrAt(t, offTypeMRO)
	if mro == Null {
		return true
	}
	size := v.blockSize(mro)
	if size < 4 {
		return false
	}
	count := v.u32(mro, 0)
	if uint64(count)*4+4 > uint64(size) {
		return false
	}
	for i := uint32(0); i < count; i++ {
		if v.blockSize(v.ptrAt(mro, 4+4*i)) < typeObjectSize {
			return false
		}
	}
	return true
}

// mroContains is TypeIsSubtype for a type that passed typeShape: it never
// follows the base chain.
func (v *VM) mroContains(t, target Ptr) bool {
	if t == target {
		return true
	}
	mro := v.ptrAt(t, offTypeMRO)
	if mro == Null {
		return false
	}
	n := v.u32(mro, 0)
	for i := uint32(0); i < n; i++ {
		if v.ptrAt(mro, 4+4*i) == target {
			return true
		}
	}
	return false
}

// NewType creates a heap type named name deriving from bases (object when
// empty). ctor is a constructor table index; 0 inherits along the MRO.
// It returns a new reference, or Null with TypeError or MemoryError set.
func (v *VM) NewType(name string, bases []Ptr, ctor uint32) Ptr {
	return v.NewTypeWithMeta(v.builtins.Type, name, bases, ctor)
}

// NewTypeWithMeta is NewType with an explicit metatype, which must be type
// or derive from it. The type of the result is the most derived of meta and
// the metatypes of bases; unrelated metatypes are a TypeError.
func (v *VM) NewTypeWithMeta(meta Ptr, name string, bases []Ptr, ctor uint32) Ptr {
	if !v.TypeCheck(meta) || !v.TypeIsSubtype(meta, v.builtins.Type) {
		v.ErrSetString(v.builtins.TypeError, "metatype must be a subtype of type")
		return Null
	}
	if len(bases) == 0 {
		bases = []Ptr{v.builtins.Object}
	}

	seen := make(map[Ptr]bool, len(bases))
	for _, b := range bases {
		if !v.TypeCheck(b) {
			v.ErrSetString(v.builtins.TypeError, "bases must be types")
			return Null
		}
		if v.TypeFlags(b)&FlagBaseType == 0 {
			v.ErrFormat(v.builtins.TypeError, "type '%s' is not an acceptable base type", v.typeNameString(b))
			return Null
		}
		if seen[b] {
			v.ErrFormat(v.builtins.TypeError, "duplicate base class %s", v.typeNameString(b))
			return Null
		}
		seen[b] = true
	}

	for _, b := range bases {
		bm := v.TypeOf(b)
		switch {
		case v.TypeIsSubtype(meta, bm):
		case v.TypeIsSubtype(bm, meta):
			meta = bm
		default:
			v.ErrSetString(v.builtins.TypeError, "metaclass conflict: the metaclass of a derived class "+
				"must be a (non-strict) subclass of the metaclasses of all its bases")
			return Null
		}
	}

	layout := LayoutObject
	solid := bases[0]
	for _, b := range bases {
		l := v.layoutOf(b)
		if l == LayoutObject {
			continue
		}
		if layout == LayoutObject {
			layout = l
			solid = b
			continue
		}
		if l != layout {
			v.ErrSetString(v.builtins.TypeError, "multiple bases have instance lay-out conflict")
			return Null
		}
	}

	if ctor >= uint32(len(v.ctors)) {
		v.ErrFormat(v.builtins.SystemError, "unknown constructor slot %d", ctor)
		return Null
	}

	tail, ok := v.c3(bases)
	if !ok {
		names := make([]string, len(bases))
		for i, b := range bases {
			names[i] = v.typeNameString(b)
		}
		v.ErrFormat(v.builtins.TypeError,
			"Cannot create a consistent method resolution order (MRO) for bases %s",
			strings.Join(names, ", "))
		return Null
	}

	basesTuple := v.NewTuple(len(bases))
	if basesTuple == Null {
		return Null
	}
	for i, b := range bases {
		v.IncRef(b)
		v.TupleSetItem(basesTuple, i, b)
	}

	t := v.alloc(meta, typeObjectSize)
	if t == Null {
		v.DecRef(basesTuple)
		return Null
	}
	// From here a failure deallocates t, which releases everything set so far.
	v.setPtr(t, offTypeBases, basesTuple)
	v.setPtr(t, offTypeBase, solid)
	v.setU32(t, offTypeFlags, FlagHeapType|FlagBaseType)
	v.setU32(t, offTypeCtor, ctor)
	v.setU32(t, offTypeLayout, uint32(layout))

	cname, err := v.allocCString(name)
	if err != nil {
		v.DecRef(t)
		v.ErrNoMemory()
		return Null
	}
	v.setPtr(t, offTypeName, cname)

	mro, err := v.allocMRO(append([]Ptr{t}, tail...))
	if err != nil {
		v.DecRef(t)
		v.ErrNoMemory()
		return Null
	}
	v.setPtr(t, offTypeMRO, mro)

	Logger().Debug("type created",
		zap.String("name", name),
		zap.Uint32("ptr", uint32(t)),
		zap.Stringer("layout", layout),
		zap.String("meta", v.typeNameString(meta)))
	v.notify(Event{Kind: EventTypeCreated, Ptr: t, Type: meta})
	return t
}

// c3 merges the MROs of bases with the bases list itself.
func (v *VM) c3(bases []Ptr) ([]Ptr, bool) {
	var seqs [][]Ptr
	for _, b := range bases {
		seqs = append(seqs, v.MRO(b))
	}
	seqs = append(seqs, append([]Ptr(nil), bases...))

	var out []Ptr
	for {
		nonEmpty := seqs[:0]
		for _, s := range seqs {
			if len(s) > 0 {
				nonEmpty = append(nonEmpty, s)
			}
		}
		seqs = nonEmpty
		if len(seqs) == 0 {
			return out, true
		}

		var head Ptr
		for _, s := range seqs {
			cand := s[0]
			if !inTail(seqs, cand) {
				head = cand
				break
			}
		}
		if head == Null {
			return nil, false
		}

		out = append(out, head)
		for i, s := range seqs {
			if s[0] == head {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(seqs [][]Ptr, p Ptr) bool {
	for _, s := range seqs {
		for _, q := range s[1:] {
			if q == p {
				return true
			}
		}
	}
	return false
}
