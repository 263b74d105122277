package vm

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// NewInt returns a new int.
func (v *VM) NewInt(x int64) Ptr {
	return v.newIntOfType(v.builtins.Int, x)
}

func (v *VM) newIntOfType(t Ptr, x int64) Ptr {
	p := v.alloc(t, intObjectSize)
	if p == Null {
		return Null
	}
	v.setI64(p, offIntValue, x)
	return p
}

// NewBool returns a new reference to True or False.
func (v *VM) NewBool(b bool) Ptr {
	if b {
		return v.trueObj
	}
	return v.falseObj
}

// NewNone returns a new reference to None.
func (v *VM) NewNone() Ptr {
	return v.none
}

// IntValue returns the value of an int (or int subtype) instance.
func (v *VM) IntValue(o Ptr) (int64, bool) {
	if v.layoutOf(v.TypeOf(o)) != LayoutInt {
		return 0, false
	}
	return v.i64(o, offIntValue), true
}

// NewStr returns a new str holding a copy of s.
func (v *VM) NewStr(s []byte) Ptr {
	return v.newStrOfType(v.builtins.Str, s)
}

func (v *VM) newStrOfType(t Ptr, s []byte) Ptr {
	p := v.alloc(t, offStrData+uint32(len(s))+1)
	if p == Null {
		return Null
	}
	v.setU32(p, offStrLen, uint32(len(s)))
	v.setBytes(p, offStrData, s)
	return p
}

// StrValue returns a copy of the bytes of a str instance.
func (v *VM) StrValue(o Ptr) ([]byte, bool) {
	if v.layoutOf(v.TypeOf(o)) != LayoutStr {
		return nil, false
	}
	n := v.u32(o, offStrLen)
	return v.bytesAt(o, offStrData, n), true
}

// NewTuple returns a tuple of n Null slots, to be filled with TupleSetItem.
func (v *VM) NewTuple(n int) Ptr {
	p := v.alloc(v.builtins.Tuple, offTupleItems+4*uint32(n))
	if p == Null {
		return Null
	}
	v.setU32(p, offTupleLen, uint32(n))
	return p
}

// TupleSize returns the length of a tuple, or -1 if t is not one.
func (v *VM) TupleSize(t Ptr) int {
	if t == Null || v.layoutOf(v.TypeOf(t)) != LayoutTuple {
		return -1
	}
	return int(v.u32(t, offTupleLen))
}

// TupleGetItem returns item i (borrowed).
func (v *VM) TupleGetItem(t Ptr, i int) Ptr {
	return v.ptrAt(t, offTupleItems+4*uint32(i))
}

// TupleSetItem stores item into slot i, stealing the reference. Only for
// filling a freshly created tuple.
func (v *VM) TupleSetItem(t Ptr, i int, item Ptr) {
	old := v.TupleGetItem(t, i)
	v.setPtr(t, offTupleItems+4*uint32(i), item)
	v.DecRef(old)
}

// NewDict returns an empty dict.
func (v *VM) NewDict() Ptr {
	return v.alloc(v.builtins.Dict, dictObjectSize)
}

// DictSize returns the number of entries, or -1 if d is not a dict.
func (v *VM) DictSize(d Ptr) int {
	if d == Null || v.layoutOf(v.TypeOf(d)) != LayoutDict {
		return -1
	}
	return int(v.u32(d, offDictLen))
}

// DictItem returns entry i (borrowed key and value), in insertion order.
func (v *VM) DictItem(d Ptr, i int) (key, value Ptr) {
	entries := v.ptrAt(d, offDictEntries)
	return v.ptrAt(entries, uint32(8*i)), v.ptrAt(entries, uint32(8*i+4))
}

// DictGetItem returns the value for key (borrowed), or Null without setting
// an error when absent.
func (v *VM) DictGetItem(d, key Ptr) Ptr {
	n := v.DictSize(d)
	for i := 0; i < n; i++ {
		k, val := v.DictItem(d, i)
		if v.ObjectEq(k, key) {
			return val
		}
	}
	return Null
}

// DictGetItemString is DictGetItem with a Go string key.
func (v *VM) DictGetItemString(d Ptr, key string) Ptr {
	n := v.DictSize(d)
	for i := 0; i < n; i++ {
		k, val := v.DictItem(d, i)
		if s, ok := v.StrValue(k); ok && string(s) == key {
			return val
		}
	}
	return Null
}

// DictSetItem maps key to value. Neither reference is stolen. It returns
// false with MemoryError set when the entry table cannot grow.
func (v *VM) DictSetItem(d, key, value Ptr) bool {
	n := int(v.u32(d, offDictLen))
	entries := v.ptrAt(d, offDictEntries)
	for i := 0; i < n; i++ {
		k := v.ptrAt(entries, uint32(8*i))
		if v.ObjectEq(k, key) {
			old := v.ptrAt(entries, uint32(8*i+4))
			v.IncRef(value)
			v.setPtr(entries, uint32(8*i+4), value)
			v.DecRef(old)
			return true
		}
	}

	capacity := int(v.u32(d, offDictCap))
	if n == capacity {
		newCap := 4
		if capacity > 0 {
			newCap = capacity * 2
		}
		raw, err := v.heap.Alloc(uint32(8*newCap), 4)
		if err != nil {
			v.ErrNoMemory()
			return false
		}
		if n > 0 {
			v.setBytes(Ptr(raw), 0, v.bytesAt(entries, 0, uint32(8*n)))
			v.heap.Free(uint32(entries), 0, 4)
		}
		entries = Ptr(raw)
		v.setPtr(d, offDictEntries, entries)
		v.setU32(d, offDictCap, uint32(newCap))
	}

	v.IncRef(key)
	v.IncRef(value)
	v.setPtr(entries, uint32(8*n), key)
	v.setPtr(entries, uint32(8*n+4), value)
	v.setU32(d, offDictLen, uint32(n+1))
	return true
}

// IsNone reports whether o is the None singleton.
func (v *VM) IsNone(o Ptr) bool {
	return o == v.none
}

// IsTrue applies the runtime's truth rules.
func (v *VM) IsTrue(o Ptr) bool {
	if o == v.none {
		return false
	}
	switch v.layoutOf(v.TypeOf(o)) {
	case LayoutInt:
		return v.i64(o, offIntValue) != 0
	case LayoutStr:
		return v.u32(o, offStrLen) != 0
	case LayoutTuple:
		return v.u32(o, offTupleLen) != 0
	case LayoutDict:
		return v.u32(o, offDictLen) != 0
	}
	return true
}

// ObjectEq compares by value for ints, strs, tuples and dicts and by
// identity otherwise.
func (v *VM) ObjectEq(a, b Ptr) bool {
	if a == b {
		return true
	}
	la, lb := v.layoutOf(v.TypeOf(a)), v.layoutOf(v.TypeOf(b))
	if la != lb {
		return false
	}
	switch la {
	case LayoutInt:
		return v.i64(a, offIntValue) == v.i64(b, offIntValue)
	case LayoutStr:
		sa, _ := v.StrValue(a)
		sb, _ := v.StrValue(b)
		return bytes.Equal(sa, sb)
	case LayoutTuple:
		n := v.TupleSize(a)
		if n != v.TupleSize(b) {
			return false
		}
		for i := 0; i < n; i++ {
			if !v.ObjectEq(v.TupleGetItem(a, i), v.TupleGetItem(b, i)) {
				return false
			}
		}
		return true
	case LayoutDict:
		n := v.DictSize(a)
		if n != v.DictSize(b) {
			return false
		}
		for i := 0; i < n; i++ {
			k, val := v.DictItem(a, i)
			other := v.DictGetItem(b, k)
			if other == Null || !v.ObjectEq(val, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Str renders o the way str() does.
func (v *VM) Str(o Ptr) string {
	t := v.TypeOf(o)
	switch v.layoutOf(t) {
	case LayoutStr:
		s, _ := v.StrValue(o)
		return string(s)
	case LayoutException:
		args := v.ptrAt(o, offExcArgs)
		switch v.TupleSize(args) {
		case -1, 0:
			return ""
		case 1:
			return v.Str(v.TupleGetItem(args, 0))
		default:
			return v.Repr(args)
		}
	}
	return v.Repr(o)
}

// Repr renders o the way repr() does.
func (v *VM) Repr(o Ptr) string {
	if o == v.none {
		return "None"
	}
	t := v.TypeOf(o)
	switch v.layoutOf(t) {
	case LayoutInt:
		x := v.i64(o, offIntValue)
		if t == v.builtins.Bool {
			if x != 0 {
				return "True"
			}
			return "False"
		}
		return strconv.FormatInt(x, 10)
	case LayoutStr:
		s, _ := v.StrValue(o)
		return quoteStr(s)
	case LayoutTuple:
		n := v.TupleSize(o)
		parts := make([]string, n)
		for i := range parts {
			parts[i] = v.Repr(v.TupleGetItem(o, i))
		}
		if n == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case LayoutDict:
		n := v.DictSize(o)
		parts := make([]string, n)
		for i := range parts {
			k, val := v.DictItem(o, i)
			parts[i] = v.Repr(k) + ": " + v.Repr(val)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case LayoutType:
		return "<class '" + v.typeNameString(o) + "'>"
	case LayoutException:
		args := v.ptrAt(o, offExcArgs)
		name := v.typeNameString(t)
		if v.TupleSize(args) == 1 {
			return name + "(" + v.Repr(v.TupleGetItem(args, 0)) + ")"
		}
		if args == Null {
			return name + "()"
		}
		return name + v.Repr(args)
	}
	return fmt.Sprintf("<%s object at 0x%x>", v.typeNameString(t), uint32(o))
}

// quoteStr quotes s with single quotes unless it contains one and no
// double quote, escaping the way the runtime's repr does.
func quoteStr(s []byte) string {
	quote := byte('\'')
	if bytes.IndexByte(s, '\'') >= 0 && bytes.IndexByte(s, '"') < 0 {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for len(s) > 0 {
		r, size := utf8.DecodeRune(s)
		switch {
		case r == utf8.RuneError && size == 1:
			fmt.Fprintf(&b, `\x%02x`, s[0])
		case r == rune(quote) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
		s = s[size:]
	}
	b.WriteByte(quote)
	return b.String()
}
