package vm

// Constructor creates an instance of typ. It receives the positional args
// tuple and the keyword dict, which is Null when the caller passed no
// mapping at all. It returns a new reference, or Null with an exception set.
type Constructor func(v *VM, typ, args, kwargs Ptr) Ptr

// RegisterConstructor adds fn to the constructor table and returns its
// slot for NewType.
func (v *VM) RegisterConstructor(fn Constructor) uint32 {
	v.ctors = append(v.ctors, fn)
	return uint32(len(v.ctors) - 1)
}

// findConstructor returns the first constructor along t's MRO.
func (v *VM) findConstructor(t Ptr) Constructor {
	for _, m := range v.MRO(t) {
		if slot := v.u32(m, offTypeCtor); slot != 0 {
			return v.ctors[slot]
		}
	}
	return nil
}

// ObjectCall calls callable with the positional args tuple and the keyword
// dict kwargs, which may be Null. Only type objects are callable; calling
// one constructs an instance. It returns a new reference, or Null with an
// exception set.
func (v *VM) ObjectCall(callable, args, kwargs Ptr) Ptr {
	if v.TupleSize(args) < 0 {
		v.ErrSetString(v.builtins.TypeError, "argument list must be a tuple")
		return Null
	}
	if kwargs != Null && v.DictSize(kwargs) < 0 {
		v.ErrSetString(v.builtins.TypeError, "keyword arguments must be a dict")
		return Null
	}
	if !v.TypeCheck(callable) {
		v.ErrFormat(v.builtins.TypeError, "'%s' object is not callable", v.typeNameString(v.TypeOf(callable)))
		return Null
	}

	ctor := v.findConstructor(callable)
	if ctor == nil {
		v.ErrFormat(v.builtins.TypeError, "cannot create '%s' instances", v.typeNameString(callable))
		return Null
	}

	debugf("call %s with %d args", v.typeNameString(callable), v.TupleSize(args))
	result := ctor(v, callable, args, kwargs)

	switch {
	case result == Null && v.excType == Null:
		v.ErrFormat(v.builtins.SystemError, "%s() returned NULL without setting an exception", v.typeNameString(callable))
	case result != Null && v.excType != Null:
		v.DecRef(result)
		result = Null
		t, val := v.ErrFetch()
		v.DecRef(t)
		v.DecRef(val)
		v.ErrFormat(v.builtins.SystemError, "%s() returned a result with an exception set", v.typeNameString(callable))
	}
	return result
}

// kwargCount is the number of keyword arguments, 0 for a Null mapping.
func (v *VM) kwargCount(kwargs Ptr) int {
	if kwargs == Null {
		return 0
	}
	return v.DictSize(kwargs)
}

// onlyKeywords fails when kwargs holds a key outside allowed.
func (v *VM) onlyKeywords(fn string, kwargs Ptr, allowed ...string) bool {
	n := v.kwargCount(kwargs)
outer:
	for i := 0; i < n; i++ {
		k, _ := v.DictItem(kwargs, i)
		key, ok := v.StrValue(k)
		if !ok {
			v.ErrSetString(v.builtins.TypeError, "keywords must be strings")
			return false
		}
		for _, a := range allowed {
			if string(key) == a {
				continue outer
			}
		}
		v.ErrFormat(v.builtins.TypeError, "'%s' is an invalid keyword argument for %s()", key, fn)
		return false
	}
	return true
}

func objectNew(v *VM, typ, args, kwargs Ptr) Ptr {
	if v.TupleSize(args) > 0 || v.kwargCount(kwargs) > 0 {
		v.ErrFormat(v.builtins.TypeError, "%s() takes no arguments", v.typeNameString(typ))
		return Null
	}
	return v.alloc(typ, instanceObjectSize)
}

func noneNew(v *VM, typ, args, kwargs Ptr) Ptr {
	if v.TupleSize(args) > 0 || v.kwargCount(kwargs) > 0 {
		v.ErrSetString(v.builtins.TypeError, "NoneType takes no arguments")
		return Null
	}
	return v.NewNone()
}

func typeNew(v *VM, typ, args, kwargs Ptr) Ptr {
	n := v.TupleSize(args)
	if n == 1 && v.kwargCount(kwargs) == 0 && typ == v.builtins.Type {
		t := v.TypeOf(v.TupleGetItem(args, 0))
		v.IncRef(t)
		return t
	}
	if n != 3 {
		v.ErrSetString(v.builtins.TypeError, "type() takes 1 or 3 arguments")
		return Null
	}

	name, ok := v.StrValue(v.TupleGetItem(args, 0))
	if !ok {
		v.ErrSetString(v.builtins.TypeError, "type.__new__() argument 1 must be str")
		return Null
	}
	basesTuple := v.TupleGetItem(args, 1)
	nb := v.TupleSize(basesTuple)
	if nb < 0 {
		v.ErrSetString(v.builtins.TypeError, "type.__new__() argument 2 must be tuple")
		return Null
	}
	if v.DictSize(v.TupleGetItem(args, 2)) < 0 {
		v.ErrSetString(v.builtins.TypeError, "type.__new__() argument 3 must be dict")
		return Null
	}
	bases := make([]Ptr, nb)
	for i := range bases {
		bases[i] = v.TupleGetItem(basesTuple, i)
	}
	return v.NewTypeWithMeta(typ, string(name), bases, 0)
}

func intNew(v *VM, typ, args, kwargs Ptr) Ptr {
	n := v.TupleSize(args)
	if n > 2 {
		v.ErrFormat(v.builtins.TypeError, "int() takes at most 2 arguments (%d given)", n)
		return Null
	}
	if !v.onlyKeywords("int", kwargs, "base") {
		return Null
	}

	x := Null
	if n > 0 {
		x = v.TupleGetItem(args, 0)
	}
	base := Null
	if n > 1 {
		base = v.TupleGetItem(args, 1)
	}
	if kw := v.kwarg(kwargs, "base"); kw != Null {
		if base != Null {
			v.ErrSetString(v.builtins.TypeError, "argument for int() given by name ('base') and position (2)")
			return Null
		}
		base = kw
	}

	if x == Null {
		if base != Null {
			v.ErrSetString(v.builtins.TypeError, "int() missing string argument")
			return Null
		}
		return v.newIntOfType(typ, 0)
	}

	if base == Null {
		if val, ok := v.IntValue(x); ok {
			return v.newIntOfType(typ, val)
		}
	}

	text, ok := v.StrValue(x)
	if !ok {
		if base != Null {
			v.ErrSetString(v.builtins.TypeError, "int() can't convert non-string with explicit base")
		} else {
			v.ErrFormat(v.builtins.TypeError,
				"int() argument must be a string or a real number, not '%s'", v.typeNameString(v.TypeOf(x)))
		}
		return Null
	}

	b := int64(10)
	if base != Null {
		var ok bool
		if b, ok = v.IntValue(base); !ok {
			v.ErrFormat(v.builtins.TypeError,
				"'%s' object cannot be interpreted as an integer", v.typeNameString(v.TypeOf(base)))
			return Null
		}
		if b != 0 && (b < 2 || b > 36) {
			v.ErrSetString(v.builtins.ValueError, "int() base must be >= 2 and <= 36, or 0")
			return Null
		}
	}

	val, err := parseIntLiteral(string(text), int(b))
	switch err {
	case nil:
		return v.newIntOfType(typ, val)
	case errIntRange:
		v.ErrSetString(v.builtins.OverflowError, "int too large to fit in 64 bits")
	default:
		v.ErrFormat(v.builtins.ValueError, "invalid literal for int() with base %d: %s", b, quoteStr(text))
	}
	return Null
}

func boolNew(v *VM, typ, args, kwargs Ptr) Ptr {
	if v.kwargCount(kwargs) > 0 {
		v.ErrSetString(v.builtins.TypeError, "bool() takes no keyword arguments")
		return Null
	}
	switch n := v.TupleSize(args); n {
	case 0:
		return v.NewBool(false)
	case 1:
		return v.NewBool(v.IsTrue(v.TupleGetItem(args, 0)))
	default:
		v.ErrFormat(v.builtins.TypeError, "bool expected at most 1 argument, got %d", n)
		return Null
	}
}

func strNew(v *VM, typ, args, kwargs Ptr) Ptr {
	n := v.TupleSize(args)
	if n > 1 {
		v.ErrFormat(v.builtins.TypeError, "str() takes at most 1 argument (%d given)", n)
		return Null
	}
	if !v.onlyKeywords("str", kwargs, "object") {
		return Null
	}
	x := Null
	if n == 1 {
		x = v.TupleGetItem(args, 0)
	}
	if kw := v.kwarg(kwargs, "object"); kw != Null {
		if x != Null {
			v.ErrSetString(v.builtins.TypeError, "argument for str() given by name ('object') and position (1)")
			return Null
		}
		x = kw
	}
	if x == Null {
		return v.newStrOfType(typ, nil)
	}
	return v.newStrOfType(typ, []byte(v.Str(x)))
}

func tupleNew(v *VM, typ, args, kwargs Ptr) Ptr {
	if v.kwargCount(kwargs) > 0 {
		v.ErrSetString(v.builtins.TypeError, "tuple() takes no keyword arguments")
		return Null
	}
	n := v.TupleSize(args)
	if n > 1 {
		v.ErrFormat(v.builtins.TypeError, "tuple expected at most 1 argument, got %d", n)
		return Null
	}

	var items []Ptr
	if n == 1 {
		src := v.TupleGetItem(args, 0)
		switch v.layoutOf(v.TypeOf(src)) {
		case LayoutTuple:
			if typ == v.builtins.Tuple && v.TypeOf(src) == v.builtins.Tuple {
				v.IncRef(src)
				return src
			}
			for i := 0; i < v.TupleSize(src); i++ {
				items = append(items, v.TupleGetItem(src, i))
			}
		case LayoutDict:
			for i := 0; i < v.DictSize(src); i++ {
				k, _ := v.DictItem(src, i)
				items = append(items, k)
			}
		case LayoutStr:
			text, _ := v.StrValue(src)
			out := v.newTupleOfType(typ, len([]rune(string(text))))
			if out == Null {
				return Null
			}
			i := 0
			for _, r := range string(text) {
				ch := v.NewStr([]byte(string(r)))
				if ch == Null {
					v.DecRef(out)
					return Null
				}
				v.TupleSetItem(out, i, ch)
				i++
			}
			return out
		default:
			v.ErrFormat(v.builtins.TypeError, "'%s' object is not iterable", v.typeNameString(v.TypeOf(src)))
			return Null
		}
	}

	out := v.newTupleOfType(typ, len(items))
	if out == Null {
		return Null
	}
	for i, it := range items {
		v.IncRef(it)
		v.TupleSetItem(out, i, it)
	}
	return out
}

func (v *VM) newTupleOfType(t Ptr, n int) Ptr {
	p := v.alloc(t, offTupleItems+4*uint32(n))
	if p == Null {
		return Null
	}
	v.setU32(p, offTupleLen, uint32(n))
	return p
}

func dictNew(v *VM, typ, args, kwargs Ptr) Ptr {
	n := v.TupleSize(args)
	if n > 1 {
		v.ErrFormat(v.builtins.TypeError, "dict expected at most 1 argument, got %d", n)
		return Null
	}
	d := v.alloc(typ, dictObjectSize)
	if d == Null {
		return Null
	}
	merge := func(src Ptr) bool {
		for i := 0; i < v.DictSize(src); i++ {
			k, val := v.DictItem(src, i)
			if !v.DictSetItem(d, k, val) {
				return false
			}
		}
		return true
	}
	if n == 1 {
		src := v.TupleGetItem(args, 0)
		if v.DictSize(src) < 0 {
			v.DecRef(d)
			v.ErrFormat(v.builtins.TypeError, "'%s' object is not iterable", v.typeNameString(v.TypeOf(src)))
			return Null
		}
		if !merge(src) {
			v.DecRef(d)
			return Null
		}
	}
	if kwargs != Null && !merge(kwargs) {
		v.DecRef(d)
		return Null
	}
	return d
}

func exceptionNew(v *VM, typ, args, kwargs Ptr) Ptr {
	if v.kwargCount(kwargs) > 0 {
		v.ErrFormat(v.builtins.TypeError, "%s() takes no keyword arguments", v.typeNameString(typ))
		return Null
	}
	return v.newException(typ, args)
}

// kwarg looks up a keyword argument (borrowed); a Null mapping has none.
func (v *VM) kwarg(kwargs Ptr, name string) Ptr {
	if kwargs == Null {
		return Null
	}
	return v.DictGetItemString(kwargs, name)
}
