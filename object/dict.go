package object

import (
	"maps"
	"slices"

	"github.com/wippyai/objrt/vm"
)

// Dict is an owned handle to a dict. A nil *Dict passed as keyword
// arguments means no mapping at all, which is not the same as an empty one.
type Dict struct {
	ref *Ref
}

// NewDict creates an empty dict.
func NewDict(tok Token) (*Dict, error) {
	rt := tok.Runtime()
	d := rt.vm.NewDict()
	if d == vm.Null {
		return nil, pendingErr(tok)
	}
	return &Dict{ref: adopt(rt, d)}, nil
}

// DictFrom builds a dict from m, inserting keys in sorted order.
func DictFrom(tok Token, m map[string]any) (*Dict, error) {
	d, err := NewDict(tok)
	if err != nil {
		return nil, err
	}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if err := d.SetItem(tok, k, m[k]); err != nil {
			d.Release(tok)
			return nil, err
		}
	}
	return d, nil
}

func (d *Dict) Ptr() vm.Ptr {
	return d.ref.Ptr()
}

func (d *Dict) owner() *Runtime { return d.ref.rt }

// SetItem stores value under key.
func (d *Dict) SetItem(tok Token, key string, value any) error {
	tok.check(d.ref.rt)
	v := d.ref.rt.vm
	k := v.NewStr([]byte(key))
	if k == vm.Null {
		return pendingErr(tok)
	}
	defer v.DecRef(k)

	val, err := ToObject(tok, value)
	if err != nil {
		return err
	}
	defer val.Release(tok)

	if !v.DictSetItem(d.Ptr(), k, val.Ptr()) {
		return pendingErr(tok)
	}
	return nil
}

// Get returns the value stored under key as a view.
func (d *Dict) Get(tok Token, key string) (Borrowed, bool) {
	tok.check(d.ref.rt)
	p := d.ref.rt.vm.DictGetItemString(d.Ptr(), key)
	return Borrowed{rt: d.ref.rt, ptr: p}, p != vm.Null
}

// Len returns the number of entries.
func (d *Dict) Len(tok Token) int {
	tok.check(d.ref.rt)
	return d.ref.rt.vm.DictSize(d.Ptr())
}

func (d *Dict) Release(tok Token) {
	d.ref.Release(tok)
}

func (d *Dict) Clone(tok Token) *Dict {
	return &Dict{ref: d.ref.Clone(tok)}
}
