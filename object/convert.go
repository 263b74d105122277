package object

import (
	"fmt"
	"math"

	"github.com/wippyai/objrt/errors"
	"github.com/wippyai/objrt/vm"
)

// ToObject converts a Go value into a new foreign object.
//
//	nil               None
//	bool              bool
//	signed/unsigned   int (uint64 above MaxInt64 overflows)
//	string, []byte    str
//	[]any             tuple
//	map[string]any    dict
//	Pointer           the same object, with a new count
func ToObject(tok Token, x any) (*Object, error) {
	rt := tok.Runtime()
	v := rt.vm

	var p vm.Ptr
	switch val := x.(type) {
	case nil:
		p = v.NewNone()
	case bool:
		p = v.NewBool(val)
	case int:
		p = v.NewInt(int64(val))
	case int8:
		p = v.NewInt(int64(val))
	case int16:
		p = v.NewInt(int64(val))
	case int32:
		p = v.NewInt(int64(val))
	case int64:
		p = v.NewInt(val)
	case uint:
		return fromUint(tok, uint64(val))
	case uint8:
		p = v.NewInt(int64(val))
	case uint16:
		p = v.NewInt(int64(val))
	case uint32:
		p = v.NewInt(int64(val))
	case uint64:
		return fromUint(tok, val)
	case string:
		p = v.NewStr([]byte(val))
	case []byte:
		p = v.NewStr(val)
	case []any:
		t, err := Args(val).IntoTuple(tok)
		if err != nil {
			return nil, err
		}
		return &Object{ref: t.ref}, nil
	case map[string]any:
		d, err := DictFrom(tok, val)
		if err != nil {
			return nil, err
		}
		return &Object{ref: d.ref}, nil
	case Pointer:
		checkOwner(tok, val)
		p = val.Ptr()
		if p == vm.Null {
			return nil, errors.NullPointer(errors.PhaseConvert, "object")
		}
		v.IncRef(p)
	default:
		return nil, errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
			GoType(fmt.Sprintf("%T", x)).
			ForeignType("object").
			Value(x).
			Detail("no conversion is defined for this Go type").
			Build()
	}

	if p == vm.Null {
		return nil, pendingErr(tok)
	}
	return &Object{ref: adopt(rt, p)}, nil
}

func fromUint(tok Token, x uint64) (*Object, error) {
	if x > math.MaxInt64 {
		return nil, errors.Overflow(errors.PhaseConvert, x, "int")
	}
	return ToObject(tok, int64(x))
}
