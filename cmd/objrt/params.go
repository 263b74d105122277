package main

import (
	"fmt"
	"strconv"

	"go.bytecodealliance.org/wit"
)

type paramInfo struct {
	name    string
	witType wit.Type
}

// signatures describes the constructor parameters of the builtin types so
// that text input can be converted before the call. Arguments beyond the
// listed ones are passed as strings.
var signatures = map[string][]paramInfo{
	"type":          {{"object", wit.String{}}},
	"int":           {{"x", wit.String{}}, {"base", wit.S64{}}},
	"bool":          {{"x", wit.Bool{}}},
	"str":           {{"object", wit.String{}}},
	"tuple":         {{"iterable", wit.String{}}},
	"BaseException": {{"message", wit.String{}}},
}

// paramsFor returns the signature of name, inheriting along mro.
func paramsFor(mro []string) []paramInfo {
	for _, n := range mro {
		if p, ok := signatures[n]; ok {
			return p
		}
	}
	return nil
}

func paramType(params []paramInfo, i int) wit.Type {
	if i < len(params) {
		return params[i].witType
	}
	return wit.String{}
}

func keywordType(params []paramInfo, name string) wit.Type {
	for _, p := range params {
		if p.name == name {
			return p.witType
		}
	}
	return wit.String{}
}

func convertArg(value string, t wit.Type) (any, error) {
	switch t.(type) {
	case wit.String:
		return value, nil
	case wit.U8, wit.U16, wit.U32, wit.U64:
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a %s", value, witTypeStr(t))
		}
		return v, nil
	case wit.S8, wit.S16, wit.S32, wit.S64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a %s", value, witTypeStr(t))
		}
		return v, nil
	case wit.Bool:
		switch value {
		case "true", "1", "True":
			return true, nil
		case "false", "0", "False", "":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a bool", value)
	default:
		return value, nil
	}
}

func witTypeStr(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.U16:
		return "u16"
	case wit.U32:
		return "u32"
	case wit.U64:
		return "u64"
	case wit.S8:
		return "s8"
	case wit.S16:
		return "s16"
	case wit.S32:
		return "s32"
	case wit.S64:
		return "s64"
	case wit.String:
		return "string"
	default:
		return fmt.Sprintf("%T", t)
	}
}
