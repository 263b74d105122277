package main

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func TestConvertArg(t *testing.T) {
	tests := []struct {
		value   string
		typ     wit.Type
		want    any
		wantErr bool
	}{
		{"42", wit.String{}, "42", false},
		{"16", wit.S64{}, int64(16), false},
		{"-3", wit.S32{}, int64(-3), false},
		{"x", wit.S64{}, nil, true},
		{"7", wit.U32{}, uint64(7), false},
		{"-7", wit.U32{}, nil, true},
		{"true", wit.Bool{}, true, false},
		{"", wit.Bool{}, false, false},
		{"maybe", wit.Bool{}, nil, true},
	}
	for _, tt := range tests {
		got, err := convertArg(tt.value, tt.typ)
		if (err != nil) != tt.wantErr {
			t.Errorf("convertArg(%q, %s) err = %v", tt.value, witTypeStr(tt.typ), err)
			continue
		}
		if got != tt.want {
			t.Errorf("convertArg(%q, %s) = %#v, want %#v", tt.value, witTypeStr(tt.typ), got, tt.want)
		}
	}
}

func TestParamsFor(t *testing.T) {
	if p := paramsFor([]string{"bool", "int", "object"}); len(p) != 1 || p[0].name != "x" {
		t.Errorf("bool params = %+v", p)
	}
	if p := paramsFor([]string{"Custom", "int", "object"}); len(p) != 2 || p[1].name != "base" {
		t.Errorf("int subclass should inherit int params, got %+v", p)
	}
	if p := paramsFor([]string{"ValueError", "Exception", "BaseException", "object"}); len(p) != 1 {
		t.Errorf("exception params = %+v", p)
	}
	if p := paramsFor([]string{"object"}); p != nil {
		t.Errorf("object params = %+v", p)
	}
}
