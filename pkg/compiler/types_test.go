package compiler

import (
	"errors"
	"testing"
)

func TestBinaryCombine(t *testing.T) {
	tests := []struct {
		t1, t2  Type
		want    Type
		wantErr bool
	}{
		{IntType(0), IntType(0), IntType(0), false},
		{IntType(2), IntType(0), IntType(2), false},
		{IntType(0), IntType(1), IntType(1), false},
		{UnknownType, IntType(0), IntType(0), false},
		{IntType(3), UnknownType, IntType(3), false},
		{UnknownType, UnknownType, UnknownType, false},
		{IntType(1), IntType(1), Type{}, true},
		{IntType(1), IntType(2), Type{}, true},
		{StmtType, IntType(0), Type{}, true},
		{IntType(0), StmtType, Type{}, true},
	}
	for _, tc := range tests {
		got, err := BinaryCombine(tc.t1, tc.t2)
		if tc.wantErr {
			if !errors.Is(err, ErrIncompatibleTypes) {
				t.Errorf("BinaryCombine(%s, %s) error = %v, want ErrIncompatibleTypes", tc.t1, tc.t2, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("BinaryCombine(%s, %s) = %s, %v; want %s", tc.t1, tc.t2, got, err, tc.want)
		}
	}
}

func TestAssignmentCompatible(t *testing.T) {
	tests := []struct {
		lhs, rhs   Type
		ok         bool
		targetFail bool
	}{
		{IntType(0), IntType(0), true, false},
		{IntType(0), UnknownType, true, false},
		{IntType(0), IntType(1), false, false},
		{IntType(2), IntType(2), true, false},
		{IntType(1), IntType(2), false, false},
		{IntType(1), IntType(0), false, false},
		{IntType(1), UnknownType, false, false},
		{UnknownType, IntType(0), false, true},
		{StmtType, IntType(0), false, true},
	}
	for _, tc := range tests {
		err := AssignmentCompatible(tc.lhs, tc.rhs)
		if tc.ok != (err == nil) {
			t.Errorf("AssignmentCompatible(%s, %s) = %v, want ok=%v", tc.lhs, tc.rhs, err, tc.ok)
		}
		if got := errors.Is(err, ErrAssignTarget); got != tc.targetFail {
			t.Errorf("AssignmentCompatible(%s, %s): target error = %v, want %v", tc.lhs, tc.rhs, got, tc.targetFail)
		}
	}
}

func TestSizeOfAndString(t *testing.T) {
	for _, typ := range []Type{IntType(0), IntType(4), UnknownType} {
		if SizeOf(typ) != 8 {
			t.Errorf("SizeOf(%s) = %d, want 8", typ, SizeOf(typ))
		}
	}
	if SizeOf(StmtType) != 0 {
		t.Errorf("SizeOf(stmt) = %d, want 0", SizeOf(StmtType))
	}

	names := map[Type]string{
		IntType(0):  "int",
		IntType(2):  "int**",
		UnknownType: "unknown",
		StmtType:    "stmt",
	}
	for typ, want := range names {
		if typ.String() != want {
			t.Errorf("String() = %q, want %q", typ.String(), want)
		}
	}
	if !IntType(1).IsPointer() || IntType(0).IsPointer() || !IntType(0).IsInt() || UnknownType.IsInt() {
		t.Error("IsInt/IsPointer disagree with Depth")
	}
}
