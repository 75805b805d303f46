package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// TypeKind selects the variant of a Type.
type TypeKind int

const (
	TypeInt     TypeKind = iota // int with Depth levels of indirection
	TypeUnknown                 // result of a call; signatures are not tracked
	TypeStmt                    // scaffolding node that produces no value
)

// Type is the closed set of semantic types. Depth is meaningful only for
// TypeInt: 0 is a plain int, n > 0 a pointer nested n levels deep.
type Type struct {
	Kind  TypeKind
	Depth int
}

var (
	UnknownType = Type{Kind: TypeUnknown}
	StmtType    = Type{Kind: TypeStmt}
)

// IntType returns int with depth levels of indirection.
func IntType(depth int) Type {
	return Type{Kind: TypeInt, Depth: depth}
}

// IsInt reports whether t is a plain int.
func (t Type) IsInt() bool { return t.Kind == TypeInt && t.Depth == 0 }

// IsPointer reports whether t is int* or deeper.
func (t Type) IsPointer() bool { return t.Kind == TypeInt && t.Depth > 0 }

func (t Type) String() string {
	switch t.Kind {
	case TypeInt:
		return "int" + strings.Repeat("*", t.Depth)
	case TypeUnknown:
		return "unknown"
	case TypeStmt:
		return "stmt"
	}
	return fmt.Sprintf("Type(%d)", int(t.Kind))
}

var (
	ErrIncompatibleTypes = errors.New("operation between incompatible types")
	ErrAssignTarget      = errors.New("invalid assignment target")
)

// BinaryCombine returns the type of t1 op t2 for the arithmetic operators.
// Pointer depth survives mixing with a scalar; two pointers never combine.
func BinaryCombine(t1, t2 Type) (Type, error) {
	switch {
	case t1.Kind == TypeInt && t2.Kind == TypeInt:
		if t1.Depth == 0 {
			return t2, nil
		}
		if t2.Depth == 0 {
			return t1, nil
		}
	case t1.Kind == TypeInt && t2.Kind == TypeUnknown:
		return t1, nil
	case t1.Kind == TypeUnknown && t2.Kind == TypeInt:
		return t2, nil
	case t1.Kind == TypeUnknown && t2.Kind == TypeUnknown:
		return UnknownType, nil
	}
	return Type{}, fmt.Errorf("%w: %s and %s", ErrIncompatibleTypes, t1, t2)
}

// AssignmentCompatible checks lhs = rhs. An int accepts an int or the result
// of a call; a pointer accepts only the exact same pointer type.
func AssignmentCompatible(lhs, rhs Type) error {
	if lhs.Kind != TypeInt {
		return fmt.Errorf("%w: cannot assign to %s", ErrAssignTarget, lhs)
	}
	if lhs.Depth == 0 {
		if rhs.IsInt() || rhs.Kind == TypeUnknown {
			return nil
		}
	} else if rhs.Kind == TypeInt && rhs.Depth == lhs.Depth {
		return nil
	}
	return fmt.Errorf("cannot assign %s to %s", rhs, lhs)
}

// SizeOf returns the storage size of a value. Every scalar occupies one
// 8-byte slot, so int and pointers are not distinguished here.
func SizeOf(t Type) int {
	switch t.Kind {
	case TypeInt, TypeUnknown:
		return 8
	}
	return 0
}
