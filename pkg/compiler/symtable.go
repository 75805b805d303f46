package compiler

import (
	"fmt"
	"strings"
)

// slotSize is the frame space every local occupies.
const slotSize = 8

// LocalVar is one entry of a function's local-variable table.
type LocalVar struct {
	Name   string
	Offset int // bytes below the frame base, a positive multiple of slotSize
	Type   Type
}

// Locals maps variable names to frame slots for one function. Parameters
// are declared first, so they take the lowest offsets.
type Locals struct {
	vars []LocalVar
}

// Find scans the table in declaration order and returns the first match.
func (l *Locals) Find(name string) (LocalVar, bool) {
	for _, v := range l.vars {
		if v.Name == name {
			return v, true
		}
	}
	return LocalVar{}, false
}

// Declare assigns name the next free slot, (count+1)*8. A name can only be
// declared once per function.
func (l *Locals) Declare(name string, typ Type) (LocalVar, error) {
	if _, ok := l.Find(name); ok {
		return LocalVar{}, fmt.Errorf("redefinition of local variable %q", name)
	}
	v := LocalVar{Name: name, Offset: (len(l.vars) + 1) * slotSize, Type: typ}
	l.vars = append(l.vars, v)
	return v, nil
}

func (l *Locals) Len() int { return len(l.vars) }

// Vars returns the entries in declaration order.
func (l *Locals) Vars() []LocalVar { return l.vars }

// FrameSize is the space the prologue must reserve for every slot, rounded
// up to keep rsp 16-byte aligned.
func (l *Locals) FrameSize() int {
	return alignTo(len(l.vars)*slotSize, 16)
}

func alignTo(n, align int) int {
	return (n + align - 1) / align * align
}

// String returns the table in declaration order.
func (l *Locals) String() string {
	if len(l.vars) == 0 {
		return "Locals: (empty)\n"
	}
	var sb strings.Builder
	sb.WriteString("Locals:\n")
	for _, v := range l.vars {
		fmt.Fprintf(&sb, "  %-20s  Offset: %d (Type: %s)\n", v.Name, v.Offset, v.Type)
	}
	return sb.String()
}
