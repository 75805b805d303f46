// Package asm checks Intel-syntax x86-64 listings of the shape the compiler
// emits. It does not encode machine code; it validates every line in two
// passes so that a broken listing is caught before it reaches the system
// assembler.
package asm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// OperandKind classifies one instruction operand.
type OperandKind int

const (
	OperandReg   OperandKind = iota // 64-bit general purpose register
	OperandReg8                     // low byte register, as written by setcc
	OperandMem                      // [base], [base+disp] or [base-disp]
	OperandImm                      // integer literal
	OperandLabel                    // jump or call target
)

var operandKindNames = [...]string{
	OperandReg:   "r64",
	OperandReg8:  "r8",
	OperandMem:   "m64",
	OperandImm:   "imm",
	OperandLabel: "label",
}

func (k OperandKind) String() string {
	if int(k) >= 0 && int(k) < len(operandKindNames) {
		return operandKindNames[k]
	}
	return fmt.Sprintf("OperandKind(%d)", int(k))
}

// Operand is one parsed operand.
type Operand struct {
	Kind OperandKind
	Text string
	Reg  string // register name, or the base register of a memory operand
	Disp int64  // memory displacement
	Imm  int64
}

// Instruction is one checked instruction line.
type Instruction struct {
	Line     int
	Mnemonic string
	Operands []Operand
}

// Listing is the result of a successful check.
type Listing struct {
	Syntax       string         // operand of .intel_syntax
	Globals      []string       // symbols named by .global / .globl
	Labels       map[string]int // label -> line number
	Instructions []Instruction
	External     []string // call targets and globals not defined in the listing
}

var regs64 = map[string]bool{
	"rax": true, "rbx": true, "rcx": true, "rdx": true,
	"rsi": true, "rdi": true, "rbp": true, "rsp": true,
	"r8": true, "r9": true, "r10": true, "r11": true,
	"r12": true, "r13": true, "r14": true, "r15": true,
}

var regs8 = map[string]bool{
	"al": true, "bl": true, "cl": true, "dl": true,
	"sil": true, "dil": true, "bpl": true, "spl": true,
	"r8b": true, "r9b": true, "r10b": true, "r11b": true,
}

// forms lists the accepted operand shapes per mnemonic.
var forms = map[string][][]OperandKind{
	"push":  {{OperandReg}, {OperandImm}},
	"pop":   {{OperandReg}},
	"mov":   {{OperandReg, OperandReg}, {OperandReg, OperandImm}, {OperandReg, OperandMem}, {OperandMem, OperandReg}},
	"add":   {{OperandReg, OperandReg}, {OperandReg, OperandImm}},
	"sub":   {{OperandReg, OperandReg}, {OperandReg, OperandImm}},
	"and":   {{OperandReg, OperandReg}, {OperandReg, OperandImm}},
	"cmp":   {{OperandReg, OperandReg}, {OperandReg, OperandImm}},
	"imul":  {{OperandReg, OperandReg}},
	"idiv":  {{OperandReg}},
	"cqo":   {{}},
	"ret":   {{}},
	"sete":  {{OperandReg8}},
	"setne": {{OperandReg8}},
	"setl":  {{OperandReg8}},
	"setle": {{OperandReg8}},
	"movzx": {{OperandReg, OperandReg8}},
	"jmp":   {{OperandLabel}},
	"je":    {{OperandLabel}},
	"jz":    {{OperandLabel}},
	"jne":   {{OperandLabel}},
	"jnz":   {{OperandLabel}},
	"call":  {{OperandLabel}},
}

// Checker validates a listing. It is single use.
type Checker struct {
	labels map[string]int
}

type parsedLine struct {
	lineNo    int
	labels    []string
	mnemonic  string
	operands  []string
	directive bool
}

func NewChecker() *Checker {
	return &Checker{
		labels: make(map[string]int),
	}
}

// Check validates code and returns its parsed form.
func Check(code string) (*Listing, error) {
	return NewChecker().Check(code)
}

func (c *Checker) Check(code string) (*Listing, error) {
	lines := strings.Split(code, "\n")

	if err := c.pass1(lines); err != nil {
		return nil, err
	}

	return c.pass2(lines)
}

// pass1 collects label definitions.
func (c *Checker) pass1(lines []string) error {
	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}

		for _, lbl := range p.labels {
			if prev, exists := c.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d (first defined on line %d)", lbl, lineNo, prev)
			}
			c.labels[lbl] = lineNo
		}
	}
	return nil
}

// pass2 validates directives and instructions against the label table.
func (c *Checker) pass2(lines []string) (*Listing, error) {
	l := &Listing{Labels: c.labels}
	external := make(map[string]bool)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}
		if p.mnemonic == "" {
			continue
		}

		if p.directive {
			if err := c.directive(l, p); err != nil {
				return nil, err
			}
			continue
		}

		ins, err := c.instruction(p)
		if err != nil {
			return nil, err
		}
		if ins.Mnemonic == "call" {
			target := ins.Operands[0].Text
			if _, ok := c.labels[target]; !ok && !external[target] {
				external[target] = true
				l.External = append(l.External, target)
			}
		}
		l.Instructions = append(l.Instructions, ins)
	}

	// A global defined in another unit is resolved by the linker.
	for _, g := range l.Globals {
		if _, ok := c.labels[g]; !ok && !external[g] {
			external[g] = true
			l.External = append(l.External, g)
		}
	}
	return l, nil
}

func (c *Checker) directive(l *Listing, p parsedLine) error {
	switch p.mnemonic {
	case ".intel_syntax":
		if len(p.operands) != 1 || p.operands[0] != "noprefix" {
			return fmt.Errorf(".intel_syntax expects noprefix on line %d", p.lineNo)
		}
		l.Syntax = p.operands[0]
	case ".global", ".globl":
		if len(p.operands) != 1 || !isIdentifier(p.operands[0]) {
			return fmt.Errorf("%s expects one symbol on line %d", p.mnemonic, p.lineNo)
		}
		l.Globals = append(l.Globals, p.operands[0])
	default:
		return fmt.Errorf("unknown directive on line %d: %s", p.lineNo, p.mnemonic)
	}
	return nil
}

func (c *Checker) instruction(p parsedLine) (Instruction, error) {
	shapes, ok := forms[p.mnemonic]
	if !ok {
		return Instruction{}, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
	}

	ins := Instruction{Line: p.lineNo, Mnemonic: p.mnemonic}
	for _, text := range p.operands {
		op, err := parseOperand(text, p.lineNo)
		if err != nil {
			return Instruction{}, err
		}
		ins.Operands = append(ins.Operands, op)
	}

	if !matchesForm(shapes, ins.Operands) {
		return Instruction{}, fmt.Errorf("invalid operands for %s on line %d: %s", p.mnemonic, p.lineNo, describeOperands(ins.Operands))
	}

	for _, op := range ins.Operands {
		switch op.Kind {
		case OperandImm:
			// Only mov reg, imm takes a full 64-bit immediate.
			if p.mnemonic != "mov" && (op.Imm < math.MinInt32 || op.Imm > math.MaxInt32) {
				return Instruction{}, fmt.Errorf("immediate out of range on line %d: %s", p.lineNo, op.Text)
			}
		case OperandLabel:
			if p.mnemonic == "call" {
				continue
			}
			if _, ok := c.labels[op.Text]; !ok {
				return Instruction{}, fmt.Errorf("undefined label '%s' on line %d", op.Text, p.lineNo)
			}
		}
	}
	return ins, nil
}

func matchesForm(shapes [][]OperandKind, ops []Operand) bool {
	for _, shape := range shapes {
		if len(shape) != len(ops) {
			continue
		}
		ok := true
		for i, k := range shape {
			if ops[i].Kind != k {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func describeOperands(ops []Operand) string {
	if len(ops) == 0 {
		return "none"
	}
	kinds := make([]string, len(ops))
	for i, op := range ops {
		kinds[i] = op.Kind.String()
	}
	return strings.Join(kinds, ", ")
}

// parseLine splits a raw line into its labels, mnemonic and operands.
// Operands are separated by commas, since memory operands contain spaces.
func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if sp := strings.IndexAny(line, " \t"); sp >= 0 {
		mnemonic, rest = line[:sp], line[sp+1:]
	}
	p.mnemonic = strings.ToLower(mnemonic)
	p.directive = strings.HasPrefix(p.mnemonic, ".")

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return p, nil
	}
	if p.directive {
		p.operands = strings.Fields(rest)
		return p, nil
	}
	for _, op := range strings.Split(rest, ",") {
		op = strings.TrimSpace(op)
		if op == "" {
			return p, fmt.Errorf("empty operand on line %d", lineNo)
		}
		p.operands = append(p.operands, op)
	}
	return p, nil
}

func stripComments(line string) string {
	if cut := strings.IndexByte(line, '#'); cut >= 0 {
		return line[:cut]
	}
	return line
}

func parseOperand(token string, lineNo int) (Operand, error) {
	lower := strings.ToLower(token)
	if regs64[lower] {
		return Operand{Kind: OperandReg, Text: token, Reg: lower}, nil
	}
	if regs8[lower] {
		return Operand{Kind: OperandReg8, Text: token, Reg: lower}, nil
	}

	if strings.HasSuffix(lower, "]") {
		return parseMemory(token, lineNo)
	}

	if value, err := strconv.ParseInt(token, 0, 64); err == nil {
		return Operand{Kind: OperandImm, Text: token, Imm: value}, nil
	}

	if isIdentifier(token) {
		return Operand{Kind: OperandLabel, Text: token}, nil
	}

	return Operand{}, fmt.Errorf("invalid operand '%s' on line %d", token, lineNo)
}

// parseMemory accepts "QWORD PTR [base]", "QWORD PTR [base+disp]",
// "QWORD PTR [base-disp]" and the same forms without a size prefix.
func parseMemory(token string, lineNo int) (Operand, error) {
	open := strings.IndexByte(token, '[')
	if open < 0 {
		return Operand{}, fmt.Errorf("invalid memory operand '%s' on line %d", token, lineNo)
	}
	prefix := strings.ToLower(strings.Join(strings.Fields(token[:open]), " "))
	if prefix != "" && prefix != "qword ptr" {
		return Operand{}, fmt.Errorf("unsupported operand size '%s' on line %d", strings.TrimSpace(token[:open]), lineNo)
	}

	inner := strings.ToLower(strings.TrimSpace(token[open+1 : len(token)-1]))
	base, disp := inner, ""
	sign := int64(1)
	if i := strings.IndexAny(inner, "+-"); i >= 0 {
		base, disp = strings.TrimSpace(inner[:i]), strings.TrimSpace(inner[i+1:])
		if inner[i] == '-' {
			sign = -1
		}
	}
	if !regs64[base] {
		return Operand{}, fmt.Errorf("invalid base register '%s' on line %d", base, lineNo)
	}

	op := Operand{Kind: OperandMem, Text: token, Reg: base}
	if disp != "" {
		value, err := strconv.ParseInt(disp, 0, 32)
		if err != nil {
			return Operand{}, fmt.Errorf("invalid displacement '%s' on line %d", disp, lineNo)
		}
		op.Disp = sign * value
	}
	return op, nil
}

// isIdentifier accepts assembler symbols: a letter, '_' or '.' followed by
// letters, digits, '_' or '.'.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
	}

	return true
}
