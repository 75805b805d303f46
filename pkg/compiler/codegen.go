package compiler

import (
	"fmt"
	"math"
	"strings"
)

// argRegs are the System V integer argument registers in argument order.
var argRegs = [MaxArgs]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// CodeGen emits Intel-syntax x86-64 assembly for a list of parsed functions.
type CodeGen struct {
	opts Options
	out  strings.Builder
}

func newCodeGen(opts Options) *CodeGen {
	return &CodeGen{opts: opts}
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

// ins emits one indented instruction.
func (cg *CodeGen) ins(format string, args ...any) {
	cg.line("  "+format, args...)
}

func (cg *CodeGen) label(name string) {
	cg.line("%s:", name)
}

func (cg *CodeGen) comment(format string, args ...any) {
	if cg.opts.Comments {
		cg.line("  # "+format, args...)
	}
}

// labeler hands out label suffixes for one function. Labels carry the
// function name, so counters of different functions never collide.
type labeler struct {
	fn   string
	next int
}

func (l *labeler) newLabel(kind string) string {
	name := fmt.Sprintf(".L%s.%s.%d", kind, l.fn, l.next)
	l.next++
	return name
}

// funcGen lowers one function. It only reads the arena.
type funcGen struct {
	cg     *CodeGen
	nl     *NodeList
	labels *labeler
}

// Generate lowers every function and returns the complete listing. Nothing
// is returned unless every function lowers cleanly.
func Generate(funcs []*Func, opts Options) (string, error) {
	cg := newCodeGen(opts)
	cg.line(".intel_syntax noprefix")
	cg.line(".global main")
	for _, f := range funcs {
		if _, err := cg.genFunc(f); err != nil {
			return "", err
		}
	}
	return cg.out.String(), nil
}

// frameSize returns the bytes the prologue reserves for f.
func (cg *CodeGen) frameSize(f *Func) (int, error) {
	need := f.Program.Locals.FrameSize()
	if cg.opts.FrameSize == 0 {
		return need, nil
	}
	if need > cg.opts.FrameSize {
		return 0, newError(KindSemantic, f.Pos, "", "function %q needs %d bytes of locals but the frame is fixed at %d", f.Name, need, cg.opts.FrameSize)
	}
	return cg.opts.FrameSize, nil
}

// genFunc emits the prologue, the parameter spills, each top-level
// statement and the epilogue. It returns the frame size used.
func (cg *CodeGen) genFunc(f *Func) (int, error) {
	frame, err := cg.frameSize(f)
	if err != nil {
		return 0, err
	}

	cg.label(f.Name)
	if cg.opts.Comments {
		for _, v := range f.Program.Locals.Vars() {
			cg.comment("%s %s at [rbp-%d]", v.Type, v.Name, v.Offset)
		}
	}
	cg.ins("push rbp")
	cg.ins("mov rbp, rsp")
	if frame > 0 {
		cg.ins("sub rsp, %d", frame)
	}

	for i, p := range f.Params {
		lv, ok := f.Program.Locals.Find(p.Name)
		if !ok {
			return 0, internalErrorf(f.Pos, "parameter %q of %q has no frame slot", p.Name, f.Name)
		}
		cg.ins("mov QWORD PTR [rbp-%d], %s", lv.Offset, argRegs[i])
	}

	fg := &funcGen{cg: cg, nl: f.Program, labels: &labeler{fn: f.Name}}
	for _, root := range f.Program.Roots {
		n := f.Program.Node(root)
		cg.comment("%s %s", n.Pos, n.Kind)
		if err := fg.gen(root); err != nil {
			return 0, err
		}
		cg.ins("pop rax")
	}

	cg.ins("mov rsp, rbp")
	cg.ins("pop rbp")
	cg.ins("ret")
	return frame, nil
}

// genLval pushes the address of an assignable node.
func (fg *funcGen) genLval(i int) error {
	n := fg.nl.Node(i)
	switch n.Kind {
	case NodeLvar:
		fg.cg.ins("mov rax, rbp")
		fg.cg.ins("sub rax, %d", n.Offset)
		fg.cg.ins("push rax")
		return nil
	case NodeDeref:
		return fg.gen(n.Lhs)
	}
	return internalErrorf(n.Pos, "%s is not addressable", n.Kind)
}

// load replaces the address on top of the stack with the value it points at.
func (fg *funcGen) load(t Type) error {
	if SizeOf(t) != 8 {
		return internalErrorf(Pos{}, "cannot load a value of type %s", t)
	}
	fg.cg.ins("pop rax")
	fg.cg.ins("mov rax, QWORD PTR [rax]")
	fg.cg.ins("push rax")
	return nil
}

// gen emits code leaving exactly one value on the stack.
func (fg *funcGen) gen(i int) error {
	cg := fg.cg
	n := fg.nl.Node(i)

	switch n.Kind {
	case NodeNum:
		if n.Val >= math.MinInt32 && n.Val <= math.MaxInt32 {
			cg.ins("push %d", n.Val)
		} else {
			cg.ins("mov rax, %d", n.Val)
			cg.ins("push rax")
		}
		return nil

	case NodeLvar:
		if err := fg.genLval(i); err != nil {
			return err
		}
		return fg.load(n.Type)

	case NodeAssign:
		if err := fg.genLval(n.Lhs); err != nil {
			return err
		}
		if err := fg.gen(n.Rhs); err != nil {
			return err
		}
		cg.ins("pop rdi")
		cg.ins("pop rax")
		cg.ins("mov QWORD PTR [rax], rdi")
		cg.ins("push rdi")
		return nil

	case NodeAddr:
		return fg.genLval(n.Lhs)

	case NodeDeref:
		if err := fg.gen(n.Lhs); err != nil {
			return err
		}
		return fg.load(n.Type)

	case NodeReturn:
		if err := fg.gen(n.Lhs); err != nil {
			return err
		}
		cg.ins("pop rax")
		cg.ins("mov rsp, rbp")
		cg.ins("pop rbp")
		cg.ins("ret")
		return nil

	case NodeDecl:
		cg.ins("push 0")
		return nil

	case NodeBlock:
		return fg.genBlock(i)

	case NodeIf:
		return fg.genIf(n)

	case NodeWhile:
		return fg.genWhile(n)

	case NodeFor:
		return fg.genFor(n)

	case NodeCall:
		return fg.genCall(n)
	}

	return fg.genBinary(n)
}

// genBlock walks the Block chain, discarding every value but the last.
func (fg *funcGen) genBlock(i int) error {
	if fg.nl.Node(i).Lhs == NoNode {
		fg.cg.ins("push 0")
		return nil
	}
	for b := i; fg.nl.Node(b).Lhs != NoNode; b = fg.nl.Node(b).Rhs {
		if b != i {
			fg.cg.ins("pop rax")
		}
		if err := fg.gen(fg.nl.Node(b).Lhs); err != nil {
			return err
		}
	}
	return nil
}

// genCond evaluates a condition and jumps to target when it is zero.
func (fg *funcGen) genCond(cond int, target string) error {
	if err := fg.gen(cond); err != nil {
		return err
	}
	fg.cg.ins("pop rax")
	fg.cg.ins("cmp rax, 0")
	fg.cg.ins("je %s", target)
	return nil
}

func (fg *funcGen) genIf(n *Node) error {
	flag := fg.nl.Node(n.Lhs)
	branches := fg.nl.Node(n.Rhs)
	if flag.Kind != NodeIfFlag || branches.Kind != NodeIfStmt {
		return internalErrorf(n.Pos, "malformed if: %s, %s", flag.Kind, branches.Kind)
	}

	elseLabel := fg.labels.newLabel("else")
	endLabel := fg.labels.newLabel("end")
	if err := fg.genCond(flag.Lhs, elseLabel); err != nil {
		return err
	}
	if err := fg.gen(branches.Lhs); err != nil {
		return err
	}
	fg.cg.ins("jmp %s", endLabel)
	fg.cg.label(elseLabel)
	if branches.Rhs != NoNode {
		if err := fg.gen(branches.Rhs); err != nil {
			return err
		}
	} else {
		fg.cg.ins("push 0")
	}
	fg.cg.label(endLabel)
	return nil
}

func (fg *funcGen) genWhile(n *Node) error {
	begin := fg.labels.newLabel("begin")
	end := fg.labels.newLabel("end")
	fg.cg.label(begin)
	if err := fg.genCond(n.Lhs, end); err != nil {
		return err
	}
	if err := fg.gen(n.Rhs); err != nil {
		return err
	}
	fg.cg.ins("pop rax")
	fg.cg.ins("jmp %s", begin)
	fg.cg.label(end)
	fg.cg.ins("push 0")
	return nil
}

func (fg *funcGen) genFor(n *Node) error {
	fst := fg.nl.Node(n.Lhs)
	snd := fg.nl.Node(n.Rhs)
	if fst.Kind != NodeForFst || snd.Kind != NodeForSnd {
		return internalErrorf(n.Pos, "malformed for: %s, %s", fst.Kind, snd.Kind)
	}

	begin := fg.labels.newLabel("begin")
	end := fg.labels.newLabel("end")
	if fst.Lhs != NoNode {
		if err := fg.gen(fst.Lhs); err != nil {
			return err
		}
		fg.cg.ins("pop rax")
	}
	fg.cg.label(begin)
	if fst.Rhs != NoNode {
		if err := fg.genCond(fst.Rhs, end); err != nil {
			return err
		}
	}
	if err := fg.gen(snd.Rhs); err != nil {
		return err
	}
	fg.cg.ins("pop rax")
	if snd.Lhs != NoNode {
		if err := fg.gen(snd.Lhs); err != nil {
			return err
		}
		fg.cg.ins("pop rax")
	}
	fg.cg.ins("jmp %s", begin)
	fg.cg.label(end)
	fg.cg.ins("push 0")
	return nil
}

// genCall evaluates the arguments left to right, moves them into the
// argument registers and calls with rsp 16-byte aligned.
func (fg *funcGen) genCall(n *Node) error {
	cg := fg.cg
	nargs := 0
	for arg := n.Rhs; arg != NoNode; arg = fg.nl.Node(arg).Rhs {
		a := fg.nl.Node(arg)
		if a.Kind != NodeArg || nargs == MaxArgs {
			return internalErrorf(a.Pos, "malformed argument list in call to %q", n.Name)
		}
		if err := fg.gen(a.Lhs); err != nil {
			return err
		}
		nargs++
	}
	for i := nargs - 1; i >= 0; i-- {
		cg.ins("pop %s", argRegs[i])
	}

	call := fg.labels.newLabel("call")
	end := fg.labels.newLabel("callend")
	cg.ins("mov rax, rsp")
	cg.ins("and rax, 15")
	cg.ins("jnz %s", call)
	cg.ins("mov rax, 0")
	cg.ins("call %s", n.Name)
	cg.ins("jmp %s", end)
	cg.label(call)
	cg.ins("sub rsp, 8")
	cg.ins("mov rax, 0")
	cg.ins("call %s", n.Name)
	cg.ins("add rsp, 8")
	cg.label(end)
	cg.ins("push rax")
	return nil
}

var setcc = map[NodeKind]string{
	NodeEq: "sete",
	NodeNe: "setne",
	NodeLt: "setl",
	NodeLe: "setle",
}

// genBinary lowers the arithmetic and comparison operators. Any other kind
// arriving here is a malformed tree.
func (fg *funcGen) genBinary(n *Node) error {
	cg := fg.cg
	switch n.Kind {
	case NodeAdd, NodeSub, NodeMul, NodeDiv, NodeEq, NodeNe, NodeLt, NodeLe:
	default:
		return internalErrorf(n.Pos, "unexpected %s node in expression", n.Kind)
	}

	if err := fg.gen(n.Lhs); err != nil {
		return err
	}
	if err := fg.gen(n.Rhs); err != nil {
		return err
	}
	cg.ins("pop rdi")
	cg.ins("pop rax")

	switch n.Kind {
	case NodeAdd:
		cg.ins("add rax, rdi")
	case NodeSub:
		cg.ins("sub rax, rdi")
	case NodeMul:
		cg.ins("imul rax, rdi")
	case NodeDiv:
		cg.ins("cqo")
		cg.ins("idiv rdi")
	default:
		cg.ins("cmp rax, rdi")
		cg.ins("%s al", setcc[n.Kind])
		cg.ins("movzx rax, al")
	}
	cg.ins("push rax")
	return nil
}
