package compiler

import (
	"fmt"
	"io"
	"strings"
)

// NodeKind tags an AST node.
type NodeKind int

const (
	NodeAdd    NodeKind = iota // lhs + rhs
	NodeSub                    // lhs - rhs
	NodeMul                    // lhs * rhs
	NodeDiv                    // lhs / rhs
	NodeEq                     // lhs == rhs
	NodeNe                     // lhs != rhs
	NodeLt                     // lhs < rhs; also rhs > lhs
	NodeLe                     // lhs <= rhs; also rhs >= lhs
	NodeAssign                 // lhs = rhs
	NodeLvar                   // local variable reference
	NodeNum                    // integer literal
	NodeReturn                 // return lhs
	NodeIf                     // lhs: IfFlag, rhs: IfStmt
	NodeIfFlag                 // lhs: condition
	NodeIfStmt                 // lhs: then, rhs: else or NoNode
	NodeWhile                  // lhs: condition, rhs: body
	NodeFor                    // lhs: ForFst, rhs: ForSnd
	NodeForFst                 // lhs: init, rhs: condition (either may be NoNode)
	NodeForSnd                 // lhs: post or NoNode, rhs: body
	NodeBlock                  // lhs: statement, rhs: next Block; lhs NoNode ends the chain
	NodeCall                   // Name: callee, rhs: first Arg or NoNode
	NodeArg                    // lhs: argument expression, rhs: next Arg or NoNode
	NodeAddr                   // &lhs
	NodeDeref                  // *lhs
	NodeDecl                   // int declaration of Name
)

var nodeKindNames = [...]string{
	NodeAdd:    "Add",
	NodeSub:    "Sub",
	NodeMul:    "Mul",
	NodeDiv:    "Div",
	NodeEq:     "Eq",
	NodeNe:     "Ne",
	NodeLt:     "Lt",
	NodeLe:     "Le",
	NodeAssign: "Assign",
	NodeLvar:   "Lvar",
	NodeNum:    "Num",
	NodeReturn: "Return",
	NodeIf:     "If",
	NodeIfFlag: "IfFlag",
	NodeIfStmt: "IfStmt",
	NodeWhile:  "While",
	NodeFor:    "For",
	NodeForFst: "ForFst",
	NodeForSnd: "ForSnd",
	NodeBlock:  "Block",
	NodeCall:   "Call",
	NodeArg:    "Arg",
	NodeAddr:   "Addr",
	NodeDeref:  "Deref",
	NodeDecl:   "Decl",
}

func (k NodeKind) String() string {
	if int(k) >= 0 && int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// NoNode is the null child handle.
const NoNode = -1

// Node is one entry of a function's arena. Lhs and Rhs are handles into the
// same NodeList, never pointers.
type Node struct {
	Kind   NodeKind
	Lhs    int
	Rhs    int
	Val    int64  // NodeNum
	Offset int    // NodeLvar: distance below the frame base
	Name   string // NodeLvar, NodeDecl, NodeCall
	Pos    Pos
	Type   Type
}

// NodeList is the append-only arena owning every node of one function, the
// handles of its top-level statements, and its local variables.
type NodeList struct {
	Nodes  []Node
	Roots  []int
	Locals *Locals
}

func newNodeList() *NodeList {
	return &NodeList{Locals: &Locals{}}
}

// appendNode stores a new node and returns its stable handle.
func (nl *NodeList) appendNode(kind NodeKind, pos Pos, lhs, rhs int, name string, typ Type) int {
	nl.Nodes = append(nl.Nodes, Node{Kind: kind, Lhs: lhs, Rhs: rhs, Name: name, Pos: pos, Type: typ})
	return len(nl.Nodes) - 1
}

func (nl *NodeList) appendNum(pos Pos, val int64) int {
	nl.Nodes = append(nl.Nodes, Node{Kind: NodeNum, Lhs: NoNode, Rhs: NoNode, Val: val, Pos: pos, Type: IntType(0)})
	return len(nl.Nodes) - 1
}

func (nl *NodeList) appendLvar(pos Pos, lv LocalVar) int {
	nl.Nodes = append(nl.Nodes, Node{
		Kind:   NodeLvar,
		Lhs:    NoNode,
		Rhs:    NoNode,
		Offset: lv.Offset,
		Name:   lv.Name,
		Pos:    pos,
		Type:   lv.Type,
	})
	return len(nl.Nodes) - 1
}

// Node returns the node behind handle i.
func (nl *NodeList) Node(i int) *Node {
	return &nl.Nodes[i]
}

// Dump writes every root as an indented tree.
func (nl *NodeList) Dump(w io.Writer) {
	for _, root := range nl.Roots {
		nl.dump(w, root, 1)
	}
}

func (nl *NodeList) dump(w io.Writer, i, depth int) {
	indent := strings.Repeat("  ", depth)
	if i == NoNode {
		fmt.Fprintf(w, "%s-\n", indent)
		return
	}
	n := nl.Node(i)
	switch n.Kind {
	case NodeNum:
		fmt.Fprintf(w, "%s#%d Num %d\n", indent, i, n.Val)
		return
	case NodeLvar:
		fmt.Fprintf(w, "%s#%d Lvar %s [rbp-%d] %s\n", indent, i, n.Name, n.Offset, n.Type)
		return
	case NodeDecl:
		fmt.Fprintf(w, "%s#%d Decl %s\n", indent, i, n.Name)
		return
	case NodeCall:
		fmt.Fprintf(w, "%s#%d Call %s\n", indent, i, n.Name)
		for arg := n.Rhs; arg != NoNode; arg = nl.Node(arg).Rhs {
			nl.dump(w, nl.Node(arg).Lhs, depth+1)
		}
		return
	case NodeBlock:
		fmt.Fprintf(w, "%s#%d Block\n", indent, i)
		for b := i; nl.Node(b).Lhs != NoNode; b = nl.Node(b).Rhs {
			nl.dump(w, nl.Node(b).Lhs, depth+1)
		}
		return
	}
	fmt.Fprintf(w, "%s#%d %s %s\n", indent, i, n.Kind, n.Type)
	if n.Lhs != NoNode || n.Rhs != NoNode {
		nl.dump(w, n.Lhs, depth+1)
	}
	if n.Rhs != NoNode {
		nl.dump(w, n.Rhs, depth+1)
	}
}
