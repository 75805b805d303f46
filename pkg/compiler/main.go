// Package compiler provides the lexer, parser and code generator of a small
// C subset that targets x86-64 in Intel syntax.
//
// Pipeline: C source → Lex → Parse → Generate → assembly text
//
// The supported language has int and pointer-to-int types of any depth,
// local variables, if/while/for, return, sizeof and calls with up to six
// arguments. Every expression is evaluated on the machine stack.
package compiler
