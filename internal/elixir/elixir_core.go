// Package elixir defines the target node algebra: the closed set of AST
// shapes the lowering pipeline produces. Nodes are pure data with no
// behavior beyond span accessors, immutable by convention: a builder that wants
// a variation of an existing node composes a new one, it never edits in
// place. The shipping text renderer consumes this tree as-is; nothing here
// requires further name resolution.
package elixir

import "github.com/funvibe/alchemist/internal/token"

// Node is the base interface for all target AST nodes.
type Node interface {
	NodeSpan() token.Span
}

// Expr is a Node usable in value position.
type Expr interface {
	Node
	exprNode()
}

// Pattern is a Node usable in match position. Patterns form a parallel
// algebra: every binder a pattern introduces is visible to the clause body
// it guards, and unused binders are explicit wildcards, never dropped
// (dropping changes the arity of tuple and struct patterns).
type Pattern interface {
	Node
	patternNode()
}

// IntegerLit represents an integer literal.
type IntegerLit struct {
	Span  token.Span
	Value int64
}

func (n *IntegerLit) exprNode()            {}
func (n *IntegerLit) NodeSpan() token.Span { return n.Span }

// FloatLit represents a floating point literal.
type FloatLit struct {
	Span  token.Span
	Value float64
}

func (n *FloatLit) exprNode()            {}
func (n *FloatLit) NodeSpan() token.Span { return n.Span }

// StringLit represents a plain (non-interpolated) string literal.
type StringLit struct {
	Span  token.Span
	Value string
}

func (n *StringLit) exprNode()            {}
func (n *StringLit) NodeSpan() token.Span { return n.Span }

// BooleanLit represents true or false.
type BooleanLit struct {
	Span  token.Span
	Value bool
}

func (n *BooleanLit) exprNode()            {}
func (n *BooleanLit) NodeSpan() token.Span { return n.Span }

// NilLit represents the nil literal.
type NilLit struct {
	Span token.Span
}

func (n *NilLit) exprNode()            {}
func (n *NilLit) NodeSpan() token.Span { return n.Span }

// AtomLit represents an atom, e.g. :ok. Name is stored without the colon.
type AtomLit struct {
	Span token.Span
	Name string
}

func (n *AtomLit) exprNode()            {}
func (n *AtomLit) NodeSpan() token.Span { return n.Span }

// Var represents a variable reference. Name is the fully resolved name; the
// lowering context performed all renaming before constructing this node.
type Var struct {
	Span token.Span
	Name string
}

func (n *Var) exprNode()            {}
func (n *Var) NodeSpan() token.Span { return n.Span }

// ListLit represents a list, e.g. [1, 2, 3].
type ListLit struct {
	Span     token.Span
	Elements []Expr
}

func (n *ListLit) exprNode()            {}
func (n *ListLit) NodeSpan() token.Span { return n.Span }

// TupleLit represents a tuple, e.g. {:point, x, y}.
type TupleLit struct {
	Span     token.Span
	Elements []Expr
}

func (n *TupleLit) exprNode()            {}
func (n *TupleLit) NodeSpan() token.Span { return n.Span }

// MapPair is a single key/value entry of a MapLit.
type MapPair struct {
	Key   Expr
	Value Expr
}

// MapLit represents a map literal, e.g. %{"a" => 1}. Pairs preserve
// insertion order so rewrites keep source evaluation order.
type MapLit struct {
	Span  token.Span
	Pairs []MapPair
}

func (n *MapLit) exprNode()            {}
func (n *MapLit) NodeSpan() token.Span { return n.Span }

// KeywordPair is a single atom-keyed entry of a KeywordList.
type KeywordPair struct {
	Key   string
	Value Expr
}

// KeywordList represents a keyword list, e.g. [do: 1, else: 2].
type KeywordList struct {
	Span  token.Span
	Pairs []KeywordPair
}

func (n *KeywordList) exprNode()            {}
func (n *KeywordList) NodeSpan() token.Span { return n.Span }

// StructLit represents a struct literal, e.g. %Point{x: 1, y: 2}.
type StructLit struct {
	Span   token.Span
	Module string
	Fields []KeywordPair
}

func (n *StructLit) exprNode()            {}
func (n *StructLit) NodeSpan() token.Span { return n.Span }

// StringInterp represents an interpolated string. Parts alternate freely
// between *StringLit (literal text) and arbitrary expressions (spliced as
// #{...} by the renderer).
type StringInterp struct {
	Span  token.Span
	Parts []Expr
}

func (n *StringInterp) exprNode()            {}
func (n *StringInterp) NodeSpan() token.Span { return n.Span }

// RawCode represents verbatim injected target code. It is produced only by
// the verbatim-injection escape hatch; the renderer splices Code unchanged.
type RawCode struct {
	Span token.Span
	Code string
}

func (n *RawCode) exprNode()            {}
func (n *RawCode) NodeSpan() token.Span { return n.Span }

// Block represents a statement sequence. An empty Block renders as nothing
// at all, deliberately distinct from an explicit nil value.
type Block struct {
	Span  token.Span
	Exprs []Expr
}

func (n *Block) exprNode()            {}
func (n *Block) NodeSpan() token.Span { return n.Span }

// IsEmpty reports whether the block contains no expressions.
func (n *Block) IsEmpty() bool { return len(n.Exprs) == 0 }

// ModuleDef represents a defmodule with its body in declaration order.
type ModuleDef struct {
	Span token.Span
	Name string
	Body []Expr
}

func (n *ModuleDef) exprNode()            {}
func (n *ModuleDef) NodeSpan() token.Span { return n.Span }

// StructField is one field of a StructDef with its default value.
type StructField struct {
	Name    string
	Default Expr // nil means no default
}

// StructDef represents a defstruct declaration inside a module.
type StructDef struct {
	Span   token.Span
	Fields []StructField
}

func (n *StructDef) exprNode()            {}
func (n *StructDef) NodeSpan() token.Span { return n.Span }

// ModuleAttr represents a module attribute definition, e.g. @max_size 10.
type ModuleAttr struct {
	Span  token.Span
	Name  string
	Value Expr
}

func (n *ModuleAttr) exprNode()            {}
func (n *ModuleAttr) NodeSpan() token.Span { return n.Span }

// FunctionDef represents a def or defp clause.
type FunctionDef struct {
	Span    token.Span
	Name    string
	Params  []Pattern
	Guard   Expr // optional, nil when absent
	Body    Expr
	Private bool
}

func (n *FunctionDef) exprNode()            {}
func (n *FunctionDef) NodeSpan() token.Span { return n.Span }
