package ir

import "github.com/funvibe/alchemist/internal/token"

// Expr is the base interface for typed-IR expression nodes. Every node
// carries the span the front-end recorded and the static type it resolved
// (nil for statements with no value, e.g. Break).
type Expr interface {
	exprNode()
	ExprSpan() token.Span
	ExprType() Type
}

type Base struct {
	Span token.Span
	Type Type
}

func (e Base) ExprSpan() token.Span { return e.Span }
func (e Base) ExprType() Type       { return e.Type }

// IntConst is an integer literal.
type IntConst struct {
	Base
	Value int64
}

func (e *IntConst) exprNode() {}

// FloatConst is a floating point literal.
type FloatConst struct {
	Base
	Value float64
}

func (e *FloatConst) exprNode() {}

// StringConst is a string literal.
type StringConst struct {
	Base
	Value string
}

func (e *StringConst) exprNode() {}

// BoolConst is a boolean literal.
type BoolConst struct {
	Base
	Value bool
}

func (e *BoolConst) exprNode() {}

// NullConst is the null literal.
type NullConst struct {
	Base
}

func (e *NullConst) exprNode() {}

// ThisRef is a reference to the current instance inside a method body.
type ThisRef struct {
	Base
}

func (e *ThisRef) exprNode() {}

// LocalRef is a reference to a local variable. ID is the stable binder id
// the front-end assigned at declaration; Name is the source-level name.
// The front-end sometimes reuses names under fresh ids and sometimes
// reuses ids under renamed locals, which is why the lowering context keys
// its rename tables by both.
type LocalRef struct {
	Base
	ID   int
	Name string
}

func (e *LocalRef) exprNode() {}

// VarDecl declares (and optionally initializes) a local variable.
// Synthesized marks infrastructure temporaries the front-end's own
// lowering passes introduced (loop counters, iteration state); the block
// builder uses this to decide which temporaries are fair game for
// reconstruction rewrites.
type VarDecl struct {
	Base
	ID          int
	Name        string
	Init        Expr // nil when declared without initializer
	Synthesized bool
}

func (e *VarDecl) exprNode() {}

// Binop is a binary operation. When Op is OpAssignOp, Assign carries the
// underlying operator (x += y arrives as Binop{Op: OpAssignOp, Assign:
// OpAdd}).
type Binop struct {
	Base
	Op     BinopKind
	Assign BinopKind
	Left   Expr
	Right  Expr
}

func (e *Binop) exprNode() {}

// Unop is a unary operation. Postfix distinguishes i++ from ++i, which
// matters only for the value an enclosing expression observes.
type Unop struct {
	Base
	Op      UnopKind
	Postfix bool
	Operand Expr
}

func (e *Unop) exprNode() {}

// FieldKind discriminates the access variants of Field.
type FieldKind int

const (
	FieldInstance FieldKind = iota
	FieldStatic
	FieldDynamic
	FieldClosure // method referenced as a value, not called
	FieldEnumCtor
)

// Field is a member access. Receiver is nil for static access (Class
// carries the owner); for FieldEnumCtor, Enum and CtorIndex identify the
// referenced constructor and generic field metadata is unused.
type Field struct {
	Base
	Kind      FieldKind
	Receiver  Expr
	Class     string // owning class name (static, instance, closure)
	Name      string // field or method name
	FieldType Type   // declared type of the field, when known
	Arity     int    // FieldClosure only: arity of the referenced method
	Enum      *EnumDecl
	CtorIndex int
}

func (e *Field) exprNode() {}

// ArrayAccess is an indexed read, e.g. a[i].
type ArrayAccess struct {
	Base
	Target Expr
	Index  Expr
}

func (e *ArrayAccess) exprNode() {}

// Call is a function or method invocation. The callee shape decides the
// lowering: Field with FieldStatic/FieldInstance for method calls,
// LocalRef for local function values, Field with FieldEnumCtor for
// constructor applications.
type Call struct {
	Base
	Callee Expr
	Args   []Expr
}

func (e *Call) exprNode() {}

// New is a constructor invocation, e.g. new Point(1, 2).
type New struct {
	Base
	Class string
	Args  []Expr
}

func (e *New) exprNode() {}

// If is a conditional. Else may be nil.
type If struct {
	Base
	Cond Expr
	Then Expr
	Else Expr
}

func (e *If) exprNode() {}

// While is a pre- or post-tested loop.
type While struct {
	Base
	Cond    Expr
	Body    Expr
	DoWhile bool
}

func (e *While) exprNode() {}

// For is an iterator loop: for (v in iter) body.
type For struct {
	Base
	VarID   int
	VarName string
	Iter    Expr
	Body    Expr
}

func (e *For) exprNode() {}

// SwitchCase is one arm of a Switch. Values holds the compile-time
// discriminants this arm matches.
type SwitchCase struct {
	Values []Expr
	Body   Expr
}

// Switch is a multi-way dispatch. When the front-end lowered an enum match,
// Subject is an EnumIndex wrapper and Values are integer tag constants;
// the control-flow builder reconstructs the pattern match from that shape.
type Switch struct {
	Base
	Subject Expr
	Cases   []SwitchCase
	Default Expr // nil when absent
}

func (e *Switch) exprNode() {}

// Catch is one catch arm of a Try. A nil or Dynamic Type marks a
// catch-all.
type Catch struct {
	VarID   int
	VarName string
	Type    Type
	Body    Expr
}

// Try is an exception handler.
type Try struct {
	Base
	Body    Expr
	Catches []Catch
}

func (e *Try) exprNode() {}

// Throw raises a value.
type Throw struct {
	Base
	Value Expr
}

func (e *Throw) exprNode() {}

// Return exits the enclosing function. Value may be nil.
type Return struct {
	Base
	Value Expr
}

func (e *Return) exprNode() {}

// Break exits the enclosing loop.
type Break struct {
	Base
}

func (e *Break) exprNode() {}

// Continue skips to the next iteration of the enclosing loop.
type Continue struct {
	Base
}

func (e *Continue) exprNode() {}

// Block is a statement sequence.
type Block struct {
	Base
	Exprs []Expr
}

func (e *Block) exprNode() {}

// Param is a function parameter. Optional parameters carry the declared
// default; omitted trailing optionals are padded with nil at call sites.
type Param struct {
	ID       int
	Name     string
	Type     Type
	Optional bool
	Default  Expr
}

// Function is a closure literal.
type Function struct {
	Base
	Params []Param
	Ret    Type
	Body   Expr
}

func (e *Function) exprNode() {}

// ArrayDecl is an array literal, e.g. [1, 2, 3].
type ArrayDecl struct {
	Base
	Elements []Expr
}

func (e *ArrayDecl) exprNode() {}

// ObjectField is one field of an ObjectDecl.
type ObjectField struct {
	Name  string
	Value Expr
}

// ObjectDecl is an anonymous object literal, e.g. {x: 1, y: 2}.
type ObjectDecl struct {
	Base
	Fields []ObjectField
}

func (e *ObjectDecl) exprNode() {}

// EnumParameter extracts the parameter at ParamIndex from an enum value
// known to be constructed by the constructor at CtorIndex. The front-end
// produces these when it flattens a structured match into raw extraction
// calls; the enum handler's binding-recovery pass turns them back into
// pattern binders.
type EnumParameter struct {
	Base
	Value      Expr
	Enum       *EnumDecl
	CtorIndex  int
	ParamIndex int
}

func (e *EnumParameter) exprNode() {}

// EnumIndex reads the constructor tag of an enum value as an integer.
type EnumIndex struct {
	Base
	Value Expr
}

func (e *EnumIndex) exprNode() {}

// TypeExpr is a reference to a type used as a value (static module
// reference).
type TypeExpr struct {
	Base
	Name string
}

func (e *TypeExpr) exprNode() {}

// Meta wraps an expression with front-end metadata, e.g. positions
// adjusted by macros. Builders look through it.
type Meta struct {
	Base
	Name  string
	Inner Expr
}

func (e *Meta) exprNode() {}

// Cast is a checked or unchecked cast; lowering looks through it (the
// target is dynamically typed).
type Cast struct {
	Base
	Inner Expr
}

func (e *Cast) exprNode() {}

// Paren is an explicit parenthesization; lowering looks through it.
type Paren struct {
	Base
	Inner Expr
}

func (e *Paren) exprNode() {}

// Unwrap strips Meta, Cast and Paren wrappers.
func Unwrap(e Expr) Expr {
	for {
		switch w := e.(type) {
		case *Meta:
			e = w.Inner
		case *Cast:
			e = w.Inner
		case *Paren:
			e = w.Inner
		default:
			return e
		}
	}
}

// NewBase builds the embedded base for hand-constructed nodes (tests, and
// builders that synthesize IR during rewrites).
func NewBase(span token.Span, typ Type) Base {
	return Base{Span: span, Type: typ}
}
