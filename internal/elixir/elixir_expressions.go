package elixir

import "github.com/funvibe/alchemist/internal/token"

// Binop represents a binary operation with an already-selected target
// operator (the lowering layer resolved type-directed choices such as
// + versus <>).
type Binop struct {
	Span  token.Span
	Op    string
	Left  Expr
	Right Expr
}

func (n *Binop) exprNode()            {}
func (n *Binop) NodeSpan() token.Span { return n.Span }

// Unop represents a unary operation, e.g. -x or not x.
type Unop struct {
	Span    token.Span
	Op      string
	Operand Expr
}

func (n *Unop) exprNode()            {}
func (n *Unop) NodeSpan() token.Span { return n.Span }

// FieldAccess represents projection of a field out of a value, e.g. p.x.
type FieldAccess struct {
	Span     token.Span
	Receiver Expr
	Field    string
}

func (n *FieldAccess) exprNode()            {}
func (n *FieldAccess) NodeSpan() token.Span { return n.Span }

// RemoteCall represents a module-qualified call, e.g. Enum.map(list, f).
type RemoteCall struct {
	Span   token.Span
	Module string
	Fun    string
	Args   []Expr
}

func (n *RemoteCall) exprNode()            {}
func (n *RemoteCall) NodeSpan() token.Span { return n.Span }

// LocalCall represents an unqualified call, e.g. helper(x). Used for calls
// into the currently-compiling module and for calls of bound function
// values via the dot form (the renderer decides the dot from Apply).
type LocalCall struct {
	Span token.Span
	Fun  string
	Args []Expr
}

func (n *LocalCall) exprNode()            {}
func (n *LocalCall) NodeSpan() token.Span { return n.Span }

// Apply represents calling a function value, e.g. f.(x).
type Apply struct {
	Span   token.Span
	Callee Expr
	Args   []Expr
}

func (n *Apply) exprNode()            {}
func (n *Apply) NodeSpan() token.Span { return n.Span }

// Capture represents a named function capture, e.g. &String.upcase/1.
// Module is empty for local captures.
type Capture struct {
	Span   token.Span
	Module string
	Fun    string
	Arity  int
}

func (n *Capture) exprNode()            {}
func (n *Capture) NodeSpan() token.Span { return n.Span }

// Match represents a pattern-match binding, e.g. {:ok, v} = result or the
// plain rebinding x = x + 1.
type Match struct {
	Span    token.Span
	Pattern Pattern
	Value   Expr
}

func (n *Match) exprNode()            {}
func (n *Match) NodeSpan() token.Span { return n.Span }

// If represents a two-branch conditional. Else may be nil, which renders
// as an if without an else (yielding nil at runtime).
type If struct {
	Span token.Span
	Cond Expr
	Then Expr
	Else Expr
}

func (n *If) exprNode()            {}
func (n *If) NodeSpan() token.Span { return n.Span }

// CondClause is one guard -> body arm of a Cond.
type CondClause struct {
	Guard Expr
	Body  Expr
}

// Cond represents a multi-way conditional chain. Clauses are evaluated
// top to bottom; the reconstruction pass always appends a final
// true -> ... clause.
type Cond struct {
	Span    token.Span
	Clauses []CondClause
}

func (n *Cond) exprNode()            {}
func (n *Cond) NodeSpan() token.Span { return n.Span }

// CaseClause is one pattern arm of a Case. Guard is optional.
type CaseClause struct {
	Pattern Pattern
	Guard   Expr
	Body    Expr
}

// Case represents a case expression dispatching a subject over patterns.
type Case struct {
	Span    token.Span
	Subject Expr
	Clauses []CaseClause
}

func (n *Case) exprNode()            {}
func (n *Case) NodeSpan() token.Span { return n.Span }

// CompClause is a clause of a Comprehension: either a generator or a
// filter.
type CompClause interface {
	compClauseNode()
}

// CompGenerator represents a generator clause: pattern <- iterable.
type CompGenerator struct {
	Pattern  Pattern
	Iterable Expr
}

func (c *CompGenerator) compClauseNode() {}

// CompFilter represents a filter clause: a boolean condition.
type CompFilter struct {
	Condition Expr
}

func (c *CompFilter) compClauseNode() {}

// Comprehension represents a for comprehension. Into is optional (nil
// collects into a list).
type Comprehension struct {
	Span    token.Span
	Clauses []CompClause
	Body    Expr
	Into    Expr
}

func (n *Comprehension) exprNode()            {}
func (n *Comprehension) NodeSpan() token.Span { return n.Span }

// FnClause is one clause of an anonymous function.
type FnClause struct {
	Params []Pattern
	Guard  Expr
	Body   Expr
}

// Fn represents an anonymous function, e.g. fn x -> x + 1 end.
type Fn struct {
	Span    token.Span
	Clauses []FnClause
}

func (n *Fn) exprNode()            {}
func (n *Fn) NodeSpan() token.Span { return n.Span }

// RescueClause is one rescue arm of a Try. Type is empty for a catch-all
// clause; Binder is the resolved name the exception value binds to.
type RescueClause struct {
	Binder string
	Type   string
	Body   Expr
}

// CatchClause is one catch arm of a Try, matching thrown (not raised)
// values by pattern. Guard, when non-nil, narrows the arm further.
type CatchClause struct {
	Pattern Pattern
	Guard   Expr
	Body    Expr
}

// Try represents a try/rescue/catch/after expression. After is optional.
type Try struct {
	Span    token.Span
	Body    Expr
	Rescues []RescueClause
	Catches []CatchClause
	After   Expr
}

func (n *Try) exprNode()            {}
func (n *Try) NodeSpan() token.Span { return n.Span }

// Raise represents raise(value).
type Raise struct {
	Span  token.Span
	Value Expr
}

func (n *Raise) exprNode()            {}
func (n *Raise) NodeSpan() token.Span { return n.Span }

// Throw represents throw(value), non-local control flow.
type Throw struct {
	Span  token.Span
	Value Expr
}

func (n *Throw) exprNode()            {}
func (n *Throw) NodeSpan() token.Span { return n.Span }
