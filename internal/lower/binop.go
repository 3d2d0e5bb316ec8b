package lower

import (
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/token"
)

// buildBinop lowers a plain binary operation. Addition is type-directed:
// if either operand is statically a string, the operation is string
// concatenation with the non-string side stringified.
func buildBinop(c *Context, n *ir.Binop) (elixir.Expr, error) {
	left, err := c.Build(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.Build(n.Right)
	if err != nil {
		return nil, err
	}

	if n.Op == ir.OpAdd {
		leftStr := ir.IsString(n.Left.ExprType())
		rightStr := ir.IsString(n.Right.ExprType())
		if leftStr || rightStr {
			if !leftStr {
				left = stringify(left)
			}
			if !rightStr {
				right = stringify(right)
			}
			return &elixir.Binop{Span: n.ExprSpan(), Op: "<>", Left: left, Right: right}, nil
		}
	}

	return coreBinop(n.Op, left, right, n.ExprSpan())
}

// stringify wraps a non-string operand of a string concatenation. The
// wrap is skipped when the operand is already a literal string or a
// compound construct whose every result position is known to yield a
// string; wrapping those would bury the value in a redundant call.
func stringify(e elixir.Expr) elixir.Expr {
	if yieldsString(e) {
		return e
	}
	return &elixir.RemoteCall{
		Span:   e.NodeSpan(),
		Module: "Kernel",
		Fun:    "to_string",
		Args:   []elixir.Expr{e},
	}
}

// yieldsString reports whether every result position of e is a string
// already. Conservative: unknown shapes report false.
func yieldsString(e elixir.Expr) bool {
	switch n := e.(type) {
	case *elixir.StringLit, *elixir.StringInterp:
		return true
	case *elixir.Binop:
		return n.Op == "<>"
	case *elixir.Block:
		if len(n.Exprs) == 0 {
			return false
		}
		return yieldsString(n.Exprs[len(n.Exprs)-1])
	case *elixir.If:
		return n.Else != nil && yieldsString(n.Then) && yieldsString(n.Else)
	case *elixir.Case:
		for _, clause := range n.Clauses {
			if !yieldsString(clause.Body) {
				return false
			}
		}
		return len(n.Clauses) > 0
	case *elixir.Cond:
		for _, clause := range n.Clauses {
			if !yieldsString(clause.Body) {
				return false
			}
		}
		return len(n.Clauses) > 0
	case *elixir.RemoteCall:
		return n.Module == "String" || (n.Module == "Kernel" && n.Fun == "to_string") ||
			(n.Module == "Enum" && n.Fun == "join")
	}
	return false
}

// buildCoalesce lowers a ?? b: evaluate a once; if nil, b, else the
// evaluated result. A side-effect-free simple reference is reused
// directly; anything else gets a fresh temporary so a is evaluated
// exactly once.
func buildCoalesce(c *Context, left, right ir.Expr, span token.Span) (elixir.Expr, error) {
	compiledLeft, err := c.Build(left)
	if err != nil {
		return nil, err
	}
	compiledRight, err := c.Build(right)
	if err != nil {
		return nil, err
	}

	if isSimpleRef(compiledLeft) {
		return coalesceIf(span, compiledLeft, compiledLeft, compiledRight), nil
	}

	temp := c.FreshTemp()
	tempVar := &elixir.Var{Span: span, Name: temp}
	return &elixir.Block{Span: span, Exprs: []elixir.Expr{
		&elixir.Match{Span: span,
			Pattern: &elixir.PatVar{Span: span, Name: temp}, Value: compiledLeft},
		coalesceIf(span, tempVar, tempVar, compiledRight),
	}}, nil
}

func coalesceIf(span token.Span, probe, result, fallback elixir.Expr) elixir.Expr {
	return &elixir.If{
		Span: span,
		Cond: &elixir.Binop{Span: span, Op: "!=", Left: probe,
			Right: &elixir.NilLit{Span: span}},
		Then: result,
		Else: fallback,
	}
}

// isSimpleRef reports whether an already-built node is a side-effect-free
// simple reference that may be evaluated twice.
func isSimpleRef(e elixir.Expr) bool {
	switch e.(type) {
	case *elixir.Var, *elixir.IntegerLit, *elixir.FloatLit, *elixir.StringLit,
		*elixir.BooleanLit, *elixir.NilLit, *elixir.AtomLit:
		return true
	}
	return false
}
