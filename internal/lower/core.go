package lower

import (
	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/token"
)

// buildConst maps literal leaves. Pure: no context, no recursion.
func buildConst(e ir.Expr) (elixir.Expr, error) {
	switch n := e.(type) {
	case *ir.IntConst:
		return &elixir.IntegerLit{Span: n.ExprSpan(), Value: n.Value}, nil
	case *ir.FloatConst:
		return &elixir.FloatLit{Span: n.ExprSpan(), Value: n.Value}, nil
	case *ir.StringConst:
		return &elixir.StringLit{Span: n.ExprSpan(), Value: n.Value}, nil
	case *ir.BoolConst:
		return &elixir.BooleanLit{Span: n.ExprSpan(), Value: n.Value}, nil
	case *ir.NullConst:
		return &elixir.NilLit{Span: n.ExprSpan()}, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrL005, e.ExprSpan(), "not a literal: %T", e)
}

func buildUnop(c *Context, n *ir.Unop) (elixir.Expr, error) {
	operand, err := c.Build(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ir.OpNeg:
		return &elixir.Unop{Span: n.ExprSpan(), Op: "-", Operand: operand}, nil
	case ir.OpNot:
		return &elixir.Unop{Span: n.ExprSpan(), Op: "not", Operand: operand}, nil
	case ir.OpBitNot:
		return &elixir.RemoteCall{Span: n.ExprSpan(), Module: "Bitwise", Fun: "bnot",
			Args: []elixir.Expr{operand}}, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrL001, n.ExprSpan(),
		"unary operator %s reached the core builder", n.Op)
}

// buildIncrement lowers ++/-- to an explicit rebinding: the target has no
// mutation, so i++ becomes i = i + 1. Statement context decides what to do
// with the old-versus-new value; at this layer only the rebind exists.
func buildIncrement(c *Context, n *ir.Unop) (elixir.Expr, error) {
	ref, ok := ir.Unwrap(n.Operand).(*ir.LocalRef)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrL002, n.ExprSpan(),
			"increment target %T is not an assignable local", n.Operand)
	}
	name := c.ResolveName(ref.ID, ref.Name)
	op := "+"
	if n.Op == ir.OpDecrement {
		op = "-"
	}
	span := n.ExprSpan()
	return &elixir.Match{
		Span:    span,
		Pattern: &elixir.PatVar{Span: span, Name: name},
		Value: &elixir.Binop{
			Span:  span,
			Op:    op,
			Left:  &elixir.Var{Span: span, Name: name},
			Right: &elixir.IntegerLit{Span: span, Value: 1},
		},
	}, nil
}

// coreBinop maps an IR operator to the target operator for already-built
// operands. Type-directed choices (string concatenation) happen one layer
// up in buildBinOp; assignment, coalescing and interval operators must
// have been intercepted before this; seeing one here is a contract
// violation, not an input-program oddity.
func coreBinop(op ir.BinopKind, left, right elixir.Expr, span token.Span) (elixir.Expr, error) {
	if op == ir.OpMod {
		// rem/2 is a function in the target, not an operator.
		return &elixir.LocalCall{Span: span, Fun: "rem", Args: []elixir.Expr{left, right}}, nil
	}
	if simple, ok := simpleBinops[op]; ok {
		return &elixir.Binop{Span: span, Op: simple, Left: left, Right: right}, nil
	}
	if fun, ok := bitwiseBinops[op]; ok {
		return &elixir.RemoteCall{Span: span, Module: "Bitwise", Fun: fun,
			Args: []elixir.Expr{left, right}}, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrL001, span,
		"operator %s reached the core builder", op)
}

var simpleBinops = map[ir.BinopKind]string{
	ir.OpAdd:     "+",
	ir.OpSub:     "-",
	ir.OpMul:     "*",
	ir.OpDiv:     "/",
	ir.OpEq:      "==",
	ir.OpNotEq:   "!=",
	ir.OpLt:      "<",
	ir.OpLte:     "<=",
	ir.OpGt:      ">",
	ir.OpGte:     ">=",
	ir.OpBoolAnd: "and",
	ir.OpBoolOr:  "or",
}

// bitwiseBinops lower to Bitwise module calls. OpUShr shares bsr with the
// signed shift: the target has no unsigned shift primitive, so negative
// operands diverge from source semantics. Known gap, deliberately not
// papered over.
var bitwiseBinops = map[ir.BinopKind]string{
	ir.OpBitAnd: "band",
	ir.OpBitOr:  "bor",
	ir.OpBitXor: "bxor",
	ir.OpShl:    "bsl",
	ir.OpShr:    "bsr",
	ir.OpUShr:   "bsr",
}
