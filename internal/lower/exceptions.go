package lower

import (
	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/token"
)

// buildTry lowers try/catch to a try expression with catch arms. Thrown
// values travel through throw/catch rather than raise/rescue so that a
// caught value round-trips unchanged whatever its shape. A catch arm
// introduces its own scope for the caught binder.
func buildTry(c *Context, n *ir.Try) (elixir.Expr, error) {
	body, err := c.Build(n.Body)
	if err != nil {
		return nil, err
	}

	catches := make([]elixir.CatchClause, 0, len(n.Catches))
	for _, cat := range n.Catches {
		clause, err := buildCatch(c, cat)
		if err != nil {
			return nil, err
		}
		catches = append(catches, clause)
	}

	return &elixir.Try{Span: n.ExprSpan(), Body: body, Catches: catches}, nil
}

func buildCatch(c *Context, cat ir.Catch) (elixir.CatchClause, error) {
	var clause elixir.CatchClause
	span := cat.Body.ExprSpan()
	body, err := c.WithScope(func() (elixir.Expr, error) {
		name := c.BindLocal(cat.VarID, cat.VarName)
		clause.Pattern = &elixir.PatVar{Span: span, Name: name}
		clause.Guard = catchTypeTest(c, span, name, cat.Type)
		return c.Build(cat.Body)
	})
	if err != nil {
		return clause, err
	}
	if clause.Guard == nil {
		if _, ok := cat.Type.(*ir.DynamicType); !ok && cat.Type != nil {
			c.Note(span.String() +
				": typed catch arm lowered without a runtime type test")
		}
	}
	clause.Body = body
	return clause, nil
}

// catchTypeTest derives the guard that narrows a typed catch arm to
// values of its declared type, so a later arm is reachable when an
// earlier typed arm does not match the thrown value. The dynamic type
// is the catch-all and gets none; a type with no runtime test (an enum
// under the idiomatic strategy throws bare atoms) also gets none and
// the arm is flagged instead.
func catchTypeTest(c *Context, span token.Span, binder string, t ir.Type) elixir.Expr {
	test := func(fun string, extra ...elixir.Expr) elixir.Expr {
		args := append([]elixir.Expr{&elixir.Var{Span: span, Name: binder}}, extra...)
		return &elixir.LocalCall{Span: span, Fun: fun, Args: args}
	}
	switch tt := t.(type) {
	case *ir.AbstractType:
		return catchTypeTest(c, span, binder, tt.Underlying)
	case *ir.FunType:
		return test("is_function")
	case *ir.AnonType:
		return test("is_map")
	case *ir.InstType:
		switch tt.Name {
		case ir.StringTypeName:
			return test("is_binary")
		case ir.IntTypeName:
			return test("is_integer")
		case ir.FloatTypeName:
			return test("is_float")
		case ir.BoolTypeName:
			return test("is_boolean")
		case ir.ArrayTypeName:
			return test("is_list")
		case ir.MapTypeName, "StringMap", "IntMap":
			return test("is_map")
		}
		return test("is_struct",
			&elixir.Var{Span: span, Name: resolveModuleName(c, tt.Name)})
	}
	return nil
}

func buildThrow(c *Context, n *ir.Throw) (elixir.Expr, error) {
	value, err := c.Build(n.Value)
	if err != nil {
		return nil, err
	}
	return &elixir.Throw{Span: n.ExprSpan(), Value: value}, nil
}

// breakThrow and continueThrow are the loop escape values. The loop
// lowerings install matching catch arms around their bodies.
func breakThrow(span token.Span) elixir.Expr {
	return &elixir.Throw{Span: span,
		Value: &elixir.AtomLit{Span: span, Name: config.BreakSentinel}}
}

func continueThrow(span token.Span) elixir.Expr {
	return &elixir.Throw{Span: span,
		Value: &elixir.AtomLit{Span: span, Name: config.ContinueSentinel}}
}
