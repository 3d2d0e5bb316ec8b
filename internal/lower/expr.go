package lower

import (
	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/utils"
)

// Builder lowers one compilation unit. It is the only component that
// dispatches on IR node shape; every specialized builder re-enters the
// walk through Context.Build.
type Builder struct {
	c *Context
}

// New creates a builder with a fresh context for one unit.
func New(unit *ir.Module, cfg *config.Config) *Builder {
	c := NewContext(unit, cfg)
	b := &Builder{c: c}
	c.Build = b.buildExpr
	return b
}

// Context exposes the threaded context (tests, pipeline notes).
func (b *Builder) Context() *Context { return b.c }

// buildExpr is the root dispatch: one arm per IR shape, first routed to
// the idiom-reconstruction builders, falling through to generic lowering.
func (b *Builder) buildExpr(e ir.Expr) (elixir.Expr, error) {
	c := b.c
	e = ir.Unwrap(e)
	switch n := e.(type) {
	case *ir.IntConst, *ir.FloatConst, *ir.StringConst, *ir.BoolConst, *ir.NullConst:
		return buildConst(n)

	case *ir.LocalRef:
		return resolveVar(c, n), nil

	case *ir.ThisRef:
		if c.Receiver == "" {
			return nil, diagnostics.NewError(diagnostics.ErrL006, n.ExprSpan(),
				"receiver reference outside an instance method")
		}
		return &elixir.Var{Span: n.ExprSpan(), Name: c.Receiver}, nil

	case *ir.VarDecl:
		return buildVarDecl(c, n)

	case *ir.Unop:
		if n.Op == ir.OpIncrement || n.Op == ir.OpDecrement {
			return buildIncrement(c, n)
		}
		return buildUnop(c, n)

	case *ir.Binop:
		// Assignment-family and coalescing operators are intercepted
		// here; the operator mapping below this layer must never see
		// them.
		switch n.Op {
		case ir.OpAssign:
			return buildAssign(c, n)
		case ir.OpAssignOp:
			return buildCompoundAssign(c, n)
		case ir.OpNullCoalesce:
			return buildCoalesce(c, n.Left, n.Right, n.ExprSpan())
		case ir.OpInterval:
			return buildInterval(c, n)
		}
		return buildBinop(c, n)

	case *ir.Field:
		return buildFieldAccess(c, n)

	case *ir.ArrayAccess:
		return buildArrayAccess(c, n)

	case *ir.Call:
		return buildCall(c, n)

	case *ir.New:
		return buildNew(c, n)

	case *ir.If:
		return buildIf(c, n)

	case *ir.Switch:
		return buildSwitch(c, n)

	case *ir.While:
		return buildWhile(c, n)

	case *ir.For:
		return buildFor(c, n)

	case *ir.Try:
		return buildTry(c, n)

	case *ir.Throw:
		return buildThrow(c, n)

	case *ir.Break:
		return breakThrow(n.ExprSpan()), nil

	case *ir.Continue:
		return continueThrow(n.ExprSpan()), nil

	case *ir.Return:
		// The front-end restructures early returns into tail position
		// before handing the IR over; a return here is the value of the
		// enclosing body.
		if n.Value == nil {
			return &elixir.NilLit{Span: n.ExprSpan()}, nil
		}
		return c.Build(n.Value)

	case *ir.Block:
		return buildBlock(c, n)

	case *ir.Function:
		return buildFunction(c, n)

	case *ir.ArrayDecl:
		return buildArrayDecl(c, n)

	case *ir.ObjectDecl:
		return buildObjectDecl(c, n)

	case *ir.EnumParameter:
		return buildEnumParameterGeneric(c, n)

	case *ir.EnumIndex:
		return buildEnumIndexGeneric(c, n)

	case *ir.TypeExpr:
		return &elixir.Var{Span: n.ExprSpan(), Name: resolveModuleName(c, n.Name)}, nil

	default:
		return nil, diagnostics.Errorf(diagnostics.ErrL005, e.ExprSpan(),
			"unhandled IR node %T", e)
	}
}

func buildVarDecl(c *Context, n *ir.VarDecl) (elixir.Expr, error) {
	var init elixir.Expr
	if n.Init != nil {
		compiled, err := c.Build(n.Init)
		if err != nil {
			return nil, err
		}
		init = compiled
	} else {
		init = &elixir.NilLit{Span: n.ExprSpan()}
	}
	name := c.BindLocal(n.ID, n.Name)
	if n.Synthesized && n.Init != nil {
		c.RecordInfraTempInit(name, n.Init)
	}
	return &elixir.Match{
		Span:    n.ExprSpan(),
		Pattern: &elixir.PatVar{Span: n.ExprSpan(), Name: name},
		Value:   init,
	}, nil
}

func buildFunction(c *Context, n *ir.Function) (elixir.Expr, error) {
	return c.WithScope(func() (elixir.Expr, error) {
		params := make([]elixir.Pattern, len(n.Params))
		for i, p := range n.Params {
			name := c.BindLocal(p.ID, p.Name)
			params[i] = &elixir.PatVar{Span: n.ExprSpan(), Name: name}
		}
		body, err := c.Build(n.Body)
		if err != nil {
			return nil, err
		}
		return &elixir.Fn{
			Span:    n.ExprSpan(),
			Clauses: []elixir.FnClause{{Params: params, Body: body}},
		}, nil
	})
}

func buildArrayDecl(c *Context, n *ir.ArrayDecl) (elixir.Expr, error) {
	elements := make([]elixir.Expr, len(n.Elements))
	for i, e := range n.Elements {
		compiled, err := c.Build(e)
		if err != nil {
			return nil, err
		}
		elements[i] = compiled
	}
	return &elixir.ListLit{Span: n.ExprSpan(), Elements: elements}, nil
}

func buildObjectDecl(c *Context, n *ir.ObjectDecl) (elixir.Expr, error) {
	pairs := make([]elixir.MapPair, len(n.Fields))
	for i, f := range n.Fields {
		value, err := c.Build(f.Value)
		if err != nil {
			return nil, err
		}
		pairs[i] = elixir.MapPair{
			Key:   &elixir.AtomLit{Span: n.ExprSpan(), Name: utils.SnakeCase(f.Name)},
			Value: value,
		}
	}
	return &elixir.MapLit{Span: n.ExprSpan(), Pairs: pairs}, nil
}

func buildArrayAccess(c *Context, n *ir.ArrayAccess) (elixir.Expr, error) {
	target, err := c.Build(n.Target)
	if err != nil {
		return nil, err
	}
	index, err := c.Build(n.Index)
	if err != nil {
		return nil, err
	}
	// Enum.at yields nil out of range, matching the source's sentinel
	// instead of raising.
	return &elixir.RemoteCall{
		Span:   n.ExprSpan(),
		Module: "Enum",
		Fun:    "at",
		Args:   []elixir.Expr{target, index},
	}, nil
}

func buildNew(c *Context, n *ir.New) (elixir.Expr, error) {
	args, err := buildExprs(c, n.Args)
	if err != nil {
		return nil, err
	}
	module := resolveModuleName(c, n.Class)
	if module == c.SelfModule {
		return &elixir.LocalCall{Span: n.ExprSpan(), Fun: "new", Args: args}, nil
	}
	return &elixir.RemoteCall{Span: n.ExprSpan(), Module: module, Fun: "new", Args: args}, nil
}

// buildInterval lowers a range value a...b to an exclusive target range
// a..(b - 1). Loop lowering intercepts intervals before this, so a range
// surviving to here is used as a first-class value.
func buildInterval(c *Context, n *ir.Binop) (elixir.Expr, error) {
	from, err := c.Build(n.Left)
	if err != nil {
		return nil, err
	}
	to, err := c.Build(n.Right)
	if err != nil {
		return nil, err
	}
	return &elixir.Binop{Span: n.ExprSpan(), Op: "..", Left: from, Right: exclusiveUpper(to)}, nil
}

// exclusiveUpper rewrites the upper bound of an exclusive interval,
// folding constant bounds.
func exclusiveUpper(to elixir.Expr) elixir.Expr {
	if lit, ok := to.(*elixir.IntegerLit); ok {
		return &elixir.IntegerLit{Span: lit.Span, Value: lit.Value - 1}
	}
	return &elixir.Binop{
		Span:  to.NodeSpan(),
		Op:    "-",
		Left:  to,
		Right: &elixir.IntegerLit{Span: to.NodeSpan(), Value: 1},
	}
}

func buildExprs(c *Context, exprs []ir.Expr) ([]elixir.Expr, error) {
	out := make([]elixir.Expr, len(exprs))
	for i, e := range exprs {
		compiled, err := c.Build(e)
		if err != nil {
			return nil, err
		}
		out[i] = compiled
	}
	return out, nil
}

// resolveModuleName applies rename directives and target naming to a
// front-end class or enum name.
func resolveModuleName(c *Context, name string) string {
	if c.Unit != nil {
		for _, cls := range c.Unit.Classes {
			if cls.Name == name {
				return utils.ModuleName(cls.TargetName())
			}
		}
		for _, en := range c.Unit.Enums {
			if en.Name == name {
				return utils.ModuleName(en.TargetName())
			}
		}
	}
	if renamed := c.Config.RenameFor(name); renamed != "" {
		return utils.ModuleName(renamed)
	}
	return utils.ModuleName(name)
}
