package lower

import (
	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/token"
	"github.com/funvibe/alchemist/internal/utils"
)

// Two constructor-lowering strategies exist per enum. Idiomatic lowers
// every constructor to a bare snake-cased atom; it is only legal when no
// constructor carries parameters. Tagged-tuple lowers a constructor to a
// tuple headed by its tag atom; zero-argument constructors still become
// one-element tuples so every value of the enum has a uniform pattern
// shape.

// enumIdiomatic reports the effective strategy for an enum: the declared
// flag, then the project-file override, gated on legality.
func enumIdiomatic(c *Context, enum *ir.EnumDecl) bool {
	flag := enum.Idiomatic
	if override, ok := c.Config.EnumIdiomatic(enum.Name); ok {
		flag = override
	}
	if !flag {
		return false
	}
	for _, ctor := range enum.Ctors {
		if len(ctor.Params) > 0 {
			return false
		}
	}
	return true
}

// enumCtorValue builds the value a constructor application produces.
func enumCtorValue(c *Context, enum *ir.EnumDecl, ctor *ir.EnumCtor, args []elixir.Expr, span token.Span) elixir.Expr {
	tag := &elixir.AtomLit{Span: span, Name: utils.SnakeCase(ctor.Name)}
	if enumIdiomatic(c, enum) {
		return tag
	}
	elements := make([]elixir.Expr, 0, len(args)+1)
	elements = append(elements, tag)
	elements = append(elements, args...)
	return &elixir.TupleLit{Span: span, Elements: elements}
}

// enumCtorRef builds a bare (uncalled) constructor reference. Nullary
// constructors are their value; parameterized constructors become an
// anonymous function so the reference stays first-class.
func enumCtorRef(c *Context, enum *ir.EnumDecl, ctor *ir.EnumCtor, span token.Span) (elixir.Expr, error) {
	if len(ctor.Params) == 0 {
		return enumCtorValue(c, enum, ctor, nil, span), nil
	}
	params := make([]elixir.Pattern, len(ctor.Params))
	args := make([]elixir.Expr, len(ctor.Params))
	for i, p := range ctor.Params {
		name := utils.SnakeCase(p.Name)
		if name == "" {
			name = c.FreshTemp()
		}
		params[i] = &elixir.PatVar{Span: span, Name: name}
		args[i] = &elixir.Var{Span: span, Name: name}
	}
	return &elixir.Fn{Span: span, Clauses: []elixir.FnClause{{
		Params: params,
		Body:   enumCtorValue(c, enum, ctor, args, span),
	}}}, nil
}

// enumCtorPattern builds the match pattern for a constructor. binders is
// aligned with the constructor's parameters; nil entries are wildcarded,
// never dropped, since dropping changes the tuple arity.
func enumCtorPattern(c *Context, enum *ir.EnumDecl, ctor *ir.EnumCtor, binders []elixir.Pattern, span token.Span) elixir.Pattern {
	tag := &elixir.PatLiteral{Span: span,
		Value: &elixir.AtomLit{Span: span, Name: utils.SnakeCase(ctor.Name)}}
	if enumIdiomatic(c, enum) {
		return tag
	}
	elements := make([]elixir.Pattern, 0, len(ctor.Params)+1)
	elements = append(elements, tag)
	for i := range ctor.Params {
		if i < len(binders) && binders[i] != nil {
			elements = append(elements, binders[i])
		} else {
			elements = append(elements, &elixir.PatWildcard{Span: span})
		}
	}
	return &elixir.PatTuple{Span: span, Elements: elements}
}

// recoveredBinder is one entry of a binding-recovery record: the front-end
// declaration that extracted constructor parameter Index into a local.
type recoveredBinder struct {
	Index  int
	DeclID int
	Name   string
	Used   bool
}

// recoveryResult is the ephemeral product of a binding-recovery pass over
// one branch body. It is consumed once, when the branch's pattern and body
// are built, then discarded.
type recoveryResult struct {
	Binders []recoveredBinder
	// PrunedBody is the branch body with the recovered extraction
	// declarations removed; the pattern binds their names directly.
	PrunedBody ir.Expr
}

// recoverBindings scans a branch body for "extract parameter N of this
// constructor into local V" sites. The front-end produces that shape when
// it flattens a structured match into raw extraction calls, destroying
// the original binder names; this pass recovers them so the rebuilt
// pattern can bind them again.
func recoverBindings(subject ir.Expr, enum *ir.EnumDecl, ctorIndex int, body ir.Expr) *recoveryResult {
	res := &recoveryResult{PrunedBody: body}
	block, ok := ir.Unwrap(body).(*ir.Block)
	if !ok {
		return res
	}

	var kept []ir.Expr
	for _, stmt := range block.Exprs {
		decl, ok := ir.Unwrap(stmt).(*ir.VarDecl)
		if ok && decl.Init != nil {
			if ext, ok := ir.Unwrap(decl.Init).(*ir.EnumParameter); ok &&
				ext.Enum == enum && ext.CtorIndex == ctorIndex &&
				(subject == nil || sameLocal(ext.Value, subject)) {
				res.Binders = append(res.Binders, recoveredBinder{
					Index:  ext.ParamIndex,
					DeclID: decl.ID,
					Name:   decl.Name,
				})
				continue
			}
		}
		kept = append(kept, stmt)
	}
	if len(res.Binders) == 0 {
		return res
	}

	pruned := &ir.Block{Base: ir.NewBase(block.ExprSpan(), block.ExprType()), Exprs: kept}
	res.PrunedBody = pruned
	for i := range res.Binders {
		b := &res.Binders[i]
		b.Used = referencesLocal(pruned, b.DeclID, b.Name)
	}
	return res
}

// buildCtorClause compiles one reconstructed match arm: the constructor
// pattern with recovered binders, and the pruned body compiled with those
// binders registered at top resolution priority.
func buildCtorClause(c *Context, enum *ir.EnumDecl, ctor *ir.EnumCtor, rec *recoveryResult, span token.Span) (elixir.CaseClause, error) {
	binders := make([]elixir.Pattern, len(ctor.Params))
	type reg struct {
		id   int
		name string
	}
	var registered []reg
	for _, b := range rec.Binders {
		if b.Index < 0 || b.Index >= len(ctor.Params) {
			continue
		}
		if !b.Used {
			// Never referenced: wildcard instead of a named binder, so
			// strict targets see no unused binding. The slot stays.
			continue
		}
		resolved := utils.SnakeCase(b.Name)
		binders[b.Index] = &elixir.PatVar{Span: span, Name: resolved}
		c.RegisterPatternVar(b.DeclID, b.Name, resolved)
		registered = append(registered, reg{b.DeclID, b.Name})
	}
	defer func() {
		for _, r := range registered {
			c.ClearPatternVar(r.id, r.name)
		}
	}()

	body, err := c.Build(rec.PrunedBody)
	if err != nil {
		return elixir.CaseClause{}, err
	}
	return elixir.CaseClause{
		Pattern: enumCtorPattern(c, enum, ctor, binders, span),
		Body:    body,
	}, nil
}

// buildEnumParameterGeneric lowers a parameter extraction that survived
// every reconstruction pass: a positional tuple element read. Parameter i
// lives at tuple slot i+1, behind the tag atom.
func buildEnumParameterGeneric(c *Context, n *ir.EnumParameter) (elixir.Expr, error) {
	if enumIdiomatic(c, n.Enum) {
		return nil, diagnostics.Errorf(diagnostics.ErrL004, n.ExprSpan(),
			"parameter extraction on atom-strategy enum %s", n.Enum.Name)
	}
	value, err := c.Build(n.Value)
	if err != nil {
		return nil, err
	}
	return &elixir.LocalCall{Span: n.ExprSpan(), Fun: "elem", Args: []elixir.Expr{
		value, &elixir.IntegerLit{Span: n.ExprSpan(), Value: int64(n.ParamIndex) + 1},
	}}, nil
}

// buildEnumIndexGeneric lowers a tag read that no reconstruction consumed:
// a case mapping every constructor to its index. Correct for both
// strategies, if rarely pretty; reconstruction outranks this whenever it
// recognizes the surrounding comparison.
func buildEnumIndexGeneric(c *Context, n *ir.EnumIndex) (elixir.Expr, error) {
	enum := ir.EnumOf(n.Value.ExprType())
	if enum == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrL005, n.ExprSpan(),
			"enum tag read on non-enum value of type %v", n.Value.ExprType())
	}
	value, err := c.Build(n.Value)
	if err != nil {
		return nil, err
	}
	span := n.ExprSpan()
	clauses := make([]elixir.CaseClause, len(enum.Ctors))
	for i, ctor := range enum.Ctors {
		clauses[i] = elixir.CaseClause{
			Pattern: enumCtorPattern(c, enum, ctor, nil, span),
			Body:    &elixir.IntegerLit{Span: span, Value: int64(ctor.Index)},
		}
	}
	return &elixir.Case{Span: span, Subject: value, Clauses: clauses}, nil
}
