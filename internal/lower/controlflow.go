package lower

import (
	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
)

// buildIf lowers a conditional through three outcomes, tried in order:
// a reconstructed pattern match (the front-end's optimizer collapsed a
// single-arm enum dispatch into a tag comparison), a flattened multi-way
// conditional chain, and a plain two-branch conditional.
func buildIf(c *Context, n *ir.If) (elixir.Expr, error) {
	if match, ok, err := tryTagDispatch(c, n); ok || err != nil {
		return match, err
	}
	if chain, ok, err := tryCondChain(c, n); ok || err != nil {
		return chain, err
	}
	return buildPlainIf(c, n)
}

// tagComparison is the flattened single-arm dispatch shape: an equality
// test between an enum value's tag and a compile-time-known tag constant.
type tagComparison struct {
	Subject ir.Expr
	Enum    *ir.EnumDecl
	Ctor    *ir.EnumCtor
}

func detectTagComparison(cond ir.Expr) (tagComparison, bool) {
	binop, ok := ir.Unwrap(cond).(*ir.Binop)
	if !ok || binop.Op != ir.OpEq {
		return tagComparison{}, false
	}
	left, right := ir.Unwrap(binop.Left), ir.Unwrap(binop.Right)
	idx, ok := left.(*ir.EnumIndex)
	tag, tagOK := right.(*ir.IntConst)
	if !ok || !tagOK {
		idx, ok = right.(*ir.EnumIndex)
		tag, tagOK = left.(*ir.IntConst)
		if !ok || !tagOK {
			return tagComparison{}, false
		}
	}
	enum := ir.EnumOf(idx.Value.ExprType())
	if enum == nil {
		return tagComparison{}, false
	}
	ctor := enum.CtorAt(int(tag.Value))
	if ctor == nil {
		return tagComparison{}, false
	}
	return tagComparison{Subject: idx.Value, Enum: enum, Ctor: ctor}, true
}

// tryTagDispatch reconstructs a two-arm pattern match from a flattened
// dispatch. The matched arm binds the parameters the branch body
// recovers (wildcarding the unreferenced ones); the fallback arm is the
// compiled else branch, or a deliberate runtime failure when the source
// had none, since the source's exhaustive dispatch failed fast.
func tryTagDispatch(c *Context, n *ir.If) (elixir.Expr, bool, error) {
	cmp, ok := detectTagComparison(n.Cond)
	if !ok {
		return nil, false, nil
	}
	span := n.ExprSpan()

	subject, err := c.Build(cmp.Subject)
	if err != nil {
		return nil, true, err
	}

	rec := recoverBindings(cmp.Subject, cmp.Enum, cmp.Ctor.Index, n.Then)
	matched, err := buildCtorClause(c, cmp.Enum, cmp.Ctor, rec, span)
	if err != nil {
		return nil, true, err
	}

	var fallbackBody elixir.Expr
	if n.Else != nil {
		fallbackBody, err = c.Build(n.Else)
		if err != nil {
			return nil, true, err
		}
	} else {
		fallbackBody = &elixir.Raise{Span: span,
			Value: &elixir.StringLit{Span: span, Value: config.UnmatchedMessage}}
	}

	return &elixir.Case{Span: span, Subject: subject, Clauses: []elixir.CaseClause{
		matched,
		{Pattern: &elixir.PatWildcard{Span: span}, Body: fallbackBody},
	}}, true, nil
}

// tryCondChain flattens nested if/else-if into an ordered guard list.
// Kept nested when every branch at every level is a simple literal;
// a two-way form reads better there than a chain.
func tryCondChain(c *Context, n *ir.If) (elixir.Expr, bool, error) {
	if _, isChain := chainElse(n); !isChain {
		return nil, false, nil
	}
	if literalChain(n) {
		return nil, false, nil
	}

	span := n.ExprSpan()
	var clauses []elixir.CondClause
	current := n
	for {
		guard, err := c.Build(current.Cond)
		if err != nil {
			return nil, true, err
		}
		body, err := c.Build(current.Then)
		if err != nil {
			return nil, true, err
		}
		clauses = append(clauses, elixir.CondClause{Guard: guard, Body: body})

		next, isChain := chainElse(current)
		if isChain {
			current = next
			continue
		}
		// Final catch-all preserves the chain's left-to-right order.
		catchAll := elixir.Expr(&elixir.NilLit{Span: span})
		if current.Else != nil {
			catchAll, err = c.Build(current.Else)
			if err != nil {
				return nil, true, err
			}
		}
		clauses = append(clauses, elixir.CondClause{
			Guard: &elixir.BooleanLit{Span: span, Value: true},
			Body:  catchAll,
		})
		return &elixir.Cond{Span: span, Clauses: clauses}, true, nil
	}
}

// chainElse unwraps an else branch to the conditional it continues, if
// any (looking through single-statement blocks).
func chainElse(n *ir.If) (*ir.If, bool) {
	if n.Else == nil {
		return nil, false
	}
	els := ir.Unwrap(n.Else)
	if block, ok := els.(*ir.Block); ok && len(block.Exprs) == 1 {
		els = ir.Unwrap(block.Exprs[0])
	}
	next, ok := els.(*ir.If)
	return next, ok
}

// literalChain reports whether every branch of the chain is a bare
// literal. A tag comparison never is.
func literalChain(n *ir.If) bool {
	if !isLiteral(n.Then) {
		return false
	}
	if next, ok := chainElse(n); ok {
		return literalChain(next)
	}
	return n.Else == nil || isLiteral(n.Else)
}

func isLiteral(e ir.Expr) bool {
	switch ir.Unwrap(e).(type) {
	case *ir.IntConst, *ir.FloatConst, *ir.StringConst, *ir.BoolConst, *ir.NullConst:
		return true
	}
	return false
}

// buildPlainIf is the default outcome: a two-branch conditional node.
// Always control syntax, never a generic call.
func buildPlainIf(c *Context, n *ir.If) (elixir.Expr, error) {
	cond, err := c.Build(n.Cond)
	if err != nil {
		return nil, err
	}
	then, err := c.Build(n.Then)
	if err != nil {
		return nil, err
	}
	out := &elixir.If{Span: n.ExprSpan(), Cond: cond, Then: then}
	if n.Else != nil {
		out.Else, err = c.Build(n.Else)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// buildSwitch lowers a multi-way dispatch. Enum-tag subjects rebuild the
// full pattern match; everything else becomes a case over pinned literal
// values.
func buildSwitch(c *Context, n *ir.Switch) (elixir.Expr, error) {
	if idx, ok := ir.Unwrap(n.Subject).(*ir.EnumIndex); ok {
		if enum := ir.EnumOf(idx.Value.ExprType()); enum != nil {
			return buildEnumSwitch(c, n, idx.Value, enum)
		}
	}
	return buildValueSwitch(c, n)
}

func buildEnumSwitch(c *Context, n *ir.Switch, subjectIR ir.Expr, enum *ir.EnumDecl) (elixir.Expr, error) {
	span := n.ExprSpan()
	subject, err := c.Build(subjectIR)
	if err != nil {
		return nil, err
	}

	var clauses []elixir.CaseClause
	covered := make(map[int]bool)
	for _, cs := range n.Cases {
		for _, rawValue := range cs.Values {
			tag, ok := ir.Unwrap(rawValue).(*ir.IntConst)
			if !ok {
				return nil, diagnostics.Errorf(diagnostics.ErrL005, span,
					"enum dispatch case value is not a constant tag")
			}
			ctor := enum.CtorAt(int(tag.Value))
			if ctor == nil {
				return nil, diagnostics.Errorf(diagnostics.ErrL004, span,
					"enum %s has no constructor at index %d", enum.Name, tag.Value)
			}
			rec := recoverBindings(subjectIR, enum, ctor.Index, cs.Body)
			clause, err := buildCtorClause(c, enum, ctor, rec, span)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, clause)
			covered[ctor.Index] = true
		}
	}

	exhaustive := true
	for _, ctor := range enum.Ctors {
		if !covered[ctor.Index] {
			exhaustive = false
		}
	}
	if n.Default != nil {
		body, err := c.Build(n.Default)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, elixir.CaseClause{
			Pattern: &elixir.PatWildcard{Span: span}, Body: body})
	} else if !exhaustive {
		clauses = append(clauses, elixir.CaseClause{
			Pattern: &elixir.PatWildcard{Span: span},
			Body: &elixir.Raise{Span: span,
				Value: &elixir.StringLit{Span: span, Value: config.UnmatchedMessage}},
		})
	}
	return &elixir.Case{Span: span, Subject: subject, Clauses: clauses}, nil
}

func buildValueSwitch(c *Context, n *ir.Switch) (elixir.Expr, error) {
	span := n.ExprSpan()
	subject, err := c.Build(n.Subject)
	if err != nil {
		return nil, err
	}
	var clauses []elixir.CaseClause
	for _, cs := range n.Cases {
		body, err := c.Build(cs.Body)
		if err != nil {
			return nil, err
		}
		for _, rawValue := range cs.Values {
			pat, err := literalPattern(c, rawValue)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, elixir.CaseClause{Pattern: pat, Body: body})
		}
	}
	defaultBody := elixir.Expr(&elixir.NilLit{Span: span})
	if n.Default != nil {
		defaultBody, err = c.Build(n.Default)
		if err != nil {
			return nil, err
		}
	}
	clauses = append(clauses, elixir.CaseClause{
		Pattern: &elixir.PatWildcard{Span: span}, Body: defaultBody})
	return &elixir.Case{Span: span, Subject: subject, Clauses: clauses}, nil
}

// literalPattern builds a match-position rendition of a case value:
// literals match structurally, local references pin against the bound
// value.
func literalPattern(c *Context, e ir.Expr) (elixir.Pattern, error) {
	span := e.ExprSpan()
	switch v := ir.Unwrap(e).(type) {
	case *ir.LocalRef:
		return &elixir.PatPin{Span: span, Name: c.ResolveName(v.ID, v.Name)}, nil
	default:
		compiled, err := c.Build(e)
		if err != nil {
			return nil, err
		}
		return &elixir.PatLiteral{Span: span, Value: compiled}, nil
	}
}
