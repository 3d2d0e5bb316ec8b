package lower

import (
	"strings"

	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/token"
)

// buildBlock is the statement-sequence driver. It tries the
// reconstruction passes in strict priority order; every detector
// inspects raw IR only, so the context is untouched until a pass
// commits. The passes, in order: map-literal reconstruction,
// null-coalescing temp reconstruction, container-builder unrolling
// (literal, comprehension and nested list-of-lists shapes), embedded
// comprehension splicing, and the generic sequential fallback.
func buildBlock(c *Context, n *ir.Block) (elixir.Expr, error) {
	stmts := n.Exprs
	span := n.ExprSpan()

	if len(stmts) == 0 {
		return &elixir.Block{Span: span}, nil
	}
	if len(stmts) == 1 {
		return c.Build(stmts[0])
	}

	return c.WithScope(func() (elixir.Expr, error) {
		if mb, ok := detectMapBuild(stmts); ok {
			return commitMapBuild(c, mb)
		}
		if co, ok := detectCoalesceTemp(stmts); ok {
			return buildCoalesce(c, co.init, co.fallback, span)
		}
		if nb, ok := detectNestedListBuild(stmts); ok {
			return commitNestedListBuild(c, nb)
		}
		if cb, ok := detectComprehensionBuild(stmts); ok {
			return commitComprehensionBuild(c, cb)
		}
		if lb, ok := detectLiteralListBuild(stmts); ok {
			return commitLiteralListBuild(c, lb)
		}
		return buildSequence(c, span, stmts)
	})
}

// --- pass 1: map-literal reconstruction ---

// mapBuild is a matched "fresh map, repeated inserts, trailing
// reference" window. temps are simple synthesized assignments preceding
// the declaration, candidates for inlining into keys and values.
type mapBuild struct {
	temps   []*ir.VarDecl
	decl    *ir.VarDecl
	inserts []*ir.Call
	ref     *ir.LocalRef
}

func detectMapBuild(stmts []ir.Expr) (mapBuild, bool) {
	var mb mapBuild

	i := 0
	for ; i < len(stmts); i++ {
		d, ok := ir.Unwrap(stmts[i]).(*ir.VarDecl)
		if !ok || !d.Synthesized || d.Init == nil || isFreshMap(d) {
			break
		}
		mb.temps = append(mb.temps, d)
	}
	if i >= len(stmts) {
		return mapBuild{}, false
	}

	decl, ok := ir.Unwrap(stmts[i]).(*ir.VarDecl)
	if !ok || !isFreshMap(decl) {
		return mapBuild{}, false
	}
	mb.decl = decl
	i++

	for ; i < len(stmts)-1; i++ {
		call, ok := mapInsert(stmts[i], decl)
		if !ok {
			return mapBuild{}, false
		}
		mb.inserts = append(mb.inserts, call)
	}
	if len(mb.inserts) == 0 {
		return mapBuild{}, false
	}

	ref, ok := ir.Unwrap(stmts[len(stmts)-1]).(*ir.LocalRef)
	if !ok || ref.ID != decl.ID {
		return mapBuild{}, false
	}
	mb.ref = ref
	return mb, true
}

func isFreshMap(d *ir.VarDecl) bool {
	if d.Init == nil {
		return false
	}
	switch init := ir.Unwrap(d.Init).(type) {
	case *ir.New:
		return isMapType(d.Type) && len(init.Args) == 0
	case *ir.ObjectDecl:
		return len(init.Fields) == 0 && isMapType(d.Type)
	}
	return false
}

func mapInsert(e ir.Expr, decl *ir.VarDecl) (*ir.Call, bool) {
	call, ok := ir.Unwrap(e).(*ir.Call)
	if !ok || len(call.Args) != 2 {
		return nil, false
	}
	field, ok := ir.Unwrap(call.Callee).(*ir.Field)
	if !ok || field.Kind != ir.FieldInstance || field.Name != "set" {
		return nil, false
	}
	recv, ok := ir.Unwrap(field.Receiver).(*ir.LocalRef)
	if !ok || recv.ID != decl.ID {
		return nil, false
	}
	return call, true
}

func commitMapBuild(c *Context, mb mapBuild) (elixir.Expr, error) {
	// A temp may be inlined only when exactly one insert argument
	// consumes it; otherwise the binding survives ahead of the literal.
	uses := make(map[int]int)
	for _, ins := range mb.inserts {
		for _, a := range ins.Args {
			if ref, ok := ir.Unwrap(a).(*ir.LocalRef); ok {
				uses[ref.ID]++
			}
		}
	}
	inline := make(map[int]ir.Expr)
	var kept []elixir.Expr
	for _, t := range mb.temps {
		if uses[t.ID] == 1 {
			inline[t.ID] = t.Init
			continue
		}
		compiled, err := c.Build(t)
		if err != nil {
			return nil, err
		}
		kept = append(kept, compiled)
	}

	span := mb.decl.ExprSpan()
	pairs := make([]elixir.MapPair, 0, len(mb.inserts))
	for _, ins := range mb.inserts {
		key, err := buildInlined(c, ins.Args[0], inline)
		if err != nil {
			return nil, err
		}
		value, err := buildInlined(c, ins.Args[1], inline)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, elixir.MapPair{Key: key, Value: value})
	}

	lit := &elixir.MapLit{Span: span, Pairs: pairs}
	if len(kept) == 0 {
		return lit, nil
	}
	return &elixir.Block{Span: span, Exprs: append(kept, lit)}, nil
}

func buildInlined(c *Context, e ir.Expr, inline map[int]ir.Expr) (elixir.Expr, error) {
	if ref, ok := ir.Unwrap(e).(*ir.LocalRef); ok {
		if init, ok := inline[ref.ID]; ok {
			return c.Build(init)
		}
	}
	return c.Build(e)
}

// --- pass 2: null-coalescing temp reconstruction ---

type coalesceTemp struct {
	init     ir.Expr
	fallback ir.Expr
}

// detectCoalesceTemp matches exactly two statements: a synthesized temp
// declaration and a nil-check conditional yielding either the temp or a
// default.
func detectCoalesceTemp(stmts []ir.Expr) (coalesceTemp, bool) {
	if len(stmts) != 2 {
		return coalesceTemp{}, false
	}
	decl, ok := ir.Unwrap(stmts[0]).(*ir.VarDecl)
	if !ok || !decl.Synthesized || decl.Init == nil {
		return coalesceTemp{}, false
	}
	cond, ok := ir.Unwrap(stmts[1]).(*ir.If)
	if !ok || cond.Else == nil {
		return coalesceTemp{}, false
	}
	cmp, ok := ir.Unwrap(cond.Cond).(*ir.Binop)
	if !ok {
		return coalesceTemp{}, false
	}
	if !nilComparison(cmp, decl) {
		return coalesceTemp{}, false
	}

	tempThen := refersTo(cond.Then, decl)
	tempElse := refersTo(cond.Else, decl)
	switch {
	case cmp.Op == ir.OpNotEq && tempThen && !tempElse:
		return coalesceTemp{init: decl.Init, fallback: cond.Else}, true
	case cmp.Op == ir.OpEq && tempElse && !tempThen:
		return coalesceTemp{init: decl.Init, fallback: cond.Then}, true
	}
	return coalesceTemp{}, false
}

func nilComparison(cmp *ir.Binop, decl *ir.VarDecl) bool {
	if cmp.Op != ir.OpEq && cmp.Op != ir.OpNotEq {
		return false
	}
	left := ir.Unwrap(cmp.Left)
	right := ir.Unwrap(cmp.Right)
	if refersToExpr(left, decl) {
		_, isNil := right.(*ir.NullConst)
		return isNil
	}
	if refersToExpr(right, decl) {
		_, isNil := left.(*ir.NullConst)
		return isNil
	}
	return false
}

func refersTo(e ir.Expr, decl *ir.VarDecl) bool {
	if block, ok := ir.Unwrap(e).(*ir.Block); ok && len(block.Exprs) == 1 {
		e = block.Exprs[0]
	}
	return refersToExpr(ir.Unwrap(e), decl)
}

func refersToExpr(e ir.Expr, decl *ir.VarDecl) bool {
	ref, ok := e.(*ir.LocalRef)
	return ok && ref.ID == decl.ID
}

// --- pass 3: container-builder unrolling ---

type literalListBuild struct {
	decl     *ir.VarDecl
	elements []ir.Expr
}

func detectLiteralListBuild(stmts []ir.Expr) (literalListBuild, bool) {
	decl, ok := emptyListDecl(stmts[0])
	if !ok || len(stmts) < 3 {
		return literalListBuild{}, false
	}
	lb := literalListBuild{decl: decl}
	for _, s := range stmts[1 : len(stmts)-1] {
		elem, ok := listAppend(s, decl.ID)
		if !ok {
			return literalListBuild{}, false
		}
		lb.elements = append(lb.elements, elem)
	}
	ref, ok := ir.Unwrap(stmts[len(stmts)-1]).(*ir.LocalRef)
	if !ok || ref.ID != decl.ID {
		return literalListBuild{}, false
	}
	return lb, true
}

func commitLiteralListBuild(c *Context, lb literalListBuild) (elixir.Expr, error) {
	elements, err := buildExprs(c, lb.elements)
	if err != nil {
		return nil, err
	}
	return &elixir.ListLit{Span: lb.decl.ExprSpan(), Elements: elements}, nil
}

func emptyListDecl(e ir.Expr) (*ir.VarDecl, bool) {
	decl, ok := ir.Unwrap(e).(*ir.VarDecl)
	if !ok || decl.Init == nil {
		return nil, false
	}
	arr, ok := ir.Unwrap(decl.Init).(*ir.ArrayDecl)
	if !ok || len(arr.Elements) != 0 {
		return nil, false
	}
	return decl, true
}

// listAppend matches both front-end spellings of appending one element:
// a push call and the reassignment form list = list ++ [e].
func listAppend(e ir.Expr, listID int) (ir.Expr, bool) {
	switch n := ir.Unwrap(e).(type) {
	case *ir.Call:
		field, ok := ir.Unwrap(n.Callee).(*ir.Field)
		if !ok || field.Kind != ir.FieldInstance || field.Name != "push" || len(n.Args) != 1 {
			return nil, false
		}
		recv, ok := ir.Unwrap(field.Receiver).(*ir.LocalRef)
		if !ok || recv.ID != listID {
			return nil, false
		}
		return n.Args[0], true
	case *ir.Binop:
		if n.Op != ir.OpAssign {
			return nil, false
		}
		target, ok := ir.Unwrap(n.Left).(*ir.LocalRef)
		if !ok || target.ID != listID {
			return nil, false
		}
		add, ok := ir.Unwrap(n.Right).(*ir.Binop)
		if !ok || add.Op != ir.OpAdd {
			return nil, false
		}
		base, ok := ir.Unwrap(add.Left).(*ir.LocalRef)
		if !ok || base.ID != listID {
			return nil, false
		}
		arr, ok := ir.Unwrap(add.Right).(*ir.ArrayDecl)
		if !ok || len(arr.Elements) != 1 {
			return nil, false
		}
		return arr.Elements[0], true
	}
	return nil, false
}

// listReset matches the reassignment of an already-declared accumulator
// back to the empty list, the segment separator of nested unrolling.
func listReset(e ir.Expr, listID int) bool {
	assign, ok := ir.Unwrap(e).(*ir.Binop)
	if !ok || assign.Op != ir.OpAssign {
		return false
	}
	target, ok := ir.Unwrap(assign.Left).(*ir.LocalRef)
	if !ok || target.ID != listID {
		return false
	}
	arr, ok := ir.Unwrap(assign.Right).(*ir.ArrayDecl)
	return ok && len(arr.Elements) == 0
}

type comprehensionBuild struct {
	decl   *ir.VarDecl
	loop   *ir.For
	filter ir.Expr // nil when unfiltered
	elem   ir.Expr
}

// detectComprehensionBuild matches the generator shape: empty
// declaration, one iterator loop appending a per-element expression
// (optionally under a filter condition), trailing reference.
func detectComprehensionBuild(stmts []ir.Expr) (comprehensionBuild, bool) {
	if len(stmts) != 3 {
		return comprehensionBuild{}, false
	}
	decl, ok := emptyListDecl(stmts[0])
	if !ok {
		return comprehensionBuild{}, false
	}
	loop, ok := ir.Unwrap(stmts[1]).(*ir.For)
	if !ok {
		return comprehensionBuild{}, false
	}
	ref, ok := ir.Unwrap(stmts[2]).(*ir.LocalRef)
	if !ok || ref.ID != decl.ID {
		return comprehensionBuild{}, false
	}

	cb := comprehensionBuild{decl: decl, loop: loop}
	body := loop.Body
	if block, ok := ir.Unwrap(body).(*ir.Block); ok && len(block.Exprs) == 1 {
		body = block.Exprs[0]
	}
	if cond, ok := ir.Unwrap(body).(*ir.If); ok && cond.Else == nil {
		cb.filter = cond.Cond
		body = cond.Then
		if block, ok := ir.Unwrap(body).(*ir.Block); ok && len(block.Exprs) == 1 {
			body = block.Exprs[0]
		}
	}
	elem, ok := listAppend(body, decl.ID)
	if !ok {
		return comprehensionBuild{}, false
	}
	cb.elem = elem
	return cb, true
}

func commitComprehensionBuild(c *Context, cb comprehensionBuild) (elixir.Expr, error) {
	span := cb.decl.ExprSpan()
	iter, err := c.Build(cb.loop.Iter)
	if err != nil {
		return nil, err
	}
	return c.WithScope(func() (elixir.Expr, error) {
		binder := c.BindLocal(cb.loop.VarID, cb.loop.VarName)
		clauses := []elixir.CompClause{&elixir.CompGenerator{
			Pattern:  &elixir.PatVar{Span: span, Name: binder},
			Iterable: iter,
		}}
		if cb.filter != nil {
			condition, err := c.Build(cb.filter)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, &elixir.CompFilter{Condition: condition})
		}
		body, err := c.Build(cb.elem)
		if err != nil {
			return nil, err
		}
		return &elixir.Comprehension{Span: span, Clauses: clauses, Body: body}, nil
	})
}

type nestedListBuild struct {
	decl     *ir.VarDecl
	segments [][]ir.Expr
}

// detectNestedListBuild matches unrolling that shares one inner
// accumulator across row segments:
//
//	out = []; row = []; row appends...; out append row;
//	row = []; row appends...; out append row; ...; out
//
// and collects the per-segment elements so the rewrite can emit a
// list-of-lists literal instead of leaking the shared temp.
func detectNestedListBuild(stmts []ir.Expr) (nestedListBuild, bool) {
	if len(stmts) < 5 {
		return nestedListBuild{}, false
	}
	outer, ok := emptyListDecl(stmts[0])
	if !ok {
		return nestedListBuild{}, false
	}
	inner, ok := emptyListDecl(stmts[1])
	if !ok || inner.ID == outer.ID {
		return nestedListBuild{}, false
	}
	ref, ok := ir.Unwrap(stmts[len(stmts)-1]).(*ir.LocalRef)
	if !ok || ref.ID != outer.ID {
		return nestedListBuild{}, false
	}

	nb := nestedListBuild{decl: outer}
	var segment []ir.Expr
	inSegment := true
	for _, s := range stmts[2 : len(stmts)-1] {
		switch {
		case inSegment:
			if elem, ok := listAppend(s, inner.ID); ok {
				segment = append(segment, elem)
				continue
			}
			// Segment closes by pushing the inner accumulator.
			if rowed, ok := listAppend(s, outer.ID); ok {
				row, isRef := ir.Unwrap(rowed).(*ir.LocalRef)
				if !isRef || row.ID != inner.ID {
					return nestedListBuild{}, false
				}
				nb.segments = append(nb.segments, segment)
				segment = nil
				inSegment = false
				continue
			}
			return nestedListBuild{}, false
		default:
			if !listReset(s, inner.ID) {
				return nestedListBuild{}, false
			}
			inSegment = true
		}
	}
	if inSegment || len(nb.segments) < 2 {
		return nestedListBuild{}, false
	}
	return nb, true
}

func commitNestedListBuild(c *Context, nb nestedListBuild) (elixir.Expr, error) {
	span := nb.decl.ExprSpan()
	rows := make([]elixir.Expr, 0, len(nb.segments))
	for _, segment := range nb.segments {
		elements, err := buildExprs(c, segment)
		if err != nil {
			return nil, err
		}
		rows = append(rows, &elixir.ListLit{Span: span, Elements: elements})
	}
	return &elixir.ListLit{Span: span, Elements: rows}, nil
}

// --- passes 4 and 5: embedded splice and sequential fallback ---

// buildSequence compiles the statements in order. Before compiling it
// marks embedded generator pairs (empty declaration directly followed by
// an appending loop, with the accumulator still used later) so they
// lower as one comprehension binding. Afterwards a narrow repair pass
// groups an infrastructure-temp binding with the adjacent case that
// consumes it.
func buildSequence(c *Context, span token.Span, stmts []ir.Expr) (elixir.Expr, error) {
	splices := findEmbeddedComprehensions(stmts)

	var compiled []elixir.Expr
	for i := 0; i < len(stmts); i++ {
		if cb, ok := splices[i]; ok {
			bound, err := spliceComprehension(c, cb)
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, bound)
			i++ // the loop statement was consumed
			continue
		}
		node, err := c.Build(stmts[i])
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, node)
	}

	compiled = mergeTempMatches(compiled)
	return &elixir.Block{Span: span, Exprs: compiled}, nil
}

// findEmbeddedComprehensions locates declaration+loop pairs matching
// the generator shape inside a longer block. Pure IR inspection; keyed
// by the declaration's statement index.
func findEmbeddedComprehensions(stmts []ir.Expr) map[int]comprehensionBuild {
	splices := make(map[int]comprehensionBuild)
	for i := 0; i+1 < len(stmts); i++ {
		decl, ok := emptyListDecl(stmts[i])
		if !ok {
			continue
		}
		probe := []ir.Expr{stmts[i], stmts[i+1], &ir.LocalRef{
			Base: ir.NewBase(decl.ExprSpan(), decl.Type),
			ID:   decl.ID, Name: decl.Name,
		}}
		if cb, ok := detectComprehensionBuild(probe); ok {
			// The accumulator must not be appended to again later;
			// rewriting would freeze its value early.
			if appendsAfter(stmts[i+2:], decl.ID) {
				continue
			}
			splices[i] = cb
			i++
		}
	}
	return splices
}

func appendsAfter(stmts []ir.Expr, listID int) bool {
	for _, s := range stmts {
		found := false
		walkIR(s, func(e ir.Expr) bool {
			if _, ok := listAppend(e, listID); ok {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

func spliceComprehension(c *Context, cb comprehensionBuild) (elixir.Expr, error) {
	comp, err := commitComprehensionBuild(c, cb)
	if err != nil {
		return nil, err
	}
	name := c.BindLocal(cb.decl.ID, cb.decl.Name)
	span := cb.decl.ExprSpan()
	return &elixir.Match{Span: span,
		Pattern: &elixir.PatVar{Span: span, Name: name}, Value: comp}, nil
}

// mergeTempMatches groups a fresh-temp binding with the directly
// following case dispatching on it, exactly when the case consumes the
// temp. The pair stays intact either way; grouping only marks them as
// one logical unit for the printer.
func mergeTempMatches(compiled []elixir.Expr) []elixir.Expr {
	var out []elixir.Expr
	for i := 0; i < len(compiled); i++ {
		match, ok := compiled[i].(*elixir.Match)
		if ok && i+1 < len(compiled) {
			if name, isTemp := tempBinding(match); isTemp {
				if caseNode, ok := compiled[i+1].(*elixir.Case); ok && subjectIsVar(caseNode, name) {
					out = append(out, &elixir.Block{Span: match.Span,
						Exprs: []elixir.Expr{match, caseNode}})
					i++
					continue
				}
			}
		}
		out = append(out, compiled[i])
	}
	return out
}

func tempBinding(match *elixir.Match) (string, bool) {
	pat, ok := match.Pattern.(*elixir.PatVar)
	if !ok || !strings.HasPrefix(pat.Name, config.TempPrefix) {
		return "", false
	}
	return pat.Name, true
}

func subjectIsVar(caseNode *elixir.Case, name string) bool {
	subject, ok := caseNode.Subject.(*elixir.Var)
	return ok && subject.Name == name
}
