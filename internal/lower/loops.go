package lower

import (
	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/token"
)

// buildWhile lowers a general while loop. There is no mutable loop
// construct in the target, so the generic shape is reduce_while over an
// infinite stream, halting when the condition fails. Outer locals the
// body rebinds are threaded through the accumulator and rebound after
// the loop; rebindings happen inside an anonymous function and would
// otherwise never escape an iteration. Before paying the generic cost
// the builder tries to recognize the front-end's counter-loop shape,
// which lowers to a plain Enum.each over a range.
func buildWhile(c *Context, n *ir.While) (elixir.Expr, error) {
	if !n.DoWhile {
		if each, ok, err := tryCounterLoop(c, n); ok || err != nil {
			return each, err
		}
	}

	span := n.ExprSpan()
	escapes := containsLoopEscape(n.Body)
	carry := loopCarry{span: span, names: mutatedOuterLocals(c, nil, n.Cond, n.Body)}

	cond, err := c.Build(n.Cond)
	if err != nil {
		return nil, err
	}
	body, err := c.WithScope(func() (elixir.Expr, error) {
		return c.Build(n.Body)
	})
	if err != nil {
		return nil, err
	}

	var step elixir.Expr
	if n.DoWhile {
		// Body runs before the condition is consulted.
		step = &elixir.Block{Span: span, Exprs: []elixir.Expr{
			body,
			&elixir.If{Span: span, Cond: cond,
				Then: carry.step("cont"), Else: carry.step("halt")},
		}}
		if escapes {
			step = catchEscapes(span, step, carry)
		}
	} else {
		var iterate elixir.Expr = &elixir.Block{Span: span,
			Exprs: []elixir.Expr{body, carry.step("cont")}}
		if escapes {
			iterate = catchEscapes(span, iterate, carry)
		}
		step = &elixir.If{Span: span, Cond: cond,
			Then: iterate, Else: carry.step("halt")}
	}

	return carry.bind(reduceWhile(span, step, carry)), nil
}

// loopCarry is the loop-carried state: the outer locals an iteration
// rebinds, in first-rebind order. Zero carried locals degenerates to
// the plain nil accumulator with a wildcard pattern; one travels bare;
// several travel as a tuple.
type loopCarry struct {
	span  token.Span
	names []string
}

func (lc loopCarry) value() elixir.Expr {
	switch len(lc.names) {
	case 0:
		return &elixir.NilLit{Span: lc.span}
	case 1:
		return &elixir.Var{Span: lc.span, Name: lc.names[0]}
	}
	elems := make([]elixir.Expr, len(lc.names))
	for i, name := range lc.names {
		elems[i] = &elixir.Var{Span: lc.span, Name: name}
	}
	return &elixir.TupleLit{Span: lc.span, Elements: elems}
}

func (lc loopCarry) pattern() elixir.Pattern {
	switch len(lc.names) {
	case 0:
		return &elixir.PatWildcard{Span: lc.span}
	case 1:
		return &elixir.PatVar{Span: lc.span, Name: lc.names[0]}
	}
	elems := make([]elixir.Pattern, len(lc.names))
	for i, name := range lc.names {
		elems[i] = &elixir.PatVar{Span: lc.span, Name: name}
	}
	return &elixir.PatTuple{Span: lc.span, Elements: elems}
}

// step builds a reduce_while step value {:tag, carried}.
func (lc loopCarry) step(tag string) elixir.Expr {
	return &elixir.TupleLit{Span: lc.span, Elements: []elixir.Expr{
		&elixir.AtomLit{Span: lc.span, Name: tag},
		lc.value(),
	}}
}

// bind rebinds the carried locals to the loop's result at the loop's
// own level.
func (lc loopCarry) bind(loop elixir.Expr) elixir.Expr {
	if len(lc.names) == 0 {
		return loop
	}
	return &elixir.Match{Span: lc.span, Pattern: lc.pattern(), Value: loop}
}

// reduceWhile wraps one iteration step into
// Enum.reduce_while(Stream.cycle([nil]), carried, fn _, carried -> step end).
func reduceWhile(span token.Span, step elixir.Expr, carry loopCarry) elixir.Expr {
	stream := &elixir.RemoteCall{Span: span, Module: "Stream", Fun: "cycle",
		Args: []elixir.Expr{&elixir.ListLit{Span: span,
			Elements: []elixir.Expr{&elixir.NilLit{Span: span}}}}}
	stepFn := &elixir.Fn{Span: span, Clauses: []elixir.FnClause{{
		Params: []elixir.Pattern{
			&elixir.PatWildcard{Span: span},
			carry.pattern(),
		},
		Body: step,
	}}}
	return &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "reduce_while",
		Args: []elixir.Expr{stream, carry.value(), stepFn}}
}

// catchEscapes turns break and continue sentinels thrown inside a loop
// body into reduce_while step values. An escape abandons the
// iteration's partial rebindings; the carried locals resume from the
// last completed iteration.
func catchEscapes(span token.Span, step elixir.Expr, carry loopCarry) *elixir.Block {
	try := &elixir.Try{Span: span, Body: step, Catches: []elixir.CatchClause{
		{
			Pattern: &elixir.PatLiteral{Span: span,
				Value: &elixir.AtomLit{Span: span, Name: config.BreakSentinel}},
			Body: carry.step("halt"),
		},
		{
			Pattern: &elixir.PatLiteral{Span: span,
				Value: &elixir.AtomLit{Span: span, Name: config.ContinueSentinel}},
			Body: carry.step("cont"),
		},
	}}
	return &elixir.Block{Span: span, Exprs: []elixir.Expr{try}}
}

// mutatedOuterLocals collects the resolved names of the locals the given
// expressions rebind that live outside them: direct assignments,
// increments, indexed and field writes through a local receiver, and
// builtin mutator calls. Locals declared inside are iteration-private
// and skipped, as are the ids in skip. Closures cannot rebind their
// captures, so the scan stops at function literals; nested loops thread
// their own rebindings outward, so the scan descends into them.
func mutatedOuterLocals(c *Context, skip map[int]bool, exprs ...ir.Expr) []string {
	declared := make(map[int]bool, len(skip))
	for id := range skip {
		declared[id] = true
	}
	seen := make(map[string]bool)
	var names []string
	record := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	recordRef := func(e ir.Expr) {
		if ref, ok := ir.Unwrap(e).(*ir.LocalRef); ok && !declared[ref.ID] {
			record(c.ResolveName(ref.ID, ref.Name))
		}
	}
	recordTarget := func(e ir.Expr) {
		switch target := ir.Unwrap(e).(type) {
		case *ir.LocalRef:
			recordRef(target)
		case *ir.Field:
			if target.Kind != ir.FieldInstance && target.Kind != ir.FieldDynamic {
				return
			}
			if _, ok := ir.Unwrap(target.Receiver).(*ir.ThisRef); ok {
				if c.Receiver != "" {
					record(c.Receiver)
				}
				return
			}
			recordRef(target.Receiver)
		case *ir.ArrayAccess:
			recordRef(target.Target)
		}
	}
	for _, e := range exprs {
		walkIR(e, func(sub ir.Expr) bool {
			switch node := sub.(type) {
			case *ir.VarDecl:
				declared[node.ID] = true
			case *ir.Binop:
				if node.Op == ir.OpAssign || node.Op == ir.OpAssignOp {
					recordTarget(node.Left)
				}
			case *ir.Unop:
				if node.Op == ir.OpIncrement || node.Op == ir.OpDecrement {
					recordTarget(node.Operand)
				}
			case *ir.Call:
				if field, ok := ir.Unwrap(node.Callee).(*ir.Field); ok &&
					field.Kind == ir.FieldInstance && field.Receiver != nil &&
					rebindsReceiver(field) {
					recordRef(field.Receiver)
				}
			case *ir.Function:
				return false
			}
			return true
		})
	}
	return names
}

// rebindsReceiver reports whether a builtin method call rebinds its
// local receiver when lowered.
func rebindsReceiver(field *ir.Field) bool {
	t := field.Receiver.ExprType()
	switch {
	case ir.IsArray(t):
		return arrayMutators[field.Name]
	case isMapType(t):
		return mapMutators[field.Name]
	}
	return false
}

var arrayMutators = map[string]bool{
	"push": true, "pop": true, "shift": true,
	"unshift": true, "reverse": true, "remove": true,
}

var mapMutators = map[string]bool{
	"set": true, "remove": true,
}

// containsLoopEscape reports whether break or continue occurs in the
// body at this loop's level. Nested loops own their escapes, so the scan
// does not descend into them.
func containsLoopEscape(body ir.Expr) bool {
	found := false
	walkIR(body, func(e ir.Expr) bool {
		switch e.(type) {
		case *ir.Break, *ir.Continue:
			found = true
			return false
		case *ir.While, *ir.For:
			return false
		case *ir.Function:
			return false
		}
		return !found
	})
	return found
}

// tryCounterLoop recognizes the counting shape the front-end desugars
// range iteration into:
//
//	var _i = <start>
//	while (_i < <limit>) { ...body...; _i++ }
//
// and turns it back into Enum.each over start..(limit - 1), or
// Enum.reduce when the body rebinds outer locals. The counter has to be
// a synthesized temp with a recorded integer initializer, the limit has
// to be loop-invariant, and the body must neither escape nor reassign
// the counter anywhere but the trailing increment.
func tryCounterLoop(c *Context, n *ir.While) (elixir.Expr, bool, error) {
	cmp, ok := ir.Unwrap(n.Cond).(*ir.Binop)
	if !ok || cmp.Op != ir.OpLt {
		return nil, false, nil
	}
	counter, ok := ir.Unwrap(cmp.Left).(*ir.LocalRef)
	if !ok {
		return nil, false, nil
	}
	binder := c.ResolveName(counter.ID, counter.Name)
	start, ok := c.LookupInfraTempInit(binder)
	if !ok {
		return nil, false, nil
	}
	if !loopInvariant(cmp.Right, n.Body) {
		return nil, false, nil
	}

	block, ok := n.Body.(*ir.Block)
	if !ok || len(block.Exprs) < 2 {
		return nil, false, nil
	}
	last := block.Exprs[len(block.Exprs)-1]
	if !isCounterIncrement(last, counter) {
		return nil, false, nil
	}
	rest := block.Exprs[:len(block.Exprs)-1]
	for _, e := range rest {
		if assignsLocal(e, counter) {
			return nil, false, nil
		}
	}
	if containsLoopEscape(n.Body) {
		return nil, false, nil
	}

	span := n.ExprSpan()

	// The counter's initializer match survives in the enclosing block,
	// so a non-constant start reads the established binder rather than
	// evaluating the initializer a second time.
	var from elixir.Expr
	if _, constant := ir.Unwrap(start).(*ir.IntConst); constant {
		built, err := c.Build(start)
		if err != nil {
			return nil, true, err
		}
		from = built
	} else {
		from = &elixir.Var{Span: span, Name: binder}
	}
	limit, err := c.Build(cmp.Right)
	if err != nil {
		return nil, true, err
	}

	restBlock := &ir.Block{Base: block.Base, Exprs: rest}
	carry := loopCarry{span: span,
		names: mutatedOuterLocals(c, map[int]bool{counter.ID: true}, restBlock)}

	// Shadowing the counter's established name inside the fn keeps body
	// references resolving to the loop binder.
	body, err := c.WithScope(func() (elixir.Expr, error) {
		c.BindLocalAs(counter.ID, counter.Name, binder)
		return c.Build(restBlock)
	})
	if err != nil {
		return nil, true, err
	}

	rng := &elixir.Binop{Span: span, Op: "..", Left: from,
		Right: exclusiveUpper(limit)}
	binderPat := &elixir.PatVar{Span: span, Name: binder}

	if len(carry.names) > 0 {
		step := &elixir.Fn{Span: span, Clauses: []elixir.FnClause{{
			Params: []elixir.Pattern{binderPat, carry.pattern()},
			Body: &elixir.Block{Span: span,
				Exprs: []elixir.Expr{body, carry.value()}},
		}}}
		return carry.bind(&elixir.RemoteCall{Span: span, Module: "Enum", Fun: "reduce",
			Args: []elixir.Expr{rng, carry.value(), step}}), true, nil
	}

	eachFn := &elixir.Fn{Span: span, Clauses: []elixir.FnClause{{
		Params: []elixir.Pattern{binderPat},
		Body:   body,
	}}}
	return &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "each",
		Args: []elixir.Expr{rng, eachFn}}, true, nil
}

func isCounterIncrement(e ir.Expr, counter *ir.LocalRef) bool {
	switch n := ir.Unwrap(e).(type) {
	case *ir.Unop:
		if n.Op != ir.OpIncrement {
			return false
		}
		return sameLocal(n.Operand, counter)
	case *ir.Binop:
		if !sameLocal(n.Left, counter) {
			return false
		}
		switch {
		case n.Op == ir.OpAssignOp && n.Assign == ir.OpAdd:
			one, ok := ir.Unwrap(n.Right).(*ir.IntConst)
			return ok && one.Value == 1
		case n.Op == ir.OpAssign:
			add, ok := ir.Unwrap(n.Right).(*ir.Binop)
			if !ok || add.Op != ir.OpAdd || !sameLocal(add.Left, counter) {
				return false
			}
			one, ok := ir.Unwrap(add.Right).(*ir.IntConst)
			return ok && one.Value == 1
		}
	}
	return false
}

func assignsLocal(e ir.Expr, local *ir.LocalRef) bool {
	found := false
	walkIR(e, func(sub ir.Expr) bool {
		switch n := sub.(type) {
		case *ir.Binop:
			if (n.Op == ir.OpAssign || n.Op == ir.OpAssignOp) && sameLocal(n.Left, local) {
				found = true
			}
		case *ir.Unop:
			if (n.Op == ir.OpIncrement || n.Op == ir.OpDecrement) && sameLocal(n.Operand, local) {
				found = true
			}
		}
		return !found
	})
	return found
}

// loopInvariant approximates "safe to evaluate once before the loop":
// constants and locals the body never reassigns.
func loopInvariant(e ir.Expr, body ir.Expr) bool {
	switch n := ir.Unwrap(e).(type) {
	case *ir.IntConst:
		return true
	case *ir.LocalRef:
		return !assignsLocal(body, n)
	}
	return false
}

// buildFor lowers iterator loops. The front-end only emits them over
// already-lowered iterables (interval lowering produces ranges); the
// body value is discarded, so Enum.each is the shape. A body that
// rebinds outer locals threads them through an Enum.reduce accumulator
// instead, and a body that breaks or continues gets a sentinel catch
// inside reduce_while.
func buildFor(c *Context, n *ir.For) (elixir.Expr, error) {
	span := n.ExprSpan()

	iter, err := c.Build(n.Iter)
	if err != nil {
		return nil, err
	}

	escapes := containsLoopEscape(n.Body)
	carry := loopCarry{span: span,
		names: mutatedOuterLocals(c, map[int]bool{n.VarID: true}, n.Body)}

	var binder string
	body, err := c.WithScope(func() (elixir.Expr, error) {
		binder = c.BindLocal(n.VarID, n.VarName)
		return c.Build(n.Body)
	})
	if err != nil {
		return nil, err
	}

	binderPat := &elixir.PatVar{Span: span, Name: binder}
	if escapes {
		inner := catchEscapes(span, &elixir.Block{Span: span,
			Exprs: []elixir.Expr{body, carry.step("cont")}}, carry)
		step := &elixir.Fn{Span: span, Clauses: []elixir.FnClause{{
			Params: []elixir.Pattern{binderPat, carry.pattern()},
			Body:   inner,
		}}}
		return carry.bind(&elixir.RemoteCall{Span: span, Module: "Enum", Fun: "reduce_while",
			Args: []elixir.Expr{iter, carry.value(), step}}), nil
	}

	if len(carry.names) > 0 {
		step := &elixir.Fn{Span: span, Clauses: []elixir.FnClause{{
			Params: []elixir.Pattern{binderPat, carry.pattern()},
			Body: &elixir.Block{Span: span,
				Exprs: []elixir.Expr{body, carry.value()}},
		}}}
		return carry.bind(&elixir.RemoteCall{Span: span, Module: "Enum", Fun: "reduce",
			Args: []elixir.Expr{iter, carry.value(), step}}), nil
	}

	eachFn := &elixir.Fn{Span: span, Clauses: []elixir.FnClause{{
		Params: []elixir.Pattern{binderPat},
		Body:   body,
	}}}
	return &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "each",
		Args: []elixir.Expr{iter, eachFn}}, nil
}
