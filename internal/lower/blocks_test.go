package lower

import (
	"reflect"
	"testing"

	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/token"
)

// Shared IR construction helpers for the builder tests. The rewrite
// detectors dispatch on node shape and binder ids, so the helpers keep
// ids explicit.

func testSpan() token.Span {
	return token.Span{File: "unit.ir.json", Line: 1, Column: 1}
}

func intType() ir.Type { return &ir.InstType{Name: ir.IntTypeName} }
func strType() ir.Type { return &ir.InstType{Name: ir.StringTypeName} }
func arrType() ir.Type {
	return &ir.InstType{Name: ir.ArrayTypeName, Params: []ir.Type{intType()}}
}
func mapType() ir.Type { return &ir.InstType{Name: ir.MapTypeName} }

func intLit(v int64) *ir.IntConst {
	return &ir.IntConst{Base: ir.NewBase(testSpan(), intType()), Value: v}
}

func strLit(s string) *ir.StringConst {
	return &ir.StringConst{Base: ir.NewBase(testSpan(), strType()), Value: s}
}

func nullLit() *ir.NullConst {
	return &ir.NullConst{Base: ir.NewBase(testSpan(), &ir.DynamicType{})}
}

func localOf(id int, name string, t ir.Type) *ir.LocalRef {
	return &ir.LocalRef{Base: ir.NewBase(testSpan(), t), ID: id, Name: name}
}

func declOf(id int, name string, t ir.Type, init ir.Expr, synthesized bool) *ir.VarDecl {
	return &ir.VarDecl{Base: ir.NewBase(testSpan(), t), ID: id, Name: name,
		Init: init, Synthesized: synthesized}
}

func blockOf(stmts ...ir.Expr) *ir.Block {
	return &ir.Block{Base: ir.NewBase(testSpan(), nil), Exprs: stmts}
}

func binopOf(op ir.BinopKind, left, right ir.Expr, t ir.Type) *ir.Binop {
	return &ir.Binop{Base: ir.NewBase(testSpan(), t), Op: op, Left: left, Right: right}
}

func emptyList(id int, name string) *ir.VarDecl {
	return declOf(id, name, arrType(),
		&ir.ArrayDecl{Base: ir.NewBase(testSpan(), arrType())}, false)
}

// appendAssign builds the reassignment append spelling: list = list ++ [e].
func appendAssign(id int, name string, elem ir.Expr) *ir.Binop {
	return binopOf(ir.OpAssign, localOf(id, name, arrType()),
		binopOf(ir.OpAdd, localOf(id, name, arrType()),
			&ir.ArrayDecl{Base: ir.NewBase(testSpan(), arrType()),
				Elements: []ir.Expr{elem}}, arrType()), arrType())
}

// pushCall builds the method-call append spelling: list.push(e).
func pushCall(id int, name string, elem ir.Expr) *ir.Call {
	return &ir.Call{Base: ir.NewBase(testSpan(), nil),
		Callee: &ir.Field{Base: ir.NewBase(testSpan(), nil),
			Kind: ir.FieldInstance, Receiver: localOf(id, name, arrType()), Name: "push"},
		Args: []ir.Expr{elem}}
}

func mapSetCall(id int, name string, key, value ir.Expr) *ir.Call {
	return &ir.Call{Base: ir.NewBase(testSpan(), nil),
		Callee: &ir.Field{Base: ir.NewBase(testSpan(), nil),
			Kind: ir.FieldInstance, Receiver: localOf(id, name, mapType()), Name: "set"},
		Args: []ir.Expr{key, value}}
}

func freshMapDecl(id int, name string) *ir.VarDecl {
	return declOf(id, name, mapType(),
		&ir.New{Base: ir.NewBase(testSpan(), mapType()), Class: "Map"}, false)
}

func newTestBuilder() *Builder {
	return New(&ir.Module{Name: "unit"}, nil)
}

func mustBuild(t *testing.T, b *Builder, e ir.Expr) elixir.Expr {
	t.Helper()
	out, err := b.c.Build(e)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return out
}

func TestMapLiteralReconstruction(t *testing.T) {
	block := blockOf(
		freshMapDecl(1, "m"),
		mapSetCall(1, "m", strLit("a"), intLit(1)),
		mapSetCall(1, "m", strLit("b"), intLit(2)),
		localOf(1, "m", mapType()),
	)

	out := mustBuild(t, newTestBuilder(), block)
	lit, ok := out.(*elixir.MapLit)
	if !ok {
		t.Fatalf("expected map literal, got %T", out)
	}
	if len(lit.Pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(lit.Pairs))
	}
	for i, want := range []struct {
		key   string
		value int64
	}{{"a", 1}, {"b", 2}} {
		key, ok := lit.Pairs[i].Key.(*elixir.StringLit)
		if !ok || key.Value != want.key {
			t.Errorf("pair %d key = %v, want %q", i, lit.Pairs[i].Key, want.key)
		}
		value, ok := lit.Pairs[i].Value.(*elixir.IntegerLit)
		if !ok || value.Value != want.value {
			t.Errorf("pair %d value = %v, want %d", i, lit.Pairs[i].Value, want.value)
		}
	}
}

func TestMapLiteralInlinesSingleUseTemp(t *testing.T) {
	block := blockOf(
		declOf(9, "_t9", intType(), intLit(41), true),
		freshMapDecl(1, "m"),
		mapSetCall(1, "m", strLit("answer"), localOf(9, "_t9", intType())),
		localOf(1, "m", mapType()),
	)

	out := mustBuild(t, newTestBuilder(), block)
	lit, ok := out.(*elixir.MapLit)
	if !ok {
		t.Fatalf("expected bare map literal with the temp inlined, got %T", out)
	}
	value, ok := lit.Pairs[0].Value.(*elixir.IntegerLit)
	if !ok || value.Value != 41 {
		t.Fatalf("temp initializer not inlined: %v", lit.Pairs[0].Value)
	}
}

func TestMapLiteralKeepsMultiUseTemp(t *testing.T) {
	block := blockOf(
		declOf(9, "_t9", intType(), intLit(7), true),
		freshMapDecl(1, "m"),
		mapSetCall(1, "m", strLit("a"), localOf(9, "_t9", intType())),
		mapSetCall(1, "m", strLit("b"), localOf(9, "_t9", intType())),
		localOf(1, "m", mapType()),
	)

	out := mustBuild(t, newTestBuilder(), block)
	seq, ok := out.(*elixir.Block)
	if !ok || len(seq.Exprs) != 2 {
		t.Fatalf("expected binding + literal block, got %T", out)
	}
	if _, ok := seq.Exprs[0].(*elixir.Match); !ok {
		t.Errorf("expected the temp binding kept, got %T", seq.Exprs[0])
	}
	if _, ok := seq.Exprs[1].(*elixir.MapLit); !ok {
		t.Errorf("expected trailing map literal, got %T", seq.Exprs[1])
	}
}

func TestCoalesceTempSimpleRef(t *testing.T) {
	block := blockOf(
		declOf(4, "_t1", strType(), localOf(3, "v", strType()), true),
		&ir.If{Base: ir.NewBase(testSpan(), strType()),
			Cond: binopOf(ir.OpNotEq, localOf(4, "_t1", strType()), nullLit(),
				&ir.InstType{Name: ir.BoolTypeName}),
			Then: localOf(4, "_t1", strType()),
			Else: strLit("default")},
	)

	out := mustBuild(t, newTestBuilder(), block)
	cond, ok := out.(*elixir.If)
	if !ok {
		t.Fatalf("expected inline conditional, got %T", out)
	}
	probe, ok := cond.Cond.(*elixir.Binop)
	if !ok || probe.Op != "!=" {
		t.Fatalf("expected nil probe, got %v", cond.Cond)
	}
	then, ok := cond.Then.(*elixir.Var)
	if !ok || then.Name != "v" {
		t.Errorf("expected direct reuse of the simple operand, got %v", cond.Then)
	}
	if fallback, ok := cond.Else.(*elixir.StringLit); !ok || fallback.Value != "default" {
		t.Errorf("fallback = %v, want \"default\"", cond.Else)
	}
}

func TestCoalesceTempInvertedComparison(t *testing.T) {
	// temp == nil with the branches swapped is the same idiom.
	block := blockOf(
		declOf(4, "_t1", strType(), localOf(3, "v", strType()), true),
		&ir.If{Base: ir.NewBase(testSpan(), strType()),
			Cond: binopOf(ir.OpEq, localOf(4, "_t1", strType()), nullLit(),
				&ir.InstType{Name: ir.BoolTypeName}),
			Then: strLit("default"),
			Else: localOf(4, "_t1", strType())},
	)

	out := mustBuild(t, newTestBuilder(), block)
	if _, ok := out.(*elixir.If); !ok {
		t.Fatalf("expected inline conditional, got %T", out)
	}
}

func TestCoalesceTempBindsNonTrivialOperand(t *testing.T) {
	call := &ir.Call{Base: ir.NewBase(testSpan(), strType()),
		Callee: localOf(7, "f", &ir.FunType{Ret: strType()})}
	block := blockOf(
		declOf(4, "_t1", strType(), call, true),
		&ir.If{Base: ir.NewBase(testSpan(), strType()),
			Cond: binopOf(ir.OpNotEq, localOf(4, "_t1", strType()), nullLit(),
				&ir.InstType{Name: ir.BoolTypeName}),
			Then: localOf(4, "_t1", strType()),
			Else: strLit("default")},
	)

	out := mustBuild(t, newTestBuilder(), block)
	seq, ok := out.(*elixir.Block)
	if !ok || len(seq.Exprs) != 2 {
		t.Fatalf("expected bound-temp form for an effectful operand, got %T", out)
	}
	bind, ok := seq.Exprs[0].(*elixir.Match)
	if !ok {
		t.Fatalf("expected a temp binding, got %T", seq.Exprs[0])
	}
	if _, ok := bind.Value.(*elixir.Apply); !ok {
		t.Errorf("temp should bind the call result, got %T", bind.Value)
	}
	if _, ok := seq.Exprs[1].(*elixir.If); !ok {
		t.Errorf("expected trailing conditional, got %T", seq.Exprs[1])
	}
}

func TestLiteralListUnrolling(t *testing.T) {
	spellings := []struct {
		name   string
		append func(elem ir.Expr) ir.Expr
	}{
		{"reassignment", func(elem ir.Expr) ir.Expr { return appendAssign(2, "lst", elem) }},
		{"push call", func(elem ir.Expr) ir.Expr { return pushCall(2, "lst", elem) }},
	}
	for _, tc := range spellings {
		t.Run(tc.name, func(t *testing.T) {
			block := blockOf(
				emptyList(2, "lst"),
				tc.append(intLit(1)),
				tc.append(intLit(2)),
				localOf(2, "lst", arrType()),
			)

			out := mustBuild(t, newTestBuilder(), block)
			lit, ok := out.(*elixir.ListLit)
			if !ok {
				t.Fatalf("expected list literal, got %T", out)
			}
			if len(lit.Elements) != 2 {
				t.Fatalf("expected 2 elements, got %d", len(lit.Elements))
			}
			for i, want := range []int64{1, 2} {
				el, ok := lit.Elements[i].(*elixir.IntegerLit)
				if !ok || el.Value != want {
					t.Errorf("element %d = %v, want %d", i, lit.Elements[i], want)
				}
			}
		})
	}
}

func TestNestedListUnrolling(t *testing.T) {
	block := blockOf(
		emptyList(10, "rows"),
		emptyList(11, "row"),
		appendAssign(11, "row", intLit(1)),
		appendAssign(11, "row", intLit(2)),
		appendAssign(10, "rows", localOf(11, "row", arrType())),
		binopOf(ir.OpAssign, localOf(11, "row", arrType()),
			&ir.ArrayDecl{Base: ir.NewBase(testSpan(), arrType())}, arrType()),
		appendAssign(11, "row", intLit(3)),
		appendAssign(10, "rows", localOf(11, "row", arrType())),
		localOf(10, "rows", arrType()),
	)

	out := mustBuild(t, newTestBuilder(), block)
	outer, ok := out.(*elixir.ListLit)
	if !ok {
		t.Fatalf("expected list-of-lists literal, got %T", out)
	}
	if len(outer.Elements) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(outer.Elements))
	}
	first, ok := outer.Elements[0].(*elixir.ListLit)
	if !ok || len(first.Elements) != 2 {
		t.Fatalf("first row = %v, want [1, 2]", outer.Elements[0])
	}
	second, ok := outer.Elements[1].(*elixir.ListLit)
	if !ok || len(second.Elements) != 1 {
		t.Fatalf("second row = %v, want [3]", outer.Elements[1])
	}
}

func TestComprehensionReconstruction(t *testing.T) {
	loopBody := func(append ir.Expr) *ir.Block { return blockOf(append) }

	t.Run("unfiltered", func(t *testing.T) {
		block := blockOf(
			emptyList(20, "squares"),
			&ir.For{Base: ir.NewBase(testSpan(), nil), VarID: 21, VarName: "x",
				Iter: localOf(22, "items", arrType()),
				Body: loopBody(appendAssign(20, "squares",
					binopOf(ir.OpMul, localOf(21, "x", intType()), localOf(21, "x", intType()), intType())))},
			localOf(20, "squares", arrType()),
		)

		out := mustBuild(t, newTestBuilder(), block)
		comp, ok := out.(*elixir.Comprehension)
		if !ok {
			t.Fatalf("expected comprehension, got %T", out)
		}
		if len(comp.Clauses) != 1 {
			t.Fatalf("expected a lone generator, got %d clauses", len(comp.Clauses))
		}
		gen, ok := comp.Clauses[0].(*elixir.CompGenerator)
		if !ok {
			t.Fatalf("expected generator clause, got %T", comp.Clauses[0])
		}
		binder, ok := gen.Pattern.(*elixir.PatVar)
		if !ok || binder.Name != "x" {
			t.Errorf("generator binder = %v, want x", gen.Pattern)
		}
		body, ok := comp.Body.(*elixir.Binop)
		if !ok || body.Op != "*" {
			t.Errorf("comprehension body = %v, want x * x", comp.Body)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		filtered := &ir.If{Base: ir.NewBase(testSpan(), nil),
			Cond: binopOf(ir.OpGt, localOf(21, "x", intType()), intLit(0),
				&ir.InstType{Name: ir.BoolTypeName}),
			Then: loopBody(appendAssign(20, "evens", localOf(21, "x", intType())))}
		block := blockOf(
			emptyList(20, "evens"),
			&ir.For{Base: ir.NewBase(testSpan(), nil), VarID: 21, VarName: "x",
				Iter: localOf(22, "items", arrType()),
				Body: loopBody(filtered)},
			localOf(20, "evens", arrType()),
		)

		out := mustBuild(t, newTestBuilder(), block)
		comp, ok := out.(*elixir.Comprehension)
		if !ok {
			t.Fatalf("expected comprehension, got %T", out)
		}
		if len(comp.Clauses) != 2 {
			t.Fatalf("expected generator + filter, got %d clauses", len(comp.Clauses))
		}
		filter, ok := comp.Clauses[1].(*elixir.CompFilter)
		if !ok {
			t.Fatalf("expected filter clause, got %T", comp.Clauses[1])
		}
		if guard, ok := filter.Condition.(*elixir.Binop); !ok || guard.Op != ">" {
			t.Errorf("filter condition = %v, want x > 0", filter.Condition)
		}
	})
}

func TestEmbeddedComprehensionSplice(t *testing.T) {
	block := blockOf(
		emptyList(30, "acc"),
		&ir.For{Base: ir.NewBase(testSpan(), nil), VarID: 31, VarName: "x",
			Iter: localOf(32, "items", arrType()),
			Body: blockOf(appendAssign(30, "acc", localOf(31, "x", intType())))},
		intLit(0),
		localOf(30, "acc", arrType()),
	)

	out := mustBuild(t, newTestBuilder(), block)
	seq, ok := out.(*elixir.Block)
	if !ok {
		t.Fatalf("expected statement sequence, got %T", out)
	}
	if len(seq.Exprs) != 3 {
		t.Fatalf("expected decl+loop pair spliced into one binding, got %d statements", len(seq.Exprs))
	}
	bind, ok := seq.Exprs[0].(*elixir.Match)
	if !ok {
		t.Fatalf("expected comprehension binding, got %T", seq.Exprs[0])
	}
	if pat, ok := bind.Pattern.(*elixir.PatVar); !ok || pat.Name != "acc" {
		t.Errorf("binding pattern = %v, want acc", bind.Pattern)
	}
	if _, ok := bind.Value.(*elixir.Comprehension); !ok {
		t.Errorf("binding value = %T, want a comprehension", bind.Value)
	}
	if ref, ok := seq.Exprs[2].(*elixir.Var); !ok || ref.Name != "acc" {
		t.Errorf("trailing reference = %v, want acc", seq.Exprs[2])
	}
}

func TestEmbeddedSpliceRejectedWhenAppendedLater(t *testing.T) {
	block := blockOf(
		emptyList(30, "acc"),
		&ir.For{Base: ir.NewBase(testSpan(), nil), VarID: 31, VarName: "x",
			Iter: localOf(32, "items", arrType()),
			Body: blockOf(appendAssign(30, "acc", localOf(31, "x", intType())))},
		appendAssign(30, "acc", intLit(99)),
		localOf(30, "acc", arrType()),
	)

	out := mustBuild(t, newTestBuilder(), block)
	seq, ok := out.(*elixir.Block)
	if !ok || len(seq.Exprs) != 4 {
		t.Fatalf("late append must veto the splice, got %T", out)
	}
	if _, ok := seq.Exprs[0].(*elixir.Match); !ok {
		t.Errorf("expected the plain declaration kept, got %T", seq.Exprs[0])
	}
	// The generic lowering threads acc through the loop accumulator.
	rebind, ok := seq.Exprs[1].(*elixir.Match)
	if !ok {
		t.Fatalf("expected the loop result rebound to acc, got %T", seq.Exprs[1])
	}
	if loop, ok := rebind.Value.(*elixir.RemoteCall); !ok || loop.Fun != "reduce" {
		t.Errorf("expected the loop lowered to Enum.reduce, got %v", rebind.Value)
	}
}

func TestMergeTempMatches(t *testing.T) {
	span := testSpan()
	bind := &elixir.Match{Span: span,
		Pattern: &elixir.PatVar{Span: span, Name: "_t1"},
		Value:   &elixir.IntegerLit{Span: span, Value: 1}}
	dispatch := &elixir.Case{Span: span,
		Subject: &elixir.Var{Span: span, Name: "_t1"},
		Clauses: []elixir.CaseClause{{Pattern: &elixir.PatWildcard{Span: span},
			Body: &elixir.NilLit{Span: span}}}}
	other := &elixir.IntegerLit{Span: span, Value: 2}

	out := mergeTempMatches([]elixir.Expr{bind, dispatch, other})
	if len(out) != 2 {
		t.Fatalf("expected binding and case grouped, got %d statements", len(out))
	}
	group, ok := out[0].(*elixir.Block)
	if !ok || len(group.Exprs) != 2 {
		t.Fatalf("expected a two-statement group, got %T", out[0])
	}
	if group.Exprs[0] != bind || group.Exprs[1] != dispatch {
		t.Errorf("group does not keep the pair intact")
	}

	// A user-named binding must never be grouped.
	named := &elixir.Match{Span: span,
		Pattern: &elixir.PatVar{Span: span, Name: "value"},
		Value:   &elixir.IntegerLit{Span: span, Value: 1}}
	out = mergeTempMatches([]elixir.Expr{named, dispatch})
	if len(out) != 2 {
		t.Fatalf("non-temp binding grouped: %d statements", len(out))
	}
}

func TestBlockBuildRestoresScopeDepth(t *testing.T) {
	b := newTestBuilder()
	before := b.c.ScopeDepth()

	block := blockOf(
		declOf(1, "a", intType(), intLit(1), false),
		localOf(1, "a", intType()),
	)
	mustBuild(t, b, block)
	if got := b.c.ScopeDepth(); got != before {
		t.Fatalf("scope depth %d after build, want %d", got, before)
	}

	// The restore holds on the error path too.
	failing := blockOf(
		declOf(1, "a", intType(), intLit(1), false),
		&ir.ThisRef{Base: ir.NewBase(testSpan(), nil)},
	)
	if _, err := b.c.Build(failing); err == nil {
		t.Fatal("expected receiver reference outside a method to fail")
	}
	if got := b.c.ScopeDepth(); got != before {
		t.Fatalf("scope depth %d after failed build, want %d", got, before)
	}
}

func TestBlockBuildIsDeterministic(t *testing.T) {
	makeBlock := func() *ir.Block {
		return blockOf(
			freshMapDecl(1, "m"),
			mapSetCall(1, "m", strLit("a"), intLit(1)),
			localOf(1, "m", mapType()),
		)
	}
	first := mustBuild(t, newTestBuilder(), makeBlock())
	second := mustBuild(t, newTestBuilder(), makeBlock())
	if !reflect.DeepEqual(first, second) {
		t.Fatal("two builds of the same block differ")
	}
}

func TestEmptyAndSingletonBlocks(t *testing.T) {
	b := newTestBuilder()

	out := mustBuild(t, b, blockOf())
	empty, ok := out.(*elixir.Block)
	if !ok || !empty.IsEmpty() {
		t.Fatalf("empty block = %v, want empty", out)
	}

	out = mustBuild(t, b, blockOf(intLit(5)))
	if lit, ok := out.(*elixir.IntegerLit); !ok || lit.Value != 5 {
		t.Fatalf("singleton block = %v, want its sole statement unwrapped", out)
	}
}
