package lower

import (
	"testing"

	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
)

func colorEnum(idiomatic bool) *ir.EnumDecl {
	return &ir.EnumDecl{Name: "Color", Idiomatic: idiomatic, Ctors: []*ir.EnumCtor{
		{Name: "Red", Index: 0},
		{Name: "DarkBlue", Index: 1},
	}}
}

func ctorApply(enum *ir.EnumDecl, ctorIndex int, args ...ir.Expr) *ir.Call {
	return &ir.Call{Base: ir.NewBase(testSpan(), &ir.EnumType{Name: enum.Name, Decl: enum}),
		Callee: &ir.Field{Base: ir.NewBase(testSpan(), nil),
			Kind: ir.FieldEnumCtor, Enum: enum, CtorIndex: ctorIndex},
		Args: args}
}

func TestIdiomaticEnumLowersToAtoms(t *testing.T) {
	enum := colorEnum(true)
	out := mustBuild(t, newTestBuilder(), ctorApply(enum, 1))
	atom, ok := out.(*elixir.AtomLit)
	if !ok || atom.Name != "dark_blue" {
		t.Fatalf("idiomatic constructor = %v, want :dark_blue", out)
	}
}

func TestTaggedEnumKeepsUniformTupleShape(t *testing.T) {
	enum := colorEnum(false)
	out := mustBuild(t, newTestBuilder(), ctorApply(enum, 0))
	tuple, ok := out.(*elixir.TupleLit)
	if !ok || len(tuple.Elements) != 1 {
		t.Fatalf("tagged nullary constructor = %v, want a one-element tuple", out)
	}
	if tag, ok := tuple.Elements[0].(*elixir.AtomLit); !ok || tag.Name != "red" {
		t.Errorf("tag = %v, want :red", tuple.Elements[0])
	}

	shaped := shapeEnum()
	out = mustBuild(t, newTestBuilder(), ctorApply(shaped, 1, intLit(5)))
	tuple = out.(*elixir.TupleLit)
	if len(tuple.Elements) != 2 {
		t.Fatalf("circle(5) = %v, want {:circle, 5}", out)
	}
}

func TestConfigOverridesEnumStrategy(t *testing.T) {
	enum := colorEnum(false)
	cfg := &config.Config{Enums: []config.EnumOverride{{Name: "Color", Idiomatic: true}}}
	b := New(&ir.Module{Name: "unit"}, cfg)

	out := mustBuild(t, b, ctorApply(enum, 0))
	if _, ok := out.(*elixir.AtomLit); !ok {
		t.Fatalf("overridden constructor = %T, want an atom", out)
	}
}

func TestIdiomaticIsIllegalWithParameterizedCtors(t *testing.T) {
	enum := shapeEnum()
	enum.Idiomatic = true
	out := mustBuild(t, newTestBuilder(), ctorApply(enum, 1, intLit(5)))
	if _, ok := out.(*elixir.TupleLit); !ok {
		t.Fatalf("parameterized enum forced idiomatic = %T, want the tuple strategy kept", out)
	}
}

func TestUnknownCtorIndexIsDiagnosed(t *testing.T) {
	enum := colorEnum(false)
	_, err := newTestBuilder().c.Build(ctorApply(enum, 9))
	if err == nil {
		t.Fatal("expected a diagnostic for an out-of-range constructor index")
	}
}

func TestSurvivingParameterExtraction(t *testing.T) {
	enum := shapeEnum()
	out := mustBuild(t, newTestBuilder(),
		paramExtract(enumLocal(5, "shape", enum), enum, 1, 0))
	elem, ok := out.(*elixir.LocalCall)
	if !ok || elem.Fun != "elem" {
		t.Fatalf("generic extraction = %v, want elem/2", out)
	}
	// Parameter 0 lives behind the tag at tuple slot 1.
	if slot, ok := elem.Args[1].(*elixir.IntegerLit); !ok || slot.Value != 1 {
		t.Errorf("tuple slot = %v, want 1", elem.Args[1])
	}
}

func TestSurvivingTagReadEnumerates(t *testing.T) {
	enum := colorEnum(false)
	out := mustBuild(t, newTestBuilder(), tagRead(enumLocal(5, "c", enum)))
	dispatch, ok := out.(*elixir.Case)
	if !ok || len(dispatch.Clauses) != 2 {
		t.Fatalf("generic tag read = %v, want a case over every constructor", out)
	}
	for i, clause := range dispatch.Clauses {
		lit, ok := clause.Body.(*elixir.IntegerLit)
		if !ok || lit.Value != int64(i) {
			t.Errorf("clause %d body = %v, want index %d", i, clause.Body, i)
		}
	}
}

func TestCtorReferenceWrapsParameterizedCtors(t *testing.T) {
	enum := shapeEnum()
	field := &ir.Field{Base: ir.NewBase(testSpan(), nil),
		Kind: ir.FieldEnumCtor, Enum: enum, CtorIndex: 1}
	out := mustBuild(t, newTestBuilder(), field)
	fn, ok := out.(*elixir.Fn)
	if !ok || len(fn.Clauses) != 1 {
		t.Fatalf("first-class constructor = %T, want fn wrapper", out)
	}
	if len(fn.Clauses[0].Params) != 1 {
		t.Errorf("wrapper arity = %d, want 1", len(fn.Clauses[0].Params))
	}
	if _, ok := fn.Clauses[0].Body.(*elixir.TupleLit); !ok {
		t.Errorf("wrapper body = %T, want the constructed tuple", fn.Clauses[0].Body)
	}
}
