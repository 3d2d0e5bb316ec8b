package lower

import (
	"testing"

	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
)

func TestBuildUnitLowersClassesOnly(t *testing.T) {
	unit := &ir.Module{Name: "sample",
		Classes: []*ir.ClassDecl{{Name: "PageCounter"}},
		Enums:   []*ir.EnumDecl{shapeEnum()},
	}
	modules, err := New(unit, nil).BuildUnit()
	if err != nil {
		t.Fatal(err)
	}
	if len(modules) != 1 {
		t.Fatalf("expected 1 module (enums lower inline), got %d", len(modules))
	}
	if modules[0].Name != "PageCounter" {
		t.Errorf("module name = %s", modules[0].Name)
	}
}

func TestInstanceFieldsBecomeStruct(t *testing.T) {
	unit := &ir.Module{Name: "sample", Classes: []*ir.ClassDecl{{
		Name: "Point",
		Fields: []*ir.FieldDecl{
			{Name: "x", Type: intType(), Default: intLit(0)},
			{Name: "y", Type: intType()},
		},
	}}}
	modules, err := New(unit, nil).BuildUnit()
	if err != nil {
		t.Fatal(err)
	}
	def, ok := modules[0].Body[0].(*elixir.StructDef)
	if !ok {
		t.Fatalf("first body entry = %T, want defstruct", modules[0].Body[0])
	}
	if len(def.Fields) != 2 || def.Fields[0].Name != "x" || def.Fields[1].Name != "y" {
		t.Fatalf("struct fields = %v", def.Fields)
	}
	if lit, ok := def.Fields[0].Default.(*elixir.IntegerLit); !ok || lit.Value != 0 {
		t.Errorf("x default = %v, want 0", def.Fields[0].Default)
	}
	if def.Fields[1].Default != nil {
		t.Errorf("y default = %v, want none", def.Fields[1].Default)
	}
}

func TestConstantStaticGetsAttributeAndAccessor(t *testing.T) {
	unit := &ir.Module{Name: "sample", Classes: []*ir.ClassDecl{{
		Name: "Limits",
		Fields: []*ir.FieldDecl{
			{Name: "maxSize", Type: intType(), Default: intLit(64), Static: true},
		},
	}}}
	modules, err := New(unit, nil).BuildUnit()
	if err != nil {
		t.Fatal(err)
	}
	body := modules[0].Body
	if len(body) != 2 {
		t.Fatalf("expected attribute + accessor, got %d entries", len(body))
	}
	attr, ok := body[0].(*elixir.ModuleAttr)
	if !ok || attr.Name != "max_size" {
		t.Fatalf("first entry = %v, want @max_size", body[0])
	}
	accessor, ok := body[1].(*elixir.FunctionDef)
	if !ok || accessor.Name != "max_size" || len(accessor.Params) != 0 {
		t.Fatalf("second entry = %v, want max_size/0", body[1])
	}
	if raw, ok := accessor.Body.(*elixir.RawCode); !ok || raw.Code != "@max_size" {
		t.Errorf("accessor body = %v, want the attribute read", accessor.Body)
	}
}

func TestMutableStaticGetsAccessorOnly(t *testing.T) {
	unit := &ir.Module{Name: "sample", Classes: []*ir.ClassDecl{{
		Name: "Registry",
		Fields: []*ir.FieldDecl{
			{Name: "entries", Type: arrType(), Static: true,
				Default: &ir.ArrayDecl{Base: ir.NewBase(testSpan(), arrType()),
					Elements: []ir.Expr{intLit(1)}}},
		},
	}}}
	modules, err := New(unit, nil).BuildUnit()
	if err != nil {
		t.Fatal(err)
	}
	body := modules[0].Body
	if len(body) != 1 {
		t.Fatalf("expected a lone accessor, got %d entries", len(body))
	}
	accessor := body[0].(*elixir.FunctionDef)
	if _, ok := accessor.Body.(*elixir.ListLit); !ok {
		t.Errorf("accessor body = %T, want the initializer value", accessor.Body)
	}
}

func TestInstanceMethodGainsReceiverParam(t *testing.T) {
	unit := &ir.Module{Name: "sample", Classes: []*ir.ClassDecl{{
		Name: "Greeter",
		Methods: []*ir.MethodDecl{{
			Name:   "greet",
			Params: []ir.Param{{ID: 1, Name: "name", Type: strType()}},
			Body:   localOf(1, "name", strType()),
		}},
	}}}
	modules, err := New(unit, nil).BuildUnit()
	if err != nil {
		t.Fatal(err)
	}
	def := modules[0].Body[0].(*elixir.FunctionDef)
	if def.Name != "greet" {
		t.Errorf("function name = %s", def.Name)
	}
	if len(def.Params) != 2 {
		t.Fatalf("params = %d, want receiver + name", len(def.Params))
	}
	recv, ok := def.Params[0].(*elixir.PatVar)
	if !ok || recv.Name != "this" {
		t.Errorf("receiver param = %v", def.Params[0])
	}
}

func TestStaticMethodHasNoReceiver(t *testing.T) {
	unit := &ir.Module{Name: "sample", Classes: []*ir.ClassDecl{{
		Name: "Math2",
		Methods: []*ir.MethodDecl{{
			Name: "twice", Static: true,
			Params: []ir.Param{{ID: 1, Name: "n", Type: intType()}},
			Body: binopOf(ir.OpMul, localOf(1, "n", intType()), intLit(2),
				intType()),
		}},
	}}}
	modules, err := New(unit, nil).BuildUnit()
	if err != nil {
		t.Fatal(err)
	}
	def := modules[0].Body[0].(*elixir.FunctionDef)
	if len(def.Params) != 1 {
		t.Fatalf("params = %d, want just n", len(def.Params))
	}
}

func TestOptionalParamDefaultingPrologue(t *testing.T) {
	unit := &ir.Module{Name: "sample", Classes: []*ir.ClassDecl{{
		Name: "Pager",
		Methods: []*ir.MethodDecl{{
			Name: "page", Static: true,
			Params: []ir.Param{
				{ID: 1, Name: "size", Type: intType()},
				{ID: 2, Name: "offset", Type: intType(), Optional: true, Default: intLit(0)},
			},
			Body: localOf(2, "offset", intType()),
		}},
	}}}
	modules, err := New(unit, nil).BuildUnit()
	if err != nil {
		t.Fatal(err)
	}
	def := modules[0].Body[0].(*elixir.FunctionDef)
	seq, ok := def.Body.(*elixir.Block)
	if !ok || len(seq.Exprs) != 2 {
		t.Fatalf("body = %T, want prologue + body", def.Body)
	}
	defaulting, ok := seq.Exprs[0].(*elixir.Match)
	if !ok {
		t.Fatalf("prologue = %T, want offset = if ...", seq.Exprs[0])
	}
	guard, ok := defaulting.Value.(*elixir.If)
	if !ok {
		t.Fatalf("prologue value = %T, want a nil check", defaulting.Value)
	}
	if probe, ok := guard.Cond.(*elixir.Binop); !ok || probe.Op != "==" {
		t.Errorf("prologue condition = %v, want offset == nil", guard.Cond)
	}
}

func TestNativeNameOverridesModuleName(t *testing.T) {
	unit := &ir.Module{Name: "sample", Classes: []*ir.ClassDecl{{
		Name: "HttpUtil", NativeName: "Web.Http",
	}}}
	modules, err := New(unit, nil).BuildUnit()
	if err != nil {
		t.Fatal(err)
	}
	if modules[0].Name != "Web.Http" {
		t.Errorf("module name = %s, want Web.Http", modules[0].Name)
	}
}

func TestTryCatchLowering(t *testing.T) {
	b := newTestBuilder()
	try := &ir.Try{Base: ir.NewBase(testSpan(), nil),
		Body: &ir.Throw{Base: ir.NewBase(testSpan(), nil), Value: strLit("boom")},
		Catches: []ir.Catch{{VarID: 70, VarName: "e", Type: &ir.DynamicType{},
			Body: blockOf(localOf(70, "e", nil))}}}

	out := mustBuild(t, b, try)
	handler, ok := out.(*elixir.Try)
	if !ok {
		t.Fatalf("try = %T", out)
	}
	if _, ok := handler.Body.(*elixir.Throw); !ok {
		t.Errorf("try body = %T, want throw", handler.Body)
	}
	if len(handler.Catches) != 1 {
		t.Fatalf("catches = %d, want 1", len(handler.Catches))
	}
	arm := handler.Catches[0]
	if binder, ok := arm.Pattern.(*elixir.PatVar); !ok || binder.Name != "e" {
		t.Errorf("catch binder = %v, want e", arm.Pattern)
	}
	if ref, ok := arm.Body.(*elixir.Var); !ok || ref.Name != "e" {
		t.Errorf("catch body = %v, want the binder reference", arm.Body)
	}
	if arm.Guard != nil {
		t.Errorf("catch-all arm must carry no guard, got %v", arm.Guard)
	}
	// A dynamic catch-all carries no review note.
	if len(b.c.ReviewNotes) != 0 {
		t.Errorf("unexpected review notes: %v", b.c.ReviewNotes)
	}
}

// Typed arms must not swallow values of the other arms' types: each
// gets a runtime type test so the first matching arm is the right one.
func TestTypedCatchArmsAreGuarded(t *testing.T) {
	b := newTestBuilder()
	try := &ir.Try{Base: ir.NewBase(testSpan(), nil),
		Body: intLit(1),
		Catches: []ir.Catch{
			{VarID: 70, VarName: "s",
				Type: &ir.InstType{Name: ir.StringTypeName},
				Body: blockOf(intLit(0))},
			{VarID: 71, VarName: "n",
				Type: &ir.InstType{Name: ir.IntTypeName},
				Body: blockOf(intLit(1))},
		}}

	out := mustBuild(t, b, try)
	handler := out.(*elixir.Try)
	if len(handler.Catches) != 2 {
		t.Fatalf("catches = %d, want 2", len(handler.Catches))
	}
	wantTests := []string{"is_binary", "is_integer"}
	wantBinders := []string{"s", "n"}
	for i, arm := range handler.Catches {
		guard, ok := arm.Guard.(*elixir.LocalCall)
		if !ok || guard.Fun != wantTests[i] {
			t.Fatalf("arm %d guard = %v, want %s", i, arm.Guard, wantTests[i])
		}
		if ref, ok := guard.Args[0].(*elixir.Var); !ok || ref.Name != wantBinders[i] {
			t.Errorf("arm %d guard tests %v, want the binder %s", i, guard.Args[0], wantBinders[i])
		}
	}
	if len(b.c.ReviewNotes) != 0 {
		t.Errorf("guarded arms must not be flagged, notes = %v", b.c.ReviewNotes)
	}
}

func TestClassTypedCatchTestsTheStruct(t *testing.T) {
	b := newTestBuilder()
	try := &ir.Try{Base: ir.NewBase(testSpan(), nil),
		Body: intLit(1),
		Catches: []ir.Catch{{VarID: 70, VarName: "e",
			Type: &ir.InstType{Name: "IOError"},
			Body: blockOf(intLit(0))}}}

	out := mustBuild(t, b, try)
	guard, ok := out.(*elixir.Try).Catches[0].Guard.(*elixir.LocalCall)
	if !ok || guard.Fun != "is_struct" {
		t.Fatalf("guard = %v, want is_struct", out.(*elixir.Try).Catches[0].Guard)
	}
	if mod, ok := guard.Args[1].(*elixir.Var); !ok || mod.Name != "IOError" {
		t.Errorf("is_struct module = %v, want IOError", guard.Args[1])
	}
}

func TestUntestableCatchTypeIsFlagged(t *testing.T) {
	b := newTestBuilder()
	try := &ir.Try{Base: ir.NewBase(testSpan(), nil),
		Body: intLit(1),
		Catches: []ir.Catch{{VarID: 70, VarName: "e",
			Type: &ir.EnumType{Name: "Signal"},
			Body: blockOf(intLit(0))}}}

	mustBuild(t, b, try)
	if len(b.c.ReviewNotes) != 1 {
		t.Fatalf("catch arm without a runtime test should be flagged, notes = %v", b.c.ReviewNotes)
	}
}

func TestBreakAndContinueThrowSentinels(t *testing.T) {
	b := newTestBuilder()

	out := mustBuild(t, b, &ir.Break{Base: ir.NewBase(testSpan(), nil)})
	esc, ok := out.(*elixir.Throw)
	if !ok {
		t.Fatalf("break = %T, want throw", out)
	}
	if atom, ok := esc.Value.(*elixir.AtomLit); !ok || atom.Name != config.BreakSentinel {
		t.Errorf("break sentinel = %v", esc.Value)
	}

	out = mustBuild(t, b, &ir.Continue{Base: ir.NewBase(testSpan(), nil)})
	esc = out.(*elixir.Throw)
	if atom, ok := esc.Value.(*elixir.AtomLit); !ok || atom.Name != config.ContinueSentinel {
		t.Errorf("continue sentinel = %v", esc.Value)
	}
}
