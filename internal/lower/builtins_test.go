package lower

import (
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
)

func methodCall(recv ir.Expr, name string, args ...ir.Expr) *ir.Call {
	return &ir.Call{Base: ir.NewBase(testSpan(), nil),
		Callee: &ir.Field{Base: ir.NewBase(testSpan(), nil),
			Kind: ir.FieldInstance, Receiver: recv, Name: name},
		Args: args}
}

func TestArrayMutatorsRebindTheReceiver(t *testing.T) {
	b := newTestBuilder()
	b.c.BindLocal(1, "items")

	out := mustBuild(t, b, methodCall(localOf(1, "items", arrType()), "push", intLit(4)))
	rebind, ok := out.(*elixir.Match)
	if !ok {
		t.Fatalf("push on a local = %T, want a rebinding", out)
	}
	if pat := rebind.Pattern.(*elixir.PatVar); pat.Name != "items" {
		t.Errorf("rebind target = %s, want items", pat.Name)
	}
	appended, ok := rebind.Value.(*elixir.Binop)
	if !ok || appended.Op != "++" {
		t.Fatalf("push value = %v, want items ++ [4]", rebind.Value)
	}

	out = mustBuild(t, b, methodCall(localOf(1, "items", arrType()), "pop"))
	rebind = out.(*elixir.Match)
	drop, ok := rebind.Value.(*elixir.RemoteCall)
	if !ok || drop.Module != "List" || drop.Fun != "delete_at" {
		t.Fatalf("pop value = %v, want List.delete_at(items, -1)", rebind.Value)
	}
}

func TestArrayAccessors(t *testing.T) {
	b := newTestBuilder()
	recv := func() *ir.LocalRef { return localOf(1, "items", arrType()) }

	testCases := []struct {
		name   string
		call   *ir.Call
		module string
		fun    string
	}{
		{"map", methodCall(recv(), "map", localOf(2, "f", &ir.FunType{})), "Enum", "map"},
		{"filter", methodCall(recv(), "filter", localOf(2, "f", &ir.FunType{})), "Enum", "filter"},
		{"join", methodCall(recv(), "join", strLit(",")), "Enum", "join"},
		{"contains", methodCall(recv(), "contains", intLit(1)), "Enum", "member?"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := mustBuild(t, b, tc.call)
			call, ok := out.(*elixir.RemoteCall)
			if !ok || call.Module != tc.module || call.Fun != tc.fun {
				t.Fatalf("got %v, want %s.%s", out, tc.module, tc.fun)
			}
			if len(call.Args) < 1 {
				t.Fatal("receiver not passed as first argument")
			}
		})
	}
}

func TestArraySliceArities(t *testing.T) {
	b := newTestBuilder()
	recv := func() *ir.LocalRef { return localOf(1, "items", arrType()) }

	out := mustBuild(t, b, methodCall(recv(), "slice", intLit(2)))
	drop, ok := out.(*elixir.RemoteCall)
	if !ok || drop.Fun != "drop" {
		t.Fatalf("slice/1 = %v, want Enum.drop", out)
	}

	out = mustBuild(t, b, methodCall(recv(), "slice", intLit(2), intLit(5)))
	slice, ok := out.(*elixir.RemoteCall)
	if !ok || slice.Fun != "slice" {
		t.Fatalf("slice/2 = %v, want Enum.slice", out)
	}
	// The end index is exclusive; the target wants a length.
	length, ok := slice.Args[2].(*elixir.Binop)
	if !ok || length.Op != "-" {
		t.Errorf("slice length = %v, want end - start", slice.Args[2])
	}
}

func TestArrayIndexOfDefaultsToMinusOne(t *testing.T) {
	out := mustBuild(t, newTestBuilder(),
		methodCall(localOf(1, "items", arrType()), "indexOf", intLit(3)))
	miss, ok := out.(*elixir.Binop)
	if !ok || miss.Op != "||" {
		t.Fatalf("indexOf = %v, want find_index || -1", out)
	}
	if sentinel, ok := miss.Right.(*elixir.IntegerLit); !ok || sentinel.Value != -1 {
		t.Errorf("miss value = %v, want -1", miss.Right)
	}
}

func TestStringSplitEmptySeparator(t *testing.T) {
	b := newTestBuilder()
	recv := func() *ir.LocalRef { return localOf(1, "s", strType()) }

	out := mustBuild(t, b, methodCall(recv(), "split", strLit("")))
	graphemes, ok := out.(*elixir.RemoteCall)
	if !ok || graphemes.Fun != "graphemes" {
		t.Fatalf("split on empty separator = %v, want String.graphemes", out)
	}

	out = mustBuild(t, b, methodCall(recv(), "split", strLit(",")))
	split, ok := out.(*elixir.RemoteCall)
	if !ok || split.Fun != "split" {
		t.Fatalf("split = %v, want String.split", out)
	}
}

func TestStringCharAtYieldsEmptyOnMiss(t *testing.T) {
	out := mustBuild(t, newTestBuilder(),
		methodCall(localOf(1, "s", strType()), "charAt", intLit(0)))
	miss, ok := out.(*elixir.Binop)
	if !ok || miss.Op != "||" {
		t.Fatalf("charAt = %v, want String.at || \"\"", out)
	}
	if sentinel, ok := miss.Right.(*elixir.StringLit); !ok || sentinel.Value != "" {
		t.Errorf("miss value = %v, want the empty string", miss.Right)
	}
}

func TestStringIndexOfHandlesNomatch(t *testing.T) {
	out := mustBuild(t, newTestBuilder(),
		methodCall(localOf(1, "s", strType()), "indexOf", strLit("x")))
	probe, ok := out.(*elixir.Case)
	if !ok || len(probe.Clauses) != 2 {
		t.Fatalf("indexOf = %v, want a two-arm case over :binary.match", out)
	}
	hit, ok := probe.Clauses[0].Pattern.(*elixir.PatTuple)
	if !ok || len(hit.Elements) != 2 {
		t.Errorf("hit pattern = %v, want {pos, _}", probe.Clauses[0].Pattern)
	}
	if lit, ok := probe.Clauses[1].Body.(*elixir.IntegerLit); !ok || lit.Value != -1 {
		t.Errorf("miss body = %v, want -1", probe.Clauses[1].Body)
	}
}

func TestSubstringArities(t *testing.T) {
	b := newTestBuilder()
	recv := func() *ir.LocalRef { return localOf(1, "s", strType()) }

	out := mustBuild(t, b, methodCall(recv(), "substring", intLit(2)))
	tail, ok := out.(*elixir.RemoteCall)
	if !ok || tail.Fun != "slice" || len(tail.Args) != 3 {
		t.Fatalf("substring/1 = %v, want String.slice to the end", out)
	}
	if rest, ok := tail.Args[2].(*elixir.RemoteCall); !ok || rest.Fun != "length" {
		t.Errorf("substring/1 length = %v, want String.length(s)", tail.Args[2])
	}

	out = mustBuild(t, b, methodCall(recv(), "substring", intLit(2), intLit(5)))
	mid := out.(*elixir.RemoteCall)
	if length, ok := mid.Args[2].(*elixir.Binop); !ok || length.Op != "-" {
		t.Errorf("substring/2 length = %v, want end - start", mid.Args[2])
	}
}

func TestMapMethods(t *testing.T) {
	b := newTestBuilder()
	b.c.BindLocal(1, "lookup")
	recv := func() *ir.LocalRef { return localOf(1, "lookup", mapType()) }

	out := mustBuild(t, b, methodCall(recv(), "set", strLit("k"), intLit(1)))
	rebind, ok := out.(*elixir.Match)
	if !ok {
		t.Fatalf("set on a local = %T, want a rebinding", out)
	}
	if put, ok := rebind.Value.(*elixir.RemoteCall); !ok || put.Fun != "put" {
		t.Errorf("set value = %v, want Map.put", rebind.Value)
	}

	out = mustBuild(t, b, methodCall(recv(), "exists", strLit("k")))
	if has, ok := out.(*elixir.RemoteCall); !ok || has.Fun != "has_key?" {
		t.Errorf("exists = %v, want Map.has_key?", out)
	}

	out = mustBuild(t, b, methodCall(recv(), "get", strLit("k")))
	if get, ok := out.(*elixir.RemoteCall); !ok || get.Module != "Map" || get.Fun != "get" {
		t.Errorf("get = %v, want Map.get", out)
	}
}

func TestUnknownBuiltinDegradesToPassthrough(t *testing.T) {
	b := newTestBuilder()
	out := mustBuild(t, b,
		methodCall(localOf(1, "items", arrType()), "frobnicate", intLit(1)))
	call, ok := out.(*elixir.LocalCall)
	if !ok || call.Fun != "frobnicate" {
		t.Fatalf("unknown method = %v, want a passthrough call", out)
	}
	if len(b.c.ReviewNotes) != 1 {
		t.Fatalf("expected one review note, got %d", len(b.c.ReviewNotes))
	}
	if !strings.Contains(b.c.ReviewNotes[0], "frobnicate") {
		t.Errorf("review note %q does not name the method", b.c.ReviewNotes[0])
	}
}

func TestUnknownBuiltinBuildsArgumentsOnce(t *testing.T) {
	b := newTestBuilder()
	// The argument carries its own note-producing lowering. If the
	// builtin layer compiled arguments before deciding the method is
	// unknown, the caller's passthrough would compile them a second
	// time and the note would appear twice.
	copied := methodCall(localOf(1, "items", arrType()), "copy")
	copied.Base = ir.NewBase(testSpan(), arrType())
	noisy := methodCall(copied, "push", intLit(1))
	noisy.Base = ir.NewBase(testSpan(), arrType())

	mustBuild(t, b, methodCall(localOf(1, "items", arrType()), "frobnicate", noisy))
	var pure int
	for _, note := range b.c.ReviewNotes {
		if strings.Contains(note, "pure value") {
			pure++
		}
	}
	if pure != 1 {
		t.Fatalf("argument compiled %d times, notes = %v", pure, b.c.ReviewNotes)
	}
}

func TestConcatWrongArityIsRejected(t *testing.T) {
	b := newTestBuilder()
	call := methodCall(localOf(1, "items", arrType()), "concat", intLit(1), intLit(2))
	_, err := b.c.Build(call)
	if err == nil {
		t.Fatal("concat/2 must not lower")
	}
	var diag *diagnostics.DiagnosticError
	if !errors.As(err, &diag) || diag.Code != diagnostics.ErrL005 {
		t.Fatalf("error = %v, want code %s", err, diagnostics.ErrL005)
	}
}

func TestMutatorOnNonLocalReceiverStaysPure(t *testing.T) {
	b := newTestBuilder()
	// A call result cannot be rebound; the pure value is kept, flagged.
	recv := methodCall(localOf(1, "items", arrType()), "copy")
	recv.Base = ir.NewBase(testSpan(), arrType())
	out := mustBuild(t, b, methodCall(recv, "push", intLit(1)))
	if _, ok := out.(*elixir.Match); ok {
		t.Fatal("non-local receiver must not be rebound")
	}
	if len(b.c.ReviewNotes) != 1 {
		t.Fatalf("expected one review note, got %d", len(b.c.ReviewNotes))
	}
}
