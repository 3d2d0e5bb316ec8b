package lower

import (
	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/token"
)

// tryBuiltinMethod lowers calls of the source standard library's
// container and string methods directly to the target's immutable
// primitives. Semantics are preserved exactly even where the primitives
// differ: splitting on the empty separator must yield no empty segments,
// out-of-range access yields a sentinel instead of raising, mutating
// methods on a local rebind it. An unrecognized method on a known core
// type degrades to a passthrough call, flagged for review, rather than
// failing the build.
func tryBuiltinMethod(c *Context, n *ir.Call, field *ir.Field) (elixir.Expr, bool, error) {
	recvType := field.Receiver.ExprType()
	var table map[string]builtinLowering
	switch {
	case ir.IsArray(recvType):
		table = arrayBuiltins
	case ir.IsString(recvType):
		table = stringBuiltins
	case isMapType(recvType):
		table = mapBuiltins
	default:
		return nil, false, nil
	}

	// Lookup first: on a miss the caller compiles the receiver and
	// arguments itself, and building them here too would duplicate
	// their side effects on the context (temp numbering, notes).
	lowering, ok := table[field.Name]
	if !ok {
		c.Note(n.ExprSpan().String() + ": unrecognized builtin method " + field.Name +
			", lowered as passthrough call")
		return nil, false, nil
	}

	receiver, err := c.Build(field.Receiver)
	if err != nil {
		return nil, true, err
	}
	args, err := buildExprs(c, n.Args)
	if err != nil {
		return nil, true, err
	}

	result, err := lowering(c, n.ExprSpan(), receiver, args, n)
	if err != nil {
		return nil, true, err
	}
	return result, true, nil
}

func isMapType(t ir.Type) bool {
	if inst, ok := t.(*ir.InstType); ok {
		return inst.Name == ir.MapTypeName || inst.Name == "StringMap" || inst.Name == "IntMap"
	}
	return false
}

type builtinLowering func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error)

// rebindReceiver wraps a pure replacement value as a rebinding of the
// receiver local, preserving the source's mutation semantics. A receiver
// that is not a plain local cannot be rebound; the pure value is returned
// with a review note, since dropping the effect silently would be worse.
func rebindReceiver(c *Context, span token.Span, n *ir.Call, field *ir.Field, value elixir.Expr) (elixir.Expr, error) {
	if ref, ok := ir.Unwrap(field.Receiver).(*ir.LocalRef); ok {
		name := c.ResolveName(ref.ID, ref.Name)
		return &elixir.Match{Span: span,
			Pattern: &elixir.PatVar{Span: span, Name: name}, Value: value}, nil
	}
	c.Note(span.String() + ": mutating method " + field.Name + " on a non-local receiver, lowered as pure value")
	return value, nil
}

func receiverField(n *ir.Call) *ir.Field {
	f, _ := ir.Unwrap(n.Callee).(*ir.Field)
	return f
}

var arrayBuiltins = map[string]builtinLowering{
	"push": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		appended := &elixir.Binop{Span: span, Op: "++", Left: recv,
			Right: &elixir.ListLit{Span: span, Elements: args}}
		return rebindReceiver(c, span, n, receiverField(n), appended)
	},
	"pop": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		shorter := &elixir.RemoteCall{Span: span, Module: "List", Fun: "delete_at",
			Args: []elixir.Expr{recv, &elixir.IntegerLit{Span: span, Value: -1}}}
		return rebindReceiver(c, span, n, receiverField(n), shorter)
	},
	"shift": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		shorter := &elixir.RemoteCall{Span: span, Module: "List", Fun: "delete_at",
			Args: []elixir.Expr{recv, &elixir.IntegerLit{Span: span, Value: 0}}}
		return rebindReceiver(c, span, n, receiverField(n), shorter)
	},
	"unshift": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		longer := &elixir.Binop{Span: span, Op: "++",
			Left: &elixir.ListLit{Span: span, Elements: args}, Right: recv}
		return rebindReceiver(c, span, n, receiverField(n), longer)
	},
	"map": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "map",
			Args: append([]elixir.Expr{recv}, args...)}, nil
	},
	"filter": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "filter",
			Args: append([]elixir.Expr{recv}, args...)}, nil
	},
	"concat": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		if len(args) != 1 {
			return nil, diagnostics.Errorf(diagnostics.ErrL005, span,
				"concat expects 1 argument, got %d", len(args))
		}
		return &elixir.Binop{Span: span, Op: "++", Left: recv, Right: args[0]}, nil
	},
	"join": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "join",
			Args: append([]elixir.Expr{recv}, args...)}, nil
	},
	"slice": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		if len(args) == 1 {
			return &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "drop",
				Args: []elixir.Expr{recv, args[0]}}, nil
		}
		// slice(start, end) is exclusive of end.
		length := &elixir.Binop{Span: span, Op: "-", Left: args[1], Right: args[0]}
		return &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "slice",
			Args: []elixir.Expr{recv, args[0], length}}, nil
	},
	"indexOf": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		// The source yields -1 on a miss; find_index yields nil.
		temp := c.FreshTemp()
		finder := &elixir.Fn{Span: span, Clauses: []elixir.FnClause{{
			Params: []elixir.Pattern{&elixir.PatVar{Span: span, Name: temp}},
			Body: &elixir.Binop{Span: span, Op: "==",
				Left: &elixir.Var{Span: span, Name: temp}, Right: args[0]},
		}}}
		found := &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "find_index",
			Args: []elixir.Expr{recv, finder}}
		return &elixir.Binop{Span: span, Op: "||", Left: found,
			Right: &elixir.IntegerLit{Span: span, Value: -1}}, nil
	},
	"contains": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "member?",
			Args: append([]elixir.Expr{recv}, args...)}, nil
	},
	"reverse": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		reversed := &elixir.RemoteCall{Span: span, Module: "Enum", Fun: "reverse",
			Args: []elixir.Expr{recv}}
		return rebindReceiver(c, span, n, receiverField(n), reversed)
	},
	"remove": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		// Source remove drops the first occurrence only.
		removed := &elixir.RemoteCall{Span: span, Module: "List", Fun: "delete",
			Args: append([]elixir.Expr{recv}, args...)}
		return rebindReceiver(c, span, n, receiverField(n), removed)
	},
	"copy": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		// Immutable target: a copy is the value itself.
		return recv, nil
	},
}

var stringBuiltins = map[string]builtinLowering{
	"charAt": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		// Out-of-range yields "" in the source; String.at yields nil.
		at := &elixir.RemoteCall{Span: span, Module: "String", Fun: "at",
			Args: append([]elixir.Expr{recv}, args...)}
		return &elixir.Binop{Span: span, Op: "||", Left: at,
			Right: &elixir.StringLit{Span: span, Value: ""}}, nil
	},
	"substring": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		if len(args) == 1 {
			return &elixir.RemoteCall{Span: span, Module: "String", Fun: "slice",
				Args: []elixir.Expr{recv, args[0],
					&elixir.RemoteCall{Span: span, Module: "String", Fun: "length",
						Args: []elixir.Expr{recv}}}}, nil
		}
		length := &elixir.Binop{Span: span, Op: "-", Left: args[1], Right: args[0]}
		return &elixir.RemoteCall{Span: span, Module: "String", Fun: "slice",
			Args: []elixir.Expr{recv, args[0], length}}, nil
	},
	"substr": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "String", Fun: "slice",
			Args: append([]elixir.Expr{recv}, args...)}, nil
	},
	"indexOf": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		// :binary.match yields {pos, len} | :nomatch; the source wants
		// pos | -1.
		probe := &elixir.RemoteCall{Span: span, Module: ":binary", Fun: "match",
			Args: append([]elixir.Expr{recv}, args...)}
		pos := c.FreshTemp()
		return &elixir.Case{Span: span, Subject: probe, Clauses: []elixir.CaseClause{
			{
				Pattern: &elixir.PatTuple{Span: span, Elements: []elixir.Pattern{
					&elixir.PatVar{Span: span, Name: pos},
					&elixir.PatWildcard{Span: span},
				}},
				Body: &elixir.Var{Span: span, Name: pos},
			},
			{
				Pattern: &elixir.PatLiteral{Span: span,
					Value: &elixir.AtomLit{Span: span, Name: "nomatch"}},
				Body: &elixir.IntegerLit{Span: span, Value: -1},
			},
		}}, nil
	},
	"split": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		// Splitting on "" yields no empty boundary segments in the
		// source; the target primitive preserves them, so the empty
		// separator takes a different path entirely.
		if len(args) == 1 {
			if lit, ok := args[0].(*elixir.StringLit); ok && lit.Value == "" {
				return &elixir.RemoteCall{Span: span, Module: "String", Fun: "graphemes",
					Args: []elixir.Expr{recv}}, nil
			}
		}
		return &elixir.RemoteCall{Span: span, Module: "String", Fun: "split",
			Args: append([]elixir.Expr{recv}, args...)}, nil
	},
	"toUpperCase": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "String", Fun: "upcase",
			Args: []elixir.Expr{recv}}, nil
	},
	"toLowerCase": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "String", Fun: "downcase",
			Args: []elixir.Expr{recv}}, nil
	},
	"trim": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "String", Fun: "trim",
			Args: []elixir.Expr{recv}}, nil
	},
	"toString": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return recv, nil
	},
}

var mapBuiltins = map[string]builtinLowering{
	"set": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		updated := &elixir.RemoteCall{Span: span, Module: "Map", Fun: "put",
			Args: append([]elixir.Expr{recv}, args...)}
		return rebindReceiver(c, span, n, receiverField(n), updated)
	},
	"get": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "Map", Fun: "get",
			Args: append([]elixir.Expr{recv}, args...)}, nil
	},
	"exists": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "Map", Fun: "has_key?",
			Args: append([]elixir.Expr{recv}, args...)}, nil
	},
	"remove": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		deleted := &elixir.RemoteCall{Span: span, Module: "Map", Fun: "delete",
			Args: append([]elixir.Expr{recv}, args...)}
		return rebindReceiver(c, span, n, receiverField(n), deleted)
	},
	"keys": func(c *Context, span token.Span, recv elixir.Expr, args []elixir.Expr, n *ir.Call) (elixir.Expr, error) {
		return &elixir.RemoteCall{Span: span, Module: "Map", Fun: "keys",
			Args: []elixir.Expr{recv}}, nil
	},
}
