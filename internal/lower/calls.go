package lower

import (
	"strconv"
	"strings"

	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/prettyprinter"
	"github.com/funvibe/alchemist/internal/token"
)

// buildCall dispatches a call expression. Order matters and first match
// wins: the verbatim escape hatch must never be shadowed by a later
// heuristic, builtin lowering must win over generic method dispatch, and
// enum constructor application is not a call at all.
func buildCall(c *Context, n *ir.Call) (elixir.Expr, error) {
	callee := ir.Unwrap(n.Callee)

	// 1. Verbatim code injection.
	if isVerbatimMarker(callee) {
		return buildVerbatim(c, n)
	}

	if field, ok := callee.(*ir.Field); ok {
		// 4 (checked early because the shape is unambiguous): enum
		// constructor application lowers to a tagged value, not a call.
		if field.Kind == ir.FieldEnumCtor {
			ctor := field.Enum.CtorAt(field.CtorIndex)
			if ctor == nil {
				return nil, diagnostics.Errorf(diagnostics.ErrL004, n.ExprSpan(),
					"enum %s has no constructor at index %d", field.Enum.Name, field.CtorIndex)
			}
			args, err := buildExprs(c, n.Args)
			if err != nil {
				return nil, err
			}
			return enumCtorValue(c, field.Enum, ctor, args, n.ExprSpan()), nil
		}

		// 2. Built-in container/string methods.
		if field.Kind == ir.FieldInstance {
			if built, ok, err := tryBuiltinMethod(c, n, field); ok || err != nil {
				return built, err
			}
		}

		// 3. Static/instance method calls.
		switch field.Kind {
		case ir.FieldStatic:
			return buildStaticCall(c, n, field)
		case ir.FieldInstance:
			return buildInstanceCall(c, n, field)
		}
	}

	// 5. Generic call of a function value.
	return buildGenericCall(c, n)
}

func isVerbatimMarker(callee ir.Expr) bool {
	switch f := callee.(type) {
	case *ir.LocalRef:
		return f.Name == config.VerbatimMarker
	case *ir.Field:
		return f.Name == config.VerbatimMarker
	}
	return false
}

// buildVerbatim substitutes compiled arguments into a constant code
// template. Substitution is interpolation-aware: a placeholder inside a
// quoted region wraps its argument for string interpolation; outside,
// the argument's rendered code is spliced raw. {0} refers to the first
// argument after the template.
func buildVerbatim(c *Context, n *ir.Call) (elixir.Expr, error) {
	span := n.ExprSpan()
	if len(n.Args) == 0 {
		return nil, diagnostics.NewError(diagnostics.ErrL003, span,
			"verbatim injection requires a template argument")
	}
	template, ok := ir.Unwrap(n.Args[0]).(*ir.StringConst)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrL003, span,
			"verbatim injection template must be a constant string, got %T", n.Args[0])
	}
	args, err := buildExprs(c, n.Args[1:])
	if err != nil {
		return nil, err
	}

	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = prettyprinter.Print(a)
	}

	var out strings.Builder
	src := template.Value
	inQuote := false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if ch == '"' && (i == 0 || src[i-1] != '\\') {
			inQuote = !inQuote
			out.WriteByte(ch)
			continue
		}
		if ch == '{' {
			end := strings.IndexByte(src[i:], '}')
			if end > 1 {
				if idx, err := strconv.Atoi(src[i+1 : i+end]); err == nil {
					if idx < 0 || idx >= len(rendered) {
						return nil, diagnostics.Errorf(diagnostics.ErrL003, span,
							"verbatim placeholder {%d} has no matching argument", idx)
					}
					if inQuote {
						out.WriteString("#{" + rendered[idx] + "}")
					} else {
						out.WriteString(rendered[idx])
					}
					i += end
					continue
				}
			}
		}
		out.WriteByte(ch)
	}
	return &elixir.RawCode{Span: span, Code: out.String()}, nil
}

func buildStaticCall(c *Context, n *ir.Call, field *ir.Field) (elixir.Expr, error) {
	span := n.ExprSpan()
	args, err := buildExprs(c, n.Args)
	if err != nil {
		return nil, err
	}
	if rewritten, ok := staticBuiltin(span, field.Class, field.Name, args); ok {
		return rewritten, nil
	}
	args = padOptional(c, span, field.Class, field.Name, args)
	module := resolveModuleName(c, field.Class)
	fun := memberName(c, field.Class, field.Name)
	if module == c.SelfModule {
		return &elixir.LocalCall{Span: span, Fun: fun, Args: args}, nil
	}
	return &elixir.RemoteCall{Span: span, Module: module, Fun: fun, Args: args}, nil
}

// buildInstanceCall lowers a method call to a module-qualified call with
// the receiver as explicit first argument; the target has no receiver
// dispatch.
func buildInstanceCall(c *Context, n *ir.Call, field *ir.Field) (elixir.Expr, error) {
	span := n.ExprSpan()
	receiver, err := c.Build(field.Receiver)
	if err != nil {
		return nil, err
	}
	rest, err := buildExprs(c, n.Args)
	if err != nil {
		return nil, err
	}
	rest = padOptional(c, span, field.Class, field.Name, rest)
	args := append([]elixir.Expr{receiver}, rest...)
	module := resolveModuleName(c, field.Class)
	fun := memberName(c, field.Class, field.Name)
	if module == c.SelfModule {
		return &elixir.LocalCall{Span: span, Fun: fun, Args: args}, nil
	}
	return &elixir.RemoteCall{Span: span, Module: module, Fun: fun, Args: args}, nil
}

func buildGenericCall(c *Context, n *ir.Call) (elixir.Expr, error) {
	span := n.ExprSpan()
	callee, err := c.Build(n.Callee)
	if err != nil {
		return nil, err
	}
	args, err := buildExprs(c, n.Args)
	if err != nil {
		return nil, err
	}
	return &elixir.Apply{Span: span, Callee: callee, Args: args}, nil
}

// padOptional pads trailing omitted optional parameters with the nil
// sentinel: the target's calling convention is fixed-arity.
func padOptional(c *Context, span token.Span, class, method string, args []elixir.Expr) []elixir.Expr {
	decl := lookupMethod(c, class, method)
	if decl == nil {
		return args
	}
	for i := len(args); i < len(decl.Params); i++ {
		if !decl.Params[i].Optional {
			break
		}
		args = append(args, &elixir.NilLit{Span: span})
	}
	return args
}

func lookupMethod(c *Context, class, method string) *ir.MethodDecl {
	if c.Unit == nil {
		return nil
	}
	for _, cls := range c.Unit.Classes {
		if cls.Name != class {
			continue
		}
		for _, m := range cls.Methods {
			if m.Name == method {
				return m
			}
		}
	}
	return nil
}

// staticBuiltin maps well-known front-end standard-library statics to
// target primitives.
func staticBuiltin(span token.Span, class, name string, args []elixir.Expr) (elixir.Expr, bool) {
	remote := func(module, fun string) (elixir.Expr, bool) {
		return &elixir.RemoteCall{Span: span, Module: module, Fun: fun, Args: args}, true
	}
	local := func(fun string) (elixir.Expr, bool) {
		return &elixir.LocalCall{Span: span, Fun: fun, Args: args}, true
	}
	switch class + "." + name {
	case "Std.string":
		return remote("Kernel", "to_string")
	case "Std.int":
		return local("trunc")
	case "Std.parseInt":
		return remote("String", "to_integer")
	case "Std.parseFloat":
		return remote("String", "to_float")
	case "Math.abs":
		return local("abs")
	case "Math.max":
		return local("max")
	case "Math.min":
		return local("min")
	case "Math.floor":
		return local("floor")
	case "Math.ceil":
		return local("ceil")
	case "Math.sqrt":
		return remote(":math", "sqrt")
	case "Math.pow":
		return remote(":math", "pow")
	case "Math.random":
		return remote(":rand", "uniform")
	case "Log.trace", "Sys.println":
		return remote("IO", "puts")
	}
	return nil, false
}
