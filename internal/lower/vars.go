package lower

import (
	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/utils"
)

// resolveVar translates a local reference through the full resolution
// chain (pattern registry, clause contexts, rename tables, infrastructure
// heuristics, identity).
func resolveVar(c *Context, n *ir.LocalRef) *elixir.Var {
	return &elixir.Var{Span: n.ExprSpan(), Name: c.ResolveName(n.ID, n.Name)}
}

// buildFieldAccess dispatches on the access kind. Enum constructor
// references are not field access on a value and are routed to the enum
// handler before anything else.
func buildFieldAccess(c *Context, n *ir.Field) (elixir.Expr, error) {
	if n.Kind == ir.FieldEnumCtor {
		ctor := n.Enum.CtorAt(n.CtorIndex)
		if ctor == nil {
			return nil, diagnostics.Errorf(diagnostics.ErrL004, n.ExprSpan(),
				"enum %s has no constructor at index %d", n.Enum.Name, n.CtorIndex)
		}
		return enumCtorRef(c, n.Enum, ctor, n.ExprSpan())
	}

	switch n.Kind {
	case ir.FieldStatic:
		return buildStaticAccess(c, n)
	case ir.FieldInstance:
		return buildInstanceAccess(c, n)
	case ir.FieldDynamic:
		receiver, err := c.Build(n.Receiver)
		if err != nil {
			return nil, err
		}
		// No static field info: generic keyed lookup.
		return &elixir.RemoteCall{
			Span:   n.ExprSpan(),
			Module: "Map",
			Fun:    "get",
			Args: []elixir.Expr{receiver,
				&elixir.AtomLit{Span: n.ExprSpan(), Name: utils.SnakeCase(n.Name)}},
		}, nil
	case ir.FieldClosure:
		return buildClosureAccess(c, n)
	}
	return nil, diagnostics.Errorf(diagnostics.ErrL005, n.ExprSpan(),
		"unknown field access kind %d", n.Kind)
}

func buildStaticAccess(c *Context, n *ir.Field) (elixir.Expr, error) {
	span := n.ExprSpan()

	// A static field of an atom-marker abstract is a compile-time atom.
	if abs, ok := n.ExprType().(*ir.AbstractType); ok && abs.AtomMarker {
		return &elixir.AtomLit{Span: span, Name: utils.SnakeCase(n.Name)}, nil
	}

	module := resolveModuleName(c, n.Class)
	fun := memberName(c, n.Class, n.Name)
	if _, isFun := n.FieldType.(*ir.FunType); isFun {
		// Static method referenced without a call: the call builder
		// handles invocation; a bare reference resolves below as a
		// capture-free module function reference.
		return &elixir.Capture{Span: span, Module: module, Fun: fun, Arity: funArity(n.FieldType)}, nil
	}
	// Static mutable fields have no target representation; reads lower
	// to 0-arity function calls on the owning module.
	if module == c.SelfModule {
		return &elixir.LocalCall{Span: span, Fun: fun}, nil
	}
	return &elixir.RemoteCall{Span: span, Module: module, Fun: fun}, nil
}

func buildInstanceAccess(c *Context, n *ir.Field) (elixir.Expr, error) {
	span := n.ExprSpan()
	receiver, err := c.Build(n.Receiver)
	if err != nil {
		return nil, err
	}

	// length-like accessors pick their primitive by receiver type;
	// string length and list length must not share a code path.
	if n.Name == "length" {
		recvType := n.Receiver.ExprType()
		switch {
		case ir.IsString(recvType):
			return &elixir.RemoteCall{Span: span, Module: "String", Fun: "length",
				Args: []elixir.Expr{receiver}}, nil
		case ir.IsArray(recvType):
			return &elixir.LocalCall{Span: span, Fun: "length",
				Args: []elixir.Expr{receiver}}, nil
		}
	}

	return &elixir.FieldAccess{Span: span, Receiver: receiver,
		Field: utils.SnakeCase(n.Name)}, nil
}

func buildClosureAccess(c *Context, n *ir.Field) (elixir.Expr, error) {
	span := n.ExprSpan()
	module := resolveModuleName(c, n.Class)
	fun := memberName(c, n.Class, n.Name)
	arity := n.Arity
	if n.Receiver == nil {
		if module == c.SelfModule {
			module = ""
		}
		return &elixir.Capture{Span: span, Module: module, Fun: fun, Arity: arity}, nil
	}
	// An instance-method closure captures the receiver as the explicit
	// first argument.
	receiver, err := c.Build(n.Receiver)
	if err != nil {
		return nil, err
	}
	params := make([]elixir.Pattern, arity)
	args := make([]elixir.Expr, 0, arity+1)
	args = append(args, receiver)
	for i := 0; i < arity; i++ {
		name := c.FreshTemp()
		params[i] = &elixir.PatVar{Span: span, Name: name}
		args = append(args, &elixir.Var{Span: span, Name: name})
	}
	return &elixir.Fn{Span: span, Clauses: []elixir.FnClause{{
		Params: params,
		Body:   &elixir.RemoteCall{Span: span, Module: module, Fun: fun, Args: args},
	}}}, nil
}

// buildAssign lowers x = v. The assignment target must resolve to an
// assignable pattern: a local rebinds, an instance field rebuilds the
// receiver, an indexed slot rebuilds the list. Anything else is a
// front-end contract breach.
func buildAssign(c *Context, n *ir.Binop) (elixir.Expr, error) {
	value, err := c.Build(n.Right)
	if err != nil {
		return nil, err
	}
	return assignTo(c, n, value)
}

// buildCompoundAssign lowers x <op>= y to x = x <op> y, routing the
// operator through the binary-operation builder so type-directed choices
// still apply.
func buildCompoundAssign(c *Context, n *ir.Binop) (elixir.Expr, error) {
	expanded := &ir.Binop{
		Base:  ir.NewBase(n.ExprSpan(), n.ExprType()),
		Op:    n.Assign,
		Left:  n.Left,
		Right: n.Right,
	}
	var value elixir.Expr
	var err error
	switch n.Assign {
	case ir.OpNullCoalesce:
		value, err = buildCoalesce(c, n.Left, n.Right, n.ExprSpan())
	default:
		value, err = buildBinop(c, expanded)
	}
	if err != nil {
		return nil, err
	}
	return assignTo(c, n, value)
}

func assignTo(c *Context, n *ir.Binop, value elixir.Expr) (elixir.Expr, error) {
	span := n.ExprSpan()
	switch target := ir.Unwrap(n.Left).(type) {
	case *ir.LocalRef:
		name := c.ResolveName(target.ID, target.Name)
		return &elixir.Match{Span: span,
			Pattern: &elixir.PatVar{Span: span, Name: name}, Value: value}, nil

	case *ir.Field:
		if target.Kind != ir.FieldInstance && target.Kind != ir.FieldDynamic {
			break
		}
		receiver := ir.Unwrap(target.Receiver)
		updated := func(recv elixir.Expr) elixir.Expr {
			return &elixir.RemoteCall{Span: span, Module: "Map", Fun: "put",
				Args: []elixir.Expr{recv,
					&elixir.AtomLit{Span: span, Name: utils.SnakeCase(target.Name)}, value}}
		}
		switch recv := receiver.(type) {
		case *ir.LocalRef:
			name := c.ResolveName(recv.ID, recv.Name)
			return &elixir.Match{Span: span,
				Pattern: &elixir.PatVar{Span: span, Name: name},
				Value:   updated(&elixir.Var{Span: span, Name: name})}, nil
		case *ir.ThisRef:
			if c.Receiver == "" {
				break
			}
			return &elixir.Match{Span: span,
				Pattern: &elixir.PatVar{Span: span, Name: c.Receiver},
				Value:   updated(&elixir.Var{Span: span, Name: c.Receiver})}, nil
		}

	case *ir.ArrayAccess:
		if ref, ok := ir.Unwrap(target.Target).(*ir.LocalRef); ok {
			name := c.ResolveName(ref.ID, ref.Name)
			index, err := c.Build(target.Index)
			if err != nil {
				return nil, err
			}
			return &elixir.Match{Span: span,
				Pattern: &elixir.PatVar{Span: span, Name: name},
				Value: &elixir.RemoteCall{Span: span, Module: "List", Fun: "replace_at",
					Args: []elixir.Expr{&elixir.Var{Span: span, Name: name}, index, value}}}, nil
		}
	}
	return nil, diagnostics.Errorf(diagnostics.ErrL002, span,
		"assignment target %T cannot be resolved to an assignable pattern", n.Left)
}

// memberName resolves a method/field name through rename directives.
func memberName(c *Context, class, name string) string {
	if c.Unit != nil {
		for _, cls := range c.Unit.Classes {
			if cls.Name != class {
				continue
			}
			for _, m := range cls.Methods {
				if m.Name == name && m.NativeName != "" {
					return utils.SnakeCase(m.NativeName)
				}
			}
		}
	}
	if renamed := c.Config.RenameFor(class + "." + name); renamed != "" {
		return utils.SnakeCase(renamed)
	}
	return utils.SnakeCase(name)
}

func funArity(t ir.Type) int {
	if ft, ok := t.(*ir.FunType); ok {
		return len(ft.Params)
	}
	return 0
}
