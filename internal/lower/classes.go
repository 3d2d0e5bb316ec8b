package lower

import (
	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/utils"
)

// BuildUnit lowers every class of the unit to a module definition,
// in declaration order. Enums produce no modules of their own: their
// constructors lower inline to atoms or tagged tuples wherever they are
// referenced.
func (b *Builder) BuildUnit() ([]*elixir.ModuleDef, error) {
	modules := make([]*elixir.ModuleDef, 0, len(b.c.Unit.Classes))
	for _, cls := range b.c.Unit.Classes {
		mod, err := b.BuildClass(cls)
		if err != nil {
			return nil, err
		}
		modules = append(modules, mod)
	}
	return modules, nil
}

// BuildClass assembles one class: defstruct from the instance fields,
// module attributes and accessor functions for statics, one function
// definition per method.
func (b *Builder) BuildClass(cls *ir.ClassDecl) (*elixir.ModuleDef, error) {
	c := b.c
	c.SelfModule = resolveModuleName(c, cls.TargetName())

	var body []elixir.Expr

	structDef, err := b.buildStruct(cls)
	if err != nil {
		return nil, err
	}
	if structDef != nil {
		body = append(body, structDef)
	}

	for _, field := range cls.Fields {
		if !field.Static {
			continue
		}
		defs, err := b.buildStaticField(field)
		if err != nil {
			return nil, err
		}
		body = append(body, defs...)
	}

	for _, method := range cls.Methods {
		def, err := b.buildMethod(cls, method)
		if err != nil {
			return nil, err
		}
		body = append(body, def)
	}

	return &elixir.ModuleDef{
		Span: cls.Span,
		Name: c.SelfModule,
		Body: body,
	}, nil
}

func (b *Builder) buildStruct(cls *ir.ClassDecl) (*elixir.StructDef, error) {
	var fields []elixir.StructField
	for _, f := range cls.Fields {
		if f.Static {
			continue
		}
		sf := elixir.StructField{Name: utils.SnakeCase(f.Name)}
		if f.Default != nil {
			value, err := b.c.Build(f.Default)
			if err != nil {
				return nil, err
			}
			sf.Default = value
		}
		fields = append(fields, sf)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &elixir.StructDef{Span: cls.Span, Fields: fields}, nil
}

// buildStaticField lowers one static field. Reads of statics compile to
// 0-arity calls, so every static becomes an accessor function; constant
// initializers additionally become module attributes the accessor
// returns, keeping the value at the top of the module where a reader
// expects it.
func (b *Builder) buildStaticField(f *ir.FieldDecl) ([]elixir.Expr, error) {
	name := utils.SnakeCase(f.Name)

	if f.Default != nil && isConstExpr(f.Default) {
		value, err := b.c.Build(f.Default)
		if err != nil {
			return nil, err
		}
		return []elixir.Expr{
			&elixir.ModuleAttr{Span: f.Span, Name: name, Value: value},
			&elixir.FunctionDef{Span: f.Span, Name: name,
				Body: &elixir.RawCode{Span: f.Span, Code: "@" + name}},
		}, nil
	}

	var value elixir.Expr = &elixir.NilLit{Span: f.Span}
	if f.Default != nil {
		compiled, err := b.c.Build(f.Default)
		if err != nil {
			return nil, err
		}
		value = compiled
	}
	return []elixir.Expr{
		&elixir.FunctionDef{Span: f.Span, Name: name, Body: value},
	}, nil
}

func isConstExpr(e ir.Expr) bool {
	switch ir.Unwrap(e).(type) {
	case *ir.IntConst, *ir.FloatConst, *ir.StringConst, *ir.BoolConst, *ir.NullConst:
		return true
	}
	return false
}

// buildMethod lowers one method to a function definition. Instance
// methods gain the receiver as an explicit leading parameter; optional
// parameters keep their declared position and get a defaulting prologue
// ahead of the body, matching the nil padding call sites emit.
func (b *Builder) buildMethod(cls *ir.ClassDecl, m *ir.MethodDecl) (*elixir.FunctionDef, error) {
	c := b.c
	span := m.Span

	savedReceiver := c.Receiver
	defer func() { c.Receiver = savedReceiver }()
	c.Receiver = ""

	body, params, err := buildMethodBody(c, m)
	if err != nil {
		return nil, err
	}

	return &elixir.FunctionDef{
		Span:   span,
		Name:   utils.SnakeCase(m.TargetName()),
		Params: params,
		Body:   body,
	}, nil
}

func buildMethodBody(c *Context, m *ir.MethodDecl) (elixir.Expr, []elixir.Pattern, error) {
	var params []elixir.Pattern

	body, err := c.WithScope(func() (elixir.Expr, error) {
		if !m.Static {
			c.Receiver = utils.SnakeCase(config.ReceiverName)
			params = append(params, &elixir.PatVar{Span: m.Span, Name: c.Receiver})
		}

		var prologue []elixir.Expr
		for _, p := range m.Params {
			name := c.BindLocal(p.ID, p.Name)
			params = append(params, &elixir.PatVar{Span: m.Span, Name: name})
			if p.Optional && p.Default != nil {
				defaulting, err := optionalPrologue(c, name, p, m)
				if err != nil {
					return nil, err
				}
				prologue = append(prologue, defaulting)
			}
		}

		compiled, err := c.Build(m.Body)
		if err != nil {
			return nil, err
		}
		if len(prologue) == 0 {
			return compiled, nil
		}
		return &elixir.Block{Span: m.Span,
			Exprs: append(prologue, compiled)}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return body, params, nil
}

// optionalPrologue emits name = if name == nil do default else name end
// for an omitted optional parameter.
func optionalPrologue(c *Context, name string, p ir.Param, m *ir.MethodDecl) (elixir.Expr, error) {
	span := m.Span
	defaultValue, err := c.Build(p.Default)
	if err != nil {
		return nil, err
	}
	ref := &elixir.Var{Span: span, Name: name}
	return &elixir.Match{Span: span,
		Pattern: &elixir.PatVar{Span: span, Name: name},
		Value: &elixir.If{Span: span,
			Cond: &elixir.Binop{Span: span, Op: "==", Left: ref,
				Right: &elixir.NilLit{Span: span}},
			Then: defaultValue,
			Else: ref,
		}}, nil
}
