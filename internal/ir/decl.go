package ir

import "github.com/funvibe/alchemist/internal/token"

// Module is one compilation unit as the front-end hands it over: every
// class and enum declared in the unit, in declaration order.
type Module struct {
	Name    string
	Span    token.Span
	Classes []*ClassDecl
	Enums   []*EnumDecl
}

// ClassDecl is a class with its fields and methods. NativeName, when
// non-empty, is a front-end rename directive the builders must honor
// verbatim (it overrides the derived target module name).
type ClassDecl struct {
	Name       string
	NativeName string
	Span       token.Span
	Fields     []*FieldDecl
	Methods    []*MethodDecl
}

// TargetName returns the module name the class lowers to.
func (c *ClassDecl) TargetName() string {
	if c.NativeName != "" {
		return c.NativeName
	}
	return c.Name
}

// FieldDecl is a class field. Static mutable fields have no direct target
// representation; the variable/field-access builder lowers reads of them
// to 0-arity function calls.
type FieldDecl struct {
	Name    string
	Span    token.Span
	Type    Type
	Default Expr // nil when uninitialized
	Static  bool
}

// MethodDecl is a class method. NativeName, when non-empty, overrides the
// derived target function name.
type MethodDecl struct {
	Name       string
	NativeName string
	Span       token.Span
	Params     []Param
	Ret        Type
	Body       Expr
	Static     bool
}

// TargetName returns the function name the method lowers to.
func (m *MethodDecl) TargetName() string {
	if m.NativeName != "" {
		return m.NativeName
	}
	return m.Name
}

// EnumCtor is one constructor of an enum. Index is the tag the front-end
// compares against in optimizer-flattened dispatch shapes.
type EnumCtor struct {
	Name   string
	Index  int
	Params []Param
}

// EnumDecl is a sum type. Idiomatic selects the constructor-lowering
// strategy: bare snake-cased atoms (only legal when no constructor carries
// parameters) versus tagged tuples.
type EnumDecl struct {
	Name       string
	NativeName string
	Span       token.Span
	Idiomatic  bool
	Ctors      []*EnumCtor
}

// TargetName returns the module name the enum lowers to.
func (e *EnumDecl) TargetName() string {
	if e.NativeName != "" {
		return e.NativeName
	}
	return e.Name
}

// CtorAt returns the constructor with the given tag index, or nil.
func (e *EnumDecl) CtorAt(index int) *EnumCtor {
	for _, c := range e.Ctors {
		if c.Index == index {
			return c
		}
	}
	return nil
}

// CtorNamed returns the constructor with the given name, or nil.
func (e *EnumDecl) CtorNamed(name string) *EnumCtor {
	for _, c := range e.Ctors {
		if c.Name == name {
			return c
		}
	}
	return nil
}
