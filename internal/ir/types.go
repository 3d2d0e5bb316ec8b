// Package ir defines the typed intermediate representation the external
// front-end hands to the lowering pipeline, together with its JSON wire
// decoding. The front-end has already type-checked everything: every
// expression carries a resolved static type where types affect lowering
// (string versus numeric operators, atom-marker abstracts, optional
// parameter arity), and declarations carry the metadata the builders must
// honor (enum idiom flags, native-name overrides).
package ir

import (
	"strconv"
	"strings"
)

// Type is the static type the front-end resolved for an expression.
type Type interface {
	typeNode()
	String() string
}

// InstType is a class instance type, e.g. String or Array<Int>.
type InstType struct {
	Name   string
	Params []Type
}

func (t *InstType) typeNode() {}
func (t *InstType) String() string {
	if len(t.Params) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return t.Name + "<" + strings.Join(parts, ", ") + ">"
}

// EnumType is a sum type. Decl is resolved by the decoder so builders can
// reach constructor metadata without a side table.
type EnumType struct {
	Name string
	Decl *EnumDecl
}

func (t *EnumType) typeNode()      {}
func (t *EnumType) String() string { return t.Name }

// AnonField is one field of an anonymous structure type.
type AnonField struct {
	Name string
	Type Type
}

// AnonType is an anonymous structure type.
type AnonType struct {
	Fields []AnonField
}

func (t *AnonType) typeNode()      {}
func (t *AnonType) String() string { return "{...}" }

// FunType is a function type with fixed arity.
type FunType struct {
	Params []Type
	Ret    Type
}

func (t *FunType) typeNode()      {}
func (t *FunType) String() string { return "fun/" + strconv.Itoa(len(t.Params)) }

// AbstractType is a compile-time wrapper over an underlying type. The
// front-end uses abstracts for atom markers: an abstract flagged AtomMarker
// exists only at compile time and its static fields lower to atoms.
type AbstractType struct {
	Name       string
	Underlying Type
	AtomMarker bool
}

func (t *AbstractType) typeNode()      {}
func (t *AbstractType) String() string { return t.Name }

// DynamicType is the front-end's escape hatch: no static information.
type DynamicType struct{}

func (t *DynamicType) typeNode()      {}
func (t *DynamicType) String() string { return "Dynamic" }

// Core type names the builders special-case.
const (
	StringTypeName = "String"
	IntTypeName    = "Int"
	FloatTypeName  = "Float"
	BoolTypeName   = "Bool"
	ArrayTypeName  = "Array"
	MapTypeName    = "Map"
)

// IsString reports whether t is the string type, looking through abstracts.
func IsString(t Type) bool {
	return isNamedInst(t, StringTypeName)
}

// IsArray reports whether t is the array/list type, looking through
// abstracts.
func IsArray(t Type) bool {
	return isNamedInst(t, ArrayTypeName)
}

// IsNumeric reports whether t is Int or Float.
func IsNumeric(t Type) bool {
	return isNamedInst(t, IntTypeName) || isNamedInst(t, FloatTypeName)
}

func isNamedInst(t Type, name string) bool {
	switch tt := t.(type) {
	case *InstType:
		return tt.Name == name
	case *AbstractType:
		if tt.Name == name {
			return true
		}
		if tt.Underlying != nil {
			return isNamedInst(tt.Underlying, name)
		}
	}
	return false
}

// EnumOf returns the enum declaration behind t, or nil if t is not an enum
// type (or the decoder could not resolve it).
func EnumOf(t Type) *EnumDecl {
	if et, ok := t.(*EnumType); ok {
		return et.Decl
	}
	return nil
}
