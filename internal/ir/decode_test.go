package ir_test

import (
	"testing"

	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/ir"
)

func TestDecodeModule(t *testing.T) {
	doc := `{
		"name": "sample",
		"enums": [{
			"name": "Color",
			"idiomatic": true,
			"ctors": [
				{"name": "Red"},
				{"name": "Blue", "index": 3}
			]
		}],
		"classes": [{
			"name": "Painter",
			"fields": [
				{"name": "strokes", "type": {"kind": "inst", "name": "Int"}, "static": true, "default": {"kind": "int", "value": 0}}
			],
			"methods": [{
				"name": "paint",
				"params": [{"id": 1, "name": "c", "type": {"kind": "enum", "name": "Color"}}],
				"body": {
					"kind": "block",
					"pos": {"file": "painter.hx", "line": 4, "col": 2},
					"exprs": [
						{"kind": "local", "id": 1, "name": "c"}
					]
				}
			}]
		}]
	}`

	mod, err := ir.DecodeModule([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if mod.Name != "sample" {
		t.Errorf("module name = %s", mod.Name)
	}

	if len(mod.Enums) != 1 {
		t.Fatalf("enums = %d, want 1", len(mod.Enums))
	}
	enum := mod.Enums[0]
	if !enum.Idiomatic {
		t.Error("idiomatic flag lost")
	}
	if enum.Ctors[0].Index != 0 {
		t.Errorf("implicit ctor index = %d, want position 0", enum.Ctors[0].Index)
	}
	if enum.Ctors[1].Index != 3 {
		t.Errorf("explicit ctor index = %d, want 3", enum.Ctors[1].Index)
	}

	cls := mod.Classes[0]
	if !cls.Fields[0].Static {
		t.Error("static flag lost")
	}
	if _, ok := cls.Fields[0].Default.(*ir.IntConst); !ok {
		t.Errorf("field default = %T, want int literal", cls.Fields[0].Default)
	}

	method := cls.Methods[0]
	// The enum-typed parameter must resolve its declaration eagerly.
	et, ok := method.Params[0].Type.(*ir.EnumType)
	if !ok || et.Decl != enum {
		t.Fatalf("param type = %v, want the decoded enum declaration resolved", method.Params[0].Type)
	}

	body, ok := method.Body.(*ir.Block)
	if !ok || len(body.Exprs) != 1 {
		t.Fatalf("body = %T", method.Body)
	}
	if body.ExprSpan().File != "painter.hx" || body.ExprSpan().Line != 4 {
		t.Errorf("body span = %v", body.ExprSpan())
	}
	if ref, ok := body.Exprs[0].(*ir.LocalRef); !ok || ref.ID != 1 || ref.Name != "c" {
		t.Errorf("body statement = %v", body.Exprs[0])
	}
}

func TestDecodeOperators(t *testing.T) {
	doc := `{
		"name": "sample",
		"classes": [{
			"name": "Ops",
			"methods": [{
				"name": "run",
				"body": {
					"kind": "binop", "op": "assignOp", "assign": "add",
					"left": {"kind": "local", "id": 1, "name": "x"},
					"right": {"kind": "int", "value": 2}
				}
			}]
		}]
	}`
	mod, err := ir.DecodeModule([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	bin, ok := mod.Classes[0].Methods[0].Body.(*ir.Binop)
	if !ok {
		t.Fatalf("body = %T", mod.Classes[0].Methods[0].Body)
	}
	if bin.Op != ir.OpAssignOp || bin.Assign != ir.OpAdd {
		t.Errorf("op = %v assign = %v, want compound add", bin.Op, bin.Assign)
	}
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		code  diagnostics.ErrorCode
	}{
		{"malformed document", `{`, diagnostics.ErrD001},
		{"missing module name", `{}`, diagnostics.ErrD003},
		{"unknown node kind", `{
			"name": "m",
			"classes": [{"name": "C", "methods": [{"name": "f", "body": {"kind": "warp"}}]}]
		}`, diagnostics.ErrD002},
		{"unknown operator", `{
			"name": "m",
			"classes": [{"name": "C", "methods": [{"name": "f", "body": {
				"kind": "binop", "op": "spaceship",
				"left": {"kind": "int", "value": 1},
				"right": {"kind": "int", "value": 2}
			}}]}]
		}`, diagnostics.ErrD002},
		{"unknown enum reference", `{
			"name": "m",
			"classes": [{"name": "C", "methods": [{"name": "f", "body": {
				"kind": "enumParameter", "enum": "Ghost", "ctorIndex": 0, "paramIndex": 0,
				"value": {"kind": "local", "id": 1, "name": "v"}
			}}]}]
		}`, diagnostics.ErrD003},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ir.DecodeModule([]byte(tc.input))
			if err == nil {
				t.Fatal("expected a decode error")
			}
			if err.Code != tc.code {
				t.Errorf("code = %s, want %s", err.Code, tc.code)
			}
		})
	}
}

func TestUnwrapStripsWrappers(t *testing.T) {
	inner := &ir.IntConst{Value: 7}
	wrapped := &ir.Meta{Name: "pos", Inner: &ir.Cast{Inner: &ir.Paren{Inner: inner}}}
	if got := ir.Unwrap(wrapped); got != inner {
		t.Fatalf("Unwrap = %T, want the innermost literal", got)
	}
}

func TestTypePredicates(t *testing.T) {
	str := &ir.InstType{Name: ir.StringTypeName}
	if !ir.IsString(str) || ir.IsArray(str) {
		t.Error("String predicate mismatch")
	}
	wrapped := &ir.AbstractType{Name: "Id", Underlying: str}
	if !ir.IsString(wrapped) {
		t.Error("abstract over String must still be a string")
	}
	if !ir.IsNumeric(&ir.InstType{Name: ir.FloatTypeName}) {
		t.Error("Float must be numeric")
	}
	if ir.EnumOf(str) != nil {
		t.Error("EnumOf on a non-enum type")
	}
}
