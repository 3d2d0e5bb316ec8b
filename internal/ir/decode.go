package ir

import (
	"encoding/json"

	"github.com/funvibe/alchemist/internal/diagnostics"
	"github.com/funvibe/alchemist/internal/token"
)

// DecodeModule parses the front-end's JSON serialization of a compilation
// unit. Decoding happens in two phases: enum declarations first, so that
// enum-typed expressions and constructor references can resolve their
// *EnumDecl eagerly, then classes and method bodies.
func DecodeModule(data []byte) (*Module, *diagnostics.DiagnosticError) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, diagnostics.Errorf(diagnostics.ErrD001, token.Span{}, "malformed IR document: %v", err)
	}
	d := &decoder{enums: make(map[string]*EnumDecl)}
	mod, err := d.module(raw)
	if err != nil {
		return nil, err
	}
	return mod, nil
}

type decoder struct {
	enums map[string]*EnumDecl
}

type decodeError = diagnostics.DiagnosticError

func (d *decoder) fail(span token.Span, format string, args ...any) *decodeError {
	return diagnostics.Errorf(diagnostics.ErrD001, span, format, args...)
}

func (d *decoder) module(raw map[string]any) (*Module, *decodeError) {
	name, _ := raw["name"].(string)
	if name == "" {
		return nil, diagnostics.NewError(diagnostics.ErrD003, token.Span{}, "module missing name")
	}
	mod := &Module{Name: name, Span: d.span(raw)}

	// Phase 1: enum declarations.
	for _, rawEnum := range asList(raw["enums"]) {
		em, ok := rawEnum.(map[string]any)
		if !ok {
			return nil, d.fail(mod.Span, "invalid enum entry %T", rawEnum)
		}
		decl, err := d.enumDecl(em)
		if err != nil {
			return nil, err
		}
		mod.Enums = append(mod.Enums, decl)
		d.enums[decl.Name] = decl
	}

	// Phase 2: classes, now that enum references resolve.
	for _, rawClass := range asList(raw["classes"]) {
		cm, ok := rawClass.(map[string]any)
		if !ok {
			return nil, d.fail(mod.Span, "invalid class entry %T", rawClass)
		}
		decl, err := d.classDecl(cm)
		if err != nil {
			return nil, err
		}
		mod.Classes = append(mod.Classes, decl)
	}
	return mod, nil
}

func (d *decoder) enumDecl(raw map[string]any) (*EnumDecl, *decodeError) {
	name, _ := raw["name"].(string)
	if name == "" {
		return nil, diagnostics.NewError(diagnostics.ErrD003, d.span(raw), "enum missing name")
	}
	decl := &EnumDecl{
		Name:       name,
		NativeName: str(raw["nativeName"]),
		Span:       d.span(raw),
		Idiomatic:  boolean(raw["idiomatic"]),
	}
	for i, rawCtor := range asList(raw["ctors"]) {
		cm, ok := rawCtor.(map[string]any)
		if !ok {
			return nil, d.fail(decl.Span, "enum %s: invalid ctor entry %T", name, rawCtor)
		}
		ctor := &EnumCtor{Name: str(cm["name"]), Index: i}
		if idx, ok := cm["index"].(float64); ok {
			ctor.Index = int(idx)
		}
		params, err := d.params(cm["params"])
		if err != nil {
			return nil, err
		}
		ctor.Params = params
		decl.Ctors = append(decl.Ctors, ctor)
	}
	return decl, nil
}

func (d *decoder) classDecl(raw map[string]any) (*ClassDecl, *decodeError) {
	name, _ := raw["name"].(string)
	if name == "" {
		return nil, diagnostics.NewError(diagnostics.ErrD003, d.span(raw), "class missing name")
	}
	decl := &ClassDecl{
		Name:       name,
		NativeName: str(raw["nativeName"]),
		Span:       d.span(raw),
	}
	for _, rawField := range asList(raw["fields"]) {
		fm, ok := rawField.(map[string]any)
		if !ok {
			return nil, d.fail(decl.Span, "class %s: invalid field entry %T", name, rawField)
		}
		field := &FieldDecl{
			Name:   str(fm["name"]),
			Span:   d.span(fm),
			Static: boolean(fm["static"]),
		}
		typ, err := d.typ(fm["type"])
		if err != nil {
			return nil, err
		}
		field.Type = typ
		if fm["default"] != nil {
			def, err := d.expr(fm["default"])
			if err != nil {
				return nil, err
			}
			field.Default = def
		}
		decl.Fields = append(decl.Fields, field)
	}
	for _, rawMethod := range asList(raw["methods"]) {
		mm, ok := rawMethod.(map[string]any)
		if !ok {
			return nil, d.fail(decl.Span, "class %s: invalid method entry %T", name, rawMethod)
		}
		method, err := d.methodDecl(mm)
		if err != nil {
			return nil, err
		}
		decl.Methods = append(decl.Methods, method)
	}
	return decl, nil
}

func (d *decoder) methodDecl(raw map[string]any) (*MethodDecl, *decodeError) {
	method := &MethodDecl{
		Name:       str(raw["name"]),
		NativeName: str(raw["nativeName"]),
		Span:       d.span(raw),
		Static:     boolean(raw["static"]),
	}
	if method.Name == "" {
		return nil, diagnostics.NewError(diagnostics.ErrD003, method.Span, "method missing name")
	}
	params, err := d.params(raw["params"])
	if err != nil {
		return nil, err
	}
	method.Params = params
	ret, err := d.typ(raw["ret"])
	if err != nil {
		return nil, err
	}
	method.Ret = ret
	if raw["body"] != nil {
		body, err := d.expr(raw["body"])
		if err != nil {
			return nil, err
		}
		method.Body = body
	}
	return method, nil
}

func (d *decoder) params(raw any) ([]Param, *decodeError) {
	var out []Param
	for _, rawParam := range asList(raw) {
		pm, ok := rawParam.(map[string]any)
		if !ok {
			return nil, d.fail(token.Span{}, "invalid param entry %T", rawParam)
		}
		p := Param{
			ID:       integer(pm["id"]),
			Name:     str(pm["name"]),
			Optional: boolean(pm["optional"]),
		}
		typ, err := d.typ(pm["type"])
		if err != nil {
			return nil, err
		}
		p.Type = typ
		if pm["default"] != nil {
			def, err := d.expr(pm["default"])
			if err != nil {
				return nil, err
			}
			p.Default = def
		}
		out = append(out, p)
	}
	return out, nil
}

func (d *decoder) typ(raw any) (Type, *decodeError) {
	if raw == nil {
		return nil, nil
	}
	tm, ok := raw.(map[string]any)
	if !ok {
		return nil, d.fail(token.Span{}, "invalid type %T", raw)
	}
	switch kind := str(tm["kind"]); kind {
	case "inst":
		t := &InstType{Name: str(tm["name"])}
		for _, rawParam := range asList(tm["params"]) {
			p, err := d.typ(rawParam)
			if err != nil {
				return nil, err
			}
			t.Params = append(t.Params, p)
		}
		return t, nil
	case "enum":
		name := str(tm["name"])
		return &EnumType{Name: name, Decl: d.enums[name]}, nil
	case "anon":
		t := &AnonType{}
		for _, rawField := range asList(tm["fields"]) {
			fm, ok := rawField.(map[string]any)
			if !ok {
				return nil, d.fail(token.Span{}, "invalid anon field %T", rawField)
			}
			ft, err := d.typ(fm["type"])
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, AnonField{Name: str(fm["name"]), Type: ft})
		}
		return t, nil
	case "fun":
		t := &FunType{}
		for _, rawParam := range asList(tm["params"]) {
			p, err := d.typ(rawParam)
			if err != nil {
				return nil, err
			}
			t.Params = append(t.Params, p)
		}
		ret, err := d.typ(tm["ret"])
		if err != nil {
			return nil, err
		}
		t.Ret = ret
		return t, nil
	case "abstract":
		under, err := d.typ(tm["underlying"])
		if err != nil {
			return nil, err
		}
		return &AbstractType{
			Name:       str(tm["name"]),
			Underlying: under,
			AtomMarker: boolean(tm["atomMarker"]),
		}, nil
	case "dynamic":
		return &DynamicType{}, nil
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrD002, token.Span{}, "unknown type kind %q", kind)
	}
}

func (d *decoder) exprList(raw any) ([]Expr, *decodeError) {
	var out []Expr
	for _, entry := range asList(raw) {
		e, err := d.expr(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) expr(raw any) (Expr, *decodeError) {
	em, ok := raw.(map[string]any)
	if !ok {
		return nil, d.fail(token.Span{}, "invalid expression %T", raw)
	}
	span := d.span(em)
	typ, err := d.typ(em["type"])
	if err != nil {
		return nil, err
	}
	base := NewBase(span, typ)

	switch kind := str(em["kind"]); kind {
	case "int":
		return &IntConst{Base: base, Value: int64(number(em["value"]))}, nil
	case "float":
		return &FloatConst{Base: base, Value: number(em["value"])}, nil
	case "string":
		return &StringConst{Base: base, Value: str(em["value"])}, nil
	case "bool":
		return &BoolConst{Base: base, Value: boolean(em["value"])}, nil
	case "null":
		return &NullConst{Base: base}, nil
	case "this":
		return &ThisRef{Base: base}, nil
	case "local":
		return &LocalRef{Base: base, ID: integer(em["id"]), Name: str(em["name"])}, nil
	case "var":
		decl := &VarDecl{
			Base:        base,
			ID:          integer(em["id"]),
			Name:        str(em["name"]),
			Synthesized: boolean(em["synthesized"]),
		}
		if em["init"] != nil {
			init, err := d.expr(em["init"])
			if err != nil {
				return nil, err
			}
			decl.Init = init
		}
		return decl, nil
	case "binop":
		op, ok := binopKinds[str(em["op"])]
		if !ok {
			return nil, diagnostics.Errorf(diagnostics.ErrD002, span, "unknown binary operator %q", str(em["op"]))
		}
		left, err := d.expr(em["left"])
		if err != nil {
			return nil, err
		}
		right, err := d.expr(em["right"])
		if err != nil {
			return nil, err
		}
		node := &Binop{Base: base, Op: op, Left: left, Right: right}
		if op == OpAssignOp {
			inner, ok := binopKinds[str(em["assign"])]
			if !ok {
				return nil, diagnostics.Errorf(diagnostics.ErrD002, span, "unknown compound operator %q", str(em["assign"]))
			}
			node.Assign = inner
		}
		return node, nil
	case "unop":
		op, ok := unopKinds[str(em["op"])]
		if !ok {
			return nil, diagnostics.Errorf(diagnostics.ErrD002, span, "unknown unary operator %q", str(em["op"]))
		}
		operand, err := d.expr(em["operand"])
		if err != nil {
			return nil, err
		}
		return &Unop{Base: base, Op: op, Postfix: boolean(em["postfix"]), Operand: operand}, nil
	case "field":
		return d.fieldExpr(em, base)
	case "arrayAccess":
		target, err := d.expr(em["target"])
		if err != nil {
			return nil, err
		}
		index, err := d.expr(em["index"])
		if err != nil {
			return nil, err
		}
		return &ArrayAccess{Base: base, Target: target, Index: index}, nil
	case "call":
		callee, err := d.expr(em["callee"])
		if err != nil {
			return nil, err
		}
		args, err := d.exprList(em["args"])
		if err != nil {
			return nil, err
		}
		return &Call{Base: base, Callee: callee, Args: args}, nil
	case "new":
		args, err := d.exprList(em["args"])
		if err != nil {
			return nil, err
		}
		return &New{Base: base, Class: str(em["class"]), Args: args}, nil
	case "if":
		cond, err := d.expr(em["cond"])
		if err != nil {
			return nil, err
		}
		then, err := d.expr(em["then"])
		if err != nil {
			return nil, err
		}
		node := &If{Base: base, Cond: cond, Then: then}
		if em["else"] != nil {
			els, err := d.expr(em["else"])
			if err != nil {
				return nil, err
			}
			node.Else = els
		}
		return node, nil
	case "while":
		cond, err := d.expr(em["cond"])
		if err != nil {
			return nil, err
		}
		body, err := d.expr(em["body"])
		if err != nil {
			return nil, err
		}
		return &While{Base: base, Cond: cond, Body: body, DoWhile: boolean(em["doWhile"])}, nil
	case "for":
		iter, err := d.expr(em["iter"])
		if err != nil {
			return nil, err
		}
		body, err := d.expr(em["body"])
		if err != nil {
			return nil, err
		}
		return &For{Base: base, VarID: integer(em["varId"]), VarName: str(em["varName"]), Iter: iter, Body: body}, nil
	case "switch":
		subject, err := d.expr(em["subject"])
		if err != nil {
			return nil, err
		}
		node := &Switch{Base: base, Subject: subject}
		for _, rawCase := range asList(em["cases"]) {
			cm, ok := rawCase.(map[string]any)
			if !ok {
				return nil, d.fail(span, "invalid switch case %T", rawCase)
			}
			values, err := d.exprList(cm["values"])
			if err != nil {
				return nil, err
			}
			body, err := d.expr(cm["body"])
			if err != nil {
				return nil, err
			}
			node.Cases = append(node.Cases, SwitchCase{Values: values, Body: body})
		}
		if em["default"] != nil {
			def, err := d.expr(em["default"])
			if err != nil {
				return nil, err
			}
			node.Default = def
		}
		return node, nil
	case "try":
		body, err := d.expr(em["body"])
		if err != nil {
			return nil, err
		}
		node := &Try{Base: base, Body: body}
		for _, rawCatch := range asList(em["catches"]) {
			cm, ok := rawCatch.(map[string]any)
			if !ok {
				return nil, d.fail(span, "invalid catch clause %T", rawCatch)
			}
			catchType, err := d.typ(cm["type"])
			if err != nil {
				return nil, err
			}
			catchBody, err := d.expr(cm["body"])
			if err != nil {
				return nil, err
			}
			node.Catches = append(node.Catches, Catch{
				VarID:   integer(cm["varId"]),
				VarName: str(cm["varName"]),
				Type:    catchType,
				Body:    catchBody,
			})
		}
		return node, nil
	case "throw":
		value, err := d.expr(em["value"])
		if err != nil {
			return nil, err
		}
		return &Throw{Base: base, Value: value}, nil
	case "return":
		node := &Return{Base: base}
		if em["value"] != nil {
			value, err := d.expr(em["value"])
			if err != nil {
				return nil, err
			}
			node.Value = value
		}
		return node, nil
	case "break":
		return &Break{Base: base}, nil
	case "continue":
		return &Continue{Base: base}, nil
	case "block":
		exprs, err := d.exprList(em["exprs"])
		if err != nil {
			return nil, err
		}
		return &Block{Base: base, Exprs: exprs}, nil
	case "function":
		params, err := d.params(em["params"])
		if err != nil {
			return nil, err
		}
		ret, err := d.typ(em["ret"])
		if err != nil {
			return nil, err
		}
		body, err := d.expr(em["body"])
		if err != nil {
			return nil, err
		}
		return &Function{Base: base, Params: params, Ret: ret, Body: body}, nil
	case "arrayDecl":
		elements, err := d.exprList(em["elements"])
		if err != nil {
			return nil, err
		}
		return &ArrayDecl{Base: base, Elements: elements}, nil
	case "objectDecl":
		node := &ObjectDecl{Base: base}
		for _, rawField := range asList(em["fields"]) {
			fm, ok := rawField.(map[string]any)
			if !ok {
				return nil, d.fail(span, "invalid object field %T", rawField)
			}
			value, err := d.expr(fm["value"])
			if err != nil {
				return nil, err
			}
			node.Fields = append(node.Fields, ObjectField{Name: str(fm["name"]), Value: value})
		}
		return node, nil
	case "enumParameter":
		value, err := d.expr(em["value"])
		if err != nil {
			return nil, err
		}
		enum := d.enums[str(em["enum"])]
		if enum == nil {
			return nil, diagnostics.Errorf(diagnostics.ErrD003, span, "enumParameter references unknown enum %q", str(em["enum"]))
		}
		return &EnumParameter{
			Base:       base,
			Value:      value,
			Enum:       enum,
			CtorIndex:  integer(em["ctorIndex"]),
			ParamIndex: integer(em["paramIndex"]),
		}, nil
	case "enumIndex":
		value, err := d.expr(em["value"])
		if err != nil {
			return nil, err
		}
		return &EnumIndex{Base: base, Value: value}, nil
	case "typeExpr":
		return &TypeExpr{Base: base, Name: str(em["name"])}, nil
	case "meta":
		inner, err := d.expr(em["inner"])
		if err != nil {
			return nil, err
		}
		return &Meta{Base: base, Name: str(em["name"]), Inner: inner}, nil
	case "cast":
		inner, err := d.expr(em["inner"])
		if err != nil {
			return nil, err
		}
		return &Cast{Base: base, Inner: inner}, nil
	case "paren":
		inner, err := d.expr(em["inner"])
		if err != nil {
			return nil, err
		}
		return &Paren{Base: base, Inner: inner}, nil
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrD002, span, "unknown node kind %q", kind)
	}
}

func (d *decoder) fieldExpr(em map[string]any, base Base) (Expr, *decodeError) {
	span := base.Span
	node := &Field{
		Base:  base,
		Class: str(em["class"]),
		Name:  str(em["name"]),
		Arity: integer(em["arity"]),
	}
	switch access := str(em["access"]); access {
	case "instance":
		node.Kind = FieldInstance
	case "static":
		node.Kind = FieldStatic
	case "dynamic":
		node.Kind = FieldDynamic
	case "closure":
		node.Kind = FieldClosure
	case "enumCtor":
		node.Kind = FieldEnumCtor
		enum := d.enums[str(em["enum"])]
		if enum == nil {
			return nil, diagnostics.Errorf(diagnostics.ErrD003, span, "field references unknown enum %q", str(em["enum"]))
		}
		node.Enum = enum
		node.CtorIndex = integer(em["ctorIndex"])
	default:
		return nil, diagnostics.Errorf(diagnostics.ErrD002, span, "unknown field access kind %q", access)
	}
	if node.Kind != FieldStatic && node.Kind != FieldEnumCtor && em["receiver"] != nil {
		recv, err := d.expr(em["receiver"])
		if err != nil {
			return nil, err
		}
		node.Receiver = recv
	}
	if em["fieldType"] != nil {
		ft, err := d.typ(em["fieldType"])
		if err != nil {
			return nil, err
		}
		node.FieldType = ft
	}
	return node, nil
}

func (d *decoder) span(raw map[string]any) token.Span {
	pm, ok := raw["pos"].(map[string]any)
	if !ok {
		return token.Span{}
	}
	return token.Span{
		File:      str(pm["file"]),
		Line:      integer(pm["line"]),
		Column:    integer(pm["col"]),
		EndLine:   integer(pm["endLine"]),
		EndColumn: integer(pm["endCol"]),
	}
}

var binopKinds = map[string]BinopKind{
	"add": OpAdd, "sub": OpSub, "mul": OpMul, "div": OpDiv, "mod": OpMod,
	"eq": OpEq, "neq": OpNotEq, "lt": OpLt, "lte": OpLte, "gt": OpGt, "gte": OpGte,
	"and": OpBoolAnd, "or": OpBoolOr,
	"band": OpBitAnd, "bor": OpBitOr, "bxor": OpBitXor,
	"shl": OpShl, "shr": OpShr, "ushr": OpUShr,
	"coalesce": OpNullCoalesce, "interval": OpInterval,
	"assign": OpAssign, "assignOp": OpAssignOp,
}

var unopKinds = map[string]UnopKind{
	"neg": OpNeg, "not": OpNot, "bnot": OpBitNot,
	"incr": OpIncrement, "decr": OpDecrement,
}

func asList(raw any) []any {
	list, _ := raw.([]any)
	return list
}

func str(raw any) string {
	s, _ := raw.(string)
	return s
}

func boolean(raw any) bool {
	b, _ := raw.(bool)
	return b
}

func number(raw any) float64 {
	switch n := raw.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func integer(raw any) int {
	return int(number(raw))
}
