// Package prettyprinter renders the target node algebra as readable
// source text. It backs the CLI dump output, the cache fingerprint of a
// lowered unit, and test assertions; the shipping renderer lives in the
// build toolchain downstream and owns final formatting.
package prettyprinter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/alchemist/internal/elixir"
)

// Print renders a single node.
func Print(n elixir.Node) string {
	var p printer
	p.node(n)
	return p.sb.String()
}

// PrintModules renders a whole lowered unit, modules separated by a
// blank line.
func PrintModules(modules []*elixir.ModuleDef) string {
	var p printer
	for i, m := range modules {
		if i > 0 {
			p.sb.WriteString("\n")
		}
		p.node(m)
		p.nl()
	}
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) w(s string) { p.sb.WriteString(s) }
func (p *printer) nl()        { p.sb.WriteString("\n") }
func (p *printer) pad()       { p.sb.WriteString(strings.Repeat("  ", p.indent)) }
func (p *printer) line(s string) {
	p.pad()
	p.w(s)
	p.nl()
}

func (p *printer) node(n elixir.Node) {
	switch v := n.(type) {
	case elixir.Expr:
		p.expr(v)
	case elixir.Pattern:
		p.w(p.pattern(v))
	default:
		p.w(fmt.Sprintf("<%T>", n))
	}
}

func (p *printer) expr(e elixir.Expr) {
	switch v := e.(type) {
	case *elixir.IntegerLit:
		p.w(strconv.FormatInt(v.Value, 10))
	case *elixir.FloatLit:
		p.w(formatFloat(v.Value))
	case *elixir.StringLit:
		p.w(quote(v.Value))
	case *elixir.BooleanLit:
		p.w(strconv.FormatBool(v.Value))
	case *elixir.NilLit:
		p.w("nil")
	case *elixir.AtomLit:
		p.w(":" + v.Name)
	case *elixir.Var:
		p.w(v.Name)
	case *elixir.RawCode:
		p.w(v.Code)

	case *elixir.ListLit:
		p.seq("[", v.Elements, "]")
	case *elixir.TupleLit:
		p.seq("{", v.Elements, "}")
	case *elixir.MapLit:
		p.w("%{")
		for i, pair := range v.Pairs {
			if i > 0 {
				p.w(", ")
			}
			if atom, ok := pair.Key.(*elixir.AtomLit); ok {
				p.w(atom.Name + ": ")
			} else {
				p.expr(pair.Key)
				p.w(" => ")
			}
			p.expr(pair.Value)
		}
		p.w("}")
	case *elixir.KeywordList:
		p.w("[")
		for i, pair := range v.Pairs {
			if i > 0 {
				p.w(", ")
			}
			p.w(pair.Key + ": ")
			p.expr(pair.Value)
		}
		p.w("]")
	case *elixir.StructLit:
		p.w("%" + v.Module + "{")
		for i, f := range v.Fields {
			if i > 0 {
				p.w(", ")
			}
			p.w(f.Key + ": ")
			p.expr(f.Value)
		}
		p.w("}")
	case *elixir.StringInterp:
		p.w(`"`)
		for _, part := range v.Parts {
			if lit, ok := part.(*elixir.StringLit); ok {
				p.w(escape(lit.Value))
				continue
			}
			p.w("#{")
			p.expr(part)
			p.w("}")
		}
		p.w(`"`)

	case *elixir.Binop:
		p.operand(v.Left)
		p.w(" " + v.Op + " ")
		p.operand(v.Right)
	case *elixir.Unop:
		if v.Op == "not" {
			p.w("not ")
		} else {
			p.w(v.Op)
		}
		p.operand(v.Operand)
	case *elixir.FieldAccess:
		p.operand(v.Receiver)
		p.w("." + v.Field)
	case *elixir.RemoteCall:
		p.w(v.Module + "." + v.Fun)
		p.args(v.Args)
	case *elixir.LocalCall:
		p.w(v.Fun)
		p.args(v.Args)
	case *elixir.Apply:
		p.operand(v.Callee)
		p.w(".")
		p.args(v.Args)
	case *elixir.Capture:
		p.w("&" + v.Module + "." + v.Fun + "/" + strconv.Itoa(v.Arity))
	case *elixir.Match:
		p.w(p.pattern(v.Pattern))
		p.w(" = ")
		p.expr(v.Value)

	case *elixir.Block:
		p.block(v)
	case *elixir.If:
		p.ifExpr(v)
	case *elixir.Cond:
		p.condExpr(v)
	case *elixir.Case:
		p.caseExpr(v)
	case *elixir.Comprehension:
		p.comprehension(v)
	case *elixir.Fn:
		p.fn(v)
	case *elixir.Try:
		p.try(v)
	case *elixir.Raise:
		p.w("raise ")
		p.expr(v.Value)
	case *elixir.Throw:
		p.w("throw(")
		p.expr(v.Value)
		p.w(")")

	case *elixir.ModuleDef:
		p.moduleDef(v)
	case *elixir.StructDef:
		p.structDef(v)
	case *elixir.ModuleAttr:
		p.w("@" + v.Name + " ")
		p.expr(v.Value)
	case *elixir.FunctionDef:
		p.functionDef(v)

	default:
		p.w(fmt.Sprintf("<%T>", e))
	}
}

// operand parenthesizes compound sub-expressions so rendered operator
// chains read unambiguously without precedence rules.
func (p *printer) operand(e elixir.Expr) {
	switch e.(type) {
	case *elixir.Binop, *elixir.Match, *elixir.Fn:
		p.w("(")
		p.expr(e)
		p.w(")")
	default:
		p.expr(e)
	}
}

func (p *printer) seq(open string, elems []elixir.Expr, close string) {
	p.w(open)
	for i, e := range elems {
		if i > 0 {
			p.w(", ")
		}
		p.expr(e)
	}
	p.w(close)
}

func (p *printer) args(args []elixir.Expr) {
	p.seq("(", args, ")")
}

// block renders statements on separate lines at the current indent. An
// empty block stays textually empty.
func (p *printer) block(b *elixir.Block) {
	for i, e := range b.Exprs {
		if i > 0 {
			p.nl()
			p.pad()
		}
		p.expr(e)
	}
}

func (p *printer) body(e elixir.Expr) {
	p.indent++
	p.pad()
	p.expr(e)
	p.nl()
	p.indent--
}

func (p *printer) ifExpr(v *elixir.If) {
	p.w("if ")
	p.expr(v.Cond)
	p.w(" do")
	p.nl()
	p.body(v.Then)
	if v.Else != nil {
		p.line("else")
		p.body(v.Else)
	}
	p.pad()
	p.w("end")
}

func (p *printer) condExpr(v *elixir.Cond) {
	p.w("cond do")
	p.nl()
	p.indent++
	for _, clause := range v.Clauses {
		p.pad()
		p.expr(clause.Guard)
		p.w(" ->")
		p.nl()
		p.body(clause.Body)
	}
	p.indent--
	p.pad()
	p.w("end")
}

func (p *printer) caseExpr(v *elixir.Case) {
	p.w("case ")
	p.expr(v.Subject)
	p.w(" do")
	p.nl()
	p.indent++
	for _, clause := range v.Clauses {
		p.pad()
		p.w(p.pattern(clause.Pattern))
		if clause.Guard != nil {
			p.w(" when ")
			p.expr(clause.Guard)
		}
		p.w(" ->")
		p.nl()
		p.body(clause.Body)
	}
	p.indent--
	p.pad()
	p.w("end")
}

func (p *printer) comprehension(v *elixir.Comprehension) {
	p.w("for ")
	for i, clause := range v.Clauses {
		if i > 0 {
			p.w(", ")
		}
		switch c := clause.(type) {
		case *elixir.CompGenerator:
			p.w(p.pattern(c.Pattern))
			p.w(" <- ")
			p.expr(c.Iterable)
		case *elixir.CompFilter:
			p.expr(c.Condition)
		}
	}
	if v.Into != nil {
		p.w(", into: ")
		p.expr(v.Into)
	}
	p.w(" do")
	p.nl()
	p.body(v.Body)
	p.pad()
	p.w("end")
}

func (p *printer) fn(v *elixir.Fn) {
	p.w("fn ")
	for i, clause := range v.Clauses {
		if i > 0 {
			p.nl()
			p.pad()
			p.w("   ")
		}
		for j, param := range clause.Params {
			if j > 0 {
				p.w(", ")
			}
			p.w(p.pattern(param))
		}
		if clause.Guard != nil {
			p.w(" when ")
			p.expr(clause.Guard)
		}
		p.w(" -> ")
		p.expr(clause.Body)
	}
	p.w(" end")
}

func (p *printer) try(v *elixir.Try) {
	p.w("try do")
	p.nl()
	p.body(v.Body)
	if len(v.Rescues) > 0 {
		p.line("rescue")
		p.indent++
		for _, r := range v.Rescues {
			p.pad()
			if r.Binder != "" {
				p.w(r.Binder)
				if r.Type != "" {
					p.w(" in " + r.Type)
				}
			} else if r.Type != "" {
				p.w(r.Type)
			}
			p.w(" ->")
			p.nl()
			p.body(r.Body)
		}
		p.indent--
	}
	if len(v.Catches) > 0 {
		p.line("catch")
		p.indent++
		for _, c := range v.Catches {
			p.pad()
			p.w(p.pattern(c.Pattern))
			if c.Guard != nil {
				p.w(" when ")
				p.expr(c.Guard)
			}
			p.w(" ->")
			p.nl()
			p.body(c.Body)
		}
		p.indent--
	}
	if v.After != nil {
		p.line("after")
		p.body(v.After)
	}
	p.pad()
	p.w("end")
}

func (p *printer) moduleDef(v *elixir.ModuleDef) {
	p.w("defmodule " + v.Name + " do")
	p.nl()
	p.indent++
	for _, e := range v.Body {
		p.pad()
		p.expr(e)
		p.nl()
	}
	p.indent--
	p.pad()
	p.w("end")
}

func (p *printer) structDef(v *elixir.StructDef) {
	p.w("defstruct [")
	for i, f := range v.Fields {
		if i > 0 {
			p.w(", ")
		}
		p.w(f.Name + ": ")
		if f.Default != nil {
			p.expr(f.Default)
		} else {
			p.w("nil")
		}
	}
	p.w("]")
}

func (p *printer) functionDef(v *elixir.FunctionDef) {
	if v.Private {
		p.w("defp ")
	} else {
		p.w("def ")
	}
	p.w(v.Name)
	if len(v.Params) > 0 {
		p.w("(")
		for i, param := range v.Params {
			if i > 0 {
				p.w(", ")
			}
			p.w(p.pattern(param))
		}
		p.w(")")
	}
	if v.Guard != nil {
		p.w(" when ")
		p.expr(v.Guard)
	}
	p.w(" do")
	p.nl()
	p.body(v.Body)
	p.pad()
	p.w("end")
}

func (p *printer) pattern(pat elixir.Pattern) string {
	switch v := pat.(type) {
	case *elixir.PatVar:
		return v.Name
	case *elixir.PatWildcard:
		return "_"
	case *elixir.PatPin:
		return "^" + v.Name
	case *elixir.PatLiteral:
		return Print(v.Value)
	case *elixir.PatTuple:
		return "{" + p.patterns(v.Elements) + "}"
	case *elixir.PatList:
		return "[" + p.patterns(v.Elements) + "]"
	case *elixir.PatCons:
		return "[" + p.pattern(v.Head) + " | " + p.pattern(v.Tail) + "]"
	case *elixir.PatMap:
		parts := make([]string, 0, len(v.Entries))
		for _, e := range v.Entries {
			if atom, ok := e.Key.(*elixir.AtomLit); ok {
				parts = append(parts, atom.Name+": "+p.pattern(e.Value))
			} else {
				parts = append(parts, Print(e.Key)+" => "+p.pattern(e.Value))
			}
		}
		return "%{" + strings.Join(parts, ", ") + "}"
	case *elixir.PatStruct:
		parts := make([]string, 0, len(v.Entries))
		for _, e := range v.Entries {
			parts = append(parts, e.Field+": "+p.pattern(e.Value))
		}
		return "%" + v.Module + "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("<%T>", pat)
}

func (p *printer) patterns(pats []elixir.Pattern) string {
	parts := make([]string, len(pats))
	for i, pat := range pats {
		parts[i] = p.pattern(pat)
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	return `"` + escape(s) + `"`
}

func escape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
