package elixir

import "github.com/funvibe/alchemist/internal/token"

// PatVar binds a value to a name.
type PatVar struct {
	Span token.Span
	Name string
}

func (p *PatVar) patternNode()         {}
func (p *PatVar) NodeSpan() token.Span { return p.Span }

// PatWildcard matches anything without binding, rendered as _.
type PatWildcard struct {
	Span token.Span
}

func (p *PatWildcard) patternNode()         {}
func (p *PatWildcard) NodeSpan() token.Span { return p.Span }

// PatLiteral matches a literal value exactly. Value must be one of the
// literal expression kinds (IntegerLit, FloatLit, StringLit, BooleanLit,
// NilLit, AtomLit).
type PatLiteral struct {
	Span  token.Span
	Value Expr
}

func (p *PatLiteral) patternNode()         {}
func (p *PatLiteral) NodeSpan() token.Span { return p.Span }

// PatPin matches against the current value of an existing binding,
// rendered as ^name.
type PatPin struct {
	Span token.Span
	Name string
}

func (p *PatPin) patternNode()         {}
func (p *PatPin) NodeSpan() token.Span { return p.Span }

// PatTuple matches a tuple of fixed arity, element-wise.
type PatTuple struct {
	Span     token.Span
	Elements []Pattern
}

func (p *PatTuple) patternNode()         {}
func (p *PatTuple) NodeSpan() token.Span { return p.Span }

// PatList matches a list of fixed length, element-wise.
type PatList struct {
	Span     token.Span
	Elements []Pattern
}

func (p *PatList) patternNode()         {}
func (p *PatList) NodeSpan() token.Span { return p.Span }

// PatCons matches a non-empty list, rendered as [head | tail].
type PatCons struct {
	Span token.Span
	Head Pattern
	Tail Pattern
}

func (p *PatCons) patternNode()         {}
func (p *PatCons) NodeSpan() token.Span { return p.Span }

// PatMapEntry is one key/value entry of a PatMap. Keys are expressions
// (evaluated, never binding); values are sub-patterns.
type PatMapEntry struct {
	Key   Expr
	Value Pattern
}

// PatMap matches a map containing at least the given entries.
type PatMap struct {
	Span    token.Span
	Entries []PatMapEntry
}

func (p *PatMap) patternNode()         {}
func (p *PatMap) NodeSpan() token.Span { return p.Span }

// PatStructEntry is one field of a PatStruct.
type PatStructEntry struct {
	Field string
	Value Pattern
}

// PatStruct matches a struct of the given module, rendered as
// %Module{field: pat, ...}.
type PatStruct struct {
	Span    token.Span
	Module  string
	Entries []PatStructEntry
}

func (p *PatStruct) patternNode()         {}
func (p *PatStruct) NodeSpan() token.Span { return p.Span }

// BinderNames returns the names bound by a pattern, in left-to-right
// order. Wildcards and pins contribute nothing.
func BinderNames(p Pattern) []string {
	var out []string
	collectBinders(p, &out)
	return out
}

func collectBinders(p Pattern, out *[]string) {
	switch pat := p.(type) {
	case *PatVar:
		*out = append(*out, pat.Name)
	case *PatTuple:
		for _, e := range pat.Elements {
			collectBinders(e, out)
		}
	case *PatList:
		for _, e := range pat.Elements {
			collectBinders(e, out)
		}
	case *PatCons:
		collectBinders(pat.Head, out)
		collectBinders(pat.Tail, out)
	case *PatMap:
		for _, e := range pat.Entries {
			collectBinders(e.Value, out)
		}
	case *PatStruct:
		for _, e := range pat.Entries {
			collectBinders(e.Value, out)
		}
	}
}
