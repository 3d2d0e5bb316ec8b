package token

import "strconv"

// Span identifies a region of front-end source text. The front-end attaches
// a span to every typed-IR node it emits; builders thread it through to the
// target nodes they produce so diagnostics and the printer can point back at
// the original source.
type Span struct {
	File      string
	Line      int // 1-based; 0 means "no position"
	Column    int // 1-based
	EndLine   int
	EndColumn int
}

// IsZero reports whether the span carries no position information.
func (s Span) IsZero() bool {
	return s.Line == 0
}

func (s Span) String() string {
	if s.IsZero() {
		return "<no position>"
	}
	out := s.File
	if out != "" {
		out += ":"
	}
	out += strconv.Itoa(s.Line) + ":" + strconv.Itoa(s.Column)
	return out
}

// Enclosing returns the smallest span covering both s and other. A zero span
// on either side yields the other unchanged.
func (s Span) Enclosing(other Span) Span {
	if s.IsZero() {
		return other
	}
	if other.IsZero() {
		return s
	}
	out := s
	if other.Line < out.Line || (other.Line == out.Line && other.Column < out.Column) {
		out.Line, out.Column = other.Line, other.Column
	}
	if other.EndLine > out.EndLine || (other.EndLine == out.EndLine && other.EndColumn > out.EndColumn) {
		out.EndLine, out.EndColumn = other.EndLine, other.EndColumn
	}
	return out
}
