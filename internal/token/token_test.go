package token_test

import (
	"testing"

	"github.com/funvibe/alchemist/internal/token"
)

func TestSpanString(t *testing.T) {
	testCases := []struct {
		name string
		span token.Span
		want string
	}{
		{"zero", token.Span{}, "<no position>"},
		{"file and position", token.Span{File: "point.hx", Line: 3, Column: 7}, "point.hx:3:7"},
		{"position without file", token.Span{Line: 3, Column: 7}, "3:7"},
	}
	for _, tc := range testCases {
		if got := tc.span.String(); got != tc.want {
			t.Errorf("%s: String() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSpanEnclosing(t *testing.T) {
	a := token.Span{File: "u.hx", Line: 2, Column: 5, EndLine: 2, EndColumn: 9}
	b := token.Span{File: "u.hx", Line: 4, Column: 1, EndLine: 4, EndColumn: 3}

	got := a.Enclosing(b)
	want := token.Span{File: "u.hx", Line: 2, Column: 5, EndLine: 4, EndColumn: 3}
	if got != want {
		t.Errorf("Enclosing = %+v, want %+v", got, want)
	}

	if a.Enclosing(token.Span{}) != a {
		t.Error("a zero operand must leave the span unchanged")
	}
	if (token.Span{}).Enclosing(b) != b {
		t.Error("a zero receiver must yield the operand")
	}
}
