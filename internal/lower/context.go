// Package lower implements the typed-IR to target-AST builder pipeline:
// a recursive-descent translation of the front-end's flattened,
// mutation-oriented IR into idiomatic pattern-matching target code. A
// single driver (Builder.buildExpr) owns all recursion; the specialized
// builders receive the threaded Context and re-enter the tree walk only
// through the Build callback it carries.
package lower

import (
	"strconv"

	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/elixir"
	"github.com/funvibe/alchemist/internal/ir"
	"github.com/funvibe/alchemist/internal/utils"
)

// BuildFunc re-enters the driving expression builder. Specialized builders
// never call each other; they build sub-expressions through this.
type BuildFunc func(e ir.Expr) (elixir.Expr, error)

// scope is one level of the rename table. It is dual-keyed because the
// front-end sometimes reuses names under fresh binder ids and sometimes
// reuses ids under renamed locals; resolution tries the id first, then the
// original name.
type scope struct {
	byID   map[int]string
	byName map[string]string
}

func newScope() *scope {
	return &scope{byID: make(map[int]string), byName: make(map[string]string)}
}

// Context is the mutable state threaded through every builder call.
// Scopes, clause contexts and infrastructure-temp snapshots obey strict
// stack discipline: every push on block or clause entry is matched by a
// restore on every exit path. WithScope enforces that; builders must not
// push scopes by hand.
type Context struct {
	// Build re-enters the driver. Set once by New; carried here instead
	// of shared module state so nested builds cannot clobber each other.
	Build BuildFunc

	Unit   *ir.Module
	Config *config.Config

	// SelfModule is the target name of the class being compiled; calls to
	// its own functions drop the module qualification.
	SelfModule string

	// Receiver is the binder the active method's instance is bound to,
	// or "" inside static methods.
	Receiver string

	scopes  []*scope
	clauses []*scope

	// infraTemps records front-end-synthesized temporaries and their
	// last-known initializer, used to recover loop bounds after the
	// surrounding block was rewritten.
	infraTemps map[string]ir.Expr

	// patternVars maps binder ids of recovered parameter-extraction
	// declarations to the pattern binder chosen for them. Highest
	// resolution priority: a recovered binder is the reason a rewrite
	// was possible, so it must win over any outer rename.
	patternVarsByID   map[int]string
	patternVarsByName map[string]string

	// ReviewNotes collects non-fatal oddities (unrecognized builtin
	// methods lowered as passthrough calls) for post-hoc review.
	ReviewNotes []string

	tempCount int
}

// NewContext creates a context with one fresh top-level scope. There is no
// cross-unit persistent state: every compilation unit starts from here.
func NewContext(unit *ir.Module, cfg *config.Config) *Context {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Context{
		Unit:              unit,
		Config:            cfg,
		scopes:            []*scope{newScope()},
		infraTemps:        make(map[string]ir.Expr),
		patternVarsByID:   make(map[int]string),
		patternVarsByName: make(map[string]string),
	}
}

// WithScope runs fn inside a fresh nested scope, restoring the scope
// stack and the infrastructure-temp table on every exit path, including
// error returns. This restore discipline is the central correctness
// invariant of the pipeline: a leaked scope corrupts sibling code.
func (c *Context) WithScope(fn func() (elixir.Expr, error)) (elixir.Expr, error) {
	c.scopes = append(c.scopes, newScope())
	savedTemps := make(map[string]ir.Expr, len(c.infraTemps))
	for k, v := range c.infraTemps {
		savedTemps[k] = v
	}
	defer func() {
		c.scopes = c.scopes[:len(c.scopes)-1]
		c.infraTemps = savedTemps
	}()
	return fn()
}

// ScopeDepth reports the current scope stack depth; tests use it to check
// the save/restore invariant.
func (c *Context) ScopeDepth() int { return len(c.scopes) }

// BindLocal records a binding for a declared local in the innermost scope
// and returns the resolved target name. The name is case-normalized and
// de-conflicted against bindings already visible.
func (c *Context) BindLocal(id int, original string) string {
	resolved := utils.SnakeCase(original)
	if resolved == "" {
		resolved = c.FreshTemp()
	}
	base := resolved
	for n := 2; c.nameTaken(resolved); n++ {
		resolved = base + strconv.Itoa(n)
	}
	top := c.scopes[len(c.scopes)-1]
	top.byID[id] = resolved
	top.byName[original] = resolved
	return resolved
}

// BindLocalAs records a binding with a caller-chosen resolved name
// (pattern binders, loop variables).
func (c *Context) BindLocalAs(id int, original, resolved string) {
	top := c.scopes[len(c.scopes)-1]
	top.byID[id] = resolved
	top.byName[original] = resolved
}

func (c *Context) nameTaken(name string) bool {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if _, ok := c.scopes[i].byName[name]; ok {
			return true
		}
		for _, v := range c.scopes[i].byID {
			if v == name {
				return true
			}
		}
	}
	return false
}

// PushClause enters a case-clause context: the given pattern binders are
// visible only inside the clause body. Restore with PopClause.
func (c *Context) PushClause(byID map[int]string, byName map[string]string) {
	s := newScope()
	for k, v := range byID {
		s.byID[k] = v
	}
	for k, v := range byName {
		s.byName[k] = v
	}
	c.clauses = append(c.clauses, s)
}

// PopClause leaves the innermost clause context.
func (c *Context) PopClause() {
	c.clauses = c.clauses[:len(c.clauses)-1]
}

// RegisterPatternVar maps a recovered parameter-extraction declaration to
// its chosen pattern binder name.
func (c *Context) RegisterPatternVar(id int, original, resolved string) {
	c.patternVarsByID[id] = resolved
	c.patternVarsByName[original] = resolved
}

// ClearPatternVar removes a registration once its clause is built.
func (c *Context) ClearPatternVar(id int, original string) {
	delete(c.patternVarsByID, id)
	delete(c.patternVarsByName, original)
}

// RecordInfraTempInit notes the last-known initializer of a synthesized
// temporary.
func (c *Context) RecordInfraTempInit(name string, init ir.Expr) {
	c.infraTemps[name] = init
}

// LookupInfraTempInit returns the recorded initializer for a synthesized
// temporary, if any.
func (c *Context) LookupInfraTempInit(name string) (ir.Expr, bool) {
	e, ok := c.infraTemps[name]
	return e, ok
}

// ResolveName resolves a variable reference to its target name. Priority,
// highest first: pattern-variable registry, clause contexts (innermost
// first), the scoped dual-key rename table, infrastructure heuristics
// (the reserved receiver name resolves to the active method's receiver
// binder), and finally the case-normalized original name.
func (c *Context) ResolveName(id int, original string) string {
	if name, ok := c.patternVarsByID[id]; ok {
		return name
	}
	if name, ok := c.patternVarsByName[original]; ok {
		return name
	}
	for i := len(c.clauses) - 1; i >= 0; i-- {
		if name, ok := c.clauses[i].byID[id]; ok {
			return name
		}
		if name, ok := c.clauses[i].byName[original]; ok {
			return name
		}
	}
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if name, ok := c.scopes[i].byID[id]; ok {
			return name
		}
		if name, ok := c.scopes[i].byName[original]; ok {
			return name
		}
	}
	if original == config.ReceiverName && c.Receiver != "" {
		return c.Receiver
	}
	return utils.SnakeCase(original)
}

// FreshTemp returns a fresh temporary name that cannot collide with user
// locals.
func (c *Context) FreshTemp() string {
	c.tempCount++
	return config.TempPrefix + strconv.Itoa(c.tempCount)
}

// Note records a post-hoc review note.
func (c *Context) Note(msg string) {
	c.ReviewNotes = append(c.ReviewNotes, msg)
}
