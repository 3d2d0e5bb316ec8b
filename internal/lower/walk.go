package lower

import "github.com/funvibe/alchemist/internal/ir"

// walkIR visits e and every sub-expression in evaluation order. fn
// returning false prunes the subtree.
func walkIR(e ir.Expr, fn func(ir.Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *ir.VarDecl:
		walkIR(n.Init, fn)
	case *ir.Binop:
		walkIR(n.Left, fn)
		walkIR(n.Right, fn)
	case *ir.Unop:
		walkIR(n.Operand, fn)
	case *ir.Field:
		walkIR(n.Receiver, fn)
	case *ir.ArrayAccess:
		walkIR(n.Target, fn)
		walkIR(n.Index, fn)
	case *ir.Call:
		walkIR(n.Callee, fn)
		for _, a := range n.Args {
			walkIR(a, fn)
		}
	case *ir.New:
		for _, a := range n.Args {
			walkIR(a, fn)
		}
	case *ir.If:
		walkIR(n.Cond, fn)
		walkIR(n.Then, fn)
		walkIR(n.Else, fn)
	case *ir.While:
		walkIR(n.Cond, fn)
		walkIR(n.Body, fn)
	case *ir.For:
		walkIR(n.Iter, fn)
		walkIR(n.Body, fn)
	case *ir.Switch:
		walkIR(n.Subject, fn)
		for _, cs := range n.Cases {
			for _, v := range cs.Values {
				walkIR(v, fn)
			}
			walkIR(cs.Body, fn)
		}
		walkIR(n.Default, fn)
	case *ir.Try:
		walkIR(n.Body, fn)
		for _, cc := range n.Catches {
			walkIR(cc.Body, fn)
		}
	case *ir.Throw:
		walkIR(n.Value, fn)
	case *ir.Return:
		walkIR(n.Value, fn)
	case *ir.Block:
		for _, s := range n.Exprs {
			walkIR(s, fn)
		}
	case *ir.Function:
		walkIR(n.Body, fn)
	case *ir.ArrayDecl:
		for _, el := range n.Elements {
			walkIR(el, fn)
		}
	case *ir.ObjectDecl:
		for _, f := range n.Fields {
			walkIR(f.Value, fn)
		}
	case *ir.EnumParameter:
		walkIR(n.Value, fn)
	case *ir.EnumIndex:
		walkIR(n.Value, fn)
	case *ir.Meta:
		walkIR(n.Inner, fn)
	case *ir.Cast:
		walkIR(n.Inner, fn)
	case *ir.Paren:
		walkIR(n.Inner, fn)
	}
}

// referencesLocal reports whether any reference to the given binder id or
// original name occurs in e.
func referencesLocal(e ir.Expr, id int, name string) bool {
	found := false
	walkIR(e, func(sub ir.Expr) bool {
		if found {
			return false
		}
		if ref, ok := sub.(*ir.LocalRef); ok {
			if ref.ID == id || (name != "" && ref.Name == name) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// sameLocal reports whether two expressions reference the same local.
func sameLocal(a, b ir.Expr) bool {
	ra, ok := ir.Unwrap(a).(*ir.LocalRef)
	if !ok {
		return false
	}
	rb, ok := ir.Unwrap(b).(*ir.LocalRef)
	if !ok {
		return false
	}
	return ra.ID == rb.ID
}
