package ir

// VisitFunc is invoked for every node of a pre-order traversal. Returning
// false prunes the subtree below the visited node.
type VisitFunc func(e *Expr) bool

// Walk traverses the expression tree in pre-order, left to right.
//
// Parameters:
//
//	e *Expr: The root of the traversal.
//	fn VisitFunc: Callback invoked per node; false stops descent.
func Walk(e *Expr, fn VisitFunc) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, a := range e.Args {
		Walk(a, fn)
	}
}

// FreeNames collects the unprimed names occurring in the expression.
//
// Parameters:
//
//	e *Expr: The expression to inspect.
//
// Returns:
//
//	map[string]struct{}: The set of free unprimed names.
func FreeNames(e *Expr) map[string]struct{} {
	names := make(map[string]struct{})
	Walk(e, func(n *Expr) bool {
		if _, ok := n.PrimedName(); ok {
			return false
		}
		if n.Kind == KindName {
			names[n.Name] = struct{}{}
		}
		return true
	})
	return names
}

// PrimedNames collects the names occurring under a prime in the expression.
// This is the rvars relation of the assignment dependency analysis: an
// assignment to w depends on an assignment to v exactly when v appears
// primed in w's right-hand side.
//
// Parameters:
//
//	e *Expr: The expression to inspect.
//
// Returns:
//
//	map[string]struct{}: The set of primed names.
func PrimedNames(e *Expr) map[string]struct{} {
	names := make(map[string]struct{})
	Walk(e, func(n *Expr) bool {
		if name, ok := n.PrimedName(); ok {
			names[name] = struct{}{}
			return false
		}
		return true
	})
	return names
}
