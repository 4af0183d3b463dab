package ast

// Inspect calls fn for every expression reachable from the given
// statements, outermost first. Nested function definitions are not
// entered; each FuncDef body is analyzed on its own.
func Inspect(stmts []Stmt, fn func(Expr)) {
	for _, s := range stmts {
		inspectStmt(s, fn)
	}
}

func inspectStmt(s Stmt, fn func(Expr)) {
	switch n := s.(type) {
	case *AssignStmt:
		if n.Value != nil {
			inspectExpr(n.Value, fn)
		}
	case *ExprStmt:
		inspectExpr(n.X, fn)
	case *ReturnStmt:
		if n.Result != nil {
			inspectExpr(n.Result, fn)
		}
	case *IfStmt:
		inspectExpr(n.Cond, fn)
		Inspect(n.Then, fn)
		Inspect(n.Else, fn)
	case *WhileStmt:
		inspectExpr(n.Cond, fn)
		Inspect(n.Body, fn)
	case *ForStmt:
		inspectExpr(n.Iter, fn)
		Inspect(n.Body, fn)
	}
}

func inspectExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case *AttributeExpr:
		inspectExpr(n.X, fn)
	case *CallExpr:
		inspectExpr(n.Callee, fn)
		for _, a := range n.Args {
			inspectExpr(a, fn)
		}
	case *AwaitExpr:
		inspectExpr(n.X, fn)
	case *BinaryExpr:
		inspectExpr(n.Left, fn)
		inspectExpr(n.Right, fn)
	case *UnaryExpr:
		inspectExpr(n.X, fn)
	case *IndexExpr:
		inspectExpr(n.X, fn)
		inspectExpr(n.Index, fn)
	case *ListLit:
		for _, el := range n.Elements {
			inspectExpr(el, fn)
		}
	case *DictLit:
		for i := range n.Keys {
			inspectExpr(n.Keys[i], fn)
			inspectExpr(n.Values[i], fn)
		}
	}
}

// ContainsAwait reports whether any expression in stmts is an await.
func ContainsAwait(stmts []Stmt) bool {
	found := false
	Inspect(stmts, func(e Expr) {
		if _, ok := e.(*AwaitExpr); ok {
			found = true
		}
	})
	return found
}

// ContainsBranch reports whether stmts contain an if statement at any
// nesting depth.
func ContainsBranch(stmts []Stmt) bool {
	for _, s := range stmts {
		switch n := s.(type) {
		case *IfStmt:
			return true
		case *WhileStmt:
			if ContainsBranch(n.Body) {
				return true
			}
		case *ForStmt:
			if ContainsBranch(n.Body) {
				return true
			}
		}
	}
	return false
}

// ContainsLoop reports whether stmts contain a while or for loop at
// any nesting depth.
func ContainsLoop(stmts []Stmt) bool {
	for _, s := range stmts {
		switch n := s.(type) {
		case *WhileStmt:
			return true
		case *ForStmt:
			return true
		case *IfStmt:
			if ContainsLoop(n.Then) || ContainsLoop(n.Else) {
				return true
			}
		}
	}
	return false
}
