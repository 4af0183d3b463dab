package analysis

import (
	"auriga/internal/ast"
	"auriga/internal/diag"
)

// Info is the read-only result of the analysis pass, consumed by the
// code generator. It is process-scoped and discarded at the end of one
// compilation.
type Info struct {
	Table   *SymbolTable
	Classes *ClassRegistry
	// Funcs maps top-level function names, plus methods under their
	// qualified Class.method name, to their definitions.
	Funcs map[string]*ast.FuncDef
	// Returns maps function names to their inferred return type.
	Returns map[string]Type
}

// Analyzer runs the single sequential semantic pass over a module,
// populating the symbol table and the class registry. Compilation is
// strictly sequential, so nothing here needs locking.
type Analyzer struct {
	table   *SymbolTable
	classes *ClassRegistry
	funcs   map[string]*ast.FuncDef
	returns map[string]Type
	errors  []error
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		table:   NewSymbolTable(),
		classes: NewClassRegistry(),
		funcs:   make(map[string]*ast.FuncDef),
		returns: make(map[string]Type),
	}
}

// Analyze processes one module and returns the collected info plus any
// diagnostics. Unresolved identifiers are not reported here: lookups
// degrade to "not found" and the code generator decides fatality.
func (a *Analyzer) Analyze(mod *ast.Module) (*Info, []error) {
	// Phase 1: register classes and functions so forward references
	// resolve before any body is checked.
	for _, cd := range mod.Classes {
		a.classes.RegisterAST(cd)
		a.table.Declare(cd.Name, Type(cd.Name), false)
	}
	for _, fn := range mod.Funcs {
		a.funcs[fn.Name] = fn
		a.table.Declare(fn.Name, TypeUnknown, false)
	}

	a.errors = append(a.errors, a.classes.CheckCycles()...)

	// Phase 2: infer function return types, then walk bodies.
	// Methods register under their qualified Class.method name so the
	// generator can classify and type them like top-level functions.
	for _, fn := range mod.Funcs {
		a.returns[fn.Name] = a.inferReturn(fn)
	}
	for _, cd := range mod.Classes {
		for _, m := range cd.Methods {
			a.funcs[cd.Name+"."+m.Name] = m
			a.returns[cd.Name+"."+m.Name] = a.inferReturn(m)
		}
	}

	a.walkStmts(mod.Body)
	for _, fn := range mod.Funcs {
		a.walkFunc(fn, "")
	}
	for _, cd := range mod.Classes {
		for _, m := range cd.Methods {
			a.walkFunc(m, cd.Name)
		}
	}

	info := &Info{
		Table:   a.table,
		Classes: a.classes,
		Funcs:   a.funcs,
		Returns: a.returns,
	}
	return info, a.errors
}

// ReturnType reports the inferred return type of a top-level function,
// or TypeUnknown when inference was unavailable.
func (i *Info) ReturnType(name string) Type {
	return i.Returns[name]
}

func (a *Analyzer) walkFunc(fn *ast.FuncDef, className string) {
	a.table.PushScope()
	defer a.table.PopScope()

	for idx, p := range fn.Params {
		typ := annotType(p.Annot)
		if idx == 0 && className != "" && !fn.IsStatic && p.Name == "self" {
			typ = Type(className)
		}
		a.table.DeclareParam(p.Name, typ)
	}
	a.walkStmts(fn.Body)
	a.markCaptured(fn.Body)
}

func (a *Analyzer) walkStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.AssignStmt:
			if n.Object != "" {
				// Attribute assignment; receiver must already exist.
				continue
			}
			typ := a.inferExpr(n.Value)
			if n.Annot != "" {
				typ = annotType(n.Annot)
			}
			if a.table.DeclaredInCurrentScope(n.Target) {
				// Reuse the existing slot and mark it reassigned.
				sym := a.table.Lookup(n.Target)
				sym.Mutable = true
				if sym.Type == TypeUnknown {
					sym.Type = typ
				}
			} else {
				a.table.Declare(n.Target, typ, false)
			}
		case *ast.FuncDef:
			// Nested definition: bind the name, analyze the body in a
			// fresh scope.
			a.table.Declare(n.Name, TypeUnknown, false)
			a.funcs[n.Name] = n
			a.returns[n.Name] = a.inferReturn(n)
			a.walkFunc(n, "")
		case *ast.IfStmt:
			a.walkStmts(n.Then)
			a.walkStmts(n.Else)
		case *ast.WhileStmt:
			a.walkStmts(n.Body)
		case *ast.ForStmt:
			a.table.Declare(n.Var, a.elemType(n.Iter), true)
			a.walkStmts(n.Body)
		}
	}
}

// markCaptured flags enclosing-scope symbols referenced from nested
// function definitions so emission can keep them addressable.
func (a *Analyzer) markCaptured(body []ast.Stmt) {
	for _, s := range body {
		nested, ok := s.(*ast.FuncDef)
		if !ok {
			continue
		}
		local := make(map[string]bool)
		for _, p := range nested.Params {
			local[p.Name] = true
		}
		ast.Inspect(nested.Body, func(e ast.Expr) {
			name, ok := e.(*ast.NameExpr)
			if !ok || local[name.Name] {
				return
			}
			if sym := a.table.Lookup(name.Name); sym != nil && sym.Depth > 0 {
				sym.Captured = true
			}
		})
	}
}

// ----- Type inference -----

// inferExpr performs the same literal-and-binding level inference the
// original tracked per variable. It never fails: anything it cannot
// prove is TypeUnknown.
func (a *Analyzer) inferExpr(e ast.Expr) Type {
	switch n := e.(type) {
	case *ast.IntLit:
		return TypeInt
	case *ast.FloatLit:
		return TypeFloat
	case *ast.StringLit:
		return TypeStr
	case *ast.BoolLit:
		return TypeBool
	case *ast.NoneLit:
		return TypeNone
	case *ast.ListLit:
		return TypeList
	case *ast.DictLit:
		return TypeDict
	case *ast.NameExpr:
		return a.table.TypeOf(n.Name)
	case *ast.AwaitExpr:
		return a.inferExpr(n.X)
	case *ast.CallExpr:
		if callee, ok := n.Callee.(*ast.NameExpr); ok {
			if a.classes.Class(callee.Name) != nil {
				return Type(callee.Name) // constructor call
			}
			if t, ok := a.returns[callee.Name]; ok {
				return t
			}
		}
		return TypeUnknown
	case *ast.BinaryExpr:
		return a.inferBinary(n)
	case *ast.UnaryExpr:
		if n.Op == "not" {
			return TypeBool
		}
		return a.inferExpr(n.X)
	}
	return TypeUnknown
}

func (a *Analyzer) inferBinary(e *ast.BinaryExpr) Type {
	switch e.Op {
	case "==", "!=", "<", "<=", ">", ">=", "and", "or":
		return TypeBool
	}
	left, right := a.inferExpr(e.Left), a.inferExpr(e.Right)
	switch {
	case left == TypeStr && e.Op == "+":
		return TypeStr
	case left == TypeFloat || right == TypeFloat:
		return TypeFloat
	case left == TypeInt && right == TypeInt:
		if e.Op == "/" {
			// Division always yields float in the source language.
			return TypeFloat
		}
		return TypeInt
	}
	return TypeUnknown
}

// elemType guesses the element type of an iterable for loop variable
// binding. range(...) iterates ints; everything else is unknown.
func (a *Analyzer) elemType(iter ast.Expr) Type {
	if call, ok := iter.(*ast.CallExpr); ok {
		if callee, ok := call.Callee.(*ast.NameExpr); ok && callee.Name == "range" {
			return TypeInt
		}
	}
	return TypeUnknown
}

// inferReturn determines a function's return type from its annotation
// first, then from the types of its return expressions. Classification
// is memoized by the caller; repeated inference is deterministic.
func (a *Analyzer) inferReturn(fn *ast.FuncDef) Type {
	if fn.ReturnAnnot != "" {
		return annotType(fn.ReturnAnnot)
	}
	var found Type
	var scan func(stmts []ast.Stmt)
	scan = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.ReturnStmt:
				if found == TypeUnknown && n.Result != nil {
					found = a.inferExpr(n.Result)
				}
			case *ast.IfStmt:
				scan(n.Then)
				scan(n.Else)
			case *ast.WhileStmt:
				scan(n.Body)
			case *ast.ForStmt:
				scan(n.Body)
			}
		}
	}
	scan(fn.Body)
	return found
}

// AnnotType maps a source-level annotation name to its type. Unknown
// names are assumed to reference classes.
func AnnotType(annot string) Type {
	return annotType(annot)
}

func annotType(annot string) Type {
	switch annot {
	case "int":
		return TypeInt
	case "float":
		return TypeFloat
	case "str":
		return TypeStr
	case "bool":
		return TypeBool
	case "list":
		return TypeList
	case "dict":
		return TypeDict
	case "None":
		return TypeNone
	case "":
		return TypeUnknown
	}
	return Type(annot)
}

// RequireSymbol converts a lookup miss into the diagnostic the
// orchestrating layer surfaces for value-requiring contexts.
func RequireSymbol(table *SymbolTable, name *ast.NameExpr) (*SymbolInfo, error) {
	if sym := table.Lookup(name.Name); sym != nil {
		return sym, nil
	}
	return nil, diag.Errorf(name.NamePos, diag.UnresolvedIdentifier, "name %q is not defined", name.Name)
}
