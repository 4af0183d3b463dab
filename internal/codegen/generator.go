// Package codegen turns analyzed modules into Go source. Generated
// programs are self-contained package main files that link against
// the runtime packages for scheduling and boxed values.
package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"auriga/internal/analysis"
	"auriga/internal/ast"
	"auriga/internal/async"
	"auriga/internal/diag"
	"auriga/internal/imports"
)

// Generator emits one Go file per source module. A generator is
// single-use: build one, call Generate once.
type Generator struct {
	info       *analysis.Info
	classifier *async.Classifier
	registry   *imports.Registry

	body *Emitter
	errs []error
	tmp  int

	needsSched bool
	needsRtval bool
	needsFmt   bool
	goImports  map[string]bool

	// dynCalls maps method names that required dynamic dispatch to
	// the classes observed receiving them; helpers are emitted last.
	dynCalls map[string]bool

	// modules maps source-level module names (or aliases) to the Go
	// package name of their runtime target.
	modules map[string]string

	// fieldTypes maps each class to its own instance field types;
	// inherited fields resolve through the parent chain on lookup.
	fieldTypes map[string]map[string]analysis.Type

	// per-function state
	locals      map[string]analysis.Type
	schedVar    string // "" when no scheduler handle is in scope
	className   string // receiver class while emitting a method
	boxedResult bool   // current function returns rtval.Value
}

func NewGenerator(info *analysis.Info, reg *imports.Registry) *Generator {
	return &Generator{
		info:       info,
		classifier: async.NewClassifier(info),
		registry:   reg,
		body:       NewEmitter(),
		goImports:  make(map[string]bool),
		dynCalls:   make(map[string]bool),
		modules:    make(map[string]string),
		fieldTypes: make(map[string]map[string]analysis.Type),
	}
}

// Generate emits the complete Go translation of mod. Any diagnostic
// aborts the unit: no partial output is returned.
func (g *Generator) Generate(mod *ast.Module) ([]byte, []error) {
	g.checkImports(mod)

	for _, cd := range mod.Classes {
		fts := make(map[string]analysis.Type)
		for _, f := range g.classFields(cd) {
			fts[f.name] = f.typ
		}
		g.fieldTypes[cd.Name] = fts
	}

	for _, cd := range mod.Classes {
		g.classDecl(cd)
	}
	for _, fn := range mod.Funcs {
		g.funcDecl(fn, "")
	}
	g.mainDecl(mod.Body)
	g.dynHelpers(mod)

	if len(g.errs) > 0 {
		return nil, g.errs
	}

	out := NewEmitter()
	out.Line("// Code generated by auriga. DO NOT EDIT.")
	out.Blank()
	out.Line("package main")
	out.Blank()
	g.writeImports(out)
	out.buf.Write(g.body.Bytes())

	src, err := out.Formatted()
	if err != nil {
		return nil, []error{err}
	}
	return src, nil
}

// ----- Imports -----

func (g *Generator) checkImports(mod *ast.Module) {
	for _, imp := range mod.Imports {
		info, _ := g.registry.Lookup(imp.Module)
		switch info.Strategy {
		case imports.Unsupported:
			g.errs = append(g.errs, diag.Errorf(imp.Pos(), diag.UnsupportedImport,
				"module %q has no import strategy", imp.Module))
		case imports.NativeReimplementation, imports.ForeignLibraryBinding:
			// asyncio resolves through the scheduler builtins, not
			// package-qualified calls.
			if info.TargetRef == "" || info.TargetRef == "auriga/runtime/sched" {
				continue
			}
			g.goImports[info.TargetRef] = true
			name := imp.Module
			if imp.Alias != "" {
				name = imp.Alias
			}
			g.modules[name] = info.TargetRef[strings.LastIndex(info.TargetRef, "/")+1:]
		case imports.SourceCompilation:
			// Compiled as a sibling unit by the pipeline; its decls
			// land in the same generated package.
		}
	}
}

func (g *Generator) writeImports(out *Emitter) {
	paths := make([]string, 0, len(g.goImports)+3)
	if g.needsFmt {
		paths = append(paths, "fmt")
	}
	if g.needsRtval {
		paths = append(paths, "auriga/runtime/rtval")
	}
	if g.needsSched {
		paths = append(paths, "auriga/runtime/sched")
	}
	for p := range g.goImports {
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	out.Line("import (")
	out.In()
	for _, p := range paths {
		out.Line("%q", p)
	}
	out.Out()
	out.Line(")")
	out.Blank()
}

// ----- Naming and types -----

// goName maps a snake_case source identifier to an exported Go name.
func goName(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}

func (g *Generator) goType(t analysis.Type) string {
	switch t {
	case analysis.TypeInt:
		return "int64"
	case analysis.TypeFloat:
		return "float64"
	case analysis.TypeStr:
		return "string"
	case analysis.TypeBool:
		return "bool"
	case analysis.TypeNone:
		return ""
	case analysis.TypeList, analysis.TypeDict, analysis.TypeUnknown:
		g.needsRtval = true
		return "rtval.Value"
	}
	if t.IsClass() {
		return "*" + goName(string(t))
	}
	g.needsRtval = true
	return "rtval.Value"
}

func (g *Generator) paramType(p *ast.Param) analysis.Type {
	if p.Annot != "" {
		return analysis.AnnotType(p.Annot)
	}
	return analysis.TypeUnknown
}

// ----- Classes -----

func (g *Generator) classDecl(cd *ast.ClassDef) {
	name := goName(cd.Name)
	g.body.Line("type %s struct {", name)
	g.body.In()
	if parent := g.info.Classes.Parent(cd.Name); parent != "" {
		g.body.Line("%s", goName(parent))
	}
	for _, f := range g.classFields(cd) {
		g.body.Line("%s %s", goName(f.name), g.goType(f.typ))
	}
	g.body.Out()
	g.body.Line("}")
	g.body.Blank()

	g.constructorDecl(cd, name)
	for _, m := range cd.Methods {
		if m.Name == "__init__" {
			continue
		}
		g.funcDecl(m, cd.Name)
	}
}

type classField struct {
	name string
	typ  analysis.Type
}

// classFields collects instance attributes from class-level assigns
// and self assignments inside __init__, in declaration order.
func (g *Generator) classFields(cd *ast.ClassDef) []classField {
	var fields []classField
	seen := make(map[string]bool)
	add := func(name string, typ analysis.Type) {
		if seen[name] {
			return
		}
		seen[name] = true
		fields = append(fields, classField{name, typ})
	}
	for _, a := range cd.Attrs {
		add(a.Target, g.exprType(a.Value))
	}
	if init := findMethod(cd, "__init__"); init != nil {
		params := make(map[string]analysis.Type)
		for _, p := range init.Params {
			params[p.Name] = g.paramType(p)
		}
		for _, s := range init.Body {
			a, ok := s.(*ast.AssignStmt)
			if !ok || a.Object != "self" {
				continue
			}
			typ := g.exprType(a.Value)
			if n, ok := a.Value.(*ast.NameExpr); ok {
				if pt, ok := params[n.Name]; ok && pt != analysis.TypeUnknown {
					typ = pt
				}
			}
			if a.Annot != "" {
				typ = analysis.AnnotType(a.Annot)
			}
			add(a.Target, typ)
		}
	}
	return fields
}

func findMethod(cd *ast.ClassDef, name string) *ast.FuncDef {
	for _, m := range cd.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (g *Generator) constructorDecl(cd *ast.ClassDef, name string) {
	init := findMethod(cd, "__init__")
	var params []*ast.Param
	if init != nil && len(init.Params) > 0 {
		params = init.Params[1:] // drop self
	}
	g.body.Line("func New%s(%s) *%s {", name, g.paramList(params), name)
	g.body.In()
	g.locals = make(map[string]analysis.Type)
	g.boxedResult = false
	for _, p := range params {
		g.locals[p.Name] = g.paramType(p)
	}
	g.body.Line("self := &%s{}", name)
	g.locals["self"] = analysis.Type(cd.Name)
	g.className = cd.Name
	if init != nil {
		g.stmts(init.Body)
	}
	g.className = ""
	g.body.Line("return self")
	g.body.Out()
	g.body.Line("}")
	g.body.Blank()
}

// ----- Functions -----

func (g *Generator) paramList(params []*ast.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		pt := g.paramType(p)
		// Untyped parameters stay open so dynamic dispatch helpers
		// can type-switch on them.
		t := "any"
		if pt != analysis.TypeUnknown {
			t = g.goType(pt)
		}
		if t == "" {
			t = "any"
		}
		parts[i] = p.Name + " " + t
	}
	return strings.Join(parts, ", ")
}

// funcDecl emits one function or method. Async functions that cannot
// be inlined take the scheduler handle as their first parameter.
func (g *Generator) funcDecl(fn *ast.FuncDef, className string) {
	g.locals = make(map[string]analysis.Type)
	g.schedVar = ""
	g.className = className

	params := fn.Params
	recv := ""
	if className != "" && !fn.IsStatic {
		if len(params) > 0 {
			g.locals[params[0].Name] = analysis.Type(className)
			recv = fmt.Sprintf("(%s *%s) ", params[0].Name, goName(className))
			params = params[1:]
		}
	}

	key := fn.Name
	if className != "" {
		key = className + "." + fn.Name
	}
	scheduled := fn.IsAsync && g.classifier.Classify(key) == async.Complex
	var sig strings.Builder
	sig.WriteString("func ")
	sig.WriteString(recv)
	sig.WriteString(goName(fn.Name))
	sig.WriteString("(")
	if scheduled {
		g.needsSched = true
		g.schedVar = "__sched"
		sig.WriteString("__sched *sched.Scheduler")
		if len(params) > 0 {
			sig.WriteString(", ")
		}
	}
	sig.WriteString(g.paramList(params))
	sig.WriteString(")")
	for _, p := range params {
		g.locals[p.Name] = g.paramType(p)
	}

	ret := g.returnType(fn)
	g.boxedResult = false
	if rt := g.goType(ret); ret != analysis.TypeNone && rt != "" {
		sig.WriteString(" " + rt)
		g.boxedResult = rt == "rtval.Value"
	}

	g.body.Line("%s {", sig.String())
	g.body.In()
	g.stmts(fn.Body)
	g.body.Out()
	g.body.Line("}")
	g.body.Blank()
	g.className = ""
}

func (g *Generator) returnType(fn *ast.FuncDef) analysis.Type {
	key := fn.Name
	if g.className != "" {
		key = g.className + "." + fn.Name
	}
	if t := g.info.ReturnType(key); t != analysis.TypeUnknown {
		return t
	}
	if key != fn.Name {
		if t := g.info.ReturnType(fn.Name); t != analysis.TypeUnknown {
			return t
		}
	}
	if fn.ReturnAnnot != "" {
		return analysis.AnnotType(fn.ReturnAnnot)
	}
	if !returnsValue(fn.Body) {
		return analysis.TypeNone
	}
	return analysis.TypeUnknown
}

func returnsValue(body []ast.Stmt) bool {
	found := false
	var scan func([]ast.Stmt)
	scan = func(stmts []ast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *ast.ReturnStmt:
				if n.Result != nil {
					found = true
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
	scan(body)
	return found
}

func (g *Generator) mainDecl(body []ast.Stmt) {
	g.locals = make(map[string]analysis.Type)
	g.schedVar = ""
	g.boxedResult = false
	g.body.Line("func main() {")
	g.body.In()
	g.stmts(body)
	g.body.Out()
	g.body.Line("}")
	g.body.Blank()
}

// ----- Statements -----

func (g *Generator) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		g.stmt(s)
	}
}

func (g *Generator) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.AssignStmt:
		g.assign(n)
	case *ast.ExprStmt:
		g.exprStmt(n)
	case *ast.ReturnStmt:
		if n.Result == nil {
			g.body.Line("return")
			return
		}
		if g.boxedResult {
			g.body.Line("return %s", g.box(n.Result))
			return
		}
		g.body.Line("return %s", g.expr(n.Result))
	case *ast.IfStmt:
		g.body.Line("if %s {", g.cond(n.Cond))
		g.block(n.Then)
		if len(n.Else) > 0 {
			g.body.Line("} else {")
			g.block(n.Else)
		}
		g.body.Line("}")
	case *ast.WhileStmt:
		g.body.Line("for %s {", g.cond(n.Cond))
		g.block(n.Body)
		g.body.Line("}")
	case *ast.ForStmt:
		g.forStmt(n)
	case *ast.FuncDef:
		// Nested defs become function literals bound to a local.
		ret := ""
		savedBoxed := g.boxedResult
		g.boxedResult = false
		if t := g.returnType(n); t != analysis.TypeNone {
			rt := g.goType(t)
			ret = " " + rt
			g.boxedResult = rt == "rtval.Value"
		}
		g.body.Line("%s := func(%s)%s {", n.Name, g.paramList(n.Params), ret)
		saved := g.locals
		g.locals = make(map[string]analysis.Type)
		for k, v := range saved {
			g.locals[k] = v
		}
		for _, p := range n.Params {
			g.locals[p.Name] = g.paramType(p)
		}
		g.block(n.Body)
		g.body.Line("}")
		g.locals = saved
		g.boxedResult = savedBoxed
		g.locals[n.Name] = analysis.TypeUnknown
	}
}

func (g *Generator) block(body []ast.Stmt) {
	g.body.In()
	g.stmts(body)
	g.body.Out()
}

func (g *Generator) assign(n *ast.AssignStmt) {
	val := g.expr(n.Value)
	if n.Object != "" {
		g.body.Line("%s.%s = %s", n.Object, goName(n.Target), val)
		return
	}
	if _, declared := g.locals[n.Target]; declared {
		g.body.Line("%s = %s", n.Target, val)
		return
	}
	g.locals[n.Target] = g.exprType(n.Value)
	g.body.Line("%s := %s", n.Target, val)
}

func (g *Generator) exprStmt(n *ast.ExprStmt) {
	// run() at statement level anchors the program's async entry.
	if call, ok := n.X.(*ast.CallExpr); ok {
		if kind := async.BuiltinCall(call); kind != async.NotBuiltin {
			if err := async.CheckBuiltin(kind, call); err != nil {
				g.errs = append(g.errs, err)
				return
			}
			if kind == async.BuiltinRun {
				g.runStmt(call)
				return
			}
		}
	}
	out := g.expr(n.X)
	if out == "" {
		return
	}
	// Call statements stand alone; anything else producing a value
	// must be explicitly discarded.
	if _, ok := n.X.(*ast.CallExpr); ok {
		g.body.Line("%s", out)
		return
	}
	g.body.Line("_ = %s", out)
}

func (g *Generator) forStmt(n *ast.ForStmt) {
	// range() lowers to a counted loop; everything else iterates a
	// boxed list.
	if call, ok := n.Iter.(*ast.CallExpr); ok {
		if name, ok := call.Callee.(*ast.NameExpr); ok && name.Name == "range" && len(call.Args) >= 1 {
			g.locals[n.Var] = analysis.TypeInt
			switch len(call.Args) {
			case 1:
				g.body.Line("for %s := int64(0); %s < %s; %s++ {", n.Var, n.Var, g.expr(call.Args[0]), n.Var)
			default:
				g.body.Line("for %s := %s; %s < %s; %s++ {", n.Var, g.expr(call.Args[0]), n.Var, g.expr(call.Args[1]), n.Var)
			}
			g.block(n.Body)
			g.body.Line("}")
			return
		}
	}
	g.needsRtval = true
	g.locals[n.Var] = analysis.TypeUnknown
	g.body.Line("for _, %s := range %s.AsList() {", n.Var, g.expr(n.Iter))
	g.block(n.Body)
	g.body.Line("}")
}

// runStmt emits the scheduler bootstrap for a top-level run() call.
// Inside an async context the threaded handle is reused instead of
// booting a second scheduler.
func (g *Generator) runStmt(call *ast.CallExpr) {
	g.needsSched = true
	inner := call.Args[0].(*ast.CallExpr)
	if g.schedVar != "" {
		if out := g.expr(inner); out != "" {
			g.body.Line("%s", out)
		}
		return
	}
	saved := g.schedVar
	g.schedVar = "__sched"
	g.body.Line("if _, err := sched.Run(func(__sched *sched.Scheduler) (struct{}, error) {")
	g.body.In()
	if out := g.expr(inner); out != "" {
		g.body.Line("%s", out)
	}
	g.body.Line("return struct{}{}, nil")
	g.body.Out()
	g.body.Line("}); err != nil {")
	g.body.In()
	g.body.Line("panic(err)")
	g.body.Out()
	g.body.Line("}")
	g.schedVar = saved
}

// ----- Expressions -----

func (g *Generator) nextTmp(prefix string) string {
	g.tmp++
	return fmt.Sprintf("__%s%d", prefix, g.tmp)
}

// cond renders an expression in boolean position.
func (g *Generator) cond(e ast.Expr) string {
	s := g.expr(e)
	if g.exprType(e) == analysis.TypeBool {
		return s
	}
	switch g.exprType(e) {
	case analysis.TypeInt:
		return s + " != 0"
	case analysis.TypeFloat:
		return s + " != 0"
	case analysis.TypeStr:
		return s + ` != ""`
	}
	g.needsRtval = true
	return "rtval.Box(" + s + ").Truthy()"
}

func (g *Generator) expr(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("int64(%d)", n.Value)
	case *ast.FloatLit:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case *ast.StringLit:
		return strconv.Quote(n.Value)
	case *ast.BoolLit:
		if n.Value {
			return "true"
		}
		return "false"
	case *ast.NoneLit:
		g.needsRtval = true
		return "rtval.None()"
	case *ast.NameExpr:
		return n.Name
	case *ast.ListLit:
		g.needsRtval = true
		parts := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			parts[i] = g.box(el)
		}
		return "rtval.List(" + strings.Join(parts, ", ") + ")"
	case *ast.DictLit:
		g.needsRtval = true
		var b strings.Builder
		b.WriteString("rtval.Dict(map[string]rtval.Value{")
		for i := range n.Keys {
			k, ok := n.Keys[i].(*ast.StringLit)
			if !ok {
				g.errs = append(g.errs, diag.Errorf(n.Pos(), diag.MalformedCallSite,
					"dict literals require string keys"))
				continue
			}
			fmt.Fprintf(&b, "%s: %s, ", strconv.Quote(k.Value), g.box(n.Values[i]))
		}
		b.WriteString("})")
		return b.String()
	case *ast.AttributeExpr:
		if base, ok := n.X.(*ast.NameExpr); ok {
			if pkg, ok := g.modules[base.Name]; ok {
				return pkg + "." + goName(n.Attr)
			}
		}
		return g.expr(n.X) + "." + goName(n.Attr)
	case *ast.IndexExpr:
		g.needsRtval = true
		return fmt.Sprintf("%s.AsList()[int(%s)]", g.expr(n.X), g.expr(n.Index))
	case *ast.UnaryExpr:
		if n.Op == "not" {
			return "!(" + g.cond(n.X) + ")"
		}
		return n.Op + g.expr(n.X)
	case *ast.BinaryExpr:
		return g.binary(n)
	case *ast.CallExpr:
		return g.call(n)
	case *ast.AwaitExpr:
		return g.await(n)
	}
	return ""
}

func (g *Generator) binary(n *ast.BinaryExpr) string {
	switch n.Op {
	case "and":
		return "(" + g.cond(n.Left) + " && " + g.cond(n.Right) + ")"
	case "or":
		return "(" + g.cond(n.Left) + " || " + g.cond(n.Right) + ")"
	}
	lt, rt := g.exprType(n.Left), g.exprType(n.Right)
	if !settledOperands(n.Op, lt, rt) {
		// At least one operand's representation is open: box both
		// sides and dispatch through the runtime.
		g.needsRtval = true
		l, r := g.box(n.Left), g.box(n.Right)
		switch n.Op {
		case "==", "!=", "<", "<=", ">", ">=":
			return fmt.Sprintf("rtval.CompareOp(%q, %s, %s)", n.Op, l, r)
		}
		return fmt.Sprintf("rtval.BinOp(%q, %s, %s)", n.Op, l, r)
	}
	l, r := g.expr(n.Left), g.expr(n.Right)

	// Division is float division regardless of operand types.
	if n.Op == "/" && lt == analysis.TypeInt && rt == analysis.TypeInt {
		return fmt.Sprintf("(float64(%s) / float64(%s))", l, r)
	}
	// Mixed numeric operands widen to float.
	if lt == analysis.TypeInt && rt == analysis.TypeFloat {
		l = "float64(" + l + ")"
	}
	if lt == analysis.TypeFloat && rt == analysis.TypeInt {
		r = "float64(" + r + ")"
	}
	return fmt.Sprintf("(%s %s %s)", l, n.Op, r)
}

// settledOperands reports whether the raw Go operator can act on both
// operand types directly. Anything else routes through the runtime's
// dynamic operators.
func settledOperands(op string, lt, rt analysis.Type) bool {
	numeric := func(t analysis.Type) bool {
		return t == analysis.TypeInt || t == analysis.TypeFloat
	}
	if numeric(lt) && numeric(rt) {
		// Go has no float remainder operator.
		if op == "%" {
			return lt == analysis.TypeInt && rt == analysis.TypeInt
		}
		return true
	}
	if lt != rt {
		return false
	}
	switch lt {
	case analysis.TypeStr:
		switch op {
		case "+", "==", "!=", "<", "<=", ">", ">=":
			return true
		}
	case analysis.TypeBool:
		return op == "==" || op == "!="
	}
	return false
}

// box wraps an expression into a boxed value based on its static
// type.
func (g *Generator) box(e ast.Expr) string {
	g.needsRtval = true
	// Dynamic arithmetic already yields a boxed value.
	if b, ok := e.(*ast.BinaryExpr); ok {
		switch b.Op {
		case "+", "-", "*", "/", "%":
			if !settledOperands(b.Op, g.exprType(b.Left), g.exprType(b.Right)) {
				return g.expr(e)
			}
		}
	}
	s := g.expr(e)
	switch g.exprType(e) {
	case analysis.TypeInt:
		return "rtval.Int(" + s + ")"
	case analysis.TypeFloat:
		return "rtval.Float(" + s + ")"
	case analysis.TypeStr:
		return "rtval.Str(" + s + ")"
	case analysis.TypeBool:
		return "rtval.Bool(" + s + ")"
	case analysis.TypeNone, analysis.TypeList, analysis.TypeDict:
		return s
	}
	return "rtval.Box(" + s + ")"
}

// ----- Calls -----

func (g *Generator) call(n *ast.CallExpr) string {
	if kind := async.BuiltinCall(n); kind != async.NotBuiltin {
		if err := async.CheckBuiltin(kind, n); err != nil {
			g.errs = append(g.errs, err)
			return ""
		}
		switch kind {
		case async.BuiltinSleep:
			return g.sleepCall(n)
		case async.BuiltinGather:
			return g.gatherCall(n)
		case async.BuiltinRun:
			g.errs = append(g.errs, diag.Errorf(n.Pos(), diag.MalformedCallSite,
				"run is only valid as a top-level statement"))
			return ""
		case async.BuiltinCreateTask:
			task, _ := g.spawnCall(n.Args[0].(*ast.CallExpr))
			return task
		}
	}

	switch callee := n.Callee.(type) {
	case *ast.NameExpr:
		return g.namedCall(callee.Name, n)
	case *ast.AttributeExpr:
		return g.methodCall(callee, n)
	}
	return g.expr(n.Callee) + "(" + g.args(n.Args) + ")"
}

func (g *Generator) args(exprs []ast.Expr) string {
	parts := make([]string, len(exprs))
	for i, a := range exprs {
		parts[i] = g.expr(a)
	}
	return strings.Join(parts, ", ")
}

func (g *Generator) namedCall(name string, n *ast.CallExpr) string {
	switch name {
	case "print":
		g.needsFmt = true
		return "fmt.Println(" + g.args(n.Args) + ")"
	case "len":
		if len(n.Args) == 1 {
			switch g.exprType(n.Args[0]) {
			case analysis.TypeStr:
				return "int64(len(" + g.expr(n.Args[0]) + "))"
			}
			g.needsRtval = true
			return "int64(len(" + g.expr(n.Args[0]) + ".AsList()))"
		}
	case "str":
		if len(n.Args) == 1 {
			g.needsFmt = true
			return "fmt.Sprint(" + g.expr(n.Args[0]) + ")"
		}
	case "int":
		if len(n.Args) == 1 {
			return "int64(" + g.expr(n.Args[0]) + ")"
		}
	case "float":
		if len(n.Args) == 1 {
			return "float64(" + g.expr(n.Args[0]) + ")"
		}
	}

	// Constructor call.
	if g.info.Classes.Class(name) != nil {
		return "New" + goName(name) + "(" + g.args(n.Args) + ")"
	}

	// User function. Scheduled async callees need the handle.
	if fn, ok := g.info.Funcs[name]; ok {
		if fn.IsAsync && g.classifier.Classify(name) == async.Complex {
			g.needsSched = true
			if g.schedVar == "" {
				g.errs = append(g.errs, diag.Errorf(n.Pos(), diag.MalformedCallSite,
					"async function %q called outside an async context", name))
				return ""
			}
			callArgs := g.schedVar
			if len(n.Args) > 0 {
				callArgs += ", " + g.args(n.Args)
			}
			return goName(name) + "(" + callArgs + ")"
		}
		return goName(name) + "(" + g.args(n.Args) + ")"
	}

	g.errs = append(g.errs, diag.Errorf(n.Pos(), diag.UnresolvedIdentifier,
		"call to undefined function %q", name))
	return ""
}

func (g *Generator) methodCall(callee *ast.AttributeExpr, n *ast.CallExpr) string {
	// Module-qualified calls go straight to the runtime package.
	if base, ok := callee.X.(*ast.NameExpr); ok {
		if pkg, ok := g.modules[base.Name]; ok {
			return pkg + "." + goName(callee.Attr) + "(" + g.args(n.Args) + ")"
		}
	}

	recvType := g.exprType(callee.X)
	d := g.info.Classes.ResolveDispatch(recvType, callee.Attr)
	if d.Kind == analysis.StaticDispatch {
		callArgs := g.args(n.Args)
		// Scheduled async methods take the handle first, mirroring
		// their declarations.
		if g.methodScheduled(string(recvType), callee.Attr) {
			g.needsSched = true
			if g.schedVar == "" {
				g.errs = append(g.errs, diag.Errorf(n.Pos(), diag.MalformedCallSite,
					"async method %q called outside an async context", callee.Attr))
				return ""
			}
			if callArgs != "" {
				callArgs = g.schedVar + ", " + callArgs
			} else {
				callArgs = g.schedVar
			}
		}
		return g.expr(callee.X) + "." + goName(callee.Attr) + "(" + callArgs + ")"
	}

	// Dynamic fallback: route through the generated dispatch helper.
	g.dynCalls[callee.Attr] = true
	recv := g.expr(callee.X)
	if recvType != analysis.TypeUnknown && !recvType.IsClass() {
		g.errs = append(g.errs, diag.Errorf(n.Pos(), diag.UnresolvedMethod,
			"no method %q on %s", callee.Attr, recvType))
		return ""
	}
	callArgs := recv
	if g.dynScheduled(callee.Attr) {
		g.needsSched = true
		if g.schedVar == "" {
			g.errs = append(g.errs, diag.Errorf(n.Pos(), diag.MalformedCallSite,
				"async method %q called outside an async context", callee.Attr))
			return ""
		}
		callArgs = g.schedVar + ", " + recv
	}
	if len(n.Args) > 0 {
		callArgs += ", " + g.args(n.Args)
	}
	return "__dyn" + goName(callee.Attr) + "(" + callArgs + ")"
}

// ----- Async lowering -----

func (g *Generator) await(n *ast.AwaitExpr) string {
	call, ok := n.X.(*ast.CallExpr)
	if !ok {
		g.errs = append(g.errs, diag.Errorf(n.Pos(), diag.MalformedCallSite,
			"await requires a call expression"))
		return ""
	}
	// Awaited scheduler builtins block in place.
	if kind := async.BuiltinCall(call); kind != async.NotBuiltin {
		if err := async.CheckBuiltin(kind, call); err != nil {
			g.errs = append(g.errs, err)
			return ""
		}
		switch kind {
		case async.BuiltinSleep:
			return g.sleepCall(call)
		case async.BuiltinGather:
			return g.gatherCall(call)
		}
	}

	low := g.classifier.Lower(n)
	if low.Mode == async.Inline {
		// Non-suspending callee: a plain call, no task and no
		// scheduler.
		return g.expr(call)
	}
	task, resType := g.spawnCall(call)
	if task == "" {
		return ""
	}
	return g.waitTask(task, resType)
}

// spawnCall emits a spawn for the given call and returns the task
// variable name plus the result type the closure was typed with.
func (g *Generator) spawnCall(call *ast.CallExpr) (string, analysis.Type) {
	g.needsSched = true
	if g.schedVar == "" {
		g.errs = append(g.errs, diag.Errorf(call.Pos(), diag.MalformedCallSite,
			"spawn outside an async context"))
		return "", analysis.TypeUnknown
	}
	resType := g.exprType(call)
	if resType == analysis.TypeUnknown {
		if name, ok := call.Callee.(*ast.NameExpr); ok {
			if fn, ok := g.info.Funcs[name.Name]; ok && fn.ReturnAnnot == "" && !returnsValue(fn.Body) {
				resType = analysis.TypeNone
			}
		}
	}
	inner := g.expr(call)
	task := g.nextTmp("task")
	switch {
	case resType == analysis.TypeNone:
		g.body.Line("%s := sched.Spawn(%s, func() (struct{}, error) {", task, g.schedVar)
		g.body.In()
		g.body.Line("%s", inner)
		g.body.Line("return struct{}{}, nil")
	case g.goType(resType) == "rtval.Value":
		// The call's representation is open; box whatever comes back.
		g.needsRtval = true
		g.body.Line("%s := sched.Spawn(%s, func() (rtval.Value, error) {", task, g.schedVar)
		g.body.In()
		g.body.Line("return rtval.Box(%s), nil", inner)
	default:
		g.body.Line("%s := sched.Spawn(%s, func() (%s, error) {", task, g.schedVar, g.goType(resType))
		g.body.In()
		g.body.Line("return %s, nil", inner)
	}
	g.body.Out()
	g.body.Line("})")
	return task, resType
}

// waitTask emits the wait and extraction for a spawned task and
// returns the result variable.
func (g *Generator) waitTask(task string, resType analysis.Type) string {
	v := g.nextTmp("v")
	errVar := g.nextTmp("err")
	g.body.Line("%s, %s := %s.Wait()", v, errVar, task)
	g.body.Line("if %s != nil {", errVar)
	g.body.In()
	g.body.Line("panic(%s)", errVar)
	g.body.Out()
	g.body.Line("}")
	if resType == analysis.TypeNone {
		g.body.Line("_ = %s", v)
		return ""
	}
	return v
}

func (g *Generator) sleepCall(call *ast.CallExpr) string {
	g.needsSched = true
	if g.schedVar == "" {
		g.errs = append(g.errs, diag.Errorf(call.Pos(), diag.MalformedCallSite,
			"sleep outside an async context"))
		return ""
	}
	arg := g.expr(call.Args[0])
	if g.exprType(call.Args[0]) == analysis.TypeInt {
		arg = "float64(" + arg + ")"
	}
	g.body.Line("%s.Sleep(%s)", g.schedVar, arg)
	return ""
}

// gatherCall emits a gather over the argument calls and returns the
// boxed results variable.
func (g *Generator) gatherCall(call *ast.CallExpr) string {
	g.needsSched = true
	g.needsRtval = true
	if g.schedVar == "" {
		g.errs = append(g.errs, diag.Errorf(call.Pos(), diag.MalformedCallSite,
			"gather outside an async context"))
		return ""
	}
	results := g.nextTmp("g")
	errVar := g.nextTmp("err")
	g.body.Line("%s, %s := sched.Gather(%s,", results, errVar, g.schedVar)
	g.body.In()
	for _, arg := range call.Args {
		inner := arg.(*ast.CallExpr)
		t := g.exprType(inner)
		g.body.Line("func() (rtval.Value, error) {")
		g.body.In()
		switch t {
		case analysis.TypeNone:
			g.body.Line("%s", g.expr(inner))
			g.body.Line("return rtval.None(), nil")
		case analysis.TypeInt:
			g.body.Line("return rtval.Int(%s), nil", g.expr(inner))
		case analysis.TypeFloat:
			g.body.Line("return rtval.Float(%s), nil", g.expr(inner))
		case analysis.TypeStr:
			g.body.Line("return rtval.Str(%s), nil", g.expr(inner))
		case analysis.TypeBool:
			g.body.Line("return rtval.Bool(%s), nil", g.expr(inner))
		default:
			g.body.Line("return rtval.Box(%s), nil", g.expr(inner))
		}
		g.body.Out()
		g.body.Line("},")
	}
	g.body.Out()
	g.body.Line(")")
	g.body.Line("if %s != nil {", errVar)
	g.body.In()
	g.body.Line("panic(%s)", errVar)
	g.body.Out()
	g.body.Line("}")
	g.needsRtval = true
	return "rtval.List(" + results + "...)"
}

// ----- Dynamic dispatch helpers -----

// dynHelpers emits one dispatch function per method name that was
// called through the dynamic fallback path. Each helper type-switches
// over every class defining the method.
func (g *Generator) dynHelpers(mod *ast.Module) {
	if len(g.dynCalls) == 0 {
		return
	}
	names := make([]string, 0, len(g.dynCalls))
	for name := range g.dynCalls {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, method := range names {
		var classes []string
		var def *ast.FuncDef
		for _, cd := range mod.Classes {
			if g.info.Classes.HasMethod(cd.Name, method) {
				classes = append(classes, cd.Name)
				if def == nil {
					if m := findMethod(cd, method); m != nil {
						def = m
					}
				}
			}
		}
		sort.Strings(classes)
		g.dynHelper(method, classes, def)
	}
}

func (g *Generator) dynHelper(method string, classes []string, def *ast.FuncDef) {
	var params []*ast.Param
	if def != nil && len(def.Params) > 0 {
		params = def.Params[1:]
	}

	// Per-class result types decide the helper's own result: one
	// uniform concrete type passes through, anything mixed or open is
	// boxed per case.
	retTypes := make(map[string]analysis.Type, len(classes))
	uniform := analysis.TypeNone
	mixed := false
	for i, class := range classes {
		t := g.methodReturnType(class, method)
		retTypes[class] = t
		if i == 0 {
			uniform = t
		} else if t != uniform {
			mixed = true
		}
	}
	boxed := mixed || uniform == analysis.TypeUnknown ||
		uniform == analysis.TypeList || uniform == analysis.TypeDict
	ret := ""
	switch {
	case boxed:
		g.needsRtval = true
		ret = "rtval.Value"
	case uniform != analysis.TypeNone:
		ret = g.goType(uniform)
	}

	scheduled := g.dynScheduled(method)
	sig := "func __dyn" + goName(method) + "(__recv any"
	if scheduled {
		g.needsSched = true
		sig = "func __dyn" + goName(method) + "(__sched *sched.Scheduler, __recv any"
	}
	if p := g.paramList(params); p != "" {
		sig += ", " + p
	}
	sig += ")"
	if ret != "" {
		sig += " " + ret
	}
	g.body.Line("%s {", sig)
	g.body.In()
	argNames := make([]string, len(params))
	for i, p := range params {
		argNames[i] = p.Name
	}
	g.body.Line("switch r := __recv.(type) {")
	for _, class := range classes {
		callArgs := strings.Join(argNames, ", ")
		if g.methodScheduled(class, method) {
			if callArgs != "" {
				callArgs = "__sched, " + callArgs
			} else {
				callArgs = "__sched"
			}
		}
		call := fmt.Sprintf("r.%s(%s)", goName(method), callArgs)
		g.body.Line("case *%s:", goName(class))
		g.body.In()
		switch {
		case ret == "":
			g.body.Line("%s", call)
			g.body.Line("return")
		case boxed && retTypes[class] == analysis.TypeNone:
			g.body.Line("%s", call)
			g.body.Line("return rtval.None()")
		case boxed:
			g.body.Line("return rtval.Box(%s)", call)
		default:
			g.body.Line("return %s", call)
		}
		g.body.Out()
	}
	g.body.Line("default:")
	g.body.In()
	g.needsFmt = true
	g.body.Line(`panic(fmt.Sprintf("no method %s on %%T", r))`, method)
	g.body.Out()
	g.body.Line("}")
	g.body.Out()
	g.body.Line("}")
	g.body.Blank()
}

// ----- Local type inference -----

// exprType mirrors the analyzer's inference for emission decisions,
// consulting locals, function returns, and literals.
func (g *Generator) exprType(e ast.Expr) analysis.Type {
	switch n := e.(type) {
	case *ast.IntLit:
		return analysis.TypeInt
	case *ast.FloatLit:
		return analysis.TypeFloat
	case *ast.StringLit:
		return analysis.TypeStr
	case *ast.BoolLit:
		return analysis.TypeBool
	case *ast.NoneLit:
		return analysis.TypeNone
	case *ast.ListLit:
		return analysis.TypeList
	case *ast.DictLit:
		return analysis.TypeDict
	case *ast.NameExpr:
		if t, ok := g.locals[n.Name]; ok {
			return t
		}
		return analysis.TypeUnknown
	case *ast.AwaitExpr:
		return g.exprType(n.X)
	case *ast.CallExpr:
		if name, ok := n.Callee.(*ast.NameExpr); ok {
			if g.info.Classes.Class(name.Name) != nil {
				return analysis.Type(name.Name)
			}
			if t := g.info.ReturnType(name.Name); t != analysis.TypeUnknown {
				return t
			}
			switch name.Name {
			case "len", "int":
				return analysis.TypeInt
			case "float":
				return analysis.TypeFloat
			case "str":
				return analysis.TypeStr
			}
		}
		if attr, ok := n.Callee.(*ast.AttributeExpr); ok {
			if bt := g.exprType(attr.X); bt.IsClass() {
				return g.methodReturnType(string(bt), attr.Attr)
			}
		}
		return analysis.TypeUnknown
	case *ast.BinaryExpr:
		switch n.Op {
		case "==", "!=", "<", "<=", ">", ">=", "and", "or":
			return analysis.TypeBool
		case "/":
			if settledOperands(n.Op, g.exprType(n.Left), g.exprType(n.Right)) {
				return analysis.TypeFloat
			}
			return analysis.TypeUnknown
		}
		lt, rt := g.exprType(n.Left), g.exprType(n.Right)
		if lt == analysis.TypeFloat || rt == analysis.TypeFloat {
			return analysis.TypeFloat
		}
		if lt == analysis.TypeInt && rt == analysis.TypeInt {
			return analysis.TypeInt
		}
		if lt == analysis.TypeStr && rt == analysis.TypeStr {
			return analysis.TypeStr
		}
		return analysis.TypeUnknown
	case *ast.UnaryExpr:
		if n.Op == "not" {
			return analysis.TypeBool
		}
		return g.exprType(n.X)
	case *ast.AttributeExpr:
		if bt := g.exprType(n.X); bt.IsClass() {
			return g.fieldType(string(bt), n.Attr)
		}
		return analysis.TypeUnknown
	}
	return analysis.TypeUnknown
}

// fieldType resolves an instance field's type, ascending the parent
// chain for inherited fields.
func (g *Generator) fieldType(class, attr string) analysis.Type {
	visited := make(map[string]bool)
	for class != "" && !visited[class] {
		visited[class] = true
		if fts, ok := g.fieldTypes[class]; ok {
			if t, ok := fts[attr]; ok {
				return t
			}
		}
		class = g.info.Classes.Parent(class)
	}
	return analysis.TypeUnknown
}

// methodReturnType resolves the return type of method on class
// through the dispatch chain, using the defining class's inference.
func (g *Generator) methodReturnType(class, method string) analysis.Type {
	mi := g.info.Classes.FindMethod(class, method)
	if mi == nil {
		return analysis.TypeUnknown
	}
	key := mi.ClassName + "." + method
	if t := g.info.ReturnType(key); t != analysis.TypeUnknown {
		return t
	}
	if fn, ok := g.info.Funcs[key]; ok {
		if fn.ReturnAnnot != "" {
			return analysis.AnnotType(fn.ReturnAnnot)
		}
		if !returnsValue(fn.Body) {
			return analysis.TypeNone
		}
	}
	return analysis.TypeUnknown
}

// methodScheduled reports whether the implementation method resolves
// to on class takes the scheduler handle.
func (g *Generator) methodScheduled(class, method string) bool {
	mi := g.info.Classes.FindMethod(class, method)
	if mi == nil {
		return false
	}
	key := mi.ClassName + "." + method
	fn, ok := g.info.Funcs[key]
	return ok && fn.IsAsync && g.classifier.Classify(key) == async.Complex
}

// dynScheduled reports whether any class's implementation of method
// is scheduled, which forces the dispatch helper to carry the handle.
func (g *Generator) dynScheduled(method string) bool {
	for _, class := range g.info.Classes.Names() {
		if g.methodScheduled(class, method) {
			return true
		}
	}
	return false
}
