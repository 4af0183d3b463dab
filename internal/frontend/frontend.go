// Package frontend parses source files into the syntax tree the
// analysis passes consume. Parsing is delegated to tree-sitter with
// the Python grammar; this package only converts the concrete tree
// into the internal one.
package frontend

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"auriga/internal/ast"
	"auriga/internal/diag"
	"auriga/internal/token"
)

// Parser converts source files into modules. Not safe for concurrent
// use; the pipeline gives each worker its own parser.
type Parser struct {
	inner *sitter.Parser
}

func NewParser() (*Parser, error) {
	p := sitter.NewParser()
	if err := p.SetLanguage(sitter.NewLanguage(tree_sitter_python.Language())); err != nil {
		p.Close()
		return nil, fmt.Errorf("load grammar: %w", err)
	}
	return &Parser{inner: p}, nil
}

func (p *Parser) Close() {
	p.inner.Close()
}

// ParseFile parses one source file into a module named after the
// file.
func (p *Parser) ParseFile(path string) (*ast.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.Parse(src, name, path)
}

// Parse parses source into a module.
func (p *Parser) Parse(src []byte, name, path string) (*ast.Module, error) {
	tree := p.inner.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse %s: no tree produced", name)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if err := firstSyntaxError(root, src); err != nil {
			return nil, err
		}
	}

	c := &converter{src: src}
	mod := &ast.Module{Name: name, Path: path}
	for i := uint(0); i < root.NamedChildCount(); i++ {
		c.topLevel(mod, root.NamedChild(i))
	}
	if len(c.errs) > 0 {
		return nil, c.errs[0]
	}
	return mod, nil
}

// firstSyntaxError locates the first error node so the diagnostic
// carries a real position.
func firstSyntaxError(n *sitter.Node, src []byte) error {
	if n.Kind() == "ERROR" || n.IsMissing() {
		return diag.Errorf(pos(n), diag.SyntaxError, "invalid syntax near %q", clip(text(n, src)))
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if err := firstSyntaxError(n.NamedChild(i), src); err != nil {
			return err
		}
	}
	return nil
}

func clip(s string) string {
	if len(s) > 20 {
		return s[:20]
	}
	return s
}

// ----- Conversion -----

type converter struct {
	src  []byte
	errs []error
}

func pos(n *sitter.Node) token.Position {
	p := n.StartPosition()
	return token.Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func text(n *sitter.Node, src []byte) string {
	return string(src[n.StartByte():n.EndByte()])
}

func (c *converter) text(n *sitter.Node) string {
	return text(n, c.src)
}

func (c *converter) errorf(n *sitter.Node, code diag.Code, format string, args ...any) {
	c.errs = append(c.errs, diag.Errorf(pos(n), code, format, args...))
}

func (c *converter) topLevel(mod *ast.Module, n *sitter.Node) {
	switch n.Kind() {
	case "import_statement":
		mod.Imports = append(mod.Imports, c.importStmt(n)...)
	case "function_definition":
		if fn := c.funcDef(n); fn != nil {
			mod.Funcs = append(mod.Funcs, fn)
		}
	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil && def.Kind() == "function_definition" {
			if fn := c.funcDef(def); fn != nil {
				fn.IsStatic = c.hasDecorator(n, "staticmethod")
				mod.Funcs = append(mod.Funcs, fn)
			}
		}
	case "class_definition":
		if cd := c.classDef(n); cd != nil {
			mod.Classes = append(mod.Classes, cd)
		}
	case "comment":
	default:
		if s := c.stmt(n); s != nil {
			mod.Body = append(mod.Body, s)
		}
	}
}

func (c *converter) importStmt(n *sitter.Node) []*ast.ImportStmt {
	var out []*ast.ImportStmt
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "dotted_name":
			out = append(out, &ast.ImportStmt{ImportPos: pos(n), Module: c.text(child)})
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			imp := &ast.ImportStmt{ImportPos: pos(n), Module: c.text(name)}
			if alias != nil {
				imp.Alias = c.text(alias)
			}
			out = append(out, imp)
		}
	}
	return out
}

func (c *converter) hasDecorator(decorated *sitter.Node, name string) bool {
	for i := uint(0); i < decorated.NamedChildCount(); i++ {
		child := decorated.NamedChild(i)
		if child.Kind() == "decorator" && strings.Contains(c.text(child), name) {
			return true
		}
	}
	return false
}

func (c *converter) funcDef(n *sitter.Node) *ast.FuncDef {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		c.errorf(n, diag.SyntaxError, "function definition without a name")
		return nil
	}
	fn := &ast.FuncDef{
		Name:    c.text(nameNode),
		NamePos: pos(nameNode),
		IsAsync: c.isAsync(n),
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		fn.Params = c.params(params)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		fn.ReturnAnnot = c.text(ret)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fn.Body = c.block(body)
	}
	return fn
}

// isAsync checks for the async keyword preceding def.
func (c *converter) isAsync(n *sitter.Node) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child.Kind() == "async" {
			return true
		}
		if child.Kind() == "def" {
			return false
		}
	}
	return false
}

func (c *converter) params(n *sitter.Node) []*ast.Param {
	var out []*ast.Param
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "identifier":
			out = append(out, &ast.Param{Name: c.text(child), NamePos: pos(child)})
		case "typed_parameter":
			// first named child is the name, field "type" the annotation
			p := &ast.Param{NamePos: pos(child)}
			if child.NamedChildCount() > 0 {
				p.Name = c.text(child.NamedChild(0))
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Annot = c.text(t)
			}
			out = append(out, p)
		case "default_parameter", "typed_default_parameter":
			p := &ast.Param{NamePos: pos(child)}
			if name := child.ChildByFieldName("name"); name != nil {
				p.Name = c.text(name)
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Annot = c.text(t)
			}
			if v := child.ChildByFieldName("value"); v != nil {
				p.Default = c.expr(v)
			}
			out = append(out, p)
		}
	}
	return out
}

func (c *converter) classDef(n *sitter.Node) *ast.ClassDef {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		c.errorf(n, diag.SyntaxError, "class definition without a name")
		return nil
	}
	cd := &ast.ClassDef{Name: c.text(nameNode), NamePos: pos(nameNode)}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := uint(0); i < supers.NamedChildCount(); i++ {
			arg := supers.NamedChild(i)
			if arg.Kind() == "identifier" {
				cd.Bases = append(cd.Bases, c.text(arg))
			}
		}
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return cd
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		child := body.NamedChild(i)
		switch child.Kind() {
		case "function_definition":
			if m := c.funcDef(child); m != nil {
				cd.Methods = append(cd.Methods, m)
			}
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil && def.Kind() == "function_definition" {
				if m := c.funcDef(def); m != nil {
					m.IsStatic = c.hasDecorator(child, "staticmethod")
					cd.Methods = append(cd.Methods, m)
				}
			}
		case "expression_statement":
			if s := c.stmt(child); s != nil {
				if a, ok := s.(*ast.AssignStmt); ok {
					cd.Attrs = append(cd.Attrs, a)
				}
			}
		}
	}
	return cd
}

// ----- Statements -----

func (c *converter) block(n *sitter.Node) []ast.Stmt {
	var out []ast.Stmt
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child.Kind() == "function_definition" {
			if fn := c.funcDef(child); fn != nil {
				out = append(out, fn)
			}
			continue
		}
		if s := c.stmt(child); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *converter) stmt(n *sitter.Node) ast.Stmt {
	switch n.Kind() {
	case "expression_statement":
		if n.NamedChildCount() == 0 {
			return nil
		}
		inner := n.NamedChild(0)
		if inner.Kind() == "assignment" || inner.Kind() == "augmented_assignment" {
			return c.assign(inner)
		}
		x := c.expr(inner)
		if x == nil {
			return nil
		}
		return &ast.ExprStmt{X: x}
	case "return_statement":
		s := &ast.ReturnStmt{ReturnPos: pos(n)}
		if n.NamedChildCount() > 0 {
			s.Result = c.expr(n.NamedChild(0))
		}
		return s
	case "if_statement":
		return c.ifStmt(n)
	case "while_statement":
		return &ast.WhileStmt{
			WhilePos: pos(n),
			Cond:     c.expr(n.ChildByFieldName("condition")),
			Body:     c.block(n.ChildByFieldName("body")),
		}
	case "for_statement":
		left := n.ChildByFieldName("left")
		if left == nil || left.Kind() != "identifier" {
			c.errorf(n, diag.SyntaxError, "for loops require a single loop variable")
			return nil
		}
		return &ast.ForStmt{
			ForPos: pos(n),
			Var:    c.text(left),
			Iter:   c.expr(n.ChildByFieldName("right")),
			Body:   c.block(n.ChildByFieldName("body")),
		}
	case "pass_statement", "comment":
		return nil
	}
	c.errorf(n, diag.SyntaxError, "unsupported statement %q", n.Kind())
	return nil
}

func (c *converter) ifStmt(n *sitter.Node) ast.Stmt {
	s := &ast.IfStmt{
		IfPos: pos(n),
		Cond:  c.expr(n.ChildByFieldName("condition")),
		Then:  c.block(n.ChildByFieldName("consequence")),
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		switch child.Kind() {
		case "elif_clause":
			nested := &ast.IfStmt{
				IfPos: pos(child),
				Cond:  c.expr(child.ChildByFieldName("condition")),
				Then:  c.block(child.ChildByFieldName("consequence")),
			}
			s.Else = append(s.Else, nested)
		case "else_clause":
			s.Else = append(s.Else, c.block(child.ChildByFieldName("body"))...)
		}
	}
	return s
}

func (c *converter) assign(n *sitter.Node) ast.Stmt {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	s := &ast.AssignStmt{TargetPos: pos(n)}
	switch left.Kind() {
	case "identifier":
		s.Target = c.text(left)
	case "attribute":
		obj := left.ChildByFieldName("object")
		attr := left.ChildByFieldName("attribute")
		if obj.Kind() != "identifier" {
			c.errorf(left, diag.SyntaxError, "unsupported assignment target")
			return nil
		}
		s.Object = c.text(obj)
		s.Target = c.text(attr)
	default:
		c.errorf(left, diag.SyntaxError, "unsupported assignment target %q", left.Kind())
		return nil
	}
	if t := n.ChildByFieldName("type"); t != nil {
		s.Annot = c.text(t)
	}
	if n.Kind() == "augmented_assignment" {
		// x += e desugars to x = x + e.
		op := strings.TrimSuffix(c.text(n.ChildByFieldName("operator")), "=")
		s.Value = &ast.BinaryExpr{Left: c.expr(left), Op: op, Right: c.expr(right)}
		return s
	}
	if right != nil {
		s.Value = c.expr(right)
	}
	return s
}

// ----- Expressions -----

func (c *converter) expr(n *sitter.Node) ast.Expr {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "identifier":
		return &ast.NameExpr{NamePos: pos(n), Name: c.text(n)}
	case "integer":
		// Base 0 covers hex, octal, binary, and underscore grouping.
		v, err := strconv.ParseInt(c.text(n), 0, 64)
		if err != nil {
			c.errs = append(c.errs, diag.Errorf(pos(n), diag.SyntaxError,
				"invalid integer literal %q", c.text(n)))
		}
		return &ast.IntLit{LitPos: pos(n), Value: v}
	case "float":
		v, err := strconv.ParseFloat(strings.ReplaceAll(c.text(n), "_", ""), 64)
		if err != nil {
			c.errs = append(c.errs, diag.Errorf(pos(n), diag.SyntaxError,
				"invalid float literal %q", c.text(n)))
		}
		return &ast.FloatLit{LitPos: pos(n), Value: v}
	case "string":
		return &ast.StringLit{LitPos: pos(n), Value: stringContent(n, c.src)}
	case "true":
		return &ast.BoolLit{LitPos: pos(n), Value: true}
	case "false":
		return &ast.BoolLit{LitPos: pos(n), Value: false}
	case "none":
		return &ast.NoneLit{LitPos: pos(n)}
	case "attribute":
		return &ast.AttributeExpr{
			X:    c.expr(n.ChildByFieldName("object")),
			Attr: c.text(n.ChildByFieldName("attribute")),
		}
	case "call":
		return c.call(n)
	case "await":
		return &ast.AwaitExpr{AwaitPos: pos(n), X: c.expr(n.NamedChild(0))}
	case "binary_operator", "comparison_operator", "boolean_operator":
		return c.binary(n)
	case "not_operator":
		return &ast.UnaryExpr{OpPos: pos(n), Op: "not", X: c.expr(n.NamedChild(0))}
	case "unary_operator":
		return &ast.UnaryExpr{
			OpPos: pos(n),
			Op:    c.text(n.ChildByFieldName("operator")),
			X:     c.expr(n.ChildByFieldName("argument")),
		}
	case "subscript":
		return &ast.IndexExpr{
			X:     c.expr(n.ChildByFieldName("value")),
			Index: c.expr(n.ChildByFieldName("subscript")),
		}
	case "parenthesized_expression":
		return c.expr(n.NamedChild(0))
	case "list":
		l := &ast.ListLit{LitPos: pos(n)}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			l.Elements = append(l.Elements, c.expr(n.NamedChild(i)))
		}
		return l
	case "dictionary":
		d := &ast.DictLit{LitPos: pos(n)}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			pair := n.NamedChild(i)
			if pair.Kind() != "pair" {
				continue
			}
			d.Keys = append(d.Keys, c.expr(pair.ChildByFieldName("key")))
			d.Values = append(d.Values, c.expr(pair.ChildByFieldName("value")))
		}
		return d
	}
	c.errorf(n, diag.SyntaxError, "unsupported expression %q", n.Kind())
	return nil
}

func (c *converter) call(n *sitter.Node) ast.Expr {
	call := &ast.CallExpr{Callee: c.expr(n.ChildByFieldName("function"))}
	if args := n.ChildByFieldName("arguments"); args != nil {
		for i := uint(0); i < args.NamedChildCount(); i++ {
			arg := args.NamedChild(i)
			if arg.Kind() == "comment" {
				continue
			}
			call.Args = append(call.Args, c.expr(arg))
		}
	}
	return call
}

func (c *converter) binary(n *sitter.Node) ast.Expr {
	var left, right *sitter.Node
	op := ""
	if l := n.ChildByFieldName("left"); l != nil {
		left = l
	}
	if r := n.ChildByFieldName("right"); r != nil {
		right = r
	}
	if o := n.ChildByFieldName("operator"); o != nil {
		op = c.text(o)
	} else if n.NamedChildCount() == 2 {
		// comparison_operator keeps its operator as an anonymous
		// child between the operands.
		left = n.NamedChild(0)
		right = n.NamedChild(1)
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			if !child.IsNamed() {
				op = c.text(child)
				break
			}
		}
	}
	return &ast.BinaryExpr{Left: c.expr(left), Op: op, Right: c.expr(right)}
}

// stringContent strips the surrounding quotes from a string literal.
func stringContent(n *sitter.Node, src []byte) string {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child.Kind() == "string_content" {
			return text(child, src)
		}
	}
	s := text(n, src)
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
