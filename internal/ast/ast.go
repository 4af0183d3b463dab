package ast

import "auriga/internal/token"

// Basic interfaces

type Node interface {
	Pos() token.Position
}

type Stmt interface {
	Node
	stmtNode()
}

type Expr interface {
	Node
	exprNode()
}

// Module

// Module is one parsed source file.
type Module struct {
	Name    string // module name derived from the file name, e.g. "main"
	Path    string // source file path (may be "" for synthetic modules)
	Imports []*ImportStmt
	Funcs   []*FuncDef
	Classes []*ClassDef
	Body    []Stmt // top-level statements outside any def/class
}

func (m *Module) Pos() token.Position {
	if len(m.Body) > 0 {
		return m.Body[0].Pos()
	}
	if len(m.Funcs) > 0 {
		return m.Funcs[0].Pos()
	}
	return token.Position{}
}

type ImportStmt struct {
	ImportPos token.Position
	Module    string // e.g. "json", "asyncio"
	Alias     string // may be "", meaning "use the module name"
}

func (s *ImportStmt) Pos() token.Position { return s.ImportPos }
func (s *ImportStmt) stmtNode()           {}

// FuncDef / Param

type FuncDef struct {
	Name    string
	NamePos token.Position
	Params  []*Param
	Body    []Stmt
	IsAsync bool // declared with "async def"
	// Decorated with @staticmethod when defined inside a class.
	IsStatic bool
	// Annotated return type name, "" when absent. The analyzer may
	// refine this via inference.
	ReturnAnnot string
}

func (f *FuncDef) Pos() token.Position { return f.NamePos }
func (f *FuncDef) stmtNode()           {}

type Param struct {
	Name    string
	NamePos token.Position
	Annot   string // annotated type name, "" when absent
	Default Expr   // nil if no default value
}

func (p *Param) Pos() token.Position { return p.NamePos }

// ClassDef

type ClassDef struct {
	Name    string
	NamePos token.Position
	Bases   []string // base class names in declared order
	Methods []*FuncDef
	// Class-level assignments (class attributes), kept in order.
	Attrs []*AssignStmt
}

func (c *ClassDef) Pos() token.Position { return c.NamePos }
func (c *ClassDef) stmtNode()           {}

// Statements

type AssignStmt struct {
	TargetPos token.Position
	Target    string // simple name target
	// Attribute target like "self.x"; empty Object means plain name.
	Object string
	Annot  string // annotated type name, "" when absent
	Value  Expr
}

func (s *AssignStmt) Pos() token.Position { return s.TargetPos }
func (s *AssignStmt) stmtNode()           {}

type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) Pos() token.Position { return s.X.Pos() }
func (s *ExprStmt) stmtNode()           {}

type ReturnStmt struct {
	ReturnPos token.Position
	Result    Expr // nil for bare "return"
}

func (s *ReturnStmt) Pos() token.Position { return s.ReturnPos }
func (s *ReturnStmt) stmtNode()           {}

type IfStmt struct {
	IfPos token.Position
	Cond  Expr
	Then  []Stmt
	Else  []Stmt // nil when absent; elif chains nest here
}

func (s *IfStmt) Pos() token.Position { return s.IfPos }
func (s *IfStmt) stmtNode()           {}

type WhileStmt struct {
	WhilePos token.Position
	Cond     Expr
	Body     []Stmt
}

func (s *WhileStmt) Pos() token.Position { return s.WhilePos }
func (s *WhileStmt) stmtNode()           {}

type ForStmt struct {
	ForPos token.Position
	Var    string // loop variable
	Iter   Expr
	Body   []Stmt
}

func (s *ForStmt) Pos() token.Position { return s.ForPos }
func (s *ForStmt) stmtNode()           {}

// Expressions

type NameExpr struct {
	NamePos token.Position
	Name    string
}

func (e *NameExpr) Pos() token.Position { return e.NamePos }
func (e *NameExpr) exprNode()           {}

type AttributeExpr struct {
	X    Expr
	Attr string
}

func (e *AttributeExpr) Pos() token.Position { return e.X.Pos() }
func (e *AttributeExpr) exprNode()           {}

type CallExpr struct {
	Callee Expr
	Args   []Expr
}

func (e *CallExpr) Pos() token.Position { return e.Callee.Pos() }
func (e *CallExpr) exprNode()           {}

// AwaitExpr is a suspension point; X is almost always a CallExpr.
type AwaitExpr struct {
	AwaitPos token.Position
	X        Expr
}

func (e *AwaitExpr) Pos() token.Position { return e.AwaitPos }
func (e *AwaitExpr) exprNode()           {}

type BinaryExpr struct {
	Left  Expr
	Op    string // "+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=", "and", "or"
	Right Expr
}

func (e *BinaryExpr) Pos() token.Position { return e.Left.Pos() }
func (e *BinaryExpr) exprNode()           {}

type UnaryExpr struct {
	OpPos token.Position
	Op    string // "-", "not"
	X     Expr
}

func (e *UnaryExpr) Pos() token.Position { return e.OpPos }
func (e *UnaryExpr) exprNode()           {}

type IndexExpr struct {
	X     Expr
	Index Expr
}

func (e *IndexExpr) Pos() token.Position { return e.X.Pos() }
func (e *IndexExpr) exprNode()           {}

// Literals

type IntLit struct {
	LitPos token.Position
	Value  int64
}

func (e *IntLit) Pos() token.Position { return e.LitPos }
func (e *IntLit) exprNode()           {}

type FloatLit struct {
	LitPos token.Position
	Value  float64
}

func (e *FloatLit) Pos() token.Position { return e.LitPos }
func (e *FloatLit) exprNode()           {}

type StringLit struct {
	LitPos token.Position
	Value  string
}

func (e *StringLit) Pos() token.Position { return e.LitPos }
func (e *StringLit) exprNode()           {}

type BoolLit struct {
	LitPos token.Position
	Value  bool
}

func (e *BoolLit) Pos() token.Position { return e.LitPos }
func (e *BoolLit) exprNode()           {}

type NoneLit struct {
	LitPos token.Position
}

func (e *NoneLit) Pos() token.Position { return e.LitPos }
func (e *NoneLit) exprNode()           {}

type ListLit struct {
	LitPos   token.Position
	Elements []Expr
}

func (e *ListLit) Pos() token.Position { return e.LitPos }
func (e *ListLit) exprNode()           {}

type DictLit struct {
	LitPos token.Position
	Keys   []Expr
	Values []Expr
}

func (e *DictLit) Pos() token.Position { return e.LitPos }
func (e *DictLit) exprNode()           {}
