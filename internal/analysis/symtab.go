package analysis

// ----- Inferred types -----

// Type is an inferred source-level type. Built-in types use the
// constants below; class instances use the class name itself.
type Type string

const (
	TypeUnknown Type = ""
	TypeInt     Type = "int"
	TypeFloat   Type = "float"
	TypeStr     Type = "str"
	TypeBool    Type = "bool"
	TypeNone    Type = "None"
	TypeList    Type = "list"
	TypeDict    Type = "dict"
)

// IsClass reports whether t names a user-defined class rather than a
// built-in type.
func (t Type) IsClass() bool {
	switch t {
	case TypeUnknown, TypeInt, TypeFloat, TypeStr, TypeBool, TypeNone, TypeList, TypeDict:
		return false
	}
	return true
}

// ----- Symbols and scopes -----

// SymbolInfo describes one declared name.
type SymbolInfo struct {
	Name     string
	Type     Type
	Depth    int  // scope depth at declaration; 0 is the global scope
	Mutable  bool // reassigned at least once
	IsParam  bool
	Captured bool // referenced by a nested function
}

// Scope maps names to their bindings. Insertion order is irrelevant
// to lookup.
type Scope map[string]*SymbolInfo

// SymbolTable is a non-empty stack of scopes. Index 0 is the
// permanent global scope and can never be popped.
type SymbolTable struct {
	scopes []Scope
}

// NewSymbolTable returns a table holding only the global scope.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		scopes: []Scope{make(Scope)},
	}
}

// PushScope enters a new lexical scope.
func (st *SymbolTable) PushScope() {
	st.scopes = append(st.scopes, make(Scope))
}

// PopScope leaves the current scope. Popping the sole global scope is
// a no-op: the stack must never become empty.
func (st *SymbolTable) PopScope() {
	if len(st.scopes) <= 1 {
		return
	}
	st.scopes = st.scopes[:len(st.scopes)-1]
}

// Depth returns the current scope depth (0 for global).
func (st *SymbolTable) Depth() int {
	return len(st.scopes) - 1
}

// Declare inserts or overwrites a binding in the current scope only.
// Bindings of the same name in outer scopes are untouched.
func (st *SymbolTable) Declare(name string, typ Type, mutable bool) *SymbolInfo {
	sym := &SymbolInfo{
		Name:    name,
		Type:    typ,
		Depth:   st.Depth(),
		Mutable: mutable,
	}
	st.scopes[len(st.scopes)-1][name] = sym
	return sym
}

// DeclareParam declares a function parameter in the current scope.
func (st *SymbolTable) DeclareParam(name string, typ Type) *SymbolInfo {
	sym := st.Declare(name, typ, false)
	sym.IsParam = true
	return sym
}

// Lookup searches scopes from innermost to outermost and returns the
// first binding found, or nil. A miss is not itself a fatal condition
// at this layer; callers decide whether an unresolved identifier is a
// compile error.
func (st *SymbolTable) Lookup(name string) *SymbolInfo {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if sym, ok := st.scopes[i][name]; ok {
			return sym
		}
	}
	return nil
}

// DeclaredInCurrentScope reports whether the current scope itself (not
// an ancestor) holds name. Used to distinguish "shadow a new slot"
// from "reuse an existing slot".
func (st *SymbolTable) DeclaredInCurrentScope(name string) bool {
	_, ok := st.scopes[len(st.scopes)-1][name]
	return ok
}

// TypeOf returns the inferred type of name, or TypeUnknown on a miss.
func (st *SymbolTable) TypeOf(name string) Type {
	if sym := st.Lookup(name); sym != nil {
		return sym.Type
	}
	return TypeUnknown
}

// IsMutable reports whether name is bound mutably; false on a miss.
func (st *SymbolTable) IsMutable(name string) bool {
	if sym := st.Lookup(name); sym != nil {
		return sym.Mutable
	}
	return false
}
