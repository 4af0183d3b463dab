package analysis

import (
	"sort"

	"auriga/internal/ast"
	"auriga/internal/diag"
	"auriga/internal/token"
)

// ----- Class registry -----

// MethodInfo describes one method as resolved through the
// inheritance chain. ClassName is the class that actually defines the
// method, which may be an ancestor of the class the lookup started at.
type MethodInfo struct {
	Name      string
	ClassName string
	Params    []string
	IsStatic  bool
}

// ClassDef is the registry's view of one class declaration.
type ClassDef struct {
	Name    string
	NamePos token.Position
	Bases   []string // declared bases in order; only the first is modeled
	Methods []*MethodInfo
}

// ClassRegistry stores class definitions and single-inheritance
// parent edges. It is populated during the analysis pass and queried
// read-only during emission.
type ClassRegistry struct {
	classes map[string]*ClassDef
	parent  map[string]string // class -> primary (first) base
}

func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		classes: make(map[string]*ClassDef),
		parent:  make(map[string]string),
	}
}

// Register stores def. If def declares at least one base, an edge to
// the first base is recorded; additional bases are not modeled.
func (r *ClassRegistry) Register(def *ClassDef) {
	r.classes[def.Name] = def
	if len(def.Bases) > 0 {
		r.parent[def.Name] = def.Bases[0]
	}
}

// RegisterAST registers a class straight from its AST definition.
func (r *ClassRegistry) RegisterAST(cd *ast.ClassDef) *ClassDef {
	def := &ClassDef{
		Name:    cd.Name,
		NamePos: cd.NamePos,
		Bases:   cd.Bases,
	}
	for _, m := range cd.Methods {
		params := make([]string, 0, len(m.Params))
		for _, p := range m.Params {
			params = append(params, p.Name)
		}
		def.Methods = append(def.Methods, &MethodInfo{
			Name:      m.Name,
			ClassName: cd.Name,
			Params:    params,
			IsStatic:  m.IsStatic,
		})
	}
	r.Register(def)
	return def
}

// Class returns the registered definition for name, or nil.
func (r *ClassRegistry) Class(name string) *ClassDef {
	return r.classes[name]
}

// Names returns every registered class name, sorted.
func (r *ClassRegistry) Names() []string {
	out := make([]string, 0, len(r.classes))
	for name := range r.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Parent returns the primary base of name, or "".
func (r *ClassRegistry) Parent(name string) string {
	return r.parent[name]
}

// FindMethod ascends from className through the single-inheritance
// chain, checking each class's own methods before moving to its
// parent. The first match wins, so a subclass override shadows the
// parent definition. Returns nil if the method is absent along the
// whole chain, including when className itself is unregistered.
//
// The ascent carries a visited set: a cyclic registration terminates
// the walk and is reported through CheckCycles rather than looping.
func (r *ClassRegistry) FindMethod(className, methodName string) *MethodInfo {
	visited := make(map[string]bool)
	for name := className; name != "" && !visited[name]; name = r.parent[name] {
		visited[name] = true
		def := r.classes[name]
		if def == nil {
			return nil
		}
		for _, m := range def.Methods {
			if m.Name == methodName {
				return m
			}
		}
	}
	return nil
}

// HasMethod reports whether FindMethod would succeed.
func (r *ClassRegistry) HasMethod(className, methodName string) bool {
	return r.FindMethod(className, methodName) != nil
}

// Methods returns all methods visible on className, walking the
// chain. A name defined both in className and in an ancestor appears
// once, attributed to the nearest definition, preserving override
// semantics.
func (r *ClassRegistry) Methods(className string) []*MethodInfo {
	var out []*MethodInfo
	seen := make(map[string]bool)
	visited := make(map[string]bool)
	for name := className; name != "" && !visited[name]; name = r.parent[name] {
		visited[name] = true
		def := r.classes[name]
		if def == nil {
			break
		}
		for _, m := range def.Methods {
			if seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			out = append(out, m)
		}
	}
	return out
}

// CheckCycles reports an InheritanceCycle diagnostic for every class
// whose parent chain loops back on itself. A malformed program must
// fail at compile time, never hang the ascent.
func (r *ClassRegistry) CheckCycles() []error {
	var errs []error
	for name, def := range r.classes {
		visited := make(map[string]bool)
		cur := name
		for cur != "" {
			if visited[cur] {
				errs = append(errs, diag.Errorf(def.NamePos, diag.InheritanceCycle,
					"class %q participates in an inheritance cycle through %q", name, cur))
				break
			}
			visited[cur] = true
			cur = r.parent[cur]
		}
	}
	return errs
}

// ----- Dispatch resolution -----

// DispatchKind tags how an attribute access will be dispatched in
// generated code.
type DispatchKind int

const (
	// StaticDispatch: the method was resolved at compile time.
	StaticDispatch DispatchKind = iota
	// DynamicFallback: the access could not be proven resolvable and
	// routes through the boxed runtime value representation.
	DynamicFallback
)

// Dispatch is the result of resolving a method access site.
type Dispatch struct {
	Kind   DispatchKind
	Method *MethodInfo // set only for StaticDispatch
}

// ResolveDispatch resolves methodName on a receiver of type recv.
// Receivers whose class is statically known resolve through the
// inheritance chain; everything else falls back to dynamic dispatch
// instead of being assumed resolvable.
func (r *ClassRegistry) ResolveDispatch(recv Type, methodName string) Dispatch {
	if recv.IsClass() {
		if m := r.FindMethod(string(recv), methodName); m != nil {
			return Dispatch{Kind: StaticDispatch, Method: m}
		}
	}
	return Dispatch{Kind: DynamicFallback}
}
