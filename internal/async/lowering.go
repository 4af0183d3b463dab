// Package async decides how each async construct lowers into
// generated code. Functions are classified once; call sites then pick
// between a plain inline call and a spawn/wait pair against the
// scheduler, so that code which never actually suspends pays no
// scheduling cost.
package async

import (
	"auriga/internal/analysis"
	"auriga/internal/ast"
	"auriga/internal/diag"
)

// Complexity is the cost class of an async function body. Trivial
// and simple bodies never suspend and lower to plain calls; complex
// bodies go through the scheduler.
type Complexity int

const (
	// Trivial: straight-line work, no suspension points.
	Trivial Complexity = iota
	// Simple: branching but still bounded, no suspension points.
	Simple
	// Complex: loops, nested awaits, or an unknown callee.
	Complex
)

func (c Complexity) String() string {
	switch c {
	case Trivial:
		return "trivial"
	case Simple:
		return "simple"
	default:
		return "complex"
	}
}

// Mode is the per-call-site lowering decision.
type Mode int

const (
	// Inline: emit a plain call; no task handle, no scheduler
	// reference.
	Inline Mode = iota
	// Scheduled: emit spawn, wait, and result extraction against the
	// scheduler handle in scope.
	Scheduled
)

// Lowering describes how one await site is emitted.
type Lowering struct {
	Mode       Mode
	Callee     string
	ResultType analysis.Type
}

// Classifier assigns complexities to async functions and lowering
// modes to await sites. Classification is memoized per function name
// and deterministic for a given program.
type Classifier struct {
	info *analysis.Info
	memo map[string]Complexity
}

func NewClassifier(info *analysis.Info) *Classifier {
	return &Classifier{
		info: info,
		memo: make(map[string]Complexity),
	}
}

// Classify returns the complexity of the named async function.
// Unknown names classify as Complex: an unresolvable callee can never
// be proven safe to inline.
func (c *Classifier) Classify(name string) Complexity {
	if cx, ok := c.memo[name]; ok {
		return cx
	}
	fn, ok := c.info.Funcs[name]
	if !ok {
		c.memo[name] = Complex
		return Complex
	}
	cx := classifyBody(fn.Body)
	c.memo[name] = cx
	return cx
}

func classifyBody(body []ast.Stmt) Complexity {
	if ast.ContainsLoop(body) || ast.ContainsAwait(body) {
		return Complex
	}
	if ast.ContainsBranch(body) {
		return Simple
	}
	return Trivial
}

// awaitedCallee returns the name of the function called under an
// await, or "" when the awaited expression is not a direct call.
func awaitedCallee(aw *ast.AwaitExpr) string {
	call, ok := aw.X.(*ast.CallExpr)
	if !ok {
		return ""
	}
	name, ok := call.Callee.(*ast.NameExpr)
	if !ok {
		return ""
	}
	return name.Name
}

// Lower decides how one await site is emitted. Awaiting a
// non-suspending function collapses to an inline call; everything
// else is scheduled.
func (c *Classifier) Lower(aw *ast.AwaitExpr) Lowering {
	callee := awaitedCallee(aw)
	mode := Scheduled
	if callee != "" && c.Classify(callee) != Complex {
		mode = Inline
	}
	var rt analysis.Type
	if callee != "" {
		rt = c.info.ReturnType(callee)
	}
	return Lowering{Mode: mode, Callee: callee, ResultType: rt}
}

// ----- Builtin call shapes -----

// BuiltinKind identifies the scheduler builtins with fixed call
// shapes.
type BuiltinKind int

const (
	NotBuiltin BuiltinKind = iota
	BuiltinRun
	BuiltinGather
	BuiltinSleep
	BuiltinCreateTask
)

var builtinNames = map[string]BuiltinKind{
	"run":         BuiltinRun,
	"gather":      BuiltinGather,
	"sleep":       BuiltinSleep,
	"create_task": BuiltinCreateTask,
}

// BuiltinCall matches a call expression against the scheduler
// builtins, accepting both the bare name and the asyncio-qualified
// attribute form.
func BuiltinCall(call *ast.CallExpr) BuiltinKind {
	switch callee := call.Callee.(type) {
	case *ast.NameExpr:
		return builtinNames[callee.Name]
	case *ast.AttributeExpr:
		base, ok := callee.X.(*ast.NameExpr)
		if !ok || base.Name != "asyncio" {
			return NotBuiltin
		}
		return builtinNames[callee.Attr]
	}
	return NotBuiltin
}

// CheckBuiltin validates the call shape of a scheduler builtin.
// run takes exactly one call argument; gather takes one or more;
// sleep takes exactly one duration; create_task takes exactly one
// call argument.
func CheckBuiltin(kind BuiltinKind, call *ast.CallExpr) error {
	switch kind {
	case BuiltinRun, BuiltinCreateTask:
		if len(call.Args) != 1 {
			return diag.Errorf(call.Pos(), diag.MalformedCallSite,
				"%s takes exactly one argument, got %d", builtinName(kind), len(call.Args))
		}
		if _, ok := call.Args[0].(*ast.CallExpr); !ok {
			return diag.Errorf(call.Pos(), diag.MalformedCallSite,
				"%s argument must be a call expression", builtinName(kind))
		}
	case BuiltinGather:
		if len(call.Args) == 0 {
			return diag.Errorf(call.Pos(), diag.MalformedCallSite,
				"gather requires at least one argument")
		}
		for i, arg := range call.Args {
			if _, ok := arg.(*ast.CallExpr); !ok {
				return diag.Errorf(call.Pos(), diag.MalformedCallSite,
					"gather argument %d must be a call expression", i+1)
			}
		}
	case BuiltinSleep:
		if len(call.Args) != 1 {
			return diag.Errorf(call.Pos(), diag.MalformedCallSite,
				"sleep takes exactly one duration argument, got %d", len(call.Args))
		}
	}
	return nil
}

func builtinName(kind BuiltinKind) string {
	for name, k := range builtinNames {
		if k == kind {
			return name
		}
	}
	return "?"
}
