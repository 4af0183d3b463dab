package codegen

import (
	"strings"
	"testing"

	"auriga/internal/analysis"
	"auriga/internal/ast"
	"auriga/internal/imports"
	"auriga/internal/token"
)

func at(line int) token.Position { return token.Position{Line: line, Column: 1} }

func name(s string) *ast.NameExpr { return &ast.NameExpr{NamePos: at(1), Name: s} }

func callTo(fn string, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Callee: name(fn), Args: args}
}

func awaitOf(e ast.Expr) *ast.AwaitExpr {
	return &ast.AwaitExpr{AwaitPos: at(1), X: e}
}

func generate(t *testing.T, mod *ast.Module) string {
	t.Helper()
	info, errs := analysis.NewAnalyzer().Analyze(mod)
	if len(errs) > 0 {
		t.Fatalf("analyze: %v", errs)
	}
	src, errs := NewGenerator(info, imports.NewRegistry()).Generate(mod)
	if len(errs) > 0 {
		t.Fatalf("generate: %v", errs)
	}
	return string(src)
}

// asyncModule builds: a trivial async fetch, a complex async crawl,
// and an async main awaiting both, started by a top-level run call.
func asyncModule() *ast.Module {
	fetch := &ast.FuncDef{
		Name: "fetch", NamePos: at(1), IsAsync: true,
		Body: []ast.Stmt{&ast.ReturnStmt{ReturnPos: at(2), Result: &ast.IntLit{LitPos: at(2), Value: 1}}},
	}
	crawl := &ast.FuncDef{
		Name: "crawl", NamePos: at(4), IsAsync: true,
		Body: []ast.Stmt{
			&ast.ForStmt{ForPos: at(5), Var: "i", Iter: callTo("range", &ast.IntLit{LitPos: at(5), Value: 3}),
				Body: []ast.Stmt{&ast.ExprStmt{X: awaitOf(callTo("fetch"))}}},
			&ast.ReturnStmt{ReturnPos: at(6), Result: &ast.IntLit{LitPos: at(6), Value: 2}},
		},
	}
	mainFn := &ast.FuncDef{
		Name: "main", NamePos: at(8), IsAsync: true,
		Body: []ast.Stmt{
			&ast.AssignStmt{TargetPos: at(9), Target: "a", Value: awaitOf(callTo("fetch"))},
			&ast.AssignStmt{TargetPos: at(10), Target: "b", Value: awaitOf(callTo("crawl"))},
			&ast.ExprStmt{X: callTo("print", name("a"), name("b"))},
		},
	}
	return &ast.Module{
		Name:  "main",
		Funcs: []*ast.FuncDef{fetch, crawl, mainFn},
		Body:  []ast.Stmt{&ast.ExprStmt{X: callTo("run", callTo("main"))}},
	}
}

func TestGenerateTrivialAwaitInlines(t *testing.T) {
	src := generate(t, asyncModule())

	// fetch is trivial: no scheduler parameter, and awaiting it emits
	// a plain call.
	if !strings.Contains(src, "func Fetch() int64") {
		t.Errorf("trivial async fn got a scheduler parameter:\n%s", src)
	}
	if !strings.Contains(src, "a := Fetch()") {
		t.Errorf("awaiting trivial fn did not inline:\n%s", src)
	}
}

func TestGenerateComplexAwaitSpawns(t *testing.T) {
	src := generate(t, asyncModule())

	if !strings.Contains(src, "func Crawl(__sched *sched.Scheduler) int64") {
		t.Errorf("complex async fn missing scheduler parameter:\n%s", src)
	}
	if !strings.Contains(src, "sched.Spawn(__sched, func() (int64, error)") {
		t.Errorf("awaiting complex fn did not spawn:\n%s", src)
	}
	if !strings.Contains(src, ".Wait()") {
		t.Errorf("spawned task never waited:\n%s", src)
	}
	// Exactly one spawn: the trivial await must not schedule.
	if n := strings.Count(src, "sched.Spawn("); n != 1 {
		t.Errorf("spawn count = %d, want 1:\n%s", n, src)
	}
}

func TestGenerateRunBootstrap(t *testing.T) {
	src := generate(t, asyncModule())
	if !strings.Contains(src, "sched.Run(func(__sched *sched.Scheduler)") {
		t.Errorf("top-level run did not bootstrap the scheduler:\n%s", src)
	}
	if !strings.Contains(src, "func main() {") {
		t.Errorf("no main function:\n%s", src)
	}
}

func TestGenerateGather(t *testing.T) {
	mod := asyncModule()
	mod.Funcs[2].Body = []ast.Stmt{
		&ast.AssignStmt{TargetPos: at(9), Target: "rs",
			Value: awaitOf(callTo("gather", callTo("crawl"), callTo("crawl")))},
		&ast.ExprStmt{X: callTo("print", name("rs"))},
	}
	src := generate(t, mod)
	if !strings.Contains(src, "sched.Gather(__sched,") {
		t.Errorf("gather not lowered:\n%s", src)
	}
}

func TestGenerateSleep(t *testing.T) {
	mod := asyncModule()
	mod.Funcs[2].Body = []ast.Stmt{
		&ast.ExprStmt{X: awaitOf(&ast.CallExpr{
			Callee: &ast.AttributeExpr{X: name("asyncio"), Attr: "sleep"},
			Args:   []ast.Expr{&ast.FloatLit{LitPos: at(9), Value: 0.1}},
		})},
	}
	src := generate(t, mod)
	if !strings.Contains(src, "__sched.Sleep(0.1)") {
		t.Errorf("sleep not lowered to the scheduler:\n%s", src)
	}
}

func TestGenerateUnsupportedImportAborts(t *testing.T) {
	mod := &ast.Module{
		Name:    "main",
		Imports: []*ast.ImportStmt{{ImportPos: at(1), Module: "numpy"}},
	}
	info, _ := analysis.NewAnalyzer().Analyze(mod)
	src, errs := NewGenerator(info, imports.NewRegistry()).Generate(mod)
	if len(errs) == 0 {
		t.Fatal("unsupported import produced no diagnostic")
	}
	if src != nil {
		t.Error("unit emitted despite diagnostic")
	}
}

func classModule() *ast.Module {
	speak := func(line int, result string) *ast.FuncDef {
		return &ast.FuncDef{
			Name: "speak", NamePos: at(line), ReturnAnnot: "str",
			Params: []*ast.Param{{Name: "self", NamePos: at(line)}},
			Body: []ast.Stmt{&ast.ReturnStmt{ReturnPos: at(line + 1),
				Result: &ast.StringLit{LitPos: at(line + 1), Value: result}}},
		}
	}
	animal := &ast.ClassDef{
		Name: "Animal", NamePos: at(1),
		Methods: []*ast.FuncDef{
			{
				Name: "__init__", NamePos: at(2),
				Params: []*ast.Param{
					{Name: "self", NamePos: at(2)},
					{Name: "name", NamePos: at(2), Annot: "str"},
				},
				Body: []ast.Stmt{&ast.AssignStmt{TargetPos: at(3), Target: "name", Object: "self", Value: name("name")}},
			},
			speak(4, "..."),
		},
	}
	dog := &ast.ClassDef{
		Name: "Dog", NamePos: at(7), Bases: []string{"Animal"},
		Methods: []*ast.FuncDef{speak(8, "woof")},
	}
	describe := &ast.FuncDef{
		Name: "describe", NamePos: at(11),
		Params: []*ast.Param{{Name: "pet", NamePos: at(11)}},
		Body: []ast.Stmt{&ast.ExprStmt{X: &ast.CallExpr{
			Callee: &ast.AttributeExpr{X: name("pet"), Attr: "speak"},
		}}},
	}
	return &ast.Module{
		Name:    "main",
		Classes: []*ast.ClassDef{animal, dog},
		Funcs:   []*ast.FuncDef{describe},
		Body: []ast.Stmt{
			&ast.AssignStmt{TargetPos: at(14), Target: "d",
				Value: callTo("Dog", &ast.StringLit{LitPos: at(14), Value: "rex"})},
			&ast.ExprStmt{X: callTo("print", &ast.CallExpr{
				Callee: &ast.AttributeExpr{X: name("d"), Attr: "speak"},
			})},
		},
	}
}

func TestGenerateClasses(t *testing.T) {
	src := generate(t, classModule())

	if !strings.Contains(src, "type Animal struct {") {
		t.Errorf("no Animal struct:\n%s", src)
	}
	if !strings.Contains(src, "type Dog struct {\n\tAnimal\n}") {
		t.Errorf("Dog does not embed Animal:\n%s", src)
	}
	if !strings.Contains(src, "func NewDog() *Dog") {
		t.Errorf("no Dog constructor:\n%s", src)
	}
	if !strings.Contains(src, "func NewAnimal(name string) *Animal") {
		t.Errorf("no Animal constructor:\n%s", src)
	}
}

func TestGenerateStaticDispatch(t *testing.T) {
	src := generate(t, classModule())
	// d has a known class type, so the call resolves statically.
	if !strings.Contains(src, "d.Speak()") {
		t.Errorf("typed receiver not dispatched statically:\n%s", src)
	}
}

func TestGenerateDynamicFallback(t *testing.T) {
	src := generate(t, classModule())
	// pet is untyped, so its call routes through the dispatch helper.
	if !strings.Contains(src, "__dynSpeak(pet)") {
		t.Errorf("untyped receiver not routed dynamically:\n%s", src)
	}
	if !strings.Contains(src, "case *Animal:") || !strings.Contains(src, "case *Dog:") {
		t.Errorf("dispatch helper missing class cases:\n%s", src)
	}
}

func TestGenerateModuleCall(t *testing.T) {
	mod := &ast.Module{
		Name:    "main",
		Imports: []*ast.ImportStmt{{ImportPos: at(1), Module: "math"}},
		Body: []ast.Stmt{
			&ast.AssignStmt{TargetPos: at(2), Target: "r", Value: &ast.CallExpr{
				Callee: &ast.AttributeExpr{X: name("math"), Attr: "sqrt"},
				Args:   []ast.Expr{&ast.FloatLit{LitPos: at(2), Value: 2}},
			}},
			&ast.ExprStmt{X: callTo("print", name("r"))},
		},
	}
	info, errs := analysis.NewAnalyzer().Analyze(mod)
	if len(errs) > 0 {
		t.Fatalf("analyze: %v", errs)
	}
	registry, err := imports.Default()
	if err != nil {
		t.Fatal(err)
	}
	src, genErrs := NewGenerator(info, registry).Generate(mod)
	if len(genErrs) > 0 {
		t.Fatalf("generate: %v", genErrs)
	}
	if !strings.Contains(string(src), "rtmath.Sqrt(2)") {
		t.Errorf("module call not routed to runtime package:\n%s", src)
	}
	if !strings.Contains(string(src), `"auriga/runtime/rtmath"`) {
		t.Errorf("runtime package not imported:\n%s", src)
	}
}

func TestGoName(t *testing.T) {
	tests := map[string]string{
		"speak":      "Speak",
		"make_dog":   "MakeDog",
		"__init__":   "Init",
		"a_b_c":      "ABC",
		"fetch_data": "FetchData",
	}
	for in, want := range tests {
		if got := goName(in); got != want {
			t.Errorf("goName(%q) = %q, want %q", in, got, want)
		}
	}
}

// dynModule builds untyped-parameter functions whose operators cannot
// be settled statically.
func dynModule() *ast.Module {
	add := &ast.FuncDef{
		Name: "add", NamePos: at(1),
		Params: []*ast.Param{{Name: "a", NamePos: at(1)}, {Name: "b", NamePos: at(1)}},
		Body: []ast.Stmt{&ast.ReturnStmt{ReturnPos: at(2),
			Result: &ast.BinaryExpr{Left: name("a"), Op: "+", Right: name("b")}}},
	}
	smaller := &ast.FuncDef{
		Name: "smaller", NamePos: at(4),
		Params: []*ast.Param{{Name: "a", NamePos: at(4)}, {Name: "b", NamePos: at(4)}},
		Body: []ast.Stmt{&ast.ReturnStmt{ReturnPos: at(5),
			Result: &ast.BinaryExpr{Left: name("a"), Op: "<", Right: name("b")}}},
	}
	return &ast.Module{
		Name:  "main",
		Funcs: []*ast.FuncDef{add, smaller},
		Body: []ast.Stmt{&ast.ExprStmt{X: callTo("print",
			callTo("add", &ast.IntLit{LitPos: at(7), Value: 1}, &ast.IntLit{LitPos: at(7), Value: 2}))}},
	}
}

func TestGenerateDynamicArithmetic(t *testing.T) {
	src := generate(t, dynModule())

	// Untyped operands never meet a raw Go operator; they box and
	// dispatch through the runtime.
	if !strings.Contains(src, "func Add(a any, b any) rtval.Value") {
		t.Errorf("dynamic fn signature wrong:\n%s", src)
	}
	if !strings.Contains(src, `rtval.BinOp("+", rtval.Box(a), rtval.Box(b))`) {
		t.Errorf("dynamic + not routed through the runtime:\n%s", src)
	}
	if strings.Contains(src, "(a + b)") {
		t.Errorf("raw operator emitted on untyped operands:\n%s", src)
	}
}

func TestGenerateDynamicComparison(t *testing.T) {
	src := generate(t, dynModule())

	if !strings.Contains(src, "func Smaller(a any, b any) bool") {
		t.Errorf("dynamic comparison signature wrong:\n%s", src)
	}
	if !strings.Contains(src, `rtval.CompareOp("<", rtval.Box(a), rtval.Box(b))`) {
		t.Errorf("dynamic < not routed through the runtime:\n%s", src)
	}
}

// asyncMethodModule builds a class with a loop-bearing async method
// awaited from an async main.
func asyncMethodModule() *ast.Module {
	work := &ast.FuncDef{
		Name: "work", NamePos: at(2), IsAsync: true,
		Params: []*ast.Param{{Name: "self", NamePos: at(2)}},
		Body: []ast.Stmt{
			&ast.ForStmt{ForPos: at(3), Var: "i", Iter: callTo("range", &ast.IntLit{LitPos: at(3), Value: 2}),
				Body: []ast.Stmt{&ast.ExprStmt{X: callTo("print", name("i"))}}},
			&ast.ReturnStmt{ReturnPos: at(4), Result: &ast.IntLit{LitPos: at(4), Value: 1}},
		},
	}
	job := &ast.ClassDef{Name: "Job", NamePos: at(1), Methods: []*ast.FuncDef{work}}
	mainFn := &ast.FuncDef{
		Name: "main", NamePos: at(6), IsAsync: true,
		Body: []ast.Stmt{
			&ast.AssignStmt{TargetPos: at(7), Target: "j", Value: callTo("Job")},
			&ast.AssignStmt{TargetPos: at(8), Target: "r", Value: awaitOf(&ast.CallExpr{
				Callee: &ast.AttributeExpr{X: name("j"), Attr: "work"},
			})},
			&ast.ExprStmt{X: callTo("print", name("r"))},
		},
	}
	return &ast.Module{
		Name:    "main",
		Classes: []*ast.ClassDef{job},
		Funcs:   []*ast.FuncDef{mainFn},
		Body:    []ast.Stmt{&ast.ExprStmt{X: callTo("run", callTo("main"))}},
	}
}

func TestGenerateAsyncMethod(t *testing.T) {
	src := generate(t, asyncMethodModule())

	// The method's declaration and its call sites agree on the
	// scheduler parameter.
	if !strings.Contains(src, "func (self *Job) Work(__sched *sched.Scheduler) int64") {
		t.Errorf("scheduled method missing scheduler parameter:\n%s", src)
	}
	if !strings.Contains(src, "j.Work(__sched)") {
		t.Errorf("method call site missing scheduler argument:\n%s", src)
	}
	if strings.Contains(src, "j.Work()") {
		t.Errorf("method call site arity disagrees with declaration:\n%s", src)
	}
	if !strings.Contains(src, "sched.Spawn(__sched, func() (int64, error)") {
		t.Errorf("awaited method not spawned with its result type:\n%s", src)
	}
}

func TestGenerateNestedRunReusesScheduler(t *testing.T) {
	mod := asyncModule()
	// main awaits once, then issues a nested run(crawl()) statement.
	mod.Funcs[2].Body = []ast.Stmt{
		&ast.AssignStmt{TargetPos: at(9), Target: "a", Value: awaitOf(callTo("crawl"))},
		&ast.ExprStmt{X: callTo("run", callTo("crawl"))},
		&ast.ExprStmt{X: callTo("print", name("a"))},
	}
	src := generate(t, mod)

	// Only the top-level entry boots a scheduler; the nested run
	// rides the handle already in scope.
	if n := strings.Count(src, "sched.Run("); n != 1 {
		t.Errorf("scheduler bootstraps = %d, want 1:\n%s", n, src)
	}
	if !strings.Contains(src, "Crawl(__sched)") {
		t.Errorf("nested run did not reuse the scheduler in scope:\n%s", src)
	}
}
