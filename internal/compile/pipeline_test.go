package compile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"auriga/internal/config"
	"auriga/internal/imports"
)

func project(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg, err := config.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestGenerate(t *testing.T) {
	cfg := project(t, map[string]string{
		"main.py": `
def greet(name: str) -> str:
    return "hi " + name

print(greet("auriga"))
`,
	})
	p := New(cfg, imports.NewRegistry(), nil)
	src, err := os.ReadFile(cfg.EntryPath())
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.generate(src)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, "package main") {
		t.Errorf("no package clause:\n%s", text)
	}
	if !strings.Contains(text, "func Greet(name string) string") {
		t.Errorf("greet not emitted:\n%s", text)
	}
	if !strings.Contains(text, "fmt.Println(Greet(") {
		t.Errorf("call site not emitted:\n%s", text)
	}
}

func TestGenerateFoldsSourceDeps(t *testing.T) {
	cfg := project(t, map[string]string{
		"main.py": `
import helpers

print(double(21))
`,
		"helpers.py": `
def double(n: int) -> int:
    return n * 2
`,
	})
	registry := imports.NewRegistry()
	registry.RegisterInfo(imports.Info{
		Module:   "helpers",
		Strategy: imports.SourceCompilation,
	})
	p := New(cfg, registry, nil)
	src, err := os.ReadFile(cfg.EntryPath())
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.generate(src)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(string(out), "func Double(n int64) int64") {
		t.Errorf("source dep not folded in:\n%s", out)
	}
}

func TestGenerateUnsupportedImport(t *testing.T) {
	cfg := project(t, map[string]string{
		"main.py": "import numpy\n",
	})
	p := New(cfg, imports.NewRegistry(), nil)
	src, _ := os.ReadFile(cfg.EntryPath())
	if _, err := p.generate(src); err == nil {
		t.Fatal("unsupported import compiled")
	}
}
