// Package compile orchestrates the build: parse, analyze, generate,
// then hand the generated source to the Go toolchain. Artifacts are
// cached by source content when the cache is available.
package compile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"auriga/internal/analysis"
	"auriga/internal/ast"
	"auriga/internal/buildcache"
	"auriga/internal/codegen"
	"auriga/internal/config"
	"auriga/internal/frontend"
	"auriga/internal/imports"
)

// Version participates in cache keys so artifacts from older
// compilers are never reused.
const Version = "0.3.0"

type Pipeline struct {
	cfg      *config.Config
	registry *imports.Registry
	cache    *buildcache.Cache // nil when caching is disabled
}

func New(cfg *config.Config, registry *imports.Registry, cache *buildcache.Cache) *Pipeline {
	return &Pipeline{cfg: cfg, registry: registry, cache: cache}
}

// Build compiles the project entry file and returns the binary path.
func (p *Pipeline) Build() (string, error) {
	src, err := os.ReadFile(p.cfg.EntryPath())
	if err != nil {
		return "", fmt.Errorf("read entry: %w", err)
	}

	binPath := filepath.Join(p.cfg.OutDir(), p.cfg.Name)
	key := buildcache.Key(src, Version, p.cfg.Name)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			if err := copyFile(cached, binPath); err == nil {
				return binPath, nil
			}
		}
	}

	goSrc, err := p.generate(src)
	if err != nil {
		return "", err
	}

	genDir := filepath.Join(p.cfg.OutDir(), "gen")
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		return "", err
	}
	genFile := filepath.Join(genDir, "main.go")
	if err := os.WriteFile(genFile, goSrc, 0o644); err != nil {
		return "", err
	}
	if !p.cfg.Build.KeepGenerated {
		defer os.Remove(genFile)
	}

	if err := goBuild(genFile, binPath); err != nil {
		return "", err
	}

	if p.cache != nil {
		// Cache errors degrade to an uncached build.
		p.cache.PutFile(key, binPath)
	}
	return binPath, nil
}

// Run builds and then executes the program, wiring through stdio.
func (p *Pipeline) Run(args []string) error {
	bin, err := p.Build()
	if err != nil {
		return err
	}
	cmd := exec.Command(bin, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// generate turns the entry source into a single Go file, folding in
// source-compiled dependencies.
func (p *Pipeline) generate(src []byte) ([]byte, error) {
	parser, err := frontend.NewParser()
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	name := strings.TrimSuffix(filepath.Base(p.cfg.Entry), filepath.Ext(p.cfg.Entry))
	mod, err := parser.Parse(src, name, p.cfg.EntryPath())
	if err != nil {
		return nil, err
	}
	if err := p.foldSourceDeps(parser, mod); err != nil {
		return nil, err
	}

	info, errs := analysis.NewAnalyzer().Analyze(mod)
	if len(errs) > 0 {
		return nil, joinErrs(errs)
	}
	out, errs := codegen.NewGenerator(info, p.registry).Generate(mod)
	if len(errs) > 0 {
		return nil, joinErrs(errs)
	}
	return out, nil
}

// foldSourceDeps parses every SourceCompilation import and merges its
// declarations into mod, so the generator emits one unit.
func (p *Pipeline) foldSourceDeps(parser *frontend.Parser, mod *ast.Module) error {
	seen := map[string]bool{mod.Name: true}
	queue := append([]*ast.ImportStmt(nil), mod.Imports...)
	for len(queue) > 0 {
		imp := queue[0]
		queue = queue[1:]
		info, _ := p.registry.Lookup(imp.Module)
		if info.Strategy != imports.SourceCompilation || seen[imp.Module] {
			continue
		}
		seen[imp.Module] = true
		path, err := imports.ResolveSource(info, p.cfg.Root)
		if err != nil {
			return err
		}
		dep, err := parser.ParseFile(path)
		if err != nil {
			return err
		}
		mod.Funcs = append(mod.Funcs, dep.Funcs...)
		mod.Classes = append(mod.Classes, dep.Classes...)
		queue = append(queue, dep.Imports...)
	}
	return nil
}

func joinErrs(errs []error) error {
	return errors.Join(errs...)
}

func goBuild(genFile, binPath string) error {
	if err := os.MkdirAll(filepath.Dir(binPath), 0o755); err != nil {
		return err
	}
	cmd := exec.Command("go", "build", "-o", binPath, genFile)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
