// Package imports classifies each external module dependency of a
// compiled program into a code-generation strategy. The indirection
// keeps the code generator agnostic of how a dependency is satisfied:
// onboarding a new module means adding a table row, not a new
// generator branch.
package imports

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Strategy is the compile-time decision for how a module dependency
// is satisfied in generated code. The set is closed.
type Strategy int

const (
	// Unsupported: no strategy available; surfaces as a diagnostic.
	Unsupported Strategy = iota
	// NativeReimplementation: a native-runtime equivalent exists and
	// is referenced directly.
	NativeReimplementation
	// ForeignLibraryBinding: backed by an existing native library,
	// linked and marshalled through a binding layer.
	ForeignLibraryBinding
	// SourceCompilation: the dependency's own source is compiled as
	// part of this build.
	SourceCompilation
)

func (s Strategy) String() string {
	switch s {
	case NativeReimplementation:
		return "native"
	case ForeignLibraryBinding:
		return "binding"
	case SourceCompilation:
		return "source"
	default:
		return "unsupported"
	}
}

// ParseStrategy converts a table-row tag into a Strategy.
func ParseStrategy(tag string) (Strategy, error) {
	switch tag {
	case "native":
		return NativeReimplementation, nil
	case "binding":
		return ForeignLibraryBinding, nil
	case "source":
		return SourceCompilation, nil
	case "unsupported":
		return Unsupported, nil
	}
	return Unsupported, fmt.Errorf("unknown import strategy %q", tag)
}

// Info describes how one module dependency is satisfied.
type Info struct {
	Module    string
	Strategy  Strategy
	TargetRef string // runtime package or symbol the generator references
	NativeLib string // linked native library, for ForeignLibraryBinding
	SourcePath string // fallback source path, for SourceCompilation
}

// Registry maps module names to their import info. Populated during
// the analysis pass, read-only during emission.
type Registry struct {
	entries map[string]Info
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Info)}
}

// Register records how name is satisfied. Registration is idempotent;
// the last write for a given name wins.
func (r *Registry) Register(name string, strategy Strategy, targetRef, nativeLib string) {
	r.entries[name] = Info{
		Module:    name,
		Strategy:  strategy,
		TargetRef: targetRef,
		NativeLib: nativeLib,
	}
}

// RegisterInfo records a fully populated row.
func (r *Registry) RegisterInfo(info Info) {
	r.entries[info.Module] = info
}

// Lookup is a total function: every name maps either to its
// registered info or to an Unsupported entry that callers surface as
// a diagnostic. The second result reports whether the name was
// actually registered.
func (r *Registry) Lookup(name string) (Info, bool) {
	if info, ok := r.entries[name]; ok {
		return info, true
	}
	return Info{Module: name, Strategy: Unsupported}, false
}

// Modules returns the registered module names, for introspection.
func (r *Registry) Modules() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}

// ----- Default table -----

//go:embed table.yaml
var defaultTable []byte

type tableRow struct {
	Module    string `yaml:"module"`
	Strategy  string `yaml:"strategy"`
	TargetRef string `yaml:"target"`
	NativeLib string `yaml:"lib"`
	Source    string `yaml:"source"`
}

// Default returns a registry loaded from the embedded strategy table.
func Default() (*Registry, error) {
	return loadTable(defaultTable)
}

func loadTable(data []byte) (*Registry, error) {
	var rows []tableRow
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("import table: %w", err)
	}
	r := NewRegistry()
	for _, row := range rows {
		strategy, err := ParseStrategy(row.Strategy)
		if err != nil {
			return nil, fmt.Errorf("import table: module %q: %w", row.Module, err)
		}
		r.RegisterInfo(Info{
			Module:     row.Module,
			Strategy:   strategy,
			TargetRef:  row.TargetRef,
			NativeLib:  row.NativeLib,
			SourcePath: row.Source,
		})
	}
	return r, nil
}

// LoadExtra merges rows from a project-local table file into r. Rows
// override the defaults for the same module name.
func (r *Registry) LoadExtra(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	extra, err := loadTable(data)
	if err != nil {
		return err
	}
	for _, name := range extra.Modules() {
		info, _ := extra.Lookup(name)
		r.RegisterInfo(info)
	}
	return nil
}

// ResolveSource locates the source file for a SourceCompilation
// dependency relative to the project root, trying the folder layout
// (mod/mod.py) before the flat one (mod.py).
func ResolveSource(info Info, projectRoot string) (string, error) {
	if info.Strategy != SourceCompilation {
		return "", fmt.Errorf("module %q does not use source compilation", info.Module)
	}
	if info.SourcePath != "" {
		p := info.SourcePath
		if !filepath.IsAbs(p) {
			p = filepath.Join(projectRoot, p)
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("cannot find source for module %q at %s", info.Module, p)
	}

	folder := filepath.Join(projectRoot, info.Module, info.Module+".py")
	if _, err := os.Stat(folder); err == nil {
		return folder, nil
	}
	flat := filepath.Join(projectRoot, info.Module+".py")
	if _, err := os.Stat(flat); err == nil {
		return flat, nil
	}
	return "", fmt.Errorf("cannot find module %q (looked for %s and %s)", info.Module, folder, flat)
}
