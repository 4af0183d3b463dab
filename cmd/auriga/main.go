package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/samber/do"

	"auriga/internal/buildcache"
	"auriga/internal/compile"
	"auriga/internal/config"
	"auriga/internal/imports"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "build":
		if err := cmdBuild(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "run":
		if err := cmdRun(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		fmt.Println("auriga", compile.Version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Auriga compiler

Usage:
  auriga build [dir] [-entry main.py] [-no-cache]
  auriga run [dir] [-- args...]

Commands:
  version  Print the compiler version
  build    Compile the project into a native binary
  run      Compile and execute the project`)
}

// container wires the build services. Each provider reads its inputs
// from the injector, so commands only decide the project root.
func container(root, entry string, useCache bool) *do.Injector {
	injector := do.New()

	do.Provide(injector, func(i *do.Injector) (*config.Config, error) {
		cfg, err := config.Load(root)
		if err != nil {
			return nil, err
		}
		if entry != "" {
			cfg.Entry = entry
		}
		if !useCache {
			cfg.Cache.Enabled = false
		}
		return cfg, nil
	})

	do.Provide(injector, func(i *do.Injector) (*imports.Registry, error) {
		cfg := do.MustInvoke[*config.Config](i)
		registry, err := imports.Default()
		if err != nil {
			return nil, err
		}
		if cfg.Imports != "" {
			if err := registry.LoadExtra(cfg.Imports); err != nil {
				return nil, fmt.Errorf("load import table: %w", err)
			}
		}
		return registry, nil
	})

	do.Provide(injector, func(i *do.Injector) (*compile.Pipeline, error) {
		cfg := do.MustInvoke[*config.Config](i)
		registry := do.MustInvoke[*imports.Registry](i)
		var cache *buildcache.Cache
		if cfg.Cache.Enabled {
			// A broken cache never blocks the build.
			if c, err := buildcache.Open(cfg.CacheDir()); err == nil {
				cache = c
			} else {
				fmt.Fprintln(os.Stderr, "warning: cache disabled:", err)
			}
		}
		return compile.New(cfg, registry, cache), nil
	})

	return injector
}

func buildFlags(name string) (*flag.FlagSet, *string, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	entry := fs.String("entry", "", "entry file (default from auriga.toml)")
	noCache := fs.Bool("no-cache", false, "disable the build cache")
	return fs, entry, noCache
}

func splitRoot(args []string) (string, []string) {
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		return args[0], args[1:]
	}
	return ".", args
}

func cmdBuild(args []string) error {
	root, rest := splitRoot(args)
	fs, entry, noCache := buildFlags("build")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	injector := container(root, *entry, !*noCache)
	defer injector.Shutdown()

	pipeline, err := do.Invoke[*compile.Pipeline](injector)
	if err != nil {
		return err
	}
	bin, err := pipeline.Build()
	if err != nil {
		return err
	}
	fmt.Println(bin)
	return nil
}

func cmdRun(args []string) error {
	root, rest := splitRoot(args)
	fs, entry, noCache := buildFlags("run")
	var progArgs []string
	for i, a := range rest {
		if a == "--" {
			progArgs = rest[i+1:]
			rest = rest[:i]
			break
		}
	}
	if err := fs.Parse(rest); err != nil {
		return err
	}

	injector := container(root, *entry, !*noCache)
	defer injector.Shutdown()

	pipeline, err := do.Invoke[*compile.Pipeline](injector)
	if err != nil {
		return err
	}
	return pipeline.Run(progArgs)
}
