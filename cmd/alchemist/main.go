package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/alchemist/internal/cache"
	"github.com/funvibe/alchemist/internal/config"
	"github.com/funvibe/alchemist/internal/lower"
	"github.com/funvibe/alchemist/internal/pipeline"
)

type options struct {
	dump       bool
	noCache    bool
	configPath string
	inputs     []string
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <file%s>...\n", os.Args[0], config.IRFileExt)
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  --dump           print lowered output to stdout")
	fmt.Fprintln(os.Stderr, "  --no-cache       bypass the incremental compile cache")
	fmt.Fprintln(os.Stderr, "  --config <path>  project file (default "+config.ConfigFileName+")")
	os.Exit(1)
}

func parseArgs(args []string) options {
	opts := options{configPath: config.ConfigFileName}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--dump", "-dump":
			opts.dump = true
		case "--no-cache", "-no-cache":
			opts.noCache = true
		case "--config", "-config":
			if i+1 >= len(args) {
				usage()
			}
			i++
			opts.configPath = args[i]
		case "-help", "--help", "help":
			usage()
		default:
			if strings.HasPrefix(args[i], "-") {
				fmt.Fprintf(os.Stderr, "Unknown option: %s\n", args[i])
				usage()
			}
			opts.inputs = append(opts.inputs, args[i])
		}
	}
	if len(opts.inputs) == 0 {
		usage()
	}
	return opts
}

func main() {
	opts := parseArgs(os.Args[1:])

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	configBytes, _ := os.ReadFile(opts.configPath)

	var store *cache.Cache
	if !opts.noCache && cfg.Cache != "" {
		opened, diag := cache.Open(cfg.Cache)
		if diag != nil {
			// A broken cache degrades to uncached compilation.
			fmt.Fprintf(os.Stderr, "warning: %s\n", diag)
		} else {
			store = opened
			defer store.Close()
		}
	}

	failed := false
	for _, input := range opts.inputs {
		if !compileUnit(input, cfg, configBytes, store, opts.dump) {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func compileUnit(path string, cfg *config.Config, configBytes []byte, store *cache.Cache, dump bool) bool {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return false
	}

	fingerprint := cache.Fingerprint(source, configBytes)
	if store != nil {
		if output, hit, err := store.Lookup(path, fingerprint); err == nil && hit {
			return emit(path, cfg, output, dump)
		}
	}

	ctx := pipeline.NewContext(path, source, cfg)
	p := pipeline.New(
		&pipeline.DecodeProcessor{},
		&lower.LowerProcessor{},
		&pipeline.RenderProcessor{},
	)
	ctx = p.Run(ctx)

	for _, note := range ctx.ReviewNotes {
		fmt.Fprintf(os.Stderr, "%s %s\n", paint("note:", ansiYellow), note)
	}
	if ctx.HasErrors() {
		for _, diag := range ctx.Errors {
			fmt.Fprintf(os.Stderr, "%s %s\n", paint("error:", ansiRed), diag)
		}
		return false
	}

	if store != nil {
		if err := store.Store(ctx.UnitID.String(), path, fingerprint, ctx.Output); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cache store: %v\n", err)
		}
	}
	return emit(path, cfg, ctx.Output, dump)
}

func emit(path string, cfg *config.Config, output string, dump bool) bool {
	if dump {
		fmt.Print(output)
		return true
	}
	target := outputPath(path, cfg)
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return false
		}
	}
	if err := os.WriteFile(target, []byte(output), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return false
	}
	return true
}

func outputPath(input string, cfg *config.Config) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, config.IRFileExt) + ".ex"
	if cfg.Output != "" {
		return filepath.Join(cfg.Output, base)
	}
	return filepath.Join(filepath.Dir(input), base)
}

const (
	ansiRed    = "31"
	ansiYellow = "33"
)

func paint(s, color string) string {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return s
	}
	return "\033[" + color + "m" + s + "\033[0m"
}
