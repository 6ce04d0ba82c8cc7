package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/nerdalytics/tinywhale/internal/cache"
	"github.com/nerdalytics/tinywhale/internal/config"
	"github.com/nerdalytics/tinywhale/internal/diagnostics"
	"github.com/nerdalytics/tinywhale/internal/rpc"
	"github.com/nerdalytics/tinywhale/pkg/compiler"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "build":
		handleBuild()
	case "check":
		handleCheck()
	case "serve":
		handleServe()
	case "cache":
		handleCache()
	case "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  twc build <file.tw>   compile a source file and print its SemIR summary")
	fmt.Println("  twc check <file.tw>   run the checker only; exit 0 if clean, 1 otherwise")
	fmt.Println("  twc serve [addr]      start the gRPC compile daemon (default :9091)")
	fmt.Println("  twc cache stats       print cached compile counts (total/valid/failed)")
}

func loadOptions(path string) compiler.Options {
	opts := config.DefaultCompileOptions()
	if cfgPath, err := config.FindConfig("."); err == nil && cfgPath != "" {
		if cfg, err := config.LoadConfig(cfgPath); err == nil {
			opts = cfg.CompileOptions()
		}
	}
	return compiler.Options{FilePath: path, CompileOptions: opts}
}

func handleBuild() bool {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: twc build <file.tw>")
		os.Exit(1)
	}
	path := os.Args[2]
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %s\n", path, err)
		os.Exit(1)
	}

	opts := loadOptions(path)
	c, err := openDefaultCache()
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening cache: %s\n", err)
		os.Exit(1)
	}
	defer c.Close()

	hash := cache.Hash(string(src), opts.CompileOptions)
	if rec, ok, lookupErr := c.Lookup(hash); lookupErr == nil && ok {
		if !rec.Valid {
			printCachedDiagnostics(rec)
			os.Exit(1)
		}
		fmt.Printf("%s: %d instructions, %d symbols, %d types (cached)\n", path, rec.InstCount, rec.SymbolCount, rec.TypeCount)
		printCachedDiagnostics(rec)
		return true
	}

	result, err := compiler.Compile(string(src), opts)
	if err != nil {
		storeCompileError(c, hash, err)
		printDiagnosticError(err)
		os.Exit(1)
	}
	storeResult(c, hash, result)

	fmt.Printf("%s: %d instructions, %d symbols, %d types\n",
		path, len(result.SemIR.Insts), len(result.SemIR.Symbols), len(result.SemIR.Types))
	for _, w := range result.Warnings {
		printDiagnostic(w)
	}
	return true
}

func handleCheck() bool {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: twc check <file.tw>")
		os.Exit(1)
	}
	path := os.Args[2]
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %s\n", path, err)
		os.Exit(1)
	}

	opts := loadOptions(path)
	c, err := openDefaultCache()
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening cache: %s\n", err)
		os.Exit(1)
	}
	defer c.Close()

	hash := cache.Hash(string(src), opts.CompileOptions)
	if rec, ok, lookupErr := c.Lookup(hash); lookupErr == nil && ok {
		if !rec.Valid {
			printCachedDiagnostics(rec)
			os.Exit(1)
		}
		fmt.Printf("%s: ok (cached)\n", path)
		return true
	}

	result, err := compiler.Compile(string(src), opts)
	if err != nil {
		storeCompileError(c, hash, err)
		printDiagnosticError(err)
		os.Exit(1)
	}
	storeResult(c, hash, result)
	fmt.Printf("%s: ok\n", path)
	return true
}

// openDefaultCache opens the user-cache-scoped build cache every build/check
// invocation shares, so repeated compiles of the same source and options
// short-circuit on a hash hit instead of re-running the pipeline.
func openDefaultCache() (*cache.Cache, error) {
	home, err := os.UserCacheDir()
	if err != nil {
		home = "."
	}
	return cache.Open(home + "/tinywhale/cache.db")
}

func storeResult(c *cache.Cache, hash string, result *compiler.Result) {
	diagsJSON, err := cache.EncodeDiagnostics(result.Warnings)
	if err != nil {
		return
	}
	_ = c.Store(cache.Record{
		Hash:            hash,
		Valid:           result.Valid,
		InstCount:       len(result.SemIR.Insts),
		SymbolCount:     len(result.SemIR.Symbols),
		TypeCount:       len(result.SemIR.Types),
		DiagnosticsJSON: diagsJSON,
		CompiledAt:      time.Now().Unix(),
	})
}

func storeCompileError(c *cache.Cache, hash string, err error) {
	ce, ok := err.(*compiler.CompileError)
	if !ok {
		return
	}
	diagsJSON, encErr := cache.EncodeDiagnostics([]*diagnostics.Diagnostic{ce.Diagnostic})
	if encErr != nil {
		return
	}
	_ = c.Store(cache.Record{
		Hash:            hash,
		Valid:           false,
		DiagnosticsJSON: diagsJSON,
		CompiledAt:      time.Now().Unix(),
	})
}

func printCachedDiagnostics(rec cache.Record) {
	diags, err := cache.DecodeDiagnostics(rec.DiagnosticsJSON)
	if err != nil {
		return
	}
	for _, d := range diags {
		printDiagnostic(d)
	}
}

func handleServe() bool {
	addr := ":9091"
	if len(os.Args) >= 3 {
		addr = os.Args[2]
	}

	server, err := rpc.NewServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "starting server: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("twc serve: listening on %s\n", addr)
	if err := server.Serve(addr); err != nil {
		fmt.Fprintf(os.Stderr, "serve: %s\n", err)
		os.Exit(1)
	}
	return true
}

func handleCache() bool {
	if len(os.Args) < 3 || os.Args[2] != "stats" {
		fmt.Fprintln(os.Stderr, "usage: twc cache stats")
		os.Exit(1)
	}

	c, err := openDefaultCache()
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening cache: %s\n", err)
		os.Exit(1)
	}
	defer c.Close()

	stats, err := c.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading cache stats: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("total: %d, valid: %d, failed: %d\n", stats.Total, stats.Valid, stats.Failed)
	return true
}

func colorEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func printDiagnosticError(err error) {
	ce, ok := err.(*compiler.CompileError)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return
	}
	printDiagnostic(ce.Diagnostic)
}

func printDiagnostic(d *diagnostics.Diagnostic) {
	if colorEnabled() {
		color := "\033[33m"
		if d.Severity == diagnostics.SeverityError {
			color = "\033[31m"
		}
		fmt.Fprintf(os.Stderr, "%s%d:%d: %s\033[0m\n", color, d.Line, d.Column, d.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "%d:%d: %s\n", d.Line, d.Column, d.Error())
}
