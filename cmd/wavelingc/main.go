package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	waveling "github.com/synthizer/waveling"
	"github.com/synthizer/waveling/internal/config"
	"github.com/synthizer/waveling/internal/diagnostics"
	"github.com/synthizer/waveling/internal/ircache"
)

// Exit codes: 0 success, 1 compilation error, 2 usage or I/O error.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		outPath    = flag.String("o", "", "write the IR document here instead of stdout")
		pretty     = flag.Bool("pretty", false, "indent the IR output")
		noCache    = flag.Bool("no-cache", false, "bypass the compile cache")
		configPath = flag.String("config", "", "project config file (default: waveling.yaml upward from the source)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: wavelingc [flags] file%s\n", config.SourceFileExt)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return exitUsage
	}
	srcPath := flag.Arg(0)
	if !isSourceFile(srcPath) {
		fmt.Fprintf(os.Stderr, "wavelingc: %s is not a Waveling source file (want %s)\n",
			srcPath, strings.Join(config.SourceFileExtensions, ", "))
		return exitUsage
	}

	source, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavelingc: %s\n", err)
		return exitUsage
	}

	proj, err := loadProject(srcPath, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavelingc: %s\n", err)
		return exitUsage
	}
	if *outPath == "" {
		*outPath = proj.Output
	}
	if proj.Pretty {
		*pretty = true
	}

	var cache *ircache.Cache
	if proj.Cache.Enabled && !*noCache {
		cache, err = ircache.Open(proj.Cache.Path)
		if err != nil {
			// A broken cache never blocks a build.
			fmt.Fprintf(os.Stderr, "wavelingc: %s (continuing without cache)\n", err)
		} else {
			defer cache.Close()
		}
	}

	key := ircache.Key(string(source))
	if cache != nil {
		if blob, hit, err := cache.Get(key); err == nil && hit {
			return writeOutput(*outPath, blob)
		}
	}

	result := waveling.Compile(string(source), srcPath)
	printDiagnostics(result.Diagnostics)
	if result.Failed() {
		return exitError
	}

	encoded, err := encodeIR(result, *pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wavelingc: %s\n", err)
		return exitUsage
	}
	if cache != nil {
		if err := cache.Put(key, encoded); err != nil {
			fmt.Fprintf(os.Stderr, "wavelingc: %s\n", err)
		}
	}
	return writeOutput(*outPath, encoded)
}

func isSourceFile(path string) bool {
	for _, ext := range config.SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func loadProject(srcPath, override string) (*config.Project, error) {
	if override != "" {
		data, err := os.ReadFile(override)
		if err != nil {
			return nil, err
		}
		return config.ParseProject(data, filepath.Dir(override))
	}
	return config.LoadProject(filepath.Dir(srcPath))
}

func encodeIR(result *waveling.Result, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(result.IR, "", "  ")
	}
	return json.Marshal(result.IR)
}

func writeOutput(path string, data []byte) int {
	if path == "" {
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
		return exitOK
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "wavelingc: %s\n", err)
		return exitUsage
	}
	return exitOK
}

// ANSI colors, used only when stderr is a terminal.
const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

func printDiagnostics(diags []*diagnostics.DiagnosticError) {
	useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	for _, d := range diags {
		if !useColor {
			fmt.Fprintln(os.Stderr, d.Error())
			continue
		}
		color := colorRed
		if d.Severity == diagnostics.SeverityWarning {
			color = colorYellow
		}
		fmt.Fprintf(os.Stderr, "%s%s%s\n", color, d.Error(), colorReset)
	}
}
