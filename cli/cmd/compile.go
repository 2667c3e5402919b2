package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/embedstyle/stylehost/callback"
	"github.com/embedstyle/stylehost/cli/render"
	"github.com/embedstyle/stylehost/config"
	"github.com/embedstyle/stylehost/host"
	"github.com/embedstyle/stylehost/launcher"
	"github.com/embedstyle/stylehost/log"
	"github.com/embedstyle/stylehost/session"
	"github.com/embedstyle/stylehost/wire"
)

// Exit codes for the compile command.
const (
	exitSuccess      = 0
	exitCompileError = 1
	exitHostAborted  = 2
	exitUsageError   = 3
)

// CompileCommand returns the compile command. This is the only command
// that launches a compiler subprocess and performs work.
func CompileCommand() *cli.Command {
	return &cli.Command{
		Name:  "compile",
		Usage: "Compile a stylesheet entry through the embedded compiler",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a stylehost.yaml config file",
			},
			&cli.StringFlag{
				Name:  "compiler",
				Usage: "Path to the stylesheet compiler binary",
			},
			&cli.StringFlag{
				Name:  "compiler-checksum",
				Usage: "Expected SHA256 of the compiler binary (optional)",
			},
			// Entry selection: --entry for a file, or --data/--syntax/--url for inline source.
			&cli.StringFlag{
				Name:  "entry",
				Usage: "Path to the stylesheet file to compile",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Inline stylesheet source (alternative to --entry)",
			},
			&cli.StringFlag{
				Name:  "syntax",
				Usage: "Syntax of inline --data: scss, sass, or css",
				Value: "scss",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Canonical URL for inline --data (default: stdin://entry)",
			},
			// Compile options.
			&cli.StringFlag{
				Name:  "style",
				Usage: "Output style: expanded or compressed",
				Value: "expanded",
			},
			&cli.BoolFlag{
				Name:  "source-map",
				Usage: "Generate a source map",
			},
			&cli.BoolFlag{
				Name:  "source-map-include-sources",
				Usage: "Embed source contents in the source map",
			},
			&cli.BoolFlag{
				Name:  "charset",
				Usage: "Emit a @charset / BOM for non-ASCII output",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "quiet-deps",
				Usage: "Suppress warnings from dependencies",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Do not suppress repeated deprecation warnings",
			},
			&cli.BoolFlag{
				Name:  "alert-ascii",
				Usage: "Use ASCII-only warning/error formatting",
			},
			&cli.BoolFlag{
				Name:  "alert-color",
				Usage: "Force colored warning/error formatting",
			},
			&cli.StringSliceFlag{
				Name:  "load-path",
				Usage: "Additional load path for import resolution (repeatable)",
			},
			// Ambient component overrides.
			&cli.StringFlag{
				Name:  "archive-backend",
				Usage: "Archive backend: fs, s3, or none",
			},
			&cli.StringFlag{
				Name:  "archive-root",
				Usage: "Archive root directory (fs backend)",
			},
			&cli.StringFlag{
				Name:  "telemetry-policy",
				Usage: "Telemetry policy: strict, buffered, or none",
			},
			&cli.StringFlag{
				Name:  "adapter-type",
				Usage: "Completion adapter: webhook, redis, or none",
			},
			&cli.StringFlag{
				Name:  "adapter-url",
				Usage: "Completion adapter endpoint override",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress result output",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "Print host metrics after compiling",
			},
			FormatFlag,
			NoColorFlag,
			TUIFlag,
		},
		Action: compileAction,
	}
}

func compileAction(c *cli.Context) error {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to load config: %v", err), exitUsageError)
		}
		cfg = loaded
	}

	entry, err := buildEntry(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsageError)
	}

	compilerPath := c.String("compiler")
	if compilerPath == "" {
		compilerPath = cfg.CompilerPath
	}
	if compilerPath == "" {
		return cli.Exit("compiler path required: pass --compiler or set compiler_path in config", exitUsageError)
	}

	resolved, err := launcher.Resolve(compilerPath, c.String("compiler-checksum"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to resolve compiler: %v", err), exitUsageError)
	}

	telemetryPolicy, err := buildTelemetry(cfg, c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to build telemetry policy: %v", err), exitUsageError)
	}

	archiveStore, err := buildArchive(cfg, c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to build archive store: %v", err), exitUsageError)
	}

	adapters, err := buildAdapters(cfg, c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to build adapters: %v", err), exitUsageError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	h, err := host.New(ctx, host.Config{
		Resolved:  resolved,
		Codec:     wire.NewMsgpackCodec(),
		Logger:    log.New(),
		Telemetry: telemetryPolicy,
		Archive:   archiveStore,
		Adapters:  adapters,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to start host: %v", err), exitHostAborted)
	}
	defer func() { _ = h.Close() }()

	req := &session.Request{
		Entry:                   entry,
		Style:                   c.String("style"),
		SourceMap:               c.Bool("source-map"),
		SourceMapIncludeSources: c.Bool("source-map-include-sources"),
		Charset:                 c.Bool("charset"),
		QuietDeps:               c.Bool("quiet-deps"),
		Verbose:                 c.Bool("verbose"),
		AlertASCII:              c.Bool("alert-ascii"),
		AlertColor:              c.Bool("alert-color"),
		LoadPaths:               c.StringSlice("load-path"),
		Functions:               callback.NewFunctionTable(),
		Importers:               callback.NewImporterTable(),
	}

	start := time.Now()
	result, compileErr := h.Compile(ctx, req)
	duration := time.Since(start)

	if !c.Bool("quiet") {
		printCompileResult(result, compileErr, duration)
	}

	if c.Bool("stats") {
		if err := renderStats(c, h); err != nil {
			fmt.Fprintf(os.Stderr, "failed to render stats: %v\n", err)
		}
	}

	return cli.Exit("", outcomeToExitCode(compileErr))
}

// buildEntry assembles a wire.CompileEntry from --entry or --data/--syntax/--url.
func buildEntry(c *cli.Context) (wire.CompileEntry, error) {
	path := c.String("entry")
	data := c.String("data")

	if path == "" && data == "" {
		return wire.CompileEntry{}, fmt.Errorf("one of --entry or --data is required")
	}
	if path != "" && data != "" {
		return wire.CompileEntry{}, fmt.Errorf("--entry and --data are mutually exclusive")
	}

	if path != "" {
		return wire.CompileEntry{Path: &path}, nil
	}

	url := c.String("url")
	if url == "" {
		url = "stdin://entry"
	}
	return wire.CompileEntry{
		Data:   &data,
		Syntax: c.String("syntax"),
		URL:    url,
	}, nil
}

func outcomeToExitCode(err error) int {
	outcome, _ := classifyOutcomeForExit(err)
	switch outcome {
	case "success":
		return exitSuccess
	case "compile_error":
		return exitCompileError
	default:
		return exitHostAborted
	}
}

func classifyOutcomeForExit(err error) (outcome, message string) {
	if err == nil {
		return "success", ""
	}
	var compileErr *session.CompileError
	if errors.As(err, &compileErr) {
		return "compile_error", compileErr.Error()
	}
	return "aborted", err.Error()
}

func printCompileResult(result *session.Result, compileErr error, duration time.Duration) {
	outcome, message := classifyOutcomeForExit(compileErr)

	fmt.Printf("\noutcome=%s, duration=%s\n", outcome, duration.Round(time.Millisecond))

	if compileErr != nil {
		fmt.Printf("error: %s\n", message)
		return
	}

	fmt.Printf("\n=== Compile Result ===\n")
	fmt.Printf("CSS bytes:    %d\n", len(result.CSS))
	if result.SourceMap != "" {
		fmt.Printf("Source map:   %d bytes\n", len(result.SourceMap))
	}
	if len(result.LoadedURLs) > 0 {
		fmt.Printf("Loaded URLs:\n")
		for _, u := range result.LoadedURLs {
			fmt.Printf("  - %s\n", u)
		}
	}
	fmt.Println()
	fmt.Print(result.CSS)
}

func renderStats(c *cli.Context, h *host.Host) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	snap := h.Metrics()
	if c.Bool("tui") {
		return r.RenderTUI("stats_metrics", snap)
	}
	return r.Render(snap)
}
