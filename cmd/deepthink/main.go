// Command deepthink runs the parallel reasoning pipeline from the
// command line or serves it over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	deepthink "github.com/everydev1618/godeepthink"
	"github.com/everydev1618/godeepthink/llm"
	"github.com/everydev1618/godeepthink/search"
	"github.com/everydev1618/godeepthink/serve"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "version":
		fmt.Println("deepthink", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `deepthink - parallel reasoning pipeline

Usage:
  deepthink run [flags] "query"    run one query and print the answer
  deepthink serve [flags]          serve the HTTP API
  deepthink version                print the version

Run flags:
  -config path     YAML config file
  -paths n         first-round reasoning paths
  -topk k          candidates handed to the refiner
  -timeout d       global run timeout (e.g. 300s)
  -no-meta         skip the meta-refinement pass
  -json            print the full outcome as JSON
  -v               debug logging

Serve flags:
  -config path     YAML config file
  -addr addr       listen address (default :8080)
  -db path         SQLite database path (default runs in ./deepthink-runs as JSON)
  -v               debug logging

Environment:
  GEMINI_API_KEY   backend API key (required)
  TAVILY_API_KEY   enables live web research when set
`)
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig(path string) deepthink.Config {
	if path == "" {
		return deepthink.DefaultConfig()
	}
	cfg, err := deepthink.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func requireAPIKey() {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "error: GEMINI_API_KEY is not set")
		os.Exit(1)
	}
}

func searchProvider() search.Provider {
	if os.Getenv("TAVILY_API_KEY") != "" {
		return search.NewTavily("")
	}
	return nil
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	paths := fs.Int("paths", 0, "first-round reasoning paths")
	topK := fs.Int("topk", 0, "candidates handed to the refiner")
	timeout := fs.Duration("timeout", 0, "global run timeout")
	noMeta := fs.Bool("no-meta", false, "skip the meta-refinement pass")
	asJSON := fs.Bool("json", false, "print the full outcome as JSON")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: deepthink run [flags] \"query\"")
		os.Exit(1)
	}
	query := fs.Arg(0)

	setupLogging(*verbose)
	requireAPIKey()
	cfg := loadConfig(*configPath)

	pipeOpts := []deepthink.PipelineOption{}
	if p := searchProvider(); p != nil {
		pipeOpts = append(pipeOpts, deepthink.WithSearchProvider(p))
	}

	pipe, err := deepthink.NewPipeline(llm.NewGemini(llm.WithModel(cfg.Model)), cfg, pipeOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var runOpts []deepthink.RunOption
	if *paths > 0 {
		runOpts = append(runOpts, deepthink.WithPathCount(*paths))
	}
	if *topK > 0 {
		runOpts = append(runOpts, deepthink.WithTopK(*topK))
	}
	if *timeout > 0 {
		runOpts = append(runOpts, deepthink.WithGlobalTimeout(*timeout))
	}
	if *noMeta {
		runOpts = append(runOpts, deepthink.WithMetaRefine(false))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := pipe.Run(ctx, query, runOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if outcome == nil {
			os.Exit(1)
		}
		// Partial results from a cancelled or failed run are still
		// worth showing.
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(outcome)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	if outcome.Answer != "" {
		fmt.Println(outcome.Answer)
	}
	for _, warning := range outcome.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	meta := outcome.Metadata
	fmt.Fprintf(os.Stderr, "\n[run %s: %s, %d paths, %d calls, %s]\n",
		meta.RunID, meta.State, meta.PathsConsumed, meta.GatewayCalls,
		meta.Elapsed.Round(time.Millisecond))
	if err != nil {
		os.Exit(1)
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	addr := fs.String("addr", ":8080", "listen address")
	dbPath := fs.String("db", "", "SQLite database path")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Parse(args)

	setupLogging(*verbose)
	requireAPIKey()
	cfg := loadConfig(*configPath)

	opts := []serve.ServerOption{}
	if *dbPath != "" {
		opts = append(opts, serve.WithStore(serve.NewSQLiteStore(*dbPath)))
	}
	if p := searchProvider(); p != nil {
		opts = append(opts, serve.WithSearchProvider(p))
	}

	srv, err := serve.NewServer(llm.NewGemini(llm.WithModel(cfg.Model)), cfg, *addr, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
