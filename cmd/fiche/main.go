// CLAUDE:SUMMARY CLI entry point for fiche — one-shot diff, file-watch, and MCP stdio modes.
// Command fiche computes classified change sets between character-sheet
// snapshots.
//
// Usage:
//
//	fiche -prev old.json -curr new.json -rules rules.yaml   # one-shot diff
//	fiche -watch sheet.json -interval 30s                   # poll a file, emit JSON lines
//	fiche -mcp -rules rules.yaml                            # serve MCP tools on stdio
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

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/fiche"
	"github.com/hazyhaar/fiche/change"
	"github.com/hazyhaar/fiche/monitor"
)

func main() {
	prevPath := flag.String("prev", "", "path to the previous snapshot JSON")
	currPath := flag.String("curr", "", "path to the current snapshot JSON")
	rulesPath := flag.String("rules", "", "path to the YAML ruleset file (optional)")
	watchPath := flag.String("watch", "", "poll a snapshot JSON file and emit change sets")
	interval := flag.Duration("interval", time.Minute, "watch polling interval")
	debounce := flag.Duration("debounce", 0, "watch debounce window")
	serveMCP := flag.Bool("mcp", false, "serve the engine as MCP tools on stdio")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *prevPath, *currPath, *rulesPath, *watchPath, *interval, *debounce, *serveMCP); err != nil {
		logger.Error("fiche: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, prevPath, currPath, rulesPath, watchPath string, interval, debounce time.Duration, serveMCP bool) error {
	engine, err := buildEngine(rulesPath, logger)
	if err != nil {
		return err
	}

	switch {
	case serveMCP:
		return runMCP(ctx, engine)
	case watchPath != "":
		return runWatch(ctx, logger, engine, watchPath, interval, debounce)
	case prevPath != "" && currPath != "":
		return runOnce(engine, prevPath, currPath)
	}

	fmt.Fprintln(os.Stderr, "usage: fiche -prev <file> -curr <file> | -watch <file> | -mcp")
	os.Exit(1)
	return nil
}

func buildEngine(rulesPath string, logger *slog.Logger) (*fiche.Engine, error) {
	if rulesPath == "" {
		return fiche.New(fiche.EngineConfig{DefaultPriority: change.PriorityLow}, logger)
	}
	cfg, err := fiche.LoadConfigFile(rulesPath)
	if err != nil {
		return nil, err
	}
	return fiche.New(*cfg, logger)
}

func runOnce(engine *fiche.Engine, prevPath, currPath string) error {
	prev, err := loadSnapshot(prevPath)
	if err != nil {
		return err
	}
	curr, err := loadSnapshot(currPath)
	if err != nil {
		return err
	}

	cs, err := engine.ComputeChangeSet(prev, curr)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runWatch(ctx context.Context, logger *slog.Logger, engine *fiche.Engine, path string, interval, debounce time.Duration) error {
	src := monitor.SourceFunc(path, func(context.Context) (change.Snapshot, error) {
		return loadSnapshot(path)
	})
	m := monitor.New(engine, src, monitor.Options{
		Interval: interval,
		Debounce: debounce,
		Logger:   logger,
	}, monitor.NewStdout(nil))
	return m.Run(ctx)
}

func runMCP(ctx context.Context, engine *fiche.Engine) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "fiche", Version: "1.0.0"}, nil)
	engine.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func loadSnapshot(path string) (change.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap change.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}
