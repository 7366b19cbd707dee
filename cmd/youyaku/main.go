// Package main is the Youyaku CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/youyaku/internal/cli"
	"github.com/hyperjump/youyaku/internal/config"
	"github.com/hyperjump/youyaku/internal/extract"
	"github.com/hyperjump/youyaku/internal/fileid"
	"github.com/hyperjump/youyaku/internal/models"
	"github.com/hyperjump/youyaku/internal/server"
	"github.com/hyperjump/youyaku/internal/watcher"
	"github.com/hyperjump/youyaku/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/youyaku/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if present, so "youyaku server" from a project dir uses the
// project's config. A missing default file falls back to built-in defaults.
// Returns the config and the path that was loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Default()
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "summarize":
		runSummarize()
	case "history":
		runHistory()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version":
		fmt.Printf("youyaku %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (pipeline events, inbox activity)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srvOpts := []server.Option{
		server.WithIndex(components.KeywordIndex),
		server.WithMetrics(components.Metrics.Handler()),
	}

	inboxCtx, inboxCancel := context.WithCancel(context.Background())
	defer inboxCancel()
	var inbox *watcher.Inbox
	if len(cfg.Watch.Directories) > 0 {
		inbox = watcher.New(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			inboxHandler(components, extract.NewExtractor(), logger),
			watcher.WithLogger(logger),
		)
		if err := inbox.Start(inboxCtx); err != nil {
			logger.Fatal("Failed to start inbox", zap.Error(err))
		}
		srvOpts = append(srvOpts, server.WithInbox(inbox))
	}

	srv := server.NewServer(components.Engine, components.History, components.Storage, cfg, logger, srvOpts...)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	inboxCancel()
	if inbox != nil {
		inbox.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// inboxHandler summarizes a settled inbox file with default length and mode.
// The engine archives the result under the file's stable source id.
func inboxHandler(c *Components, ext *extract.Extractor, logger *zap.Logger) watcher.Handler {
	return func(ctx context.Context, f watcher.File) error {
		text, err := ext.ExtractBytes(f.Content, filepath.Ext(f.Path))
		if err != nil {
			return fmt.Errorf("extract %s: %w", f.Path, err)
		}
		resp, err := c.Engine.Summarize(ctx, &models.SummarizeRequest{Text: text, Source: f.SourceID})
		if err != nil {
			return fmt.Errorf("summarize %s: %w", f.Path, err)
		}
		logger.Info("Inbox file summarized",
			zap.String("path", f.Path),
			zap.String("id", resp.ID),
			zap.String("title", resp.Title),
			zap.Int("chunks", resp.Chunks),
		)
		return nil
	}
}

// readInput returns the text to summarize and its source tag. "-" or "" reads stdin;
// anything else is a file run through the extractor.
func readInput(arg string, stdin io.Reader, ext *extract.Extractor) (text, source string, err error) {
	if arg == "" || arg == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), "cli", nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", "", err
	}
	text, err = ext.Extract(abs)
	if err != nil {
		return "", "", err
	}
	return text, fileid.SourceID(abs), nil
}

func runSummarize() {
	args := searchArgsReorder(os.Args[2:])
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (used when reachable; empty = always run locally)")
	length := fs.String("length", "medium", "summary length: short, medium, or long")
	mode := fs.String("mode", "reliable", "generation mode: reliable or creative")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: youyaku summarize [flags] <file|->")
		os.Exit(1)
	}

	text, source, err := readInput(fs.Arg(0), os.Stdin, extract.NewExtractor())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}
	req := &models.SummarizeRequest{Text: text, Length: *length, Mode: *mode, Source: source}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var resp *models.SummarizeResponse
	if *serverURL != "" {
		client := newAPIClient(*serverURL, 10*time.Minute)
		if client.reachable(ctx) {
			resp, err = client.summarize(ctx, req)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
				os.Exit(1)
			}
		}
	}

	if resp == nil {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		resp, err = components.Engine.Summarize(ctx, req)
		components.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteSummary(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 10, "number of summaries")
	offset := fs.Int("offset", 0, "number of summaries to skip")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx := context.Background()

	var records []*models.SummaryRecord
	if *serverURL != "" {
		page, err := newAPIClient(*serverURL, 30*time.Second).history(ctx, *offset, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
		records = page.Summaries
	} else {
		components, logger := directComponents(ctx, *configPath)
		defer logger.Sync()
		defer components.Close()
		records, err = components.Storage.ListRecords(ctx, *offset, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteHistory(os.Stdout, records, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: youyaku search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Searches titles and summaries of archived runs. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
When nothing matches, the search is retried once with typo tolerance.

Examples:
  youyaku search quarterly revenue
  youyaku search --fuzzy reveneu
  youyaku search --min-score 0.3 --limit 5 board meeting
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchLimitDefaultFromConfig returns search.default_limit from the config at path, or 10.
func searchLimitDefaultFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil || cfg.Search.DefaultLimit <= 0 {
		return 10
	}
	return cfg.Search.DefaultLimit
}

// searchArgsReorder moves any flags (and their values) that appear after the
// positional arguments to the front, since flag.Parse stops at the first
// non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 1 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// historySearcher is satisfied by both the HTTP client and the local search engine.
type historySearcher func(ctx context.Context, q *models.HistoryQuery) (*models.HistoryResponse, error)

// searchWithFuzzyRetry runs q and, when it finds nothing and fuzzy was off, retries
// once with fuzzy matching.
func searchWithFuzzyRetry(ctx context.Context, search historySearcher, q *models.HistoryQuery) (*models.HistoryResponse, error) {
	resp, err := search(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.FuzzyEnabled || resp.Total > 0 {
		return resp, nil
	}
	retry := *q
	retry.FuzzyEnabled = true
	fuzzy, err := search(ctx, &retry)
	if err == nil && fuzzy.Total > 0 {
		return fuzzy, nil
	}
	return resp, nil
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", searchLimitDefaultFromConfig(configPath), "number of results")
	offset := fs.Int("offset", 0, "number of results to skip")
	minScore := fs.Float64("min-score", 0, "minimum normalized score (0..1)")
	fuzzyEnabled := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	query := &models.HistoryQuery{
		Query:        queryStr,
		Limit:        *limit,
		Offset:       *offset,
		MinScore:     *minScore,
		FuzzyEnabled: *fuzzyEnabled,
	}
	ctx := context.Background()

	var response *models.HistoryResponse
	if *serverURL != "" {
		client := newAPIClient(*serverURL, 30*time.Second)
		response, err = searchWithFuzzyRetry(ctx, client.search, query)
	} else {
		components, logger := directComponents(ctx, *configPathFlag)
		defer logger.Sync()
		defer components.Close()
		response, err = searchWithFuzzyRetry(ctx, components.History.Search, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx := context.Background()

	var status *models.StatusResponse
	if *serverURL != "" {
		status, err = newAPIClient(*serverURL, 10*time.Second).status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, logger := directComponents(ctx, *configPath)
		defer logger.Sync()
		defer components.Close()
		status, err = components.Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}

	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// directComponents loads config and opens local storage for commands that run
// without a server. It exits on failure.
func directComponents(ctx context.Context, configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return components, logger
}

func printUsage() {
	fmt.Println(`youyaku - Recursive document summarization server

Usage:
  youyaku server [flags]                Start the HTTP server
  youyaku summarize [flags] <file|->    Summarize a file, or stdin with "-"
  youyaku history [flags]               List archived summaries, newest first
  youyaku search [flags] <query>        Search archived summaries
  youyaku status [flags]                Show archive, index and model status
  youyaku version                       Show version
  youyaku help                          Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/youyaku/config.yaml)
  --debug            Enable debug logging

Summarize Flags:
  --config string    Config file path (used when running locally)
  --server string    Server URL (default: http://localhost:8080). Runs locally when the server is unreachable or --server "".
  --length string    short, medium or long (default: medium)
  --mode string      reliable or creative (default: reliable)
  --output string    Output format: text or json (default: text)

History Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --limit int        Number of summaries (default: 10)
  --offset int       Number of summaries to skip
  --output string    Output format: text or json

Search Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --limit int        Number of results (default from config, or 10)
  --min-score float  Minimum normalized score (0..1)
  --fuzzy            Enable fuzzy matching for typo tolerance
  --output string    Output format: text or json

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json

Examples:
  youyaku server
  youyaku summarize --length short report.pdf
  cat notes.txt | youyaku summarize --mode creative -
  youyaku history --limit 5
  youyaku search "quarterly revenue"
  youyaku status --output json`)
}
