package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/inboxlens/inboxlens/internal/analysis"
	"github.com/inboxlens/inboxlens/internal/config"
	"github.com/inboxlens/inboxlens/internal/history"
	"github.com/inboxlens/inboxlens/internal/metrics"
)

var (
	cfgFile   string
	dbFile    string
	logLevel  string
	logFormat string
)

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func resolveDBPath() string {
	if dbFile != "" {
		return dbFile
	}
	return history.DefaultDBPath()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "inboxlens",
		Short: "InboxLens - Content analysis for your inbox",
		Long: `InboxLens reads your mail and turns each message into a structured
annotation: summary, entities, keywords, category, sentiment, action items,
follow-up need, contacts and a priority score.

Everything runs locally. Results are kept in a SQLite database and can be
browsed from the command line or the local web dashboard.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.inboxlens/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbFile, "db", "", "database file (default is $HOME/.inboxlens/inboxlens.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: auto, console, json (overrides config)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(actionsCmd())
	rootCmd.AddCommand(contactsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(digestCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, or returns defaults when there is none.
func loadConfig() (*config.Config, error) {
	path := resolveConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes human-readable logs to a terminal and JSON otherwise.
func newLogger(cfg config.Log, w io.Writer) zerolog.Logger {
	level := cfg.Level
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.Format
	if logFormat != "" {
		format = logFormat
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	console := format == "console"
	if format == "" || format == "auto" {
		if f, ok := w.(*os.File); ok {
			console = isatty.IsTerminal(f.Fd())
		}
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// env bundles what most commands need.
type env struct {
	cfg *config.Config
	log zerolog.Logger
}

func setup() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &env{cfg: cfg, log: newLogger(cfg.Log, os.Stderr)}, nil
}

func (e *env) openStore() (*history.Store, error) {
	store, err := history.NewStore(resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func (e *env) newAnalyzer() *analysis.Analyzer {
	return analysis.NewFromConfig(e.cfg.Analysis, e.log, analysis.WithObserver(metrics.ObserveAnalysis))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nShutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func prompt(reader *bufio.Reader, message string) string {
	fmt.Print(message)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
