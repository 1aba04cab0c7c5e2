// Package cli implements the dialogtool command line: the HTTP server and
// offline export, graph, lint and import commands working directly on the
// configured database.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Bellian/Godot-Translation-Tool/internal/config"
	"github.com/Bellian/Godot-Translation-Tool/internal/instrument"
	"github.com/Bellian/Godot-Translation-Tool/internal/lint"
	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/repo"
	"github.com/Bellian/Godot-Translation-Tool/internal/store"
)

const appName = "dialogtool"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a CLI logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Dialog and translation editor backend for Godot projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			ctx := instrument.WithLogger(cmd.Context(), c.Logger)
			ctx = instrument.WithInstrumenter(ctx, instrument.NewLogInstrumenter())
			cmd.SetContext(ctx)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: app.yaml in the working directory)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.lintCommand())
	root.AddCommand(c.importCommand())
	return root
}

// env is the opened configuration shared by the data commands.
type env struct {
	cfg   *config.Config
	store *store.Store
	repo  *repo.Repo
}

func (e *env) Close() {
	e.store.Close()
}

// open loads the configuration and connects to the database. The configured
// log level applies unless --verbose was given.
func (c *CLI) open(ctx context.Context) (*env, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if !c.verbose && cfg.LogLevel != "" {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
		c.SetLogLevel(level)
	}

	policy, err := model.ParseEntryCreationPolicy(cfg.Dialogs.EntryPolicy)
	if err != nil {
		return nil, err
	}

	p := newProgress(c.Logger)
	s, err := store.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	p.done(fmt.Sprintf("Database ready (%s)", cfg.Database.Driver))

	return &env{cfg: cfg, store: s, repo: repo.New(s, policy)}, nil
}

func (e *env) catalogue() (*lint.Catalogue, error) {
	if e.cfg.Lint.Catalogue == "" {
		return lint.DefaultCatalogue(), nil
	}
	return lint.LoadCatalogue(e.cfg.Lint.Catalogue)
}

func parseProjectID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}

// progress logs completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
