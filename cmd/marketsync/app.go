package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marketsync/internal/config"
	"marketsync/internal/logger"
	"marketsync/internal/repository/memory"
	"marketsync/internal/selection"
	"marketsync/internal/service"
	"marketsync/internal/sheet"
)

type app struct {
	cfgPath string
	envOnly bool
	format  string

	cfg    *config.Config
	logger *zap.Logger
	// memory backs the "memory" store driver for the life of the process.
	memory *memory.Store
	// open overrides the store opener; tests use it.
	open service.StoreOpener

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, memory: memory.NewStore()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "marketsync",
		Short:         "Select trading markets and consolidate worksheet data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	if a.stdin != nil {
		root.SetIn(a.stdin)
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	defaultPath := os.Getenv("MS_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", defaultPath, "config file (env MS_CONFIG)")
	root.PersistentFlags().BoolVar(&a.envOnly, "env-only", envBool("MS_ENV_ONLY"), "skip the config file and read MS_* env only")
	root.PersistentFlags().StringVarP(&a.format, "output", "o", "", "output format: text or json")

	root.AddCommand(
		a.selectCmd(),
		a.paramsCmd(),
		a.marketsCmd(),
		a.serveCmd(),
		a.sheetCmd(),
	)
	return root
}

// execute runs the CLI and returns the process exit status.
func (a *app) execute(args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		a.report(err)
		return 1
	}
	return 0
}

func (a *app) init() error {
	if a.cfg == nil {
		cfg, err := config.Load(a.cfgPath, a.envOnly)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = &cfg
	}
	if a.logger == nil {
		l, err := logger.New(a.cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.logger = l
	}
	return nil
}

func (a *app) opener() service.StoreOpener {
	if a.open != nil {
		return a.open
	}
	return &sheet.Opener{Config: a.cfg.Store, Logger: a.logger, Memory: a.memory}
}

// report prints a diagnostic naming the failed stage.
func (a *app) report(err error) {
	var se *service.StageError
	if errors.As(err, &se) {
		fmt.Fprintf(a.stderr, "\nError: %s stage failed: %v\n", se.Stage, se.Err)
	} else {
		fmt.Fprintf(a.stderr, "\nError: %v\n", err)
	}
	switch {
	case errors.Is(err, selection.ErrEmptySelection):
		fmt.Fprintln(a.stderr, "Consider relaxing the configuration parameters.")
	case errors.Is(err, sheet.ErrCredentialsUnavailable):
		fmt.Fprintln(a.stderr, "Tip: set store.dsn (MS_STORE_DSN) for read-write access.")
	case errors.Is(err, sheet.ErrSourceUnavailable):
		fmt.Fprintln(a.stderr, "Tip: check store.dsn and that the worksheets exist.")
	}
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func envBool(key string) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(raw, "true") || raw == "1"
}
