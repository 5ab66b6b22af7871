package main

import (
	"context"
	"log/slog"

	"github.com/aretw0/lessonkit/internal/cli"
	"github.com/aretw0/lessonkit/internal/config"
	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lessonkit",
		Short: "lessonkit hosts interactive explorations",
		Long: `lessonkit plays and edits explorations: lessons written as a graph of
states in markdown files, each asking the learner a question.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default ./"+config.DefaultFile+" when present)")
	pf.String("dir", ".", "Directory containing the exploration folders")
	pf.String("store", config.StoreMemory, "Snapshot store: memory, file or redis")
	pf.String("store-path", "", "Directory of the file store")
	pf.String("redis-addr", "", "Redis address for the redis store")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.Bool("debug", false, "Shorthand for --log-level debug")

	root.AddCommand(
		newServeCmd(),
		newPlayCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newRenameCmd(),
		newIncomingCmd(),
		newStatsCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig layers the config file, the environment and changed flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("dir", &cfg.Dir)
	str("store", &cfg.Store)
	str("store-path", &cfg.StorePath)
	str("redis-addr", &cfg.RedisAddr)
	str("log-level", &cfg.LogLevel)
	if debug, _ := flags.GetBool("debug"); debug {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := logging.ParseLevel(cfg.LogLevel)
	return logging.New(level)
}

// env is what most commands start from.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	backend *cli.Backend
}

func openEnv(ctx context.Context, cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	b, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, backend: b}, nil
}

func (e *env) Close() {
	if err := e.backend.Close(); err != nil {
		e.logger.Warn("Failed to close backend", "err", err)
	}
}
