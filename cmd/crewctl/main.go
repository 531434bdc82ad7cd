package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/app"
	"github.com/Gustavoab019/startia/internal/config"
	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/logger"
)

// cli holds what every subcommand needs once the root pre-run has loaded it.
type cli struct {
	configPath string
	memory     bool
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

func main() {
	c := &cli{}
	root := &cobra.Command{
		Use:   "crewctl",
		Short: "Operate the site crew assistant",
		Long: `crewctl reads the assistant's store directly: tabular reports on work items,
attendance and problems (optionally exported to xlsx), and a console chat that
drives the same workflow engine the WhatsApp webhook uses.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a config file (yaml)")
	root.PersistentFlags().BoolVar(&c.memory, "memory", false, "use a fresh in-memory store instead of the configured one")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(reportCmd(c))
	root.AddCommand(chatCmd(c))

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) init(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.memory {
		cfg.Store.Driver = "memory"
	}
	logCfg := config.LogConfig{Level: "warn", Format: "console"}
	if c.verbose {
		logCfg.Level = "debug"
	}
	zl, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	if err := i18n.Init(cfg.Locale); err != nil {
		return fmt.Errorf("load locales: %w", err)
	}
	a, err := app.Open(ctx, cfg, zl, app.Options{})
	if err != nil {
		return err
	}
	c.cfg, c.logger, c.app = cfg, zl, a
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close(context.Background())
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}
