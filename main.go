package main

import (
	"context"
	"os"

	"github.com/mahyarmirrashed/dirclean/internal/config"
	"github.com/mahyarmirrashed/dirclean/internal/logging"
	"github.com/mahyarmirrashed/dirclean/internal/runner"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// Set at build time: go build -ldflags "-X main.version=1.2.3"
var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "directory-cleaner",
		Usage:   "Delete the files of a directory, keep a daily audit log and alert on a keyword",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("DIRCLEAN_CONFIG"),
				Value:   config.DefaultConfigFilename,
			},
			&cli.StringFlag{
				Name:    "target",
				Usage:   "directory to clean (overrides general.target_directory)",
				Sources: cli.EnvVars("DIRCLEAN_TARGET"),
			},
			&cli.StringFlag{
				Name:    "log-dir",
				Usage:   "directory for the daily audit log (overrides general.log_directory)",
				Sources: cli.EnvVars("DIRCLEAN_LOG_DIR"),
			},
			&cli.StringFlag{
				Name:    "keyword",
				Usage:   "alert keyword (overrides general.keyword)",
				Sources: cli.EnvVars("DIRCLEAN_KEYWORD"),
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "process log file, overwritten on each run",
				Sources: cli.EnvVars("DIRCLEAN_LOG_FILE"),
				Value:   "directory-cleaner.log",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "logging level: debug, info, warn, error",
				Sources: cli.EnvVars("DIRCLEAN_LOG_LEVEL"),
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Usage:   "dry run mode",
				Sources: cli.EnvVars("DIRCLEAN_DRY_RUN"),
			},
			&cli.BoolFlag{
				Name:    "audit-only",
				Usage:   "list and report files without deleting them",
				Sources: cli.EnvVars("DIRCLEAN_AUDIT_ONLY"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger, closer, err := logging.Open(cmd.String("log-file"), cmd.String("log-level"))
			if err != nil {
				return err
			}
			defer closer.Close()

			cfg, err := config.LoadConfig(cmd.String("config"))
			if err != nil {
				logger.Errorf("Failed to load config: %v", err)
				return err
			}

			// Override config with flags if set
			if cmd.IsSet("target") {
				cfg.General.TargetDirectory = cmd.String("target")
			}
			if cmd.IsSet("log-dir") {
				cfg.General.LogDirectory = cmd.String("log-dir")
			}
			if cmd.IsSet("keyword") {
				cfg.General.Keyword = cmd.String("keyword")
			}
			if err := cfg.Resolve(); err != nil {
				return err
			}

			r := &runner.Runner{
				Config:    cfg,
				Log:       logger,
				DryRun:    cmd.Bool("dry-run"),
				AuditOnly: cmd.Bool("audit-only"),
			}
			if r.DryRun {
				logger.Info("Running in dry run mode")
			}

			if _, err := r.Run(ctx); err != nil {
				logger.Errorf("Run failed: %v", err)
				return err
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
