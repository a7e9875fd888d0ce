// Command audit lists a directory and writes the daily audit log without deleting anything.
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

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "List a directory and write the daily audit log without deleting anything",
		ArgsUsage: "[config.yaml]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "logging level: debug, info, warn, error",
				Sources: cli.EnvVars("DIRCLEAN_LOG_LEVEL"),
				Value:   "info",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			configPath := config.DefaultConfigFilename
			if cmd.Args().Len() > 1 {
				return cli.Exit("Usage: audit [config.yaml]", 1)
			}
			if cmd.Args().Present() {
				configPath = cmd.Args().First()
			}

			logger := logging.New(os.Stdout, cmd.String("log-level"))

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				logger.Errorf("Failed to load config: %v", err)
				return err
			}

			r := &runner.Runner{Config: cfg, Log: logger, AuditOnly: true}
			rep, err := r.Run(ctx)
			if err != nil {
				logger.Errorf("Run failed: %v", err)
				return err
			}
			logger.Infof("Found %d file(s), report written to %s", len(rep.Entries), rep.AuditLog)
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
