package main

import (
	"fmt"
	"os"

	"github.com/dev-tams/sweepkit/internal/app"
	"github.com/dev-tams/sweepkit/internal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "sweepkit",
		Usage: "remove empty virtual folders and stale objects from flat object stores",
		Commands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "run one housekeeping pass over the configured containers",
				Flags: append(
					commonFlags(),
					&cli.StringFlag{
						Name:  "container",
						Usage: "restrict the pass to one configured container",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "report deletions without performing them",
					},
				),
				Action: func(c *cli.Context) error {
					cfg, err := loadValidatedConfig(c.String("config"))
					if err != nil {
						return err
					}

					return app.RunSweep(c.Context, cfg, app.SweepOptions{
						Container: c.String("container"),
						DryRun:    c.Bool("dry-run"),
						Verbose:   c.Bool("verbose"),
					})
				},
			},
			{
				Name:  "daemon",
				Usage: "run sweeps on the configured schedules",
				Flags: append(
					commonFlags(),
					&cli.DurationFlag{
						Name:  "run-timeout",
						Usage: "abort a scheduled pass after this duration (0 = no timeout)",
					},
				),
				Action: func(c *cli.Context) error {
					cfg, err := loadValidatedConfig(c.String("config"))
					if err != nil {
						return err
					}

					return app.RunDaemon(c.Context, cfg, c.Bool("verbose"), c.Duration("run-timeout"))
				},
			},
			{
				Name:  "validate",
				Usage: "check the configuration file and report problems",
				Flags: commonFlags(),
				Action: func(c *cli.Context) error {
					if _, err := loadValidatedConfig(c.String("config")); err != nil {
						return err
					}
					fmt.Println("config OK")
					return nil
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Required: true,
			Usage:    "path to config yaml",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
	}
}

func loadValidatedConfig(cfgPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
