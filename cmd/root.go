package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/sequencer"
	"github.com/parthshah1/synth-publish/ux"
)

var (
	cfg     *config.Config
	userLog *ux.UserLog
)

// NewApp creates a new CLI app
func NewApp() *cli.App {
	app := &cli.App{
		Name:  "publish",
		Usage: "Deploy and reconcile the synthetic asset protocol contracts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "File of KEY=VALUE pairs loaded into the environment",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Verbose output (env: VERBOSE)",
				EnvVars: []string{"VERBOSE"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Write structured logs to this file (env: LOG_FILE)",
				EnvVars: []string{"LOG_FILE"},
			},
			&cli.BoolFlag{
				Name:    "antithesis",
				Usage:   "Report assertions to Antithesis (env: ANTITHESIS)",
				EnvVars: []string{"ANTITHESIS"},
			},
		},
		Before: func(c *cli.Context) error {
			if err := config.LoadEnvFile(c.String("env-file")); err != nil {
				return err
			}
			cfg = config.Load()

			if c.IsSet("verbose") {
				cfg.Verbose = c.Bool("verbose")
			}
			if c.IsSet("log-file") {
				cfg.LogFile = c.String("log-file")
			}
			if c.IsSet("antithesis") {
				cfg.Antithesis = c.Bool("antithesis")
			}
			config.SetAntithesisMode(cfg.Antithesis)

			logger, err := ux.NewLogger(cfg.Verbose, cfg.LogFile)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			userLog = ux.NewUserLog(logger, os.Stdout)
			userLog.Debug("configuration loaded", zap.String("deploymentRoot", cfg.DeploymentRoot))
			return nil
		},
		After: func(c *cli.Context) error {
			if userLog != nil {
				_ = userLog.Logger().Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			BuildCmd,
			DeployCmd,
			DeploymentCmd,
			ContractCmd,
			AccountCmd,
			Eth95Cmd,
			SubgraphCmd,
			EscrowCmd,
		},
	}
	return app
}

func Execute() {
	err := NewApp().Run(os.Args)
	if errors.Is(err, sequencer.ErrCancelled) {
		fmt.Println(color.HiBlackString("Operation cancelled"))
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
