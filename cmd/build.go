package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/artifacts"
)

var BuildCmd = &cli.Command{
	Name:  "build",
	Usage: "Compile the contracts and check the build folder",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "project-dir",
			Usage: "Directory the compile commands run in",
			Value: ".",
		},
		&cli.StringFlag{
			Name:  "commands",
			Usage: "Compile commands separated by ';'",
			Value: "npx hardhat compile",
		},
		&cli.StringFlag{
			Name:    "build-path",
			Aliases: []string{"b"},
			Usage:   "Folder holding compiled/*.json (env: BUILD_PATH)",
		},
		&cli.BoolFlag{
			Name:  "skip-compile",
			Usage: "Only check the existing build",
		},
	},
	Action: runBuild,
}

func runBuild(c *cli.Context) error {
	buildPath := cfg.BuildPath
	if c.IsSet("build-path") {
		buildPath = c.String("build-path")
	}

	if !c.Bool("skip-compile") {
		if err := runShellCommands(c, c.String("project-dir"), c.String("commands")); err != nil {
			return err
		}
	}

	compiled, err := artifacts.Load(buildPath)
	if err != nil {
		return err
	}
	userLog.GreenCheckmarkToUser("%d compiled contracts in %s", len(compiled.Artifacts), buildPath)

	latest, err := artifacts.LatestSourceChange(cfg.ContractsPath)
	if err != nil {
		userLog.Debug("could not determine latest source change", zap.Error(err))
		return nil
	}
	if latest.After(compiled.EarliestCompiled) {
		userLog.Warn("Sources in %s changed at %s, after the build at %s", cfg.ContractsPath, latest.Format("2006-01-02 15:04:05"), compiled.EarliestCompiled.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// runShellCommands runs each ';'-separated command in dir, stopping at the
// first failure.
func runShellCommands(c *cli.Context, dir, commands string) error {
	commandList := strings.Split(commands, ";")
	for i, cmdStr := range commandList {
		cmdStr = strings.TrimSpace(cmdStr)
		if cmdStr == "" {
			continue
		}
		userLog.Gray("Running command %d/%d: %s", i+1, len(commandList), cmdStr)

		cmd := exec.CommandContext(c.Context, "sh", "-c", cmdStr)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "CONTRACTS_PATH="+cfg.ContractsPath, "BUILD_PATH="+cfg.BuildPath)

		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("failed to run command '%s': %w, output: %s", cmdStr, err, output)
		}
		userLog.Debug("command output", zap.String("command", cmdStr), zap.ByteString("output", output))
	}
	return nil
}
