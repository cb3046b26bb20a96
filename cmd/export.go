package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/deployment"
	"github.com/parthshah1/synth-publish/export"
)

var Eth95Cmd = &cli.Command{
	Name:  "eth95",
	Usage: "Write deployed contracts as eth95 artifacts",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "networks",
			Aliases: []string{"n"},
			Usage:   "Networks to export (can specify multiple)",
			Value:   cli.NewStringSlice("hecot"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output folder, defaults to <build path>/eth95",
		},
	},
	Action: exportEth95,
}

var SubgraphCmd = &cli.Command{
	Name:  "subgraph",
	Usage: "Point subgraph manifests at the deployed addresses",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "network",
			Aliases: []string{"n"},
			Usage:   "The network whose deployment to read",
			Value:   "hecot",
		},
		deploymentPathFlag,
		&cli.StringFlag{
			Name:     "graph-path",
			Aliases:  []string{"g"},
			Usage:    "Root of the subgraph project",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:    "start-block",
			Aliases: []string{"s"},
			Usage:   "Block to start indexing from (ignored unless greater than 1)",
		},
	},
	Action: rewriteSubgraphs,
}

func exportEth95(c *cli.Context) error {
	dir := c.String("output")
	if dir == "" {
		dir = filepath.Join(cfg.BuildPath, "eth95")
	}

	for _, name := range c.StringSlice("networks") {
		network, err := config.LookupNetwork(name)
		if err != nil {
			return err
		}
		record, err := deployment.Load(filepath.Join(cfg.DeploymentPath(network.Name), config.DeploymentFilename))
		if err != nil {
			return err
		}
		written, err := export.WriteEth95(dir, record, network.ChainID)
		if err != nil {
			return fmt.Errorf("%s: %w", network.Name, err)
		}
		userLog.GreenCheckmarkToUser("Wrote %d eth95 artifacts for %s to %s", len(written), network.Name, dir)
		userLog.Debug("eth95 export", zap.String("network", network.Name), zap.Strings("contracts", written))
	}
	return nil
}

func rewriteSubgraphs(c *cli.Context) error {
	record, network, err := loadRecord(c)
	if err != nil {
		return err
	}

	dir := filepath.Join(c.String("graph-path"), "subgraphs")
	changes, unmatched, err := export.RewriteSubgraphs(dir, record, c.Uint64("start-block"))
	if err != nil {
		return err
	}

	for _, r := range changes {
		userLog.Info("subgraph address updated",
			zap.String("file", r.File),
			zap.String("dataSource", r.DataSource),
			zap.String("from", r.From),
			zap.String("to", r.To),
		)
		userLog.PrintToUser("%s: %s %s -> %s", r.File, r.DataSource, r.From, r.To)
	}
	for _, name := range unmatched {
		userLog.Warn("No %s target in the %s deployment, leaving its address unchanged", name, network.Name)
	}
	userLog.GreenCheckmarkToUser("Updated %d data sources", len(changes))
	return nil
}
