package cmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/deployment"
)

var (
	networkFlag = &cli.StringFlag{
		Name:    "network",
		Aliases: []string{"n"},
		Usage:   "The network to run off (" + strings.Join(config.NetworkNames(), ", ") + ")",
		Value:   "kovan",
	}
	deploymentPathFlag = &cli.StringFlag{
		Name:    "deployment-path",
		Aliases: []string{"d"},
		Usage:   "Folder holding config.json, synths.json, feeds.json and deployment.json",
	}
	privateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Aliases: []string{"v"},
		Usage:   "The private key to deploy with (only used on the local network, otherwise set in .env)",
	}
	useForkFlag = &cli.BoolFlag{
		Name:    "use-fork",
		Aliases: []string{"k"},
		Usage:   "Run against a forked chain on localhost",
	}
)

// connect dials the node for network with the deployer key resolved from
// the flags and environment.
func connect(c *cli.Context, network config.Network, useFork bool) (*client.EthClient, error) {
	conn := cfg.Connection(network, useFork)

	privateKey := conn.PrivateKey
	if network.Name == "local" && c.String("private-key") != "" {
		privateKey = c.String("private-key")
	}
	if privateKey == "" {
		return nil, &config.ConfigurationError{Msg: "no deployer private key configured for " + network.Name}
	}
	key, err := config.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, &config.InvalidInputError{Field: "private key", Value: "<redacted>"}
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()
	node, err := client.Dial(ctx, conn.ProviderURL, key)
	if err != nil {
		return nil, err
	}
	userLog.Debug("connected",
		zap.String("network", network.Name),
		zap.String("chainId", node.ChainID().String()),
		zap.String("account", node.Account().Hex()),
	)
	return node, nil
}

func contextWithTimeout(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, cfg.Timeout)
}

// loadRecord opens the deployment record selected by the network and
// deployment-path flags.
func loadRecord(c *cli.Context) (*deployment.Record, config.Network, error) {
	network, err := config.LookupNetwork(c.String("network"))
	if err != nil {
		return nil, config.Network{}, err
	}
	path := c.String("deployment-path")
	if path == "" {
		path = cfg.DeploymentPath(network.Name)
	}
	record, err := deployment.Load(filepath.Join(path, config.DeploymentFilename))
	if err != nil {
		return nil, network, err
	}
	return record, network, nil
}
