package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/artifacts"
	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/deployer"
	"github.com/parthshah1/synth-publish/deployment"
	"github.com/parthshah1/synth-publish/reconcile"
	"github.com/parthshah1/synth-publish/sequencer"
	"github.com/parthshah1/synth-publish/ux"
)

var DeployCmd = &cli.Command{
	Name:  "deploy",
	Usage: "Deploy compiled solidity files and reconcile the deployment",
	Flags: []cli.Flag{
		networkFlag,
		deploymentPathFlag,
		&cli.BoolFlag{
			Name:    "add-new-synths",
			Aliases: []string{"a"},
			Usage:   "Deploy synths listed in synths.json that have no entry in the config file",
		},
		&cli.StringFlag{
			Name:    "build-path",
			Aliases: []string{"b"},
			Usage:   "Folder holding the compiled contracts (default from BUILD_PATH)",
		},
		&cli.Uint64Flag{
			Name:    "contract-deployment-gas-limit",
			Aliases: []string{"c"},
			Usage:   "Contract deployment gas limit (default from CONTRACT_DEPLOYMENT_GAS_LIMIT)",
		},
		&cli.StringFlag{
			Name:    "gas-price",
			Aliases: []string{"g"},
			Usage:   "Gas price in GWEI (default from GAS_PRICE)",
		},
		&cli.Uint64Flag{
			Name:    "method-call-gas-limit",
			Aliases: []string{"m"},
			Usage:   "Method call gas limit (default from METHOD_CALL_GAS_LIMIT)",
		},
		&cli.StringFlag{
			Name:    "oracle-exrates",
			Aliases: []string{"o"},
			Usage:   "The address of the oracle for this network (default is use existing)",
		},
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"r"},
			Usage:   "Report every transaction without sending any",
		},
		privateKeyFlag,
		&cli.BoolFlag{
			Name:    "force-update-inverse-synths-on-testnet",
			Aliases: []string{"u"},
			Usage:   "Allow inverse synth pricing to be updated on testnet regardless of total supply",
		},
		useForkFlag,
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Do not prompt, answer yes to every confirmation",
		},
	},
	Action: runDeploy,
}

func runDeploy(c *cli.Context) error {
	ctx := c.Context

	network, err := config.LookupNetwork(c.String("network"))
	if err != nil {
		return err
	}
	deploymentPath := c.String("deployment-path")
	if deploymentPath == "" {
		deploymentPath = cfg.DeploymentPath(network.Name)
	}
	buildPath := cfg.BuildPath
	if c.IsSet("build-path") {
		buildPath = c.String("build-path")
	}
	if c.IsSet("gas-price") {
		cfg.GasPriceGwei = c.String("gas-price")
	}
	if c.IsSet("method-call-gas-limit") {
		cfg.MethodCallGasLimit = c.Uint64("method-call-gas-limit")
	}
	if c.IsSet("contract-deployment-gas-limit") {
		cfg.ContractDeploymentGasLimit = c.Uint64("contract-deployment-gas-limit")
	}
	gasPrice, err := gweiToWei(cfg.GasPriceGwei)
	if err != nil {
		return err
	}

	sources, err := config.LoadSources(deploymentPath)
	if err != nil {
		return err
	}
	record, err := deployment.Load(sources.DeploymentFile())
	if err != nil {
		return err
	}
	ownerActions, err := deployment.LoadOwnerActions(sources.OwnerActionsFile())
	if err != nil {
		return err
	}

	userLog.Gray("Loading the compiled contracts locally...")
	compiled, err := artifacts.Load(buildPath)
	if err != nil {
		return err
	}
	latestSource, err := artifacts.LatestSourceChange(cfg.ContractsPath)
	if err != nil {
		userLog.Debug("could not determine latest source change", zap.Error(err))
	}

	node, err := connect(c, network, c.Bool("use-fork"))
	if err != nil {
		return err
	}
	defer node.Close()

	dryRun := c.Bool("dry-run")
	d := deployer.New(node, compiled, sources.Flags, record, deployer.Options{
		DryRun:   dryRun,
		GasPrice: gasPrice,
		GasLimit: cfg.ContractDeploymentGasLimit,
		Network:  network,
	}, userLog)
	runner := reconcile.NewRunner(node.Account(), reconcile.Options{
		DryRun:   dryRun,
		GasPrice: gasPrice,
		GasLimit: cfg.MethodCallGasLimit,
		Network:  network,
	}, ownerActions, userLog)

	opts := sequencer.Options{
		Network:                     network,
		DryRun:                      dryRun,
		AddNewSynths:                c.Bool("add-new-synths"),
		ForceUpdateInverseOnTestnet: c.Bool("force-update-inverse-synths-on-testnet"),
		UseFork:                     c.Bool("use-fork"),
		OracleExrates:               c.String("oracle-exrates"),
		ProtocolTokenKey:            cfg.ProtocolTokenKey,
		GasPriceGwei:                cfg.GasPriceGwei,
		MinDeployerBalance:          client.Ether(cfg.MinDeployerBalance),
		ForkFunding:                 client.Ether(cfg.ForkFunding),
		Settings:                    sequencer.DefaultSettings(),
		EarliestCompiled:            compiled.EarliestCompiled,
		LatestSource:                latestSource,
	}
	if !c.Bool("yes") {
		opts.Confirm = ux.Confirm
	}

	report, err := sequencer.New(node, d, runner, sources, opts, userLog).Run(ctx)
	if report != nil {
		printReport(record, report, network)
	}
	if err != nil {
		return err
	}
	if n := ownerActions.Len(); n > 0 {
		userLog.Warn("%d owner actions pending in %s", n, sources.OwnerActionsFile())
	}
	return nil
}

func printReport(record *deployment.Record, report *sequencer.Report, network config.Network) {
	userLog.Section("deployment.json")
	for _, name := range record.Names() {
		userLog.PrintToUser("%s: %q,", name, record.Targets[name].Address)
	}

	userLog.Section("DEPLOY COMPLETE")
	userLog.GreenCheckmarkToUser("Successfully deployed %d contracts!", len(report.NewContracts))
	userLog.Info("deployment finished",
		zap.String("network", network.Name),
		zap.Int("newContracts", len(report.NewContracts)),
		zap.Int("transactions", report.Transactions),
	)

	if len(report.NewContracts) == 0 {
		userLog.Gray("Note: No new contracts deployed.")
		return
	}
	rows := make([][]string, len(report.NewContracts))
	for i, nc := range report.NewContracts {
		rows[i] = []string{nc.Name, nc.Address.Hex(), nc.Link}
	}
	ux.PrintTable(userLog.Writer, fmt.Sprintf("All contracts deployed on %q network", network.Name),
		[]string{"Contract", "Address", "Explorer"}, rows)
}

// gweiToWei converts a decimal GWEI amount to wei.
func gweiToWei(gwei string) (*big.Int, error) {
	wei, err := client.ToWei(strings.TrimSpace(gwei))
	if err != nil {
		return nil, &config.InvalidInputError{Field: "gas price", Value: gwei}
	}
	return wei.Div(wei, big.NewInt(1_000_000_000)), nil
}
