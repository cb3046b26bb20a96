package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/escrow"
)

var EscrowCmd = &cli.Command{
	Name:  "escrow",
	Usage: "Append vesting entries to SynthetixEscrow",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "network",
			Aliases: []string{"n"},
			Usage:   "The network to run off",
			Value:   "hecot",
		},
		deploymentPathFlag,
		privateKeyFlag,
		useForkFlag,
		&cli.StringFlag{
			Name:    "gas-price",
			Aliases: []string{"g"},
			Usage:   "Gas price in GWEI",
			Value:   "1",
		},
		&cli.Uint64Flag{
			Name:    "gas-limit",
			Aliases: []string{"l"},
			Usage:   "Gas limit",
			Value:   1_500_000,
		},
		&cli.StringFlag{
			Name:     "schedule",
			Aliases:  []string{"s"},
			Usage:    "JSON file mapping beneficiary addresses to lists of token amounts",
			Required: true,
		},
	},
	Action: appendEscrow,
}

func appendEscrow(c *cli.Context) error {
	record, network, err := loadRecord(c)
	if err != nil {
		return err
	}
	schedule, err := escrow.LoadSchedule(c.String("schedule"))
	if err != nil {
		return err
	}
	gasPrice, err := gweiToWei(c.String("gas-price"))
	if err != nil {
		return err
	}

	contracts := make(map[string]*client.Contract, 2)
	node, err := connect(c, network, c.Bool("use-fork"))
	if err != nil {
		return err
	}
	defer node.Close()

	for _, name := range []string{"SynthetixEscrow", "Synthetix"} {
		addr, ok := record.AddressOf(name)
		if !ok {
			return &config.ConfigurationError{Msg: fmt.Sprintf("%s not in the %s deployment", name, network.Name)}
		}
		contractABI, err := record.ABIOf(name)
		if err != nil {
			return err
		}
		contracts[name] = client.NewContract(node, name, addr, contractABI)
	}

	userLog.Gray("Using account with public key %s", node.Account().Hex())
	appender := escrow.NewAppender(
		contracts["SynthetixEscrow"],
		contracts["Synthetix"],
		node,
		node.Account(),
		client.TxOpts{GasLimit: c.Uint64("gas-limit"), GasPrice: gasPrice},
		userLog,
	)
	entries, err := appender.Append(c.Context, schedule)
	if err != nil {
		return err
	}
	userLog.GreenCheckmarkToUser("Appended %d vesting entries", len(entries))
	return nil
}
