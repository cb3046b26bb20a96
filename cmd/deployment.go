package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/deployment"
	"github.com/parthshah1/synth-publish/ux"
)

var DeploymentCmd = &cli.Command{
	Name:  "deployment",
	Usage: "Inspect the deployment record of a network",
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "List deployed contracts",
			Flags:  []cli.Flag{networkFlag, deploymentPathFlag},
			Action: listDeployments,
		},
		{
			Name:  "info",
			Usage: "Show a deployed contract",
			Flags: []cli.Flag{
				networkFlag,
				deploymentPathFlag,
				&cli.StringFlag{
					Name:     "contract",
					Usage:    "Deployment target name",
					Required: true,
				},
			},
			Action: getDeploymentInfo,
		},
		{
			Name:   "owner-actions",
			Usage:  "List writes waiting for the contract owner",
			Flags:  []cli.Flag{networkFlag, deploymentPathFlag},
			Action: listOwnerActions,
		},
	},
}

func listDeployments(c *cli.Context) error {
	record, network, err := loadRecord(c)
	if err != nil {
		return err
	}

	names := record.Names()
	if len(names) == 0 {
		fmt.Println("No deployments found.")
		return nil
	}

	warnings, err := record.Validate()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		userLog.Warn("%s", w)
	}

	rows := make([][]string, len(names))
	for i, name := range names {
		t := record.Targets[name]
		rows[i] = []string{name, t.Source, t.Address, t.Timestamp.Format("2006-01-02 15:04")}
	}
	ux.PrintTable(userLog.Writer, fmt.Sprintf("%d contracts on %s", len(names), network.Name),
		[]string{"Name", "Source", "Address", "Deployed"}, rows)
	return nil
}

func getDeploymentInfo(c *cli.Context) error {
	record, _, err := loadRecord(c)
	if err != nil {
		return err
	}

	name := c.String("contract")
	t, ok := record.Targets[name]
	if !ok {
		return &config.ConfigurationError{Msg: fmt.Sprintf("no deployment recorded for %s", name)}
	}

	fmt.Printf("Contract: %s\n", t.Name)
	fmt.Printf("Source: %s\n", t.Source)
	fmt.Printf("Address: %s\n", t.Address)
	fmt.Printf("Network: %s\n", t.Network)
	fmt.Printf("Deployed: %s\n", t.Timestamp.Format("2006-01-02 15:04:05 MST"))
	if t.Link != "" {
		fmt.Printf("Explorer: %s\n", t.Link)
	}
	if t.Txn != "" {
		fmt.Printf("Transaction: %s\n", t.Txn)
	}
	if contractABI, err := record.ABIOf(name); err == nil {
		fmt.Printf("Methods: %d\n", len(contractABI.Methods))
	}
	return nil
}

func listOwnerActions(c *cli.Context) error {
	network, err := config.LookupNetwork(c.String("network"))
	if err != nil {
		return err
	}
	path := c.String("deployment-path")
	if path == "" {
		path = cfg.DeploymentPath(network.Name)
	}

	actions, err := deployment.LoadOwnerActions(filepath.Join(path, config.OwnerActionsFilename))
	if err != nil {
		return err
	}
	pending := actions.Pending()
	if len(pending) == 0 {
		fmt.Println("No pending owner actions.")
		return nil
	}

	fmt.Printf("Found %d pending owner actions:\n\n", len(pending))
	for i, key := range pending {
		a, _ := actions.Get(key)
		fmt.Printf("%d. %s\n", i+1, a.Action)
		fmt.Printf("   Target: %s\n", a.Target)
		fmt.Printf("   Data: %s\n", a.Data)
		if a.Link != "" {
			fmt.Printf("   Link: %s\n", a.Link)
		}
		fmt.Println()
	}
	return nil
}
