package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
)

var AccountCmd = &cli.Command{
	Name:  "account",
	Usage: "Manage deployer accounts",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Create keys for roles and store them in an accounts file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "workspace",
					Usage: "Directory holding accounts.json",
					Value: ".",
				},
				&cli.StringSliceFlag{
					Name:     "role",
					Usage:    "Role names (can specify multiple)",
					Required: true,
				},
			},
			Action: createAccounts,
		},
		{
			Name:  "list",
			Usage: "List stored accounts",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "workspace",
					Usage: "Directory holding accounts.json",
					Value: ".",
				},
			},
			Action: listAccounts,
		},
		{
			Name:   "balance",
			Usage:  "Show the deployer account and its balance",
			Flags:  []cli.Flag{networkFlag, privateKeyFlag, useForkFlag},
			Action: showBalance,
		},
		{
			Name:  "fund",
			Usage: "Fund the deployer from the node's unlocked account (forks only)",
			Flags: []cli.Flag{
				networkFlag,
				privateKeyFlag,
				&cli.StringFlag{
					Name:  "amount",
					Usage: "Amount in ETH",
					Value: "10",
				},
			},
			Action: fundDeployer,
		},
	},
}

type AccountInfo struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

type AccountsFile struct {
	Accounts map[string]AccountInfo `json:"accounts"`
}

func loadAccounts(path string) (AccountsFile, error) {
	accounts := AccountsFile{Accounts: make(map[string]AccountInfo)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return accounts, nil
	}
	if err != nil {
		return accounts, fmt.Errorf("failed to read accounts file: %w", err)
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return accounts, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	if accounts.Accounts == nil {
		accounts.Accounts = make(map[string]AccountInfo)
	}
	return accounts, nil
}

func createAccounts(c *cli.Context) error {
	accountsPath := filepath.Join(c.String("workspace"), "accounts.json")
	accounts, err := loadAccounts(accountsPath)
	if err != nil {
		return err
	}

	for _, role := range c.StringSlice("role") {
		if _, exists := accounts.Accounts[role]; exists {
			fmt.Printf("Account for role %s already exists, skipping\n", role)
			continue
		}
		key, err := crypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate key for %s: %w", role, err)
		}
		info := AccountInfo{
			Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
			PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
		}
		accounts.Accounts[role] = info
		fmt.Printf("Created %s account: %s\n", role, info.Address)
	}

	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(accountsPath), 0o755); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	if err := os.WriteFile(accountsPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write accounts file: %w", err)
	}
	fmt.Printf("Accounts saved to %s\n", accountsPath)
	return nil
}

func listAccounts(c *cli.Context) error {
	accounts, err := loadAccounts(filepath.Join(c.String("workspace"), "accounts.json"))
	if err != nil {
		return err
	}
	if len(accounts.Accounts) == 0 {
		fmt.Println("No accounts found.")
		return nil
	}
	for role, info := range accounts.Accounts {
		fmt.Printf("%s: %s\n", role, info.Address)
	}
	return nil
}

func showBalance(c *cli.Context) error {
	network, err := config.LookupNetwork(c.String("network"))
	if err != nil {
		return err
	}
	node, err := connect(c, network, c.Bool("use-fork"))
	if err != nil {
		return err
	}
	defer node.Close()

	balance, err := node.Balance(c.Context, node.Account())
	if err != nil {
		return err
	}
	fmt.Printf("Account: %s\n", node.Account().Hex())
	fmt.Printf("Balance: %s ETH\n", client.FromWei(balance))
	if required := client.Ether(cfg.MinDeployerBalance); balance.Cmp(required) < 0 {
		userLog.Warn("Balance is below the %d ETH required to deploy", cfg.MinDeployerBalance)
	}
	return nil
}

func fundDeployer(c *cli.Context) error {
	network, err := config.LookupNetwork(c.String("network"))
	if err != nil {
		return err
	}
	amount, err := client.ToWei(c.String("amount"))
	if err != nil {
		return &config.InvalidInputError{Field: "amount", Value: c.String("amount")}
	}

	node, err := connect(c, network, true)
	if err != nil {
		return err
	}
	defer node.Close()

	hash, err := node.FundFromNode(c.Context, node.Account(), amount)
	if err != nil {
		return err
	}
	userLog.GreenCheckmarkToUser("Funded %s with %s ETH in %s", node.Account().Hex(), client.FromWei(amount), hash.Hex())
	return nil
}
