package cmd

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
)

var ContractCmd = &cli.Command{
	Name:  "contract",
	Usage: "Contract operations",
	Subcommands: []*cli.Command{
		{
			Name:  "call",
			Usage: "Call a method of a deployed contract",
			Flags: []cli.Flag{
				networkFlag,
				deploymentPathFlag,
				privateKeyFlag,
				useForkFlag,
				&cli.StringFlag{
					Name:     "contract",
					Usage:    "Deployment target name or contract address",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "method",
					Usage:    "Method name, or a spec like balanceOf(address)->(uint256) for unrecorded contracts",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "args",
					Usage: "Method arguments (comma-separated)",
				},
				&cli.StringFlag{
					Name:  "types",
					Usage: "Argument types (comma-separated), defaults to the ABI input types",
				},
				&cli.BoolFlag{
					Name:  "transaction",
					Usage: "Send as transaction (for state-changing functions)",
				},
				&cli.Uint64Flag{
					Name:  "gas-limit",
					Usage: "Gas limit for transactions (0 estimates)",
				},
			},
			Action: callContractMethod,
		},
	},
}

func callContractMethod(c *cli.Context) error {
	record, network, err := loadRecord(c)
	if err != nil {
		return err
	}

	target := c.String("contract")
	method := c.String("method")

	var (
		address     common.Address
		contractABI *abi.ABI
	)
	if common.IsHexAddress(target) {
		address = common.HexToAddress(target)
		contractABI, err = client.ParseMethodSpecs(method)
		if err != nil {
			return &config.InvalidInputError{Field: "method", Value: method}
		}
		method = client.MethodName(method)
	} else {
		var ok bool
		address, ok = record.AddressOf(target)
		if !ok {
			return &config.ConfigurationError{Msg: fmt.Sprintf("no address recorded for %s on %s", target, network.Name)}
		}
		contractABI, err = record.ABIOf(target)
		if err != nil {
			return err
		}
	}

	m, ok := contractABI.Methods[method]
	if !ok {
		return fmt.Errorf("%s has no method %s", target, method)
	}

	args := splitCSV(c.String("args"))
	types := splitCSV(c.String("types"))
	if len(types) == 0 {
		for _, in := range m.Inputs {
			types = append(types, in.Type.String())
		}
	}
	if len(args) != len(types) {
		return fmt.Errorf("number of arguments (%d) must match number of types (%d)", len(args), len(types))
	}
	converted, err := config.ConvertArguments(args, types)
	if err != nil {
		return fmt.Errorf("failed to convert arguments: %w", err)
	}

	node, err := connect(c, network, c.Bool("use-fork"))
	if err != nil {
		return err
	}
	defer node.Close()

	contract := client.NewContract(node, target, address, contractABI)

	if c.Bool("transaction") {
		hash, err := contract.Transact(c.Context, client.TxOpts{GasLimit: c.Uint64("gas-limit")}, method, converted...)
		if err != nil {
			return fmt.Errorf("failed to send transaction: %w", err)
		}
		fmt.Printf("Transaction sent successfully!\n")
		fmt.Printf("Method: %s\n", method)
		fmt.Printf("Transaction Hash: %s\n", hash.Hex())
		if link := network.TxLink(hash.Hex()); link != "" {
			fmt.Printf("Explorer: %s\n", link)
		}
		return nil
	}

	out, err := contract.Call(c.Context, method, converted...)
	if err != nil {
		return fmt.Errorf("failed to call contract method: %w", err)
	}
	fmt.Printf("Method: %s\n", method)
	for i, v := range out {
		name := m.Outputs[i].Name
		if name == "" {
			name = fmt.Sprintf("%d", i)
		}
		fmt.Printf("Result %s: %s\n", name, formatValue(v))
	}
	return nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case common.Address:
		return x.Hex()
	case [32]byte:
		if s := client.FromBytes32(x); s != "" && isPrintable(s) {
			return s
		}
		return common.Hash(x).Hex()
	case []byte:
		return fmt.Sprintf("0x%x", x)
	default:
		return fmt.Sprint(x)
	}
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return true
}
