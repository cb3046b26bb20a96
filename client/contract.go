package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// PlaceholderAddress is the address a dry run hands out for contracts it
// would have deployed.
var PlaceholderAddress = common.Address{}

// Contract is a deployed (or simulated) contract bound to a chain client.
type Contract struct {
	Name    string
	Source  string
	Address common.Address
	ABI     *abi.ABI

	// Simulated marks a dry-run placeholder that does not exist on-chain.
	Simulated bool
	// Fresh marks a contract created during the current run.
	Fresh bool

	client Client
}

func NewContract(c Client, name string, address common.Address, contractABI *abi.ABI) *Contract {
	return &Contract{
		Name:    name,
		Source:  name,
		Address: address,
		ABI:     contractABI,
		client:  c,
	}
}

// AddressOf returns the contract address, or the zero address for nil.
func AddressOf(c *Contract) common.Address {
	if c == nil {
		return common.Address{}
	}
	return c.Address
}

func (c *Contract) HasMethod(method string) bool {
	if c == nil || c.ABI == nil {
		return false
	}
	_, ok := c.ABI.Methods[method]
	return ok
}

func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if c.Simulated {
		return nil, ErrSimulated
	}
	if !c.HasMethod(method) {
		return nil, fmt.Errorf("%s has no method %s", c.Name, method)
	}

	out, err := c.client.Call(ctx, c.Address, c.ABI, method, args...)
	return out, c.annotate(err)
}

// CallOne calls a single-output method.
func (c *Contract) CallOne(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s.%s returned no values", c.Name, method)
	}
	return out[0], nil
}

func (c *Contract) Transact(ctx context.Context, opts TxOpts, method string, args ...interface{}) (common.Hash, error) {
	if !c.HasMethod(method) {
		return common.Hash{}, fmt.Errorf("%s has no method %s", c.Name, method)
	}

	hash, err := c.client.Send(ctx, c.Address, c.ABI, method, args, opts)
	return hash, c.annotate(err)
}

// Pack returns the calldata for method, used when a call is recorded
// instead of sent.
func (c *Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	return c.ABI.Pack(method, args...)
}

func (c *Contract) annotate(err error) error {
	var revert *ContractRevertError
	if errors.As(err, &revert) && revert.Contract == "" {
		revert.Contract = c.Name
	}
	return err
}
