// Package deployer decides, per contract, whether to create a new instance
// or reuse the recorded one, and keeps the deployment record current.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/artifacts"
	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/deployment"
	"github.com/parthshah1/synth-publish/ux"
)

// DependencyUnresolvedError means a contract was asked to deploy before a
// contract it depends on has an address.
type DependencyUnresolvedError struct {
	Name    string
	Missing []string
}

func (e *DependencyUnresolvedError) Error() string {
	return fmt.Sprintf("unable to deploy %s as missing deps: %s", e.Name, strings.Join(e.Missing, ", "))
}

// Unwrap makes the error match config.ConfigurationError with errors.As.
func (e *DependencyUnresolvedError) Unwrap() error {
	return &config.ConfigurationError{Msg: "unresolved dependency for " + e.Name}
}

// Request describes one contract to deploy or reuse.
type Request struct {
	Name      string
	Source    string
	Args      []interface{}
	DependsOn []string
	Force     bool
}

// NewContract is a contract created during this run.
type NewContract struct {
	Name    string
	Address common.Address
	Link    string
}

type Options struct {
	DryRun   bool
	GasPrice *big.Int
	GasLimit uint64
	Network  config.Network
}

type Deployer struct {
	client    client.Client
	artifacts *artifacts.Set
	flags     config.ContractFlags
	record    *deployment.Record
	opts      Options
	log       *ux.UserLog

	deployed map[string]*client.Contract
	fresh    []NewContract
}

func New(c client.Client, set *artifacts.Set, flags config.ContractFlags, record *deployment.Record, opts Options, log *ux.UserLog) *Deployer {
	return &Deployer{
		client:    c,
		artifacts: set,
		flags:     flags,
		record:    record,
		opts:      opts,
		log:       log,
		deployed:  make(map[string]*client.Contract),
	}
}

func (d *Deployer) Account() common.Address { return d.client.Account() }

func (d *Deployer) Record() *deployment.Record { return d.record }

// Deploy creates or reuses the contract described by req. It returns nil
// without error when the contract is not in the config and not forced.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*client.Contract, error) {
	if req.Source == "" {
		req.Source = req.Name
	}

	flag, inConfig := d.flags[req.Name]
	if !inConfig && !req.Force {
		d.log.Gray("Skipping %s as it is NOT in contract flags file for deployment.", req.Name)
		return nil, nil
	}

	if missing := d.unresolved(req.DependsOn); len(missing) > 0 {
		return nil, &DependencyUnresolvedError{Name: req.Name, Missing: missing}
	}

	artifact, ok := d.artifacts.Get(req.Source)
	if !ok {
		return nil, &config.ConfigurationError{
			Msg: fmt.Sprintf("cannot find compiled contract code for %s (source %s)", req.Name, req.Source),
		}
	}

	var (
		contract *client.Contract
		err      error
	)
	switch {
	case flag.Deploy || req.Force:
		contract, err = d.create(ctx, req, artifact)
	default:
		contract, err = d.reuse(req, artifact)
	}
	if err != nil {
		return nil, err
	}

	d.deployed[req.Name] = contract
	return contract, nil
}

func (d *Deployer) create(ctx context.Context, req Request, artifact *artifacts.Artifact) (*client.Contract, error) {
	if d.opts.DryRun {
		d.log.Gray(" - DRY RUN - would deploy %s", req.Name)
		contract := client.NewContract(d.client, req.Name, client.PlaceholderAddress, artifact.ABI)
		contract.Source = req.Source
		contract.Simulated = true
		contract.Fresh = true
		return contract, nil
	}

	libraries, err := d.libraryAddresses(req.Name, artifact)
	if err != nil {
		return nil, err
	}
	bytecode, err := artifact.Link(libraries)
	if err != nil {
		return nil, err
	}

	d.log.Gray(" - Attempting to deploy %s", req.Name)
	result, err := d.client.Deploy(ctx, artifact.ABI, bytecode, req.Args, client.TxOpts{
		GasLimit: d.opts.GasLimit,
		GasPrice: d.opts.GasPrice,
	})
	if err != nil {
		var revert *client.ContractRevertError
		if errors.As(err, &revert) {
			revert.Contract = req.Name
		}
		return nil, fmt.Errorf("failed to deploy %s: %w", req.Name, err)
	}

	address := result.Address.Hex()
	link := d.opts.Network.AddressLink(address)
	d.record.Put(deployment.Target{
		Name:      req.Name,
		Address:   address,
		Source:    req.Source,
		Link:      link,
		Timestamp: time.Now().UTC(),
		Txn:       d.opts.Network.TxLink(result.TxHash.Hex()),
		Network:   d.opts.Network.Name,
	}, deployment.Source{
		Bytecode: artifact.Bytecode,
		ABI:      artifact.RawABI,
	})
	if err := d.record.Save(); err != nil {
		return nil, fmt.Errorf("deployed %s at %s but failed to save the record: %w", req.Name, address, err)
	}

	d.fresh = append(d.fresh, NewContract{Name: req.Name, Address: result.Address, Link: link})
	d.log.GreenCheckmarkToUser("Deployed %s at %s", req.Name, address)
	d.log.Info("contract deployed",
		zap.String("name", req.Name),
		zap.String("source", req.Source),
		zap.String("address", address),
		zap.String("tx", result.TxHash.Hex()),
	)

	contract := client.NewContract(d.client, req.Name, result.Address, artifact.ABI)
	contract.Source = req.Source
	contract.Fresh = true
	return contract, nil
}

func (d *Deployer) reuse(req Request, artifact *artifacts.Artifact) (*client.Contract, error) {
	address, ok := d.record.AddressOf(req.Name)
	if !ok {
		return nil, &config.ConfigurationError{
			Msg: fmt.Sprintf("settings for contract %s specify an existing contract, but cannot find its address", req.Name),
		}
	}

	source := req.Source
	if t := d.record.Targets[req.Name]; t.Source != "" {
		source = t.Source
	}

	contractABI, err := d.record.ABIOf(req.Name)
	if err != nil {
		d.log.Warn("No recorded ABI for %s, using the local build of %s", req.Name, req.Source)
		contractABI = artifact.ABI
	}

	if src, ok := d.record.Sources[source]; ok && src.Bytecode != "" &&
		artifacts.Fingerprint(src.Bytecode) != artifacts.Fingerprint(artifact.Bytecode) {
		d.log.Debug("local build differs from deployed bytecode", zap.String("name", req.Name), zap.String("source", source))
	}

	d.log.Gray(" - Reusing instance of %s at %s", req.Name, address.Hex())
	contract := client.NewContract(d.client, req.Name, address, contractABI)
	contract.Source = source
	return contract, nil
}

// Existing binds the recorded instance of name regardless of the config,
// for probing state left by a previous deployment.
func (d *Deployer) Existing(name string) (*client.Contract, bool) {
	address, ok := d.record.AddressOf(name)
	if !ok {
		return nil, false
	}
	contractABI, err := d.record.ABIOf(name)
	if err != nil {
		return nil, false
	}
	contract := client.NewContract(d.client, name, address, contractABI)
	contract.Source = d.record.Targets[name].Source
	return contract, true
}

// Contract returns the handle produced for name in this run, or nil.
func (d *Deployer) Contract(name string) *client.Contract {
	return d.deployed[name]
}

// Contracts returns every handle produced in this run.
func (d *Deployer) Contracts() map[string]*client.Contract {
	out := make(map[string]*client.Contract, len(d.deployed))
	for name, c := range d.deployed {
		out[name] = c
	}
	return out
}

// NewContracts lists contracts actually created in this run, in order.
func (d *Deployer) NewContracts() []NewContract {
	return append([]NewContract(nil), d.fresh...)
}

func (d *Deployer) unresolved(deps []string) []string {
	var missing []string
	for _, dep := range deps {
		if _, ok := d.deployed[dep]; ok {
			continue
		}
		if _, ok := d.record.AddressOf(dep); ok {
			continue
		}
		missing = append(missing, dep)
	}
	sort.Strings(missing)
	return missing
}

func (d *Deployer) libraryAddresses(name string, artifact *artifacts.Artifact) (map[string]common.Address, error) {
	libs := make(map[string]common.Address)
	var missing []string
	for _, lib := range artifact.LibraryNames() {
		if c, ok := d.deployed[lib]; ok && !c.Simulated {
			libs[lib] = c.Address
			continue
		}
		if addr, ok := d.record.AddressOf(lib); ok {
			libs[lib] = addr
			continue
		}
		missing = append(missing, lib)
	}
	if len(missing) > 0 {
		return nil, &DependencyUnresolvedError{Name: name, Missing: missing}
	}
	return libs, nil
}
