// Package reconcile applies read-check-write steps so that re-running a
// deployment against correctly configured contracts sends nothing.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/deployment"
	"github.com/parthshah1/synth-publish/ux"
)

// Step brings one on-chain value in line with what the deployment expects.
// An empty Read makes the write unconditional.
type Step struct {
	// Contract names the target in logs and owner actions.
	Contract  string
	Target    *client.Contract
	Read      string
	ReadArgs  []interface{}
	Expected  Expectation
	Write     string
	WriteArgs []interface{}
	// GasLimit overrides the runner's method-call gas limit.
	GasLimit uint64
}

// Result is what a step did.
type Result struct {
	Skipped bool
	// DryRun is set when a write was needed but only logged.
	DryRun bool
	// OwnerAction is set when the write was recorded for the owner.
	OwnerAction bool
	TxHash      common.Hash
}

type Options struct {
	DryRun   bool
	GasPrice *big.Int
	GasLimit uint64
	Network  config.Network
}

// Runner executes steps one at a time.
type Runner struct {
	account      common.Address
	opts         Options
	ownerActions *deployment.OwnerActions
	log          *ux.UserLog

	sent int
}

func NewRunner(account common.Address, opts Options, ownerActions *deployment.OwnerActions, log *ux.UserLog) *Runner {
	return &Runner{
		account:      account,
		opts:         opts,
		ownerActions: ownerActions,
		log:          log,
	}
}

// Sent counts the transactions this runner has submitted.
func (r *Runner) Sent() int { return r.sent }

func (r *Runner) DryRun() bool { return r.opts.DryRun }

// GasLimit is the default method-call gas limit.
func (r *Runner) GasLimit() uint64 { return r.opts.GasLimit }

// Validate checks the step against its target's ABI before any chain call.
func (s Step) Validate() error {
	if s.Target == nil {
		return fmt.Errorf("step %s.%s has no target contract", s.Contract, s.Write)
	}
	if s.Write == "" {
		return fmt.Errorf("step on %s has no write method", s.Contract)
	}
	if !s.Target.HasMethod(s.Write) {
		return fmt.Errorf("%s has no method %s", s.Contract, s.Write)
	}
	if s.Read != "" {
		if !s.Target.HasMethod(s.Read) {
			return fmt.Errorf("%s has no method %s", s.Contract, s.Read)
		}
		if s.Expected == nil {
			return fmt.Errorf("step %s.%s reads %s without an expectation", s.Contract, s.Write, s.Read)
		}
	}
	return nil
}

// Run reads the current value, and writes only when it differs from the
// expectation.
func (r *Runner) Run(ctx context.Context, step Step) (Result, error) {
	if step.Contract == "" && step.Target != nil {
		step.Contract = step.Target.Name
	}
	if err := step.Validate(); err != nil {
		return Result{}, err
	}

	if step.Read != "" {
		matches, err := r.check(ctx, step)
		if err != nil {
			return Result{}, err
		}
		if matches {
			r.log.Gray("Skipping %s.%s as %s is already set", step.Contract, step.Write, step.Read)
			return Result{Skipped: true}, nil
		}
	}

	call := describe(step)
	if r.opts.DryRun {
		r.log.Gray(" - DRY RUN - would invoke %s", call)
		return Result{Skipped: true, DryRun: true}, nil
	}

	isOwner, owner, err := r.ownedByAccount(ctx, step.Target)
	if err != nil {
		return Result{}, err
	}
	if !isOwner {
		return r.recordOwnerAction(step, call, owner)
	}

	gasLimit := step.GasLimit
	if gasLimit == 0 {
		gasLimit = r.opts.GasLimit
	}

	r.log.Gray("Attempting action: %s", call)
	hash, err := step.Target.Transact(ctx, client.TxOpts{GasLimit: gasLimit, GasPrice: r.opts.GasPrice}, step.Write, step.WriteArgs...)
	if err != nil {
		return Result{}, fmt.Errorf("failed to invoke %s: %w", call, err)
	}
	r.sent++

	r.log.GreenCheckmarkToUser("Successfully completed %s in hash %s", call, hash.Hex())
	r.log.Info("step applied",
		zap.String("contract", step.Contract),
		zap.String("method", step.Write),
		zap.String("tx", hash.Hex()),
	)
	return Result{TxHash: hash}, nil
}

func (r *Runner) check(ctx context.Context, step Step) (bool, error) {
	out, err := step.Target.Call(ctx, step.Read, step.ReadArgs...)
	if errors.Is(err, client.ErrSimulated) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s.%s: %w", step.Contract, step.Read, err)
	}
	return step.Expected(out), nil
}

// ownedByAccount reports whether the deployer may call owner-only methods
// on target. Contracts without owner() are treated as callable.
func (r *Runner) ownedByAccount(ctx context.Context, target *client.Contract) (bool, common.Address, error) {
	if target.Simulated || !target.HasMethod("owner") {
		return true, common.Address{}, nil
	}
	out, err := target.CallOne(ctx, "owner")
	if err != nil {
		return false, common.Address{}, fmt.Errorf("failed to read owner of %s: %w", target.Name, err)
	}
	owner, ok := out.(common.Address)
	if !ok {
		return true, common.Address{}, nil
	}
	return owner == r.account, owner, nil
}

func (r *Runner) recordOwnerAction(step Step, call string, owner common.Address) (Result, error) {
	data, err := step.Target.Pack(step.Write, step.WriteArgs...)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode %s: %w", call, err)
	}

	action := deployment.OwnerAction{
		Target: step.Target.Address.Hex(),
		Action: call,
		Data:   hexutil.Encode(data),
		Link:   r.opts.Network.AddressLink(step.Target.Address.Hex()),
	}
	if r.ownerActions != nil {
		if err := r.ownerActions.Append(call, action); err != nil {
			return Result{}, err
		}
	}

	r.log.Warn("Cannot invoke %s as not owner (owner is %s). Appending to owner actions.", call, owner.Hex())
	return Result{Skipped: true, OwnerAction: true}, nil
}

func describe(step Step) string {
	args := make([]string, len(step.WriteArgs))
	for i, arg := range step.WriteArgs {
		args[i] = formatArg(arg)
	}
	return fmt.Sprintf("%s.%s(%s)", step.Contract, step.Write, strings.Join(args, ", "))
}

func formatArg(arg interface{}) string {
	switch v := arg.(type) {
	case common.Address:
		return v.Hex()
	case [32]byte:
		return client.FromBytes32(v)
	case [][32]byte:
		parts := make([]string, len(v))
		for i, b := range v {
			parts[i] = client.FromBytes32(b)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case []common.Address:
		parts := make([]string, len(v))
		for i, a := range v {
			parts[i] = a.Hex()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprint(v)
	}
}
