// Package inverse carries inverse-synth pricing bounds over to a newly
// deployed ExchangeRates without repricing live holders.
package inverse

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/reconcile"
	"github.com/parthshah1/synth-publish/ux"
)

// Action is what the migrator does for one synth.
type Action int

const (
	Skip Action = iota
	Apply
	Refuse
)

func (a Action) String() string {
	switch a {
	case Apply:
		return "apply"
	case Refuse:
		return "refuse"
	default:
		return "skip"
	}
}

// Bounds are inverse pricing parameters in wei.
type Bounds struct {
	EntryPoint *big.Int
	UpperLimit *big.Int
	LowerLimit *big.Int
}

func (b Bounds) Equal(o Bounds) bool {
	return cmp(b.EntryPoint, o.EntryPoint) && cmp(b.UpperLimit, o.UpperLimit) && cmp(b.LowerLimit, o.LowerLimit)
}

func cmp(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// Prior is what the previous ExchangeRates knows about the synth.
type Prior struct {
	Bounds
	FrozenAtUpper bool
	FrozenAtLower bool
	// CurrentRate is the last rate the previous oracle reported.
	CurrentRate *big.Int
}

// Input is everything the decision depends on.
type Input struct {
	Currency string
	Target   Bounds
	// Prior is nil when there is no previous ExchangeRates.
	Prior *Prior
	// RatesReplaced is set when ExchangeRates is a new contract.
	RatesReplaced bool
	// TotalSupply is nil when the synth's supply could not be read.
	TotalSupply *big.Int
	Production  bool
	// ForceOnTestnet permits repricing a held synth off production.
	ForceOnTestnet bool
}

// Decision is the outcome for one synth.
type Decision struct {
	Action      Action
	FreezeUpper bool
	FreezeLower bool
	Reason      string
	// Unsafe marks an apply that reprices existing holders.
	Unsafe bool
}

// Decide picks the pricing action for one inverse synth.
func Decide(in Input) Decision {
	if in.Prior == nil {
		return Decision{Action: Apply, Reason: "no previous ExchangeRates, totally fresh deploy"}
	}

	if in.Prior.Bounds.Equal(in.Target) {
		if !in.RatesReplaced {
			return Decision{
				Action: Skip,
				Reason: "identical parameters and no new ExchangeRates, skipping check of frozen status",
			}
		}
		rate := in.Prior.CurrentRate
		return Decision{
			Action:      Apply,
			FreezeUpper: rate != nil && rate.Cmp(in.Target.UpperLimit) == 0,
			FreezeLower: rate != nil && rate.Cmp(in.Target.LowerLimit) == 0,
			Reason: fmt.Sprintf("identical parameters and a newer ExchangeRates, persisting frozen status (%t)",
				in.Prior.FrozenAtUpper || in.Prior.FrozenAtLower),
		}
	}

	// A zero rate is taken to mean the synth was never priced. An oracle
	// fault that momentarily reports zero for a live synth looks the same.
	if in.Prior.CurrentRate == nil || in.Prior.CurrentRate.Sign() == 0 {
		return Decision{Action: Apply, Reason: "new inverted synth with no previous rate, proceeding to add"}
	}

	if in.TotalSupply == nil {
		if !in.Production && in.ForceOnTestnet {
			return Decision{
				Action: Apply,
				Unsafe: true,
				Reason: "its totalSupply could not be determined. This is allowed only on testnets",
			}
		}
		return Decision{
			Action: Refuse,
			Reason: "its totalSupply could not be determined, so existing holders cannot be ruled out",
		}
	}

	if in.TotalSupply.Sign() == 0 {
		return Decision{
			Action: Apply,
			Reason: "changed parameters with zero total supply, reconfiguring and unfreezing",
		}
	}

	if !in.Production && in.ForceOnTestnet {
		return Decision{
			Action: Apply,
			Unsafe: true,
			Reason: "it has non-zero totalSupply. This is allowed only on testnets",
		}
	}

	return Decision{
		Action: Refuse,
		Reason: "it has non-zero totalSupply. This should be done as a purge() and setInversePricing() separately",
	}
}

// UnsafeMigrationWarning is logged, never returned as an error, when a
// pricing change would reprice existing holders.
type UnsafeMigrationWarning struct {
	Currency string
	Reason   string
}

func (w UnsafeMigrationWarning) String() string {
	return fmt.Sprintf("WARNING: The parameters for the inverted synth %s have changed: %s", w.Currency, w.Reason)
}

// Synth is an inverse synth to migrate.
type Synth struct {
	Currency string
	Pricing  config.InversePricing
	// Contract is the Synth<currency> handle of this run, used for supply.
	Contract *client.Contract
}

// Migrator applies decisions through the step runner.
type Migrator struct {
	runner *reconcile.Runner
	log    *ux.UserLog
}

func NewMigrator(runner *reconcile.Runner, log *ux.UserLog) *Migrator {
	return &Migrator{runner: runner, log: log}
}

// Migrate decides and applies inverse pricing for each synth. oldRates is
// the ExchangeRates recorded before this run, nil on a fresh network.
func (m *Migrator) Migrate(ctx context.Context, oldRates, rates *client.Contract, synths []Synth, production, forceOnTestnet bool) ([]Decision, error) {
	if rates == nil {
		return nil, nil
	}

	decisions := make([]Decision, 0, len(synths))
	for _, s := range synths {
		target, err := bounds(s.Pricing)
		if err != nil {
			return decisions, fmt.Errorf("invalid inverse pricing for %s: %w", s.Currency, err)
		}

		in := Input{
			Currency:       s.Currency,
			Target:         target,
			RatesReplaced:  oldRates != nil && oldRates.Address != rates.Address,
			Production:     production,
			ForceOnTestnet: forceOnTestnet,
		}
		if oldRates != nil && oldRates.HasMethod("inversePricing") {
			prior, err := readPrior(ctx, oldRates, s.Currency)
			if err != nil {
				return decisions, err
			}
			in.Prior = prior
			in.TotalSupply, err = totalSupply(ctx, s.Contract)
			if err != nil {
				return decisions, err
			}
			if in.TotalSupply != nil {
				m.log.Gray("totalSupply of %s: %s", s.Currency, client.FromWei(in.TotalSupply))
			}
		}

		d := Decide(in)
		decisions = append(decisions, d)

		switch {
		case d.Action == Refuse:
			m.log.Alert("%s", UnsafeMigrationWarning{Currency: s.Currency, Reason: d.Reason})
			continue
		case d.Action == Skip:
			m.log.Gray("Detected an existing inverted synth for %s: %s", s.Currency, d.Reason)
			continue
		case d.Unsafe:
			m.log.Alert("%s", UnsafeMigrationWarning{Currency: s.Currency, Reason: d.Reason})
		default:
			m.log.Gray("Inverted synth %s: %s", s.Currency, d.Reason)
		}

		if _, err := m.runner.Run(ctx, reconcile.Step{
			Contract: "ExchangeRates",
			Target:   rates,
			Write:    "setInversePricing",
			WriteArgs: []interface{}{
				client.ToBytes32(s.Currency),
				target.EntryPoint,
				target.UpperLimit,
				target.LowerLimit,
				d.FreezeUpper,
				d.FreezeLower,
			},
		}); err != nil {
			return decisions, err
		}
	}
	return decisions, nil
}

func bounds(p config.InversePricing) (Bounds, error) {
	entry, err := client.FloatToWei(p.EntryPoint)
	if err != nil {
		return Bounds{}, err
	}
	upper, err := client.FloatToWei(p.UpperLimit)
	if err != nil {
		return Bounds{}, err
	}
	lower, err := client.FloatToWei(p.LowerLimit)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{EntryPoint: entry, UpperLimit: upper, LowerLimit: lower}, nil
}

func readPrior(ctx context.Context, rates *client.Contract, currency string) (*Prior, error) {
	key := client.ToBytes32(currency)
	out, err := rates.Call(ctx, "inversePricing", key)
	if err != nil {
		return nil, fmt.Errorf("failed to read inverse pricing of %s: %w", currency, err)
	}
	if len(out) < 5 {
		return nil, fmt.Errorf("unexpected inversePricing result for %s", currency)
	}

	prior := &Prior{}
	prior.EntryPoint, _ = out[0].(*big.Int)
	prior.UpperLimit, _ = out[1].(*big.Int)
	prior.LowerLimit, _ = out[2].(*big.Int)
	prior.FrozenAtUpper, _ = out[3].(bool)
	prior.FrozenAtLower, _ = out[4].(bool)

	rate, err := rates.CallOne(ctx, "rateForCurrency", key)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate of %s: %w", currency, err)
	}
	prior.CurrentRate, _ = rate.(*big.Int)
	return prior, nil
}

// totalSupply of a simulated synth is zero: it holds nothing yet. A missing
// handle yields nil since nothing is known about its holders.
func totalSupply(ctx context.Context, synth *client.Contract) (*big.Int, error) {
	if synth == nil {
		return nil, nil
	}
	out, err := synth.CallOne(ctx, "totalSupply")
	if errors.Is(err, client.ErrSimulated) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read totalSupply of %s: %w", synth.Name, err)
	}
	supply, _ := out.(*big.Int)
	if supply == nil {
		supply = new(big.Int)
	}
	return supply, nil
}
