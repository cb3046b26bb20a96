package sequencer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/client"
)

const (
	inflationStartTimestamp = 1551830400
	secondsInWeek           = 604800
	mintingBuffer           = 86400
)

var (
	// InitialSupply is the protocol token supply before any inflation.
	InitialSupply            = client.Ether(100_000_000)
	weeklyInflation          = new(big.Int).Div(client.Ether(75_000_000), big.NewInt(52))
	defaultProtocolTokenRate = new(big.Int).Div(client.Ether(1), big.NewInt(5))
)

// PriorState is what the previous deployment tells a new one. Every field
// falls back to a default when its probe fails.
type PriorState struct {
	SynthetixSupply   *big.Int
	CurrentWeek       uint64
	LastMintEvent     uint64
	ProtocolTokenRate *big.Int
	Oracle            common.Address
	// OldRates is the ExchangeRates recorded before this run, nil if none.
	OldRates         *client.Contract
	SystemSuspended  bool
	SuspensionReason *big.Int
}

// InflationSchedule derives the supply schedule's week counter and last
// mint time from the current token supply. A supply at or below the
// initial supply is week zero. Only an unknown supply yields no mint.
func InflationSchedule(supply *big.Int) (week uint64, lastMint uint64) {
	if supply == nil {
		return 0, 0
	}
	if minted := new(big.Int).Sub(supply, InitialSupply); minted.Sign() > 0 {
		week = new(big.Int).Div(minted, weeklyInflation).Uint64()
	}
	lastMint = inflationStartTimestamp + week*secondsInWeek + mintingBuffer
	return week, lastMint
}

func (s *Sequencer) probe(ctx context.Context) PriorState {
	prior := PriorState{
		SynthetixSupply:   new(big.Int).Set(InitialSupply),
		ProtocolTokenRate: new(big.Int).Set(defaultProtocolTokenRate),
		Oracle:            s.account,
	}

	if supply, ok := s.probeSupply(ctx); ok {
		prior.SynthetixSupply = supply
		prior.CurrentWeek, prior.LastMintEvent = InflationSchedule(supply)
	}

	if rates, ok := s.deployer.Existing("ExchangeRates"); ok {
		if rate, oracle, ok := s.probeRates(ctx, rates); ok {
			prior.ProtocolTokenRate = rate
			prior.Oracle = oracle
			prior.OldRates = rates
		}
	} else {
		s.log.Gray("ExchangeRates not found in the deployment, the oracle defaults to the deployer")
	}

	if status, ok := s.deployer.Existing("SystemStatus"); ok {
		out, err := status.Call(ctx, "systemSuspension")
		switch {
		case err != nil:
			s.warnProbe("SystemStatus", "systemSuspension", err)
		case len(out) >= 2:
			prior.SystemSuspended, _ = out[0].(bool)
			prior.SuspensionReason, _ = out[1].(*big.Int)
		}
	}

	s.log.Debug("prior state probed",
		zap.String("supply", prior.SynthetixSupply.String()),
		zap.Uint64("week", prior.CurrentWeek),
		zap.String("oracle", prior.Oracle.Hex()),
		zap.Bool("oldRates", prior.OldRates != nil),
	)
	return prior
}

// probeRates reads the protocol token rate and the oracle together. If
// either read fails, neither is used and the previous ExchangeRates is
// treated as unknown.
func (s *Sequencer) probeRates(ctx context.Context, rates *client.Contract) (*big.Int, common.Address, bool) {
	rate, ok := s.probeBig(ctx, rates, "rateForCurrency", client.ToBytes32(s.opts.ProtocolTokenKey))
	if !ok {
		return nil, common.Address{}, false
	}
	out, err := rates.CallOne(ctx, "oracle")
	if err != nil {
		s.warnProbe("ExchangeRates", "oracle", err)
		return nil, common.Address{}, false
	}
	oracle, ok := out.(common.Address)
	return rate, oracle, ok
}

func (s *Sequencer) probeSupply(ctx context.Context) (*big.Int, bool) {
	synthetix, ok := s.deployer.Existing("Synthetix")
	if !ok {
		s.log.Gray("Synthetix not found in the deployment, using the initial supply")
		return nil, false
	}
	return s.probeBig(ctx, synthetix, "totalSupply")
}

func (s *Sequencer) probeBig(ctx context.Context, c *client.Contract, method string, args ...interface{}) (*big.Int, bool) {
	out, err := c.CallOne(ctx, method, args...)
	if err != nil {
		s.warnProbe(c.Name, method, err)
		return nil, false
	}
	v, ok := out.(*big.Int)
	return v, ok && v != nil
}

func (s *Sequencer) warnProbe(contract, method string, err error) {
	if s.opts.Network.Name == "local" {
		return
	}
	s.log.Warn("Could not read %s.%s from the previous deployment, using the default: %v", contract, method, err)
}
