package sequencer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/reconcile"
)

// gas per synth when batching exchange fee rates
const feeRateGasPerSynth = 40_000

// Settings are the values written to SystemSettings while unset.
type Settings struct {
	WaitingPeriodSecs             *big.Int
	PriceDeviationThresholdFactor *big.Int
	TradingRewardsEnabled         bool
	IssuanceRatio                 *big.Int
	FeePeriodDuration             *big.Int
	TargetThreshold               *big.Int
	LiquidationDelay              *big.Int
	LiquidationRatio              *big.Int
	LiquidationPenalty            *big.Int
	RateStalePeriod               *big.Int
	MinimumStakeTime              *big.Int
	// ExchangeFeeRates is keyed by synth category.
	ExchangeFeeRates map[string]*big.Int
}

func DefaultSettings() Settings {
	milli := func(n int64) *big.Int {
		return new(big.Int).Div(client.Ether(n), big.NewInt(1000))
	}
	return Settings{
		WaitingPeriodSecs:             big.NewInt(3 * 60),
		PriceDeviationThresholdFactor: client.Ether(3),
		TradingRewardsEnabled:         false,
		IssuanceRatio:                 milli(125),
		FeePeriodDuration:             big.NewInt(7 * 24 * 3600),
		TargetThreshold:               big.NewInt(1),
		LiquidationDelay:              big.NewInt(3 * 24 * 3600),
		LiquidationRatio:              milli(500),
		LiquidationPenalty:            milli(100),
		RateStalePeriod:               big.NewInt(25 * 3600),
		MinimumStakeTime:              big.NewInt(24 * 3600),
		ExchangeFeeRates: map[string]*big.Int{
			"forex":     milli(3),
			"commodity": milli(3),
			"equities":  milli(3),
			"crypto":    milli(3),
			"index":     milli(3),
		},
	}
}

type setting struct {
	read  string
	write string
	value interface{}
}

func (st Settings) oneShot() []setting {
	return []setting{
		{"waitingPeriodSecs", "setWaitingPeriodSecs", st.WaitingPeriodSecs},
		{"priceDeviationThresholdFactor", "setPriceDeviationThresholdFactor", st.PriceDeviationThresholdFactor},
		{"tradingRewardsEnabled", "setTradingRewardsEnabled", st.TradingRewardsEnabled},
		{"issuanceRatio", "setIssuanceRatio", st.IssuanceRatio},
		{"feePeriodDuration", "setFeePeriodDuration", st.FeePeriodDuration},
		{"targetThreshold", "setTargetThreshold", st.TargetThreshold},
		{"liquidationDelay", "setLiquidationDelay", st.LiquidationDelay},
		{"liquidationRatio", "setLiquidationRatio", st.LiquidationRatio},
		{"liquidationPenalty", "setLiquidationPenalty", st.LiquidationPenalty},
		{"rateStalePeriod", "setRateStalePeriod", st.RateStalePeriod},
		{"minimumStakeTime", "setMinimumStakeTime", st.MinimumStakeTime},
	}
}

// configureSettings initializes SystemSettings. Values are only written
// while they read as zero, so settings tuned after launch are kept.
func (s *Sequencer) configureSettings(ctx context.Context) error {
	settings := s.p.systemSettings
	if settings == nil {
		return nil
	}
	s.log.Section("CONFIGURE SYSTEM SETTINGS")

	if err := s.initExchangeFeeRates(ctx, settings); err != nil {
		return err
	}

	for _, st := range s.opts.Settings.oneShot() {
		step := reconcile.Step{
			Contract:  "SystemSettings",
			Target:    settings,
			Read:      st.read,
			Expected:  reconcile.IsSet,
			Write:     st.write,
			WriteArgs: []interface{}{st.value},
		}
		// A flag is written only while it reads false and differs from the
		// configured value. An operator's true is left alone.
		if enabled, ok := st.value.(bool); ok {
			step.Expected = reconcile.AnyOf(reconcile.IsSet, reconcile.EqualsBool(enabled))
		}
		if _, err := s.runner.Run(ctx, step); err != nil {
			return err
		}
	}

	if flags := s.opts.Network.AggregatorWarningFlags; flags != "" {
		if !common.IsHexAddress(flags) {
			return &config.ConfigurationError{Msg: fmt.Sprintf("invalid aggregator warning flags address %q for %s", flags, s.opts.Network.Name)}
		}
		if _, err := s.runner.Run(ctx, reconcile.Step{
			Contract:  "SystemSettings",
			Target:    settings,
			Read:      "aggregatorWarningFlags",
			Expected:  reconcile.IsSet,
			Write:     "setAggregatorWarningFlags",
			WriteArgs: []interface{}{common.HexToAddress(flags)},
		}); err != nil {
			return err
		}
	}
	return nil
}

// initExchangeFeeRates sets the category fee rate for every synth whose
// rate reads exactly zero, in a single transaction. Non-zero rates are
// never touched.
func (s *Sequencer) initExchangeFeeRates(ctx context.Context, settings *client.Contract) error {
	var (
		keys  [][32]byte
		rates []*big.Int
		lines []string
	)
	for _, synth := range s.sources.Synths {
		key := client.ToBytes32(synth.Name)
		current := new(big.Int)
		out, err := settings.CallOne(ctx, "exchangeFeeRate", key)
		switch {
		case errors.Is(err, client.ErrSimulated):
		case err != nil:
			return fmt.Errorf("failed to read exchange fee rate of %s: %w", synth.Name, err)
		default:
			if v, ok := out.(*big.Int); ok && v != nil {
				current = v
			}
		}
		if current.Sign() != 0 {
			continue
		}

		target, ok := s.opts.Settings.ExchangeFeeRates[synth.Category]
		if !ok {
			return &config.ConfigurationError{Msg: fmt.Sprintf("no exchange fee rate for category %q of synth %s", synth.Category, synth.Name)}
		}
		keys = append(keys, key)
		rates = append(rates, target)
		lines = append(lines, fmt.Sprintf("\t%s from 0%% to %s%%", synth.Name, percent(target)))
	}

	s.log.Gray("Found %d synths needs exchange rate pricing", len(keys))
	if len(keys) == 0 {
		return nil
	}
	s.log.Gray("Setting the following:\n%s", strings.Join(lines, "\n"))

	gasLimit := s.runner.GasLimit()
	if batch := uint64(feeRateGasPerSynth * len(keys)); batch > gasLimit {
		gasLimit = batch
	}
	_, err := s.runner.Run(ctx, reconcile.Step{
		Contract:  "SystemSettings",
		Target:    settings,
		Write:     "setExchangeFeeRateForSynths",
		WriteArgs: []interface{}{keys, rates},
		GasLimit:  gasLimit,
	})
	return err
}

func percent(wei *big.Int) string {
	r := new(big.Rat).SetFrac(wei, client.Ether(1))
	r.Mul(r, big.NewRat(100, 1))
	return r.FloatString(2)
}
