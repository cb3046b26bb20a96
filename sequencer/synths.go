package sequencer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/deployer"
	"github.com/parthshah1/synth-publish/inverse"
	"github.com/parthshah1/synth-publish/reconcile"
)

const swapOracleWindow = 60

func (s *Sequencer) deploySynths(ctx context.Context) error {
	s.log.Section("DEPLOY SYNTHS")
	for _, synth := range s.sources.Synths {
		if err := s.deploySynth(ctx, synth); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) deploySynth(ctx context.Context, synth config.Synth) error {
	key := synth.Name
	s.log.Gray("   --- SYNTH %s ---", key)

	tokenStateName := "TokenState" + key
	proxyName := "Proxy" + key
	synthName := "Synth" + key

	tokenState, err := s.deploy(ctx, deployer.Request{
		Name:   tokenStateName,
		Source: "TokenState",
		Args:   []interface{}{s.account, zeroAddress},
		Force:  s.forceNew(tokenStateName),
	})
	if err != nil {
		return err
	}
	proxy, err := s.deploy(ctx, deployer.Request{
		Name:   proxyName,
		Source: "ProxyERC20",
		Args:   []interface{}{s.account},
		Force:  s.forceNew(proxyName),
	})
	if err != nil {
		return err
	}

	// A replacement synth contract takes over the supply of the old one.
	originalSupply := new(big.Int)
	if s.sources.Flags[synthName].Deploy {
		if old, ok := s.deployer.Existing(synthName); ok {
			if supply, ok := s.probeBig(ctx, old, "totalSupply"); ok {
				originalSupply = supply
			}
		}
	}
	if s.sources.Flags[synthName].Deploy && originalSupply.Sign() > 0 {
		ok, err := s.confirm(fmt.Sprintf("WARNING: Please confirm - %s:\n%s totalSupply is %s\nDo you want to continue",
			s.opts.Network.Name, synthName, originalSupply))
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}

	source := synth.Subclass
	if source == "" {
		source = "Synth"
	}
	contract, err := s.deploy(ctx, deployer.Request{
		Name:      synthName,
		Source:    source,
		DependsOn: []string{tokenStateName, proxyName, "Synthetix", "FeePool"},
		Args: []interface{}{
			client.AddressOf(proxy),
			client.AddressOf(tokenState),
			"Synth " + key,
			key,
			s.account,
			client.ToBytes32(key),
			originalSupply,
			s.resolverAddress(),
		},
		Force: s.forceNew(synthName),
	})
	if err != nil {
		return err
	}
	s.p.synths[key] = &synthContracts{tokenState: tokenState, proxy: proxy, synth: contract}

	if err := s.point(ctx, tokenState, "associatedContract", "setAssociatedContract", contract); err != nil {
		return err
	}
	if proxy != nil && contract != nil {
		if err := s.point(ctx, proxy, "target", "setTarget", contract); err != nil {
			return err
		}
		if err := s.point(ctx, contract, "proxy", "setProxy", proxy); err != nil {
			return err
		}
	}

	if contract != nil && s.p.issuer != nil {
		if _, err := s.runner.Run(ctx, reconcile.Step{
			Contract:  "Issuer",
			Target:    s.p.issuer,
			Read:      "synths",
			ReadArgs:  []interface{}{client.ToBytes32(key)},
			Expected:  reconcile.Equals(contract.Address),
			Write:     "addSynth",
			WriteArgs: []interface{}{contract.Address},
		}); err != nil {
			return err
		}
	}

	if feed, ok := s.sources.FeedFor(synth.Asset); ok && feed.Kind() == config.FeedChainlink {
		return s.addAggregator(ctx, key, feed.Feed)
	}
	return nil
}

// forceNew reports whether name should be created even though the contract
// flags do not mention it. Only synths missing from the flags are forced,
// so an existing synth is never redeployed by --add-new-synths alone.
func (s *Sequencer) forceNew(name string) bool {
	if !s.opts.AddNewSynths {
		return false
	}
	_, inConfig := s.sources.Flags[name]
	return !inConfig
}

func (s *Sequencer) addAggregator(ctx context.Context, currency, feed string) error {
	if s.p.exchangeRates == nil || !common.IsHexAddress(feed) {
		return nil
	}
	aggregator := common.HexToAddress(feed)
	key := client.ToBytes32(currency)
	_, err := s.runner.Run(ctx, reconcile.Step{
		Contract:  "ExchangeRates",
		Target:    s.p.exchangeRates,
		Read:      "aggregators",
		ReadArgs:  []interface{}{key},
		Expected:  reconcile.Equals(aggregator),
		Write:     "addAggregator",
		WriteArgs: []interface{}{key, aggregator},
	})
	return err
}

func (s *Sequencer) deployUtilities(ctx context.Context) error {
	s.log.Section("DEPLOY DAPP UTILITIES")
	if _, err := s.deploy(ctx, deployer.Request{
		Name:      "SynthUtil",
		DependsOn: []string{"ReadProxyAddressResolver"},
		Args:      []interface{}{client.AddressOf(s.p.readProxyResolver)},
	}); err != nil {
		return err
	}
	_, err := s.deploy(ctx, deployer.Request{Name: "DappMaintenance", Args: []interface{}{s.account}})
	return err
}

// configureStandaloneFeeds wires price feeds for assets that are not synths.
func (s *Sequencer) configureStandaloneFeeds(ctx context.Context) error {
	s.log.Section("CONFIGURE STANDALONE FEEDS")
	for _, feed := range s.sources.StandaloneFeeds() {
		if s.p.exchangeRates == nil || !common.IsHexAddress(feed.Feed) {
			continue
		}
		switch feed.Kind() {
		case config.FeedChainlink:
			if err := s.addAggregator(ctx, feed.Asset, feed.Feed); err != nil {
				return err
			}
		case config.FeedSwap:
			if feed.Asset != s.opts.ProtocolTokenKey {
				continue
			}
			swapOracle, err := s.deploy(ctx, deployer.Request{
				Name: "SwapOracle",
				Args: []interface{}{
					s.account,
					common.HexToAddress(feed.Feed),
					client.AddressOf(s.p.proxyERC20),
					big.NewInt(swapOracleWindow),
					s.p.exchangeRates.Address,
				},
			})
			if err != nil {
				return err
			}
			if err := s.point(ctx, s.p.exchangeRates, "oracle", "setOracle", swapOracle); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Sequencer) syncResolver(ctx context.Context) error {
	s.log.Section("CONFIGURE ADDRESS RESOLVER")
	report, err := s.registry.Sync(ctx, s.p.addressResolver, s.deployer.Contracts())
	s.report.Registry = report
	return err
}

func (s *Sequencer) migrateInversePricing(ctx context.Context) error {
	s.log.Section("CONFIGURE INVERSE SYNTHS")
	var synths []inverse.Synth
	for _, synth := range s.sources.Synths {
		if synth.Inverted == nil {
			continue
		}
		in := inverse.Synth{Currency: synth.Name, Pricing: *synth.Inverted}
		if handles, ok := s.p.synths[synth.Name]; ok {
			in.Contract = handles.synth
		}
		// A synth left out of this run still has holders on the recorded contract.
		if in.Contract == nil {
			in.Contract, _ = s.deployer.Existing("Synth" + synth.Name)
		}
		synths = append(synths, in)
	}
	if len(synths) == 0 {
		return nil
	}

	decisions, err := s.inverse.Migrate(ctx, s.prior.OldRates, s.p.exchangeRates, synths,
		s.opts.Network.Production, s.opts.ForceUpdateInverseOnTestnet)
	s.report.Inverse = decisions
	return err
}
