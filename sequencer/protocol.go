package sequencer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/deployer"
	"github.com/parthshah1/synth-publish/reconcile"
)

// protocol holds the handles produced by this run. A nil handle means the
// contract is not part of this deployment.
type protocol struct {
	addressResolver   *client.Contract
	readProxyResolver *client.Contract
	systemSettings    *client.Contract
	systemStatus      *client.Contract
	exchangeRates     *client.Contract
	rewardEscrow      *client.Contract
	synthetixEscrow   *client.Contract
	synthetixState    *client.Contract

	proxyFeePool        *client.Contract
	delegateApprovals   *client.Contract
	liquidations        *client.Contract
	feePool             *client.Contract
	rewardsDistribution *client.Contract

	supplySchedule      *client.Contract
	proxyERC20          *client.Contract
	tokenStateSynthetix *client.Contract
	synthetix           *client.Contract

	exchanger *client.Contract
	issuer    *client.Contract

	synths map[string]*synthContracts
}

type synthContracts struct {
	tokenState *client.Contract
	proxy      *client.Contract
	synth      *client.Contract
}

var zeroAddress = common.Address{}

func (s *Sequencer) deploy(ctx context.Context, req deployer.Request) (*client.Contract, error) {
	return s.deployer.Deploy(ctx, req)
}

// point makes target.read return value, calling target.write(value) when
// it does not. Nothing happens unless both contracts exist.
func (s *Sequencer) point(ctx context.Context, target *client.Contract, read, write string, value *client.Contract) error {
	if target == nil || value == nil {
		return nil
	}
	_, err := s.runner.Run(ctx, reconcile.Step{
		Contract:  target.Name,
		Target:    target,
		Read:      read,
		Expected:  reconcile.Equals(value.Address),
		Write:     write,
		WriteArgs: []interface{}{value.Address},
	})
	return err
}

func (s *Sequencer) resolverAddress() common.Address {
	return client.AddressOf(s.p.addressResolver)
}

func (s *Sequencer) deployLibraries(ctx context.Context) error {
	s.log.Section("DEPLOY LIBRARIES")
	for _, name := range []string{"SafeDecimalMath", "Math"} {
		if _, err := s.deploy(ctx, deployer.Request{Name: name}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) deployCore(ctx context.Context) error {
	s.log.Section("DEPLOY CORE PROTOCOL")
	var err error
	account := s.account

	if s.p.addressResolver, err = s.deploy(ctx, deployer.Request{Name: "AddressResolver", Args: []interface{}{account}}); err != nil {
		return err
	}
	if s.p.readProxyResolver, err = s.deploy(ctx, deployer.Request{
		Name:   "ReadProxyAddressResolver",
		Source: "ReadProxy",
		Args:   []interface{}{account},
	}); err != nil {
		return err
	}
	if err := s.point(ctx, s.p.readProxyResolver, "target", "setTarget", s.p.addressResolver); err != nil {
		return err
	}

	if _, err := s.deploy(ctx, deployer.Request{
		Name:      "FlexibleStorage",
		DependsOn: []string{"ReadProxyAddressResolver"},
		Args:      []interface{}{client.AddressOf(s.p.readProxyResolver)},
	}); err != nil {
		return err
	}

	resolver := s.resolverAddress()
	if s.p.systemSettings, err = s.deploy(ctx, deployer.Request{Name: "SystemSettings", Args: []interface{}{account, resolver}}); err != nil {
		return err
	}
	if s.p.systemStatus, err = s.deploy(ctx, deployer.Request{Name: "SystemStatus", Args: []interface{}{account}}); err != nil {
		return err
	}
	if s.p.exchangeRates, err = s.deploy(ctx, deployer.Request{
		Name: "ExchangeRates",
		Args: []interface{}{
			account,
			s.prior.Oracle,
			resolver,
			[][32]byte{client.ToBytes32(s.opts.ProtocolTokenKey)},
			[]*big.Int{s.prior.ProtocolTokenRate},
		},
	}); err != nil {
		return err
	}
	if s.p.rewardEscrow, err = s.deploy(ctx, deployer.Request{Name: "RewardEscrow", Args: []interface{}{account, zeroAddress, zeroAddress}}); err != nil {
		return err
	}
	if s.p.synthetixEscrow, err = s.deploy(ctx, deployer.Request{Name: "SynthetixEscrow", Args: []interface{}{account, zeroAddress}}); err != nil {
		return err
	}
	s.p.synthetixState, err = s.deploy(ctx, deployer.Request{Name: "SynthetixState", Args: []interface{}{account, account}})
	return err
}

func (s *Sequencer) deployFeeSubsystem(ctx context.Context) error {
	s.log.Section("DEPLOY FEE SUBSYSTEM")
	var err error
	account := s.account
	resolver := s.resolverAddress()

	if s.p.proxyFeePool, err = s.deploy(ctx, deployer.Request{Name: "ProxyFeePool", Source: "Proxy", Args: []interface{}{account}}); err != nil {
		return err
	}

	delegateStorage, err := s.deploy(ctx, deployer.Request{
		Name:   "DelegateApprovalsEternalStorage",
		Source: "EternalStorage",
		Args:   []interface{}{account, zeroAddress},
	})
	if err != nil {
		return err
	}
	if s.p.delegateApprovals, err = s.deploy(ctx, deployer.Request{
		Name: "DelegateApprovals",
		Args: []interface{}{account, client.AddressOf(delegateStorage)},
	}); err != nil {
		return err
	}
	if err := s.point(ctx, delegateStorage, "associatedContract", "setAssociatedContract", s.p.delegateApprovals); err != nil {
		return err
	}

	if s.p.liquidations, err = s.deploy(ctx, deployer.Request{Name: "Liquidations", Args: []interface{}{account, resolver}}); err != nil {
		return err
	}
	liquidationsStorage, err := s.deploy(ctx, deployer.Request{
		Name:   "EternalStorageLiquidations",
		Source: "EternalStorage",
		Args:   []interface{}{account, client.AddressOf(s.p.liquidations)},
	})
	if err != nil {
		return err
	}
	if err := s.point(ctx, liquidationsStorage, "associatedContract", "setAssociatedContract", s.p.liquidations); err != nil {
		return err
	}

	feePoolStorage, err := s.deploy(ctx, deployer.Request{Name: "FeePoolEternalStorage", Args: []interface{}{account, zeroAddress}})
	if err != nil {
		return err
	}
	if s.p.feePool, err = s.deploy(ctx, deployer.Request{
		Name:      "FeePool",
		DependsOn: []string{"ProxyFeePool", "AddressResolver"},
		Args:      []interface{}{client.AddressOf(s.p.proxyFeePool), account, resolver},
	}); err != nil {
		return err
	}
	if err := s.point(ctx, s.p.proxyFeePool, "target", "setTarget", s.p.feePool); err != nil {
		return err
	}
	if err := s.point(ctx, feePoolStorage, "associatedContract", "setAssociatedContract", s.p.feePool); err != nil {
		return err
	}

	feePoolState, err := s.deploy(ctx, deployer.Request{
		Name:      "FeePoolState",
		DependsOn: []string{"FeePool"},
		Args:      []interface{}{account, client.AddressOf(s.p.feePool)},
	})
	if err != nil {
		return err
	}
	// Rewires the state after a FeePool upgrade.
	if err := s.point(ctx, feePoolState, "feePool", "setFeePool", s.p.feePool); err != nil {
		return err
	}

	s.p.rewardsDistribution, err = s.deploy(ctx, deployer.Request{
		Name:      "RewardsDistribution",
		DependsOn: []string{"RewardEscrow", "ProxyFeePool"},
		Args: []interface{}{
			account,
			zeroAddress, // authority, set to Synthetix once it exists
			zeroAddress, // Synthetix proxy
			client.AddressOf(s.p.rewardEscrow),
			client.AddressOf(s.p.proxyFeePool),
		},
	})
	return err
}

func (s *Sequencer) deployIssuanceSubsystem(ctx context.Context) error {
	s.log.Section("DEPLOY ISSUANCE SUBSYSTEM")
	var err error
	account := s.account

	if s.p.supplySchedule, err = s.deploy(ctx, deployer.Request{
		Name: "SupplySchedule",
		Args: []interface{}{
			account,
			new(big.Int).SetUint64(s.prior.LastMintEvent),
			new(big.Int).SetUint64(s.prior.CurrentWeek),
		},
	}); err != nil {
		return err
	}

	if s.p.proxyERC20, err = s.deploy(ctx, deployer.Request{Name: "ProxyERC20", Args: []interface{}{account}}); err != nil {
		return err
	}
	if s.p.tokenStateSynthetix, err = s.deploy(ctx, deployer.Request{
		Name:   "TokenStateSynthetix",
		Source: "TokenState",
		Args:   []interface{}{account, account},
	}); err != nil {
		return err
	}
	if s.p.synthetix, err = s.deploy(ctx, deployer.Request{
		Name:      "Synthetix",
		DependsOn: []string{"ProxyERC20", "TokenStateSynthetix", "AddressResolver"},
		Args: []interface{}{
			client.AddressOf(s.p.proxyERC20),
			client.AddressOf(s.p.tokenStateSynthetix),
			account,
			s.prior.SynthetixSupply,
			s.resolverAddress(),
		},
	}); err != nil {
		return err
	}

	if s.p.synthetix != nil && s.p.proxyERC20 != nil {
		if err := s.point(ctx, s.p.proxyERC20, "target", "setTarget", s.p.synthetix); err != nil {
			return err
		}
		if err := s.point(ctx, s.p.synthetix, "proxy", "setProxy", s.p.proxyERC20); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) deployExchangeSubsystem(ctx context.Context) error {
	s.log.Section("DEPLOY EXCHANGE SUBSYSTEM")
	var err error
	account := s.account

	if s.p.exchanger, err = s.deploy(ctx, deployer.Request{
		Name:      "Exchanger",
		DependsOn: []string{"AddressResolver"},
		Args:      []interface{}{account, s.resolverAddress()},
	}); err != nil {
		return err
	}
	exchangeState, err := s.deploy(ctx, deployer.Request{
		Name:      "ExchangeState",
		DependsOn: []string{"Exchanger"},
		Args:      []interface{}{account, client.AddressOf(s.p.exchanger)},
	})
	if err != nil {
		return err
	}
	if err := s.point(ctx, exchangeState, "associatedContract", "setAssociatedContract", s.p.exchanger); err != nil {
		return err
	}

	// The exchanger must be able to suspend synths on price spikes.
	if s.p.exchanger != nil && s.p.systemStatus != nil {
		section := client.ToBytes32("Synth")
		if _, err := s.runner.Run(ctx, reconcile.Step{
			Contract:  "SystemStatus",
			Target:    s.p.systemStatus,
			Read:      "accessControl",
			ReadArgs:  []interface{}{section, s.p.exchanger.Address},
			Expected:  reconcile.IsTrue,
			Write:     "updateAccessControl",
			WriteArgs: []interface{}{section, s.p.exchanger.Address, true, false},
		}); err != nil {
			return err
		}
	}
	return nil
}

// wireIssuer deploys the Issuer and connects the issuance contracts to each
// other and to the token.
func (s *Sequencer) wireIssuer(ctx context.Context) error {
	var err error
	account := s.account

	// Only a freshly deployed token state is seeded with the initial issuance.
	if s.p.tokenStateSynthetix != nil && s.sources.Flags["TokenStateSynthetix"].Deploy {
		if _, err := s.runner.Run(ctx, reconcile.Step{
			Contract:  "TokenStateSynthetix",
			Target:    s.p.tokenStateSynthetix,
			Read:      "balanceOf",
			ReadArgs:  []interface{}{account},
			Expected:  reconcile.EqualsBig(InitialSupply),
			Write:     "setBalanceOf",
			WriteArgs: []interface{}{account, new(big.Int).Set(InitialSupply)},
		}); err != nil {
			return err
		}
	}
	if err := s.point(ctx, s.p.tokenStateSynthetix, "associatedContract", "setAssociatedContract", s.p.synthetix); err != nil {
		return err
	}
	if err := s.point(ctx, s.p.synthetix, "tokenState", "setTokenState", s.p.tokenStateSynthetix); err != nil {
		return err
	}

	if s.p.issuer, err = s.deploy(ctx, deployer.Request{
		Name:      "Issuer",
		DependsOn: []string{"AddressResolver"},
		Args:      []interface{}{account, s.resolverAddress()},
	}); err != nil {
		return err
	}
	if _, err := s.deploy(ctx, deployer.Request{
		Name:      "TradingRewards",
		DependsOn: []string{"AddressResolver", "Exchanger"},
		Args:      []interface{}{account, account, s.resolverAddress()},
	}); err != nil {
		return err
	}
	if err := s.point(ctx, s.p.synthetixState, "associatedContract", "setAssociatedContract", s.p.issuer); err != nil {
		return err
	}

	if s.p.synthetixEscrow != nil {
		if _, err := s.deploy(ctx, deployer.Request{
			Name:      "EscrowChecker",
			DependsOn: []string{"SynthetixEscrow"},
			Args:      []interface{}{s.p.synthetixEscrow.Address},
		}); err != nil {
			return err
		}
	}

	if err := s.point(ctx, s.p.rewardEscrow, "synthetix", "setSynthetix", s.p.synthetix); err != nil {
		return err
	}
	if err := s.point(ctx, s.p.rewardEscrow, "feePool", "setFeePool", s.p.feePool); err != nil {
		return err
	}
	if err := s.point(ctx, s.p.supplySchedule, "synthetixProxy", "setSynthetixProxy", s.p.proxyERC20); err != nil {
		return err
	}
	if err := s.point(ctx, s.p.rewardsDistribution, "authority", "setAuthority", s.p.synthetix); err != nil {
		return err
	}
	if err := s.point(ctx, s.p.rewardsDistribution, "synthetixProxy", "setSynthetixProxy", s.p.proxyERC20); err != nil {
		return err
	}
	// The escrow talks to the token through its proxy.
	return s.point(ctx, s.p.synthetixEscrow, "synthetix", "setSynthetix", s.p.proxyERC20)
}
