// Package sequencer publishes the whole protocol: it deploys every
// contract in dependency order, wires them together and initializes the
// protocol settings. Re-running it against a correct deployment sends no
// transactions.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/deployer"
	"github.com/parthshah1/synth-publish/inverse"
	"github.com/parthshah1/synth-publish/orchestrator"
	"github.com/parthshah1/synth-publish/reconcile"
	"github.com/parthshah1/synth-publish/registry"
	"github.com/parthshah1/synth-publish/ux"
)

// ErrCancelled is returned when the operator declines a confirmation.
var ErrCancelled = errors.New("operation cancelled")

// InsufficientFundsError aborts a run whose deployer cannot pay for it.
type InsufficientFundsError struct {
	Account common.Address
	Balance *big.Int
	Minimum *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("deployer account %s balance %s ETH is below the required %s ETH",
		e.Account.Hex(), client.FromWei(e.Balance), client.FromWei(e.Minimum))
}

// funder is implemented by nodes with unlocked accounts, such as forks.
type funder interface {
	FundFromNode(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
}

type Options struct {
	Network                     config.Network
	DryRun                      bool
	AddNewSynths                bool
	ForceUpdateInverseOnTestnet bool
	UseFork                     bool
	// OracleExrates overrides the ExchangeRates oracle; empty keeps the
	// existing one.
	OracleExrates      string
	ProtocolTokenKey   string
	GasPriceGwei       string
	MinDeployerBalance *big.Int
	ForkFunding        *big.Int
	Settings           Settings
	// Build metadata shown in the parameter notice.
	EarliestCompiled time.Time
	LatestSource     time.Time
	// Confirm asks the operator a yes/no question. Nil confirms everything.
	Confirm func(question string) (bool, error)
}

// Report summarizes a completed run.
type Report struct {
	NewContracts []deployer.NewContract
	Registry     registry.Report
	Inverse      []inverse.Decision
	Phases       []orchestrator.TaskResult
	Transactions int
}

type Sequencer struct {
	client   client.Client
	deployer *deployer.Deployer
	runner   *reconcile.Runner
	registry *registry.Synchronizer
	inverse  *inverse.Migrator
	sources  *config.Sources
	opts     Options
	log      *ux.UserLog

	account common.Address
	prior   PriorState
	p       protocol
	report  Report
}

func New(c client.Client, d *deployer.Deployer, r *reconcile.Runner, sources *config.Sources, opts Options, log *ux.UserLog) *Sequencer {
	if opts.ProtocolTokenKey == "" {
		opts.ProtocolTokenKey = "BADI"
	}
	if opts.Settings.ExchangeFeeRates == nil {
		opts.Settings = DefaultSettings()
	}
	return &Sequencer{
		client:   c,
		deployer: d,
		runner:   r,
		registry: registry.NewSynchronizer(r, log),
		inverse:  inverse.NewMigrator(r, log),
		sources:  sources,
		opts:     opts,
		log:      log,
		account:  c.Account(),
		p:        protocol{synths: make(map[string]*synthContracts)},
	}
}

// Run performs the pre-flight checks and then every phase in order.
func (s *Sequencer) Run(ctx context.Context) (*Report, error) {
	if err := s.preflight(ctx); err != nil {
		return nil, err
	}

	s.log.Gray("Starting deployment to %s", strings.ToUpper(s.opts.Network.Name))

	o := orchestrator.New()
	o.OnStart = func(task orchestrator.Task) {
		s.log.Debug("phase started", zap.String("phase", task.Name))
	}
	for _, ph := range s.phases() {
		if err := o.Register(ph.task, ph.run); err != nil {
			return nil, err
		}
	}

	results, err := o.Run(ctx)
	s.report.Phases = results
	s.report.NewContracts = s.deployer.NewContracts()
	s.report.Transactions = s.runner.Sent() + len(s.report.NewContracts)
	if err != nil {
		return &s.report, err
	}
	config.AssertSometimes(s.report.Transactions == 0, "A repeated deployment sends no transactions", map[string]interface{}{
		"network": s.opts.Network.Name,
		"dryRun":  s.opts.DryRun,
	})
	if s.opts.DryRun && s.report.Transactions > 0 {
		config.AssertUnreachable("Dry run sent transactions", map[string]interface{}{
			"transactions": s.report.Transactions,
		})
	}
	return &s.report, nil
}

type phase struct {
	task orchestrator.Task
	run  orchestrator.TaskFunc
}

func (s *Sequencer) phases() []phase {
	return []phase{
		{orchestrator.Task{Name: "libraries"}, s.deployLibraries},
		{orchestrator.Task{Name: "core", DependsOn: []string{"libraries"}}, s.deployCore},
		{orchestrator.Task{Name: "fees", DependsOn: []string{"core"}}, s.deployFeeSubsystem},
		{orchestrator.Task{Name: "issuance", DependsOn: []string{"fees"}}, s.deployIssuanceSubsystem},
		{orchestrator.Task{Name: "exchange", DependsOn: []string{"issuance"}}, s.deployExchangeSubsystem},
		{orchestrator.Task{Name: "issuer", DependsOn: []string{"exchange"}}, s.wireIssuer},
		{orchestrator.Task{Name: "synths", DependsOn: []string{"issuer"}}, s.deploySynths},
		{orchestrator.Task{Name: "utilities", DependsOn: []string{"synths"}}, s.deployUtilities},
		{orchestrator.Task{Name: "feeds", DependsOn: []string{"synths"}}, s.configureStandaloneFeeds},
		{orchestrator.Task{Name: "resolver", DependsOn: []string{"utilities", "feeds"}}, s.syncResolver},
		{orchestrator.Task{Name: "inverse", DependsOn: []string{"resolver"}}, s.migrateInversePricing},
		{orchestrator.Task{Name: "settings", DependsOn: []string{"inverse"}}, s.configureSettings},
	}
}

func (s *Sequencer) preflight(ctx context.Context) error {
	s.log.Gray("Checking all contracts not flagged for deployment have addresses in this network...")
	if err := s.deployer.Record().CheckReusable(s.sources.Flags, s.opts.Network.Name); err != nil {
		return err
	}

	s.prior = s.probe(ctx)

	if s.opts.OracleExrates != "" {
		oracle, err := config.ParseAddress("oracle address", s.opts.OracleExrates)
		if err != nil {
			return err
		}
		s.prior.Oracle = oracle
	}
	for field, addr := range map[string]common.Address{"deployer account": s.account, "oracle address": s.prior.Oracle} {
		if addr == (common.Address{}) {
			return &config.InvalidInputError{Field: field, Value: addr.Hex()}
		}
	}

	if err := s.checkFunds(ctx); err != nil {
		return err
	}

	s.printNotice()

	if deploying := s.sources.Flags.Deployed(); len(deploying) > 0 {
		ok, err := s.confirm(fmt.Sprintf(
			"WARNING: This action will deploy the following contracts to %s:\n%s\nIt will also set proxy targets and add synths to Synthetix.\nDo you want to continue",
			s.opts.Network.Name, strings.Join(deploying, ", "),
		))
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}
	return nil
}

func (s *Sequencer) checkFunds(ctx context.Context) error {
	if s.opts.UseFork {
		f, ok := s.client.(funder)
		if !ok || s.opts.ForkFunding == nil || s.opts.DryRun {
			return nil
		}
		hash, err := f.FundFromNode(ctx, s.account, s.opts.ForkFunding)
		if err != nil {
			return fmt.Errorf("failed to fund deployer on fork: %w", err)
		}
		s.log.Gray("Funded %s with %s ETH on the fork in %s", s.account.Hex(), client.FromWei(s.opts.ForkFunding), hash.Hex())
		return nil
	}

	balance, err := s.client.Balance(ctx, s.account)
	if err != nil {
		return err
	}
	if s.opts.MinDeployerBalance != nil && balance.Cmp(s.opts.MinDeployerBalance) < 0 {
		return &InsufficientFundsError{Account: s.account, Balance: balance, Minimum: s.opts.MinDeployerBalance}
	}
	return nil
}

func (s *Sequencer) confirm(question string) (bool, error) {
	if s.opts.Confirm == nil {
		return true, nil
	}
	return s.opts.Confirm(question)
}

func (s *Sequencer) printNotice() {
	yesNo := func(b bool) string {
		if b {
			return "true"
		}
		return "NO"
	}

	deploymentPath := s.sources.Path
	if !strings.Contains(strings.ToLower(deploymentPath), s.opts.Network.Name) {
		deploymentPath = "cant find network name in path. Please double check this! " + deploymentPath
	}

	lastSol := s.opts.LatestSource.Format(time.RFC1123)
	if s.opts.LatestSource.After(s.opts.EarliestCompiled) {
		lastSol += " (this is later than the last build! Is this intentional?)"
	}

	newSynths := "NO"
	if s.opts.AddNewSynths {
		newSynths = "YES " + strings.Join(s.sources.NewSynths(), ", ")
	}

	suspended := "NO"
	if s.prior.SystemSuspended {
		suspended = fmt.Sprintf("YES, reason: %s", s.prior.SuspensionReason)
	}

	params := []ux.Param{
		{Key: "Dry Run", Value: yesNo(s.opts.DryRun)},
		{Key: "Using a fork", Value: yesNo(s.opts.UseFork)},
		{Key: "Network", Value: s.opts.Network.Name},
		{Key: "Gas price to use", Value: s.opts.GasPriceGwei + " GWEI"},
		{Key: "Deployment Path", Value: deploymentPath},
		{Key: "Local build last modified", Value: fmt.Sprintf("%s (%.2f mins ago)",
			s.opts.EarliestCompiled.Format(time.RFC1123), time.Since(s.opts.EarliestCompiled).Minutes())},
		{Key: "Last Solidity update", Value: lastSol},
		{Key: "Add any new synths found?", Value: newSynths},
		{Key: "Deployer account", Value: s.account.Hex()},
		{Key: "Synthetix totalSupply", Value: fmt.Sprintf("%sm", millions(s.prior.SynthetixSupply))},
		{Key: "ExchangeRates Oracle", Value: s.prior.Oracle.Hex()},
		{Key: "Last Mint Event", Value: fmt.Sprintf("%d (%s)", s.prior.LastMintEvent,
			time.Unix(int64(s.prior.LastMintEvent), 0).UTC().Format(time.RFC1123))},
		{Key: "Current Weeks Of Inflation", Value: fmt.Sprintf("%d", s.prior.CurrentWeek)},
		{Key: "System Suspended", Value: suspended},
	}
	ux.PrintParameters(s.log.Writer, params)
}

func millions(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	m := new(big.Int).Div(wei, client.Ether(1_000_000))
	return m.String()
}
