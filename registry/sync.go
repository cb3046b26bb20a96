// Package registry keeps the on-chain AddressResolver in step with the
// contracts of a deployment.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/reconcile"
	"github.com/parthshah1/synth-publish/ux"
)

const (
	requiredAddressesMethod = "getResolverAddressesRequired"
	importGasLimit          = 750_000
	defaultConcurrency      = 8
)

// AlwaysRequired are registered even though no contract can declare them:
// their consumers predate on-chain dependency declarations.
var AlwaysRequired = []string{"SynthsUSD", "SynthsETH", "SystemSettings"}

// Entry is one name the registry should resolve.
type Entry struct {
	Name    string
	Address common.Address
}

// Report summarizes a sync.
type Report struct {
	Required []Entry
	Imported []Entry
	Resynced []string
}

type Synchronizer struct {
	runner      *reconcile.Runner
	log         *ux.UserLog
	concurrency int
}

func NewSynchronizer(runner *reconcile.Runner, log *ux.UserLog) *Synchronizer {
	return &Synchronizer{runner: runner, log: log, concurrency: defaultConcurrency}
}

// Sync registers every required name in resolver with a single import
// transaction, then makes each contract refresh its resolver cache.
func (s *Synchronizer) Sync(ctx context.Context, resolver *client.Contract, contracts map[string]*client.Contract) (Report, error) {
	var report Report
	if resolver == nil {
		return report, nil
	}
	names := sortedNames(contracts)

	required, err := s.requiredNames(ctx, names, contracts)
	if err != nil {
		return report, err
	}

	for _, name := range required {
		c, ok := contracts[name]
		if !ok || c == nil {
			return report, &config.ConfigurationError{
				Msg: fmt.Sprintf("error setting up AddressResolver: cannot find one of the contracts listed as required in a contract: %s in the list of deployment targets", name),
			}
		}
		report.Required = append(report.Required, Entry{Name: name, Address: c.Address})
	}

	var resyncs []reconcile.Step
	for _, name := range names {
		step, ok, err := resyncStep(name, contracts[name], resolver.Address)
		if err != nil {
			return report, err
		}
		if ok {
			resyncs = append(resyncs, step)
		}
	}

	missing, err := s.missingEntries(ctx, resolver, report.Required)
	if err != nil {
		return report, err
	}

	if len(missing) > 0 {
		lines := make([]string, len(missing))
		keys := make([][32]byte, len(missing))
		addrs := make([]common.Address, len(missing))
		for i, e := range missing {
			lines[i] = e.Name + " " + e.Address.Hex()
			keys[i] = client.ToBytes32(e.Name)
			addrs[i] = e.Address
		}
		s.log.Gray("Detected %d / %d missing or incorrect in the AddressResolver.\n\t%s\nAdding all addresses in one transaction.",
			len(missing), len(report.Required), strings.Join(lines, "\n\t"))

		sentBefore := s.runner.Sent()
		if _, err := s.runner.Run(ctx, reconcile.Step{
			Contract:  "AddressResolver",
			Target:    resolver,
			Write:     "importAddresses",
			WriteArgs: []interface{}{keys, addrs},
			GasLimit:  importGasLimit,
		}); err != nil {
			return report, err
		}
		config.AssertAlways(s.runner.Sent()-sentBefore <= 1, "Registry import is a single batched transaction", map[string]interface{}{
			"entries": len(missing),
		})
		report.Imported = missing
	}

	for _, step := range resyncs {
		result, err := s.runner.Run(ctx, step)
		if err != nil {
			return report, err
		}
		if !result.Skipped {
			report.Resynced = append(report.Resynced, step.Contract)
		}
	}

	s.log.Info("address resolver synced",
		zap.Int("required", len(report.Required)),
		zap.Int("imported", len(report.Imported)),
		zap.Int("resynced", len(report.Resynced)),
	)
	return report, nil
}

// requiredNames collects the union of every contract's declared
// dependencies plus AlwaysRequired, deduplicated and sorted.
func (s *Synchronizer) requiredNames(ctx context.Context, names []string, contracts map[string]*client.Contract) ([]string, error) {
	var (
		mu  sync.Mutex
		set = make(map[string]struct{})
	)
	for _, name := range AlwaysRequired {
		set[name] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, name := range names {
		c := contracts[name]
		if c == nil || c.Simulated || !c.HasMethod(requiredAddressesMethod) {
			continue
		}
		g.Go(func() error {
			out, err := c.CallOne(gctx, requiredAddressesMethod)
			if err != nil {
				return fmt.Errorf("failed to read required addresses of %s: %w", c.Name, err)
			}
			keys, ok := out.([][32]byte)
			if !ok {
				return fmt.Errorf("unexpected %s result from %s: %T", requiredAddressesMethod, c.Name, out)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, key := range keys {
				if dep := client.FromBytes32(key); dep != "" {
					set[dep] = struct{}{}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	required := make([]string, 0, len(set))
	for name := range set {
		required = append(required, name)
	}
	sort.Strings(required)
	return required, nil
}

// missingEntries queries the resolver for every entry and returns those
// absent or pointing elsewhere, in the order given.
func (s *Synchronizer) missingEntries(ctx context.Context, resolver *client.Contract, entries []Entry) ([]Entry, error) {
	found := make([]bool, len(entries))
	if !resolver.Simulated {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for i, e := range entries {
			i, e := i, e
			g.Go(func() error {
				out, err := resolver.CallOne(gctx, "getAddress", client.ToBytes32(e.Name))
				if errors.Is(err, client.ErrSimulated) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("failed to look up %s in the AddressResolver: %w", e.Name, err)
				}
				addr, _ := out.(common.Address)
				found[i] = addr == e.Address
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var missing []Entry
	for i, e := range entries {
		if !found[i] {
			missing = append(missing, e)
		}
	}
	return missing, nil
}

// resyncStep builds the cache refresh for target. Contracts predating
// setResolverAndSyncCache only expose setResolver and are checked by
// reading their stored resolver back. A contract that can sync its cache
// but not report it is a configuration error.
func resyncStep(name string, target *client.Contract, resolver common.Address) (reconcile.Step, bool, error) {
	switch {
	case target == nil:
		return reconcile.Step{}, false, nil
	case target.HasMethod("setResolverAndSyncCache") && !target.HasMethod("isResolverCached"):
		return reconcile.Step{}, false, &config.ConfigurationError{
			Msg: fmt.Sprintf("%s exposes setResolverAndSyncCache without isResolverCached, its resolver cache cannot be checked", name),
		}
	case target.HasMethod("setResolverAndSyncCache"):
		return reconcile.Step{
			Contract:  name,
			Target:    target,
			Read:      "isResolverCached",
			ReadArgs:  []interface{}{resolver},
			Expected:  reconcile.IsTrue,
			Write:     "setResolverAndSyncCache",
			WriteArgs: []interface{}{resolver},
			GasLimit:  importGasLimit,
		}, true, nil
	case target.HasMethod("setResolver") && target.HasMethod("resolver"):
		return reconcile.Step{
			Contract:  name,
			Target:    target,
			Read:      "resolver",
			Expected:  reconcile.Equals(resolver),
			Write:     "setResolver",
			WriteArgs: []interface{}{resolver},
			GasLimit:  importGasLimit,
		}, true, nil
	default:
		return reconcile.Step{}, false, nil
	}
}

func sortedNames(contracts map[string]*client.Contract) []string {
	names := make([]string, 0, len(contracts))
	for name := range contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
