// Package escrow funds SynthetixEscrow vesting entries during its setup
// window.
package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/ux"
)

// DefaultInterval separates consecutive vesting entries of one beneficiary.
const DefaultInterval = 12 * 60 * 60

// Schedule maps a beneficiary address to decimal token amounts, one
// vesting entry each.
type Schedule map[string][]string

// Entry is one vesting entry to append.
type Entry struct {
	Beneficiary common.Address
	Amount      *big.Int
	Time        uint64
}

func LoadSchedule(path string) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &config.ConfigurationError{Msg: "failed to read escrow schedule " + path, Err: err}
	}
	var s Schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &config.ConfigurationError{Msg: "failed to parse escrow schedule " + path, Err: err}
	}
	return s, nil
}

// Entries lays the schedule out in time: the n-th amount of a beneficiary
// vests n intervals after now. Beneficiaries are ordered by address.
func (s Schedule) Entries(now, interval uint64) ([]Entry, error) {
	beneficiaries := make([]string, 0, len(s))
	for addr := range s {
		beneficiaries = append(beneficiaries, addr)
	}
	sort.Strings(beneficiaries)

	var entries []Entry
	for _, raw := range beneficiaries {
		addr, err := config.ParseAddress("beneficiary", raw)
		if err != nil {
			return nil, err
		}
		for i, amount := range s[raw] {
			wei, err := client.ToWei(amount)
			if err != nil || wei.Sign() <= 0 {
				return nil, &config.InvalidInputError{Field: "vesting amount for " + raw, Value: amount}
			}
			entries = append(entries, Entry{
				Beneficiary: addr,
				Amount:      wei,
				Time:        now + interval*uint64(i+1),
			})
		}
	}
	return entries, nil
}

// Clock reports the chain's notion of now.
type Clock interface {
	LatestBlockTime(ctx context.Context) (uint64, error)
}

type Appender struct {
	escrow   *client.Contract
	token    *client.Contract
	clock    Clock
	account  common.Address
	opts     client.TxOpts
	interval uint64
	log      *ux.UserLog
}

func NewAppender(escrow, token *client.Contract, clock Clock, account common.Address, opts client.TxOpts, log *ux.UserLog) *Appender {
	return &Appender{
		escrow:   escrow,
		token:    token,
		clock:    clock,
		account:  account,
		opts:     opts,
		interval: DefaultInterval,
		log:      log,
	}
}

// Append transfers each amount to the escrow and records it as a vesting
// entry. It refuses to run unless the account owns the escrow and the
// setup window is still open.
func (a *Appender) Append(ctx context.Context, schedule Schedule) ([]Entry, error) {
	out, err := a.escrow.CallOne(ctx, "owner")
	if err != nil {
		return nil, err
	}
	if owner, _ := out.(common.Address); owner != a.account {
		return nil, fmt.Errorf("account %s is not owner of %s", a.account.Hex(), a.escrow.Name)
	}

	now, err := a.clock.LatestBlockTime(ctx)
	if err != nil {
		return nil, err
	}
	out, err = a.escrow.CallOne(ctx, "setupExpiryTime")
	if err != nil {
		return nil, err
	}
	expiry, _ := out.(*big.Int)
	if expiry == nil || new(big.Int).SetUint64(now).Cmp(expiry) > 0 {
		return nil, fmt.Errorf("escrow setup expired at %s, latest block is at %d", expiry, now)
	}

	entries, err := schedule.Entries(now, a.interval)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if _, err := a.token.Transact(ctx, a.opts, "transfer", a.escrow.Address, e.Amount); err != nil {
			return nil, fmt.Errorf("failed to fund escrow for %s: %w", e.Beneficiary.Hex(), err)
		}
		hash, err := a.escrow.Transact(ctx, a.opts, "appendVestingEntry", e.Beneficiary, new(big.Int).SetUint64(e.Time), e.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to append vesting entry for %s: %w", e.Beneficiary.Hex(), err)
		}
		a.log.GreenCheckmarkToUser("Vesting %s for %s at %d in %s", client.FromWei(e.Amount), e.Beneficiary.Hex(), e.Time, hash.Hex())
		a.log.Info("vesting entry appended",
			zap.String("beneficiary", e.Beneficiary.Hex()),
			zap.String("amount", e.Amount.String()),
			zap.Uint64("time", e.Time),
		)
	}
	return entries, nil
}
