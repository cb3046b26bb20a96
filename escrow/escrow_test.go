package escrow

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/client/clienttest"
	"github.com/parthshah1/synth-publish/config"
	"github.com/parthshah1/synth-publish/ux"
)

var (
	account      = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	escrowAddr   = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	tokenAddr    = common.HexToAddress("0x00000000000000000000000000000000000000e2")
	beneficiary1 = "0x0000000000000000000000000000000000000001"
	beneficiary2 = "0x0000000000000000000000000000000000000002"
)

type fixedClock uint64

func (c fixedClock) LatestBlockTime(context.Context) (uint64, error) { return uint64(c), nil }

func TestLoadSchedule(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "schedule.json")
	require.NoError(os.WriteFile(path, []byte(`{"`+beneficiary1+`": ["1", "2.5"]}`), 0o644))
	s, err := LoadSchedule(path)
	require.NoError(err)
	require.Equal(Schedule{beneficiary1: {"1", "2.5"}}, s)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(os.WriteFile(bad, []byte(`["1"]`), 0o644))
	_, err = LoadSchedule(bad)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(err, &cfgErr)

	_, err = LoadSchedule(filepath.Join(dir, "missing.json"))
	require.ErrorAs(err, &cfgErr)
}

func TestScheduleEntries(t *testing.T) {
	require := require.New(t)
	s := Schedule{
		beneficiary2: {"1", "2.5"},
		beneficiary1: {"3"},
	}

	entries, err := s.Entries(1000, 10)
	require.NoError(err)
	require.Len(entries, 3)

	require.Equal(common.HexToAddress(beneficiary1), entries[0].Beneficiary)
	require.Zero(client.Ether(3).Cmp(entries[0].Amount))
	require.Equal(uint64(1010), entries[0].Time)

	require.Equal(common.HexToAddress(beneficiary2), entries[1].Beneficiary)
	require.Equal(uint64(1010), entries[1].Time)
	require.Equal(common.HexToAddress(beneficiary2), entries[2].Beneficiary)
	require.Equal("2500000000000000000", entries[2].Amount.String())
	require.Equal(uint64(1020), entries[2].Time)
}

func TestScheduleEntriesInvalid(t *testing.T) {
	tests := []struct {
		desc     string
		schedule Schedule
	}{
		{desc: "zero amount", schedule: Schedule{beneficiary1: {"0"}}},
		{desc: "negative amount", schedule: Schedule{beneficiary1: {"-1"}}},
		{desc: "not a number", schedule: Schedule{beneficiary1: {"lots"}}},
		{desc: "bad beneficiary", schedule: Schedule{"nobody": {"1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			require := require.New(t)
			_, err := tt.schedule.Entries(1000, DefaultInterval)
			var inputErr *config.InvalidInputError
			require.ErrorAs(err, &inputErr)
		})
	}
}

func newAppender(fake *clienttest.Fake, now uint64) *Appender {
	escrow := fake.Bind("SynthetixEscrow", escrowAddr,
		"owner()->(address)",
		"setupExpiryTime()->(uint256)",
		"appendVestingEntry(address,uint256,uint256)",
	)
	token := fake.Bind("Synthetix", tokenAddr, "transfer(address,uint256)->(bool)")
	return NewAppender(escrow, token, fixedClock(now), account, client.TxOpts{GasLimit: 1_500_000}, ux.Discard())
}

func TestAppend(t *testing.T) {
	require := require.New(t)
	fake := clienttest.New(account)
	fake.Returns(escrowAddr, "owner", account)
	fake.Returns(escrowAddr, "setupExpiryTime", big.NewInt(2000))

	schedule := Schedule{beneficiary1: {"1", "2"}}
	entries, err := newAppender(fake, 1000).Append(context.Background(), schedule)
	require.NoError(err)
	require.Len(entries, 2)

	var methods []string
	for _, tx := range fake.Txs {
		methods = append(methods, tx.Method)
	}
	require.Equal([]string{"transfer", "appendVestingEntry", "transfer", "appendVestingEntry"}, methods)

	transfer := fake.Txs[0]
	require.Equal(tokenAddr, transfer.To)
	require.Equal(escrowAddr, transfer.Args[0])
	require.Zero(client.Ether(1).Cmp(transfer.Args[1].(*big.Int)))

	second := fake.Txs[3]
	require.Equal(escrowAddr, second.To)
	require.Equal(common.HexToAddress(beneficiary1), second.Args[0])
	require.Equal(uint64(1000+2*DefaultInterval), second.Args[1].(*big.Int).Uint64())
	require.Zero(client.Ether(2).Cmp(second.Args[2].(*big.Int)))
	require.Equal(uint64(1_500_000), second.Opts.GasLimit)
}

func TestAppendRefuses(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000000ff")

	tests := []struct {
		desc   string
		owner  common.Address
		now    uint64
		expiry *big.Int
		errMsg string
	}{
		{desc: "not the owner", owner: other, now: 1000, expiry: big.NewInt(2000), errMsg: "is not owner of SynthetixEscrow"},
		{desc: "setup expired", owner: account, now: 3000, expiry: big.NewInt(2000), errMsg: "escrow setup expired"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			require := require.New(t)
			fake := clienttest.New(account)
			fake.Returns(escrowAddr, "owner", tt.owner)
			fake.Returns(escrowAddr, "setupExpiryTime", tt.expiry)

			_, err := newAppender(fake, tt.now).Append(context.Background(), Schedule{beneficiary1: {"1"}})
			require.ErrorContains(err, tt.errMsg)
			require.Zero(fake.TxCount())
		})
	}
}
