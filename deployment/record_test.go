package deployment

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/parthshah1/synth-publish/config"
)

const ownedABI = `[{"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}]`

var (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
)

func sampleRecord(path string) *Record {
	r := New(path)
	r.Put(Target{
		Name:      "ProxyERC20",
		Address:   addrA,
		Source:    "ProxyERC20",
		Timestamp: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Network:   "kovan",
	}, Source{Bytecode: "6080", ABI: json.RawMessage(ownedABI)})
	r.Put(Target{
		Name:    "Synthetix",
		Address: addrB,
		Source:  "Synthetix",
		Network: "kovan",
	}, Source{Bytecode: "6081", ABI: json.RawMessage(ownedABI)})
	return r
}

func TestRecordSaveLoad(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "nested", config.DeploymentFilename)

	r := sampleRecord(path)
	require.NoError(r.Save())

	data, err := os.ReadFile(path)
	require.NoError(err)
	require.True(strings.HasSuffix(string(data), "}\n"))
	require.Contains(string(data), "\n\t\"targets\"")

	loaded, err := Load(path)
	require.NoError(err)
	require.Equal([]string{"ProxyERC20", "Synthetix"}, loaded.Names())
	require.Equal(path, loaded.Path())

	addr, ok := loaded.AddressOf("Synthetix")
	require.True(ok)
	require.Equal(common.HexToAddress(addrB), addr)

	parsed, err := loaded.ABIOf("ProxyERC20")
	require.NoError(err)
	require.Contains(parsed.Methods, "owner")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(err)
	require.Len(entries, 1)
}

func TestLoadMissingRecord(t *testing.T) {
	require := require.New(t)

	r, err := Load(filepath.Join(t.TempDir(), config.DeploymentFilename))
	require.NoError(err)
	require.Empty(r.Names())

	_, ok := r.AddressOf("Synthetix")
	require.False(ok)
	_, err = r.ABIOf("Synthetix")
	require.Error(err)
}

func TestValidate(t *testing.T) {
	require := require.New(t)

	r := sampleRecord("")
	warnings, err := r.Validate()
	require.NoError(err)
	require.Empty(warnings)

	r.Targets["SynthetixAlias"] = &Target{Name: "SynthetixAlias", Address: strings.ToLower(addrB), Source: "Synthetix"}
	warnings, err = r.Validate()
	require.NoError(err)
	require.Len(warnings, 1)

	r.Targets["Orphan"] = &Target{Name: "Orphan", Address: addrA, Source: "Missing"}
	_, err = r.Validate()
	require.Error(err)
	require.Error(r.Save())
}

func TestCheckReusable(t *testing.T) {
	require := require.New(t)
	r := sampleRecord("deployment.json")

	tests := []struct {
		desc      string
		flags     config.ContractFlags
		expectErr bool
	}{
		{
			desc:  "reused contracts all recorded",
			flags: config.ContractFlags{"Synthetix": {Deploy: false}, "ProxyERC20": {Deploy: false}},
		},
		{
			desc:  "new contracts need no address",
			flags: config.ContractFlags{"FeePool": {Deploy: true}},
		},
		{
			desc:      "reused contract without address",
			flags:     config.ContractFlags{"FeePool": {Deploy: false}, "Synthetix": {Deploy: false}},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		err := r.CheckReusable(tt.flags, "kovan")
		if !tt.expectErr {
			require.NoError(err, tt.desc)
			continue
		}
		var cfgErr *config.ConfigurationError
		require.True(errors.As(err, &cfgErr), tt.desc)
		require.Contains(cfgErr.Msg, "FeePool", tt.desc)
		require.NotContains(cfgErr.Msg, "Synthetix\n", tt.desc)
	}
}
