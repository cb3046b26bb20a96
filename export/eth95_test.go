package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parthshah1/synth-publish/deployment"
)

const ownerABI = `[{"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}]`

func testRecord(t *testing.T, targets map[string]string) *deployment.Record {
	t.Helper()
	r := deployment.New(filepath.Join(t.TempDir(), "deployment.json"))
	for name, address := range targets {
		r.Put(deployment.Target{Name: name, Address: address, Source: name, Network: "hecot"},
			deployment.Source{Bytecode: "6000", ABI: json.RawMessage(ownerABI)})
	}
	return r
}

func readArtifact(t *testing.T, path string) Eth95Artifact {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var a Eth95Artifact
	require.NoError(t, json.Unmarshal(data, &a))
	return a
}

func TestWriteEth95(t *testing.T) {
	require := require.New(t)
	dir := filepath.Join(t.TempDir(), "eth95")
	record := testRecord(t, map[string]string{
		"FeePool":    "0x00000000000000000000000000000000000000F1",
		"ProxyERC20": "0x00000000000000000000000000000000000000E2",
	})

	written, err := WriteEth95(dir, record, 256)
	require.NoError(err)
	require.Equal([]string{"FeePool", "ProxyERC20"}, written)

	a := readArtifact(t, filepath.Join(dir, "FeePool.json"))
	require.Equal("FeePool", a.ContractName)
	require.JSONEq(ownerABI, string(a.ABI))
	require.Equal(map[string]Eth95NetworkInfo{
		"256": {Address: "0x00000000000000000000000000000000000000F1"},
	}, a.Networks)
}

func TestWriteEth95KeepsOtherChains(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	existing := `{"contractName":"FeePool","abi":[],"networks":{"128":{"address":"0x00000000000000000000000000000000000000AA"},"256":{"address":"0x00000000000000000000000000000000000000BB"}}}`
	require.NoError(os.WriteFile(filepath.Join(dir, "FeePool.json"), []byte(existing), 0o644))

	record := testRecord(t, map[string]string{"FeePool": "0x00000000000000000000000000000000000000F1"})
	_, err := WriteEth95(dir, record, 256)
	require.NoError(err)

	a := readArtifact(t, filepath.Join(dir, "FeePool.json"))
	require.Equal("0x00000000000000000000000000000000000000AA", a.Networks["128"].Address)
	require.Equal("0x00000000000000000000000000000000000000F1", a.Networks["256"].Address)
	require.JSONEq(ownerABI, string(a.ABI))
}

func TestWriteEth95Errors(t *testing.T) {
	tests := []struct {
		desc   string
		setup  func(t *testing.T, dir string) *deployment.Record
		errMsg string
	}{
		{
			desc: "target without a source",
			setup: func(t *testing.T, _ string) *deployment.Record {
				r := testRecord(t, nil)
				r.Targets["Orphan"] = &deployment.Target{Name: "Orphan", Address: "0x01", Source: "Missing"}
				return r
			},
			errMsg: "no source Missing recorded for Orphan",
		},
		{
			desc: "corrupt existing artifact",
			setup: func(t *testing.T, dir string) *deployment.Record {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "FeePool.json"), []byte("{"), 0o644))
				return testRecord(t, map[string]string{"FeePool": "0x01"})
			},
			errMsg: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			require := require.New(t)
			dir := t.TempDir()
			_, err := WriteEth95(dir, tt.setup(t, dir), 256)
			require.ErrorContains(err, tt.errMsg)
		})
	}
}
