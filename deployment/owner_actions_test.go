package deployment

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwnerActions(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "owner-actions.json")

	actions, err := LoadOwnerActions(path)
	require.NoError(err)
	require.Zero(actions.Len())

	require.NoError(actions.Append("ProxyERC20.setTarget(Synthetix)", OwnerAction{
		Target: "0x1111111111111111111111111111111111111111",
		Action: "setTarget(0x2222222222222222222222222222222222222222)",
		Data:   "0x776d1a01",
	}))
	require.NoError(actions.Append("Issuer.addSynth(sUSD)", OwnerAction{
		Target:   "0x3333333333333333333333333333333333333333",
		Action:   "addSynth(0x4444444444444444444444444444444444444444)",
		Complete: true,
	}))

	reloaded, err := LoadOwnerActions(path)
	require.NoError(err)
	require.Equal(2, reloaded.Len())
	require.Equal([]string{"ProxyERC20.setTarget(Synthetix)"}, reloaded.Pending())

	a, ok := reloaded.Get("ProxyERC20.setTarget(Synthetix)")
	require.True(ok)
	require.Equal("0x776d1a01", a.Data)

	_, ok = reloaded.Get("missing")
	require.False(ok)
}
