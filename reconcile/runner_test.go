package reconcile

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/parthshah1/synth-publish/client"
	"github.com/parthshah1/synth-publish/client/clienttest"
	"github.com/parthshah1/synth-publish/deployment"
	"github.com/parthshah1/synth-publish/ux"
)

var (
	deployerAddr = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	proxyAddr    = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	synthAddr    = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	strangerAddr = common.HexToAddress("0x0000000000000000000000000000000000000bad")
)

var proxySpecs = []string{
	"target()->(address)",
	"setTarget(address)",
	"owner()->(address)",
}

func newProxy(f *clienttest.Fake) *client.Contract {
	f.Store(proxyAddr, "target", "setTarget", common.Address{})
	f.Returns(proxyAddr, "owner", deployerAddr)
	return f.Bind("ProxyERC20", proxyAddr, proxySpecs...)
}

func setTargetStep(proxy *client.Contract) Step {
	return Step{
		Target:    proxy,
		Read:      "target",
		Expected:  Equals(synthAddr),
		Write:     "setTarget",
		WriteArgs: []interface{}{synthAddr},
	}
}

func TestRunWritesOnceThenSkips(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	f := clienttest.New(deployerAddr)
	proxy := newProxy(f)
	r := NewRunner(deployerAddr, Options{GasLimit: 250_000, GasPrice: big.NewInt(1)}, nil, ux.Discard())

	res, err := r.Run(ctx, setTargetStep(proxy))
	require.NoError(err)
	require.False(res.Skipped)
	require.NotEqual(common.Hash{}, res.TxHash)
	require.Equal(1, r.Sent())

	txs := f.Sent("setTarget")
	require.Len(txs, 1)
	require.Equal(uint64(250_000), txs[0].Opts.GasLimit)
	require.Equal([]interface{}{synthAddr}, txs[0].Args)

	res, err = r.Run(ctx, setTargetStep(proxy))
	require.NoError(err)
	require.True(res.Skipped)
	require.Equal(1, r.Sent())
	require.Equal(1, f.TxCount())
}

func TestRunDryRun(t *testing.T) {
	require := require.New(t)

	f := clienttest.New(deployerAddr)
	proxy := newProxy(f)
	r := NewRunner(deployerAddr, Options{DryRun: true}, nil, ux.Discard())
	require.True(r.DryRun())

	res, err := r.Run(context.Background(), setTargetStep(proxy))
	require.NoError(err)
	require.True(res.DryRun)
	require.Zero(r.Sent())
	require.Zero(f.TxCount())
}

func TestRunRecordsOwnerAction(t *testing.T) {
	require := require.New(t)

	f := clienttest.New(deployerAddr)
	proxy := newProxy(f)
	f.Returns(proxyAddr, "owner", strangerAddr)

	path := filepath.Join(t.TempDir(), "owner-actions.json")
	actions, err := deployment.LoadOwnerActions(path)
	require.NoError(err)

	r := NewRunner(deployerAddr, Options{}, actions, ux.Discard())
	res, err := r.Run(context.Background(), setTargetStep(proxy))
	require.NoError(err)
	require.True(res.OwnerAction)
	require.Zero(f.TxCount())

	reloaded, err := deployment.LoadOwnerActions(path)
	require.NoError(err)
	pending := reloaded.Pending()
	require.Len(pending, 1)
	require.Equal("ProxyERC20.setTarget("+synthAddr.Hex()+")", pending[0])

	action, _ := reloaded.Get(pending[0])
	require.Equal(proxyAddr.Hex(), action.Target)
	require.Contains(action.Data, "0x776d1a01")
}

func TestRunUnconditionalWrite(t *testing.T) {
	require := require.New(t)

	f := clienttest.New(deployerAddr)
	proxy := newProxy(f)
	r := NewRunner(deployerAddr, Options{}, nil, ux.Discard())

	for i := 0; i < 2; i++ {
		_, err := r.Run(context.Background(), Step{Target: proxy, Write: "setTarget", WriteArgs: []interface{}{synthAddr}, GasLimit: 40_000})
		require.NoError(err)
	}
	txs := f.Sent("setTarget")
	require.Len(txs, 2)
	require.Equal(uint64(40_000), txs[1].Opts.GasLimit)
}

func TestRunSimulatedTargetIsWritten(t *testing.T) {
	require := require.New(t)

	f := clienttest.New(deployerAddr)
	proxy := newProxy(f)
	proxy.Simulated = true
	r := NewRunner(deployerAddr, Options{DryRun: true}, nil, ux.Discard())

	res, err := r.Run(context.Background(), setTargetStep(proxy))
	require.NoError(err)
	require.True(res.DryRun)
}

func TestStepValidate(t *testing.T) {
	require := require.New(t)

	f := clienttest.New(deployerAddr)
	proxy := newProxy(f)

	tests := []struct {
		desc string
		step Step
	}{
		{desc: "no target", step: Step{Write: "setTarget"}},
		{desc: "no write", step: Step{Target: proxy}},
		{desc: "unknown write", step: Step{Target: proxy, Write: "setOwner"}},
		{desc: "unknown read", step: Step{Target: proxy, Read: "proxy", Expected: IsSet, Write: "setTarget"}},
		{desc: "read without expectation", step: Step{Target: proxy, Read: "target", Write: "setTarget"}},
	}

	r := NewRunner(deployerAddr, Options{}, nil, ux.Discard())
	for _, tt := range tests {
		require.Error(tt.step.Validate(), tt.desc)
		_, err := r.Run(context.Background(), tt.step)
		require.Error(err, tt.desc)
	}
	require.Zero(f.TxCount())
}

func TestRunReadFailure(t *testing.T) {
	require := require.New(t)

	f := clienttest.New(deployerAddr)
	proxy := newProxy(f)
	f.Fail(proxyAddr, &client.NodeCommunicationError{Op: "call"})

	r := NewRunner(deployerAddr, Options{}, nil, ux.Discard())
	_, err := r.Run(context.Background(), setTargetStep(proxy))
	require.Error(err)
	require.Zero(r.Sent())
}
