package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupNetwork(t *testing.T) {
	require := require.New(t)

	n, err := LookupNetwork("MAINNET")
	require.NoError(err)
	require.True(n.Production)
	require.Equal(int64(1), n.ChainID)

	heco, err := LookupNetwork("heco")
	require.NoError(err)
	require.True(heco.Production)

	_, err = LookupNetwork("solana")
	var cfgErr *ConfigurationError
	require.True(errors.As(err, &cfgErr))

	require.Contains(NetworkNames(), "hecot")
	require.Equal("https://kovan.etherscan.io/tx/0xabc", networks["kovan"].TxLink("0xabc"))
	require.Equal("", networks["local"].AddressLink("0xabc"))
}

func TestConnection(t *testing.T) {
	require := require.New(t)

	cfg := &Config{
		ProviderURL:       "https://network.infura.io/v3/key",
		ForkProviderURL:   "http://localhost:8545",
		PrivateKey:        "main",
		TestnetPrivateKey: "test",
	}
	mainnet, _ := LookupNetwork("mainnet")
	kovan, _ := LookupNetwork("kovan")
	local, _ := LookupNetwork("local")

	tests := []struct {
		desc    string
		network Network
		useFork bool
		url     string
		key     string
	}{
		{desc: "mainnet", network: mainnet, url: "https://mainnet.infura.io/v3/key", key: "main"},
		{desc: "testnet", network: kovan, url: "https://kovan.infura.io/v3/key", key: "test"},
		{desc: "fork", network: mainnet, useFork: true, url: "http://localhost:8545", key: "main"},
		{desc: "local", network: local, url: localProviderURL, key: "test"},
	}

	for _, tt := range tests {
		conn := cfg.Connection(tt.network, tt.useFork)
		require.Equal(tt.url, conn.ProviderURL, tt.desc)
		require.Equal(tt.key, conn.PrivateKey, tt.desc)
		require.Equal(tt.network.Explorer, conn.ExplorerLinkPrefix, tt.desc)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	require := require.New(t)

	t.Setenv("METHOD_CALL_GAS_LIMIT", "300000")
	t.Setenv("VERBOSE", "true")
	t.Setenv("DEPLOYMENT_ROOT", "out")

	cfg := Load()
	require.Equal(uint64(300_000), cfg.MethodCallGasLimit)
	require.True(cfg.Verbose)
	require.Equal("BADI", cfg.ProtocolTokenKey)
	require.Equal(filepath.Join("out", "kovan"), cfg.DeploymentPath("kovan"))
}

func TestLoadEnvFileMissing(t *testing.T) {
	require.NoError(t, LoadEnvFile("does-not-exist.env"))
}
