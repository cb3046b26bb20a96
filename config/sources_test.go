package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadSources(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	writeFile(t, dir, ConfigFilename, `{
		"Synthetix": {"deploy": true},
		"SynthsUSD": {"deploy": false},
		"ExchangeRates": {"deploy": true}
	}`)
	writeFile(t, dir, SynthsFilename, `[
		{"name": "sUSD", "asset": "USD", "category": "forex"},
		{"name": "sETH", "asset": "ETH", "category": "crypto"},
		{"name": "iETH", "asset": "ETH", "category": "crypto",
		 "inverted": {"entryPoint": 400, "upperLimit": 600, "lowerLimit": 200}}
	]`)
	writeFile(t, dir, FeedsFilename, `{
		"ETH": {"feed": "0x9326BFA02ADD2366b30bacB125260Af641031331", "type": "chainlink"},
		"BADI": {"asset": "BADI", "feed": "0x1111111111111111111111111111111111111111", "t": "swap"}
	}`)

	s, err := LoadSources(dir)
	require.NoError(err)

	require.Equal([]string{"ExchangeRates", "Synthetix", "SynthsUSD"}, s.Flags.Names())
	require.Equal([]string{"ExchangeRates", "Synthetix"}, s.Flags.Deployed())
	require.Len(s.Synths, 3)
	require.NotNil(s.Synths[2].Inverted)
	require.Equal(600.0, s.Synths[2].Inverted.UpperLimit)

	eth, ok := s.FeedFor("ETH")
	require.True(ok)
	require.Equal("ETH", eth.Asset)
	require.Equal(FeedChainlink, eth.Kind())

	standalone := s.StandaloneFeeds()
	require.Len(standalone, 1)
	require.Equal("BADI", standalone[0].Asset)
	require.Equal(FeedSwap, standalone[0].Kind())

	require.Equal([]string{"sETH", "iETH"}, s.NewSynths())
	require.Equal(filepath.Join(dir, DeploymentFilename), s.DeploymentFile())
	require.Equal(filepath.Join(dir, OwnerActionsFilename), s.OwnerActionsFile())
}

func TestLoadSourcesErrors(t *testing.T) {
	require := require.New(t)

	tests := []struct {
		desc  string
		files map[string]string
	}{
		{
			desc:  "missing config",
			files: map[string]string{SynthsFilename: `[]`},
		},
		{
			desc:  "missing synths",
			files: map[string]string{ConfigFilename: `{}`},
		},
		{
			desc:  "malformed config",
			files: map[string]string{ConfigFilename: `{`, SynthsFilename: `[]`},
		},
	}

	for _, tt := range tests {
		dir := t.TempDir()
		for name, content := range tt.files {
			writeFile(t, dir, name, content)
		}
		_, err := LoadSources(dir)
		var cfgErr *ConfigurationError
		require.True(errors.As(err, &cfgErr), tt.desc)
	}

	_, err := LoadSources(filepath.Join(t.TempDir(), "missing"))
	var cfgErr *ConfigurationError
	require.True(errors.As(err, &cfgErr))
}

func TestLoadSourcesWithoutFeeds(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	writeFile(t, dir, ConfigFilename, `{}`)
	writeFile(t, dir, SynthsFilename, `[]`)

	s, err := LoadSources(dir)
	require.NoError(err)
	require.Empty(s.Feeds)
	require.Empty(s.StandaloneFeeds())
	require.NotNil(s.Flags)
}
