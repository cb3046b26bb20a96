package config

import (
	"fmt"
	"sort"
	"strings"
)

// Network describes a chain the protocol can be published to.
type Network struct {
	Name       string
	ChainID    int64
	Explorer   string
	Production bool
	// AggregatorWarningFlags is the Chainlink flags contract, if the network has one.
	AggregatorWarningFlags string
}

var networks = map[string]Network{
	"local": {Name: "local", ChainID: 31337},
	"mainnet": {
		Name:                   "mainnet",
		ChainID:                1,
		Explorer:               "https://etherscan.io",
		Production:             true,
		AggregatorWarningFlags: "0x4A5b9B4aD08616D11F3A402FF7cBEAcB732a76C6",
	},
	"ropsten": {Name: "ropsten", ChainID: 3, Explorer: "https://ropsten.etherscan.io"},
	"rinkeby": {Name: "rinkeby", ChainID: 4, Explorer: "https://rinkeby.etherscan.io"},
	"goerli":  {Name: "goerli", ChainID: 5, Explorer: "https://goerli.etherscan.io"},
	"kovan": {
		Name:                   "kovan",
		ChainID:                42,
		Explorer:               "https://kovan.etherscan.io",
		AggregatorWarningFlags: "0x6292aa9a6650ae14fbf974e5029f36f95a1848fd",
	},
	"heco":  {Name: "heco", ChainID: 128, Explorer: "https://hecoinfo.com", Production: true},
	"hecot": {Name: "hecot", ChainID: 256, Explorer: "https://testnet.hecoinfo.com"},
}

// LookupNetwork finds a supported network by case-insensitive name.
func LookupNetwork(name string) (Network, error) {
	n, ok := networks[strings.ToLower(name)]
	if !ok {
		return Network{}, &ConfigurationError{
			Msg: fmt.Sprintf("invalid network %q, supported networks are: %s", name, strings.Join(NetworkNames(), ", ")),
		}
	}
	return n, nil
}

func NetworkNames() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddressLink returns the explorer page for addr, or "" on networks
// without an explorer.
func (n Network) AddressLink(addr string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/address/" + addr
}

func (n Network) TxLink(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}
