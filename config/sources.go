package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	ConfigFilename       = "config.json"
	SynthsFilename       = "synths.json"
	FeedsFilename        = "feeds.json"
	DeploymentFilename   = "deployment.json"
	OwnerActionsFilename = "owner-actions.json"
)

const (
	FeedChainlink = "chainlink"
	FeedSwap      = "swap"
)

// ContractFlag says whether a contract is (re)deployed in this run.
type ContractFlag struct {
	Deploy bool `json:"deploy"`
}

// ContractFlags is the per-network config.json.
type ContractFlags map[string]ContractFlag

// Names returns the flagged contract names in lexical order.
func (f ContractFlags) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deployed returns the names flagged for deployment.
func (f ContractFlags) Deployed() []string {
	var names []string
	for _, name := range f.Names() {
		if f[name].Deploy {
			names = append(names, name)
		}
	}
	return names
}

// InversePricing bounds an inverse synth's price.
type InversePricing struct {
	EntryPoint float64 `json:"entryPoint"`
	UpperLimit float64 `json:"upperLimit"`
	LowerLimit float64 `json:"lowerLimit"`
}

type Synth struct {
	Name     string          `json:"name"`
	Asset    string          `json:"asset"`
	Category string          `json:"category"`
	Subclass string          `json:"subclass,omitempty"`
	Inverted *InversePricing `json:"inverted,omitempty"`
}

// Feed is a price feed for an asset. Older feed files store the type
// under "t".
type Feed struct {
	Asset      string `json:"asset"`
	Feed       string `json:"feed"`
	Type       string `json:"type,omitempty"`
	LegacyType string `json:"t,omitempty"`
}

func (f Feed) Kind() string {
	if f.Type != "" {
		return f.Type
	}
	return f.LegacyType
}

// Sources are the read-only inputs of one deployment run.
type Sources struct {
	Path   string
	Flags  ContractFlags
	Synths []Synth
	Feeds  map[string]Feed
}

// LoadSources reads config.json, synths.json and feeds.json from
// deploymentPath. The first two are required.
func LoadSources(deploymentPath string) (*Sources, error) {
	info, err := os.Stat(deploymentPath)
	if err != nil || !info.IsDir() {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("deployment path %s is not a directory", deploymentPath), Err: err}
	}

	s := &Sources{Path: deploymentPath, Feeds: make(map[string]Feed)}

	if err := readJSON(filepath.Join(deploymentPath, ConfigFilename), &s.Flags, true); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(deploymentPath, SynthsFilename), &s.Synths, true); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(deploymentPath, FeedsFilename), &s.Feeds, false); err != nil {
		return nil, err
	}

	if s.Flags == nil {
		s.Flags = make(ContractFlags)
	}
	for asset, feed := range s.Feeds {
		if feed.Asset == "" {
			feed.Asset = asset
			s.Feeds[asset] = feed
		}
	}
	return s, nil
}

func (s *Sources) DeploymentFile() string {
	return filepath.Join(s.Path, DeploymentFilename)
}

func (s *Sources) OwnerActionsFile() string {
	return filepath.Join(s.Path, OwnerActionsFilename)
}

// FeedFor returns the feed configured for asset, if any.
func (s *Sources) FeedFor(asset string) (Feed, bool) {
	f, ok := s.Feeds[asset]
	return f, ok
}

// StandaloneFeeds returns feeds no synth prices from, sorted by asset.
func (s *Sources) StandaloneFeeds() []Feed {
	used := make(map[string]bool, len(s.Synths))
	for _, synth := range s.Synths {
		used[synth.Asset] = true
	}

	var feeds []Feed
	for _, f := range s.Feeds {
		if !used[f.Asset] {
			feeds = append(feeds, f)
		}
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].Asset < feeds[j].Asset })
	return feeds
}

// NewSynths lists synths with no Synth<name> entry in the config, which
// are only deployed when adding new synths is requested.
func (s *Sources) NewSynths() []string {
	var names []string
	for _, synth := range s.Synths {
		if _, ok := s.Flags["Synth"+synth.Name]; !ok {
			names = append(names, synth.Name)
		}
	}
	return names
}

func readJSON(path string, v interface{}, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return &ConfigurationError{Msg: fmt.Sprintf("cannot read required file %s", path), Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ConfigurationError{Msg: fmt.Sprintf("cannot parse %s", path), Err: err}
	}
	return nil
}
