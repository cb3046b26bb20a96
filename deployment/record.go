// Package deployment persists what has been published to a network: the
// address of every deployed target and the compiled source it came from.
package deployment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/parthshah1/synth-publish/config"
)

// Target is one deployed contract instance.
type Target struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Source    string    `json:"source"`
	Link      string    `json:"link,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Txn       string    `json:"txn,omitempty"`
	Network   string    `json:"network"`
}

// Source is the compiled artifact a target was deployed from.
type Source struct {
	Bytecode string          `json:"bytecode"`
	ABI      json.RawMessage `json:"abi"`
}

// Record is the persisted deployment state of one network. It is written
// only by the deployer, from a single goroutine.
type Record struct {
	Targets map[string]*Target `json:"targets"`
	Sources map[string]*Source `json:"sources"`

	path string
}

func New(path string) *Record {
	return &Record{
		Targets: make(map[string]*Target),
		Sources: make(map[string]*Source),
		path:    path,
	}
}

// Load reads the record at path. A missing file yields an empty record
// that will be created on the first Save.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(path), nil
		}
		return nil, fmt.Errorf("failed to read deployment record: %w", err)
	}

	r := New(path)
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse deployment record %s: %w", path, err)
	}
	if r.Targets == nil {
		r.Targets = make(map[string]*Target)
	}
	if r.Sources == nil {
		r.Sources = make(map[string]*Source)
	}
	return r, nil
}

func (r *Record) Path() string { return r.path }

// Save writes the record as tab-indented JSON, replacing the file
// atomically so an interrupted run never leaves a truncated record.
func (r *Record) Save() error {
	if _, err := r.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal deployment record: %w", err)
	}
	data = append(data, '\n')

	return writeFileAtomic(r.path, data)
}

// Put records a fresh deployment of target from source.
func (r *Record) Put(target Target, source Source) {
	r.Targets[target.Name] = &target
	r.Sources[target.Source] = &source
}

// AddressOf returns the recorded address for name, if any.
func (r *Record) AddressOf(name string) (common.Address, bool) {
	t, ok := r.Targets[name]
	if !ok || t.Address == "" || !common.IsHexAddress(t.Address) {
		return common.Address{}, false
	}
	return common.HexToAddress(t.Address), true
}

// ABIOf parses the ABI recorded for target name.
func (r *Record) ABIOf(name string) (*abi.ABI, error) {
	t, ok := r.Targets[name]
	if !ok {
		return nil, fmt.Errorf("no deployment recorded for %s", name)
	}
	src, ok := r.Sources[t.Source]
	if !ok {
		return nil, fmt.Errorf("no source %s recorded for %s", t.Source, name)
	}
	parsed, err := abi.JSON(bytes.NewReader(src.ABI))
	if err != nil {
		return nil, fmt.Errorf("invalid ABI recorded for %s: %w", t.Source, err)
	}
	return &parsed, nil
}

// Names returns the target names in lexical order.
func (r *Record) Names() []string {
	names := make([]string, 0, len(r.Targets))
	for name := range r.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every target has its source recorded. Targets
// sharing an address are returned as warnings since aliases are allowed.
func (r *Record) Validate() ([]string, error) {
	var warnings []string
	seen := make(map[string]string)

	for _, name := range r.Names() {
		t := r.Targets[name]
		_, hasSource := r.Sources[t.Source]
		config.AssertAlways(hasSource, "Every deployed target has its source recorded", map[string]interface{}{
			"target": name,
			"source": t.Source,
		})
		if !hasSource {
			return nil, fmt.Errorf("target %s references source %s which is not recorded", name, t.Source)
		}

		addr := strings.ToLower(t.Address)
		if other, dup := seen[addr]; dup && addr != "" {
			warnings = append(warnings, fmt.Sprintf("%s shares address %s with %s", name, t.Address, other))
			continue
		}
		seen[addr] = name
	}
	return warnings, nil
}

// CheckReusable fails when a contract flagged deploy:false has no address
// on record, before any transaction is attempted.
func (r *Record) CheckReusable(flags config.ContractFlags, network string) error {
	var missing []string
	for _, name := range flags.Names() {
		if flags[name].Deploy {
			continue
		}
		if _, ok := r.AddressOf(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &config.ConfigurationError{
		Msg: fmt.Sprintf(
			"cannot use existing contracts for deployment as addresses not found for the following contracts on %s:\n%s\nUsed: %s as source",
			network, strings.Join(missing, "\n"), r.path,
		),
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
