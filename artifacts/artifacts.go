// Package artifacts loads compiled contract output from the build folder.
package artifacts

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

const CompiledFolder = "compiled"

// LinkReference is one library placeholder inside the bytecode, in bytes.
type LinkReference struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// compiledFile is the solc standard-JSON output for a single contract.
type compiledFile struct {
	ABI json.RawMessage `json:"abi"`
	EVM struct {
		Bytecode struct {
			Object         string                                `json:"object"`
			LinkReferences map[string]map[string][]LinkReference `json:"linkReferences"`
		} `json:"bytecode"`
	} `json:"evm"`
}

// Artifact is a compiled contract ready for deployment.
type Artifact struct {
	Name   string
	ABI    *abi.ABI
	RawABI json.RawMessage
	// Bytecode is the unlinked hex object without 0x prefix.
	Bytecode string
	// Libraries maps library names to the placeholders they fill.
	Libraries map[string][]LinkReference
}

// Set is every compiled artifact in a build.
type Set struct {
	Artifacts        map[string]*Artifact
	EarliestCompiled time.Time
}

// Load reads every <buildPath>/compiled/*.json file.
func Load(buildPath string) (*Set, error) {
	dir := filepath.Join(buildPath, CompiledFolder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read compiled folder %s: %w", dir, err)
	}

	set := &Set{Artifacts: make(map[string]*Artifact)}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if set.EarliestCompiled.IsZero() || info.ModTime().Before(set.EarliestCompiled) {
			set.EarliestCompiled = info.ModTime()
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		artifact, err := loadFile(name, path)
		if err != nil {
			return nil, err
		}
		set.Artifacts[name] = artifact
	}
	return set, nil
}

func loadFile(name, path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var compiled compiledFile
	if err := json.Unmarshal(data, &compiled); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	parsed, err := abi.JSON(bytes.NewReader(compiled.ABI))
	if err != nil {
		return nil, fmt.Errorf("invalid ABI in %s: %w", path, err)
	}

	libs := make(map[string][]LinkReference)
	for _, byLib := range compiled.EVM.Bytecode.LinkReferences {
		for lib, refs := range byLib {
			libs[lib] = append(libs[lib], refs...)
		}
	}

	return &Artifact{
		Name:      name,
		ABI:       &parsed,
		RawABI:    compiled.ABI,
		Bytecode:  strings.TrimPrefix(compiled.EVM.Bytecode.Object, "0x"),
		Libraries: libs,
	}, nil
}

func (s *Set) Get(name string) (*Artifact, bool) {
	a, ok := s.Artifacts[name]
	return a, ok
}

// Names returns the artifact names in lexical order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.Artifacts))
	for name := range s.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LibraryNames returns the libraries this artifact must be linked against.
func (a *Artifact) LibraryNames() []string {
	names := make([]string, 0, len(a.Libraries))
	for name := range a.Libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Link replaces every library placeholder with the library's address and
// returns the deployable bytecode.
func (a *Artifact) Link(libraries map[string]common.Address) ([]byte, error) {
	code := []byte(a.Bytecode)
	for _, lib := range a.LibraryNames() {
		addr, ok := libraries[lib]
		if !ok {
			return nil, fmt.Errorf("%s must be linked against library %s which has no address", a.Name, lib)
		}
		hexAddr := []byte(hex.EncodeToString(addr.Bytes()))
		for _, ref := range a.Libraries[lib] {
			start, end := ref.Start*2, (ref.Start+ref.Length)*2
			if ref.Length != common.AddressLength || end > len(code) {
				return nil, fmt.Errorf("%s has an invalid link reference for %s at %d", a.Name, lib, ref.Start)
			}
			copy(code[start:end], hexAddr)
		}
	}

	out, err := hex.DecodeString(string(code))
	if err != nil {
		return nil, fmt.Errorf("%s bytecode is not valid hex after linking: %w", a.Name, err)
	}
	return out, nil
}

// Fingerprint is the keccak256 of an unlinked bytecode string, used to
// notice when a local build no longer matches what was deployed.
func Fingerprint(bytecode string) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(strings.ToLower(strings.TrimPrefix(bytecode, "0x"))))
	return hex.EncodeToString(hash.Sum(nil))
}

// LatestSourceChange walks contractsPath and returns the most recent
// modification time of any .sol file.
func LatestSourceChange(contractsPath string) (time.Time, error) {
	var latest time.Time
	err := filepath.WalkDir(contractsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sol" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to scan %s: %w", contractsPath, err)
	}
	return latest, nil
}
