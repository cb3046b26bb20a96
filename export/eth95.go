// Package export writes deployment records into the formats of external
// tools.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parthshah1/synth-publish/deployment"
)

// Eth95Artifact is the per-contract file an eth95 UI loads.
type Eth95Artifact struct {
	ContractName string                      `json:"contractName"`
	ABI          json.RawMessage             `json:"abi"`
	Networks     map[string]Eth95NetworkInfo `json:"networks"`
}

type Eth95NetworkInfo struct {
	Address string `json:"address"`
}

// WriteEth95 merges every target of record into <dir>/<name>.json under
// chainID, keeping entries for other chains already in the file. It
// returns the names written.
func WriteEth95(dir string, record *deployment.Record, chainID int64) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var written []string
	for _, name := range record.Names() {
		target := record.Targets[name]
		source, ok := record.Sources[target.Source]
		if !ok {
			return written, fmt.Errorf("no source %s recorded for %s", target.Source, name)
		}

		path := filepath.Join(dir, name+".json")
		artifact, err := readEth95(path)
		if err != nil {
			return written, err
		}
		if artifact == nil {
			artifact = &Eth95Artifact{ContractName: name, Networks: make(map[string]Eth95NetworkInfo)}
		}
		artifact.ABI = source.ABI
		artifact.Networks[strconv.FormatInt(chainID, 10)] = Eth95NetworkInfo{Address: target.Address}

		data, err := json.MarshalIndent(artifact, "", "\t")
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, name)
	}
	return written, nil
}

func readEth95(path string) (*Eth95Artifact, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var artifact Eth95Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if artifact.Networks == nil {
		artifact.Networks = make(map[string]Eth95NetworkInfo)
	}
	return &artifact, nil
}
