package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/parthshah1/synth-publish/deployment"
)

// Replacement is one data source address change in a subgraph manifest.
type Replacement struct {
	File       string
	DataSource string
	From       string
	To         string
}

// SubgraphAddressFor maps a subgraph data source name to the deployment
// target whose address it indexes. The token is indexed through its proxy
// and so is every synth.
func SubgraphAddressFor(record *deployment.Record, dataSource string) (string, bool) {
	name := dataSource
	switch {
	case dataSource == "Synthetix" || dataSource == "ProxySynthetix":
		name = "ProxyERC20"
	case strings.HasPrefix(dataSource, "Synth"):
		name = "Proxy" + strings.TrimPrefix(dataSource, "Synth")
	}
	t, ok := record.Targets[name]
	if !ok || t.Address == "" {
		return "", false
	}
	return t.Address, true
}

// RewriteSubgraphs updates source.address (and source.startBlock when
// startBlock > 1) of every data source in the *.yaml manifests under dir.
// Unmatched data sources are returned in unmatched and left untouched.
func RewriteSubgraphs(dir string, record *deployment.Record, startBlock uint64) (changes []Replacement, unmatched []string, err error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no subgraph manifests found in %s", dir)
	}
	sort.Strings(files)

	for _, file := range files {
		c, u, err := rewriteManifest(file, record, startBlock)
		if err != nil {
			return changes, unmatched, err
		}
		changes = append(changes, c...)
		unmatched = append(unmatched, u...)
	}
	return changes, unmatched, nil
}

func rewriteManifest(file string, record *deployment.Record, startBlock uint64) ([]Replacement, []string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil, nil
	}

	dataSources := mappingValue(doc.Content[0], "dataSources")
	if dataSources == nil || dataSources.Kind != yaml.SequenceNode {
		return nil, nil, nil
	}

	var (
		changes   []Replacement
		unmatched []string
	)
	for _, ds := range dataSources.Content {
		nameNode := mappingValue(ds, "name")
		source := mappingValue(ds, "source")
		if nameNode == nil || source == nil {
			continue
		}

		if startBlock > 1 {
			setScalar(source, "startBlock", strconv.FormatUint(startBlock, 10), "!!int")
		}

		address, ok := SubgraphAddressFor(record, nameNode.Value)
		if !ok {
			unmatched = append(unmatched, nameNode.Value)
			continue
		}
		before := ""
		if n := mappingValue(source, "address"); n != nil {
			before = n.Value
		}
		if before != address {
			setScalar(source, "address", address, "!!str")
			changes = append(changes, Replacement{File: filepath.Base(file), DataSource: nameNode.Value, From: before, To: address})
		}
	}

	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s: %w", file, err)
	}
	if err := enc.Close(); err != nil {
		return nil, nil, err
	}
	if err := os.WriteFile(file, out.Bytes(), 0o644); err != nil {
		return nil, nil, fmt.Errorf("failed to write %s: %w", file, err)
	}
	return changes, unmatched, nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func setScalar(n *yaml.Node, key, value, tag string) {
	if v := mappingValue(n, key); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = tag
		v.Value = value
		if tag == "!!str" {
			v.Style = yaml.SingleQuotedStyle
		}
		return
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	valueNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	if tag == "!!str" {
		valueNode.Style = yaml.SingleQuotedStyle
	}
	n.Content = append(n.Content, keyNode, valueNode)
}
