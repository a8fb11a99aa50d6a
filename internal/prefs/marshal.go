package prefs

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a preferences file.
type document struct {
	Domain string            `yaml:"domain"`
	Values map[string]string `yaml:"values"`
}

// Marshal returns canonical YAML bytes for a preferences domain: keys sorted,
// values always quoted strings, trailing newline.
func Marshal(domain string, values map[string]string) ([]byte, error) {
	top := &yaml.Node{Kind: yaml.MappingNode}
	top.Content = append(top.Content, scalarNode("domain"), stringNode(domain))
	top.Content = append(top.Content, scalarNode("values"), valuesNode(values))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(top); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')
	return out, nil
}

// Unmarshal parses a preferences file. Empty input is an empty domain.
func Unmarshal(b []byte) (string, map[string]string, error) {
	var doc document
	if len(bytes.TrimSpace(b)) == 0 {
		return "", map[string]string{}, nil
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return "", nil, fmt.Errorf("invalid preferences file: %v", err)
	}
	if doc.Values == nil {
		doc.Values = map[string]string{}
	}
	return doc.Domain, doc.Values, nil
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func stringNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v, Style: yaml.DoubleQuotedStyle}
}

func valuesNode(m map[string]string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	if len(m) == 0 {
		n.Style = yaml.FlowStyle
		return n
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Content = append(n.Content, scalarNode(k), stringNode(m[k]))
	}
	return n
}
