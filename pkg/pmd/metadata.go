package pmd

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is the ordered key/value header of a template, taken from its
// leading "@key: value" lines. The zero value is an empty mapping.
type Metadata struct {
	keys   []string
	values map[string]string
}

// set stores value under key. A repeated key keeps its first position and
// takes the latest value.
func (m *Metadata) set(key, value string) {
	if m.values == nil {
		m.values = map[string]string{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in first-occurrence order.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m Metadata) Len() int { return len(m.keys) }

// Map returns an unordered copy of the metadata.
func (m Metadata) Map() map[string]string {
	out := make(map[string]string, len(m.keys))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// MarshalYAML emits the metadata as a mapping that preserves key order.
func (m Metadata) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.values[k]},
		)
	}
	return node, nil
}

// UnmarshalYAML reads a mapping of strings, keeping document order.
func (m *Metadata) UnmarshalYAML(node *yaml.Node) error {
	*m = Metadata{}
	if node.Kind != yaml.MappingNode {
		var flat map[string]string
		return node.Decode(&flat)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v string
		if err := node.Content[i+1].Decode(&v); err != nil {
			return err
		}
		m.set(node.Content[i].Value, v)
	}
	return nil
}

// ExtractMetadata consumes the leading run of metadata lines of src. It
// returns the collected metadata and the byte offset where the body begins.
// The first line that is not a metadata line, blank lines included, ends the
// header and is left in the body untouched.
func ExtractMetadata(src string) (Metadata, int) {
	var md Metadata
	off := 0
	for off < len(src) {
		end := strings.IndexByte(src[off:], '\n')
		next := len(src)
		line := src[off:]
		if end >= 0 {
			line = src[off : off+end]
			next = off + end + 1
		}
		key, value, ok := parseMetadataLine(line)
		if !ok {
			break
		}
		md.set(key, value)
		off = next
	}
	return md, off
}

// parseMetadataLine matches "@key:value" anchored at the start of line.
func parseMetadataLine(line string) (key, value string, ok bool) {
	if len(line) < 2 || line[0] != '@' {
		return "", "", false
	}
	colon := strings.IndexByte(line, ':')
	if colon < 2 {
		return "", "", false
	}
	key = line[1:colon]
	for i := 0; i < len(key); i++ {
		if !isMetadataKeyByte(key[i]) {
			return "", "", false
		}
	}
	return key, strings.TrimSpace(line[colon+1:]), true
}

func isMetadataKeyByte(b byte) bool {
	return b == '_' || b == '-' || b == '.' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
