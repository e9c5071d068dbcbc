package datasource

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads records from a .yaml, .yml, .json or .jsonl file.
//
// Documents are decoded through yaml.Node so that mapping keys keep their
// order in the file, which JSON documents also benefit from since JSON is a
// YAML subset. Sequences of mappings nested in a record become []Record and
// can back child tables.
func Load(path string) (*Slice, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl", ".ndjson":
		return ParseLines(raw)
	case ".yaml", ".yml", ".json":
		return Parse(raw)
	default:
		return nil, fmt.Errorf("unsupported data file extension %q", ext)
	}
}

// Parse decodes a YAML or JSON document holding a sequence of mappings.
func Parse(raw []byte) (*Slice, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse data document: %w", err)
	}
	if doc.Kind == 0 {
		return NewSlice(), nil
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("data document must be a sequence of records, line %d", root.Line)
	}

	records := make([]Record, 0, len(root.Content))
	for i, item := range root.Content {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return NewSlice(records...), nil
}

// ParseLines decodes newline-delimited records. Blank lines are ignored.
func ParseLines(raw []byte) (*Slice, error) {
	lines := SplitPayloadRecords(raw)
	records := make([]Record, 0, len(lines))
	for i, line := range lines {
		var node yaml.Node
		if err := yaml.Unmarshal(line, &node); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		item := &node
		if item.Kind == yaml.DocumentNode && len(item.Content) > 0 {
			item = item.Content[0]
		}
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return NewSlice(records...), nil
}

// SplitPayloadRecords splits a payload into newline-delimited records.
// Empty or whitespace-only lines are discarded.
func SplitPayloadRecords(payload []byte) [][]byte {
	trimmedPayload := bytes.TrimSpace(payload)
	if len(trimmedPayload) == 0 {
		return nil
	}

	lines := bytes.Split(trimmedPayload, []byte{'\n'})
	records := make([][]byte, 0, len(lines))
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		trimmed = bytes.TrimSuffix(trimmed, []byte{'\r'})
		if len(trimmed) == 0 {
			continue
		}
		records = append(records, append([]byte(nil), trimmed...))
	}

	return records
}

func decodeRecord(n *yaml.Node) (*MapRecord, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at line %d", n.Line)
	}
	rec := NewMapRecord()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		value, err := decodeValue(n.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		rec.Set(key, value)
	}
	return rec, nil
}

func decodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return decodeValue(n.Alias)
	case yaml.MappingNode:
		return decodeRecord(n)
	case yaml.SequenceNode:
		if isRecordSequence(n) {
			records := make([]Record, 0, len(n.Content))
			for _, item := range n.Content {
				rec, err := decodeRecord(item)
				if err != nil {
					return nil, err
				}
				records = append(records, rec)
			}
			return records, nil
		}
		items := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func isRecordSequence(n *yaml.Node) bool {
	if len(n.Content) == 0 {
		return false
	}
	for _, item := range n.Content {
		if item.Kind == yaml.AliasNode && item.Alias != nil {
			item = item.Alias
		}
		if item.Kind != yaml.MappingNode {
			return false
		}
	}
	return true
}
