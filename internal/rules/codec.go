package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-statements/internal/common"
	"gopkg.in/yaml.v3"
)

// Format selects the on-disk encoding of a rule document.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the encoding from a file extension. JSON for .json, YAML otherwise.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Decode reads a rule document. YAML and JSON are both accepted.
// Source names the document in errors.
func Decode(data []byte, source string) (*Document, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, &common.RuleStoreError{Op: "load", Source: source, Err: err}
	}
	return doc, nil
}

func decode(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("malformed document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("malformed document: empty")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, errors.New("malformed document: top level is not a mapping")
	}

	doc := &Document{}
	seen := map[string]bool{}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i].Value, top.Content[i+1]
		var err error
		switch key {
		case KeyAccountTerms:
			doc.AccountTerms, err = decodeAccountTerms(value)
		case KeyLearnedPatterns:
			doc.LearnedPatterns, err = decodeMapping(value)
		case KeyCategories:
			doc.Categories, err = decodeCategories(value)
		default:
			doc.extra = append(doc.extra, extraKey{key: key, node: value})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		seen[key] = true
	}

	for _, key := range []string{KeyAccountTerms, KeyLearnedPatterns, KeyCategories} {
		if !seen[key] {
			return nil, fmt.Errorf("missing %q mapping", key)
		}
	}
	return doc, nil
}

func decodeAccountTerms(node *yaml.Node) ([]AccountTermSet, error) {
	if err := requireMapping(node); err != nil {
		return nil, err
	}
	sets := make([]AccountTermSet, 0, len(node.Content)/2)
	seen := map[string]bool{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		account, err := scalarKey(node.Content[i], seen)
		if err != nil {
			return nil, err
		}
		terms, err := decodeMapping(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", account, err)
		}
		sets = append(sets, AccountTermSet{Account: account, Terms: terms})
	}
	return sets, nil
}

func decodeMapping(node *yaml.Node) (Mapping, error) {
	if err := requireMapping(node); err != nil {
		return nil, err
	}
	m := make(Mapping, 0, len(node.Content)/2)
	seen := map[string]bool{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, err := scalarKey(node.Content[i], seen)
		if err != nil {
			return nil, err
		}
		value := node.Content[i+1]
		if value.Kind != yaml.ScalarNode || value.Tag == "!!null" {
			return nil, fmt.Errorf("%q: category must be a string (line %d)", key, value.Line)
		}
		m = append(m, Entry{Key: key, Category: value.Value})
	}
	return m, nil
}

func decodeCategories(node *yaml.Node) ([]CategoryKeywords, error) {
	if err := requireMapping(node); err != nil {
		return nil, err
	}
	cats := make([]CategoryKeywords, 0, len(node.Content)/2)
	seen := map[string]bool{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, err := scalarKey(node.Content[i], seen)
		if err != nil {
			return nil, err
		}
		value := node.Content[i+1]
		patterns := []string{}
		switch {
		case value.Kind == yaml.ScalarNode && value.Tag == "!!null":
			// An empty list written as a bare key.
		case value.Kind == yaml.SequenceNode:
			for _, item := range value.Content {
				if item.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("%q: patterns must be strings (line %d)", name, item.Line)
				}
				patterns = append(patterns, item.Value)
			}
		default:
			return nil, fmt.Errorf("%q: patterns must be a list (line %d)", name, value.Line)
		}
		cats = append(cats, CategoryKeywords{Name: name, Patterns: patterns})
	}
	return cats, nil
}

func requireMapping(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("not a mapping (line %d)", node.Line)
	}
	return nil
}

func scalarKey(node *yaml.Node, seen map[string]bool) (string, error) {
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("non-scalar key (line %d)", node.Line)
	}
	folded := strings.ToLower(node.Value)
	if seen[folded] {
		return "", fmt.Errorf("duplicate key %q (line %d)", node.Value, node.Line)
	}
	seen[folded] = true
	return node.Value, nil
}

// Encode writes the document in the given format, preserving order.
func Encode(doc *Document, format Format) ([]byte, error) {
	if format == FormatJSON {
		return encodeJSON(doc)
	}
	return encodeYAML(doc)
}

func encodeYAML(doc *Document) ([]byte, error) {
	terms := mappingNode()
	for _, set := range doc.AccountTerms {
		terms.Content = append(terms.Content, stringNode(set.Account), entriesNode(set.Terms))
	}
	cats := mappingNode()
	for _, cat := range doc.Categories {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, p := range cat.Patterns {
			seq.Content = append(seq.Content, stringNode(p))
		}
		cats.Content = append(cats.Content, stringNode(cat.Name), seq)
	}

	top := mappingNode()
	top.Content = append(top.Content,
		stringNode(KeyAccountTerms), terms,
		stringNode(KeyLearnedPatterns), entriesNode(doc.LearnedPatterns),
		stringNode(KeyCategories), cats,
	)
	for _, extra := range doc.extra {
		top.Content = append(top.Content, stringNode(extra.key), extra.node)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(top); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func entriesNode(m Mapping) *yaml.Node {
	node := mappingNode()
	for _, e := range m {
		node.Content = append(node.Content, stringNode(e.Key), stringNode(e.Category))
	}
	return node
}

// jsonObject writes key/value pairs in insertion order.
type jsonObject struct {
	buf   bytes.Buffer
	count int
}

func (o *jsonObject) add(key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if o.count > 0 {
		o.buf.WriteByte(',')
	}
	o.count++
	o.buf.Write(k)
	o.buf.WriteByte(':')
	o.buf.Write(v)
	return nil
}

func (o *jsonObject) MarshalJSON() ([]byte, error) {
	return append(append([]byte{'{'}, o.buf.Bytes()...), '}'), nil
}

func mappingJSON(m Mapping) (*jsonObject, error) {
	obj := &jsonObject{}
	for _, e := range m {
		if err := obj.add(e.Key, e.Category); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func encodeJSON(doc *Document) ([]byte, error) {
	terms := &jsonObject{}
	for _, set := range doc.AccountTerms {
		inner, err := mappingJSON(set.Terms)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		if err := terms.add(set.Account, inner); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
	}
	learned, err := mappingJSON(doc.LearnedPatterns)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	cats := &jsonObject{}
	for _, cat := range doc.Categories {
		patterns := cat.Patterns
		if patterns == nil {
			patterns = []string{}
		}
		if err := cats.add(cat.Name, patterns); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
	}

	top := &jsonObject{}
	for _, kv := range []struct {
		key   string
		value any
	}{
		{KeyAccountTerms, terms},
		{KeyLearnedPatterns, learned},
		{KeyCategories, cats},
	} {
		if err := top.add(kv.key, kv.value); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
	}
	for _, extra := range doc.extra {
		var value any
		if err := extra.node.Decode(&value); err != nil {
			return nil, fmt.Errorf("encode json: %s: %w", extra.key, err)
		}
		if err := top.add(extra.key, value); err != nil {
			return nil, fmt.Errorf("encode json: %s: %w", extra.key, err)
		}
	}

	raw, err := top.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
