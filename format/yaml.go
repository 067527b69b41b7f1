package format

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Azhovan/strata/value"
)

// yamlRefTag marks an indirection in YAML resources.
const yamlRefTag = "!conf/ref"

func decodeYAML(data []byte) (value.Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	// empty document
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return value.Map{}, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return value.Map{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top-level node must be a mapping", root.Line)
	}

	v, err := fromNode(root)
	if err != nil {
		return nil, err
	}
	return expandRefDirectives(v.(value.Map))
}

func fromNode(n *yaml.Node) (value.Value, error) {
	if n.Tag == yamlRefTag {
		return refFromNode(n)
	}

	switch n.Kind {
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.MappingNode:
		out := make(value.Map, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind == yaml.ScalarNode && keyNode.Tag == "!!merge" {
				if err := mergeInto(out, valNode); err != nil {
					return nil, err
				}
				continue
			}
			v, err := fromNode(valNode)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", keyNode.Line, keyNode.Value, err)
			}
			out[keyNode.Value] = v
		}
		return out, nil
	case yaml.SequenceNode:
		out := make(value.List, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var x any
		if err := n.Decode(&x); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return value.FromAny(x)
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

// mergeInto applies a YAML merge key ("<<: *anchor"). Explicit keys in
// the mapping win over merged ones, so only missing keys are filled.
func mergeInto(out value.Map, n *yaml.Node) error {
	sources := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		sources = n.Content
	}
	for _, src := range sources {
		v, err := fromNode(src)
		if err != nil {
			return err
		}
		m, ok := v.(value.Map)
		if !ok {
			return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
		}
		for k, e := range m {
			if _, exists := out[k]; !exists {
				out[k] = e
			}
		}
	}
	return nil
}

func refFromNode(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "" {
			return nil, fmt.Errorf("line %d: %s requires a key", n.Line, yamlRefTag)
		}
		return value.Ref{Key: n.Value}, nil
	case yaml.SequenceNode:
		if len(n.Content) != 1 && len(n.Content) != 2 {
			return nil, fmt.Errorf("line %d: %s expects [key] or [key, fallback]", n.Line, yamlRefTag)
		}
		keyNode := n.Content[0]
		if keyNode.Kind != yaml.ScalarNode || keyNode.Value == "" {
			return nil, fmt.Errorf("line %d: %s key must be a scalar", keyNode.Line, yamlRefTag)
		}
		ref := value.Ref{Key: keyNode.Value}
		if len(n.Content) == 2 {
			fallback, err := fromNode(n.Content[1])
			if err != nil {
				return nil, err
			}
			ref.Fallback = fallback
		}
		return ref, nil
	default:
		return nil, fmt.Errorf("line %d: %s must tag a scalar or a sequence", n.Line, yamlRefTag)
	}
}
