package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"gcode-inject/pkg/errors"
)

// LoadYAML maps a YAML document onto sections. Each top-level mapping
// becomes a section named by its key; top-level scalars are collected into
// defaultSection. So a flat tool profile such as
//
//	zHop_mm: 5.0
//	startX: 10.0
//
// loaded with defaultSection "tool vacuum_pnp" reads like the INI section
// of the same name.
func LoadYAML(data []byte, defaultSection string) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigType, "invalid YAML")
	}
	c := New()
	if len(doc.Content) == 0 {
		return c, nil
	}

	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrConfigType, "YAML document must be a mapping")
	}

	defaults := make(map[string]string)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		value := resolve(root.Content[i+1])

		if value.Kind == yaml.MappingNode {
			opts, err := flatten(key, value)
			if err != nil {
				return nil, err
			}
			c.addSection(key, opts)
			continue
		}
		v, err := scalar(value)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigType, fmt.Sprintf("top-level key %q", key))
		}
		defaults[strings.ToLower(key)] = v
	}

	if len(defaults) > 0 {
		if defaultSection == "" {
			return nil, errors.New(errors.ErrConfigSection, "top-level options need a default section")
		}
		c.addSection(defaultSection, defaults)
	}
	return c, nil
}

// flatten converts one section mapping into options.
func flatten(section string, node *yaml.Node) (map[string]string, error) {
	opts := make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		v, err := scalar(resolve(node.Content[i+1]))
		if err != nil {
			return nil, ErrInvalidValue(section, key, "", err.Error())
		}
		opts[strings.ToLower(key)] = v
	}
	return opts, nil
}

// scalar renders a scalar, or a sequence of scalars as a comma list.
func scalar(node *yaml.Node) (string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value, nil
	case yaml.SequenceNode:
		parts := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			item = resolve(item)
			if item.Kind != yaml.ScalarNode {
				return "", fmt.Errorf("nested sequence")
			}
			parts = append(parts, item.Value)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("scalar or list")
	}
}

func resolve(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}
