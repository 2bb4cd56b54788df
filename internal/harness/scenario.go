package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path of the CUE schema declaring the case types.
	// LoadScenario resolves it against the scenario file's directory.
	Schema string `yaml:"schema"`

	// Cases are checked in order.
	Cases []Case `yaml:"cases"`
}

// Case is one value to put through the traits of its type.
type Case struct {
	Name string `yaml:"name"`

	// Type is a schema type expression such as "Point" or "list<ref<Node>>".
	Type string `yaml:"type"`

	// Value is the original document node, so anchors on it match the
	// aliases beneath it.
	Value *yaml.Node `yaml:"value"`

	// Expect adds checks on top of the defaults. If nil, only the
	// default checks run.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected case behavior.
type ExpectClause struct {
	// Debug is the exact debug string of the value.
	Debug string `yaml:"debug,omitempty"`

	// Size is the exact encoded length in bytes.
	Size *int64 `yaml:"size,omitempty"`

	// Fails requires loading or encoding the value to fail.
	Fails bool `yaml:"fails,omitempty"`

	// Error, when set with Fails, must appear in the failure message.
	Error string `yaml:"error,omitempty"`
}

// UnmarshalYAML keeps a pointer to the value node. Decoding into a
// yaml.Node field would copy it and detach an anchor on the value itself
// from the aliases that refer to it.
func (c *Case) UnmarshalYAML(n *yaml.Node) error {
	if err := checkKeys(n, "Case", "name", "type", "value", "expect"); err != nil {
		return err
	}
	var fields struct {
		Name   string        `yaml:"name"`
		Type   string        `yaml:"type"`
		Expect *ExpectClause `yaml:"expect"`
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch n.Content[i].Value {
		case "value":
			c.Value = n.Content[i+1]
		case "expect":
			err := checkKeys(n.Content[i+1], "ExpectClause", "debug", "size", "fails", "error")
			if err != nil {
				return err
			}
		}
	}
	if err := n.Decode(&fields); err != nil {
		return err
	}
	c.Name, c.Type, c.Expect = fields.Name, fields.Type, fields.Expect
	return nil
}

// checkKeys rejects mapping keys outside allowed. Custom unmarshalers do
// not inherit the decoder's KnownFields setting.
func checkKeys(n *yaml.Node, typeName string, allowed ...string) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: %s must be a mapping", n.Line, typeName)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if !slices.Contains(allowed, key.Value) {
			return fmt.Errorf("line %d: field %s not found in type harness.%s", key.Line, key.Value, typeName)
		}
	}
	return nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving the schema path relative
// to basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "case:" vs "cases:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", s.Schema)
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		seen[c.Name] = true
		if c.Type == "" {
			return fmt.Errorf("cases[%d]: type is required", i)
		}
		if c.Value == nil {
			return fmt.Errorf("cases[%d]: value is required (use null for unit values)", i)
		}
		if e := c.Expect; e != nil {
			if e.Error != "" && !e.Fails {
				return fmt.Errorf("cases[%d].expect: error requires fails", i)
			}
			if e.Fails && (e.Debug != "" || e.Size != nil) {
				return fmt.Errorf("cases[%d].expect: fails excludes debug and size", i)
			}
		}
	}

	return nil
}
