// Package catalog holds the static tool descriptors offered to the model and
// decides which of them are visible for a given authentication state.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/harun/courier/pkg/capability"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// BootstrapName is the only tool visible before authentication.
const BootstrapName = "connect_and_authenticate"

//go:embed tools.yaml
var defaultTools []byte

// Descriptor describes one tool to the model.
type Descriptor struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Parameters  map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	// Remote names the capability server operation when it differs from Name.
	Remote string `yaml:"remote,omitempty" json:"remote,omitempty"`
}

// Bootstrap returns the connect_and_authenticate descriptor.
func Bootstrap() Descriptor {
	return Descriptor{
		Name:        BootstrapName,
		Description: "Connects to Microsoft 365. Must be called before other tools.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

type file struct {
	Tools []Descriptor `yaml:"tools"`
}

// Catalog is an immutable, ordered set of tool descriptors.
type Catalog struct {
	tools   []Descriptor
	index   map[string]int
	schemas map[string]*gojsonschema.Schema
}

// Default returns the built-in mailbox and calendar catalog.
func Default() *Catalog {
	c, err := Parse(defaultTools)
	if err != nil {
		panic(fmt.Sprintf("built-in tool catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML or JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("tool catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a catalog document. JSON is accepted as a YAML subset.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tool catalog: %w", err)
	}
	return New(f.Tools...)
}

// New builds a catalog from descriptors, compiling every parameter schema.
func New(tools ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		tools:   make([]Descriptor, 0, len(tools)),
		index:   make(map[string]int, len(tools)),
		schemas: make(map[string]*gojsonschema.Schema),
	}

	for i, t := range tools {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("tool %d: name is required", i)
		}
		if name == BootstrapName {
			return nil, fmt.Errorf("tool %d: %q is reserved", i, BootstrapName)
		}
		if _, exists := c.index[name]; exists {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		t.Name = name

		if t.Parameters != nil {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Parameters))
			if err != nil {
				return nil, fmt.Errorf("tool %s: invalid parameter schema: %w", name, err)
			}
			c.schemas[name] = schema
		}

		c.index[name] = len(c.tools)
		c.tools = append(c.tools, cloneDescriptor(t))
	}

	return c, nil
}

// VisibleTools returns the tools the model may call in the given state:
// only the bootstrap tool unless the session is authenticated.
func (c *Catalog) VisibleTools(state capability.AuthState) []Descriptor {
	if state != capability.Authenticated {
		return []Descriptor{Bootstrap()}
	}

	out := make([]Descriptor, len(c.tools))
	for i, t := range c.tools {
		out[i] = cloneDescriptor(t)
	}
	return out
}

// Names returns the tool names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.tools))
	for i, t := range c.tools {
		names[i] = t.Name
	}
	return names
}

// Lookup returns a copy of the named descriptor.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return cloneDescriptor(c.tools[i]), true
}

// Operations returns the dispatch table for a capability session.
func (c *Catalog) Operations() []capability.Operation {
	ops := make([]capability.Operation, len(c.tools))
	for i, t := range c.tools {
		ops[i] = capability.Operation{Name: t.Name, Remote: t.Remote}
	}
	return ops
}

// ValidateArguments checks args against the tool's parameter schema. Tools
// without a schema and names outside the catalog are not checked here.
func (c *Catalog) ValidateArguments(name string, args map[string]any) error {
	schema, ok := c.schemas[name]
	if !ok {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("failed to validate arguments: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func cloneDescriptor(d Descriptor) Descriptor {
	if d.Parameters != nil {
		d.Parameters = cloneMap(d.Parameters)
	}
	return d
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
