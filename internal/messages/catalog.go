// Package messages resolves reply templates by dotted key.
package messages

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yml
var defaultMessages []byte

// Catalog implements ports.MessageCatalog over a YAML tree.
type Catalog struct {
	tree map[string]any
}

// Default returns the catalog built from the embedded messages.yml.
func Default() *Catalog {
	c, err := Parse(defaultMessages)
	if err != nil {
		panic(fmt.Sprintf("embedded messages.yml is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	if len(tree) == 0 {
		return nil, fmt.Errorf("messages file is empty")
	}
	return &Catalog{tree: tree}, nil
}

// Get returns the template at key with {name} placeholders replaced from vars.
// Placeholders without a value are left as-is. Unknown keys yield a visible
// placeholder instead of an error.
func (c *Catalog) Get(key string, vars map[string]string) string {
	raw, ok := c.lookup(key)
	if !ok {
		return "Message not found for key: " + key
	}
	if len(vars) == 0 {
		return raw
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(raw)
}

// Has reports whether key resolves to a string.
func (c *Catalog) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

func (c *Catalog) lookup(key string) (string, bool) {
	var node any = c.tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		if node, ok = m[part]; !ok {
			return "", false
		}
	}
	s, ok := node.(string)
	return s, ok
}
