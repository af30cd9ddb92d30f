// Package prompts loads the system and user prompt templates used by the
// pipeline stages.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"go.yaml.in/yaml/v4"
)

// Agent names.
const (
	ProfileCollector = "profile_collector"
	ProfileAnalyzer  = "profile_analyzer"
	ContentGenerator = "content_generator"
)

//go:embed prompts.yaml
var defaultPrompts []byte

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// Agent holds the templates for one stage.
type Agent struct {
	System string `yaml:"system_prompt"`
	User   string `yaml:"user_prompt"`
}

// Catalog is an immutable set of agent templates.
type Catalog struct {
	agents map[string]Agent
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}
	return c
}

// Load reads a catalog from path. An empty path yields the embedded catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompts file not found: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	agents := map[string]Agent{}
	if err := yaml.Unmarshal(data, &agents); err != nil {
		return nil, fmt.Errorf("error parsing prompts YAML: %w", err)
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("prompts YAML defines no agents")
	}
	return &Catalog{agents: agents}, nil
}

// System returns the system prompt for agent.
func (c *Catalog) System(agent string) (string, error) {
	a, ok := c.agents[agent]
	if !ok || strings.TrimSpace(a.System) == "" {
		return "", fmt.Errorf("system prompt not found for agent: %s", agent)
	}
	return a.System, nil
}

// FormatUser renders the user template for agent. Every placeholder must be
// supplied.
func (c *Catalog) FormatUser(agent string, vars map[string]string) (string, error) {
	a, ok := c.agents[agent]
	if !ok || strings.TrimSpace(a.User) == "" {
		return "", fmt.Errorf("user prompt not found for agent: %s", agent)
	}
	var missing []string
	out := placeholder.ReplaceAllStringFunc(a.User, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("missing parameter for prompt formatting: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Agents lists the configured agent names.
func (c *Catalog) Agents() []string {
	out := make([]string, 0, len(c.agents))
	for name := range c.agents {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
