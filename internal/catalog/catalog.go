// Package catalog owns the model catalog: which model identifiers are known,
// which are selectable as experts or chairman, and what reasoning
// configuration each model accepts. The catalog is configuration, not
// pipeline state; the sequencer and gateway consult it read-only.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// NumExperts is the fixed size of the expert team per cycle.
const NumExperts = 6

// MinExpertModels is the smallest valid expert model pool.
const MinExpertModels = 1

// ReasoningClass describes which reasoning augmentation a model accepts.
type ReasoningClass int

const (
	// ReasoningNone means the model accepts no reasoning configuration.
	ReasoningNone ReasoningClass = iota

	// ReasoningEffort means the model accepts an effort level (low/medium/high).
	ReasoningEffort

	// ReasoningMaxTokens means the model accepts a numeric thinking-token budget.
	ReasoningMaxTokens
)

func (c ReasoningClass) String() string {
	switch c {
	case ReasoningNone:
		return "none"
	case ReasoningEffort:
		return "effort"
	case ReasoningMaxTokens:
		return "max-tokens"
	default:
		return "unknown"
	}
}

// Catalog is the set of known models plus selection defaults and policies.
type Catalog struct {
	// Models maps each known model identifier to its reasoning class.
	Models map[string]ReasoningClass

	// DefaultExperts is the default expert model pool, in order.
	DefaultExperts []string

	// DefaultChairman synthesizes the final artifact when no selection is given.
	DefaultChairman string

	// UtilityModel handles cheap internal calls (intent drafts, verification
	// reports, titles).
	UtilityModel string

	// SearchModel is the web-search-capable model used for evidence lookups.
	SearchModel string

	// Search bounds the verification stage's evidence gathering.
	Search SearchPolicy

	// DefaultEffort and DefaultThinkingTokens are applied when a selection
	// enables thinking for a model without an explicit value.
	DefaultEffort         string
	DefaultThinkingTokens int
}

// SearchPolicy bounds evidence gathering during verification. The number of
// queries actually issued is clamped to [MinQueries, MaxQueries].
type SearchPolicy struct {
	MinQueries int     `yaml:"minQueries"`
	MaxQueries int     `yaml:"maxQueries"`
	MaxSources int     `yaml:"maxSources"`
	Timeout    float64 `yaml:"timeoutSeconds"`
}

// Default returns the built-in catalog. File config overlays on top of this;
// it is never replaced wholesale.
func Default() *Catalog {
	return &Catalog{
		Models: map[string]ReasoningClass{
			"minimax/minimax-m2.1":            ReasoningMaxTokens,
			"deepseek/deepseek-v3.2":          ReasoningMaxTokens,
			"qwen/qwen2.5-vl-72b-instruct":    ReasoningNone,
			"z-ai/glm-4.7":                    ReasoningMaxTokens,
			"moonshotai/kimi-k2-0905":         ReasoningNone,
			"qwen/qwen3-235b-a22b-2507":       ReasoningNone,
			"openai/gpt-5.2":                  ReasoningEffort,
			"google/gemini-3-flash-preview":   ReasoningMaxTokens,
			"xiaomi/mimo-v2-flash:free":       ReasoningNone,
			"mistralai/devstral-2512:free":    ReasoningNone,
			"google/gemini-2.0-flash-001":     ReasoningNone,
			"openai/gpt-4o-mini-search-preview": ReasoningNone,
		},
		DefaultExperts: []string{
			"minimax/minimax-m2.1",
			"deepseek/deepseek-v3.2",
			"qwen/qwen2.5-vl-72b-instruct",
			"z-ai/glm-4.7",
			"moonshotai/kimi-k2-0905",
			"qwen/qwen3-235b-a22b-2507",
		},
		DefaultChairman: "minimax/minimax-m2.1",
		UtilityModel:    "google/gemini-2.0-flash-001",
		SearchModel:     "openai/gpt-4o-mini-search-preview",
		Search: SearchPolicy{
			MinQueries: 1,
			MaxQueries: 3,
			MaxSources: 3,
			Timeout:    45,
		},
		DefaultEffort:         "high",
		DefaultThinkingTokens: 8192,
	}
}

// Known reports whether the model identifier is in the catalog.
func (c *Catalog) Known(model string) bool {
	_, ok := c.Models[model]
	return ok
}

// Class returns the reasoning class for a model. Unknown models report
// ReasoningNone; callers validate Known separately.
func (c *Catalog) Class(model string) ReasoningClass {
	return c.Models[model]
}

// ReasoningCapable returns the sorted-by-insertion list of models that accept
// reasoning configuration (effort or token budget).
func (c *Catalog) ReasoningCapable() []string {
	var out []string
	for _, m := range c.ordered() {
		if c.Models[m] != ReasoningNone {
			out = append(out, m)
		}
	}
	return out
}

// ModelIDs returns all known model identifiers in a stable order.
func (c *Catalog) ModelIDs() []string {
	return c.ordered()
}

// ordered lists model IDs with the default experts first (in pool order),
// then the remainder sorted lexically. Map iteration order is not stable, so
// listing endpoints need this.
func (c *Catalog) ordered() []string {
	seen := make(map[string]bool, len(c.Models))
	out := make([]string, 0, len(c.Models))
	for _, m := range c.DefaultExperts {
		if c.Known(m) && !seen[m] {
			out = append(out, m)
			seen[m] = true
		}
	}
	rest := make([]string, 0, len(c.Models))
	for m := range c.Models {
		if !seen[m] {
			rest = append(rest, m)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// fileCatalog is the YAML shape of council.yml's catalog section.
type fileCatalog struct {
	Models []struct {
		ID        string `yaml:"id"`
		Reasoning string `yaml:"reasoning,omitempty"` // none | effort | max-tokens
	} `yaml:"models,omitempty"`
	DefaultExperts  []string      `yaml:"defaultExperts,omitempty"`
	DefaultChairman string        `yaml:"defaultChairman,omitempty"`
	UtilityModel    string        `yaml:"utilityModel,omitempty"`
	SearchModel     string        `yaml:"searchModel,omitempty"`
	Search          *SearchPolicy `yaml:"search,omitempty"`
}

// Load reads council.yml or council.yaml from dir and overlays it on the
// built-in defaults. A missing file yields the defaults, not an error.
func Load(dir string) (*Catalog, error) {
	cat := Default()
	for _, name := range []string{"council.yml", "council.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var fc fileCatalog
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
		}
		if err := cat.overlay(fc); err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", path, err)
		}
		break
	}
	return cat, nil
}

func (c *Catalog) overlay(fc fileCatalog) error {
	for _, m := range fc.Models {
		class := ReasoningNone
		switch m.Reasoning {
		case "", "none":
		case "effort":
			class = ReasoningEffort
		case "max-tokens":
			class = ReasoningMaxTokens
		default:
			return fmt.Errorf("model %q: unknown reasoning class %q", m.ID, m.Reasoning)
		}
		c.Models[m.ID] = class
	}
	if len(fc.DefaultExperts) > 0 {
		c.DefaultExperts = fc.DefaultExperts
	}
	if fc.DefaultChairman != "" {
		c.DefaultChairman = fc.DefaultChairman
	}
	if fc.UtilityModel != "" {
		c.UtilityModel = fc.UtilityModel
	}
	if fc.SearchModel != "" {
		c.SearchModel = fc.SearchModel
	}
	if fc.Search != nil {
		c.Search = *fc.Search
	}
	for _, m := range append([]string{c.DefaultChairman, c.UtilityModel, c.SearchModel}, c.DefaultExperts...) {
		if !c.Known(m) {
			return fmt.Errorf("default references unknown model %q", m)
		}
	}
	if c.Search.MinQueries < 0 || c.Search.MaxQueries < c.Search.MinQueries {
		return fmt.Errorf("invalid search policy: min=%d max=%d", c.Search.MinQueries, c.Search.MaxQueries)
	}
	return nil
}
