package openrouter

import (
	"fmt"

	"github.com/dusk-indust/council/internal/catalog"
)

// BuildReasoning converts a per-model reasoning config into the request
// payload fragment. Configuration that does not match the model's declared
// capability class is rejected with an error, never silently ignored:
// an effort level on a token-budget model (or any config on a model with no
// reasoning support) is a caller bug, and absorbing it would make the
// selection UI lie about what ran.
//
// A nil or disabled config yields a nil payload for every class.
func BuildReasoning(cat *catalog.Catalog, model string, cfg *ReasoningConfig) (map[string]any, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	class := cat.Class(model)
	switch class {
	case catalog.ReasoningNone:
		return nil, fmt.Errorf("openrouter: model %q does not accept reasoning configuration", model)

	case catalog.ReasoningEffort:
		if cfg.MaxTokens > 0 {
			return nil, fmt.Errorf("openrouter: model %q takes an effort level, not a token budget", model)
		}
		effort := cfg.Effort
		if effort == "" {
			effort = cat.DefaultEffort
		}
		switch effort {
		case "low", "medium", "high":
		default:
			return nil, fmt.Errorf("openrouter: invalid effort %q for model %q", effort, model)
		}
		payload := map[string]any{"effort": effort}
		if cfg.Exclude {
			payload["exclude"] = true
		}
		return payload, nil

	case catalog.ReasoningMaxTokens:
		if cfg.Effort != "" {
			return nil, fmt.Errorf("openrouter: model %q takes a token budget, not an effort level", model)
		}
		budget := cfg.MaxTokens
		if budget == 0 {
			budget = cat.DefaultThinkingTokens
		}
		if budget < 0 {
			return nil, fmt.Errorf("openrouter: negative thinking budget %d for model %q", budget, model)
		}
		payload := map[string]any{"max_tokens": budget}
		if cfg.Exclude {
			payload["exclude"] = true
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("openrouter: model %q has unknown reasoning class %v", model, class)
	}
}
