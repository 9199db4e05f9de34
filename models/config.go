package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// Declared ranges for the known customizable fields. Values outside these
// ranges are rejected at the API boundary; passthrough fields are never
// checked locally (validation is delegated to the Vertex API).
const (
	MaxSystemInstructionLen = 10000
	MaxPresetIDLen          = 64

	MinRAGRetrievalTopK = 1
	MaxRAGRetrievalTopK = 50
	MinTimeoutSeconds   = 10.0
	MaxTimeoutSeconds   = 300.0
	MinThinkingBudget   = 128
	MaxThinkingBudget   = 4096
	MinHistoryLength    = 1
	MaxHistoryLength    = 100
)

// GenerationParameters holds LLM generation parameters. The named fields are
// the ones this engine knows about; everything else a client sends lands in
// Extra and is stored and forwarded verbatim (passthrough for newer Gemini
// parameters this engine predates).
type GenerationParameters struct {
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxOutputTokens *int
	ThinkingBudget  *int
	ThinkingLevel   *string

	// Extra carries unknown fields untouched.
	Extra map[string]any
}

// UnmarshalJSON splits the document into known fields and the passthrough map.
func (g *GenerationParameters) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*g = GenerationParameters{}
	for key, value := range raw {
		var err error
		switch key {
		case "temperature":
			err = json.Unmarshal(value, &g.Temperature)
		case "top_p":
			err = json.Unmarshal(value, &g.TopP)
		case "top_k":
			err = json.Unmarshal(value, &g.TopK)
		case "max_output_tokens":
			err = json.Unmarshal(value, &g.MaxOutputTokens)
		case "thinking_budget":
			err = json.Unmarshal(value, &g.ThinkingBudget)
		case "thinking_level":
			err = json.Unmarshal(value, &g.ThinkingLevel)
		default:
			var v any
			if err = json.Unmarshal(value, &v); err == nil {
				if g.Extra == nil {
					g.Extra = make(map[string]any)
				}
				g.Extra[key] = v
			}
		}
		if err != nil {
			return fmt.Errorf("generation_config field %q: %w", key, err)
		}
	}
	return nil
}

// MarshalJSON flattens known fields and the passthrough map back into a
// single object, so stored documents look exactly like what clients sent.
func (g GenerationParameters) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(g.Extra)+6)
	for key, value := range g.Extra {
		out[key] = value
	}
	if g.Temperature != nil {
		out["temperature"] = *g.Temperature
	}
	if g.TopP != nil {
		out["top_p"] = *g.TopP
	}
	if g.TopK != nil {
		out["top_k"] = *g.TopK
	}
	if g.MaxOutputTokens != nil {
		out["max_output_tokens"] = *g.MaxOutputTokens
	}
	if g.ThinkingBudget != nil {
		out["thinking_budget"] = *g.ThinkingBudget
	}
	if g.ThinkingLevel != nil {
		out["thinking_level"] = *g.ThinkingLevel
	}
	return json.Marshal(out)
}

// IsZero reports whether no field, known or passthrough, is set.
func (g GenerationParameters) IsZero() bool {
	return g.Temperature == nil && g.TopP == nil && g.TopK == nil &&
		g.MaxOutputTokens == nil && g.ThinkingBudget == nil &&
		g.ThinkingLevel == nil && len(g.Extra) == 0
}

// Validate checks the known fields against their declared ranges.
// Passthrough fields bypass validation entirely.
func (g GenerationParameters) Validate() error {
	if g.Temperature != nil && (*g.Temperature < 0 || *g.Temperature > 2 || math.IsNaN(*g.Temperature)) {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", *g.Temperature)
	}
	if g.TopP != nil && (*g.TopP < 0 || *g.TopP > 1 || math.IsNaN(*g.TopP)) {
		return fmt.Errorf("top_p must be between 0 and 1, got %v", *g.TopP)
	}
	if g.TopK != nil && *g.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", *g.TopK)
	}
	if g.MaxOutputTokens != nil && *g.MaxOutputTokens < 1 {
		return fmt.Errorf("max_output_tokens must be at least 1, got %d", *g.MaxOutputTokens)
	}
	if g.ThinkingBudget != nil && *g.ThinkingBudget < 0 {
		return fmt.Errorf("thinking_budget must not be negative, got %d", *g.ThinkingBudget)
	}
	if g.ThinkingLevel != nil {
		switch *g.ThinkingLevel {
		case "low", "medium", "high":
		default:
			return fmt.Errorf("thinking_level must be one of: low, medium, high")
		}
	}
	return nil
}

// MergeGenerationParameters overlays override on top of base: named fields
// present in the override replace the base value, and the passthrough maps
// are unioned with override keys winning on collision. Neither input is
// modified.
func MergeGenerationParameters(base, override GenerationParameters) GenerationParameters {
	merged := base
	if override.Temperature != nil {
		merged.Temperature = override.Temperature
	}
	if override.TopP != nil {
		merged.TopP = override.TopP
	}
	if override.TopK != nil {
		merged.TopK = override.TopK
	}
	if override.MaxOutputTokens != nil {
		merged.MaxOutputTokens = override.MaxOutputTokens
	}
	if override.ThinkingBudget != nil {
		merged.ThinkingBudget = override.ThinkingBudget
	}
	if override.ThinkingLevel != nil {
		merged.ThinkingLevel = override.ThinkingLevel
	}
	if len(base.Extra) > 0 || len(override.Extra) > 0 {
		merged.Extra = make(map[string]any, len(base.Extra)+len(override.Extra))
		for key, value := range base.Extra {
			merged.Extra[key] = value
		}
		for key, value := range override.Extra {
			merged.Extra[key] = value
		}
	}
	return merged
}

// CorpusOverride is the per-corpus configuration document. It is sparse:
// only fields the corpus explicitly customized are set; everything else
// inherits from GlobalDefaults at resolution time, not at write time.
type CorpusOverride struct {
	SystemInstruction *string               `json:"system_instruction,omitempty"`
	ModelName         *string               `json:"model_name,omitempty"`
	GenerationConfig  *GenerationParameters `json:"generation_config,omitempty"`
	RAGRetrievalTopK  *int                  `json:"rag_retrieval_top_k,omitempty"`
	TimeoutSeconds    *float64              `json:"timeout_seconds,omitempty"`
	ThinkingBudget    *int                  `json:"thinking_budget,omitempty"`
	MaxHistoryLength  *int                  `json:"max_history_length,omitempty"`
}

// Validate checks every present field against its declared range. Absent
// fields never fail validation.
func (o *CorpusOverride) Validate() error {
	if o.SystemInstruction != nil && len(*o.SystemInstruction) > MaxSystemInstructionLen {
		return fmt.Errorf("system_instruction must be at most %d characters", MaxSystemInstructionLen)
	}
	if o.GenerationConfig != nil {
		if err := o.GenerationConfig.Validate(); err != nil {
			return err
		}
	}
	if o.RAGRetrievalTopK != nil && (*o.RAGRetrievalTopK < MinRAGRetrievalTopK || *o.RAGRetrievalTopK > MaxRAGRetrievalTopK) {
		return fmt.Errorf("rag_retrieval_top_k must be between %d and %d", MinRAGRetrievalTopK, MaxRAGRetrievalTopK)
	}
	if o.TimeoutSeconds != nil && (*o.TimeoutSeconds < MinTimeoutSeconds || *o.TimeoutSeconds > MaxTimeoutSeconds) {
		return fmt.Errorf("timeout_seconds must be between %v and %v", MinTimeoutSeconds, MaxTimeoutSeconds)
	}
	if o.ThinkingBudget != nil && (*o.ThinkingBudget < MinThinkingBudget || *o.ThinkingBudget > MaxThinkingBudget) {
		return fmt.Errorf("thinking_budget must be between %d and %d", MinThinkingBudget, MaxThinkingBudget)
	}
	if o.MaxHistoryLength != nil && (*o.MaxHistoryLength < MinHistoryLength || *o.MaxHistoryLength > MaxHistoryLength) {
		return fmt.Errorf("max_history_length must be between %d and %d", MinHistoryLength, MaxHistoryLength)
	}
	return nil
}

// MergeOverride overlays update on top of base field by field. Fields absent
// from the update keep the base value; generation parameters merge with the
// passthrough union semantics above. Returns a new document.
func MergeOverride(base, update *CorpusOverride) *CorpusOverride {
	if base == nil {
		base = &CorpusOverride{}
	}
	merged := *base
	if update == nil {
		return &merged
	}
	if update.SystemInstruction != nil {
		merged.SystemInstruction = update.SystemInstruction
	}
	if update.ModelName != nil {
		merged.ModelName = update.ModelName
	}
	if update.GenerationConfig != nil {
		if base.GenerationConfig != nil {
			mergedGen := MergeGenerationParameters(*base.GenerationConfig, *update.GenerationConfig)
			merged.GenerationConfig = &mergedGen
		} else {
			genCopy := *update.GenerationConfig
			merged.GenerationConfig = &genCopy
		}
	}
	if update.RAGRetrievalTopK != nil {
		merged.RAGRetrievalTopK = update.RAGRetrievalTopK
	}
	if update.TimeoutSeconds != nil {
		merged.TimeoutSeconds = update.TimeoutSeconds
	}
	if update.ThinkingBudget != nil {
		merged.ThinkingBudget = update.ThinkingBudget
	}
	if update.MaxHistoryLength != nil {
		merged.MaxHistoryLength = update.MaxHistoryLength
	}
	return &merged
}

// Preset is a named, reusable bundle of the same customizable fields a
// CorpusOverride carries, plus display metadata. Core presets (the four
// canonical ids) are immutable once seeded.
type Preset struct {
	ID          string `json:"id" validate:"required,max=64"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsCore      bool   `json:"is_core"`

	SystemInstruction *string               `json:"system_instruction,omitempty"`
	ModelName         *string               `json:"model_name,omitempty"`
	GenerationConfig  *GenerationParameters `json:"generation_config,omitempty"`
	RAGRetrievalTopK  *int                  `json:"rag_retrieval_top_k,omitempty"`
	TimeoutSeconds    *float64              `json:"timeout_seconds,omitempty"`
	ThinkingBudget    *int                  `json:"thinking_budget,omitempty"`
	MaxHistoryLength  *int                  `json:"max_history_length,omitempty"`
}

// Fields returns the preset's customizable fields as an override document.
// Applying a preset to a corpus replaces the override with exactly this.
func (p *Preset) Fields() *CorpusOverride {
	return &CorpusOverride{
		SystemInstruction: p.SystemInstruction,
		ModelName:         p.ModelName,
		GenerationConfig:  p.GenerationConfig,
		RAGRetrievalTopK:  p.RAGRetrievalTopK,
		TimeoutSeconds:    p.TimeoutSeconds,
		ThinkingBudget:    p.ThinkingBudget,
		MaxHistoryLength:  p.MaxHistoryLength,
	}
}

// Validate checks the preset id and every present customizable field.
func (p *Preset) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("preset id is required")
	}
	if len(p.ID) > MaxPresetIDLen {
		return fmt.Errorf("preset id must be at most %d characters", MaxPresetIDLen)
	}
	return p.Fields().Validate()
}

// PresetSummary is the list-view projection of a preset.
type PresetSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ModelName   string `json:"model_name"`
	IsCore      bool   `json:"is_core"`
}

// Summary builds the list-view projection.
func (p *Preset) Summary() PresetSummary {
	modelName := ""
	if p.ModelName != nil {
		modelName = *p.ModelName
	}
	return PresetSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ModelName:   modelName,
		IsCore:      p.IsCore,
	}
}

// FixedRules is the process-wide immutable layer: formatting, grounding and
// safety rules that no default or override can touch. Loaded once at startup,
// reloaded only through the operational reload.
type FixedRules struct {
	FormattingRules              string         `json:"formatting_rules"`
	GroundingRules               string         `json:"grounding_rules"`
	SafetySettings               map[string]any `json:"safety_settings"`
	ToolUsageInstructions        string         `json:"tool_usage_instructions,omitempty"`
	ContextManagementInstructions string        `json:"context_management_instructions,omitempty"`
	CriticalReminder             string         `json:"critical_reminder,omitempty"`
}

// GlobalDefaults holds the default value for every customizable field.
// Mutable only through the operational channel, never via the tenant API.
type GlobalDefaults struct {
	SystemInstruction string               `json:"system_instruction"`
	ModelName         string               `json:"model_name"`
	GenerationConfig  GenerationParameters `json:"generation_config"`
	RAGRetrievalTopK  int                  `json:"rag_retrieval_top_k"`
	TimeoutSeconds    float64              `json:"timeout_seconds"`
	ThinkingBudget    int                  `json:"thinking_budget"`
	MaxHistoryLength  int                  `json:"max_history_length"`
}

// EffectiveConfig is the fully merged per-corpus configuration handed to the
// model-invocation client. It is computed on every resolve and never persisted.
type EffectiveConfig struct {
	SystemInstruction string               `json:"system_instruction"`
	ModelName         string               `json:"model_name"`
	GenerationConfig  GenerationParameters `json:"generation_config"`
	RAGRetrievalTopK  int                  `json:"rag_retrieval_top_k"`
	TimeoutSeconds    float64              `json:"timeout_seconds"`
	ThinkingBudget    int                  `json:"thinking_budget"`
	MaxHistoryLength  int                  `json:"max_history_length"`

	FormattingRules string         `json:"formatting_rules"`
	GroundingRules  string         `json:"grounding_rules"`
	SafetySettings  map[string]any `json:"safety_settings"`

	HasCustomConfig bool `json:"has_custom_config"`
}
