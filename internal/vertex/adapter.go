package vertex

import (
	"strings"

	"github.com/marcusvvm/chatbot-vertex-v2/models"
)

// safetyCategoryNames maps the short category keys used in stored safety
// settings to the API's harm category names. Unknown keys are dropped.
var safetyCategoryNames = map[string]string{
	"harassment":        "HARM_CATEGORY_HARASSMENT",
	"hate_speech":       "HARM_CATEGORY_HATE_SPEECH",
	"sexually_explicit": "HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"dangerous_content": "HARM_CATEGORY_DANGEROUS_CONTENT",
}

// BuildGenerateRequest translates a resolved configuration and conversation
// into a generateContent request. The system instruction is the resolved base
// instruction with the fixed instruction blocks appended; generation
// parameters pass through, with the thinking fields nested the way the API
// wants them.
func BuildGenerateRequest(cfg *models.EffectiveConfig, fixed *models.FixedRules, history []Content, message string) *GenerateRequest {
	contents := make([]Content, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, Content{
		Role:  "user",
		Parts: []Part{{Text: message}},
	})

	req := &GenerateRequest{
		Contents: contents,
		SystemInstruction: &Content{
			Parts: []Part{{Text: buildSystemInstruction(cfg, fixed)}},
		},
		GenerationConfig: buildGenerationConfig(cfg),
		SafetySettings:   buildSafetySettings(cfg.SafetySettings),
	}

	return req
}

// buildSystemInstruction concatenates the resolved base instruction with the
// fixed instruction blocks, in the fixed order the prompt expects.
func buildSystemInstruction(cfg *models.EffectiveConfig, fixed *models.FixedRules) string {
	blocks := []string{cfg.SystemInstruction, cfg.FormattingRules}
	if cfg.GroundingRules != "" {
		blocks = append(blocks, cfg.GroundingRules)
	}
	if fixed != nil {
		if fixed.ToolUsageInstructions != "" {
			blocks = append(blocks, fixed.ToolUsageInstructions)
		}
		if fixed.ContextManagementInstructions != "" {
			blocks = append(blocks, fixed.ContextManagementInstructions)
		}
	}

	nonEmpty := blocks[:0]
	for _, b := range blocks {
		if b != "" {
			nonEmpty = append(nonEmpty, b)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

// buildGenerationConfig flattens the generation parameters into the wire
// shape. Known fields map to their camelCase API names, the thinking fields
// nest under thinkingConfig, and passthrough fields go through untouched
// under their stored names.
func buildGenerationConfig(cfg *models.EffectiveConfig) map[string]any {
	gen := cfg.GenerationConfig
	out := make(map[string]any)

	for key, value := range gen.Extra {
		out[key] = value
	}
	if gen.Temperature != nil {
		out["temperature"] = *gen.Temperature
	}
	if gen.TopP != nil {
		out["topP"] = *gen.TopP
	}
	if gen.TopK != nil {
		out["topK"] = *gen.TopK
	}
	if gen.MaxOutputTokens != nil {
		out["maxOutputTokens"] = *gen.MaxOutputTokens
	}

	thinking := make(map[string]any)
	switch {
	case gen.ThinkingBudget != nil:
		thinking["thinkingBudget"] = *gen.ThinkingBudget
	case gen.ThinkingLevel != nil:
		thinking["thinkingLevel"] = *gen.ThinkingLevel
	case cfg.ThinkingBudget > 0:
		// Top-level thinking budget is the fallback when the generation
		// config carries neither thinking field.
		thinking["thinkingBudget"] = cfg.ThinkingBudget
	}
	if len(thinking) > 0 {
		out["thinkingConfig"] = thinking
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// buildSafetySettings converts the stored category map to the wire list.
// Thresholds are forwarded verbatim.
func buildSafetySettings(settings map[string]any) []SafetySetting {
	if len(settings) == 0 {
		return nil
	}

	out := make([]SafetySetting, 0, len(settings))
	for key, value := range settings {
		category, known := safetyCategoryNames[key]
		if !known {
			continue
		}
		threshold, ok := value.(string)
		if !ok {
			continue
		}
		out = append(out, SafetySetting{
			Category:  category,
			Threshold: threshold,
		})
	}
	return out
}
