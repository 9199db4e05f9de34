// Package presets manages the named configuration preset catalog: the four
// seeded core presets plus tenant-created custom ones.
package presets

import (
	"context"
	"sort"

	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"github.com/marcusvvm/chatbot-vertex-v2/services"
	"go.uber.org/zap"
)

// coreIDs are the canonical preset ids. They are reserved: custom presets can
// never take these ids, and the seeded presets behind them can never be
// updated or deleted.
var coreIDs = map[string]struct{}{
	"balanced": {},
	"creative": {},
	"precise":  {},
	"fast":     {},
}

// IsCoreID reports whether id names one of the canonical core presets.
func IsCoreID(id string) bool {
	_, ok := coreIDs[id]
	return ok
}

// Service manages preset CRUD and applying presets to corpora
type Service struct {
	store  repositories.ConfigStore
	logger *zap.Logger
}

// NewService creates a new preset Service
func NewService(store repositories.ConfigStore, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Bootstrap seeds the four core presets when the catalog is empty. A catalog
// with any preset at all, core or custom, is left untouched, so a deployment
// that deliberately removed a core preset from storage stays that way.
func (s *Service) Bootstrap(ctx context.Context) error {
	existing, err := s.store.ListPresets(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, preset := range corePresets() {
		if err := s.store.SavePreset(ctx, preset); err != nil {
			return err
		}
	}
	s.logger.Info("seeded core presets", zap.Int("count", len(coreIDs)))
	return nil
}

// List returns summaries of every preset, core presets first, then
// alphabetically by id within each group.
func (s *Service) List(ctx context.Context) ([]models.PresetSummary, error) {
	presets, err := s.store.ListPresets(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(presets, func(i, j int) bool {
		if presets[i].IsCore != presets[j].IsCore {
			return presets[i].IsCore
		}
		return presets[i].ID < presets[j].ID
	})

	summaries := make([]models.PresetSummary, 0, len(presets))
	for _, preset := range presets {
		summaries = append(summaries, preset.Summary())
	}
	return summaries, nil
}

// Get returns the full preset document by id.
func (s *Service) Get(ctx context.Context, presetID string) (*models.Preset, error) {
	preset, err := s.store.GetPreset(ctx, presetID)
	if err != nil {
		return nil, err
	}
	if preset == nil {
		return nil, services.NewDomainError(services.ErrorTypeNotFound, "preset not found", nil).
			WithDetail("preset_id", presetID)
	}
	return preset, nil
}

// Create stores a new custom preset. Core ids are reserved and an existing id
// is a conflict; the stored document is always marked non-core regardless of
// what the client sent.
func (s *Service) Create(ctx context.Context, preset *models.Preset) (*models.Preset, error) {
	// The reserved-id check comes first: a core id is rejected as reserved no
	// matter what else is wrong with the payload.
	if IsCoreID(preset.ID) {
		return nil, services.NewDomainError(services.ErrorTypeReservedID, "preset id is reserved for a core preset", nil).
			WithDetail("preset_id", preset.ID)
	}
	if err := preset.Validate(); err != nil {
		return nil, services.WrapValidation(err.Error(), err)
	}

	existing, err := s.store.GetPreset(ctx, preset.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, services.NewDomainError(services.ErrorTypeDuplicateID, "preset id already exists", nil).
			WithDetail("preset_id", preset.ID)
	}

	if preset.Name == "" {
		preset.Name = preset.ID
	}
	preset.IsCore = false

	if err := s.store.SavePreset(ctx, preset); err != nil {
		return nil, err
	}

	s.logger.Info("preset created", zap.String("preset_id", preset.ID))
	return preset, nil
}

// Update merges the update onto an existing custom preset field by field.
// Core presets are immutable.
func (s *Service) Update(ctx context.Context, presetID string, update *models.Preset) (*models.Preset, error) {
	if IsCoreID(presetID) {
		return nil, services.NewDomainError(services.ErrorTypeImmutableCore, "core presets cannot be modified", nil).
			WithDetail("preset_id", presetID)
	}

	existing, err := s.store.GetPreset(ctx, presetID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, services.NewDomainError(services.ErrorTypeNotFound, "preset not found", nil).
			WithDetail("preset_id", presetID)
	}

	merged := mergePreset(existing, update)
	if err := merged.Validate(); err != nil {
		return nil, services.WrapValidation(err.Error(), err)
	}

	if err := s.store.SavePreset(ctx, merged); err != nil {
		return nil, err
	}

	s.logger.Info("preset updated", zap.String("preset_id", presetID))
	return merged, nil
}

// Delete removes a custom preset. Core presets cannot be deleted.
func (s *Service) Delete(ctx context.Context, presetID string) error {
	if IsCoreID(presetID) {
		return services.NewDomainError(services.ErrorTypeImmutableCore, "core presets cannot be deleted", nil).
			WithDetail("preset_id", presetID)
	}

	existing, err := s.store.GetPreset(ctx, presetID)
	if err != nil {
		return err
	}
	if existing == nil {
		return services.NewDomainError(services.ErrorTypeNotFound, "preset not found", nil).
			WithDetail("preset_id", presetID)
	}

	if err := s.store.DeletePreset(ctx, presetID); err != nil {
		return err
	}

	s.logger.Info("preset deleted", zap.String("preset_id", presetID))
	return nil
}

// Apply replaces the corpus override with the preset's fields. This is a full
// replace: customizations the corpus had before applying are gone, not merged
// under the preset.
func (s *Service) Apply(ctx context.Context, presetID, corpusID string) error {
	preset, err := s.store.GetPreset(ctx, presetID)
	if err != nil {
		return err
	}
	if preset == nil {
		return services.NewDomainError(services.ErrorTypeNotFound, "preset not found", nil).
			WithDetail("preset_id", presetID)
	}

	if err := s.store.SaveCorpusOverride(ctx, corpusID, preset.Fields()); err != nil {
		return err
	}

	s.logger.Info("preset applied",
		zap.String("preset_id", presetID),
		zap.String("corpus_id", corpusID))
	return nil
}

// mergePreset overlays the update's present fields onto the existing preset.
// Identity fields (id, is_core) come from the existing document.
func mergePreset(existing, update *models.Preset) *models.Preset {
	merged := *existing
	if update.Name != "" {
		merged.Name = update.Name
	}
	if update.Description != "" {
		merged.Description = update.Description
	}
	if update.SystemInstruction != nil {
		merged.SystemInstruction = update.SystemInstruction
	}
	if update.ModelName != nil {
		merged.ModelName = update.ModelName
	}
	if update.GenerationConfig != nil {
		merged.GenerationConfig = update.GenerationConfig
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

// corePresets builds the seed documents for the four canonical presets.
func corePresets() []*models.Preset {
	return []*models.Preset{
		{
			ID:          "balanced",
			Name:        "Equilibrado (Recomendado)",
			Description: "Respostas precisas e rápidas. Bom para uso geral.",
			IsCore:      true,
			ModelName:   strPtr("gemini-2.5-pro"),
			GenerationConfig: &models.GenerationParameters{
				Temperature:     floatPtr(0.2),
				TopP:            floatPtr(0.8),
				TopK:            intPtr(40),
				MaxOutputTokens: intPtr(4096),
				ThinkingBudget:  intPtr(1024),
			},
			RAGRetrievalTopK: intPtr(10),
			MaxHistoryLength: intPtr(20),
		},
		{
			ID:          "creative",
			Name:        "Criativo",
			Description: "Respostas mais elaboradas. Melhor para explicações complexas.",
			IsCore:      true,
			ModelName:   strPtr("gemini-2.5-pro"),
			GenerationConfig: &models.GenerationParameters{
				Temperature:     floatPtr(0.5),
				TopP:            floatPtr(0.95),
				TopK:            intPtr(60),
				MaxOutputTokens: intPtr(8192),
				ThinkingBudget:  intPtr(2048),
			},
			RAGRetrievalTopK: intPtr(15),
			MaxHistoryLength: intPtr(20),
		},
		{
			ID:          "precise",
			Name:        "Preciso",
			Description: "Respostas concisas e factuais. Ideal para consultas rápidas.",
			IsCore:      true,
			ModelName:   strPtr("gemini-2.5-flash"),
			GenerationConfig: &models.GenerationParameters{
				Temperature:     floatPtr(0.1),
				TopP:            floatPtr(0.7),
				TopK:            intPtr(20),
				MaxOutputTokens: intPtr(2048),
			},
			RAGRetrievalTopK: intPtr(5),
			MaxHistoryLength: intPtr(20),
		},
		{
			ID:          "fast",
			Name:        "Rápido",
			Description: "Otimizado para velocidade. Menor latência.",
			IsCore:      true,
			ModelName:   strPtr("gemini-2.5-flash"),
			GenerationConfig: &models.GenerationParameters{
				Temperature:     floatPtr(0.2),
				MaxOutputTokens: intPtr(1024),
			},
			RAGRetrievalTopK: intPtr(3),
			MaxHistoryLength: intPtr(10),
		},
	}
}

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
