// Package resolver computes the effective per-corpus configuration by merging
// the three layers: fixed rules, global defaults, and the corpus override.
// Precedence is fixed over everything, override over defaults, field by field.
package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"go.uber.org/zap"
)

// Service resolves effective configurations. The two singleton layers are
// cached in memory with a TTL bound on staleness; overrides are read fresh on
// every resolve so tenant edits take effect immediately.
type Service struct {
	store    repositories.ConfigStore
	logger   *zap.Logger
	cacheTTL time.Duration

	mu       sync.RWMutex
	fixed    *models.FixedRules
	global   *models.GlobalDefaults
	loadedAt time.Time
}

// NewService creates a new resolver Service
func NewService(store repositories.ConfigStore, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Resolve computes the effective configuration for a corpus. An absent
// override resolves to the global defaults; a present but empty override
// still marks the corpus as customized. Corruption and storage failures
// propagate unchanged so the caller can distinguish them.
func (s *Service) Resolve(ctx context.Context, corpusID string) (*models.EffectiveConfig, error) {
	fixed, global, err := s.layers(ctx)
	if err != nil {
		return nil, err
	}

	override, err := s.store.GetCorpusOverride(ctx, corpusID)
	if err != nil {
		return nil, err
	}

	// The maps are copied so the result never aliases the cached layers;
	// callers own what Resolve hands them.
	generation := global.GenerationConfig
	generation.Extra = cloneMap(generation.Extra)

	effective := &models.EffectiveConfig{
		SystemInstruction: global.SystemInstruction,
		ModelName:         global.ModelName,
		GenerationConfig:  generation,
		RAGRetrievalTopK:  global.RAGRetrievalTopK,
		TimeoutSeconds:    global.TimeoutSeconds,
		ThinkingBudget:    global.ThinkingBudget,
		MaxHistoryLength:  global.MaxHistoryLength,

		FormattingRules: fixed.FormattingRules,
		GroundingRules:  fixed.GroundingRules,
		SafetySettings:  cloneMap(fixed.SafetySettings),

		HasCustomConfig: override != nil,
	}

	if override != nil {
		applyOverride(effective, override)
	}

	s.logger.Debug("resolved effective config",
		zap.String("corpus_id", corpusID),
		zap.Bool("has_custom_config", effective.HasCustomConfig),
		zap.String("model_name", effective.ModelName))

	return effective, nil
}

// Reload discards the cached singleton layers and loads them again. Used by
// the operational reload endpoint after an out-of-band edit to fixed rules or
// global defaults.
func (s *Service) Reload(ctx context.Context) error {
	fixed, err := s.store.GetFixedRules(ctx)
	if err != nil {
		return err
	}
	global, err := s.store.GetGlobalDefaults(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.fixed = fixed
	s.global = global
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("configuration layers reloaded")
	return nil
}

// layers returns the cached fixed rules and global defaults, refreshing them
// when the cache is empty or older than the TTL. A zero TTL disables caching.
func (s *Service) layers(ctx context.Context) (*models.FixedRules, *models.GlobalDefaults, error) {
	s.mu.RLock()
	fixed, global, loadedAt := s.fixed, s.global, s.loadedAt
	s.mu.RUnlock()

	if fixed != nil && global != nil && s.cacheTTL > 0 && time.Since(loadedAt) < s.cacheTTL {
		return fixed, global, nil
	}

	if err := s.Reload(ctx); err != nil {
		// A stale cache beats a failed resolve when only the refresh failed.
		if fixed != nil && global != nil {
			s.logger.Warn("layer refresh failed, serving cached layers", zap.Error(err))
			return fixed, global, nil
		}
		return nil, nil, err
	}

	s.mu.RLock()
	fixed, global = s.fixed, s.global
	s.mu.RUnlock()
	return fixed, global, nil
}

// cloneMap returns a shallow copy of m, or nil for an empty input.
func cloneMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = value
	}
	return out
}

// applyOverride overlays the override's present fields onto the effective
// config. Generation parameters merge with passthrough union semantics.
func applyOverride(effective *models.EffectiveConfig, override *models.CorpusOverride) {
	if override.SystemInstruction != nil {
		effective.SystemInstruction = *override.SystemInstruction
	}
	if override.ModelName != nil {
		effective.ModelName = *override.ModelName
	}
	if override.GenerationConfig != nil {
		effective.GenerationConfig = models.MergeGenerationParameters(effective.GenerationConfig, *override.GenerationConfig)
	}
	if override.RAGRetrievalTopK != nil {
		effective.RAGRetrievalTopK = *override.RAGRetrievalTopK
	}
	if override.TimeoutSeconds != nil {
		effective.TimeoutSeconds = *override.TimeoutSeconds
	}
	if override.ThinkingBudget != nil {
		effective.ThinkingBudget = *override.ThinkingBudget
	}
	if override.MaxHistoryLength != nil {
		effective.MaxHistoryLength = *override.MaxHistoryLength
	}
}
