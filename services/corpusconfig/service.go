// Package corpusconfig exposes the tenant-facing view of per-corpus
// configuration: read the effective config, edit the override, reset it.
package corpusconfig

import (
	"context"

	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"github.com/marcusvvm/chatbot-vertex-v2/services"
	"github.com/marcusvvm/chatbot-vertex-v2/services/resolver"
	"go.uber.org/zap"
)

// Service handles corpus configuration reads and writes
type Service struct {
	store    repositories.ConfigStore
	resolver *resolver.Service
	logger   *zap.Logger
}

// NewService creates a new corpus configuration Service
func NewService(store repositories.ConfigStore, res *resolver.Service, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		resolver: res,
		logger:   logger,
	}
}

// Get returns the effective configuration for a corpus. The result is always
// complete: a corpus with no override sees the global defaults, flagged with
// has_custom_config=false.
func (s *Service) Get(ctx context.Context, corpusID string) (*models.EffectiveConfig, error) {
	return s.resolver.Resolve(ctx, corpusID)
}

// GetOverride returns the raw sparse override document, or (nil, nil) when
// the corpus has no custom configuration.
func (s *Service) GetOverride(ctx context.Context, corpusID string) (*models.CorpusOverride, error) {
	return s.store.GetCorpusOverride(ctx, corpusID)
}

// Put merges the update onto the stored override field by field and persists
// the result. Fields absent from the update keep their stored value; there is
// no way to unset a single field short of deleting the whole override.
// Returns the effective configuration after the write.
func (s *Service) Put(ctx context.Context, corpusID string, update *models.CorpusOverride) (*models.EffectiveConfig, error) {
	if err := update.Validate(); err != nil {
		return nil, services.WrapValidation(err.Error(), err)
	}

	existing, err := s.store.GetCorpusOverride(ctx, corpusID)
	if err != nil {
		return nil, err
	}

	merged := models.MergeOverride(existing, update)
	if err := s.store.SaveCorpusOverride(ctx, corpusID, merged); err != nil {
		return nil, err
	}

	s.logger.Info("corpus configuration updated", zap.String("corpus_id", corpusID))
	return s.resolver.Resolve(ctx, corpusID)
}

// Delete removes the override, restoring the corpus to pure global defaults.
// Deleting a corpus that has no override is a not-found error on this
// explicit channel; lifecycle cleanup uses the store directly and does not
// care.
func (s *Service) Delete(ctx context.Context, corpusID string) error {
	existing, err := s.store.GetCorpusOverride(ctx, corpusID)
	if err != nil {
		return err
	}
	if existing == nil {
		return services.NewDomainError(services.ErrorTypeNotFound, "corpus has no custom configuration", nil).
			WithDetail("corpus_id", corpusID)
	}

	if err := s.store.DeleteCorpusOverride(ctx, corpusID); err != nil {
		return err
	}

	s.logger.Info("corpus configuration reset to defaults", zap.String("corpus_id", corpusID))
	return nil
}

// GlobalView is the tenant-visible global configuration: the customizable
// defaults plus the readable parts of the fixed layer. Safety settings and
// the internal instruction blocks stay server-side.
type GlobalView struct {
	Defaults        *models.GlobalDefaults `json:"defaults"`
	FormattingRules string                 `json:"formatting_rules"`
	GroundingRules  string                 `json:"grounding_rules"`
}

// Global returns the global defaults together with the readable fixed rules.
func (s *Service) Global(ctx context.Context) (*GlobalView, error) {
	defaults, err := s.store.GetGlobalDefaults(ctx)
	if err != nil {
		return nil, err
	}
	fixed, err := s.store.GetFixedRules(ctx)
	if err != nil {
		return nil, err
	}
	return &GlobalView{
		Defaults:        defaults,
		FormattingRules: fixed.FormattingRules,
		GroundingRules:  fixed.GroundingRules,
	}, nil
}
