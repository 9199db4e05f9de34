// Package lifecycle reacts to corpus lifecycle events so configuration
// documents do not outlive the corpora they describe.
package lifecycle

import (
	"context"

	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"go.uber.org/zap"
)

// Coordinator cleans up per-corpus configuration on corpus deletion
type Coordinator struct {
	store  repositories.ConfigStore
	logger *zap.Logger
}

// NewCoordinator creates a new lifecycle Coordinator
func NewCoordinator(store repositories.ConfigStore, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		logger: logger,
	}
}

// OnCorpusDeleted removes the corpus's configuration override. A corpus that
// never had one is a success; cleanup must not block corpus deletion. Storage
// failures are returned so the caller can schedule a retry, but the corpus
// deletion itself has already happened.
func (c *Coordinator) OnCorpusDeleted(ctx context.Context, corpusID string) error {
	if err := c.store.DeleteCorpusOverride(ctx, corpusID); err != nil {
		c.logger.Error("failed to clean up corpus configuration",
			zap.String("corpus_id", corpusID),
			zap.Error(err))
		return err
	}

	c.logger.Info("corpus configuration cleaned up", zap.String("corpus_id", corpusID))
	return nil
}
