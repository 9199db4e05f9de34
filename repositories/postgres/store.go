package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"github.com/marcusvvm/chatbot-vertex-v2/services"
	"go.uber.org/zap"
)

// Document classes stored in config_documents. Singletons use a fixed doc_id.
const (
	classFixed  = "fixed"
	classGlobal = "global"
	classCorpus = "corpus"
	classPreset = "preset"

	singletonID = "singleton"
)

// Store implements repositories.ConfigStore on a config_documents table.
// Writes are single-statement upserts, so document-level atomicity comes for
// free from the database; concurrent writers race last-writer-wins.
type Store struct {
	db     *DB
	logger *zap.Logger
}

// NewStore creates a new postgres-backed config store
func NewStore(db *DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

var _ repositories.ConfigStore = (*Store)(nil)

// GetFixedRules loads the immutable rules singleton.
func (s *Store) GetFixedRules(ctx context.Context) (*models.FixedRules, error) {
	var rules models.FixedRules
	found, err := s.getDocument(ctx, classFixed, singletonID, &rules)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, services.WrapStorage("fixed rules document missing", sql.ErrNoRows)
	}
	return &rules, nil
}

// GetGlobalDefaults loads the global defaults singleton.
func (s *Store) GetGlobalDefaults(ctx context.Context) (*models.GlobalDefaults, error) {
	var defaults models.GlobalDefaults
	found, err := s.getDocument(ctx, classGlobal, singletonID, &defaults)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, services.WrapStorage("global defaults document missing", sql.ErrNoRows)
	}
	return &defaults, nil
}

// SaveGlobalDefaults replaces the global defaults singleton.
func (s *Store) SaveGlobalDefaults(ctx context.Context, defaults *models.GlobalDefaults) error {
	return s.saveDocument(ctx, classGlobal, singletonID, defaults)
}

// GetCorpusOverride returns the override for corpusID, or (nil, nil) when absent.
func (s *Store) GetCorpusOverride(ctx context.Context, corpusID string) (*models.CorpusOverride, error) {
	var override models.CorpusOverride
	found, err := s.getDocument(ctx, classCorpus, corpusID, &override)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &override, nil
}

// SaveCorpusOverride upserts the override document for corpusID.
func (s *Store) SaveCorpusOverride(ctx context.Context, corpusID string, override *models.CorpusOverride) error {
	if err := s.saveDocument(ctx, classCorpus, corpusID, override); err != nil {
		return err
	}
	s.logger.Debug("corpus override saved", zap.String("corpus_id", corpusID))
	return nil
}

// DeleteCorpusOverride removes the override document. Absence succeeds silently.
func (s *Store) DeleteCorpusOverride(ctx context.Context, corpusID string) error {
	return s.deleteDocument(ctx, classCorpus, corpusID)
}

// ListPresets returns every preset document.
func (s *Store) ListPresets(ctx context.Context) ([]*models.Preset, error) {
	query := `
		SELECT doc_id, body
		FROM config_documents
		WHERE doc_class = $1
		ORDER BY doc_id
	`

	rows, err := s.db.QueryContext(ctx, query, classPreset)
	if err != nil {
		return nil, services.WrapStorage("failed to list presets", err)
	}
	defer rows.Close()

	var presets []*models.Preset
	for rows.Next() {
		var docID string
		var body []byte
		if err := rows.Scan(&docID, &body); err != nil {
			return nil, services.WrapStorage("failed to scan preset row", err)
		}
		var preset models.Preset
		if err := json.Unmarshal(body, &preset); err != nil {
			s.logger.Error("corrupted preset document",
				zap.String("preset_id", docID),
				zap.Error(err))
			return nil, services.WrapCorruption(fmt.Sprintf("preset %s is unreadable", docID), err)
		}
		presets = append(presets, &preset)
	}
	if err := rows.Err(); err != nil {
		return nil, services.WrapStorage("failed to iterate presets", err)
	}
	return presets, nil
}

// GetPreset returns a preset by id, or (nil, nil) when absent.
func (s *Store) GetPreset(ctx context.Context, presetID string) (*models.Preset, error) {
	var preset models.Preset
	found, err := s.getDocument(ctx, classPreset, presetID, &preset)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &preset, nil
}

// SavePreset upserts a preset document.
func (s *Store) SavePreset(ctx context.Context, preset *models.Preset) error {
	if err := s.saveDocument(ctx, classPreset, preset.ID, preset); err != nil {
		return err
	}
	s.logger.Debug("preset saved", zap.String("preset_id", preset.ID))
	return nil
}

// DeletePreset removes a preset document. Absence succeeds silently.
func (s *Store) DeletePreset(ctx context.Context, presetID string) error {
	return s.deleteDocument(ctx, classPreset, presetID)
}

// getDocument loads one document. Returns found=false when no row exists.
// A row that exists but does not parse is corruption, never absence.
func (s *Store) getDocument(ctx context.Context, docClass, docID string, out interface{}) (bool, error) {
	query := `
		SELECT body
		FROM config_documents
		WHERE doc_class = $1 AND doc_id = $2
	`

	var body []byte
	err := s.db.QueryRowContext(ctx, query, docClass, docID).Scan(&body)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, services.WrapStorage(fmt.Sprintf("failed to get %s document", docClass), err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		s.logger.Error("corrupted configuration document",
			zap.String("doc_class", docClass),
			zap.String("doc_id", docID),
			zap.Error(err))
		return false, services.WrapCorruption(fmt.Sprintf("%s document %s is unreadable", docClass, docID), err)
	}
	return true, nil
}

// saveDocument upserts one document in a single statement.
func (s *Store) saveDocument(ctx context.Context, docClass, docID string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return services.WrapStorage("failed to encode document", err)
	}

	query := `
		INSERT INTO config_documents (doc_class, doc_id, body, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (doc_class, doc_id)
		DO UPDATE SET body = EXCLUDED.body, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, docClass, docID, body); err != nil {
		return services.WrapStorage(fmt.Sprintf("failed to save %s document", docClass), err)
	}
	return nil
}

// deleteDocument removes one document; deleting a missing row is a no-op.
func (s *Store) deleteDocument(ctx context.Context, docClass, docID string) error {
	query := `
		DELETE FROM config_documents
		WHERE doc_class = $1 AND doc_id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, docClass, docID); err != nil {
		return services.WrapStorage(fmt.Sprintf("failed to delete %s document", docClass), err)
	}
	return nil
}
