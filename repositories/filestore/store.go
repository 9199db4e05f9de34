// Package filestore persists configuration documents as JSON files on local
// disk, one file per document. Writes go to a temporary file in the same
// directory followed by an atomic rename, so a concurrent reader either sees
// the previous document or the new one, never a torn mix.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"github.com/marcusvvm/chatbot-vertex-v2/services"
	"go.uber.org/zap"
)

const (
	fixedFileName  = "fixed.json"
	globalFileName = "global.json"
	corpusDirName  = "corpus"
	presetDirName  = "presets"
)

// documentIDPattern restricts ids to filename-safe characters. Anything else
// is rejected before it can touch the filesystem.
var documentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store implements repositories.ConfigStore on top of a config directory:
//
//	<dir>/fixed.json
//	<dir>/global.json
//	<dir>/corpus/<corpus_id>.json
//	<dir>/presets/<preset_id>.json
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a Store rooted at dir, creating the corpus and preset
// subdirectories when missing.
func New(dir string, logger *zap.Logger) (*Store, error) {
	for _, sub := range []string{corpusDirName, presetDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, services.WrapStorage("failed to create config directory", err)
		}
	}
	return &Store{dir: dir, logger: logger}, nil
}

var _ repositories.ConfigStore = (*Store)(nil)

// GetFixedRules loads the immutable rules singleton. A missing fixed.json is
// a deployment error, reported as a storage failure.
func (s *Store) GetFixedRules(ctx context.Context) (*models.FixedRules, error) {
	var rules models.FixedRules
	found, err := s.readDocument(filepath.Join(s.dir, fixedFileName), &rules)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, services.WrapStorage("fixed rules document missing", os.ErrNotExist)
	}
	return &rules, nil
}

// GetGlobalDefaults loads the global defaults singleton.
func (s *Store) GetGlobalDefaults(ctx context.Context) (*models.GlobalDefaults, error) {
	var defaults models.GlobalDefaults
	found, err := s.readDocument(filepath.Join(s.dir, globalFileName), &defaults)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, services.WrapStorage("global defaults document missing", os.ErrNotExist)
	}
	return &defaults, nil
}

// SaveGlobalDefaults replaces the global defaults singleton.
func (s *Store) SaveGlobalDefaults(ctx context.Context, defaults *models.GlobalDefaults) error {
	return s.writeDocument(filepath.Join(s.dir, globalFileName), defaults)
}

// GetCorpusOverride returns the override for corpusID, or (nil, nil) when the
// corpus has no custom configuration.
func (s *Store) GetCorpusOverride(ctx context.Context, corpusID string) (*models.CorpusOverride, error) {
	path, err := s.corpusPath(corpusID)
	if err != nil {
		return nil, err
	}
	var override models.CorpusOverride
	found, err := s.readDocument(path, &override)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &override, nil
}

// SaveCorpusOverride atomically replaces the override document for corpusID.
func (s *Store) SaveCorpusOverride(ctx context.Context, corpusID string, override *models.CorpusOverride) error {
	path, err := s.corpusPath(corpusID)
	if err != nil {
		return err
	}
	if err := s.writeDocument(path, override); err != nil {
		return err
	}
	s.logger.Debug("corpus override saved", zap.String("corpus_id", corpusID))
	return nil
}

// DeleteCorpusOverride removes the override document. Deleting an absent
// override succeeds silently.
func (s *Store) DeleteCorpusOverride(ctx context.Context, corpusID string) error {
	path, err := s.corpusPath(corpusID)
	if err != nil {
		return err
	}
	return s.deleteDocument(path)
}

// ListPresets returns every preset document in the preset namespace.
func (s *Store) ListPresets(ctx context.Context) ([]*models.Preset, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, presetDirName))
	if err != nil {
		return nil, services.WrapStorage("failed to list presets", err)
	}

	presets := make([]*models.Preset, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var preset models.Preset
		found, err := s.readDocument(filepath.Join(s.dir, presetDirName, entry.Name()), &preset)
		if err != nil {
			return nil, err
		}
		if found {
			presets = append(presets, &preset)
		}
	}
	return presets, nil
}

// GetPreset returns a preset by id, or (nil, nil) when absent.
func (s *Store) GetPreset(ctx context.Context, presetID string) (*models.Preset, error) {
	path, err := s.presetPath(presetID)
	if err != nil {
		return nil, err
	}
	var preset models.Preset
	found, err := s.readDocument(path, &preset)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &preset, nil
}

// SavePreset atomically creates or replaces a preset document.
func (s *Store) SavePreset(ctx context.Context, preset *models.Preset) error {
	path, err := s.presetPath(preset.ID)
	if err != nil {
		return err
	}
	if err := s.writeDocument(path, preset); err != nil {
		return err
	}
	s.logger.Debug("preset saved", zap.String("preset_id", preset.ID))
	return nil
}

// DeletePreset removes a preset document. Absence succeeds silently.
func (s *Store) DeletePreset(ctx context.Context, presetID string) error {
	path, err := s.presetPath(presetID)
	if err != nil {
		return err
	}
	return s.deleteDocument(path)
}

func (s *Store) corpusPath(corpusID string) (string, error) {
	if !documentIDPattern.MatchString(corpusID) {
		return "", services.NewDomainError(services.ErrorTypeValidation, "invalid corpus id", nil).
			WithDetail("corpus_id", corpusID)
	}
	return filepath.Join(s.dir, corpusDirName, corpusID+".json"), nil
}

func (s *Store) presetPath(presetID string) (string, error) {
	if !documentIDPattern.MatchString(presetID) {
		return "", services.NewDomainError(services.ErrorTypeValidation, "invalid preset id", nil).
			WithDetail("preset_id", presetID)
	}
	return filepath.Join(s.dir, presetDirName, presetID+".json"), nil
}

// readDocument loads and parses a JSON document. Returns found=false when the
// file does not exist. A file that exists but does not parse is reported as
// corruption, never as absence.
func (s *Store) readDocument(path string, out interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, services.WrapStorage(fmt.Sprintf("failed to read %s", filepath.Base(path)), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Error("corrupted configuration document",
			zap.String("path", path),
			zap.Error(err))
		return false, services.WrapCorruption(fmt.Sprintf("document %s is unreadable", filepath.Base(path)), err)
	}
	return true, nil
}

// writeDocument serializes the document to a temporary file in the target
// directory, syncs it, then renames it over the destination. Rename within a
// directory is atomic on POSIX filesystems, which is what keeps concurrent
// readers from ever seeing a partial write.
func (s *Store) writeDocument(path string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.WrapStorage("failed to encode document", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return services.WrapStorage("failed to create temporary file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return services.WrapStorage("failed to write document", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return services.WrapStorage("failed to sync document", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return services.WrapStorage("failed to close temporary file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return services.WrapStorage("failed to replace document", err)
	}
	return nil
}

// deleteDocument removes a document, treating absence as success.
func (s *Store) deleteDocument(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return services.WrapStorage(fmt.Sprintf("failed to delete %s", filepath.Base(path)), err)
	}
	return nil
}
