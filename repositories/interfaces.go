package repositories

import (
	"context"

	"github.com/marcusvvm/chatbot-vertex-v2/models"
)

// ConfigStore is the durable persistence boundary for the four configuration
// document classes: the FixedRules singleton, the GlobalDefaults singleton,
// at most one CorpusOverride per corpus id, and named presets.
//
// Implementations must guarantee document-level atomicity: concurrent writers
// to the same document may race (last writer wins), but a reader must never
// observe a torn document. Implementations report an unreachable medium as a
// storage error and an unparseable document as a corruption error; corruption
// is never reported as absence.
type ConfigStore interface {
	// GetFixedRules loads the immutable rules singleton.
	GetFixedRules(ctx context.Context) (*models.FixedRules, error)

	// GetGlobalDefaults loads the global defaults singleton.
	GetGlobalDefaults(ctx context.Context) (*models.GlobalDefaults, error)

	// SaveGlobalDefaults replaces the global defaults singleton. This is the
	// operational channel; it is not reachable from the tenant-facing API.
	SaveGlobalDefaults(ctx context.Context, defaults *models.GlobalDefaults) error

	// GetCorpusOverride returns the override for a corpus, or (nil, nil) when
	// the corpus has no custom configuration. Absence is not an error.
	GetCorpusOverride(ctx context.Context, corpusID string) (*models.CorpusOverride, error)

	// SaveCorpusOverride atomically replaces the override document.
	SaveCorpusOverride(ctx context.Context, corpusID string, override *models.CorpusOverride) error

	// DeleteCorpusOverride removes the override. Deleting an absent override
	// succeeds silently.
	DeleteCorpusOverride(ctx context.Context, corpusID string) error

	// ListPresets returns every preset document.
	ListPresets(ctx context.Context) ([]*models.Preset, error)

	// GetPreset returns a preset by id, or (nil, nil) when absent.
	GetPreset(ctx context.Context, presetID string) (*models.Preset, error)

	// SavePreset atomically creates or replaces a preset document.
	SavePreset(ctx context.Context, preset *models.Preset) error

	// DeletePreset removes a preset. Deleting an absent preset succeeds
	// silently; existence checks belong to the caller.
	DeletePreset(ctx context.Context, presetID string) error
}
