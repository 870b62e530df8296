// Package store persists stage map documents.
//
// All backends implement [Store] and hold whole documents under their ID:
//
//   - [MemoryStore]: process memory, for tests and --store memory
//   - [FileStore]: one JSON file per document
//   - [RedisStore]: one key per document (go-redis)
//   - [MongoStore]: one BSON document per map (mongo-driver)
//   - [BadgerStore]: embedded key-value store (badger)
//
// [Open] builds the backend selected in the configuration. Documents are
// validated when loaded, so a Get never returns a map that breaks the stage
// invariants. Missing documents are reported with errors.ErrCodeNotFound.
package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/stagemap/pkg/config"
	"github.com/matzehuels/stagemap/pkg/document"
	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/observability"
)

// Store loads and saves documents.
type Store interface {
	// Get returns the document with id.
	Get(ctx context.Context, id string) (*document.Document, error)

	// Put creates or replaces a document.
	Put(ctx context.Context, doc *document.Document) error

	// Delete removes a document.
	Delete(ctx context.Context, id string) error

	// List returns a summary of every document, sorted by name.
	List(ctx context.Context) ([]Summary, error)

	// Close releases the backend.
	Close() error
}

// Summary describes a stored document without its stages.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Stages    int       `json:"stages"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Open returns the backend named in cfg.Backend.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile, "":
		return NewFileStore(cfg.Dir)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case config.BackendMongo:
		return NewMongoStore(ctx, cfg.Mongo)
	case config.BackendBadger:
		return NewBadgerStore(cfg.Badger)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown store backend %q", cfg.Backend)
	}
}

// =============================================================================
// Helpers
// =============================================================================

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "map %q not found", id)
}

func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return errors.New(errors.ErrCodeInvalidInput, "invalid map id %q", id)
	}
	return nil
}

func encode(doc *document.Document) ([]byte, error) {
	if err := checkID(doc.ID); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return document.Marshal(doc, document.FormatJSON)
}

func decode(data []byte) (*document.Document, error) {
	return document.Unmarshal(data, document.FormatJSON)
}

func summarize(doc *document.Document) Summary {
	return Summary{ID: doc.ID, Name: doc.Name, Stages: len(doc.Elements), UpdatedAt: doc.UpdatedAt}
}

func sortSummaries(s []Summary) {
	slices.SortFunc(s, func(a, b Summary) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// observeLoad reports a read to the store hooks.
func observeLoad(ctx context.Context, backend, id string, start time.Time, err error) {
	observability.Store().OnLoad(ctx, backend, id, time.Since(start), err)
}

// observeSave reports a write to the store hooks.
func observeSave(ctx context.Context, backend, id string, size int, start time.Time, err error) {
	observability.Store().OnSave(ctx, backend, id, size, time.Since(start), err)
}
