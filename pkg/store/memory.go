package store

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/stagemap/pkg/document"
)

// MemoryStore keeps encoded documents in memory. Callers never share a
// document with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (doc *document.Document, err error) {
	start := time.Now()
	defer func() { observeLoad(ctx, "memory", id, start, err) }()

	s.mu.RLock()
	data, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return decode(data)
}

func (s *MemoryStore) Put(ctx context.Context, doc *document.Document) (err error) {
	start := time.Now()
	var data []byte
	defer func() { observeSave(ctx, "memory", doc.ID, len(data), start, err) }()

	if data, err = encode(doc); err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[doc.ID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return notFound(id)
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) List(context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.docs))
	for _, data := range s.docs {
		doc, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(doc))
	}
	sortSummaries(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
