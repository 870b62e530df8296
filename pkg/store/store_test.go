package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/stagemap/pkg/config"
	"github.com/matzehuels/stagemap/pkg/document"
	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/observability"
	"github.com/matzehuels/stagemap/pkg/stage"
)

func newDoc(id, name string) *document.Document {
	d := document.New(name, document.Map{Width: 1600, Height: 900})
	d.ID = id
	d.SetElements([]stage.Node{
		{ID: "a", Type: stage.TypeStage, Label: "A", Telemetry: stage.Telemetry{Width: 5, Height: 5}, Neighbors: stage.Neighbors{1}},
		{ID: "b", Type: stage.TypeStage, Label: "B", Telemetry: stage.Telemetry{X: 50, Width: 5, Height: 5}, Neighbors: stage.Neighbors{0}},
	})
	return d
}

// testStore runs the behavior every backend shares.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
	}

	if err := s.Put(ctx, newDoc("m2", "Zoo")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, newDoc("m1", "Museum")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Museum" || len(got.Elements) != 2 || got.Elements[1].Index != 1 {
		t.Errorf("Get = %+v", got)
	}

	// Mutating the returned document must not affect the store.
	got.Elements[0].Label = "changed"
	again, _ := s.Get(ctx, "m1")
	if again.Elements[0].Label != "A" {
		t.Error("store shares memory with caller")
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Museum" || list[1].Name != "Zoo" || list[0].Stages != 2 {
		t.Errorf("List = %+v", list)
	}

	broken := newDoc("m3", "Broken")
	broken.Elements[1].Neighbors = nil
	if err := s.Put(ctx, broken); !errors.Is(err, errors.ErrCodeInvalidDocument) {
		t.Errorf("Put(broken) error = %v, want INVALID_DOCUMENT", err)
	}

	if err := s.Delete(ctx, "m2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "m2"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("second Delete error = %v, want NOT_FOUND", err)
	}
	if list, _ := s.List(ctx); len(list) != 1 {
		t.Errorf("List after delete = %+v", list)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "maps"))
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)

	if _, err := os.Stat(filepath.Join(s.Path(), "m1.json")); err != nil {
		t.Errorf("document file missing: %v", err)
	}
	if err := os.WriteFile(filepath.Join(s.Path(), "junk.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if list, err := s.List(context.Background()); err != nil || len(list) != 1 {
		t.Errorf("List with junk = %+v, %v", list, err)
	}
	if _, err := s.Get(context.Background(), "../etc/passwd"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Get(traversal) error = %v, want INVALID_INPUT", err)
	}
}

func TestBadgerStore(t *testing.T) {
	s, err := NewBadgerStore(config.Badger{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}

type recordingHooks struct {
	observability.NoopStoreHooks
	loads, saves int
	backend      string
}

func (h *recordingHooks) OnLoad(_ context.Context, backend, _ string, _ time.Duration, _ error) {
	h.loads++
	h.backend = backend
}

func (h *recordingHooks) OnSave(_ context.Context, backend, _ string, _ int, _ time.Duration, _ error) {
	h.saves++
	h.backend = backend
}

func TestStoreHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetStoreHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	s := NewMemoryStore()
	s.Put(ctx, newDoc("m1", "Museum"))
	s.Get(ctx, "m1")
	s.Get(ctx, "nope")

	if hooks.saves != 1 || hooks.loads != 2 || hooks.backend != "memory" {
		t.Errorf("hooks = %+v", hooks)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     config.Store
		wantErr errors.Code
	}{
		{"memory", config.Store{Backend: config.BackendMemory}, ""},
		{"file", config.Store{Backend: config.BackendFile, Dir: t.TempDir()}, ""},
		{"badger", config.Store{Backend: config.BackendBadger, Badger: config.Badger{Dir: t.TempDir()}}, ""},
		{"unknown", config.Store{Backend: "sqlite"}, errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.cfg)
			if tt.wantErr != "" {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Open() error = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			defer s.Close()
			if err := s.Put(ctx, newDoc("x", "X")); err != nil {
				t.Errorf("Put: %v", err)
			}
		})
	}
}
