package session

import (
	"context"
	"testing"

	"github.com/matzehuels/stagemap/pkg/config"
	"github.com/matzehuels/stagemap/pkg/document"
	"github.com/matzehuels/stagemap/pkg/editor"
	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/stage"
	"github.com/matzehuels/stagemap/pkg/store"
)

func seed(t *testing.T, st store.Store, nodes ...stage.Node) *document.Document {
	t.Helper()
	doc := document.New("Festival", document.Map{Width: 1000, Height: 500})
	doc.SetElements(nodes)
	if err := st.Put(context.Background(), doc); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return doc
}

func TestOpenSave(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	doc := seed(t, st, stage.Node{ID: "a", Type: "stage", Label: "Gate"})

	s, err := Open(ctx, st, doc.ID, config.Default(), Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Editor.Aspect() != 2 {
		t.Errorf("Aspect() = %v, want 2", s.Editor.Aspect())
	}
	if s.Dirty() {
		t.Error("new session is dirty")
	}

	if _, err := s.Editor.AddNode(editor.AddParams{Label: "Hall", Neighbors: stage.Neighbors{0}}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if !s.Dirty() {
		t.Fatal("session not dirty after AddNode")
	}
	if err := s.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.Dirty() {
		t.Error("session dirty after Save")
	}

	got, err := st.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Elements) != 2 || !got.Elements[0].HasNeighbor(1) {
		t.Errorf("stored elements = %+v", got.Elements)
	}
	if len(s.Recorder.Paths()) != 1 {
		t.Errorf("recorder has %d paths, want 1", len(s.Recorder.Paths()))
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(context.Background(), store.NewMemoryStore(), "nope", config.Default(), Options{})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Open() error = %v, want NOT_FOUND", err)
	}
}

func TestNewDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Stage.Width, cfg.Stage.Height = 10, 5
	cfg.Stage.Type = "booth"
	cfg.L10n = map[string]string{"unnamedStage": "Booth"}

	doc := document.New("Empty", document.Map{})
	s, err := New(doc, cfg, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if doc.Map.Width != cfg.Map.Width || doc.Map.Height != cfg.Map.Height {
		t.Errorf("map = %+v, want configured size", doc.Map)
	}
	w, h := s.Content.DefaultSize("booth")
	if w != 10 || h != 5 {
		t.Errorf("DefaultSize() = %v, %v", w, h)
	}
	n, _ := s.Editor.AddNode(editor.AddParams{Type: s.StageType})
	if n.Label != "Booth 1" {
		t.Errorf("label = %q, want %q", n.Label, "Booth 1")
	}
}

func TestSaveSkipsClean(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	doc := seed(t, st)
	s, err := Open(ctx, st, doc.ID, config.Default(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(ctx, doc.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := st.Get(ctx, doc.ID); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Error("clean session was written")
	}
}
