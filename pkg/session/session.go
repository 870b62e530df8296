// Package session opens stored stage maps for editing.
//
// A [Session] ties a document to an [editor.Editor]. The editor draws into a
// [dot.Recorder], marks the session dirty on every change and validates
// commits with a [validate.Validator] built from the configuration. [Session.Save]
// writes the stages back only if something changed.
//
// # Usage
//
//	sess, err := session.Open(ctx, st, id, cfg, session.Options{})
//	if err != nil {
//	    return err
//	}
//	sess.Editor.AddNode(editor.AddParams{Label: "Gate"})
//	return sess.Save(ctx, st)
//
// Sessions are not safe for concurrent use. Callers that share a store
// between goroutines serialize access per map.
package session

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stagemap/pkg/config"
	"github.com/matzehuels/stagemap/pkg/document"
	"github.com/matzehuels/stagemap/pkg/editor"
	"github.com/matzehuels/stagemap/pkg/l10n"
	"github.com/matzehuels/stagemap/pkg/render/dot"
	"github.com/matzehuels/stagemap/pkg/stage"
	"github.com/matzehuels/stagemap/pkg/store"
	"github.com/matzehuels/stagemap/pkg/validate"
)

// Options configures the editor of a session.
type Options struct {
	// Confirmer answers removal prompts. Nil confirms automatically.
	Confirmer editor.Confirmer

	// Logger receives editor debug output. Nil discards it.
	Logger *log.Logger
}

// Session is one stage map loaded into an editor.
type Session struct {
	Doc       *document.Document
	Editor    *editor.Editor
	Recorder  *dot.Recorder
	Validator *validate.Validator
	Dict      l10n.Dictionary

	// Content sizes new stages; StageType is the type they get by default.
	Content   editor.StageFactory
	StageType string

	dirty bool
}

// Open loads the map with id from st.
func Open(ctx context.Context, st store.Store, id string, cfg config.Config, opts Options) (*Session, error) {
	doc, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return New(doc, cfg, opts)
}

// New wires an editor around doc. A document without a map size takes the
// configured one.
func New(doc *document.Document, cfg config.Config, opts Options) (*Session, error) {
	s := &Session{
		Doc:       doc,
		Recorder:  dot.NewRecorder(),
		Dict:      l10n.Default().Merge(cfg.L10n),
		Content:   editor.StageFactory{Width: cfg.Stage.Width, Height: cfg.Stage.Height},
		StageType: cfg.Stage.Type,
	}
	if doc.Map.Width <= 0 || doc.Map.Height <= 0 {
		doc.Map = document.Map{Width: cfg.Map.Width, Height: cfg.Map.Height}
	}

	ed, err := editor.New(doc.Elements, editor.Options{
		MapWidth:   doc.Map.Width,
		MapHeight:  doc.Map.Height,
		Content:    s.Content,
		Dictionary: s.Dict,
		Confirmer:  opts.Confirmer,
		Renderer:   s.Recorder,
		Listener:   editor.ListenerFunc(func([]stage.Node) { s.dirty = true }),
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	s.Editor = ed
	s.Recorder.Render(ed.Snapshot())
	s.Validator = validate.New(cfg.Stage.Types...).WithDictionary(s.Dict, l10n.KeyContentRequired)
	return s, nil
}

// Dirty reports whether the stages changed since the session was opened or
// last saved.
func (s *Session) Dirty() bool { return s.dirty }

// Save runs deferred editor work and writes the stages to st if they changed.
func (s *Session) Save(ctx context.Context, st store.Store) error {
	s.Editor.Flush()
	if !s.dirty {
		return nil
	}
	s.Doc.SetElements(s.Editor.Nodes())
	if err := st.Put(ctx, s.Doc); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
