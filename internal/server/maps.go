package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/stagemap/pkg/buildinfo"
	"github.com/matzehuels/stagemap/pkg/cache"
	"github.com/matzehuels/stagemap/pkg/document"
	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/path"
	"github.com/matzehuels/stagemap/pkg/render/dot"
	"github.com/matzehuels/stagemap/pkg/session"
)

type healthResponse struct {
	Status string `json:"status"`
	buildinfo.Info
	Uptime string `json:"uptime"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, healthResponse{
		Status: "ok",
		Info:   buildinfo.Get(),
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) listMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, maps)
}

type createMapRequest struct {
	Name   string  `json:"name" validate:"required,max=200"`
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
}

func (s *Server) createMap(w http.ResponseWriter, r *http.Request) {
	var req createMapRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	m := document.Map{Width: req.Width, Height: req.Height}
	if m.Width == 0 || m.Height == 0 {
		m = document.Map{Width: s.cfg.Map.Width, Height: s.cfg.Map.Height}
	}
	doc := document.New(req.Name, m)
	if err := s.store.Put(r.Context(), doc); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/maps/"+doc.ID)
	s.respond(w, http.StatusCreated, doc)
}

func (s *Server) getMap(w http.ResponseWriter, r *http.Request) {
	s.withMap(w, r, http.StatusOK, func(sess *session.Session) (any, error) {
		return sess.Doc, nil
	})
}

// putMap replaces a map with the document in the body, creating it if
// needed. The ID in the route wins over the one in the body.
func (s *Server) putMap(w http.ResponseWriter, r *http.Request) {
	var doc document.Document
	if err := s.decode(r, &doc); err != nil {
		s.fail(w, r, err)
		return
	}
	if doc.Name == "" {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidInput, "map name is required"))
		return
	}
	doc.ID = chi.URLParam(r, "id")
	if err := doc.Loaded(); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	defer s.lock(doc.ID)()

	status := http.StatusOK
	prev, err := s.store.Get(ctx, doc.ID)
	switch {
	case errors.Is(err, errors.ErrCodeNotFound):
		status = http.StatusCreated
		doc.CreatedAt = time.Now().UTC()
	case err != nil:
		s.fail(w, r, err)
		return
	default:
		doc.CreatedAt = prev.CreatedAt
	}
	doc.SetElements(doc.Elements)

	if err := s.store.Put(ctx, &doc); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, status, &doc)
}

func (s *Server) deleteMap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	defer s.lock(id)()
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listPaths(w http.ResponseWriter, r *http.Request) {
	s.withMap(w, r, http.StatusOK, func(sess *session.Session) (any, error) {
		paths := sess.Editor.Paths()
		if paths == nil {
			paths = []path.Path{}
		}
		return paths, nil
	})
}

var renderTypes = map[string]string{
	"svg": "image/svg+xml",
	"png": "image/png",
	"dot": "text/vnd.graphviz",
}

// renderMap draws the map with Graphviz. Rendered artifacts are cached by
// the hash of their DOT source.
func (s *Server) renderMap(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "svg"
	}
	contentType, ok := renderTypes[format]
	if !ok {
		s.fail(w, r, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", format))
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")
	unlock := s.lock(id)
	sess, err := session.Open(ctx, s.store, id, s.cfg, session.Options{Logger: s.logger})
	if err != nil {
		unlock()
		s.fail(w, r, err)
		return
	}
	source := sess.Recorder.DOT(dot.Options{Aspect: sess.Editor.Aspect(), Detailed: r.URL.Query().Has("detailed")})
	unlock()

	data := []byte(source)
	if format != "dot" {
		if data, err = s.renderArtifact(ctx, source, format); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("write artifact", "err", err)
	}
}

func (s *Server) renderArtifact(ctx context.Context, source, format string) ([]byte, error) {
	key := cache.ArtifactKey([]byte(source), format)
	if data, ok, err := s.artifacts.Get(ctx, key); err == nil && ok {
		return data, nil
	}

	render := dot.RenderSVG
	if format == "png" {
		render = dot.RenderPNG
	}
	data, err := render(ctx, source)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
	}
	if err := s.artifacts.Set(ctx, key, data, 0); err != nil {
		s.logger.Warn("cache artifact", "err", err)
	}
	return data, nil
}
