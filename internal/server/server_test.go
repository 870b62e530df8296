package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stagemap/pkg/config"
	"github.com/matzehuels/stagemap/pkg/document"
	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/observability"
	"github.com/matzehuels/stagemap/pkg/path"
	"github.com/matzehuels/stagemap/pkg/store"
)

type fixture struct {
	t     *testing.T
	store *store.MemoryStore
	h     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Map.Width, cfg.Map.Height = 1000, 500
	cfg.Stage.Types = []string{"stage", "bar"}
	st := store.NewMemoryStore()
	return &fixture{t: t, store: st, h: New(st, cfg).Handler()}
}

func (f *fixture) do(method, target string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	return w
}

func (f *fixture) createMap(name string) string {
	f.t.Helper()
	w := f.do(http.MethodPost, "/maps", map[string]any{"name": name})
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	var doc document.Document
	require.NoError(f.t, json.NewDecoder(w.Body).Decode(&doc))
	return doc.ID
}

func (f *fixture) addStage(id string, body map[string]any) stageResponse {
	f.t.Helper()
	w := f.do(http.MethodPost, "/maps/"+id+"/stages", body)
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	var s stageResponse
	require.NoError(f.t, json.NewDecoder(w.Body).Decode(&s))
	return s
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp healthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Version)
	assert.NotEmpty(t, resp.Uptime)
}

func TestCreateAndListMaps(t *testing.T) {
	f := newFixture(t)

	t.Run("creates with configured size", func(t *testing.T) {
		w := f.do(http.MethodPost, "/maps", map[string]any{"name": "Festival"})
		require.Equal(t, http.StatusCreated, w.Code)

		var doc document.Document
		require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, "/maps/"+doc.ID, w.Header().Get("Location"))
		assert.Equal(t, document.Map{Width: 1000, Height: 500}, doc.Map)
		assert.Empty(t, doc.Elements)
	})

	t.Run("rejects missing name", func(t *testing.T) {
		w := f.do(http.MethodPost, "/maps", map[string]any{"width": 10})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, errors.ErrCodeValidationFailed, resp.Code)
		assert.Contains(t, resp.Fields, "name")
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		w := f.do(http.MethodPost, "/maps", "{")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errors.ErrCodeInvalidInput, decodeError(t, w).Code)
	})

	t.Run("lists", func(t *testing.T) {
		w := f.do(http.MethodGet, "/maps", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var maps []store.Summary
		require.NoError(t, json.NewDecoder(w.Body).Decode(&maps))
		require.Len(t, maps, 1)
		assert.Equal(t, "Festival", maps[0].Name)
	})
}

func TestMapNotFound(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"/maps/nope", "/maps/nope/paths", "/maps/nope/stages/0"} {
		w := f.do(http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.Equal(t, errors.ErrCodeNotFound, decodeError(t, w).Code, target)
	}
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/maps/nope", nil).Code)
}

func TestAddStage(t *testing.T) {
	f := newFixture(t)
	id := f.createMap("Festival")

	first := f.addStage(id, map[string]any{})
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "Unnamed stage 1", first.Label)
	assert.Equal(t, "stage", first.Type)
	assert.InDelta(t, 9.0, first.Telemetry.Height, 1e-9)

	second := f.addStage(id, map[string]any{
		"label":     "Bar",
		"type":      "bar",
		"telemetry": map[string]any{"x": 80, "y": 40, "width": 5, "height": 8},
		"neighbors": []int{0},
	})
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, []int{0}, []int(second.Neighbors))

	w := f.do(http.MethodGet, "/maps/"+id+"/paths", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var paths []path.Path
	require.NoError(t, json.NewDecoder(w.Body).Decode(&paths))
	require.Len(t, paths, 1)
	assert.Equal(t, path.Pair{From: 0, To: 1}, paths[0].Pair)
	assert.NotNil(t, paths[0].Telemetry)

	t.Run("stored symmetric", func(t *testing.T) {
		doc, err := f.store.Get(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, doc.Elements, 2)
		assert.True(t, doc.Elements[0].HasNeighbor(1))
	})

	t.Run("unknown type", func(t *testing.T) {
		w := f.do(http.MethodPost, "/maps/"+id+"/stages", map[string]any{"type": "tent"})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeError(t, w).Fields, "type")

		doc, err := f.store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Len(t, doc.Elements, 2, "rejected stage was saved")
	})

	t.Run("neighbor out of range", func(t *testing.T) {
		w := f.do(http.MethodPost, "/maps/"+id+"/stages", map[string]any{"neighbors": []int{7}})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errors.ErrCodeInvalidIndex, decodeError(t, w).Code)
	})
}

func TestPatchStage(t *testing.T) {
	f := newFixture(t)
	id := f.createMap("Festival")
	f.addStage(id, map[string]any{"label": "Gate"})
	f.addStage(id, map[string]any{"label": "Hall"})

	t.Run("applies changes", func(t *testing.T) {
		w := f.do(http.MethodPatch, "/maps/"+id+"/stages/0", map[string]any{
			"label":     "Main gate",
			"x":         10,
			"neighbors": []int{1},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var s stageResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
		assert.Equal(t, "Main gate", s.Label)
		assert.InDelta(t, 10.0, s.Telemetry.X, 1e-9)
		assert.Equal(t, []int{1}, []int(s.Neighbors))

		w = f.do(http.MethodGet, "/maps/"+id+"/stages/1", nil)
		require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
		assert.Equal(t, []int{0}, []int(s.Neighbors))
	})

	t.Run("invalid form is not saved", func(t *testing.T) {
		w := f.do(http.MethodPatch, "/maps/"+id+"/stages/0", map[string]any{"label": "", "width": 0})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeError(t, w)
		assert.Contains(t, resp.Fields, "label")
		assert.Contains(t, resp.Fields, "width")

		doc, err := f.store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Main gate", doc.Elements[0].Label)
	})

	t.Run("bad index", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, "/maps/"+id+"/stages/x", map[string]any{}).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, "/maps/"+id+"/stages/9", map[string]any{}).Code)
	})
}

func TestSetNeighborsAndDelete(t *testing.T) {
	f := newFixture(t)
	id := f.createMap("Festival")
	for _, l := range []string{"A", "B", "C"} {
		f.addStage(id, map[string]any{"label": l})
	}

	w := f.do(http.MethodPut, "/maps/"+id+"/stages/2/neighbors", map[string]any{"neighbors": []int{0, 1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPut, "/maps/"+id+"/stages/2/neighbors", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodDelete, "/maps/"+id+"/stages/0", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	doc, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, doc.Elements, 2)
	assert.Equal(t, "B", doc.Elements[0].Label)
	assert.Equal(t, []int{1}, []int(doc.Elements[0].Neighbors))
	assert.Equal(t, []int{0}, []int(doc.Elements[1].Neighbors))

	w = f.do(http.MethodGet, "/maps/"+id+"/paths", nil)
	var paths []path.Path
	require.NoError(t, json.NewDecoder(w.Body).Decode(&paths))
	require.Len(t, paths, 1)
	assert.Equal(t, path.Pair{From: 0, To: 1}, paths[0].Pair)
}

func TestNeighborOptions(t *testing.T) {
	f := newFixture(t)
	id := f.createMap("Festival")
	f.addStage(id, map[string]any{"label": "Gate"})

	w := f.do(http.MethodGet, "/maps/"+id+"/stages/0/options", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp optionsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Empty(t, resp.Options)
	assert.Equal(t, "There are no other stages to connect to.", resp.Instructions)

	f.addStage(id, map[string]any{"label": "Hall"})
	w = f.do(http.MethodGet, "/maps/"+id+"/stages/0/options", nil)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Options, 1)
	assert.Equal(t, "1", resp.Options[0].Value)
	assert.Equal(t, "Hall", resp.Options[0].Label)
}

func TestPutAndDeleteMap(t *testing.T) {
	f := newFixture(t)
	body := `{"id":"ignored","name":"Imported","map":{"width":800,"height":400},"elements":[
		{"id":"a","type":"stage","label":"A","telemetry":{"x":0,"y":0,"width":5,"height":10},"neighbors":["1"]},
		{"id":"b","type":"stage","label":"B","telemetry":{"x":50,"y":50,"width":5,"height":10},"neighbors":[0]}
	]}`

	w := f.do(http.MethodPut, "/maps/imported", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc document.Document
	require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
	assert.Equal(t, "imported", doc.ID)
	assert.Len(t, doc.Elements, 2)

	w = f.do(http.MethodPut, "/maps/imported", body)
	assert.Equal(t, http.StatusOK, w.Code)

	asym := `{"name":"Broken","elements":[
		{"id":"a","type":"stage","label":"A","neighbors":["1"]},
		{"id":"b","type":"stage","label":"B","neighbors":[]}
	]}`
	w = f.do(http.MethodPut, "/maps/broken", asym)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/maps/imported", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/maps/imported", nil).Code)
}

func TestRenderDOT(t *testing.T) {
	f := newFixture(t)
	id := f.createMap("Festival")
	f.addStage(id, map[string]any{"label": "Gate"})

	w := f.do(http.MethodGet, "/maps/"+id+"/render?format=dot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/vnd.graphviz", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph G {"))
	assert.Contains(t, w.Body.String(), `label="Gate"`)

	w = f.do(http.MethodGet, "/maps/"+id+"/render?format=gif", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrCodeInvalidFormat, decodeError(t, w).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidIndex, http.StatusBadRequest},
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeAlreadyEditing, http.StatusConflict},
		{errors.ErrCodeValidationFailed, http.StatusUnprocessableEntity},
		{errors.ErrCodeUnsupported, http.StatusNotImplemented},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.code), tt.code)
	}
}

type recordingHTTPHooks struct {
	mu     sync.Mutex
	routes []string
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
}

func TestRequestHooks(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	f := newFixture(t)
	f.do(http.MethodGet, "/healthz", nil)

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	assert.Equal(t, []string{"GET /healthz"}, hooks.routes)
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	f := newFixture(t)
	id := f.createMap("Festival")

	const n = 8
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.do(http.MethodPost, "/maps/"+id+"/stages", map[string]any{})
		}()
	}
	wg.Wait()

	doc, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, doc.Elements, n)
}
