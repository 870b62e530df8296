package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/stagemap/pkg/config"
	"github.com/matzehuels/stagemap/pkg/document"
	"github.com/matzehuels/stagemap/pkg/editor"
	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/store"
)

// testCLI runs commands against an in-memory store and captures output.
type testCLI struct {
	t     *testing.T
	cli   *CLI
	store *store.MemoryStore
	out   *bytes.Buffer
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	cfg := config.Default()
	cfg.Map.Width, cfg.Map.Height = 1000, 500
	cfg.Render.CacheDir = t.TempDir()

	st := store.NewMemoryStore()
	c := New(io.Discard, LogInfo)
	c.cfg = &cfg
	c.stores = func(context.Context, config.Store) (store.Store, error) { return st, nil }

	var out bytes.Buffer
	prevOut, prevErr := stdout, stderr
	stdout, stderr = &out, io.Discard
	t.Cleanup(func() { stdout, stderr = prevOut, prevErr })

	return &testCLI{t: t, cli: c, store: st, out: &out}
}

func (tc *testCLI) run(args ...string) error {
	tc.t.Helper()
	tc.out.Reset()
	root := tc.cli.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func (tc *testCLI) mustRun(args ...string) string {
	tc.t.Helper()
	if err := tc.run(args...); err != nil {
		tc.t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return tc.out.String()
}

func (tc *testCLI) doc(id string) *document.Document {
	tc.t.Helper()
	doc, err := tc.store.Get(context.Background(), id)
	if err != nil {
		tc.t.Fatalf("Get(%s): %v", id, err)
	}
	return doc
}

// newMap creates a map and returns its ID.
func (tc *testCLI) newMap(name string) string {
	tc.t.Helper()
	tc.mustRun("new", name)
	maps, err := tc.store.List(context.Background())
	if err != nil {
		tc.t.Fatal(err)
	}
	for _, m := range maps {
		if m.Name == name {
			return m.ID
		}
	}
	tc.t.Fatalf("map %q not stored", name)
	return ""
}

func TestNewAndList(t *testing.T) {
	tc := newTestCLI(t)
	if out := tc.mustRun("list"); !strings.Contains(out, "No maps yet") {
		t.Errorf("empty list output = %q", out)
	}

	id := tc.newMap("Festival")
	doc := tc.doc(id)
	if doc.Map.Width != 1000 || doc.Map.Height != 500 {
		t.Errorf("map = %+v, want configured size", doc.Map)
	}

	out := tc.mustRun("ls")
	if !strings.Contains(out, "Festival") || !strings.Contains(out, id) {
		t.Errorf("list output = %q", out)
	}
}

func TestStageCommands(t *testing.T) {
	tc := newTestCLI(t)
	id := tc.newMap("Festival")

	out := tc.mustRun("add", id)
	if !strings.Contains(out, "Added stage 0") {
		t.Errorf("add output = %q", out)
	}
	tc.mustRun("add", id, "--label", "Bar", "--x", "80", "--y", "40", "--link", "0")

	doc := tc.doc(id)
	if len(doc.Elements) != 2 {
		t.Fatalf("stages = %d, want 2", len(doc.Elements))
	}
	first, second := doc.Elements[0], doc.Elements[1]
	if first.Label != "Unnamed stage 1" || first.Telemetry.Height != 9 {
		t.Errorf("first = %+v", first)
	}
	if second.Telemetry.X != 80 || second.Telemetry.Width != 4.5 || second.Telemetry.Height != 9 {
		t.Errorf("second telemetry = %+v", second.Telemetry)
	}
	if !first.HasNeighbor(1) || !second.HasNeighbor(0) {
		t.Errorf("stages not linked: %v %v", first.Neighbors, second.Neighbors)
	}

	tc.mustRun("label", id, "0", "Gate")
	tc.mustRun("move", id, "0", "10", "20")
	tc.mustRun("resize", id, "0", "6", "12")
	doc = tc.doc(id)
	got := doc.Elements[0]
	if got.Label != "Gate" || got.Telemetry.X != 10 || got.Telemetry.Y != 20 || got.Telemetry.Width != 6 || got.Telemetry.Height != 12 {
		t.Errorf("stage 0 = %+v", got)
	}

	if out := tc.mustRun("show", id); !strings.Contains(out, "Gate") || !strings.Contains(out, "2 stages · 1 paths") {
		t.Errorf("show output = %q", out)
	}
	if out := tc.mustRun("paths", id); !strings.Contains(out, "0 Gate") || !strings.Contains(out, "1 Bar") {
		t.Errorf("paths output = %q", out)
	}

	tc.mustRun("link", id, "0")
	if doc := tc.doc(id); len(doc.Elements[1].Neighbors) != 0 {
		t.Errorf("link with no neighbors kept %v", doc.Elements[1].Neighbors)
	}
	tc.mustRun("link", id, "1", "--add", "0")
	if doc := tc.doc(id); !doc.Elements[0].HasNeighbor(1) {
		t.Error("link --add did not connect the stages")
	}
	tc.mustRun("link", id, "1", "--remove", "0")
	if doc := tc.doc(id); doc.Elements[0].HasNeighbor(1) {
		t.Error("link --remove did not disconnect the stages")
	}
}

func TestEditCommand(t *testing.T) {
	tc := newTestCLI(t)
	id := tc.newMap("Festival")
	tc.mustRun("add", id, "--label", "Gate")
	tc.mustRun("add", id, "--label", "Hall")

	tc.mustRun("edit", id, "0", "--label", "Main gate", "--link", "1", "--width", "8")
	doc := tc.doc(id)
	if doc.Elements[0].Label != "Main gate" || doc.Elements[0].Telemetry.Width != 8 {
		t.Errorf("stage 0 = %+v", doc.Elements[0])
	}
	if !doc.Elements[1].HasNeighbor(0) {
		t.Error("edit --link was not mirrored")
	}

	err := tc.run("edit", id, "0", "--label", "", "--type", "")
	if !errors.Is(err, errors.ErrCodeValidationFailed) {
		t.Fatalf("edit error = %v, want VALIDATION_FAILED", err)
	}
	if !strings.Contains(tc.out.String(), "label: is required") {
		t.Errorf("field errors not printed: %q", tc.out.String())
	}
	if doc := tc.doc(id); doc.Elements[0].Label != "Main gate" {
		t.Errorf("invalid edit was saved: %+v", doc.Elements[0])
	}
}

func TestRemoveCommand(t *testing.T) {
	tc := newTestCLI(t)
	id := tc.newMap("Festival")
	tc.mustRun("add", id, "--label", "A")
	tc.mustRun("add", id, "--label", "B", "--link", "0")
	tc.mustRun("add", id, "--label", "C", "--link", "1")

	out := tc.mustRun("rm", id, "1", "--yes")
	if !strings.Contains(out, "Removed stage 1") {
		t.Errorf("remove output = %q", out)
	}
	doc := tc.doc(id)
	if len(doc.Elements) != 2 || doc.Elements[1].Label != "C" || doc.Elements[1].Index != 1 {
		t.Fatalf("elements = %+v", doc.Elements)
	}
	for _, n := range doc.Elements {
		if len(n.Neighbors) != 0 {
			t.Errorf("stage %s kept neighbors %v", n.Label, n.Neighbors)
		}
	}

	if err := tc.run("rm", id, "5", "--yes"); !errors.Is(err, errors.ErrCodeInvalidIndex) {
		t.Errorf("remove out of range error = %v", err)
	}
}

func TestArgumentErrors(t *testing.T) {
	tc := newTestCLI(t)
	id := tc.newMap("Festival")

	tests := [][]string{
		{"move", id, "x", "1", "2"},
		{"move", id, "0", "one", "2"},
		{"label", id, "first", "Gate"},
		{"link", id, "0", "1", "--add", "--remove"},
	}
	for _, args := range tests {
		if err := tc.run(args...); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("%v: error = %v, want INVALID_INPUT", args, err)
		}
	}
	if err := tc.run("show", "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("show missing: error = %v, want NOT_FOUND", err)
	}
}

func TestImportExport(t *testing.T) {
	tc := newTestCLI(t)
	id := tc.newMap("Festival")
	tc.mustRun("add", id, "--label", "Gate")
	tc.mustRun("add", id, "--label", "Hall", "--link", "0")

	file := filepath.Join(t.TempDir(), "festival.yaml")
	tc.mustRun("export", id, file)

	tc.mustRun("delete", id)
	if _, err := tc.store.Get(context.Background(), id); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("map not deleted: %v", err)
	}

	if out := tc.mustRun("import", file); !strings.Contains(out, "2 stages") {
		t.Errorf("import output = %q", out)
	}
	doc := tc.doc(id)
	if len(doc.Elements) != 2 || !doc.Elements[0].HasNeighbor(1) {
		t.Errorf("imported elements = %+v", doc.Elements)
	}
}

func TestRenderDOT(t *testing.T) {
	tc := newTestCLI(t)
	id := tc.newMap("Festival")
	tc.mustRun("add", id, "--label", "Gate")
	tc.mustRun("add", id, "--label", "Hall")

	file := filepath.Join(t.TempDir(), "festival.dot")
	tc.mustRun("render", id, "-o", file, "--back", "1")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	if !strings.HasPrefix(dot, "graph G {") {
		t.Fatalf("not a DOT graph: %q", dot)
	}
	hall, gate := strings.Index(dot, `label="Hall"`), strings.Index(dot, `label="Gate"`)
	if hall < 0 || gate < 0 || hall > gate {
		t.Errorf("Hall should be drawn before Gate:\n%s", dot)
	}

	if err := tc.run("render", id, "--format", "gif"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("render gif error = %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"":            formatSVG,
		"map.svg":     formatSVG,
		"map.PNG":     formatPNG,
		"out/map.dot": formatDOT,
		"map.gif":     "gif",
	}
	for in, want := range tests {
		if got := formatFromPath(in); got != want {
			t.Errorf("formatFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCachePath(t *testing.T) {
	tc := newTestCLI(t)
	out := tc.mustRun("cache", "path")
	if strings.TrimSpace(out) != tc.cli.cfg.Render.CacheDir {
		t.Errorf("cache path = %q, want %q", out, tc.cli.cfg.Render.CacheDir)
	}
	if out := tc.mustRun("cache", "clear"); !strings.Contains(out, "Cache is empty") {
		t.Errorf("cache clear output = %q", out)
	}
}

func TestConfirmModel(t *testing.T) {
	prompt := editor.Prompt{Header: "Remove stage?", Cancel: "Cancel", Confirm: "Remove stage"}
	key := func(s string) tea.KeyMsg {
		switch s {
		case "enter":
			return tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			return tea.KeyMsg{Type: tea.KeyEsc}
		case "right":
			return tea.KeyMsg{Type: tea.KeyRight}
		}
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}

	tests := []struct {
		name      string
		keys      []string
		confirmed bool
	}{
		{"enter keeps cancel", []string{"enter"}, false},
		{"right then enter confirms", []string{"right", "enter"}, true},
		{"y confirms", []string{"y"}, true},
		{"n declines", []string{"right", "n"}, false},
		{"esc declines", []string{"esc"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = NewConfirmModel(prompt)
			if !strings.Contains(m.View(), "Remove stage?") {
				t.Fatalf("view lacks header: %q", m.View())
			}
			for _, k := range tt.keys {
				m, _ = m.Update(key(k))
			}
			got := m.(ConfirmModel)
			if !got.Done || got.Confirmed != tt.confirmed {
				t.Errorf("Done=%v Confirmed=%v, want true %v", got.Done, got.Confirmed, tt.confirmed)
			}
			if got.View() != "" {
				t.Errorf("finished dialog still renders %q", got.View())
			}
		})
	}
}
