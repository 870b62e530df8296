// Package document defines the persisted form of a stage map and its
// JSON and YAML encodings.
//
// A Document stores stages in index order. Indices are not serialized; they
// are restored from the element position on decode, and every decoded
// document is checked against the stage invariants.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stagemap/pkg/errors"
	"github.com/matzehuels/stagemap/pkg/stage"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document is a stage map with metadata.
type Document struct {
	ID        string       `json:"id" bson:"_id" yaml:"id"`
	Name      string       `json:"name" bson:"name" yaml:"name"`
	Map       Map          `json:"map" bson:"map" yaml:"map"`
	Elements  []stage.Node `json:"elements" bson:"elements" yaml:"elements"`
	CreatedAt time.Time    `json:"createdAt" bson:"created_at" yaml:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt" bson:"updated_at" yaml:"updatedAt"`
}

// Map is the pixel size of the map canvas.
type Map struct {
	Width  float64 `json:"width" bson:"width" yaml:"width"`
	Height float64 `json:"height" bson:"height" yaml:"height"`
}

// New returns an empty document with a fresh ID.
func New(name string, m Map) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        uuid.NewString(),
		Name:      name,
		Map:       m,
		Elements:  []stage.Node{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetElements replaces the stages and bumps UpdatedAt.
func (d *Document) SetElements(nodes []stage.Node) {
	d.Elements = make([]stage.Node, len(nodes))
	for i, n := range nodes {
		d.Elements[i] = n.Clone()
	}
	d.UpdatedAt = time.Now().UTC()
}

// Validate checks the document's stages and map size.
func (d *Document) Validate() error {
	if d.ID == "" {
		return errors.New(errors.ErrCodeInvalidDocument, "document has no id")
	}
	if d.Map.Width < 0 || d.Map.Height < 0 {
		return errors.New(errors.ErrCodeInvalidDocument, "negative map size %vx%v", d.Map.Width, d.Map.Height)
	}
	return stage.Validate(d.Elements)
}

// reindex restores element indices from their positions.
func (d *Document) reindex() {
	for i := range d.Elements {
		d.Elements[i].Index = i
	}
}

// Loaded restores indices and validates a document decoded by some other
// means, such as a database driver.
func (d *Document) Loaded() error {
	d.reindex()
	return d.Validate()
}

// =============================================================================
// Encoding
// =============================================================================

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported document extension %q", filepath.Ext(path))
	}
}

// Marshal encodes d.
func Marshal(d *Document, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", f)
	}
}

// ReadOption adjusts a decoded document before it is validated.
type ReadOption func(*Document)

// WithRepair mirrors one-sided neighbor references and drops references to
// missing stages or to the stage itself, for documents edited by hand.
func WithRepair() ReadOption {
	return func(d *Document) { d.Elements = stage.Symmetrize(d.Elements) }
}

// Unmarshal decodes and validates a document.
func Unmarshal(data []byte, f Format, opts ...ReadOption) (*Document, error) {
	var d Document
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &d)
	case FormatYAML:
		err = yaml.Unmarshal(data, &d)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", f)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDocument, err, "decode %s document", f)
	}
	if d.Elements == nil {
		d.Elements = []stage.Node{}
	}
	for _, opt := range opts {
		opt(&d)
	}
	if err := d.Loaded(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ReadFile loads a document, choosing the format by extension.
func ReadFile(path string, opts ...ReadOption) (*Document, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "document %s", path)
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Unmarshal(data, f, opts...)
}

// WriteFile stores d, choosing the format by extension. The file is
// replaced atomically.
func WriteFile(path string, d *Document) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Marshal(d, f)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create document dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
