package stage

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stagemap/pkg/geometry"
)

// TypeStage is the content type of a regular stage.
const TypeStage = "stage"

// Telemetry is the position and size of a stage in percent of the map bounds.
type Telemetry struct {
	X      float64 `json:"x" bson:"x" yaml:"x"`
	Y      float64 `json:"y" bson:"y" yaml:"y"`
	Width  float64 `json:"width" bson:"width" yaml:"width"`
	Height float64 `json:"height" bson:"height" yaml:"height"`
}

// Rect converts the telemetry into a geometry rectangle.
func (t Telemetry) Rect() geometry.Rect {
	return geometry.Rect{X: t.X, Y: t.Y, Width: t.Width, Height: t.Height}
}

// Node is a single stage on the map.
type Node struct {
	ID        string    `json:"id" bson:"id" yaml:"id"`
	Index     int       `json:"-" bson:"-" yaml:"-"`
	Type      string    `json:"type" bson:"type" yaml:"type"`
	Label     string    `json:"label" bson:"label" yaml:"label"`
	Telemetry Telemetry `json:"telemetry" bson:"telemetry" yaml:"telemetry"`
	Neighbors Neighbors `json:"neighbors" bson:"neighbors" yaml:"neighbors"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Neighbors = slices.Clone(n.Neighbors)
	return n
}

// HasNeighbor reports whether index is in the node's neighbor set.
func (n Node) HasNeighbor(index int) bool {
	return n.Neighbors.Contains(index)
}

// Neighbors is a sorted set of stage indices.
//
// It is serialized as a list of index strings ("0", "3") to stay compatible
// with documents written by the authoring tool; numbers are accepted on input.
type Neighbors []int

// NewNeighbors builds a sorted, duplicate-free set.
func NewNeighbors(indices ...int) Neighbors {
	n := slices.Clone(indices)
	slices.Sort(n)
	return slices.Compact(n)
}

// Contains reports whether index is in the set.
func (n Neighbors) Contains(index int) bool {
	_, ok := slices.BinarySearch(n, index)
	return ok
}

// With returns the set with index added.
func (n Neighbors) With(index int) Neighbors {
	i, ok := slices.BinarySearch(n, index)
	if ok {
		return n
	}
	return slices.Insert(n, i, index)
}

// Without returns the set with index removed.
func (n Neighbors) Without(index int) Neighbors {
	i, ok := slices.BinarySearch(n, index)
	if !ok {
		return n
	}
	return slices.Delete(n, i, i+1)
}

// Strings returns the set as index strings.
func (n Neighbors) Strings() []string {
	out := make([]string, len(n))
	for i, v := range n {
		out[i] = strconv.Itoa(v)
	}
	return out
}

// MarshalJSON encodes the set as a list of index strings.
func (n Neighbors) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Strings())
}

// UnmarshalJSON accepts index strings or plain numbers.
func (n *Neighbors) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]int, 0, len(raw))
	for _, r := range raw {
		v, err := parseIndex(r)
		if err != nil {
			return err
		}
		out = append(out, v)
	}
	*n = NewNeighbors(out...)
	return nil
}

// MarshalYAML encodes the set like MarshalJSON.
func (n Neighbors) MarshalYAML() (any, error) {
	return n.Strings(), nil
}

// UnmarshalYAML accepts index strings or plain numbers.
func (n *Neighbors) UnmarshalYAML(value *yaml.Node) error {
	var raw []string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make([]int, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("neighbor %q: %w", s, err)
		}
		out = append(out, v)
	}
	*n = NewNeighbors(out...)
	return nil
}

func parseIndex(r json.RawMessage) (int, error) {
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("neighbor %q: %w", s, err)
		}
		return v, nil
	}
	var v int
	if err := json.Unmarshal(r, &v); err != nil {
		return 0, fmt.Errorf("neighbor %s: not an index", string(r))
	}
	return v, nil
}

// Params are the attributes a new stage is created with.
// Zero values are filled in by the registry or the editor.
type Params struct {
	ID        string
	Type      string
	Label     string
	Telemetry Telemetry
	Neighbors Neighbors
}
