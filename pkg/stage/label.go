package stage

import (
	"fmt"
	"strings"
)

// DefaultUnnamedPrefix names stages created without a label when no
// dictionary overrides it.
const DefaultUnnamedPrefix = "Unnamed stage"

// UnnamedLabel returns the label for a new stage without a name:
// "<prefix> <k>" where k is one more than the number of labels in nodes
// that start with "<prefix> ".
func UnnamedLabel(nodes []Node, prefix string) string {
	marker := prefix + " "
	count := 0
	for _, n := range nodes {
		if strings.HasPrefix(n.Label, marker) {
			count++
		}
	}
	return fmt.Sprintf("%s%d", marker, count+1)
}
