package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/orgdeps/pkg/deps"
)

// =============================================================================
// Display Modes
// =============================================================================

// Display selects which nodes a materialized graph keeps.
type Display string

const (
	// DisplayInternal keeps organization nodes and the edges between them.
	DisplayInternal Display = "internal"
	// DisplayAll keeps every node, including external packages.
	DisplayAll Display = "all"
)

// Displays lists the valid display modes.
var Displays = []Display{DisplayInternal, DisplayAll}

// ParseDisplay parses a display mode. The empty string selects
// [DisplayInternal].
func ParseDisplay(s string) (Display, error) {
	switch d := Display(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DisplayInternal, nil
	case DisplayInternal, DisplayAll:
		return d, nil
	default:
		return "", fmt.Errorf("invalid display %q: must be %q or %q", s, DisplayInternal, DisplayAll)
	}
}

// =============================================================================
// Graph - Node-Link Serialization
// =============================================================================

// Graph is the node-link form of a dependency cache, as consumed by the
// visualization front-end.
type Graph struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Node is one repository at a commit, or one external package.
type Node struct {
	ID       string `json:"id" bson:"id"`
	Label    string `json:"label" bson:"label"`                           // ID with the commit shortened
	Group    string `json:"group" bson:"group"`                           // Bare repository or package name
	Internal bool   `json:"internal,omitempty" bson:"internal,omitempty"` // Organization node
	Dead     bool   `json:"dead,omitempty" bson:"dead,omitempty"`         // Recorded under a dead-branch sentinel
}

// Edge is a declared dependency of From on To.
type Edge struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
}

// NodeCount returns the number of nodes.
func (g Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges.
func (g Graph) EdgeCount() int { return len(g.Edges) }

// =============================================================================
// Cache → Graph Conversion
// =============================================================================

// FromCache materializes a dependency cache for org.
//
// Nodes are the union of all cache keys and all dependency keys, sorted by
// ID. Edges follow cache keys in sorted order, then dependency order. With
// [DisplayInternal], only nodes that are cache keys or whose ID contains the
// organization name are kept, together with the edges between them.
func FromCache(entries map[string][]string, org string, display Display) Graph {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	ids := make(map[string]bool)
	for _, k := range keys {
		ids[k] = true
		for _, d := range entries[k] {
			ids[d] = true
		}
	}

	internal := func(id string) bool {
		_, resolved := entries[id]
		return resolved || (org != "" && strings.Contains(id, org))
	}
	keep := func(id string) bool {
		return display == DisplayAll || internal(id)
	}

	out := Graph{Nodes: []Node{}, Edges: []Edge{}}
	for _, id := range slices.Sorted(maps.Keys(ids)) {
		if keep(id) {
			out.Nodes = append(out.Nodes, newNode(id, internal(id)))
		}
	}
	for _, k := range keys {
		if !keep(k) {
			continue
		}
		for _, d := range entries[k] {
			if keep(d) {
				out.Edges = append(out.Edges, Edge{From: k, To: d})
			}
		}
	}
	return out
}

func newNode(id string, internal bool) Node {
	name, version := deps.SplitKey(id)
	return Node{
		ID:       id,
		Label:    Label(id),
		Group:    name,
		Internal: internal,
		Dead:     deps.IsDead(version),
	}
}

// Label returns the display label of a key. A key ending in a full commit
// hash keeps the first six characters of the hash; other keys are returned
// unchanged.
//
//	Label("core@3f2a9c1e4b5d6f708192a3b4c5d6e7f8091a2b3c") == "core@3f2a9c"
func Label(id string) string {
	name, version := deps.SplitKey(id)
	if deps.IsCommitHash(version) {
		return name + "@" + version[:6]
	}
	return id
}

// =============================================================================
// Serialization
// =============================================================================

// Write encodes g as indented JSON.
func Write(g Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read decodes a JSON graph.
func Read(r io.Reader) (Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return Graph{}, fmt.Errorf("decode: %w", err)
	}
	return g, nil
}
