package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"nsfgraph/logger"
)

// NodeType represents the category of a node.
type NodeType string

const (
	NodeTypePI          NodeType = "PI"
	NodeTypeInstitution NodeType = "Institution"
	NodeTypeAward       NodeType = "Award"
	NodeTypeTopic       NodeType = "Topic"
)

// Relationship labels an undirected edge.
type Relationship string

const (
	RelInvestigates   Relationship = "investigates"    // PI - Award
	RelHosts          Relationship = "hosts"           // Institution - Award
	RelAffiliatedWith Relationship = "affiliated_with" // PI - Institution
	RelFocusesOn      Relationship = "focuses_on"      // Award - Topic
)

// Node represents an entity in the award ecosystem. Keys are globally unique
// across all four types: "Award_"+id and "Topic_"+keyword are synthetic,
// PI and Institution keys are the raw names. An institution literally named
// "Award_7" would collide with award id 7; that edge case is accepted.
type Node struct {
	Key        string                 `json:"key"`
	Type       NodeType               `json:"type"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Edge is an undirected connection between two nodes. There is at most one
// edge per endpoint pair; re-adding overwrites the relationship label.
type Edge struct {
	A            string       `json:"a"`
	B            string       `json:"b"`
	Relationship Relationship `json:"relationship"`
}

// Graph is the in-memory award knowledge graph. It grows monotonically:
// nodes are never removed by normal operation.
type Graph struct {
	Nodes     map[string]*Node            `json:"nodes"`
	Edges     map[string]*Edge            `json:"edges"` // key: canonical endpoint pair
	adjacency map[string]map[string]*Edge // node key -> neighbor key -> edge
	mu        sync.RWMutex

	// Auto-save configuration
	autoSavePath         string
	changesSinceLastSave int
	autoSaveThreshold    int
}

// NewGraph initializes a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:     make(map[string]*Node),
		Edges:     make(map[string]*Edge),
		adjacency: make(map[string]map[string]*Edge),
	}
}

// edgeKey builds the canonical map key for an unordered endpoint pair.
func edgeKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// EnableAutoSave configures automatic graph persistence after every
// threshold mutations.
func (g *Graph) EnableAutoSave(path string, threshold int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.autoSavePath = path
	g.autoSaveThreshold = threshold
	logger.Info(logger.StatusSave, "Auto-save enabled: %s (every %d changes)", path, threshold)
}

// triggerAutoSave saves the graph if the threshold is reached (lock held).
func (g *Graph) triggerAutoSave() {
	if g.autoSavePath == "" || g.autoSaveThreshold <= 0 {
		return
	}
	g.changesSinceLastSave++

	if g.changesSinceLastSave >= g.autoSaveThreshold {
		// Release lock temporarily for the save operation
		g.mu.Unlock()

		if err := g.Save(g.autoSavePath); err != nil {
			logger.Warn(logger.StatusWarn, "Auto-save failed: %v", err)
		} else {
			logger.Info(logger.StatusSave, "Auto-saved graph to %s", g.autoSavePath)
		}

		g.mu.Lock()
		g.changesSinceLastSave = 0
	}
}

// UpsertNode creates the node if the key is absent and reports whether it
// was created. Attributes of an existing node are left untouched; this is
// the create-only policy used for PI, Institution and Topic nodes.
func (g *Graph) UpsertNode(key string, t NodeType, attrs map[string]interface{}) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.Nodes[key]; ok {
		return false
	}
	if attrs == nil {
		attrs = make(map[string]interface{})
	}
	g.Nodes[key] = &Node{Key: key, Type: t, Attributes: attrs}

	g.triggerAutoSave()
	return true
}

// SetNode creates or unconditionally overwrites a node. Award nodes use
// this so re-ingesting the same award id refreshes its attributes.
func (g *Graph) SetNode(key string, t NodeType, attrs map[string]interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if attrs == nil {
		attrs = make(map[string]interface{})
	}
	g.Nodes[key] = &Node{Key: key, Type: t, Attributes: attrs}

	g.triggerAutoSave()
}

// UpsertEdge creates or overwrites the undirected edge between a and b.
// No multi-edge support: a second call with the same endpoints replaces
// the relationship label instead of duplicating the edge.
func (g *Graph) UpsertEdge(a, b string, rel Relationship) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := edgeKey(a, b)
	if existing, ok := g.Edges[key]; ok {
		existing.Relationship = rel
		return
	}

	e := &Edge{A: a, B: b, Relationship: rel}
	g.Edges[key] = e

	if g.adjacency == nil {
		g.adjacency = make(map[string]map[string]*Edge)
	}
	g.link(a, b, e)
	g.link(b, a, e)

	g.triggerAutoSave()
}

// link records a neighbor entry (lock held).
func (g *Graph) link(from, to string, e *Edge) {
	if g.adjacency[from] == nil {
		g.adjacency[from] = make(map[string]*Edge)
	}
	g.adjacency[from][to] = e
}

// SetNodeAttributes merges attrs into an existing node under the write
// lock and reports whether the node was found. Callers must not mutate
// attribute maps through pointers obtained from GetNode.
func (g *Graph) SetNodeAttributes(key string, attrs map[string]interface{}) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.Nodes[key]
	if !ok {
		return false
	}
	for k, v := range attrs {
		n.Attributes[k] = v
	}

	g.triggerAutoSave()
	return true
}

// GetNode retrieves a node by key.
func (g *Graph) GetNode(key string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.Nodes[key]
	return n, ok
}

// GetEdge retrieves the edge between two keys, in either order.
func (g *Graph) GetEdge(a, b string) (*Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.Edges[edgeKey(a, b)]
	return e, ok
}

// Neighbors returns the keys adjacent to the given node, sorted for
// deterministic output, optionally filtered by relationship label.
// An absent node yields an empty slice, not an error.
func (g *Graph) Neighbors(key string, rel Relationship) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]string, 0)
	for neighbor, edge := range g.adjacency[key] {
		if rel != "" && edge.Relationship != rel {
			continue
		}
		result = append(result, neighbor)
	}
	sort.Strings(result)
	return result
}

// NodeCount returns the total number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.Nodes)
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.Edges)
}

// Density returns the edge count normalized by the maximum possible number
// of edges for the current node count. Zero for fewer than two nodes.
func (g *Graph) Density() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := len(g.Nodes)
	if n < 2 {
		return 0
	}
	maxEdges := float64(n*(n-1)) / 2
	return float64(len(g.Edges)) / maxEdges
}

// CountByType tallies nodes grouped by their type.
func (g *Graph) CountByType() map[NodeType]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := make(map[NodeType]int)
	for _, n := range g.Nodes {
		counts[n.Type]++
	}
	return counts
}

// String returns a summary of the graph.
func (g *Graph) String() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fmt.Sprintf("Graph(Nodes: %d, Edges: %d)", len(g.Nodes), len(g.Edges))
}

// NodesRange iterates over a snapshot of nodes to avoid long locks.
func (g *Graph) NodesRange(f func(*Node)) {
	g.mu.RLock()
	snapshot := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		snapshot = append(snapshot, n)
	}
	g.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Key < snapshot[j].Key })
	for _, n := range snapshot {
		f(n)
	}
}

// EdgesRange iterates over a snapshot of edges to avoid long locks.
func (g *Graph) EdgesRange(f func(*Edge)) {
	g.mu.RLock()
	snapshot := make([]*Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		snapshot = append(snapshot, e)
	}
	g.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return edgeKey(snapshot[i].A, snapshot[i].B) < edgeKey(snapshot[j].A, snapshot[j].B)
	})
	for _, e := range snapshot {
		f(e)
	}
}

// Snapshot returns a JSON-marshalable copy of nodes and edges for
// broadcasting to the dashboard. Everything is copied under the read
// lock; the hub marshals the snapshot on its own goroutine, so it must
// not alias live graph data.
func (g *Graph) Snapshot() map[string]interface{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		attrs := make(map[string]interface{}, len(n.Attributes))
		for k, v := range n.Attributes {
			attrs[k] = v
		}
		nodes = append(nodes, Node{Key: n.Key, Type: n.Type, Attributes: attrs})
	}
	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, *e)
	}
	return map[string]interface{}{
		"nodes": nodes,
		"edges": edges,
	}
}

// Clear removes all nodes and edges from the graph safely.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Nodes = make(map[string]*Node)
	g.Edges = make(map[string]*Edge)
	g.adjacency = make(map[string]map[string]*Edge)
	g.changesSinceLastSave = 0

	logger.Info(logger.StatusInit, "Graph cleared")
}

// Save writes the graph to a JSON file.
func (g *Graph) Save(filename string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

// Load reads a graph from a JSON file and rebuilds the adjacency cache.
func Load(filename string) (*Graph, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}

	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	if g.Edges == nil {
		g.Edges = make(map[string]*Edge)
	}
	g.adjacency = make(map[string]map[string]*Edge)
	for _, e := range g.Edges {
		g.link(e.A, e.B, e)
		g.link(e.B, e.A, e)
	}

	return &g, nil
}

// Replace swaps the current graph's data for another graph's data safely.
func (g *Graph) Replace(other *Graph) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Nodes = other.Nodes
	g.Edges = other.Edges

	g.adjacency = make(map[string]map[string]*Edge)
	for _, e := range other.Edges {
		g.link(e.A, e.B, e)
		g.link(e.B, e.A, e)
	}
}
