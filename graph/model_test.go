package graph

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsertNode(t *testing.T) {
	t.Run("creates absent node", func(t *testing.T) {
		g := NewGraph()

		created := g.UpsertNode("JANE DOE", NodeTypePI, map[string]interface{}{"name": "JANE DOE"})

		assert.True(t, created)
		n, ok := g.GetNode("JANE DOE")
		assert.True(t, ok)
		assert.Equal(t, NodeTypePI, n.Type)
	})

	t.Run("existing node is left untouched", func(t *testing.T) {
		g := NewGraph()
		g.UpsertNode("UT Knoxville", NodeTypeInstitution, map[string]interface{}{"name": "UT Knoxville"})

		created := g.UpsertNode("UT Knoxville", NodeTypeInstitution, map[string]interface{}{"name": "overwritten"})

		assert.False(t, created)
		n, _ := g.GetNode("UT Knoxville")
		assert.Equal(t, "UT Knoxville", n.Attributes["name"])
		assert.Equal(t, 1, g.NodeCount())
	})

	t.Run("nil attributes become an empty map", func(t *testing.T) {
		g := NewGraph()
		g.UpsertNode("Topic_groundwater", NodeTypeTopic, nil)

		n, _ := g.GetNode("Topic_groundwater")
		assert.NotNil(t, n.Attributes)
	})
}

func TestSetNode(t *testing.T) {
	t.Run("overwrites existing attributes", func(t *testing.T) {
		g := NewGraph()
		g.SetNode("Award_100", NodeTypeAward, map[string]interface{}{"program": "Hydrology"})

		g.SetNode("Award_100", NodeTypeAward, map[string]interface{}{"program": "Geophysics"})

		assert.Equal(t, 1, g.NodeCount())
		n, _ := g.GetNode("Award_100")
		assert.Equal(t, "Geophysics", n.Attributes["program"])
	})
}

func TestUpsertEdge(t *testing.T) {
	t.Run("same endpoints never duplicate", func(t *testing.T) {
		g := NewGraph()
		g.UpsertNode("a", NodeTypePI, nil)
		g.UpsertNode("b", NodeTypeAward, nil)

		g.UpsertEdge("a", "b", RelInvestigates)
		g.UpsertEdge("a", "b", RelInvestigates)
		g.UpsertEdge("b", "a", RelInvestigates) // reversed order, same pair

		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("re-adding overwrites the relationship label", func(t *testing.T) {
		g := NewGraph()
		g.UpsertEdge("a", "b", RelInvestigates)

		g.UpsertEdge("a", "b", RelHosts)

		e, ok := g.GetEdge("a", "b")
		assert.True(t, ok)
		assert.Equal(t, RelHosts, e.Relationship)
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("adjacency is symmetric", func(t *testing.T) {
		g := NewGraph()
		g.UpsertEdge("a", "b", RelAffiliatedWith)

		assert.Equal(t, []string{"b"}, g.Neighbors("a", ""))
		assert.Equal(t, []string{"a"}, g.Neighbors("b", ""))
	})
}

func TestNeighbors(t *testing.T) {
	t.Run("filters by relationship", func(t *testing.T) {
		g := NewGraph()
		g.UpsertEdge("pi", "Award_1", RelInvestigates)
		g.UpsertEdge("pi", "inst", RelAffiliatedWith)

		assert.Equal(t, []string{"Award_1"}, g.Neighbors("pi", RelInvestigates))
		assert.Equal(t, []string{"Award_1", "inst"}, g.Neighbors("pi", ""))
	})

	t.Run("absent node yields empty slice", func(t *testing.T) {
		g := NewGraph()
		got := g.Neighbors("nobody", "")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestDensity(t *testing.T) {
	t.Run("zero for fewer than two nodes", func(t *testing.T) {
		g := NewGraph()
		assert.Zero(t, g.Density())
		g.UpsertNode("only", NodeTypePI, nil)
		assert.Zero(t, g.Density())
	})

	t.Run("edges over maximum possible edges", func(t *testing.T) {
		g := NewGraph()
		for _, k := range []string{"a", "b", "c", "d", "e"} {
			g.UpsertNode(k, NodeTypeTopic, nil)
		}
		g.UpsertEdge("a", "b", RelFocusesOn)
		g.UpsertEdge("a", "c", RelFocusesOn)
		g.UpsertEdge("a", "d", RelFocusesOn)
		g.UpsertEdge("a", "e", RelFocusesOn)
		g.UpsertEdge("b", "c", RelFocusesOn)

		// 5 edges out of C(5,2)=10
		assert.InDelta(t, 0.5, g.Density(), 1e-9)
	})
}

func TestSetNodeAttributes(t *testing.T) {
	t.Run("merges into an existing node", func(t *testing.T) {
		g := NewGraph()
		g.UpsertNode("UT Knoxville", NodeTypeInstitution, map[string]interface{}{"name": "UT Knoxville"})

		ok := g.SetNodeAttributes("UT Knoxville", map[string]interface{}{
			"website": "https://utk.edu",
		})

		assert.True(t, ok)
		n, _ := g.GetNode("UT Knoxville")
		assert.Equal(t, "https://utk.edu", n.Attributes["website"])
		assert.Equal(t, "UT Knoxville", n.Attributes["name"])
	})

	t.Run("absent node reports false", func(t *testing.T) {
		g := NewGraph()
		assert.False(t, g.SetNodeAttributes("Nowhere U", map[string]interface{}{"website": "x"}))
	})
}

func TestSnapshot(t *testing.T) {
	t.Run("detached from later edge relabels", func(t *testing.T) {
		g := NewGraph()
		g.UpsertEdge("JANE DOE", "Award_1", RelInvestigates)

		snap := g.Snapshot()
		g.UpsertEdge("JANE DOE", "Award_1", RelHosts)

		edges := snap["edges"].([]Edge)
		assert.Len(t, edges, 1)
		assert.Equal(t, RelInvestigates, edges[0].Relationship)
	})

	t.Run("detached from later attribute writes", func(t *testing.T) {
		g := NewGraph()
		g.UpsertNode("UT Knoxville", NodeTypeInstitution, map[string]interface{}{"name": "UT Knoxville"})

		snap := g.Snapshot()
		g.SetNodeAttributes("UT Knoxville", map[string]interface{}{"website": "https://utk.edu"})

		nodes := snap["nodes"].([]Node)
		assert.Len(t, nodes, 1)
		assert.NotContains(t, nodes[0].Attributes, "website")
	})

	t.Run("safe to marshal while another goroutine relabels", func(t *testing.T) {
		g := NewGraph()
		g.UpsertEdge("JANE DOE", "Award_1", RelInvestigates)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 200; i++ {
				_, err := json.Marshal(g.Snapshot())
				assert.NoError(t, err)
			}
		}()
		for i := 0; i < 200; i++ {
			g.UpsertEdge("JANE DOE", "Award_1", RelHosts)
			g.UpsertEdge("JANE DOE", "Award_1", RelInvestigates)
		}
		<-done
	})
}

func TestSaveLoad(t *testing.T) {
	t.Run("round-trips nodes, edges and adjacency", func(t *testing.T) {
		g := NewGraph()
		g.UpsertNode("JANE DOE", NodeTypePI, map[string]interface{}{"name": "JANE DOE"})
		g.SetNode("Award_100", NodeTypeAward, map[string]interface{}{"id": "100"})
		g.UpsertEdge("JANE DOE", "Award_100", RelInvestigates)

		path := filepath.Join(t.TempDir(), "graph.json")
		assert.NoError(t, g.Save(path))

		loaded, err := Load(path)
		assert.NoError(t, err)
		assert.Equal(t, 2, loaded.NodeCount())
		assert.Equal(t, 1, loaded.EdgeCount())
		assert.Equal(t, []string{"Award_100"}, loaded.Neighbors("JANE DOE", RelInvestigates))
	})
}

func TestCountByType(t *testing.T) {
	g := NewGraph()
	g.UpsertNode("p1", NodeTypePI, nil)
	g.UpsertNode("p2", NodeTypePI, nil)
	g.UpsertNode("i1", NodeTypeInstitution, nil)

	counts := g.CountByType()

	assert.Equal(t, 2, counts[NodeTypePI])
	assert.Equal(t, 1, counts[NodeTypeInstitution])
	assert.Zero(t, counts[NodeTypeAward])
}
