package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nsfgraph/datasources"
	"nsfgraph/graph"
)

type stubFetcher struct {
	results *datasources.AwardsResponse
	calls   int
}

func (s *stubFetcher) Execute(question string) (map[string]string, *datasources.AwardsResponse, error) {
	s.calls++
	return map[string]string{"keyword": "water"}, s.results, nil
}

func TestRunOnce(t *testing.T) {
	t.Run("idle without a question", func(t *testing.T) {
		f := &stubFetcher{}
		e := NewEngine(graph.NewBuilder(graph.NewGraph()), f, nil, 10)

		e.RunOnce()

		assert.Zero(t, f.calls)
	})

	t.Run("ingests results for the watched question", func(t *testing.T) {
		resp := &datasources.AwardsResponse{}
		resp.Response.Award = []datasources.AwardRecord{
			{ID: "1", PIName: "JANE DOE", AwardeeName: "UT Knoxville"},
		}
		resp.Response.Metadata.TotalCount = 1

		f := &stubFetcher{results: resp}
		b := graph.NewBuilder(graph.NewGraph())
		e := NewEngine(b, f, nil, 10)
		e.SetQuestion("water research grants")

		e.RunOnce()
		e.RunOnce() // repeat ingestion is deduplicated by the graph

		assert.Equal(t, 2, f.calls)
		assert.Equal(t, 1, b.G.CountByType()[graph.NodeTypeAward])
		assert.Equal(t, 3, b.G.NodeCount())
	})

	t.Run("watch off stops the cycle", func(t *testing.T) {
		f := &stubFetcher{}
		e := NewEngine(graph.NewBuilder(graph.NewGraph()), f, nil, 10)
		e.SetQuestion("water research grants")
		e.SetQuestion("")

		e.RunOnce()

		assert.Zero(t, f.calls)
	})
}
