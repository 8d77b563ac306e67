package graph

import (
	"strconv"

	"nsfgraph/datasources"
	"nsfgraph/logger"
)

// abstractLimit caps the abstract text stored on an Award node.
const abstractLimit = 200

// topicLimit caps the number of Topic edges attached per award.
const topicLimit = 5

// Fetcher is the injected agent capability LoadQueryResults delegates to:
// translate a natural-language question and fetch matching awards.
// A translation error is signalled by an "error" key in params with nil
// results; a fetch failure by a non-nil error.
type Fetcher interface {
	Execute(question string) (map[string]string, *datasources.AwardsResponse, error)
}

// Builder assembles award records into a knowledge graph. The graph is
// always instance-scoped; every query goes through the builder rather than
// any process-global state.
type Builder struct {
	G *Graph
}

func NewBuilder(g *Graph) *Builder {
	return &Builder{G: g}
}

// AddAward ingests one award record into the graph. Ingestion is
// best-effort: missing fields fall back to placeholder defaults and the
// call never fails. Steps run unconditionally in order with no rollback.
//
// Re-ingesting the same award id overwrites the Award node's attributes
// but never duplicates it; PI, Institution and Topic nodes are create-only.
func (b *Builder) AddAward(rec datasources.AwardRecord) {
	id := rec.ID
	if id == "" {
		id = "Unknown"
	}
	pi := rec.PIName
	if pi == "" {
		pi = "Unknown PI"
	}
	institution := rec.AwardeeName
	if institution == "" {
		institution = "Unknown Institution"
	}
	program := rec.FundProgramName
	if program == "" {
		program = "Unknown Program"
	}
	startDate := rec.StartDate
	if startDate == "" {
		startDate = "N/A"
	}
	amount, _ := strconv.ParseFloat(rec.EstimatedTotalAmt, 64)

	abstract := datasources.CleanAbstract(rec.AbstractText)

	awardKey := "Award_" + id
	b.G.SetNode(awardKey, NodeTypeAward, map[string]interface{}{
		"id":         id,
		"program":    program,
		"amount":     amount,
		"start_date": startDate,
		"abstract":   truncate(abstract, abstractLimit),
	})

	b.G.UpsertNode(pi, NodeTypePI, map[string]interface{}{"name": pi})
	b.G.UpsertNode(institution, NodeTypeInstitution, map[string]interface{}{"name": institution})

	b.G.UpsertEdge(pi, awardKey, RelInvestigates)
	b.G.UpsertEdge(institution, awardKey, RelHosts)
	b.G.UpsertEdge(pi, institution, RelAffiliatedWith)

	for i, kw := range ExtractKeywords(abstract) {
		if i >= topicLimit {
			break
		}
		topicKey := "Topic_" + kw
		b.G.UpsertNode(topicKey, NodeTypeTopic, nil)
		b.G.UpsertEdge(awardKey, topicKey, RelFocusesOn)
	}

	logger.DebugDepth(1, logger.StatusAward, "Ingested %s (PI: %s, %s)", awardKey, pi, institution)
}

// LoadQueryResults resolves a natural-language question through the agent
// and ingests at most maxAwards of the returned records. On a translation
// error or fetch failure the graph is left unchanged and zero is returned.
func (b *Builder) LoadQueryResults(f Fetcher, question string, maxAwards int) int {
	params, results, err := f.Execute(question)
	if err != nil {
		logger.Error(logger.StatusErr, "Award fetch failed: %v", err)
		return 0
	}
	if msg, ok := params["error"]; ok {
		logger.Warn(logger.StatusQuery, "Query could not be translated: %s", msg)
		return 0
	}
	if results == nil || len(results.Response.Award) == 0 {
		logger.Info(logger.StatusFetch, "No results for query %q", question)
		return 0
	}

	records := results.Response.Award
	if maxAwards > 0 && len(records) > maxAwards {
		records = records[:maxAwards]
	}
	for _, rec := range records {
		b.AddAward(rec)
	}

	logger.Info(logger.StatusAward, "Loaded %d of %d awards (total matches: %d)",
		len(records), len(results.Response.Award), int(results.Response.Metadata.TotalCount))
	logger.Info(logger.StatusGraph, "%s", b.G.String())
	return len(records)
}

// PIAwards returns the Award node keys connected to the given PI by an
// investigates edge. An absent PI yields an empty slice.
func (b *Builder) PIAwards(piName string) []string {
	return b.G.Neighbors(piName, RelInvestigates)
}

// InstitutionPIs returns the keys of adjacent nodes whose type is PI.
// An absent institution yields an empty slice.
func (b *Builder) InstitutionPIs(institutionName string) []string {
	pis := make([]string, 0)
	for _, key := range b.G.Neighbors(institutionName, "") {
		if n, ok := b.G.GetNode(key); ok && n.Type == NodeTypePI {
			pis = append(pis, key)
		}
	}
	return pis
}

// Info returns a count-by-type tally and reports node/edge totals and
// graph density.
func (b *Builder) Info() map[NodeType]int {
	counts := b.G.CountByType()
	logger.Info(logger.StatusGraph, "Nodes: %d, Edges: %d, Density: %.4f",
		b.G.NodeCount(), b.G.EdgeCount(), b.G.Density())
	for _, t := range []NodeType{NodeTypeAward, NodeTypePI, NodeTypeInstitution, NodeTypeTopic} {
		logger.InfoDepth(1, statusFor(t), "%s: %d", t, counts[t])
	}
	return counts
}

func statusFor(t NodeType) logger.StatusCode {
	switch t {
	case NodeTypePI:
		return logger.StatusPI
	case NodeTypeInstitution:
		return logger.StatusInst
	case NodeTypeTopic:
		return logger.StatusTopic
	default:
		return logger.StatusAward
	}
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
