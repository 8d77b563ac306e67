package monitor

import (
	"sync"
	"time"

	"nsfgraph/graph"
	"nsfgraph/logger"
	"nsfgraph/server"
)

// Engine periodically re-runs a stored question against the awards API and
// ingests whatever comes back. Award, PI, Institution and Topic dedup in
// the graph makes repeated ingestion of the same results harmless.
type Engine struct {
	Builder   *graph.Builder
	Fetcher   graph.Fetcher
	Hub       *server.Hub
	MaxAwards int

	mu       sync.Mutex
	question string
}

func NewEngine(b *graph.Builder, f graph.Fetcher, hub *server.Hub, maxAwards int) *Engine {
	return &Engine{
		Builder:   b,
		Fetcher:   f,
		Hub:       hub,
		MaxAwards: maxAwards,
	}
}

// SetQuestion stores or replaces the watched question. An empty string
// stops the watcher without tearing down its loop.
func (e *Engine) SetQuestion(q string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.question = q
}

// Question returns the currently watched question, empty when idle.
func (e *Engine) Question() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.question
}

// Watch polls on a fixed interval. Runs until the process exits.
func (e *Engine) Watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Info(logger.StatusWatch, "Watch loop active, polling every %v", interval)

	for range ticker.C {
		e.RunOnce()
	}
}

// RunOnce executes one watch cycle for the stored question.
func (e *Engine) RunOnce() {
	question := e.Question()
	if question == "" {
		return
	}

	logger.Info(logger.StatusWatch, "Re-running watched query: %q", question)
	loaded := e.Builder.LoadQueryResults(e.Fetcher, question, e.MaxAwards)

	if e.Hub != nil {
		e.Hub.Broadcast("watch_alert", map[string]interface{}{
			"question": question,
			"loaded":   loaded,
		})
		if loaded > 0 {
			e.Hub.Broadcast("graph_update", e.Builder.G.Snapshot())
		}
	}
}
