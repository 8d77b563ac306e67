package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"nsfgraph/agent"
	"nsfgraph/config"
	"nsfgraph/datasources"
	"nsfgraph/graph"
	"nsfgraph/llm"
	"nsfgraph/logger"
	"nsfgraph/monitor"
	"nsfgraph/scraper"
	"nsfgraph/server"
	"nsfgraph/tui"
)

const graphFile = "nsfgraph.json"

func main() {
	// .env is optional in some environments
	_ = godotenv.Load()

	if err := config.Load(); err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Global.Logging.Level, config.Global.Logging.EnableColors)

	tuiApp := tui.New()

	// Start TUI in background early so it can receive logs
	go func() {
		if err := tuiApp.Start(); err != nil {
			fmt.Printf("TUI Error: %v\n", err)
			os.Exit(1)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	logger.SetOutput(tuiApp.NewWriter())
	logger.SetTUIMode(true)

	logger.Info(logger.StatusInit, "%s v%s", config.Global.App.Name, config.Global.App.Version)
	logger.Info(logger.StatusInit, "NSF Award Knowledge Graph - natural-language award exploration")

	// 1. Graph setup: load the saved graph if one exists
	var g *graph.Graph
	if _, err := os.Stat(graphFile); err == nil {
		loadedGraph, err := graph.Load(graphFile)
		if err != nil {
			logger.Warn(logger.StatusWarn, "Failed to load graph: %v", err)
			g = graph.NewGraph()
		} else {
			g = loadedGraph
			logger.Success("Graph loaded: %s", g.String())
		}
	} else {
		logger.Info(logger.StatusInit, "No existing graph found. Creating new graph...")
		g = graph.NewGraph()
	}
	g.EnableAutoSave(graphFile, 10)

	builder := graph.NewBuilder(g)

	// 2. Collaborators
	client := llm.NewClient()
	nsf := datasources.NewNSFClient(config.Global.NSF.BaseURL,
		time.Duration(config.Global.NSF.Timeout)*time.Second)
	nsf.PerPage = config.Global.NSF.PerPage
	nsfAgent := agent.New(client, nsf)
	searcher := scraper.NewWebSearcher()

	// 3. Dashboard hub
	hub := server.NewHub()
	go hub.Run()
	server.StartServer(hub, config.Global.Server.Port)

	// 4. Watch engine
	watcher := monitor.NewEngine(builder, nsfAgent, hub, config.Global.NSF.MaxAwards)
	go watcher.Watch(time.Duration(config.Global.Watch.PollInterval) * time.Second)

	// Update TUI stats periodically
	go func() {
		for range time.Tick(2 * time.Second) {
			tuiApp.UpdateStats(g.NodeCount(), g.EdgeCount())
		}
	}()

	// Handle commands from TUI (blocks until TUI exits)
	for input := range tuiApp.GetCommandChannel() {
		handleCommand(input, g, builder, nsfAgent, searcher, watcher, hub, tuiApp)
	}
}

func handleCommand(input string, g *graph.Graph, builder *graph.Builder, nsfAgent *agent.Agent, searcher *scraper.WebSearcher, watcher *monitor.Engine, hub *server.Hub, tuiApp *tui.TUI) {
	parts := strings.Split(strings.TrimSpace(input), " ")
	if len(parts) == 0 || parts[0] == "" {
		return
	}

	switch parts[0] {
	case "ask":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: ask <question about NSF awards>")
			return
		}
		question := strings.Join(parts[1:], " ")
		loaded := builder.LoadQueryResults(nsfAgent, question, config.Global.NSF.MaxAwards)
		if loaded > 0 {
			hub.Broadcast("graph_update", g.Snapshot())
		}
	case "summary":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: summary <question about NSF awards>")
			return
		}
		question := strings.Join(parts[1:], " ")
		_, results, err := nsfAgent.Execute(question)
		if err != nil {
			logger.Error(logger.StatusErr, "Fetch failed: %v", err)
			return
		}
		digest, err := nsfAgent.Summarize(question, results)
		if err != nil {
			logger.Error(logger.StatusErr, "Summary failed: %v", err)
			return
		}
		logger.Plain("")
		logger.Section("Summary")
		logger.Plain("%s", digest)
	case "watch":
		if len(parts) < 2 {
			current := watcher.Question()
			if current == "" {
				logger.Info(logger.StatusWatch, "No watched query. Usage: watch <question> (or 'watch off')")
			} else {
				logger.Info(logger.StatusWatch, "Watching: %q", current)
			}
			return
		}
		if parts[1] == "off" {
			watcher.SetQuestion("")
			logger.Info(logger.StatusWatch, "Watch disabled")
			return
		}
		question := strings.Join(parts[1:], " ")
		watcher.SetQuestion(question)
		logger.Info(logger.StatusWatch, "Watching: %q", question)
		go watcher.RunOnce()
	case "info":
		builder.Info()
	case "pi":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: pi <PI name>")
			return
		}
		name := strings.Join(parts[1:], " ")
		awards := builder.PIAwards(name)
		logger.Info(logger.StatusPI, "%s investigates %d award(s)", name, len(awards))
		for _, key := range awards {
			logger.InfoDepth(1, logger.StatusAward, "%s", key)
		}
	case "inst":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: inst <institution name>")
			return
		}
		name := strings.Join(parts[1:], " ")
		pis := builder.InstitutionPIs(name)
		logger.Info(logger.StatusInst, "%s hosts %d PI(s)", name, len(pis))
		for _, key := range pis {
			logger.InfoDepth(1, logger.StatusPI, "%s", key)
		}
	case "enrich":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: enrich <institution name>")
			return
		}
		name := strings.Join(parts[1:], " ")
		go enrichInstitution(g, searcher, name)
	case "show":
		printGraph(g)
	case "save":
		target := graphFile
		if len(parts) >= 2 {
			target = parts[1]
		}
		if err := g.Save(target); err != nil {
			logger.Error(logger.StatusErr, "Error saving graph: %v", err)
		} else {
			logger.Success("Graph saved to %s", target)
		}
	case "load":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: load <filename.json>")
			return
		}
		newG, err := graph.Load(parts[1])
		if err != nil {
			logger.Error(logger.StatusErr, "Error loading graph: %v", err)
		} else {
			g.Replace(newG)
			logger.Success("Graph loaded from %s (%s)", parts[1], g.String())
		}
	case "export":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: export <filename.dot>")
			return
		}
		if err := os.WriteFile(parts[1], []byte(g.ToDOT()), 0644); err != nil {
			logger.Error(logger.StatusErr, "Error exporting DOT: %v", err)
		} else {
			logger.Success("Graph exported to %s", parts[1])
		}
	case "exit", "quit", "q":
		logger.Info(logger.StatusOK, "Shutting down...")
		tuiApp.Stop()
	case "help", "?":
		logger.Plain("")
		logger.Section("Available Commands")
		logger.Plain("  ask <question>     - Translate a question and ingest matching awards")
		logger.Plain("  summary <question> - Fetch matching awards and summarize them in prose")
		logger.Plain("  watch <question>   - Periodically re-run a question ('watch off' to stop)")
		logger.Plain("  info               - Node counts by type, edge total, density")
		logger.Plain("  pi <name>          - Awards investigated by a PI")
		logger.Plain("  inst <name>        - PIs affiliated with an institution")
		logger.Plain("  enrich <name>      - Attach web context to an institution node")
		logger.Plain("  show               - Show all nodes and edges")
		logger.Plain("  save [F]           - Save graph to file F")
		logger.Plain("  load <F>           - Load graph from file F")
		logger.Plain("  export <F>         - Export graph to DOT file F")
		logger.Plain("  exit               - Quit")
	default:
		logger.Warn(logger.StatusWarn, "Unknown command: %s (type 'help' for commands)", parts[0])
	}
}

// enrichInstitution attaches website/snippet attributes to an existing
// Institution node from a web lookup.
func enrichInstitution(g *graph.Graph, searcher *scraper.WebSearcher, name string) {
	node, ok := g.GetNode(name)
	if !ok || node.Type != graph.NodeTypeInstitution {
		logger.Warn(logger.StatusWarn, "No institution node named %q in the graph", name)
		return
	}

	logger.Info(logger.StatusChk, "Looking up %q on the web...", name)
	result, err := searcher.LookupInstitution(name)
	if err != nil {
		logger.Warn(logger.StatusWarn, "Enrichment failed: %v", err)
		return
	}

	g.SetNodeAttributes(name, map[string]interface{}{
		"website": result.Link,
		"snippet": result.Snippet,
	})
	logger.Success("Enriched %q: %s", name, result.Link)
}

func printGraph(g *graph.Graph) {
	logger.Plain("")
	logger.Section("Nodes")
	g.NodesRange(func(n *graph.Node) {
		logger.Plain("[%s] %s", n.Type, n.Key)
	})
	logger.Plain("")
	logger.Section("Edges")
	g.EdgesRange(func(e *graph.Edge) {
		logger.Plain("%s -- %s [%s]", e.A, e.B, e.Relationship)
	})
}
