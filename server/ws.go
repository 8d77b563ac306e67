package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"nsfgraph/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for prototype
	},
}

// BroadcastMessage is the envelope pushed to every dashboard client.
type BroadcastMessage struct {
	Type    string      `json:"type"`    // "graph_update", "ingest", "watch_alert"
	Payload interface{} `json:"payload"` // The actual data
}

type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan BroadcastMessage
	mu        sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan BroadcastMessage),
	}
}

func (h *Hub) Run() {
	for msg := range h.broadcast {
		h.mu.Lock()
		for client := range h.clients {
			err := client.WriteJSON(msg)
			if err != nil {
				logger.Warn(logger.StatusNet, "WS write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mu.Unlock()
	}
}

func (h *Hub) Broadcast(msgType string, payload interface{}) {
	h.broadcast <- BroadcastMessage{
		Type:    msgType,
		Payload: payload,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(logger.StatusNet, "WS upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	conn.WriteJSON(BroadcastMessage{Type: "system", Payload: "Connected to NSFGraph stream"})
}

func StartServer(h *Hub, port string) {
	http.HandleFunc("/ws", h.HandleWebSocket)
	http.Handle("/", http.FileServer(http.Dir("./public")))

	logger.Info(logger.StatusNet, "WebSocket server on ws://localhost%s/ws", port)
	logger.Info(logger.StatusNet, "Dashboard at http://localhost%s", port)

	go func() {
		if err := http.ListenAndServe(port, nil); err != nil {
			logger.Error(logger.StatusErr, "ListenAndServe: %v", err)
		}
	}()
}
