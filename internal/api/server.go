package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vesyncbridge/internal/classify"
	"vesyncbridge/internal/discovery"
	"vesyncbridge/internal/vesync"
)

// Inventory exposes the current per-category device buckets.
type Inventory interface {
	Buckets() map[classify.Category][]vesync.Device
}

// Refresher runs one discovery pass on demand.
type Refresher interface {
	Reconcile() error
}

// Server provides the HTTP surface of the bridge: health, device
// inventory, a manual refresh trigger and a WebSocket discovery feed.
// It implements discovery.Sink so every category broadcast is pushed
// to connected feed clients.
type Server struct {
	inventory Inventory
	refresher Refresher
	logger    *zap.Logger
	server    *http.Server
	upgrader  websocket.Upgrader

	connsMu sync.Mutex
	conns   map[*feedConn]struct{}
}

// feedConn wraps one WebSocket client; the mutex serializes writes.
type feedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *feedConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// NewServer creates a new API server
func NewServer(inventory Inventory, refresher Refresher, logger *zap.Logger, port int) *Server {
	s := &Server{
		inventory: inventory,
		refresher: refresher,
		logger:    logger,
		conns:     make(map[*feedConn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSitemap)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/ws", s.handleFeed)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's HTTP handler; used by tests to mount it
// on an httptest server.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// DeviceRecord is the JSON shape of one device in the inventory.
type DeviceRecord struct {
	CID              string `json:"cid"`
	UUID             string `json:"uuid,omitempty"`
	Name             string `json:"name"`
	DeviceType       string `json:"deviceType"`
	ConnectionStatus string `json:"connectionStatus"`
	DeviceStatus     string `json:"deviceStatus"`
}

// DevicesResponse represents the JSON response for the devices endpoint
type DevicesResponse struct {
	Categories map[string][]DeviceRecord `json:"categories"`
}

// handleDevices returns the bucket inventory as JSON
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := DevicesResponse{Categories: make(map[string][]DeviceRecord)}
	for category, devices := range s.inventory.Buckets() {
		records := make([]DeviceRecord, 0, len(devices))
		for _, d := range devices {
			records = append(records, DeviceRecord{
				CID:              d.ID(),
				UUID:             d.UUID(),
				Name:             d.Name(),
				DeviceType:       d.Type(),
				ConnectionStatus: d.ConnectionStatus(),
				DeviceStatus:     d.Status(),
			})
		}
		response.Categories[string(category)] = records
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("Devices request served",
		zap.String("remote_addr", r.RemoteAddr))
}

// handleRefresh runs one reconciliation on demand. The trigger takes
// no parameters; concurrent triggers queue behind the reconciler.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("Manual device refresh requested",
		zap.String("remote_addr", r.RemoteAddr))

	if err := s.refresher.Reconcile(); err != nil {
		s.logger.Error("Manual refresh failed", zap.Error(err))
		http.Error(w, "Refresh failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// handleFeed upgrades the connection and streams discovery events
// until the client disconnects.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedConn{conn: conn}
	s.connsMu.Lock()
	s.conns[client] = struct{}{}
	s.connsMu.Unlock()

	s.logger.Info("Discovery feed client connected",
		zap.String("remote_addr", r.RemoteAddr))

	// Drain inbound frames to detect disconnects; the feed is one-way.
	go func() {
		defer s.dropConn(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) dropConn(client *feedConn) {
	s.connsMu.Lock()
	_, present := s.conns[client]
	delete(s.conns, client)
	s.connsMu.Unlock()

	if present {
		client.conn.Close()
		s.logger.Info("Discovery feed client disconnected")
	}
}

// Publish implements discovery.Sink: every broadcast is pushed to all
// connected feed clients. A client that fails a write is dropped.
func (s *Server) Publish(event discovery.Event) {
	s.connsMu.Lock()
	clients := make([]*feedConn, 0, len(s.conns))
	for c := range s.conns {
		clients = append(clients, c)
	}
	s.connsMu.Unlock()

	for _, client := range clients {
		if err := client.writeJSON(event); err != nil {
			s.logger.Warn("Dropping discovery feed client", zap.Error(err))
			s.dropConn(client)
		}
	}
}

// Endpoint represents an API endpoint with its documentation
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

// handleSitemap returns a list of all available API endpoints
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	// Only handle requests to the root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	endpoints := []Endpoint{
		{
			Path:        "/",
			Method:      "GET",
			Description: "This sitemap - lists all available API endpoints",
		},
		{
			Path:        "/health",
			Method:      "GET",
			Description: "Health check endpoint - returns {\"status\": \"ok\"}",
		},
		{
			Path:        "/api/devices",
			Method:      "GET",
			Description: "Get the discovered device inventory per category",
		},
		{
			Path:        "/api/refresh",
			Method:      "POST",
			Description: "Run one device discovery pass now",
		},
		{
			Path:        "/ws",
			Method:      "GET",
			Description: "WebSocket feed of per-category discovery events",
		},
	}

	// Return 404 status code (for automation compatibility) but with helpful body
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)

	fmt.Fprintf(w, "VeSync Bridge API\n")
	fmt.Fprintf(w, "=================\n\n")
	fmt.Fprintf(w, "Available endpoints:\n\n")
	for _, ep := range endpoints {
		fmt.Fprintf(w, "  %-10s %-20s %s\n", ep.Method, ep.Path, ep.Description)
	}

	s.logger.Debug("Sitemap request served",
		zap.String("remote_addr", r.RemoteAddr))
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	s.connsMu.Lock()
	for client := range s.conns {
		client.conn.Close()
		delete(s.conns, client)
	}
	s.connsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
