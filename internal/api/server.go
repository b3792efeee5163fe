package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"docksight/internal/config"
	"docksight/internal/logger"
	"docksight/internal/tracker"
)

// Server exposes the tracker's registry over HTTP for dock UIs that poll on
// their own cadence, plus a WebSocket stream for ones that prefer pushes.
type Server struct {
	router    *mux.Router
	tracker   *tracker.Tracker
	configMgr *config.Manager
	upgrader  websocket.Upgrader

	// refresh is the WebSocket push cadence.
	refresh time.Duration
}

// AppStatus is one running application as reported by /api/apps.
type AppStatus struct {
	AppID   string `json:"app_id"`
	Windows int    `json:"windows"`
	Pinned  bool   `json:"pinned"`
}

// Snapshot is the payload pushed over the WebSocket stream.
type Snapshot struct {
	Backend string                 `json:"backend"`
	Windows []tracker.WindowRecord `json:"windows"`
	Apps    []AppStatus            `json:"apps"`
}

// NewServer creates an API server over the given tracker.
func NewServer(t *tracker.Tracker, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		tracker:   t,
		configMgr: configMgr,
		refresh:   2 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Localhost-only service; origin checks add nothing.
				return true
			},
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/windows", s.handleGetWindows).Methods("GET")
	api.HandleFunc("/apps", s.handleGetApps).Methods("GET")
	api.HandleFunc("/apps/{id}/windows", s.handleGetAppWindows).Methods("GET")
	api.HandleFunc("/apps/{id}/count", s.handleGetAppCount).Methods("GET")
	api.HandleFunc("/apps/{id}/count", s.handleSetAppCount).Methods("PUT")
	api.HandleFunc("/backend", s.handleGetBackend).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/stream", s.handleStream)
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the API on the given port and blocks.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("API server listening")
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleGetWindows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tracker.AllWindows())
}

func (s *Server) handleGetApps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.appStatuses())
}

// appStatuses aggregates the current snapshot by app id and annotates each
// entry with whether it matches a pinned launcher.
func (s *Server) appStatuses() []AppStatus {
	var apps []AppStatus
	index := make(map[string]int)

	for _, rec := range s.tracker.AllWindows() {
		if rec.AppID == "" {
			continue
		}
		key := strings.ToLower(rec.AppID)
		if i, ok := index[key]; ok {
			apps[i].Windows++
			continue
		}
		index[key] = len(apps)
		apps = append(apps, AppStatus{
			AppID:   rec.AppID,
			Windows: 1,
			Pinned:  s.configMgr != nil && s.configMgr.IsPinned(rec.AppID),
		})
	}
	return apps
}

func (s *Server) handleGetAppWindows(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)["id"]
	windows := s.tracker.WindowsForApp(appID)
	if windows == nil {
		windows = []tracker.WindowRecord{}
	}
	writeJSON(w, windows)
}

func (s *Server) handleGetAppCount(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)["id"]
	writeJSON(w, map[string]any{
		"app_id": appID,
		"count":  s.tracker.WindowCount(appID),
	})
}

func (s *Server) handleSetAppCount(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)["id"]

	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Count < 0 {
		http.Error(w, "count must not be negative", http.StatusBadRequest)
		return
	}

	s.tracker.SetWindowCount(appID, req.Count)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleGetBackend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"backend": s.tracker.Kind().String()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"backend": s.tracker.Kind().String(),
		"running": s.tracker.IsRunning(),
	})
}

// handleStream upgrades to WebSocket and pushes the full snapshot at the
// refresh cadence until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		snapshot := Snapshot{
			Backend: s.tracker.Kind().String(),
			Windows: s.tracker.AllWindows(),
			Apps:    s.appStatuses(),
		}
		if err := conn.WriteJSON(snapshot); err != nil {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
