package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/usecase"
)

// Server provides the HTTP admin API used by operators and digest-mcp
type Server struct {
	digestUC  *usecase.DigestUsecase
	channelUC *usecase.ChannelUsecase

	server *http.Server
	port   int
}

// NewServer creates a new API server
func NewServer(digestUC *usecase.DigestUsecase, channelUC *usecase.ChannelUsecase, port int) *Server {
	return &Server{
		digestUC:  digestUC,
		channelUC: channelUC,
		port:      port,
	}
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Digest
	mux.HandleFunc("/api/digest/preview", s.handlePreview)
	mux.HandleFunc("/api/digest/run", s.handleRun)
	mux.HandleFunc("/api/digest/runs", s.handleRuns)

	// Buffer
	mux.HandleFunc("/api/buffer/summary", s.handleBufferSummary)

	// Channel lists
	mux.HandleFunc("/api/channels/", s.handleChannels)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: s.Handler(),
	}

	fmt.Printf("[API] Starting HTTP server on port %d\n", s.port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetPort returns the server port
func (s *Server) GetPort() int {
	return s.port
}

// ============ Digest Handlers ============

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hours, err := queryInt(r, "hours")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	last, err := queryInt(r, "last")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	window := func(snap *domain.Snapshot) *domain.Snapshot {
		if hours > 0 {
			snap = snap.Since(time.Now().Add(-time.Duration(hours) * time.Hour))
		}
		if last > 0 {
			snap = snap.LastN(last)
		}
		return snap
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s.digestUC.Preview(window)))
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The run outlives a dropped HTTP connection
	result := s.digestUC.Run(context.WithoutCancel(r.Context()))
	s.writeJSON(w, result)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := s.digestUC.RecentRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"runs": runs})
}

// ============ Buffer Handlers ============

func (s *Server) handleBufferSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summaries := s.digestUC.BufferSummary()
	total := 0
	for _, sum := range summaries {
		total += sum.MessageCount
	}
	s.writeJSON(w, map[string]interface{}{"summaries": summaries, "total": total})
}

// ============ Channel Handlers ============

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/channels/{list} or /api/channels/{list}/{name}
	path := strings.TrimPrefix(r.URL.Path, "/api/channels/")
	list, name, hasName := strings.Cut(path, "/")

	channelList := domain.ChannelList(list)
	if !channelList.Valid() {
		http.Error(w, fmt.Sprintf("unknown channel list %q", list), http.StatusNotFound)
		return
	}

	if hasName {
		s.handleChannelItem(w, r, channelList, name)
		return
	}

	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		entries, err := s.channelUC.List(ctx, channelList)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"list": channelList, "channels": entries})

	case http.MethodPost:
		var req struct {
			Name    string `json:"name"`
			AddedBy string `json:"added_by"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if domain.NormalizeChannelName(req.Name) == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if req.AddedBy == "" {
			req.AddedBy = "api"
		}
		entry, err := s.channelUC.Add(ctx, channelList, req.Name, req.AddedBy)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "channel": entry})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleChannelItem(w http.ResponseWriter, r *http.Request, list domain.ChannelList, name string) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if domain.NormalizeChannelName(name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := s.channelUC.Remove(r.Context(), list, name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true})
}

// ============ Helpers ============

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
