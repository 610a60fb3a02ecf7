package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"echotrace/internal/engine"
	"echotrace/internal/storage"
	"echotrace/pkg/logger"
)

// Server exposes the fingerprint engine over HTTP. The in-memory index is
// loaded once at startup and kept current as songs are added, so queries
// never touch SQLite.
type Server struct {
	db     *storage.DBClient
	engine *engine.Engine
	config *ServerConfig
	log    *logger.Logger
}

type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
}

func NewServer(db *storage.DBClient, eng *engine.Engine, config *ServerConfig) *Server {
	return &Server{
		db:     db,
		engine: eng,
		config: config,
		log:    logger.GetLogger(),
	}
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/health/metrics", s.handleMetrics)

	mux.HandleFunc("/api/songs", s.handleSongs)
	mux.HandleFunc("/api/songs/", s.handleSong)

	mux.HandleFunc("/api/match", s.handleMatch)

	return corsMiddleware(s.config.AllowedOrigins)(mux)
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warnf("encoding JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

func (s *Server) Start() error {
	handler := s.setupRoutes()

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Infof("echotrace server listening on %s", addr)
	s.log.Infof("  database: %s, sample rate: %d Hz, origins: %v",
		s.config.DBPath, s.config.SampleRate, s.config.AllowedOrigins)

	return http.ListenAndServe(addr, handler)
}
