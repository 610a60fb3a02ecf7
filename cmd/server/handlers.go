package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"echotrace/internal/audio"
)

type SongDTO struct {
	ID         uint32 `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int    `json:"duration_ms"`
}

type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

type AddSongResponse struct {
	Message  string `json:"message"`
	ID       uint32 `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Postings int    `json:"postings"`
}

type DeleteSongResponse struct {
	Message string `json:"message"`
	ID      uint32 `json:"id"`
}

type MatchResultDTO struct {
	SongID uint32  `json:"song_id"`
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	Score  float64 `json:"score"`
}

type MatchResponse struct {
	Matches []MatchResultDTO `json:"matches"`
	Count   int              `json:"count"`
}

type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	SongCount    int    `json:"song_count"`
	PostingCount int    `json:"posting_count"`
	SampleRate   int    `json:"sample_rate"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "echotrace API",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"metrics":    "GET /api/health/metrics",
			"songs":      "GET /api/songs",
			"addSong":    "POST /api/songs",
			"getSong":    "GET /api/songs/{id}",
			"deleteSong": "DELETE /api/songs/{id}",
			"match":      "POST /api/match",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	songs, err := s.db.ListSongs()
	if err != nil {
		s.log.Warnf("listing songs for metrics: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		SongCount:    len(songs),
		PostingCount: s.engine.Index().Size(),
		SampleRate:   s.config.SampleRate,
	})
}

func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSong(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Path[len("/api/songs/"):]
	if idStr == "" {
		s.respondError(w, http.StatusBadRequest, "song ID required")
		return
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid song ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSong(w, uint32(id))
	case http.MethodDelete:
		s.handleDeleteSong(w, uint32(id))
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.db.ListSongs()
	if err != nil {
		s.log.Warnf("listing songs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve songs")
		return
	}

	dtos := make([]SongDTO, len(songs))
	for i, song := range songs {
		dtos[i] = SongDTO{
			ID:         song.ID,
			Title:      song.Title,
			Artist:     song.Artist,
			DurationMs: song.DurationMs,
		}
	}
	s.respondJSON(w, http.StatusOK, ListSongsResponse{Songs: dtos, Count: len(dtos)})
}

func (s *Server) handleGetSong(w http.ResponseWriter, songID uint32) {
	song, err := s.db.GetSongByID(songID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("song %d not found", songID))
		return
	}
	s.respondJSON(w, http.StatusOK, SongDTO{
		ID:         song.ID,
		Title:      song.Title,
		Artist:     song.Artist,
		DurationMs: song.DurationMs,
	})
}

// handleDeleteSong removes the song from storage. The in-memory index is
// append-only; its postings for the song disappear on the next restart.
func (s *Server) handleDeleteSong(w http.ResponseWriter, songID uint32) {
	song, err := s.db.GetSongByID(songID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("song %d not found", songID))
		return
	}

	if err := s.db.DeleteSongByID(songID); err != nil {
		s.log.Warnf("deleting song %d: %v", songID, err)
		s.respondError(w, http.StatusInternalServerError, "failed to delete song")
		return
	}

	s.log.Infof("deleted song %d (%s by %s)", songID, song.Title, song.Artist)
	s.respondJSON(w, http.StatusOK, DeleteSongResponse{Message: "song deleted", ID: songID})
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}
	title := r.FormValue("title")
	artist := r.FormValue("artist")
	if title == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	samples, err := s.saveAndDecode(ctx, r, "upload")
	if err != nil {
		s.log.Warnf("add song upload: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	durationMs := len(samples) * 1000 / s.config.SampleRate
	songID, err := s.db.RegisterSong(title, artist, durationMs)
	if err != nil {
		s.log.Warnf("registering song: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to register song")
		return
	}

	pairs := s.engine.Fingerprint(samples)
	if err := s.db.StoreFingerprints(songID, pairs); err != nil {
		s.log.Warnf("storing fingerprints: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to store fingerprints")
		return
	}
	added := s.engine.Index().AddPairs(songID, pairs)

	s.log.Infof("added song %d (%s by %s): %d postings", songID, title, artist, added)
	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message:  "song added",
		ID:       songID,
		Title:    title,
		Artist:   artist,
		Postings: added,
	})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	samples, err := s.saveAndDecode(ctx, r, "query")
	if err != nil {
		s.log.Warnf("match upload: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	matches := s.engine.MatchSignal(samples)
	dtos := make([]MatchResultDTO, 0, len(matches))
	for _, m := range matches {
		song, err := s.db.GetSongByID(m.SongID)
		if err != nil {
			s.log.Warnf("matched song %d missing from storage: %v", m.SongID, err)
			continue
		}
		dtos = append(dtos, MatchResultDTO{
			SongID: m.SongID,
			Title:  song.Title,
			Artist: song.Artist,
			Score:  m.Score,
		})
	}

	s.log.Infof("match complete: %d results", len(dtos))
	s.respondJSON(w, http.StatusOK, MatchResponse{Matches: dtos, Count: len(dtos)})
}

// saveAndDecode spools the uploaded "audio" form file to the temp dir,
// converts it to canonical mono WAV and decodes it into samples.
func (s *Server) saveAndDecode(ctx context.Context, r *http.Request, prefix string) ([]int, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, fmt.Errorf("audio file is required")
	}
	defer file.Close()

	tempFile := filepath.Join(s.config.TempDir,
		fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), filepath.Base(header.Filename)))
	out, err := os.Create(tempFile)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tempFile)

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return nil, fmt.Errorf("saving upload: %w", err)
	}
	out.Close()

	wavPath, err := audio.ConvertToMonoWAV(ctx, tempFile, s.config.TempDir,
		audio.ConvertWAVConfig{SampleRate: s.config.SampleRate})
	if err != nil {
		return nil, fmt.Errorf("audio conversion failed: %w", err)
	}
	defer os.Remove(wavPath)

	samples, _, err := audio.ReadWAV(wavPath)
	if err != nil {
		return nil, fmt.Errorf("decoding wav: %w", err)
	}
	return samples, nil
}
