package attendance

import (
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

//go:embed templates/index.html
var indexHtml string
var indexTemplate = template.Must(template.New("index").Parse(indexHtml))

type latestResponse struct {
	Path      *string `json:"path"`
	Timestamp *string `json:"timestamp"`
	Content   *string `json:"content"`
}

type historyResponse struct {
	ID        int64   `json:"id"`
	CycleID   string  `json:"cycle_id"`
	Path      string  `json:"path"`
	Timestamp string  `json:"timestamp"`
	Content   *string `json:"content"`
}

type indexData struct {
	Found     bool
	Path      string
	Timestamp string
	Content   string
}

type server struct {
	service *Service
}

// NewHandler serves the web ui and json api over service.
func NewHandler(service *Service) http.Handler {
	s := server{service: service}

	router := mux.NewRouter()
	router.HandleFunc("/", s.index).Methods(http.MethodGet)
	router.HandleFunc("/api/latest", s.apiLatest).Methods(http.MethodGet)
	router.HandleFunc("/api/history", s.apiHistory).Methods(http.MethodGet)
	router.HandleFunc("/qr_codes/{filename}", s.qrCode).Methods(http.MethodGet)
	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}

func writeJson(ctx context.Context, w http.ResponseWriter, value any) {
	w.Header().Set("content-type", "application/json")
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.ErrorContext(ctx, "failed to write json response", "err", err)
	}
}

func (s server) index(w http.ResponseWriter, r *http.Request) {
	data := indexData{}
	record, ok := s.service.Latest()
	if ok {
		data = indexData{
			Found:     true,
			Path:      record.Path,
			Timestamp: record.Timestamp.Format(TimestampFormat),
		}
		if record.Content != nil {
			data.Content = *record.Content
		}
	}

	w.Header().Set("content-type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render index", "err", err)
	}
}

func (s server) apiLatest(w http.ResponseWriter, r *http.Request) {
	res := latestResponse{}
	record, ok := s.service.Latest()
	if ok {
		timestamp := record.Timestamp.Format(TimestampFormat)
		res = latestResponse{
			Path:      &record.Path,
			Timestamp: &timestamp,
			Content:   record.Content,
		}
	}
	writeJson(r.Context(), w, res)
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultHistoryLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, false
	}
	return min(limit, maxHistoryLimit), true
}

func (s server) apiHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}

	entries, err := s.service.History(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to read history", "err", err)
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}

	res := make([]historyResponse, len(entries))
	for i, e := range entries {
		res[i] = historyResponse{
			ID:        e.ID,
			CycleID:   e.CycleID,
			Path:      filepath.Base(e.Path),
			Timestamp: e.CapturedAt.Format(TimestampFormat),
			Content:   e.Content,
		}
	}
	writeJson(r.Context(), w, res)
}

func (s server) qrCode(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if filename == "" ||
		filename != filepath.Base(filename) ||
		strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, `/\`) {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}

	path := filepath.Join(s.service.OutputDir(), filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}
