package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"covid-risk-areas/areas"
	"covid-risk-areas/metrics"
	"covid-risk-areas/models"
	"covid-risk-areas/services"
	"covid-risk-areas/storage"
	"covid-risk-areas/utils"
)

const requestTimeout = 15 * time.Second

type Server struct {
	store        storage.Store
	stats        *services.StatisticService
	logger       *utils.Logger
	defaultSize  int
	historyLimit int
}

// NewServer creates the HTTP API over store. defaultSize is the number of
// snapshots returned when a request names none; historyLimit bounds how far
// back a comparison source may be picked.
func NewServer(store storage.Store, logger *utils.Logger, defaultSize, historyLimit int) *Server {
	return &Server{
		store:        store,
		stats:        services.NewStatisticService(logger),
		logger:       logger,
		defaultSize:  defaultSize,
		historyLimit: historyLimit,
	}
}

func (s *Server) Routes() http.Handler {
	routes := []struct {
		pattern string
		handler http.Handler
	}{
		{"/healthz", http.HandlerFunc(s.health)},
		{"/api/covid", http.HandlerFunc(s.handleCovid)},
		{"/api/covid/statistic", http.HandlerFunc(s.handleStatistic)},
		{"/api/covid/table", http.HandlerFunc(s.handleTable)},
		{"/api/covid/export", http.HandlerFunc(s.handleExport)},
		{"/api/covid/patch", http.HandlerFunc(s.handlePatch)},
		{"/metrics", metrics.Handler()},
	}

	mux := http.NewServeMux()
	known := make(map[string]bool, len(routes))
	for _, rt := range routes {
		mux.Handle(rt.pattern, rt.handler)
		known[rt.pattern] = true
	}
	return s.withLogging(known, withCORS(mux))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCovid(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Has("download") {
			s.handleDownloaded(w, r)
			return
		}
		s.handleList(w, r)
	case http.MethodPost:
		s.handleFixes(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	size := s.defaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "size must be a positive integer")
			return
		}
		size = n
	}

	snaps, fixes, err := services.LatestWithFixes(ctx, s.store, size)
	if err != nil {
		s.logger.Error("[server] list snapshots: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load snapshots")
		return
	}
	if fixes == nil {
		fixes = []models.AreaFix{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"data":  snaps,
		"fixes": fixes,
	})
}

func (s *Server) handleDownloaded(w http.ResponseWriter, r *http.Request) {
	create, err := strconv.ParseInt(r.URL.Query().Get("download"), 10, 64)
	if err != nil || create <= 0 {
		s.writeError(w, http.StatusBadRequest, "download must be a snapshot create time")
		return
	}

	if err := s.store.MarkDownloaded(r.Context(), create); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "snapshot not found")
			return
		}
		s.logger.Error("[server] mark downloaded %d: %v", create, err)
		s.writeError(w, http.StatusInternalServerError, "failed to update snapshot")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "create": create})
}

func (s *Server) handleFixes(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Fixes []models.AreaFix `json:"fixes"`
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	existing, err := s.store.Fixes(ctx)
	if err != nil {
		s.logger.Error("[server] load fixes: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load fixes")
		return
	}

	merged := areas.ReconcileFixes(existing, payload.Fixes)
	if err := s.store.SaveFixes(ctx, merged); err != nil {
		s.logger.Error("[server] save fixes: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save fixes")
		return
	}
	s.logger.Info("[server] Fixes reconciled: %d stored, %d received, %d kept",
		len(existing), len(payload.Fixes), len(merged))

	s.writeJSON(w, http.StatusOK, map[string]any{"fixes": merged})
}

func (s *Server) handleStatistic(w http.ResponseWriter, r *http.Request) {
	current, source, ok := s.loadPair(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.stats.Generate(current, source))
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	current, source, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	page, err := services.RenderPage(s.stats.Generate(current, source))
	if err != nil {
		s.logger.Error("[server] render table: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to render table")
		return
	}
	metrics.ExportsTotal.WithLabelValues("html").Inc()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	current, source, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	book, err := services.ToExcel(s.stats.Generate(current, source))
	if err != nil {
		s.logger.Error("[server] build workbook: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	defer book.Close()

	buf, err := book.WriteToBuffer()
	if err != nil {
		s.logger.Error("[server] write workbook: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	if err := s.store.MarkDownloaded(r.Context(), current.Create); err != nil {
		s.logger.Warn("[server] mark downloaded %d: %v", current.Create, err)
	}
	metrics.ExportsTotal.WithLabelValues("xlsx").Inc()

	name := services.ExcelFilename(current.CreatedAt())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"covid.xlsx\"; filename*=UTF-8''%s", url.PathEscape(name)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	current, source, ok := s.loadPair(w, r)
	if !ok {
		return
	}

	patch, err := services.UnifiedPatch(source, current)
	if err != nil {
		s.logger.Error("[server] diff snapshots: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to diff snapshots")
		return
	}
	metrics.ExportsTotal.WithLabelValues("patch").Inc()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(patch))
}

// loadPair resolves the current snapshot and its comparison source from the
// "source" query parameter, writing the error response itself on failure.
func (s *Server) loadPair(w http.ResponseWriter, r *http.Request) (current, source *models.Snapshot, ok bool) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, nil, false
	}

	var sourceCreate int64
	if raw := r.URL.Query().Get("source"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "source must be a snapshot create time")
			return nil, nil, false
		}
		sourceCreate = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snaps, _, err := services.LatestWithFixes(ctx, s.store, s.historyLimit)
	if err != nil {
		s.logger.Error("[server] load snapshots: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load snapshots")
		return nil, nil, false
	}

	current, source, err = services.SelectPair(snaps, sourceCreate)
	switch {
	case errors.Is(err, services.ErrNoData):
		s.writeError(w, http.StatusNotFound, "no snapshot available")
		return nil, nil, false
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "source snapshot not found")
		return nil, nil, false
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}
	return current, source, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("[server] encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
