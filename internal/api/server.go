package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/sortacle/sortacle/internal/events"
	"github.com/sortacle/sortacle/internal/httputil"
	"github.com/sortacle/sortacle/internal/pipeline"
	"github.com/sortacle/sortacle/internal/status"
	"github.com/sortacle/sortacle/internal/version"
	"github.com/sortacle/sortacle/internal/waste"
)

// ANSI escape codes for request log colouring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes the sorter's read-only data API. It only observes the
// pipeline; nothing here can trigger the actuator.
type Server struct {
	hub     *status.Hub
	store   *events.Store
	metrics func() pipeline.Metrics
	binID   string
}

func NewServer(hub *status.Hub, store *events.Store, metrics func() pipeline.Metrics, binID string) *Server {
	return &Server{
		hub:     hub,
		store:   store,
		metrics: metrics,
		binID:   binID,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/recent", s.listRecent)
	mux.HandleFunc("/api/today", s.listToday)
	mux.HandleFunc("/api/live", s.showLive)
	mux.HandleFunc("/api/pause", s.setPaused)
	return mux
}

func (s *Server) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return false
	}
	return true
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		httputil.NotFound(w, "not found")
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"service": "sortacle",
		"version": version.String(),
		"bin_id":  s.binID,
	})
}

// showStatus reports the pipeline's current state and counters.
func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"state":   s.hub.Snapshot(),
		"metrics": s.metrics(),
	})
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	stats, err := s.store.QueryStats()
	if err != nil {
		log.Printf("error querying stats: %v", err)
		httputil.InternalServerError(w, "failed to query stats")
		return
	}
	httputil.WriteJSONOK(w, stats)
}

// listRecent returns the newest events, capped by the limit query param.
func (s *Server) listRecent(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	evs, err := s.store.QueryRecent(limit)
	if err != nil {
		log.Printf("error querying recent events: %v", err)
		httputil.InternalServerError(w, "failed to query events")
		return
	}
	if evs == nil {
		evs = []waste.DisposalEvent{} // keep the JSON an array, not null
	}
	httputil.WriteJSONOK(w, evs)
}

// listToday returns the events recorded since local midnight.
func (s *Server) listToday(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	evs, err := s.store.QuerySince(midnight)
	if err != nil {
		log.Printf("error querying today's events: %v", err)
		httputil.InternalServerError(w, "failed to query events")
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"date":   midnight.Format("2006-01-02"),
		"count":  len(evs),
		"events": evs,
	})
}

// showLive returns just the latest detections, suitable for polling UIs.
func (s *Server) showLive(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	snap := s.hub.Snapshot()
	httputil.WriteJSONOK(w, map[string]any{
		"detections":        snap.LatestDetections,
		"inference_source":  snap.InferenceSource,
		"inference_time_ms": snap.InferenceTimeMs,
		"paused":            snap.Paused,
	})
}

// setPaused suspends or resumes frame capture. The only write endpoint,
// and it never touches the actuator.
func (s *Server) setPaused(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	paused, err := strconv.ParseBool(r.FormValue("paused"))
	if err != nil {
		httputil.BadRequest(w, "paused must be true or false")
		return
	}
	s.hub.SetPaused(paused)
	httputil.WriteJSONOK(w, map[string]bool{"paused": paused})
}
