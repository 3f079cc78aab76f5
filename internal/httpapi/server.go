package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/downdetector/internal/detector"
	"github.com/hamed0406/downdetector/internal/domain"
	apimw "github.com/hamed0406/downdetector/internal/httpapi/middleware"
	"github.com/hamed0406/downdetector/internal/probe"
	"github.com/hamed0406/downdetector/internal/repo"
	"github.com/hamed0406/downdetector/internal/scheduler"
)

// Detector is the part of *detector.Detector the API needs.
type Detector interface {
	Handle(domain.Observation) error
	IsNetworkDown() bool
	DownSince() (time.Time, bool)
	RecordedEvents() []domain.DowntimeEvent
	LastEvent() (domain.DowntimeEvent, bool)
	Hosts() map[domain.HostID]domain.HostState
}

// Throughput exposes the latest speed test reading.
type Throughput interface {
	Latest() (scheduler.Reading, bool)
}

type Server struct {
	Logger     *zap.Logger
	Detector   Detector
	Events     repo.EventStore // persisted history, may be nil
	Throughput Throughput      // may be nil
}

func NewServer(l *zap.Logger, d Detector, events repo.EventStore, tp Throughput) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Detector: d, Events: events, Throughput: tp}
}

// Router wires the routes. Reads need a public or admin key, ingestion needs
// an admin key; each tier has its own per-IP rate limit.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(pubRPM, pubBurst))
		r.Use(apimw.RequireAny(keys))

		r.Get("/api/status", s.handleStatus)
		r.Get("/api/hosts", s.handleHosts)
		r.Get("/api/events", s.handleEvents)
		r.Get("/api/events/last", s.handleLastEvent)
		r.Get("/api/history", s.handleHistory)
		r.Get("/api/throughput", s.handleThroughput)
		r.Get("/api/classify", s.handleClassify)
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(admRPM, admBurst))
		r.Use(apimw.RequireAdmin(keys))

		r.Post("/api/observations", s.handleObserve)
	})

	return r
}

type statusResponse struct {
	NetworkDown    bool       `json:"network_down"`
	Since          *time.Time `json:"since,omitempty"`
	TrackedHosts   int        `json:"tracked_hosts"`
	RecordedEvents int        `json:"recorded_events"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		TrackedHosts:   len(s.Detector.Hosts()),
		RecordedEvents: len(s.Detector.RecordedEvents()),
	}
	// one read so network_down and since always agree
	if since, ok := s.Detector.DownSince(); ok {
		resp.NetworkDown = true
		resp.Since = &since
	}
	writeJSON(w, http.StatusOK, resp)
}

type hostView struct {
	Host domain.HostID `json:"host"`
	domain.HostState
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	states := s.Detector.Hosts()
	out := make([]hostView, 0, len(states))
	for h, st := range states {
		out = append(out, hostView{Host: h, HostState: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	evs := s.Detector.RecordedEvents()
	if evs == nil {
		evs = []domain.DowntimeEvent{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func (s *Server) handleLastEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.Detector.LastEvent()
	if !ok {
		writeError(w, http.StatusNotFound, "no downtime recorded")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		writeJSON(w, http.StatusOK, []repo.Record{})
		return
	}
	recs, err := s.Events.List(r.Context())
	if err != nil {
		s.Logger.Error("history_list_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	if recs == nil {
		recs = []repo.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleThroughput(w http.ResponseWriter, r *http.Request) {
	if s.Throughput == nil {
		writeError(w, http.StatusNotFound, "no throughput reading")
		return
	}
	rd, ok := s.Throughput.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no throughput reading")
		return
	}
	writeJSON(w, http.StatusOK, rd)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("message")
	writeJSON(w, http.StatusOK, map[string]domain.Outcome{"outcome": probe.Classify(msg)})
}

type observePayload struct {
	Host      string     `json:"host"`
	Message   *string    `json:"message"`
	Timestamp *time.Time `json:"timestamp"`
}

type observeResponse struct {
	Outcome     domain.Outcome `json:"outcome"`
	NetworkDown bool           `json:"network_down"`
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var p observePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if p.Host == "" || p.Message == nil || p.Timestamp == nil {
		writeError(w, http.StatusBadRequest, "host, message and timestamp are required")
		return
	}

	obs := domain.Observation{Host: domain.HostID(p.Host), Message: *p.Message, Timestamp: *p.Timestamp}
	err := s.Detector.Handle(obs)
	switch {
	case errors.Is(err, detector.ErrOutOfOrder):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, domain.ErrMissingHost), errors.Is(err, domain.ErrMissingTimestamp):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.Logger.Error("observation_error", zap.String("host", p.Host), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record observation")
		return
	}

	writeJSON(w, http.StatusAccepted, observeResponse{
		Outcome:     probe.Classify(obs.Message),
		NetworkDown: s.Detector.IsNetworkDown(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
