// Package web serves the study API as JSON over HTTP.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/conorfennell/revisa/internal/deck"
	"github.com/conorfennell/revisa/internal/srs"
	"github.com/conorfennell/revisa/internal/storage"
	"github.com/conorfennell/revisa/internal/study"
)

// maxForecastDays keeps /forecast responses bounded.
const maxForecastDays = 366

// Server holds the dependencies for the HTTP server.
type Server struct {
	db       *storage.DB
	study    *study.Service
	syncer   *deck.Syncer
	session  srs.SelectOptions
	logger   *slog.Logger
	router   *http.ServeMux
	handler  http.Handler
	syncLock sync.Mutex
}

// Options tunes a Server.
type Options struct {
	// Session holds the selection defaults that /session query
	// parameters override.
	Session srs.SelectOptions
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, svc *study.Service, syncer *deck.Syncer, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		db:      db,
		study:   svc,
		syncer:  syncer,
		session: opts.Session,
		logger:  logger,
		router:  http.NewServeMux(),
	}
	s.routes()
	s.handler = s.logRequests(allowOrigins(s.router, opts.CORSOrigins))
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth())

	s.router.HandleFunc("GET /deck", s.handleGetDeck())
	s.router.HandleFunc("GET /session", s.handleGetSession())
	s.router.HandleFunc("GET /cards/{hash}", s.handleGetCard())
	s.router.HandleFunc("GET /cards/{hash}/preview", s.handleGetPreview())
	s.router.HandleFunc("POST /cards/{hash}/review", s.handlePostReview())
	s.router.HandleFunc("POST /cards/{hash}/suspend", s.handleSuspend(true))
	s.router.HandleFunc("DELETE /cards/{hash}/suspend", s.handleSuspend(false))

	s.router.HandleFunc("GET /forecast", s.handleGetForecast())
	s.router.HandleFunc("GET /stats", s.handleGetStats())
	s.router.HandleFunc("GET /qualities", s.handleGetQualities())

	// Source management routes
	s.router.HandleFunc("GET /sources", s.handleGetSources())
	s.router.HandleFunc("POST /sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleGetDeck reports how many cards are due, per bucket.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := s.study.Deck(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, sum)
	}
}

type sessionResponse struct {
	Count int              `json:"count"`
	New   int              `json:"new"`
	Cards []study.CardView `json:"cards"`
}

// handleGetSession returns the cards to study now.
func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := s.sessionOptions(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		cards, err := s.study.Session(r.Context(), opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, sessionResponse{
			Count: len(cards),
			New:   lo.CountBy(cards, func(c study.CardView) bool { return c.State.Status == srs.New }),
			Cards: cards,
		})
	}
}

func (s *Server) sessionOptions(r *http.Request) (srs.SelectOptions, error) {
	opts := s.session
	q := r.URL.Query()

	if v := q.Get("order"); v != "" {
		order, err := srs.ParseOrder(v)
		if err != nil {
			return opts, err
		}
		opts.Order = order
	}
	for name, dst := range map[string]*int{"max_new": &opts.MaxNew, "max_reviews": &opts.MaxReviews} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, invalidParam(name, v)
			}
			*dst = n
		}
	}
	for name, dst := range map[string]*bool{
		"include_new":      &opts.IncludeNew,
		"include_learning": &opts.IncludeLearning,
		"include_review":   &opts.IncludeReview,
	} {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, invalidParam(name, v)
			}
			*dst = b
		}
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, invalidParam("seed", v)
		}
		opts.Rand = rand.New(rand.NewPCG(seed, seed))
	}
	return opts, nil
}

func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.study.Card(r.Context(), r.PathValue("hash"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	}
}

// handleGetPreview shows the outcome of each possible answer.
func (s *Server) handleGetPreview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		options, err := s.study.Preview(r.Context(), r.PathValue("hash"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, options)
	}
}

type reviewRequest struct {
	Quality     *int  `json:"quality"`
	TimeTakenMs int64 `json:"time_taken_ms"`
}

// handlePostReview records an answer and returns the new schedule.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		if req.Quality == nil {
			s.writeError(w, r, invalidParam("quality", "missing"))
			return
		}

		res, err := s.study.Review(r.Context(), r.PathValue("hash"), srs.Quality(*req.Quality), req.TimeTakenMs)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleSuspend(suspended bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := r.PathValue("hash")
		if err := s.study.Suspend(r.Context(), hash, suspended); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"hash": hash, "is_suspended": suspended})
	}
}

func (s *Server) handleGetForecast() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				s.writeError(w, r, invalidParam("days", v))
				return
			}
			days = n
		}
		if days > maxForecastDays {
			s.writeError(w, r, invalidParam("days", strconv.Itoa(days)))
			return
		}
		forecast, err := s.study.Forecast(r.Context(), days)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, forecast)
	}
}

func (s *Server) handleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period := srs.PeriodWeek
		if v := r.URL.Query().Get("period"); v != "" {
			p, err := srs.ParsePeriod(v)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			period = p
		}
		stats, err := s.study.Stats(r.Context(), period)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) handleGetQualities() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, srs.QualityTable())
	}
}

type sourceView struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"last_scanned,omitempty"`
}

func toSourceView(src storage.Source, _ int) sourceView {
	v := sourceView{ID: src.ID, Path: src.Path, Type: src.Type}
	if src.LastScanned.Valid {
		v.LastScanned = &src.LastScanned.Time
	}
	return v
}

// handleGetSources lists the configured card sources.
func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.db.GetAllSources(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, lo.Map(sources, toSourceView))
	}
}

// handlePostSource adds a local directory or git URL as a source.
func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		if req.Path == "" {
			s.writeError(w, r, invalidParam("path", "empty"))
			return
		}

		src, err := deck.AddSource(r.Context(), s.db, req.Path)
		if err != nil {
			s.logger.Warn("rejected source", "path", req.Path, "error", err)
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.writeJSON(w, http.StatusCreated, toSourceView(src, 0))
	}
}

// handleDeleteSource deletes a source and the cards it produced.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := r.PathValue("id")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			s.writeError(w, r, invalidParam("id", idStr))
			return
		}
		if err := s.db.DeleteSource(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync reconciles every source in the foreground. Only one sync
// runs at a time.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.syncLock.TryLock() {
			s.writeJSON(w, http.StatusConflict, errorResponse{Error: "a sync is already running"})
			return
		}
		defer s.syncLock.Unlock()

		report, err := s.syncer.Run(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, report)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

var errBadRequest = errors.New("bad request")

func invalidParam(name, value string) error {
	return &paramError{name: name, value: value}
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + ": " + e.value
}

func (e *paramError) Unwrap() error { return errBadRequest }

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, srs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, study.ErrCardNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, study.ErrConflict), errors.Is(err, storage.ErrVersionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
