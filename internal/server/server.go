// Package server exposes the clustering engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"kmeansviz/internal/config"
	"kmeansviz/internal/dataset"
	"kmeansviz/internal/logging"
	"kmeansviz/internal/render"
	"kmeansviz/kmeans"
)

// lockedRand makes a *rand.Rand safe for the handlers to share.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Int63() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int63()
}

type Server struct {
	cfg     config.Config
	logger  *logging.Logger
	store   *Store
	limiter *rate.Limiter
	rng     *lockedRand
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithSeed makes data generation and session seeding reproducible.
func WithSeed(seed int64) Option {
	return func(s *Server) {
		s.rng = &lockedRand{r: rand.New(rand.NewSource(seed))}
	}
}

func New(cfg config.Config, logger *logging.Logger, optFns ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		store:  NewStore(cfg.Server.SessionTTL.Duration, cfg.Server.MaxSessions),
		rng:    &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))},
		mux:    http.NewServeMux(),
	}
	if cfg.Server.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RequestsPerSecond), max(cfg.Server.Burst, 1))
	}
	for _, fn := range optFns {
		fn(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /generate_data", s.handleGenerate)
	s.mux.HandleFunc("POST /kmeans", s.handleKMeans)
	s.mux.HandleFunc("POST /sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("POST /sessions/{id}/centroids", s.handleAddCentroid)
	s.mux.HandleFunc("POST /sessions/{id}/step", s.handleStep)
	s.mux.HandleFunc("POST /sessions/{id}/converge", s.handleConverge)
	s.mux.HandleFunc("POST /sessions/{id}/reset", s.handleReset)
	s.mux.HandleFunc("GET /sessions/{id}/chart", s.handleChart)
}

// Handler returns the routed handler wrapped with rate limiting and request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.rateLimit(s.mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout.Duration,
		WriteTimeout: s.cfg.Server.WriteTimeout.Duration,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := s.store.Sweep(); n > 0 {
					s.logger.Info("Evicted %d idle sessions", n)
				}
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) engineOptions() []kmeans.Option {
	return append(s.cfg.Clustering.EngineOptions(),
		kmeans.WithSeed(s.rng.Int63()),
		kmeans.WithLogger(s.logger),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("%s %s -> %d in %v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// engineStatus maps engine errors to HTTP status codes.
func engineStatus(err error) int {
	switch {
	case kmeans.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, kmeans.ErrMaxSteps):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := dataset.Generate(s.cfg.Data.DefaultPoints, s.rng)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.HTML(w, render.Frame{Title: "K-Means Clustering", Data: data}); err != nil {
		s.logger.Error("render index: %v", err)
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	n := s.cfg.Data.DefaultPoints
	if v := r.URL.Query().Get("num_points"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > s.cfg.Data.MaxPoints {
			writeError(w, http.StatusBadRequest, fmt.Errorf("num_points must be an integer in [1, %d]", s.cfg.Data.MaxPoints))
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, dataset.Generate(n, s.rng))
}
