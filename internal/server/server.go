package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/five82/nudge/internal/logging"
	"github.com/five82/nudge/internal/reminders"
	"github.com/five82/nudge/internal/remote"
)

const maxBodyBytes = 64 * 1024

// Store is the persistence behind the settings endpoint.
type Store interface {
	Get() (reminders.Settings, error)
	Put(reminders.Settings) error
}

// Options configures a Server.
type Options struct {
	Store      Store
	TimeZone   string
	MinuteStep int
	// Latency delays every settings request.
	Latency time.Duration
	// FailEvery makes every Nth PUT fail with 503. Zero disables it.
	FailEvery int
	Logger    *logrus.Entry
	// Registry receives request metrics and backs /metrics. Nil creates a
	// private registry.
	Registry *prometheus.Registry
}

// Server is a local stand-in for the settings API. It normalizes what it
// stores, so clients must adopt the returned value.
type Server struct {
	store     Store
	zone      string
	step      int
	latency   time.Duration
	failEvery int64
	puts      atomic.Int64
	log       *logrus.Entry
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	router    chi.Router
}

// New builds a Server.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}
	step := opts.MinuteStep
	if step <= 0 {
		step = reminders.DefaultMinuteStep
	}
	zone := strings.TrimSpace(opts.TimeZone)
	if zone == "" {
		zone = "UTC"
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return nil, fmt.Errorf("server: time zone: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nudge",
		Subsystem: "server",
		Name:      "requests_total",
		Help:      "Settings API requests by route, method and status",
	}, []string{"route", "method", "status"})
	if err := registry.Register(requests); err != nil {
		return nil, fmt.Errorf("server: register metrics: %w", err)
	}

	s := &Server{
		store:     opts.Store,
		zone:      zone,
		step:      step,
		latency:   opts.Latency,
		failEvery: int64(opts.FailEvery),
		log:       log.WithField("component", "server"),
		registry:  registry,
		requests:  requests,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.countRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.With(s.delay).Get(remote.SettingsPath, s.handleGet)
	r.With(s.delay).Put(remote.SettingsPath, s.handlePut)
	return r
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Get()
	if err != nil {
		s.entry(r).WithError(err).Error("load settings")
		writeError(w, http.StatusInternalServerError, "could not read settings")
		return
	}
	writeJSON(w, http.StatusOK, remote.FromSettings(reminders.Normalize(settings, s.step, s.zone)))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	var p remote.Payload
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode body: %v", err))
		return
	}
	settings, err := p.Settings()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if n := s.puts.Add(1); s.failEvery > 0 && n%s.failEvery == 0 {
		s.entry(r).WithField("put", n).Warn("injected failure")
		writeError(w, http.StatusServiceUnavailable, "injected failure")
		return
	}

	stored := reminders.Normalize(settings, s.step, s.zone)
	if err := s.store.Put(stored); err != nil {
		s.entry(r).WithError(err).Error("store settings")
		writeError(w, http.StatusInternalServerError, "could not store settings")
		return
	}
	s.entry(r).WithFields(logrus.Fields{
		"daily":  stored.DailyJobs,
		"weekly": stored.WeeklyDigest,
		"budget": stored.BudgetAlerts,
	}).Info("settings stored")
	writeJSON(w, http.StatusOK, remote.FromSettings(stored))
}

type requestIDKey struct{}

// requestID adopts the caller's X-Request-ID or mints one, and echoes it.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(remote.RequestIDHeader))
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(remote.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := fmt.Sprint(ww.Status())
		switch {
		case ww.Status() != 0:
		case r.Context().Err() != nil:
			status = "canceled"
		default:
			status = fmt.Sprint(http.StatusOK)
		}
		s.requests.WithLabelValues(route, r.Method, status).Inc()
	})
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			timer := time.NewTimer(s.latency)
			select {
			case <-timer.C:
			case <-r.Context().Done():
				timer.Stop()
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) entry(r *http.Request) *logrus.Entry {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return s.log.WithFields(logrus.Fields{"request_id": id, "method": r.Method, "path": r.URL.Path})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.WithField("addr", ln.Addr().String()).Info("settings server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("settings server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remote.ErrorResponse{Error: msg})
}
