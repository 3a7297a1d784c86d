// Package api serves the governance operations as JSON over HTTP.
//
// Authentication is the embedding application's job: a fronting proxy sets
// X-Actor-ID and X-Actor-Role, and every route checks the role against a
// capability before calling the governance service.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boardworks/govrec/internal/authz"
	"github.com/boardworks/govrec/internal/governance"
	"github.com/boardworks/govrec/internal/metrics"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// Config holds the Server's collaborators
type Config struct {
	Service *governance.Service
	Oracle  authz.Oracle

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// RateLimit is mutations per second per actor; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// Now is the clock used for "today" in overdue queries.
	Now func() time.Time
}

// Server routes HTTP requests to the governance service
type Server struct {
	svc     *governance.Service
	oracle  authz.Oracle
	logger  *slog.Logger
	metrics *metrics.Metrics
	limiter *actorLimiter
	now     func() time.Time
	mux     *http.ServeMux
}

type actor struct {
	ID   string
	Role string
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, who actor)

// New creates a Server with all routes registered
func New(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Service == nil {
		return nil, errors.New("governance service is required")
	}
	if cfg.Oracle == nil {
		return nil, errors.New("capability oracle is required")
	}
	s := &Server{
		svc:     cfg.Service,
		oracle:  cfg.Oracle,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		limiter: newActorLimiter(cfg.RateLimit, cfg.RateBurst),
		now:     cfg.Now,
		mux:     http.NewServeMux(),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "api")
	if s.now == nil {
		s.now = time.Now
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.Handle("GET /healthz", s.instrument("GET /healthz", http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("GET /metrics", s.instrument("GET /metrics", s.metrics.Handler()))

	s.route("GET /meetings", authz.Read, s.listMeetings)
	s.route("POST /meetings", authz.MeetingsCreate, s.createMeeting)
	s.route("GET /meetings/{id}", authz.Read, s.getMeeting)
	s.route("PATCH /meetings/{id}", authz.MeetingsEdit, s.updateMeeting)
	s.route("DELETE /meetings/{id}", authz.MeetingsDelete, s.deleteMeeting)

	s.route("GET /meetings/{id}/minutes", authz.Read, s.listMinutesVersions)
	s.route("GET /meetings/{id}/minutes/current", authz.Read, s.getCurrentMinutes)
	s.route("POST /meetings/{id}/minutes", authz.MinutesEdit, s.createMinutes)
	s.route("POST /meetings/{id}/minutes/revisions", authz.MinutesEdit, s.createMinutesRevision)
	s.route("GET /minutes/{id}", authz.Read, s.getMinutes)
	s.route("PATCH /minutes/{id}", authz.MinutesEdit, s.updateMinutes)
	s.route("POST /minutes/{id}/submit", authz.MinutesSubmit, s.submitMinutes)
	s.route("POST /minutes/{id}/approve", authz.MinutesApprove, s.approveMinutes)
	s.route("POST /minutes/{id}/request-revision", authz.MinutesApprove, s.requestRevision)
	s.route("POST /minutes/{id}/publish", authz.MinutesPublish, s.publishMinutes)
	s.route("POST /minutes/{id}/archive", authz.MinutesArchive, s.archiveMinutes)

	s.route("GET /meetings/{id}/motions", authz.Read, s.listMotions)
	s.route("GET /meetings/{id}/motions/stats", authz.Read, s.motionStats)
	s.route("POST /meetings/{id}/motions", authz.MotionsEdit, s.createMotion)
	s.route("GET /motions/{id}", authz.Read, s.getMotion)
	s.route("PATCH /motions/{id}", authz.MotionsEdit, s.updateMotion)
	s.route("POST /motions/{id}/vote", authz.MotionsVote, s.recordVote)
	s.route("DELETE /motions/{id}", authz.MotionsDelete, s.deleteMotion)

	s.route("GET /annotations", authz.Read, s.listAnnotations)
	s.route("GET /annotations/counts", authz.Read, s.annotationCounts)
	s.route("GET /annotations/{id}", authz.Read, s.getAnnotation)
	s.route("POST /annotations", authz.AnnotationsEdit, s.createAnnotation)
	s.route("PATCH /annotations/{id}", authz.AnnotationsEdit, s.updateAnnotation)
	s.route("DELETE /annotations/{id}", authz.AnnotationsEdit, s.deleteAnnotation)
	s.route("POST /annotations/{id}/publish", authz.AnnotationsPublish, s.publishAnnotation)
	s.route("POST /annotations/{id}/unpublish", authz.AnnotationsPublish, s.unpublishAnnotation)

	s.route("GET /flags", authz.FlagsView, s.listFlags)
	s.route("GET /flags/overdue", authz.FlagsView, s.overdueFlags)
	s.route("GET /flags/{id}", authz.FlagsView, s.getFlag)
	s.route("POST /flags", authz.FlagsEdit, s.createFlag)
	s.route("PATCH /flags/{id}", authz.FlagsEdit, s.updateFlag)
	s.route("DELETE /flags/{id}", authz.FlagsEdit, s.deleteFlag)
	s.route("POST /flags/{id}/start", authz.FlagsEdit, s.startFlag)
	s.route("POST /flags/{id}/resolve", authz.FlagsResolve, s.resolveFlag)
	s.route("POST /flags/{id}/dismiss", authz.FlagsResolve, s.dismissFlag)
	s.route("POST /flags/{id}/reopen", authz.FlagsResolve, s.reopenFlag)

	s.route("GET /audit", authz.AuditView, s.listAudit)
}

// route registers h behind the actor, capability and rate limit checks.
// Every non-GET route counts against the actor's mutation budget.
func (s *Server) route(pattern, capability string, h handlerFunc) {
	mutating := !strings.HasPrefix(pattern, http.MethodGet+" ")
	s.mux.Handle(pattern, s.instrument(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who := actor{
			ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
			Role: strings.TrimSpace(r.Header.Get(HeaderActorRole)),
		}
		if who.ID == "" {
			writeStatus(w, http.StatusUnauthorized, "UNAUTHENTICATED", HeaderActorID+" header is required")
			return
		}
		if !s.oracle.HasCapability(who.Role, capability) {
			writeStatus(w, http.StatusForbidden, "FORBIDDEN",
				fmt.Sprintf("role %q lacks capability %s", who.Role, capability))
			return
		}
		if mutating && !s.limiter.Allow(who.ID) {
			retry := s.limiter.RetryAfter(who.ID)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(retry.Seconds())))))
			writeStatus(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many changes; slow down")
			return
		}
		h(w, r, who)
	})))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts and logs each request under its route pattern.
func (s *Server) instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.ObserveRequest(pattern, rec.status)
		s.logger.Debug("request",
			"route", pattern,
			"path", r.URL.Path,
			"status", rec.status,
			"actor", r.Header.Get(HeaderActorID),
			"duration", time.Since(start))
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
// within shutdownTimeout. The listener is bound before Run returns an error
// for port conflicts, so callers see them immediately.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	server := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
