package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/dashboard"
	"cashbook/internal/feed"
	"cashbook/internal/identity"
	"cashbook/internal/log"
	"cashbook/internal/middleware/ratelimit"
	"cashbook/internal/middleware/security"
	"cashbook/internal/middleware/trace"
	"cashbook/internal/purge"
	"cashbook/internal/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// ActivitySource is the live feed as seen by request handlers.
type ActivitySource interface {
	Latest() ([]core.Activity, bool)
}

// Deps are the services the API exposes. Exports may be nil, in which case the
// export route is not mounted.
type Deps struct {
	Dashboard   *dashboard.Service
	Board       *dashboard.Board
	Records     *services.RecordService
	Purge       *purge.Engine
	Exports     *services.ExportProcessor
	Activity    ActivitySource
	Broadcaster *feed.Broadcaster
	Roster      *identity.Roster
	Verifier    *identity.Verifier
	// Ready reports backend readiness for /readyz. Nil means always ready.
	Ready    func(ctx context.Context) error
	Location *time.Location
	Now      func() time.Time
	Logger   *log.Logger
	// RateLimit is the per-client budget for mutating requests per minute.
	RateLimit int
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	upgrader websocket.Upgrader

	closing      chan struct{}
	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	rl := ratelimit.DefaultConfig()
	if deps.RateLimit > 0 {
		rl.RequestsPerMinute = deps.RateLimit
	}

	s := &Server{
		deps:     deps,
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(rl),
		detector: security.NewDetector(),
		tracer:   trace.NewMiddleware(true),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Tokens, not cookies, authenticate the upgrade.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		closing: make(chan struct{}),
	}
	s.Addr = addr
	s.Handler = s.routes()
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 30 * time.Second
	s.IdleTimeout = 120 * time.Second
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.deps.Logger, trace.FromRequest))
	r.Use(log.AccessLog(s.detector.ExtractClientIP))
	r.Use(chimiddleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w, r)
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w, r)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/dashboard", s.handleBoard)
		r.Get("/dashboard/totals", s.handleTotals)
		r.Get("/dashboard/daily", s.handleDaily)
		r.Get("/dashboard/breakdown", s.handleBreakdown)

		r.Get("/activity", s.handleActivity)
		r.Get("/activity/ws", s.handleActivityWS)

		r.Post("/expenses", s.handleCreateExpense)
		r.Get("/transfers/history/{user}", s.handleTransferHistory)
		r.Get("/expenses/history/{user}", s.handleExpenseHistory)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/transfers", s.handleCreateTransfer)
			r.Post("/purge", s.handlePurge)
			if s.deps.Exports != nil {
				r.Post("/expenses/export", s.handleExport)
			}
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w, r)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w, r)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w, r)
}

// authenticate resolves the bearer token into an identity.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r, websocket.IsWebSocketUpgrade(r))
		id, err := s.deps.Verifier.Verify(raw)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, identity.ErrMissingToken) {
				msg = "missing token"
			}
			UnauthorizedError(msg).Write(w, r)
			return
		}
		ctx := identity.WithIdentity(r.Context(), id)
		ctx = log.IntoContext(ctx, log.FromContext(ctx).With(log.FieldEmail, id.Email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects non-admin callers before the handler runs.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.FromContext(r.Context())
		if !s.deps.Roster.IsAdmin(id) {
			ForbiddenError("admin only").Write(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) caller(r *http.Request) identity.Identity {
	id, _ := identity.FromContext(r.Context())
	return id
}

// now is the current time in the dashboard zone.
func (s *Server) now() time.Time { return s.deps.Now().In(s.deps.Location) }

// Shutdown closes open websocket streams, stops the rate limiter and then
// shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		close(s.closing)
		s.limiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}
