package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"feeledger/internal/cache"
	"feeledger/internal/core"
	applog "feeledger/internal/log"
	"feeledger/internal/middleware/ratelimit"
	"feeledger/internal/middleware/security"
	"feeledger/internal/middleware/trace"
	"feeledger/internal/services"
)

const (
	ledgerCacheSize = 500
	ledgerCacheTTL  = 5 * time.Minute
)

// Server is the fee ledger API server.
type Server struct {
	http.Server

	fees     *services.FeeService
	payments *services.PaymentRequestService
	logger   *applog.Logger
	ready    func(context.Context) error
	now      func() time.Time
	// schoolName signs reminder messages.
	schoolName string

	ledgerCache  *cache.LRUCache[core.LedgerSummary]
	cacheManager *cache.Manager
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *applog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithReadiness sets the check behind /readyz, usually a storage ping.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithClock replaces time.Now for the reminder endpoint.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithSchoolName(name string) Option {
	return func(s *Server) { s.schoolName = name }
}

func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, fees *services.FeeService, payments *services.PaymentRequestService, opts ...Option) *Server {
	s := &Server{
		fees:         fees,
		payments:     payments,
		now:          time.Now,
		schoolName:   "School Administration",
		ledgerCache:  cache.NewLRUCache[core.LedgerSummary](ledgerCacheSize, ledgerCacheTTL),
		cacheManager: cache.NewManager(),
		detector:     security.NewDetector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)

	s.cacheManager.Register("ledger", s.ledgerCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/students", s.handleListStudents)
	mux.HandleFunc("POST /api/students", s.handleRegisterStudent)
	mux.HandleFunc("POST /api/students/import", s.handleImportStudents)
	mux.HandleFunc("GET /api/students/{id}", s.handleGetStudent)
	mux.HandleFunc("GET /api/students/{id}/ledger", s.handleLedger)
	mux.HandleFunc("GET /api/students/{id}/history", s.handleHistory)

	mux.HandleFunc("GET /api/schedules/default", s.handleGetDefaultSchedule)
	mux.HandleFunc("PUT /api/schedules/default", s.handlePutDefaultSchedule)
	mux.HandleFunc("POST /api/schedules/import", s.handleImportSchedules)
	mux.HandleFunc("GET /api/schedules/{id}", s.handleGetSchedule)
	mux.HandleFunc("PUT /api/schedules/{id}", s.handlePutSchedule)

	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.HandleFunc("POST /api/records", s.handleRecordPayment)

	mux.HandleFunc("GET /api/reports/class", s.handleClassReport)
	mux.HandleFunc("GET /api/reports/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reminders", s.handleReminders)

	mux.HandleFunc("GET /api/payment-requests", s.handleListPaymentRequests)
	mux.HandleFunc("POST /api/payment-requests", s.handleSubmitPaymentRequest)
	mux.HandleFunc("POST /api/payment-requests/{id}/verify", s.handleVerifyPaymentRequest)
	mux.HandleFunc("POST /api/payment-requests/{id}/reject", s.handleRejectPaymentRequest)
	mux.HandleFunc("GET /api/payment-options/{id}", s.handlePaymentOptions)
}

// middleware applies, outermost first: tracing and request logging,
// security headers, probe detection and the write rate limit.
func (s *Server) middleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().WithRequestID(trace.GetRequestID(r.Context())).Write(w)
	})

	h := limit(next)
	h = s.detector.Middleware(h)
	h = headers.Middleware(h)
	return s.tracer.Middleware(h)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// writeError maps service errors onto status codes. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	reqID := trace.GetRequestID(ctx)

	switch {
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(err.Error()).WithRequestID(reqID).Write(w)
	case errors.Is(err, core.ErrInvalidInput):
		UnprocessableEntityError(err.Error()).WithRequestID(reqID).Write(w)
	default:
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogError(ctx, "Request failed", err, r.Pattern, applog.NewFields())
		InternalServerError().WithRequestID(reqID).Write(w)
	}
}

// ledger returns a student's summary through the cache.
func (s *Server) ledger(ctx context.Context, studentID string) (core.LedgerSummary, error) {
	if summary, ok := s.ledgerCache.Get(studentID); ok {
		return summary, nil
	}
	summary, err := s.fees.Ledger(ctx, studentID)
	if err != nil {
		return core.LedgerSummary{}, err
	}
	s.ledgerCache.Set(studentID, summary)
	return summary, nil
}

func (s *Server) invalidateLedger(studentID string) {
	s.ledgerCache.Delete(studentID)
}

// invalidateAllLedgers drops every cached summary after a change that
// can affect any student, such as a new default schedule or a bulk import.
func (s *Server) invalidateAllLedgers() {
	s.ledgerCache.Clear()
}

type healthResponse struct {
	Status    string                    `json:"status"`
	Cache     cache.Stats               `json:"cache"`
	RateLimit ratelimit.Metrics         `json:"rate_limit"`
	Security  security.DetectionMetrics `json:"security"`
	Requests  trace.Metrics             `json:"requests"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(healthResponse{
		Status:    "ok",
		Cache:     s.ledgerCache.Stats(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
		Requests:  s.tracer.GetMetrics(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			ServiceUnavailableError("storage not ready").WithRequestID(trace.GetRequestID(ctx)).Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}
