// Package httpapi expone el motor de precio justo como API JSON de solo lectura.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/carfair/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Evaluator es lo que la API necesita del servicio de evaluación.
type Evaluator interface {
	Evaluate(ctx context.Context, q domain.Query, price float64) (domain.Evaluation, error)
	Overview() domain.MarketOverview
	Brand(brand string) (domain.BrandInsight, error)
	Trends(brand, model string) (domain.ModelTrend, error)
	Selection(brand, model string, year, mileage int) (domain.SelectionStats, error)
	Brands() []string
	Models(brand string) []string
	Years(brand, model string) []int
	DatasetSize() int
}

// Config contiene la configuración del servidor HTTP.
type Config struct {
	Addr       string
	RatePerSec float64 // peticiones/s admitidas en total (token bucket)
	Burst      int

	ShutdownTimeout time.Duration
}

// Server sirve la API sobre un Evaluator compartido entre peticiones.
type Server struct {
	cfg     Config
	svc     Evaluator
	limiter *rate.Limiter
	handler http.Handler
}

// New crea el servidor y registra las rutas.
func New(cfg Config, svc Evaluator) *Server {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 50
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RatePerSec)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /v1/market", s.handleMarket)
	mux.HandleFunc("GET /v1/brands", s.handleBrands)
	mux.HandleFunc("GET /v1/brands/{brand}", s.handleBrand)
	mux.HandleFunc("GET /v1/brands/{brand}/models", s.handleModels)
	mux.HandleFunc("GET /v1/brands/{brand}/models/{model}/years", s.handleYears)
	mux.HandleFunc("GET /v1/trends", s.handleTrends)
	mux.HandleFunc("GET /v1/selection", s.handleSelection)

	s.handler = s.logRequests(s.rateLimit(mux))
	return s
}

// Handler devuelve el http.Handler con middlewares (útil para httptest).
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run sirve hasta que ctx se cancele y después hace un shutdown ordenado.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http api listening", "addr", s.cfg.Addr, "rate_per_sec", s.cfg.RatePerSec)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("httpapi.Run: listen %s: %w", s.cfg.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		slog.Info("http api shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("httpapi.Run: shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// --- middlewares ---

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
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
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}
