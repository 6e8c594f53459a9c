// Package api serves delay risk scoring over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/delay-risk-cli/internal/artifact"
	"github.com/sells-group/delay-risk-cli/internal/codec"
	"github.com/sells-group/delay-risk-cli/internal/risk"
	"github.com/sells-group/delay-risk-cli/internal/store"
)

const maxBodyBytes = 64 << 10

// Options configures the router.
type Options struct {
	RateLimit      float64 // requests per second across the process; <= 0 disables
	Burst          int
	AllowedOrigins []string
}

// Server holds the handler dependencies. The scoring context is shared by
// every request and never mutated.
type Server struct {
	scoring *risk.ScoringContext
	store   store.Store
}

// NewRouter builds the HTTP handler. st may be nil to disable prediction
// logging. serve never passes a nil sc; if one arrives, the model routes
// answer 503.
func NewRouter(sc *risk.ScoringContext, st store.Store, opts Options) (http.Handler, error) {
	if _, err := predictRequestSchema(); err != nil {
		return nil, err
	}
	s := &Server{scoring: sc, store: st}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))))
		}
		r.Get("/model", s.handleModel)
		r.Post("/predict", s.handlePredict)
	})
	return r, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": s.scoring != nil,
	})
}

type fieldInfo struct {
	codec.FieldSummary
	Label   string   `json:"label"`
	Choices []string `json:"choices,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Integer bool     `json:"integer,omitempty"`
}

type modelResponse struct {
	Manifest *artifact.Manifest `json:"manifest"`
	Policy   codec.Policy       `json:"missing_policy"`
	Fields   []fieldInfo        `json:"fields"`
}

func (s *Server) handleModel(w http.ResponseWriter, _ *http.Request) {
	if s.scoring == nil {
		writeError(w, http.StatusServiceUnavailable, (&risk.ModelNotLoadedError{}).Error())
		return
	}
	c := s.scoring.Codec()
	resp := modelResponse{Manifest: s.scoring.Manifest(), Policy: c.Policy()}
	for _, sum := range c.Describe() {
		resp.Fields = append(resp.Fields, describeField(sum))
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// statusFor maps scoring errors to HTTP statuses.
func statusFor(err error) int {
	var (
		unknown  *codec.UnknownCategoryError
		missing  *codec.MissingValueError
		notReady *risk.ModelNotLoadedError
	)
	switch {
	case errors.As(err, &unknown), errors.As(err, &missing):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Info("api: request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
