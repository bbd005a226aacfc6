package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// requestTimeout bounds a request, including a full audit run.
const requestTimeout = 15 * time.Minute

// NewRouter creates a chi router with standard middleware (RequestID, Recoverer, Logger, Timeout, RealIP).
func NewRouter(log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(Recoverer(log))
	r.Use(RequestLogger(log))

	return r
}

// WriteJSON writes a JSON response with proper headers.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}

// HealthHandler returns a simple health check endpoint.
func HealthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Warn("healthz write failed", "err", err)
		}
	}
}

// ServeHealth serves /healthz on addr until ctx is done.
func ServeHealth(ctx context.Context, log *slog.Logger, addr, service string) error {
	r := chi.NewRouter()
	r.Get("/healthz", HealthHandler(log))
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("health server listening", "service", service, "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks v against its `validate` struct tags and returns a
// client-facing message for the first failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return err
}

// ValidationError is a request field that failed validation.
type ValidationError struct {
	Field string
	Tag   string
	Param string
}

func (e *ValidationError) Error() string {
	switch e.Tag {
	case "required":
		return e.Field + " is required"
	case "oneof":
		return e.Field + " must be one of: " + e.Param
	case "endswith":
		return e.Field + " must end with " + e.Param
	case "max", "lte":
		return e.Field + " exceeds the limit of " + e.Param
	default:
		return e.Field + " is invalid (" + e.Tag + ")"
	}
}

// RequestLogger is a lightweight HTTP logger that uses slog.
func RequestLogger(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Recoverer logs panics via slog while preserving chi's Recoverer behavior.
func Recoverer(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered", "panic", rec, "path", r.URL.Path, "method", r.Method, "request_id", middleware.GetReqID(r.Context()))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Fail writes an error response with consistent logging.
func Fail(log *slog.Logger, w http.ResponseWriter, message string, err error, status int) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status < http.StatusInternalServerError {
		log.Warn(message, "status", status, "err", err)
	} else {
		log.Error(message, "status", status, "err", err)
	}
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
