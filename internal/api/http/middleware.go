package http

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"toolrent-backend/internal/config"
	"toolrent-backend/internal/domain"
	"toolrent-backend/internal/logger"
	"toolrent-backend/internal/metrics"
	"toolrent-backend/internal/security"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const RequestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// RequestID tags the request context with an id, reusing the caller's
// X-Request-ID when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := logger.WithAttrs(r.Context(), "request_id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLog logs one line per request.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.code(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case rec.code() >= http.StatusInternalServerError:
			logger.ErrorContext(r.Context(), "HTTP request", args...)
		case rec.code() >= http.StatusBadRequest:
			logger.InfoContext(r.Context(), "HTTP request", args...)
		default:
			logger.DebugContext(r.Context(), "HTTP request", args...)
		}
	})
}

// Recovery turns a handler panic into a 500.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "Panic recovered", "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: &domain.Error{Kind: "INTERNAL", Message: "internal server error"}})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Metrics counts requests by route template, so path ids do not explode the
// label space. Must run inside the router.
func Metrics(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			m.ObserveHTTP(r.Method, routeTemplate(r), rec.code(), time.Since(start).Seconds())
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Auth authenticates the bearer token and enforces the roles configured for
// the matched route. Routes without configured roles are public.
type Auth struct {
	tokenManager security.TokenManager
	roles        map[string][]security.Role
}

func NewAuth(tm security.TokenManager, roles map[string][]security.Role) *Auth {
	if roles == nil {
		roles = config.EndpointRoles
	}
	return &Auth{tokenManager: tm, roles: roles}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, protected := a.roles[r.Method+" "+routeTemplate(r)]
		if !protected {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeUnauthenticated(w, "authorization token is not provided")
			return
		}
		claims, err := a.tokenManager.ValidateToken(token)
		if err != nil {
			logger.InfoContext(r.Context(), "Rejected token", "path", r.URL.Path, "error", err)
			writeUnauthenticated(w, err.Error())
			return
		}

		p := claims.Principal()
		ctx := security.WithPrincipal(r.Context(), p)
		ctx = logger.WithAttrs(ctx, "actor", p.Username)
		if err := security.Require(ctx, allowed...); err != nil {
			logger.WarnContext(ctx, "Forbidden", "method", r.Method, "path", r.URL.Path, "roles", p.Roles)
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// CORS allows the configured UI origins.
func CORS(cfg config.ServerConfig) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler
}
