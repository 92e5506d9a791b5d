package handlers

import (
	"context"
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"clinichistory/internal/models"
	"clinichistory/internal/records"
	"clinichistory/internal/security"
	"clinichistory/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	IdentityContextKey  ContextKey = "identity"
	SessionIDContextKey ContextKey = "session_id"
	StoreContextKey     ContextKey = "records"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	signer      *security.CookieSigner
	csrf        *security.CSRFGenerator
	durable     records.Source
	sandbox     records.Source
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, signer *security.CookieSigner, csrf *security.CSRFGenerator, durable, sandbox records.Source, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		signer:      signer,
		csrf:        csrf,
		durable:     durable,
		sandbox:     sandbox,
		limiter:     limiter,
	}
}

// ChainMiddleware wraps routeFunction so the first middleware runs outermost
func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chained := routeFunction
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests. It runs before any auth step.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Recover turns a panic into a logged 500
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				log.Error().
					Interface("panic", v).
					Bytes("stack", debug.Stack()).
					Str("path", r.URL.Path).
					Msg("Recovered from panic")
				respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Timeout bounds the request context so store calls give up after d
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORS allows credentialed requests from the listed origins. "*" allows any
// origin without credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(allowedOrigins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if slices.Contains(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			} else if wildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			w.Header().Set("Access-Control-Expose-Headers", DemoModeHeader)

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+security.CSRFHeader)
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadSession resolves the session cookie to an identity for every request.
// Bad signatures, unknown and expired sessions all resolve to Anonymous.
func (m *Middleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var identity models.Identity = models.Anonymous{}
		ctx := r.Context()

		if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			if sessionID, err := m.signer.Verify(cookie.Value); err == nil {
				ctx = context.WithValue(ctx, SessionIDContextKey, sessionID)
				resolved, err := m.authService.Verify(ctx, sessionID)
				if err != nil {
					log.Error().Err(err).Msg("Failed to resolve session")
				}
				identity = resolved
			}
		}

		ctx = context.WithValue(ctx, IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects anonymous requests with 401
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch GetIdentityFromContext(r.Context()).(type) {
		case models.Authenticated:
			next(w, r)
		default:
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		}
	}
}

// RequireRole rejects sessions holding none of roles with 403. It must run
// after RequireSession; on its own it still answers 401 for anonymous callers.
func (m *Middleware) RequireRole(roles ...models.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			switch id := GetIdentityFromContext(r.Context()).(type) {
			case models.Authenticated:
				if !id.HasRole(roles...) {
					respondWithError(w, http.StatusForbidden, ErrForbidden, "", nil)
					return
				}
				next(w, r)
			default:
				respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			}
		}
	}
}

// DemoScope picks the record store for the request: the sandbox for demo
// identities, the durable store for everyone else. Demo responses carry the
// X-Demo-Mode header.
func (m *Middleware) DemoScope(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentityFromContext(r.Context()).(models.Authenticated)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		var store records.Store
		if id.Demo {
			w.Header().Set(DemoModeHeader, "true")
			store = m.sandbox.ForUser(id.Session.UserID)
		} else {
			store = m.durable.ForUser(id.Session.UserID)
		}

		ctx := context.WithValue(r.Context(), StoreContextKey, store)
		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect requires the X-CSRF-Token header on state-changing requests
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		id, ok := GetIdentityFromContext(r.Context()).(models.Authenticated)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}
		if !m.csrf.Valid(id.Session.ID, r.Header.Get(security.CSRFHeader)) {
			respondWithError(w, http.StatusForbidden, ErrInvalidCSRFToken, "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit throttles a route per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

// GetIdentityFromContext returns the request identity, Anonymous if none was loaded
func GetIdentityFromContext(ctx context.Context) models.Identity {
	if id, ok := ctx.Value(IdentityContextKey).(models.Identity); ok {
		return id
	}
	return models.Anonymous{}
}

// GetStoreFromContext returns the record store chosen by DemoScope
func GetStoreFromContext(ctx context.Context) records.Store {
	store, _ := ctx.Value(StoreContextKey).(records.Store)
	return store
}

func getSessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDContextKey).(string)
	return id
}
