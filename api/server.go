package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/9seconds/geotally/tallylib"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// DefaultTimeout is a time given to a single request.
const DefaultTimeout = 60 * time.Second

// Options configures a server.
type Options struct {
	// Stats are usage stats published by /stats in addition to stats of
	// the resolver.
	Stats []*tallylib.UsageStats

	// BasicAuthUser and BasicAuthPassword enable basic auth if both are
	// set.
	BasicAuthUser     string
	BasicAuthPassword string

	// TrustProxyHeaders takes a client address from X-Forwarded-For or
	// X-Real-IP. Set it only behind a reverse proxy which overwrites
	// these headers.
	TrustProxyHeaders bool

	Timeout time.Duration
}

// Resolver resolves addresses for ad-hoc requests. *tallylib.Resolver
// satisfies it.
type Resolver interface {
	ResolveWithPolicy(context.Context, []string, tallylib.ConversionPolicy) ([]tallylib.Resolution, error)
	Normalizer() *tallylib.Normalizer
	UsageStats() *tallylib.UsageStats
}

type handler struct {
	resolver Resolver
	state    *State
	stats    []*tallylib.UsageStats
}

// MakeServer builds an HTTP handler which serves a published tally
// and resolves addresses on demand.
func MakeServer(resolver Resolver, state *State, opts Options) http.Handler {
	h := handler{
		resolver: resolver,
		state:    state,
		stats:    opts.Stats,
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	router := chi.NewRouter()

	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(timeout))
	router.Use(middleware.Recoverer)

	if opts.TrustProxyHeaders {
		router.Use(middleware.RealIP)
	}

	router.Get("/healthz", h.handleHealthz)

	router.Group(func(r chi.Router) {
		if opts.BasicAuthUser != "" && opts.BasicAuthPassword != "" {
			r.Use(basicAuth(opts.BasicAuthUser, opts.BasicAuthPassword))
		}

		r.Get("/", h.handleSelf)
		r.Get("/tally", h.handleTally)
		r.Get("/choropleth", h.handleChoropleth)
		r.Get("/stats", h.handleStats)
		r.Post("/resolve", h.handleResolve)
	})

	return router
}

func basicAuth(user, password string) func(http.Handler) http.Handler {
	userBytes := []byte(user)
	passwordBytes := []byte(password)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			reqUser, reqPassword, _ := req.BasicAuth()

			if subtle.ConstantTimeCompare(userBytes, []byte(reqUser))+
				subtle.ConstantTimeCompare(passwordBytes, []byte(reqPassword)) == 2 {
				next.ServeHTTP(w, req)

				return
			}

			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			sendError(w, nil, "Authentication is required", http.StatusUnauthorized)
		})
	}
}

func encodeJSON(w http.ResponseWriter, data interface{}) {
	encoder := json.NewEncoder(w)

	encoder.SetEscapeHTML(false)
	encoder.Encode(data) // nolint: errcheck
}

func sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	encodeJSON(w, data)
}

func sendError(w http.ResponseWriter, err error, message string, statusCode int) {
	httpErr := tallylib.NewHTTPError(err, message, statusCode)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpErr.StatusCode())
	encodeJSON(w, httpErr)
}
