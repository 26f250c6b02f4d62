package api

import (
	"formgate/internal/models"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" && r.Method != http.MethodOptions
			}),
		))
	}
}

// SetupRoutes configures the HTTP routes. Each form is served at its bare
// path and under /api.
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}

	for _, prefix := range []string{"", "/api"} {
		router.HandleFunc(prefix+"/contact", handlers.Contact).Methods(http.MethodPost)
		router.HandleFunc(prefix+"/subscribe", handlers.Subscribe).Methods(http.MethodPost)

		// Every OPTIONS request, preflight or not, ends here with 204.
		router.HandleFunc(prefix+"/contact", noContent).Methods(http.MethodOptions)
		router.HandleFunc(prefix+"/subscribe", noContent).Methods(http.MethodOptions)
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/health", handlers.HealthCheck).Methods(http.MethodGet)

	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}
	router.Use(loggingMiddleware(handlers.logger))
	router.Use(recoveryMiddleware(handlers.logger))
	router.Use(securityHeadersMiddleware)

	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)

	return router
}

// methodNotAllowedHandler handles requests with invalid HTTP methods
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", allowedMethods(r.URL.Path))
	writeJSON(w, http.StatusMethodNotAllowed, models.NewErrorResponse("Method not allowed"), nil)
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Not found"), nil)
}

func allowedMethods(path string) string {
	switch path {
	case "/health", "/api/health":
		return "GET"
	default:
		return "POST, OPTIONS"
	}
}
