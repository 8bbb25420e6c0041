// Route registration and go-chi router setup for the gateway.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/orrery-labs/orrery/internal/api/handlers"
	apmiddleware "github.com/orrery-labs/orrery/internal/api/middleware"
	"github.com/orrery-labs/orrery/internal/infra/eventbus"
	pkgauth "github.com/orrery-labs/orrery/pkg/auth"
)

// RouterConfig wires the gateway's dependencies into the router.
type RouterConfig struct {
	Relay    handlers.Relayer
	Recorder handlers.CallRecorder    // nil disables call logging
	CallLog  handlers.CallLog         // nil disables the /calls endpoint
	Bus      eventbus.EventBus        // nil disables the /events endpoint
	Keys     apmiddleware.KeyVerifier // nil falls back to JWT-only auth
	Version  string
}

// NewRouter creates and configures a chi router with all gateway routes.
// The /api/v1 REST surface requires a Bearer JWT only when a signing
// secret is configured; the raw relay endpoints stay public for local use.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	relayHandler := handlers.NewRelayHandler(cfg.Relay, cfg.Recorder, cfg.Version)

	// Health check, unauthenticated; used by load balancers and uptime checks
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Get("/", relayHandler.Status)
	r.Post("/call", relayHandler.Call)

	if cfg.Bus != nil {
		eventsHandler := handlers.NewEventsHandler(cfg.Bus)
		r.Get("/events", eventsHandler.Stream)
	}

	r.Route("/api/v1", func(r chi.Router) {
		switch {
		case cfg.Keys != nil:
			r.Use(apmiddleware.AuthWithKeys(cfg.Keys))
		case pkgauth.SecretConfigured():
			r.Use(apmiddleware.AuthMiddleware)
		}

		toolsHandler := handlers.NewToolsHandler(cfg.Relay, cfg.Recorder)
		r.Route("/tools", func(r chi.Router) {
			r.Get("/", toolsHandler.ListTools)            // GET  /api/v1/tools
			r.Post("/{name}/call", toolsHandler.CallTool) // POST /api/v1/tools/{name}/call
		})

		if cfg.CallLog != nil {
			callsHandler := handlers.NewCallsHandler(cfg.CallLog)
			r.Get("/calls", callsHandler.ListCalls) // GET /api/v1/calls
		}
	})

	return r
}
