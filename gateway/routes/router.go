package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"synthd/gateway/middleware"
	nativecommon "synthd/native/common"
	"synthd/native/oracle"
	"synthd/native/vault"
	"synthd/observability"
)

// Config wires the gateway surface: vault operations, price feeds, and the
// operator admin endpoints.
type Config struct {
	Engine        *vault.Engine
	ManualOracle  *oracle.ManualOracle
	PriceReader   oracle.PriceOracle
	Pauses        *nativecommon.Pauses
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
}

func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs == nil {
		obs = middleware.NewObservability(middleware.ObservabilityConfig{}, nil)
	}
	auth := cfg.Authenticator
	if auth == nil {
		auth = middleware.NewAuthenticator(middleware.AuthConfig{}, nil)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", obs.MetricsHandler())

	r.Route("/v1/vault", func(vr chi.Router) {
		vr.Use(obs.Middleware("vault"))
		if cfg.RateLimiter != nil {
			vr.Use(cfg.RateLimiter.Middleware("vault"))
		}
		newVaultRoutes(cfg.Engine).mount(vr)
	})

	reader := cfg.PriceReader
	if reader == nil {
		reader = cfg.ManualOracle
	}
	oracleHandlers := newOracleRoutes(cfg.ManualOracle, reader)

	r.Route("/v1/oracle", func(or chi.Router) {
		or.Use(obs.Middleware("oracle"))
		or.Get("/quotes/{feed}", oracleHandlers.quote)
	})

	r.Route("/v1/admin", func(ar chi.Router) {
		ar.Use(obs.Middleware("admin"))
		ar.With(auth.Middleware("oracle:write")).Post("/oracle/price", oracleHandlers.submit)
		ar.With(auth.Middleware("admin")).Post("/pause", pauseHandler(cfg.Pauses))
	})

	return r
}

type pauseRequest struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

// pauseHandler toggles a module's pause switch at runtime.
func pauseHandler(pauses *nativecommon.Pauses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pauses == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "pause switches not configured"})
			return
		}
		var req pauseRequest
		if !decodeBody(w, r, &req) {
			return
		}
		module := strings.ToLower(strings.TrimSpace(req.Module))
		if module == "" {
			writeBadRequest(w, "module is required")
			return
		}
		pauses.Set(module, req.Paused)
		if module == "vault" {
			observability.Vault().SetPause(req.Paused)
		}
		writeJSON(w, http.StatusOK, map[string]any{"module": module, "paused": req.Paused})
	}
}
