package main

import (
	"net/http"

	"github.com/JaimeStill/countersign/internal/api"
	"github.com/JaimeStill/countersign/internal/config"
	"github.com/JaimeStill/countersign/internal/infrastructure"
	"github.com/JaimeStill/countersign/pkg/handlers"
	"github.com/JaimeStill/countersign/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure, version string) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		status, code := "ready", http.StatusOK
		if !infra.Lifecycle.Ready() {
			status, code = "not ready", http.StatusServiceUnavailable
		}
		handlers.RespondJSON(w, code, map[string]any{
			"status":     status,
			"subsystems": infra.Lifecycle.Readiness(),
		})
	})

	return router
}
