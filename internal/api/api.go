// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/countersign/internal/config"
	"github.com/JaimeStill/countersign/internal/infrastructure"
	"github.com/JaimeStill/countersign/pkg/auth"
	"github.com/JaimeStill/countersign/pkg/middleware"
	"github.com/JaimeStill/countersign/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// Every route requires an authenticated actor.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, fmt.Errorf("domain init failed: %w", err)
	}
	if err := domain.Start(runtime.Lifecycle); err != nil {
		return nil, err
	}

	authenticator, err := auth.New(runtime.Lifecycle.Context(), &cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth init failed: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime.Logger)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.RequestID())
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(authenticator.Middleware(runtime.Logger))

	return m, nil
}
