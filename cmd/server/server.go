package main

import (
	"time"

	"github.com/JaimeStill/countersign/internal/config"
	"github.com/JaimeStill/countersign/internal/infrastructure"
	"github.com/JaimeStill/countersign/pkg/auth"
)

type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg.Version)
	modules.Mount(router)

	infra.Logger.Info("server initialized", backends(cfg)...)
	if trustsHeader(cfg) {
		infra.Logger.Warn(
			"actor header trusted outside local environment",
			"header", cfg.Auth.ActorHeader,
			"env", cfg.Env(),
		)
	}

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// backends summarizes the wiring the approval workflow runs against.
func backends(cfg *config.Config) []any {
	return []any{
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"storage", cfg.Storage.Type,
		"audit", cfg.Audit.Backend,
		"render", cfg.Render.Type,
		"notify", cfg.Notify.Type,
		"auth", cfg.Auth.Mode,
	}
}

// trustsHeader reports a deployment where any caller can name its own actor.
func trustsHeader(cfg *config.Config) bool {
	return cfg.Auth.Mode == auth.ModeHeader && cfg.Env() != "local"
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting countersign")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("accepting approvals", "subsystems", s.infra.Lifecycle.Readiness())
	}()

	return nil
}

// Shutdown drains in-flight approvals and reminder deliveries within timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	start := time.Now()
	s.infra.Logger.Info("draining approvals", "timeout", timeout)

	err := s.infra.Lifecycle.Shutdown(timeout)
	s.infra.Logger.Info("drain finished", "elapsed", time.Since(start), "clean", err == nil)
	return err
}
