package api

import (
	"github.com/JaimeStill/countersign/internal/approvals"
	"github.com/JaimeStill/countersign/internal/config"
	"github.com/JaimeStill/countersign/internal/infrastructure"
	"github.com/JaimeStill/countersign/internal/notify"
	"github.com/JaimeStill/countersign/internal/render"
	"github.com/JaimeStill/countersign/pkg/pagination"
)

// Runtime extends Infrastructure with the API's workflow settings and the
// collaborators the orchestrator hands finished documents to.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination  pagination.Config
	Workflow    approvals.Config
	Renderer    render.Service
	Broadcaster notify.Broadcaster
}

// NewRuntime creates an API runtime with a module-scoped logger. The renderer
// falls back to plain text when no remote renderer is configured.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	logger := infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Mongo:     infra.Mongo,
			Storage:   infra.Storage,
		},
		Pagination:  cfg.API.Pagination,
		Workflow:    cfg.Workflow,
		Renderer:    render.New(&cfg.Render, infra.Storage, logger),
		Broadcaster: notify.New(&cfg.Notify, logger),
	}
}
