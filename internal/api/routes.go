package api

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/countersign/internal/config"
	"github.com/JaimeStill/countersign/pkg/routes"
)

// registerRoutes mounts every domain handler. Approval bodies may carry an
// inline base64 signature image, so their limit is twice the raw image size.
func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	logger *slog.Logger,
) {
	patterns := routes.Register(
		mux,
		domain.Users.Handler(cfg.Workflow.MaxSignatureSizeBytes()).Routes(),
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Approvals.Handler(cfg.Workflow.MaxSignatureSizeBytes()*2).Routes(),
	)
	logger.Debug("routes registered", "base_path", cfg.API.BasePath, "routes", patterns)
	logger.Info("routes registered", "count", len(patterns))
}
