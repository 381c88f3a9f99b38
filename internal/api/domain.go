package api

import (
	"fmt"

	"github.com/JaimeStill/countersign/internal/approvals"
	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/config"
	"github.com/JaimeStill/countersign/internal/documents"
	"github.com/JaimeStill/countersign/internal/signatures"
	"github.com/JaimeStill/countersign/internal/users"
	"github.com/JaimeStill/countersign/pkg/lifecycle"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Users      users.System
	Documents  documents.System
	Signatures signatures.System
	Audit      audit.System
	Approvals  approvals.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	db := runtime.Database.Connection()

	usersSystem := users.New(db, runtime.Storage, runtime.Logger, runtime.Pagination)

	docsSystem := documents.New(
		db,
		runtime.Storage,
		usersSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	sigSystem := signatures.New(db, runtime.Logger)

	auditSystem, err := newAudit(&cfg.Audit, runtime)
	if err != nil {
		return nil, err
	}

	approvalsSystem := approvals.New(approvals.Runtime{
		Documents:   docsSystem,
		Users:       usersSystem,
		Signatures:  sigSystem,
		Audit:       auditSystem,
		Storage:     runtime.Storage,
		Renderer:    runtime.Renderer,
		Broadcaster: runtime.Broadcaster,
		Logger:      runtime.Logger,
		Pagination:  runtime.Pagination,
		Config:      runtime.Workflow,
	})

	return &Domain{
		Users:      usersSystem,
		Documents:  docsSystem,
		Signatures: sigSystem,
		Audit:      auditSystem,
		Approvals:  approvalsSystem,
	}, nil
}

// Start registers domain lifecycle hooks: ledger indexes when the audit
// ledger lives in MongoDB and the drain of background dispatches.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	if m, ok := d.Audit.(*audit.Mongo); ok {
		if err := m.Start(lc); err != nil {
			return fmt.Errorf("audit start failed: %w", err)
		}
	}
	d.Approvals.Start(lc)
	return nil
}

func newAudit(cfg *audit.Config, runtime *Runtime) (audit.System, error) {
	switch cfg.Backend {
	case audit.BackendPostgres:
		return audit.New(runtime.Database.Connection(), runtime.Logger, runtime.Pagination), nil
	case audit.BackendMongo:
		if runtime.Mongo == nil {
			return nil, fmt.Errorf("audit backend %q requires a mongodb connection", cfg.Backend)
		}
		return audit.NewMongo(runtime.Mongo.Database(), runtime.Logger, runtime.Pagination), nil
	case audit.BackendMemory:
		return audit.NewMemory(runtime.Pagination), nil
	default:
		return nil, fmt.Errorf("unsupported audit backend %q", cfg.Backend)
	}
}
