package audit_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/query"
)

var pageCfg = pagination.Config{DefaultPageSize: 10, MaxPageSize: 50}

func entry(doc, approver uuid.UUID, action audit.Action, at time.Time) audit.Record {
	return audit.Record{
		DocumentID:    doc,
		DocumentTitle: "Recommendation letter",
		ApproverID:    approver,
		ApproverName:  "Dr. Rao",
		StudentName:   "Asha",
		Action:        action,
		Status:        workflow.StatusPending,
		StepReached:   workflow.StepHOD,
		ApprovedAt:    at,
	}
}

func TestMemoryHistories(t *testing.T) {
	ctx := context.Background()
	mem := audit.NewMemory(pageCfg)

	approver := uuid.New()
	docA, docB := uuid.New(), uuid.New()
	t0 := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	records := []audit.Record{
		entry(docA, approver, audit.ActionApproved, t0.Add(2*time.Hour)),
		entry(docB, approver, audit.ActionRejected, t0),
		entry(docA, uuid.New(), audit.ActionApproved, t0.Add(time.Hour)),
		entry(docA, approver, audit.ActionSigned, t0.Add(3*time.Hour)),
	}
	for _, r := range records {
		if err := mem.Record(ctx, r); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	t.Run("approver newest first", func(t *testing.T) {
		page, err := mem.ByApprover(ctx, approver, pagination.PageRequest{}, audit.Filters{})
		if err != nil {
			t.Fatalf("ByApprover() error = %v", err)
		}
		if page.Total != 3 {
			t.Fatalf("total = %d, want 3", page.Total)
		}
		want := []audit.Action{audit.ActionSigned, audit.ActionApproved, audit.ActionRejected}
		for i, a := range want {
			if page.Data[i].Action != a {
				t.Errorf("data[%d] = %s, want %s", i, page.Data[i].Action, a)
			}
		}
	})

	t.Run("caller sort", func(t *testing.T) {
		req := pagination.PageRequest{Sort: pagination.SortFields{{Field: "ApprovedAt"}}}
		page, _ := mem.ByApprover(ctx, approver, req, audit.Filters{})
		if page.Data[0].Action != audit.ActionRejected {
			t.Errorf("first = %s, want rejected", page.Data[0].Action)
		}
	})

	t.Run("filters", func(t *testing.T) {
		rejected := string(audit.ActionRejected)
		page, _ := mem.ByApprover(ctx, approver, pagination.PageRequest{}, audit.Filters{Action: &rejected})
		if page.Total != 1 || page.Data[0].DocumentID != docB {
			t.Errorf("filtered = %+v", page.Data)
		}

		page, _ = mem.ByApprover(ctx, approver, pagination.PageRequest{}, audit.Filters{DocumentID: &docA})
		if page.Total != 2 {
			t.Errorf("document filter total = %d, want 2", page.Total)
		}
	})

	t.Run("pages", func(t *testing.T) {
		page, _ := mem.ByApprover(ctx, approver, pagination.PageRequest{Page: 2, PageSize: 2}, audit.Filters{})
		if page.Total != 3 || len(page.Data) != 1 || page.TotalPages != 2 {
			t.Errorf("page 2 = %d rows, total %d, pages %d", len(page.Data), page.Total, page.TotalPages)
		}
	})

	t.Run("document oldest first", func(t *testing.T) {
		history, err := mem.ByDocument(ctx, docA)
		if err != nil {
			t.Fatalf("ByDocument() error = %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("len = %d, want 3", len(history))
		}
		for i := 1; i < len(history); i++ {
			if history[i].ApprovedAt.Before(history[i-1].ApprovedAt) {
				t.Errorf("history out of order at %d", i)
			}
		}
	})

	t.Run("records are stamped", func(t *testing.T) {
		for _, r := range mem.All() {
			if r.ID == uuid.Nil || r.CreatedAt.IsZero() {
				t.Errorf("unstamped record %+v", r)
			}
		}
	})
}

type failing struct{ audit.System }

func (failing) Record(context.Context, audit.Record) error {
	return errors.New("ledger unavailable")
}

func TestRecorderSwallowsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := audit.NewRecorder(failing{}, logger)
	if ok := rec.Record(context.Background(), entry(uuid.New(), uuid.New(), audit.ActionApproved, time.Now())); ok {
		t.Error("Record() = true on failing backend")
	}
	if !strings.Contains(buf.String(), "audit record failed") || !strings.Contains(buf.String(), "ledger unavailable") {
		t.Errorf("log = %q", buf.String())
	}

	var nilRec *audit.Recorder
	if nilRec.Record(context.Background(), audit.Record{}) {
		t.Error("nil Recorder reported success")
	}
}

func TestRecorderWrites(t *testing.T) {
	mem := audit.NewMemory(pageCfg)
	rec := audit.NewRecorder(mem, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if !rec.Record(context.Background(), entry(uuid.New(), uuid.New(), audit.ActionSigned, time.Now())) {
		t.Fatal("Record() = false")
	}
	if n := len(mem.All()); n != 1 {
		t.Errorf("records = %d, want 1", n)
	}
}

func TestFiltersFromQuery(t *testing.T) {
	doc := uuid.New()
	values := url.Values{
		"action":      {"approved"},
		"document_id": {doc.String()},
		"since":       {"2026-01-01T00:00:00Z"},
		"until":       {"not-a-time"},
	}

	f := audit.FiltersFromQuery(values)
	if f.Action == nil || *f.Action != "approved" {
		t.Errorf("Action = %v", f.Action)
	}
	if f.DocumentID == nil || *f.DocumentID != doc {
		t.Errorf("DocumentID = %v", f.DocumentID)
	}
	if f.Since == nil || f.Until != nil || f.Status != nil {
		t.Errorf("Since = %v, Until = %v, Status = %v", f.Since, f.Until, f.Status)
	}
}

func TestFiltersApply(t *testing.T) {
	approved := "approved"
	since := time.Now()

	qb := query.NewBuilder(query.
		NewProjectionMap("public", "approval_audit", "a").
		Project("action", "Action").
		Project("status", "Status").
		Project("document_id", "DocumentID").
		Project("approved_at", "ApprovedAt"))

	audit.Filters{Action: &approved, Since: &since}.Apply(qb)

	q, args := qb.Build()
	if !strings.Contains(q, "a.action = $1") || !strings.Contains(q, "a.approved_at >= $2") {
		t.Errorf("query = %s", q)
	}
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}
}

func TestConfigFinalize(t *testing.T) {
	var cfg audit.Config
	if err := cfg.Finalize(nil); err != nil || cfg.Backend != audit.BackendPostgres {
		t.Errorf("default = %q, %v", cfg.Backend, err)
	}

	t.Setenv("TEST_AUDIT_BACKEND", "mongo")
	cfg = audit.Config{}
	if err := cfg.Finalize(&audit.Env{Backend: "TEST_AUDIT_BACKEND"}); err != nil || cfg.Backend != audit.BackendMongo {
		t.Errorf("env = %q, %v", cfg.Backend, err)
	}

	cfg = audit.Config{Backend: "cassandra"}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}
