package approvals_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/approvals"
	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/documents"
	"github.com/JaimeStill/countersign/internal/notify"
	"github.com/JaimeStill/countersign/internal/render"
	"github.com/JaimeStill/countersign/internal/signatures"
	"github.com/JaimeStill/countersign/internal/users"
	"github.com/JaimeStill/countersign/internal/workflow"
	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var pageConfig = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// store holds documents, signatures and users behind one lock so the fakes
// can reproduce the version-guarded writes of the database.
type store struct {
	mu    sync.Mutex
	docs  map[uuid.UUID]documents.Document
	sigs  []signatures.Signature
	users map[uuid.UUID]users.User

	// conflicts forces that many guarded writes to fail as stale.
	conflicts int
}

func newStore() *store {
	return &store{
		docs:  make(map[uuid.UUID]documents.Document),
		users: make(map[uuid.UUID]users.User),
	}
}

func (s *store) addUser(name, role string, admin bool) users.User {
	u := users.User{ID: uuid.New(), Name: name, Email: name + "@example.edu", Role: role, IsAdmin: admin}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	return u
}

func (s *store) setSignatureKey(id uuid.UUID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.SignatureKey = &key
	s.users[id] = u
}

func (s *store) addDocument(t *testing.T, owner uuid.UUID, a workflow.Assignments, submit bool) documents.Document {
	t.Helper()
	route, err := a.Route()
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	start, err := workflow.Start(route, submit)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	doc := documents.Document{
		ID:              uuid.New(),
		Kind:            documents.KindLetter,
		Title:           "Letter of Recommendation",
		Body:            "Jordan has been an outstanding student.",
		SubmittedBy:     owner,
		Status:          start.Status,
		Step:            start.Step,
		Route:           route,
		CurrentApprover: start.NextApprover,
		Version:         1,
	}
	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	return doc
}

func (s *store) doc(id uuid.UUID) documents.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[id]
}

func (s *store) stale() bool {
	if s.conflicts > 0 {
		s.conflicts--
		return true
	}
	return false
}

// docs is a documents.System over store.
type docs struct{ s *store }

func (d docs) Handler(int64) *documents.Handler { return nil }

func (d docs) List(context.Context, pagination.PageRequest, documents.Filters) (*pagination.PageResult[documents.Document], error) {
	return nil, errors.New("not implemented")
}

func (d docs) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	doc, ok := d.s.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	return &doc, nil
}

func (d docs) Create(context.Context, documents.CreateCommand) (*documents.Document, error) {
	return nil, errors.New("not implemented")
}

func (d docs) Submit(ctx context.Context, id, actorID uuid.UUID) (*documents.Document, error) {
	doc, err := d.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	tr, err := workflow.Submit(doc.Snapshot(), workflow.Actor{ID: actorID})
	if err != nil {
		return nil, err
	}
	return d.Transition(ctx, id, doc.Version, tr)
}

func (d docs) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return errors.New("not implemented")
}

func (d docs) Transition(_ context.Context, id uuid.UUID, version int, tr workflow.Transition) (*documents.Document, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	doc, ok := d.s.docs[id]
	if !ok || doc.Version != version || d.s.stale() {
		return nil, fmt.Errorf("document %s: %w", id, workflow.ErrConflict)
	}

	doc.Status = tr.Status
	doc.Step = tr.Step
	doc.CurrentApprover = tr.NextApprover
	if tr.ApprovedBy != nil {
		doc.ApprovedBy = tr.ApprovedBy
	}
	if tr.ApprovedAt != nil {
		doc.ApprovedAt = tr.ApprovedAt
	}
	if tr.RejectionReason != nil {
		doc.RejectionReason = tr.RejectionReason
	}
	doc.Version++
	d.s.docs[id] = doc
	return &doc, nil
}

func (d docs) MarkReminded(_ context.Context, id uuid.UUID, version int, at time.Time) (*documents.Document, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	doc, ok := d.s.docs[id]
	if !ok || doc.Version != version || d.s.stale() {
		return nil, fmt.Errorf("document %s: %w", id, workflow.ErrConflict)
	}
	doc.LastReminderSent = &at
	doc.ReminderCount++
	doc.Version++
	d.s.docs[id] = doc
	return &doc, nil
}

func (d docs) AttachArtifact(_ context.Context, id uuid.UUID, a documents.Artifact) (*documents.Document, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	doc, ok := d.s.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	doc.ArtifactKey = &a.Key
	doc.ArtifactSize = &a.Size
	doc.ArtifactPages = a.Pages
	d.s.docs[id] = doc
	return &doc, nil
}

func (d docs) Artifact(context.Context, uuid.UUID) (*storage.Blob, error) {
	return nil, documents.ErrNoArtifact
}

// ledger is a signatures.System over store.
type ledger struct{ s *store }

func (l ledger) Sign(_ context.Context, cmd signatures.SignCommand) (*signatures.SignResult, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	doc, ok := l.s.docs[cmd.DocumentID]
	if !ok || doc.Version != cmd.Snapshot.Version || doc.Status != cmd.Snapshot.Status || l.s.stale() {
		return nil, fmt.Errorf("sign document %s: %w", cmd.DocumentID, workflow.ErrConflict)
	}

	existing := l.byDocument(cmd.DocumentID)
	slot, err := signatures.Plan(cmd.Snapshot, workflow.Actor{ID: cmd.Signer.ID, Admin: cmd.Signer.Admin}, existing)
	if err != nil {
		return nil, err
	}

	sig := signatures.Signature{
		ID:           uuid.New(),
		DocumentID:   cmd.DocumentID,
		ApproverID:   cmd.Signer.ID,
		SlotRole:     slot.Role,
		ApproverName: cmd.Signer.Name,
		ApproverRole: cmd.Signer.Role,
		Designation:  cmd.Signer.Designation,
		Material:     cmd.Material,
		SignedAt:     cmd.SignedAt,
	}
	l.s.sigs = append(l.s.sigs, sig)

	count := len(existing) + 1
	doc.Status = signatures.StatusAfter(doc.Route, count)
	doc.Version++
	l.s.docs[doc.ID] = doc

	return &signatures.SignResult{
		Signature:   sig,
		Count:       count,
		Required:    len(doc.Route),
		FullySigned: signatures.FullySigned(doc.Route, count),
		Status:      doc.Status,
		Version:     doc.Version,
	}, nil
}

func (l ledger) ListByDocument(_ context.Context, documentID uuid.UUID) ([]signatures.Signature, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.byDocument(documentID), nil
}

func (l ledger) byDocument(documentID uuid.UUID) []signatures.Signature {
	var out []signatures.Signature
	for _, sig := range l.s.sigs {
		if sig.DocumentID == documentID {
			out = append(out, sig)
		}
	}
	return out
}

// directory is a users.System over store.
type directory struct{ s *store }

func (d directory) Handler(int64) *users.Handler { return nil }

func (d directory) List(context.Context, pagination.PageRequest, users.Filters) (*pagination.PageResult[users.User], error) {
	return nil, errors.New("not implemented")
}

func (d directory) Find(_ context.Context, id uuid.UUID) (*users.User, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	u, ok := d.s.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &u, nil
}

func (d directory) Actor(ctx context.Context, id uuid.UUID) (workflow.Actor, error) {
	u, err := d.Find(ctx, id)
	if err != nil {
		return workflow.Actor{}, fmt.Errorf("%w: unknown actor", workflow.ErrUnauthorized)
	}
	return u.Actor(), nil
}

func (d directory) Create(context.Context, users.CreateCommand) (*users.User, error) {
	return nil, errors.New("not implemented")
}

func (d directory) SetSignature(context.Context, uuid.UUID, []byte) (*users.User, error) {
	return nil, errors.New("not implemented")
}

func (d directory) ClearSignature(context.Context, uuid.UUID) error {
	return errors.New("not implemented")
}

func (d directory) Signature(context.Context, uuid.UUID) (*storage.Blob, error) {
	return nil, users.ErrNotFound
}

// broadcaster records every event it is asked to deliver.
type broadcaster struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (b *broadcaster) Broadcast(_ context.Context, e notify.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return b.err
}

func (b *broadcaster) kinds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Kind
	}
	return out
}

func (b *broadcaster) find(kind string) (notify.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.IndexFunc(b.events, func(e notify.Event) bool { return e.Kind == kind })
	if i < 0 {
		return notify.Event{}, false
	}
	return b.events[i], true
}

func (b *broadcaster) count(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// failingAudit rejects every write.
type failingAudit struct{ audit.System }

func (failingAudit) Record(context.Context, audit.Record) error {
	return errors.New("ledger unavailable")
}

// failingRenderer fails every render.
type failingRenderer struct{}

func (failingRenderer) Render(context.Context, render.Request) (*render.Artifact, error) {
	return nil, errors.New("renderer unavailable")
}

// harness wires the orchestrator to in-memory fakes.
type harness struct {
	sys   approvals.System
	store *store
	blobs *storage.Memory
	audit *audit.Memory
	bus   *broadcaster
	clock *clock
}

type option func(*approvals.Runtime)

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()

	h := &harness{
		store: newStore(),
		blobs: storage.NewMemory(),
		audit: audit.NewMemory(pageConfig),
		bus:   &broadcaster{},
		clock: &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}

	cfg := approvals.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	rt := approvals.Runtime{
		Documents:   docs{h.store},
		Users:       directory{h.store},
		Signatures:  ledger{h.store},
		Audit:       h.audit,
		Storage:     h.blobs,
		Renderer:    render.NewFallback(h.blobs),
		Broadcaster: h.bus,
		Logger:      discard,
		Pagination:  pageConfig,
		Config:      cfg,
		Now:         h.clock.Now,
	}
	for _, opt := range opts {
		opt(&rt)
	}

	h.sys = approvals.New(rt)
	t.Cleanup(h.sys.Wait)
	return h
}

// chain is a document owned by a student and routed through every filled slot.
type chain struct {
	owner, mentor, hod, dean users.User
	doc                      documents.Document
}

func (h *harness) chain(t *testing.T, mentor, hod, dean bool) chain {
	t.Helper()
	c := chain{
		owner:  h.store.addUser("jordan", users.RoleStudent, false),
		mentor: h.store.addUser("rao", users.RoleMentor, false),
		hod:    h.store.addUser("iyer", users.RoleHOD, false),
		dean:   h.store.addUser("menon", users.RoleDean, false),
	}

	var a workflow.Assignments
	if mentor {
		a.Mentor = &c.mentor.ID
	}
	if hod {
		a.HOD = &c.hod.ID
	}
	if dean {
		a.Dean = &c.dean.ID
	}
	c.doc = h.store.addDocument(t, c.owner.ID, a, true)
	return c
}
