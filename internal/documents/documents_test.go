package documents_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/internal/documents"
	"github.com/JaimeStill/countersign/internal/workflow"
)

func ptr[T any](v T) *T { return &v }

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", documents.ErrNotFound, http.StatusNotFound},
		{"no artifact", documents.ErrNoArtifact, http.StatusNotFound},
		{"duplicate", documents.ErrDuplicate, http.StatusConflict},
		{"stale version", fmt.Errorf("document x: %w", workflow.ErrConflict), http.StatusConflict},
		{"validation", workflow.Validation("title", "is required"), http.StatusBadRequest},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("find failed: %w", documents.ErrNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := documents.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	owner := uuid.New()
	values := url.Values{
		"status":           {"pending"},
		"step":             {"hod"},
		"kind":             {"letter"},
		"submitted_by":     {owner.String()},
		"title":            {"recommend"},
		"current_approver": {"not-a-uuid"},
	}

	f := documents.FiltersFromQuery(values)

	if f.Status == nil || *f.Status != "pending" {
		t.Errorf("Status = %v", f.Status)
	}
	if f.Step == nil || *f.Step != "hod" {
		t.Errorf("Step = %v", f.Step)
	}
	if f.Kind == nil || *f.Kind != "letter" {
		t.Errorf("Kind = %v", f.Kind)
	}
	if f.SubmittedBy == nil || *f.SubmittedBy != owner {
		t.Errorf("SubmittedBy = %v", f.SubmittedBy)
	}
	if f.Title == nil || *f.Title != "recommend" {
		t.Errorf("Title = %v", f.Title)
	}
	if f.CurrentApprover != nil {
		t.Errorf("CurrentApprover = %v, want nil for malformed id", f.CurrentApprover)
	}
}

func TestCreateCommandNormalize(t *testing.T) {
	owner, mentor, dean := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name      string
		cmd       documents.CreateCommand
		wantRoles int
		wantField string
	}{
		{
			"mentor and dean",
			documents.CreateCommand{Title: " <b>LoR</b> ", SubmittedBy: owner, Approvers: workflow.Assignments{Mentor: &mentor, Dean: &dean}},
			2, "",
		},
		{
			"missing title",
			documents.CreateCommand{Title: "<br>", SubmittedBy: owner, Approvers: workflow.Assignments{Mentor: &mentor}},
			0, "title",
		},
		{
			"unknown kind",
			documents.CreateCommand{Kind: "memo", Title: "x", SubmittedBy: owner, Approvers: workflow.Assignments{Mentor: &mentor}},
			0, "kind",
		},
		{
			"title too long",
			documents.CreateCommand{Title: strings.Repeat("a", 201), SubmittedBy: owner, Approvers: workflow.Assignments{Mentor: &mentor}},
			0, "title",
		},
		{
			"owner as approver",
			documents.CreateCommand{Title: "x", SubmittedBy: owner, Approvers: workflow.Assignments{HOD: &owner}},
			0, "approvers",
		},
		{
			"no approvers",
			documents.CreateCommand{Title: "x", SubmittedBy: owner},
			0, "route",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := tt.cmd.Normalize()
			if tt.wantField != "" {
				var ve *workflow.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.wantField {
					t.Fatalf("Normalize() err = %v, want %s validation", err, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if len(route) != tt.wantRoles {
				t.Errorf("route = %v", route)
			}
			if tt.cmd.Title != "LoR" || tt.cmd.Kind != documents.KindDocument {
				t.Errorf("normalized = %q/%q", tt.cmd.Title, tt.cmd.Kind)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	doc := sampleDoc()
	doc.Version = 7
	doc.ContentRef = ptr("drive://letters/42")

	s := doc.Snapshot()
	if s.Owner != doc.SubmittedBy || s.Version != 7 || s.Step != doc.Step || len(s.Route) != 1 {
		t.Errorf("snapshot = %+v", s)
	}
}

type directory map[uuid.UUID]workflow.Actor

func (d directory) Actor(_ context.Context, id uuid.UUID) (workflow.Actor, error) {
	a, ok := d[id]
	if !ok {
		return workflow.Actor{}, fmt.Errorf("%w: unknown actor %s", workflow.ErrUnauthorized, id)
	}
	return a, nil
}

func TestResolveApprovers(t *testing.T) {
	mentor, hod, dean := uuid.New(), uuid.New(), uuid.New()
	dir := directory{mentor: {ID: mentor}, hod: {ID: hod}}

	known, _ := workflow.Assignments{Mentor: &mentor, HOD: &hod}.Route()
	if err := documents.ResolveApprovers(context.Background(), dir, known); err != nil {
		t.Errorf("ResolveApprovers(known) err = %v", err)
	}

	// an unknown later slot would otherwise strand the document at that step
	stranded, _ := workflow.Assignments{Mentor: &mentor, Dean: &dean}.Route()
	err := documents.ResolveApprovers(context.Background(), dir, stranded)
	var ve *workflow.ValidationError
	if !errors.As(err, &ve) || ve.Field != "approvers" || !strings.Contains(ve.Message, dean.String()) {
		t.Errorf("ResolveApprovers(unknown dean) err = %v, want approvers ValidationError", err)
	}
	if got := documents.MapHTTPStatus(err); got != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", got)
	}

	failing := errors.New("directory offline")
	err = documents.ResolveApprovers(context.Background(), failingDirectory{failing}, known)
	if !errors.Is(err, failing) {
		t.Errorf("err = %v, want passthrough", err)
	}
}

type failingDirectory struct{ err error }

func (f failingDirectory) Actor(context.Context, uuid.UUID) (workflow.Actor, error) {
	return workflow.Actor{}, f.err
}
