package audit

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/pkg/pagination"
	"github.com/JaimeStill/countersign/pkg/query"
)

// Memory is an in-process ledger for development and tests.
type Memory struct {
	mu         sync.RWMutex
	records    []Record
	pagination pagination.Config
}

// NewMemory creates an empty in-memory ledger.
func NewMemory(pagination pagination.Config) *Memory {
	return &Memory{pagination: pagination}
}

func (m *Memory) Record(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, stamp(rec, time.Now()))
	return nil
}

func (m *Memory) ByApprover(
	_ context.Context,
	approverID uuid.UUID,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(m.pagination)

	m.mu.RLock()
	matched := make([]Record, 0)
	for _, r := range m.records {
		if r.ApproverID == approverID && filters.match(r) && searchMatch(r, page.Search) {
			matched = append(matched, r)
		}
	}
	m.mu.RUnlock()

	sortRecords(matched, page.Sort)

	result := pagination.Slice(matched, page)
	return &result, nil
}

func (m *Memory) ByDocument(_ context.Context, documentID uuid.UUID) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0)
	for _, r := range m.records {
		if r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		return a.ApprovedAt.Compare(b.ApprovedAt)
	})
	return out, nil
}

// All returns a copy of every record in insertion order.
func (m *Memory) All() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

func searchMatch(r Record, search *string) bool {
	if search == nil || *search == "" {
		return true
	}
	s := strings.ToLower(*search)
	fields := []string{r.DocumentTitle, r.StudentName}
	if r.Comment != nil {
		fields = append(fields, *r.Comment)
	}
	return slices.ContainsFunc(fields, func(f string) bool {
		return strings.Contains(strings.ToLower(f), s)
	})
}

func sortRecords(records []Record, fields pagination.SortFields) {
	sort := slices.DeleteFunc(slices.Clone([]query.SortField(fields)), func(f query.SortField) bool {
		_, ok := mongoSort[f.Field]
		return !ok
	})
	if len(sort) == 0 {
		sort = []query.SortField{defaultSort}
	}

	slices.SortStableFunc(records, func(a, b Record) int {
		for _, f := range sort {
			c := compareField(a, b, f.Field)
			if f.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareField(a, b Record, field string) int {
	switch field {
	case "ApprovedAt":
		return a.ApprovedAt.Compare(b.ApprovedAt)
	case "CreatedAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "Action":
		return cmp.Compare(a.Action, b.Action)
	case "Status":
		return cmp.Compare(a.Status, b.Status)
	case "StepReached":
		return cmp.Compare(a.StepReached, b.StepReached)
	case "DocumentTitle":
		return cmp.Compare(a.DocumentTitle, b.DocumentTitle)
	case "StudentName":
		return cmp.Compare(a.StudentName, b.StudentName)
	}
	return 0
}
