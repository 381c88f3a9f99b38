package pagination_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/JaimeStill/countersign/pkg/pagination"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100, MaxSearchLength: 8}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := pagination.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if cfg.DefaultPageSize != 20 || cfg.MaxPageSize != 100 {
			t.Errorf("defaults = %+v", cfg)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_PAGE_SIZE", "50")
		t.Setenv("TEST_MAX_PAGE", "200")

		cfg := pagination.Config{}
		err := cfg.Finalize(&pagination.Env{
			DefaultPageSize: "TEST_PAGE_SIZE",
			MaxPageSize:     "TEST_MAX_PAGE",
		})
		if err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if cfg.DefaultPageSize != 50 || cfg.MaxPageSize != 200 {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("default exceeds max", func(t *testing.T) {
		cfg := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
		err := cfg.Finalize(nil)
		if err == nil || !strings.Contains(err.Error(), "cannot exceed") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("page size ceiling", func(t *testing.T) {
		cfg := pagination.Config{MaxPageSize: 5000}
		if err := cfg.Finalize(nil); err == nil || !strings.Contains(err.Error(), "max_page_size") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("merge", func(t *testing.T) {
		base := defaultConfig()
		base.Merge(&pagination.Config{MaxPageSize: 50})
		if base.DefaultPageSize != 20 || base.MaxPageSize != 50 {
			t.Errorf("merged = %+v", base)
		}
	})
}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
		wantSearch   string
		wantSort     int
	}{
		{"empty", "", 1, 20, "", 0},
		{"explicit", "page=3&page_size=10", 3, 10, "", 0},
		{"clamped", "page=-2&page_size=1000", 1, 100, "", 0},
		{"garbage", "page=abc&page_size=xyz", 1, 20, "", 0},
		{"search and sort", "search=thesis&sort=-approved_at,document_title", 1, 20, "thesis", 2},
		{"blank search", "search=%20%20", 1, 20, "", 0},
		{"long search", "search=%20recommendation%20", 1, 20, "recommen", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := pagination.PageRequestFromQuery(values, defaultConfig())

			if req.Page != tt.wantPage || req.PageSize != tt.wantPageSize {
				t.Errorf("page %d/%d, want %d/%d", req.Page, req.PageSize, tt.wantPage, tt.wantPageSize)
			}
			if (req.Search == nil) != (tt.wantSearch == "") || (req.Search != nil && *req.Search != tt.wantSearch) {
				t.Errorf("search = %v, want %q", req.Search, tt.wantSearch)
			}
			if len(req.Sort) != tt.wantSort {
				t.Errorf("sort = %v, want %d fields", req.Sort, tt.wantSort)
			}
		})
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	var fromString struct {
		Sort pagination.SortFields `json:"sort"`
	}
	if err := json.Unmarshal([]byte(`{"sort":"-approved_at,name"}`), &fromString); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if len(fromString.Sort) != 2 || !fromString.Sort[0].Descending || fromString.Sort[0].Field != "approved_at" {
		t.Errorf("sort = %+v", fromString.Sort)
	}

	var fromArray struct {
		Sort pagination.SortFields `json:"sort"`
	}
	if err := json.Unmarshal([]byte(`{"sort":[{"Field":"name","Descending":false}]}`), &fromArray); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if len(fromArray.Sort) != 1 || fromArray.Sort[0].Field != "name" {
		t.Errorf("sort = %+v", fromArray.Sort)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name         string
		total, page  int
		pageSize     int
		wantPages    int
		wantHasNext  bool
		wantPageSize int
	}{
		{"exact", 40, 1, 20, 2, true, 20},
		{"remainder", 41, 3, 20, 3, false, 20},
		{"empty", 0, 1, 20, 1, false, 20},
		{"zero page size", 7, 1, 0, 1, false, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := pagination.NewPageResult[int](nil, tt.total, tt.page, tt.pageSize)
			if r.TotalPages != tt.wantPages || r.HasNext != tt.wantHasNext || r.PageSize != tt.wantPageSize {
				t.Errorf("result = %+v", r)
			}
			if r.Data == nil {
				t.Error("Data is nil, want empty slice")
			}
		})
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	req := pagination.PageRequest{Page: 2, PageSize: 2}
	r := pagination.Slice(items, req)
	if len(r.Data) != 2 || r.Data[0] != 3 || r.Total != 5 || r.TotalPages != 3 || !r.HasNext {
		t.Errorf("page 2 = %+v", r)
	}

	req.Page = 9
	if r := pagination.Slice(items, req); len(r.Data) != 0 || r.HasNext {
		t.Errorf("past the end = %+v", r)
	}
}
