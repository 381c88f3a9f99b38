package routes_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/countersign/pkg/routes"
)

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func header(name, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add(name, value)
			next.ServeHTTP(w, r)
		})
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	patterns := routes.Register(mux, routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: status(http.StatusOK)},
			{Method: "GET", Pattern: "/{id}", Handler: status(http.StatusOK)},
			{Method: "DELETE", Pattern: "/{id}", Handler: status(http.StatusNoContent)},
		},
	})

	want := "GET /documents|GET /documents/{id}|DELETE /documents/{id}"
	if got := strings.Join(patterns, "|"); got != want {
		t.Errorf("patterns = %q, want %q", got, want)
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/documents", http.StatusOK},
		{"GET", "/documents/123", http.StatusOK},
		{"DELETE", "/documents/123", http.StatusNoContent},
		{"POST", "/documents/123", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestNestedGroupsInheritMiddleware(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Prefix:     "/approvals",
		Middleware: []func(http.Handler) http.Handler{header("X-Layer", "group")},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/history", Handler: status(http.StatusOK)},
		},
		Children: []routes.Group{
			{
				Prefix:     "/{id}",
				Middleware: []func(http.Handler) http.Handler{header("X-Layer", "child")},
				Routes: []routes.Route{
					{Method: "POST", Pattern: "/approve", Handler: status(http.StatusOK)},
				},
			},
		},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/approvals/7/approve", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("nested route status = %d", rec.Code)
	}
	if got := strings.Join(rec.Header().Values("X-Layer"), ","); got != "group,child" {
		t.Errorf("middleware order = %q, want group,child", got)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/approvals/history", nil))
	if got := strings.Join(rec.Header().Values("X-Layer"), ","); got != "group" {
		t.Errorf("parent route layers = %q, want group", got)
	}
}
