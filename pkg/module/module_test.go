package module_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/countersign/pkg/module"
)

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		wantErr bool
	}{
		{"/api", false},
		{"/internal", false},
		{"", true},
		{"/", true},
		{"api", true},
		{"/api/v1", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			if err := module.ValidatePrefix(tt.prefix); (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrefix(%q) err = %v, wantErr %v", tt.prefix, err, tt.wantErr)
			}
		})
	}
}

func TestNewInvalidPrefixPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for nested prefix")
		}
	}()
	module.New("/api/v1", http.NewServeMux())
}

func TestServePrefixStripping(t *testing.T) {
	mux := http.NewServeMux()

	var path, id string
	mux.HandleFunc("POST /approvals/{id}/approve", func(w http.ResponseWriter, r *http.Request) {
		path, id = r.URL.Path, r.PathValue("id")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	})

	m := module.New("/api", mux)

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest(http.MethodPost, "/api/approvals/42/approve", nil))
	if rec.Code != http.StatusOK || path != "/approvals/42/approve" || id != "42" {
		t.Errorf("status %d, path %q, id %q", rec.Code, path, id)
	}

	m.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api", nil))
	if path != "/" {
		t.Errorf("root path = %q, want /", path)
	}
}

func TestServeLeavesOriginalRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	module.New("/api", mux).Serve(httptest.NewRecorder(), req)

	if req.URL.Path != "/api/users" {
		t.Errorf("original path mutated to %q", req.URL.Path)
	}
}

func TestModuleMiddlewareOrder(t *testing.T) {
	var order []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	m := module.New("/api", mux)
	for _, name := range []string{"outer", "inner"} {
		m.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		})
	}

	m.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api", nil))
	m.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api", nil))

	want := []string{"outer", "inner", "handler", "outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRouterDispatch(t *testing.T) {
	api := http.NewServeMux()
	api.HandleFunc("GET /documents", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", api))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"module", "/api/documents", http.StatusOK, "api"},
		{"trailing slash", "/api/documents/", http.StatusOK, "api"},
		{"native", "/healthz", http.StatusOK, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("got %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestRouterNotFound(t *testing.T) {
	router := module.NewRouter()
	router.Mount(module.New("/api", http.NewServeMux()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scalar", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "route not found" {
		t.Errorf("body = %v", body)
	}
}
