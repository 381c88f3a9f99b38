package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/countersign/internal/infrastructure"
	"github.com/JaimeStill/countersign/pkg/lifecycle"
)

type stub bool

func (s stub) Ready() bool { return bool(s) }

func TestHealthAndReadiness(t *testing.T) {
	lc := lifecycle.New()
	router := buildRouter(&infrastructure.Infrastructure{Lifecycle: lc}, "1.2.0")

	get := func(path string) (*httptest.ResponseRecorder, map[string]any) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		return rec, body
	}

	rec, body := get("/healthz")
	if rec.Code != http.StatusOK || body["version"] != "1.2.0" {
		t.Errorf("healthz = %d %v", rec.Code, body)
	}

	lc.Track("database", stub(false))
	rec, body = get("/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before startup = %d", rec.Code)
	}

	lc.WaitForStartup()
	rec, body = get("/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with database down = %d", rec.Code)
	}
	if subs, _ := body["subsystems"].(map[string]any); subs["database"] != false {
		t.Errorf("subsystems = %v", body["subsystems"])
	}

	lc.Track("database", stub(true))
	if rec, body = get("/readyz"); rec.Code != http.StatusOK || body["status"] != "ready" {
		t.Errorf("readyz = %d %v", rec.Code, body)
	}
}
