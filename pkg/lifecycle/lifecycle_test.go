package lifecycle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/countersign/pkg/lifecycle"
)

type flag struct{ ready atomic.Bool }

func (f *flag) Ready() bool { return f.ready.Load() }

func TestReadyAfterStartup(t *testing.T) {
	lc := lifecycle.New()
	if lc.Ready() {
		t.Error("ready before WaitForStartup")
	}

	lc.WaitForStartup()
	if !lc.Ready() {
		t.Error("not ready after WaitForStartup")
	}
}

func TestStartupHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	for range 3 {
		lc.OnStartup(func() {
			count.Add(1)
		})
	}

	lc.WaitForStartup()

	if got := count.Load(); got != 3 {
		t.Errorf("startup hooks: got %d, want 3", got)
	}
}

func TestTrackedReadiness(t *testing.T) {
	lc := lifecycle.New()

	db, mongo := &flag{}, &flag{}
	db.ready.Store(true)
	lc.Track("database", db)
	lc.Track("mongodb", mongo)
	lc.WaitForStartup()

	if lc.Ready() {
		t.Error("ready while mongodb is not")
	}

	report := lc.Readiness()
	if !report["database"] || report["mongodb"] || len(report) != 2 {
		t.Errorf("Readiness() = %v", report)
	}

	mongo.ready.Store(true)
	if !lc.Ready() {
		t.Error("not ready after every subsystem reported ready")
	}
}

func TestShutdownHooksExecute(t *testing.T) {
	lc := lifecycle.New()

	var cleaned atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		cleaned.Store(true)
	})

	lc.WaitForStartup()

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !cleaned.Load() {
		t.Error("shutdown hook did not execute")
	}

	select {
	case <-lc.Context().Done():
	default:
		t.Error("context not cancelled after shutdown")
	}
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		time.Sleep(500 * time.Millisecond)
	})

	lc.WaitForStartup()

	if err := lc.Shutdown(50 * time.Millisecond); err == nil {
		t.Error("expected timeout error")
	}
}
