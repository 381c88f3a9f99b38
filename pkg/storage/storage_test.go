package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/countersign/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewBackends(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr bool
	}{
		{"azure connection string", storage.Config{Type: storage.TypeAzure, Container: "c", ConnectionString: azuriteConnString}, false},
		{"azure bad connection string", storage.Config{Type: storage.TypeAzure, Container: "c", ConnectionString: "nope"}, true},
		{"s3 static credentials", storage.Config{Type: storage.TypeS3, Container: "b", Region: "us-east-1", Endpoint: "http://127.0.0.1:9000", AccessKey: "k", SecretKey: "s", UsePathStyle: true}, false},
		{"memory", storage.Config{Type: storage.TypeMemory}, false},
		{"unknown", storage.Config{Type: "ftp"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, err := storage.New(&tt.cfg, discard())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && sys == nil {
				t.Fatal("New() returned nil system")
			}
		})
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	if err := mem.Upload(ctx, "signatures/a.png", strings.NewReader("png-bytes"), "image/png"); err != nil {
		t.Fatalf("Upload() err = %v", err)
	}

	ok, err := mem.Exists(ctx, "signatures/a.png")
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v; want true", ok, err)
	}

	blob, err := mem.Download(ctx, "signatures/a.png")
	if err != nil {
		t.Fatalf("Download() err = %v", err)
	}
	defer blob.Body.Close()

	data, _ := io.ReadAll(blob.Body)
	if string(data) != "png-bytes" {
		t.Errorf("data = %q", data)
	}
	if blob.ContentType != "image/png" || blob.ContentLength != 9 {
		t.Errorf("metadata = %q/%d", blob.ContentType, blob.ContentLength)
	}

	if err := mem.Delete(ctx, "signatures/a.png"); err != nil {
		t.Fatalf("Delete() err = %v", err)
	}
	if err := mem.Delete(ctx, "signatures/a.png"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete() err = %v, want ErrNotFound", err)
	}
	if _, err := mem.Download(ctx, "signatures/a.png"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download() after delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryKeyValidation(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty", "", storage.ErrEmptyKey},
		{"traversal", "artifacts/../secrets", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := mem.Upload(ctx, tt.key, strings.NewReader("x"), "text/plain"); !errors.Is(err, tt.want) {
				t.Errorf("Upload() err = %v, want %v", err, tt.want)
			}
			if _, err := mem.Exists(ctx, tt.key); !errors.Is(err, tt.want) {
				t.Errorf("Exists() err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{storage.ErrEmptyKey, http.StatusBadRequest},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := storage.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := storage.Config{ConnectionString: azuriteConnString}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize() err = %v", err)
		}
		if cfg.Type != storage.TypeAzure || cfg.Container != "countersign" || cfg.MaxRetries != 3 {
			t.Errorf("defaults = %+v", cfg)
		}
	})

	t.Run("azure requires credentials", func(t *testing.T) {
		cfg := storage.Config{}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("retry bound", func(t *testing.T) {
		cfg := storage.Config{Type: storage.TypeMemory, MaxRetries: 1 << 40}
		if err := cfg.Finalize(nil); err == nil || !strings.Contains(err.Error(), "max_retries") {
			t.Errorf("Finalize() err = %v, want max_retries error", err)
		}
	})

	t.Run("s3 region default", func(t *testing.T) {
		cfg := storage.Config{Type: storage.TypeS3}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize() err = %v", err)
		}
		if cfg.Region != "us-east-1" {
			t.Errorf("region = %q", cfg.Region)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_STORAGE_TYPE", "s3")
		t.Setenv("TEST_STORAGE_CONTAINER", "letters")
		t.Setenv("TEST_STORAGE_PATH_STYLE", "true")

		cfg := storage.Config{}
		env := &storage.Env{
			Type:         "TEST_STORAGE_TYPE",
			Container:    "TEST_STORAGE_CONTAINER",
			UsePathStyle: "TEST_STORAGE_PATH_STYLE",
		}
		if err := cfg.Finalize(env); err != nil {
			t.Fatalf("Finalize() err = %v", err)
		}
		if cfg.Type != storage.TypeS3 || cfg.Container != "letters" || !cfg.UsePathStyle {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("merge", func(t *testing.T) {
		base := storage.Config{Type: storage.TypeAzure, Container: "a"}
		base.Merge(&storage.Config{Type: storage.TypeMemory})
		if base.Type != storage.TypeMemory || base.Container != "a" {
			t.Errorf("merged = %+v", base)
		}
	})
}
