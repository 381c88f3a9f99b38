package main

import (
	"io/fs"
	"strings"
	"testing"
)

func TestParseAdmin(t *testing.T) {
	tests := []struct {
		raw       string
		wantName  string
		wantEmail string
		wantErr   bool
	}{
		{"Registrar Office <registrar@example.edu>", "Registrar Office", "registrar@example.edu", false},
		{"  Dana  < dana@example.edu >", "Dana", "dana@example.edu", false},
		{"dana@example.edu", "", "", true},
		{"<dana@example.edu>", "", "", true},
		{"Dana <not-an-email>", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			name, email, err := parseAdmin(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAdmin() err = %v, wantErr %v", err, tt.wantErr)
			}
			if name != tt.wantName || email != tt.wantEmail {
				t.Errorf("parseAdmin() = %q, %q", name, email)
			}
		})
	}
}

func TestMigrationsPaired(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		switch name := e.Name(); {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}

	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for name := range ups {
		if !downs[name] {
			t.Errorf("%s has no down migration", name)
		}
	}
	for name := range downs {
		if !ups[name] {
			t.Errorf("%s has no up migration", name)
		}
	}
}
