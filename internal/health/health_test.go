package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRegistry_CheckAll(t *testing.T) {
	r := NewRegistry()
	r.Register("good", func(context.Context) Status {
		return Status{Name: "good", Healthy: true}
	})
	r.Register("bad", func(context.Context) Status {
		return Status{Name: "bad", Healthy: false, Detail: "broken"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Error("aggregate must be unhealthy when any checker fails")
	}
	if len(statuses) != 2 {
		t.Fatalf("statuses = %d, want 2", len(statuses))
	}
}

func TestRegistry_Empty(t *testing.T) {
	healthy, statuses := NewRegistry().CheckAll(context.Background())
	if !healthy || len(statuses) != 0 {
		t.Errorf("empty registry: healthy=%v statuses=%v", healthy, statuses)
	}
}

func TestDocumentChecker(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// Missing file is healthy (lazy initialization)
	s := DocumentChecker("ledger", filepath.Join(dir, "missing.json"))(ctx)
	if !s.Healthy {
		t.Errorf("missing document: %+v, want healthy", s)
	}

	// Valid JSON
	valid := filepath.Join(dir, "valid.json")
	os.WriteFile(valid, []byte(`{"version":"1.0.0"}`), 0o644)
	if s := DocumentChecker("ledger", valid)(ctx); !s.Healthy {
		t.Errorf("valid document: %+v, want healthy", s)
	}

	// Corrupt JSON
	corrupt := filepath.Join(dir, "corrupt.json")
	os.WriteFile(corrupt, []byte("{nope"), 0o644)
	if s := DocumentChecker("ledger", corrupt)(ctx); s.Healthy {
		t.Errorf("corrupt document: %+v, want unhealthy", s)
	}
}
