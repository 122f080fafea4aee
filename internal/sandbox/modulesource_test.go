// Copyright 2025 James Ross
package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalModuleSourceLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mod-1.wasm"), []byte{0x00, 0x61, 0x73, 0x6d}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src := NewLocalModuleSource(dir)
	data, err := src.Load(context.Background(), "mod-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(data))
	}
}

func TestLocalModuleSourceNotFound(t *testing.T) {
	src := NewLocalModuleSource(t.TempDir())
	_, err := src.Load(context.Background(), "missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
