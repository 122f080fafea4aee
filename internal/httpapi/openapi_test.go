// Copyright 2025 James Ross
package httpapi

import "testing"

func TestLoadSpecValidates(t *testing.T) {
	doc, err := LoadSpec()
	if err != nil {
		t.Fatalf("LoadSpec: %v", err)
	}
	if doc.Info.Title == "" {
		t.Fatal("expected a non-empty title")
	}
	if _, ok := doc.Paths.Find("/jobs"); !ok {
		t.Fatalf("expected /jobs path to be present")
	}
}
