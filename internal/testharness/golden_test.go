package testharness

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGoldenAssertJSON(t *testing.T) {
	dir := t.TempDir()
	g := NewGoldenAt(t, dir)
	content := "{\n  \"b\": [\n    1,\n    2\n  ],\n  \"a\": {}\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "TestGoldenAssertJSON.json.golden"), []byte(content), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	g.AssertJSON(struct {
		B []int          `json:"b"`
		A map[string]int `json:"a"`
	}{B: []int{1, 2}, A: map[string]int{}})
}

func TestGoldenAssert(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "TestGoldenAssert_sub.golden"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	t.Run("sub", func(t *testing.T) {
		NewGoldenAt(t, dir).Assert("hello\n")
	})
}

func TestDiff(t *testing.T) {
	got := Diff("a\nb\nc", "a\nx\nc\nd")
	want := "- b\n+ x\n- \n+ d\n"
	if got != want {
		t.Fatalf("Diff() = %q, want %q", got, want)
	}
}
