// Package testharness provides golden file snapshot helpers for tests.
package testharness

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// UpdateGolden is set with UPDATE_GOLDEN=1 to rewrite golden files instead of
// comparing against them.
var UpdateGolden = os.Getenv("UPDATE_GOLDEN") == "1"

// Golden compares test output against files under testdata/golden.
type Golden struct {
	t    testing.TB
	dir  string
	name string
}

// NewGolden creates a golden helper named after the running test.
func NewGolden(t testing.TB) *Golden {
	t.Helper()
	return NewGoldenAt(t, filepath.Join("testdata", "golden"))
}

// NewGoldenAt creates a golden helper storing files in dir.
func NewGoldenAt(t testing.TB, dir string) *Golden {
	t.Helper()
	return &Golden{
		t:    t,
		dir:  dir,
		name: sanitizeTestName(t.Name()),
	}
}

// Assert compares actual against the golden file.
func (g *Golden) Assert(actual string) {
	g.t.Helper()
	g.compare(g.path(".golden"), actual)
}

// AssertJSON marshals actual with two-space indentation and compares it
// against the .json.golden file.
func (g *Golden) AssertJSON(actual any) {
	g.t.Helper()
	pretty, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("failed to marshal JSON: %v", err)
	}
	g.compare(g.path(".json.golden"), string(pretty))
}

func (g *Golden) compare(filename, actual string) {
	g.t.Helper()

	if UpdateGolden {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(filename, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to update golden file %s: %v", filename, err)
		}
		g.t.Logf("updated golden file: %s", filename)
		return
	}

	expected, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file %s does not exist. Run with UPDATE_GOLDEN=1 to create it.\n\nActual output:\n%s", filename, actual)
		}
		g.t.Fatalf("failed to read golden file %s: %v", filename, err)
	}

	want := strings.TrimRight(string(expected), "\n")
	got := strings.TrimRight(actual, "\n")
	if want != got {
		g.t.Errorf("golden file mismatch %s\n\nDiff:\n%s", filename, Diff(want, got))
	}
}

func (g *Golden) path(suffix string) string {
	return filepath.Join(g.dir, g.name+suffix)
}

func sanitizeTestName(name string) string {
	replacer := strings.NewReplacer("/", "_", " ", "_", ":", "_")
	return replacer.Replace(name)
}

// Diff returns a line-based diff of two strings, listing only lines that
// differ.
func Diff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var result strings.Builder
	for i := 0; i < max(len(expectedLines), len(actualLines)); i++ {
		var exp, act string
		if i < len(expectedLines) {
			exp = expectedLines[i]
		}
		if i < len(actualLines) {
			act = actualLines[i]
		}
		if exp != act {
			result.WriteString("- ")
			result.WriteString(exp)
			result.WriteString("\n+ ")
			result.WriteString(act)
			result.WriteString("\n")
		}
	}
	return result.String()
}
