package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestMatcherLayers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "node_modules/\n*.log\n")
	writeFile(t, filepath.Join(root, FileName), "# fixtures are not shipped\ntestdata/\n")
	userFile := filepath.Join(t.TempDir(), ".complicignore")
	writeFile(t, userFile, "examples/\n")

	m, err := NewMatcher(root, Options{UserFile: userFile, Patterns: []string{"tmp/", "  "}})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	tests := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{".git", true, true},
		{"testdata", true, true},
		{"pkg/testdata", true, true},
		{"examples", true, true},
		{"tmp", true, true},
		{"node_modules", true, false},
		{"debug.log", false, false},
		{"package.json", false, false},
		{filepath.Join(root, "testdata"), true, true},
		{filepath.Join(root, "src"), true, false},
		{root, true, false},
		{filepath.Join(filepath.Dir(root), "elsewhere"), true, false},
	}
	for _, tt := range tests {
		if got := m.IsIgnored(tt.path, tt.isDir); got != tt.ignored {
			t.Errorf("IsIgnored(%q, %v) = %v, expected %v", tt.path, tt.isDir, got, tt.ignored)
		}
	}
}

func TestMatcherWithGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "build/\n*.log\n")

	m, err := NewMatcher(root, Options{UseGitignore: true})
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}
	if !m.IsIgnored("build", true) {
		t.Error("build/ should be ignored when gitignore is enabled")
	}
	if !m.IsIgnored("app.log", false) {
		t.Error("*.log should be ignored when gitignore is enabled")
	}
	if m.IsIgnored("pom.xml", false) {
		t.Error("pom.xml should not be ignored")
	}
	if m.Root() != root {
		t.Errorf("Root() = %q, expected %q", m.Root(), root)
	}
}

func TestSplitPath(t *testing.T) {
	if got := splitPath("./a//b/"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitPath() = %v", got)
	}
	if got := splitPath("."); got != nil {
		t.Errorf("splitPath(\".\") = %v", got)
	}
}
