package pocketbook

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindDataDirEnvWins(t *testing.T) {
	t.Setenv("POCKETBOOK_DIR", "/custom/data")
	if got := FindDataDir(); got != "/custom/data" {
		t.Errorf("expected env dir, got %q", got)
	}
}

func TestFindDataDirWalksUp(t *testing.T) {
	t.Setenv("POCKETBOOK_DIR", "")

	root := t.TempDir()
	dataDir := filepath.Join(root, DirName)
	if err := os.Mkdir(dataDir, 0755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}
	t.Chdir(nested)

	got := FindDataDir()
	// TempDir may be behind a symlink (macOS); compare resolved paths.
	want, _ := filepath.EvalSymlinks(dataDir)
	gotResolved, err := filepath.EvalSymlinks(got)
	if err != nil {
		t.Fatalf("failed to resolve found dir: %v", err)
	}
	if gotResolved != want {
		t.Errorf("expected %q, got %q", want, gotResolved)
	}
}

func TestFindDataDirFallsBackToHome(t *testing.T) {
	t.Setenv("POCKETBOOK_DIR", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	if got := FindDataDir(); got != filepath.Join(home, DirName) {
		t.Errorf("expected home fallback, got %q", got)
	}
}
