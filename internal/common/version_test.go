package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFullVersion(t *testing.T) {
	fv := GetFullVersion()
	expected := "dev (build: unknown, commit: unknown)"
	if fv != expected {
		t.Errorf("expected full version %q, got %q", expected, fv)
	}
}

func TestLoadVersionFile(t *testing.T) {
	prevVersion, prevBuild, prevCommit := Version, Build, GitCommit
	t.Cleanup(func() {
		Version, Build, GitCommit = prevVersion, prevBuild, prevCommit
	})

	path := filepath.Join(t.TempDir(), ".version")
	content := "# release info\nversion: 1.4.0\nbuild: 2024-06-01\ncommit: abc1234\nnot a pair\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	loadVersionFile(path)

	if Version != "1.4.0" {
		t.Errorf("expected version 1.4.0, got %s", Version)
	}
	if Build != "2024-06-01" {
		t.Errorf("expected build 2024-06-01, got %s", Build)
	}
	if GitCommit != "abc1234" {
		t.Errorf("expected commit abc1234, got %s", GitCommit)
	}
}

func TestLoadVersionFile_LdflagsWin(t *testing.T) {
	prevVersion := Version
	t.Cleanup(func() { Version = prevVersion })
	Version = "2.0.0"

	path := filepath.Join(t.TempDir(), ".version")
	os.WriteFile(path, []byte("version: 1.0.0\n"), 0644)

	loadVersionFile(path)

	if Version != "2.0.0" {
		t.Errorf("expected ldflags version to win, got %s", Version)
	}
}

func TestLoadVersionFile_Missing(t *testing.T) {
	loadVersionFile(filepath.Join(t.TempDir(), "nope"))
	if Version != "dev" {
		t.Errorf("expected default version, got %s", Version)
	}
}
