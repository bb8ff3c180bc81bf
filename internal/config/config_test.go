package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robertmuil/pythinfer/internal/pyerr"
)

func writeProject(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.ttl"), []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := writeProject(t, dir, `
name: testproj
data:
  local:
    - data.ttl
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "testproj" {
		t.Errorf("name: got %q", p.Name)
	}
	if p.BaseFolder != dir {
		t.Errorf("base_folder default: got %q, want %q", p.BaseFolder, dir)
	}
	if want := filepath.Join(dir, "derived"); p.Output.Folder != want {
		t.Errorf("output.folder default: got %q, want %q", p.Output.Folder, want)
	}
	if p.Iteration.Bound != 16 {
		t.Errorf("iteration.bound default: got %d", p.Iteration.Bound)
	}
}

func TestLoadRejectsEmptyData(t *testing.T) {
	dir := t.TempDir()
	path := writeProject(t, dir, "name: empty\n")
	_, err := Load(path)
	if !errors.Is(err, pyerr.ErrConfig) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	if !errors.Is(err, pyerr.ErrConfig) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadReasonerSection(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.ttl"), []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := writeProject(t, dir, `
data:
  local:
    - data.ttl
reasoner:
  backend: external-cli
  command: ["riot", "--infer"]
  timeout: 30s
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Reasoner.Backend != "external-cli" {
		t.Errorf("backend: got %q", p.Reasoner.Backend)
	}
	if len(p.Reasoner.Command) != 2 || p.Reasoner.Command[0] != "riot" {
		t.Errorf("command: got %v", p.Reasoner.Command)
	}
	if p.Reasoner.TimeoutDuration() != 30*time.Second {
		t.Errorf("timeout: got %v", p.Reasoner.TimeoutDuration())
	}
}

func TestLoadRejectsExternalCLIWithoutCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.ttl"), []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := writeProject(t, dir, `
data:
  local:
    - data.ttl
reasoner:
  backend: external-cli
`)
	if _, err := Load(path); !errors.Is(err, pyerr.ErrConfig) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadRejectsBadReasonerTimeout(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.ttl"), []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := writeProject(t, dir, `
data:
  local:
    - data.ttl
reasoner:
  timeout: soonish
`)
	if _, err := Load(path); !errors.Is(err, pyerr.ErrConfig) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestResolveGlobsAndLiterals(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.ttl", "b.ttl", "c.nt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(""), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	path := writeProject(t, dir, `
data:
  local:
    - "*.ttl"
    - c.nt
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	files, err := p.Resolve(p.Data.Local)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %v", files)
	}
}

func TestResolveMissingLiteralFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.ttl"), []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := writeProject(t, dir, `
data:
  local:
    - a.ttl
    - missing.ttl
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := p.Resolve(p.Data.Local); !errors.Is(err, pyerr.ErrConfig) {
		t.Fatalf("expected ConfigError for missing literal path, got %v", err)
	}
}

func TestResolveEmptyGlobIsAllowed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.ttl"), []byte(""), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := writeProject(t, dir, `
data:
  local:
    - a.ttl
  reference:
    - "vocabs/*.ttl"
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	refs, err := p.Resolve(p.Data.Reference)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("expected empty match, got %v", refs)
	}
}
