package module_test

import (
	"os"
	"path/filepath"
	"testing"

	"rvm/asm/module"
)

func TestLoadIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.asm")
	if err := os.WriteFile(path, []byte(".text:\nexit\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := module.New(nil)
	canonical, err := m.ResolvePath(dir, path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	u1, already1, err := m.Load(canonical)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if already1 {
		t.Fatal("first load should not report already-loaded")
	}

	u2, already2, err := m.Load(canonical)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if !already2 {
		t.Fatal("second load should report already-loaded")
	}
	if u1 != u2 {
		t.Fatal("second load should return the identical unit pointer")
	}
}

func TestResolvePathIncludeSearchRoot(t *testing.T) {
	root := t.TempDir()
	libDir := filepath.Join(root, "lib")
	if err := os.Mkdir(libDir, 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(libDir, "util.asm")
	if err := os.WriteFile(target, []byte("@@X\ndn 8 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := module.New([]string{libDir})
	resolved, err := m.ResolvePath(root, "util.asm")
	if err != nil {
		t.Fatalf("resolve via include path: %v", err)
	}
	wantResolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != wantResolved {
		t.Fatalf("resolved = %s, want %s", resolved, wantResolved)
	}
}

func TestResolvePathNotFound(t *testing.T) {
	m := module.New(nil)
	_, err := m.ResolvePath(t.TempDir(), "does-not-exist.asm")
	if err == nil {
		t.Fatal("expected a PathResolutionError")
	}
	if _, ok := err.(*module.PathResolutionError); !ok {
		t.Fatalf("expected *module.PathResolutionError, got %T", err)
	}
}

func TestIsLoadedAndGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.asm")
	if err := os.WriteFile(path, []byte(".text:\nexit\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := module.New(nil)
	if m.IsLoaded(path) {
		t.Fatal("should not be loaded yet")
	}
	canonical, err := m.ResolvePath(dir, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Load(canonical); err != nil {
		t.Fatal(err)
	}
	if !m.IsLoaded(canonical) {
		t.Fatal("should be loaded now")
	}
	if _, ok := m.Get(canonical); !ok {
		t.Fatal("Get should find the loaded unit")
	}
}
