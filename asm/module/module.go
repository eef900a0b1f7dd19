// Package module resolves include paths and owns the source text and
// token stream of every compilation unit an assembly reaches, keyed
// by canonical path so the same file is never loaded twice.
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"

	"rvm/asm/symtab"
	"rvm/asm/token"
)

// includePathEnvVar is the colon-separated list of extra search roots
// consulted after the caller-relative and configured include paths.
const includePathEnvVar = "RVM_INCLUDE_PATH"

// Unit is one assembly source file: its canonical path, its pinned
// source text, its tokenized lines, and an empty symbol table created
// when it is loaded. The asm driver parses each unit against a table
// of its own and does not use Syms.
type Unit struct {
	Path   string
	Source string
	Lines  token.TokenLines
	Syms   *symtab.Table

	// Exports is left nil; the asm driver keeps each unit's exports
	// in its own cache and does not set this field.
	Exports *symtab.Exported
}

// PathResolutionError reports that an include path could not be
// resolved against any of the configured search roots.
type PathResolutionError struct {
	Requested string
	CallerDir string
	Tried     []string
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("could not resolve include path %q from directory %q (tried: %s)",
		e.Requested, e.CallerDir, strings.Join(e.Tried, ", "))
}

// Manager is the arena of boxed units keyed by canonical path: a unit
// is created on first import and never relocated afterwards, so
// handles into it stay valid as the map grows.
type Manager struct {
	units        map[string]*Unit
	includePaths []string
}

// New builds a Manager with the given configured include paths, plus
// whatever the library environment variable adds at startup.
func New(includePaths []string) *Manager {
	m := &Manager{
		units:        make(map[string]*Unit),
		includePaths: append([]string(nil), includePaths...),
	}
	if extra := env.Str(includePathEnvVar); extra != "" {
		m.includePaths = append(m.includePaths, strings.Split(extra, ":")...)
	}
	return m
}

// ResolvePath resolves requested to a canonical absolute path, trying
// in order: the path itself, relative to callerDir, then each
// configured include path (including the environment-provided ones).
func (m *Manager) ResolvePath(callerDir, requested string) (string, error) {
	tried := make([]string, 0, 2+len(m.includePaths))

	if abs, err := filepath.Abs(requested); err == nil {
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			return resolved, nil
		}
		tried = append(tried, abs)
	}

	if callerDir != "" {
		candidate := filepath.Join(callerDir, requested)
		if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
			return resolved, nil
		}
		tried = append(tried, candidate)
	}

	for _, root := range m.includePaths {
		candidate := filepath.Join(root, requested)
		if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
			return resolved, nil
		}
		tried = append(tried, candidate)
	}

	return "", &PathResolutionError{Requested: requested, CallerDir: callerDir, Tried: tried}
}

// Load reads and tokenizes the unit at canonicalPath, or returns the
// already-loaded unit if one exists at that path. Idempotent: a
// second request never re-reads the file.
func (m *Manager) Load(canonicalPath string) (*Unit, bool, error) {
	if u, ok := m.units[canonicalPath]; ok {
		return u, true, nil
	}

	raw, err := os.ReadFile(canonicalPath)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", canonicalPath, err)
	}
	source := string(raw)
	lines := splitLines(source)

	toks, err := token.Tokenize(canonicalPath, lines)
	if err != nil {
		return nil, false, err
	}

	u := &Unit{
		Path:   canonicalPath,
		Source: source,
		Lines:  toks,
		Syms:   symtab.New(),
	}
	m.units[canonicalPath] = u
	return u, false, nil
}

// IsLoaded reports whether canonicalPath already has a unit.
func (m *Manager) IsLoaded(canonicalPath string) bool {
	_, ok := m.units[canonicalPath]
	return ok
}

// Get returns the already-loaded unit at canonicalPath.
func (m *Manager) Get(canonicalPath string) (*Unit, bool) {
	u, ok := m.units[canonicalPath]
	return u, ok
}

func splitLines(source string) []string {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	return strings.Split(source, "\n")
}
