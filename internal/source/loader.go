// Package source implements the Source Loader of spec.md §4.1: it reads the
// entry file and recursively materializes `include` directives against a
// search path, stamping every resulting line with its true origin (file,
// line) even after splicing.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lookbusy1344/bbasm/internal/ast"
)

// Line is one logical source line with its true origin, after include
// expansion. `include_bytes` lines are passed through untouched: the parser
// turns them into ast.IncludeBytes Items, and Loader.ResolveIncludeBytes
// then fills in their contents.
type Line struct {
	File   string
	LineNo int
	Text   string
}

// Loader resolves `include`/`include_bytes` targets against a search path:
// the including file's own directory first, then each search directory in
// order, first hit wins (spec §4.1).
type Loader struct {
	SearchPath []string
	stack      map[string]bool
}

func NewLoader(searchPath []string) *Loader {
	return &Loader{SearchPath: searchPath, stack: make(map[string]bool)}
}

// Load reads entryPath and returns its fully include-expanded line sequence.
func (l *Loader) Load(entryPath string) ([]Line, error) {
	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, err
	}
	return l.loadFile(abs, entryPath)
}

func (l *Loader) loadFile(absPath, displayPath string) ([]Line, error) {
	if l.stack[absPath] {
		return nil, fmt.Errorf("circular include detected: %s", displayPath)
	}
	content, err := os.ReadFile(absPath) // #nosec G304 -- user-provided assembly source path
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", displayPath, err)
	}

	l.stack[absPath] = true
	defer delete(l.stack, absPath)

	dir := filepath.Dir(absPath)
	rawLines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")

	var out []Line
	for i, raw := range rawLines {
		lineNo := i + 1
		if name, ok := includeTarget(raw); ok {
			incPath, err := l.Resolve(dir, name)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", displayPath, lineNo, err)
			}
			nested, err := l.loadFile(incPath, incPath)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		out = append(out, Line{File: displayPath, LineNo: lineNo, Text: raw})
	}
	return out, nil
}

// includeTarget recognizes a bare `include <path>` line (not `include_bytes`,
// which stays in the token stream for the parser to turn into an
// ast.IncludeBytes item).
func includeTarget(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "include") {
		return "", false
	}
	rest := trimmed[len("include"):]
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		// Rejects `include_bytes ...` too: its next byte is '_', not whitespace.
		return "", false
	}
	name := strings.TrimSpace(rest)
	if i := strings.IndexAny(name, " \t#"); i >= 0 {
		name = name[:i]
	}
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = name[1 : len(name)-1]
	}
	return name, true
}

// Resolve finds `name`, trying fromDir first then the configured search path,
// in order; the first hit wins.
func (l *Loader) Resolve(fromDir, name string) (string, error) {
	candidate := filepath.Join(fromDir, name)
	if fileExists(candidate) {
		return candidate, nil
	}
	for _, dir := range l.SearchPath {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("include file not found on search path: %s", name)
}

// ReadBytes resolves and reads name's raw contents, for `include_bytes`.
func (l *Loader) ReadBytes(fromDir, name string) ([]byte, string, error) {
	path, err := l.Resolve(fromDir, name)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided include_bytes path
	if err != nil {
		return nil, "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return data, path, nil
}

// ResolveIncludeBytes fills in the raw contents of every IncludeBytes item
// parsed from the program, searching relative to the item's own originating
// file first and then the configured search path, exactly like `include`
// (spec §4.1: "no search for text vs. binary — it is always raw").
func (l *Loader) ResolveIncludeBytes(items []ast.Item) error {
	for _, it := range items {
		ib, ok := it.(*ast.IncludeBytes)
		if !ok {
			continue
		}
		dir := filepath.Dir(ib.Origin().File)
		data, _, err := l.ReadBytes(dir, ib.Path)
		if err != nil {
			return fmt.Errorf("%s: %w", ib.Origin(), err)
		}
		ib.Data = data
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
