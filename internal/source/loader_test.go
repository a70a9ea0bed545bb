package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/diag"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_SplicesIncludeAndPreservesOrigin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "child.s", "addi x1, x0, 1\naddi x2, x0, 2\n")
	entry := writeFile(t, dir, "main.s", "start:\ninclude child.s\nret\n")

	lines, err := NewLoader(nil).Load(entry)
	require.NoError(t, err)
	require.Len(t, lines, 4)

	assert.Equal(t, "start:", lines[0].Text)
	assert.Equal(t, entry, lines[0].File)
	assert.Equal(t, 1, lines[0].LineNo)

	assert.Equal(t, "addi x1, x0, 1", lines[1].Text)
	assert.Equal(t, 1, lines[1].LineNo)
	assert.NotEqual(t, entry, lines[1].File)

	assert.Equal(t, "addi x2, x0, 2", lines[2].Text)
	assert.Equal(t, 2, lines[2].LineNo)

	assert.Equal(t, "ret", lines[3].Text)
	assert.Equal(t, 3, lines[3].LineNo)
}

func TestLoad_SearchPath(t *testing.T) {
	incDir := t.TempDir()
	writeFile(t, incDir, "defs.s", "FOO = 1\n")

	srcDir := t.TempDir()
	entry := writeFile(t, srcDir, "main.s", "include defs.s\n")

	lines, err := NewLoader([]string{incDir}).Load(entry)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "FOO = 1", lines[0].Text)
}

func TestLoad_CircularIncludeDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.s", "include b.s\n")
	writeFile(t, dir, "b.s", "include a.s\n")
	entry := filepath.Join(dir, "a.s")

	_, err := NewLoader(nil).Load(entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular include")
}

func TestLoad_MissingIncludeReportsPosition(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.s", "include nope.s\n")

	_, err := NewLoader(nil).Load(entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main.s:1")
}

func TestResolveIncludeBytes_FillsDataRelativeToOriginFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blob.bin", "\xDE\xAD\xBE\xEF")
	entry := writeFile(t, dir, "main.s", "include_bytes blob.bin\n")

	items := []ast.Item{
		&ast.IncludeBytes{Pos: diag.Position{File: entry, Line: 1}, Path: "blob.bin"},
	}
	require.NoError(t, NewLoader(nil).ResolveIncludeBytes(items))

	ib := items[0].(*ast.IncludeBytes)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, ib.Data)
}

func TestResolveIncludeBytes_MissingFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.s", "include_bytes nope.bin\n")

	items := []ast.Item{
		&ast.IncludeBytes{Pos: diag.Position{File: entry, Line: 1}, Path: "nope.bin"},
	}
	err := NewLoader(nil).ResolveIncludeBytes(items)
	require.Error(t, err)
}

func TestReadBytes_ResolvesAgainstSearchPath(t *testing.T) {
	incDir := t.TempDir()
	writeFile(t, incDir, "blob.bin", "\x01\x02\x03")

	srcDir := t.TempDir()
	l := NewLoader([]string{incDir})

	data, path, err := l.ReadBytes(srcDir, "blob.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, filepath.Join(incDir, "blob.bin"), path)
}
