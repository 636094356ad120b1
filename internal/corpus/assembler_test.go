package corpus

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aks/internal/selection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietAssembler() *Assembler {
	return NewAssembler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func specFor(t *testing.T, root, rel, content string) selection.FileSpec {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	return selection.FileSpec{Path: rel, AbsPath: abs}
}

func TestAssembleCountsCharsAndTokens(t *testing.T) {
	root := t.TempDir()
	files := []selection.FileSpec{
		specFor(t, root, "a.py", strings.Repeat("x", 100)),
		specFor(t, root, "b.cpp", strings.Repeat("y", 200)),
	}

	c, err := quietAssembler().Assemble(files)
	require.NoError(t, err)

	require.Len(t, c.Entries, 2)
	assert.Equal(t, 100, c.Entries[0].Chars)
	assert.Equal(t, 25, c.Entries[0].Tokens)
	assert.Equal(t, 200, c.Entries[1].Chars)
	assert.Equal(t, 50, c.Entries[1].Tokens)
	assert.Equal(t, 300, c.TotalChars)
	assert.Equal(t, 75, c.TotalTokens())
	assert.Empty(t, c.Skipped)
}

func TestAssembleCountsRunesNotBytes(t *testing.T) {
	root := t.TempDir()
	c, err := quietAssembler().Assemble([]selection.FileSpec{
		specFor(t, root, "u.txt", "héllo wörld"),
	})
	require.NoError(t, err)
	assert.Equal(t, 11, c.Entries[0].Chars)
	assert.Equal(t, 2, c.Entries[0].Tokens)
}

func TestAssembleTextLayout(t *testing.T) {
	root := t.TempDir()
	files := []selection.FileSpec{
		specFor(t, root, "src/a.py", "print('a')\n"),
		specFor(t, root, "b.py", "no trailing newline"),
	}

	c, err := quietAssembler().Assemble(files)
	require.NoError(t, err)

	want := "\n--- src/a.py ---\nprint('a')\n" +
		"\n--- b.py ---\nno trailing newline"
	assert.Equal(t, want, c.Text())
}

func TestAssembleTextRebuildsFromEntries(t *testing.T) {
	root := t.TempDir()
	files := []selection.FileSpec{
		specFor(t, root, "one.txt", "1\r\n2\n"),
		specFor(t, root, "two.txt", ""),
		specFor(t, root, "three.txt", "\n\n3"),
	}

	c, err := quietAssembler().Assemble(files)
	require.NoError(t, err)

	var b strings.Builder
	for _, e := range c.Entries {
		b.WriteString(Header(e.Path) + e.Content)
	}
	assert.Equal(t, b.String(), c.Text())
}

func TestAssembleIsIdempotent(t *testing.T) {
	root := t.TempDir()
	files := []selection.FileSpec{
		specFor(t, root, "a.go", "package a\n"),
		specFor(t, root, "b.go", "package b\n"),
	}

	first, err := quietAssembler().Assemble(files)
	require.NoError(t, err)
	second, err := quietAssembler().Assemble(files)
	require.NoError(t, err)

	assert.Equal(t, first.Text(), second.Text())
	assert.Equal(t, first.TotalChars, second.TotalChars)
}

func TestAssembleSkipsUnreadableAndInvalidUTF8(t *testing.T) {
	root := t.TempDir()
	good := specFor(t, root, "good.py", "ok")
	binary := specFor(t, root, "blob.bin", string([]byte{0xff, 0xfe, 0x00, 0x81}))
	missing := selection.FileSpec{Path: "gone.py", AbsPath: filepath.Join(root, "gone.py")}

	c, err := quietAssembler().Assemble([]selection.FileSpec{binary, good, missing})
	require.NoError(t, err)

	require.Len(t, c.Entries, 1)
	assert.Equal(t, "good.py", c.Entries[0].Path)
	assert.Equal(t, 2, c.TotalChars)

	require.Len(t, c.Skipped, 2)
	assert.Equal(t, "blob.bin", c.Skipped[0].Path)
	assert.ErrorIs(t, c.Skipped[0], errNotUTF8)
	assert.Equal(t, "gone.py", c.Skipped[1].Path)
	assert.True(t, errors.Is(c.Skipped[1], os.ErrNotExist))
}

func TestAssembleAllUnreadableIsFatal(t *testing.T) {
	root := t.TempDir()
	missing := selection.FileSpec{Path: "gone.py", AbsPath: filepath.Join(root, "gone.py")}

	c, err := quietAssembler().Assemble([]selection.FileSpec{missing})
	require.ErrorIs(t, err, ErrNoReadableFiles)
	assert.Empty(t, c.Entries)
	assert.Len(t, c.Skipped, 1)
}
