package query

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(input string) (*Resolver, *bytes.Buffer) {
	var out bytes.Buffer
	return &Resolver{In: strings.NewReader(input), Out: &out}, &out
}

func TestResolveLiteral(t *testing.T) {
	r, out := newTestResolver("")
	q, err := r.Resolve(Options{Text: "  explain main  "})
	require.NoError(t, err)

	assert.Equal(t, "explain main", q.Text)
	assert.Equal(t, SourceLiteral, q.Kind)
	assert.Equal(t, "command-line argument", q.Source)
	assert.Empty(t, out.String())
}

func TestResolveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n  why is this slow?\n\n"), 0644))

	r, _ := newTestResolver("")
	q, err := r.Resolve(Options{File: path})
	require.NoError(t, err)

	assert.Equal(t, "why is this slow?", q.Text)
	assert.Equal(t, "file: "+path, q.Source)
}

func TestResolveMissingFile(t *testing.T) {
	r, _ := newTestResolver("")
	_, err := r.Resolve(Options{File: filepath.Join(t.TempDir(), "missing.txt")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveInteractive(t *testing.T) {
	r, out := newTestResolver("list the entry points\n")
	q, err := r.Resolve(Options{})
	require.NoError(t, err)

	assert.Equal(t, "list the entry points", q.Text)
	assert.Equal(t, "interactive input", q.Source)
	assert.Equal(t, "Enter your query about the codebase: ", out.String())
}

func TestResolveEmptyIsError(t *testing.T) {
	r, _ := newTestResolver("   \n")
	_, err := r.Resolve(Options{})
	require.ErrorIs(t, err, ErrEmptyQuery)

	r, _ = newTestResolver("")
	_, err = r.Resolve(Options{Text: "   "})
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestResolveConflictingSources(t *testing.T) {
	r, _ := newTestResolver("")
	_, err := r.Resolve(Options{Text: "a", File: "b"})
	require.ErrorIs(t, err, ErrConflictingSources)

	_, err = r.Resolve(Options{Text: "a", HistoryLines: 10})
	require.ErrorIs(t, err, ErrConflictingSources)
}

func TestResolveHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".bash_history")
	require.NoError(t, os.WriteFile(path, []byte("ls\ncd src\nmake\n./run --fast\n"), 0644))

	r, _ := newTestResolver("")
	q, err := r.Resolve(Options{HistoryLines: 2, HistoryFile: path})
	require.NoError(t, err)

	assert.Equal(t, "make\n./run --fast", q.Text)
	assert.Equal(t, SourceHistory, q.Kind)
	assert.Equal(t, "shell history (2 lines)", q.Source)
}

func TestReadHistoryFewerLinesThanRequested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0644))

	text, err := ReadHistory(path, 100)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", text)
}

func TestReadHistoryStripsZshTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".zsh_history")
	require.NoError(t, os.WriteFile(path, []byte(": 1700000000:0;git status\n: 1700000005:2;go test ./...\n"), 0644))

	text, err := ReadHistory(path, 5)
	require.NoError(t, err)
	assert.Equal(t, "git status\ngo test ./...", text)
}
