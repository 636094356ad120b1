package corpus

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"aks/internal/selection"
)

// ErrNoReadableFiles is returned when every selected file failed to read.
var ErrNoReadableFiles = errors.New("no readable files found")

var errNotUTF8 = errors.New("content is not valid UTF-8")

// Entry is one successfully read file.
type Entry struct {
	Path    string
	Content string
	Chars   int
	Tokens  int
}

// ReadWarning records a file that was skipped.
type ReadWarning struct {
	Path string
	Err  error
}

func (w ReadWarning) Error() string {
	return fmt.Sprintf("could not read %s: %v", w.Path, w.Err)
}

func (w ReadWarning) Unwrap() error { return w.Err }

type Corpus struct {
	// Entries are in discovery order.
	Entries    []Entry
	TotalChars int
	Skipped    []ReadWarning
}

// TotalTokens is the estimate for the whole corpus, not the sum of the
// per-file estimates.
func (c *Corpus) TotalTokens() int {
	return c.TotalChars / 4
}

// Text concatenates the entries, each preceded by a path header line.
// Content is passed through unchanged.
func (c *Corpus) Text() string {
	var b strings.Builder
	for _, e := range c.Entries {
		b.WriteString(Header(e.Path))
		b.WriteString(e.Content)
	}
	return b.String()
}

// Header is the delimiter written before a file's content.
func Header(path string) string {
	return "\n--- " + path + " ---\n"
}

type Assembler struct {
	logger *slog.Logger
}

func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Assemble reads files in order. Unreadable files are skipped with a warning;
// only a corpus with no entries at all is an error.
func (a *Assembler) Assemble(files []selection.FileSpec) (*Corpus, error) {
	c := &Corpus{Entries: make([]Entry, 0, len(files))}

	for _, f := range files {
		content, err := readText(f.AbsPath)
		if err != nil {
			w := ReadWarning{Path: f.Path, Err: err}
			c.Skipped = append(c.Skipped, w)
			a.logger.Warn("skipping file", "path", f.Path, "error", err)
			continue
		}

		chars := utf8.RuneCountInString(content)
		c.Entries = append(c.Entries, Entry{
			Path:    f.Path,
			Content: content,
			Chars:   chars,
			Tokens:  chars / 4,
		})
		c.TotalChars += chars
	}

	if len(c.Entries) == 0 {
		return c, ErrNoReadableFiles
	}
	return c, nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errNotUTF8
	}
	return string(data), nil
}
