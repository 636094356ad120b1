// Package query supplies the user's question from exactly one source.
package query

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	ErrEmptyQuery          = errors.New("no query provided")
	ErrConflictingSources  = errors.New("--query, --query-file and --query-history are mutually exclusive")
	zshExtendedHistoryLine = regexp.MustCompile(`^: \d+:\d+;`)
)

type SourceKind int

const (
	SourceInteractive SourceKind = iota
	SourceLiteral
	SourceFile
	SourceHistory
)

// Options carries the CLI inputs. At most one of Text, File, HistoryLines
// may be set.
type Options struct {
	Text         string
	File         string
	HistoryLines int
	HistoryFile  string
}

func (o Options) kind() (SourceKind, error) {
	n := 0
	kind := SourceInteractive
	if o.Text != "" {
		n++
		kind = SourceLiteral
	}
	if o.File != "" {
		n++
		kind = SourceFile
	}
	if o.HistoryLines > 0 {
		n++
		kind = SourceHistory
	}
	if n > 1 {
		return 0, ErrConflictingSources
	}
	return kind, nil
}

type Query struct {
	Text string
	Kind SourceKind
	// Source is the human readable origin written to the transcript.
	Source string
}

type Resolver struct {
	In  io.Reader
	Out io.Writer
}

func NewResolver() *Resolver {
	return &Resolver{In: os.Stdin, Out: os.Stdout}
}

func (r *Resolver) Resolve(opts Options) (*Query, error) {
	kind, err := opts.kind()
	if err != nil {
		return nil, err
	}

	q := &Query{Kind: kind}
	switch kind {
	case SourceLiteral:
		q.Text = strings.TrimSpace(opts.Text)
		q.Source = "command-line argument"
	case SourceFile:
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("error reading query file %s: %w", opts.File, err)
		}
		q.Text = strings.TrimSpace(string(data))
		q.Source = "file: " + opts.File
	case SourceHistory:
		text, err := ReadHistory(opts.HistoryFile, opts.HistoryLines)
		if err != nil {
			return nil, err
		}
		q.Text = text
		q.Source = fmt.Sprintf("shell history (%d lines)", opts.HistoryLines)
	default:
		text, err := r.ask()
		if err != nil {
			return nil, err
		}
		q.Text = text
		q.Source = "interactive input"
	}

	if q.Text == "" {
		return nil, ErrEmptyQuery
	}
	return q, nil
}

func (r *Resolver) ask() (string, error) {
	fmt.Fprint(r.Out, "Enter your query about the codebase: ")
	line, err := bufio.NewReader(r.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read query: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ReadHistory returns the last n lines of a shell history file, newest last.
// Zsh extended-history timestamps are stripped.
func ReadHistory(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open history %s: %w", path, err)
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := zshExtendedHistoryLine.ReplaceAllString(scanner.Text(), "")
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read history %s: %w", path, err)
	}

	return strings.TrimSpace(strings.Join(ring, "\n")), nil
}
