// Package transcript appends query/response pairs to a markdown log.
package transcript

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const dateLayout = "2006-01-02 15:04:05"

type Record struct {
	Date     time.Time
	Provider string
	Model    string
	Source   string
	Query    string
	Response string
	Cached   bool
}

// Format renders one transcript block.
func Format(r Record) string {
	var b strings.Builder

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "Query Date: %s\n", r.Date.Format(dateLayout))
	fmt.Fprintf(&b, "Provider: %s\n", r.Provider)
	fmt.Fprintf(&b, "Model: %s\n", r.Model)
	fmt.Fprintf(&b, "Query Source: %s\n", r.Source)
	if r.Cached {
		b.WriteString("Cached: true\n")
	}
	b.WriteString("---\nQuery Start\n---\n")
	b.WriteString(r.Query)
	b.WriteString("\n\n---\nQuery End\n---\n\n")
	b.WriteString(r.Response)
	b.WriteString("\n\n---\n\n")

	return b.String()
}

// Append adds r to the file at path, creating it if needed. Existing
// content is never rewritten.
func Append(path string, r Record) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := f.WriteString(Format(r)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
