package transcript

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

const (
	recordStart = "\n---\nQuery Date: "
	queryStart  = "---\nQuery Start\n---\n"
	queryEnd    = "\n\n---\nQuery End\n---\n\n"
	recordEnd   = "\n\n---\n\n"
)

var ErrMalformed = errors.New("malformed transcript record")

// Read loads every record from the transcript at path. A missing file has
// no records.
func Read(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(string(data))
}

// Parse splits text written by Format back into records, oldest first.
// Text before the first record is ignored.
func Parse(text string) ([]Record, error) {
	starts := recordStarts(text)
	records := make([]Record, 0, len(starts))

	for n, at := range starts {
		end := len(text)
		if n+1 < len(starts) {
			end = starts[n+1]
		}

		r, err := parseRecord(text[at+len(recordStart) : end])
		if err != nil {
			return records, fmt.Errorf("record %d: %w", len(records)+1, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// recordStarts finds the offsets of record headers. After the first, a
// header only counts when it directly follows a record end and carries a
// valid date, so responses quoting a transcript stay in one piece.
func recordStarts(text string) []int {
	var starts []int

	for off := 0; ; {
		i := strings.Index(text[off:], recordStart)
		if i < 0 {
			return starts
		}
		i += off
		off = i + len(recordStart)

		if len(starts) > 0 {
			if !strings.HasSuffix(text[:i], recordEnd) {
				continue
			}
			date, _, _ := strings.Cut(text[off:], "\n")
			if _, err := time.ParseInLocation(dateLayout, date, time.Local); err != nil {
				continue
			}
		}
		starts = append(starts, i)
	}
}

func parseRecord(block string) (Record, error) {
	var r Record

	head, body, ok := strings.Cut(block, queryStart)
	if !ok {
		return r, fmt.Errorf("%w: no query start", ErrMalformed)
	}

	lines := strings.Split(strings.TrimSuffix(head, "\n"), "\n")
	date, err := time.ParseInLocation(dateLayout, lines[0], time.Local)
	if err != nil {
		return r, fmt.Errorf("%w: bad date %q", ErrMalformed, lines[0])
	}
	r.Date = date

	for _, line := range lines[1:] {
		k, v, _ := strings.Cut(line, ": ")
		switch k {
		case "Provider":
			r.Provider = v
		case "Model":
			r.Model = v
		case "Query Source":
			r.Source = v
		case "Cached":
			r.Cached = v == "true"
		}
	}

	q, resp, ok := strings.Cut(body, queryEnd)
	if !ok {
		return r, fmt.Errorf("%w: no query end", ErrMalformed)
	}
	r.Query = q
	r.Response = strings.TrimSuffix(resp, recordEnd)
	return r, nil
}
