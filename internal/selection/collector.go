package selection

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"aks/internal/config"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoFiles is returned when nothing survives selection and exclusion.
var ErrNoFiles = errors.New("no files found after exclusions")

type Mode int

const (
	ModeDefault Mode = iota
	ModePatterns
	ModeAll
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModePatterns:
		return "patterns"
	default:
		return "default"
	}
}

// FileSpec is one selected regular file.
type FileSpec struct {
	// Path is relative to the collection root, slash separated.
	Path string
	// AbsPath is the location used for reading.
	AbsPath string
}

type Request struct {
	All      bool
	Patterns []string
	Excludes []string
}

// Mode picks the inclusion mode: --all wins over positional patterns.
func (r Request) Mode() Mode {
	switch {
	case r.All:
		return ModeAll
	case len(r.Patterns) > 0:
		return ModePatterns
	default:
		return ModeDefault
	}
}

type GroupCount struct {
	Extension string
	Count     int
}

type Result struct {
	Mode  Mode
	Files []FileSpec
	// Matched is the inclusion count before exclusions.
	Matched  int
	Excluded int
	// Excludes is the effective exclusion set, including patterns folded in
	// by all-mode.
	Excludes []string
	// Groups holds per-extension counts in default mode.
	Groups []GroupCount
}

type Collector struct {
	root   string
	cfg    config.SelectionConfig
	logger *slog.Logger
}

func NewCollector(root string, cfg config.SelectionConfig, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Collector{root: root, cfg: cfg, logger: logger}
}

// Collect resolves the file set for req and applies its exclusions.
func (c *Collector) Collect(req Request) (*Result, error) {
	res := &Result{
		Mode:     req.Mode(),
		Excludes: append([]string(nil), req.Excludes...),
	}

	var (
		files []FileSpec
		err   error
	)

	switch res.Mode {
	case ModeAll:
		res.Excludes = append(res.Excludes, req.Patterns...)
		files, err = c.walkAll()
	case ModePatterns:
		files, err = c.expandPatterns(req.Patterns)
	default:
		files, res.Groups, err = c.defaultGlobs()
	}
	if err != nil {
		return nil, err
	}

	res.Matched = len(files)
	c.logger.Debug("inclusion resolved", "mode", res.Mode.String(), "files", res.Matched)

	if len(res.Excludes) > 0 {
		kept := files[:0]
		for _, f := range files {
			if Excluded(f.Path, res.Excludes) {
				c.logger.Debug("excluded", "path", f.Path)
				continue
			}
			kept = append(kept, f)
		}
		res.Excluded = len(files) - len(kept)
		files = kept
	}

	if len(files) == 0 {
		return res, ErrNoFiles
	}
	res.Files = files
	return res, nil
}

func (c *Collector) walkAll() ([]FileSpec, error) {
	var files []FileSpec

	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			c.logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() && path != c.root {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(c.root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !c.cfg.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if spec, ok := c.regular(rel, path); ok {
			files = append(files, spec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", c.root, err)
	}
	return files, nil
}

// expandPatterns globs each pattern in turn. A path matched by more than one
// pattern is kept once, at its first position.
func (c *Collector) expandPatterns(patterns []string) ([]FileSpec, error) {
	var files []FileSpec
	seen := make(map[string]bool)

	for _, raw := range patterns {
		matches, err := c.glob(NormalizeInclusion(raw))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			c.logger.Debug("pattern matched nothing", "pattern", raw)
		}
		for _, f := range matches {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			files = append(files, f)
		}
	}
	return files, nil
}

func (c *Collector) defaultGlobs() ([]FileSpec, []GroupCount, error) {
	var (
		files  []FileSpec
		groups []GroupCount
	)
	seen := make(map[string]bool)

	for _, ext := range c.cfg.DefaultExtensions {
		matches, err := c.glob("**/*" + ext)
		if err != nil {
			return nil, nil, err
		}
		n := 0
		for _, f := range matches {
			if seen[f.Path] {
				continue
			}
			seen[f.Path] = true
			files = append(files, f)
			n++
		}
		groups = append(groups, GroupCount{Extension: ext, Count: n})
	}
	return files, groups, nil
}

// glob expands one already-normalized inclusion pattern into regular files.
func (c *Collector) glob(pattern string) ([]FileSpec, error) {
	if !doublestar.ValidatePattern(pattern) {
		c.logger.Warn("ignoring invalid pattern", "pattern", pattern)
		return nil, nil
	}

	var (
		matches []string
		err     error
		rooted  = !filepath.IsAbs(pattern) && fs.ValidPath(pattern)
	)
	if rooted {
		matches, err = doublestar.Glob(os.DirFS(c.root), pattern, doublestar.WithFilesOnly(), doublestar.WithNoFollow())
	} else {
		abs := pattern
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(c.root, pattern)
		}
		matches, err = doublestar.FilepathGlob(abs, doublestar.WithFilesOnly(), doublestar.WithNoFollow())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to expand %q: %w", pattern, err)
	}

	allowHidden := c.cfg.IncludeHidden || namesHidden(pattern)

	var files []FileSpec
	for _, m := range matches {
		var rel, abs string
		if rooted {
			rel = m
			abs = filepath.Join(c.root, filepath.FromSlash(m))
		} else {
			abs = m
			r, err := filepath.Rel(c.root, m)
			if err != nil {
				r = m
			}
			rel = filepath.ToSlash(r)
		}

		if !allowHidden && isHidden(rel) {
			continue
		}
		if spec, ok := c.regular(rel, abs); ok {
			files = append(files, spec)
		}
	}
	return files, nil
}

// regular stats abs, following symlinks, and keeps only regular files.
func (c *Collector) regular(rel, abs string) (FileSpec, bool) {
	info, err := os.Stat(abs)
	if err != nil {
		c.logger.Debug("skipping unstattable path", "path", rel, "error", err)
		return FileSpec{}, false
	}
	if !info.Mode().IsRegular() {
		return FileSpec{}, false
	}
	return FileSpec{Path: rel, AbsPath: abs}, true
}
