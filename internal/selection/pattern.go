package selection

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// NormalizeInclusion applies the one rewrite inclusion patterns get before
// globbing: a pattern that starts with '*' and has no '**' is made recursive
// from the root, so "*.py" behaves like "**/*.py". Exclusion patterns are
// never normalized.
func NormalizeInclusion(pattern string) string {
	p := filepath.ToSlash(pattern)
	p = strings.TrimPrefix(p, "./")
	if strings.HasPrefix(p, "*") && !strings.Contains(p, "**") {
		return "**/*" + p[1:]
	}
	return p
}

// MatchExclusion reports whether relPath matches pattern with fnmatch
// semantics: '*' runs across '/', '?' is one character, '[...]' and '[!...]'
// are classes. The whole path must match. An invalid pattern only matches
// itself literally.
func MatchExclusion(relPath, pattern string) bool {
	rel := filepath.ToSlash(relPath)
	pat := filepath.ToSlash(pattern)

	g, err := glob.Compile(fnmatchEscaper.Replace(pat))
	if err != nil {
		return rel == pat
	}
	return g.Match(rel)
}

// fnmatchEscaper quotes the gobwas syntax that fnmatch treats literally.
var fnmatchEscaper = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`)

// Excluded reports whether relPath matches any of patterns.
func Excluded(relPath string, patterns []string) bool {
	for _, p := range patterns {
		if MatchExclusion(relPath, p) {
			return true
		}
	}
	return false
}

// isHidden reports whether any segment of a slash path starts with '.'.
func isHidden(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if len(seg) > 1 && seg[0] == '.' && seg != ".." {
			return true
		}
	}
	return false
}

// namesHidden reports whether a pattern spells out a dot segment itself,
// which is what lets shell globs reach hidden files.
func namesHidden(pattern string) bool {
	return isHidden(filepath.ToSlash(pattern))
}
