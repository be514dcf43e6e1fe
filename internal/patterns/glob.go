package patterns

import (
	"path/filepath"
	"strings"
)

// maxDoubleStars bounds "**" segments to keep matching linear-ish.
const maxDoubleStars = 3

// MatchGlob reports whether name matches the glob pattern.
//
// It extends filepath.Match with "**", which matches any number of path
// segments (including none):
//
//	"**/.claude/plans/**"  matches "/home/u/.claude/plans/x.md"
//	"**/*.plan.md"         matches "/repo/docs/auth.plan.md"
//	"**/PLAN.md"           matches "PLAN.md" and "/repo/PLAN.md"
//
// An empty pattern matches nothing. Invalid patterns never match.
func MatchGlob(pattern, name string) bool {
	if pattern == "" {
		return false
	}
	name = filepath.ToSlash(name)
	pattern = filepath.ToSlash(pattern)

	if !strings.Contains(pattern, "**") {
		matched, err := filepath.Match(pattern, name)
		return err == nil && matched
	}
	if strings.Count(pattern, "**") > maxDoubleStars {
		return false
	}
	return matchDoubleGlob(pattern, name)
}

// matchDoubleGlob splits on the first "**" and tries the remainder of the
// pattern against every suffix of name that begins at a segment boundary.
func matchDoubleGlob(pattern, name string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	prefix, suffix := parts[0], parts[1]

	if prefix != "" {
		if !strings.HasSuffix(prefix, "/") {
			return false
		}
		dir := strings.TrimSuffix(prefix, "/")
		if !matchPrefixDirs(dir, name) {
			return false
		}
		name = stripPrefixDirs(dir, name)
	}

	suffix = strings.TrimPrefix(suffix, "/")
	if suffix == "" {
		return true
	}

	// Try the suffix at the start and after every "/" in name.
	candidates := []string{name}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			candidates = append(candidates, name[i+1:])
		}
	}
	for _, c := range candidates {
		if strings.Contains(suffix, "**") {
			if matchDoubleGlob(suffix, c) {
				return true
			}
			continue
		}
		if matched, err := filepath.Match(suffix, c); err == nil && matched {
			return true
		}
	}
	return false
}

// matchPrefixDirs reports whether the leading segments of name match dir.
func matchPrefixDirs(dir, name string) bool {
	n := strings.Count(dir, "/") + 1
	segs := strings.SplitN(name, "/", n+1)
	if len(segs) < n {
		return false
	}
	head := strings.Join(segs[:n], "/")
	matched, err := filepath.Match(dir, head)
	return err == nil && matched
}

func stripPrefixDirs(dir, name string) string {
	n := strings.Count(dir, "/") + 1
	segs := strings.SplitN(name, "/", n+1)
	if len(segs) <= n {
		return ""
	}
	return segs[n]
}

// MatchAnyGlob reports whether name matches any of the given glob patterns.
func MatchAnyGlob(globs []string, name string) bool {
	for _, g := range globs {
		if MatchGlob(g, name) {
			return true
		}
	}
	return false
}
