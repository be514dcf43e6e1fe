package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

type secretKind struct {
	name string
	re   *regexp.Regexp
	// header marks matches that are safe to show unmasked.
	header bool
}

var secretKinds = []secretKind{
	{name: "AWS access key", re: regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{name: "private key", re: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY( BLOCK)?-----`), header: true},
	{name: "GitHub token", re: regexp.MustCompile(`\b(?:ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{36,}\b|\bgithub_pat_[A-Za-z0-9_]{40,}\b`)},
	{name: "Slack token", re: regexp.MustCompile(`\bxox[abprs]-[A-Za-z0-9-]{10,}\b`)},
	{name: "API secret key", re: regexp.MustCompile(`\bsk-(?:ant-|proj-|live_|test_)?[A-Za-z0-9_-]{20,}\b`)},
}

// maskSecret keeps a short prefix so the reader can find the value.
func maskSecret(s string) string {
	const keep = 4
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return s[:keep] + strings.Repeat("*", 8)
}

// privateKeyBlock spans a key body up to its END banner or the end of text.
var privateKeyBlock = regexp.MustCompile(`(?s)(-----BEGIN [A-Z ]*PRIVATE KEY(?: BLOCK)?-----).*?(-----END [A-Z ]*PRIVATE KEY(?: BLOCK)?-----|$)`)

// MaskSecrets masks every credential the secret rule recognizes in text.
// Private key banners are kept and the key body between them is dropped.
func MaskSecrets(text string) string {
	text = privateKeyBlock.ReplaceAllString(text, "${1}********${2}")
	for _, k := range secretKinds {
		if k.header {
			continue
		}
		text = k.re.ReplaceAllStringFunc(text, maskSecret)
	}
	return text
}

func matchSecrets(t Target) (*Match, error) {
	var kinds []string
	var excerpt string
	count := 0
	for _, k := range secretKinds {
		found := k.re.FindAllString(t.Text, -1)
		if len(found) == 0 {
			continue
		}
		kinds = append(kinds, k.name)
		count += len(found)
		if excerpt == "" {
			excerpt = found[0]
			if !k.header {
				excerpt = maskSecret(excerpt)
			}
		}
	}
	if count == 0 {
		return nil, nil
	}
	name := "the file"
	if t.FilePath != "" {
		name = filepath.Base(t.FilePath)
	}
	return &Match{
		Excerpt: excerpt,
		Matches: kinds,
		Count:   count,
		Fix:     fmt.Sprintf("Read the value from an environment variable or a secrets manager instead of writing it to %s", name),
	}, nil
}

func matchMarkdownSprawl(t Target) (*Match, error) {
	if t.FilePath == "" {
		return nil, nil
	}
	base := filepath.Base(t.FilePath)
	return &Match{
		Excerpt: t.FilePath,
		Matches: []string{base},
		Count:   1,
		Fix:     fmt.Sprintf("Put this in docs/ or an existing README.md instead of a new %s", base),
	}, nil
}

var (
	pythonDebug = []*regexp.Regexp{
		regexp.MustCompile(`\bbreakpoint\(\)`),
		regexp.MustCompile(`\bi?pdb\.set_trace\(\)`),
		regexp.MustCompile(`(?m)^\s*import i?pdb\b`),
	}
	jsDebug = []*regexp.Regexp{
		regexp.MustCompile(`\bconsole\.(?:log|debug)\(`),
		regexp.MustCompile(`(?m)^\s*debugger\s*;?\s*$`),
	}
	goDebug = []*regexp.Regexp{
		regexp.MustCompile(`\bspew\.Dump\(`),
		regexp.MustCompile(`\bfmt\.Print(?:f|ln)?\("DEBUG`),
	}
	rubyDebug = []*regexp.Regexp{
		regexp.MustCompile(`\bbinding\.(?:pry|irb)\b`),
		regexp.MustCompile(`(?m)^\s*byebug\b`),
	}

	debugPatterns = map[string][]*regexp.Regexp{
		".py":  pythonDebug,
		".js":  jsDebug,
		".jsx": jsDebug,
		".mjs": jsDebug,
		".cjs": jsDebug,
		".ts":  jsDebug,
		".tsx": jsDebug,
		".go":  goDebug,
		".rb":  rubyDebug,
	}
)

func debugExtensions() []string {
	exts := make([]string, 0, len(debugPatterns))
	for ext := range debugPatterns {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

func matchDebugStatements(t Target) (*Match, error) {
	res := debugPatterns[strings.ToLower(filepath.Ext(t.FilePath))]
	if len(res) == 0 {
		return nil, nil
	}
	var found []string
	var excerpt string
	count := 0
	for _, re := range res {
		locs := re.FindAllStringIndex(t.Text, -1)
		for _, loc := range locs {
			stmt := strings.TrimSpace(t.Text[loc[0]:loc[1]])
			if !slices.Contains(found, stmt) {
				found = append(found, stmt)
			}
			if excerpt == "" {
				excerpt = lineAt(t.Text, loc[0])
			}
		}
		count += len(locs)
	}
	if count == 0 {
		return nil, nil
	}
	return &Match{
		Excerpt: excerpt,
		Matches: found,
		Count:   count,
		Fix:     fmt.Sprintf("Remove the %d debug statement(s) from %s", count, filepath.Base(t.FilePath)),
	}, nil
}

// lineAt returns the trimmed line containing byte offset i.
func lineAt(s string, i int) string {
	start := strings.LastIndexByte(s[:i], '\n') + 1
	end := strings.IndexByte(s[i:], '\n')
	if end < 0 {
		end = len(s)
	} else {
		end += i
	}
	return strings.TrimSpace(s[start:end])
}
