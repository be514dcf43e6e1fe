// Package patterns provides functions for building regex patterns
// to match shell commands in a structured way, and glob matching for paths.
package patterns

import (
	"regexp"
	"strings"
)

// Pattern holds a compiled regex and its description.
type Pattern struct {
	Regex   *regexp.Regexp
	Name    string
	Type    string // simple, subcommand, wrapper, regex
	Pattern string // original pattern string
}

// BuildFlagPattern converts a flag specification to a regex pattern.
// "-f" becomes "(-f\s+)?"
// "-f <arg>" becomes "(-f\s*\S+\s+)?" (allows -f10 or -f 10)
// "<arg>" becomes "(\S+\s+)?" (positional argument)
// "" (empty) becomes "" (allows bare command)
func BuildFlagPattern(flag string) string {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return ""
	}
	if flag == "<arg>" {
		return `(\S+\s+)?`
	}
	if strings.HasSuffix(flag, " <arg>") {
		flagName := strings.TrimSuffix(flag, " <arg>")
		// Allow optional space between flag and argument (e.g., -n10 or -n 10)
		return `(` + regexp.QuoteMeta(flagName) + `\s*\S+\s+)?`
	}
	return `(` + regexp.QuoteMeta(flag) + `\s+)?`
}

// BuildSimplePattern creates a regex for a simple command (any args allowed).
// "pip" becomes "^pip\b"
func BuildSimplePattern(cmd string) string {
	return `^` + regexp.QuoteMeta(cmd) + `\b`
}

// BuildSubcommandPattern creates a regex for a command with subcommands and optional flags.
// cmd="git", subcommands=["commit"], flags=["-C <arg>"] becomes
// "^git\s+(-C\s*\S+\s+)?(commit)\b"
func BuildSubcommandPattern(cmd string, subcommands []string, flags []string) string {
	var flagPatterns string
	for _, f := range flags {
		flagPatterns += BuildFlagPattern(f)
	}

	escaped := make([]string, len(subcommands))
	for i, sub := range subcommands {
		escaped[i] = regexp.QuoteMeta(sub)
	}
	subPattern := strings.Join(escaped, "|")

	return `^` + regexp.QuoteMeta(cmd) + `\s+` + flagPatterns + `(` + subPattern + `)\b`
}

// BuildWrapperPattern creates a regex for a wrapper command.
// "timeout" with flags=["<arg>"] becomes "^timeout\s+(\S+\s+)?"
func BuildWrapperPattern(cmd string, flags []string) string {
	var flagPatterns string
	for _, f := range flags {
		flagPatterns += BuildFlagPattern(f)
	}
	return `^` + regexp.QuoteMeta(cmd) + `\s+` + flagPatterns
}

// Compile compiles a pattern string into a Pattern with the given name.
// Returns an error if the pattern is invalid.
func Compile(pattern, name string) (Pattern, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{Regex: re, Name: name, Type: "regex", Pattern: pattern}, nil
}

// MustCompile is like Compile but panics if the pattern is invalid.
func MustCompile(pattern, name string) Pattern {
	p, err := Compile(pattern, name)
	if err != nil {
		panic(err)
	}
	return p
}

// FirstMatch returns the first pattern matching s, in order.
func FirstMatch(s string, ps []Pattern) (Pattern, bool) {
	for _, p := range ps {
		if p.Regex.MatchString(s) {
			return p, true
		}
	}
	return Pattern{}, false
}

// DefaultWrappers are prefixes that do not change which program runs:
// "sudo pip install x" is still a pip install.
var DefaultWrappers = []Pattern{
	wrapper("sudo", []string{"-E", "-H", "-u <arg>"}),
	wrapper("timeout", []string{"<arg>"}),
	wrapper("nice", []string{"-n <arg>"}),
	wrapper("time", nil),
	wrapper("command", nil),
	wrapper("exec", nil),
	{Regex: regexp.MustCompile(`^env\s+([A-Za-z_][A-Za-z0-9_]*=\S*\s+)*`), Name: "env", Type: "wrapper"},
	{Regex: regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*=\S*\s+)+`), Name: "env vars", Type: "wrapper"},
}

func wrapper(cmd string, flags []string) Pattern {
	pattern := BuildWrapperPattern(cmd, flags)
	return Pattern{Regex: regexp.MustCompile(pattern), Name: cmd, Type: "wrapper", Pattern: pattern}
}

// StripWrappers strips wrapper prefixes from a command.
// Returns (core_cmd, list_of_wrapper_names)
func StripWrappers(cmd string, wrapperPatterns []Pattern) (string, []string) {
	var wrappers []string
	changed := true
	for changed {
		changed = false
		for _, p := range wrapperPatterns {
			loc := p.Regex.FindStringIndex(cmd)
			if loc != nil && loc[0] == 0 && loc[1] > 0 {
				wrappers = append(wrappers, p.Name)
				cmd = cmd[loc[1]:]
				changed = true
				break
			}
		}
	}
	return strings.TrimSpace(cmd), wrappers
}
