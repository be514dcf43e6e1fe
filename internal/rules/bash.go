package rules

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/dgerlanc/hookguard/internal/patterns"
	"github.com/dgerlanc/hookguard/internal/shell"
)

// segmentArgs splits a segment into words, falling back to whitespace
// splitting when the segment does not parse.
func segmentArgs(seg string) []string {
	args, err := shell.Args(seg)
	if err != nil || len(args) == 0 {
		return strings.Fields(seg)
	}
	return args
}

// shortFlags reports whether a is a cluster of single-letter flags ("-rf").
func shortFlags(a string) bool {
	if len(a) < 2 || a[0] != '-' || a[1] == '-' {
		return false
	}
	for _, c := range a[1:] {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// clusterHas reports whether a flag cluster sets flag before any flag in
// valueFlags consumes the rest of the cluster as its argument.
func clusterHas(cluster string, flag rune, valueFlags string) bool {
	for _, c := range cluster[1:] {
		if c == flag {
			return true
		}
		if strings.ContainsRune(valueFlags, c) {
			return false
		}
	}
	return false
}

var dangerousRmTargets = map[string]bool{
	"/": true, "/*": true,
	"~": true, "~/": true, "~/*": true,
	"$HOME": true, "${HOME}": true, "$HOME/": true, "$HOME/*": true, "${HOME}/": true, "${HOME}/*": true,
	".": true, "./": true, "./*": true, "*": true,
	"..": true, "../": true,
}

func matchDestructiveRm(t Target) (*Match, error) {
	for _, seg := range t.Segments() {
		args := segmentArgs(seg)
		if len(args) == 0 || path.Base(args[0]) != "rm" {
			continue
		}
		recursive := false
		endOfFlags := false
		var hits []string
		for _, a := range args[1:] {
			switch {
			case !endOfFlags && a == "--":
				endOfFlags = true
			case !endOfFlags && a == "--recursive":
				recursive = true
			case !endOfFlags && strings.HasPrefix(a, "--"):
			case !endOfFlags && shortFlags(a):
				if strings.ContainsAny(a[1:], "rR") {
					recursive = true
				}
			default:
				target := a
				if strings.HasPrefix(target, "/") && target != "/*" {
					target = path.Clean(target)
				}
				if dangerousRmTargets[target] {
					hits = append(hits, a)
				}
			}
		}
		if recursive && len(hits) > 0 {
			return &Match{
				Excerpt: seg,
				Matches: hits,
				Count:   len(hits),
				Fix:     "Delete the specific subdirectory you mean instead, e.g. `rm -rf ./build`",
			}, nil
		}
	}
	return nil, nil
}

var (
	downloaders = simplePatterns("curl", "wget", "fetch")
	shells      = simplePatterns("sh", "bash", "zsh", "dash", "ksh", "fish")

	// pipeToShell catches the same shape textually when the command does not parse.
	pipeToShell = regexp.MustCompile(`\b(?:curl|wget)\b[^|;&]*\|\s*(?:sudo\s+)?(?:\S*/)?(?:ba|z|da|k)?sh\b`)
	// substToShell catches sh -c "$(curl ...)" and bash <(curl ...).
	substToShell = regexp.MustCompile(`\b(?:ba|z|da|k)?sh\s+(?:-c\s+)?["']?(?:\$\(|<\()\s*(?:curl|wget)\b[^)]*\)`)
	urlPattern   = regexp.MustCompile(`https?://[^\s"'|)]+`)
)

func matchCurlPipeShell(t Target) (*Match, error) {
	cmd := shell.StripQuotedHeredocs(t.Command)

	if pipes, err := shell.Pipelines(cmd); err == nil {
		for _, stages := range pipes {
			if excerpt, ok := downloadPipedToShell(stages); ok {
				return curlPipeMatch(excerpt), nil
			}
		}
	} else if loc := pipeToShell.FindString(cmd); loc != "" {
		return curlPipeMatch(loc), nil
	}

	if loc := substToShell.FindString(cmd); loc != "" {
		return curlPipeMatch(loc), nil
	}
	return nil, nil
}

func downloadPipedToShell(stages []shell.Stage) (string, bool) {
	for i, st := range stages {
		if !stageRuns(st, downloaders) {
			continue
		}
		for j := i + 1; j < len(stages); j++ {
			if !stageRuns(stages[j], shells) {
				continue
			}
			texts := make([]string, 0, j-i+1)
			for _, s := range stages[i : j+1] {
				texts = append(texts, s.Text)
			}
			return strings.Join(texts, " | "), true
		}
	}
	return "", false
}

func simplePatterns(names ...string) []patterns.Pattern {
	ps := make([]patterns.Pattern, len(names))
	for i, name := range names {
		ps[i] = patterns.MustCompile(patterns.BuildSimplePattern(name), name)
	}
	return ps
}

// stageRuns reports whether a pipeline stage runs one of programs, looking
// through wrappers such as "timeout 30 bash".
func stageRuns(st shell.Stage, programs []patterns.Pattern) bool {
	if _, ok := patterns.FirstMatch(st.Name, programs); ok {
		return true
	}
	core, _ := patterns.StripWrappers(st.Text, patterns.DefaultWrappers)
	fields := strings.Fields(core)
	if len(fields) == 0 {
		return false
	}
	_, ok := patterns.FirstMatch(path.Base(fields[0]), programs)
	return ok
}

func curlPipeMatch(excerpt string) *Match {
	url := urlPattern.FindString(excerpt)
	if url == "" {
		url = "<url>"
	}
	return &Match{
		Excerpt: excerpt,
		Matches: []string{url},
		Count:   1,
		Fix:     fmt.Sprintf("Download the script first and review it: `curl -fsSL %s -o install.sh`, then run `sh install.sh`", url),
	}
}

var gitGlobalFlags = []string{"-C <arg>", "-c <arg>", "--no-pager"}

var (
	gitHookedCmd = regexp.MustCompile(patterns.BuildSubcommandPattern("git", []string{"commit", "push", "merge"}, gitGlobalFlags))
	noVerifyFlag = regexp.MustCompile(`\s+(?:--no-verify|-n)(\s|$)`)
)

// gitSubcommand returns the subcommand and the arguments that follow it.
func gitSubcommand(args []string, subs ...string) (string, []string) {
	for i, a := range args {
		for _, s := range subs {
			if a == s {
				return s, args[i+1:]
			}
		}
	}
	return "", nil
}

func matchGitNoVerify(t Target) (*Match, error) {
	for _, seg := range t.Segments() {
		if !gitHookedCmd.MatchString(seg) {
			continue
		}
		sub, rest := gitSubcommand(segmentArgs(seg), "commit", "push", "merge")
		skipNext := false
		hit := false
		for _, a := range rest {
			if skipNext {
				skipNext = false
				continue
			}
			switch {
			case a == "--":
			case a == "--no-verify":
				hit = true
			case sub == "commit" && (a == "-m" || a == "-F" || a == "-C" || a == "-c" || a == "-t"):
				skipNext = true
			case sub == "commit" && shortFlags(a) && clusterHas(a, 'n', "mFCct"):
				hit = true
			}
		}
		if !hit {
			continue
		}
		fix := "Fix what the hook reports and re-run the command without skipping hooks"
		if fixed := strings.TrimSpace(noVerifyFlag.ReplaceAllString(seg, "$1")); fixed != seg {
			fix = fmt.Sprintf("Fix what the hook reports, then run `%s`", fixed)
		}
		return &Match{Excerpt: seg, Matches: []string{"git " + sub}, Count: 1, Fix: fix}, nil
	}
	return nil, nil
}

var (
	gitPushCmd = regexp.MustCompile(patterns.BuildSubcommandPattern("git", []string{"push"}, gitGlobalFlags))
	forceFlag  = regexp.MustCompile(`(\s)(?:--force|-f)(\s|$)`)
)

func matchGitForcePush(t Target) (*Match, error) {
	for _, seg := range t.Segments() {
		if !gitPushCmd.MatchString(seg) {
			continue
		}
		_, rest := gitSubcommand(segmentArgs(seg), "push")
		var forced []string
		for _, a := range rest {
			switch {
			case a == "--force" || a == "-f":
				forced = append(forced, a)
			case strings.HasPrefix(a, "--force-with-lease"), strings.HasPrefix(a, "--force-if-includes"):
			case shortFlags(a) && clusterHas(a, 'f', "o"):
				forced = append(forced, a)
			case strings.HasPrefix(a, "+") && len(a) > 1:
				forced = append(forced, a)
			}
		}
		if len(forced) == 0 {
			continue
		}
		fix := "Use `git push --force-with-lease` so the push fails if the remote moved"
		if fixed := forceFlag.ReplaceAllString(seg, "${1}--force-with-lease${2}"); fixed != seg {
			fix = fmt.Sprintf("Use `%s` so the push fails if the remote moved", fixed)
		}
		return &Match{Excerpt: seg, Matches: forced, Count: len(forced), Fix: fix}, nil
	}
	return nil, nil
}

var pipInstallCmd = regexp.MustCompile(`^(?:python(?:3(?:\.\d+)?)?\s+-m\s+)?pip3?(?:\.\d+)?\s+install\b`)

// pipValueFlags take an argument that is not a package name.
var pipValueFlags = map[string]bool{
	"-c": true, "--constraint": true,
	"-i": true, "--index-url": true, "--extra-index-url": true,
	"-t": true, "--target": true, "--prefix": true, "--root": true,
	"-f": true, "--find-links": true, "--python-version": true, "--platform": true,
}

func matchPipInstall(t Target) (*Match, error) {
	for _, seg := range t.Segments() {
		if !pipInstallCmd.MatchString(seg) {
			continue
		}
		_, rest := gitSubcommand(segmentArgs(seg), "install")
		pkgs, reqs, editable := parsePipArgs(rest)

		var fix string
		switch {
		case len(reqs) > 0:
			fix = "uv add -r " + strings.Join(reqs, " -r ")
		case len(editable) > 0 && len(pkgs) == 0:
			fix = "uv add --editable " + strings.Join(editable, " ")
		case len(pkgs) > 0:
			fix = "uv add " + strings.Join(pkgs, " ")
		default:
			fix = "uv sync"
		}
		matches := append(append([]string{}, pkgs...), editable...)
		return &Match{
			Excerpt: seg,
			Matches: matches,
			Count:   len(matches) + len(reqs),
			Fix:     fmt.Sprintf("Run `%s` instead", fix),
		}, nil
	}
	return nil, nil
}

func parsePipArgs(args []string) (pkgs, reqs, editable []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		next := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			return ""
		}
		switch {
		case a == "-r" || a == "--requirement":
			if v := next(); v != "" {
				reqs = append(reqs, v)
			}
		case strings.HasPrefix(a, "--requirement="):
			reqs = append(reqs, strings.TrimPrefix(a, "--requirement="))
		case a == "-e" || a == "--editable":
			if v := next(); v != "" {
				editable = append(editable, v)
			}
		case pipValueFlags[a]:
			next()
		case strings.HasPrefix(a, "-"):
		default:
			pkgs = append(pkgs, a)
		}
	}
	return pkgs, reqs, editable
}
