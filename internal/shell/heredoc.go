package shell

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// byteRange represents a range of bytes in a string
type byteRange struct {
	start, end int
}

// findQuotedHeredocRanges parses a command and returns byte ranges of heredoc content
// where the delimiter is quoted (single or double quotes). Quoted heredocs don't perform
// shell expansion, so their bodies are literal text rather than commands.
func findQuotedHeredocRanges(cmd string) []byteRange {
	prog, err := Parse(cmd)
	if err != nil {
		return nil
	}

	var ranges []byteRange
	syntax.Walk(prog, func(node syntax.Node) bool {
		redir, ok := node.(*syntax.Redirect)
		if !ok {
			return true
		}

		// Check if this is a heredoc operator (<< or <<-)
		if redir.Op != syntax.Hdoc && redir.Op != syntax.DashHdoc {
			return true
		}

		if redir.Word == nil || len(redir.Word.Parts) == 0 {
			return true
		}

		isQuoted := false
		for _, part := range redir.Word.Parts {
			switch part.(type) {
			case *syntax.SglQuoted, *syntax.DblQuoted:
				isQuoted = true
			}
		}

		if isQuoted && redir.Hdoc != nil {
			start := int(redir.Hdoc.Pos().Offset())
			end := int(redir.Hdoc.End().Offset())
			if start < end && start >= 0 && end <= len(cmd) {
				ranges = append(ranges, byteRange{start: start, end: end})
			}
		}

		return true
	})

	return ranges
}

// StripQuotedHeredocs removes the bodies of quoted heredocs from cmd so that
// text-level matching does not fire on literal document content.
// Unparseable commands are returned unchanged.
func StripQuotedHeredocs(cmd string) string {
	ranges := findQuotedHeredocRanges(cmd)
	if len(ranges) == 0 {
		return cmd
	}

	var b strings.Builder
	last := 0
	for _, r := range ranges {
		if r.start < last {
			continue
		}
		b.WriteString(cmd[last:r.start])
		last = r.end
	}
	b.WriteString(cmd[last:])
	return b.String()
}
