// Package shell extracts structure from Bash command strings using a real
// shell parser. Commands are only parsed, never executed.
package shell

import (
	"errors"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrUnparseable is returned when a command cannot be parsed.
var ErrUnparseable = errors.New("unparseable command")

// Parse parses cmd as a Bash program.
func Parse(cmd string) (*syntax.File, error) {
	prog, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(cmd), "")
	if err != nil {
		return nil, ErrUnparseable
	}
	return prog, nil
}

// SplitCommandChain splits command into segments on &&, ||, ;, |, & using a proper shell parser.
// This handles quoted strings, redirections, and other shell syntax correctly.
// Returns ErrUnparseable if the command cannot be parsed.
func SplitCommandChain(cmd string) ([]string, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, nil
	}

	prog, err := Parse(cmd)
	if err != nil {
		return nil, err
	}

	var segments []string
	printer := syntax.NewPrinter()

	for _, stmt := range prog.Stmts {
		extractCommands(stmt.Cmd, printer, &segments)
	}

	return segments, nil
}

// Segments is SplitCommandChain with a fallback: an unparseable or empty
// result yields the trimmed command as a single segment.
func Segments(cmd string) []string {
	segments, err := SplitCommandChain(cmd)
	if err != nil || len(segments) == 0 {
		if s := strings.TrimSpace(cmd); s != "" {
			return []string{s}
		}
		return nil
	}
	return segments
}

// extractCommands recursively extracts simple commands from a shell AST node.
func extractCommands(node syntax.Command, printer *syntax.Printer, segments *[]string) {
	if node == nil {
		return
	}

	switch cmd := node.(type) {
	case *syntax.BinaryCmd:
		extractCommands(cmd.X.Cmd, printer, segments)
		extractCommands(cmd.Y.Cmd, printer, segments)

	case *syntax.Subshell:
		extractStmts(cmd.Stmts, printer, segments)

	case *syntax.Block:
		extractStmts(cmd.Stmts, printer, segments)

	case *syntax.IfClause:
		for clause := cmd; clause != nil; clause = clause.Else {
			extractStmts(clause.Cond, printer, segments)
			extractStmts(clause.Then, printer, segments)
		}

	case *syntax.WhileClause:
		extractStmts(cmd.Cond, printer, segments)
		extractStmts(cmd.Do, printer, segments)

	case *syntax.ForClause:
		extractStmts(cmd.Do, printer, segments)

	case *syntax.CaseClause:
		for _, item := range cmd.Items {
			extractStmts(item.Stmts, printer, segments)
		}

	case *syntax.TimeClause:
		if cmd.Stmt != nil {
			extractCommands(cmd.Stmt.Cmd, printer, segments)
		}

	case *syntax.CoprocClause:
		if cmd.Stmt != nil {
			extractCommands(cmd.Stmt.Cmd, printer, segments)
		}

	case *syntax.FuncDecl:
		if cmd.Body != nil {
			extractCommands(cmd.Body.Cmd, printer, segments)
		}

	default:
		// CallExpr, DeclClause, LetClause, ArithmCmd, TestClause and anything newer
		var buf strings.Builder
		printer.Print(&buf, cmd)
		if s := strings.TrimSpace(buf.String()); s != "" {
			*segments = append(*segments, s)
		}
	}
}

func extractStmts(stmts []*syntax.Stmt, printer *syntax.Printer, segments *[]string) {
	for _, stmt := range stmts {
		extractCommands(stmt.Cmd, printer, segments)
	}
}

// Args returns the words of the first simple command in segment with quotes
// removed where the word is a plain literal. Words containing expansions are
// returned as printed source.
func Args(segment string) ([]string, error) {
	prog, err := Parse(segment)
	if err != nil {
		return nil, err
	}
	var args []string
	syntax.Walk(prog, func(node syntax.Node) bool {
		if args != nil {
			return false
		}
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		args = make([]string, 0, len(call.Args))
		for _, w := range call.Args {
			args = append(args, WordString(w))
		}
		return false
	})
	return args, nil
}

// WordString renders a word, unquoting literal single- and double-quoted parts.
func WordString(w *syntax.Word) string {
	var b strings.Builder
	printer := syntax.NewPrinter()
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			b.WriteString(p.Value)
		case *syntax.SglQuoted:
			b.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					b.WriteString(lit.Value)
				} else {
					printer.Print(&b, inner)
				}
			}
		default:
			printer.Print(&b, part)
		}
	}
	return b.String()
}
