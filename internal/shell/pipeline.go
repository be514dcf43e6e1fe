package shell

import (
	"path"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Stage is one command in a pipeline.
type Stage struct {
	// Name is the command name with any directory stripped ("/usr/bin/curl" -> "curl").
	Name string
	// Text is the printed source of the stage.
	Text string
}

// Pipelines returns every pipeline (two or more stages joined by | or |&)
// found anywhere in cmd, including inside subshells and blocks.
func Pipelines(cmd string) ([][]Stage, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, nil
	}
	prog, err := Parse(cmd)
	if err != nil {
		return nil, err
	}

	printer := syntax.NewPrinter()
	var pipelines [][]Stage
	syntax.Walk(prog, func(node syntax.Node) bool {
		bin, ok := node.(*syntax.BinaryCmd)
		if !ok || !isPipe(bin.Op) {
			return true
		}
		var stages []Stage
		flattenPipe(bin, printer, &stages)
		pipelines = append(pipelines, stages)
		// Nested pipes were flattened into this pipeline already.
		return false
	})
	return pipelines, nil
}

func isPipe(op syntax.BinCmdOperator) bool {
	return op == syntax.Pipe || op == syntax.PipeAll
}

func flattenPipe(bin *syntax.BinaryCmd, printer *syntax.Printer, stages *[]Stage) {
	for _, side := range []*syntax.Stmt{bin.X, bin.Y} {
		if inner, ok := side.Cmd.(*syntax.BinaryCmd); ok && isPipe(inner.Op) {
			flattenPipe(inner, printer, stages)
			continue
		}
		var buf strings.Builder
		printer.Print(&buf, side)
		*stages = append(*stages, Stage{
			Name: commandName(side.Cmd),
			Text: strings.TrimSpace(buf.String()),
		})
	}
}

// commandName returns the base name of a simple command, skipping env assignments
// and the "sudo"/"env" prefixes, or "" for compound commands.
func commandName(cmd syntax.Command) string {
	call, ok := cmd.(*syntax.CallExpr)
	if !ok {
		return ""
	}
	for _, w := range call.Args {
		name := path.Base(WordString(w))
		switch name {
		case "sudo", "env", "command", "exec":
			continue
		}
		if strings.HasPrefix(name, "-") || strings.Contains(name, "=") {
			continue
		}
		return name
	}
	return ""
}
