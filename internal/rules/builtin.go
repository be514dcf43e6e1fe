package rules

// Builtins returns the built-in rule set.
func Builtins() []Rule {
	return []Rule{
		{
			ID:       "destructive-rm",
			Summary:  "recursive delete of a root, home or working directory",
			Category: CategoryDestructive,
			Events:   []Event{EventPreToolUse},
			Tools:    []string{ToolBash},
			Action:   ActionDeny,
			Match:    matchDestructiveRm,
		},
		{
			ID:       "curl-pipe-shell",
			Summary:  "piping a download straight into a shell",
			Category: CategorySecurity,
			Events:   []Event{EventPreToolUse},
			Tools:    []string{ToolBash},
			Action:   ActionDeny,
			Match:    matchCurlPipeShell,
		},
		{
			ID:       "secret-in-content",
			Summary:  "credential written into a file",
			Category: CategorySecurity,
			Priority: 1,
			Events:   []Event{EventPreToolUse},
			Tools:    []string{ToolWrite, ToolEdit, ToolMultiEdit},
			Action:   ActionDeny,
			Paths: PathGuard{
				Exclude: []string{"**/*.example", "**/testdata/**"},
			},
			Match: matchSecrets,
		},
		{
			ID:       "git-no-verify",
			Summary:  "skipping git hooks with --no-verify",
			Category: CategoryWorkflow,
			Events:   []Event{EventPreToolUse},
			Tools:    []string{ToolBash},
			Action:   ActionDeny,
			Match:    matchGitNoVerify,
		},
		{
			ID:       "git-force-push",
			Summary:  "force push can overwrite other people's commits",
			Category: CategoryWorkflow,
			Priority: 1,
			Events:   []Event{EventPreToolUse},
			Tools:    []string{ToolBash},
			Action:   ActionAsk,
			Match:    matchGitForcePush,
		},
		{
			ID:       "pip-install",
			Summary:  "this project manages Python packages with uv, not pip",
			Category: CategoryWorkflow,
			Priority: 2,
			Events:   []Event{EventPreToolUse},
			Tools:    []string{ToolBash},
			Action:   ActionDeny,
			Match:    matchPipInstall,
		},
		{
			ID:            "markdown-sprawl",
			Summary:       "new standalone markdown file outside docs/",
			Category:      CategoryStyle,
			Events:        []Event{EventPreToolUse},
			Tools:         []string{ToolWrite},
			Action:        ActionAsk,
			RelaxedInPlan: true,
			Paths: PathGuard{
				Extensions: []string{".md"},
				Exclude: []string{
					"**/README.md", "**/CHANGELOG.md", "**/CLAUDE.md", "**/AGENTS.md",
					"**/docs/**", "**/.claude/**", "**/.github/**",
				},
			},
			Match: matchMarkdownSprawl,
		},
		{
			ID:       "debug-statement",
			Summary:  "debug statement left in source",
			Category: CategoryStyle,
			Priority: 1,
			Events:   []Event{EventPostToolUse},
			Tools:    []string{ToolWrite, ToolEdit, ToolMultiEdit},
			Action:   ActionBlock,
			Paths: PathGuard{
				Extensions: debugExtensions(),
				Exclude:    []string{"**/*_test.go", "**/test_*.py", "**/*.test.*", "**/*.spec.*"},
			},
			Match: matchDebugStatements,
		},
	}
}
