// Package planmode decides whether the assistant is currently planning
// rather than implementing. Several independent signals are OR-ed together;
// each one can be switched off from configuration.
package planmode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgerlanc/hookguard/internal/logger"
	"github.com/dgerlanc/hookguard/internal/patterns"
)

// Signal names reported in Context.Reason.
const (
	SignalPermissionMode = "permission_mode=plan"
	SignalPlanFilePath   = "plan_file_path"
	SignalActivePlans    = "active_plan_files"
)

// DefaultRecent is how recently a plan file must have changed to count as active.
const DefaultRecent = 30 * time.Minute

// DefaultPathPatterns are the globs that mark a file as a plan document.
var DefaultPathPatterns = []string{
	"**/.claude/plans/**",
	"**/plans/*.md",
	"**/PLAN.md",
	"**/*.plan.md",
}

// Invocation is the part of a hook invocation the detector looks at.
type Invocation struct {
	PermissionMode string
	FilePath       string
}

// Options switches signals on and off and tunes them.
type Options struct {
	PermissionMode bool
	FilePath       bool
	// PlanFiles probes PlansDir for recently modified files.
	PlanFiles    bool
	PathPatterns []string
	PlansDir     string
	Recent       time.Duration
	// Now is the probe's clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions enables the declared-mode and path signals. The
// filesystem probe stays off because it touches the disk on every call.
func DefaultOptions(plansDir string) Options {
	return Options{
		PermissionMode: true,
		FilePath:       true,
		PathPatterns:   DefaultPathPatterns,
		PlansDir:       plansDir,
		Recent:         DefaultRecent,
	}
}

// Signals records which detectors fired.
type Signals struct {
	PermissionModeIsPlan bool `json:"permission_mode_is_plan"`
	FilePathIsPlanFile   bool `json:"file_path_is_plan_file"`
	ActivePlanFilesExist bool `json:"active_plan_files_exist"`
}

// Context is the outcome of Detect.
type Context struct {
	InPlanMode bool    `json:"in_plan_mode"`
	Signals    Signals `json:"signals"`
	// Reason lists the fired signals, comma separated. Empty when none fired.
	Reason string `json:"reason,omitempty"`
}

// Detect fuses the enabled signals. It never fails: a signal that cannot be
// evaluated counts as not fired. Every enabled signal is evaluated so that
// Signals and Reason report all of them.
func Detect(inv Invocation, opts Options) (ctx Context) {
	defer func() {
		if p := recover(); p != nil {
			logger.For("planmode").Warn("plan mode detection failed", "error", fmt.Sprint(p))
			ctx = Context{}
		}
	}()

	var fired []string
	if opts.PermissionMode && strings.EqualFold(strings.TrimSpace(inv.PermissionMode), "plan") {
		ctx.Signals.PermissionModeIsPlan = true
		fired = append(fired, SignalPermissionMode)
	}
	if opts.FilePath && IsPlanFile(inv.FilePath, opts.PathPatterns) {
		ctx.Signals.FilePathIsPlanFile = true
		fired = append(fired, SignalPlanFilePath)
	}
	if opts.PlanFiles && activePlanFiles(opts) {
		ctx.Signals.ActivePlanFilesExist = true
		fired = append(fired, SignalActivePlans)
	}

	ctx.InPlanMode = len(fired) > 0
	ctx.Reason = strings.Join(fired, ", ")
	return ctx
}

// IsPlanFile reports whether path matches one of the plan-document globs.
func IsPlanFile(path string, globs []string) bool {
	if path == "" {
		return false
	}
	return patterns.MatchAnyGlob(globs, filepath.ToSlash(path))
}

// activePlanFiles reports whether any regular file directly inside the plans
// dir was modified within the recency window.
func activePlanFiles(opts Options) bool {
	if opts.PlansDir == "" {
		return false
	}
	entries, err := os.ReadDir(opts.PlansDir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.For("planmode").Debug("plan dir probe failed", "dir", opts.PlansDir, "error", err)
		}
		return false
	}

	recent := opts.Recent
	if recent <= 0 {
		recent = DefaultRecent
	}
	now := time.Now()
	if opts.Now != nil {
		now = opts.Now()
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= recent {
			return true
		}
	}
	return false
}
