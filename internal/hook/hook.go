// Package hook implements the decision engine behind hookguard: it reads one
// hook invocation, runs the applicable rules and produces exactly one decision.
//
// Process never fails from the caller's point of view. Unreadable input,
// broken rules and persistence problems all degrade to Allow or to "this
// rule did not match", and are reported through the logger, the audit log
// and the escalation tracker instead.
package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dgerlanc/hookguard/internal/audit"
	"github.com/dgerlanc/hookguard/internal/config"
	"github.com/dgerlanc/hookguard/internal/env"
	"github.com/dgerlanc/hookguard/internal/logger"
	"github.com/dgerlanc/hookguard/internal/planmode"
	"github.com/dgerlanc/hookguard/internal/rules"
	"github.com/dgerlanc/hookguard/internal/tracker"
)

// InputRuleID is the tracker key used for unreadable invocations.
const InputRuleID = "input"

// ErrRuleFailed wraps errors returned or raised by a rule.
var ErrRuleFailed = errors.New("rule evaluation failed")

// Options wires the engine's collaborators.
type Options struct {
	// Event is used when the input carries no hook_event_name.
	Event rules.Event
	// Registry holds the rules. Nil means the loaded configuration's registry.
	Registry *rules.Registry
	// PlanMode configures the detector used for rules relaxed in plan mode.
	PlanMode planmode.Options
	// Detect replaces planmode.Detect, mainly for tests.
	Detect func(planmode.Invocation, planmode.Options) planmode.Context
	// Tracker records failures. Nil disables tracking.
	Tracker *tracker.Tracker
	Env     env.Env
}

// OptionsFromConfig builds Options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config, e env.Env, event rules.Event) Options {
	return Options{
		Event:    event,
		Registry: cfg.Registry,
		PlanMode: cfg.PlanModeOptions(e),
		Tracker:  tracker.ForEnv(e, cfg.Escalation.Threshold),
		Env:      e,
	}
}

// evaluation carries per-invocation state through Process.
type evaluation struct {
	opts      Options
	start     time.Time
	traceID   string
	sessionID string
	raw       string
	input     Input
	event     rules.Event
	plan      *planmode.Context
	results   []audit.RuleResult
}

// Process reads one invocation from r and returns the decision.
func Process(r io.Reader, opts Options) (result Result) {
	ev := &evaluation{
		opts:    opts,
		start:   time.Now(),
		traceID: uuid.NewString(),
		event:   defaultEvent(opts.Event),
	}

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("internal error: %v", p)
			logger.Log("hook", slog.LevelError, "evaluation panicked, allowing", map[string]any{"error": err.Error()})
			result = ev.recoverOpen(err)
		}
	}()

	rawBytes, err := io.ReadAll(r)
	if err != nil {
		return ev.failOpen(fmt.Errorf("read input: %w", err))
	}
	ev.raw = string(rawBytes)

	if err := json.Unmarshal(rawBytes, &ev.input); err != nil {
		return ev.failOpen(fmt.Errorf("decode input: %w", err))
	}
	return ev.run()
}

func defaultEvent(e rules.Event) rules.Event {
	if e == "" {
		return rules.EventPreToolUse
	}
	return e
}

func (ev *evaluation) run() Result {
	in := ev.input
	ev.sessionID = ev.opts.Env.SessionID(in.SessionID)
	logger.SetCorrelation(ev.sessionID, ev.traceID)

	if in.HookEventName != "" {
		if event, err := rules.ParseEvent(in.HookEventName); err == nil {
			ev.event = event
		} else {
			logger.Debug("unknown hook event, using default", "event", in.HookEventName, "default", ev.event)
		}
	}

	reg := ev.opts.Registry
	if reg == nil {
		reg = config.Get().Registry
	}

	if !reg.Tools(ev.event)[in.ToolName] {
		logger.Debug("no rules for tool", "tool", in.ToolName, "event", ev.event)
		return ev.finish(Allow)
	}

	target := in.Target(ev.event)
	var winner *rules.Rule
	var winnerMatch *rules.Match

	for _, rule := range reg.Applicable(ev.event, in.ToolName) {
		if !rule.Admits(target) {
			continue
		}
		if rule.RelaxedInPlan && ev.planMode().InPlanMode {
			ev.record(rule, audit.OutcomeRelaxed, "", ev.plan.Reason)
			continue
		}
		if rule.Escaped(target.Text) {
			ev.record(rule, audit.OutcomeEscaped, "", rule.Hatch())
			continue
		}

		m, err := rule.Evaluate(target)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrRuleFailed, err)
			logger.Log("hook", slog.LevelError, "rule evaluation failed", map[string]any{"rule": rule.ID, "error": err.Error()})
			ev.record(rule, audit.OutcomeError, "", err.Error())
			ev.track(rule.ID+"/error", err.Error())
			continue
		}
		if m == nil {
			continue
		}

		if winner != nil {
			ev.record(rule, audit.OutcomeSuppressed, m.Excerpt, "")
			continue
		}
		winner, winnerMatch = &rule, m
		ev.record(rule, audit.OutcomeFired, m.Excerpt, "")
	}

	if winner == nil {
		return ev.finish(Allow)
	}

	reason := winner.Reason(winnerMatch)
	d := decisionFor(*winner, reason)
	ev.track(winner.ID, reason)
	return ev.finish(d)
}

// planMode runs the detector at most once per invocation.
func (ev *evaluation) planMode() planmode.Context {
	if ev.plan == nil {
		detect := ev.opts.Detect
		if detect == nil {
			detect = planmode.Detect
		}
		ctx := detect(ev.input.PlanInvocation(), ev.opts.PlanMode)
		ev.plan = &ctx
		logger.Debug("plan mode detected", "in_plan_mode", ctx.InPlanMode, "reason", ctx.Reason)
	}
	return *ev.plan
}

func (ev *evaluation) record(rule rules.Rule, outcome, excerpt, detail string) {
	ev.results = append(ev.results, audit.RuleResult{
		Rule:    rule.ID,
		Outcome: outcome,
		Excerpt: rules.Shorten(excerpt, 200),
		Detail:  detail,
	})
}

func (ev *evaluation) track(ruleID, message string) {
	if ev.opts.Tracker == nil {
		return
	}
	ev.opts.Tracker.TraceID = ev.traceID
	ev.opts.Tracker.Track(ruleID, message, ev.sessionID)
}

// failOpen allows the invocation after input could not be processed.
func (ev *evaluation) failOpen(err error) Result {
	if ev.sessionID == "" {
		ev.sessionID = ev.opts.Env.SessionID("")
	}
	logger.Log("hook", slog.LevelError, "input parse failed", map[string]any{"error": err.Error(), "bytes": len(ev.raw)})
	ev.track(InputRuleID, err.Error())
	result := ev.finish(Allow)
	result.InputError = err
	return result
}

// recoverOpen is failOpen for a panicked evaluation. If recording the
// failure panics too, the bare allow is still returned.
func (ev *evaluation) recoverOpen(err error) (result Result) {
	defer func() {
		if p := recover(); p != nil {
			logger.Log("hook", slog.LevelError, "fail-open panicked", map[string]any{"error": fmt.Sprint(p)})
			result = Result{
				Event:      ev.event,
				Tool:       ev.input.ToolName,
				Decision:   Allow,
				Output:     Format(ev.event, Allow),
				TraceID:    ev.traceID,
				InputError: err,
			}
		}
	}()
	return ev.failOpen(err)
}

// finish renders the decision and writes the log and audit records.
func (ev *evaluation) finish(d Decision) Result {
	output := Format(ev.event, d)
	durationMs := float64(time.Since(ev.start).Microseconds()) / 1000.0

	ctx := map[string]any{
		"event":       string(ev.event),
		"tool":        ev.input.ToolName,
		"decision":    string(d.Kind),
		"duration_ms": durationMs,
	}
	if d.RuleID != "" {
		ctx["rule"] = d.RuleID
	}
	if ev.plan != nil {
		ctx["plan_mode"] = ev.plan.InPlanMode
	}
	level := slog.LevelDebug
	if d.Kind != KindAllow {
		level = slog.LevelInfo
	}
	logger.Log("hook", level, "decision", ctx)

	home := ev.opts.Env.Home
	var results []audit.RuleResult
	for _, r := range ev.results {
		r.Excerpt = logger.Redact(r.Excerpt, home)
		r.Detail = logger.Redact(r.Detail, home)
		results = append(results, r)
	}
	entry := audit.Entry{
		TraceID:    ev.traceID,
		ToolUseID:  ev.input.ToolUseID,
		SessionID:  ev.sessionID,
		Event:      string(ev.event),
		Tool:       ev.input.ToolName,
		Decision:   string(d.Kind),
		Rule:       d.RuleID,
		Reason:     logger.Redact(d.Reason, home),
		Rules:      results,
		DurationMs: durationMs,
		Cwd:        logger.Redact(ev.input.Cwd, home),
		Input:      logger.Redact(rules.MaskSecrets(ev.raw), home),
		Output:     logger.Redact(output, home),
		ConfigPath: logger.Redact(config.GetConfigPath(), home),
	}
	if ev.plan != nil {
		entry.PlanMode = ev.plan.InPlanMode
		entry.PlanReason = logger.Redact(ev.plan.Reason, home)
	}
	if err := config.InitError(); err != nil {
		entry.ConfigError = logger.Redact(err.Error(), home)
	}
	_ = audit.Log(entry)

	return Result{
		Event:    ev.event,
		Tool:     ev.input.ToolName,
		Decision: d,
		Output:   output,
		TraceID:  ev.traceID,
		PlanMode: ev.plan,
	}
}
