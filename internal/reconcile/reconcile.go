// ABOUTME: Drives install/uninstall calls for a resolved plugin set
// ABOUTME: Isolates per-plugin failures, rate-limits calls, and reports every item
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/pluginsync/pluginsync/internal/events"
	"github.com/pluginsync/pluginsync/internal/grafana"
	"github.com/pluginsync/pluginsync/internal/plugin"
	"github.com/pluginsync/pluginsync/internal/ratelimit"
	"github.com/pluginsync/pluginsync/internal/registry"
)

// Operation is the action applied to every plugin of a run
type Operation string

const (
	OperationInstall   Operation = "install"
	OperationUninstall Operation = "uninstall"
)

// Status is the terminal state of one plugin within a run
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Skip reasons
const (
	ReasonInternal         = "internal plugin"
	ReasonAlreadyInstalled = "already installed"
	ReasonNotInstalled     = "not installed"
	ReasonCancelled        = "cancelled"
	ReasonDryRun           = "dry run"
)

// ErrInvalidVersion marks an install whose version is not a semantic version
var ErrInvalidVersion = errors.New("invalid plugin version")

// PluginAPI is the part of the admin API a run drives
type PluginAPI interface {
	Health(ctx context.Context) (string, error)
	Install(ctx context.Context, id, version string) error
	Uninstall(ctx context.Context, id string) error
}

// InstalledLister returns the plugins currently on the target
type InstalledLister interface {
	List(ctx context.Context) ([]plugin.Descriptor, error)
}

// Target is the resolved work of one run
type Target struct {
	Plugins   []plugin.Descriptor
	Operation Operation
	Version   string // Overrides every plugin's version on install when set
}

// Outcome is the write-once result for one plugin
type Outcome struct {
	Plugin   plugin.Descriptor
	Version  string
	Status   Status
	Err      error
	Reason   string
	Duration time.Duration
}

// Report lists one outcome per input plugin, in input order
type Report struct {
	RunID     string
	Operation Operation
	Outcomes  []Outcome
}

// Count returns the number of outcomes with the given status
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// HasFailures reports whether any plugin failed
func (r *Report) HasFailures() bool {
	return r.Count(StatusFailed) > 0
}

// Options configures a Reconciler
type Options struct {
	Limiter       ratelimit.Limiter // Spacing between remote calls; Unlimited if nil
	Workers       int               // Concurrent workers; DefaultWorkers if zero
	SkipInstalled bool              // Install only: skip plugins already at or above the desired version
	Installed     InstalledLister   // Required when SkipInstalled is set
	DryRun        bool              // Plan only, no install/uninstall calls
	Tracker       *events.Tracker   // Audit trail, optional
	TargetURL     string            // Recorded in audit events
	AuditContext  map[string]string // Extra audit fields, e.g. data source uid
	Logger        *slog.Logger
	OnOutcome     func(Outcome) // Called as each plugin completes
}

// Reconciler applies a Target against one instance
type Reconciler struct {
	api  PluginAPI
	opts Options
}

// New creates a Reconciler
func New(api PluginAPI, opts Options) *Reconciler {
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{api: api, opts: opts}
}

// Run applies target. It fails without a report only when the run cannot
// start: bad operation, unhealthy or unreachable target, or no installed
// snapshot when one is needed. Otherwise it returns a report covering every
// plugin; if ctx was cancelled the unstarted plugins are skipped and ctx's
// error is returned with the report.
func (r *Reconciler) Run(ctx context.Context, target Target) (*Report, error) {
	if target.Operation != OperationInstall && target.Operation != OperationUninstall {
		return nil, fmt.Errorf("unknown operation %q", target.Operation)
	}
	if target.Version != "" {
		if _, err := semver.NewVersion(target.Version); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, target.Version)
		}
	}

	if _, err := r.api.Health(ctx); err != nil {
		return nil, fmt.Errorf("target health check failed: %w", err)
	}

	var installed map[string]string
	if r.opts.SkipInstalled && target.Operation == OperationInstall {
		if r.opts.Installed == nil {
			return nil, errors.New("skip-installed requires an installed plugin lister")
		}
		items, err := r.opts.Installed.List(ctx)
		if err != nil {
			return nil, err
		}
		installed = registry.Versions(items)
		for _, d := range items {
			if _, ok := installed[d.ID]; !ok {
				installed[d.ID] = ""
			}
		}
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Operation: target.Operation,
	}
	logger := r.opts.Logger.With("run", report.RunID, "operation", string(target.Operation))
	logger.Info("reconciliation started", "plugins", len(target.Plugins), "workers", r.opts.Workers, "dryRun", r.opts.DryRun)

	jobs := make([]job, len(target.Plugins))
	for i, d := range target.Plugins {
		d := d
		jobs[i] = job{
			Index: i,
			Execute: func(ctx context.Context) Outcome {
				return r.process(ctx, target, d, installed)
			},
		}
	}

	report.Outcomes = runWorkerPool(ctx, jobs, r.opts.Workers, func(o Outcome) {
		r.record(logger, report.RunID, target.Operation, o)
		if r.opts.OnOutcome != nil {
			r.opts.OnOutcome(o)
		}
	})

	logger.Info("reconciliation finished",
		"succeeded", report.Count(StatusSucceeded),
		"failed", report.Count(StatusFailed),
		"skipped", report.Count(StatusSkipped))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	for _, o := range report.Outcomes {
		if o.Reason == ReasonCancelled && o.Err != nil {
			return report, o.Err
		}
	}
	return report, nil
}

// process takes one plugin from PENDING to a terminal status. It never
// returns an error; every failure is folded into the outcome.
func (r *Reconciler) process(ctx context.Context, target Target, d plugin.Descriptor, installed map[string]string) Outcome {
	outcome := Outcome{Plugin: d}

	if ctx.Err() != nil {
		return skipped(outcome, ReasonCancelled)
	}

	if d.IsInternal() {
		return skipped(outcome, ReasonInternal)
	}

	if target.Operation == OperationInstall {
		outcome.Version = target.Version
		if outcome.Version == "" {
			outcome.Version, _ = d.VersionString()
		}
		if outcome.Version != "" {
			if _, err := semver.NewVersion(outcome.Version); err != nil {
				outcome.Status = StatusFailed
				outcome.Err = fmt.Errorf("%w: %q", ErrInvalidVersion, outcome.Version)
				return outcome
			}
		}
		if current, ok := installed[d.ID]; ok && upToDate(current, outcome.Version) {
			return skipped(outcome, ReasonAlreadyInstalled)
		}
	}

	if r.opts.DryRun {
		return skipped(outcome, ReasonDryRun)
	}

	// The limiter only fails when ctx is done or its deadline falls before the next slot
	if err := r.opts.Limiter.Wait(ctx); err != nil {
		outcome.Err = err
		return skipped(outcome, ReasonCancelled)
	}

	start := time.Now()
	var err error
	switch target.Operation {
	case OperationInstall:
		err = r.api.Install(ctx, d.ID, outcome.Version)
	case OperationUninstall:
		err = r.api.Uninstall(ctx, d.ID)
	}
	outcome.Duration = time.Since(start)

	if target.Operation == OperationUninstall && grafana.IsNotFound(err) {
		return skipped(outcome, ReasonNotInstalled)
	}
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}
	outcome.Status = StatusSucceeded
	return outcome
}

func skipped(o Outcome, reason string) Outcome {
	o.Status = StatusSkipped
	o.Reason = reason
	return o
}

// upToDate reports whether an installed version satisfies the desired one.
// An empty desired version is satisfied by any installed version.
func upToDate(current, desired string) bool {
	if desired == "" {
		return true
	}
	if current == "" {
		return false
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	want, err := semver.NewVersion(desired)
	if err != nil {
		return false
	}
	return !cur.LessThan(want)
}

// record logs an outcome and appends it to the audit trail
func (r *Reconciler) record(logger *slog.Logger, runID string, op Operation, o Outcome) {
	attrs := []any{"plugin", o.Plugin.ID, "status", string(o.Status)}
	if o.Version != "" {
		attrs = append(attrs, "version", o.Version)
	}

	switch o.Status {
	case StatusFailed:
		logger.Warn("plugin operation failed", append(attrs, "error", o.Err)...)
	case StatusSkipped:
		logger.Info("plugin skipped", append(attrs, "reason", o.Reason)...)
	default:
		logger.Info("plugin operation succeeded", append(attrs, "duration", o.Duration)...)
	}

	if r.opts.DryRun {
		return
	}

	event := events.OperationEvent{
		RunID:     runID,
		Operation: string(op),
		Target:    r.opts.TargetURL,
		Plugin:    o.Plugin.ID,
		Version:   o.Version,
		Status:    string(o.Status),
		Reason:    o.Reason,
		Context:   r.opts.AuditContext,
	}
	if o.Err != nil {
		event.Error = o.Err.Error()
	}
	if err := r.opts.Tracker.Record(event); err != nil {
		logger.Debug("failed to write audit event", "plugin", o.Plugin.ID, "error", err)
	}
}
