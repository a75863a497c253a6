// ABOUTME: Install and uninstall commands sharing one reconcile pipeline
// ABOUTME: source -> include/exclude rules -> sample -> reconcile -> rendered report
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pluginsync/pluginsync/internal/catalog"
	"github.com/pluginsync/pluginsync/internal/config"
	"github.com/pluginsync/pluginsync/internal/filter"
	"github.com/pluginsync/pluginsync/internal/plugin"
	"github.com/pluginsync/pluginsync/internal/ratelimit"
	"github.com/pluginsync/pluginsync/internal/reconcile"
	"github.com/pluginsync/pluginsync/internal/sample"
	"github.com/pluginsync/pluginsync/internal/ui"
	"github.com/spf13/cobra"
)

// sourceInstalled selects the target's own installed plugins as the candidate set
const sourceInstalled = "installed"

// syncOptions holds the flags shared by install and uninstall
type syncOptions struct {
	source        string
	file          string
	include       []string
	exclude       []string
	sample        int
	seed          uint64
	delay         time.Duration
	workers       int
	version       string
	skipInstalled bool
	dryRun        bool
	failOnError   bool
	uid           string
}

var (
	installOpts   syncOptions
	uninstallOpts syncOptions
)

var installCmd = &cobra.Command{
	Use:     "install",
	GroupID: ui.GroupReconcile,
	Short:   "Install plugins from a catalog, manifest, or saved report",
	Long: `Install every selected plugin on the target, one call at a time.

Plugins whose signature is "internal" are never touched. A failure on one
plugin is recorded and the run moves on to the next.`,
	Example: `  # Install everything in a build manifest
  pluginsync install --source manifest --file plugin-build-manifest.json

  # Install 10 random external apps and data sources from the public catalog
  pluginsync install --include typeCode=app,datasource --exclude internal=true --sample 10

  # Re-install a set recorded by "pluginsync report"
  pluginsync install --source dump --file external-plugins-all.json --skip-installed`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, reconcile.OperationInstall, &installOpts)
	},
}

var uninstallCmd = &cobra.Command{
	Use:     "uninstall",
	GroupID: ui.GroupReconcile,
	Short:   "Uninstall plugins listed by a catalog, manifest, or saved report",
	Long: `Uninstall every selected plugin from the target, one call at a time.

Use --source installed to select from what the target currently has.`,
	Example: `  # Remove every non-core panel currently installed
  pluginsync uninstall --source installed --include type=panel --exclude signature=internal

  # Preview which manifest plugins would be removed
  pluginsync uninstall --source manifest --file plugin-build-manifest.json --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, reconcile.OperationUninstall, &uninstallOpts)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)

	addSyncFlags(installCmd, &installOpts)
	installCmd.Flags().StringVar(&installOpts.version, "version", "", "Install this version of every plugin instead of the catalog version")
	installCmd.Flags().BoolVar(&installOpts.skipInstalled, "skip-installed", false, "Skip plugins already installed at or above the desired version")

	addSyncFlags(uninstallCmd, &uninstallOpts)
}

func addSyncFlags(cmd *cobra.Command, opts *syncOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.source, "source", "", "Candidate source: catalog, manifest, dump, or installed (default: manifest if configured, else catalog)")
	flags.StringVar(&opts.file, "file", "", "Manifest or dump file for --source manifest|dump")
	flags.StringArrayVar(&opts.include, "include", nil, "Keep only plugins matching attr=v1,v2 (repeatable)")
	flags.StringArrayVar(&opts.exclude, "exclude", nil, "Drop plugins matching attr=v1,v2 (repeatable)")
	flags.IntVar(&opts.sample, "sample", 0, "Pick this many plugins uniformly at random after filtering")
	flags.Uint64Var(&opts.seed, "seed", 0, "Seed for --sample (0 picks a random seed)")
	flags.DurationVar(&opts.delay, "delay", time.Second, "Minimum spacing between remote calls")
	flags.IntVar(&opts.workers, "workers", reconcile.DefaultWorkers, "Concurrent workers sharing the rate limit")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Show what would be done without calling the target")
	flags.BoolVar(&opts.failOnError, "fail-on-error", false, "Exit non-zero when any plugin fails")
	flags.StringVar(&opts.uid, "uid", "", "Data source UID recorded with audit events")
}

func runSync(cmd *cobra.Command, op reconcile.Operation, opts *syncOptions) error {
	ctx := cmd.Context()
	opts.applyConfigDefaults(cmd)

	client, err := newClient()
	if err != nil {
		return err
	}
	view := newRegistryView(client)

	items, origin, err := opts.candidates(ctx, view)
	if err != nil {
		return err
	}

	include, exclude, err := opts.rules()
	if err != nil {
		return err
	}
	selected := filter.Apply(items, include, exclude)
	logger.Info("candidates filtered", "source", origin, "fetched", len(items), "selected", len(selected),
		"include", include.String(), "exclude", exclude.String())

	if cmd.Flags().Changed("sample") {
		selected, err = sample.Select(selected, opts.sample, sample.NewSource(opts.seed))
		if err != nil {
			return fmt.Errorf("--sample %d of %d plugins: %w", opts.sample, len(selected), err)
		}
	}

	fmt.Println(ui.RenderDetail("Source", origin))
	fmt.Println(ui.RenderDetail("Target", client.URL()))
	fmt.Println(ui.RenderDetail("Plugins", fmt.Sprintf("%d of %d", len(selected), len(items))))
	fmt.Println()

	if len(selected) == 0 {
		ui.PrintInfo("No plugins selected, nothing to do.")
		return nil
	}

	if op == reconcile.OperationUninstall && !opts.dryRun {
		if err := ui.Confirm(fmt.Sprintf("Uninstall %d plugins from %s?", len(selected), client.URL())); err != nil {
			return err
		}
	}

	if opts.dryRun {
		ui.PrintWarning("Dry run: the target will not be changed")
		fmt.Println()
	}

	tracker := ui.NewProgressTracker(ui.TrackerConfig{
		Title: progressTitle(op, opts.dryRun),
		Total: len(selected),
	})

	auditCtx := map[string]string{"source": origin}
	if opts.uid != "" {
		auditCtx["uid"] = opts.uid
	}

	audit := newTracker()
	audit.SetEnabled(!opts.dryRun)

	reconciler := reconcile.New(client, reconcile.Options{
		Limiter:       ratelimit.NewFixed(opts.delay),
		Workers:       opts.workers,
		SkipInstalled: opts.skipInstalled,
		Installed:     view,
		DryRun:        opts.dryRun,
		Tracker:       audit,
		TargetURL:     client.URL(),
		AuditContext:  auditCtx,
		Logger:        logger,
		OnOutcome: func(o reconcile.Outcome) {
			tracker.Update(os.Stdout, progressItem(o))
		},
	})

	report, runErr := reconciler.Run(ctx, reconcile.Target{
		Plugins:   selected,
		Operation: op,
		Version:   opts.version,
	})
	if report == nil {
		return runErr
	}
	tracker.Finish(os.Stdout)

	auditPath := ""
	if audit.IsEnabled() {
		auditPath = config.EventsLogPath(config.MustHome())
	}
	printReport(report, auditPath)

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	if report.HasFailures() {
		failed := report.Count(reconcile.StatusFailed)
		if opts.failOnError {
			return fmt.Errorf("%d of %d plugins failed", failed, len(report.Outcomes))
		}
		fmt.Println()
		ui.PrintWarning(fmt.Sprintf("%d plugins failed; pass --fail-on-error to exit non-zero", failed))
	}
	return nil
}

// applyConfigDefaults fills flags the user did not set from the config file
func (o *syncOptions) applyConfigDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("delay") {
		o.delay = cfg.Reconcile.Delay
	}
	if !cmd.Flags().Changed("workers") && cfg.Reconcile.Workers > 0 {
		o.workers = cfg.Reconcile.Workers
	}
	if o.source == "" {
		o.source = string(catalog.KindCatalog)
		if cfg.Catalog.Manifest != "" {
			o.source = string(catalog.KindManifest)
		}
	}
	if o.file == "" && o.source == string(catalog.KindManifest) {
		o.file = cfg.Catalog.Manifest
	}
}

// candidates fetches the unfiltered plugin list and a description of where it came from
func (o *syncOptions) candidates(ctx context.Context, view installedSource) ([]plugin.Descriptor, string, error) {
	if o.source == sourceInstalled {
		items, err := view.List(ctx)
		if err != nil {
			return nil, "", err
		}
		return items, "installed plugins", nil
	}

	location := o.file
	if o.source == string(catalog.KindCatalog) {
		location = cfg.Catalog.URL
	}

	src, err := catalog.New(catalog.Kind(o.source), location)
	if err != nil {
		return nil, "", err
	}
	items, err := src.Fetch(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load %s: %w", src.Describe(), err)
	}
	return items, src.Describe(), nil
}

type installedSource interface {
	List(ctx context.Context) ([]plugin.Descriptor, error)
}

// rules merges configured rules with command-line rules
func (o *syncOptions) rules() (include, exclude filter.Rules, err error) {
	inc, err := filter.ParseRules(o.include)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid --include: %w", err)
	}
	exc, err := filter.ParseRules(o.exclude)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid --exclude: %w", err)
	}
	return filter.Merge(cfg.Rules.Include, inc), filter.Merge(cfg.Rules.Exclude, exc), nil
}

func progressTitle(op reconcile.Operation, dryRun bool) string {
	switch {
	case dryRun:
		return "Planning"
	case op == reconcile.OperationUninstall:
		return "Uninstalling"
	default:
		return "Installing"
	}
}

func progressItem(o reconcile.Outcome) ui.ItemResult {
	item := ui.ItemResult{
		Name:   o.Plugin.ID,
		Status: ui.ItemStatus(o.Status),
		Detail: o.Reason,
	}
	if o.Version != "" {
		item.Name += "@" + o.Version
	}
	if o.Err != nil {
		item.Detail = o.Err.Error()
	}
	return item
}

// printReport prints the run summary. auditPath is shown when events were recorded.
func printReport(report *reconcile.Report, auditPath string) {
	fmt.Println()
	fmt.Println(ui.RenderSection("Summary", len(report.Outcomes)))
	fmt.Println(ui.Indent(ui.RenderDetail("Succeeded", fmt.Sprint(report.Count(reconcile.StatusSucceeded))), 1))
	failed := fmt.Sprint(report.Count(reconcile.StatusFailed))
	if report.HasFailures() {
		failed = ui.Warning(failed)
	}
	fmt.Println(ui.Indent(ui.RenderDetail("Failed", failed), 1))
	fmt.Println(ui.Indent(ui.RenderDetail("Skipped", fmt.Sprint(report.Count(reconcile.StatusSkipped))), 1))
	fmt.Println(ui.Indent(ui.RenderDetail("Run", report.RunID), 1))
	if auditPath != "" {
		fmt.Println(ui.Indent(ui.RenderDetail("Audit log", auditPath), 1))
	}

	if !report.HasFailures() {
		return
	}

	fmt.Println()
	fmt.Println(ui.RenderSection("Failures", report.Count(reconcile.StatusFailed)))
	for _, o := range report.Outcomes {
		if o.Status == reconcile.StatusFailed {
			ui.PrintError(fmt.Sprintf("%s: %v", o.Plugin.ID, o.Err))
		}
	}
}
