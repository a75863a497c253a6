// ABOUTME: Behavioural tests for the reconciliation run
// ABOUTME: Covers failure isolation, internal skips, throttling, cancellation, and audit
package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pluginsync/pluginsync/internal/events"
	"github.com/pluginsync/pluginsync/internal/grafana"
	"github.com/pluginsync/pluginsync/internal/plugin"
	"github.com/pluginsync/pluginsync/internal/ratelimit"
	"github.com/pluginsync/pluginsync/internal/reconcile"
)

type call struct {
	Op      string
	ID      string
	Version string
}

type fakeAPI struct {
	mu        sync.Mutex
	calls     []call
	fail      map[string]error
	healthErr error
	onCall    func(id string)
}

func (f *fakeAPI) Health(context.Context) (string, error) {
	return `{"database":"ok"}`, f.healthErr
}

func (f *fakeAPI) Install(_ context.Context, id, version string) error {
	return f.record(call{Op: "install", ID: id, Version: version})
}

func (f *fakeAPI) Uninstall(_ context.Context, id string) error {
	return f.record(call{Op: "uninstall", ID: id})
}

func (f *fakeAPI) record(c call) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(c.ID)
	}
	return f.fail[c.ID]
}

func (f *fakeAPI) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.calls))
	for i, c := range f.calls {
		ids[i] = c.ID
	}
	return ids
}

type countingLimiter struct {
	mu    sync.Mutex
	waits int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	l.waits++
	l.mu.Unlock()
	return ctx.Err()
}

type fakeLister struct {
	items []plugin.Descriptor
	err   error
}

func (f *fakeLister) List(context.Context) ([]plugin.Descriptor, error) {
	return f.items, f.err
}

type memWriter struct {
	events []*events.OperationEvent
}

func (m *memWriter) Write(e *events.OperationEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memWriter) Query(events.EventFilters) ([]*events.OperationEvent, error) {
	return m.events, nil
}

func desc(id, signature, version string) plugin.Descriptor {
	d := plugin.Descriptor{ID: id}
	if signature != "" {
		d.Signature = plugin.Ptr(plugin.Signature(signature))
	}
	if version != "" {
		d.Version = plugin.Ptr(version)
	}
	return d
}

func statuses(r *reconcile.Report) []reconcile.Status {
	out := make([]reconcile.Status, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Status
	}
	return out
}

var _ = Describe("Reconciler", func() {
	var (
		api     *fakeAPI
		limiter *countingLimiter
		ctx     context.Context
	)

	BeforeEach(func() {
		api = &fakeAPI{fail: map[string]error{}}
		limiter = &countingLimiter{}
		ctx = context.Background()
	})

	Describe("failure isolation", func() {
		It("records a failing plugin and carries on with the rest", func() {
			api.fail["b"] = &grafana.APIError{Method: "POST", Path: "/api/plugins/b/install", StatusCode: 500}
			rec := reconcile.New(api, reconcile.Options{Limiter: limiter})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationInstall,
				Plugins:   []plugin.Descriptor{desc("a", "valid", "1.0.0"), desc("b", "valid", "1.0.0"), desc("c", "valid", "1.0.0")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outcomes).To(HaveLen(3))
			Expect(statuses(report)).To(Equal([]reconcile.Status{
				reconcile.StatusSucceeded, reconcile.StatusFailed, reconcile.StatusSucceeded,
			}))
			Expect(report.Outcomes[1].Err).To(MatchError(ContainSubstring("status 500")))
			Expect(report.HasFailures()).To(BeTrue())
			Expect(api.ids()).To(Equal([]string{"a", "b", "c"}))
		})

		It("skips an uninstall the target answers with not found", func() {
			api.fail["gone"] = &grafana.APIError{Method: "POST", Path: "/api/plugins/gone/uninstall", StatusCode: 404}
			rec := reconcile.New(api, reconcile.Options{})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationUninstall,
				Plugins:   []plugin.Descriptor{desc("gone", "valid", ""), desc("a", "valid", "")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(statuses(report)).To(Equal([]reconcile.Status{reconcile.StatusSkipped, reconcile.StatusSucceeded}))
			Expect(report.Outcomes[0].Reason).To(Equal(reconcile.ReasonNotInstalled))
			Expect(report.HasFailures()).To(BeFalse())
		})

		It("still fails an install the target answers with not found", func() {
			api.fail["missing"] = &grafana.APIError{Method: "POST", Path: "/api/plugins/missing/install", StatusCode: 404}
			rec := reconcile.New(api, reconcile.Options{})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationInstall,
				Plugins:   []plugin.Descriptor{desc("missing", "", "1.0.0")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outcomes[0].Status).To(Equal(reconcile.StatusFailed))
		})

		It("does not roll back earlier successes", func() {
			api.fail["c"] = errors.New("boom")
			rec := reconcile.New(api, reconcile.Options{})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationUninstall,
				Plugins:   []plugin.Descriptor{desc("a", "valid", ""), desc("b", "valid", ""), desc("c", "valid", "")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Count(reconcile.StatusSucceeded)).To(Equal(2))
			for _, c := range api.calls {
				Expect(c.Op).To(Equal("uninstall"))
			}
		})
	})

	Describe("internal plugins", func() {
		It("skips internal plugins without calling the target", func() {
			rec := reconcile.New(api, reconcile.Options{Limiter: limiter})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationUninstall,
				Plugins:   []plugin.Descriptor{desc("a", "valid", ""), desc("b", "internal", ""), desc("c", "valid", "")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(statuses(report)).To(Equal([]reconcile.Status{
				reconcile.StatusSucceeded, reconcile.StatusSkipped, reconcile.StatusSucceeded,
			}))
			Expect(report.Outcomes[1].Reason).To(Equal(reconcile.ReasonInternal))
			Expect(api.ids()).To(Equal([]string{"a", "c"}))
			Expect(limiter.waits).To(Equal(2))
		})

		It("does not skip on the catalog's internal hint alone", func() {
			rec := reconcile.New(api, reconcile.Options{})
			hinted := plugin.Descriptor{ID: "hinted", Internal: plugin.Ptr(true), Version: plugin.Ptr("1.0.0")}

			report, err := rec.Run(ctx, reconcile.Target{Operation: reconcile.OperationInstall, Plugins: []plugin.Descriptor{hinted}})

			Expect(err).NotTo(HaveOccurred())
			Expect(statuses(report)).To(Equal([]reconcile.Status{reconcile.StatusSucceeded}))
		})
	})

	Describe("versions", func() {
		It("installs each plugin's own version", func() {
			rec := reconcile.New(api, reconcile.Options{})

			_, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationInstall,
				Plugins:   []plugin.Descriptor{desc("a", "", "1.2.3"), desc("b", "", "")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(api.calls).To(Equal([]call{
				{Op: "install", ID: "a", Version: "1.2.3"},
				{Op: "install", ID: "b", Version: ""},
			}))
		})

		It("applies the target version override", func() {
			rec := reconcile.New(api, reconcile.Options{})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationInstall,
				Version:   "2.0.0",
				Plugins:   []plugin.Descriptor{desc("a", "", "1.2.3")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(api.calls[0].Version).To(Equal("2.0.0"))
			Expect(report.Outcomes[0].Version).To(Equal("2.0.0"))
		})

		It("fails a plugin with an invalid version without calling the target", func() {
			rec := reconcile.New(api, reconcile.Options{})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationInstall,
				Plugins:   []plugin.Descriptor{desc("bad", "", "latest-ish"), desc("ok", "", "1.0.0")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outcomes[0].Status).To(Equal(reconcile.StatusFailed))
			Expect(report.Outcomes[0].Err).To(MatchError(reconcile.ErrInvalidVersion))
			Expect(api.ids()).To(Equal([]string{"ok"}))
		})

		It("rejects an invalid override before starting", func() {
			rec := reconcile.New(api, reconcile.Options{})

			report, err := rec.Run(ctx, reconcile.Target{Operation: reconcile.OperationInstall, Version: "nope"})

			Expect(err).To(MatchError(reconcile.ErrInvalidVersion))
			Expect(report).To(BeNil())
		})
	})

	Describe("skip installed", func() {
		It("skips plugins already at or above the desired version", func() {
			lister := &fakeLister{items: []plugin.Descriptor{
				desc("current", "valid", "1.2.0"),
				desc("newer", "valid", "3.0.0"),
				desc("older", "valid", "0.9.0"),
			}}
			rec := reconcile.New(api, reconcile.Options{SkipInstalled: true, Installed: lister})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationInstall,
				Plugins: []plugin.Descriptor{
					desc("current", "", "1.2.0"),
					desc("newer", "", "2.0.0"),
					desc("older", "", "1.0.0"),
					desc("absent", "", "1.0.0"),
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(statuses(report)).To(Equal([]reconcile.Status{
				reconcile.StatusSkipped, reconcile.StatusSkipped, reconcile.StatusSucceeded, reconcile.StatusSucceeded,
			}))
			Expect(report.Outcomes[0].Reason).To(Equal(reconcile.ReasonAlreadyInstalled))
			Expect(api.ids()).To(Equal([]string{"older", "absent"}))
		})

		It("fails the run when the installed list cannot be read", func() {
			rec := reconcile.New(api, reconcile.Options{SkipInstalled: true, Installed: &fakeLister{err: errors.New("down")}})

			_, err := rec.Run(ctx, reconcile.Target{Operation: reconcile.OperationInstall})
			Expect(err).To(MatchError("down"))
		})

		It("requires a lister", func() {
			rec := reconcile.New(api, reconcile.Options{SkipInstalled: true})

			_, err := rec.Run(ctx, reconcile.Target{Operation: reconcile.OperationInstall})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("fatal errors", func() {
		It("stops before any plugin when the target is unreachable", func() {
			api.healthErr = fmt.Errorf("%w: GET /healthz: connection refused", grafana.ErrUnreachable)
			rec := reconcile.New(api, reconcile.Options{})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationInstall,
				Plugins:   []plugin.Descriptor{desc("a", "", "1.0.0")},
			})

			Expect(err).To(MatchError(grafana.ErrUnreachable))
			Expect(report).To(BeNil())
			Expect(api.calls).To(BeEmpty())
		})

		It("rejects unknown operations", func() {
			rec := reconcile.New(api, reconcile.Options{})

			_, err := rec.Run(ctx, reconcile.Target{Operation: "upgrade"})
			Expect(err).To(MatchError(ContainSubstring("unknown operation")))
		})
	})

	Describe("dry run", func() {
		It("plans without calling the target or writing audit events", func() {
			writer := &memWriter{}
			rec := reconcile.New(api, reconcile.Options{DryRun: true, Tracker: events.NewTracker(writer, true)})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationUninstall,
				Plugins:   []plugin.Descriptor{desc("a", "valid", ""), desc("b", "internal", "")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outcomes[0].Reason).To(Equal(reconcile.ReasonDryRun))
			Expect(report.Outcomes[1].Reason).To(Equal(reconcile.ReasonInternal))
			Expect(api.calls).To(BeEmpty())
			Expect(writer.events).To(BeEmpty())
		})
	})

	Describe("cancellation", func() {
		It("skips the remaining plugins and returns the context error", func() {
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			api.onCall = func(id string) {
				if id == "b" {
					cancel()
				}
			}
			rec := reconcile.New(api, reconcile.Options{Limiter: limiter})

			report, err := rec.Run(cctx, reconcile.Target{
				Operation: reconcile.OperationUninstall,
				Plugins:   []plugin.Descriptor{desc("a", "", ""), desc("b", "", ""), desc("c", "", ""), desc("d", "", "")},
			})

			Expect(err).To(MatchError(context.Canceled))
			Expect(report.Outcomes).To(HaveLen(4))
			Expect(statuses(report)).To(Equal([]reconcile.Status{
				reconcile.StatusSucceeded, reconcile.StatusSucceeded, reconcile.StatusSkipped, reconcile.StatusSkipped,
			}))
			Expect(report.Outcomes[3].Reason).To(Equal(reconcile.ReasonCancelled))
			Expect(api.ids()).To(Equal([]string{"a", "b"}))
		})

		It("aborts a pending rate-limit wait", func() {
			cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			rec := reconcile.New(api, reconcile.Options{Limiter: ratelimit.NewFixed(time.Hour)})

			start := time.Now()
			report, err := rec.Run(cctx, reconcile.Target{
				Operation: reconcile.OperationUninstall,
				Plugins:   []plugin.Descriptor{desc("a", "", ""), desc("b", "", "")},
			})

			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
			Expect(err).To(HaveOccurred())
			Expect(statuses(report)).To(Equal([]reconcile.Status{reconcile.StatusSucceeded, reconcile.StatusSkipped}))
		})
	})

	Describe("throttling", func() {
		It("waits on the limiter before every remote call", func() {
			rec := reconcile.New(api, reconcile.Options{Limiter: limiter})

			_, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationUninstall,
				Plugins:   []plugin.Descriptor{desc("a", "", ""), desc("b", "", ""), desc("c", "", "")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(limiter.waits).To(Equal(3))
		})

		It("spaces calls with a fixed limiter", func() {
			interval := 20 * time.Millisecond
			rec := reconcile.New(api, reconcile.Options{Limiter: ratelimit.NewFixed(interval)})

			start := time.Now()
			_, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationUninstall,
				Plugins:   []plugin.Descriptor{desc("a", "", ""), desc("b", "", ""), desc("c", "", "")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(time.Since(start)).To(BeNumerically(">=", 2*interval-5*time.Millisecond))
		})
	})

	Describe("parallel workers", func() {
		It("keeps input order and shares the limiter", func() {
			rec := reconcile.New(api, reconcile.Options{Limiter: limiter, Workers: 4})
			var plugins []plugin.Descriptor
			for i := 0; i < 20; i++ {
				plugins = append(plugins, desc(fmt.Sprintf("p%02d", i), "valid", ""))
			}
			api.fail["p07"] = errors.New("boom")

			report, err := rec.Run(ctx, reconcile.Target{Operation: reconcile.OperationUninstall, Plugins: plugins})

			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outcomes).To(HaveLen(20))
			for i, o := range report.Outcomes {
				Expect(o.Plugin.ID).To(Equal(plugins[i].ID))
			}
			Expect(report.Outcomes[7].Status).To(Equal(reconcile.StatusFailed))
			Expect(report.Count(reconcile.StatusSucceeded)).To(Equal(19))
			Expect(limiter.waits).To(Equal(20))
		})
	})

	Describe("reporting", func() {
		It("emits each outcome and writes audit events", func() {
			writer := &memWriter{}
			var seen []string
			api.fail["b"] = errors.New("boom")
			rec := reconcile.New(api, reconcile.Options{
				Tracker:      events.NewTracker(writer, true),
				TargetURL:    "http://grafana:3000",
				AuditContext: map[string]string{"uid": "abc"},
				OnOutcome:    func(o reconcile.Outcome) { seen = append(seen, o.Plugin.ID) },
			})

			report, err := rec.Run(ctx, reconcile.Target{
				Operation: reconcile.OperationInstall,
				Plugins:   []plugin.Descriptor{desc("a", "", "1.0.0"), desc("b", "", "1.0.0"), desc("c", "internal", "")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(report.RunID).NotTo(BeEmpty())
			Expect(seen).To(Equal([]string{"a", "b", "c"}))
			Expect(writer.events).To(HaveLen(3))

			failed := writer.events[1]
			Expect(failed.RunID).To(Equal(report.RunID))
			Expect(failed.Operation).To(Equal("install"))
			Expect(failed.Target).To(Equal("http://grafana:3000"))
			Expect(failed.Status).To(Equal("failed"))
			Expect(failed.Error).To(Equal("boom"))
			Expect(failed.Context).To(HaveKeyWithValue("uid", "abc"))
			Expect(writer.events[2].Reason).To(Equal(reconcile.ReasonInternal))
		})

		It("returns an empty report for an empty target", func() {
			rec := reconcile.New(api, reconcile.Options{})

			report, err := rec.Run(ctx, reconcile.Target{Operation: reconcile.OperationInstall})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outcomes).To(BeEmpty())
		})
	})
})
