// ABOUTME: Tests for plugin metrics extraction and per-plugin failure isolation
// ABOUTME: Uses canned text-exposition payloads
package metrics_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pluginsync/pluginsync/internal/metrics"
)

const payload = `# HELP go_goroutines Number of goroutines that currently exist.
# TYPE go_goroutines gauge
go_goroutines 12
# HELP process_max_fds Maximum number of open file descriptors.
# TYPE process_max_fds gauge
process_max_fds 1024
# HELP process_open_fds Number of open file descriptors.
# TYPE process_open_fds gauge
process_open_fds 42
`

type fakeFetcher struct {
	payloads map[string]string
	errs     map[string]error
	calls    []string
}

func (f *fakeFetcher) Metrics(_ context.Context, id string) ([]byte, error) {
	f.calls = append(f.calls, id)
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return []byte(f.payloads[id]), nil
}

var _ = Describe("Extract", func() {
	It("keeps allow-listed metrics in allow-list order", func() {
		values, err := metrics.Extract([]byte(payload), metrics.DefaultNames)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(Equal([]metrics.NamedValue{
			{Name: "process_open_fds", Value: "42"},
			{Name: "process_max_fds", Value: "1024"},
		}))
	})

	It("reads untyped samples", func() {
		values, err := metrics.Extract([]byte("process_open_fds 7\n"), metrics.DefaultNames)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(Equal([]metrics.NamedValue{{Name: "process_open_fds", Value: "7"}}))
	})

	It("returns an empty result when nothing matches", func() {
		values, err := metrics.Extract([]byte("go_goroutines 3\n"), metrics.DefaultNames)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(BeEmpty())
	})

	It("rejects malformed payloads", func() {
		_, err := metrics.Extract([]byte("process_open_fds {{{\n"), metrics.DefaultNames)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Aggregator", func() {
	It("isolates per-plugin failures", func() {
		fetcher := &fakeFetcher{
			payloads: map[string]string{"good": payload, "garbled": "process_open_fds {{{\n"},
			errs:     map[string]error{"down": errors.New("status 500")},
		}
		agg := metrics.NewAggregator(fetcher, nil, nil)

		results := agg.Collect(context.Background(), []string{"down", "good", "garbled"})

		Expect(fetcher.calls).To(Equal([]string{"down", "good", "garbled"}))
		Expect(results).To(HaveLen(3))
		Expect(results["down"]).To(BeEmpty())
		Expect(results["down"]).NotTo(BeNil())
		Expect(results["garbled"]).To(BeEmpty())
		Expect(results["good"]).To(HaveLen(2))
	})

	It("honours a custom allow-list", func() {
		fetcher := &fakeFetcher{payloads: map[string]string{"p": payload}}
		agg := metrics.NewAggregator(fetcher, []string{"go_goroutines"}, nil)

		results := agg.Collect(context.Background(), []string{"p"})
		Expect(results["p"]).To(Equal([]metrics.NamedValue{{Name: "go_goroutines", Value: "12"}}))
	})

	It("stops fetching once cancelled", func() {
		fetcher := &fakeFetcher{payloads: map[string]string{"a": payload, "b": payload}}
		agg := metrics.NewAggregator(fetcher, nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results := agg.Collect(ctx, []string{"a", "b"})
		Expect(fetcher.calls).To(BeEmpty())
		Expect(results).To(HaveKey("a"))
		Expect(results).To(HaveKey("b"))
	})
})
