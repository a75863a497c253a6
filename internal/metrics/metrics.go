// ABOUTME: Collects selected process metrics from installed plugins
// ABOUTME: Parses the Prometheus text format and keeps an allow-list of names
package metrics

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Default allow-list of metric names
const (
	ProcessOpenFDs = "process_open_fds"
	ProcessMaxFDs  = "process_max_fds"
)

// DefaultNames is used when an Aggregator is created without names
var DefaultNames = []string{ProcessOpenFDs, ProcessMaxFDs}

// NamedValue is one metric sample kept for a plugin
type NamedValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fetcher returns the raw metrics payload of one plugin
type Fetcher interface {
	Metrics(ctx context.Context, id string) ([]byte, error)
}

// Aggregator fetches and filters metrics for many plugins
type Aggregator struct {
	api    Fetcher
	names  []string
	logger *slog.Logger
}

// NewAggregator creates an aggregator keeping only names (DefaultNames if empty)
func NewAggregator(api Fetcher, names []string, logger *slog.Logger) *Aggregator {
	if len(names) == 0 {
		names = DefaultNames
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{api: api, names: names, logger: logger}
}

// Collect returns the allow-listed metrics for every id. A plugin whose
// metrics cannot be fetched or parsed gets an empty result; the others are
// still collected. Once ctx is done the remaining ids get empty results.
func (a *Aggregator) Collect(ctx context.Context, ids []string) map[string][]NamedValue {
	results := make(map[string][]NamedValue, len(ids))
	for _, id := range ids {
		results[id] = []NamedValue{}
		if ctx.Err() != nil {
			continue
		}

		payload, err := a.api.Metrics(ctx, id)
		if err != nil {
			a.logger.Warn("failed to fetch plugin metrics", "plugin", id, "error", err)
			continue
		}

		values, err := Extract(payload, a.names)
		if err != nil {
			a.logger.Warn("failed to parse plugin metrics", "plugin", id, "error", err)
			continue
		}
		a.logger.Debug("collected plugin metrics", "plugin", id, "count", len(values))
		results[id] = values
	}
	return results
}

// Extract parses a text-exposition payload and returns samples of the named
// metrics, in the order of names. Other metrics are ignored.
func Extract(payload []byte, names []string) ([]NamedValue, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("invalid metrics payload: %w", err)
	}

	values := []NamedValue{}
	for _, name := range names {
		family, ok := families[name]
		if !ok {
			continue
		}
		for _, m := range family.GetMetric() {
			v, ok := sampleValue(family.GetType(), m)
			if !ok {
				continue
			}
			values = append(values, NamedValue{Name: name, Value: strconv.FormatFloat(v, 'f', -1, 64)})
		}
	}
	return values, nil
}

// sampleValue returns the scalar value of gauge, counter, and untyped metrics
func sampleValue(t dto.MetricType, m *dto.Metric) (float64, bool) {
	switch t {
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), m.Gauge != nil
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), m.Counter != nil
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue(), m.Untyped != nil
	}
	return 0, false
}
