// ABOUTME: Tests for the installed-plugin view and its classification helpers
// ABOUTME: Uses a fake lister instead of a live admin API
package registry_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pluginsync/pluginsync/internal/catalog"
	"github.com/pluginsync/pluginsync/internal/grafana"
	"github.com/pluginsync/pluginsync/internal/plugin"
	"github.com/pluginsync/pluginsync/internal/registry"
)

type fakeLister struct {
	plugins []grafana.Plugin
	err     error
}

func (f *fakeLister) ListPlugins(context.Context) ([]grafana.Plugin, error) {
	return f.plugins, f.err
}

var installed = []grafana.Plugin{
	{ID: "prometheus", Type: "datasource", Signature: "internal"},
	{ID: "text", Type: "panel", Signature: "internal"},
	{ID: "grafana-clock-panel", Type: "panel", Signature: "valid", Info: grafana.PluginInfo{Version: "2.1.3"}},
	{ID: "my-ds", Type: "datasource", Signature: "unsigned", Info: grafana.PluginInfo{Version: "0.1.0"}},
	{ID: "other-ds", Type: "datasource", Signature: "valid", Info: grafana.PluginInfo{Version: "1.0.0"}},
}

var _ = Describe("View", func() {
	It("lists installed plugins as descriptors", func() {
		view := registry.NewView(&fakeLister{plugins: installed}, nil)

		items, err := view.List(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(plugin.IDs(items)).To(Equal([]string{"prometheus", "text", "grafana-clock-panel", "my-ds", "other-ds"}))
	})

	It("wraps list failures", func() {
		view := registry.NewView(&fakeLister{err: errors.New("boom")}, nil)

		_, err := view.List(context.Background())
		Expect(err).To(MatchError(ContainSubstring("failed to list installed plugins")))
	})
})

var _ = Describe("classification", func() {
	var items []plugin.Descriptor

	BeforeEach(func() {
		items = nil
		for _, p := range installed {
			items = append(items, p.Descriptor())
		}
	})

	It("counts by type and signature", func() {
		counts := registry.Classify(items)

		Expect(counts).To(Equal(map[registry.Key]int{
			{Type: "datasource", Signature: "internal"}: 1,
			{Type: "datasource", Signature: "unsigned"}: 1,
			{Type: "datasource", Signature: "valid"}:    1,
			{Type: "panel", Signature: "internal"}:      1,
			{Type: "panel", Signature: "valid"}:         1,
		}))
		Expect(registry.Key{Type: "panel", Signature: "valid"}.String()).To(Equal("panel-valid"))
	})

	It("treats absent fields as unknown", func() {
		counts := registry.Classify([]plugin.Descriptor{{ID: "bare"}})
		Expect(counts).To(Equal(map[registry.Key]int{{Type: "unknown", Signature: "unknown"}: 1}))
	})

	It("sorts keys by type then signature", func() {
		keys := registry.SortedKeys(registry.Classify(items))
		var names []string
		for _, k := range keys {
			names = append(names, k.String())
		}
		Expect(names).To(Equal([]string{"datasource-internal", "datasource-unsigned", "datasource-valid", "panel-internal", "panel-valid"}))
	})

	It("partitions internal from external", func() {
		internal, external := registry.Partition(items)
		Expect(plugin.IDs(internal)).To(Equal([]string{"prometheus", "text"}))
		Expect(plugin.IDs(external)).To(Equal([]string{"grafana-clock-panel", "my-ds", "other-ds"}))
	})

	It("summarizes totals", func() {
		s := registry.Summarize(items)
		Expect(s.Total).To(Equal(5))
		Expect(s.Internal).To(Equal(2))
		Expect(s.External).To(Equal(3))
	})

	It("maps versions of plugins that report one", func() {
		Expect(registry.Versions(items)).To(Equal(map[string]string{
			"grafana-clock-panel": "2.1.3",
			"my-ds":               "0.1.0",
			"other-ds":            "1.0.0",
		}))
	})
})

var _ = Describe("WriteJSON", func() {
	It("writes the target's records unchanged", func() {
		view := registry.NewView(&fakeLister{plugins: decode(`[
			{"id":"grafana-clock-panel","type":"panel","enabled":true,"signature":"valid","signatureType":"grafana",
			 "latestVersion":"3.0.0","hasUpdate":true,"category":"panel",
			 "info":{"version":"2.1.3","description":"Clock panel","links":[{"name":"docs"}]}}
		]`)}, nil)
		records, err := view.Records(context.Background())
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "out", "external-plugins-all.json")
		Expect(registry.WriteJSON(path, records)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		var written []map[string]any
		Expect(json.Unmarshal(data, &written)).To(Succeed())
		Expect(written).To(HaveLen(1))
		Expect(written[0]).To(HaveKeyWithValue("enabled", true))
		Expect(written[0]).To(HaveKeyWithValue("latestVersion", "3.0.0"))
		Expect(written[0]).To(HaveKeyWithValue("category", "panel"))
		Expect(written[0]["info"]).To(HaveKeyWithValue("description", "Clock panel"))
		Expect(written[0]["info"]).To(HaveKey("links"))
	})

	It("writes a dump that the dump source can read back", func() {
		path := filepath.Join(GinkgoT().TempDir(), "external-plugins-all.json")

		Expect(registry.WriteJSON(path, installed)).To(Succeed())

		read, err := (&catalog.Dump{Path: path}).Fetch(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(read).To(Equal(registry.Descriptors(installed)))
	})
})

func decode(records string) []grafana.Plugin {
	var out []grafana.Plugin
	Expect(json.Unmarshal([]byte(records), &out)).To(Succeed())
	return out
}
