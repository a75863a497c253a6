// ABOUTME: Plugin endpoints of the admin API: health, list, install, uninstall, metrics
// ABOUTME: Maps the registry's wire records onto canonical descriptors
package grafana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pluginsync/pluginsync/internal/plugin"
)

// Plugin is one entry of GET /api/plugins as the registry returns it. A
// decoded Plugin re-encodes to the exact record it was decoded from, so
// fields not modelled here survive a list-then-dump round trip.
type Plugin struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	Type          string     `json:"type,omitempty"`
	Enabled       bool       `json:"enabled"`
	Signature     string     `json:"signature,omitempty"`
	SignatureType string     `json:"signatureType,omitempty"`
	LatestVersion string     `json:"latestVersion,omitempty"`
	HasUpdate     bool       `json:"hasUpdate,omitempty"`
	Info          PluginInfo `json:"info"`

	raw json.RawMessage
}

// PluginInfo carries the nested metadata block of a Plugin
type PluginInfo struct {
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Updated     string `json:"updated,omitempty"`
}

// pluginFields has Plugin's fields without its JSON methods
type pluginFields Plugin

func (p *Plugin) UnmarshalJSON(data []byte) error {
	var fields pluginFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*p = Plugin(fields)
	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (p Plugin) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	return json.Marshal(pluginFields(p))
}

// Descriptor maps the registry record onto the canonical descriptor
func (p Plugin) Descriptor() plugin.Descriptor {
	d := plugin.Descriptor{ID: p.ID}
	if p.Name != "" {
		d.Name = plugin.Ptr(p.Name)
	}
	if p.Info.Version != "" {
		d.Version = plugin.Ptr(p.Info.Version)
	}
	if p.Signature != "" {
		d.Signature = plugin.Ptr(plugin.Signature(p.Signature))
	}
	if p.SignatureType != "" {
		d.SignatureType = plugin.Ptr(p.SignatureType)
	}
	if p.Type != "" {
		d.Type = plugin.Ptr(plugin.Type(p.Type))
	}
	return d
}

// Health returns the raw /healthz payload
func (c *Client) Health(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ListPlugins returns the non-embedded plugins installed on the instance
func (c *Client) ListPlugins(ctx context.Context) ([]Plugin, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/plugins?embedded=0", nil)
	if err != nil {
		return nil, err
	}

	var plugins []Plugin
	if err := json.Unmarshal(data, &plugins); err != nil {
		return nil, fmt.Errorf("failed to parse plugin list: %w", err)
	}
	return plugins, nil
}

// Install installs version of the plugin with the given id
func (c *Client) Install(ctx context.Context, id, version string) error {
	body := map[string]string{"version": version}
	_, err := c.do(ctx, http.MethodPost, pluginPath(id, "install"), body)
	return err
}

// Uninstall removes the plugin with the given id
func (c *Client) Uninstall(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPost, pluginPath(id, "uninstall"), nil)
	return err
}

// Metrics returns the text-exposition metrics payload of one plugin
func (c *Client) Metrics(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, pluginPath(id, "metrics"), nil)
}

func pluginPath(id, action string) string {
	return "/api/plugins/" + url.PathEscape(id) + "/" + action
}
