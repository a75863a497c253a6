// ABOUTME: Remote plugin catalog source (grafana.com style /api/plugins)
// ABOUTME: Maps catalog items (slug, typeCode, internal) to descriptors
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pluginsync/pluginsync/internal/plugin"
)

// DefaultCatalogURL is the public plugin catalog
const DefaultCatalogURL = "https://grafana.com"

// Remote fetches descriptors from a catalog service
type Remote struct {
	URL    string
	Client *http.Client
}

// NewRemote creates a remote catalog source. An empty url selects DefaultCatalogURL.
func NewRemote(url string) *Remote {
	if url == "" {
		url = DefaultCatalogURL
	}
	return &Remote{
		URL:    strings.TrimRight(url, "/"),
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

type catalogResponse struct {
	Items []catalogItem `json:"items"`
}

type catalogItem struct {
	Slug          string `json:"slug"`
	Version       string `json:"version"`
	Internal      *bool  `json:"internal"`
	TypeCode      string `json:"typeCode"`
	SignatureType string `json:"signatureType"`
}

func (r *Remote) Describe() string {
	return "catalog " + r.URL
}

// Fetch queries <URL>/api/plugins
func (r *Remote) Fetch(ctx context.Context) ([]plugin.Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL+"/api/plugins", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plugin catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plugin catalog returned status %d", resp.StatusCode)
	}

	var body catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse plugin catalog: %w", err)
	}

	items := make([]plugin.Descriptor, 0, len(body.Items))
	for _, item := range body.Items {
		if item.Slug == "" {
			continue
		}
		items = append(items, item.descriptor())
	}
	return items, nil
}

func (i catalogItem) descriptor() plugin.Descriptor {
	d := plugin.Descriptor{
		ID:       i.Slug,
		Name:     plugin.Ptr(i.Slug),
		Internal: i.Internal,
	}
	if i.Version != "" {
		d.Version = plugin.Ptr(i.Version)
	}
	if i.TypeCode != "" {
		d.Type = plugin.Ptr(plugin.Type(i.TypeCode))
	}
	// The catalog lists only signed plugins and names the signer class,
	// never the registry's signature status
	if i.SignatureType != "" {
		d.SignatureType = plugin.Ptr(i.SignatureType)
	}
	return d
}
