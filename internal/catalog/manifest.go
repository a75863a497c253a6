// ABOUTME: Local manifest source listing a desired set of plugin versions
// ABOUTME: Duplicate names collapse to the highest semantic version
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"

	"github.com/pluginsync/pluginsync/internal/plugin"
)

// Manifest reads {"plugins":{"versions":[...]}} documents
type Manifest struct {
	Path string
}

type manifestFile struct {
	Plugins struct {
		Versions []manifestEntry `json:"versions"`
	} `json:"plugins"`
}

type manifestEntry struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Signature string `json:"signature"`
	Info      struct {
		Version string `json:"version"`
	} `json:"info"`
}

func (m *Manifest) Describe() string {
	return "manifest " + m.Path
}

// Fetch reads and decodes the manifest file
func (m *Manifest) Fetch(_ context.Context) ([]plugin.Descriptor, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var doc manifestFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", m.Path, err)
	}

	var items []plugin.Descriptor
	index := make(map[string]int)
	for _, entry := range doc.Plugins.Versions {
		if entry.Name == "" {
			continue
		}
		d := entry.descriptor()

		if pos, seen := index[d.ID]; seen {
			if newerVersion(d, items[pos]) {
				items[pos] = d
			}
			continue
		}
		index[d.ID] = len(items)
		items = append(items, d)
	}
	return items, nil
}

func (e manifestEntry) descriptor() plugin.Descriptor {
	d := plugin.Descriptor{ID: e.Name, Name: plugin.Ptr(e.Name)}

	version := e.Version
	if version == "" {
		version = e.Info.Version
	}
	if version != "" {
		d.Version = plugin.Ptr(version)
	}
	if e.Signature != "" {
		d.Signature = plugin.Ptr(plugin.Signature(e.Signature))
	}
	return d
}

// newerVersion reports whether candidate carries a strictly higher semantic
// version than current. Unparseable versions never win.
func newerVersion(candidate, current plugin.Descriptor) bool {
	cv, ok := candidate.VersionString()
	if !ok {
		return false
	}
	next, err := semver.NewVersion(cv)
	if err != nil {
		return false
	}

	pv, ok := current.VersionString()
	if !ok {
		return true
	}
	prev, err := semver.NewVersion(pv)
	if err != nil {
		return true
	}
	return next.GreaterThan(prev)
}
