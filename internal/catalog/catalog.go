// ABOUTME: Sources of candidate plugin descriptors for a reconciliation run
// ABOUTME: Each source schema is decoded separately and mapped to plugin.Descriptor
package catalog

import (
	"context"
	"fmt"

	"github.com/pluginsync/pluginsync/internal/plugin"
)

// Source produces a fresh descriptor list on every call
type Source interface {
	Fetch(ctx context.Context) ([]plugin.Descriptor, error)
	Describe() string
}

// Kind names a source type selectable from the command line
type Kind string

const (
	KindCatalog  Kind = "catalog"
	KindManifest Kind = "manifest"
	KindDump     Kind = "dump"
)

// New builds the source of the given kind. location is a URL for the
// remote catalog and a file path for the file-based kinds.
func New(kind Kind, location string) (Source, error) {
	switch kind {
	case KindCatalog:
		return NewRemote(location), nil
	case KindManifest:
		if location == "" {
			return nil, fmt.Errorf("manifest source requires a file")
		}
		return &Manifest{Path: location}, nil
	case KindDump:
		if location == "" {
			return nil, fmt.Errorf("dump source requires a file")
		}
		return &Dump{Path: location}, nil
	}
	return nil, fmt.Errorf("unknown source %q (valid: %s, %s, %s)", kind, KindCatalog, KindManifest, KindDump)
}
