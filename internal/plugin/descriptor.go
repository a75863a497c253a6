// ABOUTME: Canonical plugin descriptor shared by catalog sources and the engine
// ABOUTME: Optional fields are pointers so absence is never confused with a zero value
package plugin

import "strconv"

// Signature is the trust/provenance classification of a plugin
type Signature string

const (
	SignatureInternal Signature = "internal"
	SignatureValid    Signature = "valid"
	SignatureUnsigned Signature = "unsigned"
	SignatureInvalid  Signature = "invalid"
	SignatureModified Signature = "modified"
)

// Type is the plugin kind reported by the target or the catalog
type Type string

const (
	TypeApp            Type = "app"
	TypePanel          Type = "panel"
	TypeDatasource     Type = "datasource"
	TypeRenderer       Type = "renderer"
	TypeSecretsManager Type = "secretsmanager"
)

// Attribute names understood by Descriptor.Attribute
const (
	AttrID        = "id"
	AttrName      = "name"
	AttrVersion   = "version"
	AttrSignature     = "signature"
	AttrSignatureType = "signatureType"
	AttrType          = "type"
	AttrTypeCode      = "typeCode" // catalog spelling of "type"
	AttrInternal      = "internal"
)

// Descriptor describes one plugin. Only ID is guaranteed; sources populate
// whatever subset of the other fields their schema carries.
type Descriptor struct {
	ID        string     `json:"id"`
	Name      *string    `json:"name,omitempty"`
	Version   *string    `json:"version,omitempty"`
	Signature *Signature `json:"signature,omitempty"`
	// Publisher class such as grafana, commercial, or community
	SignatureType *string `json:"signatureType,omitempty"`
	Type          *Type   `json:"type,omitempty"`
	Internal      *bool   `json:"internal,omitempty"`
}

// Ptr returns a pointer to v, for building descriptors with optional fields
func Ptr[T any](v T) *T {
	return &v
}

// IsInternal reports whether the target system classifies this plugin as
// core/bundled. Only the signature counts; the catalog's Internal flag is a hint.
func (d Descriptor) IsInternal() bool {
	return d.Signature != nil && *d.Signature == SignatureInternal
}

// VersionString returns the version and whether one is present
func (d Descriptor) VersionString() (string, bool) {
	if d.Version == nil || *d.Version == "" {
		return "", false
	}
	return *d.Version, true
}

// TypeString returns the type, or "unknown" when absent
func (d Descriptor) TypeString() string {
	if d.Type == nil {
		return "unknown"
	}
	return string(*d.Type)
}

// SignatureString returns the signature, or "unknown" when absent
func (d Descriptor) SignatureString() string {
	if d.Signature == nil {
		return "unknown"
	}
	return string(*d.Signature)
}

// DisplayName prefers Name and falls back to ID
func (d Descriptor) DisplayName() string {
	if d.Name != nil && *d.Name != "" {
		return *d.Name
	}
	return d.ID
}

// Attribute returns the string form of a named attribute and whether the
// descriptor carries it. Unknown names report absent.
func (d Descriptor) Attribute(name string) (string, bool) {
	switch name {
	case AttrID:
		return d.ID, d.ID != ""
	case AttrName:
		if d.Name == nil {
			return "", false
		}
		return *d.Name, true
	case AttrVersion:
		if d.Version == nil {
			return "", false
		}
		return *d.Version, true
	case AttrSignature:
		if d.Signature == nil {
			return "", false
		}
		return string(*d.Signature), true
	case AttrSignatureType:
		if d.SignatureType == nil {
			return "", false
		}
		return *d.SignatureType, true
	case AttrType, AttrTypeCode:
		if d.Type == nil {
			return "", false
		}
		return string(*d.Type), true
	case AttrInternal:
		if d.Internal == nil {
			return "", false
		}
		return strconv.FormatBool(*d.Internal), true
	}
	return "", false
}

// IDs returns the identifiers of the given descriptors in order
func IDs(items []Descriptor) []string {
	ids := make([]string, len(items))
	for i, d := range items {
		ids[i] = d.ID
	}
	return ids
}
