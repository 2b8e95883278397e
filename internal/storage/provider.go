// Package storage defines the record-set persistence abstraction.
package storage

// Kind names one persisted record-set.
type Kind string

// Persisted record-set kinds. Each is independently loadable and
// saveable as a JSON payload.
const (
	KindCollections Kind = "collections"
	KindSections    Kind = "sections"
	KindTypes       Kind = "types"
	KindItems       Kind = "items"
	KindFields      Kind = "fields"
	KindUsers       Kind = "users"
	KindBarcodes    Kind = "barcodes"
	KindSettings    Kind = "settings"
)

// AllKinds lists every record-set kind.
var AllKinds = []Kind{
	KindCollections, KindSections, KindTypes, KindItems,
	KindFields, KindUsers, KindBarcodes, KindSettings,
}

// Valid reports whether k is a known record-set kind.
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Provider is the interface for record-set persistence.
//
// Get returns the raw JSON payload for kind, or nil with no error when
// the record-set has never been saved: absence means empty, not failure.
// Save must be durable before it returns.
type Provider interface {
	Get(kind Kind) ([]byte, error)
	Save(kind Kind, payload []byte) error
}
