package domain

import "fmt"

// CatalogKind names one of the per-suite catalogs.
type CatalogKind string

// Catalog kinds exposed by a reporting suite.
const (
	CatalogMetrics  CatalogKind = "metrics"
	CatalogElements CatalogKind = "elements"
	CatalogEVars    CatalogKind = "evars"
	CatalogSegments CatalogKind = "segments"
)

// CatalogKinds lists every catalog kind in display order.
var CatalogKinds = []CatalogKind{CatalogMetrics, CatalogElements, CatalogEVars, CatalogSegments}

// ParseCatalogKind validates s as a catalog kind.
func ParseCatalogKind(s string) (CatalogKind, error) {
	for _, k := range CatalogKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrValidation("unknown catalog %q: use one of %v", s, CatalogKinds)
}

func (k CatalogKind) String() string { return string(k) }

// Validate reports whether k is a known catalog kind.
func (k CatalogKind) Validate() error {
	if _, err := ParseCatalogKind(string(k)); err != nil {
		return fmt.Errorf("catalog kind: %w", err)
	}
	return nil
}
