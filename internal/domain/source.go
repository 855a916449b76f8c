package domain

import (
	"fmt"
	"strings"
)

// SourceSystem labels the upstream ticketing system a record came from. The
// label is stored verbatim in the warehouse discriminator columns.
type SourceSystem string

const (
	SourceOcta  SourceSystem = "Octa"
	SourceSults SourceSystem = "Sults"
)

// SourceSystems lists every supported source in pipeline order.
var SourceSystems = []SourceSystem{SourceOcta, SourceSults}

// ParseSourceSystem resolves a case-insensitive source name.
func ParseSourceSystem(name string) (SourceSystem, error) {
	for _, s := range SourceSystems {
		if strings.EqualFold(string(s), strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown source system %q", name)
}

// Key returns the lower-case identifier used in configuration keys.
func (s SourceSystem) Key() string {
	return strings.ToLower(string(s))
}
