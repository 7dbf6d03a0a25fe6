// Package units resolves raw unit tokens from the wire to canonical unit
// identities. Two aliases that resolve to the same canonical id always merge
// into one timeline entry downstream.
package units

import (
	"context"
	"strings"
)

type Category string

const (
	CategoryPrimary   Category = "primary"
	CategoryAuxiliary Category = "auxiliary"
)

// Resolution describes a unit's canonical identity and how it is treated by
// response-time metrics.
type Resolution struct {
	CanonicalID      string
	Category         Category
	OwnDepartment    bool
	CountsForMetrics bool
}

type Resolver interface {
	Resolve(ctx context.Context, rawToken string) (Resolution, error)
}

// DefaultResolution is the conservative fallback for unknown tokens: the
// uppercased raw token, treated as mutual aid and excluded from metrics.
func DefaultResolution(rawToken string) Resolution {
	return Resolution{
		CanonicalID: NormalizeToken(rawToken),
		Category:    CategoryAuxiliary,
	}
}

func NormalizeToken(rawToken string) string {
	return strings.ToUpper(strings.TrimSpace(rawToken))
}
