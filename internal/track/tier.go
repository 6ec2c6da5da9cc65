package track

import (
	"fmt"
	"strings"
)

// Tier tags how a match candidate relates to the query.
type Tier int

const (
	// TierExact means only the whole-file digest matched.
	TierExact Tier = iota + 1
	// TierPattern means only the pattern digest matched.
	TierPattern
	// TierBoth means both digests matched.
	TierBoth
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPattern:
		return "pattern"
	case TierBoth:
		return "exact+pattern"
	default:
		return "unknown"
	}
}

// MarshalText renders the tier label in JSON/YAML output.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ClusterTier selects the identity value used to group duplicates.
type ClusterTier string

const (
	ClusterExact   ClusterTier = "exact"
	ClusterPattern ClusterTier = "pattern"
	ClusterSample  ClusterTier = "sample"
)

// ClusterTiers lists the supported cluster tiers.
var ClusterTiers = []ClusterTier{ClusterExact, ClusterPattern, ClusterSample}

// ParseClusterTier accepts the canonical names plus a few aliases.
func ParseClusterTier(value string) (ClusterTier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "exact", "hash", "file", "":
		return ClusterExact, nil
	case "pattern", "pattern_hash", "pattern-hash":
		return ClusterPattern, nil
	case "sample", "samples":
		return ClusterSample, nil
	default:
		return "", fmt.Errorf("unknown tier %q (want exact, pattern, or sample)", value)
	}
}
