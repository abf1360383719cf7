// Package fsck implements the namespace-consistency checker: the traversal,
// health-evaluation and reporting engine that turns raw block-location
// metadata into a single verdict per invocation, plus the list-corrupt and
// move-to-quarantine modes.
package fsck

// Verdict is the health classification of a block, a file, or a whole
// walked subtree. Values are ordered by severity so aggregation is a plain
// max: VerdictMissing > VerdictCorrupt > VerdictUnderReplicated >
// VerdictHealthy.
type Verdict int

const (
	// VerdictHealthy means every block has at least the target number of
	// live non-corrupt replicas
	VerdictHealthy Verdict = iota

	// VerdictUnderReplicated means at least one block has fewer live
	// replicas than the target, but every block has at least one
	VerdictUnderReplicated

	// VerdictCorrupt means at least one block has zero live non-corrupt
	// replicas but at least one corruption report
	VerdictCorrupt

	// VerdictMissing means at least one declared block has no replicas at
	// all and no corruption report
	VerdictMissing
)

func (v Verdict) String() string {
	switch v {
	case VerdictHealthy:
		return "HEALTHY"
	case VerdictUnderReplicated:
		return "UNDER-REPLICATED"
	case VerdictCorrupt:
		return "CORRUPT"
	case VerdictMissing:
		return "MISSING"
	default:
		return "UNKNOWN"
	}
}

// Unrecoverable reports whether v means the data cannot be read back:
// every replica is gone or failed verification.
func (v Verdict) Unrecoverable() bool {
	return v == VerdictCorrupt || v == VerdictMissing
}

// worse returns the higher-severity of two verdicts.
func worse(a, b Verdict) Verdict {
	if b > a {
		return b
	}
	return a
}
