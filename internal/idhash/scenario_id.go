package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeScenarioID computes a deterministic scenario_id using SHA256.
// Formula: SHA256(name|probability_annual|min|likely|max)
// Returns hex-encoded hash (64 characters).
//
// Floats are rendered with %g so that numerically equal estimates always
// hash to the same id.
func ComputeScenarioID(
	name string,
	probabilityAnnual float64,
	impactMin float64,
	impactLikely float64,
	impactMax float64,
) string {
	data := fmt.Sprintf("%s|%g|%g|%g|%g",
		name,
		probabilityAnnual,
		impactMin,
		impactLikely,
		impactMax,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
