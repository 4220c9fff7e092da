package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(seed|iterations|scenario_id,scenario_id,...|started_at)
// Returns hex-encoded hash (64 characters).
//
// The scenario id list is hashed in the order passed; callers are expected
// to keep scenario order stable between persistence and replay.
func ComputeRunID(
	seed int64,
	iterations int,
	scenarioIDs []string,
	startedAt int64,
) string {
	data := fmt.Sprintf("%d|%d|%s|%d",
		seed,
		iterations,
		strings.Join(scenarioIDs, ","),
		startedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
