// Package dedup computes the deterministic fingerprint that defines
// "the same observed pick" across repeated fetches.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"pickwire/ingestion/internal/models"
)

// Key fingerprints (source, match, pick type, side, picker). The picker name
// is lowercased and trimmed so capitalization differences collapse to one
// key; all other fields participate verbatim. The returned key is the
// uniqueness boundary enforced at insertion time.
func Key(sourceID, matchID int64, pickType models.PickType, side models.Side, picker string) string {
	canonical := fmt.Sprintf("%d|%d|%s|%s|%s",
		sourceID,
		matchID,
		pickType,
		side,
		strings.ToLower(strings.TrimSpace(picker)),
	)

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
