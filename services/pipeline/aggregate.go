package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"creator-missions/pkg/metricsource"
	"creator-missions/services/claim"
)

// Aggregate is the engagement of a claim summed over its content items.
type Aggregate struct {
	metricsource.PublicMetrics
	Contents int
}

// AggregateSnapshots folds snapshots, oldest first, into per-content
// counters where a later fetch of the same content replaces the earlier one,
// then sums across content. Public counters are running totals, so a replayed
// metrics fetch appends a newer snapshot of the same post and only that one
// counts. Input order must be Store.ListMetricsSnapshots order (fetched_at,
// then id).
func AggregateSnapshots(snapshots []*claim.MetricsSnapshot) Aggregate {
	latest := make(map[string]metricsource.PublicMetrics, len(snapshots))
	order := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		if _, seen := latest[s.ContentID]; !seen {
			order = append(order, s.ContentID)
		}
		latest[s.ContentID] = metricsource.PublicMetrics{
			Impressions: s.Impressions,
			Likes:       s.Likes,
			Replies:     s.Replies,
			Quotes:      s.Quotes,
			Reposts:     s.Reposts,
		}
	}

	var agg Aggregate
	for _, id := range order {
		agg.PublicMetrics = agg.PublicMetrics.Add(latest[id])
	}
	agg.Contents = len(order)
	return agg
}

// Digest is the hex SHA-256 of the canonical JSON of the counters. Field
// order is fixed by the PublicMetrics struct.
func Digest(m metricsource.PublicMetrics) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func decodeDigest(digest string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(digest)
	if err != nil {
		return out, err
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("digest has %d bytes, want %d", len(raw), len(out))
	}
	copy(out[:], raw)
	return out, nil
}
