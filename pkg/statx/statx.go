// Package statx provides small numeric helpers shared across the
// orchestration core: score clamping, percentile estimation over bounded
// samples, and a stable string hash used for A/B bucketing.
package statx

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sort"
)

// Clamp01 coerces v into the [0,1] interval. NaN maps to 0 so that a
// misbehaving scorer can never poison downstream ordering.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Percentile returns the p-th percentile (p in [0,100]) of the sample using
// nearest-rank on a sorted copy. An empty sample yields 0.
func Percentile(sample []float64, p float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// StableHash maps s to a uint64 that is stable across processes and
// releases. Used for deterministic A/B assignment; not for security.
func StableHash(s string) uint64 {
	h := sha256.Sum256([]byte(s))
	return binary.BigEndian.Uint64(h[:8])
}

// Bucket100 maps s to a bucket in [0,100). Assignment to the A arm of a
// traffic split s_a happens when float64(Bucket100(id))/100 < s_a.
func Bucket100(s string) int {
	return int(StableHash(s) % 100)
}
