package token

import "time"

// DefaultRotationThreshold rotates at the midpoint of a token's lifetime,
// bounding the effective token age to roughly half its nominal TTL without
// rotating on every request.
const DefaultRotationThreshold = 0.5

// ShouldRotate reports whether a token is old enough to silently replace:
// true when the elapsed age strictly exceeds threshold * lifetime. At
// exactly the threshold no rotation occurs; the comparison is > by policy.
// Pure function of its inputs, no stored state.
func ShouldRotate(issuedAt, expiresAt, now time.Time, threshold float64) bool {
	lifetime := expiresAt.Sub(issuedAt)
	if lifetime <= 0 || threshold <= 0 {
		return false
	}
	age := now.Sub(issuedAt)
	return float64(age) > threshold*float64(lifetime)
}
