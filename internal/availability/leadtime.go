package availability

import "time"

// DefaultMinNotice is the minimum notice required before a consultation.
const DefaultMinNotice = 48 * time.Hour

// LeadTimeGuard decides whether a candidate slot leaves enough notice.
type LeadTimeGuard struct {
	minNotice time.Duration
}

// NewLeadTimeGuard builds a guard with the given minimum notice.
// Non-positive values fall back to the default.
func NewLeadTimeGuard(minNotice time.Duration) LeadTimeGuard {
	if minNotice <= 0 {
		minNotice = DefaultMinNotice
	}
	return LeadTimeGuard{minNotice: minNotice}
}

// Bookable reports whether slot is strictly later than now plus the
// minimum notice. A slot exactly at the boundary is not bookable.
// Both instants must already be anchored in the business timezone.
func (g LeadTimeGuard) Bookable(now, slot time.Time) bool {
	return slot.After(now.Add(g.minNotice))
}

// MinNotice exposes the configured notice window.
func (g LeadTimeGuard) MinNotice() time.Duration {
	return g.minNotice
}
