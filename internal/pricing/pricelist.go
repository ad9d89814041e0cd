package pricing

import "time"

// ResolveUnitPrice picks the unit price for a variant from candidate price
// list entries, falling back to ok=false when none applies. Precedence: the
// most specific non-expired entry wins, counting region and customer-group
// matches; ties break toward the most recently effective entry. Entries must
// already be filtered to the cart currency.
func ResolveUnitPrice(entries []PriceListEntry, region, customerGroup string, at time.Time) (int64, bool) {
	best := -1
	bestScore := -1
	for i, e := range entries {
		if at.Before(e.StartsAt) {
			continue
		}
		if !e.EndsAt.IsZero() && !at.Before(e.EndsAt) {
			continue
		}
		score := 0
		if e.Region != "" {
			if e.Region != region {
				continue
			}
			score += 2
		}
		if e.CustomerGroup != "" {
			if e.CustomerGroup != customerGroup {
				continue
			}
			score++
		}
		if score > bestScore ||
			(score == bestScore && best >= 0 && entries[best].StartsAt.Before(e.StartsAt)) {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return 0, false
	}
	return entries[best].PriceMinor, true
}
