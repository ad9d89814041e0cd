package pricing

import (
	"testing"
	"time"
)

func entry(id string, price int64, region, group string, starts, ends time.Time) PriceListEntry {
	return PriceListEntry{
		ID: id, VariantID: "v1", Currency: "USD",
		Region: region, CustomerGroup: group,
		PriceMinor: price, StartsAt: starts, EndsAt: ends,
	}
}

func TestResolveUnitPricePrecedence(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)

	entries := []PriceListEntry{
		entry("generic", 1000, "", "", past, time.Time{}),
		entry("regional", 900, "us-ca", "", past, time.Time{}),
		entry("group", 950, "", "vip", past, time.Time{}),
		entry("regional-group", 800, "us-ca", "vip", past, time.Time{}),
	}

	cases := []struct {
		name   string
		region string
		group  string
		want   int64
	}{
		{"region and group beat all", "us-ca", "vip", 800},
		{"region beats group", "us-ca", "other", 900},
		{"group beats generic", "us-ny", "vip", 950},
		{"generic as fallback", "us-ny", "other", 1000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := ResolveUnitPrice(entries, c.region, c.group, now)
			if !ok {
				t.Fatal("expected a match")
			}
			if got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestResolveUnitPriceWindow(t *testing.T) {
	now := time.Now().UTC()

	entries := []PriceListEntry{
		entry("future", 500, "", "", now.Add(time.Hour), time.Time{}),
		entry("expired", 600, "", "", now.Add(-48*time.Hour), now.Add(-time.Hour)),
	}
	if _, ok := ResolveUnitPrice(entries, "us-ca", "", now); ok {
		t.Fatal("future and expired entries must not match")
	}

	entries = append(entries, entry("live", 700, "", "", now.Add(-time.Hour), now.Add(time.Hour)))
	got, ok := ResolveUnitPrice(entries, "us-ca", "", now)
	if !ok || got != 700 {
		t.Fatalf("got %d ok=%v, want 700 within window", got, ok)
	}
}

func TestResolveUnitPriceTieBreaksToNewest(t *testing.T) {
	now := time.Now().UTC()
	entries := []PriceListEntry{
		entry("older", 1000, "", "", now.Add(-48*time.Hour), time.Time{}),
		entry("newer", 1100, "", "", now.Add(-time.Hour), time.Time{}),
	}
	got, ok := ResolveUnitPrice(entries, "", "", now)
	if !ok || got != 1100 {
		t.Fatalf("got %d ok=%v, want newer entry 1100", got, ok)
	}
}

func TestResolveUnitPriceNoEntries(t *testing.T) {
	if _, ok := ResolveUnitPrice(nil, "us-ca", "vip", time.Now()); ok {
		t.Fatal("no entries must yield ok=false")
	}
}
