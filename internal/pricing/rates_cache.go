package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/redisx"
)

// CachedRates puts a Redis TTL cache in front of a RateSource. Cache misses
// and Redis errors fall through to the source; Postgres stays the truth.
type CachedRates struct {
	Source RateSource
	Redis  *redis.Client
}

func (c *CachedRates) Rate(ctx context.Context, from, to string, t time.Time) (decimal.Decimal, error) {
	key := fmt.Sprintf(redisx.KeyRate, from, to)
	if s, err := c.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		if d, err := decimal.NewFromString(s); err == nil {
			return d, nil
		}
	}
	d, err := c.Source.Rate(ctx, from, to, t)
	if err != nil {
		return decimal.Decimal{}, err
	}
	_ = c.Redis.Set(ctx, key, d.String(), redisx.TTLRateCache).Err()
	return d, nil
}

func (c *CachedRates) DefaultTaxRate(ctx context.Context, region string) (decimal.Decimal, bool, error) {
	key := fmt.Sprintf(redisx.KeyTaxRate, region)
	if s, err := c.Redis.Get(ctx, key).Result(); err == nil {
		if s == "" {
			return decimal.Decimal{}, false, nil
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d, true, nil
		}
	}
	d, ok, err := c.Source.DefaultTaxRate(ctx, region)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	val := ""
	if ok {
		val = d.String()
	}
	_ = c.Redis.Set(ctx, key, val, redisx.TTLRateCache).Err()
	return d, ok, nil
}
