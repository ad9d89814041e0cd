package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Variant(ctx context.Context, id string) (*Variant, error) {
	var v Variant
	err := r.DB.QueryRow(ctx, `
		SELECT id, sku, title, base_currency, base_price_minor
		FROM variants WHERE id=$1`, id).
		Scan(&v.ID, &v.SKU, &v.Title, &v.BaseCurrency, &v.BasePriceMinor)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repo) PriceListEntries(ctx context.Context, variantID, currency string) ([]PriceListEntry, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, variant_id, currency, COALESCE(region, ''),
		       COALESCE(customer_group, ''), price_minor, starts_at,
		       COALESCE(ends_at, 'epoch'::timestamptz)
		FROM price_list_entries
		WHERE variant_id=$1 AND currency=$2`, variantID, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceListEntry
	for rows.Next() {
		var e PriceListEntry
		if err := rows.Scan(&e.ID, &e.VariantID, &e.Currency, &e.Region,
			&e.CustomerGroup, &e.PriceMinor, &e.StartsAt, &e.EndsAt); err != nil {
			return nil, err
		}
		if e.EndsAt.Unix() == 0 {
			e.EndsAt = time.Time{}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) ShippingMethod(ctx context.Context, id string) (*ShippingMethod, error) {
	var m ShippingMethod
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, currency, amount_minor
		FROM shipping_methods WHERE id=$1`, id).
		Scan(&m.ID, &m.Name, &m.Currency, &m.AmountMinor)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShippingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Rate returns the most recent from->to rate effective at or before t.
func (r *Repo) Rate(ctx context.Context, from, to string, t time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	var s string
	err := r.DB.QueryRow(ctx, `
		SELECT rate FROM currency_rates
		WHERE from_currency=$1 AND to_currency=$2 AND as_of <= $3
		ORDER BY as_of DESC LIMIT 1`, from, to, t).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, ErrNoRate
	}
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(s)
}

// DefaultTaxRate returns the region's default rate. Regions with no default
// row are untaxed; that is a valid configuration, not an error.
func (r *Repo) DefaultTaxRate(ctx context.Context, region string) (decimal.Decimal, bool, error) {
	var s string
	err := r.DB.QueryRow(ctx, `
		SELECT rate FROM tax_rates
		WHERE region=$1 AND is_default`, region).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	return d, true, nil
}
