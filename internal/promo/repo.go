package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) FindByCode(ctx context.Context, code string) (*Promotion, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, code, kind, value, enabled, starts_at,
		       COALESCE(ends_at, 'epoch'::timestamptz), min_amount_minor,
		       COALESCE(customer_group, ''), usage_limit, per_customer_limit,
		       usage_count, created_at, updated_at
		FROM promotions WHERE lower(code) = lower($1)`, code)

	var p Promotion
	var value string
	err := row.Scan(&p.ID, &p.Code, &p.Kind, &value, &p.Enabled, &p.StartsAt,
		&p.EndsAt, &p.MinAmountMinor, &p.CustomerGroup, &p.UsageLimit,
		&p.PerCustomerLimit, &p.UsageCount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.EndsAt.Unix() == 0 {
		p.EndsAt = time.Time{} // NULL ends_at means no expiry
	}
	p.Value, err = decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("promotion %s: bad value: %w", p.ID, err)
	}
	return &p, nil
}

func (r *Repo) CustomerUsage(ctx context.Context, promotionID, customerID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(used_count, 0) FROM promotion_usages
		WHERE promotion_id=$1 AND customer_id=$2`, promotionID, customerID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Redeem is the compare-and-increment that closes the race between two
// checkouts redeeming the last remaining use: the conditional UPDATE only
// matches while the counter is still below the limit.
func (r *Repo) Redeem(ctx context.Context, promotionID, customerID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := redeemInTx(ctx, tx, promotionID, customerID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// redeemInTx lets the checkout repo run the same increment inside its own
// order-creation transaction.
func redeemInTx(ctx context.Context, tx pgx.Tx, promotionID, customerID string) error {
	ct, err := tx.Exec(ctx, `
		UPDATE promotions
		SET usage_count = usage_count + 1, updated_at = now()
		WHERE id = $1 AND (usage_limit = 0 OR usage_count < usage_limit)`,
		promotionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrLimitExceeded
	}
	if customerID == "" {
		return nil
	}

	var perLimit, used int
	err = tx.QueryRow(ctx, `
		SELECT p.per_customer_limit, COALESCE(u.used_count, 0)
		FROM promotions p
		LEFT JOIN promotion_usages u
		  ON u.promotion_id = p.id AND u.customer_id = $2
		WHERE p.id = $1
		FOR UPDATE OF p`, promotionID, customerID).Scan(&perLimit, &used)
	if err != nil {
		return err
	}
	if perLimit > 0 && used >= perLimit {
		return ErrLimitExceeded
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO promotion_usages(promotion_id, customer_id, used_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (promotion_id, customer_id)
		DO UPDATE SET used_count = promotion_usages.used_count + 1`,
		promotionID, customerID)
	return err
}

// RedeemInTx is the transactional entry point used by the checkout repo.
func RedeemInTx(ctx context.Context, tx pgx.Tx, promotionID, customerID string) error {
	return redeemInTx(ctx, tx, promotionID, customerID)
}
