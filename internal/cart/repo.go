package cart

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateCart(ctx context.Context, c *Cart) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.DB.Exec(ctx, `
		INSERT INTO carts(id, customer_id, region, currency, promo_code, shipping_method_id, created_at, updated_at)
		VALUES ($1, NULLIF($2,''), $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8)`,
		c.ID, c.CustomerID, c.Region, c.Currency, c.PromoCode, c.ShippingMethodID,
		c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *Repo) GetCart(ctx context.Context, id string) (*Cart, error) {
	var c Cart
	err := r.DB.QueryRow(ctx, `
		SELECT id, COALESCE(customer_id,''), region, currency,
		       COALESCE(promo_code,''), COALESCE(shipping_method_id,''),
		       completed_at, created_at, updated_at
		FROM carts WHERE id=$1`, id).
		Scan(&c.ID, &c.CustomerID, &c.Region, &c.Currency, &c.PromoCode,
			&c.ShippingMethodID, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT cart_id, variant_id, qty FROM cart_items
		WHERE cart_id=$1 ORDER BY added_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.CartID, &it.VariantID, &it.Qty); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}

func (r *Repo) SetItemQty(ctx context.Context, cartID, variantID string, qty int) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockOpenCart(ctx, tx, cartID); err != nil {
		return err
	}
	if qty <= 0 {
		if _, err := tx.Exec(ctx, `
			DELETE FROM cart_items WHERE cart_id=$1 AND variant_id=$2`,
			cartID, variantID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `
			INSERT INTO cart_items(cart_id, variant_id, qty, added_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (cart_id, variant_id) DO UPDATE SET qty = $3`,
			cartID, variantID, qty); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE carts SET updated_at = now() WHERE id=$1`, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) SetPromoCode(ctx context.Context, cartID, code string) error {
	return r.setField(ctx, cartID, `promo_code`, code)
}

func (r *Repo) SetShippingMethod(ctx context.Context, cartID, methodID string) error {
	return r.setField(ctx, cartID, `shipping_method_id`, methodID)
}

func (r *Repo) setField(ctx context.Context, cartID, column, value string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockOpenCart(ctx, tx, cartID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE carts SET `+column+` = NULLIF($2,''), updated_at = now()
		WHERE id=$1`, cartID, value); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockOpenCart(ctx context.Context, tx pgx.Tx, cartID string) error {
	var completed *time.Time
	err := tx.QueryRow(ctx, `
		SELECT completed_at FROM carts WHERE id=$1 FOR UPDATE`, cartID).
		Scan(&completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if completed != nil {
		return ErrCompleted
	}
	return nil
}
