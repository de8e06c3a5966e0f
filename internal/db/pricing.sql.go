package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const getItemPricing = `-- name: GetItemPricing :one
SELECT i.id, i.store_id, i.price::text, i.currency, s.discount_cap::text
FROM items i
JOIN stores s ON s.id = i.store_id
WHERE i.id = $1`

func (q *Queries) GetItemPricing(ctx context.Context, itemID uuid.UUID) (ItemPricingRow, error) {
	var r ItemPricingRow
	err := q.db.QueryRow(ctx, getItemPricing, itemID).Scan(&r.ItemID, &r.StoreID, &r.Price, &r.Currency, &r.DiscountCap)
	return r, err
}

const listActiveDiscounts = `-- name: ListActiveDiscounts :many
SELECT percentage::text
FROM discounts
WHERE store_id = $1
  AND (item_id IS NULL OR item_id = $2)
  AND start_date <= $3
  AND end_date > $3
ORDER BY start_date, created_at, id`

// ListActiveDiscountsParams selects the discounts of one item at one instant.
type ListActiveDiscountsParams struct {
	StoreID uuid.UUID
	ItemID  uuid.UUID
	At      time.Time
}

// ListActiveDiscounts returns store-wide and item discounts whose window contains At.
func (q *Queries) ListActiveDiscounts(ctx context.Context, arg ListActiveDiscountsParams) ([]string, error) {
	rows, err := q.db.Query(ctx, listActiveDiscounts, arg.StoreID, arg.ItemID, arg.At)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getStoreOwner = `-- name: GetStoreOwner :one
SELECT owner_id FROM stores WHERE id = $1`

func (q *Queries) GetStoreOwner(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := q.db.QueryRow(ctx, getStoreOwner, storeID).Scan(&owner)
	return owner, err
}

const getItemStore = `-- name: GetItemStore :one
SELECT store_id FROM items WHERE id = $1`

func (q *Queries) GetItemStore(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var storeID uuid.UUID
	err := q.db.QueryRow(ctx, getItemStore, itemID).Scan(&storeID)
	return storeID, err
}

const createDiscount = `-- name: CreateDiscount :one
INSERT INTO discounts (id, store_id, item_id, percentage, start_date, end_date)
VALUES ($1, $2, $3, $4::numeric, $5, $6)
RETURNING id, store_id, item_id, percentage::text, start_date, end_date, created_at`

// CreateDiscountParams holds a new discount row.
type CreateDiscountParams struct {
	ID         uuid.UUID
	StoreID    uuid.UUID
	ItemID     *uuid.UUID
	Percentage string
	StartDate  time.Time
	EndDate    time.Time
}

func (q *Queries) CreateDiscount(ctx context.Context, arg CreateDiscountParams) (Discount, error) {
	var d Discount
	err := q.db.QueryRow(ctx, createDiscount,
		arg.ID, arg.StoreID, arg.ItemID, arg.Percentage, arg.StartDate, arg.EndDate,
	).Scan(&d.ID, &d.StoreID, &d.ItemID, &d.Percentage, &d.StartDate, &d.EndDate, &d.CreatedAt)
	if err != nil {
		return Discount{}, mapError("create discount", err)
	}
	return d, nil
}
