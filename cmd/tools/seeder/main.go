package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-vetrina/internal/config"
	"github.com/noah-isme/backend-vetrina/internal/migrations"
)

type seedStore struct {
	Name        string
	Owner       uuid.UUID
	DiscountCap *string
}

type seedItem struct {
	Name     string
	Store    string
	Price    string
	Currency string
	Image    string
}

// Fixed owner ids so tokens minted for local testing stay valid across reseeds.
var (
	ownerAtelier = uuid.MustParse("8a9f2c1e-0000-4000-8000-000000000001")
	ownerNord    = uuid.MustParse("8a9f2c1e-0000-4000-8000-000000000002")
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	cap25 := "0.25"
	stores := []seedStore{
		{Name: "Atelier Milano", Owner: ownerAtelier, DiscountCap: &cap25},
		{Name: "Nord Supply", Owner: ownerNord},
	}

	storeIDs := seedStores(ctx, pool, stores)

	items := []seedItem{
		{"Linen Shirt", "Atelier Milano", "89.00", "EUR", "https://images.unsplash.com/photo-1596755094514-f87e34085b2c?w=800"},
		{"Wool Blazer", "Atelier Milano", "249.00", "EUR", "https://images.unsplash.com/photo-1593030761757-71fae45fa0e7?w=800"},
		{"Leather Loafers", "Atelier Milano", "159.90", "EUR", "https://images.unsplash.com/photo-1533867617858-e7b97e060509?w=800"},
		{"Silk Scarf", "Atelier Milano", "45.50", "EUR", ""},
		{"Trail Jacket", "Nord Supply", "199.99", "USD", "https://images.unsplash.com/photo-1551028719-00167b16eac5?w=800"},
		{"Merino Beanie", "Nord Supply", "29.00", "USD", ""},
		{"Hiking Boots", "Nord Supply", "174.00", "USD", "https://images.unsplash.com/photo-1520639888713-7851133b1ed0?w=800"},
		{"Canvas Backpack", "Nord Supply", "89.95", "USD", "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=800"},
	}

	itemIDs := seedItems(ctx, pool, storeIDs, items)

	fmt.Println("Seeding Discounts...")
	now := time.Now().UTC().Truncate(time.Hour)
	discounts := []struct {
		Store      string
		Item       string
		Percentage string
	}{
		{"Atelier Milano", "", "0.10"},
		{"Atelier Milano", "Wool Blazer", "0.20"},
		{"Nord Supply", "Trail Jacket", "0.30"},
		{"Nord Supply", "Trail Jacket", "0.15"},
	}
	for _, d := range discounts {
		var itemID *uuid.UUID
		if d.Item != "" {
			id, ok := itemIDs[d.Item]
			if !ok {
				log.Printf("Missing item ID for %s", d.Item)
				continue
			}
			itemID = &id
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO discounts (id, store_id, item_id, percentage, start_date, end_date)
			VALUES ($1, $2, $3, $4::numeric, $5, $6)
		`, uuid.New(), storeIDs[d.Store], itemID, d.Percentage, now.Add(-24*time.Hour), now.Add(30*24*time.Hour))
		if err != nil {
			log.Printf("Failed to seed discount for %s: %v", d.Store, err)
		}
	}

	fmt.Println("Seeding completed.")
}

func seedStores(ctx context.Context, pool *pgxpool.Pool, stores []seedStore) map[string]uuid.UUID {
	fmt.Println("Seeding Stores...")
	ids := make(map[string]uuid.UUID, len(stores))
	for _, s := range stores {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `SELECT id FROM stores WHERE name = $1 AND owner_id = $2`, s.Name, s.Owner).Scan(&id)
		switch {
		case err == nil:
		case errors.Is(err, pgx.ErrNoRows):
			id = uuid.New()
			if _, err := pool.Exec(ctx, `
				INSERT INTO stores (id, owner_id, name, discount_cap)
				VALUES ($1, $2, $3, $4::numeric)
			`, id, s.Owner, s.Name, s.DiscountCap); err != nil {
				log.Printf("Failed to seed store %s: %v", s.Name, err)
				continue
			}
		default:
			log.Printf("Failed to look up store %s: %v", s.Name, err)
			continue
		}
		ids[s.Name] = id
	}
	return ids
}

func seedItems(ctx context.Context, pool *pgxpool.Pool, storeIDs map[string]uuid.UUID, items []seedItem) map[string]uuid.UUID {
	fmt.Println("Seeding Items...")
	ids := make(map[string]uuid.UUID, len(items))
	for _, it := range items {
		storeID, ok := storeIDs[it.Store]
		if !ok {
			log.Printf("Missing store ID for %s", it.Store)
			continue
		}
		var img *string
		if it.Image != "" {
			img = &it.Image
		}

		var id uuid.UUID
		err := pool.QueryRow(ctx, `SELECT id FROM items WHERE store_id = $1 AND name = $2`, storeID, it.Name).Scan(&id)
		switch {
		case err == nil:
		case errors.Is(err, pgx.ErrNoRows):
			id = uuid.New()
			if _, err := pool.Exec(ctx, `
				INSERT INTO items (id, store_id, name, img_url, price, currency)
				VALUES ($1, $2, $3, $4, $5::numeric, $6)
			`, id, storeID, it.Name, img, it.Price, it.Currency); err != nil {
				log.Printf("Failed to seed item %s: %v", it.Name, err)
				continue
			}
		default:
			log.Printf("Failed to look up item %s: %v", it.Name, err)
			continue
		}
		ids[it.Name] = id
	}
	return ids
}
