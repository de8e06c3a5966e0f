package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-vetrina/internal/common"
	"github.com/noah-isme/backend-vetrina/internal/db"
	"github.com/noah-isme/backend-vetrina/internal/discount"
	"github.com/noah-isme/backend-vetrina/internal/money"
	"github.com/noah-isme/backend-vetrina/internal/obs"
)

var (
	// ErrNotStoreOwner is returned when a caller manages a store it does not own.
	ErrNotStoreOwner = common.NewAppError("FORBIDDEN", "store belongs to another owner", http.StatusForbidden, nil)
	// ErrItemOutsideStore is returned for item discounts naming another store's item.
	ErrItemOutsideStore = common.NewAppError("VALIDATION_FAILED", "item does not belong to the store", http.StatusUnprocessableEntity, nil)
	// ErrInvalidWindow is returned when a discount ends before it starts.
	ErrInvalidWindow = common.NewAppError("VALIDATION_FAILED", "end_date must be after start_date", http.StatusUnprocessableEntity, nil)
)

// Querier is the persistence surface the pricing service needs.
type Querier interface {
	GetItemPricing(ctx context.Context, itemID uuid.UUID) (db.ItemPricingRow, error)
	ListActiveDiscounts(ctx context.Context, arg db.ListActiveDiscountsParams) ([]string, error)
	GetStoreOwner(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error)
	GetItemStore(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	CreateDiscount(ctx context.Context, arg db.CreateDiscountParams) (db.Discount, error)
}

// Service computes price labels and manages store discounts.
type Service struct {
	queries    Querier
	cache      *Cache
	defaultCap decimal.Decimal
	metrics    *obs.DomainMetrics
	logger     *zerolog.Logger
	now        func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries    Querier
	Cache      *Cache
	DefaultCap decimal.Decimal
	Metrics    *obs.DomainMetrics
	Logger     *zerolog.Logger
	Now        func() time.Time
}

// NewService constructs a Service. A zero DefaultCap falls back to discount.DefaultCap.
func NewService(cfg ServiceConfig) *Service {
	limit := cfg.DefaultCap
	if !limit.IsPositive() {
		limit = discount.DefaultCap
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		queries:    cfg.Queries,
		cache:      cfg.Cache,
		defaultCap: limit,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Quote returns the current price label of itemID.
func (s *Service) Quote(ctx context.Context, itemID uuid.UUID) (label Label, err error) {
	ctx, span := obs.StartSpan(ctx, "pricing.quote", attribute.String("item.id", itemID.String()))
	defer func() { obs.EndSpan(span, err) }()

	if label, ok, err := s.cache.Get(ctx, itemID); err != nil {
		s.warn(err, "read cached label")
	} else if ok {
		s.observe("cache_hit", len(label.Discounts))
		return label, nil
	}

	row, err := s.queries.GetItemPricing(ctx, itemID)
	if err != nil {
		s.observe("error", 0)
		return Label{}, fmt.Errorf("load item %s: %w", itemID, err)
	}
	label, err = s.compute(ctx, row)
	if err != nil {
		s.observe("error", 0)
		return Label{}, err
	}
	if err := s.cache.Set(ctx, row.StoreID, itemID, label); err != nil {
		s.warn(err, "cache label")
	}
	s.observe("computed", len(label.Discounts))
	return label, nil
}

func (s *Service) compute(ctx context.Context, row db.ItemPricingRow) (Label, error) {
	currency, err := money.ParseCurrency(row.Currency)
	if err != nil {
		return Label{}, err
	}
	price, err := money.Parse(row.Price, currency)
	if err != nil {
		return Label{}, err
	}
	limit, err := s.capFor(row)
	if err != nil {
		return Label{}, err
	}

	raw, err := s.queries.ListActiveDiscounts(ctx, db.ListActiveDiscountsParams{
		StoreID: row.StoreID,
		ItemID:  row.ItemID,
		At:      s.now(),
	})
	if err != nil {
		return Label{}, fmt.Errorf("list discounts: %w", err)
	}
	percentages := make([]decimal.Decimal, 0, len(raw))
	for _, r := range raw {
		p, err := decimal.NewFromString(r)
		if err != nil {
			return Label{}, fmt.Errorf("%w: stored percentage %q", discount.ErrValidation, r)
		}
		percentages = append(percentages, p)
	}
	return Compute(price, percentages, limit)
}

func (s *Service) capFor(row db.ItemPricingRow) (decimal.Decimal, error) {
	if row.DiscountCap == nil {
		return s.defaultCap, nil
	}
	limit, err := decimal.NewFromString(*row.DiscountCap)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: store cap %q", discount.ErrValidation, *row.DiscountCap)
	}
	return limit, nil
}

// percentageScale matches discounts.percentage NUMERIC(5, 4).
const percentageScale = 4

// CreateDiscountInput is a new discount requested by a store owner.
type CreateDiscountInput struct {
	Percentage decimal.Decimal
	ItemID     *uuid.UUID
	StartDate  time.Time
	EndDate    time.Time
}

// DiscountView is the API representation of a discount.
type DiscountView struct {
	ID         string          `json:"id"`
	StoreID    string          `json:"store_id"`
	ItemID     *string         `json:"item_id,omitempty"`
	Percentage decimal.Decimal `json:"percentage"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
}

// CreateDiscount stores a discount for storeID on behalf of ownerID and drops
// the store's cached labels.
func (s *Service) CreateDiscount(ctx context.Context, ownerID, storeID uuid.UUID, in CreateDiscountInput) (DiscountView, error) {
	if !in.Percentage.Equal(in.Percentage.Round(percentageScale)) {
		return DiscountView{}, fmt.Errorf("%w: percentage %s has more than %d decimal places", discount.ErrValidation, in.Percentage, percentageScale)
	}
	if _, err := discount.NewSingle(in.Percentage); err != nil {
		return DiscountView{}, err
	}
	if !in.EndDate.After(in.StartDate) {
		return DiscountView{}, ErrInvalidWindow
	}

	owner, err := s.queries.GetStoreOwner(ctx, storeID)
	if err != nil {
		return DiscountView{}, fmt.Errorf("load store %s: %w", storeID, err)
	}
	if owner != ownerID {
		return DiscountView{}, ErrNotStoreOwner
	}
	if in.ItemID != nil {
		itemStore, err := s.queries.GetItemStore(ctx, *in.ItemID)
		if err != nil {
			return DiscountView{}, fmt.Errorf("load item %s: %w", *in.ItemID, err)
		}
		if itemStore != storeID {
			return DiscountView{}, ErrItemOutsideStore
		}
	}

	row, err := s.queries.CreateDiscount(ctx, db.CreateDiscountParams{
		ID:         uuid.New(),
		StoreID:    storeID,
		ItemID:     in.ItemID,
		Percentage: in.Percentage.String(),
		StartDate:  in.StartDate.UTC(),
		EndDate:    in.EndDate.UTC(),
	})
	if err != nil {
		return DiscountView{}, err
	}
	if err := s.cache.InvalidateStore(ctx, storeID); err != nil {
		s.warn(err, "invalidate store labels")
	}
	return toDiscountView(row)
}

func toDiscountView(row db.Discount) (DiscountView, error) {
	pct, err := decimal.NewFromString(row.Percentage)
	if err != nil {
		return DiscountView{}, fmt.Errorf("%w: stored percentage %q", discount.ErrValidation, row.Percentage)
	}
	view := DiscountView{
		ID:         row.ID.String(),
		StoreID:    row.StoreID.String(),
		Percentage: pct,
		StartDate:  row.StartDate,
		EndDate:    row.EndDate,
	}
	if row.ItemID != nil {
		id := row.ItemID.String()
		view.ItemID = &id
	}
	return view, nil
}

func (s *Service) observe(result string, discounts int) {
	if s.metrics == nil {
		return
	}
	s.metrics.PriceQuotes.WithLabelValues(result).Inc()
	if result != "error" {
		s.metrics.DiscountsDepth.Observe(float64(discounts))
	}
}

func (s *Service) warn(err error, msg string) {
	if s.logger == nil || errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Warn().Err(err).Msg(msg)
}

