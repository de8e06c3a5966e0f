package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-vetrina/internal/db"
	"github.com/noah-isme/backend-vetrina/internal/events"
	"github.com/noah-isme/backend-vetrina/internal/lock"
	"github.com/noah-isme/backend-vetrina/internal/money"
	"github.com/noah-isme/backend-vetrina/internal/obs"
	"github.com/noah-isme/backend-vetrina/internal/ranking"
)

// Store is the persistence surface of the feed.
type Store interface {
	ListFeedCandidates(ctx context.Context, arg db.ListFeedCandidatesParams) ([]db.FeedCandidateRow, error)
	GetItemRating(ctx context.Context, itemID uuid.UUID) (db.ItemRatingRow, error)
	RecordSwipe(ctx context.Context, arg db.RecordSwipeParams) error
}

// Locker serialises rating updates of one item across api instances.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// LikePublisher announces likes to background consumers.
type LikePublisher interface {
	PublishItemLiked(ctx context.Context, evt events.ItemLiked) error
}

// FeedItem is the API view of the item currently shown to a user.
type FeedItem struct {
	ID      string                `json:"id"`
	StoreID string                `json:"store_id"`
	Name    string                `json:"name"`
	ImgURL  *string               `json:"img_url,omitempty"`
	Price   money.Money           `json:"price"`
	Metrics ranking.RatingMetrics `json:"metrics"`
}

// SwipeResult reports the rating of the item after a swipe.
type SwipeResult struct {
	ItemID  string                `json:"item_id"`
	Liked   bool                  `json:"liked"`
	Metrics ranking.RatingMetrics `json:"metrics"`
}

type details struct {
	name   string
	imgURL *string
	price  money.Money
}

type session struct {
	mu       sync.Mutex
	queue    *ranking.FeedQueue
	details  map[uuid.UUID]details
	lastUsed time.Time
}

// Service keeps one feed session per user in memory.
type Service struct {
	store     Store
	locker    Locker
	publisher LikePublisher
	metrics   *obs.DomainMetrics
	logger    *zerolog.Logger
	batchSize int
	ttl       time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store      Store
	Locker     Locker
	Publisher  LikePublisher
	Metrics    *obs.DomainMetrics
	Logger     *zerolog.Logger
	BatchSize  int
	SessionTTL time.Duration
	Now        func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) *Service {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 200
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     cfg.Store,
		locker:    cfg.Locker,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		batchSize: batch,
		ttl:       ttl,
		now:       now,
		sessions:  make(map[uuid.UUID]*session),
	}
}

// Next returns the item the user should judge now. It keeps returning the
// same item until it is swiped.
func (s *Service) Next(ctx context.Context, userID uuid.UUID) (FeedItem, error) {
	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := s.ensureLoaded(ctx, userID, sess); err != nil {
		return FeedItem{}, err
	}
	item, err := sess.queue.Next()
	if err != nil {
		s.exhausted(sess, err)
		return FeedItem{}, err
	}
	return sess.view(item), nil
}

// Swipe records the user's verdict on the current item, persists the new
// rating and moves the feed forward.
func (s *Service) Swipe(ctx context.Context, userID uuid.UUID, like bool) (result SwipeResult, err error) {
	ctx, span := obs.StartSpan(ctx, "feed.swipe", attribute.Bool("swipe.like", like))
	defer func() { obs.EndSpan(span, err) }()

	sess := s.session(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := s.ensureLoaded(ctx, userID, sess); err != nil {
		return SwipeResult{}, err
	}
	item, err := sess.queue.Next()
	if err != nil {
		s.exhausted(sess, err)
		return SwipeResult{}, err
	}

	var fresh ranking.RatingMetrics
	err = s.withItemLock(ctx, item.ID, func(ctx context.Context) error {
		row, err := s.store.GetItemRating(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("load rating %s: %w", item.ID, err)
		}
		fresh = ranking.RatingMetrics{MMR: int(row.MMR), LikeCount: int(row.LikeCount), DislikeCount: int(row.DislikeCount)}
		next := fresh
		if like {
			next.AddLike()
		} else {
			next.AddDislike()
		}
		return s.store.RecordSwipe(ctx, db.RecordSwipeParams{
			SwipeID: uuid.New(),
			UserID:  userID,
			ItemID:  item.ID,
			IsLike:  like,
			Rating: db.ItemRatingRow{
				MMR:          int32(next.MMR),
				LikeCount:    int32(next.LikeCount),
				DislikeCount: int32(next.DislikeCount),
			},
		})
	})
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			// Swiped from another session already; never show it again.
			sess.queue.Skip()
		}
		return SwipeResult{}, err
	}

	*item.Metrics = fresh
	if err := sess.queue.Swipe(like); err != nil {
		return SwipeResult{}, err
	}
	s.countSwipe(like)
	if like {
		s.publishLike(ctx, userID, item)
	}
	return SwipeResult{ItemID: item.ID.String(), Liked: like, Metrics: *item.Metrics}, nil
}

// Reset drops the user's session; the next call rebuilds it from the database.
func (s *Service) Reset(userID uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.updateGauge()
	s.mu.Unlock()
}

// Sweep evicts sessions idle for longer than the session TTL and returns how
// many were dropped.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue
		}
		idle := sess.lastUsed.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			dropped++
		}
	}
	s.updateGauge()
	return dropped
}

// Run sweeps idle sessions every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && s.logger != nil {
				s.logger.Debug().Int("sessions", n).Msg("evicted idle feed sessions")
			}
		}
	}
}

func (s *Service) session(userID uuid.UUID) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{lastUsed: s.now()}
		s.sessions[userID] = sess
		s.updateGauge()
	}
	return sess
}

// ensureLoaded builds the queue on first use and refreshes the idle clock.
// Callers hold sess.mu.
func (s *Service) ensureLoaded(ctx context.Context, userID uuid.UUID, sess *session) error {
	sess.lastUsed = s.now()
	if sess.queue != nil {
		return nil
	}
	rows, err := s.store.ListFeedCandidates(ctx, db.ListFeedCandidatesParams{UserID: userID, Limit: int32(s.batchSize)})
	if err != nil {
		return fmt.Errorf("load feed candidates: %w", err)
	}
	items := make([]*ranking.Item, 0, len(rows))
	sess.details = make(map[uuid.UUID]details, len(rows))
	for _, row := range rows {
		price, err := parsePrice(row)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn().Err(err).Str("item_id", row.ID.String()).Msg("skip item with invalid price")
			}
			continue
		}
		metrics := ranking.RatingMetrics{MMR: int(row.MMR), LikeCount: int(row.LikeCount), DislikeCount: int(row.DislikeCount)}
		items = append(items, &ranking.Item{ID: row.ID, StoreID: row.StoreID, Metrics: &metrics})
		sess.details[row.ID] = details{name: row.Name, imgURL: row.ImgURL, price: price}
	}
	sess.queue = ranking.NewFeedQueue(items)
	return nil
}

func parsePrice(row db.FeedCandidateRow) (money.Money, error) {
	currency, err := money.ParseCurrency(row.Currency)
	if err != nil {
		return money.Money{}, err
	}
	return money.Parse(row.Price, currency)
}

func (sess *session) view(item *ranking.Item) FeedItem {
	d := sess.details[item.ID]
	return FeedItem{
		ID:      item.ID.String(),
		StoreID: item.StoreID.String(),
		Name:    d.name,
		ImgURL:  d.imgURL,
		Price:   d.price,
		Metrics: *item.Metrics,
	}
}

func (s *Service) withItemLock(ctx context.Context, itemID uuid.UUID, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, lock.RatingKey(itemID), fn)
}

func (s *Service) publishLike(ctx context.Context, userID uuid.UUID, item *ranking.Item) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishItemLiked(context.WithoutCancel(ctx), events.ItemLiked{
		ItemID:  item.ID,
		StoreID: item.StoreID,
		UserID:  userID,
	})
	if err != nil && s.logger != nil {
		s.logger.Error().Err(err).Str("item_id", item.ID.String()).Msg("publish item liked")
	}
}

func (s *Service) countSwipe(like bool) {
	if s.metrics == nil {
		return
	}
	verdict := "dislike"
	if like {
		verdict = "like"
	}
	s.metrics.Swipes.WithLabelValues(verdict).Inc()
}

// exhausted forgets a drained queue so the next call fetches the following
// batch of unswiped items. Callers hold sess.mu.
func (s *Service) exhausted(sess *session, err error) {
	if !errors.Is(err, ranking.ErrFeedEmpty) {
		return
	}
	sess.queue = nil
	if s.metrics != nil {
		s.metrics.FeedEmpty.Inc()
	}
}

// updateGauge must be called with s.mu held.
func (s *Service) updateGauge() {
	if s.metrics != nil {
		s.metrics.FeedSessions.Set(float64(len(s.sessions)))
	}
}
