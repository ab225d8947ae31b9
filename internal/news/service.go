package news

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/store"
	"advisory-trading-bot/internal/types"
)

// Service caches headlines from a source for a fixed TTL. When a refresh
// fails and an older copy exists, the stale copy is served instead.
type Service struct {
	src      interfaces.NewsSource
	ttl      time.Duration
	maxItems int
	now      func() time.Time

	mu        sync.Mutex
	items     []types.NewsItem
	fetchedAt time.Time
}

var _ interfaces.NewsSource = (*Service)(nil)

// NewService wraps src. A zero ttl disables caching; maxItems <= 0 keeps everything.
func NewService(src interfaces.NewsSource, ttl time.Duration, maxItems int) *Service {
	return &Service{src: src, ttl: ttl, maxItems: maxItems, now: time.Now}
}

// NewFromConfig builds the configured headline source behind a cache.
func NewFromConfig(cfg *store.Config) (*Service, error) {
	var src interfaces.NewsSource
	switch cfg.News.Source {
	case "sim":
		src = NewSimulated(cfg.Market.SimSeed)
	case "scrape":
		src = NewScraper(cfg.News.URL, cfg.TickTimeout(), 10*time.Second)
	default:
		return nil, fmt.Errorf("unknown news source %q", cfg.News.Source)
	}
	return NewService(src, time.Duration(cfg.News.CacheTTLSeconds)*time.Second, cfg.News.MaxItems), nil
}

func (s *Service) LatestHeadlines(ctx context.Context) ([]types.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.items != nil && s.ttl > 0 && now.Sub(s.fetchedAt) < s.ttl {
		logger.Debug(ctx, "Using cached headlines", "age_seconds", now.Sub(s.fetchedAt).Seconds())
		return cloneItems(s.items), nil
	}

	fresh, err := s.src.LatestHeadlines(ctx)
	if err != nil {
		if s.items != nil {
			logger.Warn(ctx, "Headline refresh failed, serving stale copy",
				"error", err, "age_seconds", now.Sub(s.fetchedAt).Seconds())
			return cloneItems(s.items), nil
		}
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].PublishedAt.After(fresh[j].PublishedAt)
	})
	if s.maxItems > 0 && len(fresh) > s.maxItems {
		fresh = fresh[:s.maxItems]
	}
	if fresh == nil {
		fresh = []types.NewsItem{}
	}

	s.items = fresh
	s.fetchedAt = now
	logger.Info(ctx, "Fetched fresh headlines", "count", len(fresh))
	return cloneItems(fresh), nil
}

// Invalidate drops the cached copy so the next call goes to the source.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.fetchedAt = time.Time{}
}

func cloneItems(in []types.NewsItem) []types.NewsItem {
	out := make([]types.NewsItem, len(in))
	copy(out, in)
	return out
}
