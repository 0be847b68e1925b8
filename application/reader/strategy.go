package reader

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Refresher is the surface the refresh strategies drive.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// IntervalRefreshStrategy refreshes on a fixed period until its context is
// cancelled. Refresh errors are logged and the loop keeps going; a replica
// that repeatedly fails to refresh still serves stale state by design of the
// bounded-staleness model.
type IntervalRefreshStrategy struct {
	refresher Refresher
	interval  time.Duration
	logger    *zap.Logger
}

// NewIntervalRefreshStrategy creates the background strategy.
func NewIntervalRefreshStrategy(refresher Refresher, interval time.Duration, logger *zap.Logger) *IntervalRefreshStrategy {
	return &IntervalRefreshStrategy{refresher: refresher, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *IntervalRefreshStrategy) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.refresher.Refresh(ctx); err != nil {
				s.logger.Error("background refresh failed", zap.Error(err))
			}
		}
	}
}

// QueryTriggeredRefreshStrategy refreshes lazily: callers invoke BeforeQuery
// ahead of serving a query, and a refresh runs only when the replica is older
// than the configured staleness bound. Suited to low-traffic readers where a
// background loop would mostly spin.
type QueryTriggeredRefreshStrategy struct {
	mu          sync.Mutex
	lastRefresh time.Time

	refresher Refresher
	maxAge    time.Duration
	now       func() time.Time
}

// NewQueryTriggeredRefreshStrategy creates the lazy strategy.
func NewQueryTriggeredRefreshStrategy(refresher Refresher, maxAge time.Duration) *QueryTriggeredRefreshStrategy {
	return &QueryTriggeredRefreshStrategy{refresher: refresher, maxAge: maxAge, now: time.Now}
}

// BeforeQuery refreshes the replica when it is staler than the bound. The
// refresh error is returned so the caller can decide whether to serve the
// stale state anyway.
func (s *QueryTriggeredRefreshStrategy) BeforeQuery(ctx context.Context) error {
	s.mu.Lock()
	stale := s.now().Sub(s.lastRefresh) >= s.maxAge
	if stale {
		s.lastRefresh = s.now()
	}
	s.mu.Unlock()
	if !stale {
		return nil
	}
	return s.refresher.Refresh(ctx)
}
