package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-orders-backend/internal/domain"
	"github.com/tbourn/go-orders-backend/internal/repo"
)

// IdempotencyService stores and replays responses of completed requests that
// carried an Idempotency-Key header.
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Exists reports whether a live record exists for (scope, key). It matches
// middleware.IdempotencyLookup.
func (s *IdempotencyService) Exists(ctx context.Context, scope, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.DB, scope, key, now)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repo.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Find returns the stored response for (scope, key), or repo.ErrNotFound.
func (s *IdempotencyService) Find(ctx context.Context, scope, key string) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, s.DB, scope, key, time.Now().UTC())
}

// Save records a completed response. A concurrent request that already saved
// the same key wins; the duplicate is not an error.
func (s *IdempotencyService) Save(ctx context.Context, scope, key string, status int, body string) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, scope, key, status, body, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Sweep deletes expired records.
func (s *IdempotencyService) Sweep(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredIdempotency(ctx, s.DB, time.Now().UTC())
}

// RunJanitor sweeps expired records every interval until ctx is done.
func (s *IdempotencyService) RunJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	log := zerolog.Ctx(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("idempotency sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("idempotency sweep")
			}
		}
	}
}

// StartJanitor runs RunJanitor in the background. The returned stop function
// cancels the loop and blocks until any in-flight sweep has returned, so the
// caller can close the database afterwards. Calling stop more than once is safe.
func (s *IdempotencyService) StartJanitor(ctx context.Context, every time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunJanitor(ctx, every)
	}()
	var once sync.Once
	return func() {
		once.Do(cancel)
		<-done
	}
}
