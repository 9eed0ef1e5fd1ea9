// Package services – ReportService
//
// This file implements the top-orders report: orders joined with their
// product and user, sorted by total descending, capped at three rows. When a
// ReportCache is configured the result is cached until the next ingest that
// inserts rows or until the TTL elapses, whichever comes first.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-orders-backend/internal/domain"
	"github.com/tbourn/go-orders-backend/internal/observability"
	"github.com/tbourn/go-orders-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TopOrdersLimit is the number of rows returned by the report.
const TopOrdersLimit = 3

const topOrdersCacheKey = "report:top-orders:v1"

// ReportCache is the subset of cache.Redis used by the services.
type ReportCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ReportService serves GET /data.
type ReportService struct {
	DB *gorm.DB

	// Optional cache; nil reads straight from the database.
	Cache    ReportCache
	CacheTTL time.Duration
}

// Top returns at most TopOrdersLimit orders with the highest total. Cache
// failures are logged and fall through to the database.
func (s *ReportService) Top(ctx context.Context) ([]domain.TopOrder, error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Top",
		trace.WithAttributes(
			attribute.Int("limit", TopOrdersLimit),
			attribute.Bool("cache.enabled", s.Cache != nil),
		),
	)
	defer span.End()

	lg := zerolog.Ctx(ctx)

	if s.Cache != nil {
		var cached []domain.TopOrder
		hit, err := s.Cache.GetJSON(ctx, topOrdersCacheKey, &cached)
		switch {
		case err != nil:
			reportCache.WithLabelValues("error").Inc()
			lg.Warn().Err(err).Msg("report cache read failed")
		case hit:
			reportCache.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		default:
			reportCache.WithLabelValues("miss").Inc()
		}
	}

	rows, err := repo.TopOrders(ctx, s.DB, TopOrdersLimit)
	if err != nil {
		observability.Fail(span, err, "top orders query failed")
		return nil, err
	}

	if s.Cache != nil && s.CacheTTL > 0 {
		if err := s.Cache.SetJSON(ctx, topOrdersCacheKey, rows, s.CacheTTL); err != nil {
			lg.Warn().Err(err).Msg("report cache write failed")
		}
	}
	return rows, nil
}
