// Package handlers provides HTTP handler implementations for the public API.
//
// This file declares the service interfaces the handlers depend on and the
// Handlers container wired by the router. Handlers are transport-thin: they
// bind and validate input, delegate to services, and map service errors to
// the ErrorResponse envelope.
package handlers

import (
	"context"

	"github.com/tbourn/go-orders-backend/internal/domain"
)

// IngestService persists a batch of composite order records.
type IngestService interface {
	Ingest(ctx context.Context, recs []domain.IngestRecord) (domain.IngestSummary, error)
}

// ReportService produces the top-orders report.
type ReportService interface {
	Top(ctx context.Context) ([]domain.TopOrder, error)
}

// IdempotencyStore persists and replays responses keyed by Idempotency-Key.
type IdempotencyStore interface {
	Find(ctx context.Context, scope, key string) (*domain.Idempotency, error)
	Save(ctx context.Context, scope, key string, status int, body string) error
}

// PingFunc checks a backing dependency for readiness.
type PingFunc func(ctx context.Context) error

// Handlers groups the HTTP handlers and their dependencies.
type Handlers struct {
	ingest IngestService
	report ReportService
	idem   IdempotencyStore // optional
	ping   PingFunc         // optional
}

// New constructs and returns a Handlers instance bound to the given services.
// idem and ping may be nil.
func New(ingest IngestService, report ReportService, idem IdempotencyStore, ping PingFunc) *Handlers {
	return &Handlers{ingest: ingest, report: report, idem: idem, ping: ping}
}
