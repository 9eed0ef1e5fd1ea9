// Package services – IngestService
//
// This file implements IngestService, which turns a submitted batch of
// composite records into users, products and orders:
//
//  1. dedup: a stable first-wins filter over the batch;
//  2. projection into domain.FlatRecord;
//  3. validation of every record before any write;
//  4. per-record insert-or-skip, sequential in array order, one transaction
//     per record.
//
// Rows are never updated: the first sighting of a phone, product code or order
// number wins. A storage error stops the batch; records before it stay
// committed.
//
// Observability: Ingest is OpenTelemetry-instrumented and updates the
// ingest_* Prometheus counters.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/now"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-orders-backend/internal/domain"
	"github.com/tbourn/go-orders-backend/internal/observability"
	"github.com/tbourn/go-orders-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// IngestService validates and persists batches posted to /store.
type IngestService struct {
	DB *gorm.DB

	// Cache, when set, has the report key dropped after a batch that inserted
	// at least one row.
	Cache ReportCache

	// IncludeOrderNumber adds orderNumber to the dedup key so that distinct
	// orders for the same user/product survive the dedup pass.
	IncludeOrderNumber bool

	// MaxBatchSize caps the number of records per call; <= 0 disables it.
	MaxBatchSize int

	// UseOrderCreatedAt stamps orders with orders.createdAt when present.
	// Off by default: orders carry the user's createdAt.
	UseOrderCreatedAt bool
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() { validate = validator.New() })
	return validate
}

// dedupKey is the composite identity used by the dedup pass. OrderNumber stays
// zero unless IncludeOrderNumber is set.
type dedupKey struct {
	FullName     string
	Phone        string
	ProductCode  string
	ProductName  string
	ProductPrice string
	PriceNumber  bool
	CreatedAt    string
	OrderNumber  int64
}

func keyOf(r domain.IngestRecord, includeOrderNumber bool) dedupKey {
	k := dedupKey{
		FullName:     r.UserData.FullName,
		Phone:        r.UserData.Phone,
		ProductCode:  r.Products.ProductCode,
		ProductName:  r.Products.ProductName,
		ProductPrice: r.Products.ProductPrice.String(),
		PriceNumber:  r.Products.PriceIsNumber,
		CreatedAt:    r.UserData.CreatedAt,
	}
	if includeOrderNumber {
		k.OrderNumber = r.Orders.OrderNumber
	}
	return k
}

// dedupPositions returns the positions of the records that survive a stable
// first-wins filter, plus the positions of dropped records whose order number
// differs from the survivor they collapsed into.
func dedupPositions(recs []domain.IngestRecord, includeOrderNumber bool) (keep, lostOrders []int) {
	first := make(map[dedupKey]int, len(recs))
	keep = make([]int, 0, len(recs))
	for i, r := range recs {
		k := keyOf(r, includeOrderNumber)
		if j, seen := first[k]; seen {
			if recs[j].Orders.OrderNumber != r.Orders.OrderNumber {
				lostOrders = append(lostOrders, i)
			}
			continue
		}
		first[k] = i
		keep = append(keep, i)
	}
	return keep, lostOrders
}

// Dedup returns the first occurrence of each group of records sharing
// (fullName, phone, productCode, productName, productPrice, user createdAt),
// in original order. A price sent as a JSON string never matches the same
// price sent as a JSON number. With includeOrderNumber the order number joins the key.
// Every record must carry all three sub-objects.
func Dedup(recs []domain.IngestRecord, includeOrderNumber bool) []domain.IngestRecord {
	keep, _ := dedupPositions(recs, includeOrderNumber)
	out := make([]domain.IngestRecord, 0, len(keep))
	for _, i := range keep {
		out = append(out, recs[i])
	}
	return out
}

// Project flattens a record into the row shape consumed by the insert step.
func Project(r domain.IngestRecord) domain.FlatRecord {
	return domain.FlatRecord{
		FullName:       r.UserData.FullName,
		Phone:          r.UserData.Phone,
		CreatedAt:      r.UserData.CreatedAt,
		ProductPrice:   r.Products.ProductPrice.String(),
		ProductName:    r.Products.ProductName,
		ProductCode:    r.Products.ProductCode,
		OrderNumber:    r.Orders.OrderNumber,
		Quantity:       r.Orders.Quantity,
		CreatedAtOrder: r.Orders.CreatedAt,
	}
}

// preparedRecord is a validated FlatRecord with its parsed values.
type preparedRecord struct {
	pos          int
	flat         domain.FlatRecord
	price        decimal.Decimal
	userCreated  time.Time
	orderCreated time.Time
}

// total is price × quantity.
func (p preparedRecord) total() decimal.Decimal {
	return p.price.Mul(decimal.NewFromInt(int64(p.flat.Quantity)))
}

func checkShape(recs []domain.IngestRecord) error {
	for i, r := range recs {
		switch {
		case r.UserData == nil:
			return fmt.Errorf("record %d: %w: userData is required", i, ErrInvalidRecord)
		case r.Products == nil:
			return fmt.Errorf("record %d: %w: products is required", i, ErrInvalidRecord)
		case r.Orders == nil:
			return fmt.Errorf("record %d: %w: orders is required", i, ErrInvalidRecord)
		}
	}
	return nil
}

func prepare(pos int, f domain.FlatRecord, orderTime bool) (preparedRecord, error) {
	p := preparedRecord{pos: pos, flat: f}

	if err := recordValidator().Struct(f); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return p, fmt.Errorf("record %d: %w: %s failed %q", pos, ErrInvalidRecord, fe.Field(), fe.Tag())
		}
		return p, fmt.Errorf("record %d: %w: %v", pos, ErrInvalidRecord, err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(f.ProductPrice))
	if err != nil || price.IsNegative() {
		return p, fmt.Errorf("record %d: %w: %q", pos, ErrInvalidPrice, f.ProductPrice)
	}
	p.price = price

	if p.userCreated, err = parseTimestamp(f.CreatedAt); err != nil {
		return p, fmt.Errorf("record %d: userData.%w: %q", pos, ErrInvalidTimestamp, f.CreatedAt)
	}
	if !orderTime {
		return p, nil
	}
	if p.orderCreated, err = parseTimestamp(f.CreatedAtOrder); err != nil {
		return p, fmt.Errorf("record %d: orders.%w: %q", pos, ErrInvalidTimestamp, f.CreatedAtOrder)
	}
	return p, nil
}

// parseTimestamp accepts RFC 3339 and the layouts understood by jinzhu/now
// ("2006-01-02", "2006-01-02 15:04:05", ...). Empty input yields the zero
// time so the column default applies.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := now.New(time.Now().UTC()).Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Ingest runs the full pipeline over recs and returns what it did. The summary
// is also returned alongside a storage error so callers can log partial
// progress.
func (s *IngestService) Ingest(ctx context.Context, recs []domain.IngestRecord) (domain.IngestSummary, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(
			attribute.Int("batch.size", len(recs)),
			attribute.Bool("dedup.include_order_number", s.IncludeOrderNumber),
		),
	)
	defer span.End()

	sum := domain.IngestSummary{Received: len(recs)}
	ingestRecords.WithLabelValues("received").Add(float64(len(recs)))

	if len(recs) == 0 {
		return sum, ErrEmptyBatch
	}
	if s.MaxBatchSize > 0 && len(recs) > s.MaxBatchSize {
		return sum, fmt.Errorf("%w: %d records, max %d", ErrBatchTooLarge, len(recs), s.MaxBatchSize)
	}
	if err := checkShape(recs); err != nil {
		ingestRecords.WithLabelValues("rejected").Add(float64(len(recs)))
		return sum, err
	}

	keep, lost := dedupPositions(recs, s.IncludeOrderNumber)
	ingestRecords.WithLabelValues("duplicate").Add(float64(len(recs) - len(keep)))
	if len(lost) > 0 {
		nums := make([]int64, 0, len(lost))
		for _, i := range lost {
			nums = append(nums, recs[i].Orders.OrderNumber)
		}
		zerolog.Ctx(ctx).Warn().
			Ints64("dropped_order_numbers", nums).
			Msg("dedup collapsed records with distinct order numbers")
	}

	batch := make([]preparedRecord, 0, len(keep))
	for _, i := range keep {
		p, err := prepare(i, Project(recs[i]), s.UseOrderCreatedAt)
		if err != nil {
			ingestRecords.WithLabelValues("rejected").Add(float64(len(keep)))
			return sum, err
		}
		batch = append(batch, p)
	}
	span.SetAttributes(attribute.Int("batch.unique", len(batch)))

	defer func() {
		if sum.Created() {
			s.invalidateReport(ctx)
		}
	}()

	for _, p := range batch {
		res, err := s.insertRecord(ctx, p)
		if err != nil {
			observability.Fail(span, err, "insert failed")
			return sum, fmt.Errorf("record %d: %w", p.pos, err)
		}
		sum.Processed++
		sum.UsersCreated += b2i(res.user)
		sum.ProductsCreated += b2i(res.product)
		sum.OrdersCreated += b2i(res.order)
		ingestRecords.WithLabelValues("processed").Inc()
	}

	ingestRows.WithLabelValues("users").Add(float64(sum.UsersCreated))
	ingestRows.WithLabelValues("products").Add(float64(sum.ProductsCreated))
	ingestRows.WithLabelValues("orders").Add(float64(sum.OrdersCreated))
	return sum, nil
}

type insertResult struct {
	user, product, order bool
}

// insertRecord performs the insert-or-skip sequence for one record inside a
// single transaction.
func (s *IngestService) insertRecord(ctx context.Context, p preparedRecord) (insertResult, error) {
	var res insertResult
	f := p.flat

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var name *string
		if f.FullName != "" {
			name = &f.FullName
		}
		created, err := repo.CreateUserIfAbsent(ctx, tx, &domain.User{
			FullName:  name,
			Phone:     f.Phone,
			CreatedAt: p.userCreated,
		})
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		res.user = created

		created, err = repo.CreateProductIfAbsent(ctx, tx, &domain.Product{
			ProductName:  f.ProductName,
			ProductCode:  f.ProductCode,
			ProductPrice: f.ProductPrice,
			CreatedAt:    p.userCreated,
		})
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		res.product = created

		u, err := repo.GetUserByPhone(ctx, tx, f.Phone)
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}

		orderCreated := p.userCreated
		if !p.orderCreated.IsZero() {
			orderCreated = p.orderCreated
		}
		created, err = repo.CreateOrderIfAbsent(ctx, tx, &domain.Order{
			OrderNo:      f.OrderNumber,
			ProductCode:  f.ProductCode,
			ProductPrice: f.ProductPrice,
			Quantity:     f.Quantity,
			Total:        p.total(),
			UserID:       u.ID,
			CreatedAt:    orderCreated,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		res.order = created
		return nil
	})
	if err != nil {
		return insertResult{}, err
	}
	return res, nil
}

func (s *IngestService) invalidateReport(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, topOrdersCacheKey); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("report cache invalidation failed")
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
