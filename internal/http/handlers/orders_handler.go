// Order HTTP handlers.
//
// This file exposes the two data endpoints:
//   - POST /store  (ingest a batch of {userData, products, orders} records)
//   - GET  /data   (top 3 orders by total, joined with product and user)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a stored response
// exists for (route, key), the handler returns it verbatim and sets
// `Idempotency-Replayed: true` without touching the tables.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-orders-backend/internal/domain"
	"github.com/tbourn/go-orders-backend/internal/http/middleware"
	"github.com/tbourn/go-orders-backend/internal/services"
)

//
// DTOs
//

// StoreResponse is the success body of POST /store.
type StoreResponse struct {
	Message string               `json:"message" example:"Successfully inserted"`
	Summary domain.IngestSummary `json:"summary"`
}

// TopOrderResponse is one row of GET /data.
type TopOrderResponse struct {
	ProductName  string      `json:"productName"  example:"Coffee beans"`
	ProductPrice string      `json:"productPrice" example:"10"`
	UserName     *string     `json:"userName"     example:"Jane Doe"`
	Quantity     int         `json:"quantity"     example:"3"`
	Total        json.Number `json:"total"        swaggertype:"number" example:"30"`
}

func toTopOrderResponses(rows []domain.TopOrder) []TopOrderResponse {
	out := make([]TopOrderResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, TopOrderResponse{
			ProductName:  r.ProductName,
			ProductPrice: r.ProductPrice,
			UserName:     r.UserName,
			Quantity:     r.Quantity,
			Total:        json.Number(r.Total.String()),
		})
	}
	return out
}

const (
	msgStored     = "Successfully inserted"
	msgStoreError = "Server Error"
	msgDataError  = "Unable to retrieve data"
)

//
// Handlers
//

// StoreBatch godoc
// @ID          storeBatch
// @Summary     Ingest a batch of order records
// @Description Deduplicates the batch, validates every record, then inserts each user,
// @Description product and order whose natural key (phone, product code, order number)
// @Description is not stored yet. Existing rows are never updated.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Orders
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                 false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    []domain.IngestRecord  true  "Batch of composite records"
//
// @Success     200  {object}  handlers.StoreResponse  "Batch stored"
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed or invalid record"
// @Failure     413  {object}  handlers.ErrorResponse  "Batch or body too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Server Error"
// @Router      /store [post]
func (h *Handlers) StoreBatch(c *gin.Context) {
	ctx := c.Request.Context()
	scope := middleware.IdempotencyScope(c)

	// Idempotency (replay path)
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.idem != nil {
		if rec, err := h.idem.Find(ctx, scope, idemKey); err == nil && rec != nil {
			c.Header("Idempotency-Replayed", "true")
			c.Data(rec.Status, "application/json; charset=utf-8", []byte(rec.Response))
			return
		}
	}

	var recs []domain.IngestRecord
	if err := c.ShouldBindJSON(&recs); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body must be a JSON array of {userData, products, orders} records")
		return
	}

	sum, err := h.ingest.Ingest(ctx, recs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBatchTooLarge):
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, err.Error())
		case services.IsValidation(err):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			middleware.LoggerFrom(c).Error().
				Err(err).
				Int("received", sum.Received).
				Int("processed", sum.Processed).
				Int("orders_created", sum.OrdersCreated).
				Msg("error inserting data")
			fail(c, http.StatusInternalServerError, ErrCodeInternal, msgStoreError)
		}
		return
	}

	resp := StoreResponse{Message: msgStored, Summary: sum}

	// Idempotency (store path) – best effort.
	if idemKey != "" && h.idem != nil {
		if body, err := json.Marshal(resp); err == nil {
			if err := h.idem.Save(ctx, scope, idemKey, http.StatusOK, string(body)); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not saved")
			}
		}
	}

	ok(c, http.StatusOK, resp)
}

// TopSpenders godoc
// @ID          topSpenders
// @Summary     Top orders by total
// @Description Returns at most three orders with the highest total, each joined with
// @Description its product (by product code) and user (by user id).
// @Tags        Orders
// @Produce     json
//
// @Success     200  {array}   handlers.TopOrderResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Unable to retrieve data"
// @Router      /data [get]
func (h *Handlers) TopSpenders(c *gin.Context) {
	rows, err := h.report.Top(c.Request.Context())
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("error retrieving data")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, msgDataError)
		return
	}
	ok(c, http.StatusOK, toTopOrderResponses(rows))
}
