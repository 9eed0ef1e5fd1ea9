// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes provide clients with a stable,
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase snake_case. Codes also emitted by middleware are
//     aliased from the middleware package so both layers stay in sync.
//   - Generic codes (e.g., bad_request, unauthorized, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - Domain-specific codes (e.g., payload_too_large, not_ready) are reserved for
//     conditions that clients handle differently from a plain status.
//   - All error responses must include both an HTTP status and one of these codes.
//
// Usage:
//   - Handlers select the most specific matching code and pass it to `fail()` along
//     with the corresponding HTTP status and message.
//   - Clients are expected to branch on these codes for programmatic error handling.
//
// Example response:
//   {
//     "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//     "code": "bad_request",
//     "message": "record 2: productPrice must be a non-negative number: \"abc\""
//   }

package handlers

import "github.com/tbourn/go-orders-backend/internal/http/middleware"

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = middleware.CodeRateLimited
	ErrCodeInternal    = middleware.CodeInternal

	// Domain-specific:
	ErrCodePayloadTooLarge  = "payload_too_large"
	ErrCodeNotReady         = "not_ready"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
