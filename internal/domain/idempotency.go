package domain

import "time"

// Idempotency records the outcome of a completed unsafe request, keyed by
// (scope, key) where scope names the route (e.g. "POST /api/store"). It lets
// a retried batch be answered from the stored response instead of being
// ingested again.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Scope     string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_idem_scope_key,priority:1"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_scope_key,priority:2"`
	Status    int       `gorm:"not null"`
	Response  string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
