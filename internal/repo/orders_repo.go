// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides insert-if-absent and lookup functions for
// users, products, and orders keyed by their natural keys.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions.
//
// Insert semantics: each Create*IfAbsent issues a single
// INSERT ... ON CONFLICT (natural key) DO NOTHING, so two concurrent batches
// cannot both insert the same phone, product code, or order number. The
// returned bool reports whether this call inserted the row. Existing rows are
// never updated.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-orders-backend/internal/domain"
)

func insertIfAbsent(ctx context.Context, db *gorm.DB, key string, row any) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: key}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreateUserIfAbsent inserts u unless a user with the same phone exists.
func CreateUserIfAbsent(ctx context.Context, db *gorm.DB, u *domain.User) (bool, error) {
	return insertIfAbsent(ctx, db, "phone", u)
}

// CreateProductIfAbsent inserts p unless a product with the same code exists.
func CreateProductIfAbsent(ctx context.Context, db *gorm.DB, p *domain.Product) (bool, error) {
	return insertIfAbsent(ctx, db, "product_code", p)
}

// CreateOrderIfAbsent inserts o unless an order with the same number exists.
func CreateOrderIfAbsent(ctx context.Context, db *gorm.DB, o *domain.Order) (bool, error) {
	return insertIfAbsent(ctx, db, "order_number", o)
}

// GetUserByPhone returns the user with the given phone. A missing phone
// yields ErrNotFound (gorm.ErrRecordNotFound).
func GetUserByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("phone = ?", phone).Take(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// TopOrders joins orders with their product (by product code) and user (by
// user id) and returns the limit rows with the highest total. Ties keep
// insertion order.
func TopOrders(ctx context.Context, db *gorm.DB, limit int) ([]domain.TopOrder, error) {
	out := make([]domain.TopOrder, 0, limit)
	err := db.WithContext(ctx).
		Table("orders").
		Select(`products.product_name AS product_name,
			products.product_price AS product_price,
			users.full_name AS user_name,
			orders.quantity AS quantity,
			orders.total AS total`).
		Joins("JOIN products ON products.product_code = orders.product_code").
		Joins("JOIN users ON users.id = orders.user_id").
		Order("orders.total DESC").
		Order("orders.id ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
