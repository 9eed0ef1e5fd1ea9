// Package domain defines the persistence models for users, products, and
// orders, plus the wire shapes of ingested batches and report rows. These
// types are mapped with GORM and form the core data layer of the service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a customer identified by phone number.
//
// Fields:
//   - ID: auto-increment primary key.
//   - FullName: display name as first submitted; nullable.
//   - Phone: natural key; one row per distinct phone (unique index).
//   - CreatedAt: submitted timestamp, or insertion time when absent.
type User struct {
	ID        uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	FullName  *string   `json:"full_name"  gorm:"column:full_name;type:text"`
	Phone     string    `json:"phone"      gorm:"column:phone;type:varchar(256);uniqueIndex:ux_users_phone"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Product is a catalogue item identified by its product code. The price is
// kept as the text the client submitted; arithmetic goes through decimal.
type Product struct {
	ID           uint      `json:"id"            gorm:"primaryKey;autoIncrement"`
	ProductName  string    `json:"product_name"  gorm:"column:product_name;type:text"`
	ProductCode  string    `json:"product_code"  gorm:"column:product_code;type:varchar(128);uniqueIndex:ux_products_code"`
	ProductPrice string    `json:"product_price" gorm:"column:product_price;type:text"`
	CreatedAt    time.Time `json:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "products" }

// Order is a single purchase line. Total is price × quantity, fixed at
// ingestion time and never recomputed.
//
// ProductCode references Product.ProductCode informally (no FK), and UserID
// references User.ID.
type Order struct {
	ID           uint            `json:"id"            gorm:"primaryKey;autoIncrement"`
	OrderNo      int64           `json:"order_number"  gorm:"column:order_number;uniqueIndex:ux_orders_number"`
	ProductCode  string          `json:"product_code"  gorm:"column:product_code;type:varchar(128);index"`
	ProductPrice string          `json:"product_price" gorm:"column:product_price;type:text"`
	Quantity     int             `json:"quantity"      gorm:"column:quantity"`
	Total        decimal.Decimal `json:"total"         gorm:"column:total;type:numeric;index"`
	UserID       uint            `json:"user_id"       gorm:"column:user_id;index"`
	CreatedAt    time.Time       `json:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// TopOrder is one row of the top-spenders report: an order joined with its
// product and user.
type TopOrder struct {
	ProductName  string          `json:"productName"`
	ProductPrice string          `json:"productPrice"`
	UserName     *string         `json:"userName"`
	Quantity     int             `json:"quantity"`
	Total        decimal.Decimal `json:"total"`
}
