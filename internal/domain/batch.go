package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IngestRecord is one element of a POST /store batch. Each sub-object
// describes the entity it references; a missing sub-object is nil.
type IngestRecord struct {
	UserData *UserData    `json:"userData"`
	Products *ProductData `json:"products"`
	Orders   *OrderData   `json:"orders"`
}

// UserData is the user part of an ingested record.
type UserData struct {
	FullName  string `json:"fullName"  example:"Jane Doe"`
	Phone     string `json:"phone"     example:"+15550100"`
	CreatedAt string `json:"createdAt" example:"2024-03-01T10:00:00Z"`
}

// ProductData is the product part of an ingested record.
type ProductData struct {
	ProductName  string    `json:"productName"  example:"Coffee beans"`
	ProductCode  string    `json:"productCode"  example:"CB-001"`
	ProductPrice PriceText `json:"productPrice" swaggertype:"string" example:"10"`

	// PriceIsNumber records that productPrice arrived as a JSON number, so
	// "10" and 10 stay distinct for deduplication.
	PriceIsNumber bool `json:"-" swaggerignore:"true"`
}

// UnmarshalJSON decodes the product and notes the JSON kind of productPrice.
func (p *ProductData) UnmarshalJSON(b []byte) error {
	type plain ProductData
	var aux struct {
		plain
		Price json.RawMessage `json:"productPrice"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = ProductData(aux.plain)
	raw := bytes.TrimSpace(aux.Price)
	if len(raw) == 0 {
		return nil
	}
	if err := p.ProductPrice.UnmarshalJSON(raw); err != nil {
		return err
	}
	p.PriceIsNumber = raw[0] != '"' && !bytes.Equal(raw, []byte("null"))
	return nil
}

// OrderData is the order part of an ingested record.
type OrderData struct {
	OrderNumber int64  `json:"orderNumber" example:"1001"`
	Quantity    int    `json:"quantity"    example:"3"`
	CreatedAt   string `json:"createdAt"   example:"2024-03-01T10:05:00Z"`
}

// FlatRecord is the projection of a deduplicated IngestRecord into a single
// flat row carrying everything the per-record insert needs.
type FlatRecord struct {
	FullName       string
	// Phone is required even though users.phone is nullable: it is the user
	// natural key and the only way an order resolves its user.
	Phone          string `validate:"required,max=256"`
	CreatedAt      string
	ProductPrice   string `validate:"required"`
	ProductName    string
	ProductCode    string `validate:"required"`
	OrderNumber    int64
	Quantity       int `validate:"gte=0"`
	CreatedAtOrder string
}

// IngestSummary reports what a batch did to the tables.
type IngestSummary struct {
	Received        int `json:"received"`
	Processed       int `json:"processed"`
	UsersCreated    int `json:"users_created"`
	ProductsCreated int `json:"products_created"`
	OrdersCreated   int `json:"orders_created"`
}

// Created reports whether the batch inserted any row.
func (s IngestSummary) Created() bool {
	return s.UsersCreated+s.ProductsCreated+s.OrdersCreated > 0
}

// PriceText holds a price exactly as submitted. Clients send it either as a
// JSON string ("10.50") or a JSON number (10.5); both decode to the same text.
type PriceText string

// UnmarshalJSON accepts a JSON string, number, or null.
func (p *PriceText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*p = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = PriceText(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("productPrice must be a string or number: %w", err)
		}
		*p = PriceText(n.String())
		return nil
	}
}

// String returns the raw price text.
func (p PriceText) String() string { return string(p) }
