// Package pricebook stores scanned price labels and the prices a shopper
// paid, and compares a shelf price with the last one recorded.
package pricebook

import (
	"errors"
	"time"

	"github.com/zombor/label-scanner/internal/label"
)

var (
	// ErrNotFound is returned when a scan does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoHistory is returned when a product has no recorded prices.
	ErrNoHistory = errors.New("no price history")
	// ErrInvalidInput is returned for requests that fail validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Scan is a photographed label and what was read from it
type Scan struct {
	ID string `json:"id"`
	label.Result
	RawText     string    `json:"raw_text"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceType is the price column a record was taken from
type PriceType string

const (
	Varejo  PriceType = "varejo"  // retail, single unit
	Atacado PriceType = "atacado" // wholesale, from a minimum quantity
)

// PriceRecord is a price paid for a product
type PriceRecord struct {
	ID         string    `json:"id"`
	Product    string    `json:"product"`
	ProductKey string    `json:"product_key"`
	Price      float64   `json:"price"`
	PriceType  PriceType `json:"price_type"`
	Quantity   int       `json:"quantity"`
	Store      string    `json:"store,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Verdict classifies a shelf price against the last price paid
type Verdict string

const (
	Cheaper   Verdict = "cheaper"
	Expensive Verdict = "expensive"
	Average   Verdict = "average"
)

// Comparison is a shelf price compared with the newest recorded price
type Comparison struct {
	Product      string       `json:"product"`
	LastPrice    float64      `json:"last_price"`
	CurrentPrice float64      `json:"current_price"`
	DiffPercent  float64      `json:"diff_percent"`
	Verdict      Verdict      `json:"verdict"`
	Last         *PriceRecord `json:"last"`
}
