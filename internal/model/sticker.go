package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Collection is an on-sale sticker collection as returned by the marketplace.
type Collection struct {
	ID   ID   `json:"id"`
	Name Text `json:"name"`
}

// Pack is a sub-collection of a Collection.
type Pack struct {
	ID   ID   `json:"id"`
	Name Text `json:"name"`
}

// Offer is a single sale offer for a pack. Price is invalid when the
// upstream omitted it or sent null.
type Offer struct {
	Price decimal.NullDecimal `json:"price"`
}

// OffersPage is the body of the offers endpoint.
type OffersPage struct {
	Offers []Offer `json:"offers"`
}

// ReferenceRow holds the issuance metadata of one sub-collection from the
// reference spreadsheet. Nil fields were blank in the source.
type ReferenceRow struct {
	Collection        string
	SubCollection     string
	InitialPriceStars *float64
	InitialPriceUSD   *float64
	Issued            *float64
	Date              *time.Time
}

// ResultRow is one line of the floor price report.
type ResultRow struct {
	Collection    string
	SubCollection string
	Floor         decimal.Decimal

	// Reference is nil when no reference row matched the pack.
	Reference *ReferenceRow
}
