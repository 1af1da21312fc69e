package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money is written as a bare JSON number carrying the exact decimal digits
	decimal.MarshalJSONWithoutQuotes = true
}

// DateRange bounds metrics queries on platform created-at. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// MetricsSummary aggregates one tenant's reconciled tables
type MetricsSummary struct {
	Customers          int64           `json:"customers"`
	Orders             int64           `json:"orders"`
	Revenue            decimal.Decimal `json:"revenue"`
	AbandonedCheckouts int64           `json:"abandonedCheckouts"`
}

// DailyRevenue is one bucket of the orders-by-date series
type DailyRevenue struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

// CustomerSpend is one row of the top customers ranking
type CustomerSpend struct {
	ID         string          `json:"id"`
	ExternalID string          `json:"externalId"`
	Email      *string         `json:"email"`
	FirstName  *string         `json:"firstName"`
	LastName   *string         `json:"lastName"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}

// ProductOverview is the products count plus the most recently seen products
type ProductOverview struct {
	Count  int64     `json:"count"`
	Recent []Product `json:"recent"`
}
