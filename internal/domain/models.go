// Package domain holds the core entities and error model shared by every
// module. It is pure: no database, HTTP, or client dependencies.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is a user's authorization role.
type Role string

const (
	RoleUser   Role = "USER"
	RoleWriter Role = "WRITER"
	RoleEditor Role = "EDITOR"
	RoleAdmin  Role = "ADMIN"
)

// OrderType is the side of an order.
type OrderType string

const (
	OrderBuy  OrderType = "BUY"
	OrderSell OrderType = "SELL"
)

// OrderStatus is the lifecycle state of an order. Market orders fill
// immediately, so PENDING only ever exists inside a commit; CANCELLED is
// reachable only from PENDING.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// User is an account holder with a cash balance in a single fiat unit.
type User struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"displayName"`
	Role        Role            `json:"role"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Stock is a tradeable equity with its cached last-known quote.
type Stock struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Sector        string          `json:"sector,omitempty"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Volume        int64           `json:"volume"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// HasPrice reports whether the cached price is usable for trading.
func (s Stock) HasPrice() bool {
	return s.CurrentPrice.IsPositive()
}

// Position is a user's holding in one stock. A position exists iff its
// quantity is positive; selling the last share deletes the row.
type Position struct {
	UserID      string          `json:"userId"`
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"quantity"`
	AvgBuyPrice decimal.Decimal `json:"avgBuyPrice"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Order is one accepted buy/sell instruction, recorded at the execution
// price.
type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Symbol    string          `json:"symbol"`
	Type      OrderType       `json:"type"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Transaction is the immutable ledger record of one fill. Rows are never
// mutated or deleted once written.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Symbol    string          `json:"symbol"`
	Type      OrderType       `json:"type"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PortfolioSnapshot is a per-user, per-UTC-day record of total market value,
// written by the refresh pipeline's end-of-day phase.
type PortfolioSnapshot struct {
	ID     string          `json:"id"`
	UserID string          `json:"userId"`
	Date   string          `json:"date"` // YYYY-MM-DD, UTC
	Value  decimal.Decimal `json:"value"`
}

// PricePoint is one OHLCV history sample for a symbol. Append-only.
type PricePoint struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}
