package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the closing side for a lot opened on s
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether s is a known side
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Trade is an executed fill. Immutable once recorded.
// RealizedPnL is set when the trade closed a position and the supplier already knows the result.
type Trade struct {
	ID          string           `json:"id,omitempty"`
	Symbol      string           `json:"symbol"`
	Side        Side             `json:"side"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Fee         decimal.Decimal  `json:"fee"`
	Timestamp   time.Time        `json:"timestamp"`
	RealizedPnL *decimal.Decimal `json:"realized_pnl,omitempty"`
}

// Notional returns quantity * price
func (t Trade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// IsClosing reports whether the trade carries a realized result
func (t Trade) IsClosing() bool {
	return t.RealizedPnL != nil
}

// TradeStats is the trade-level part of PerformanceMetrics.
// Money values are accumulated as decimals and exposed as float64.
type TradeStats struct {
	TotalTrades     int `json:"total_trades"`
	WinningTrades   int `json:"winning_trades"`
	LosingTrades    int `json:"losing_trades"`
	BreakevenTrades int `json:"breakeven_trades"`

	WinRate      float64 `json:"win_rate"` // fraction, 0 when no trades
	TotalProfit  float64 `json:"total_profit"`
	TotalLoss    float64 `json:"total_loss"` // positive magnitude
	ProfitFactor Ratio   `json:"profit_factor"`

	AverageWin   float64 `json:"average_win"`
	AverageLoss  float64 `json:"average_loss"` // negative
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"` // most negative
	BestTrade    float64 `json:"best_trade"`
	WorstTrade   float64 `json:"worst_trade"`
	AverageTrade float64 `json:"average_trade"`
	NetProfit    float64 `json:"net_profit"`
	TotalFees    float64 `json:"total_fees"`

	// OpenLots counts FIFO lots still open at the end of the window
	OpenLots int `json:"open_lots"`
}

// SymbolStats is TradeStats for one symbol
type SymbolStats struct {
	Symbol string     `json:"symbol"`
	Stats  TradeStats `json:"stats"`
}
