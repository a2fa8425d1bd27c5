// Package tradestats aggregates executed trades into win/loss statistics.
package tradestats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// ClosedTrade is one realized result, either supplied with the trade or derived by FIFO matching
type ClosedTrade struct {
	Symbol    string
	Timestamp time.Time
	Quantity  decimal.Decimal
	PnL       decimal.Decimal
	Fees      decimal.Decimal
}

// Ingest validates trades. The first malformed trade is returned as *contracts.InvalidTradeError.
func Ingest(trades []contracts.Trade) error {
	for i, t := range trades {
		reject := func(field, reason string) error {
			return &contracts.InvalidTradeError{Index: i, ID: t.ID, Symbol: t.Symbol, Field: field, Reason: reason}
		}

		switch {
		case t.Symbol == "":
			return reject("symbol", "is empty")
		case !t.Side.Valid():
			return reject("side", "must be BUY or SELL")
		case !t.Quantity.IsPositive():
			return reject("quantity", "must be positive")
		case !t.Price.IsPositive():
			return reject("price", "must be positive")
		case t.Fee.IsNegative():
			return reject("fee", "cannot be negative")
		}
	}
	return nil
}

// Aggregate validates trades and computes portfolio-wide statistics.
// An empty list yields zero-valued stats.
func Aggregate(trades []contracts.Trade) (*contracts.TradeStats, error) {
	if err := Ingest(trades); err != nil {
		return nil, err
	}

	closed, openLots := Realize(trades)
	stats := summarize(closed, totalFees(trades))
	stats.OpenLots = openLots
	return &stats, nil
}

// AggregateBySymbol computes statistics per symbol, ordered by symbol
func AggregateBySymbol(trades []contracts.Trade) ([]contracts.SymbolStats, error) {
	if err := Ingest(trades); err != nil {
		return nil, err
	}

	bySymbol := make(map[string][]contracts.Trade)
	for _, t := range trades {
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t)
	}

	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := make([]contracts.SymbolStats, 0, len(symbols))
	for _, s := range symbols {
		closed, openLots := Realize(bySymbol[s])
		stats := summarize(closed, totalFees(bySymbol[s]))
		stats.OpenLots = openLots
		out = append(out, contracts.SymbolStats{Symbol: s, Stats: stats})
	}
	return out, nil
}

func summarize(closed []ClosedTrade, fees decimal.Decimal) contracts.TradeStats {
	stats := contracts.TradeStats{
		ProfitFactor: contracts.DegenerateRatio(),
		TotalFees:    fees.InexactFloat64(),
	}
	if len(closed) == 0 {
		return stats
	}

	var profit, loss, net decimal.Decimal
	var largestWin, largestLoss decimal.Decimal
	var best, worst decimal.Decimal

	for i, c := range closed {
		net = net.Add(c.PnL)

		if i == 0 || c.PnL.GreaterThan(best) {
			best = c.PnL
		}
		if i == 0 || c.PnL.LessThan(worst) {
			worst = c.PnL
		}

		switch c.PnL.Sign() {
		case 1:
			stats.WinningTrades++
			profit = profit.Add(c.PnL)
			if c.PnL.GreaterThan(largestWin) {
				largestWin = c.PnL
			}
		case -1:
			stats.LosingTrades++
			loss = loss.Add(c.PnL.Abs())
			if c.PnL.LessThan(largestLoss) {
				largestLoss = c.PnL
			}
		default:
			stats.BreakevenTrades++
		}
	}

	stats.TotalTrades = len(closed)
	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	stats.TotalProfit = profit.InexactFloat64()
	stats.TotalLoss = loss.InexactFloat64()
	stats.NetProfit = net.InexactFloat64()
	stats.LargestWin = largestWin.InexactFloat64()
	stats.LargestLoss = largestLoss.InexactFloat64()
	stats.BestTrade = best.InexactFloat64()
	stats.WorstTrade = worst.InexactFloat64()
	stats.AverageTrade = net.Div(decimal.NewFromInt(int64(stats.TotalTrades))).InexactFloat64()

	if stats.WinningTrades > 0 {
		stats.AverageWin = profit.Div(decimal.NewFromInt(int64(stats.WinningTrades))).InexactFloat64()
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = loss.Neg().Div(decimal.NewFromInt(int64(stats.LosingTrades))).InexactFloat64()
	}

	switch {
	case loss.IsZero() && profit.IsPositive():
		stats.ProfitFactor = contracts.UnboundedRatio()
	case loss.IsZero():
		stats.ProfitFactor = contracts.DegenerateRatio()
	default:
		stats.ProfitFactor = contracts.NewRatio(profit.Div(loss).InexactFloat64())
	}

	return stats
}

func totalFees(trades []contracts.Trade) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range trades {
		sum = sum.Add(t.Fee)
	}
	return sum
}
