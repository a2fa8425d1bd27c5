package tradestats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/aegis/v13/perf/internal/contracts"
)

// lot is an open position slice waiting to be closed
type lot struct {
	side       contracts.Side
	quantity   decimal.Decimal
	price      decimal.Decimal
	feePerUnit decimal.Decimal
}

// Realize turns trades into closed results and counts lots left open.
//
// Trades carrying RealizedPnL are taken as-is; they still close opposite
// lots by quantity so later fills are not matched against them twice.
// A realized remainder with nothing left to close opens no lot.
// Other trades are matched FIFO per symbol: a fill first closes lots of the
// opposite side, any remainder opens a new lot. Opening fills produce no
// closed result. Fees of both legs are apportioned by matched quantity.
func Realize(trades []contracts.Trade) ([]ClosedTrade, int) {
	ordered := make([]contracts.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	book := make(map[string][]*lot)
	var closed []ClosedTrade

	for _, t := range ordered {
		if t.RealizedPnL != nil {
			closed = append(closed, ClosedTrade{
				Symbol:    t.Symbol,
				Timestamp: t.Timestamp,
				Quantity:  t.Quantity,
				PnL:       *t.RealizedPnL,
				Fees:      t.Fee,
			})
			consume(book, t)
			continue
		}

		if result, ok := match(book, t); ok {
			closed = append(closed, result)
		}
	}

	open := 0
	for _, lots := range book {
		open += len(lots)
	}
	return closed, open
}

// consume drops up to t.Quantity of opposite-side lots, FIFO, without pricing them
func consume(book map[string][]*lot, t contracts.Trade) {
	remaining := t.Quantity
	queue := book[t.Symbol]
	for remaining.IsPositive() && len(queue) > 0 && queue[0].side == t.Side.Opposite() {
		head := queue[0]
		qty := decimal.Min(remaining, head.quantity)
		head.quantity = head.quantity.Sub(qty)
		remaining = remaining.Sub(qty)
		if head.quantity.IsZero() {
			queue = queue[1:]
		}
	}

	if len(queue) == 0 {
		delete(book, t.Symbol)
	} else {
		book[t.Symbol] = queue
	}
}

func match(book map[string][]*lot, t contracts.Trade) (ClosedTrade, bool) {
	feePerUnit := t.Fee.Div(t.Quantity)
	remaining := t.Quantity
	queue := book[t.Symbol]

	pnl := decimal.Zero
	fees := decimal.Zero
	matched := decimal.Zero

	for remaining.IsPositive() && len(queue) > 0 && queue[0].side == t.Side.Opposite() {
		head := queue[0]
		qty := decimal.Min(remaining, head.quantity)

		// long closed by a sell earns exit - entry, short closed by a buy earns entry - exit
		gross := t.Price.Sub(head.price).Mul(qty)
		if head.side == contracts.SideSell {
			gross = gross.Neg()
		}
		legFees := head.feePerUnit.Add(feePerUnit).Mul(qty)

		pnl = pnl.Add(gross).Sub(legFees)
		fees = fees.Add(legFees)
		matched = matched.Add(qty)

		head.quantity = head.quantity.Sub(qty)
		remaining = remaining.Sub(qty)
		if head.quantity.IsZero() {
			queue = queue[1:]
		}
	}

	if remaining.IsPositive() {
		queue = append(queue, &lot{
			side:       t.Side,
			quantity:   remaining,
			price:      t.Price,
			feePerUnit: feePerUnit,
		})
	}

	if len(queue) == 0 {
		delete(book, t.Symbol)
	} else {
		book[t.Symbol] = queue
	}

	if !matched.IsPositive() {
		return ClosedTrade{}, false
	}
	return ClosedTrade{
		Symbol:    t.Symbol,
		Timestamp: t.Timestamp,
		Quantity:  matched,
		PnL:       pnl,
		Fees:      fees,
	}, true
}
