package orderbookv1

import snapshotv1 "limitbook/internal/domain/snapshot/v1"

// Book defines the interface for a limit order book. Implementations are not
// goroutine safe: all calls must come from a single writer (see the engine's
// command loop).
type Book interface {
	// AddOrder matches the incoming order against resting liquidity and rests
	// any remainder. It returns the trades executed immediately, in execution
	// order.
	AddOrder(order *Order) ([]Trade, error)
	// CancelOrder removes a resting order. ErrOrderNotFound if the id is not resting.
	CancelOrder(id uint64) error

	// BestPrices returns the best bid and ask price; 0 marks an empty side.
	BestPrices() (bestBid, bestAsk int64)
	// Volume returns the summed remaining quantity at an exact price on one side.
	Volume(side Side, price int64) int64
	// TotalOrders returns the number of currently resting orders.
	TotalOrders() int
	// TotalTrades returns the number of trades ever executed.
	TotalTrades() int64
	// Trades returns a copy of the trade history.
	Trades() []Trade

	// Asks returns ask levels best (lowest) price first.
	Asks() []LevelView
	// Bids returns bid levels best (highest) price first.
	Bids() []LevelView

	// CreateSnapshot captures all resting orders and the trade count.
	CreateSnapshot() *snapshotv1.Snapshot
	// Restore replaces the book state with the snapshot contents.
	Restore(snapshot *snapshotv1.Snapshot) error
}
