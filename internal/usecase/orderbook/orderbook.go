package orderbook

import (
	"fmt"
	"time"

	orderbookv1 "limitbook/internal/domain/orderbook/v1"
	snapshotv1 "limitbook/internal/domain/snapshot/v1"

	"github.com/oklog/ulid/v2"
)

// Book is a two-sided limit order book with price-time priority matching.
//
// It is deliberately not goroutine safe: every mutating call must come from a
// single writer, which is how the engine's command loop drives it. Matching
// validates all preconditions before touching any structure, so a failed call
// never leaves partial state behind.
type Book struct {
	bids   *ladder
	asks   *ladder
	orders map[uint64]*node // order id -> its slot in a price level

	trades    []orderbookv1.Trade
	tradeBase int64 // trades executed before the last restore
}

// NewBook creates a new empty order book.
func NewBook() *Book {
	return &Book{
		bids:   newBidLadder(),
		asks:   newAskLadder(),
		orders: make(map[uint64]*node),
	}
}

// AddOrder matches the incoming order against the opposite side and rests any
// remainder. Returned trades are in execution order and already appended to
// the history. After return the book is never crossed: matching consumed
// every crossing level before the remainder was rested.
func (b *Book) AddOrder(order *orderbookv1.Order) ([]orderbookv1.Trade, error) {
	if order == nil {
		return nil, orderbookv1.ErrNilOrder
	}
	if order.Price <= 0 || order.Quantity <= 0 {
		return nil, fmt.Errorf("%w: price %d, quantity %d", orderbookv1.ErrInvalidOrder, order.Price, order.Quantity)
	}
	if order.Remaining <= 0 || order.Remaining > order.Quantity {
		return nil, fmt.Errorf("%w: remaining %d of %d", orderbookv1.ErrInvalidOrder, order.Remaining, order.Quantity)
	}
	if _, exists := b.orders[order.ID]; exists {
		return nil, fmt.Errorf("%w: %d", orderbookv1.ErrDuplicateOrderID, order.ID)
	}

	trades := b.tryMatch(order)
	b.trades = append(b.trades, trades...)

	if !order.IsFilled() {
		b.rest(order)
	}

	return trades, nil
}

// tryMatch walks the opposite side's levels best price first, consuming
// resting orders in arrival order, until the taker is filled or the next
// level no longer crosses. Crossing levels are a contiguous prefix of the
// ladder, so the first miss ends the walk.
func (b *Book) tryMatch(taker *orderbookv1.Order) []orderbookv1.Trade {
	opposite := b.asks
	if taker.Side == orderbookv1.SideSell {
		opposite = b.bids
	}

	var trades []orderbookv1.Trade

	for !taker.IsFilled() {
		level := opposite.best()
		if level == nil || !opposite.crosses(level.price, taker.Price) {
			break
		}

		for level.head != nil && !taker.IsFilled() {
			maker := level.head.order

			quantity := min(taker.Remaining, maker.Remaining)
			taker.Fill(quantity)
			maker.Fill(quantity)
			level.volume -= quantity

			trades = append(trades, b.newTrade(taker, maker, level.price, quantity))

			if maker.IsFilled() {
				delete(b.orders, maker.ID)
				level.unlink(level.head)
			}
		}

		if level.isEmpty() {
			opposite.remove(level.price)
		}
	}

	return trades
}

// newTrade stamps a fill at the maker's price, assigning buyer and seller
// according to the taker's side.
func (b *Book) newTrade(taker, maker *orderbookv1.Order, price, quantity int64) orderbookv1.Trade {
	buyID, sellID := taker.ID, maker.ID
	if taker.Side == orderbookv1.SideSell {
		buyID, sellID = maker.ID, taker.ID
	}

	return orderbookv1.Trade{
		ID:          ulid.Make().String(),
		BuyOrderID:  buyID,
		SellOrderID: sellID,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   time.Now().UnixNano(),
	}
}

// rest inserts the order at the tail of its price level and into the order
// index, keeping the two memberships in lockstep.
func (b *Book) rest(order *orderbookv1.Order) {
	side := b.bids
	if order.Side == orderbookv1.SideSell {
		side = b.asks
	}

	level := side.upsert(order.Price)
	b.orders[order.ID] = level.push(order)
}

// CancelOrder removes a resting order from its price level and the order
// index. Trade history and every other order's queue position are untouched.
func (b *Book) CancelOrder(id uint64) error {
	n, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("%w: %d", orderbookv1.ErrOrderNotFound, id)
	}

	level := n.level
	level.unlink(n)
	delete(b.orders, id)

	if level.isEmpty() {
		side := b.bids
		if n.order.Side == orderbookv1.SideSell {
			side = b.asks
		}
		side.remove(level.price)
	}

	return nil
}

// BestPrices returns the best bid and ask price. 0 marks an empty side.
func (b *Book) BestPrices() (bestBid, bestAsk int64) {
	if level := b.bids.best(); level != nil {
		bestBid = level.price
	}
	if level := b.asks.best(); level != nil {
		bestAsk = level.price
	}
	return bestBid, bestAsk
}

// Volume returns the summed remaining quantity at an exact price on one side,
// or 0 if the level does not exist.
func (b *Book) Volume(side orderbookv1.Side, price int64) int64 {
	ld := b.bids
	if side == orderbookv1.SideSell {
		ld = b.asks
	}

	level := ld.find(price)
	if level == nil {
		return 0
	}
	return level.volume
}

// TotalOrders returns the number of currently resting orders.
func (b *Book) TotalOrders() int {
	return len(b.orders)
}

// TotalTrades returns the number of trades ever executed, including the count
// carried over by a restore.
func (b *Book) TotalTrades() int64 {
	return b.tradeBase + int64(len(b.trades))
}

// Trades returns a copy of the trade history since the last restore.
func (b *Book) Trades() []orderbookv1.Trade {
	trades := make([]orderbookv1.Trade, len(b.trades))
	copy(trades, b.trades)
	return trades
}

// Asks returns ask levels best (lowest) price first.
func (b *Book) Asks() []orderbookv1.LevelView {
	return levelViews(b.asks)
}

// Bids returns bid levels best (highest) price first.
func (b *Book) Bids() []orderbookv1.LevelView {
	return levelViews(b.bids)
}

func levelViews(ld *ladder) []orderbookv1.LevelView {
	views := make([]orderbookv1.LevelView, 0, ld.size())
	for _, level := range ld.levels {
		views = append(views, orderbookv1.LevelView{
			Price:  level.price,
			Volume: level.volume,
			Orders: level.count,
		})
	}
	return views
}

// CreateSnapshot captures every resting order, per level in arrival order,
// plus the total trade count. Caller must hold the single-writer position.
func (b *Book) CreateSnapshot() *snapshotv1.Snapshot {
	bookOrders := make([]snapshotv1.BookOrder, 0, len(b.orders))

	collect := func(ld *ladder) {
		for _, level := range ld.levels {
			for n := level.head; n != nil; n = n.next {
				bookOrders = append(bookOrders, snapshotv1.BookOrder{
					OrderID:   n.order.ID,
					Bid:       n.order.IsBuy(),
					Price:     n.order.Price,
					Quantity:  n.order.Quantity,
					Remaining: n.order.Remaining,
					Timestamp: n.order.Timestamp,
				})
			}
		}
	}
	collect(b.bids)
	collect(b.asks)

	return &snapshotv1.Snapshot{
		BookSnapshot: snapshotv1.BookSnapshot{
			Orders:     bookOrders,
			TradeCount: b.TotalTrades(),
		},
	}
}

// Restore replaces the book state with the snapshot contents. Orders are
// re-inserted in snapshot order, which preserves each level's FIFO queue.
// The whole snapshot is validated before anything is mutated, so a bad
// snapshot leaves the current book intact.
func (b *Book) Restore(snapshot *snapshotv1.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	seen := make(map[uint64]struct{}, len(snapshot.BookSnapshot.Orders))
	for _, bo := range snapshot.BookSnapshot.Orders {
		if bo.Price <= 0 || bo.Remaining <= 0 || bo.Remaining > bo.Quantity {
			return fmt.Errorf("%w: snapshot order %d", orderbookv1.ErrInvalidOrder, bo.OrderID)
		}
		if _, dup := seen[bo.OrderID]; dup {
			return fmt.Errorf("%w: snapshot order %d", orderbookv1.ErrDuplicateOrderID, bo.OrderID)
		}
		seen[bo.OrderID] = struct{}{}
	}

	b.bids = newBidLadder()
	b.asks = newAskLadder()
	b.orders = make(map[uint64]*node, len(seen))
	b.trades = nil
	b.tradeBase = snapshot.BookSnapshot.TradeCount

	for _, bo := range snapshot.BookSnapshot.Orders {
		side := orderbookv1.SideSell
		if bo.Bid {
			side = orderbookv1.SideBuy
		}

		b.rest(&orderbookv1.Order{
			ID:        bo.OrderID,
			Price:     bo.Price,
			Quantity:  bo.Quantity,
			Remaining: bo.Remaining,
			Side:      side,
			Timestamp: bo.Timestamp,
		})
	}

	return nil
}
