package orderbook

import (
	"testing"

	orderbookv1 "limitbook/internal/domain/orderbook/v1"
	snapshotv1 "limitbook/internal/domain/snapshot/v1"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestOrder(id uint64, side orderbookv1.Side, price, quantity int64) *orderbookv1.Order {
	return orderbookv1.NewOrder(id, side, price, quantity)
}

// assertNotCrossed checks the book never holds a bid at or above the best ask.
func assertNotCrossed(t *testing.T, b *Book) {
	t.Helper()
	bestBid, bestAsk := b.BestPrices()
	if bestBid != 0 && bestAsk != 0 {
		assert.Less(t, bestBid, bestAsk)
	}
}

// Test 1: Basic constructor
func TestNewBook(t *testing.T) {
	b := NewBook()

	assert.NotNil(t, b)
	assert.Equal(t, 0, b.TotalOrders())
	assert.Equal(t, int64(0), b.TotalTrades())
	assert.Empty(t, b.Asks())
	assert.Empty(t, b.Bids())

	bestBid, bestAsk := b.BestPrices()
	assert.Equal(t, int64(0), bestBid)
	assert.Equal(t, int64(0), bestAsk)
}

// Test 2: A non-crossing order rests on its side
func TestBook_AddOrder_Rests(t *testing.T) {
	b := NewBook()

	trades, err := b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 10))
	require.NoError(t, err)
	assert.Empty(t, trades)

	assert.Equal(t, 1, b.TotalOrders())
	assert.Equal(t, int64(10), b.Volume(orderbookv1.SideSell, 10_000))

	bestBid, bestAsk := b.BestPrices()
	assert.Equal(t, int64(0), bestBid)
	assert.Equal(t, int64(10_000), bestAsk)
}

// Test 3: Orders at the same price share one level
func TestBook_SamePriceLevel(t *testing.T) {
	b := NewBook()

	_, err := b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 10))
	require.NoError(t, err)
	_, err = b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_000, 5))
	require.NoError(t, err)

	assert.Equal(t, 2, b.TotalOrders())
	assert.Equal(t, int64(15), b.Volume(orderbookv1.SideSell, 10_000))

	asks := b.Asks()
	require.Len(t, asks, 1)
	assert.Equal(t, int64(10_000), asks[0].Price)
	assert.Equal(t, 2, asks[0].Orders)
}

// Test 4: A crossing buy fills at the maker's price
func TestBook_Match_Basic(t *testing.T) {
	b := NewBook()

	_, err := b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 10))
	require.NoError(t, err)

	// Buyer is willing to pay more than the resting ask
	trades, err := b.AddOrder(createTestOrder(2, orderbookv1.SideBuy, 10_500, 5))
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, int64(10_000), trades[0].Price) // maker price, not taker limit
	assert.Equal(t, int64(5), trades[0].Quantity)
	assert.Equal(t, uint64(2), trades[0].BuyOrderID)
	assert.Equal(t, uint64(1), trades[0].SellOrderID)
	assert.NotEmpty(t, trades[0].ID)

	// Maker partially filled, taker gone
	assert.Equal(t, 1, b.TotalOrders())
	assert.Equal(t, int64(5), b.Volume(orderbookv1.SideSell, 10_000))
	assert.Equal(t, int64(1), b.TotalTrades())
	assertNotCrossed(t, b)
}

// Test 5: Matching walks ask levels in price priority
func TestBook_Match_MultipleLevels(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_100, 3))
	b.AddOrder(createTestOrder(3, orderbookv1.SideSell, 10_200, 7))

	trades, err := b.AddOrder(createTestOrder(4, orderbookv1.SideBuy, 10_200, 12))
	require.NoError(t, err)

	require.Len(t, trades, 3)
	assert.Equal(t, int64(10_000), trades[0].Price)
	assert.Equal(t, int64(5), trades[0].Quantity)
	assert.Equal(t, int64(10_100), trades[1].Price)
	assert.Equal(t, int64(3), trades[1].Quantity)
	assert.Equal(t, int64(10_200), trades[2].Price)
	assert.Equal(t, int64(4), trades[2].Quantity)

	// Only the partially filled last maker remains
	assert.Equal(t, 1, b.TotalOrders())
	assert.Equal(t, int64(3), b.Volume(orderbookv1.SideSell, 10_200))
	assertNotCrossed(t, b)
}

// Test 6: Matching stops at the taker's limit
func TestBook_Match_StopsAtLimit(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_200, 5))

	trades, err := b.AddOrder(createTestOrder(3, orderbookv1.SideBuy, 10_100, 10))
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, int64(10_000), trades[0].Price)

	// Remainder rests as the new best bid below the surviving ask
	bestBid, bestAsk := b.BestPrices()
	assert.Equal(t, int64(10_100), bestBid)
	assert.Equal(t, int64(10_200), bestAsk)
	assert.Equal(t, int64(5), b.Volume(orderbookv1.SideBuy, 10_100))
	assertNotCrossed(t, b)
}

// Test 7: FIFO within a price level
func TestBook_Match_TimePriority(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(3, orderbookv1.SideSell, 10_000, 5))

	trades, err := b.AddOrder(createTestOrder(4, orderbookv1.SideBuy, 10_000, 8))
	require.NoError(t, err)

	// First arrival fills first, second fills partially
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(1), trades[0].SellOrderID)
	assert.Equal(t, int64(5), trades[0].Quantity)
	assert.Equal(t, uint64(2), trades[1].SellOrderID)
	assert.Equal(t, int64(3), trades[1].Quantity)

	assert.Equal(t, int64(7), b.Volume(orderbookv1.SideSell, 10_000))
}

// Test 8: A sell taker matches the highest bids first
func TestBook_Match_SellSide(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideBuy, 10_000, 5))
	b.AddOrder(createTestOrder(2, orderbookv1.SideBuy, 10_100, 5))

	trades, err := b.AddOrder(createTestOrder(3, orderbookv1.SideSell, 9_900, 8))
	require.NoError(t, err)

	require.Len(t, trades, 2)
	assert.Equal(t, int64(10_100), trades[0].Price)
	assert.Equal(t, int64(5), trades[0].Quantity)
	assert.Equal(t, uint64(2), trades[0].BuyOrderID)
	assert.Equal(t, uint64(3), trades[0].SellOrderID)

	assert.Equal(t, int64(10_000), trades[1].Price)
	assert.Equal(t, int64(3), trades[1].Quantity)
	assert.Equal(t, uint64(1), trades[1].BuyOrderID)

	assert.Equal(t, int64(2), b.Volume(orderbookv1.SideBuy, 10_000))
	assertNotCrossed(t, b)
}

// Test 9: Quantity is conserved across any sequence of fills
func TestBook_QuantityConservation(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 10))
	b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_100, 10))
	trades, err := b.AddOrder(createTestOrder(3, orderbookv1.SideBuy, 10_100, 15))
	require.NoError(t, err)

	var traded int64
	for _, trade := range trades {
		traded += trade.Quantity
	}
	restingSell := b.Volume(orderbookv1.SideSell, 10_000) + b.Volume(orderbookv1.SideSell, 10_100)
	restingBuy := b.Volume(orderbookv1.SideBuy, 10_100)

	// Placed 20 sell and 15 buy; every unit is either traded or resting
	assert.Equal(t, int64(15), traded)
	assert.Equal(t, int64(20), traded+restingSell)
	assert.Equal(t, int64(15), traded+restingBuy)
}

// Test 10: Cancel removes the order and only the order
func TestBook_CancelOrder(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(3, orderbookv1.SideSell, 10_000, 5))

	err := b.CancelOrder(2)
	require.NoError(t, err)

	assert.Equal(t, 2, b.TotalOrders())
	assert.Equal(t, int64(10), b.Volume(orderbookv1.SideSell, 10_000))

	// FIFO of survivors is intact: order 1 still fills before order 3
	trades, err := b.AddOrder(createTestOrder(4, orderbookv1.SideBuy, 10_000, 6))
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(1), trades[0].SellOrderID)
	assert.Equal(t, uint64(3), trades[1].SellOrderID)
}

// Test 11: Cancelling the last order at a price prunes the level
func TestBook_CancelOrder_PrunesLevel(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideBuy, 10_000, 5))
	require.NoError(t, b.CancelOrder(1))

	assert.Empty(t, b.Bids())
	bestBid, _ := b.BestPrices()
	assert.Equal(t, int64(0), bestBid)
}

// Test 12: Cancel error cases
func TestBook_CancelOrder_Errors(t *testing.T) {
	b := NewBook()

	err := b.CancelOrder(42)
	assert.ErrorIs(t, err, orderbookv1.ErrOrderNotFound)

	// Cancel twice: second attempt must fail
	b.AddOrder(createTestOrder(1, orderbookv1.SideBuy, 10_000, 5))
	require.NoError(t, b.CancelOrder(1))
	err = b.CancelOrder(1)
	assert.ErrorIs(t, err, orderbookv1.ErrOrderNotFound)

	// A fully filled order is no longer cancellable
	b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(3, orderbookv1.SideBuy, 10_000, 5))
	err = b.CancelOrder(2)
	assert.ErrorIs(t, err, orderbookv1.ErrOrderNotFound)
}

// Test 13: AddOrder validation leaves the book untouched
func TestBook_AddOrder_Validation(t *testing.T) {
	b := NewBook()
	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 10))

	testCases := []struct {
		name    string
		order   *orderbookv1.Order
		wantErr error
	}{
		{"nil order", nil, orderbookv1.ErrNilOrder},
		{"zero price", createTestOrder(2, orderbookv1.SideBuy, 0, 10), orderbookv1.ErrInvalidOrder},
		{"negative price", createTestOrder(3, orderbookv1.SideBuy, -1, 10), orderbookv1.ErrInvalidOrder},
		{"zero quantity", createTestOrder(4, orderbookv1.SideBuy, 10_000, 0), orderbookv1.ErrInvalidOrder},
		{"duplicate id", createTestOrder(1, orderbookv1.SideBuy, 9_000, 10), orderbookv1.ErrDuplicateOrderID},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trades, err := b.AddOrder(tc.order)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, trades)

			// Rejected orders leave no trace
			assert.Equal(t, 1, b.TotalOrders())
			assert.Equal(t, int64(0), b.TotalTrades())
			assert.Equal(t, int64(10), b.Volume(orderbookv1.SideSell, 10_000))
		})
	}
}

// Test 14: A taker's id may be reused by a later order once fully filled
func TestBook_OrderIDReusableAfterFill(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 5))
	trades, err := b.AddOrder(createTestOrder(2, orderbookv1.SideBuy, 10_000, 5))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	// Both 1 and 2 are gone from the index
	_, err = b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 5))
	assert.NoError(t, err)
	_, err = b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_000, 5))
	assert.NoError(t, err)
}

// Test 15: Queries do not mutate state
func TestBook_QueriesAreIdempotent(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 10))
	b.AddOrder(createTestOrder(2, orderbookv1.SideBuy, 9_000, 10))

	for i := 0; i < 3; i++ {
		bestBid, bestAsk := b.BestPrices()
		assert.Equal(t, int64(9_000), bestBid)
		assert.Equal(t, int64(10_000), bestAsk)
		assert.Equal(t, int64(10), b.Volume(orderbookv1.SideSell, 10_000))
		assert.Equal(t, 2, b.TotalOrders())
		assert.Equal(t, int64(0), b.TotalTrades())
	}
}

// Test 16: Level views come back in priority order
func TestBook_LevelViews(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_200, 3))
	b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(3, orderbookv1.SideBuy, 9_900, 4))
	b.AddOrder(createTestOrder(4, orderbookv1.SideBuy, 9_800, 2))

	asks := b.Asks()
	require.Len(t, asks, 2)
	assert.Equal(t, int64(10_000), asks[0].Price)
	assert.Equal(t, int64(5), asks[0].Volume)
	assert.Equal(t, int64(10_200), asks[1].Price)

	bids := b.Bids()
	require.Len(t, bids, 2)
	assert.Equal(t, int64(9_900), bids[0].Price)
	assert.Equal(t, int64(9_800), bids[1].Price)
}

// Test 17: Trade history accumulates in execution order
func TestBook_TradeHistory(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(2, orderbookv1.SideBuy, 10_000, 3))
	b.AddOrder(createTestOrder(3, orderbookv1.SideBuy, 10_000, 2))

	trades := b.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, int64(3), trades[0].Quantity)
	assert.Equal(t, int64(2), trades[1].Quantity)
	assert.Equal(t, int64(2), b.TotalTrades())

	// Returned slice is a copy
	trades[0].Quantity = 999
	assert.Equal(t, int64(3), b.Trades()[0].Quantity)
}

// Test 18: Snapshot and restore round-trip
func TestBook_SnapshotRestore(t *testing.T) {
	b := NewBook()

	b.AddOrder(createTestOrder(1, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(2, orderbookv1.SideSell, 10_000, 7))
	b.AddOrder(createTestOrder(3, orderbookv1.SideBuy, 9_900, 4))
	b.AddOrder(createTestOrder(4, orderbookv1.SideBuy, 10_000, 2)) // fills 2 against order 1

	snapshot := b.CreateSnapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(1), snapshot.BookSnapshot.TradeCount)
	assert.Len(t, snapshot.BookSnapshot.Orders, 3)

	restored := NewBook()
	require.NoError(t, restored.Restore(snapshot))

	assert.Equal(t, b.TotalOrders(), restored.TotalOrders())
	assert.Equal(t, b.TotalTrades(), restored.TotalTrades())

	bestBid, bestAsk := restored.BestPrices()
	assert.Equal(t, int64(9_900), bestBid)
	assert.Equal(t, int64(10_000), bestAsk)
	assert.Equal(t, int64(10), restored.Volume(orderbookv1.SideSell, 10_000))

	// FIFO survives the round-trip: order 1's remainder fills before order 2
	trades, err := restored.AddOrder(createTestOrder(5, orderbookv1.SideBuy, 10_000, 4))
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(1), trades[0].SellOrderID)
	assert.Equal(t, int64(3), trades[0].Quantity)
	assert.Equal(t, uint64(2), trades[1].SellOrderID)
}

// Test 19: A failed restore leaves the current book untouched
func TestBook_Restore_Errors(t *testing.T) {
	b := NewBook()
	b.AddOrder(createTestOrder(10, orderbookv1.SideSell, 10_000, 5))
	b.AddOrder(createTestOrder(11, orderbookv1.SideBuy, 9_900, 3))

	assertUnchanged := func(t *testing.T) {
		t.Helper()
		assert.Equal(t, 2, b.TotalOrders())
		bestBid, bestAsk := b.BestPrices()
		assert.Equal(t, int64(9_900), bestBid)
		assert.Equal(t, int64(10_000), bestAsk)
		assert.Equal(t, int64(5), b.Volume(orderbookv1.SideSell, 10_000))
	}

	assert.Error(t, b.Restore(nil))
	assertUnchanged(t)

	duplicate := snapshotv1.BookOrder{OrderID: 1, Bid: true, Price: 10_000, Quantity: 5, Remaining: 5}
	err := b.Restore(&snapshotv1.Snapshot{
		BookSnapshot: snapshotv1.BookSnapshot{
			Orders: []snapshotv1.BookOrder{duplicate, duplicate},
		},
	})
	assert.ErrorIs(t, err, orderbookv1.ErrDuplicateOrderID)
	assertUnchanged(t)

	invalidCases := []snapshotv1.BookOrder{
		{OrderID: 2, Bid: false, Price: 0, Quantity: 5, Remaining: 5},
		{OrderID: 3, Bid: true, Price: 10_000, Quantity: 5, Remaining: 0},
		{OrderID: 4, Bid: true, Price: 10_000, Quantity: 5, Remaining: 6},
	}
	for _, bo := range invalidCases {
		err := b.Restore(&snapshotv1.Snapshot{
			BookSnapshot: snapshotv1.BookSnapshot{Orders: []snapshotv1.BookOrder{bo}},
		})
		assert.ErrorIs(t, err, orderbookv1.ErrInvalidOrder)
		assertUnchanged(t)
	}
}
