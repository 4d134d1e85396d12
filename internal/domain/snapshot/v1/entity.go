package snapshotv1

// Snapshot represents a snapshot of the order book at a specific point in time.
// It is always captured by the single matching writer between two commands, so
// it is atomic relative to the order stream offset it carries.
type Snapshot struct {
	OrderOffset  int64        `json:"orderOffset"`
	BookSnapshot BookSnapshot `json:"bookSnapshot"`
}

// BookSnapshot represents the state of the order book at a specific point in time.
// Orders are listed per price level in arrival order so a restore rebuilds the
// same FIFO queues.
type BookSnapshot struct {
	Orders     []BookOrder `json:"orders"`
	TradeCount int64       `json:"tradeCount"`
}

// BookOrder represents one resting order in the snapshot.
type BookOrder struct {
	OrderID   uint64 `json:"orderID"`
	Bid       bool   `json:"bid"`
	Price     int64  `json:"price"` // in ticks
	Quantity  int64  `json:"quantity"`
	Remaining int64  `json:"remaining"`
	Timestamp int64  `json:"timestamp"`
}
