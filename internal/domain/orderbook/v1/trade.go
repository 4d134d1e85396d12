package orderbookv1

// Trade is an immutable record of one fill between a buy and a sell order.
// The price is always the resting (maker) order's price.
type Trade struct {
	ID          string `json:"id"`
	BuyOrderID  uint64 `json:"buyOrderID"`
	SellOrderID uint64 `json:"sellOrderID"`
	Price       int64  `json:"price"` // in ticks, maker price
	Quantity    int64  `json:"quantity"`
	Timestamp   int64  `json:"timestamp"` // UnixNano
}

// LevelView is a read-only row of one price level: its price, the running
// sum of remaining quantities and the number of resting orders.
type LevelView struct {
	Price  int64 `json:"price"`
	Volume int64 `json:"volume"`
	Orders int   `json:"orders"`
}
