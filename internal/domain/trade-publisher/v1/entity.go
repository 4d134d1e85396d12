package tradepublisherv1

import (
	"encoding/json"

	orderbookv1 "limitbook/internal/domain/orderbook/v1"
)

// TradeEvent is the JSON envelope published to the trade topic for every fill.
type TradeEvent struct {
	TradeID     string `json:"tradeID"`
	Pair        string `json:"pair"`
	BuyOrderID  uint64 `json:"buyOrderID"`
	SellOrderID uint64 `json:"sellOrderID"`
	Price       int64  `json:"price"` // in ticks, maker price
	Quantity    int64  `json:"quantity"`
	Timestamp   int64  `json:"timestamp"`
}

// CreateFromTrade builds a trade event from an executed trade.
func CreateFromTrade(trade *orderbookv1.Trade, pair string) *TradeEvent {
	return &TradeEvent{
		TradeID:     trade.ID,
		Pair:        pair,
		BuyOrderID:  trade.BuyOrderID,
		SellOrderID: trade.SellOrderID,
		Price:       trade.Price,
		Quantity:    trade.Quantity,
		Timestamp:   trade.Timestamp,
	}
}

// ToBytes converts the trade event to a byte array.
func ToBytes(event *TradeEvent) []byte {
	buf, err := json.Marshal(event)
	if err != nil {
		return nil
	}
	return buf
}

// FromBytes converts a byte array to a trade event.
func FromBytes(data []byte) *TradeEvent {
	var event TradeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil
	}
	return &event
}
