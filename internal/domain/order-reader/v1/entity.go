package orderreaderv1

// PayloadType represents the kind of instruction carried by an order payload.
type PayloadType string

const (
	// PayloadTypePlace asks the engine to place a new limit order.
	PayloadTypePlace PayloadType = "place"
	// PayloadTypeCancel asks the engine to cancel a resting order.
	PayloadTypeCancel PayloadType = "cancel"
)

// OrderPayload is the JSON envelope consumed from the order topic.
type OrderPayload struct {
	Type     PayloadType `json:"type"`
	OrderID  uint64      `json:"orderID"`
	Side     string      `json:"side"`     // "buy" or "sell"
	Price    int64       `json:"price"`    // in ticks
	Quantity int64       `json:"quantity"` // integer units
	Offset   int64       `json:"-"`        // stream offset, set from the message
}
