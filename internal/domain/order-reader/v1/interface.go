package orderreaderv1

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// OrderReader defines the interface for reading orders from a source.
type OrderReader interface {
	// ReadMessage reads a message and returns the parsed order payload
	ReadMessage(ctx context.Context) (kafka.Message, *OrderPayload, error)
	// SetOffset sets the offset for the reader
	SetOffset(offset int64) error
	// Close closes the reader
	Close() error
	// CommitMessages commits the messages after processing
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}
