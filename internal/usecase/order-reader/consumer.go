package orderreader

import (
	"context"
	"encoding/json"

	orderreaderv1 "limitbook/internal/domain/order-reader/v1"
	"limitbook/pkg/config"
	"limitbook/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Reader represents a Kafka Reader for consuming messages from the order topic.
type Reader struct {
	kafkaReader *kafka.Reader
	logger      logger.Interface
}

// NewReader creates a new Kafka reader for consuming messages from the order topic.
// It returns an implementation of the OrderReader interface.
func NewReader(config config.KafkaConfig, log logger.Interface) Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

// logError is a helper method to log errors consistently
func (r Reader) logError(err error, operation string) {
	r.logger.Error(err,
		logger.Field{Key: "operation", Value: operation},
	)
}

// SetOffset sets the offset for the Kafka reader.
func (r Reader) SetOffset(offset int64) error {
	if err := r.kafkaReader.SetOffset(offset); err != nil {
		r.logError(err, "SetOffset")
		return err
	}
	return nil
}

// ReadMessage reads a message from the Kafka topic and parses it as an order payload.
func (r Reader) ReadMessage(ctx context.Context) (kafka.Message, *orderreaderv1.OrderPayload, error) {
	msg, err := r.kafkaReader.ReadMessage(ctx)
	if err != nil {
		r.logError(err, "ReadMessage")
		return kafka.Message{}, nil, err
	}

	var payload orderreaderv1.OrderPayload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		r.logError(err, "UnmarshalOrder")
		return kafka.Message{}, nil, err
	}

	r.logger.Debug("ReadMessage",
		logger.Field{Key: "type", Value: payload.Type},
		logger.Field{Key: "orderID", Value: payload.OrderID},
		logger.Field{Key: "side", Value: payload.Side},
		logger.Field{Key: "price", Value: payload.Price},
		logger.Field{Key: "quantity", Value: payload.Quantity},
	)

	payload.Offset = msg.Offset

	return msg, &payload, nil
}

// Close properly closes the Kafka reader.
func (r Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(err, "Close")
		return err
	}
	return nil
}

// CommitMessages commits the messages to Kafka after processing.
func (r Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	// The reader runs without a consumer group; offsets are tracked by the
	// engine through snapshots, so there is nothing to commit.
	return nil
}
