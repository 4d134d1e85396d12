package tradepublisher

import (
	"context"

	tradepublisherv1 "limitbook/internal/domain/trade-publisher/v1"
	"limitbook/pkg/config"
	"limitbook/pkg/errors"
	"limitbook/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Publisher represents a Kafka Publisher for publishing trade events.
type Publisher struct {
	kafkaWriter *kafka.Writer
	logger      logger.Interface
}

// NewPublisher creates a new Kafka publisher for publishing trade events.
func NewPublisher(config config.TradePublisherConfig, logger logger.Interface) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: config.Brokers,
		Topic:   config.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      logger,
	}
}

// PublishTrade publishes a trade event to the Kafka topic.
func (p *Publisher) PublishTrade(ctx context.Context, event *tradepublisherv1.TradeEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.TradeID),
		Value: tradepublisherv1.ToBytes(event),
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "tradeID", Value: event.TradeID},
			logger.Field{Key: "pair", Value: event.Pair},
		)
		return errors.Trace(err, "publish trade event")
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}
