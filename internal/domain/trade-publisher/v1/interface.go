package tradepublisherv1

import "context"

// TradePublisher defines the interface for publishing trade events.
type TradePublisher interface {
	// PublishTrade publishes a trade event to the trade topic.
	PublishTrade(ctx context.Context, event *TradeEvent) error
}
