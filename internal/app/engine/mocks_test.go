package engine

import (
	"context"

	orderreaderv1 "limitbook/internal/domain/order-reader/v1"
	snapshotv1 "limitbook/internal/domain/snapshot/v1"
	tradepublisherv1 "limitbook/internal/domain/trade-publisher/v1"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

type mockOrderReader struct {
	mock.Mock
}

func (m *mockOrderReader) ReadMessage(ctx context.Context) (kafka.Message, *orderreaderv1.OrderPayload, error) {
	args := m.Called(ctx)
	msg, _ := args.Get(0).(kafka.Message)
	payload, _ := args.Get(1).(*orderreaderv1.OrderPayload)
	return msg, payload, args.Error(2)
}

func (m *mockOrderReader) SetOffset(offset int64) error {
	return m.Called(offset).Error(0)
}

func (m *mockOrderReader) Close() error {
	return m.Called().Error(0)
}

func (m *mockOrderReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

type mockSnapshotStore struct {
	mock.Mock
}

func (m *mockSnapshotStore) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

func (m *mockSnapshotStore) Load(ctx context.Context) (*snapshotv1.Snapshot, error) {
	args := m.Called(ctx)
	snapshot, _ := args.Get(0).(*snapshotv1.Snapshot)
	return snapshot, args.Error(1)
}

type mockTradePublisher struct {
	mock.Mock
}

func (m *mockTradePublisher) PublishTrade(ctx context.Context, event *tradepublisherv1.TradeEvent) error {
	return m.Called(ctx, event).Error(0)
}
