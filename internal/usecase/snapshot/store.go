package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	snapshotv1 "limitbook/internal/domain/snapshot/v1"
	"limitbook/pkg/errors"
	"limitbook/pkg/logger"
	"limitbook/pkg/redis"
)

// Store persists order book snapshots in Redis, keyed by trading pair.
type Store struct {
	pair        string
	logger      *logger.Logger
	redisclient redis.Client
}

// NewSnapshotStore creates a new Store instance with the given Redis client and pair.
func NewSnapshotStore(redisclient redis.Client, pair string, logger *logger.Logger) *Store {
	return &Store{
		pair:        pair,
		redisclient: redisclient,
		logger:      logger,
	}
}

// Store stores the snapshot in Redis.
func (s *Store) Store(ctx context.Context, snapshot *snapshotv1.Snapshot) error {
	buf, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		})
		return errors.Trace(err, "marshal snapshot")
	}

	if err := s.redisclient.Set(ctx, s.key(), buf, 0); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		})
		return errors.Trace(err, "store snapshot")
	}

	s.logger.InfoContext(ctx, "Snapshot stored", logger.Field{
		Key:   "pair",
		Value: s.pair,
	}, logger.Field{
		Key:   "orderOffset",
		Value: snapshot.OrderOffset,
	}, logger.Field{
		Key:   "orders",
		Value: len(snapshot.BookSnapshot.Orders),
	})
	return nil
}

// Load loads the snapshot from Redis. A missing snapshot is not an error and
// returns (nil, nil).
func (s *Store) Load(ctx context.Context) (*snapshotv1.Snapshot, error) {
	data, err := s.redisclient.Get(ctx, s.key())
	if err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		}, logger.Field{
			Key:   "action",
			Value: "load snapshot",
		})
		return nil, errors.Trace(err, "load snapshot")
	}

	if data == "" {
		s.logger.WarnContext(ctx, fmt.Sprintf("No snapshot found for pair %s", s.pair), logger.Field{
			Key:   "pair",
			Value: s.pair,
		})
		return nil, nil
	}

	var snapshot snapshotv1.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "pair",
			Value: s.pair,
		}, logger.Field{
			Key:   "action",
			Value: "unmarshal snapshot",
		})
		return nil, errors.Trace(err, "unmarshal snapshot")
	}

	return &snapshot, nil
}

func (s *Store) key() string {
	return "limitbook:snapshot:" + s.pair
}
