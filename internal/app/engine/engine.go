package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	orderreaderv1 "limitbook/internal/domain/order-reader/v1"
	orderbookv1 "limitbook/internal/domain/orderbook/v1"
	snapshotv1 "limitbook/internal/domain/snapshot/v1"
	tradepublisherv1 "limitbook/internal/domain/trade-publisher/v1"
	"limitbook/pkg/config"
	"limitbook/pkg/logger"

	"go.uber.org/zap/zapcore"
)

// Stats is a point-in-time summary of the book, answered atomically by the
// command loop.
type Stats struct {
	BestBid     int64
	BestAsk     int64
	OpenOrders  int
	TotalTrades int64
	OrderOffset int64
	Bids        []orderbookv1.LevelView
	Asks        []orderbookv1.LevelView
}

// command is a unit of work for the engine's single writer goroutine. Every
// mutation and every query of the book goes through the command queue, so the
// book itself never needs a lock and replies are consistent with the exact
// stream position at which they were computed.
type command interface{ isCommand() }

type placeResult struct {
	trades []orderbookv1.Trade
	err    error
}

type placeCommand struct {
	order  *orderbookv1.Order
	offset int64 // stream offset, -1 for API-originated commands
	reply  chan placeResult
}

type cancelCommand struct {
	orderID uint64
	offset  int64
	reply   chan error
}

type bestPricesCommand struct {
	reply chan [2]int64
}

type volumeCommand struct {
	side  orderbookv1.Side
	price int64
	reply chan int64
}

type statsCommand struct {
	reply chan Stats
}

type snapshotCommand struct{}

func (placeCommand) isCommand()      {}
func (cancelCommand) isCommand()     {}
func (bestPricesCommand) isCommand() {}
func (volumeCommand) isCommand()     {}
func (statsCommand) isCommand()      {}
func (snapshotCommand) isCommand()   {}

// Engine owns one order book and processes every command against it from a
// single goroutine. Orders arrive from the order stream and from the public
// API; both paths funnel into the same queue and are applied in arrival order.
type Engine struct {
	book           orderbookv1.Book
	orderReader    orderreaderv1.OrderReader
	snapshotStore  snapshotv1.Store
	tradePublisher tradepublisherv1.TradePublisher
	logger         *logger.Logger
	config         *config.Config

	commands chan command

	// Owned by the command loop after Start; written here only before the
	// goroutines exist.
	orderOffset        int64
	lastSnapshotOffset int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	snapshotInterval    time.Duration
	snapshotOffsetDelta int64
}

// NewEngine creates a new instance of Engine with the provided dependencies.
func NewEngine(
	book orderbookv1.Book,
	orderReader orderreaderv1.OrderReader,
	snapshotStore snapshotv1.Store,
	tradePublisher tradepublisherv1.TradePublisher,
	logger *logger.Logger,
	config *config.Config,
) *Engine {
	options := &Options{
		SnapshotInterval:    config.EngineConfig.SnapshotInterval,
		SnapshotOffsetDelta: config.EngineConfig.SnapshotOffsetDelta,
		CommandBuffer:       config.EngineConfig.CommandBuffer,
	}
	return NewEngineWithOptions(book, orderReader, snapshotStore, tradePublisher, logger, config, options)
}

// NewEngineWithOptions creates a new engine with custom options.
func NewEngineWithOptions(
	book orderbookv1.Book,
	orderReader orderreaderv1.OrderReader,
	snapshotStore snapshotv1.Store,
	tradePublisher tradepublisherv1.TradePublisher,
	logger *logger.Logger,
	config *config.Config,
	options *Options,
) *Engine {
	e := &Engine{
		book:           book,
		orderReader:    orderReader,
		snapshotStore:  snapshotStore,
		tradePublisher: tradePublisher,
		logger:         logger,
		config:         config,

		commands: make(chan command, options.CommandBuffer),

		snapshotInterval:    options.SnapshotInterval,
		snapshotOffsetDelta: options.SnapshotOffsetDelta,
		orderOffset:         -1,
	}

	// A usable context from birth, so API calls before Start block on their
	// own deadline instead of dereferencing nil. Start rebinds it to the
	// caller's context.
	e.ctx, e.cancel = context.WithCancel(context.Background())

	// Restore state before any goroutine can touch the book.
	if err := e.loadSnapshot(context.Background()); err != nil {
		e.logger.GetZap().Fatal("Failed to load snapshot", zapcore.Field{
			Key:       "error",
			Type:      zapcore.ErrorType,
			Interface: err,
		})
	}

	return e
}

// Start launches the command loop, the order stream consumer and the snapshot
// manager.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	startOffset := e.orderOffset
	if startOffset >= 0 {
		startOffset++
	}
	if err := e.orderReader.SetOffset(startOffset); err != nil {
		return err
	}

	e.wg.Add(3)
	go e.runCommandLoop()
	go e.runOrderConsumer()
	go e.runSnapshotManager()

	e.logger.Info("Engine started", logger.Field{
		Key:   "pair",
		Value: e.config.Pair,
	})

	return nil
}

// Stop gracefully shuts down the engine.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Engine stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Engine stop timeout exceeded")
		return ctx.Err()
	}
}

// PlaceOrder submits a limit order and waits for the match result. Trades are
// returned in execution order.
func (e *Engine) PlaceOrder(ctx context.Context, order *orderbookv1.Order) ([]orderbookv1.Trade, error) {
	cmd := placeCommand{order: order, offset: -1, reply: make(chan placeResult, 1)}
	if err := e.enqueue(ctx, cmd); err != nil {
		return nil, err
	}
	select {
	case res := <-cmd.reply:
		return res.trades, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.ctx.Done():
		return nil, e.ctx.Err()
	}
}

// CancelOrder removes a resting order.
func (e *Engine) CancelOrder(ctx context.Context, orderID uint64) error {
	cmd := cancelCommand{orderID: orderID, offset: -1, reply: make(chan error, 1)}
	if err := e.enqueue(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}

// BestPrices returns the current best bid and ask. 0 marks an empty side.
func (e *Engine) BestPrices(ctx context.Context) (bestBid, bestAsk int64, err error) {
	cmd := bestPricesCommand{reply: make(chan [2]int64, 1)}
	if err := e.enqueue(ctx, cmd); err != nil {
		return 0, 0, err
	}
	select {
	case prices := <-cmd.reply:
		return prices[0], prices[1], nil
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	case <-e.ctx.Done():
		return 0, 0, e.ctx.Err()
	}
}

// Volume returns the resting volume at an exact price on one side.
func (e *Engine) Volume(ctx context.Context, side orderbookv1.Side, price int64) (int64, error) {
	cmd := volumeCommand{side: side, price: price, reply: make(chan int64, 1)}
	if err := e.enqueue(ctx, cmd); err != nil {
		return 0, err
	}
	select {
	case volume := <-cmd.reply:
		return volume, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-e.ctx.Done():
		return 0, e.ctx.Err()
	}
}

// Stats returns an atomic summary of the book and stream position.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	cmd := statsCommand{reply: make(chan Stats, 1)}
	if err := e.enqueue(ctx, cmd); err != nil {
		return Stats{}, err
	}
	select {
	case stats := <-cmd.reply:
		return stats, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-e.ctx.Done():
		return Stats{}, e.ctx.Err()
	}
}

func (e *Engine) enqueue(ctx context.Context, cmd command) error {
	select {
	case e.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}

// runCommandLoop is the single writer. Nothing else may touch the book, the
// offsets or the snapshot decision while it runs.
func (e *Engine) runCommandLoop() {
	defer e.wg.Done()

	e.logger.Info("Starting command loop", logger.Field{
		Key:   "pair",
		Value: e.config.Pair,
	})

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Command loop shutting down")
			return
		case cmd := <-e.commands:
			e.apply(cmd)
		}
	}
}

func (e *Engine) apply(cmd command) {
	switch c := cmd.(type) {
	case placeCommand:
		trades, err := e.book.AddOrder(c.order)
		if c.offset >= 0 {
			e.orderOffset = c.offset
		}
		c.reply <- placeResult{trades: trades, err: err}
		if err == nil && len(trades) > 0 {
			e.publishTrades(trades)
		}
	case cancelCommand:
		err := e.book.CancelOrder(c.orderID)
		if c.offset >= 0 {
			e.orderOffset = c.offset
		}
		c.reply <- err
	case bestPricesCommand:
		bid, ask := e.book.BestPrices()
		c.reply <- [2]int64{bid, ask}
	case volumeCommand:
		c.reply <- e.book.Volume(c.side, c.price)
	case statsCommand:
		bid, ask := e.book.BestPrices()
		c.reply <- Stats{
			BestBid:     bid,
			BestAsk:     ask,
			OpenOrders:  e.book.TotalOrders(),
			TotalTrades: e.book.TotalTrades(),
			OrderOffset: e.orderOffset,
			Bids:        e.book.Bids(),
			Asks:        e.book.Asks(),
		}
	case snapshotCommand:
		e.maybeSnapshot()
	}
}

// runOrderConsumer reads the order stream and turns each payload into a
// command. It waits for every reply before reading the next message, so the
// stream is applied strictly in offset order.
func (e *Engine) runOrderConsumer() {
	defer e.wg.Done()

	e.logger.Info("Starting order consumer", logger.Field{
		Key:   "pair",
		Value: e.config.Pair,
	})

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Order consumer shutting down")
			e.orderReader.Close()
			return
		default:
			msg, payload, err := e.orderReader.ReadMessage(e.ctx)
			if err != nil {
				if e.ctx.Err() != nil {
					continue
				}
				e.logger.ErrorContext(e.ctx, err, logger.Field{
					Key:   "action",
					Value: "read_order_message",
				})
				time.Sleep(100 * time.Millisecond)
				continue
			}

			if err := e.orderReader.CommitMessages(e.ctx, msg); err != nil {
				e.logger.ErrorContext(e.ctx, err, logger.Field{
					Key:   "action",
					Value: "commit_order_message",
				})
			}

			if err := e.dispatchPayload(payload); err != nil {
				e.logger.ErrorContext(e.ctx, err, logger.Field{
					Key:   "action",
					Value: "process_order",
				}, logger.Field{
					Key:   "orderID",
					Value: payload.OrderID,
				}, logger.Field{
					Key:   "offset",
					Value: payload.Offset,
				})
			}
		}
	}
}

// dispatchPayload converts a stream payload into a command and waits for it
// to be applied. A rejected payload is logged and skipped, never retried: the
// stream must keep moving.
func (e *Engine) dispatchPayload(payload *orderreaderv1.OrderPayload) error {
	switch payload.Type {
	case orderreaderv1.PayloadTypePlace:
		side, ok := orderbookv1.SideFromString(payload.Side)
		if !ok {
			return fmt.Errorf("invalid side %q", payload.Side)
		}
		order := orderbookv1.NewOrder(payload.OrderID, side, payload.Price, payload.Quantity)
		cmd := placeCommand{order: order, offset: payload.Offset, reply: make(chan placeResult, 1)}
		if err := e.enqueue(e.ctx, cmd); err != nil {
			return err
		}
		// The command loop may shut down with this command still buffered;
		// waiting on the reply alone would strand the consumer goroutine.
		select {
		case res := <-cmd.reply:
			return res.err
		case <-e.ctx.Done():
			return e.ctx.Err()
		}
	case orderreaderv1.PayloadTypeCancel:
		cmd := cancelCommand{orderID: payload.OrderID, offset: payload.Offset, reply: make(chan error, 1)}
		if err := e.enqueue(e.ctx, cmd); err != nil {
			return err
		}
		select {
		case err := <-cmd.reply:
			return err
		case <-e.ctx.Done():
			return e.ctx.Err()
		}
	default:
		e.logger.Warn("Unknown payload type", logger.Field{
			Key:   "type",
			Value: string(payload.Type),
		})
		return nil
	}
}

// runSnapshotManager periodically asks the command loop to snapshot. The
// capture itself happens inside the loop, so the stored book state and its
// stream offset always agree.
func (e *Engine) runSnapshotManager() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.snapshotInterval)
	defer ticker.Stop()

	e.logger.Info("Starting snapshot manager")

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("Snapshot manager shutting down")
			return
		case <-ticker.C:
			select {
			case e.commands <- snapshotCommand{}:
			case <-e.ctx.Done():
			}
		}
	}
}

// maybeSnapshot runs inside the command loop.
func (e *Engine) maybeSnapshot() {
	if e.orderOffset < 0 {
		return
	}
	if e.orderOffset-e.lastSnapshotOffset < e.snapshotOffsetDelta {
		return
	}

	snapshot := e.book.CreateSnapshot()
	snapshot.OrderOffset = e.orderOffset

	if err := e.snapshotStore.Store(e.ctx, snapshot); err != nil {
		e.logger.ErrorContext(e.ctx, err, logger.Field{
			Key:   "action",
			Value: "store_snapshot",
		})
		return
	}

	e.lastSnapshotOffset = e.orderOffset
	e.logger.Info("Snapshot stored", logger.Field{
		Key:   "pair",
		Value: e.config.Pair,
	}, logger.Field{
		Key:   "offset",
		Value: e.orderOffset,
	})
}

func (e *Engine) publishTrades(trades []orderbookv1.Trade) {
	for i := range trades {
		event := tradepublisherv1.CreateFromTrade(&trades[i], e.config.Pair)
		if err := e.tradePublisher.PublishTrade(e.ctx, event); err != nil {
			e.logger.ErrorContext(e.ctx, err, logger.Field{
				Key:   "action",
				Value: "publish_trade",
			}, logger.Field{
				Key:   "tradeID",
				Value: event.TradeID,
			})
		}
	}
}

// loadSnapshot restores the book from the latest stored snapshot, if any.
func (e *Engine) loadSnapshot(ctx context.Context) error {
	snapshot, err := e.snapshotStore.Load(ctx)
	if err != nil {
		return err
	}

	if snapshot != nil {
		if err := e.book.Restore(snapshot); err != nil {
			return err
		}
		e.orderOffset = snapshot.OrderOffset
		e.lastSnapshotOffset = snapshot.OrderOffset

		e.logger.Info("Book restored from snapshot", logger.Field{
			Key:   "orderOffset",
			Value: snapshot.OrderOffset,
		})
	}

	return nil
}
