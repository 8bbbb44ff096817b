package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"matchbook/domain/events"
	"matchbook/domain/orderbook"
	"matchbook/infra/memory"
	"matchbook/infra/metrics"
	"matchbook/infra/sequence"
)

// TradeSink receives every executed trade, one batch per order. It is
// called outside the book lock; an error is logged and never undoes the
// match.
type TradeSink interface {
	HandleTrades([]events.TradeEvent) error
}

type market struct {
	mu   sync.Mutex
	book *orderbook.OrderBook

	// taken before mu is released so a pair's batches reach the sink in
	// match order
	emitMu sync.Mutex
}

type MatchingEngine struct {
	mu      sync.RWMutex
	markets map[string]*market

	seq  *sequence.Sequencer
	sink TradeSink
	log  *zap.Logger
	pool *memory.Pool[orderbook.Order]
	now  func() time.Time
}

// NewMatchingEngine wires the engine. A nil logger logs nothing, a nil
// sequencer starts from zero and a nil sink drops trade events.
func NewMatchingEngine(logger *zap.Logger, seq *sequence.Sequencer, sink TradeSink) *MatchingEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if seq == nil {
		seq = sequence.New(0)
	}
	return &MatchingEngine{
		markets: make(map[string]*market),
		seq:     seq,
		sink:    sink,
		log:     logger,
		pool: memory.NewPool(
			func() *orderbook.Order { return new(orderbook.Order) },
			func(o *orderbook.Order) { *o = orderbook.Order{} },
		),
		now: time.Now,
	}
}

//
// ──────────────────────────────────────────────────────────
// Registry
// ──────────────────────────────────────────────────────────
//

func (e *MatchingEngine) AddNewMarket(pair string) error {
	if strings.TrimSpace(pair) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPair, pair)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.markets[pair]; ok {
		return fmt.Errorf("%w: %s", ErrMarketAlreadyExists, pair)
	}
	e.markets[pair] = &market{book: orderbook.NewOrderBook()}
	e.log.Info("market registered", zap.String("pair", pair))
	return nil
}

// RegisterMarket is AddNewMarket.
func (e *MatchingEngine) RegisterMarket(pair string) error {
	return e.AddNewMarket(pair)
}

// RemoveMarket drops the pair and its book. Resting orders are discarded.
func (e *MatchingEngine) RemoveMarket(pair string) error {
	e.mu.Lock()
	m, ok := e.markets[pair]
	if ok {
		delete(e.markets, pair)
	}
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrMarketNotFound, pair)
	}

	m.mu.Lock()
	resting := m.book.Len()
	m.mu.Unlock()

	metrics.ForgetPair(pair)
	e.log.Info("market removed", zap.String("pair", pair), zap.Int("discarded_orders", resting))
	return nil
}

// Markets lists registered pairs in lexical order.
func (e *MatchingEngine) Markets() []string {
	e.mu.RLock()
	out := make([]string, 0, len(e.markets))
	for p := range e.markets {
		out = append(out, p)
	}
	e.mu.RUnlock()

	sort.Strings(out)
	return out
}

func (e *MatchingEngine) market(pair string) (*market, error) {
	e.mu.RLock()
	m, ok := e.markets[pair]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, pair)
	}
	return m, nil
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// PlaceLimitOrder rests o in pair's book. It never matches.
func (e *MatchingEngine) PlaceLimitOrder(pair string, price orderbook.Price, o *orderbook.Order) error {
	start := e.now()
	m, err := e.market(pair)
	if err != nil {
		return e.reject(pair, "limit", err)
	}

	m.mu.Lock()
	err = m.book.AddLimitOrder(price, o)
	if err == nil {
		observeBook(pair, m.book)
	}
	m.mu.Unlock()

	if err != nil {
		return e.reject(pair, "limit", err)
	}
	metrics.RecordOrderReceived(pair, o.Side().String(), "limit")
	metrics.RecordOrderLatency(pair, "limit", time.Since(start).Seconds())
	e.log.Debug("limit order rested",
		zap.String("pair", pair),
		zap.Uint64("order_id", uint64(o.ID())),
		zap.Stringer("side", o.Side()),
		zap.Stringer("price", price),
		zap.Stringer("size", o.Original()),
	)
	return nil
}

// PlaceMarketOrder matches o against pair's book. Any unfilled remainder
// is discarded and reported in the TradeReport.
func (e *MatchingEngine) PlaceMarketOrder(pair string, o *orderbook.Order) (orderbook.TradeReport, error) {
	start := e.now()
	m, err := e.market(pair)
	if err != nil {
		return orderbook.TradeReport{}, e.reject(pair, "market", err)
	}

	var report orderbook.TradeReport
	err = m.matchThenEmit(
		func(book *orderbook.OrderBook) ([]events.TradeEvent, error) {
			var err error
			report, err = book.FillMarketOrder(o)
			if err != nil {
				return nil, err
			}
			observeBook(pair, book)
			return e.tradeEvents(pair, report), nil
		},
		func(evs []events.TradeEvent) { e.emit(pair, evs) },
	)
	if err != nil {
		return orderbook.TradeReport{}, e.reject(pair, "market", err)
	}

	metrics.RecordOrderReceived(pair, report.Side.String(), "market")
	metrics.RecordTrades(pair, len(report.Trades), report.TotalMatched.Float64())
	metrics.RecordUnfilled(pair, report.Remaining.Float64())
	metrics.RecordOrderLatency(pair, "market", time.Since(start).Seconds())

	if !report.FullyFilled {
		e.log.Debug("market order partially filled",
			zap.String("pair", pair),
			zap.Uint64("order_id", uint64(report.OrderID)),
			zap.Stringer("matched", report.TotalMatched),
			zap.Stringer("discarded", report.Remaining),
		)
	}
	return report, nil
}

// SubmitLimitOrder parses the decimal inputs, assigns an order id and
// rests the order.
func (e *MatchingEngine) SubmitLimitOrder(pair, price string, side orderbook.Side, size string) (orderbook.OrderID, error) {
	if _, err := e.market(pair); err != nil {
		return 0, e.reject(pair, "limit", err)
	}
	p, err := orderbook.ParsePrice(price)
	if err != nil {
		return 0, e.reject(pair, "limit", err)
	}
	q, err := orderbook.ParseQuantity(size)
	if err != nil {
		return 0, e.reject(pair, "limit", err)
	}

	id := orderbook.OrderID(e.seq.Next())
	o, err := orderbook.NewOrderWithID(id, side, q)
	if err != nil {
		return 0, e.reject(pair, "limit", err)
	}
	if err := e.PlaceLimitOrder(pair, p, o); err != nil {
		return 0, err
	}
	return id, nil
}

// SubmitMarketOrder parses size, assigns an order id and matches. The
// transient order is recycled once the walk returns.
func (e *MatchingEngine) SubmitMarketOrder(pair string, side orderbook.Side, size string) (orderbook.TradeReport, error) {
	if _, err := e.market(pair); err != nil {
		return orderbook.TradeReport{}, e.reject(pair, "market", err)
	}
	q, err := orderbook.ParseQuantity(size)
	if err != nil {
		return orderbook.TradeReport{}, e.reject(pair, "market", err)
	}

	o := e.pool.Get()
	defer e.pool.Put(o)
	if err := o.Init(orderbook.OrderID(e.seq.Next()), side, q); err != nil {
		return orderbook.TradeReport{}, e.reject(pair, "market", err)
	}
	return e.PlaceMarketOrder(pair, o)
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// QueryBestBid reports false for an unknown pair or an empty side.
func (e *MatchingEngine) QueryBestBid(pair string) (orderbook.Price, bool) {
	m, err := e.market(pair)
	if err != nil {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.BestBid()
}

// QueryBestAsk reports false for an unknown pair or an empty side.
func (e *MatchingEngine) QueryBestAsk(pair string) (orderbook.Price, bool) {
	m, err := e.market(pair)
	if err != nil {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.BestAsk()
}

func (e *MatchingEngine) Depth(pair string, side orderbook.Side, limit int) ([]orderbook.LevelSummary, error) {
	m, err := e.market(pair)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Depth(side, limit), nil
}

// OrderStatus finds a resting order. Filled and unknown orders report false.
func (e *MatchingEngine) OrderStatus(pair string, id orderbook.OrderID) (orderbook.OrderView, bool) {
	m, err := e.market(pair)
	if err != nil {
		return orderbook.OrderView{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Order(id)
}

//
// ──────────────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────────────
//

// matchThenEmit runs match under the book lock and emit under the pair's
// emit lock only. A panic inside match releases the book lock on its way
// out.
func (m *market) matchThenEmit(
	match func(*orderbook.OrderBook) ([]events.TradeEvent, error),
	emit func([]events.TradeEvent),
) error {
	m.mu.Lock()
	locked := true
	defer func() {
		if locked {
			m.mu.Unlock()
		}
	}()

	evs, err := match(m.book)
	if err != nil || len(evs) == 0 {
		return err
	}

	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.mu.Unlock()
	locked = false

	emit(evs)
	return nil
}

func (e *MatchingEngine) tradeEvents(pair string, report orderbook.TradeReport) []events.TradeEvent {
	if len(report.Trades) == 0 {
		return nil
	}
	now := e.now().UTC()
	first := e.seq.Reserve(len(report.Trades))
	evs := make([]events.TradeEvent, 0, len(report.Trades))
	for i, t := range report.Trades {
		evs = append(evs, events.TradeEvent{
			EventID:      uuid.NewString(),
			Pair:         pair,
			Seq:          first + uint64(i),
			TakerOrderID: report.OrderID,
			MakerOrderID: t.RestingOrderID,
			TakerSide:    report.Side,
			Price:        t.Price,
			Quantity:     t.Quantity,
			Time:         now,
		})
	}
	return evs
}

func (e *MatchingEngine) emit(pair string, evs []events.TradeEvent) {
	if e.sink == nil {
		return
	}
	if err := e.sink.HandleTrades(evs); err != nil {
		metrics.RecordSinkFailure()
		e.log.Error("trade sink failed",
			zap.String("pair", pair),
			zap.Uint64("first_seq", evs[0].Seq),
			zap.Int("trades", len(evs)),
			zap.Error(err),
		)
	}
}

func (e *MatchingEngine) reject(pair, orderType string, err error) error {
	metrics.RecordOrderRejected(pair, rejectReason(err))
	e.log.Debug("order rejected",
		zap.String("pair", pair),
		zap.String("type", orderType),
		zap.Error(err),
	)
	return err
}

func observeBook(pair string, book *orderbook.OrderBook) {
	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	metrics.UpdateBook(pair,
		book.LevelCount(orderbook.Bid),
		book.LevelCount(orderbook.Ask),
		bid.Decimal().InexactFloat64(),
		ask.Decimal().InexactFloat64(),
	)
}
