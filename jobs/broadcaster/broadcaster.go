package broadcaster

import (
	"context"
	"encoding/binary"
	"time"

	"go.uber.org/zap"

	"matchbook/infra/kafka"
	"matchbook/infra/metrics"
	"matchbook/infra/outbox"
)

// batchSize caps one drain round so a large backlog cannot starve shutdown.
const batchSize = 512

type Broadcaster struct {
	outbox    *outbox.Outbox
	publisher kafka.Publisher
	interval  time.Duration
	log       *zap.Logger
}

func New(
	ob *outbox.Outbox,
	publisher kafka.Publisher,
	interval time.Duration,
	logger *zap.Logger,
) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		outbox:    ob,
		publisher: publisher,
		interval:  interval,
		log:       logger,
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run drains the outbox on every tick until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", zap.Duration("interval", b.interval))
	defer b.log.Info("broadcaster stopped")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := b.DrainOnce(ctx); err != nil && ctx.Err() == nil {
				b.log.Warn("drain round stopped", zap.Error(err))
			}
		}
	}
}

// ------------------------------------------------
// DRAIN
// ------------------------------------------------

// DrainOnce publishes pending records oldest first. The first publish
// failure marks that record FAILED and ends the round so later trades
// never overtake it.
func (b *Broadcaster) DrainOnce(ctx context.Context) (int, error) {
	recs, err := b.outbox.Pending(batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		if err := b.outbox.MarkSent(rec.Seq); err != nil {
			return sent, err
		}

		if err := b.publisher.Publish(ctx, messageKey(rec), rec.Payload); err != nil {
			metrics.RecordPublished("failed")
			if markErr := b.outbox.MarkFailed(rec.Seq); markErr != nil {
				b.log.Error("mark failed", zap.Uint64("seq", rec.Seq), zap.Error(markErr))
			}
			b.log.Warn("publish failed",
				zap.Uint64("seq", rec.Seq),
				zap.Uint32("retries", rec.Retries+1),
				zap.Error(err),
			)
			return sent, err
		}

		if err := b.outbox.MarkAcked(rec.Seq); err != nil {
			return sent, err
		}
		metrics.RecordPublished("acked")
		sent++
	}

	if sent > 0 {
		if _, err := b.outbox.PruneAcked(); err != nil {
			return sent, err
		}
		b.log.Debug("drained", zap.Int("sent", sent))
	}
	return sent, nil
}

// messageKey is the record's pair, so each pair lands on one partition and
// keeps match order there. Keyless records fall back to the seq.
func messageKey(rec outbox.Record) []byte {
	if len(rec.Key) > 0 {
		return rec.Key
	}
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], rec.Seq)
	return k[:]
}

func (b *Broadcaster) Close() error {
	return b.publisher.Close()
}
