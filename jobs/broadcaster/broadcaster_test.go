package broadcaster

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/infra/outbox"
)

// fakePublisher reads the seq back from the one-byte payloads openOutbox writes.
type fakePublisher struct {
	mu     sync.Mutex
	seqs   []uint64
	keys   []string
	values [][]byte
	failOn map[uint64]int // seq -> remaining failures
}

func (p *fakePublisher) Publish(_ context.Context, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	seq := uint64(value[0])
	if p.failOn[seq] > 0 {
		p.failOn[seq]--
		return errors.New("broker unavailable")
	}
	p.seqs = append(p.seqs, seq)
	p.keys = append(p.keys, string(key))
	p.values = append(p.values, value)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint64(nil), p.seqs...)
}

func openOutbox(t *testing.T, seqs ...uint64) *outbox.Outbox {
	t.Helper()
	ob, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })
	for _, s := range seqs {
		require.NoError(t, ob.Append(s, []byte{byte(s)}))
	}
	return ob
}

func appendKeyed(t *testing.T, ob *outbox.Outbox, seq uint64, pair string) {
	t.Helper()
	require.NoError(t, ob.AppendBatch([]outbox.Record{{Seq: seq, Key: []byte(pair), Payload: []byte{byte(seq)}}}))
}

func TestDrainOncePublishesInOrderAndPrunes(t *testing.T) {
	ob := openOutbox(t, 3, 1, 2)
	pub := &fakePublisher{}
	b := New(ob, pub, time.Second, nil)

	sent, err := b.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, []uint64{1, 2, 3}, pub.published())
	assert.Equal(t, [][]byte{{1}, {2}, {3}}, pub.values)

	_, err = ob.Get(1)
	assert.ErrorIs(t, err, outbox.ErrNotFound)
	pending, err := ob.Pending(0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainOnceStopsAtFirstFailure(t *testing.T) {
	ob := openOutbox(t, 1, 2, 3)
	pub := &fakePublisher{failOn: map[uint64]int{2: 1}}
	b := New(ob, pub, time.Second, nil)

	sent, err := b.DrainOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []uint64{1}, pub.published())

	rec, err := ob.Get(2)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateFailed, rec.State)
	assert.Equal(t, uint32(1), rec.Retries)

	rec, err = ob.Get(3)
	require.NoError(t, err)
	assert.Equal(t, outbox.StateNew, rec.State)

	sent, err = b.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []uint64{1, 2, 3}, pub.published())
}

func TestDrainOnceResendsRecordLeftSent(t *testing.T) {
	ob := openOutbox(t, 1, 2)
	// a crash between MarkSent and MarkAcked leaves seq 1 here
	require.NoError(t, ob.MarkSent(1))

	pub := &fakePublisher{}
	b := New(ob, pub, time.Second, nil)
	sent, err := b.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []uint64{1, 2}, pub.published())

	pending, err := ob.Pending(0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainOnceKeysMessagesByPair(t *testing.T) {
	ob := openOutbox(t)
	appendKeyed(t, ob, 1, "BTC-USD")
	appendKeyed(t, ob, 2, "ETH-USD")
	appendKeyed(t, ob, 3, "BTC-USD")
	require.NoError(t, ob.Append(4, []byte{4}))

	pub := &fakePublisher{}
	b := New(ob, pub, time.Second, nil)
	_, err := b.DrainOnce(context.Background())
	require.NoError(t, err)

	var seqKey [8]byte
	binary.BigEndian.PutUint64(seqKey[:], 4)
	assert.Equal(t, []uint64{1, 2, 3, 4}, pub.published())
	assert.Equal(t, []string{"BTC-USD", "ETH-USD", "BTC-USD", string(seqKey[:])}, pub.keys)
}

func TestDrainOnceEmptyOutbox(t *testing.T) {
	b := New(openOutbox(t), &fakePublisher{}, time.Second, nil)
	sent, err := b.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestDrainOnceCancelled(t *testing.T) {
	ob := openOutbox(t, 1)
	pub := &fakePublisher{}
	b := New(ob, pub, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.DrainOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pub.published())
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	ob := openOutbox(t, 1, 2)
	pub := &fakePublisher{}
	b := New(ob, pub, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(pub.published()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
