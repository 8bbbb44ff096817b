// Package outbox keeps executed trades on disk until the broadcaster has
// handed them to the bus. Records move NEW -> SENT -> ACKED, or to FAILED
// and back to SENT on the next attempt. A record stuck in SENT is pending
// again, so delivery is at least once.
package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrNotFound  = errors.New("outbox: record not found")
	ErrBadRecord = errors.New("outbox: corrupt record")
	ErrDuplicate = errors.New("outbox: sequence already stored")
)

type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	// Key is the bus partition key. The sink stores the trading pair.
	Key     []byte
	Payload []byte
}

const (
	headerLen = 1 + 4 + 8 + 2
	maxKeyLen = 1<<16 - 1
)

// ErrKeyTooLong is returned by AppendBatch for keys over 65535 bytes.
var ErrKeyTooLong = errors.New("outbox: key too long")

// binary encoding: [state:1][retries:4][lastAttempt:8][keyLen:2][key][payload...]
func encodeRecord(r Record) []byte {
	buf := make([]byte, headerLen+len(r.Key)+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint16(buf[13:15], uint16(len(r.Key)))
	n := copy(buf[headerLen:], r.Key)
	copy(buf[headerLen+n:], r.Payload)
	return buf
}

func decodeRecord(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, fmt.Errorf("%w: seq %d has %d bytes", ErrBadRecord, seq, len(b))
	}
	keyLen := int(binary.BigEndian.Uint16(b[13:15]))
	if len(b) < headerLen+keyLen {
		return Record{}, fmt.Errorf("%w: seq %d key runs past value", ErrBadRecord, seq)
	}
	rest := b[headerLen:]
	r := Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte{}, rest[keyLen:]...),
	}
	if keyLen > 0 {
		r.Key = append([]byte(nil), rest[:keyLen]...)
	}
	return r, nil
}

type Outbox struct {
	db *pebble.DB

	// serializes read-modify-write state transitions
	mu  sync.Mutex
	now func() time.Time
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("outbox: open %s: %w", dir, err)
	}
	return &Outbox{db: db, now: time.Now}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Append stores a NEW record under seq.
func (o *Outbox) Append(seq uint64, payload []byte) error {
	return o.AppendBatch([]Record{{Seq: seq, Payload: payload}})
}

// AppendBatch stores NEW records atomically with a single sync. Seq, Key
// and Payload are kept; the delivery fields are reset.
func (o *Outbox) AppendBatch(recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	hwm, err := o.highWater()
	if err != nil {
		return err
	}

	b := o.db.NewBatch()
	defer b.Close()
	top := hwm
	for _, r := range recs {
		if len(r.Key) > maxKeyLen {
			return fmt.Errorf("%w: seq %d", ErrKeyTooLong, r.Seq)
		}
		if _, err := o.get(r.Seq); err == nil {
			return fmt.Errorf("%w: %d", ErrDuplicate, r.Seq)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		r.State, r.Retries, r.LastAttempt = StateNew, 0, 0
		if err := b.Set(keyFor(r.Seq), encodeRecord(r), nil); err != nil {
			return err
		}
		top = max(top, r.Seq)
	}
	if top > hwm {
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], top)
		if err := b.Set([]byte(hwmKey), v[:], nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

func (o *Outbox) Get(seq uint64) (Record, error) {
	return o.get(seq)
}

func (o *Outbox) get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, fmt.Errorf("%w: %d", ErrNotFound, seq)
	}
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()

	return decodeRecord(seq, val)
}

func (o *Outbox) MarkSent(seq uint64) error {
	return o.transition(seq, func(r *Record) { r.State = StateSent })
}

func (o *Outbox) MarkAcked(seq uint64) error {
	return o.transition(seq, func(r *Record) { r.State = StateAcked })
}

// MarkFailed flags the record for another attempt and counts the retry.
func (o *Outbox) MarkFailed(seq uint64) error {
	return o.transition(seq, func(r *Record) {
		r.State = StateFailed
		r.Retries++
	})
}

func (o *Outbox) transition(seq uint64, fn func(*Record)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, err := o.get(seq)
	if err != nil {
		return err
	}
	fn(&r)
	r.LastAttempt = o.now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(r), pebble.Sync)
}

// ScanByState visits records in the given state in sequence order.
// Returning an error from fn stops the scan.
func (o *Outbox) ScanByState(state State, fn func(Record) error) error {
	return o.scan(func(r Record) (bool, error) {
		if r.State != state {
			return true, nil
		}
		return true, fn(r)
	})
}

// Pending returns up to limit undelivered records (NEW, SENT or FAILED),
// oldest first. SENT counts because a crash or a failed ack can leave a
// record there after the bus may or may not have taken it.
// A non-positive limit returns all of them.
func (o *Outbox) Pending(limit int) ([]Record, error) {
	var out []Record
	err := o.scan(func(r Record) (bool, error) {
		if r.State != StateAcked {
			out = append(out, r)
		}
		return limit <= 0 || len(out) < limit, nil
	})
	return out, err
}

// PruneAcked deletes delivered records and reports how many went.
func (o *Outbox) PruneAcked() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	b := o.db.NewBatch()
	defer b.Close()
	n := 0
	err := o.scan(func(r Record) (bool, error) {
		if r.State != StateAcked {
			return true, nil
		}
		n++
		return true, b.Delete(keyFor(r.Seq), nil)
	})
	if err != nil || n == 0 {
		return 0, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return n, nil
}

// LastSeq is the highest sequence ever appended, zero for a fresh store.
// Pruning does not lower it.
func (o *Outbox) LastSeq() (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.highWater()
}

func (o *Outbox) highWater() (uint64, error) {
	val, closer, err := o.db.Get([]byte(hwmKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()

	if len(val) != 8 {
		return 0, fmt.Errorf("%w: high-water mark has %d bytes", ErrBadRecord, len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

func (o *Outbox) scan(fn func(Record) (bool, error)) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyUpper),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		more, err := fn(rec)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return iter.Error()
}

const (
	keyPrefix = "trade/"
	keyUpper  = "trade/~"
	hwmKey    = "meta/last_seq"
)

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	if len(b) <= len(keyPrefix) {
		return 0, fmt.Errorf("%w: key %q", ErrBadRecord, b)
	}
	seq, err := strconv.ParseUint(string(b[len(keyPrefix):]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q", ErrBadRecord, b)
	}
	return seq, nil
}
