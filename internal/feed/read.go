package feed

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/hyperkv/internal/kverr"
)

// RecordRange returns the signed records in [start, end). end is clamped to
// the current length.
func (f *Feed) RecordRange(start, end uint64) ([]Record, error) {
	f.mu.Lock()
	length := f.length
	f.mu.Unlock()
	if end > length {
		end = length
	}
	if start >= end {
		return nil, nil
	}

	iter, err := f.db.NewIter(&pebble.IterOptions{
		LowerBound: KeyEntry(f.key, start),
		UpperBound: KeyEntry(f.key, end),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]Record, 0, end-start)
	next := start
	for ok := iter.First(); ok; ok = iter.Next() {
		off := offsetFromEntryKey(iter.Key())
		if off != next {
			return nil, fmt.Errorf("%w: feed %s missing record %d", kverr.ErrIntegrity, f.key.Short(), next)
		}
		dec, ok := DecodeRecord(iter.Value())
		if !ok {
			return nil, fmt.Errorf("%w: feed %s record %d fails checksum", kverr.ErrIntegrity, f.key.Short(), off)
		}
		out = append(out, Record{Offset: off, Payload: dec.Payload, Signature: dec.Signature})
		next++
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if next != end {
		return nil, fmt.Errorf("%w: feed %s missing record %d", kverr.ErrIntegrity, f.key.Short(), next)
	}
	return out, nil
}

// GetRange returns the payloads in [start, end).
func (f *Feed) GetRange(start, end uint64) ([][]byte, error) {
	recs, err := f.RecordRange(start, end)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(recs))
	for i, r := range recs {
		out[i] = r.Payload
	}
	return out, nil
}
