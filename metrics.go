package hnswlib

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives one call per completed index operation. A nil
// err marks success. Implementations must be safe for concurrent use since
// queries run under a shared lock.
type MetricsCollector interface {
	// RecordInsert is called once per AddItem variant.
	RecordInsert(duration time.Duration, err error)
	// RecordSearch is called once per query with the requested k.
	RecordSearch(k int, duration time.Duration, err error)
	// RecordSave reports the bytes written, including the header.
	RecordSave(bytes int64, duration time.Duration, err error)
	// RecordLoad reports the number of vectors read.
	RecordLoad(count int, duration time.Duration, err error)
	// RecordSize reports the element count after it changed.
	RecordSize(count int)
}

// NoopMetricsCollector discards everything. It is the default.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)      {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSave(int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordSize(int)                         {}

// opCounter tracks calls, failures and cumulative latency of one operation.
type opCounter struct {
	calls  atomic.Int64
	errors atomic.Int64
	nanos  atomic.Int64
}

func (c *opCounter) record(d time.Duration, err error) {
	c.calls.Add(1)
	c.nanos.Add(d.Nanoseconds())
	if err != nil {
		c.errors.Add(1)
	}
}

func (c *opCounter) snapshot() OpStats {
	s := OpStats{Count: c.calls.Load(), Errors: c.errors.Load()}
	if s.Count > 0 {
		s.Mean = time.Duration(c.nanos.Load() / s.Count)
	}
	return s
}

// BasicMetricsCollector keeps counters in memory. The zero value is ready
// to use.
type BasicMetricsCollector struct {
	insert opCounter
	search opCounter
	save   opCounter
	load   opCounter

	savedBytes    atomic.Int64
	loadedVectors atomic.Int64
	size          atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(d time.Duration, err error) { b.insert.record(d, err) }

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ int, d time.Duration, err error) {
	b.search.record(d, err)
}

// RecordSave implements MetricsCollector. Bytes of failed saves are not
// counted.
func (b *BasicMetricsCollector) RecordSave(bytes int64, d time.Duration, err error) {
	b.save.record(d, err)
	if err == nil {
		b.savedBytes.Add(bytes)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(count int, d time.Duration, err error) {
	b.load.record(d, err)
	if err == nil {
		b.loadedVectors.Add(int64(count))
	}
}

// RecordSize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSize(count int) { b.size.Store(int64(count)) }

// OpStats summarizes one operation kind.
type OpStats struct {
	Count  int64
	Errors int64
	Mean   time.Duration
}

// BasicMetricsStats is a point-in-time copy of a BasicMetricsCollector.
type BasicMetricsStats struct {
	Insert OpStats
	Search OpStats
	Save   OpStats
	Load   OpStats

	SavedBytes    int64
	LoadedVectors int64
	Size          int64
}

// GetStats returns a snapshot. Counters are read one by one, so a snapshot
// taken under concurrent traffic is not atomic as a whole.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		Insert:        b.insert.snapshot(),
		Search:        b.search.snapshot(),
		Save:          b.save.snapshot(),
		Load:          b.load.snapshot(),
		SavedBytes:    b.savedBytes.Load(),
		LoadedVectors: b.loadedVectors.Load(),
		Size:          b.size.Load(),
	}
}
