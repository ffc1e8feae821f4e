// Package record implements the record manager: table files with a
// schema header page, fixed-slot data pages, CRUD by record id, and
// predicate-filtered sequential scans, all built on top of a
// bufferpool.Pool.
package record

import (
	"log/slog"

	"go.uber.org/multierr"

	"github.com/coredbio/reldb/internal/bufferpool"
	"github.com/coredbio/reldb/internal/pagefile"
	"github.com/coredbio/reldb/internal/xerr"
)

const logPrefix = "record: "

const (
	markerLive      byte = '#'
	markerTombstone byte = '$'
)

const defaultPoolFrames = 10

// RID identifies a record by the page and slot it occupies. A RID stays
// valid for the record's lifetime: the core never moves a live record.
type RID struct {
	Page int32
	Slot uint32
}

// Table is an open table file: its schema, the buffer pool pinning its
// pages, and the cached header counters.
type Table struct {
	name   string
	schema Schema
	store  *pagefile.Store
	pool   *bufferpool.Pool

	numTuples     uint32
	firstFreePage uint32
	recordSize    uint32
	slotSize      uint32
	slotsPerPage  uint32
}

const headerPage int32 = 0

// CreateTable creates the backing page file and writes its schema
// header page (numTuples=0, firstFreePage=1).
func CreateTable(name string, schema Schema) (*Table, error) {
	if err := pagefile.Create(name); err != nil {
		return nil, err
	}
	store, err := pagefile.Open(name)
	if err != nil {
		return nil, err
	}
	pool := bufferpool.New(store, defaultPoolFrames, bufferpool.LRU, nil)

	t := newTable(name, schema, store, pool, 0, 1)
	if err := t.writeHeader(); err != nil {
		_ = pool.Shutdown()
		return nil, err
	}
	if err := pool.ForceFlushPool(); err != nil {
		_ = pool.Shutdown()
		return nil, err
	}
	slog.Debug(logPrefix+"created table", "name", name, "recordSize", t.recordSize)
	return t, nil
}

// OpenTable opens an existing table file, reading its schema header.
func OpenTable(name string) (*Table, error) {
	store, err := pagefile.Open(name)
	if err != nil {
		return nil, err
	}
	pool := bufferpool.New(store, defaultPoolFrames, bufferpool.LRU, nil)

	h, err := pool.PinPage(headerPage)
	if err != nil {
		_ = pool.Shutdown()
		return nil, err
	}
	numTuples, firstFreePage, recordSize, schema, err := DecodeHeader(h.Data)
	if err != nil {
		_ = pool.UnpinPage(headerPage)
		_ = pool.Shutdown()
		return nil, err
	}
	if err := pool.UnpinPage(headerPage); err != nil {
		_ = pool.Shutdown()
		return nil, err
	}

	t := newTable(name, schema, store, pool, numTuples, firstFreePage)
	t.recordSize = recordSize
	t.slotSize = recordSize + 1
	t.slotsPerPage = uint32(pagefile.PageSize) / t.slotSize
	slog.Debug(logPrefix+"opened table", "name", name, "numTuples", numTuples)
	return t, nil
}

func newTable(name string, schema Schema, store *pagefile.Store, pool *bufferpool.Pool, numTuples, firstFreePage uint32) *Table {
	recordSize := uint32(schema.RecordSize())
	t := &Table{
		name:          name,
		schema:        schema,
		store:         store,
		pool:          pool,
		numTuples:     numTuples,
		firstFreePage: firstFreePage,
		recordSize:    recordSize,
		slotSize:      recordSize + 1,
	}
	t.slotsPerPage = uint32(pagefile.PageSize) / t.slotSize
	return t
}

func (t *Table) writeHeader() error {
	h, err := t.pool.PinPage(headerPage)
	if err != nil {
		return err
	}
	if err := EncodeHeader(h.Data, t.numTuples, t.firstFreePage, t.schema); err != nil {
		_ = t.pool.UnpinPage(headerPage)
		return err
	}
	if err := t.pool.MarkDirty(headerPage); err != nil {
		_ = t.pool.UnpinPage(headerPage)
		return err
	}
	return t.pool.UnpinPage(headerPage)
}

// Close writes back the current header state, flushes, and shuts down
// the table's buffer pool.
func (t *Table) Close() error {
	writeErr := t.writeHeader()
	flushErr := t.pool.ForceFlushPool()
	shutdownErr := t.pool.Shutdown()
	return multierr.Combine(writeErr, flushErr, shutdownErr)
}

// DeleteTable unlinks a table's backing file. The table must already be
// closed.
func DeleteTable(name string) error {
	return pagefile.Destroy(name)
}

// GetNumTuples returns the cached live-tuple counter.
func (t *Table) GetNumTuples() uint32 { return t.numTuples }

// Schema returns the table's attribute/key layout.
func (t *Table) Schema() Schema { return t.schema }

func (t *Table) slotOffset(slot uint32) int { return int(slot * t.slotSize) }

// InsertRecord writes payload into the first free slot reachable from
// firstFreePage and returns its RID.
func (t *Table) InsertRecord(payload []byte) (RID, error) {
	if uint32(len(payload)) != t.recordSize {
		return RID{}, xerr.New(xerr.InvalidParam, "payload is %d bytes, schema record size is %d", len(payload), t.recordSize)
	}

	page := int32(t.firstFreePage)
	if page < 1 {
		page = 1
	}

	for {
		h, err := t.pool.PinPage(page)
		if err != nil {
			return RID{}, err
		}

		slot, found := uint32(0), false
		for s := uint32(0); s < t.slotsPerPage; s++ {
			off := t.slotOffset(s)
			if h.Data[off] != markerLive {
				slot, found = s, true
				break
			}
		}

		if !found {
			if err := t.pool.UnpinPage(page); err != nil {
				return RID{}, err
			}
			page++
			continue
		}

		off := t.slotOffset(slot)
		h.Data[off] = markerLive
		copy(h.Data[off+1:off+1+int(t.recordSize)], payload)

		if err := t.pool.MarkDirty(page); err != nil {
			_ = t.pool.UnpinPage(page)
			return RID{}, err
		}
		if err := t.pool.UnpinPage(page); err != nil {
			return RID{}, err
		}

		t.firstFreePage = uint32(page)
		t.numTuples++
		slog.Debug(logPrefix+"inserted record", "page", page, "slot", slot)
		return RID{Page: page, Slot: slot}, nil
	}
}

// DeleteRecord tombstones a live slot. Deleting a slot that is not
// currently live is rejected with xerr.NoSuchTuple.
func (t *Table) DeleteRecord(rid RID) error {
	h, err := t.pool.PinPage(rid.Page)
	if err != nil {
		return err
	}
	off := t.slotOffset(rid.Slot)
	if h.Data[off] != markerLive {
		_ = t.pool.UnpinPage(rid.Page)
		return xerr.New(xerr.NoSuchTuple, "rid %+v is not a live tuple", rid)
	}
	h.Data[off] = markerTombstone

	if err := t.pool.MarkDirty(rid.Page); err != nil {
		_ = t.pool.UnpinPage(rid.Page)
		return err
	}
	if err := t.pool.UnpinPage(rid.Page); err != nil {
		return err
	}
	t.numTuples--
	return nil
}

// UpdateRecord overwrites the payload bytes of a live slot, keeping its
// marker. Updating a non-live slot is rejected with xerr.NoSuchTuple.
func (t *Table) UpdateRecord(rid RID, payload []byte) error {
	if uint32(len(payload)) != t.recordSize {
		return xerr.New(xerr.InvalidParam, "payload is %d bytes, schema record size is %d", len(payload), t.recordSize)
	}
	h, err := t.pool.PinPage(rid.Page)
	if err != nil {
		return err
	}
	off := t.slotOffset(rid.Slot)
	if h.Data[off] != markerLive {
		_ = t.pool.UnpinPage(rid.Page)
		return xerr.New(xerr.NoSuchTuple, "rid %+v is not a live tuple", rid)
	}
	copy(h.Data[off+1:off+1+int(t.recordSize)], payload)

	if err := t.pool.MarkDirty(rid.Page); err != nil {
		_ = t.pool.UnpinPage(rid.Page)
		return err
	}
	return t.pool.UnpinPage(rid.Page)
}

// GetRecord reads a live record by RID, copying its payload out of the
// buffer pool frame so the returned Record outlives the pin.
func (t *Table) GetRecord(rid RID) (*Record, error) {
	h, err := t.pool.PinPage(rid.Page)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.pool.UnpinPage(rid.Page) }()

	off := t.slotOffset(rid.Slot)
	if h.Data[off] != markerLive {
		return nil, xerr.New(xerr.NoSuchTuple, "rid %+v is not a live tuple", rid)
	}

	payload := make([]byte, t.recordSize)
	copy(payload, h.Data[off+1:off+1+int(t.recordSize)])
	return &Record{ID: rid, Data: payload}, nil
}
