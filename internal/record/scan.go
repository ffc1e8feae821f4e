package record

import (
	"log/slog"

	"github.com/coredbio/reldb/internal/bufferpool"
	"github.com/coredbio/reldb/internal/xerr"
)

const firstDataPage int32 = 1

// Scan walks a table's data pages in order, returning only live slots
// that satisfy predicate. A page stays pinned across all of its slots
// and is unpinned exactly once, on the transition to the next page (or
// on scan termination), rather than once per slot.
type Scan struct {
	table     *Table
	predicate Expr

	nextPage int32
	nextSlot uint32
	scanned  uint32

	pinnedPage int32
	pinned     *bufferpool.Handle
}

// StartScan begins a sequential scan of table. A nil predicate matches
// every live record.
func StartScan(table *Table, predicate Expr) *Scan {
	return &Scan{
		table:      table,
		predicate:  predicate,
		nextPage:   firstDataPage,
		nextSlot:   0,
		pinnedPage: -1,
	}
}

func (s *Scan) ensurePinned(page int32) error {
	if s.pinnedPage == page {
		return nil
	}
	if s.pinnedPage != -1 {
		if err := s.table.pool.UnpinPage(s.pinnedPage); err != nil {
			return err
		}
		s.pinnedPage = -1
		s.pinned = nil
	}
	h, err := s.table.pool.PinPage(page)
	if err != nil {
		return err
	}
	s.pinnedPage = page
	s.pinned = h
	return nil
}

// Next returns the next matching live record, or xerr.NoMoreTuples once
// the table is exhausted.
func (s *Scan) Next() (*Record, error) {
	if s.scanned >= s.table.numTuples {
		return nil, xerr.New(xerr.NoMoreTuples, "scan exhausted")
	}

	for s.nextPage < s.table.store.TotalPages() {
		if err := s.ensurePinned(s.nextPage); err != nil {
			return nil, err
		}

		for s.nextSlot < s.table.slotsPerPage {
			slot := s.nextSlot
			s.nextSlot++

			off := s.table.slotOffset(slot)
			if s.pinned.Data[off] != markerLive {
				continue
			}

			payload := make([]byte, s.table.recordSize)
			copy(payload, s.pinned.Data[off+1:off+1+int(s.table.recordSize)])
			rec := &Record{ID: RID{Page: s.nextPage, Slot: slot}, Data: payload}
			s.scanned++

			if s.predicate == nil {
				return rec, nil
			}
			v, err := Eval(s.predicate, rec, s.table.schema)
			if err != nil {
				return nil, err
			}
			if v.Type != TypeBool {
				return nil, xerr.New(xerr.TypeMismatch, "predicate evaluated to %v, want BOOL", v.Type)
			}
			if v.B {
				return rec, nil
			}
			if s.scanned >= s.table.numTuples {
				break
			}
		}

		s.nextPage++
		s.nextSlot = 0
	}

	if s.pinnedPage != -1 {
		if err := s.table.pool.UnpinPage(s.pinnedPage); err != nil {
			return nil, err
		}
		s.pinnedPage = -1
		s.pinned = nil
	}
	return nil, xerr.New(xerr.NoMoreTuples, "scan exhausted")
}

// Close releases any page the scan still holds pinned. Safe to call
// more than once.
func (s *Scan) Close() error {
	if s.pinnedPage == -1 {
		return nil
	}
	err := s.table.pool.UnpinPage(s.pinnedPage)
	s.pinnedPage = -1
	s.pinned = nil
	if err != nil {
		slog.Warn(logPrefix+"scan close failed to unpin page", "err", err)
	}
	return err
}
