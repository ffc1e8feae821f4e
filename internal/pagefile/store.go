// Package pagefile is the lowest layer of the storage engine: a
// headerless sequence of fixed-size blocks on a single named file, with
// a positional cursor and capacity-growing appends. It has no notion of
// schemas, tuples, or caching — those live in the record manager and
// buffer pool layers above it.
package pagefile

import (
	"io"
	"log/slog"
	"os"

	"github.com/coredbio/reldb/internal/xerr"
)

// PageSize is the fixed block size, P in the spec. All page I/O moves
// exactly this many bytes.
const PageSize = 4096

// NoPage is the sentinel PageNum meaning "no page".
const NoPage int32 = -1

const logPrefix = "pagefile: "

// Store is an open page file: a handle, its current page count, and the
// cursor left by the last successful read/write.
type Store struct {
	name       string
	file       *os.File
	totalPages int32
	curPage    int32
}

// Create makes a new, empty page file containing a single zero-filled
// page. It fails with xerr.FileExists if name already exists.
func Create(name string) error {
	if _, err := os.Stat(name); err == nil {
		return xerr.New(xerr.FileExists, "page file %q already exists", name)
	} else if !os.IsNotExist(err) {
		return xerr.Wrap(xerr.FileNotFound, err, "stat %q", name)
	}

	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return xerr.Wrap(xerr.FileNotFound, err, "create %q", name)
	}
	defer closeQuietly(f)

	if _, err := f.Write(make([]byte, PageSize)); err != nil {
		return xerr.Wrap(xerr.WriteFailed, err, "write initial page of %q", name)
	}
	slog.Debug(logPrefix+"created page file", "name", name)
	return nil
}

// Open opens an existing page file, verifying its length is an exact
// multiple of PageSize. The cursor starts at page 0.
func Open(name string) (*Store, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, xerr.Wrap(xerr.FileNotFound, err, "open %q", name)
		}
		return nil, xerr.Wrap(xerr.FileHandleNotInit, err, "open %q", name)
	}

	info, err := f.Stat()
	if err != nil {
		closeQuietly(f)
		return nil, xerr.Wrap(xerr.FileHandleNotInit, err, "stat %q", name)
	}
	if info.Size()%PageSize != 0 {
		closeQuietly(f)
		return nil, xerr.New(xerr.FileHandleNotInit, "file %q size %d is not a multiple of page size %d", name, info.Size(), PageSize)
	}

	s := &Store{
		name:       name,
		file:       f,
		totalPages: int32(info.Size() / PageSize),
		curPage:    0,
	}
	slog.Debug(logPrefix+"opened page file", "name", name, "totalPages", s.totalPages)
	return s, nil
}

// Close releases the file handle. The Store must not be used afterward.
func (s *Store) Close() error {
	if s.file == nil {
		return xerr.New(xerr.FileHandleNotInit, "store already closed")
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return xerr.Wrap(xerr.WriteFailed, err, "close %q", s.name)
	}
	return nil
}

// Destroy unlinks a page file by name.
func Destroy(name string) error {
	if err := os.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return xerr.Wrap(xerr.FileNotFound, err, "destroy %q", name)
		}
		return xerr.Wrap(xerr.WriteFailed, err, "destroy %q", name)
	}
	return nil
}

// TotalPages returns the current page count.
func (s *Store) TotalPages() int32 { return s.totalPages }

// CurPage returns the cursor left by the last successful positional op.
func (s *Store) CurPage() int32 { return s.curPage }

func (s *Store) inRange(n int32) bool {
	return n >= 0 && n < s.totalPages
}

// ReadBlock copies page n into buf, which must be PageSize bytes, and
// sets the cursor to n on success.
func (s *Store) ReadBlock(n int32, buf []byte) error {
	if len(buf) != PageSize {
		return xerr.New(xerr.InvalidParam, "buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	if !s.inRange(n) {
		return xerr.New(xerr.NonExistingPage, "page %d does not exist (total %d)", n, s.totalPages)
	}
	if _, err := s.file.ReadAt(buf, int64(n)*PageSize); err != nil && err != io.EOF {
		return xerr.Wrap(xerr.ReadFailed, err, "read page %d of %q", n, s.name)
	}
	s.curPage = n
	return nil
}

// WriteBlock overwrites page n with buf. It never grows the file.
func (s *Store) WriteBlock(n int32, buf []byte) error {
	if len(buf) != PageSize {
		return xerr.New(xerr.InvalidParam, "buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	if !s.inRange(n) {
		return xerr.New(xerr.NonExistingPage, "page %d does not exist (total %d)", n, s.totalPages)
	}
	if _, err := s.file.WriteAt(buf, int64(n)*PageSize); err != nil {
		return xerr.Wrap(xerr.WriteFailed, err, "write page %d of %q", n, s.name)
	}
	s.curPage = n
	return nil
}

// AppendEmptyBlock appends one zero-filled page, growing total capacity
// by one.
func (s *Store) AppendEmptyBlock() error {
	if _, err := s.file.WriteAt(make([]byte, PageSize), int64(s.totalPages)*PageSize); err != nil {
		return xerr.Wrap(xerr.WriteFailed, err, "append page to %q", s.name)
	}
	s.totalPages++
	slog.Debug(logPrefix+"appended empty block", "name", s.name, "totalPages", s.totalPages)
	return nil
}

// EnsureCapacity appends zero-filled pages until TotalPages() >= k.
func (s *Store) EnsureCapacity(k int32) error {
	for s.totalPages < k {
		if err := s.AppendEmptyBlock(); err != nil {
			return err
		}
	}
	return nil
}

// ReadFirst reads page 0.
func (s *Store) ReadFirst(buf []byte) error { return s.ReadBlock(0, buf) }

// ReadLast reads the last existing page.
func (s *Store) ReadLast(buf []byte) error { return s.ReadBlock(s.totalPages-1, buf) }

// ReadCurrent re-reads the page at the cursor.
func (s *Store) ReadCurrent(buf []byte) error { return s.ReadBlock(s.curPage, buf) }

// ReadNext reads the page after the cursor.
func (s *Store) ReadNext(buf []byte) error { return s.ReadBlock(s.curPage+1, buf) }

// ReadPrevious reads the page before the cursor.
func (s *Store) ReadPrevious(buf []byte) error { return s.ReadBlock(s.curPage-1, buf) }

func closeQuietly(f *os.File) {
	if err := f.Close(); err != nil {
		slog.Warn(logPrefix+"close failed", "err", err)
	}
}
