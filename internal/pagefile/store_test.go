package pagefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredbio/reldb/internal/xerr"
)

func TestCreateOpenDestroy_Idempotence(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "t.db")

	require.NoError(t, Create(name))

	err := Create(name)
	require.Error(t, err)
	require.Equal(t, xerr.FileExists, xerr.KindOf(err))

	s, err := Open(name)
	require.NoError(t, err)
	require.EqualValues(t, 1, s.TotalPages())
	require.NoError(t, s.Close())

	require.NoError(t, Destroy(name))

	err = Destroy(name)
	require.Error(t, err)
	require.Equal(t, xerr.FileNotFound, xerr.KindOf(err))
}

func TestReadWriteBlock_Bounds(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "t.db")
	require.NoError(t, Create(name))

	s, err := Open(name)
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, PageSize)
	err = s.ReadBlock(5, buf)
	require.Error(t, err)
	require.Equal(t, xerr.NonExistingPage, xerr.KindOf(err))

	err = s.WriteBlock(-1, buf)
	require.Error(t, err)
	require.Equal(t, xerr.NonExistingPage, xerr.KindOf(err))

	for i := range buf {
		buf[i] = byte(i % 251)
	}
	require.NoError(t, s.WriteBlock(0, buf))
	require.EqualValues(t, 0, s.CurPage())

	out := make([]byte, PageSize)
	require.NoError(t, s.ReadBlock(0, out))
	require.Equal(t, buf, out)
}

func TestEnsureCapacityAndAppend(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "t.db")
	require.NoError(t, Create(name))

	s, err := Open(name)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AppendEmptyBlock())
	require.EqualValues(t, 2, s.TotalPages())

	require.NoError(t, s.EnsureCapacity(5))
	require.EqualValues(t, 5, s.TotalPages())

	// Ensuring a capacity already satisfied is a no-op.
	require.NoError(t, s.EnsureCapacity(3))
	require.EqualValues(t, 5, s.TotalPages())

	buf := make([]byte, PageSize)
	require.NoError(t, s.ReadBlock(4, buf))
	for _, b := range buf {
		require.Equal(t, byte(0), b)
	}
}

func TestCursorConvenienceReads(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "t.db")
	require.NoError(t, Create(name))

	s, err := Open(name)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.EnsureCapacity(3))

	buf := make([]byte, PageSize)
	require.NoError(t, s.ReadFirst(buf))
	require.EqualValues(t, 0, s.CurPage())

	require.NoError(t, s.ReadNext(buf))
	require.EqualValues(t, 1, s.CurPage())

	require.NoError(t, s.ReadCurrent(buf))
	require.EqualValues(t, 1, s.CurPage())

	require.NoError(t, s.ReadLast(buf))
	require.EqualValues(t, 2, s.CurPage())

	require.NoError(t, s.ReadPrevious(buf))
	require.EqualValues(t, 1, s.CurPage())

	err = s.ReadNext(buf)
	require.NoError(t, err)
	err = s.ReadNext(buf)
	require.Error(t, err)
	require.Equal(t, xerr.NonExistingPage, xerr.KindOf(err))
}

func TestOpenRejectsBadSize(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "t.db")
	require.NoError(t, Create(name))

	s, err := Open(name)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Corrupt the file to a non-multiple-of-PageSize length.
	f, err := os.OpenFile(name, os.O_RDWR|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(name)
	require.Error(t, err)
	require.Equal(t, xerr.FileHandleNotInit, xerr.KindOf(err))
}
