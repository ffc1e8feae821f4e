package record

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredbio/reldb/internal/xerr"
)

func scanTestTable(t *testing.T) *Table {
	t.Helper()
	name := filepath.Join(t.TempDir(), "scan.tbl")
	tbl, err := CreateTable(name, testSchema())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl
}

func insertThree(t *testing.T, tbl *Table) []RID {
	t.Helper()
	rows := []struct {
		id    int32
		name  string
		score int32
	}{
		{1, "aaaa", 10},
		{2, "bbbb", 20},
		{3, "cccc", 30},
	}
	rids := make([]RID, 0, len(rows))
	for _, r := range rows {
		rec := mustRecord(t, tbl.Schema(), r.id, r.name, r.score)
		rid, err := tbl.InsertRecord(rec.Data)
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	return rids
}

func TestScanAllReturnsEveryLiveRecord(t *testing.T) {
	tbl := scanTestTable(t)
	insertThree(t, tbl)

	scan := StartScan(tbl, nil)
	defer scan.Close()

	var ids []int32
	for {
		rec, err := scan.Next()
		if xerr.Is(err, xerr.NoMoreTuples) {
			break
		}
		require.NoError(t, err)
		v, err := GetAttr(tbl.Schema(), rec, 0)
		require.NoError(t, err)
		ids = append(ids, v.I)
	}
	require.Equal(t, []int32{1, 2, 3}, ids)
}

func TestScanWithPredicateFiltersRecords(t *testing.T) {
	tbl := scanTestTable(t)
	insertThree(t, tbl)

	// score < 25
	predicate := Op{Kind: OpLt, Operands: []Expr{AttrRef{Index: 2}, Const{Value: IntValue(25)}}}
	scan := StartScan(tbl, predicate)
	defer scan.Close()

	var names []string
	for {
		rec, err := scan.Next()
		if xerr.Is(err, xerr.NoMoreTuples) {
			break
		}
		require.NoError(t, err)
		v, err := GetAttr(tbl.Schema(), rec, 1)
		require.NoError(t, err)
		names = append(names, v.S)
	}
	require.Equal(t, []string{"aaaa", "bbbb"}, names)
}

func TestScanSkipsDeletedRecords(t *testing.T) {
	tbl := scanTestTable(t)
	rids := insertThree(t, tbl)
	require.NoError(t, tbl.DeleteRecord(rids[1]))

	scan := StartScan(tbl, nil)
	defer scan.Close()

	var ids []int32
	for {
		rec, err := scan.Next()
		if xerr.Is(err, xerr.NoMoreTuples) {
			break
		}
		require.NoError(t, err)
		v, err := GetAttr(tbl.Schema(), rec, 0)
		require.NoError(t, err)
		ids = append(ids, v.I)
	}
	require.Equal(t, []int32{1, 3}, ids)
}

func TestScanOnEmptyTableIsImmediatelyExhausted(t *testing.T) {
	tbl := scanTestTable(t)
	scan := StartScan(tbl, nil)
	defer scan.Close()

	_, err := scan.Next()
	require.Error(t, err)
	require.Equal(t, xerr.NoMoreTuples, xerr.KindOf(err))
}

func TestScanCloseIsIdempotent(t *testing.T) {
	tbl := scanTestTable(t)
	insertThree(t, tbl)

	scan := StartScan(tbl, nil)
	_, err := scan.Next()
	require.NoError(t, err)

	require.NoError(t, scan.Close())
	require.NoError(t, scan.Close())
}
