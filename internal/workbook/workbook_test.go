package workbook_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/realty-atlas/internal/models"
	"github.com/UnknownOlympus/realty-atlas/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestWriteRead_RoundTrip(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "2025", "실거래_202504_v2505011200.xlsx")

	sale := workbook.NewTable(models.AptTrade.Label())
	sale.AppendRecords([]models.Record{{
		Type:              models.AptTrade.Label(),
		Province:          "서울특별시",
		District:          "강남구",
		Dong:              ptr("역삼동"),
		ContractYearMonth: "202504",
		ContractDate:      ptr(time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)),
		DealAmount:        ptr(int64(82000)),
		ExclusiveArea:     ptr(84.97),
		LotNumber:         ptr("역삼동 123-4"),
		Address:           "강남구 역삼동 123-4",
	}})
	rent := workbook.NewTable(models.AptRent.Label())

	require.NoError(t, workbook.Write(path, []*workbook.Table{sale, rent}))

	tables, err := workbook.Read(path)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, "아파트_매매", tables[0].Name)
	assert.Equal(t, models.Columns, tables[0].Header)
	require.Len(t, tables[0].Rows, 1)

	row := 0
	assert.Equal(t, "강남구 역삼동 123-4", tables[0].Text(row, tables[0].Column(models.ColAddress)))
	assert.Equal(t, "82000", tables[0].Text(row, tables[0].Column(models.ColDealAmount)))
	assert.Equal(t, "202504", tables[0].Text(row, tables[0].Column(models.ColContractYearMonth)))
	assert.Nil(t, tables[0].Cell(row, tables[0].Column(models.ColDeposit)))

	assert.Equal(t, "아파트_전월세", tables[1].Name)
	assert.Equal(t, models.Columns, tables[1].Header, "empty sheets still carry the header")
	assert.Empty(t, tables[1].Rows)
}

func TestWrite_NoTables(t *testing.T) {
	err := workbook.Write(filepath.Join(t.TempDir(), "x.xlsx"), nil)
	require.ErrorIs(t, err, workbook.ErrNoSheets)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := workbook.Read(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
}

func TestTable_Columns(t *testing.T) {
	table := &workbook.Table{Name: "s", Header: []string{"a", "b"}, Rows: [][]any{{"1", "2"}, {"3"}}}

	assert.Equal(t, 1, table.Column("b"))
	assert.Equal(t, -1, table.Column("lat"))

	lat := table.EnsureColumn("lat")
	assert.Equal(t, 2, lat)
	assert.Equal(t, lat, table.EnsureColumn("lat"))

	assert.Nil(t, table.Cell(1, 1))
	table.SetCell(1, lat, 37.5)
	assert.InDelta(t, 37.5, table.Cell(1, lat), 0)
	assert.Equal(t, "3", table.Text(1, 0))
	assert.Empty(t, table.Text(0, lat))
}

func TestReadFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.xlsx")
	table := &workbook.Table{
		Name:   "regions",
		Header: []string{"region_name", "LAWD_CD"},
		Rows:   [][]any{{"서울특별시_강남구", "11680"}},
	}
	require.NoError(t, workbook.Write(path, []*workbook.Table{table}))

	got, err := workbook.ReadFirst(path)
	require.NoError(t, err)
	assert.Equal(t, "regions", got.Name)
	assert.Equal(t, "11680", got.Text(0, 1))
}
