package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliviawu/xetra-ruoshi/internal/config"
	"github.com/oliviawu/xetra-ruoshi/internal/dataprocessing"
	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
	"github.com/oliviawu/xetra-ruoshi/internal/meta"
	"github.com/oliviawu/xetra-ruoshi/internal/store"
)

type fixture struct {
	etl    *ETL
	source *store.MemoryBucket
	target *store.MemoryBucket
	cfg    *config.Config
}

// newFixture wires a pipeline over in-memory buckets with time frozen
// at the given instant
func newFixture(t *testing.T, nowStr string) *fixture {
	t.Helper()

	now, err := time.Parse("2006-01-02 15:04:05", nowStr)
	require.NoError(t, err)
	clock := func() time.Time { return now }

	cfg := config.Default()
	cfg.Source.FirstExtractDate = "2021-01-04"
	cfg.Target.Format = store.FormatCSV

	source := store.NewMemoryBucket()
	target := store.NewMemoryBucket()
	ledger := meta.NewLedger(target, cfg.Meta.Key, nil).WithClock(clock)
	aggregator := dataprocessing.NewAggregator(nil, cfg.Source, cfg.Target)

	etl := New(source, target, ledger, aggregator, cfg.Source, cfg.Target, nil).WithClock(clock)

	return &fixture{etl: etl, source: source, target: target, cfg: cfg}
}

// seedSourceFile stages one source object for a date
func (f *fixture) seedSourceFile(t *testing.T, date, name string, rows ...[]string) {
	t.Helper()

	tbl := store.NewTable("ISIN", "Date", "Time", "StartPrice", "MaxPrice", "MinPrice", "TradedVolume")
	for _, row := range rows {
		tbl.AppendRow(row...)
	}
	_, err := f.source.WriteTable(context.Background(), tbl, date+"/"+name, store.FormatCSV)
	require.NoError(t, err)
}

func TestRun_FirstRun(t *testing.T) {
	f := newFixture(t, "2021-01-05 17:00:00")
	ctx := context.Background()

	f.seedSourceFile(t, "2021-01-03", "a.csv",
		[]string{"AT0000A0E9W5", "2021-01-03", "10:00", "100", "101", "99", "50"})
	f.seedSourceFile(t, "2021-01-04", "a.csv",
		[]string{"AT0000A0E9W5", "2021-01-04", "10:00", "110", "112", "108", "60"})
	f.seedSourceFile(t, "2021-01-05", "a.csv",
		[]string{"AT0000A0E9W5", "2021-01-05", "10:00", "99", "113", "97", "70"})

	require.NoError(t, f.etl.Run(ctx))

	report, err := f.target.ReadTable(ctx, "report1/xetra_daily_report1_20210105_170000.csv")
	require.NoError(t, err)

	// Lookback day 2021-01-03 seeds the change column and is dropped
	require.Len(t, report.Rows, 2)
	assert.Equal(t, []string{"AT0000A0E9W5", "2021-01-04", "110.00", "110.00", "108.00", "112.00", "60.00", "10.00"}, report.Rows[0])
	assert.Equal(t, []string{"AT0000A0E9W5", "2021-01-05", "99.00", "99.00", "97.00", "113.00", "70.00", "-10.00"}, report.Rows[1])

	ledger, err := f.target.ReadTable(ctx, f.cfg.Meta.Key)
	require.NoError(t, err)
	var dates []string
	for _, row := range ledger.Rows {
		dates = append(dates, row[0])
	}
	assert.Equal(t, []string{"2021-01-04", "2021-01-05"}, dates)
}

func TestRun_IncrementalRunSkipsProcessedDates(t *testing.T) {
	f := newFixture(t, "2021-01-05 17:00:00")
	ctx := context.Background()

	f.seedSourceFile(t, "2021-01-04", "a.csv",
		[]string{"AT0000A0E9W5", "2021-01-04", "10:00", "110", "112", "108", "60"})
	f.seedSourceFile(t, "2021-01-05", "a.csv",
		[]string{"AT0000A0E9W5", "2021-01-05", "10:00", "99", "113", "97", "70"})

	ledgerTbl := store.NewTable(meta.SourceDateColumn, meta.ProcessedColumn)
	ledgerTbl.AppendRow("2021-01-04", "2021-01-04 17:00:00")
	_, err := f.target.WriteTable(ctx, ledgerTbl, f.cfg.Meta.Key, store.FormatCSV)
	require.NoError(t, err)

	require.NoError(t, f.etl.Run(ctx))

	report, err := f.target.ReadTable(ctx, "report1/xetra_daily_report1_20210105_170000.csv")
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	assert.Equal(t, "2021-01-05", report.Rows[0][1])

	ledger, err := f.target.ReadTable(ctx, f.cfg.Meta.Key)
	require.NoError(t, err)
	require.Len(t, ledger.Rows, 2)
	assert.Equal(t, "2021-01-04", ledger.Rows[0][0])
	assert.Equal(t, "2021-01-05", ledger.Rows[1][0])
}

func TestRun_NothingToDo(t *testing.T) {
	f := newFixture(t, "2021-01-05 17:00:00")
	ctx := context.Background()

	ledgerTbl := store.NewTable(meta.SourceDateColumn, meta.ProcessedColumn)
	for _, d := range []string{"2021-01-04", "2021-01-05"} {
		ledgerTbl.AppendRow(d, "2021-01-05 08:00:00")
	}
	_, err := f.target.WriteTable(ctx, ledgerTbl, f.cfg.Meta.Key, store.FormatCSV)
	require.NoError(t, err)

	require.NoError(t, f.etl.Run(ctx))

	// No report written, ledger unchanged
	_, err = f.target.ReadTable(ctx, "report1/xetra_daily_report1_20210105_170000.csv")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	ledger, err := f.target.ReadTable(ctx, f.cfg.Meta.Key)
	require.NoError(t, err)
	assert.Len(t, ledger.Rows, 2)
}

func TestRun_NoSourceFilesStillRecordsDates(t *testing.T) {
	f := newFixture(t, "2021-01-04 17:00:00")
	ctx := context.Background()

	require.NoError(t, f.etl.Run(ctx))

	// Empty extract: no report object, but the window dates are
	// recorded so the next run does not retry them
	ledger, err := f.target.ReadTable(ctx, f.cfg.Meta.Key)
	require.NoError(t, err)
	require.Len(t, ledger.Rows, 1)
	assert.Equal(t, "2021-01-04", ledger.Rows[0][0])
}

func TestRun_UnsupportedFormatAborts(t *testing.T) {
	f := newFixture(t, "2021-01-04 17:00:00")
	f.etl.trg.Format = "xlsx"
	ctx := context.Background()

	f.seedSourceFile(t, "2021-01-04", "a.csv",
		[]string{"AT0000A0E9W5", "2021-01-04", "10:00", "110", "112", "108", "60"})

	err := f.etl.Run(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeFormat))

	// Aborted before the ledger update
	_, err = f.target.ReadTable(ctx, f.cfg.Meta.Key)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestRun_WrongLedgerSchemaAborts(t *testing.T) {
	f := newFixture(t, "2021-01-04 17:00:00")
	ctx := context.Background()

	f.target.PutRaw(f.cfg.Meta.Key, []byte("foo,bar\n1,2\n"))

	err := f.etl.Run(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestRun_ParquetReport(t *testing.T) {
	f := newFixture(t, "2021-01-04 17:00:00")
	f.etl.trg.Format = store.FormatParquet
	ctx := context.Background()

	f.seedSourceFile(t, "2021-01-04", "a.csv",
		[]string{"AT0000A0E9W5", "2021-01-04", "10:00", "110", "112", "108", "60"})

	require.NoError(t, f.etl.Run(ctx))

	report, err := f.target.ReadTable(ctx, "report1/xetra_daily_report1_20210104_170000.parquet")
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "110.00", report.Rows[0][2])
}
