package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/oliviawu/xetra-ruoshi/internal/config"
	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
	"github.com/oliviawu/xetra-ruoshi/internal/store"
)

// Aggregator folds raw per-trade rows into per-instrument daily report
// rows. It is stateless; one instance serves any number of runs.
type Aggregator struct {
	logger *slog.Logger
	src    config.SourceConfig
	trg    config.TargetConfig
}

// NewAggregator creates an aggregator for the given source and target
// column mappings
func NewAggregator(logger *slog.Logger, src config.SourceConfig, trg config.TargetConfig) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		logger: logger,
		src:    src,
		trg:    trg,
	}
}

// rawRow is one parsed source row
type rawRow struct {
	isin   string
	date   string
	time   string
	start  float64
	minP   float64
	maxP   float64
	volume float64
}

// groupKey identifies one (instrument, date) aggregate
type groupKey struct {
	isin string
	date string
}

// aggRow is one report row before formatting
type aggRow struct {
	groupKey
	open      float64
	close     float64
	minP      float64
	maxP      float64
	volume    float64
	change    float64
	hasChange bool
}

// Aggregate transforms raw rows into the daily report table.
//
// Rows carrying a missing value in any configured source column are
// dropped. Within each (instrument, date) group rows are sorted by
// time of day ascending; the group's opening price is the last start
// price after that sort and its closing price is the minimum of the
// per-row opening-price candidates — both rules reproduce the upstream
// report definition verbatim. Percent change compares opening prices
// against the instrument's previous aggregated date; an instrument's
// first date has no previous value and its change cell stays empty.
// All numeric output is rounded to two decimals, half away from zero.
// Rows dated before cutoffDate are dropped after the change computation.
func (a *Aggregator) Aggregate(ctx context.Context, tbl *store.Table, cutoffDate string) (*store.Table, error) {
	out := store.NewTable(
		a.trg.ColISIN,
		a.trg.ColDate,
		a.trg.ColOpeningPrice,
		a.trg.ColClosingPrice,
		a.trg.ColMinPrice,
		a.trg.ColMaxPrice,
		a.trg.ColDailyTradedVol,
		a.trg.ColChangePrevClose,
	)

	if tbl.Empty() {
		a.logger.InfoContext(ctx, "no raw rows to aggregate")
		return out, nil
	}

	rows, err := a.parseRows(ctx, tbl)
	if err != nil {
		return nil, err
	}

	groups := make(map[groupKey][]rawRow)
	for _, r := range rows {
		key := groupKey{isin: r.isin, date: r.date}
		groups[key] = append(groups[key], r)
	}

	aggregates := make([]aggRow, 0, len(groups))
	for key, members := range groups {
		aggregates = append(aggregates, aggregateGroup(key, members))
	}

	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].date != aggregates[j].date {
			return aggregates[i].date < aggregates[j].date
		}
		return aggregates[i].isin < aggregates[j].isin
	})

	// Percent change of opening price vs the instrument's previous
	// aggregated date. The earliest date per instrument has no divisor
	// and stays unset.
	prevOpen := make(map[string]float64)
	for i := range aggregates {
		if prev, ok := prevOpen[aggregates[i].isin]; ok {
			aggregates[i].change = (aggregates[i].open - prev) / prev * 100
			aggregates[i].hasChange = true
		}
		prevOpen[aggregates[i].isin] = aggregates[i].open
	}

	kept := 0
	for _, agg := range aggregates {
		if agg.date < cutoffDate {
			continue
		}
		change := ""
		if agg.hasChange {
			change = round2(agg.change)
		}
		out.AppendRow(
			agg.isin,
			agg.date,
			round2(agg.open),
			round2(agg.close),
			round2(agg.minP),
			round2(agg.maxP),
			round2(agg.volume),
			change,
		)
		kept++
	}

	a.logger.InfoContext(ctx, "aggregated raw rows",
		slog.Int("raw_rows", len(tbl.Rows)),
		slog.Int("groups", len(groups)),
		slog.Int("report_rows", kept))

	return out, nil
}

// parseRows projects the table to the configured source columns and
// parses the typed fields, dropping rows with missing or unparseable
// values
func (a *Aggregator) parseRows(ctx context.Context, tbl *store.Table) ([]rawRow, error) {
	projected := make([]int, len(a.src.Columns))
	for i, name := range a.src.Columns {
		idx := tbl.ColumnIndex(name)
		if idx < 0 {
			return nil, apperrors.NewSchemaError(fmt.Sprintf("source data has no %q column", name), nil)
		}
		projected[i] = idx
	}

	named := map[string]int{}
	for _, name := range []string{
		a.src.ColISIN, a.src.ColDate, a.src.ColTime,
		a.src.ColStartPrice, a.src.ColMinPrice, a.src.ColMaxPrice, a.src.ColTradedVolume,
	} {
		idx := tbl.ColumnIndex(name)
		if idx < 0 {
			return nil, apperrors.NewSchemaError(fmt.Sprintf("source data has no %q column", name), nil)
		}
		named[name] = idx
	}

	rows := make([]rawRow, 0, len(tbl.Rows))
	dropped := 0
rowLoop:
	for _, cells := range tbl.Rows {
		for _, idx := range projected {
			if cells[idx] == "" {
				dropped++
				continue rowLoop
			}
		}

		start, err1 := strconv.ParseFloat(cells[named[a.src.ColStartPrice]], 64)
		minP, err2 := strconv.ParseFloat(cells[named[a.src.ColMinPrice]], 64)
		maxP, err3 := strconv.ParseFloat(cells[named[a.src.ColMaxPrice]], 64)
		volume, err4 := strconv.ParseFloat(cells[named[a.src.ColTradedVolume]], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			dropped++
			continue
		}

		rows = append(rows, rawRow{
			isin:   cells[named[a.src.ColISIN]],
			date:   cells[named[a.src.ColDate]],
			time:   cells[named[a.src.ColTime]],
			start:  start,
			minP:   minP,
			maxP:   maxP,
			volume: volume,
		})
	}

	if dropped > 0 {
		a.logger.DebugContext(ctx, "dropped rows with missing values",
			slog.Int("dropped", dropped))
	}

	return rows, nil
}

// aggregateGroup folds the rows of one (instrument, date) group
func aggregateGroup(key groupKey, members []rawRow) aggRow {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].time < members[j].time
	})

	// Every row's opening-price candidate is the group's last start
	// price after the time sort; the closing price is the minimum of
	// those candidates, which therefore coincides with the opening
	// price. Kept as two fields to match the report definition.
	open := members[len(members)-1].start
	close := open

	agg := aggRow{
		groupKey: key,
		open:     open,
		close:    close,
		minP:     members[0].minP,
		maxP:     members[0].maxP,
	}
	for _, m := range members {
		if m.minP < agg.minP {
			agg.minP = m.minP
		}
		if m.maxP > agg.maxP {
			agg.maxP = m.maxP
		}
		agg.volume += m.volume
	}

	return agg
}

// round2 formats a value rounded to two decimals, half away from zero
func round2(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}
