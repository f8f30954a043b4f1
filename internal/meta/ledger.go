package meta

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oliviawu/xetra-ruoshi/internal/config"
	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
	"github.com/oliviawu/xetra-ruoshi/internal/store"
)

// Ledger file layout
const (
	// SourceDateColumn holds the processed source date, YYYY-MM-DD
	SourceDateColumn = "source_date"
	// ProcessedColumn holds the processing timestamp, second precision
	ProcessedColumn = "datetime_of_processing"
	// ProcessedFormat is the layout of ProcessedColumn values
	ProcessedFormat = "2006-01-02 15:04:05"

	// NoWorkDate is the sentinel MinDate returned when every candidate
	// date has already been processed
	NoWorkDate = "9999-12-31"
)

// Window is the computed set of source dates one run must extract.
// MinDate is the earliest date whose aggregates belong in the report;
// Dates may additionally start one day earlier (the lookback day that
// seeds the previous-close computation and is cut from the output).
type Window struct {
	MinDate string
	Dates   []string
}

// Empty reports whether the run has no dates to extract
func (w Window) Empty() bool {
	return len(w.Dates) == 0
}

// Ledger maintains the durable record of processed source dates. It owns
// all read and write access to the meta file object.
type Ledger struct {
	store  store.Gateway
	key    string
	logger *slog.Logger
	now    func() time.Time
}

// NewLedger creates a ledger over the meta file at key
func NewLedger(gw store.Gateway, key string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  gw,
		key:    key,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the ledger's clock. Tests freeze time with it.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// ComputeWindow determines which source dates still need extraction.
//
// Candidates run from one day before firstDate (the lookback day)
// through today. When the ledger exists, dates after the lookback day
// that it does not record are missing; the window then starts at the day
// before the earliest missing date and MinDate is the earliest missing
// date itself. When nothing is missing the sentinel no-work window is
// returned. When no ledger exists every candidate is extracted and
// MinDate is firstDate. Any ledger failure other than not-found
// propagates; it is never conflated with absence.
func (l *Ledger) ComputeWindow(ctx context.Context, firstDate string) (Window, error) {
	first, err := time.Parse(config.DateFormat, firstDate)
	if err != nil {
		return Window{}, apperrors.NewConfigError(fmt.Sprintf("invalid first extract date %q", firstDate), err)
	}

	start := first.AddDate(0, 0, -1)
	today := dateOnly(l.now())

	var candidates []time.Time
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		candidates = append(candidates, d)
	}
	if len(candidates) == 0 {
		// first date lies in the future, nothing can be extracted yet
		return Window{MinDate: NoWorkDate}, nil
	}

	tbl, err := l.store.ReadTable(ctx, l.key)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
			l.logger.InfoContext(ctx, "no meta file found, performing full extract",
				slog.String("key", l.key),
				slog.String("first_date", firstDate))
			return Window{MinDate: firstDate, Dates: formatDates(candidates)}, nil
		}
		return Window{}, fmt.Errorf("read meta file %q: %w", l.key, err)
	}

	processed, err := processedDates(tbl)
	if err != nil {
		return Window{}, err
	}

	// The lookback day itself is never counted as missing; it exists
	// only to seed the previous-close computation.
	var earliestMissing time.Time
	missing := 0
	for _, d := range candidates[1:] {
		if processed[d.Format(config.DateFormat)] {
			continue
		}
		if missing == 0 || d.Before(earliestMissing) {
			earliestMissing = d
		}
		missing++
	}

	if missing == 0 {
		l.logger.InfoContext(ctx, "all dates already processed",
			slog.String("key", l.key))
		return Window{MinDate: NoWorkDate}, nil
	}

	lookback := earliestMissing.AddDate(0, 0, -1)
	var dates []time.Time
	for _, d := range candidates {
		if d.After(lookback) {
			dates = append(dates, d)
		}
	}

	window := Window{
		MinDate: earliestMissing.Format(config.DateFormat),
		Dates:   formatDates(dates),
	}
	l.logger.InfoContext(ctx, "computed processing window",
		slog.String("min_date", window.MinDate),
		slog.Int("dates", len(window.Dates)))

	return window, nil
}

// Append records the given source dates as processed, stamped with the
// current time. The existing ledger's column set must match the meta
// file layout exactly (order-insensitive); a mismatch is a schema error
// and nothing is written. The ledger object is rewritten whole, old rows
// first.
func (l *Ledger) Append(ctx context.Context, processedDates []string) error {
	if len(processedDates) == 0 {
		l.logger.InfoContext(ctx, "no processed dates to record",
			slog.String("key", l.key))
		return nil
	}

	combined := store.NewTable(SourceDateColumn, ProcessedColumn)

	old, err := l.store.ReadTable(ctx, l.key)
	if err != nil && !apperrors.IsType(err, apperrors.ErrTypeNotFound) {
		return fmt.Errorf("read meta file %q: %w", l.key, err)
	}
	if err == nil {
		if !sameColumnSet(old.Columns, combined.Columns) {
			return apperrors.NewSchemaError(
				fmt.Sprintf("meta file %q has columns %v, expected %v", l.key, old.Columns, combined.Columns), nil)
		}
		if err := combined.Concat(old); err != nil {
			return err
		}
	}

	stamp := l.now().Format(ProcessedFormat)
	for _, date := range processedDates {
		combined.AppendRow(date, stamp)
	}

	if _, err := l.store.WriteTable(ctx, combined, l.key, store.FormatCSV); err != nil {
		return fmt.Errorf("write meta file %q: %w", l.key, err)
	}

	l.logger.InfoContext(ctx, "updated meta file",
		slog.String("key", l.key),
		slog.Int("new_entries", len(processedDates)))

	return nil
}

// processedDates extracts the set of recorded source dates from a ledger
// table, tolerating duplicate entries
func processedDates(tbl *store.Table) (map[string]bool, error) {
	idx := tbl.ColumnIndex(SourceDateColumn)
	if idx < 0 {
		return nil, apperrors.NewSchemaError(
			fmt.Sprintf("meta file has no %q column (columns: %v)", SourceDateColumn, tbl.Columns), nil)
	}

	dates := make(map[string]bool, len(tbl.Rows))
	for _, row := range tbl.Rows {
		dates[row[idx]] = true
	}

	return dates, nil
}

// sameColumnSet compares two column lists ignoring order
func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, c := range a {
		counts[c]++
	}
	for _, c := range b {
		counts[c]--
		if counts[c] < 0 {
			return false
		}
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(config.DateFormat)
	}
	return out
}
