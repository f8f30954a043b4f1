package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oliviawu/xetra-ruoshi/internal/config"
	"github.com/oliviawu/xetra-ruoshi/internal/dataprocessing"
	apperrors "github.com/oliviawu/xetra-ruoshi/internal/errors"
	"github.com/oliviawu/xetra-ruoshi/internal/meta"
	"github.com/oliviawu/xetra-ruoshi/internal/store"
)

// ETL sequences one batch run: extract the unprocessed source dates,
// aggregate them into the daily report, write the report to the target
// bucket and record the processed dates in the meta ledger. The first
// error aborts the run; side effects already performed are not rolled
// back.
type ETL struct {
	source     store.Gateway
	target     store.Gateway
	ledger     *meta.Ledger
	aggregator *dataprocessing.Aggregator
	src        config.SourceConfig
	trg        config.TargetConfig
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a pipeline over the given collaborators
func New(source, target store.Gateway, ledger *meta.Ledger, aggregator *dataprocessing.Aggregator,
	src config.SourceConfig, trg config.TargetConfig, logger *slog.Logger) *ETL {
	if logger == nil {
		logger = slog.Default()
	}
	return &ETL{
		source:     source,
		target:     target,
		ledger:     ledger,
		aggregator: aggregator,
		src:        src,
		trg:        trg,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the pipeline's clock. Tests freeze time with it.
func (e *ETL) WithClock(now func() time.Time) *ETL {
	e.now = now
	return e
}

// Run executes one extract-transform-load-ledger sequence
func (e *ETL) Run(ctx context.Context) error {
	window, err := e.ledger.ComputeWindow(ctx, e.src.FirstExtractDate)
	if err != nil {
		return fmt.Errorf("compute processing window: %w", err)
	}

	raw, err := e.extract(ctx, window)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	report, err := e.aggregator.Aggregate(ctx, raw, window.MinDate)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	if err := e.load(ctx, report, window); err != nil {
		return fmt.Errorf("load: %w", err)
	}

	return nil
}

// extract reads every source object of every window date and
// concatenates the rows. An empty window yields an empty table and the
// run proceeds to produce an empty report.
func (e *ETL) extract(ctx context.Context, window meta.Window) (*store.Table, error) {
	combined := &store.Table{}

	files := 0
	for _, date := range window.Dates {
		keys, err := e.source.List(ctx, date)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			tbl, err := e.source.ReadTable(ctx, key)
			if err != nil {
				if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
					// Listed but gone by read time; same as no match.
					continue
				}
				return nil, err
			}
			if err := combined.Concat(tbl); err != nil {
				return nil, err
			}
			files++
		}
	}

	e.logger.InfoContext(ctx, "extracted source data",
		slog.Int("dates", len(window.Dates)),
		slog.Int("files", files),
		slog.Int("rows", len(combined.Rows)))

	return combined, nil
}

// load writes the report to its dated target key and records the
// processed window dates in the ledger. The lookback day seeds the
// change computation only and is never recorded as processed.
func (e *ETL) load(ctx context.Context, report *store.Table, window meta.Window) error {
	key := e.trg.KeyPrefix + e.now().Format(e.trg.KeyDateFormat) + "." + e.trg.Format

	written, err := e.target.WriteTable(ctx, report, key, e.trg.Format)
	if err != nil {
		return err
	}
	if written {
		e.logger.InfoContext(ctx, "wrote daily report",
			slog.String("key", key),
			slog.Int("rows", len(report.Rows)))
	}

	processed := make([]string, 0, len(window.Dates))
	for _, date := range window.Dates {
		if date >= window.MinDate {
			processed = append(processed, date)
		}
	}

	return e.ledger.Append(ctx, processed)
}
