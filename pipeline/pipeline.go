// Package pipeline runs a whole matching job: it indexes the catalog, links every source record,
// aggregates generics, folds the summary and checks the aggregate counts against the itemized
// generic rows.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/generics"
	"github.com/giygas/mfds-matcher/index"
	"github.com/giygas/mfds-matcher/logging"
	"github.com/giygas/mfds-matcher/matcher"
	"github.com/giygas/mfds-matcher/metrics"
	"github.com/giygas/mfds-matcher/validation"
)

// ProgressFunc receives a completion percentage and a phase label. It is only observational.
type ProgressFunc func(percent int, label string)

// Progress points reported during a run.
const (
	progressNormalizing = 5
	progressIndexing    = 15
	progressMatchStart  = 20
	progressMatchSpan   = 70
	progressFinalizing  = 95
	progressDone        = 100
	progressEvery       = 50
)

// Input is everything one run needs.
type Input struct {
	Catalog  []catalog.Row
	Sources  []catalog.SourceRecord
	Mappings []catalog.MappingEntry
	Options  catalog.Options
}

// Processor runs matching jobs. The zero value is usable.
type Processor struct {
	// Workers bounds the per-record concurrency; 0 means GOMAXPROCS.
	Workers int
	// Progress, when set, is called from one goroutine at a time with non-decreasing
	// percentages.
	Progress ProgressFunc
}

// NewProcessor returns a processor with the given worker bound.
func NewProcessor(workers int, progress ProgressFunc) *Processor {
	return &Processor{Workers: workers, Progress: progress}
}

// progressReporter forwards the progress of one run. Workers finish out of order, so a
// percentage below the last one sent is dropped.
type progressReporter struct {
	fn   ProgressFunc
	mu   sync.Mutex
	last int
}

func (r *progressReporter) report(percent int, label string) {
	if r.fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if percent < r.last {
		return
	}
	r.last = percent
	r.fn(percent, label)
}

// Run validates the input, ingests and indexes the catalog rows and matches every source record.
func (p *Processor) Run(ctx context.Context, in Input) (*Result, error) {
	if err := validation.ValidateInputs(len(in.Catalog), in.Sources, in.Options); err != nil {
		return nil, err
	}

	progress := &progressReporter{fn: p.Progress}
	progress.report(progressNormalizing, "normalizing catalog")
	records := catalog.Ingest(in.Catalog)

	progress.report(progressIndexing, "building index")
	idx := index.Build(records)

	return p.run(ctx, progress, idx, in.Sources, in.Mappings, in.Options)
}

// slot is the private output of one source record.
type slot struct {
	result MatchResult
	items  []generics.Item
}

// RunWithIndex matches every source record against a prebuilt index. Output order equals input
// order regardless of worker scheduling.
func (p *Processor) RunWithIndex(ctx context.Context, idx *index.Index, sources []catalog.SourceRecord,
	mappings []catalog.MappingEntry, opts catalog.Options) (*Result, error) {
	return p.run(ctx, &progressReporter{fn: p.Progress}, idx, sources, mappings, opts)
}

func (p *Processor) run(ctx context.Context, progress *progressReporter, idx *index.Index,
	sources []catalog.SourceRecord, mappings []catalog.MappingEntry, opts catalog.Options) (*Result, error) {
	if idx == nil {
		return nil, fmt.Errorf("cannot run matching: %w", validation.ErrEmptyCatalog)
	}
	if err := validation.ValidateInputs(idx.Len(), sources, opts); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()

	m := matcher.New(idx, catalog.MappingLookup(mappings), opts.ActiveOnly())
	agg := generics.NewAggregator(idx, opts)

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slots := make([]slot, len(sources))
	total := len(sources)
	var done atomic.Int64

	progress.report(progressMatchStart, fmt.Sprintf("matching (0/%d)", total))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = processRecord(idx, m, agg, &sources[i], opts)
			if n := done.Add(1); n%progressEvery == 0 {
				pct := progressMatchStart + int(math.Floor(float64(n)/float64(total)*progressMatchSpan))
				progress.report(pct, fmt.Sprintf("matching (%d/%d)", n, total))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress.report(progressFinalizing, "finalizing")
	res := fold(slots)
	res.RunID = runID
	res.Duration = time.Since(start)

	res.Discrepancies = CheckConsistency(res.Results, res.GenericItems)
	for _, d := range res.Discrepancies {
		logging.Warn("Generic count disagrees with itemized generics",
			"run_id", runID,
			"source_id", d.SourceID,
			"generic_count", d.GenericCount,
			"item_count", d.ItemCount)
	}

	recordMetrics(res)
	logging.Info("Matching run completed",
		"run_id", runID,
		"rows", res.Summary.TotalRows,
		"high", res.Summary.High,
		"medium", res.Summary.Medium,
		"review", res.Summary.Review,
		"not_found", res.Summary.NotFound,
		"discrepancies", len(res.Discrepancies),
		"duration", res.Duration)

	progress.report(progressDone, "done")
	return res, nil
}

// processRecord matches one source record and aggregates its generics.
func processRecord(idx *index.Index, m *matcher.Matcher, agg *generics.Aggregator, src *catalog.SourceRecord, opts catalog.Options) slot {
	match := m.Match(src.Label)
	confidence, review := matcher.Classify(match.Tier, match.Score, opts.ReviewThreshold)

	res := MatchResult{
		ID:         src.ID,
		Label:      src.Label,
		Tier:       match.Tier,
		Confidence: confidence,
		Score:      math.Round(match.Score*1000) / 1000,
		Review:     review,
		Extra:      src.Extra,
	}

	var items []generics.Item
	if match.Found() {
		r := idx.Record(match.Pos)
		res.Name = r.Name
		res.EnglishName = r.EnglishName
		res.ItemCode = r.ItemCode
		res.DosageForm = r.DosageForm
		res.IngredientRaw = r.Ingredient
		res.IngredientBase = r.IngredientBase
		if r.IsOriginal() {
			res.Original = catalog.NewDrugFlag
		}

		counts := agg.Counts(r.IngredientBase, r.FormKey)
		res.GenericCount = counts.Count
		res.TotalByBase = counts.TotalBase
		res.TotalByBaseForm = counts.TotalBaseForm
		res.OriginalByBase = counts.OrigBase
		res.GenericInclOriginalByBase = counts.TotalBase
		res.GenericExclOriginalByBase = counts.TotalBase - counts.OrigBase

		items = agg.Items(r.IngredientBase, r.FormKey, src.ID, src.Label)
	}

	return slot{result: res, items: items}
}

// fold assembles the per-record slots, in input order, into a Result.
func fold(slots []slot) *Result {
	res := &Result{
		Results:        make([]MatchResult, 0, len(slots)),
		GenericItems:   []generics.Item{},
		GenericSummary: make([]GenericSummaryRow, 0, len(slots)),
		Discrepancies:  []Discrepancy{},
	}
	sum := &res.Summary
	sum.TotalRows = len(slots)

	for i := range slots {
		s := &slots[i]
		r := s.result

		res.Results = append(res.Results, r)
		res.GenericItems = append(res.GenericItems, s.items...)
		res.GenericSummary = append(res.GenericSummary, GenericSummaryRow{
			SourceID:       r.ID,
			SourceLabel:    r.Label,
			IngredientBase: r.IngredientBase,
			GenericCount:   r.GenericCount,
			GenericNames:   joinNames(s.items),
		})

		switch r.Confidence {
		case matcher.ConfidenceHigh:
			sum.High++
		case matcher.ConfidenceMedium:
			sum.Medium++
		default:
			sum.Review++
		}

		switch r.Tier {
		case matcher.TierNotFound:
			sum.NotFound++
		case matcher.TierMapItemCode:
			sum.UsedMapItemCode++
		case matcher.TierMapIngredientBase:
			sum.UsedMapIngredient++
		case matcher.TierMapProductName:
			sum.UsedMapName++
		}

		sum.MaxGenericPerSource = max(sum.MaxGenericPerSource, r.GenericCount)
	}

	sum.TotalGenericItems = len(res.GenericItems)
	if sum.TotalRows > 0 {
		sum.AverageGenericPerSource = math.Round(float64(sum.TotalGenericItems)/float64(sum.TotalRows)*100) / 100
	}
	return res
}

// joinNames joins the generic product names, truncated to MaxGenericNamesLength characters.
func joinNames(items []generics.Item) string {
	if len(items) == 0 {
		return ""
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	joined := strings.Join(names, GenericNamesSeparator)

	count := 0
	for pos := range joined {
		if count == MaxGenericNamesLength {
			return joined[:pos]
		}
		count++
	}
	return joined
}

func recordMetrics(res *Result) {
	for _, r := range res.Results {
		metrics.MatchResultsTotal.WithLabelValues(string(r.Tier), string(r.Confidence)).Inc()
	}
	metrics.MatchRunDuration.Observe(res.Duration.Seconds())
	metrics.MatchDiscrepanciesTotal.Add(float64(len(res.Discrepancies)))
}
