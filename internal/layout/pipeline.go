package layout

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Options are the named extraction configuration knobs (spec.md §6).
type Options struct {
	MinWidth        int
	MinHeight       int
	BorderThreshold float64

	// MaxConcurrentTables bounds how many detected table boxes are
	// processed concurrently (spec.md §5 extension: stages 3-5 per box are
	// embarrassingly parallel). Defaults to 1 (fully sequential) when <= 0.
	MaxConcurrentTables int
}

// DefaultOptions mirrors spec.md §6's defaults.
func DefaultOptions() Options {
	return Options{MinWidth: 2, MinHeight: 2, BorderThreshold: DefaultBorderThreshold, MaxConcurrentTables: 1}
}

// TableResult is one detected table's assembled records.
type TableResult struct {
	Box     TableBox
	Records []Record
}

// ExtractionResult is the pipeline's complete output: one entry per
// successfully processed table, plus the accumulated structured log.
type ExtractionResult struct {
	Tables []TableResult
	Log    []LogEntry
}

// Extract runs the full five-stage pipeline over sheet: merge resolution,
// table detection, raw extraction, header/body splitting, and schema
// classification & record assembly, in that order. Independent table boxes
// are processed concurrently (bounded by opts.MaxConcurrentTables) and
// results are restored to discovery order before returning, per spec.md §5.
func Extract(ctx context.Context, sheet Sheet, opts Options) ExtractionResult {
	var mu sync.Mutex
	var sharedLog []LogEntry
	appendLog := func(entries []LogEntry) {
		if len(entries) == 0 {
			return
		}
		mu.Lock()
		sharedLog = append(sharedLog, entries...)
		mu.Unlock()
	}

	var mergeWarn []LogEntry
	merges := NewMergeResolver(sheet.MergedRanges(), &mergeWarn)
	appendLog(mergeWarn)

	rho := opts.BorderThreshold
	var thresholdWarn []LogEntry
	rho = ClampThreshold(rho, &thresholdWarn)
	appendLog(thresholdWarn)

	boxes := DetectTables(sheet, merges, DetectOptions{MinWidth: opts.MinWidth, MinHeight: opts.MinHeight})

	results := make([]*TableResult, len(boxes))

	concurrency := opts.MaxConcurrentTables
	if concurrency <= 0 {
		concurrency = 1
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, box := range boxes {
		i, box := i, box
		g.Go(func() error {
			var localLog []LogEntry
			tr, ok := extractTable(sheet, merges, box, rho, &localLog)
			appendLog(localLog)
			if ok {
				results[i] = &tr
			}
			return nil
		})
	}
	_ = g.Wait()

	out := ExtractionResult{Log: sharedLog}
	for _, r := range results {
		if r != nil {
			out.Tables = append(out.Tables, *r)
		}
	}
	return out
}

// extractTable runs stages 3-5 for a single table box.
func extractTable(sheet Sheet, merges *MergeResolver, box TableBox, rho float64, warn *[]LogEntry) (TableResult, bool) {
	raw := ExtractRaw(sheet, box)

	split, ok := SplitHeaderBody(sheet, merges, box, raw.Rows, raw.Cols, rho)
	if !ok {
		*warn = append(*warn, LogEntry{Kind: HeaderSplitNotFound, Fatal: true,
			Table: boxPtr(box), Message: "no inter-row boundary meets the border threshold; table skipped"})
		return TableResult{}, false
	}

	header := sliceRows(raw, 0, split)
	body := sliceRows(raw, split, raw.Rows)
	if body.Rows == 0 {
		*warn = append(*warn, LogEntry{Kind: HeaderSplitNotFound, Fatal: true,
			Table: boxPtr(box), Message: "header split leaves no body rows; table skipped"})
		return TableResult{}, false
	}

	attributeCount := ClassifyColumns(header, body)
	dataPaths := HeaderPaths(header, attributeCount, warn, box)
	records := Assemble(header, body, box, attributeCount, dataPaths, warn)

	return TableResult{Box: box, Records: records}, true
}

func sliceRows(m RawMatrix, from, to int) RawMatrix {
	cells := m.cells[from:to]
	return RawMatrix{Rows: to - from, Cols: m.Cols, cells: cells}
}
