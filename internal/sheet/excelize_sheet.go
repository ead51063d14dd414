// Package sheet provides concrete implementations of layout.Sheet, the
// abstract input contract the extraction pipeline consumes.
package sheet

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/long1234hcc/ctc-east-extract/internal/layout"
)

// ExcelizeSheet adapts one sheet of an open *excelize.File to layout.Sheet.
// Grounded on internal/insights/detect_tables.go's dimension-resolution
// fallback and profile_schema.go's typeCounter value-sniffing (here
// repurposed to build a CellValue instead of a type histogram), and on
// Zapharaos-go-spit's excelize_spreadsheet.go pattern of wrapping
// *excelize.File behind a narrow interface.
//
// layout.Extract may run extractTable for several detected boxes concurrently
// (opts.MaxConcurrentTables); mu serializes all access to the cache and to
// the underlying *excelize.File, neither of which excelize documents as
// safe for concurrent use from one *File.
type ExcelizeSheet struct {
	f     *excelize.File
	name  string
	rows  int
	cols  int
	mu    sync.Mutex
	cache map[layout.Coordinate]layout.CellValue
}

// NewExcelizeSheet constructs an adapter for f's sheet named name, resolving
// the sheet's used-range dimensions up front.
func NewExcelizeSheet(f *excelize.File, name string) (*ExcelizeSheet, error) {
	s := &ExcelizeSheet{f: f, name: name, cache: make(map[layout.Coordinate]layout.CellValue)}
	rows, cols, err := resolveDimensions(f, name)
	if err != nil {
		return nil, err
	}
	s.rows, s.cols = rows, cols
	return s, nil
}

// resolveDimensions reads the sheet's dimension tag, falling back to a
// streaming row scan (the scanned row count and the widest row's column
// count; no fixed default size) when the tag is absent or malformed.
func resolveDimensions(f *excelize.File, sheet string) (rows, cols int, err error) {
	if dim, derr := f.GetSheetDimension(sheet); derr == nil && dim != "" {
		parts := strings.Split(dim, ":")
		if len(parts) == 2 {
			x1, y1, e1 := excelize.CellNameToCoordinates(parts[0])
			x2, y2, e2 := excelize.CellNameToCoordinates(parts[1])
			if e1 == nil && e2 == nil && x2 >= x1 && y2 >= y1 {
				return y2, x2, nil
			}
		}
	}

	r, rerr := f.Rows(sheet)
	if rerr != nil {
		return 0, 0, rerr
	}
	defer r.Close()

	maxCols := 0
	rowCount := 0
	for r.Next() {
		rowCount++
		vals, cerr := r.Columns()
		if cerr != nil {
			return 0, 0, cerr
		}
		if len(vals) > maxCols {
			maxCols = len(vals)
		}
	}
	if err := r.Error(); err != nil {
		return 0, 0, err
	}
	return rowCount, maxCols, nil
}

func (s *ExcelizeSheet) Dimensions() (rows, cols int) { return s.rows, s.cols }

func (s *ExcelizeSheet) Value(row, col int) layout.CellValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	coord := layout.Coordinate{Row: row, Col: col}
	if v, ok := s.cache[coord]; ok {
		return v
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return layout.Null
	}
	raw, err := s.f.GetCellValue(s.name, name)
	if err != nil {
		return layout.Null
	}
	v := classifyRaw(raw)
	s.cache[coord] = v
	return v
}

func (s *ExcelizeSheet) Edges(row, col int) layout.Edges {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return layout.Edges{}
	}
	styleID, err := s.f.GetCellStyle(s.name, name)
	if err != nil || styleID == 0 {
		return layout.Edges{}
	}
	style, err := s.f.GetStyle(styleID)
	if err != nil || style == nil {
		return layout.Edges{}
	}

	var e layout.Edges
	for _, b := range style.Border {
		if b.Style <= 0 {
			continue
		}
		switch strings.ToLower(b.Type) {
		case "top":
			e.Top = true
		case "bottom":
			e.Bottom = true
		case "left":
			e.Left = true
		case "right":
			e.Right = true
		}
	}
	return e
}

func (s *ExcelizeSheet) MergedRanges() []layout.MergedRange {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells, err := s.f.GetMergeCells(s.name)
	if err != nil {
		return nil
	}
	out := make([]layout.MergedRange, 0, len(cells))
	for _, mc := range cells {
		x1, y1, e1 := excelize.CellNameToCoordinates(mc.GetStartAxis())
		x2, y2, e2 := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if e1 != nil || e2 != nil {
			continue
		}
		out = append(out, layout.MergedRange{MinRow: y1, MinCol: x1, MaxRow: y2, MaxCol: x2})
	}
	return out
}

// classifyRaw sniffs a formatted cell string into a CellValue, grounded on
// profile_schema.go's typeCounter.observe (percent/currency stripping,
// common date layouts, bool literals) but constructing a tagged value
// instead of incrementing a histogram.
func classifyRaw(raw string) layout.CellValue {
	s := strings.TrimSpace(raw)
	if s == "" {
		return layout.Null
	}

	low := strings.ToLower(s)
	if low == "true" || low == "false" {
		return layout.BoolValue(low == "true")
	}

	clean := strings.Map(func(r rune) rune {
		switch r {
		case ',', '$', '%':
			return -1
		default:
			return r
		}
	}, s)
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return layout.NumberValue(f)
	}

	for _, layoutStr := range dateLayouts {
		if t, err := time.Parse(layoutStr, s); err == nil {
			return layout.DateValue(t)
		}
	}

	return layout.StringValue(s)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2006/01/02",
	"1/2/2006",
	"1/2/06",
}
