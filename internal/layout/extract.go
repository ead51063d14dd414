package layout

// RawMatrix is a rectangular array of raw values sliced from a table box,
// indexed zero-based internally. A null (KindNull) entry signals a merge span: only the
// anchor cell carries a value (spec.md §4.3).
type RawMatrix struct {
	Rows, Cols int
	cells      [][]CellValue
}

// At returns the value at zero-based (r, c).
func (m RawMatrix) At(r, c int) CellValue { return m.cells[r][c] }

// Row returns the zero-based row r as a slice.
func (m RawMatrix) Row(r int) []CellValue { return m.cells[r] }

// ExtractRaw slices the sheet at box, reading each covered coordinate's own
// value (not its merge anchor's) so that non-anchor cells within a merged
// span read as null, signaling the merge to later stages.
func ExtractRaw(sheet Sheet, box TableBox) RawMatrix {
	h, w := box.Height(), box.Width()
	cells := make([][]CellValue, h)
	for r := 0; r < h; r++ {
		cells[r] = make([]CellValue, w)
		for c := 0; c < w; c++ {
			cells[r][c] = sheet.Value(box.MinRow+r, box.MinCol+c)
		}
	}
	return RawMatrix{Rows: h, Cols: w, cells: cells}
}
