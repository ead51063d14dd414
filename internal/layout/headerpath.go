package layout

// forwardFillRows propagates each row's last non-null value left-to-right,
// returning a new matrix (the input is left untouched).
func forwardFillRows(m RawMatrix) RawMatrix {
	out := cloneMatrix(m)
	for r := 0; r < out.Rows; r++ {
		var last CellValue
		has := false
		for c := 0; c < out.Cols; c++ {
			if out.cells[r][c].IsNull() {
				if has {
					out.cells[r][c] = last
				}
				continue
			}
			last = out.cells[r][c]
			has = true
		}
	}
	return out
}

// forwardFillCols propagates each column's last non-null value top-to-bottom.
func forwardFillCols(m RawMatrix) RawMatrix {
	out := cloneMatrix(m)
	for c := 0; c < out.Cols; c++ {
		var last CellValue
		has := false
		for r := 0; r < out.Rows; r++ {
			if out.cells[r][c].IsNull() {
				if has {
					out.cells[r][c] = last
				}
				continue
			}
			last = out.cells[r][c]
			has = true
		}
	}
	return out
}

func cloneMatrix(m RawMatrix) RawMatrix {
	cells := make([][]CellValue, m.Rows)
	for r := range cells {
		cells[r] = make([]CellValue, m.Cols)
		copy(cells[r], m.cells[r])
	}
	return RawMatrix{Rows: m.Rows, Cols: m.Cols, cells: cells}
}

// HeaderPaths builds each data column's nested-key path per §4.5.2: fill
// the header region horizontally then vertically, then read each data
// column top-to-bottom collecting non-null values, coerced to text and
// de-duplicated against the immediately preceding entry. dataStart is the
// first data column's zero-based index (the attribute/data boundary).
func HeaderPaths(header RawMatrix, dataStart int, warn *[]LogEntry, box TableBox) [][]string {
	filled := forwardFillCols(forwardFillRows(header))
	paths := make([][]string, 0, header.Cols-dataStart)

	for c := dataStart; c < header.Cols; c++ {
		var path []string
		for r := 0; r < filled.Rows; r++ {
			v := filled.At(r, c)
			if v.IsNull() {
				continue
			}
			text := v.Text()
			if text == "" {
				continue
			}
			if len(path) > 0 && path[len(path)-1] == text {
				continue
			}
			path = append(path, text)
		}
		if len(path) == 0 && warn != nil {
			col := c
			*warn = append(*warn, LogEntry{Kind: EmptyHeaderPath, Fatal: false,
				Table: boxPtr(box), Column: colPtr(col),
				Message: "data column has empty header path and is omitted"})
		}
		paths = append(paths, path)
	}
	return paths
}
