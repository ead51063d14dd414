package layout

// fakeSheet is an in-memory Sheet fixture for exercising the pipeline without
// a real workbook reader, grounded on spec.md §6's sheet-adapter contract.
type fakeSheet struct {
	rows, cols int
	values     map[[2]int]CellValue
	edges      map[[2]int]Edges
	merges     []MergedRange
}

func newFakeSheet(rows, cols int) *fakeSheet {
	return &fakeSheet{
		rows:   rows,
		cols:   cols,
		values: make(map[[2]int]CellValue),
		edges:  make(map[[2]int]Edges),
	}
}

func (s *fakeSheet) setValue(row, col int, v CellValue) {
	s.values[[2]int{row, col}] = v
}

func (s *fakeSheet) setText(row, col int, text string) {
	s.setValue(row, col, StringValue(text))
}

func (s *fakeSheet) setNumber(row, col int, n float64) {
	s.setValue(row, col, NumberValue(n))
}

func (s *fakeSheet) setEdges(row, col int, e Edges) {
	s.edges[[2]int{row, col}] = e
}

// border sets all four edges for (row, col), convenient for fully-bordered
// blocks used to seed table detection.
func (s *fakeSheet) border(row, col int) {
	s.setEdges(row, col, Edges{Top: true, Right: true, Bottom: true, Left: true})
}

func (s *fakeSheet) addMerge(minRow, minCol, maxRow, maxCol int) {
	s.merges = append(s.merges, MergedRange{MinRow: minRow, MinCol: minCol, MaxRow: maxRow, MaxCol: maxCol})
}

func (s *fakeSheet) Dimensions() (int, int) { return s.rows, s.cols }

func (s *fakeSheet) Value(row, col int) CellValue {
	if v, ok := s.values[[2]int{row, col}]; ok {
		return v
	}
	return Null
}

func (s *fakeSheet) Edges(row, col int) Edges {
	return s.edges[[2]int{row, col}]
}

func (s *fakeSheet) MergedRanges() []MergedRange { return s.merges }

// borderBlock stamps every cell in [minRow..maxRow] x [minCol..maxCol] with
// full borders, the shape the Table Detector's flood fill expects for one
// bordered component.
func (s *fakeSheet) borderBlock(minRow, minCol, maxRow, maxCol int) {
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			s.border(r, c)
		}
	}
}
