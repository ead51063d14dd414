package layout

// DetectOptions bounds the Table Detector's size threshold (spec.md §4.2).
type DetectOptions struct {
	MinWidth  int
	MinHeight int
}

// DefaultDetectOptions returns the spec's defaults (2, 2).
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{MinWidth: 2, MinHeight: 2}
}

func (o DetectOptions) normalized() DetectOptions {
	if o.MinWidth < 1 {
		o.MinWidth = 2
	}
	if o.MinHeight < 1 {
		o.MinHeight = 2
	}
	return o
}

// DetectTables builds the border heatmap, floods connected bordered cells,
// and emits bounding boxes above the size threshold, in row-major discovery
// order (spec.md §4.2).
func DetectTables(sheet Sheet, merges *MergeResolver, opts DetectOptions) []TableBox {
	opts = opts.normalized()
	rows, cols := sheet.Dimensions()
	if rows <= 0 || cols <= 0 {
		return nil
	}

	heat := buildHeatmap(sheet, merges, rows, cols)
	visited := make([][]bool, rows+1)
	for r := range visited {
		visited[r] = make([]bool, cols+1)
	}

	var boxes []TableBox
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			if !heat[r][c] || visited[r][c] {
				continue
			}
			box := floodFill(heat, visited, rows, cols, r, c)
			if box.Width() >= opts.MinWidth && box.Height() >= opts.MinHeight {
				boxes = append(boxes, box)
			}
		}
	}
	return boxes
}

// buildHeatmap marks cell (r,c) true iff its style-bearing anchor (itself,
// unless covered by a merge) has any styled edge. A merged block's border
// is thus propagated to every cell it covers, per the detector's rationale.
func buildHeatmap(sheet Sheet, merges *MergeResolver, rows, cols int) [][]bool {
	heat := make([][]bool, rows+1)
	for r := range heat {
		heat[r] = make([]bool, cols+1)
	}
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			anchor := merges.Anchor(Coordinate{Row: r, Col: c})
			heat[r][c] = sheet.Edges(anchor.Row, anchor.Col).Any()
		}
	}
	return heat
}

// floodFill runs 4-connected BFS from (startR, startC) over true heatmap
// cells, marking visited and returning the bounding box of the component.
func floodFill(heat, visited [][]bool, rows, cols, startR, startC int) TableBox {
	visited[startR][startC] = true
	queue := []Coordinate{{Row: startR, Col: startC}}
	box := TableBox{MinRow: startR, MaxRow: startR, MinCol: startC, MaxCol: startC}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.Row < box.MinRow {
			box.MinRow = cur.Row
		}
		if cur.Row > box.MaxRow {
			box.MaxRow = cur.Row
		}
		if cur.Col < box.MinCol {
			box.MinCol = cur.Col
		}
		if cur.Col > box.MaxCol {
			box.MaxCol = cur.Col
		}

		neighbors := [4]Coordinate{
			{Row: cur.Row - 1, Col: cur.Col},
			{Row: cur.Row + 1, Col: cur.Col},
			{Row: cur.Row, Col: cur.Col - 1},
			{Row: cur.Row, Col: cur.Col + 1},
		}
		for _, n := range neighbors {
			if n.Row < 1 || n.Row > rows || n.Col < 1 || n.Col > cols {
				continue
			}
			if !heat[n.Row][n.Col] || visited[n.Row][n.Col] {
				continue
			}
			visited[n.Row][n.Col] = true
			queue = append(queue, n)
		}
	}
	return box
}
