package layout

// DefaultBorderThreshold is ρ in spec.md §4.4.
const DefaultBorderThreshold = 0.95

// ClampThreshold clamps ρ to [0,1], appending a ThresholdOutOfRange warning
// when clamping was necessary.
func ClampThreshold(rho float64, warn *[]LogEntry) float64 {
	if rho < 0 {
		if warn != nil {
			*warn = append(*warn, LogEntry{Kind: ThresholdOutOfRange, Fatal: false,
				Message: "border_threshold below 0, clamped to 0"})
		}
		return 0
	}
	if rho > 1 {
		if warn != nil {
			*warn = append(*warn, LogEntry{Kind: ThresholdOutOfRange, Fatal: false,
				Message: "border_threshold above 1, clamped to 1"})
		}
		return 1
	}
	return rho
}

// SplitHeaderBody scans inter-row boundaries of box for a near-complete
// horizontal rule and returns the body-start row index (0-based into the
// raw matrix) of the *last* such boundary, per spec.md §4.4. ok is false
// when no boundary clears rho (HeaderSplitNotFound).
func SplitHeaderBody(sheet Sheet, merges *MergeResolver, box TableBox, h, w int, rho float64) (split int, ok bool) {
	if h <= 1 || w == 0 {
		return 0, false
	}

	found := -1
	for r := 0; r <= h-2; r++ {
		ruled := 0
		for c := 0; c < w; c++ {
			if boundaryRuledAt(sheet, merges, box, r, c) {
				ruled++
			}
		}
		fraction := float64(ruled) / float64(w)
		if fraction >= rho {
			found = r + 1
		}
	}
	if found < 0 {
		return 0, false
	}
	return found, true
}

// boundaryRuledAt decides whether the inter-row boundary between raw-matrix
// row r and r+1, at column c, is ruled.
func boundaryRuledAt(sheet Sheet, merges *MergeResolver, box TableBox, r, c int) bool {
	above := Coordinate{Row: box.MinRow + r, Col: box.MinCol + c}
	below := Coordinate{Row: box.MinRow + r + 1, Col: box.MinCol + c}

	aboveAnchor := merges.Anchor(above)
	belowAnchor := merges.Anchor(below)
	if aboveAnchor == belowAnchor {
		// Internal to a single merged block at this column: not a separator.
		return false
	}

	aboveEdges := sheet.Edges(aboveAnchor.Row, aboveAnchor.Col)
	belowEdges := sheet.Edges(belowAnchor.Row, belowAnchor.Col)
	return aboveEdges.Bottom || belowEdges.Top
}
