package layout

// MergeResolver compiles a sheet's merged-range list into two O(1)-expected
// lookups: covered coordinate -> anchor, and anchor -> full rectangle bounds
// (spec.md §4.1).
type MergeResolver struct {
	anchors map[Coordinate]Coordinate
	bounds  map[Coordinate]MergedRange
}

// NewMergeResolver expands every merged range into its member coordinates.
// Overlapping ranges are not expected; if encountered, the last-written
// anchor wins and an OverlappingMerges warning is appended to warn.
func NewMergeResolver(ranges []MergedRange, warn *[]LogEntry) *MergeResolver {
	r := &MergeResolver{
		anchors: make(map[Coordinate]Coordinate),
		bounds:  make(map[Coordinate]MergedRange),
	}
	for _, mr := range ranges {
		anchor := mr.Anchor()
		if _, exists := r.bounds[anchor]; exists && warn != nil {
			*warn = append(*warn, LogEntry{Kind: OverlappingMerges, Fatal: false,
				Message: "overlapping merge anchor at " + anchor.text()})
		}
		r.bounds[anchor] = mr
		for row := mr.MinRow; row <= mr.MaxRow; row++ {
			for col := mr.MinCol; col <= mr.MaxCol; col++ {
				c := Coordinate{Row: row, Col: col}
				if existing, ok := r.anchors[c]; ok && existing != anchor && warn != nil {
					*warn = append(*warn, LogEntry{Kind: OverlappingMerges, Fatal: false,
						Message: "overlapping merge coverage at " + c.text()})
				}
				r.anchors[c] = anchor
			}
		}
	}
	return r
}

// Anchor returns the style-bearing coordinate for c: itself unless covered
// by a merge, in which case the anchor of that merge.
func (r *MergeResolver) Anchor(c Coordinate) Coordinate {
	if a, ok := r.anchors[c]; ok {
		return a
	}
	return c
}

// Bounds returns the full rectangle for an anchor coordinate, when c is a
// known anchor of some merged range.
func (r *MergeResolver) Bounds(c Coordinate) (MergedRange, bool) {
	b, ok := r.bounds[c]
	return b, ok
}

func (c Coordinate) text() string {
	return cellName(c.Col, c.Row)
}
