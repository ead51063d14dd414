package layout

import "strconv"

// Record is a single body row's assembled map: attribute keys at the top
// level, data-column contributions merged in by walking each header path.
type Record map[string]any

// AttributeLabel resolves column c's (zero-based) row-key label: the
// stringified row-0 header value, or "Column_{index}" (1-based) when that
// value is null/empty (spec.md §9 Open Question resolution).
func AttributeLabel(header RawMatrix, c int) string {
	v := header.At(0, c)
	text := v.Text()
	if text == "" {
		return "Column_" + strconv.Itoa(c+1)
	}
	return text
}

// Assemble builds one Record per body row per spec.md §4.5.3. attributeCount
// is the zero-based boundary from ClassifyColumns; dataPaths[i] is the
// header path for data column attributeCount+i, as returned by HeaderPaths.
// Rows whose data contributions collide (scalar vs map at the same key) are
// dropped and logged as a fatal PathCollision.
func Assemble(header, body RawMatrix, box TableBox, attributeCount int, dataPaths [][]string, warn *[]LogEntry) []Record {
	attrLabels := make([]string, attributeCount)
	for c := 0; c < attributeCount; c++ {
		attrLabels[c] = AttributeLabel(header, c)
	}

	// Forward-fill attribute columns top-to-bottom within the body, once,
	// so a row below a merged attribute cell inherits the anchor's value.
	filledAttrs := forwardFillCols(body)

	records := make([]Record, 0, body.Rows)
	for r := 0; r < body.Rows; r++ {
		rec := make(Record, attributeCount+len(dataPaths))
		for c := 0; c < attributeCount; c++ {
			rec[attrLabels[c]] = filledAttrs.At(r, c).Scalar()
		}

		collided := false
		for i, path := range dataPaths {
			if len(path) == 0 {
				continue // EmptyHeaderPath already warned; column omitted
			}
			c := attributeCount + i
			if c >= body.Cols {
				continue
			}
			v := body.At(r, c)
			if v.IsNull() {
				continue
			}
			if !writePath(rec, path, v.Scalar()) {
				collided = true
				break
			}
		}

		if collided {
			row := r
			if warn != nil {
				*warn = append(*warn, LogEntry{Kind: PathCollision, Fatal: true,
					Table: boxPtr(box), Row: rowPtr(row),
					Message: "data column path collides with an existing scalar; record dropped"})
			}
			continue
		}
		records = append(records, rec)
	}
	return records
}

// writePath walks path within rec iteratively, creating intermediate maps
// as needed, and writes value at the final step. Returns false on a path
// collision (a non-last step already holds a scalar, or the final step
// already holds a map).
func writePath(rec Record, path []string, value any) bool {
	cur := rec
	for i := 0; i < len(path)-1; i++ {
		key := path[i]
		next, exists := cur[key]
		if !exists {
			m := make(Record)
			cur[key] = m
			cur = m
			continue
		}
		m, ok := next.(Record)
		if !ok {
			return false
		}
		cur = m
	}
	last := path[len(path)-1]
	if existing, exists := cur[last]; exists {
		if _, isMap := existing.(Record); isMap {
			return false
		}
	}
	cur[last] = value
	return true
}
