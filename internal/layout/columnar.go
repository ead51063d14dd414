package layout

// ToColumnMajor supplements the row-oriented Record shape spec.md requires
// with a column-major view, grounded on original_source's
// transform_data_to_json_with_column_is_first_rows: {column: [values...]}.
// It does not replace the canonical Record output; callers opt in
// explicitly (see cmd/extractcli's --columnar flag).
//
// Every column present in any record gets one entry per record, with nil
// filling rows where that record omitted the key (a data column's null
// leaf is omitted per spec.md's invariant, not written as an explicit null).
func ToColumnMajor(records []Record) map[string][]any {
	keys := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			keys[k] = struct{}{}
		}
	}

	out := make(map[string][]any, len(keys))
	for k := range keys {
		out[k] = make([]any, len(records))
	}
	for i, rec := range records {
		for k := range keys {
			out[k][i] = rec[k] // nil when absent
		}
	}
	return out
}
