package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/long1234hcc/ctc-east-extract/internal/layout"
	"github.com/long1234hcc/ctc-east-extract/internal/workbooks"
	"github.com/long1234hcc/ctc-east-extract/pkg/mcperr"
	"github.com/long1234hcc/ctc-east-extract/pkg/pagination"
	"github.com/long1234hcc/ctc-east-extract/pkg/validation"
)

// TableCandidate summarizes one detected table region without extracting it.
type TableCandidate struct {
	Index int    `json:"index"`
	Range string `json:"range"`
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
}

// DetectTablesInput defines parameters for the detect_tables tool.
type DetectTablesInput struct {
	Path      string `json:"path" validate:"required,xlsxpath" jsonschema_description:"Absolute or allowed path to an Excel workbook"`
	Sheet     string `json:"sheet" validate:"required" jsonschema_description:"Sheet name to scan"`
	MinWidth  int    `json:"min_width,omitempty" jsonschema_description:"Minimum table width in columns (default 2)"`
	MinHeight int    `json:"min_height,omitempty" jsonschema_description:"Minimum table height in rows (default 2)"`
}

// DetectTablesOutput lists the detected table candidates in sheet scan order.
type DetectTablesOutput struct {
	Path       string            `json:"path"`
	Sheet      string            `json:"sheet"`
	Candidates []TableCandidate  `json:"candidates"`
	Log        []layout.LogEntry `json:"log,omitempty"`
}

// ExtractRecordsInput defines parameters for the extract_records tool.
type ExtractRecordsInput struct {
	Path            string  `json:"path" validate:"required,xlsxpath" jsonschema_description:"Absolute or allowed path to an Excel workbook"`
	Sheet           string  `json:"sheet" jsonschema_description:"Sheet name; required unless cursor is supplied"`
	TableIndex      int     `json:"table_index,omitempty" jsonschema_description:"0-based index into the detected tables for this sheet"`
	MinWidth        int     `json:"min_width,omitempty" jsonschema_description:"Minimum table width in columns (default 2)"`
	MinHeight       int     `json:"min_height,omitempty" jsonschema_description:"Minimum table height in rows (default 2)"`
	BorderThreshold float64 `json:"border_threshold,omitempty" validate:"omitempty,threshold01" jsonschema_description:"Ruled-fraction threshold in [0,1] for the header/body boundary (default 0.95)"`
	PageSize        int     `json:"page_size,omitempty" jsonschema_description:"Max records to return per page (default 200)"`
	Columnar        bool    `json:"columnar,omitempty" jsonschema_description:"Return a column-major view instead of one object per record"`
	Cursor          string  `json:"cursor,omitempty" validate:"omitempty,cursor" jsonschema_description:"Opaque pagination cursor; takes precedence over sheet/table_index"`
}

// ExtractRecordsOutput documents one page of assembled records for a single table.
type ExtractRecordsOutput struct {
	Path       string            `json:"path"`
	Sheet      string            `json:"sheet"`
	TableIndex int               `json:"table_index"`
	Range      string            `json:"range"`
	Records    []layout.Record   `json:"records,omitempty"`
	Columns    map[string][]any  `json:"columns,omitempty"`
	Log        []layout.LogEntry `json:"log,omitempty"`
	Meta       PageMeta          `json:"meta"`
}

// PageMeta captures paging/truncation metadata.
type PageMeta struct {
	Total      int    `json:"total"`
	Returned   int    `json:"returned"`
	Truncated  bool   `json:"truncated"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// DescribeSchemaInput defines parameters for the describe_schema tool.
type DescribeSchemaInput struct {
	Path      string `json:"path" validate:"required,xlsxpath" jsonschema_description:"Absolute or allowed path to an Excel workbook"`
	Sheet     string `json:"sheet" validate:"required" jsonschema_description:"Sheet name to analyze"`
	MinWidth  int    `json:"min_width,omitempty" jsonschema_description:"Minimum table width in columns (default 2)"`
	MinHeight int    `json:"min_height,omitempty" jsonschema_description:"Minimum table height in rows (default 2)"`
}

// TableSchema documents one detected table's attribute columns and data paths
// without materializing its records.
type TableSchema struct {
	Index      int        `json:"index"`
	Range      string     `json:"range"`
	Attributes []string   `json:"attributes"`
	DataPaths  [][]string `json:"data_paths"`
}

// DescribeSchemaOutput lists the inferred schema for every detected table.
type DescribeSchemaOutput struct {
	Path   string            `json:"path"`
	Sheet  string            `json:"sheet"`
	Tables []TableSchema     `json:"tables"`
	Log    []layout.LogEntry `json:"log,omitempty"`
}

const defaultPageSize = 200

// RegisterExtractionTools wires detect_tables, extract_records, and
// describe_schema: the three MCP tools fronting the layout pipeline.
// Grounded on internal/registry/insights.go's validate-run-translate-error
// pattern (teacher repo), adapted from sequential analytics tools to the
// extraction domain.
func RegisterExtractionTools(s *server.MCPServer, reg *Registry, mgr *workbooks.Manager) {
	dt := mcp.NewTool(
		"detect_tables",
		mcp.WithDescription("Detect rectangular table regions within a sheet using border-ruled flood fill over merge-resolved cells. Returns each candidate's bounding range in sheet scan order (top-to-bottom, left-to-right); does not extract records. Use this to discover table boundaries before calling extract_records or describe_schema. Errors include VALIDATION, INVALID_HANDLE, INVALID_SHEET, and OPEN_FAILED."),
		mcp.WithInputSchema[DetectTablesInput](),
		mcp.WithOutputSchema[DetectTablesOutput](),
	)
	s.AddTool(dt, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DetectTablesInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}

		sh, canonical, err := openSheet(ctx, mgr, in.Path, in.Sheet)
		if err != nil {
			return toolErrorFor(err), nil
		}

		opts := layout.DetectOptions{MinWidth: in.MinWidth, MinHeight: in.MinHeight}
		var warn []layout.LogEntry
		merges := layout.NewMergeResolver(sh.MergedRanges(), &warn)
		boxes := layout.DetectTables(sh, merges, opts)

		candidates := make([]TableCandidate, len(boxes))
		for i, b := range boxes {
			candidates[i] = TableCandidate{Index: i, Range: b.A1(), Rows: b.Height(), Cols: b.Width()}
		}

		out := DetectTablesOutput{Path: canonical, Sheet: in.Sheet, Candidates: candidates, Log: warn}
		summary := fmt.Sprintf("candidates=%d", len(candidates))
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(dt)

	ex := mcp.NewTool(
		"extract_records",
		mcp.WithDescription("Run the full layout-inference pipeline (merge resolution, table detection, raw extraction, header/body splitting, schema classification) over one detected table and return its assembled nested records, paginated. Pass table_index from detect_tables; omitting it selects the first detected table. Set columnar=true for a column-major view instead. Errors include VALIDATION, INVALID_HANDLE, INVALID_SHEET, CURSOR_INVALID, and EXTRACTION_FAILED."),
		mcp.WithInputSchema[ExtractRecordsInput](),
		mcp.WithOutputSchema[ExtractRecordsOutput](),
	)
	s.AddTool(ex, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ExtractRecordsInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}

		sheetName := strings.TrimSpace(in.Sheet)
		tableIndex := in.TableIndex
		pageSize := in.PageSize
		if pageSize <= 0 {
			pageSize = defaultPageSize
		}
		var startOffset int
		var parsedCur *pagination.Cursor

		cursor := strings.TrimSpace(in.Cursor)
		if cursor != "" {
			pc, derr := pagination.DecodeCursor(cursor)
			if derr != nil {
				return mcperr.New(mcperr.CursorInvalid, "failed to decode cursor; reopen workbook and restart pagination"), nil
			}
			sheetName = pc.S
			tableIndex = pc.Tbl
			startOffset = pc.Off
			if pc.Ps > 0 {
				pageSize = pc.Ps
			}
			parsedCur = pc
		} else if sheetName == "" {
			return mcperr.New(mcperr.Validation, "sheet is required (or supply cursor)"), nil
		}

		sh, canonical, id, err := openSheetWithID(ctx, mgr, in.Path, sheetName)
		if err != nil {
			return toolErrorFor(err), nil
		}
		if parsedCur != nil && parsedCur.Wid != id {
			return mcperr.New(mcperr.CursorInvalid, "cursor handle does not match the current workbook session"), nil
		}

		opts := layout.Options{
			MinWidth:        in.MinWidth,
			MinHeight:       in.MinHeight,
			BorderThreshold: in.BorderThreshold,
		}
		if opts.BorderThreshold == 0 {
			opts.BorderThreshold = layout.DefaultBorderThreshold
		}
		if opts.MinWidth <= 0 {
			opts.MinWidth = 2
		}
		if opts.MinHeight <= 0 {
			opts.MinHeight = 2
		}
		opts.MaxConcurrentTables = 4

		result := layout.Extract(ctx, sh, opts)
		boxes := layout.DetectTables(sh, layout.NewMergeResolver(sh.MergedRanges(), nil), layout.DetectOptions{MinWidth: opts.MinWidth, MinHeight: opts.MinHeight})
		if tableIndex < 0 || tableIndex >= len(boxes) {
			return mcperr.Wrapf(mcperr.ExtractionFailed, "table_index %d out of range; %d tables detected", tableIndex, len(boxes)), nil
		}
		tablePos := -1
		for i := range result.Tables {
			if result.Tables[i].Box == boxes[tableIndex] {
				tablePos = i
				break
			}
		}
		if tablePos < 0 {
			return mcperr.Wrapf(mcperr.ExtractionFailed, "table_index %d was skipped: no header/body boundary met the border threshold", tableIndex), nil
		}
		table := result.Tables[tablePos]

		total := len(table.Records)
		if startOffset > total {
			startOffset = total
		}
		end := startOffset + pageSize
		if end > total {
			end = total
		}
		page := table.Records[startOffset:end]

		out := ExtractRecordsOutput{
			Path:       canonical,
			Sheet:      sheetName,
			TableIndex: tableIndex,
			Range:      table.Box.A1(),
			Log:        result.Log,
		}
		if in.Columnar {
			out.Columns = layout.ToColumnMajor(page)
		} else {
			out.Records = page
		}
		out.Meta = PageMeta{Total: total, Returned: len(page), Truncated: end < total}
		if out.Meta.Truncated {
			next := pagination.Cursor{V: 1, Wid: id, S: sheetName, Tbl: tableIndex, U: pagination.UnitRecords, Off: end, Ps: pageSize}
			token, encErr := pagination.EncodeCursor(next)
			if encErr != nil {
				return mcperr.Wrapf(mcperr.CursorBuildFailed, "%v", encErr), nil
			}
			out.Meta.NextCursor = token
		}

		summary := fmt.Sprintf("table=%d range=%s returned=%d/%d truncated=%v", tableIndex, out.Range, out.Meta.Returned, out.Meta.Total, out.Meta.Truncated)
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(ex)

	ds := mcp.NewTool(
		"describe_schema",
		mcp.WithDescription("Run the layout-inference pipeline over every detected table in a sheet and return each table's attribute column labels and data column header paths, without materializing records. Use this to understand a sheet's nested schema shape before pulling full data via extract_records. Errors include VALIDATION, INVALID_HANDLE, INVALID_SHEET, and OPEN_FAILED."),
		mcp.WithInputSchema[DescribeSchemaInput](),
		mcp.WithOutputSchema[DescribeSchemaOutput](),
	)
	s.AddTool(ds, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in DescribeSchemaInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return mcperr.FromText(msg), nil
		}

		sh, canonical, err := openSheet(ctx, mgr, in.Path, in.Sheet)
		if err != nil {
			return toolErrorFor(err), nil
		}

		opts := layout.Options{MinWidth: in.MinWidth, MinHeight: in.MinHeight, BorderThreshold: layout.DefaultBorderThreshold, MaxConcurrentTables: 4}
		if opts.MinWidth <= 0 {
			opts.MinWidth = 2
		}
		if opts.MinHeight <= 0 {
			opts.MinHeight = 2
		}

		var mergeWarn []layout.LogEntry
		merges := layout.NewMergeResolver(sh.MergedRanges(), &mergeWarn)
		boxes := layout.DetectTables(sh, merges, layout.DetectOptions{MinWidth: opts.MinWidth, MinHeight: opts.MinHeight})

		var log []layout.LogEntry
		log = append(log, mergeWarn...)
		var tables []TableSchema
		for i, box := range boxes {
			raw := layout.ExtractRaw(sh, box)
			split, ok := layout.SplitHeaderBody(sh, merges, box, raw.Rows, raw.Cols, opts.BorderThreshold)
			if !ok {
				log = append(log, layout.LogEntry{Kind: layout.HeaderSplitNotFound, Fatal: true, Message: fmt.Sprintf("table %d: no header/body boundary found; skipped", i)})
				continue
			}
			headerBox := layout.TableBox{MinRow: box.MinRow, MaxRow: box.MinRow + split - 1, MinCol: box.MinCol, MaxCol: box.MaxCol}
			bodyBox := layout.TableBox{MinRow: box.MinRow + split, MaxRow: box.MaxRow, MinCol: box.MinCol, MaxCol: box.MaxCol}
			header := layout.ExtractRaw(sh, headerBox)
			body := layout.ExtractRaw(sh, bodyBox)

			attributeCount := layout.ClassifyColumns(header, body)
			var warn []layout.LogEntry
			dataPaths := layout.HeaderPaths(header, attributeCount, &warn, box)
			log = append(log, warn...)

			attrs := make([]string, attributeCount)
			for c := 0; c < attributeCount; c++ {
				attrs[c] = layout.AttributeLabel(header, c)
			}

			tables = append(tables, TableSchema{Index: i, Range: box.A1(), Attributes: attrs, DataPaths: dataPaths})
		}

		out := DescribeSchemaOutput{Path: canonical, Sheet: in.Sheet, Tables: tables, Log: log}
		summary := fmt.Sprintf("tables=%d", len(tables))
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(ds)
}

func openSheet(ctx context.Context, mgr *workbooks.Manager, path, sheetName string) (layout.Sheet, string, error) {
	sh, canonical, _, err := openSheetWithID(ctx, mgr, path, sheetName)
	return sh, canonical, err
}

func openSheetWithID(ctx context.Context, mgr *workbooks.Manager, path, sheetName string) (layout.Sheet, string, string, error) {
	id, canonical, err := mgr.GetOrOpenByPath(ctx, strings.TrimSpace(path))
	if err != nil {
		return nil, "", "", err
	}
	sh, err := mgr.Sheet(id, sheetName)
	if err != nil {
		return nil, "", "", err
	}
	return sh, canonical, id, nil
}

func toolErrorFor(err error) *mcp.CallToolResult {
	if errors.Is(err, workbooks.ErrHandleNotFound) {
		return mcperr.New(mcperr.InvalidHandle, "")
	}
	if mcperr.IsInvalidSheet(err) {
		return mcperr.New(mcperr.InvalidSheet, "")
	}
	return mcperr.Wrapf(mcperr.OpenFailed, "%v", err)
}
