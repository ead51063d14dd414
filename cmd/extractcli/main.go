package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/long1234hcc/ctc-east-extract/internal/layout"
	"github.com/long1234hcc/ctc-east-extract/internal/security"
	"github.com/long1234hcc/ctc-east-extract/internal/sheet"
	"github.com/long1234hcc/ctc-east-extract/pkg/version"
	"github.com/xuri/excelize/v2"
)

// main runs one synchronous extraction and prints the result as JSON.
// Grounded on cmd/server/main.go's bootstrap shape (security allow-list
// validation, zerolog logger) adapted from a long-running stdio server to a
// single-shot CLI invocation.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		path            string
		sheetName       string
		borderThreshold float64
		minWidth        int
		minHeight       int
		columnar        bool
		showVersion     bool
	)

	flag.StringVar(&path, "path", "", "Path to an Excel workbook (.xlsx, .xlsm, .xltx, .xltm)")
	flag.StringVar(&sheetName, "sheet", "", "Sheet name to extract")
	flag.Float64Var(&borderThreshold, "border-threshold", layout.DefaultBorderThreshold, "Ruled-fraction threshold in [0,1] for the header/body boundary")
	flag.IntVar(&minWidth, "min-width", 2, "Minimum detected table width in columns")
	flag.IntVar(&minHeight, "min-height", 2, "Minimum detected table height in rows")
	flag.BoolVar(&columnar, "columnar", false, "Emit a column-major view instead of one object per record")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	logger := zlog.With().Str("service", "extractcli").Logger()

	if showVersion {
		fmt.Println(version.Version())
		return
	}

	if path == "" || sheetName == "" {
		fmt.Fprintln(os.Stderr, "usage: extractcli --path <workbook.xlsx> --sheet <name> [--columnar] [--border-threshold 0.95]")
		os.Exit(2)
	}

	secMgr, err := security.NewManagerFromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("security: failed to initialize manager from env")
		fmt.Fprintln(os.Stderr, "invalid security configuration; set EXTRACT_ALLOWED_DIRS")
		os.Exit(1)
	}
	canonical := path
	if err := secMgr.ValidateConfig(); err == nil {
		canonical, err = secMgr.ValidateOpenPath(path)
		if err != nil {
			logger.Error().Err(err).Str("path", path).Msg("security: path rejected")
			fmt.Fprintf(os.Stderr, "path not allowed: %v\n", err)
			os.Exit(1)
		}
	}

	f, err := excelize.OpenFile(canonical)
	if err != nil {
		logger.Error().Err(err).Str("path", canonical).Msg("failed to open workbook")
		fmt.Fprintf(os.Stderr, "failed to open workbook: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = f.Close() }()

	sh, err := sheet.NewExcelizeSheet(f, sheetName)
	if err != nil {
		logger.Error().Err(err).Str("sheet", sheetName).Msg("failed to resolve sheet")
		fmt.Fprintf(os.Stderr, "failed to resolve sheet %q: %v\n", sheetName, err)
		os.Exit(1)
	}

	opts := layout.Options{
		MinWidth:            minWidth,
		MinHeight:           minHeight,
		BorderThreshold:     borderThreshold,
		MaxConcurrentTables: 4,
	}

	result := layout.Extract(context.Background(), sh, opts)

	logger.Info().
		Str("path", canonical).
		Str("sheet", sheetName).
		Int("tables", len(result.Tables)).
		Int("log_entries", len(result.Log)).
		Msg("extraction complete")

	var payload any
	if columnar {
		cols := make([]map[string][]any, len(result.Tables))
		for i, t := range result.Tables {
			cols[i] = layout.ToColumnMajor(t.Records)
		}
		payload = struct {
			Tables []map[string][]any `json:"tables"`
			Log    []layout.LogEntry  `json:"log,omitempty"`
		}{Tables: cols, Log: result.Log}
	} else {
		payload = result
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		logger.Error().Err(err).Msg("failed to encode result")
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}
}
