package config

import "time"

// Default runtime limits and guardrails for the spreadsheet extraction
// server. These values are conservative and can be overridden by future
// configuration mechanisms (env, CLI, or files). They are referenced by
// internal/runtime and internal/workbooks.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenWorkbooks      = 4
	DefaultMaxConcurrentTables   = 4

	// Payload and row limits
	DefaultMaxPayloadBytes = 128 * 1024 // 128KB
	DefaultMaxCellsPerOp   = 10_000
	DefaultPreviewRowLimit = 10 // First 10 records by default
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second

	// Workbook handle lifecycle
	DefaultWorkbookIdleTTL       = 10 * time.Minute
	DefaultWorkbookCleanupPeriod = time.Minute
)
