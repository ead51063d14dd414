package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/long1234hcc/ctc-east-extract/internal/registry"
	"github.com/long1234hcc/ctc-east-extract/internal/runtime"
	"github.com/long1234hcc/ctc-east-extract/internal/security"
	"github.com/long1234hcc/ctc-east-extract/internal/telemetry"
	"github.com/long1234hcc/ctc-east-extract/internal/workbooks"
	"github.com/long1234hcc/ctc-east-extract/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		useStdio        bool
		shutdownTimeout time.Duration
	)

	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	flag.Parse()

	logger := zlog.With().Str("service", "extract-server").Logger()
	ctx := logger.WithContext(context.Background())

	secMgr, err := security.NewManagerFromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("security: failed to initialize manager from env")
		fmt.Fprintln(os.Stderr, "invalid security configuration; set EXTRACT_ALLOWED_DIRS")
		os.Exit(1)
	}
	if err := secMgr.ValidateConfig(); err != nil {
		logger.Error().Err(err).Msg("security: invalid allow-list configuration")
		fmt.Fprintln(os.Stderr, "no allowed directories configured; set EXTRACT_ALLOWED_DIRS")
		os.Exit(1)
	}
	logger.Info().Strs("allowed_dirs", secMgr.AllowedDirectories()).Msg("security allow-list configured")

	limits := runtime.NewLimits(0, 0)
	runtimeController := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(runtimeController)

	wbMgr := workbooks.NewManager(0, 0, runtimeController, secMgr, nil)
	wbMgr.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := wbMgr.Close(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("workbooks: error during shutdown")
		}
	}()

	toolRegistry := registry.New()

	hooks := telemetry.NewHooks(logger)

	srv := server.NewMCPServer(
		"Structured Extraction Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithRecovery(),
		server.WithHooks(buildHooks(hooks)),
		server.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
	)

	registry.RegisterExtractionTools(srv, toolRegistry, wbMgr)

	logger.Info().
		Ctx(ctx).
		Str("version", version.Version()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_workbooks", limits.MaxOpenWorkbooks).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if useStdio {
		hooks.OnServerStart()
		defer hooks.OnServerStop()
		if err := server.ServeStdio(srv); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintln(os.Stderr, "no transport selected; use --stdio to run over stdio")
	os.Exit(2)
}

// buildHooks bridges mcp-go's server.Hooks callbacks to internal/telemetry's
// lifecycle logging. Grounded on cmd/server/main.go's buildHooks, routed
// through telemetry.Hooks instead of ad hoc zerolog calls.
func buildHooks(t *telemetry.Hooks) *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		t.OnSessionStart(session.SessionID())
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		t.OnSessionEnd(session.SessionID())
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		var callErr error
		if res != nil && res.IsError {
			callErr = fmt.Errorf("tool call returned an error result")
		}
		t.OnToolCall("", req.Params.Name, 0, callErr)
	})

	hooks.AddAfterReadResource(func(ctx context.Context, id any, req *mcp.ReadResourceRequest, res *mcp.ReadResourceResult) {
		t.OnResourceRead("", req.Params.URI, 0, nil)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		t.OnToolCall("", string(method), 0, err)
	})

	return hooks
}
