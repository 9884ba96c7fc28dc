package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxLoggedPayload bounds logged params and results; get_transcript can return whole transcripts.
const maxLoggedPayload = 2048

// trafficLoggingMiddleware logs every MCP exchange at debug level. Failed
// methods and tool results flagged as errors are logged at warn level
// regardless, without their payloads.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil {
				return next(ctx, method, req)
			}
			debug := logger.Enabled(ctx, slog.LevelDebug)
			attrs := []any{"direction", direction, "method", method, "session_id", safeSessionID(req)}

			if debug {
				logger.Debug("mcp traffic", append(attrs, "stage", "request", "params", formatPayload(safeParams(req)))...)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			attrs = append(attrs, "elapsed", time.Since(start))

			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}
			switch {
			case err != nil:
				logger.Warn("mcp method failed", append(attrs, "error", err)...)
			case toolFailed(result):
				logger.Warn("mcp tool returned an error", attrs...)
			case debug:
				logger.Debug("mcp traffic", append(attrs, "stage", "response", "result", formatPayload(result))...)
			}
			return result, err
		}
	}
}

func toolFailed(result sdkmcp.Result) bool {
	res, ok := result.(*sdkmcp.CallToolResult)
	return ok && res != nil && res.IsError
}

func safeSessionID(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	defer func() { recover() }()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) any {
	if req == nil {
		return nil
	}
	defer func() { recover() }()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	if len(data) > maxLoggedPayload {
		return string(data[:maxLoggedPayload]) + "...(truncated)"
	}
	return string(data)
}
