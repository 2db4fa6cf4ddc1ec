// Package mcptools exposes the analyzers and domain reports as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/analytics"
	"beebi/backend/internal/report"
)

const serverName = "beebi-analytics"

// NewServer registers one tool per analyzer and one report tool per domain.
func NewServer(engine *analytics.Engine, version string, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))
	h := &handlers{engine: engine, logger: logger}

	for _, name := range analytics.Names() {
		domain, _ := analytics.DomainOf(name)
		s.AddTool(analyzerTool(name, domain), h.analyzer(name))
	}
	for _, raw := range report.Domains() {
		domain, _ := report.ParseDomain(raw)
		s.AddTool(reportTool(raw), h.report(domain))
	}
	return s
}

func commonOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("days", mcp.Description("Trailing window in days, anchored at the latest record. Omit to analyze all loaded history.")),
		mcp.WithString("subject_id", mcp.Description("Subject to analyze. Defaults to the configured subject.")),
	}
}

func analyzerTool(name string, domain activity.Type) mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("Run the %s analyzer over %s records and return its metric report as JSON.", name, strings.ToLower(string(domain)))),
	}, commonOptions()...)
	if domain == activity.Diaper {
		opts = append(opts,
			mcp.WithBoolean("by_subject", mcp.Description("Break frequency and interval results down per subject.")),
			mcp.WithNumber("bins", mcp.Description("Number of equal slices of the day for diaper_timing.")),
			mcp.WithNumber("max_interval_hours", mcp.Description("Gap in hours above which diaper_alert raises a long_interval alert.")),
			mcp.WithNumber("big_poo_threshold", mcp.Description("Minimum run of consecutive big poos that diaper_alert reports.")),
		)
	}
	return mcp.NewTool(name, opts...)
}

func reportTool(domain string) mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("Run every %s analyzer and return the combined report with a formatted text summary.", domain)),
	}, commonOptions()...)
	return mcp.NewTool(domain+"_report", opts...)
}

type handlers struct {
	engine *analytics.Engine
	logger *slog.Logger
}

func (h *handlers) analyzer(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := queryFrom(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, _ := h.engine.Run(ctx, name, q)
		h.logger.Debug("mcp analyzer call", "analyzer", name, "status", result.Status)
		return jsonResult(result)
	}
}

func (h *handlers) report(domain activity.Type) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := queryFrom(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := report.Build(ctx, h.engine, domain, q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(result)
	}
}

func queryFrom(request mcp.CallToolRequest) (analytics.Query, error) {
	args := request.GetArguments()
	q := analytics.Query{
		SubjectID:        strings.TrimSpace(request.GetString("subject_id", "")),
		BySubject:        request.GetBool("by_subject", false),
		Bins:             request.GetInt("bins", 0),
		MaxIntervalHours: request.GetFloat("max_interval_hours", 0),
		BigPooThreshold:  request.GetInt("big_poo_threshold", 0),
	}
	if _, ok := args["days"]; ok {
		days := request.GetInt("days", -1)
		if days < 0 {
			return analytics.Query{}, fmt.Errorf("days must be a non-negative integer")
		}
		q.Days = &days
	}
	return q, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(encoded)), nil
}
