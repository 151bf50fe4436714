// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Rollcall attendance tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jkleiven/rollcall/internal/index"
	"github.com/jkleiven/rollcall/internal/models"
	"github.com/jkleiven/rollcall/internal/recon"
)

// Server wraps the MCP server with Rollcall tools.
type Server struct {
	mcp    *server.MCPServer
	db     *index.DB
	runner *recon.Runner
}

// New creates a new MCP server with all Rollcall tools registered.
func New(db *index.DB, runner *recon.Runner) *Server {
	s := &Server{db: db, runner: runner}

	s.mcp = server.NewMCPServer(
		"Rollcall",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_attendance",
		mcp.WithDescription("List attendance records, newest first. Both filters are optional."),
		mcp.WithString("identity", mcp.Description("Filter by identity name")),
		mcp.WithString("date", mcp.Description("Filter by date (YYYY-MM-DD)")),
	), s.listAttendance)

	s.mcp.AddTool(mcp.NewTool("daily_summary",
		mcp.WithDescription("One attendance row per identity for a given day, with worked time."),
		mcp.WithString("date", mcp.Description("Date (YYYY-MM-DD); defaults to today")),
	), s.dailySummary)

	s.mcp.AddTool(mcp.NewTool("record_event",
		mcp.WithDescription("Submit an identity event through the reconciliation engine, exactly as "+
			"a camera recognition would. Returns the outcome (check-in, check-out, suppressed, ...)."),
		mcp.WithString("identity", mcp.Required(), mcp.Description("Identity name")),
	), s.recordEvent)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listAttendance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := index.Filter{}
	if v, err := req.RequireString("identity"); err == nil {
		f.Identity = v
	}
	if v, err := req.RequireString("date"); err == nil {
		f.Date = v
	}

	recs, total, err := s.db.ListRecords(f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"records": recs, "total": total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) dailySummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date := time.Now().Format(models.DateLayout)
	if v, err := req.RequireString("date"); err == nil && v != "" {
		date = v
	}

	recs, err := s.db.DailySummary(date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type row struct {
		models.AttendanceRecord
		WorkTime string `json:"work_time"`
	}
	rows := make([]row, len(recs))
	for i, rec := range recs {
		rows[i] = row{AttendanceRecord: rec, WorkTime: rec.FormatWorkTime()}
	}
	out, _ := json.MarshalIndent(map[string]any{"date": date, "records": rows}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) recordEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identity, err := req.RequireString("identity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.runner.Do(ctx, models.IdentityEvent{Identity: identity})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch res.Outcome {
	case recon.OutcomeCheckInAccepted:
		return mcp.NewToolResultText(fmt.Sprintf("checked in: %s at %s", identity, res.Record.CheckIn)), nil
	case recon.OutcomeCheckOutAccepted:
		return mcp.NewToolResultText(fmt.Sprintf("checked out: %s at %s", identity, res.Record.CheckOut)), nil
	case recon.OutcomeCheckOutRejectedGap:
		return mcp.NewToolResultText(fmt.Sprintf("check-out rejected for %s: minimum gap not met, %s remaining", identity, res.Shortfall)), nil
	case recon.OutcomeAlreadyClosed:
		return mcp.NewToolResultText(fmt.Sprintf("no change: %s already completed today's cycle", identity)), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("suppressed: %s is within the cooldown window", identity)), nil
	}
}
