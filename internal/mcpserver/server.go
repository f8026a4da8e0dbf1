// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Tickler tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tickler/internal/apperr"
	"github.com/starford/tickler/internal/noteservice"
	"github.com/starford/tickler/internal/review"
)

// Resource URIs.
const (
	SettingsURI = "tickler://review-settings"
	FormatURI   = "tickler://review-format"
)

// Server wraps the MCP server with Tickler tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	sched *review.Scheduler
}

// New creates a new MCP server with all Tickler tools registered.
func New(svc *noteservice.Service, sched *review.Scheduler, version string) *Server {
	s := &Server{svc: svc, sched: sched}

	s.mcp = server.NewMCPServer(
		"Tickler",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("schedule_review",
		mcp.WithDescription("Schedule a note, or a single line of it, for review on a date. "+
			"Adds a [[link]] under the review heading of that date's daily note. "+
			"Read "+FormatURI+" for accepted date phrases."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note to review (e.g. folder/note.md)")),
		mcp.WithString("date", mcp.Description("When to review, e.g. 'tomorrow', 'in two weeks', '2024-05-02'. Empty uses the default date")),
		mcp.WithNumber("line", mcp.Description("1-based line number to review as a block")),
		mcp.WithString("line_text", mcp.Description("Text of the line to review as a block, used when line is not set")),
	), s.scheduleReview)

	s.mcp.AddTool(mcp.NewTool("resolve_date",
		mcp.WithDescription("Resolve a date phrase to the daily note key it would use."),
		mcp.WithString("text", mcp.Description("Date phrase; empty resolves the default date")),
	), s.resolveDate)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List the block anchors (^id) of a note with the lines that own them."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.listBlocks)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note, such as the daily notes it is scheduled in."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddResource(
		mcp.NewResource(SettingsURI, "Review Settings",
			mcp.WithResourceDescription("Effective review heading, prefixes, default date and daily folder."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSettingsResource,
	)
	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Review Format",
			mcp.WithResourceDescription("How review entries are written and which date phrases are accepted."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

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

func toolError(err error) *mcp.CallToolResult {
	msg := apperr.UserMessage(err)
	if errors.Is(err, apperr.ErrInvalidLine) || errors.Is(err, apperr.ErrNotFound) {
		msg = err.Error()
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) scheduleReview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	line := req.GetInt("line", 0)
	if line < 0 {
		return mcp.NewToolResultError("line must be positive"), nil
	}

	res, err := s.sched.Schedule(ctx, review.Request{
		SourcePath: path,
		DateText:   req.GetString("date", ""),
		Line:       line,
		LineText:   req.GetString("line_text", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\ndaily note: %s\nentry: %s", res.Message, res.DailyNotePath, res.Entry)), nil
}

func (s *Server) resolveDate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := s.sched.Resolve(req.GetString("text", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(target)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.svc.Read(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := strings.Trim(req.GetString("folder", ""), "/")

	metas, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		if folder == "" || strings.HasPrefix(m.Path, folder+"/") {
			paths = append(paths, m.Path)
		}
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) listBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note.Blocks)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

type settingsView struct {
	Heading     string `json:"heading"`
	LinePrefix  string `json:"line_prefix"`
	BlockPrefix string `json:"block_prefix"`
	DefaultDate string `json:"default_date"`
	DailyFolder string `json:"daily_folder"`
}

func (s *Server) readSettingsResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st := s.sched.Settings()
	out, err := json.MarshalIndent(settingsView{
		Heading:     st.Heading,
		LinePrefix:  st.LinePrefix,
		BlockPrefix: st.BlockPrefix,
		DefaultDate: st.DefaultDate,
		DailyFolder: st.DailyFolder,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SettingsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     ReviewFormatGuide,
		},
	}, nil
}
