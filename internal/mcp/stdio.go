// Package mcp exposes pagination as Model Context Protocol tools over stdio
// (newline-delimited JSON-RPC).
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/pagination"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
)

const protocolVersion = "2024-11-05"

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Pager serves one page of a log class
type Pager interface {
	Paginate(ctx context.Context, req pagination.Request) (*pagination.Page, error)
}

// MCPProtocol implements Model Context Protocol over stdio (JSON-RPC)
type MCPProtocol struct {
	registry *registry.Registry
	pager    Pager
	version  string
	in       *bufio.Scanner
	out      io.Writer
}

// MCPRequest represents a JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents a JSON-RPC response
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResponse represents MCP initialize response
type InitializeResponse struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

// Tool represents an MCP tool definition
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolCallRequest represents tools/call request
type ToolCallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// NewMCPProtocol creates a protocol handler reading requests from in and
// writing responses to out
func NewMCPProtocol(reg *registry.Registry, pager Pager, version string, in io.Reader, out io.Writer) *MCPProtocol {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &MCPProtocol{
		registry: reg,
		pager:    pager,
		version:  version,
		in:       scanner,
		out:      out,
	}
}

// Start serves requests until the input ends
func (m *MCPProtocol) Start(ctx context.Context) error {
	log.Info().Msg("MCP stdio protocol server starting...")

	for m.in.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := m.in.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Error().Err(err).Msg("Failed to parse JSON-RPC request")
			if err := m.sendError(nil, codeParseError, "Parse error", err.Error()); err != nil {
				return err
			}
			continue
		}

		if err := m.handleRequest(ctx, &req); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}

	if err := m.in.Err(); err != nil {
		return fmt.Errorf("stdin scanner error: %w", err)
	}
	return nil
}

func (m *MCPProtocol) handleRequest(ctx context.Context, req *MCPRequest) error {
	switch req.Method {
	case "initialize":
		return m.reply(req.ID, InitializeResponse{
			ProtocolVersion: protocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      serverInfo{Name: "hostlog-checker", Version: m.version},
		})
	case "notifications/initialized", "initialized":
		// notifications get no response
		return nil
	case "tools/list":
		return m.reply(req.ID, map[string]any{"tools": m.tools()})
	case "tools/call":
		return m.handleToolCall(ctx, req)
	default:
		if req.ID == nil {
			return nil
		}
		return m.sendError(req.ID, codeMethodNotFound, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (m *MCPProtocol) tools() []Tool {
	return []Tool{
		{
			Name:        "hostlog_list_classes",
			Description: "List the log classes (sshd.events, pkgmanager.events, ...) and the event types each one produces.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name: "hostlog_get_events",
			Description: "Get one page of classified events of a log class. mode='initial' starts at the " +
				"beginning of the log. The result carries a cursor: pass it back with mode='older' for the " +
				"next page or mode='previous' to walk back from the cursor.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"event_name":  map[string]any{"type": "string", "enum": m.registry.Names()},
					"mode":        map[string]any{"type": "string", "enum": []string{"initial", "older", "previous"}},
					"cursor":      map[string]any{"type": "string"},
					"limit":       map[string]any{"type": "integer", "minimum": 1},
					"query":       map[string]any{"type": "string"},
					"event_types": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"event_name"},
			},
		},
	}
}

func (m *MCPProtocol) handleToolCall(ctx context.Context, req *MCPRequest) error {
	var call ToolCallRequest
	if err := json.Unmarshal(req.Params, &call); err != nil {
		return m.sendError(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	var (
		result any
		err    error
	)
	switch call.Name {
	case "hostlog_list_classes":
		result = m.listClasses()
	case "hostlog_get_events":
		result, err = m.getEvents(ctx, call.Arguments)
	default:
		return m.sendError(req.ID, codeMethodNotFound, "Method not found", fmt.Sprintf("Unknown tool: %s", call.Name))
	}
	if err != nil {
		if pagination.IsClientError(err) {
			return m.sendError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		log.Error().Err(err).Str("tool", call.Name).Msg("Tool call failed")
		return m.sendError(req.ID, codeInternalError, "Internal error", err.Error())
	}

	text, err := json.Marshal(result)
	if err != nil {
		return m.sendError(req.ID, codeInternalError, "Internal error", err.Error())
	}
	return m.reply(req.ID, map[string]any{
		"content": []map[string]any{{"type": "text", "text": string(text)}},
	})
}

type classSummary struct {
	Name       string   `json:"name"`
	Backend    string   `json:"backend"`
	EventTypes []string `json:"event_types"`
}

func (m *MCPProtocol) listClasses() []classSummary {
	classes := m.registry.All()
	out := make([]classSummary, 0, len(classes))
	for _, c := range classes {
		out = append(out, classSummary{Name: c.Name, Backend: c.Backend.String(), EventTypes: c.Table.EventNames()})
	}
	return out
}

type getEventsArgs struct {
	EventName  string   `json:"event_name"`
	Mode       string   `json:"mode"`
	Cursor     string   `json:"cursor"`
	Limit      int      `json:"limit"`
	Query      string   `json:"query"`
	EventTypes []string `json:"event_types"`
}

type eventsResult struct {
	Cursor *string             `json:"cursor"`
	Events []domain.TypedEvent `json:"events"`
}

func (m *MCPProtocol) getEvents(ctx context.Context, raw json.RawMessage) (*eventsResult, error) {
	args := getEventsArgs{Limit: 50}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		}
	}
	mode, err := pagination.ParseMode(args.Mode)
	if err != nil {
		return nil, err
	}
	req := pagination.Request{
		LogClass:   args.EventName,
		Mode:       mode,
		Limit:      args.Limit,
		Keyword:    args.Query,
		EventTypes: args.EventTypes,
	}
	if args.Cursor != "" {
		if req.Cursor, err = domain.ParseCursor(args.Cursor); err != nil {
			return nil, err
		}
	}

	page, err := m.pager.Paginate(ctx, req)
	if err != nil {
		return nil, err
	}
	res := &eventsResult{Events: page.Events}
	if res.Events == nil {
		res.Events = []domain.TypedEvent{}
	}
	if page.Cursor != nil {
		token, err := domain.RenderCursor(page.Cursor)
		if err != nil {
			return nil, err
		}
		res.Cursor = &token
	}
	return res, nil
}

func (m *MCPProtocol) reply(id any, result any) error {
	return m.writeJSON(MCPResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (m *MCPProtocol) sendError(id any, code int, message string, data any) error {
	return m.writeJSON(MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}

// writeJSON writes one JSON object per line
func (m *MCPProtocol) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = m.out.Write(data)
	return err
}
