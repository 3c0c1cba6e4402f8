// Package mcp implements the Model Context Protocol server for Strand
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/strandmem/strand/internal/core"
	"github.com/strandmem/strand/pkg/types"
)

// Server implements the MCP protocol over stdio
type Server struct {
	engine *core.Engine
	config *types.Config
	reader *bufio.Reader
	writer io.Writer
}

// NewServer creates a new MCP server
func NewServer(engine *core.Engine, cfg *types.Config) *Server {
	return &Server{
		engine: engine,
		config: cfg,
		reader: bufio.NewReader(os.Stdin),
		writer: os.Stdout,
	}
}

// JSON-RPC structures
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MCP-specific structures
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ServerCapabilities struct {
	Tools map[string]interface{} `json:"tools,omitempty"`
}

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run starts the MCP server
func (s *Server) Run() error {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.sendError(nil, -32700, "Parse error")
			continue
		}

		s.handleRequest(&req)
	}
}

func (s *Server) handleRequest(req *Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "tools/list":
		s.handleToolsList(req)
	case "tools/call":
		s.handleToolsCall(req)
	case "notifications/initialized":
		// Client acknowledged initialization, no response needed
	default:
		s.sendError(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *Request) {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: ServerCapabilities{
			Tools: map[string]interface{}{},
		},
		ServerInfo: ServerInfo{
			Name:    "strand",
			Version: "0.1.0",
		},
	}
	s.sendResult(req.ID, result)
}

var roleEnum = func() []string {
	out := make([]string, len(types.AllRoles))
	for i, r := range types.AllRoles {
		out[i] = string(r)
	}
	return out
}()

func (s *Server) handleToolsList(req *Request) {
	tools := []Tool{
		{
			Name:        "strand_remember",
			Description: "Store a memory for an agent role. Use this to save decisions, procedures, or facts that future agents of this role should know.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"role": map[string]interface{}{
						"type":        "string",
						"enum":        roleEnum,
						"description": "Agent role that owns the memory",
					},
					"content": map[string]interface{}{
						"type":        "string",
						"description": "The content to store",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"description": "Task-domain category (e.g., 'system_design')",
					},
					"memory_type": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"declarative", "procedural", "anti_pattern"},
						"description": "Kind of knowledge",
						"default":     "declarative",
					},
					"tags": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Tags for categorization",
					},
					"confidence": map[string]interface{}{
						"type":        "number",
						"description": "Confidence in [0,1]",
						"default":     0.7,
					},
				},
				"required": []string{"role", "content", "category"},
			},
		},
		{
			Name:        "strand_recall",
			Description: "Retrieve memories for an agent role, ranked by quality and recency. Use this before making decisions to learn from past sessions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"role": map[string]interface{}{
						"type":        "string",
						"enum":        roleEnum,
						"description": "Agent role to recall for",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"description": "Filter by category",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of results",
						"default":     5,
					},
					"include_outdated": map[string]interface{}{
						"type":        "boolean",
						"description": "Include superseded memories",
						"default":     false,
					},
				},
				"required": []string{"role"},
			},
		},
		{
			Name:        "strand_learn_anti_pattern",
			Description: "Store an error with its solution as an anti-pattern memory. This is a specialized version of strand_remember for learning from mistakes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"role": map[string]interface{}{
						"type":        "string",
						"enum":        roleEnum,
						"description": "Agent role that hit the error",
					},
					"error": map[string]interface{}{
						"type":        "string",
						"description": "The error that occurred",
					},
					"solution": map[string]interface{}{
						"type":        "string",
						"description": "How to fix or avoid this error",
					},
					"category": map[string]interface{}{
						"type":        "string",
						"description": "Task-domain category",
						"default":     "general",
					},
				},
				"required": []string{"role", "error", "solution"},
			},
		},
		{
			Name:        "strand_consolidate",
			Description: "Run the end-of-session consolidation pass: finalize supersession flags, promote proven memories to global scope, expire stale ones.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}

	s.sendResult(req.ID, ToolsListResult{Tools: tools})
}

func (s *Server) handleToolsCall(req *Request) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, -32602, "Invalid params")
		return
	}

	ctx := context.Background()
	var result string
	var isError bool

	switch params.Name {
	case "strand_remember":
		result, isError = s.toolRemember(ctx, params.Arguments)
	case "strand_recall":
		result, isError = s.toolRecall(ctx, params.Arguments)
	case "strand_learn_anti_pattern":
		result, isError = s.toolLearnAntiPattern(ctx, params.Arguments)
	case "strand_consolidate":
		result, isError = s.toolConsolidate(ctx)
	default:
		s.sendError(req.ID, -32601, fmt.Sprintf("Unknown tool: %s", params.Name))
		return
	}

	s.sendResult(req.ID, ToolResult{
		Content: []ContentBlock{{Type: "text", Text: result}},
		IsError: isError,
	})
}

func (s *Server) manager(args map[string]interface{}) (*core.Manager, string, bool) {
	roleStr, _ := args["role"].(string)
	role, err := types.ParseRole(roleStr)
	if err != nil {
		return nil, fmt.Sprintf("Error: %v", err), false
	}
	return s.engine.Manager(role, s.config.DefaultProject), "", true
}

func (s *Server) toolRemember(ctx context.Context, args map[string]interface{}) (string, bool) {
	content, _ := args["content"].(string)
	category, _ := args["category"].(string)
	if content == "" || category == "" {
		return "Error: content and category are required", true
	}

	mgr, msg, ok := s.manager(args)
	if !ok {
		return msg, true
	}

	opts := types.RememberOptions{
		Category:   category,
		Type:       types.TypeDeclarative,
		Confidence: 0.7,
		Scope:      types.ScopeProject,
		Metadata:   types.Metadata{SourceTask: "mcp"},
	}
	if t, ok := args["memory_type"].(string); ok && t != "" {
		opts.Type = types.MemoryType(t)
	}
	if c, ok := args["confidence"].(float64); ok {
		opts.Confidence = c
	}
	if tags, ok := args["tags"].([]interface{}); ok {
		for _, tag := range tags {
			if t, ok := tag.(string); ok {
				opts.Tags = append(opts.Tags, t)
			}
		}
	}

	id, err := mgr.Remember(ctx, content, opts)
	if err != nil {
		return fmt.Sprintf("Error storing memory: %v", err), true
	}

	return fmt.Sprintf("Stored memory with ID: %s (owner: %s)", id, mgr.Role()), false
}

func (s *Server) toolRecall(ctx context.Context, args map[string]interface{}) (string, bool) {
	mgr, msg, ok := s.manager(args)
	if !ok {
		return msg, true
	}

	opts := types.RecallOptions{
		MinQuality:    s.config.MinQualityThreshold,
		IncludeGlobal: true,
		Limit:         5,
	}
	if c, ok := args["category"].(string); ok {
		opts.Category = c
	}
	if limit, ok := args["limit"].(float64); ok {
		opts.Limit = int(limit)
	}
	if outdated, ok := args["include_outdated"].(bool); ok {
		opts.IncludeOutdated = outdated
	}

	result, err := mgr.Recall(ctx, opts)
	if err != nil {
		return fmt.Sprintf("Error recalling: %v", err), true
	}

	if len(result.Memories) == 0 {
		return "No relevant memories found.", false
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d relevant memories (strategy: %s):\n\n", len(result.Memories), result.Strategy))

	for i, m := range result.Memories {
		sb.WriteString(fmt.Sprintf("[%d] %s (quality %.2f, confidence %.2f)\n",
			i+1, m.Type, m.Quality, m.Confidence))
		sb.WriteString(fmt.Sprintf("ID: %s\n", m.ID))
		sb.WriteString(fmt.Sprintf("Category: %s\n", m.Category))
		sb.WriteString(fmt.Sprintf("Content: %s\n\n", m.Content))
	}

	return sb.String(), false
}

func (s *Server) toolLearnAntiPattern(ctx context.Context, args map[string]interface{}) (string, bool) {
	errorMsg, _ := args["error"].(string)
	solution, _ := args["solution"].(string)
	if errorMsg == "" || solution == "" {
		return "Error: error and solution are required", true
	}

	mgr, msg, ok := s.manager(args)
	if !ok {
		return msg, true
	}

	category, _ := args["category"].(string)
	if category == "" {
		category = "general"
	}

	content := fmt.Sprintf("Error: %s Solution: %s", errorMsg, solution)
	id, err := mgr.Remember(ctx, content, types.RememberOptions{
		Category:   category,
		Type:       types.TypeAntiPattern,
		Confidence: 0.9,
		Scope:      types.ScopeProject,
		Tags:       []string{"error-solution"},
		Metadata:   types.Metadata{SourceTask: "mcp"},
	})
	if err != nil {
		return fmt.Sprintf("Error storing anti-pattern: %v", err), true
	}

	return fmt.Sprintf("Anti-pattern stored with ID: %s", id), false
}

func (s *Server) toolConsolidate(ctx context.Context) (string, bool) {
	report, err := s.engine.Consolidate(ctx)
	if err != nil {
		return fmt.Sprintf("Error consolidating: %v", err), true
	}
	return fmt.Sprintf("Consolidation complete: %d superseded flagged, %d promoted, %d expired",
		report.SupersededFlagged, report.Promoted, report.Expired), false
}

func (s *Server) sendResult(id interface{}, result interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	s.send(resp)
}

func (s *Server) sendError(id interface{}, code int, message string) {
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
	s.send(resp)
}

func (s *Server) send(v interface{}) {
	data, _ := json.Marshal(v)
	fmt.Fprintln(s.writer, string(data))
}
