// Package mcp exposes the engine over the Model Context Protocol, so any
// MCP-speaking client (an IDE, an agent) can converse with a loaded bot
// and inspect its session state as tools.
package mcp

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hanspeak/kivescript"
)

// getArgs extracts arguments from request as map[string]any
func getArgs(request mcp.CallToolRequest) map[string]any {
	if args, ok := request.Params.Arguments.(map[string]any); ok {
		return args
	}
	return make(map[string]any)
}

// Server wraps an MCP stdio server around an engine.
type Server struct {
	mcpServer *server.MCPServer
	engine    *kivescript.Engine
}

// NewServer creates an MCP server exposing engine's conversation tools.
func NewServer(engine *kivescript.Engine) *Server {
	s := &Server{engine: engine}

	mcpServer := server.NewMCPServer(
		"kivescript",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

// registerTools adds all MCP tools
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	replyTool := mcp.NewTool("reply",
		mcp.WithDescription("Send a message to the bot and get its reply"),
		mcp.WithString("user",
			mcp.Required(),
			mcp.Description("Session username; each user gets independent variables, topic, and history"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The user's message"),
		),
	)
	mcpServer.AddTool(replyTool, s.handleReply)

	setVarTool := mcp.NewTool("set_uservar",
		mcp.WithDescription("Set a session variable for a user (e.g. name, topic)"),
		mcp.WithString("user", mcp.Required(), mcp.Description("Session username")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Variable name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Variable value; empty clears it")),
	)
	mcpServer.AddTool(setVarTool, s.handleSetUservar)

	getVarsTool := mcp.NewTool("get_uservars",
		mcp.WithDescription("Read every session variable currently set for a user"),
		mcp.WithString("user", mcp.Required(), mcp.Description("Session username")),
	)
	mcpServer.AddTool(getVarsTool, s.handleGetUservars)

	lastMatchTool := mcp.NewTool("last_match",
		mcp.WithDescription("Return the trigger pattern that matched the user's last message"),
		mcp.WithString("user", mcp.Required(), mcp.Description("Session username")),
	)
	mcpServer.AddTool(lastMatchTool, s.handleLastMatch)

	clearTool := mcp.NewTool("clear_uservars",
		mcp.WithDescription("Reset a user's session variables and history"),
		mcp.WithString("user", mcp.Required(), mcp.Description("Session username")),
	)
	mcpServer.AddTool(clearTool, s.handleClear)
}

func (s *Server) handleReply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	user, _ := args["user"].(string)
	message, _ := args["message"].(string)
	if user == "" || message == "" {
		return mcp.NewToolResultError("user and message parameters are required"), nil
	}

	reply, err := s.engine.Reply(ctx, user, message)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reply failed: %v", err)), nil
	}
	return mcp.NewToolResultText(reply), nil
}

func (s *Server) handleSetUservar(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	user, _ := args["user"].(string)
	name, _ := args["name"].(string)
	value, _ := args["value"].(string)
	if user == "" || name == "" {
		return mcp.NewToolResultError("user and name parameters are required"), nil
	}

	s.engine.SetUservar(user, name, value)
	return mcp.NewToolResultText(fmt.Sprintf("set %s for %s", name, user)), nil
}

func (s *Server) handleGetUservars(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	user, _ := args["user"].(string)
	if user == "" {
		return mcp.NewToolResultError("user parameter is required"), nil
	}

	vars := s.engine.GetUservars(user)
	if len(vars) == 0 {
		return mcp.NewToolResultText("(no variables set)"), nil
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s = %s\n", name, vars[name])
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleLastMatch(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	user, _ := args["user"].(string)
	if user == "" {
		return mcp.NewToolResultError("user parameter is required"), nil
	}

	match := s.engine.LastMatch(user)
	if match == "" {
		return mcp.NewToolResultText("(no match recorded)"), nil
	}
	return mcp.NewToolResultText(match), nil
}

func (s *Server) handleClear(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	user, _ := args["user"].(string)
	if user == "" {
		return mcp.NewToolResultError("user parameter is required"), nil
	}

	s.engine.ClearUservars(user)
	return mcp.NewToolResultText(fmt.Sprintf("cleared session for %s", user)), nil
}

// Run serves MCP over stdio until the client disconnects.
func (s *Server) Run(_ context.Context) error {
	log.Println("Starting MCP server (stdio mode)...")
	return server.ServeStdio(s.mcpServer)
}
