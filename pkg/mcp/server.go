// Copyright 2026 © The adminqa Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes the query façade as Model Context Protocol tools and
// provides a small client for them.
package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jllopis/adminqa/pkg/access"
	"github.com/jllopis/adminqa/pkg/dataset"
	"github.com/jllopis/adminqa/pkg/errors"
	"github.com/jllopis/adminqa/pkg/query"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolListRoles   = "list_roles"
	ToolViewScope   = "view_scope"
	ToolAskQuestion = "ask_question"
)

// Asker is the part of the query service the tools need.
type Asker interface {
	Ask(ctx context.Context, req query.Request) (*query.Answer, error)
	View(role access.Role) *dataset.Dataset
}

// Server wraps the mcp-go server with the adminqa tools registered.
type Server struct {
	mcpServer *server.MCPServer
	asker     Asker
}

// NewServer creates a new MCP server backed by asker.
func NewServer(name, version string, asker Asker) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
		asker:     asker,
	}
	s.register()
	return s
}

func (s *Server) register() {
	roles := make([]string, 0, len(access.Roles()))
	for _, r := range access.Roles() {
		roles = append(roles, string(r))
	}

	s.mcpServer.AddTool(mcp.NewTool(ToolListRoles,
		mcp.WithDescription("List the administrator roles, one per line, default first."),
	), s.listRoles)

	s.mcpServer.AddTool(mcp.NewTool(ToolViewScope,
		mcp.WithDescription("Return the records a role may see, as CSV."),
		mcp.WithString("role", mcp.Required(), mcp.Enum(roles...), mcp.Description("Administrator role")),
	), s.viewScope)

	s.mcpServer.AddTool(mcp.NewTool(ToolAskQuestion,
		mcp.WithDescription("Answer a question using only the records the role may see."),
		mcp.WithString("role", mcp.Required(), mcp.Enum(roles...), mcp.Description("Administrator role")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural-language question")),
		mcp.WithString("api_key", mcp.Required(), mcp.Description("Credential for the reasoning service")),
	), s.askQuestion)
}

func (s *Server) listRoles(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lines := make([]string, 0, len(access.Roles()))
	for _, r := range access.Roles() {
		lines = append(lines, string(r))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) viewScope(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	role, ok := access.ParseRole(args["role"])
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown role %q", args["role"])), nil
	}
	view := s.asker.View(role)
	if view.Empty() {
		return mcp.NewToolResultError(query.MsgEmptyScope), nil
	}
	return mcp.NewToolResultText(view.CSV()), nil
}

func (s *Server) askQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	ans, err := s.asker.Ask(ctx, query.Request{
		Credential: args["api_key"],
		Role:       access.Role(args["role"]),
		Question:   args["question"],
	})
	if err != nil {
		typed := errors.As(err)
		if typed.IsValidation() {
			return mcp.NewToolResultError(typed.Message), nil
		}
		return mcp.NewToolResultError(typed.Detail() + "\n" + query.MsgAgentHint), nil
	}
	return mcp.NewToolResultText(ans.Text), nil
}

// arguments flattens string arguments; other types are ignored.
func arguments(request mcp.CallToolRequest) map[string]string {
	raw, _ := request.Params.Arguments.(map[string]interface{})
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// ServeStdio starts the server on Stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// HTTPHandler serves the tools over streamable HTTP.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}
