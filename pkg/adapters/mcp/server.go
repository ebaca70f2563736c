// Package mcp exposes the support agent as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/runner"
	"github.com/aretw0/switchboard/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	AskTool          = "ask_support"
	CapabilitiesURI  = "switchboard://capabilities"
	DefaultMCPUserID = "mcp"
)

// AskArgs are the arguments of the ask_support tool.
type AskArgs struct {
	Query  string `json:"query"`
	UserID string `json:"user_id,omitempty"`
}

// Server exposes a TurnHandler and the capabilities of a dispatcher as MCP tools.
type Server struct {
	turns      ports.TurnHandler
	dispatcher *capability.Dispatcher
	logger     *slog.Logger
	limits     runner.Limits
	mcpServer  *server.MCPServer
	tools      []string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLimits bounds the arguments of ask_support.
func WithLimits(l runner.Limits) Option {
	return func(s *Server) {
		s.limits = l
	}
}

// NewServer creates a new MCP Server instance.
// Every capability registered with dispatcher is published as a tool of the same name.
func NewServer(turns ports.TurnHandler, dispatcher *capability.Dispatcher, opts ...Option) *Server {
	s := &Server{
		turns:      turns,
		dispatcher: dispatcher,
		mcpServer:  server.NewMCPServer("switchboard-mcp", strings.TrimSpace(switchboard.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Tools returns the names of the published tools, in registration order.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	ask := mcp.NewTool(AskTool,
		mcp.WithDescription("Ask the support agent a question. Runs one complete turn and returns the final reply."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The user's message")),
		mcp.WithString("user_id", mcp.Description("Identifier of the user (optional)")),
		mcp.WithOutputSchema[domain.TurnReply](),
	)
	s.addTool(ask, mcp.NewStructuredToolHandler(s.handleAsk))

	if s.dispatcher == nil {
		return
	}
	for _, c := range s.dispatcher.Registry().List() {
		s.addTool(capabilityTool(c), s.capabilityHandler(c.Name()))
	}
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

// capabilityTool maps the argument schema of c onto MCP tool parameters.
func capabilityTool(c capability.Capability) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(c.Description())}

	s := c.Schema()
	for _, key := range s.Keys() {
		t := s[key]
		var props []mcp.PropertyOption
		if schema.IsRequired(t) {
			props = append(props, mcp.Required())
		}
		if desc := schema.Describe(t); desc != "" {
			props = append(props, mcp.Description(desc))
		}

		switch name := t.Name(); {
		case name == "int" || name == "float":
			opts = append(opts, mcp.WithNumber(key, props...))
		case name == "bool":
			opts = append(opts, mcp.WithBoolean(key, props...))
		case strings.HasPrefix(name, "["):
			props = append(props, mcp.Items(map[string]any{"type": "string"}))
			opts = append(opts, mcp.WithArray(key, props...))
		default:
			opts = append(opts, mcp.WithString(key, props...))
		}
	}
	return mcp.NewTool(c.Name(), opts...)
}

func (s *Server) handleAsk(ctx context.Context, _ mcp.CallToolRequest, args AskArgs) (domain.TurnReply, error) {
	req, err := s.limits.Clean(domain.TurnRequest{Query: args.Query, UserID: args.UserID})
	if err != nil {
		s.logger.Warn("MCP ask: input rejected", "error", err, "size", len(args.Query))
		return domain.TurnReply{}, fmt.Errorf("input rejected: %w", err)
	}
	if req.UserID == "" {
		req.UserID = DefaultMCPUserID
	}

	reply, err := s.turns.Handle(ctx, req)
	if err != nil {
		s.logger.Error("MCP ask: turn failed", "error", err, "turn_id", reply.TurnID)
		if reply.Response == "" {
			reply.Response = switchboard.ErrorResponse
		}
		return reply, nil
	}
	if strings.TrimSpace(reply.Response) == "" {
		reply.Response = switchboard.NoResponse
	}
	return reply, nil
}

func (s *Server) capabilityHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.dispatcher.Invoke(ctx, name, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(capability.FormatError(name, err)), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(CapabilitiesURI, "Available Capabilities",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := s.describeCapabilities()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      CapabilitiesURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

type capabilityInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Parameters  schema.Schema `json:"parameters,omitempty"`
}

func (s *Server) describeCapabilities() ([]byte, error) {
	infos := []capabilityInfo{}
	if s.dispatcher != nil {
		for _, c := range s.dispatcher.Registry().List() {
			infos = append(infos, capabilityInfo{Name: c.Name(), Description: c.Description(), Parameters: c.Schema()})
		}
	}
	data, err := json.Marshal(infos)
	if err != nil {
		return nil, fmt.Errorf("failed to encode capabilities: %w", err)
	}
	return data, nil
}
