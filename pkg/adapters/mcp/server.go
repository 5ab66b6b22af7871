package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lessonkit"
	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/aretw0/lessonkit/internal/presentation/graph"
	"github.com/aretw0/lessonkit/pkg/dialog"
	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/aretw0/lessonkit/pkg/editor"
	stategraph "github.com/aretw0/lessonkit/pkg/graph"
	"github.com/aretw0/lessonkit/pkg/notify"
	"github.com/aretw0/lessonkit/pkg/player"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// ExplorationArgs selects an exploration.
type ExplorationArgs struct {
	ExplorationID string `json:"exploration_id"`
}

// IncomingArgs selects a state of an exploration.
type IncomingArgs struct {
	ExplorationID string `json:"exploration_id"`
	StateName     string `json:"state_name"`
}

// IncomingResponse maps each source state to the descriptions of its rules
// leading to the queried state.
type IncomingResponse struct {
	Incoming map[string][]string `json:"incoming" jsonschema_description:"Source state name to rule descriptions"`
}

// RenameArgs renames a state and commits the change.
type RenameArgs struct {
	ExplorationID string `json:"exploration_id"`
	OldName       string `json:"old_name"`
	NewName       string `json:"new_name"`
	CommitMessage string `json:"commit_message"`
}

// RenameResponse reports the committed version.
type RenameResponse struct {
	Version int      `json:"version" jsonschema_description:"Exploration version after the commit"`
	Changes []string `json:"changes" jsonschema_description:"Summary of the committed changes"`
}

// SubmitArgs answers the state a learner is on.
type SubmitArgs struct {
	ExplorationID string `json:"exploration_id"`
	StateID       string `json:"state_id"`
	Answer        string `json:"answer"`
	BlockNumber   int    `json:"block_number"`
	Params        string `json:"params"`
}

// Server exposes explorations as MCP tools: the reader side through the
// player and the authoring side through the editor commit service.
type Server struct {
	player    *player.Engine
	editor    *editor.Service
	widgets   stategraph.ArgValidator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithArgValidator validates widget args of edited states.
func WithArgValidator(v stategraph.ArgValidator) Option {
	return func(s *Server) {
		s.widgets = v
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(p *player.Engine, e *editor.Service, opts ...Option) *Server {
	s := &Server{
		player:    p,
		editor:    e,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("lessonkit-mcp", strings.TrimSpace(lessonkit.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	explorationID := mcp.WithString("exploration_id", mcp.Required(), mcp.Description("Exploration ID"))

	s.mcpServer.AddTool(mcp.NewTool("get_exploration",
		mcp.WithDescription("Get the full exploration definition."),
		explorationID,
	), s.handleGetExploration)

	s.mcpServer.AddTool(mcp.NewTool("graph_mermaid",
		mcp.WithDescription("Render the state graph of an exploration as a Mermaid flowchart."),
		explorationID,
	), s.handleMermaid)

	s.mcpServer.AddTool(mcp.NewTool("incoming_states",
		mcp.WithDescription("List the states with rules leading to a state."),
		explorationID,
		mcp.WithString("state_name", mcp.Required(), mcp.Description("Target state name")),
		mcp.WithOutputSchema[IncomingResponse](),
	), mcp.NewStructuredToolHandler(s.handleIncoming))

	s.mcpServer.AddTool(mcp.NewTool("rename_state",
		mcp.WithDescription("Rename a state, rewriting every rule that points at it, and commit the change."),
		explorationID,
		mcp.WithString("old_name", mcp.Required(), mcp.Description("Current state name")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New state name, at most 50 characters")),
		mcp.WithString("commit_message", mcp.Description("Commit message (optional)")),
		mcp.WithOutputSchema[RenameResponse](),
	), mcp.NewStructuredToolHandler(s.handleRename))

	s.mcpServer.AddTool(mcp.NewTool("start_exploration",
		mcp.WithDescription("Get the first page of an exploration."),
		explorationID,
		mcp.WithOutputSchema[domain.Page](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("submit_answer",
		mcp.WithDescription("Submit an answer to the state the learner is on and get the next page."),
		explorationID,
		mcp.WithString("state_id", mcp.Required(), mcp.Description("State the answer is given at")),
		mcp.WithString("answer", mcp.Required(), mcp.Description("Learner answer")),
		mcp.WithNumber("block_number", mcp.Description("Block number of the current page")),
		mcp.WithString("params", mcp.Description("JSON object of the current params")),
		mcp.WithOutputSchema[domain.Page](),
	), mcp.NewStructuredToolHandler(s.handleSubmit))
}

func (s *Server) handleGetExploration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("exploration_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	exp, err := s.editor.Load(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	jsonBytes, err := json.Marshal(exp)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleMermaid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("exploration_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	exp, err := s.editor.Load(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(exp, nil)), nil
}

func (s *Server) handleIncoming(ctx context.Context, _ mcp.CallToolRequest, args IncomingArgs) (IncomingResponse, error) {
	exp, err := s.editor.Load(ctx, args.ExplorationID)
	if err != nil {
		return IncomingResponse{}, fmt.Errorf("load failed: %w", err)
	}
	resp := IncomingResponse{Incoming: map[string][]string{}}
	for source, in := range stategraph.New(exp).GetIncomingStates(args.StateName) {
		resp.Incoming[source] = in.Rules
	}
	return resp, nil
}

func (s *Server) handleRename(ctx context.Context, _ mcp.CallToolRequest, args RenameArgs) (RenameResponse, error) {
	warnings := notify.NewWarningList(0)
	opts := []editor.SessionOption{
		editor.WithNotifier(notify.Multi{warnings, notify.Logger{Log: s.logger}}),
		editor.WithSessionLogger(s.logger),
	}
	if s.widgets != nil {
		opts = append(opts, editor.WithValidator(s.widgets))
	}

	sess, err := editor.Open(ctx, s.editor.Store(), args.ExplorationID, s.editor, opts...)
	if err != nil {
		return RenameResponse{}, fmt.Errorf("open failed: %w", err)
	}
	if err := sess.Graph().RenameState(args.OldName, args.NewName); err != nil {
		if w := warnings.Warnings(); len(w) > 0 {
			return RenameResponse{}, fmt.Errorf("%s: %w", strings.Join(w, "; "), err)
		}
		return RenameResponse{}, err
	}

	message := args.CommitMessage
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("Rename %s to %s", args.OldName, args.NewName)
	}
	changes := sess.Describe()
	if _, err := sess.Save(ctx, dialog.Static(dialog.Confirmed(message))); err != nil {
		return RenameResponse{}, fmt.Errorf("save failed: %w", err)
	}
	return RenameResponse{Version: sess.Version(), Changes: changes}, nil
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args ExplorationArgs) (domain.Page, error) {
	page, err := s.player.Start(ctx, args.ExplorationID)
	if err != nil {
		return domain.Page{}, fmt.Errorf("start failed: %w", err)
	}
	return *page, nil
}

func (s *Server) handleSubmit(ctx context.Context, _ mcp.CallToolRequest, args SubmitArgs) (domain.Page, error) {
	sub := domain.Submission{
		Answer:      args.Answer,
		BlockNumber: args.BlockNumber,
	}
	if args.Params != "" {
		if err := json.Unmarshal([]byte(args.Params), &sub.Params); err != nil {
			return domain.Page{}, fmt.Errorf("params must be a JSON object: %w", err)
		}
	}

	page, err := s.player.Submit(ctx, args.ExplorationID, args.StateID, sub)
	if err != nil {
		s.logger.Warn("MCP submit rejected", "exploration_id", args.ExplorationID, "state", args.StateID, "err", err)
		return domain.Page{}, fmt.Errorf("submit failed: %w", err)
	}
	return *page, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("lessonkit://explorations", "Available explorations",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.editor.Store().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list explorations: %w", err)
		}
		jsonBytes, err := json.Marshal(ids)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "lessonkit://explorations",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
