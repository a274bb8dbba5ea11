package backend

import "context"

// McpServerTransportKind is the transport used to reach one configured MCP
// server.
type McpServerTransportKind string

const (
	McpTransportHTTP  McpServerTransportKind = "http"
	McpTransportSSE   McpServerTransportKind = "sse"
	McpTransportStdio McpServerTransportKind = "stdio"
)

// McpServerConfig describes one MCP server the backend should connect to
// for the lifetime of a conversation.
type McpServerConfig struct {
	Transport McpServerTransportKind

	// URL is set for McpTransportHTTP and McpTransportSSE.
	URL string

	// Command/Args/Env are set for McpTransportStdio.
	Command string
	Args    []string
	Env     map[string]string

	DisabledTools     []string
	StartupTimeoutSec int
	ToolTimeoutSec    int
}

// SessionConfig is the per-conversation configuration built by C6
// (internal/agentconfig) and handed to ConversationManager.NewConversation.
type SessionConfig struct {
	Cwd              string
	BaseInstructions string
	UserInstructions string
	Model            string
	Effort           string
	ApprovalPolicy   string
	SandboxPolicy    string
	McpServers       map[string]McpServerConfig
}

// Conversation is one backend conversation: a place to submit Ops and to
// drain the Events they produce.
type Conversation interface {
	// Submit enqueues op and returns the submit id events produced by it
	// will carry.
	Submit(ctx context.Context, op Op) (submitID string, err error)
	// NextEvent blocks until the next event from any submission on this
	// conversation is available.
	NextEvent(ctx context.Context) (Event, error)
}

// ConversationManager creates and resolves backend conversations.
type ConversationManager interface {
	// NewConversation creates a fresh conversation from cfg and returns it
	// along with its conversation id (reused as the ACP session id).
	NewConversation(ctx context.Context, cfg SessionConfig) (conv Conversation, conversationID string, err error)
}
