package agent

import (
	"context"
	"fmt"
	"os"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/acperr"
	"github.com/codex-acp/codex-acp/internal/agentconfig"
	"github.com/codex-acp/codex-acp/internal/backend"
	"github.com/codex-acp/codex-acp/internal/commands"
	"github.com/codex-acp/codex-acp/internal/reasoning"
	"github.com/codex-acp/codex-acp/internal/sessionstore"
)

// Auth method ids accepted by Authenticate. apikey and chatgpt are always
// advertised; a third, provider-named method is added for every non-default
// provider configured in settings (spec.md §4.10's "two, or three for a
// custom provider").
const (
	authMethodAPIKey  = "apikey"
	authMethodChatGPT = "chatgpt"
)

// Options bundles everything Agent needs beyond the store/manager/dispatcher
// it is constructed with.
type Options struct {
	Settings    agentconfig.AgentSettings
	BridgeAddr  string // host:port of the running FS bridge (C7)
	SelfBinary  string // path to this process's own binary, re-exec'd by acp_fs
}

// Agent implements acp-go-sdk's Agent interface: component C10 (session
// lifecycle) and C11 (the prompt event loop), wired against the shared
// session store and the C12 dispatcher that owns the real connection.
type Agent struct {
	store      *sessionstore.Store
	manager    backend.ConversationManager
	dispatcher *Dispatcher
	settings   agentconfig.AgentSettings
	bridgeAddr string
	selfBinary string

	clientCaps agentconfig.ClientCapabilities

	aggregators *aggregatorSet
}

var (
	_ acpsdk.Agent             = (*Agent)(nil)
	_ acpsdk.AgentExperimental = (*Agent)(nil)
)

// NewAgent builds an Agent. dispatcher must already be running (its Run
// goroutine started) before any ACP method is invoked against the returned
// Agent.
func NewAgent(store *sessionstore.Store, manager backend.ConversationManager, dispatcher *Dispatcher, opts Options) *Agent {
	return &Agent{
		store:       store,
		manager:     manager,
		dispatcher:  dispatcher,
		settings:    opts.Settings,
		bridgeAddr:  opts.BridgeAddr,
		selfBinary:  opts.SelfBinary,
		aggregators: newAggregatorSet(),
	}
}

// Initialize implements acp.Agent: records the client's capabilities and
// advertises ours (spec.md §4.10).
func (a *Agent) Initialize(_ context.Context, req acpsdk.InitializeRequest) (acpsdk.InitializeResponse, error) {
	a.clientCaps = agentconfig.ClientCapabilities{
		ReadTextFile:  req.ClientCapabilities.Fs.ReadTextFile,
		WriteTextFile: req.ClientCapabilities.Fs.WriteTextFile,
	}

	return acpsdk.InitializeResponse{
		ProtocolVersion: acpsdk.ProtocolVersionNumber,
		AgentInfo: &acpsdk.Implementation{
			Name:    "codex-acp",
			Version: "0.1.0",
		},
		AgentCapabilities: acpsdk.AgentCapabilities{
			LoadSession: false,
			PromptCapabilities: acpsdk.PromptCapabilities{
				Image:           true,
				Audio:           false,
				EmbeddedContext: true,
			},
			McpCapabilities: acpsdk.McpCapabilities{
				Http: true,
				Sse:  true,
			},
		},
		AuthMethods: a.authMethods(),
	}, nil
}

// authMethods builds the fixed apikey/chatgpt pair plus one entry per
// provider configured in settings beyond the built-in default.
func (a *Agent) authMethods() []acpsdk.AuthMethod {
	methods := []acpsdk.AuthMethod{
		{Id: acpsdk.AuthMethodId(authMethodAPIKey), Name: "API Key"},
		{Id: acpsdk.AuthMethodId(authMethodChatGPT), Name: "ChatGPT"},
	}
	for _, provider := range agentconfig.ProviderRegistry(a.settings) {
		if provider == "" || provider == authMethodAPIKey || provider == authMethodChatGPT || provider == agentconfig.DefaultSettings().Provider {
			continue
		}
		methods = append(methods, acpsdk.AuthMethod{Id: acpsdk.AuthMethodId(provider), Name: provider})
	}
	return methods
}

// Authenticate implements acp.Agent (spec.md §4.10): apikey accepts any
// non-empty credential from the environment; chatgpt requires the process
// to be running in ChatGPT mode; any other id must name a provider present
// in the configured registry.
func (a *Agent) Authenticate(_ context.Context, req acpsdk.AuthenticateRequest) (acpsdk.AuthenticateResponse, error) {
	method := string(req.MethodId)
	switch method {
	case authMethodAPIKey:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return acpsdk.AuthenticateResponse{}, acperr.AuthRequired("OPENAI_API_KEY is not set")
		}
		return acpsdk.AuthenticateResponse{}, nil
	case authMethodChatGPT:
		if !a.settings.ChatGPTMode {
			return acpsdk.AuthenticateResponse{}, acperr.AuthRequired("not running in ChatGPT mode")
		}
		return acpsdk.AuthenticateResponse{}, nil
	default:
		for _, provider := range agentconfig.ProviderRegistry(a.settings) {
			if provider == method {
				return acpsdk.AuthenticateResponse{}, nil
			}
		}
		return acpsdk.AuthenticateResponse{}, acperr.InvalidParams(fmt.Sprintf("unknown auth method %q", method))
	}
}

// ExtMethod implements acp.Agent's extension point; this adapter defines no
// custom methods.
func (a *Agent) ExtMethod(_ context.Context, method string, _ []byte) ([]byte, error) {
	return nil, acperr.InvalidParams(fmt.Sprintf("unknown ext method %q", method))
}

// ExtNotification implements acp.Agent's extension point; notifications with
// no handler are dropped.
func (a *Agent) ExtNotification(_ context.Context, _ string, _ []byte) error {
	return nil
}

// reasoningAggregator returns sessionID's per-session reasoning aggregator,
// creating one on first use.
func (a *Agent) reasoningAggregator(sessionID string) *reasoning.Aggregator {
	return a.aggregators.get(sessionID)
}

// clientReadFor builds a commands.ClientFileReader bound to sessionID, or
// nil when the client never advertised read_text_file support.
func (a *Agent) clientReadFor(sessionID string) commands.ClientFileReader {
	if !a.clientCaps.ReadTextFile {
		return nil
	}
	return func(ctx context.Context, path string) (string, error) {
		resp, err := a.dispatcher.ReadTextFile(ctx, acpsdk.ReadTextFileRequest{
			SessionId: acpsdk.SessionId(sessionID),
			Path:      path,
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}
}

// commandDispatcher builds a fresh commands.Dispatcher bound to sessionID's
// client-read closure. Cheap: commands.Dispatcher carries no state beyond
// these references, so a new one per prompt call is the natural lifetime.
func (a *Agent) commandDispatcher(sessionID string) *commands.Dispatcher {
	return commands.New(a.store, a.manager, a.clientReadFor(sessionID))
}
