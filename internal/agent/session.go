package agent

import (
	"context"
	"fmt"
	"strings"

	acpsdk "github.com/coder/acp-go-sdk"
	"github.com/google/uuid"

	"github.com/codex-acp/codex-acp/internal/acperr"
	"github.com/codex-acp/codex-acp/internal/agentconfig"
	"github.com/codex-acp/codex-acp/internal/backend"
	"github.com/codex-acp/codex-acp/internal/commands"
	"github.com/codex-acp/codex-acp/internal/modes"
	"github.com/codex-acp/codex-acp/internal/sessionstore"
)

// NewSession implements acp.Agent (C10): allocates a fresh fs_session_id,
// builds the per-session backend config (C6) from the client's requested
// MCP servers plus our always-on acp_fs bridge server, creates the backend
// conversation, and registers the session before replying.
func (a *Agent) NewSession(ctx context.Context, req acpsdk.NewSessionRequest) (acpsdk.NewSessionResponse, error) {
	requested := make([]agentconfig.RequestedMcpServer, 0, len(req.McpServers))
	for _, srv := range req.McpServers {
		r, err := requestedServerFrom(srv)
		if err != nil {
			return acpsdk.NewSessionResponse{}, acperr.InvalidParams(err.Error())
		}
		if err := agentconfig.ValidateRequestedServer(r); err != nil {
			return acpsdk.NewSessionResponse{}, acperr.InvalidParams(err.Error())
		}
		requested = append(requested, r)
	}

	preset, ok := modes.FindByModeID(acpsdk.SessionModeId(a.settings.DefaultMode))
	if !ok {
		preset = modes.Presets[1] // "auto"
	}

	fsSessionID := uuid.New().String()
	base := backend.SessionConfig{
		Cwd:            req.Cwd,
		Model:          a.settings.Model,
		Effort:         a.settings.Effort,
		ApprovalPolicy: string(preset.Approval),
		SandboxPolicy:  string(preset.Sandbox),
	}
	cfg := agentconfig.BuildSessionConfig(base, requested, agentconfig.BuildOptions{
		BridgeAddr:   a.bridgeAddr,
		FsSessionID:  fsSessionID,
		SelfBinary:   a.selfBinary,
		Capabilities: a.clientCaps,
	})

	conv, acpSessionID, err := a.manager.NewConversation(ctx, cfg)
	if err != nil {
		return acpsdk.NewSessionResponse{}, acperr.Internal(fmt.Sprintf("create conversation: %v", err))
	}

	state := sessionstore.NewState(fsSessionID, conv, cfg, acpsdk.SessionModeId(preset.ID), preset.Approval, preset.Sandbox, a.settings.Model, a.settings.Effort)
	a.store.Insert(acpSessionID, state)

	// Pushed out of band so it never races the NewSession response itself.
	go func() {
		_ = a.dispatcher.PushUpdate(context.Background(), acpSessionID, commands.AvailableCommands())
	}()

	modeState, _ := modes.StateFor(acpsdk.SessionModeId(preset.ID))
	return acpsdk.NewSessionResponse{
		SessionId: acpsdk.SessionId(acpSessionID),
		Modes:     &modeState,
		Models:    a.modelState(),
	}, nil
}

// LoadSession implements acp.Agent's optional session-resumption method.
// This adapter advertises load_session:false (spec.md §4.10): a session
// outlives the process only in the store's in-memory map, so a client that
// calls it anyway is pointed at whatever state happens to survive, or
// rejected if the session id is gone.
func (a *Agent) LoadSession(_ context.Context, req acpsdk.LoadSessionRequest) (acpsdk.LoadSessionResponse, error) {
	snap, ok := a.store.Snapshot(string(req.SessionId))
	if !ok {
		return acpsdk.LoadSessionResponse{}, acperr.InvalidParams(fmt.Sprintf("unknown session %q", req.SessionId))
	}
	modeState, _ := modes.StateFor(snap.CurrentMode)
	return acpsdk.LoadSessionResponse{
		Modes:  &modeState,
		Models: a.modelState(),
	}, nil
}

// SetSessionMode implements acp.Agent (C10): resolves req.ModeId against
// the shared preset table, submits the (approval, sandbox) override to the
// session's live conversation, and updates the stored state.
func (a *Agent) SetSessionMode(ctx context.Context, req acpsdk.SetSessionModeRequest) (acpsdk.SetSessionModeResponse, error) {
	sessionID := string(req.SessionId)
	preset, ok := modes.FindByModeID(req.ModeId)
	if !ok {
		return acpsdk.SetSessionModeResponse{}, acperr.InvalidParams(fmt.Sprintf("unknown session mode %q", req.ModeId))
	}

	conv, err := a.store.GetConversation(sessionID)
	if err != nil {
		return acpsdk.SetSessionModeResponse{}, acperr.InvalidParams(err.Error())
	}

	approval, sandbox := string(preset.Approval), string(preset.Sandbox)
	if _, err := conv.Submit(ctx, backend.OpOverrideTurnContext{
		ApprovalPolicy: &approval,
		SandboxPolicy:  &sandbox,
	}); err != nil {
		return acpsdk.SetSessionModeResponse{}, acperr.Internal(fmt.Sprintf("submit mode override: %v", err))
	}

	if err := a.store.WithSessionStateMut(sessionID, func(st *sessionstore.SessionState) {
		st.CurrentMode = acpsdk.SessionModeId(preset.ID)
		st.CurrentApproval = preset.Approval
		st.CurrentSandbox = preset.Sandbox
	}); err != nil {
		return acpsdk.SetSessionModeResponse{}, acperr.InvalidParams(err.Error())
	}

	return acpsdk.SetSessionModeResponse{}, nil
}

// SetSessionModel implements AgentExperimental's optional model-selection
// method. ModelId is parsed as "provider@model"; the combination must match
// either the configured default or one of settings.Profiles.
func (a *Agent) SetSessionModel(ctx context.Context, req acpsdk.SetSessionModelRequest) (acpsdk.SetSessionModelResponse, error) {
	sessionID := string(req.SessionId)
	provider, model, ok := strings.Cut(string(req.ModelId), "@")
	if !ok {
		return acpsdk.SetSessionModelResponse{}, acperr.InvalidParams(fmt.Sprintf("model id %q must be provider@model", req.ModelId))
	}

	effort := a.settings.Effort
	switch {
	case provider == a.settings.Provider && model == a.settings.Model:
		// default combination, settings.Effort already applies
	default:
		profile, ok := agentconfig.FindProfile(a.settings, provider, model)
		if !ok {
			return acpsdk.SetSessionModelResponse{}, acperr.InvalidParams(fmt.Sprintf("unknown model combination %q", req.ModelId))
		}
		effort = profile.Effort
	}

	conv, err := a.store.GetConversation(sessionID)
	if err != nil {
		return acpsdk.SetSessionModelResponse{}, acperr.InvalidParams(err.Error())
	}

	if _, err := conv.Submit(ctx, backend.OpOverrideTurnContext{Model: &model, Effort: &effort}); err != nil {
		return acpsdk.SetSessionModelResponse{}, acperr.Internal(fmt.Sprintf("submit model override: %v", err))
	}

	if err := a.store.WithSessionStateMut(sessionID, func(st *sessionstore.SessionState) {
		st.CurrentModel = model
		st.CurrentEffort = effort
	}); err != nil {
		return acpsdk.SetSessionModelResponse{}, acperr.InvalidParams(err.Error())
	}

	return acpsdk.SetSessionModelResponse{}, nil
}

// Cancel implements acp.Agent: submits an interrupt op for the session's
// in-flight turn. The prompt loop (C11) observes the resulting TurnAborted
// event and returns StopReasonCancelled; Cancel itself never blocks on that.
func (a *Agent) Cancel(ctx context.Context, req acpsdk.CancelNotification) error {
	conv, err := a.store.GetConversation(string(req.SessionId))
	if err != nil {
		return acperr.InvalidParams(err.Error())
	}
	if _, err := conv.Submit(ctx, backend.OpInterrupt{}); err != nil {
		return acperr.Internal(fmt.Sprintf("submit interrupt: %v", err))
	}
	return nil
}

// modelState renders the configured default model plus every profile as a
// SessionModelState, current pinned to the configured default.
func (a *Agent) modelState() *acpsdk.SessionModelState {
	models := []acpsdk.ModelInfo{{
		ModelId: acpsdk.ModelId(modelID(a.settings.Provider, a.settings.Model)),
		Name:    fmt.Sprintf("%s (%s)", a.settings.Model, a.settings.Provider),
	}}
	for _, p := range a.settings.Profiles {
		models = append(models, acpsdk.ModelInfo{
			ModelId: acpsdk.ModelId(modelID(p.Provider, p.Model)),
			Name:    fmt.Sprintf("%s (%s)", p.Model, p.Provider),
		})
	}
	return &acpsdk.SessionModelState{
		AvailableModels: models,
		CurrentModelId:  acpsdk.ModelId(modelID(a.settings.Provider, a.settings.Model)),
	}
}

func modelID(provider, model string) string {
	return provider + "@" + model
}

// requestedServerFrom flattens acp-go-sdk's tagged-union McpServer into our
// own RequestedMcpServer shape.
func requestedServerFrom(srv acpsdk.McpServer) (agentconfig.RequestedMcpServer, error) {
	switch {
	case srv.Stdio != nil:
		env := make(map[string]string, len(srv.Stdio.Env))
		for _, e := range srv.Stdio.Env {
			env[e.Name] = e.Value
		}
		return agentconfig.RequestedMcpServer{
			Name:    srv.Stdio.Name,
			Kind:    backend.McpTransportStdio,
			Command: srv.Stdio.Command,
			Args:    srv.Stdio.Args,
			Env:     env,
		}, nil
	case srv.Http != nil:
		return agentconfig.RequestedMcpServer{
			Name: srv.Http.Name,
			Kind: backend.McpTransportHTTP,
			URL:  srv.Http.Url,
		}, nil
	case srv.Sse != nil:
		return agentconfig.RequestedMcpServer{
			Name: srv.Sse.Name,
			Kind: backend.McpTransportSSE,
			URL:  srv.Sse.Url,
		}, nil
	default:
		return agentconfig.RequestedMcpServer{}, fmt.Errorf("mcp server entry has no transport set")
	}
}
