package agentconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/codex-acp/codex-acp/internal/modes"
)

// AgentSettings is the small ambient config layer loaded once at process
// startup: model provider defaults and any extra approval presets an
// operator wants advertised alongside the built-in table. It is distinct
// from backend.SessionConfig (C6's per-session config), which is rebuilt
// for every new_session call.
type AgentSettings struct {
	// Provider is the default model provider id, paired with Model for a
	// new session's initial model. Neither /model nor set_session_model
	// falls back to it when no provider is named.
	Provider string `yaml:"provider"`
	// Model is the default model slug for Provider.
	Model string `yaml:"model"`
	// Effort is the default reasoning-effort tier.
	Effort string `yaml:"effort"`
	// DefaultMode is the session mode id a new_session starts in.
	DefaultMode string `yaml:"default_mode"`
	// EngineCommand is the external conversation-engine process to spawn
	// per conversation (internal/engine), space-separated like an ACP
	// server command. Defaults to "codex proto".
	EngineCommand string `yaml:"engine_command"`
	// ChatGPTMode reports whether this process is running with a ChatGPT
	// subscription login rather than a bare API key, gating the "chatgpt"
	// auth method (C10's authenticate).
	ChatGPTMode bool `yaml:"chatgpt_mode"`
	// ExtraPresets are operator-defined approval presets appended to the
	// built-in table (modes.Presets), e.g. to expose a custom profile.
	ExtraPresets []ExtraPreset `yaml:"extra_presets"`
	// Profiles map a "provider@model" pair to a validated combination, used
	// by set_session_model to accept models beyond the single configured
	// default.
	Profiles []ModelProfile `yaml:"profiles"`
}

// ExtraPreset is one operator-configured approval preset, in the same
// shape as modes.Preset but YAML-tagged for the settings file.
type ExtraPreset struct {
	ID          string `yaml:"id"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Approval    string `yaml:"approval"`
	Sandbox     string `yaml:"sandbox"`
}

// ModelProfile is one "provider@model" combination set_session_model is
// allowed to switch to, beyond the configured default.
type ModelProfile struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Effort   string `yaml:"effort"`
}

// DefaultSettings returns the built-in defaults used when no settings file
// is present.
func DefaultSettings() AgentSettings {
	return AgentSettings{
		Provider:      "openai",
		Model:         "gpt-5-codex",
		Effort:        "medium",
		DefaultMode:   "auto",
		EngineCommand: "codex proto",
	}
}

// LoadSettings reads and parses a YAML settings file at path. A missing
// file is not an error: DefaultSettings() is returned instead, matching
// SPEC_FULL's "falls back to built-in defaults when absent".
func LoadSettings(path string) (AgentSettings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return AgentSettings{}, fmt.Errorf("agentconfig: read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return AgentSettings{}, fmt.Errorf("agentconfig: parse settings %s: %w", path, err)
	}
	return settings, nil
}

// DefaultSettingsPath returns $CODEX_ACP_HOME/config.yaml, falling back to
// ~/.codex-acp/config.yaml when CODEX_ACP_HOME is unset.
func DefaultSettingsPath() string {
	if home := os.Getenv("CODEX_ACP_HOME"); home != "" {
		return filepath.Join(home, "config.yaml")
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, ".codex-acp", "config.yaml")
}

// ApplyExtraPresets folds an AgentSettings' operator-defined presets into
// the built-in table, returning the combined list in the order the rest of
// the agent should advertise them (built-ins first, then extras). Invalid
// entries (unknown approval/sandbox value, or an id that collides with a
// built-in) are dropped silently; they are a config authoring mistake, not
// a runtime error worth failing startup over.
func ApplyExtraPresets(settings AgentSettings) []modes.Preset {
	out := append([]modes.Preset(nil), modes.Presets...)
	known := make(map[string]bool, len(out))
	for _, p := range out {
		known[p.ID] = true
	}
	for _, ep := range settings.ExtraPresets {
		if ep.ID == "" || known[ep.ID] {
			continue
		}
		approval, ok := parseApproval(ep.Approval)
		if !ok {
			continue
		}
		sandbox, ok := parseSandbox(ep.Sandbox)
		if !ok {
			continue
		}
		out = append(out, modes.Preset{
			ID:          ep.ID,
			Label:       ep.Label,
			Description: ep.Description,
			Approval:    approval,
			Sandbox:     sandbox,
		})
		known[ep.ID] = true
	}
	return out
}

func parseApproval(s string) (modes.Approval, bool) {
	switch modes.Approval(s) {
	case modes.ApprovalNever, modes.ApprovalOnRequest, modes.ApprovalOnFailure, modes.ApprovalUnlessTrusted:
		return modes.Approval(s), true
	default:
		return "", false
	}
}

func parseSandbox(s string) (modes.Sandbox, bool) {
	switch modes.Sandbox(s) {
	case modes.SandboxReadOnly, modes.SandboxWorkspaceWrite, modes.SandboxFullAccess:
		return modes.Sandbox(s), true
	default:
		return "", false
	}
}

// ProviderRegistry returns the distinct provider ids known to settings
// (the default Provider plus every Profile's provider), in first-seen
// order. C10's authenticate uses it to validate a custom-provider auth
// method id.
func ProviderRegistry(settings AgentSettings) []string {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	add(settings.Provider)
	for _, p := range settings.Profiles {
		add(p.Provider)
	}
	return out
}

// FindProfile looks up a configured "provider@model" combination, used by
// set_session_model to accept models beyond the single configured default.
func FindProfile(settings AgentSettings, provider, model string) (ModelProfile, bool) {
	for _, p := range settings.Profiles {
		if p.Provider == provider && p.Model == model {
			return p, true
		}
	}
	return ModelProfile{}, false
}
