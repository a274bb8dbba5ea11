// Package logging provides centralized logging configuration for codex-acp.
//
// stdout is reserved for the ACP JSON-RPC stream, so every sink configured
// here writes to stderr and/or a rotating file, never to stdout.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *slog.Logger
	globalMu     sync.RWMutex

	logWriter   io.WriteCloser
	logWriterMu sync.Mutex

	filter   *componentFilter
	filterMu sync.RWMutex
)

// FileLogConfig holds configuration for file-based logging with rotation.
type FileLogConfig struct {
	// Path is the file path for the log file. Empty string disables file logging.
	Path string
	// MaxSizeMB is the maximum size of the log file in megabytes before rotation.
	MaxSizeMB int
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int
	// Compress determines if rotated log files should be compressed.
	Compress bool
}

// DefaultFileLogConfig returns the default file log configuration.
func DefaultFileLogConfig() FileLogConfig {
	return FileLogConfig{
		MaxSizeMB:  10,
		MaxBackups: 3,
		Compress:   false,
	}
}

// Config holds logging configuration.
type Config struct {
	// Level is the default minimum log level (debug, info, warn, error),
	// applied to any component without a more specific entry in
	// ComponentLevels.
	Level string
	// ComponentLevels overrides Level per logging component, e.g.
	// {"fsbridge": "warn"}. Mirrors RUST_LOG's "target=level" syntax.
	ComponentLevels map[string]string
	// Stderr controls whether logs are also written to stderr. Defaults to
	// true when left unset via FromEnv; Initialize treats a zero Config as
	// "no stderr" so callers that want it must set it explicitly.
	Stderr bool
	// FileLog is the configuration for file-based logging with rotation.
	FileLog *FileLogConfig
	// LogFile, if set and FileLog is nil, opens a plain (non-rotating) file.
	LogFile string
	// JSON enables JSON output format.
	JSON bool
}

// FromEnv builds a Config from the environment variables documented for
// codex-acp: CODEX_LOG (level, or "target=level,target=level,..." with an
// optional bare default level), CODEX_LOG_STDERR (bool, default true),
// CODEX_LOG_FILE (explicit path) or CODEX_LOG_DIR (directory; the file is
// named codex-acp.log inside it).
func FromEnv() Config {
	cfg := Config{
		Level:  "info",
		Stderr: true,
	}

	if v := os.Getenv("CODEX_LOG"); v != "" {
		level, overrides := parseFilterSpec(v)
		if level != "" {
			cfg.Level = level
		}
		cfg.ComponentLevels = overrides
	}

	if v := os.Getenv("CODEX_LOG_STDERR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Stderr = b
		}
	}

	if path := os.Getenv("CODEX_LOG_FILE"); path != "" {
		fl := DefaultFileLogConfig()
		fl.Path = path
		cfg.FileLog = &fl
	} else if dir := os.Getenv("CODEX_LOG_DIR"); dir != "" {
		fl := DefaultFileLogConfig()
		fl.Path = filepath.Join(dir, "codex-acp.log")
		cfg.FileLog = &fl
	}

	return cfg
}

// parseFilterSpec parses a RUST_LOG-style filter string: a comma-separated
// list of either a bare level (the default) or "component=level" pairs.
func parseFilterSpec(spec string) (defaultLevel string, overrides map[string]string) {
	overrides = make(map[string]string)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if comp, lvl, ok := strings.Cut(part, "="); ok {
			overrides[strings.TrimSpace(comp)] = strings.TrimSpace(lvl)
		} else {
			defaultLevel = part
		}
	}
	if len(overrides) == 0 {
		overrides = nil
	}
	return defaultLevel, overrides
}

// Initialize sets up the global logger with the given configuration.
func Initialize(cfg Config) error {
	level := parseLevel(cfg.Level)

	overrides := make(map[string]slog.Level, len(cfg.ComponentLevels))
	for comp, lvl := range cfg.ComponentLevels {
		overrides[comp] = parseLevel(lvl)
	}
	filterMu.Lock()
	filter = &componentFilter{global: level, overrides: overrides}
	filterMu.Unlock()

	var writers []io.Writer
	if cfg.Stderr {
		writers = append(writers, os.Stderr)
	}

	logWriterMu.Lock()
	defer logWriterMu.Unlock()

	if logWriter != nil {
		logWriter.Close()
		logWriter = nil
	}

	if cfg.FileLog != nil && cfg.FileLog.Path != "" {
		maxSize := cfg.FileLog.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := cfg.FileLog.MaxBackups
		if maxBackups < 0 {
			maxBackups = 3
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.FileLog.Path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     0,
			Compress:   cfg.FileLog.Compress,
		}
		logWriter = lj
		writers = append(writers, lj)
	} else if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", cfg.LogFile, err)
		}
		logWriter = f
		writers = append(writers, f)
	}

	if len(writers) == 0 {
		// No sink configured: records are discarded.
		writers = append(writers, io.Discard)
	}
	w := io.MultiWriter(writers...)

	// The lowest possible threshold lets every record reach the handler;
	// componentFilterHandler applies the real (possibly per-component)
	// threshold, including for the root logger which has component "".
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var inner slog.Handler
	if cfg.JSON {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(&componentFilterHandler{inner: inner, component: ""})

	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()

	slog.SetDefault(logger)
	return nil
}

// Get returns the global logger. If Initialize hasn't been called, returns
// slog.Default().
func Get() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// Close cleans up logging resources (closes the log file, if any).
func Close() error {
	logWriterMu.Lock()
	defer logWriterMu.Unlock()

	if logWriter != nil {
		err := logWriter.Close()
		logWriter = nil
		return err
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "trace":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// componentFilter holds the current global level plus any per-component
// overrides, guarded by filterMu.
type componentFilter struct {
	global    slog.Level
	overrides map[string]slog.Level
}

func levelFor(component string) slog.Level {
	filterMu.RLock()
	defer filterMu.RUnlock()

	if filter == nil {
		return slog.LevelInfo
	}
	if component != "" {
		if lvl, ok := filter.overrides[component]; ok {
			return lvl
		}
	}
	return filter.global
}

// componentFilterHandler wraps a slog.Handler and enforces the per-component
// threshold computed by levelFor.
type componentFilterHandler struct {
	inner     slog.Handler
	component string
}

func (h *componentFilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < levelFor(h.component) {
		return false
	}
	return h.inner.Enabled(ctx, level)
}

func (h *componentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < levelFor(h.component) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *componentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentFilterHandler{inner: h.inner.WithAttrs(attrs), component: h.component}
}

func (h *componentFilterHandler) WithGroup(name string) slog.Handler {
	return &componentFilterHandler{inner: h.inner.WithGroup(name), component: h.component}
}

// WithComponent returns a logger tagged with a "component" attribute and
// subject to that component's level threshold (CODEX_LOG overrides).
func WithComponent(component string) *slog.Logger {
	base := Get()
	handler := &componentFilterHandler{
		inner:     base.Handler().WithAttrs([]slog.Attr{slog.String("component", component)}),
		component: component,
	}
	return slog.New(handler)
}

// Component name constants used across the agent; kept here so call sites
// spell them identically (they double as CODEX_LOG override targets).
const (
	CompACP      = "acp"
	CompFSBridge = "fsbridge"
	CompFSMCP    = "fsmcp"
	CompSession  = "session"
	CompAgent    = "agent"
	CompCommands = "commands"
)

// ACP returns a logger for the top-level dispatcher / ACP plumbing.
func ACP() *slog.Logger { return WithComponent(CompACP) }

// FSBridge returns a logger for the filesystem bridge (C7).
func FSBridge() *slog.Logger { return WithComponent(CompFSBridge) }

// FSMCP returns a logger for the embedded MCP server (C8).
func FSMCP() *slog.Logger { return WithComponent(CompFSMCP) }

// Session returns a logger for session lifecycle / store events.
func Session() *slog.Logger { return WithComponent(CompSession) }

// Agent returns a logger for the prompt event loop (C11).
func Agent() *slog.Logger { return WithComponent(CompAgent) }

// Commands returns a logger for the slash-command handler (C9).
func Commands() *slog.Logger { return WithComponent(CompCommands) }

// WithSessionContext returns a logger carrying session_id and cwd, used
// wherever a log line needs to be correlated back to one ACP session.
func WithSessionContext(base *slog.Logger, sessionID, cwd string) *slog.Logger {
	if base == nil {
		return nil
	}
	return base.With("session_id", sessionID, "cwd", cwd)
}
