package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FieldSessionID is the standardized structured logging key for render session identifiers.
const FieldSessionID = "session_id"

// SessionLog captures every record of a render run in a JSON journal under
// <log_dir>/sessions, at debug verbosity regardless of the console level.
// The journal outlives the console scrollback, so a finished run can be
// inspected record by record afterwards.
type SessionLog struct {
	id      string
	path    string
	file    *os.File
	handler slog.Handler
}

// SessionLogPattern matches session journal filenames for retention pruning.
const SessionLogPattern = "render_*.log"

// NewSessionLog opens sessions/render_<id>.log under logDir. An empty logDir
// or id disables the journal; callers treat a nil SessionLog as a no-op.
func NewSessionLog(logDir, sessionID string) (*SessionLog, error) {
	logDir = strings.TrimSpace(logDir)
	sessionID = strings.TrimSpace(sessionID)
	if logDir == "" || sessionID == "" {
		return nil, nil
	}
	dir := filepath.Join(logDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure session log dir: %w", err)
	}
	path := filepath.Join(dir, "render_"+sessionID+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log %s: %w", path, err)
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	return &SessionLog{
		id:      sessionID,
		path:    path,
		file:    file,
		handler: newSessionIDHandler(newJSONHandler(file, level, false), sessionID),
	}, nil
}

// Attach tees the base logger into the session journal.
func (s *SessionLog) Attach(base *slog.Logger) *slog.Logger {
	if s == nil {
		return base
	}
	return TeeLogger(base, s.handler)
}

// ID returns the session identifier the journal was opened for.
func (s *SessionLog) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Path returns the on-disk location of the journal.
func (s *SessionLog) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close releases the journal file handle.
func (s *SessionLog) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// sessionIDHandler wraps another handler to inject a session_id attribute into all records.
type sessionIDHandler struct {
	base      slog.Handler
	sessionID string
}

func newSessionIDHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return &sessionIDHandler{
		base:      base,
		sessionID: sessionID,
	}
}

func (h *sessionIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *sessionIDHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldSessionID, h.sessionID))
	return h.base.Handle(ctx, record)
}

func (h *sessionIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionIDHandler{
		base:      h.base.WithAttrs(attrs),
		sessionID: h.sessionID,
	}
}

func (h *sessionIDHandler) WithGroup(name string) slog.Handler {
	return &sessionIDHandler{
		base:      h.base.WithGroup(name),
		sessionID: h.sessionID,
	}
}

type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	filtered := handlers[:0]
	for _, h := range handlers {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) == 0 {
		return NoopHandler{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &fanoutHandler{handlers: append([]slog.Handler(nil), filtered...)}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for idx, handler := range h.handlers {
		// Only call Handle on handlers that accept this log level
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		if idx < len(h.handlers)-1 {
			rec = record.Clone()
		}
		if err := handler.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// TeeLogger duplicates log output from base into the provided handlers.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(newFanoutHandler(handlers...))
	}
	all := append([]slog.Handler{base.Handler()}, handlers...)
	return slog.New(newFanoutHandler(all...))
}
