package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records as a timestamped header followed by an
// indented field list. Info lines show a curated field subset and suppress
// values already printed for the same subject; debug lines dump every attr.
type consoleHandler struct {
	mu     sync.Mutex
	out    io.Writer
	level  *slog.LevelVar
	caller bool
	attrs  []slog.Attr
	groups []string
	seen   map[string]map[string]string
}

func newConsoleHandler(w io.Writer, level *slog.LevelVar, caller bool) slog.Handler {
	return &consoleHandler{out: w, level: level, caller: caller, seen: make(map[string]map[string]string)}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.fork()
	next.attrs = append(next.attrs, attrs...)
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	next := h.fork()
	next.groups = append(next.groups, name)
	return next
}

// fork copies the handler configuration while sharing the writer, level, and
// repeat-suppression state with the parent.
func (h *consoleHandler) fork() *consoleHandler {
	next := &consoleHandler{out: h.out, level: h.level, caller: h.caller, seen: h.seen}
	next.attrs = append(next.attrs, h.attrs...)
	next.groups = append(next.groups, h.groups...)
	return next
}

// field is one flattened key/value pair; group names join the key with dots.
type field struct {
	key   string
	value slog.Value
}

// lineSubject carries the identity attrs promoted out of the field list and
// into the header.
type lineSubject struct {
	component string
	scene     string
	paragraph string
	stage     string
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	all := make([]field, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		gatherFields(&all, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		gatherFields(&all, h.groups, attr)
		return true
	})
	all = collapseFields(all)

	var subject lineSubject
	visible := make([]field, 0, len(all))
	for _, f := range all {
		switch f.key {
		case FieldComponent:
			if subject.component == "" {
				subject.component = attrString(f.value)
			}
			continue
		case FieldScene:
			if subject.scene == "" {
				subject.scene = attrString(f.value)
			}
		case FieldParagraph:
			if subject.paragraph == "" {
				subject.paragraph = attrString(f.value)
			}
		case FieldStage:
			if subject.stage == "" {
				subject.stage = attrString(f.value)
			}
		}
		visible = append(visible, f)
	}

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(visible)*32)
	h.writeHeader(&buf, ts, record.Level, subject, message, recordSource(record))

	h.mu.Lock()
	defer h.mu.Unlock()
	if record.Level < slog.LevelInfo {
		writeDebugFields(&buf, all)
	} else {
		h.writeInfoFields(&buf, record.Level, subject, visible)
	}
	_, err := h.out.Write(buf.Bytes())
	return err
}

// recordSource mirrors slog.Record.Source, which is unavailable before Go 1.25.
func recordSource(record slog.Record) *slog.Source {
	if record.PC == 0 {
		return nil
	}
	frames := runtime.CallersFrames([]uintptr{record.PC})
	frame, _ := frames.Next()
	return &slog.Source{Function: frame.Function, File: frame.File, Line: frame.Line}
}

func (h *consoleHandler) writeHeader(buf *bytes.Buffer, ts time.Time, level slog.Level, subject lineSubject, message string, src *slog.Source) {
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(level))
	if subject.component != "" {
		buf.WriteString(" [")
		buf.WriteString(subject.component)
		buf.WriteByte(']')
	}
	if line := FormatSubject(subject.scene, subject.paragraph, subject.stage); line != "" {
		buf.WriteByte(' ')
		buf.WriteString(line)
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if h.caller && src != nil {
		buf.WriteString(" [")
		buf.WriteString(filepath.Base(src.File))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(src.Line))
		buf.WriteByte(']')
	}
	buf.WriteByte('\n')
}

func (h *consoleHandler) writeInfoFields(buf *bytes.Buffer, level slog.Level, subject lineSubject, fields []field) {
	display, hidden := selectInfoFields(fields, 0, false)
	display, hidden = h.suppressRepeats(summaryKey(subject, fields), level, display, hidden)
	for _, f := range display {
		buf.WriteString("    - ")
		buf.WriteString(f.label)
		buf.WriteString(": ")
		buf.WriteString(f.value)
		buf.WriteByte('\n')
	}
	if hidden > 0 {
		buf.WriteString("    + ")
		buf.WriteString(strconv.Itoa(hidden))
		if hidden == 1 {
			buf.WriteString(" more field hidden\n")
		} else {
			buf.WriteString(" more fields hidden\n")
		}
	}
}

func writeDebugFields(buf *bytes.Buffer, fields []field) {
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		buf.WriteString("    ")
		buf.WriteString(f.key)
		buf.WriteString(": ")
		buf.WriteString(formatValue(f.value))
		buf.WriteByte('\n')
	}
}

// suppressRepeats drops info fields whose value already printed for the same
// subject. Warn and error lines print in full but still refresh the cache.
func (h *consoleHandler) suppressRepeats(key string, level slog.Level, fields []displayField, hidden int) ([]displayField, int) {
	if key == "" || len(fields) == 0 {
		return fields, hidden
	}
	cache := h.seen[key]
	if cache == nil {
		cache = make(map[string]string)
		h.seen[key] = cache
	}
	if level > slog.LevelInfo {
		for _, f := range fields {
			cache[f.label] = f.value
		}
		return fields, hidden
	}
	kept := make([]displayField, 0, len(fields))
	for _, f := range fields {
		if prev, ok := cache[f.label]; ok && prev == f.value {
			continue
		}
		cache[f.label] = f.value
		kept = append(kept, f)
	}
	return kept, hidden
}

// summaryKey identifies the subject a line talks about so repeat suppression
// scopes per scene, falling back to script, project, then component for
// document-level lines.
func summaryKey(subject lineSubject, fields []field) string {
	if scene := strings.TrimSpace(subject.scene); scene != "" {
		return scene
	}
	if script := fieldValue(fields, "script"); script != "" {
		return "script:" + script
	}
	if project := fieldValue(fields, "project"); project != "" {
		return "project:" + project
	}
	return subject.component
}

func fieldValue(fields []field, key string) string {
	for _, f := range fields {
		if f.key == key {
			return attrString(f.value)
		}
	}
	return ""
}

func gatherFields(dst *[]field, groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		scope := groups
		if attr.Key != "" {
			scope = append(groups[:len(groups):len(groups)], attr.Key)
		}
		for _, member := range attr.Value.Group() {
			gatherFields(dst, scope, member)
		}
		return
	}
	key := attr.Key
	if len(groups) > 0 {
		if key == "" {
			key = strings.Join(groups, ".")
		} else {
			key = strings.Join(groups, ".") + "." + key
		}
	}
	*dst = append(*dst, field{key: key, value: attr.Value})
}

// collapseFields keeps one entry per key at its first position, with the value
// from the last occurrence winning.
func collapseFields(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		if at, ok := index[f.key]; ok {
			out[at].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
