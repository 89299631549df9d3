package logging

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// displayField is a formatted label/value pair ready for the console.
type displayField struct {
	label string
	value string
}

// infoHighlightKeys print before everything else, in this order.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	"script",
	"project",
	"mode",
	FieldActor,
	FieldProvider,
	FieldTier,
	"overlay",
	FieldProgressStage,
	FieldProgressPercent,
	FieldProgressMessage,
	"command",
	"error_message",
	FieldErrorHint,
	"status",
	"cache_decision",
	"scenes_total",
	"scenes_rendered",
	"scenes_cached",
	"scenes_failed",
	"paragraphs_total",
	"paragraphs_dropped",
	"poll_attempts",
	"stage_duration",
	"render_duration",
	"speech_duration",
	"audio_bytes",
	"video_bytes",
	"movie_bytes",
	"output_bytes",
	"reason",
}

// selectInfoFields formats the attrs worth showing on an info line and counts
// the ones withheld. A limit of 0 means unlimited; includeDebug admits keys
// normally reserved for debug output.
func selectInfoFields(fields []field, limit int, includeDebug bool) ([]displayField, int) {
	if len(fields) == 0 {
		return nil, 0
	}
	shown := make([]displayField, 0, len(fields))
	hidden := 0
	for _, f := range rankFields(fields) {
		if skipInfoKey(f.key) {
			continue
		}
		if !includeDebug && isDebugOnlyKey(f.key) {
			hidden++
			continue
		}
		value := formatValueForKey(f.key, f.value)
		if !includeDebug && shouldHideInfoValue(f.key, value) {
			hidden++
			continue
		}
		if limit > 0 && len(shown) >= limit {
			hidden++
			continue
		}
		shown = append(shown, displayField{label: displayLabel(f.key), value: value})
	}
	return shown, hidden
}

// rankFields orders attrs so highlight keys print first, preserving the
// original order within each tier.
func rankFields(fields []field) []field {
	priority := make(map[string]int, len(infoHighlightKeys))
	for i, key := range infoHighlightKeys {
		priority[key] = i
	}
	ranked := make([]field, len(fields))
	copy(ranked, fields)
	slices.SortStableFunc(ranked, func(a, b field) int {
		pa, oka := priority[a.key]
		pb, okb := priority[b.key]
		switch {
		case oka && okb:
			return cmp.Compare(pa, pb)
		case oka:
			return -1
		case okb:
			return 1
		}
		return 0
	})
	return ranked
}

// formatValueForKey applies unit-aware formatting keyed off naming
// conventions: *_bytes, *_duration, *_percent, and friends.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case hasSuffixIn(key, "_bytes", "_size") || key == "size":
		if n, ok := intValue(v); ok {
			return formatBytes(n)
		}
	case hasSuffixIn(key, "_duration", "_elapsed", "_latency") || key == "duration" || key == "elapsed" || key == "backoff":
		if v.Kind() == slog.KindDuration {
			return formatDurationHuman(v.Duration())
		}
	case strings.HasSuffix(key, "_percent"):
		if v.Kind() == slog.KindFloat64 {
			return formatPercent(v.Float64())
		}
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	out := formatValue(v)
	if key == "error" || key == "error_message" {
		out = clipErrorText(out)
	}
	return out
}

func hasSuffixIn(key string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}
	return false
}

func intValue(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	}
	return 0, false
}

func clipErrorText(value string) string {
	value = strings.TrimSpace(value)
	const max = 200
	if len(value) > max {
		return value[:max] + "…"
	}
	return value
}

// skipInfoKey drops attrs the header already shows.
func skipInfoKey(key string) bool {
	switch key {
	case "", FieldScene, FieldParagraph, FieldStage, FieldComponent:
		return true
	}
	return false
}

var debugOnlyKeys = map[string]bool{
	FieldCorrelationID: true,
	"voice_id":         true,
	"avatar_id":        true,
	"avatar_style":     true,
	"asset_id":         true,
	"speech_model":     true,
	"model_id":         true,
	"attempt":          true,
	"poll_interval":    true,
	"content_type":     true,
	"http_status":      true,
}

// isDebugOnlyKey hides identifiers, paths, and wire details at info level.
func isDebugOnlyKey(key string) bool {
	if key == "" || debugOnlyKeys[key] {
		return true
	}
	switch {
	case strings.Contains(key, "correlation"):
		return true
	case strings.HasSuffix(key, "_digest") || key == "digest":
		return true
	case strings.HasSuffix(key, "_id"):
		return true
	case strings.HasPrefix(key, "ffprobe."):
		return true
	case strings.Contains(key, "_path") || strings.Contains(key, "_dir"):
		return true
	case strings.HasSuffix(key, "_url") || key == "url":
		return true
	}
	return false
}

// shouldHideInfoValue suppresses long values at info level, except the ones a
// reader needs to act on a failure.
func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error", "error_message", "command", "reason":
		return false
	}
	return len(value) > 120
}

var fieldLabels = map[string]string{
	FieldAlert:           "Alert",
	FieldEventType:       "Event",
	FieldDecisionType:    "Decision",
	FieldErrorHint:       "Hint",
	FieldActor:           "Actor",
	FieldProvider:        "Provider",
	FieldTier:            "Tier",
	FieldScene:           "Scene",
	FieldStage:           "Stage",
	"script":             "Script",
	"project":            "Project",
	"mode":               "Mode",
	"overlay":            "Overlay",
	FieldProgressStage:   "Progress Stage",
	FieldProgressMessage: "Progress",
	FieldProgressPercent: "Percent",
	"cache_decision":     "Cache",
	"scenes_total":       "Scenes",
	"scenes_rendered":    "Rendered",
	"scenes_cached":      "From Cache",
	"scenes_failed":      "Failed",
	"paragraphs_total":   "Paragraphs",
	"paragraphs_dropped": "Dropped",
	"poll_attempts":      "Polls",
	"stage_duration":     "Duration",
	"render_duration":    "Render Time",
	"speech_duration":    "Speech Time",
	"audio_bytes":        "Audio",
	"video_bytes":        "Video",
	"movie_bytes":        "Movie Size",
	"output_bytes":       "Output",
	"reason":             "Reason",
}

func displayLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	return titleizeKey(key)
}

func titleizeKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(words) == 0 {
		words = []string{key}
	}
	for i, word := range words {
		words[i] = capitalizeWord(word)
	}
	return strings.Join(words, " ")
}

func capitalizeWord(word string) string {
	if word == "" {
		return ""
	}
	lower := strings.ToLower(word)
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}
