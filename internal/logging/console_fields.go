package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	infoAttrLimit      = 8
	logTimestampLayout = "2006-01-02 15:04:05"
)

type infoField struct {
	label string
	value string
}

// Keys listed here are shown first, in this order.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	"decision_result",
	"decision_reason",
	"error",
	FieldErrorKind,
	FieldErrorHint,
	"impact",
	"strategy",
	"score",
	"title",
	"artist",
	"album",
	"release_id",
	"recording_id",
	"candidates",
	"queue_length",
	"retry",
	"target_path",
}

// selectInfoFields returns formatted info-level fields and a count of hidden
// entries. limit=0 means no limit.
func selectInfoFields(attrs []kv, limit int) ([]infoField, int) {
	ordered := make([]kv, 0, len(attrs))
	used := make(map[string]bool, len(attrs))
	for _, key := range infoHighlightKeys {
		for _, attr := range attrs {
			if attr.key == key && !used[key] {
				ordered = append(ordered, attr)
				used[key] = true
			}
		}
	}
	for _, attr := range attrs {
		if !used[attr.key] {
			ordered = append(ordered, attr)
			used[attr.key] = true
		}
	}

	fields := make([]infoField, 0, len(ordered))
	hidden := 0
	for _, attr := range ordered {
		if skipInfoKey(attr.key) {
			continue
		}
		if isDebugOnlyKey(attr.key) {
			hidden++
			continue
		}
		value := formatValue(attr.value)
		if len(value) > 160 && attr.key != "error" {
			hidden++
			continue
		}
		if limit > 0 && len(fields) >= limit {
			hidden++
			continue
		}
		fields = append(fields, infoField{label: displayLabel(attr.key), value: value})
	}
	return fields, hidden
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldJobID, FieldStage, FieldComponent:
		return true
	}
	return false
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldCorrelationID, "fingerprint", "duration_seconds", "run_id":
		return true
	}
	return strings.HasSuffix(key, "_url") || strings.HasPrefix(key, "score_")
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldDecisionType, "decision_result":
		return "Decision"
	case FieldErrorHint:
		return "Hint"
	case FieldErrorKind:
		return "Kind"
	case "release_id":
		return "Release"
	case "recording_id":
		return "Recording"
	case "queue_length":
		return "Queued"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		lower := strings.ToLower(part)
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(v)
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r < ' ' || r == '"' {
			return true
		}
	}
	return false
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}
