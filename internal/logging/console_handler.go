package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const logTimestampLayout = "2006-01-02 15:04:05"

// levelStyles maps a level floor to its label and ANSI colour, highest first.
var levelStyles = []struct {
	floor  slog.Level
	label  string
	colour string
}{
	{slog.LevelError, "ERROR", "\x1b[31m"},
	{slog.LevelWarn, "WARN", "\x1b[33m"},
	{slog.LevelInfo, "INFO", "\x1b[36m"},
	{slog.LevelDebug - 100, "DEBUG", "\x1b[90m"},
}

const ansiReset = "\x1b[0m"

// consoleHandler writes a single header line per record,
//
//	2024-03-01 09:30:00 INFO [linkage] 00000001.xml - scan matched
//
// followed by one "    - key: value" line per remaining attribute. The
// component and file attributes are lifted into the header.
type consoleHandler struct {
	out       *lockedWriter
	level     *slog.LevelVar
	preset    []field
	groups    []string
	addSource bool
	color     bool
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource, color bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: lvl, addSource: addSource, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	fields := fieldList(append([]field(nil), h.preset...))
	record.Attrs(func(attr slog.Attr) bool {
		fields.collect(h.groups, attr)
		return true
	})
	fields = fields.dedupe()
	component := fields.take(FieldComponent)
	file := fields.take(FieldFile)

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var b strings.Builder
	b.WriteString(when.In(time.Local).Format(logTimestampLayout))
	b.WriteString(" " + h.label(record.Level))
	if component != "" {
		b.WriteString(" [" + component + "]")
	}
	if file != "" {
		b.WriteString(" " + file)
	}
	b.WriteString(" - " + message)
	if src := record.Source(); h.addSource && src != nil {
		fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
	}
	b.WriteByte('\n')
	for _, f := range fields {
		b.WriteString("    - " + f.key + ": " + renderValue(f.value, true) + "\n")
	}
	return h.out.write([]byte(b.String()))
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.derive()
	list := fieldList(next.preset)
	for _, attr := range attrs {
		list.collect(h.groups, attr)
	}
	next.preset = list
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	next := h.derive()
	next.groups = append(next.groups, name)
	return next
}

func (h *consoleHandler) derive() *consoleHandler {
	next := *h
	next.preset = append([]field(nil), h.preset...)
	next.groups = append([]string(nil), h.groups...)
	return &next
}

func (h *consoleHandler) label(level slog.Level) string {
	for _, style := range levelStyles {
		if level < style.floor {
			continue
		}
		if h.color {
			return style.colour + style.label + ansiReset
		}
		return style.label
	}
	return level.String()
}

type field struct {
	key   string
	value slog.Value
}

type fieldList []field

// collect appends attr, flattening groups into dotted keys.
func (l *fieldList) collect(prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	path := prefix
	if attr.Key != "" {
		path = append(append([]string(nil), prefix...), attr.Key)
	}
	if value.Kind() == slog.KindGroup {
		for _, member := range value.Group() {
			l.collect(path, member)
		}
		return
	}
	if len(path) == 0 {
		return
	}
	*l = append(*l, field{key: strings.Join(path, "."), value: value})
}

// dedupe keeps each key at its first position with its last value.
func (l fieldList) dedupe() fieldList {
	index := make(map[string]int, len(l))
	out := make(fieldList, 0, len(l))
	for _, f := range l {
		if at, seen := index[f.key]; seen {
			out[at].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

// take removes key and returns its unquoted rendering.
func (l *fieldList) take(key string) string {
	for i, f := range *l {
		if f.key == key {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return renderValue(f.value, false)
		}
	}
	return ""
}

func renderValue(v slog.Value, quote bool) string {
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
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(logTimestampLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if quote && (s == "" || strings.ContainsFunc(s, func(r rune) bool { return r < ' ' || r == '"' })) {
		return strconv.Quote(s)
	}
	return s
}
