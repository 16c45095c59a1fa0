/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log configures the launcher's slog logger.
//
// Records go to the console (a compact one-line format, or JSON) and optionally to a
// rotated JSON file. Attributes attached to a context with ContextWith or DragContext are
// added to every record logged through the *Context methods, so all lines of one drag
// gesture carry the dragged item and its starting page.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"golaunchpad/internal/version"
)

// Options controls Init. FromEnv fills it from LP_LOG_LEVEL (debug|info|warn|error),
// LP_LOG_FORMAT (console|json), LP_LOG_SOURCE (true|false) and LP_LOG_FILE.
type Options struct {
	Level     string
	Format    string
	AddSource bool
	// File enables a rotated JSON log next to the console output.
	File string
	// Writer receives console output; nil means stderr.
	Writer io.Writer
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the process logger, configuring it from the environment on first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l == nil {
		Init(FromEnv())
		mu.RLock()
		l = current
		mu.RUnlock()
	}
	return l
}

// Init replaces the process logger and slog's default.
func Init(opts Options) {
	level := parseLevel(opts.Level)
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}

	var sinks []slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks = append(sinks, slog.NewJSONHandler(out, hopts))
	} else {
		sinks = append(sinks, &consoleHandler{w: out, level: level, source: opts.AddSource, mu: &sync.Mutex{}})
	}
	if f := strings.TrimSpace(opts.File); f != "" {
		rot := &lj.Logger{Filename: f, MaxSize: 5, MaxBackups: 3, MaxAge: 14}
		sinks = append(sinks, slog.NewJSONHandler(rot, hopts))
	}

	l := slog.New(&launchHandler{sinks: sinks}).With(
		slog.String("app", "golaunchpad"),
		slog.String("ver", version.Version),
	)
	mu.Lock()
	current = l
	mu.Unlock()
	slog.SetDefault(l)
}

// FromEnv reads Options from the LP_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("LP_LOG_LEVEL", "info"),
		Format:    getenv("LP_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(os.Getenv("LP_LOG_SOURCE"), "true"),
		File:      os.Getenv("LP_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger tagged with the emitting package.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with the operation being performed.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type ctxKey struct{}

// ContextWith returns a context whose records carry attrs after those already attached.
func ContextWith(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev := contextAttrs(ctx)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(append(merged, prev...), attrs...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

// DragContext tags records with the dragged item and the page the drag started on.
func DragContext(ctx context.Context, itemID string, page int) context.Context {
	return ContextWith(ctx, slog.Group("drag", slog.String("item", itemID), slog.Int("page", page)))
}

func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxKey{}).([]slog.Attr)
	return attrs
}

func parseLevel(s string) slog.Level {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		if strings.EqualFold(strings.TrimSpace(s), "warning") {
			return slog.LevelWarn
		}
		return slog.LevelInfo
	}
	return lv
}

// launchHandler adds context attributes to each record and hands it to every sink.
type launchHandler struct{ sinks []slog.Handler }

func (h *launchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *launchHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	var first error
	for _, s := range h.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *launchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &launchHandler{sinks: mapSinks(h.sinks, func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })}
}

func (h *launchHandler) WithGroup(name string) slog.Handler {
	return &launchHandler{sinks: mapSinks(h.sinks, func(s slog.Handler) slog.Handler { return s.WithGroup(name) })}
}

func mapSinks(in []slog.Handler, f func(slog.Handler) slog.Handler) []slog.Handler {
	out := make([]slog.Handler, len(in))
	for i, s := range in {
		out[i] = f(s)
	}
	return out
}

// consoleHandler writes one line per record:
//
//	15:04:05.000 INF launcher   layout changed op=drop effect=reordered drag.item=3f2a drag.page=0
//
// The component is pulled into its own column; the app and ver attributes are left to the
// JSON sinks.
type consoleHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Level
	source    bool
	component string
	prefix    string // open groups, dot-terminated
	attrs     []string
}

var consoleSkip = map[string]bool{"app": true, "ver": true}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(ts.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(padRight(h.component, 11))
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		b.WriteString(" src=")
		b.WriteString(filepath.Base(f.File))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.Line))
	}
	b.WriteByte('\n')
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := *h
	n.attrs = append([]string(nil), h.attrs...)
	for _, a := range attrs {
		if h.prefix == "" && a.Key == "component" {
			n.component = a.Value.String()
			continue
		}
		if h.prefix == "" && consoleSkip[a.Key] {
			continue
		}
		var b strings.Builder
		appendAttr(&b, h.prefix, a)
		if s := strings.TrimPrefix(b.String(), " "); s != "" {
			n.attrs = append(n.attrs, s)
		}
	}
	return &n
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	n := *h
	n.prefix = h.prefix + name + "."
	return &n
}

// appendAttr writes " key=value", flattening groups into dotted keys.
func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			appendAttr(b, p, g)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(valueString(a.Value))
}

func valueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return strconv.Quote(err.Error())
		}
	}
	return v.String()
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s + " "
	}
	return s + strings.Repeat(" ", n-len(s))
}
