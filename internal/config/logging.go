package config

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Logging is the loaded logging section.
type Logging struct {
	// Level is the logging level (debug, info, warn, error).
	Level string

	// Format is the log format (json, text).
	Format string
}

// LoadLogging reads log.level and log.format, defaulting to info and json.
func LoadLogging(vc *Viper) Logging {
	l := Logging{Level: "info", Format: "json"}
	if s := vc.GetString("log.level"); s != "" {
		l.Level = s
	}
	if s := vc.GetString("log.format"); s != "" {
		l.Format = s
	}
	return l
}

// maskedKeys are attribute keys whose values never reach the log output.
var maskedKeys = map[string]struct{}{
	"password":   {},
	"api_key":    {},
	"secret_key": {},
}

// NewLogger builds a slog logger writing to w.
func NewLogger(l Logging, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(l.Level)}

	var handler slog.Handler
	if strings.EqualFold(l.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&maskHandler{handler: handler})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type maskHandler struct {
	handler slog.Handler
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(maskAttr(attr))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = maskAttr(a)
	}
	return &maskHandler{handler: h.handler.WithAttrs(out)}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{handler: h.handler.WithGroup(name)}
}

func maskAttr(attr slog.Attr) slog.Attr {
	if _, found := maskedKeys[strings.ToLower(attr.Key)]; found {
		return slog.String(attr.Key, "***")
	}
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		masked := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			masked = append(masked, maskAttr(ga))
		}
		attr.Value = slog.GroupValue(masked...)
	}
	return attr
}
