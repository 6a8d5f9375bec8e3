package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Setup wires the process-wide structured logger: JSON lines on stdout tagged
// with the service name and environment. The dev environment lowers the
// threshold to debug so local runs show every escrow movement.
func Setup(service, env string) *slog.Logger {
	return SetupWriter(os.Stdout, service, env)
}

// SetupWriter is Setup with an explicit destination. Tests use it to capture
// the emitted lines.
func SetupWriter(w io.Writer, service, env string) *slog.Logger {
	env = strings.TrimSpace(env)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       LevelFor(env),
		ReplaceAttr: renameCoreAttrs,
	})

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(service)),
	}
	if env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the standard library logger so existing packages continue to work.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// LevelFor maps the configured environment onto the minimum log level.
func LevelFor(env string) slog.Level {
	if strings.EqualFold(strings.TrimSpace(env), "dev") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// renameCoreAttrs normalizes the built-in slog keys to the field names the
// log pipeline indexes on.
func renameCoreAttrs(groups []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		return slog.Attr{Key: "timestamp", Value: attr.Value}
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		return slog.Attr{Key: "message", Value: attr.Value}
	}
	return attr
}
