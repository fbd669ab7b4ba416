package logger

import (
	"fmt"
	"log/slog"
)

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func State(id any) slog.Attr {
	return slog.String("state", fmt.Sprint(id))
}

func Event(id any) slog.Attr {
	return slog.String("event", fmt.Sprint(id))
}

func Phase(name string) slog.Attr {
	return slog.String("phase", name)
}

func Pattern(name string) slog.Attr {
	return slog.String("pattern", name)
}

// Handle records a pool handle under "handle" using its String form.
func Handle(h fmt.Stringer) slog.Attr {
	if h == nil {
		return slog.Attr{}
	}
	return slog.String("handle", h.String())
}

// Error returns an empty Attr for a nil error so call sites need no guard.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}
