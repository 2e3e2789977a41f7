package logging

import (
	"io"
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

const rootName = "cardadapter"

// New builds the process root logger. Unknown levels fall back to info.
func New(level string, out io.Writer) hclog.Logger {
	if out == nil {
		out = os.Stderr
	}
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   rootName,
		Level:  lvl,
		Output: out,
	})
}

// Discard returns a logger that drops everything. Used when callers pass nil.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}

// OrDiscard returns logger, or a null logger when it is nil.
func OrDiscard(logger hclog.Logger) hclog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
