package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating log file. Service, when set, names the
// binary on every line.
type FileOptions struct {
	Service    string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (o FileOptions) attrs() []any {
	if o.Service == "" {
		return nil
	}
	return []any{ServiceKey, o.Service}
}

func (o FileOptions) writer() *lumberjack.Logger {
	size := o.MaxSizeMB
	if size <= 0 {
		size = 100
	}
	return &lumberjack.Logger{
		Filename:   o.Path,
		MaxSize:    size,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   o.Compress,
	}
}

// New builds the JSON slog logger used by the binaries. Output goes to
// stdout and, when opts.Path is set, to a rotating file. The returned closer
// releases the file and is never nil.
func New(opts FileOptions) (*SlogLogger, io.Closer) {
	return newWithStdout(os.Stdout, opts)
}

func newWithStdout(stdout io.Writer, opts FileOptions) (*SlogLogger, io.Closer) {
	var (
		out              = stdout
		closer io.Closer = nopCloser{}
	)
	if opts.Path != "" {
		lj := opts.writer()
		out = io.MultiWriter(stdout, lj)
		closer = lj
	}
	return NewSlogLogger(slog.New(slog.NewJSONHandler(out, nil)), opts.attrs()...), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewFileLogger logs JSON only to the rotating file, or nowhere when
// opts.Path is empty. Interactive tools use it to keep the terminal clean.
func NewFileLogger(opts FileOptions) (*SlogLogger, io.Closer) {
	if opts.Path == "" {
		return NewSlogLogger(slog.New(slog.DiscardHandler)), nopCloser{}
	}
	lj := opts.writer()
	return NewSlogLogger(slog.New(slog.NewJSONHandler(lj, nil)), opts.attrs()...), lj
}
