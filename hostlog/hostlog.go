// Package hostlog delivers guest diagnostics to the host.
//
// Every log entry is encoded on one line and handed to a Sink as a single
// call. Inside a wasip1 guest the default sink is the env.host_log_string
// import; elsewhere it writes to standard error.
package hostlog

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink receives one encoded log entry per call, without a line ending.
type Sink interface {
	Log(entry string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(entry string)

func (f SinkFunc) Log(entry string) { f(entry) }

// WriterSink writes entries to W, one per line.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Log(entry string) {
	_, _ = io.WriteString(s.W, entry+"\n")
}

// DefaultSink returns the platform sink.
func DefaultSink() Sink {
	return defaultSink()
}

// New returns a logger writing to the platform sink at level and above.
func New(level zapcore.LevelEnabler) *zap.Logger {
	return NewWithSink(DefaultSink(), level)
}

// NewWithSink returns a logger writing to sink at level and above.
func NewWithSink(sink Sink, level zapcore.LevelEnabler) *zap.Logger {
	return zap.New(NewCore(sink, level))
}

// NewCore returns a console-encoded core forwarding to sink.
func NewCore(sink Sink, level zapcore.LevelEnabler) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(EncoderConfig()), &syncer{sink: sink}, level)
}

// EncoderConfig is the entry layout used for host delivery. Timestamps are
// omitted; the host stamps entries on arrival.
func EncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.LowercaseLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
}

type syncer struct {
	sink Sink
}

func (s *syncer) Write(p []byte) (int, error) {
	s.sink.Log(strings.TrimRight(string(p), "\r\n"))
	return len(p), nil
}

func (s *syncer) Sync() error { return nil }
