// Package reportlog writes parse report entries as structured zap records.
package reportlog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
)

// Ensure Sink implements the interface.
var _ driven.ReportSink = (*Sink)(nil)

// Encodings accepted by New.
const (
	EncodingJSON    = "json"
	EncodingConsole = "console"
)

// Sink logs every report entry with its file origin.
type Sink struct {
	mu     sync.Mutex
	log    *zap.Logger
	closer io.Closer
}

// New creates a sink writing to w with the given encoding.
func New(w io.Writer, encoding string) (*Sink, error) {
	enc, err := newEncoder(encoding)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return &Sink{log: zap.New(core)}, nil
}

// Open creates a sink appending to the file at path.
func Open(path, encoding string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open report log: %w", err)
	}
	s, err := New(f, encoding)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

func newEncoder(encoding string) (zapcore.Encoder, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.LevelKey = "level"
	cfg.MessageKey = "message"

	switch encoding {
	case EncodingJSON, "":
		return zapcore.NewJSONEncoder(cfg), nil
	case EncodingConsole:
		return zapcore.NewConsoleEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown report log encoding %q: %w", encoding, domain.ErrInvalidInput)
	}
}

// Record logs the entries of one document.
func (s *Sink) Record(origin domain.Origin, entries []domain.ReportEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		fields := []zap.Field{
			zap.String("severity", e.Severity.String()),
			zap.String("code", string(e.Code)),
			zap.String("module", e.Module),
			zap.String("xml", origin.XMLPath),
			zap.String("zip", origin.ZipPath),
			zap.String("path", e.Path),
		}
		switch e.Severity {
		case domain.SeverityError:
			s.log.Error(e.Message, fields...)
		case domain.SeverityWarning:
			s.log.Warn(e.Message, fields...)
		default:
			s.log.Info(e.Message, fields...)
		}
	}
}

// Sync flushes buffered records.
func (s *Sink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Sync()
}

// Close flushes and closes the file opened by Open.
func (s *Sink) Close() error {
	err := s.Sync()
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.closer = nil
	}
	return err
}
