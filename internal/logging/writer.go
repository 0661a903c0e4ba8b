package logging

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// Writer is an io.Writer that forwards complete lines to slog. Partial
// lines are buffered until the next newline or Flush.
type Writer struct {
	logger *slog.Logger
	level  slog.Level
	msg    string

	mu  sync.Mutex
	buf []byte
}

// NewWriter constructs a Writer logging each line as msg at level.
func NewWriter(logger *slog.Logger, level Level, msg string) *Writer {
	return &Writer{logger: logger, level: slog.Level(level), msg: msg}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush logs any buffered partial line.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emit(w.buf)
	w.buf = nil
}

func (w *Writer) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if w.logger == nil || len(line) == 0 {
		return
	}
	w.logger.Log(context.Background(), w.level, w.msg, slog.String("line", string(line)))
}
