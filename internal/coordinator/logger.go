package coordinator

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// fileLogger writes timestamped lines to a rotating log file
type fileLogger struct {
	w io.Writer
}

// Logf writes one formatted, timestamped log line
func (l *fileLogger) Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	_, _ = fmt.Fprintf(l.w, "[%s] %s\n", timestamp, msg)
}

// NewFileLogger returns a Logger backed by a size-rotated log file and
// the io.Closer that owns it. The caller closes it on shutdown.
func NewFileLogger(path string) (Logger, io.Closer) {
	logF := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	}
	return &fileLogger{w: logF}, logF
}

// NewWriterLogger returns a Logger writing to an arbitrary writer.
// Used by tests and by the serve command's stderr mode.
func NewWriterLogger(w io.Writer) Logger {
	return &fileLogger{w: w}
}
