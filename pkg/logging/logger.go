package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide structured logger.
var Logger = log.New()

// InitLogging configures level and output. When filePath is set, entries are
// written to stdout and to a size-rotated file.
func InitLogging(level, filePath string) {
	Logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	Logger.SetLevel(lvl)

	var out io.Writer = os.Stdout
	if filePath != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	Logger.SetOutput(out)
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	Logger.Infof(format, v...)
}

// Warnf logs warning level messages
func Warnf(format string, v ...interface{}) {
	Logger.Warnf(format, v...)
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	Logger.Errorf(format, v...)
}

// WithFields returns an entry carrying the given structured fields.
func WithFields(fields log.Fields) *log.Entry {
	return Logger.WithFields(fields)
}
