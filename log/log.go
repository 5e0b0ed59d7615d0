// Package log supplies leveled logging for evalloc packages.
// Applications can plug in their own logger by implementing the
// Logger interface, else a default logger writing to console, or to
// a log file, is used.
package log

import "fmt"
import "io"
import "os"
import "strings"
import "sync"
import "time"

// Logger interface for evalloc logging.
type Logger interface {
	SetLogLevel(string)
	Fatalf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Verbosef(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Tracef(format string, v ...interface{})
	Printlf(loglevel LogLevel, format string, v ...interface{})
}

// LogLevel defines log level.
type LogLevel int

const (
	logLevelIgnore LogLevel = iota + 1
	logLevelFatal
	logLevelError
	logLevelWarn
	logLevelInfo
	logLevelVerbose
	logLevelDebug
	logLevelTrace
)

const timeformat = "2006-01-02T15:04:05.999Z-07:00"

var log Logger

func init() {
	SetLogger(nil, Defaultsettings())
}

// Defaultsettings for default logger.
//
// "log.level" (string, default: "info")
//		One of ignore, fatal, error, warn, info, verbose, debug, trace.
//
// "log.file" (string, default: "")
//		Append log to file, empty string log to os.Stdout.
//
// "log.prefix" (string, default: "")
//		Prefix every log line with this string.
func Defaultsettings() map[string]interface{} {
	return map[string]interface{}{
		"log.level":  "info",
		"log.file":   "",
		"log.prefix": "",
	}
}

// SetLogger to integrate evalloc logging with application logging.
// If `logger` is nil, a default logger is created from `setts`,
// missing parameters fall back to Defaultsettings().
func SetLogger(logger Logger, setts map[string]interface{}) Logger {
	if logger != nil {
		log = logger
		return log
	}

	params := Defaultsettings()
	for key, value := range setts {
		params[key] = value
	}
	level := string2logLevel(params["log.level"].(string))
	output := io.Writer(os.Stdout)
	if logfile := params["log.file"].(string); logfile != "" {
		flags := os.O_RDWR | os.O_APPEND | os.O_CREATE
		fd, err := os.OpenFile(logfile, flags, 0660)
		if err != nil {
			panic(fmt.Errorf("log.file %q: %v", logfile, err))
		}
		output = fd
	}
	log = &defaultLogger{
		level: level, output: output, prefix: params["log.prefix"].(string),
	}
	return log
}

// SetLogLevel on the active logger.
func SetLogLevel(level string) {
	log.SetLogLevel(level)
}

// defaultLogger writes timestamped, level tagged lines to output.
type defaultLogger struct {
	mu     sync.Mutex
	level  LogLevel
	output io.Writer
	prefix string
}

func (l *defaultLogger) SetLogLevel(level string) {
	l.mu.Lock()
	l.level = string2logLevel(level)
	l.mu.Unlock()
}

func (l *defaultLogger) Fatalf(format string, v ...interface{}) {
	l.Printlf(logLevelFatal, format, v...)
}

func (l *defaultLogger) Errorf(format string, v ...interface{}) {
	l.Printlf(logLevelError, format, v...)
}

func (l *defaultLogger) Warnf(format string, v ...interface{}) {
	l.Printlf(logLevelWarn, format, v...)
}

func (l *defaultLogger) Infof(format string, v ...interface{}) {
	l.Printlf(logLevelInfo, format, v...)
}

func (l *defaultLogger) Verbosef(format string, v ...interface{}) {
	l.Printlf(logLevelVerbose, format, v...)
}

func (l *defaultLogger) Debugf(format string, v ...interface{}) {
	l.Printlf(logLevelDebug, format, v...)
}

func (l *defaultLogger) Tracef(format string, v ...interface{}) {
	l.Printlf(logLevelTrace, format, v...)
}

func (l *defaultLogger) Printlf(level LogLevel, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > l.level || l.output == nil {
		return
	}
	line := fmt.Sprintf(format, v...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	ts := time.Now().Format(timeformat)
	fmt.Fprintf(l.output, "%s [%s] %s%s", ts, level, l.prefix, line)
}

func (l LogLevel) String() string {
	switch l {
	case logLevelIgnore:
		return "Ignor"
	case logLevelFatal:
		return "Fatal"
	case logLevelError:
		return "Error"
	case logLevelWarn:
		return "Warng"
	case logLevelInfo:
		return "Infom"
	case logLevelVerbose:
		return "Verbs"
	case logLevelDebug:
		return "Debug"
	case logLevelTrace:
		return "Trace"
	}
	panic(fmt.Errorf("unexpected log level %d", int(l)))
}

func string2logLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "ignore":
		return logLevelIgnore
	case "fatal":
		return logLevelFatal
	case "error":
		return logLevelError
	case "warn":
		return logLevelWarn
	case "info":
		return logLevelInfo
	case "verbose":
		return logLevelVerbose
	case "debug":
		return logLevelDebug
	case "trace":
		return logLevelTrace
	}
	panic(fmt.Errorf("unexpected log level %q", s))
}

// Fatalf log at fatal level, does not exit.
func Fatalf(format string, v ...interface{}) {
	log.Printlf(logLevelFatal, format, v...)
}

// Errorf log at error level.
func Errorf(format string, v ...interface{}) {
	log.Printlf(logLevelError, format, v...)
}

// Warnf log at warn level.
func Warnf(format string, v ...interface{}) {
	log.Printlf(logLevelWarn, format, v...)
}

// Infof log at info level.
func Infof(format string, v ...interface{}) {
	log.Printlf(logLevelInfo, format, v...)
}

// Verbosef log at verbose level.
func Verbosef(format string, v ...interface{}) {
	log.Printlf(logLevelVerbose, format, v...)
}

// Debugf log at debug level.
func Debugf(format string, v ...interface{}) {
	log.Printlf(logLevelDebug, format, v...)
}

// Tracef log at trace level.
func Tracef(format string, v ...interface{}) {
	log.Printlf(logLevelTrace, format, v...)
}
