package log

import "bytes"
import "os"
import "path/filepath"
import "strings"
import "testing"

import "github.com/stretchr/testify/require"

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil, Defaultsettings())

	ref := &defaultLogger{level: logLevelIgnore, output: nil}
	logger := SetLogger(ref, nil).(*defaultLogger)
	require.Equal(t, logLevelIgnore, logger.level)
	require.Nil(t, logger.output)

	logfile := filepath.Join(t.TempDir(), "setlogger_test.log")
	setts := map[string]interface{}{
		"log.level":  "info",
		"log.file":   logfile,
		"log.prefix": "malloc: ",
	}
	clog := SetLogger(nil, setts)
	clog.Infof("hello %v", "world")
	clog.Verbosef("not logged")
	clog.Errorf("error line\n")
	clog.Tracef("not logged")
	Debugf("not logged")
	Warnf("warn line")

	data, err := os.ReadFile(logfile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "[Infom] malloc: hello world")
	require.Contains(t, lines[1], "[Error] malloc: error line")
	require.Contains(t, lines[2], "[Warng] malloc: warn line")
}

func TestSetLogLevel(t *testing.T) {
	defer SetLogger(nil, Defaultsettings())

	buf := new(bytes.Buffer)
	SetLogger(&defaultLogger{level: logLevelInfo, output: buf}, nil)
	Verbosef("dropped")
	require.Zero(t, buf.Len())

	SetLogLevel("verbose")
	Verbosef("kept")
	require.Contains(t, buf.String(), "[Verbs] kept")

	SetLogLevel("ignore")
	Fatalf("dropped")
	require.NotContains(t, buf.String(), "dropped")
}

func TestLogPrefix(t *testing.T) {
	ref := map[LogLevel]string{
		logLevelIgnore: "Ignor", logLevelFatal: "Fatal", logLevelError: "Error",
		logLevelWarn: "Warng", logLevelInfo: "Infom", logLevelVerbose: "Verbs",
		logLevelDebug: "Debug", logLevelTrace: "Trace",
	}
	for level, s := range ref {
		if x := level.String(); x != s {
			t.Errorf("expected %v, got %v", s, x)
		}
	}
}

func TestLogLevelSettings(t *testing.T) {
	ref := map[string]LogLevel{
		"ignore": logLevelIgnore, "fatal": logLevelFatal, "error": logLevelError,
		"warn": logLevelWarn, "INFO": logLevelInfo, "verbose": logLevelVerbose,
		"debug": logLevelDebug, "trace": logLevelTrace,
	}
	for s, level := range ref {
		if x := string2logLevel(s); x != level {
			t.Errorf("expected %v, got %v", level, x)
		}
	}
	require.Panics(t, func() { string2logLevel("loud") })
}
