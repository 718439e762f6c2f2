package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Logger provides leveled, timestamped logging throughout the application.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	debugEnabled bool
	loc          *time.Location
}

// NewLogger creates a Logger writing info/warn/debug to stdout and errors to
// stderr. Debug output is enabled when LOG_LEVEL=debug.
func NewLogger() *Logger {
	l := newLogger(os.Stdout, os.Stderr)
	l.debugEnabled = strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug")
	return l
}

// NewLoggerTo creates a Logger sending every level, debug included, to w.
func NewLoggerTo(w io.Writer) *Logger {
	l := newLogger(w, w)
	l.debugEnabled = true
	return l
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	l := newLogger(io.Discard, io.Discard)
	return l
}

func newLogger(out, errOut io.Writer) *Logger {
	flags := 0
	return &Logger{
		info:  log.New(out, "", flags),
		warn:  log.New(out, "", flags),
		err:   log.New(errOut, "", flags),
		debug: log.New(out, "", flags),
		loc:   ShanghaiLocation(),
	}
}

func (l *Logger) timestamp() string {
	return time.Now().In(l.loc).Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] \033[32mINFO\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] \033[33mWARN\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] \033[31mERROR\033[0m %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugEnabled {
		return
	}
	l.debug.Printf(fmt.Sprintf("[%s] \033[36mDEBUG\033[0m %s\n", l.timestamp(), format), args...)
}
