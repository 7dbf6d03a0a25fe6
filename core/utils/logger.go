package utils

import (
	"fmt"
	"log"
	"os"
)

// Logger is a minimal leveled logger. A nil *Logger is safe to call.
type Logger struct {
	out *log.Logger
}

func NewLogger() *Logger {
	return &Logger{out: log.New(os.Stderr, "", log.LstdFlags|log.LUTC)}
}

func (l *Logger) Debugf(format string, args ...any) { l.printf("DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.printf("INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.printf("WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.printf("ERROR", format, args...) }

func (l *Logger) printf(level, format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	l.out.Printf("%s %s", level, fmt.Sprintf(format, args...))
}
