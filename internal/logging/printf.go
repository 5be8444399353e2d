package logging

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// PrintfLogger adapts a Logger to libraries that log through Printf and
// Fatalf, such as goose.
type PrintfLogger struct {
	l    Logger
	exit func(int)
}

func NewPrintfLogger(l Logger) *PrintfLogger {
	return &PrintfLogger{l: l, exit: os.Exit}
}

// Printf logs at debug level.
func (p *PrintfLogger) Printf(format string, v ...any) {
	p.l.Debug(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf logs at error level and exits with status 1.
func (p *PrintfLogger) Fatalf(format string, v ...any) {
	p.l.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
	p.exit(1)
}
