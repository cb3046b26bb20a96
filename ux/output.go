// Package ux prints progress to the operator and mirrors it to the log.
package ux

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type UserLog struct {
	log    *zap.Logger
	Writer io.Writer
}

func NewUserLog(log *zap.Logger, userwriter io.Writer) *UserLog {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserLog{log: log, Writer: userwriter}
}

// Discard returns a UserLog that prints nothing, for tests.
func Discard() *UserLog {
	return NewUserLog(zap.NewNop(), io.Discard)
}

// NewLogger builds the structured logger. With a log file everything at
// debug (verbose) or info level goes there; otherwise verbose mode logs
// to stderr and quiet mode logs nowhere.
func NewLogger(verbose bool, logFile string) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	switch {
	case logFile != "":
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
		return cfg.Build()
	case verbose:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = level
		return cfg.Build()
	default:
		return zap.NewNop(), nil
	}
}

func (ul *UserLog) Logger() *zap.Logger {
	return ul.log
}

// PrintToUser prints msg directly on the screen, but also to log file
func (ul *UserLog) PrintToUser(msg string, args ...interface{}) {
	formatted := fmt.Sprintf(msg, args...)
	if ul == nil {
		fmt.Fprintln(os.Stdout, formatted)
		return
	}
	fmt.Fprintln(ul.Writer, formatted)
	ul.log.Info(formatted)
}

// Info prints to the log file
func (ul *UserLog) Info(msg string, fields ...zap.Field) {
	ul.log.Info(msg, fields...)
}

func (ul *UserLog) Debug(msg string, fields ...zap.Field) {
	ul.log.Debug(msg, fields...)
}

// Gray prints secondary progress output.
func (ul *UserLog) Gray(msg string, args ...interface{}) {
	ul.PrintToUser("%s", color.New(color.FgHiBlack).Sprintf(msg, args...))
}

// Warn prints a yellow warning and logs it at warn level.
func (ul *UserLog) Warn(msg string, args ...interface{}) {
	formatted := fmt.Sprintf(msg, args...)
	fmt.Fprintln(ul.Writer, color.New(color.FgYellow).Sprint(formatted))
	ul.log.Warn(formatted)
}

// Alert prints a bright red warning that must not be missed.
func (ul *UserLog) Alert(msg string, args ...interface{}) {
	formatted := fmt.Sprintf(msg, args...)
	fmt.Fprintln(ul.Writer, color.New(color.FgHiRed).Sprint("⚠ "+formatted))
	ul.log.Warn(formatted)
}

// GreenCheckmarkToUser prints a green checkmark to the user before the message
func (ul *UserLog) GreenCheckmarkToUser(msg string, args ...interface{}) {
	checkmark := "✓"
	green := color.New(color.FgHiGreen).SprintFunc()
	ul.PrintToUser(green(checkmark)+" "+msg, args...)
}

func (ul *UserLog) RedXToUser(msg string, args ...interface{}) {
	xmark := "✗"
	red := color.New(color.FgHiRed).SprintFunc()
	ul.PrintToUser(red(xmark)+" "+msg, args...)
}

// Section prints a phase heading.
func (ul *UserLog) Section(title string) {
	ul.Gray("\n------ %s ------\n", title)
}
