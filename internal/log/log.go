// Package log provides structured, colored logging for the swap engine.
//
// Command output goes to stdout, so every logger here writes to stderr or
// a file.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	Quote   zerolog.Logger
	Planner zerolog.Logger
	RPC     zerolog.Logger
	Wallet  zerolog.Logger
	Ledger  zerolog.Logger
)

const timeFormat = "15:04:05"

func init() {
	setLogger(console(os.Stderr), "info")
}

// Init configures the global logger. With a file, lines go to both the
// console and the file; the file always gets JSON.
func Init(level string, jsonOutput bool, file string) error {
	var w io.Writer = os.Stderr
	if !jsonOutput {
		w = console(os.Stderr)
	}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w = zerolog.MultiLevelWriter(w, f)
	}
	setLogger(w, level)
	return nil
}

// SetOutput sends JSON lines to w. Tests use it to capture output.
func SetOutput(w io.Writer, level string) {
	setLogger(w, level)
}

func console(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
}

func setLogger(w io.Writer, level string) {
	Logger = zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
	Quote = component("quote")
	Planner = component("planner")
	RPC = component("rpc")
	Wallet = component("wallet")
	Ledger = component("ledger")
}

func component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "off", "disabled":
		return zerolog.Disabled
	case "":
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// WithPlan returns the planner logger tagged with a plan id.
func WithPlan(planID string) zerolog.Logger {
	return Planner.With().Str("plan_id", planID).Logger()
}
