// ABOUTME: Builds the process slog.Logger from persistent cobra logging flags
// ABOUTME: Logs go to stderr by default so stdout stays reserved for command output
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	FormatFlagName = "log-format"
	LevelFlagName  = "log-level"
	OutputFlagName = "log-output"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

const (
	OutputStderr = "stderr"
	OutputStdout = "stdout"
)

// RegisterLoggingFlags adds the logging flags to flagset
func RegisterLoggingFlags(flagset *pflag.FlagSet) {
	flagset.String(FormatFlagName, FormatText, "log format: text or json")
	flagset.String(LevelFlagName, LevelWarn, "log level: debug, info, warn or error")
	flagset.String(OutputFlagName, OutputStderr, "log destination: stderr or stdout")
}

// GetBaseLogger builds a logger from the flags registered on cmd
func GetBaseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := loggerLevelFromCommand(cmd)
	if err != nil {
		return nil, err
	}

	out, err := outputFromCommand(cmd)
	if err != nil {
		return nil, err
	}

	format, err := cmd.Flags().GetString(FormatFlagName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FormatFlagName, err)
	}

	return New(out, format, level)
}

// New returns a logger writing format-encoded records at level and above to out
func New(out io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case FormatText:
		return slog.New(slog.NewTextHandler(out, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want %s or %s)", format, FormatText, FormatJSON)
	}
}

func loggerLevelFromCommand(cmd *cobra.Command) (slog.Level, error) {
	raw, err := cmd.Flags().GetString(LevelFlagName)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", LevelFlagName, err)
	}

	switch strings.ToLower(raw) {
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelInfo:
		return slog.LevelInfo, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", raw)
	}
}

func outputFromCommand(cmd *cobra.Command) (io.Writer, error) {
	raw, err := cmd.Flags().GetString(OutputFlagName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", OutputFlagName, err)
	}

	switch strings.ToLower(raw) {
	case OutputStderr:
		return os.Stderr, nil
	case OutputStdout:
		return os.Stdout, nil
	default:
		return nil, fmt.Errorf("invalid log output %q", raw)
	}
}
