package errors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	se, ok := As(err)
	if !ok {
		return 1
	}
	switch se.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7
	case CategoryNetwork, CategoryGit:
		return 8 // External system error
	case CategoryBuild, CategoryContent, CategoryFileSystem:
		return 11
	case CategoryRuntime:
		return 12
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	se, ok := As(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return se.Error()
	}

	msg := se.Message
	if path, ok := se.Context["path"]; ok {
		msg = fmt.Sprintf("%s: %v", msg, path)
	}
	if v, ok := se.Context["version"]; ok {
		msg = fmt.Sprintf("%s: %v", msg, v)
	}
	switch se.Category {
	case CategoryConfig, CategoryValidation:
		return msg
	default:
		if se.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", se.Category, msg, se.Cause)
		}
		return fmt.Sprintf("%s: %s", se.Category, msg)
	}
}

// HandleError logs err, prints it, and exits with the mapped code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(exitCode)
}

func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	if se, ok := As(err); ok {
		return se.Category == CategoryInternal || se.Category == CategoryRuntime
	}
	return true
}

func (a *CLIErrorAdapter) logError(err error) {
	se, ok := As(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}

	level := slog.LevelError
	switch se.Severity {
	case SeverityInfo:
		level = slog.LevelInfo
	case SeverityWarning:
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{slog.String("category", string(se.Category))}
	for k, v := range se.Context {
		attrs = append(attrs, slog.Any(k, v))
	}
	a.logger.LogAttrs(context.Background(), level, se.Message, attrs...)
}
