// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the grafema CLI.
//
// This package defines UserError, a type that carries structured error information
// including what went wrong, why it happened, and how to fix it. It also defines
// consistent exit codes for the CLI's real failure modes: configuration, parsing,
// graph I/O, and internal bugs.
//
// # Usage Example
//
// Creating and displaying errors:
//
//	err := errors.NewConfigError(
//	    "No grafema configuration found",
//	    ".grafema/config.yaml does not exist",
//	    "Run 'grafema init' to create one",
//	    underlyingErr,
//	)
//	if err != nil {
//	    // Simple approach: print and exit with colored output
//	    errors.FatalError(err, false)
//	}
//
// # Formatted Output
//
// The Format() method provides colored terminal output:
//
//	err := errors.NewGraphIOError(
//	    "Analysis run failed",
//	    "guarantee phase: graph query timed out",
//	    "Check the log output above for the failing phase",
//	    underlyingErr,
//	)
//	fmt.Fprint(os.Stderr, err.Format(false))
//	// Output (with colors):
//	// Error: Analysis run failed
//	// Cause: guarantee phase: graph query timed out
//	// Fix:   Check the log output above for the failing phase
//
// For JSON output:
//
//	jsonData := err.ToJSON()
//	json.NewEncoder(os.Stderr).Encode(jsonData)
//	// Output:
//	// {
//	//   "error": "Analysis run failed",
//	//   "cause": "guarantee phase: graph query timed out",
//	//   "fix": "Check the log output above for the failing phase",
//	//   "code": "ERR_GRAPH_IO",
//	//   "exit_code": 3
//	// }
//
// # Exit Codes
//
// The package defines semantic exit codes following Unix conventions:
//   - ExitSuccess (0): Successful execution
//   - ExitConfig (1): Configuration errors (e.g. missing .grafema/config.yaml)
//   - ExitParse (2): Parse errors (malformed YAML, ERR_PARSE)
//   - ExitGraphIO (3): Graph I/O errors (pipeline run failed against the graph, ERR_GRAPH_IO)
//   - ExitInternal (10): Internal errors (bugs, unexpected failures)
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/kraklabs/grafema/pkg/diag"
)

// Exit codes for different error categories.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitConfig indicates configuration errors (e.g. a missing config file).
	ExitConfig = 1

	// ExitParse indicates a parse error in project input (malformed config YAML).
	ExitParse = 2

	// ExitGraphIO indicates a graph I/O failure: the pipeline could not read
	// from or write to the graph it was driving.
	ExitGraphIO = 3

	// ExitInternal indicates internal errors (bugs, unexpected panics).
	// Exit code 10 signals "this is a bug that should be reported".
	ExitInternal = 10
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: What went wrong (user-facing error description)
//   - Cause: Why it happened (diagnostic information)
//   - Fix: How to fix it (actionable suggestion)
//
// UserError also carries an exit code for consistent CLI exit behavior,
// an optional diag.Code shared with the pipeline's own diagnostic taxonomy
// (empty when the failure has no pipeline-diagnostic counterpart, e.g. a
// missing config file), and optionally wraps an underlying error for error
// chain compatibility.
type UserError struct {
	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred (diagnostic information).
	Cause string

	// Fix provides an actionable suggestion on how to resolve the error.
	Fix string

	// Code is the pipeline diagnostic code this failure corresponds to,
	// when it has one (e.g. diag.CodeParseError, diag.CodeGraphIO).
	Code diag.Code

	// ExitCode is the exit code that should be used when exiting due to this error.
	ExitCode int

	// Err is the underlying error that caused this error (optional).
	// This enables error wrapping and compatibility with errors.Is/As.
	Err error
}

// Error implements the error interface.
//
// It returns a simple error message string. If an underlying error is present,
// it appends that error's message for context.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for compatibility with errors.Is and errors.As.
//
// It returns the underlying error, allowing standard library error inspection
// functions to work with error chains.
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error with exit code ExitConfig.
//
// Use this for errors related to missing or unreadable .grafema/config.yaml.
//
// Example:
//
//	return NewConfigError(
//	    "No grafema configuration found",
//	    ".grafema/config.yaml does not exist",
//	    "Run 'grafema init' to create one",
//	    nil,
//	)
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitConfig,
		Err:      err,
	}
}

// NewParseError creates a parse error with exit code ExitParse, carrying
// diag.CodeParseError (ERR_PARSE) so CLI output shares a code with the
// pipeline's own parse diagnostics.
//
// Use this for errors where project input exists but is malformed, such as
// a .grafema/config.yaml that fails YAML unmarshaling.
//
// Example:
//
//	return NewParseError(
//	    "Cannot load grafema configuration",
//	    "yaml: line 4: mapping values are not allowed in this context",
//	    "Check that .grafema/config.yaml is valid YAML",
//	    err,
//	)
func NewParseError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		Code:     diag.CodeParseError,
		ExitCode: ExitParse,
		Err:      err,
	}
}

// NewGraphIOError creates a graph I/O error with exit code ExitGraphIO,
// carrying diag.CodeGraphIO (ERR_GRAPH_IO) so CLI output shares a code with
// the pipeline's own fatal graph diagnostics.
//
// Use this for errors where the orchestrator run itself failed while
// reading from or writing to the graph (a phase error, a guarantee check
// that could not query the graph, a freshness or reanalysis pass that
// could not reach it).
//
// Example:
//
//	return NewGraphIOError(
//	    "Analysis run failed",
//	    err.Error(),
//	    "Check the log output above for the failing phase",
//	    err,
//	)
func NewGraphIOError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		Code:     diag.CodeGraphIO,
		ExitCode: ExitGraphIO,
		Err:      err,
	}
}

// NewInternalError creates an internal error with exit code ExitInternal.
//
// Use this for unexpected errors that don't fit the config/parse/graph-I/O
// categories above: a corrupt manifest, an assertion failure, an unhandled
// error case. Internal errors should be reported to the maintainers.
//
// Example:
//
//	return NewInternalError(
//	    "Cannot open manifest",
//	    err.Error(),
//	    "Check permissions on .grafema/manifest",
//	    err,
//	)
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitInternal,
		Err:      err,
	}
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// The output includes colored sections for Error (red/bold), Cause (yellow),
// and Fix (green). Color output respects the NO_COLOR environment variable
// and can be explicitly disabled with the noColor parameter.
//
// Example output:
//
//	Error: Analysis run failed
//	Cause: guarantee phase: graph query timed out
//	Fix:   Check the log output above for the failing phase
//
// Empty Cause or Fix fields are omitted from the output.
//
// Note: This method temporarily modifies the global color.NoColor state
// and restores it after formatting. The global is not locked, so
// concurrent calls are not safe.
func (e *UserError) Format(noColor bool) string {
	// Save and restore global color state to avoid side effects
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format.
//
// This structure is suitable for machine consumption and integrates with
// CLI commands that support --json output mode.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	Code     string `json:"code,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
//
// Fields with empty values (Cause, Fix, Code) are omitted from JSON output
// using the omitempty tag. This keeps JSON output clean when additional
// context is not available.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		Code:     string(e.Code),
		ExitCode: e.ExitCode,
	}
}

// FatalError prints the error and exits with the appropriate code.
//
// If the error is a UserError, it uses Format() for colored output or
// ToJSON() for JSON mode. For non-UserError types, it prints a simple
// error message and exits with ExitInternal.
//
// This function never returns - it always calls os.Exit().
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    errors.FatalError(err, jsonMode)
//	}
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			// Encode error is intentionally ignored since we're about to exit.
			// If JSON encoding fails, the program will still exit with the correct code.
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	// Fallback for non-UserError
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
