// # Error Codes Reference
//
// This file defines user-facing error messages with codes for support
// reference. Row errors in an ImportSession carry these messages instead of
// raw technical errors.
//
// Error codes are grouped by category:
//
// # Ingestion Errors (ING001-ING099)
//
//	ING001 - Missing key: Row has no value for its natural key
//	         Action: Fill in the serial, description, email or ID column
//	         Patterns: "missing natural key"
//
//	ING002 - Identifier locked: Row tries to change an assigned asset code
//	         Action: Remove the code column or use the existing code
//	         Patterns: "asset identifier is immutable"
//
//	ING003 - Identifier busy: Could not reserve a unique asset code
//	         Action: Run the import again
//	         Patterns: "asset identifier already taken"
//
//	ING004 - System busy: Too many imports in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many imports"
//
//	ING005 - Unknown kind: Target entity kind is not configured
//	         Action: Use one of the listed entity kinds
//	         Patterns: "unknown entity kind"
//
//	ING006 - Cancelled: Import was cancelled
//	         Patterns: "context canceled"
//
//	ING007 - Timed out: Import timed out
//	         Patterns: "context deadline exceeded"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key         Patterns: "duplicate key"
//	DB002 - Unique constraint     Patterns: "unique constraint", "violates unique"
//	DB003 - Check constraint      Patterns: "violates check constraint"
//	DB004 - Connection refused    Patterns: "connection refused"
//	DB005 - Connection reset      Patterns: "connection reset"
//	DB006 - Timeout               Patterns: "timeout"
//	DB007 - Deadlock              Patterns: "deadlock"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large      Patterns: "file too large"
//	FILE002 - Unsupported type    Patterns: "unsupported file type"
//	FILE003 - Unreadable workbook Patterns: "open workbook", "parse error"
//	FILE004 - Nothing readable    Patterns: "no readable files"
//	FILE005 - Empty file          Patterns: "file is empty"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check the logs for the
// original error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Ingestion Errors (ING001-ING007)
	// =========================================================================
	{
		pattern: "missing natural key",
		msg: UserMessage{
			Message: "Row has no value for its natural key",
			Action:  "Fill in the serial, description, email or ID column",
			Code:    "ING001",
		},
	},
	{
		pattern: "asset identifier is immutable",
		msg: UserMessage{
			Message: "Row tries to change an assigned asset code",
			Action:  "Remove the code column or use the existing code",
			Code:    "ING002",
		},
	},
	{
		pattern: "asset identifier already taken",
		msg: UserMessage{
			Message: "Could not reserve a unique asset code",
			Action:  "Run the import again",
			Code:    "ING003",
		},
	},
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "ING004",
		},
	},
	{
		pattern: "unknown entity kind",
		msg: UserMessage{
			Message: "Target entity kind is not configured",
			Action:  "Use one of the listed entity kinds",
			Code:    "ING005",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Import was cancelled",
			Action:  "Please try again",
			Code:    "ING006",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Import timed out",
			Action:  "Try a smaller batch or try again later",
			Code:    "ING007",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB007)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Review the staged rows for duplicates",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates check constraint",
		msg: UserMessage{
			Message: "A value is not allowed by the database",
			Action:  "Check the value against the expected format",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "File type is not supported",
			Action:  "Save the file as .xlsx or .csv",
			Code:    "FILE002",
		},
	},
	{
		pattern: "open workbook",
		msg: UserMessage{
			Message: "File could not be read",
			Action:  "Open the file in a spreadsheet program and save it again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "File could not be read",
			Action:  "Check the file for broken quotes or save it again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no readable files",
		msg: UserMessage{
			Message: "None of the files could be read",
			Action:  "Upload .xlsx or .csv files with data",
			Code:    "FILE004",
		},
	},
	{
		pattern: "file is empty",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with data rows",
			Code:    "FILE005",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}
