package ingest

// error_messages.go maps technical errors to short messages with a code for
// support reference. Codes appear in report issues and in CLI output.
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Required field: a mandatory column is blank on this row
//	ROW002 - Unknown department: the branch code matches no department
//	ROW003 - Invalid record: the normalized record failed validation
//	ROW004 - Repeated key: the same record appears earlier in the file
//	ROW005 - Linked elsewhere: the enrollment number belongs to another user
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: the record already exists
//	DB004 - Unavailable: the store could not be reached
//	DB005 - Connection reset: the store connection was interrupted
//	DB006 - Timeout: the store did not answer in time
//	DB007 - Deadlock: conflicting concurrent writes
//	DB008 - Sequence exhausted: no enrollment numbers left for the year
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid file: not decodable as CSV or XLSX
//	FILE004 - Missing column: a required header is absent
//	FILE005 - Empty file: no data rows
//
// # Run Errors (RUN001-RUN099)
//
//	RUN002 - Busy: too many concurrent runs
//	RUN004 - Cancelled
//	RUN005 - Deadline exceeded
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones. Anything else
// maps to ERR000.

import (
	"fmt"
	"strings"
)

// UserMessage is a user-facing explanation of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Row level
	{"required field", UserMessage{"A required field is empty", "Fill in the enrollment number and key columns", "ROW001"}},
	{"department not found", UserMessage{"Unknown department code", "Check BR_CODE against the department list", "ROW002"}},
	{"invalid record", UserMessage{"Record failed validation", "Correct the listed fields and re-import the row", "ROW003"}},
	{"repeated key", UserMessage{"Record repeated in the same file", "Remove the duplicate row", "ROW004"}},
	{"linked to another user", UserMessage{"Enrollment number belongs to another user", "Verify the user's enrollment number", "ROW005"}},

	// Store
	{"duplicate key", UserMessage{"The record already exists", "Use upsert mode to update existing records", "DB001"}},
	{"store unavailable", UserMessage{"Unable to reach the database", "Try again in a few moments", "DB004"}},
	{"connection refused", UserMessage{"Unable to reach the database", "Try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Try again", "DB005"}},
	{"deadline exceeded", UserMessage{"The operation timed out", "Try a smaller file or try again later", "RUN005"}},
	{"timeout", UserMessage{"The database did not answer in time", "Try again later", "DB006"}},
	{"deadlock", UserMessage{"The database was busy with conflicting writes", "Try again", "DB007"}},
	{"sequence exhausted", UserMessage{"No enrollment numbers left for this year", "Contact an administrator", "DB008"}},

	// File
	{"file too large", UserMessage{"File exceeds the size limit", "Split the file into smaller parts", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV or XLSX", "Export the extract again as CSV", "FILE002"}},
	{"missing required column", UserMessage{"A required column is missing", "Compare the header with the template", "FILE004"}},
	{"empty file", UserMessage{"The file has no data rows", "Upload a file with a header and data rows", "FILE005"}},

	// Run
	{"too many concurrent runs", UserMessage{"Another import is running", "Wait a moment and try again", "RUN002"}},
	{"context canceled", UserMessage{"The import was cancelled", "Start the import again when ready", "RUN004"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message. A nil error maps to
// the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	s := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(s, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}
