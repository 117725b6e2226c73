package errors

import (
	stderrors "errors"
	"strings"
)

// FormatForUser returns a user-friendly error message. A RAGError anywhere
// in the chain supplies the message and suggestion; when debug is true the
// code, category, and cause chain are included.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	var re *RAGError
	if !stderrors.As(err, &re) {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(re.Message)

	if re.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(re.Suggestion)
	}

	if debug {
		sb.WriteString("\nCode: ")
		sb.WriteString(re.Code)
		sb.WriteString(" (")
		sb.WriteString(string(re.Category))
		sb.WriteString(", ")
		sb.WriteString(string(re.Severity))
		sb.WriteString(")")
		for k, v := range re.Details {
			sb.WriteString("\n  ")
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v)
		}
		if re.Cause != nil {
			sb.WriteString("\nCause: ")
			sb.WriteString(re.Cause.Error())
		}
	}

	return sb.String()
}
