package normalize

import (
	"fmt"
	"strings"
)

// ValidationError rejects an input that cannot produce a usable panel.
// It is the only error the analysis pipeline propagates.
type ValidationError struct {
	Reason         string
	MissingColumns []string
}

func (e *ValidationError) Error() string {
	if len(e.MissingColumns) > 0 {
		return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.MissingColumns, ", "))
	}
	return e.Reason
}

func invalid(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
