// Package validator checks posting events before they are published or
// applied, returning per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest"
)

const maxTermLength = 256

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// Validate checks that e names a known op and carries the terms that op
// needs. Any integer is a valid document id.
func Validate(e *ingest.PostingEvent) error {
	errs := make(map[string]string)
	switch e.Op {
	case ingest.OpAdd, ingest.OpRemove:
		checkTerm(errs, "term", e.Term)
	case ingest.OpMerge:
		checkTerm(errs, "term", e.Term)
		checkTerm(errs, "from_term", e.FromTerm)
		if e.Term != "" && e.Term == e.FromTerm {
			errs["from_term"] = "from_term must differ from term"
		}
	case ingest.OpRemoveDoc:
	case "":
		errs["op"] = "op is required"
	default:
		errs["op"] = fmt.Sprintf("unknown op %q", e.Op)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkTerm(errs map[string]string, field, term string) {
	switch {
	case strings.TrimSpace(term) == "":
		errs[field] = field + " is required"
	case len(term) > maxTermLength:
		errs[field] = fmt.Sprintf("%s must be at most %d bytes", field, maxTermLength)
	}
}
