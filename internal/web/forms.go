package web

import (
	"net/http"
	"strings"

	"github.com/raicesdev/bienesraices/internal/email"
)

// FieldError is a single validation error tied to a form field. Errors are
// rendered in the order the checks are declared.
type FieldError struct {
	Field   string
	Message string
}

// check is one declarative validation rule: the field it applies to, the
// predicate that must hold and the message shown when it does not.
type check struct {
	field   string
	ok      func() bool
	message string
}

// runChecks evaluates all checks in order and collects the failures.
func runChecks(checks []check) []FieldError {
	errs := make([]FieldError, 0)
	for _, c := range checks {
		if !c.ok() {
			errs = append(errs, FieldError{Field: c.field, Message: c.message})
		}
	}
	return errs
}

func notEmpty(v string) func() bool {
	return func() bool { return strings.TrimSpace(v) != "" }
}

func validEmail(v string) func() bool {
	return func() bool {
		_, err := email.ParseAddress(v)
		return err == nil
	}
}

func minLen(v string, n int) func() bool {
	return func() bool { return len(v) >= n }
}

func maxLen(v string, n int) func() bool {
	return func() bool { return len(v) <= n }
}

func positive(v int) func() bool {
	return func() bool { return v > 0 }
}

func nonZero(v float64) func() bool {
	return func() bool { return v != 0 }
}

// decodeForm parses the request body and decodes the form values into dst
// using the schema decoder.
func (s *Server) decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return s.decoder.Decode(dst, r.PostForm)
}
