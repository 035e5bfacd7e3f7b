// Package validate holds the pure request-payload checks that run before
// any business logic: the SSRF URL guard and the per-kind content
// validator for QR code payloads.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Content validates a structured payload against the rules for its
// declared kind. The kind set is closed; an unknown kind is an error
// naming the kind. Every failure names the offending field so clients can
// fix the request without guessing.
func Content(content map[string]any, kind string) error {
	fn, ok := kindValidators[kind]
	if !ok {
		return fmt.Errorf("unrecognized content kind %q", kind)
	}
	if content == nil {
		content = map[string]any{}
	}
	return fn(content)
}

// Kinds returns the closed enumeration of supported content kinds, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(kindValidators))
	for k := range kindValidators {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ---------------------------------------------------------------------------
// Field helpers
// ---------------------------------------------------------------------------

// emailRe is a deliberately loose shape check, not an RFC 5322 parser.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// str returns the trimmed string value of a field, or "" when the field is
// absent or not a string.
func str(c map[string]any, field string) string {
	v, ok := c[field]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func required(c map[string]any, field string) error {
	if str(c, field) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func requiredSafeURL(c map[string]any, field string) error {
	s := str(c, field)
	if s == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !IsSafeURL(s) {
		return fmt.Errorf("%s must be a valid public http(s) URL", field)
	}
	return nil
}

// optionalSafeURL validates a URL field only when it is present.
func optionalSafeURL(c map[string]any, field string) error {
	s := str(c, field)
	if s == "" {
		return nil
	}
	if !IsSafeURL(s) {
		return fmt.Errorf("%s must be a valid public http(s) URL", field)
	}
	return nil
}

func requiredOneOf(c map[string]any, fields ...string) error {
	for _, f := range fields {
		if str(c, f) != "" {
			return nil
		}
	}
	return fmt.Errorf("at least one of %s is required", strings.Join(fields, ", "))
}

func requiredEnum(c map[string]any, field string, allowed ...string) error {
	s := str(c, field)
	if s == "" {
		return fmt.Errorf("%s is required", field)
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s", field, strings.Join(allowed, ", "))
}

func optionalEnum(c map[string]any, field string, allowed ...string) error {
	s := str(c, field)
	if s == "" {
		return nil
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s", field, strings.Join(allowed, ", "))
}

// number extracts a numeric field. JSON decoding yields float64; typed
// callers and query parameters may hand us ints or numeric strings.
func number(c map[string]any, field string) (float64, bool) {
	v, ok := c[field]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// list returns a field's value as a slice, or nil when absent or not a list.
func list(c map[string]any, field string) []any {
	v, ok := c[field]
	if !ok {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil
	}
	return l
}

func requiredList(c map[string]any, field string) error {
	if len(list(c, field)) == 0 {
		return fmt.Errorf("%s must be a non-empty list", field)
	}
	return nil
}

// parseDate accepts RFC 3339 timestamps with a couple of laxer fallbacks
// for clients that omit the zone or the time component.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
