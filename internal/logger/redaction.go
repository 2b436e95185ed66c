package logger

import (
	"io"
	"regexp"
)

// Redactor redacts credentials from log output
type Redactor struct {
	rules []rule
}

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor with the default rules
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []rule{
			// Authorization headers
			{regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/=-]+`), "Bearer [REDACTED]"},

			// Tokens in query strings
			{regexp.MustCompile(`((?:access_token|token|api_key)=)[^&\s"]+`), "${1}[REDACTED]"},

			// Tokens in JSON documents
			{regexp.MustCompile(`("(?:token|access_token|password)"\s*:\s*")[^"]*"`), `${1}[REDACTED]"`},

			// Credentials embedded in URLs
			{regexp.MustCompile(`(://[^:/@\s]+:)[^@\s]+@`), "${1}[REDACTED]@"},
		},
	}
}

// AddPattern adds a custom redaction pattern; matches are replaced entirely.
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, rule{pattern: re, replacement: "[REDACTED]"})
	return nil
}

// Redact redacts sensitive information from a string
func (r *Redactor) Redact(s string) string {
	for _, rl := range r.rules {
		s = rl.pattern.ReplaceAllString(s, rl.replacement)
	}
	return s
}

// Wrap wraps an io.Writer to redact everything written to it
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success even when redaction changes the length.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
