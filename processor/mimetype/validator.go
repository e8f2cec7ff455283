// Package mimetype validates that a finished artifact's detected
// content type matches the format family the caller asked for, so a
// tool failure that leaves an HTML error page or an empty container on
// disk never gets served as media.
package mimetype

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rakyll/magicmime"
)

// DetectionThreshold is how many leading bytes of a file are examined.
const DetectionThreshold = 1024

// Validator checks files against mime type glob patterns. It holds a
// reference to a libmagic decoder and is not safe for concurrent use.
type Validator struct {
	decoder *magicmime.Decoder
}

// ErrMimeTypeMismatch is returned when the detected type matches none
// of the given checks.
type ErrMimeTypeMismatch struct {
	check Check
	found string
}

// Check is a single glob pattern to match the detected mime type
// against; negate turns it into a blacklist entry.
type Check struct {
	check  string
	negate bool
}

// Error returns the error string for the current ErrMimeTypeMismatch.
func (e ErrMimeTypeMismatch) Error() string {
	if e.check.negate {
		return fmt.Sprintf("Expected mime-type not to be (%s), found (%s)", e.check.check, e.found)
	}
	return fmt.Sprintf("Expected mime-type to be (%s), found (%s)", e.check.check, e.found)
}

// New constructs a new Validator.
func New() (*Validator, error) {
	decoder, err := magicmime.NewDecoder(magicmime.MAGIC_MIME_TYPE)
	if err != nil {
		return nil, err
	}
	return &Validator{decoder: decoder}, nil
}

// Close releases the underlying libmagic decoder.
func (v *Validator) Close() {
	v.decoder.Close()
}

// parseChecks splits a comma-separated pattern list into checks.
// A leading "!" negates a check.
func parseChecks(pattern string) []Check {
	var checks []Check
	for _, c := range strings.Split(pattern, ",") {
		c = strings.TrimSpace(c)
		if strings.HasPrefix(c, "!") {
			checks = append(checks, Check{check: c[1:], negate: true})
			continue
		}
		checks = append(checks, Check{check: c, negate: false})
	}
	return checks
}

// ValidateMimeTypePattern validates that pattern can be used as a glob
// pattern list against mime types.
func ValidateMimeTypePattern(pattern string) error {
	for _, c := range parseChecks(pattern) {
		if _, err := filepath.Match(c.check, "x/y"); err != nil {
			return fmt.Errorf("Invalid mime type pattern %q: %s", c.check, err)
		}
	}
	return nil
}

// ValidateFile detects the mime type of the file at path from its
// leading bytes and matches it against pattern. Negated checks reject
// on match; at least one non-negated check must match.
func (v *Validator) ValidateFile(path, pattern string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, DetectionThreshold)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return err
	}

	found, err := v.decoder.TypeByBuffer(buf[:n])
	if err != nil {
		return err
	}

	checks := parseChecks(pattern)
	matched := false
	positive := false
	for _, c := range checks {
		ok, err := filepath.Match(c.check, found)
		if err != nil {
			return err
		}
		if c.negate {
			if ok {
				return ErrMimeTypeMismatch{check: c, found: found}
			}
			continue
		}
		positive = true
		if ok {
			matched = true
		}
	}

	if positive && !matched {
		return ErrMimeTypeMismatch{check: checks[0], found: found}
	}
	return nil
}
