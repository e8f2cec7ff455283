package mimetype

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateMimeTypePattern(t *testing.T) {
	tc := map[string]bool{
		"video/*":           false,
		"video/*,audio/*":   false,
		"audio/*,!text/*":   false,
		"video/[":           true,
		"audio/*,!video/[":  true,
	}
	for pattern, expectErr := range tc {
		err := ValidateMimeTypePattern(pattern)
		if (err != nil) != expectErr {
			t.Errorf("ValidateMimeTypePattern(%q): expected error %v, got %v", pattern, expectErr, err)
		}
	}
}

func TestParseChecks(t *testing.T) {
	checks := parseChecks("video/*, !text/*,audio/*")
	if len(checks) != 3 {
		t.Fatalf("Expected 3 checks, got %d", len(checks))
	}
	if checks[0].check != "video/*" || checks[0].negate {
		t.Errorf("Unexpected check %+v", checks[0])
	}
	if checks[1].check != "text/*" || !checks[1].negate {
		t.Errorf("Unexpected check %+v", checks[1])
	}
}

func TestValidateFile(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Skipf("libmagic unavailable: %s", err)
	}
	defer v.Close()

	dir := t.TempDir()
	htmlFile := filepath.Join(dir, "artifact.mp4")
	if err := os.WriteFile(htmlFile, []byte("<!DOCTYPE html><html><body>blocked</body></html>"), 0644); err != nil {
		t.Fatal(err)
	}

	// An HTML error page must never pass as media, regardless of its
	// file extension.
	err = v.ValidateFile(htmlFile, "video/*,audio/*")
	if _, ok := err.(ErrMimeTypeMismatch); !ok {
		t.Errorf("Expected ErrMimeTypeMismatch, got %v", err)
	}

	if err := v.ValidateFile(htmlFile, "text/*"); err != nil {
		t.Errorf("Expected the html file to match text/*, got %v", err)
	}

	if err := v.ValidateFile(htmlFile, "!video/*"); err != nil {
		t.Errorf("Expected a negated non-match to pass, got %v", err)
	}

	if err := v.ValidateFile(filepath.Join(dir, "missing"), "video/*"); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
