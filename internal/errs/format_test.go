package errs

import (
	"fmt"
	"strings"
	"testing"
)

func TestFormatExternalDepNotFoundIncludesEnvVarSuggestion(t *testing.T) {
	err := &ExternalDepNotFoundError{Name: "OPENSSL"}
	got := Format(err, nil)
	if !strings.Contains(got, "OPENSSL_DIR") {
		t.Errorf("Format(%v) = %q, want it to mention OPENSSL_DIR", err, got)
	}
}

func TestFormatFetchFailureIncludesPackageNameWhenProvided(t *testing.T) {
	err := &FetchFailureError{URL: "https://example.invalid/x.tar.gz", Err: fmt.Errorf("connection refused")}
	got := Format(err, &FormatContext{PackageName: "penlight"})
	if !strings.Contains(got, "penlight") {
		t.Errorf("Format(%v) = %q, want it to mention the package name", err, got)
	}
}

func TestFormatFallsBackToErrorStringForUnknownTypes(t *testing.T) {
	err := fmt.Errorf("some unrelated failure")
	if got := Format(err, nil); got != err.Error() {
		t.Errorf("Format(%v) = %q, want %q", err, got, err.Error())
	}
}

func TestFormatNilReturnsEmptyString(t *testing.T) {
	if got := Format(nil, nil); got != "" {
		t.Errorf("Format(nil) = %q, want empty string", got)
	}
}
