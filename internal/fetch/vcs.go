package fetch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lux-pm/lux/internal/errs"
)

// validateScheme enforces the URL scheme allow/deny list: file://,
// http(s)://, ftp://, git://, and git+{file,http,https,ssh}:// are
// supported; cvs://, hg[+...]://, sscm://, svn:// are rejected with a
// dedicated error naming the unsupported VCS.
func validateScheme(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse source url %q: %w", rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)

	switch {
	case scheme == "file", scheme == "http", scheme == "https", scheme == "ftp", scheme == "git":
		return nil
	case strings.HasPrefix(scheme, "git+"):
		switch strings.TrimPrefix(scheme, "git+") {
		case "file", "http", "https", "ssh":
			return nil
		}
		return &errs.UnsupportedVCSError{Scheme: scheme}
	case scheme == "cvs", scheme == "sscm", scheme == "svn", strings.HasPrefix(scheme, "hg"):
		return &errs.UnsupportedVCSError{Scheme: scheme}
	default:
		return &errs.UnsupportedVCSError{Scheme: scheme}
	}
}
