// Package githubindex implements the index.PackageIndex capability against
// a GitHub-hosted tree of rockspecs: tags of the manifest repository name
// published rock versions ("<name>-<version>"), and each tag's rockspec
// text is served over raw.githubusercontent.com. GitHub tag listing goes
// through google/go-github with optional GITHUB_TOKEN authentication via
// golang.org/x/oauth2; raw-content fetches use a hardened http.Client.
package githubindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/errs"
	"github.com/lux-pm/lux/internal/index"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/progress"
	"github.com/lux-pm/lux/internal/version"
)

// Index resolves dependency requirements against one GitHub repository of
// published rockspecs.
type Index struct {
	client        *github.Client
	http          *http.Client
	owner         string
	repo          string
	rawBase       string // cfg.RegistryURL, e.g. "https://raw.githubusercontent.com/lux-pm/lux-manifest/main"
	authenticated bool
}

// New builds an Index from cfg.RegistryURL, authenticating GitHub API calls
// with GITHUB_TOKEN when set.
func New(cfg *config.Config) (*Index, error) {
	owner, repo, err := parseOwnerRepo(cfg.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("registry url %q: %w", cfg.RegistryURL, err)
	}

	var httpClient *http.Client
	authenticated := false
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		authenticated = true
	}

	return &Index{
		client:        github.NewClient(httpClient),
		http:          newHTTPClient(),
		owner:         owner,
		repo:          repo,
		rawBase:       cfg.RegistryURL,
		authenticated: authenticated,
	}, nil
}

// parseOwnerRepo extracts "owner/repo" from a raw.githubusercontent.com
// manifest URL, e.g. "https://raw.githubusercontent.com/lux-pm/lux-manifest/main".
func parseOwnerRepo(rawURL string) (owner, repo string, err error) {
	const prefix = "https://raw.githubusercontent.com/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", "", fmt.Errorf("expected a raw.githubusercontent.com URL")
	}
	rest := strings.TrimPrefix(rawURL, prefix)
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 {
		return "", "", fmt.Errorf("expected <owner>/<repo>/<branch>")
	}
	return parts[0], parts[1], nil
}

// Find lists the manifest repository's tags, filters to this package's
// name, and returns the highest version satisfying req among those tags.
func (idx *Index) Find(ctx context.Context, req manifest.PackageReq, typeFilter *lockfile.SourceKind, sink progress.Sink) (index.RemotePackage, error) {
	if typeFilter != nil && *typeFilter != lockfile.SourceRockspec {
		return index.RemotePackage{}, &errs.PackageNotFoundError{Requirement: req.Req.String()}
	}

	var result index.RemotePackage
	var findErr error
	sink.Map(func(bar progress.Bar) {
		bar.SetMessage(fmt.Sprintf("resolving %s", req.Name))
		defer bar.FinishAndClear()

		tags, err := idx.listTags(ctx)
		if err != nil {
			findErr = err
			return
		}

		prefix := string(req.Name) + "-"
		var best *index.RemotePackage
		for _, tag := range tags {
			if !strings.HasPrefix(tag, prefix) {
				continue
			}
			v, err := version.Parse(strings.TrimPrefix(tag, prefix))
			if err != nil {
				continue
			}
			if !req.Req.Matches(v) {
				continue
			}
			if best != nil && best.Version.Cmp(v) >= 0 {
				continue
			}
			best = &index.RemotePackage{
				Name:        req.Name,
				Version:     v,
				Kind:        lockfile.SourceRockspec,
				RockspecURL: fmt.Sprintf("%s/%s/%s-%s.rockspec", idx.rawBase, tag, req.Name, v.String()),
			}
		}
		if best == nil {
			findErr = &errs.PackageNotFoundError{Requirement: req.Req.String()}
			return
		}
		result = *best
	})
	return result, findErr
}

// FetchRockspec downloads the raw rockspec text located at pkg.RockspecURL.
func (idx *Index) FetchRockspec(ctx context.Context, pkg index.RemotePackage) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pkg.RockspecURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", pkg.RockspecURL, err)
	}
	resp, err := idx.http.Do(httpReq)
	if err != nil {
		return nil, &errs.FetchFailureError{URL: pkg.RockspecURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &errs.FetchFailureError{URL: pkg.RockspecURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.FetchFailureError{URL: pkg.RockspecURL, Err: err}
	}
	return data, nil
}

func (idx *Index) listTags(ctx context.Context) ([]string, error) {
	var tags []string
	opts := &github.ListOptions{PerPage: 100}
	for page := 1; page <= 5; page++ {
		opts.Page = page
		pageTags, _, err := idx.client.Repositories.ListTags(ctx, idx.owner, idx.repo, opts)
		if err != nil {
			if rlErr := idx.wrapRateLimit(err); rlErr != nil {
				return nil, rlErr
			}
			return nil, fmt.Errorf("list tags for %s/%s: %w", idx.owner, idx.repo, err)
		}
		if len(pageTags) == 0 {
			break
		}
		for _, t := range pageTags {
			if t.Name != nil {
				tags = append(tags, *t.Name)
			}
		}
	}
	return tags, nil
}

func (idx *Index) wrapRateLimit(err error) error {
	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &errs.GitHubRateLimitError{
			Limit:         rateLimitErr.Rate.Limit,
			Remaining:     rateLimitErr.Rate.Remaining,
			ResetTime:     rateLimitErr.Rate.Reset.Time,
			Authenticated: idx.authenticated,
			Err:           err,
		}
	}
	return nil
}
