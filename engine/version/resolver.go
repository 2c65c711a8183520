package version

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/time/rate"
)

const (
	defaultVCSAPIBase   = "https://api.github.com"
	defaultRegistryBase = "https://pypi.org"
	defaultTimeout      = 15 * time.Second
)

// ResolverOpts configures a Resolver. Zero values select production
// defaults; tests point the bases at local fakes.
type ResolverOpts struct {
	VCSAPIBase   string
	RegistryBase string
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Resolver answers "what version is this source?" against the package
// registry and VCS hosting APIs. Lookups are read-only GETs with a
// per-request timeout and no retries, throttled so bulk imports stay polite
// to third-party hosts.
type Resolver struct {
	client       *http.Client
	limiter      *rate.Limiter
	vcsAPIBase   string
	registryBase string
	log          *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts ResolverOpts) *Resolver {
	if opts.VCSAPIBase == "" {
		opts.VCSAPIBase = defaultVCSAPIBase
	}
	if opts.RegistryBase == "" {
		opts.RegistryBase = defaultRegistryBase
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{
		client:       &http.Client{Timeout: opts.Timeout},
		limiter:      rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
		vcsAPIBase:   strings.TrimSuffix(opts.VCSAPIBase, "/"),
		registryBase: strings.TrimSuffix(opts.RegistryBase, "/"),
		log:          opts.Logger,
	}
}

// Resolve maps a policy to a concrete version string. It never returns an
// error: every failure degrades to Unknown and is logged as a warning.
func (r *Resolver) Resolve(ctx context.Context, p Policy) string {
	switch pol := p.(type) {
	case Fixed:
		return pol.Value
	case PackageRegistry:
		v, err := r.latestRegistryVersion(ctx, pol.Package)
		if err != nil {
			r.log.Warn("registry version lookup failed", "package", pol.Package, "error", err)
			return Unknown
		}
		return v
	case VCSRelease:
		tag, err := r.latestReleaseTag(ctx, pol.RepoURL)
		if err == nil && tag != "" {
			return tag
		}
		if err != nil {
			r.log.Warn("release lookup failed, falling back to tags", "repo", pol.RepoURL, "error", err)
		}
		return r.Resolve(ctx, VCSTags{RepoURL: pol.RepoURL})
	case VCSTags:
		tag, err := r.latestSemverTag(ctx, pol.RepoURL)
		if err != nil {
			r.log.Warn("tag lookup failed", "repo", pol.RepoURL, "error", err)
			return Unknown
		}
		return tag
	}
	return Unknown
}

type registryResponse struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
}

func (r *Resolver) latestRegistryVersion(ctx context.Context, pkg string) (string, error) {
	var resp registryResponse
	url := fmt.Sprintf("%s/pypi/%s/json", r.registryBase, pkg)
	if err := r.getJSON(ctx, url, &resp); err != nil {
		return "", err
	}
	if resp.Info.Version == "" {
		return "", fmt.Errorf("version: registry returned no version for %q", pkg)
	}
	return resp.Info.Version, nil
}

type releaseResponse struct {
	TagName string `json:"tag_name"`
}

func (r *Resolver) latestReleaseTag(ctx context.Context, repoURL string) (string, error) {
	slug, err := repoSlug(repoURL)
	if err != nil {
		return "", err
	}
	var resp releaseResponse
	url := fmt.Sprintf("%s/repos/%s/releases/latest", r.vcsAPIBase, slug)
	if err := r.getJSON(ctx, url, &resp); err != nil {
		return "", err
	}
	return resp.TagName, nil
}

type tagEntry struct {
	Name string `json:"name"`
}

// latestSemverTag lists the repository's tags, keeps those that parse as a
// semantic version (optional leading "v" accepted), and returns the maximum
// by semver ordering -- not lexical, so v2.0.0 outranks v1.12.0.
func (r *Resolver) latestSemverTag(ctx context.Context, repoURL string) (string, error) {
	slug, err := repoSlug(repoURL)
	if err != nil {
		return "", err
	}
	var tags []tagEntry
	url := fmt.Sprintf("%s/repos/%s/tags", r.vcsAPIBase, slug)
	if err := r.getJSON(ctx, url, &tags); err != nil {
		return "", err
	}

	var bestName string
	var best *semver.Version
	for _, t := range tags {
		v, err := semver.StrictNewVersion(strings.TrimPrefix(t.Name, "v"))
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestName = t.Name
		}
	}
	if best == nil {
		return "", fmt.Errorf("version: no semantic-version tag in %d tags of %s", len(tags), repoURL)
	}
	return bestName, nil
}

func (r *Resolver) getJSON(ctx context.Context, url string, out any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("version: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("version: get %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("version: decode %s: %w", url, err)
	}
	return nil
}

// repoSlug extracts "owner/repo" from a repository URL.
func repoSlug(repoURL string) (string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(repoURL, "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("version: cannot derive owner/repo from %q", repoURL)
	}
	return parts[len(parts)-2] + "/" + parts[len(parts)-1], nil
}
