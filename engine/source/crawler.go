package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/docsnips/docsnips/engine/markup"
)

// maxPageBytes bounds how much of a single page is read.
const maxPageBytes = 8 << 20

// CrawlerOpts configures a Crawler. Zero values select defaults.
type CrawlerOpts struct {
	Timeout  time.Duration // per-request
	Rate     time.Duration // minimum delay between fetches
	MaxPages int           // 0 means unbounded
	Logger   *slog.Logger
}

// Crawler walks a site breadth-first from a start URL, visiting each
// normalized URL at most once and never leaving the start URL's prefix.
// Fetch failures skip the page and continue; a finite link graph, cyclic or
// not, always terminates because URLs are marked visited before fetching.
type Crawler struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxPages int
	log      *slog.Logger
}

// NewCrawler creates a Crawler with an instrumented HTTP transport.
func NewCrawler(opts CrawlerOpts) *Crawler {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Rate <= 0 {
		opts.Rate = 200 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Crawler{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:  rate.NewLimiter(rate.Every(opts.Rate), 1),
		maxPages: opts.MaxPages,
		log:      opts.Logger,
	}
}

// Crawl fetches every reachable page under startURL and hands its parsed
// tree to visit, in breadth-first order.
func (c *Crawler) Crawl(ctx context.Context, startURL string, visit func(pageURL string, tree *markup.Node)) error {
	start, err := url.Parse(startURL)
	if err != nil || !start.IsAbs() {
		return fmt.Errorf("source: invalid start URL %q", startURL)
	}

	seen := map[string]bool{}
	queue := []string{stripFragment(startURL)}
	pages := 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		u := queue[0]
		queue = queue[1:]
		if seen[u] {
			continue
		}
		seen[u] = true

		if c.maxPages > 0 && pages >= c.maxPages {
			c.log.Warn("page budget reached, stopping crawl", "start", startURL, "pages", pages)
			return nil
		}
		pages++

		tree, err := c.fetchPage(ctx, u)
		if err != nil {
			c.log.Warn("skipping page", "url", u, "error", err)
			continue
		}
		visit(u, tree)

		base, err := url.Parse(u)
		if err != nil {
			continue
		}
		for _, href := range markup.Links(tree) {
			next, ok := resolveLink(base, href)
			if !ok {
				continue
			}
			if strings.HasPrefix(next, startURL) && !seen[next] {
				queue = append(queue, next)
			}
		}
	}
	return nil
}

func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*markup.Node, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: fetch %s: status %d", pageURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", pageURL, err)
	}
	return markup.Parse(body, markup.FormatHTML, pageURL)
}

// resolveLink resolves href against the page URL and normalizes it for the
// visited set: fragments are stripped so anchors within one page do not
// count as distinct URLs.
func resolveLink(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

func stripFragment(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		u.Fragment = ""
		return u.String()
	}
	return raw
}
