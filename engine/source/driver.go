package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/docsnips/docsnips/engine/domain"
	"github.com/docsnips/docsnips/engine/extract"
	"github.com/docsnips/docsnips/engine/markup"
	"github.com/docsnips/docsnips/pkg/fn"
)

// DescriptionMarker is the file whose presence makes a directory a snippet
// directory; its content is the shared context of every sibling file.
const DescriptionMarker = "_description.md"

// Driver runs one source strategy to completion, producing snippets
// attributed to a package and version.
type Driver struct {
	Clones  *CloneCache
	Crawler *Crawler
	Workers int // per-source file parallelism; <=0 means one per file
	Log     *slog.Logger
}

// NewDriver creates a Driver with the given clone cache and crawler.
func NewDriver(clones *CloneCache, crawler *Crawler, workers int, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	return &Driver{Clones: clones, Crawler: crawler, Workers: workers, Log: log}
}

// Run dispatches a source config to its strategy.
func (d *Driver) Run(ctx context.Context, cfg Config, pkg, ver string) ([]domain.Snippet, error) {
	switch cfg.Type {
	case Repository:
		root, err := d.Clones.Get(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return d.extractRepository(ctx, root, cfg, pkg, ver)
	case SnippetDirectory:
		root, err := d.Clones.Get(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return d.extractSnippetDir(root, cfg, pkg, ver)
	case Website:
		return d.extractWebsite(ctx, cfg, pkg, ver)
	default:
		return nil, fmt.Errorf("source: unhandled source type %v", cfg.Type)
	}
}

// extractRepository scans a cloned tree for documentation files, parses and
// extracts each, and promotes the results to full snippets. Files are
// processed by a bounded worker pool; a malformed or unsupported file is
// skipped with a warning, never aborting the source.
func (d *Driver) extractRepository(ctx context.Context, root string, cfg Config, pkg, ver string) ([]domain.Snippet, error) {
	paths, err := documentPaths(root, cfg.IncludeGlobs)
	if err != nil {
		return nil, err
	}

	perFile := fn.ParMap(paths, d.Workers, func(rel string) []extract.PartialSnippet {
		if ctx.Err() != nil {
			return nil
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			d.Log.Warn("skipping unreadable file", "file", rel, "error", err)
			return nil
		}
		tree, err := markup.ParseFile(data, rel)
		if err != nil {
			d.Log.Warn("skipping unparseable file", "file", rel, "error", err)
			return nil
		}
		return extract.Extract(tree, rel)
	})

	partials := fn.FlatMap(perFile, func(ps []extract.PartialSnippet) []extract.PartialSnippet { return ps })
	return d.promoteAll(partials, cfg.Language, pkg, ver), nil
}

// documentPaths lists the slash-relative paths of candidate files under
// root: every supported markup file, optionally narrowed by include globs.
// A glob can only narrow -- it never pulls unsupported formats in.
func documentPaths(root string, globs []string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if _, err := markup.FormatForPath(rel); err != nil {
			return nil
		}
		if len(globs) > 0 && !matchesAny(globs, rel) {
			return nil
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: walk %s: %w", root, err)
	}
	return out, nil
}

func matchesAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// promoteAll turns partial snippets into full ones. A declared language
// that differs from the source's target language drops the snippet: the
// corpus keeps only examples in the library's own language, unless the
// block declared nothing and inherits the target language. Placeholder
// blocks with no code are dropped with a warning.
func (d *Driver) promoteAll(partials []extract.PartialSnippet, lang, pkg, ver string) []domain.Snippet {
	return fn.FilterMap(partials, func(ps extract.PartialSnippet) (domain.Snippet, bool) {
		if strings.TrimSpace(ps.Code) == "" {
			d.Log.Warn("skipping empty code block", "origin", ps.Origin)
			return domain.Snippet{}, false
		}
		if ps.DeclaredLanguage != "" && ps.DeclaredLanguage != lang {
			return domain.Snippet{}, false
		}
		l := ps.DeclaredLanguage
		if l == "" {
			l = lang
		}
		return domain.Snippet{
			Context:     ps.Context,
			Code:        ps.Code,
			Language:    l,
			Source:      ps.Origin,
			PackageName: pkg,
			Version:     ver,
		}, true
	})
}

// extractSnippetDir handles curated snippet directories: every directory
// holding a DescriptionMarker contributes one snippet per sibling file,
// with the marker's content as shared context and the sibling's file stem
// as its language.
func (d *Driver) extractSnippetDir(root string, cfg Config, pkg, ver string) ([]domain.Snippet, error) {
	var markers []string
	err := filepath.WalkDir(root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			if e.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if e.Name() != DescriptionMarker {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if len(cfg.IncludeGlobs) > 0 && !matchesAny(cfg.IncludeGlobs, rel) {
			return nil
		}
		markers = append(markers, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: walk %s: %w", root, err)
	}

	var out []domain.Snippet
	for _, marker := range markers {
		desc, err := os.ReadFile(marker)
		if err != nil {
			d.Log.Warn("skipping unreadable description", "file", marker, "error", err)
			continue
		}
		dir := filepath.Dir(marker)
		entries, err := os.ReadDir(dir)
		if err != nil {
			d.Log.Warn("skipping unreadable snippet directory", "dir", dir, "error", err)
			continue
		}
		for _, e := range entries {
			if e.Name() == DescriptionMarker {
				continue
			}
			if !e.Type().IsRegular() {
				d.Log.Warn("skipping non-file in snippet directory", "entry", filepath.Join(dir, e.Name()))
				continue
			}
			code, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				d.Log.Warn("skipping unreadable snippet file", "file", e.Name(), "error", err)
				continue
			}
			if strings.TrimSpace(string(code)) == "" {
				d.Log.Warn("skipping empty snippet file", "file", filepath.Join(dir, e.Name()))
				continue
			}
			rel, err := filepath.Rel(root, filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			out = append(out, domain.Snippet{
				Context:     string(desc),
				Code:        string(code),
				Language:    stem,
				Source:      filepath.ToSlash(rel),
				PackageName: pkg,
				Version:     ver,
			})
		}
	}
	return out, nil
}

// extractWebsite crawls the site rooted at the source URL and extracts
// snippets from every reachable same-site page.
func (d *Driver) extractWebsite(ctx context.Context, cfg Config, pkg, ver string) ([]domain.Snippet, error) {
	var partials []extract.PartialSnippet
	err := d.Crawler.Crawl(ctx, cfg.URL, func(pageURL string, tree *markup.Node) {
		partials = append(partials, extract.Extract(tree, pageURL)...)
	})
	if err != nil {
		return nil, err
	}
	return d.promoteAll(partials, cfg.Language, pkg, ver), nil
}
