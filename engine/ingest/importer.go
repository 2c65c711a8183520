package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docsnips/docsnips/engine/domain"
	"github.com/docsnips/docsnips/engine/source"
	"github.com/docsnips/docsnips/engine/version"
	"github.com/docsnips/docsnips/pkg/embed"
	"github.com/docsnips/docsnips/pkg/fn"
)

// Sink receives the aggregated snippets of one library. Implemented by
// semantic.VectorStore.
type Sink interface {
	UpsertSnippets(ctx context.Context, provider embed.Provider, snippets []domain.Snippet) (int, error)
}

// SourceError ties a failure to the source that produced it. One failing
// source never aborts its siblings outside strict mode.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e SourceError) Unwrap() error { return e.Err }

// Report summarizes one library's run.
type Report struct {
	Library  string
	Snippets int
	Upserted int
	Errors   []SourceError
}

// Deps carries everything an Importer needs. All fields except Log are
// required.
type Deps struct {
	LibrariesDir string
	Clones       *source.CloneCache
	Resolver     *version.Resolver
	Driver       *source.Driver
	Sink         Sink
	Embedder     embed.Provider
	Strict       bool
	Log          *slog.Logger
}

// Importer runs libraries end to end.
type Importer struct {
	deps Deps
	log  *slog.Logger
}

func NewImporter(deps Deps) *Importer {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Importer{deps: deps, log: log}
}

// ImportLibrary ingests one library. Source failures are collected into the
// report; the returned error is non-nil only for configuration problems,
// upsert failures, or any source failure when running strict.
func (im *Importer) ImportLibrary(ctx context.Context, name string) (Report, error) {
	report := Report{Library: name}

	lib, err := LoadLibrary(im.deps.LibrariesDir, name)
	if err != nil {
		return report, err
	}
	root, err := im.deps.Clones.Get(ctx, lib.RepositoryURL)
	if err != nil {
		return report, &ConfigError{Library: name, Err: fmt.Errorf("clone %s: %w", lib.RepositoryURL, err)}
	}
	cfg, err := loadConfig(lib, root)
	if err != nil {
		return report, err
	}

	runSource := fn.Traced("ingest.source", func(ctx context.Context, sc source.Config) fn.Result[[]domain.Snippet] {
		ver := im.deps.Resolver.Resolve(ctx, sc.VersionPolicy)
		im.log.Info("running source",
			"library", lib.Name, "source", sc.Name, "type", sc.Type.String(), "version", ver)
		return fn.FromPair(im.deps.Driver.Run(ctx, sc, lib.Name, ver))
	})

	// Sources are independent; run them all at once and keep results in
	// declaration order so errors line up with their configs.
	results := fn.ParMapResult(cfg.Sources, len(cfg.Sources), func(sc source.Config) fn.Result[[]domain.Snippet] {
		return runSource(ctx, sc)
	})

	var snippets []domain.Snippet
	for i, res := range results {
		got, err := res.Unwrap()
		if err != nil {
			srcErr := SourceError{Source: cfg.Sources[i].Name, Err: err}
			report.Errors = append(report.Errors, srcErr)
			im.log.Warn("source failed", "library", lib.Name, "source", srcErr.Source, "error", err)
			continue
		}
		snippets = append(snippets, got...)
	}
	report.Snippets = len(snippets)

	if im.deps.Strict && len(report.Errors) > 0 {
		return report, fmt.Errorf("ingest: library %s: %d of %d sources failed: %w",
			lib.Name, len(report.Errors), len(cfg.Sources), report.Errors[0])
	}

	if len(snippets) > 0 {
		n, err := im.deps.Sink.UpsertSnippets(ctx, im.deps.Embedder, snippets)
		report.Upserted = n
		if err != nil {
			return report, fmt.Errorf("ingest: library %s: upsert: %w", lib.Name, err)
		}
	}

	im.log.Info("library ingested",
		"library", lib.Name, "snippets", report.Snippets,
		"upserted", report.Upserted, "failed_sources", len(report.Errors))
	return report, nil
}

// ImportAll ingests every library declared under the libraries directory.
// A library that fails does not stop the rest; its report carries the error
// as a synthetic source entry and the first failure is returned after all
// libraries have run.
func (im *Importer) ImportAll(ctx context.Context) ([]Report, error) {
	names, err := ListLibraries(im.deps.LibrariesDir)
	if err != nil {
		return nil, err
	}

	var reports []Report
	var firstErr error
	for _, name := range names {
		report, err := im.ImportLibrary(ctx, name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			im.log.Error("library failed", "library", name, "error", err)
		}
		reports = append(reports, report)
	}
	return reports, firstErr
}
