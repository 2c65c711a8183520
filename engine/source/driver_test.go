package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/docsnips/docsnips/engine/domain"
	"github.com/docsnips/docsnips/engine/version"
)

// writeTree lays out fixture files under a temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// fixtureDriver returns a driver whose clone cache serves the given tree
// for every URL.
func fixtureDriver(t *testing.T, files map[string]string) *Driver {
	t.Helper()
	root := writeTree(t, files)
	cache := NewCloneCacheWithFunc(func(_ context.Context, _, dir string) error {
		return os.CopyFS(dir, os.DirFS(root))
	}, nil)
	t.Cleanup(cache.Close)
	return NewDriver(cache, nil, 2, nil)
}

func repoConfig(lang string, globs ...string) Config {
	return Config{
		Name:          "docs",
		Language:      lang,
		URL:           "https://github.com/acme/lib",
		Type:          Repository,
		IncludeGlobs:  globs,
		VersionPolicy: version.Fixed{Value: "1.0.0"},
	}
}

func TestRepositoryDriver_ExtractsAndPromotes(t *testing.T) {
	d := fixtureDriver(t, map[string]string{
		"README.md": "# Intro\n\nInstall it.\n\n```python\npip_install()\n```\n",
		"docs/usage.rst": "Usage\n=====\n\nRun the client::\n\n    client.run()\n",
		"src/main.py": "print('not documentation')\n",
	})

	snips, err := d.Run(context.Background(), repoConfig("python"), "acme", "1.0.0")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snips) != 2 {
		t.Fatalf("snippets: %+v", snips)
	}

	byOrigin := map[string]domain.Snippet{}
	for _, s := range snips {
		byOrigin[s.Source] = s
	}
	md, ok := byOrigin["README.md"]
	if !ok {
		t.Fatalf("missing README snippet: %+v", snips)
	}
	if md.Language != "python" || md.Code != "pip_install()\n" {
		t.Errorf("README snippet: %+v", md)
	}
	if md.Context != "Intro\n\nInstall it." {
		t.Errorf("README context: %q", md.Context)
	}
	rst, ok := byOrigin["docs/usage.rst"]
	if !ok {
		t.Fatalf("missing rst snippet: %+v", snips)
	}
	// Indented literal blocks declare no language and inherit the target.
	if rst.Language != "python" {
		t.Errorf("rst language: %q", rst.Language)
	}
	if rst.Version != "1.0.0" || rst.PackageName != "acme" {
		t.Errorf("attribution: %+v", rst)
	}
}

func TestRepositoryDriver_LanguageFilter(t *testing.T) {
	d := fixtureDriver(t, map[string]string{
		"doc.md": "# H\n\n```java\nSystem.out.println();\n```\n\n```\nno_language()\n```\n",
	})

	snips, err := d.Run(context.Background(), repoConfig("python"), "acme", "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snips) != 1 {
		t.Fatalf("declared java must be dropped for a python library: %+v", snips)
	}
	if snips[0].Language != "python" || snips[0].Code != "no_language()\n" {
		t.Errorf("kept snippet: %+v", snips[0])
	}
}

func TestRepositoryDriver_EmptyFenceDropped(t *testing.T) {
	d := fixtureDriver(t, map[string]string{
		"README.md": "# Intro\n\nPlaceholder example:\n\n```python\n```\n\n```python\nreal()\n```\n",
	})

	snips, err := d.Run(context.Background(), repoConfig("python"), "acme", "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snips) != 1 {
		t.Fatalf("an empty fence is a placeholder, not a snippet: %+v", snips)
	}
	if snips[0].Code != "real()\n" {
		t.Errorf("kept snippet: %+v", snips[0])
	}
}

func TestRepositoryDriver_IncludeGlobs(t *testing.T) {
	d := fixtureDriver(t, map[string]string{
		"docs/a.md":  "```python\na()\n```\n",
		"other/b.md": "```python\nb()\n```\n",
	})

	snips, err := d.Run(context.Background(), repoConfig("python", "docs/**"), "acme", "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snips) != 1 || snips[0].Source != "docs/a.md" {
		t.Fatalf("globs should keep only docs/: %+v", snips)
	}
}

func TestRepositoryDriver_MalformedFileSkipped(t *testing.T) {
	d := fixtureDriver(t, map[string]string{
		"bad.ipynb": "{not json",
		"good.md":   "```python\nok()\n```\n",
	})

	snips, err := d.Run(context.Background(), repoConfig("python"), "acme", "v1")
	if err != nil {
		t.Fatalf("a malformed file must not abort the source: %v", err)
	}
	if len(snips) != 1 || snips[0].Code != "ok()\n" {
		t.Fatalf("snippets: %+v", snips)
	}
}

func TestSnippetDirectoryDriver(t *testing.T) {
	desc := "Create a collection with default parameters.\n"
	d := fixtureDriver(t, map[string]string{
		"create_collection/basic/_description.md": desc,
		"create_collection/basic/python.md":       "client.create_collection(...)\n",
		"create_collection/basic/go.md":           "client.CreateCollection(...)\n",
		"create_collection/basic/nested/x.md":     "ignored",
	})

	cfg := repoConfig("python")
	cfg.Type = SnippetDirectory
	snips, err := d.Run(context.Background(), cfg, "qdrant", "v1.9.0")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snips) != 2 {
		t.Fatalf("want one snippet per sibling language file: %+v", snips)
	}

	byLang := map[string]domain.Snippet{}
	for _, s := range snips {
		byLang[s.Language] = s
	}
	py, ok := byLang["python"]
	if !ok {
		t.Fatalf("missing python snippet: %+v", snips)
	}
	if py.Context != desc {
		t.Errorf("python context: %q", py.Context)
	}
	if py.Code != "client.create_collection(...)\n" {
		t.Errorf("python code: %q", py.Code)
	}
	go_, ok := byLang["go"]
	if !ok {
		t.Fatalf("missing go snippet: %+v", snips)
	}
	if go_.Context != desc {
		t.Errorf("go context: %q", go_.Context)
	}
	if py.Source != "create_collection/basic/python.md" {
		t.Errorf("source path: %q", py.Source)
	}
}

func TestSnippetDirectoryDriver_EmptyFileSkipped(t *testing.T) {
	d := fixtureDriver(t, map[string]string{
		"basic/_description.md": "Shared context.\n",
		"basic/python.md":       "\n",
		"basic/go.md":           "client.CreateCollection(...)\n",
	})
	cfg := repoConfig("python")
	cfg.Type = SnippetDirectory
	snips, err := d.Run(context.Background(), cfg, "qdrant", "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snips) != 1 || snips[0].Language != "go" {
		t.Fatalf("blank sibling must be skipped: %+v", snips)
	}
}

func TestSnippetDirectoryDriver_NoMarkersNoSnippets(t *testing.T) {
	d := fixtureDriver(t, map[string]string{
		"stray.md": "content",
	})
	cfg := repoConfig("python")
	cfg.Type = SnippetDirectory
	snips, err := d.Run(context.Background(), cfg, "p", "v1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snips) != 0 {
		t.Fatalf("snippets: %+v", snips)
	}
}

func TestConfigUnmarshal(t *testing.T) {
	raw := `{
		"name": "web docs",
		"language": "Python",
		"url": "https://docs.example.com/",
		"sourceType": "website",
		"versionPolicy": {"type": "package_registry", "value": "examplelib"}
	}`
	var cfg Config
	if err := cfg.UnmarshalJSON([]byte(raw)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.Type != Website {
		t.Errorf("type: %v", cfg.Type)
	}
	// fence languages come out of the extractor lower-cased, so the target
	// language is normalized on decode
	if cfg.Language != "python" {
		t.Errorf("language: %q", cfg.Language)
	}
	if cfg.VersionPolicy != (version.PackageRegistry{Package: "examplelib"}) {
		t.Errorf("policy: %#v", cfg.VersionPolicy)
	}
}

func TestConfigUnmarshal_UnknownType(t *testing.T) {
	var cfg Config
	err := cfg.UnmarshalJSON([]byte(`{"sourceType": "gopher", "versionPolicy": {"type": "fixed", "value": "1"}}`))
	if err == nil {
		t.Fatal("unknown sourceType should fail")
	}
}
