// Package source turns a declared ingestion source -- a repository, a
// curated snippet directory, or a website -- into fully resolved snippet
// records.
package source

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docsnips/docsnips/engine/version"
)

// Type is the closed set of source strategies.
type Type int

const (
	Repository Type = iota
	SnippetDirectory
	Website
)

func (t Type) String() string {
	switch t {
	case Repository:
		return "repository"
	case SnippetDirectory:
		return "snippet_directory"
	case Website:
		return "website"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

func parseType(s string) (Type, error) {
	switch s {
	case "repository", "repo":
		return Repository, nil
	case "snippet_directory", "snippets_dir":
		return SnippetDirectory, nil
	case "website":
		return Website, nil
	default:
		return 0, fmt.Errorf("source: unknown source type %q", s)
	}
}

// Config declares one ingestion source of a library.
type Config struct {
	Name          string
	Language      string
	URL           string
	Type          Type
	IncludeGlobs  []string
	VersionPolicy version.Policy
}

type configWire struct {
	Name          string   `json:"name"`
	Language      string   `json:"language"`
	URL           string   `json:"url"`
	SourceType    string   `json:"sourceType"`
	IncludeGlobs  []string `json:"includeGlobs,omitempty"`
	VersionPolicy struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"versionPolicy"`
}

// UnmarshalJSON decodes the per-library configuration wire form, mapping
// the sourceType and versionPolicy tags onto their closed variants.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w configWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t, err := parseType(w.SourceType)
	if err != nil {
		return err
	}
	p, err := version.ParsePolicy(w.VersionPolicy.Type, w.VersionPolicy.Value)
	if err != nil {
		return err
	}
	*c = Config{
		Name: w.Name,
		// extracted fence languages are lower-cased, so the target
		// language must be too
		Language:      strings.ToLower(w.Language),
		URL:           w.URL,
		Type:          t,
		IncludeGlobs:  w.IncludeGlobs,
		VersionPolicy: p,
	}
	return nil
}
