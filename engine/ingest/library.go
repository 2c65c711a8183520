// Package ingest orchestrates one library's ingestion run: load the
// library record, clone its repository, load or synthesize its source
// configuration, run every source through its driver, and hand the
// aggregated snippets to the vector store.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docsnips/docsnips/engine/source"
	"github.com/docsnips/docsnips/engine/version"
)

// DefaultConfigPath is where a library's own repository declares its
// ingestion sources, unless the library record overrides it.
const DefaultConfigPath = ".docs-ingest-config.json"

// Library is the declarative unit of ingestion, one JSON file per library.
type Library struct {
	Name            string `json:"name"`
	RepositoryURL   string `json:"repositoryURL"`
	DefaultLanguage string `json:"language"`
	ConfigPath      string `json:"configPath,omitempty"`
}

// LibraryConfig lists the sources a library is ingested from.
type LibraryConfig struct {
	Description string          `json:"description,omitempty"`
	Sources     []source.Config `json:"sources"`
}

// ConfigError reports an unusable library or source declaration. It is
// always fatal for the library it names, regardless of strict mode.
type ConfigError struct {
	Library string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ingest: library %s: %v", e.Library, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadLibrary reads <dir>/<name>.json.
func LoadLibrary(dir, name string) (Library, error) {
	data, err := os.ReadFile(filepath.Join(dir, name+".json"))
	if err != nil {
		return Library{}, &ConfigError{Library: name, Err: err}
	}
	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return Library{}, &ConfigError{Library: name, Err: fmt.Errorf("parse library record: %w", err)}
	}
	if lib.Name == "" {
		lib.Name = name
	}
	if lib.RepositoryURL == "" {
		return Library{}, &ConfigError{Library: name, Err: fmt.Errorf("missing repositoryURL")}
	}
	if lib.DefaultLanguage == "" {
		return Library{}, &ConfigError{Library: name, Err: fmt.Errorf("missing language")}
	}
	lib.DefaultLanguage = strings.ToLower(lib.DefaultLanguage)
	if lib.ConfigPath == "" {
		lib.ConfigPath = DefaultConfigPath
	}
	return lib, nil
}

// ListLibraries returns the names of every library record under dir,
// sorted for stable run order.
func ListLibraries(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: list libraries: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// loadConfig reads the library's source configuration out of its cloned
// repository, or synthesizes the single-repository default when the file
// is absent.
func loadConfig(lib Library, cloneRoot string) (LibraryConfig, error) {
	data, err := os.ReadFile(filepath.Join(cloneRoot, filepath.FromSlash(lib.ConfigPath)))
	if os.IsNotExist(err) {
		return defaultConfig(lib), nil
	}
	if err != nil {
		return LibraryConfig{}, &ConfigError{Library: lib.Name, Err: err}
	}
	var cfg LibraryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return LibraryConfig{}, &ConfigError{Library: lib.Name, Err: fmt.Errorf("parse %s: %w", lib.ConfigPath, err)}
	}
	// A config that declares no sources is an explicit opt-out: the run is
	// empty, not an error.
	return cfg, nil
}

// defaultConfig covers libraries that carry no configuration of their own:
// scan the whole repository, stamped "latest".
func defaultConfig(lib Library) LibraryConfig {
	return LibraryConfig{
		Sources: []source.Config{{
			Name:          lib.Name,
			Language:      lib.DefaultLanguage,
			URL:           lib.RepositoryURL,
			Type:          source.Repository,
			VersionPolicy: version.Fixed{Value: "latest"},
		}},
	}
}
