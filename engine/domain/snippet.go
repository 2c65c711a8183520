// Package domain holds the core snippet records shared by the extraction
// drivers, the orchestrator, and the vector store gateway.
package domain

// VersionUnknown is the sentinel stamped on snippets whose source version
// could not be resolved.
const VersionUnknown = "unknown"

// Snippet is one extracted code example, fully attributed to a library and
// version and ready for ingestion. Immutable once constructed.
type Snippet struct {
	Context     string `json:"context"`
	Code        string `json:"code"`
	Language    string `json:"language"`
	Source      string `json:"source"`
	PackageName string `json:"package_name"`
	Version     string `json:"version"`
}

// Document returns the text that gets embedded: the descriptive context
// preceding the code block.
func (s Snippet) Document() string { return s.Context }

// Metadata returns the stored payload fields. The context is excluded
// because it is stored verbatim as the document.
func (s Snippet) Metadata() map[string]string {
	return map[string]string{
		"code":         s.Code,
		"language":     s.Language,
		"source":       s.Source,
		"package_name": s.PackageName,
		"version":      s.Version,
	}
}
