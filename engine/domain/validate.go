package domain

import "fmt"

// ValidateSnippet checks the invariants every snippet must satisfy before it
// reaches the vector store: a non-empty language and a populated version
// (the "unknown" sentinel counts as populated).
func ValidateSnippet(s Snippet) error {
	if s.Code == "" {
		return fmt.Errorf("snippet %s: code is empty", s.Source)
	}
	if s.Language == "" {
		return fmt.Errorf("snippet %s: language is empty", s.Source)
	}
	if s.PackageName == "" {
		return fmt.Errorf("snippet %s: package_name is empty", s.Source)
	}
	if s.Version == "" {
		return fmt.Errorf("snippet %s: version is empty", s.Source)
	}
	return nil
}
