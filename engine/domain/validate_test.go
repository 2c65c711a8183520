package domain

import (
	"strings"
	"testing"
)

func validSnippet() Snippet {
	return Snippet{
		Context:     "Create a collection",
		Code:        "client.create_collection(...)",
		Language:    "python",
		Source:      "docs/quickstart.md",
		PackageName: "qdrant-client",
		Version:     "v1.9.0",
	}
}

func TestValidateSnippet(t *testing.T) {
	if err := ValidateSnippet(validSnippet()); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestValidateSnippet_MissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Snippet)
		want   string
	}{
		{"empty code", func(s *Snippet) { s.Code = "" }, "code is empty"},
		{"empty language", func(s *Snippet) { s.Language = "" }, "language is empty"},
		{"empty package", func(s *Snippet) { s.PackageName = "" }, "package_name is empty"},
		{"empty version", func(s *Snippet) { s.Version = "" }, "version is empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSnippet()
			tc.mutate(&s)
			err := ValidateSnippet(s)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateSnippet_UnknownVersionIsValid(t *testing.T) {
	s := validSnippet()
	s.Version = VersionUnknown
	if err := ValidateSnippet(s); err != nil {
		t.Fatalf("sentinel version should validate: %v", err)
	}
}

func TestSnippetDocumentAndMetadata(t *testing.T) {
	s := validSnippet()
	if s.Document() != s.Context {
		t.Fatal("document should be the context")
	}
	meta := s.Metadata()
	if _, ok := meta["code"]; !ok {
		t.Fatal("metadata should carry the code")
	}
	if _, ok := meta["context"]; ok {
		t.Fatal("metadata should not duplicate the document text")
	}
	for _, k := range []string{"language", "source", "package_name", "version"} {
		if meta[k] == "" {
			t.Errorf("metadata %q should be populated", k)
		}
	}
}
