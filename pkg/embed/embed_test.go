package embed

import (
	"context"
	"testing"
)

func TestSanitizeVectorName(t *testing.T) {
	cases := map[string]string{
		"text-embedding-3-small":          "text-embedding-3-small",
		"mixedbread-ai/mxbai-embed-large": "mixedbread-ai-mxbai-embed-large",
		"BAAI/bge_small.en":               "baai-bge-small-en",
		"model..":                         "model",
	}
	for in, want := range cases {
		if got := SanitizeVectorName(in); got != want {
			t.Errorf("%q: got %q, want %q", in, got, want)
		}
	}
}

func TestNewOpenAI_Defaults(t *testing.T) {
	p, err := NewOpenAI("test-key", "")
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	if p.VectorSize() != 1536 {
		t.Errorf("size: got %d", p.VectorSize())
	}
	if p.VectorName() != "text-embedding-3-small" {
		t.Errorf("name: got %q", p.VectorName())
	}
}

func TestNewOpenAI_Errors(t *testing.T) {
	if _, err := NewOpenAI("", ""); err == nil {
		t.Fatal("empty key should fail")
	}
	if _, err := NewOpenAI("k", "made-up-model"); err == nil {
		t.Fatal("unknown model should fail")
	}
}

func TestStaticProvider(t *testing.T) {
	s := Static{Name: "test", Vector: []float32{1, 2, 3}}
	v, err := s.Embed(context.Background(), "anything")
	if err != nil || len(v) != 3 {
		t.Fatalf("Embed: %v %v", v, err)
	}
	if s.VectorSize() != 3 || s.VectorName() != "test" {
		t.Fatal("descriptor")
	}
}
