// Package embed defines the embedding interface the ingestion pipeline
// consumes, plus an OpenAI-backed implementation.
package embed

import (
	"context"
	"strings"
)

// Provider turns text into a fixed-length float vector and describes the
// named vector it produces.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	VectorName() string
	VectorSize() int
}

// SanitizeVectorName maps a model identifier onto a vector name the store
// accepts: lower-cased, with every non-alphanumeric run collapsed to "-".
func SanitizeVectorName(model string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(model) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

// Static is a fixed-vector Provider for tests.
type Static struct {
	Name   string
	Vector []float32
}

// NewStatic returns a Static provider emitting a zero vector of the given size.
func NewStatic(name string, size int) Static {
	return Static{Name: name, Vector: make([]float32, size)}
}

func (s Static) Embed(context.Context, string) ([]float32, error) { return s.Vector, nil }
func (s Static) VectorName() string                               { return s.Name }
func (s Static) VectorSize() int                                  { return len(s.Vector) }
