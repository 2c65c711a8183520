package semantic

import (
	"crypto/sha256"
	"strings"

	"github.com/google/uuid"

	"github.com/docsnips/docsnips/engine/domain"
)

// PointID derives a stable UUID for a snippet from its identity fields:
// context, package name, language and version. Snippets that differ only in
// code or source path collapse to the same point, so re-ingesting updated
// documentation replaces stale entries in place.
func PointID(s domain.Snippet) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		s.Context,
		s.PackageName,
		s.Language,
		s.Version,
	}, "\x00")))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		// unreachable: FromBytes only rejects slices that are not 16 bytes
		panic(err)
	}
	return id.String()
}
