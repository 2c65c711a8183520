// Package version resolves the version label stamped on snippets extracted
// from a source. Resolution never fails: every error path degrades to the
// "unknown" sentinel.
package version

import (
	"fmt"

	"github.com/docsnips/docsnips/engine/domain"
)

// Unknown is the universal fallback version label.
const Unknown = domain.VersionUnknown

// Policy is the closed set of version-resolution strategies. Adding a kind
// means updating every type switch over it, checked at compile time by the
// unexported marker method.
type Policy interface {
	isPolicy()
}

// Fixed resolves to a literal version string, verbatim.
type Fixed struct {
	Value string
}

// PackageRegistry resolves via the package registry's latest-version
// endpoint. No tag fallback: a missing package stays unknown.
type PackageRegistry struct {
	Package string
}

// VCSRelease resolves via the repository's latest published release,
// falling back to tag enumeration when no release exists.
type VCSRelease struct {
	RepoURL string
}

// VCSTags resolves to the maximum semantic-version tag of the repository.
type VCSTags struct {
	RepoURL string
}

func (Fixed) isPolicy()           {}
func (PackageRegistry) isPolicy() {}
func (VCSRelease) isPolicy()      {}
func (VCSTags) isPolicy()         {}

// ParsePolicy maps the configuration wire form onto a Policy.
func ParsePolicy(kind, value string) (Policy, error) {
	switch kind {
	case "fixed", "version":
		return Fixed{Value: value}, nil
	case "package_registry", "pypi":
		return PackageRegistry{Package: value}, nil
	case "vcs_release", "github_release":
		return VCSRelease{RepoURL: value}, nil
	case "vcs_tags", "github_tags":
		return VCSTags{RepoURL: value}, nil
	default:
		return nil, fmt.Errorf("version: unknown policy type %q", kind)
	}
}
