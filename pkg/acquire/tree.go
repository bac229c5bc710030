package acquire

import (
	"context"
	"errors"
	"strings"

	dterrors "github.com/matzehuels/dtsfetch/pkg/errors"
)

// ErrUnknownTag is the cause attached when a registry knows no version for a tag.
var ErrUnknownTag = errors.New("unknown tag")

// ResolveTree resolves module@tag to a concrete version and returns its file
// tree. A tag without at least one "." is treated as a dist-tag and resolved
// through the registry; anything else is used as the version directly.
//
// Errors are *errors.Error values whose message is meant for end users:
// codes TAG_RESOLUTION, VERSIONS_UNAVAILABLE, TAG_NOT_FOUND and FILE_TREE.
func ResolveTree(ctx context.Context, reg Registry, module, tag, raw string) (*FileTree, error) {
	version := tag
	if version == "" {
		version = defaultTag
	}

	if len(strings.Split(version, ".")) < 2 {
		resolved, err := reg.ResolveTag(ctx, module, version)
		if err != nil {
			return nil, dterrors.Wrap(dterrors.ErrCodeTagResolution, err,
				"Could not go from a tag to version on npm for %s - possible typo?", module)
		}
		if resolved == "" {
			versions, err := reg.Versions(ctx, module)
			if err != nil {
				return nil, dterrors.Wrap(dterrors.ErrCodeVersions, err,
					"Could not get versions on npm for %s - possible typo?", module)
			}
			return nil, dterrors.Wrap(dterrors.ErrCodeTagNotFound, ErrUnknownTag,
				"Could not find a tag for %s called %s. Did find %s",
				module, version, strings.Join(versions.TagNames(), ", "))
		}
		version = resolved
	}

	tree, err := reg.FileTree(ctx, module, version, raw)
	if err != nil {
		return nil, dterrors.Wrap(dterrors.ErrCodeFileTree, err,
			"Could not get the files for %s@%s. Is it possibly a typo?", module, version)
	}

	if tree == nil {
		tree = &FileTree{}
	}
	out := *tree
	out.Module, out.Version, out.Raw = module, version, raw
	return &out, nil
}
