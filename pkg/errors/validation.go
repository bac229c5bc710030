package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// npmNameRe matches npm package names. Legacy packages with uppercase
// letters still exist on the registry, so case is not enforced.
var npmNameRe = regexp.MustCompile(`^(@[A-Za-z0-9-~][A-Za-z0-9-._~]*/)?[A-Za-z0-9-~][A-Za-z0-9-._~]*$`)

// maxNpmNameLength is the registry's limit on package names.
const maxNpmNameLength = 214

// ValidateNpmPackageName checks a module name before it is placed into a
// registry or CDN URL.
func ValidateNpmPackageName(name string) error {
	switch {
	case name == "":
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	case len(name) > maxNpmNameLength:
		return New(ErrCodeInvalidPackage, "package name too long (max %d characters)", maxNpmNameLength)
	case strings.Contains(name, ".."):
		return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", "..")
	case !npmNameRe.MatchString(name):
		return New(ErrCodeInvalidPackage, "invalid npm package name: %q", name)
	}
	return nil
}

// ValidateVirtualPath validates an absolute path from the virtual file map
// before it is materialized on disk.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - Must be absolute (start with /)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateVirtualPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if !strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "virtual path must be absolute: %q", path)
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL checks that a configured endpoint uses http or https.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
