// Package security validates the filesystem locations the server writes to.
package security

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/d-kuro/todo-mcp/internal/errors"
)

// Validator defines the security validation interface.
type Validator interface {
	ValidatePath(path string) error
	SanitizePath(path string) (string, error)
}

// DefaultValidator provides default security validation implementation.
type DefaultValidator struct {
	allowedPaths []string
	blockedPaths []string
}

// NewDefaultValidator creates a new default validator with secure defaults.
func NewDefaultValidator() *DefaultValidator {
	return &DefaultValidator{
		allowedPaths: []string{},
		blockedPaths: []string{
			"/etc",
			"/usr/bin",
			"/usr/sbin",
			"/sbin",
			"/bin",
			"/sys",
			"/proc",
			"/dev",
		},
	}
}

// WithAllowedPaths restricts store files to the given directories.
func (v *DefaultValidator) WithAllowedPaths(paths []string) *DefaultValidator {
	v.allowedPaths = make([]string, len(paths))
	copy(v.allowedPaths, paths)
	return v
}

// WithBlockedPaths adds blocked paths to the default list.
func (v *DefaultValidator) WithBlockedPaths(paths []string) *DefaultValidator {
	v.blockedPaths = append(v.blockedPaths, paths...)
	return v
}

// ValidatePath checks that an absolute store path is outside every blocked
// directory and, when an allow list is set, inside one of the allowed ones.
func (v *DefaultValidator) ValidatePath(path string) error {
	if !filepath.IsAbs(path) {
		return errors.Security("path must be absolute: %s", path)
	}

	resolvedPath := resolve(filepath.Clean(path))

	for _, blocked := range v.blockedPaths {
		if within(resolvedPath, blocked) {
			return errors.Security("path %s is in restricted directory %s", path, blocked)
		}
	}

	if len(v.allowedPaths) > 0 {
		for _, allowed := range v.allowedPaths {
			if within(resolvedPath, allowed) {
				return nil
			}
		}
		return errors.Security("path %s is not in an allowed directory", path)
	}

	return nil
}

// SanitizePath makes path absolute relative to the working directory,
// expands a leading ~ and validates the result.
func (v *DefaultValidator) SanitizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.Validation("path cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return "", errors.Validation("path contains a NUL byte")
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to resolve home directory")
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve path %s", path)
	}

	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// resolve follows symlinks in the longest existing prefix of path, so that
// a store file that does not exist yet is still checked against its real
// parent directory.
func resolve(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return filepath.Join(resolve(parent), filepath.Base(path))
}

// within reports whether path equals dir or lies below it. dir is
// compared after following its symlinks, like path.
func within(path, dir string) bool {
	dir = resolve(filepath.Clean(dir))
	if path == dir {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
