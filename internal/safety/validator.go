package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/IGLOU-EU/go-wildcard"
)

var (
	ErrInvalidPath    = errors.New("invalid path")
	ErrProtectedPath  = errors.New("protected path")
	ErrOutsideAllowed = errors.New("outside allowed roots")
	ErrTraversal      = errors.New("path traversal detected")
	ErrSymlinkEscape  = errors.New("symlink escape detected")
)

// Validator enforces the safety contract for all sweep operations
type Validator struct {
	AllowedRoots []string
	DenyList     []string // Exact paths, path prefixes, or wildcard patterns
}

// NewValidator creates a validator with allowed roots and optional additional deny entries
func NewValidator(allowed []string, extraDeny []string) *Validator {
	return &Validator{
		AllowedRoots: normalizeRoots(allowed),
		DenyList:     defaultDenyList(extraDeny),
	}
}

// ValidateSweepTarget is the single source of truth for sweep authorization
// Returns typed error on safety violation
func (v *Validator) ValidateSweepTarget(path string) error {
	// 1. Normalize path to absolute, cleaned form
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	// 2. Block denied paths (filesystem root, system dirs, configured patterns)
	if IsDenied(p, v.DenyList) {
		return ErrProtectedPath
	}

	// 3. Ensure within allowed roots
	if !IsWithinAllowedRoots(p, v.AllowedRoots) {
		return ErrOutsideAllowed
	}

	// 4. Detect path traversal in raw input
	if DetectTraversal(path) {
		return ErrTraversal
	}

	// 5. Detect symlink escape
	escaped, err := DetectSymlinkEscape(p, v.AllowedRoots)
	if err != nil {
		// If symlink resolution fails because the path does not exist, allow the
		// attempt: the actual sweep will report not-found on its own.
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if escaped {
		return ErrSymlinkEscape
	}

	return nil
}

// IsViolation reports whether err (or any joined/wrapped error inside it) is one
// of the validator's typed safety errors.
func IsViolation(err error) bool {
	return errors.Is(err, ErrInvalidPath) ||
		errors.Is(err, ErrProtectedPath) ||
		errors.Is(err, ErrOutsideAllowed) ||
		errors.Is(err, ErrTraversal) ||
		errors.Is(err, ErrSymlinkEscape)
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	parts := strings.Split(filepath.ToSlash(raw), "/")
	for _, p := range parts {
		if p == ".." {
			return true
		}
	}
	return false
}

// IsWithinAllowedRoots checks if path is within any allowed root
func IsWithinAllowedRoots(path string, allowedRoots []string) bool {
	p := filepath.Clean(path)
	for _, r := range allowedRoots {
		if hasPathPrefix(p, r) {
			return true
		}
	}
	return false
}

// DetectSymlinkEscape resolves symlinks and checks if resolved path escapes allowed roots
func DetectSymlinkEscape(cleanAbs string, allowedRoots []string) (bool, error) {
	resolved, err := filepath.EvalSymlinks(cleanAbs)
	if err != nil {
		return false, err
	}
	resolvedAbs, err := filepath.Abs(resolved)
	if err != nil {
		return false, err
	}
	resolvedClean := filepath.Clean(resolvedAbs)
	// Only flag as escape if the resolved path is outside allowed roots.
	if !IsWithinAllowedRoots(resolvedClean, allowedRoots) {
		return true, nil
	}
	return false, nil
}

// IsDenied checks if path matches a deny-list entry
// Entries containing wildcard metacharacters match the whole path as a pattern;
// plain entries match exactly or as a directory prefix
func IsDenied(path string, denyList []string) bool {
	p := filepath.Clean(path)

	// Hard block: "/" exact
	if p == string(os.PathSeparator) {
		return true
	}

	for _, entry := range denyList {
		if strings.ContainsAny(entry, "*?") {
			if wildcard.Match(entry, p) {
				return true
			}
			continue
		}
		entry = filepath.Clean(entry)
		if p == entry || hasPathPrefix(p, entry) {
			return true
		}
	}
	return false
}

// hasPathPrefix checks if path has the given prefix
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return path == "/"
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

// normalizeRoots converts slice of roots to absolute, cleaned paths
func normalizeRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}

// defaultDenyList returns the base set of denied paths plus any extras
func defaultDenyList(extra []string) []string {
	base := []string{
		"/",
		"/etc",
		"/bin",
		"/usr",
		"/boot",
		"/lib",
		"/lib64",
		"/sbin",
		"/var/lib/dirsweep",
		"/etc/dirsweep",
	}
	return append(base, extra...)
}
