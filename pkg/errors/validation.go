package errors

import (
	"strings"
	"unicode"
)

// ValidateSlotFilename validates a sprite filename referenced or derivable
// for a slot. It rejects names that could escape the source folder.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators (/ or \)
//   - No path traversal sequences (..)
//   - No absolute paths
//   - Maximum length of 256 characters
func ValidateSlotFilename(name string) error {
	if name == "" {
		return New(ErrCodeUnsafePath, "slot filename cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeUnsafePath, "slot filename too long (max 256 characters)")
	}

	for _, r := range name {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeUnsafePath, "slot filename contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeUnsafePath, "slot filename cannot contain path separators: %q", name)
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeUnsafePath, "slot filename cannot contain path traversal sequences: %q", name)
	}

	return nil
}

// ValidateFolderName validates an atlas folder name for safety.
// Folder names become part of output file names (atlas_<folder>.png), so
// the same traversal rules apply.
func ValidateFolderName(name string) error {
	if name == "" {
		return New(ErrCodeUnsafePath, "folder name cannot be empty")
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeUnsafePath, "folder name cannot contain path separators: %q", name)
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeUnsafePath, "folder name cannot contain path traversal sequences: %q", name)
	}

	// No hidden folders (starting with .)
	if strings.HasPrefix(name, ".") {
		return New(ErrCodeUnsafePath, "folder name cannot be hidden: %q", name)
	}

	return nil
}
