package io

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path via a temporary file in the same
// directory and an atomic rename. On any failure the temporary file is
// removed and the destination is left untouched.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := stage(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// WritePair writes two files as a single atomic unit: both are staged as
// temporaries first, then renamed into place. If staging either file
// fails, neither destination is touched. Rename failures remove whatever
// was staged so no mismatched pair persists.
func WritePair(pathA string, dataA []byte, pathB string, dataB []byte) error {
	tmpA, err := stage(pathA, dataA)
	if err != nil {
		return err
	}
	tmpB, err := stage(pathB, dataB)
	if err != nil {
		_ = os.Remove(tmpA)
		return err
	}

	if err := os.Rename(tmpA, pathA); err != nil {
		_ = os.Remove(tmpA)
		_ = os.Remove(tmpB)
		return fmt.Errorf("rename %s: %w", pathA, err)
	}
	if err := os.Rename(tmpB, pathB); err != nil {
		// First rename already landed; remove it so the pair stays
		// consistent with the previous run.
		_ = os.Remove(pathA)
		_ = os.Remove(tmpB)
		return fmt.Errorf("rename %s: %w", pathB, err)
	}
	return nil
}

// stage writes data to a temporary file next to path and returns the
// temporary's name.
func stage(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close %s: %w", tmp, err)
	}
	return tmp, nil
}
