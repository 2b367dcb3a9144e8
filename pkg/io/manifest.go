package io

import (
	"fmt"
	"os"

	"github.com/pixelfold/atlasforge/pkg/atlas"
)

// ReadManifest loads and parses an atlas manifest from path.
// This is a convenience wrapper for tooling (the preview server, tests).
func ReadManifest(path string) (atlas.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return atlas.Manifest{}, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := atlas.DecodeManifest(data)
	if err != nil {
		return atlas.Manifest{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}
