package atlas

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pixelfold/atlasforge/pkg/errors"
)

// PlaceholderName is the shared fallback image looked up when a slot has
// no corresponding source sprite.
const PlaceholderName = "placeholder.png"

// Source supplies sprite file contents by name. It abstracts the folder
// contents so resolution can be tested without filesystem state.
//
// Open returns (nil, false, nil) when the name does not exist; an error is
// returned only for genuine read failures.
type Source interface {
	Open(name string) (io.ReadCloser, bool, error)
}

// DirSource reads sprites from a real folder on disk.
type DirSource struct {
	Dir string
}

// Open opens the named file inside the source directory.
func (d DirSource) Open(name string) (io.ReadCloser, bool, error) {
	f, err := os.Open(filepath.Join(d.Dir, name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

// MapSource serves sprites from an in-memory name→bytes mapping. It is
// the test double for DirSource.
type MapSource map[string][]byte

// Open returns a reader over the mapped bytes.
func (m MapSource) Open(name string) (io.ReadCloser, bool, error) {
	data, ok := m[name]
	if !ok {
		return nil, false, nil
	}
	return io.NopCloser(bytes.NewReader(data)), true, nil
}

// ResolvedSlot is a validated slot bound to a decoded source image.
// Source records the file name actually used (the placeholder's name when
// the slot's own sprite was absent).
type ResolvedSlot struct {
	Slot
	Source string
	Image  image.Image
}

// Resolve binds each validated slot to a source image by convention-based
// lookup: the slot's SourceName if present, otherwise the shared
// placeholder. Only .png names are considered; any other extension is
// treated as absent.
//
// An individual missing sprite is never fatal. The sole fatal condition is
// an unresolved slot with no placeholder in the folder, which fails with
// MISSING_PLACEHOLDER. The placeholder is decoded at most once and shared
// across slots (it is only ever read from).
func Resolve(src Source, slots []Slot) ([]ResolvedSlot, error) {
	var placeholder image.Image
	placeholderLoaded := false

	resolved := make([]ResolvedSlot, 0, len(slots))
	for _, s := range slots {
		name := s.SourceName()
		img, ok, err := decodeIfPresent(src, name)
		if err != nil {
			return nil, err
		}
		if ok {
			resolved = append(resolved, ResolvedSlot{Slot: s, Source: name, Image: img})
			continue
		}

		if !placeholderLoaded {
			placeholder, _, err = decodeIfPresent(src, PlaceholderName)
			if err != nil {
				return nil, err
			}
			placeholderLoaded = true
		}
		if placeholder == nil {
			return nil, errors.New(errors.ErrCodeMissingPlaceholder,
				"slot %d has no source %q and no %s exists", s.Index, name, PlaceholderName)
		}
		resolved = append(resolved, ResolvedSlot{Slot: s, Source: PlaceholderName, Image: placeholder})
	}
	return resolved, nil
}

// decodeIfPresent opens and decodes name from src. Non-.png names and
// absent files report (nil, false, nil).
func decodeIfPresent(src Source, name string) (image.Image, bool, error) {
	if !strings.HasSuffix(name, ".png") {
		return nil, false, nil
	}
	rc, ok, err := src.Open(name)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "open %q", name)
	}
	if !ok {
		return nil, false, nil
	}
	defer rc.Close()

	img, err := png.Decode(rc)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "decode %q", name)
	}
	return img, true, nil
}
