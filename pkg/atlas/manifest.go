package atlas

import (
	"encoding/json"
	"sort"

	"github.com/pixelfold/atlasforge/pkg/errors"
)

// Manifest is the canonical record mapping slot indices to rectangles and
// source names. It is immutable after emission and designed to be
// human-diffable: slots are ordered by ascending index, key order is
// fixed, and all fields are integers or strings.
type Manifest struct {
	AtlasName    string         `json:"atlas_name"`
	CanvasWidth  int            `json:"canvas_width"`
	CanvasHeight int            `json:"canvas_height"`
	Slots        []ManifestSlot `json:"slots"`
}

// ManifestSlot is one slot's entry in the manifest. Source is the file
// name the slot resolved to (the placeholder's name when the slot's own
// sprite was absent).
type ManifestSlot struct {
	Index  int    `json:"index"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	W      int    `json:"w"`
	H      int    `json:"h"`
	Source string `json:"source"`
}

// BuildManifest produces the manifest for a composed atlas. The atlas name
// is derived from the folder name by the caller. Slots are sorted by
// ascending index regardless of declared order.
func BuildManifest(name string, canvas Canvas, resolved []ResolvedSlot) Manifest {
	m := Manifest{
		AtlasName:    name,
		CanvasWidth:  canvas.Width,
		CanvasHeight: canvas.Height,
		Slots:        make([]ManifestSlot, len(resolved)),
	}
	for i, rs := range resolved {
		m.Slots[i] = ManifestSlot{
			Index:  rs.Index,
			X:      rs.X,
			Y:      rs.Y,
			W:      rs.W,
			H:      rs.H,
			Source: rs.Source,
		}
	}
	sort.Slice(m.Slots, func(i, j int) bool { return m.Slots[i].Index < m.Slots[j].Index })
	return m
}

// Encode serializes the manifest deterministically: fixed key order,
// two-space indentation, trailing newline. Identical manifests always
// produce identical bytes.
func (m Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEncodeFailed, err, "encode manifest %q", m.AtlasName)
	}
	return append(data, '\n'), nil
}

// DecodeManifest parses manifest bytes produced by Encode.
func DecodeManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse manifest")
	}
	return m, nil
}
