package atlas

import (
	"fmt"

	"github.com/pixelfold/atlasforge/pkg/errors"
)

// MaxCanvas is the maximum canvas edge length in pixels, inclusive.
const MaxCanvas = 2048

// Canvas is the full-size pixel area an atlas is composed onto.
type Canvas struct {
	Width  int
	Height int
}

// Slot is one rectangular region of the canvas assigned to one logical
// sprite. Filename optionally overrides the convention-derived source
// name (<index>.png); it is subject to the same safety validation.
type Slot struct {
	Index    int
	X, Y     int
	W, H     int
	Filename string
}

// SourceName returns the file name this slot resolves against: the
// explicit Filename override if set, otherwise "<index>.png".
func (s Slot) SourceName() string {
	if s.Filename != "" {
		return s.Filename
	}
	return fmt.Sprintf("%d.png", s.Index)
}

// LayoutMode is the resolved per-folder layout: either a UniformGrid or
// an explicit CustomSlots list. The set of implementations is closed;
// both normalize to the same (Canvas, []Slot) shape via [Layout].
type LayoutMode interface {
	synthesize() (Canvas, []Slot)
}

// UniformGrid lays slots out in a Cols×Rows grid of uniform rectangles.
// Slot indices are 1-based and assigned in row-major order
// (index = 1 + row*cols + col), matching the custom-layout convention so
// grid and custom configs describing the same atlas stay mirror-consistent.
type UniformGrid struct {
	Cols       int
	Rows       int
	SlotWidth  int
	SlotHeight int
}

func (g UniformGrid) synthesize() (Canvas, []Slot) {
	canvas := Canvas{Width: g.Cols * g.SlotWidth, Height: g.Rows * g.SlotHeight}
	slots := make([]Slot, 0, g.Cols*g.Rows)
	for i := 0; i < g.Cols*g.Rows; i++ {
		col := i % g.Cols
		row := i / g.Cols
		slots = append(slots, Slot{
			Index: i + 1,
			X:     col * g.SlotWidth,
			Y:     row * g.SlotHeight,
			W:     g.SlotWidth,
			H:     g.SlotHeight,
		})
	}
	return canvas, slots
}

// CustomSlots is an explicit slot list on a declared canvas size. Slots
// are kept in declared order.
type CustomSlots struct {
	CanvasWidth  int
	CanvasHeight int
	Slots        []Slot
}

func (c CustomSlots) synthesize() (Canvas, []Slot) {
	return Canvas{Width: c.CanvasWidth, Height: c.CanvasHeight}, c.Slots
}

// Layout normalizes a LayoutMode into a validated (Canvas, []Slot) pair.
//
// Validation rules apply uniformly to both modes, in order, first failure
// wins:
//
//  1. Canvas within MaxCanvas on both axes (CANVAS_TOO_LARGE)
//  2. No two slots share an index (DUPLICATE_INDEX)
//  3. Every slot has positive size and lies fully inside the canvas
//     (SLOT_OUT_OF_BOUNDS)
//  4. Every derivable source filename is traversal-safe (UNSAFE_PATH)
//
// No side effects occur here; a failing folder aborts before any output
// I/O.
func Layout(m LayoutMode) (Canvas, []Slot, error) {
	canvas, slots := m.synthesize()

	if canvas.Width <= 0 || canvas.Height <= 0 {
		return Canvas{}, nil, errors.New(errors.ErrCodeInvalidConfig,
			"canvas dimensions must be positive (got %dx%d)", canvas.Width, canvas.Height)
	}
	if canvas.Width > MaxCanvas || canvas.Height > MaxCanvas {
		return Canvas{}, nil, errors.New(errors.ErrCodeCanvasTooLarge,
			"canvas %dx%d exceeds maximum %dx%d", canvas.Width, canvas.Height, MaxCanvas, MaxCanvas)
	}

	seen := make(map[int]struct{}, len(slots))
	for _, s := range slots {
		if _, dup := seen[s.Index]; dup {
			return Canvas{}, nil, errors.New(errors.ErrCodeDuplicateIndex,
				"duplicate slot index %d", s.Index)
		}
		seen[s.Index] = struct{}{}
	}

	for _, s := range slots {
		if s.W <= 0 || s.H <= 0 {
			return Canvas{}, nil, errors.New(errors.ErrCodeSlotOutOfBounds,
				"slot %d must have positive width and height (got %dx%d)", s.Index, s.W, s.H)
		}
		if s.X < 0 || s.Y < 0 || s.X+s.W > canvas.Width || s.Y+s.H > canvas.Height {
			return Canvas{}, nil, errors.New(errors.ErrCodeSlotOutOfBounds,
				"slot %d bounds exceed canvas: x=%d y=%d w=%d h=%d, canvas=%dx%d",
				s.Index, s.X, s.Y, s.W, s.H, canvas.Width, canvas.Height)
		}
	}

	for _, s := range slots {
		if err := errors.ValidateSlotFilename(s.SourceName()); err != nil {
			return Canvas{}, nil, err
		}
	}

	return canvas, slots, nil
}
