package atlas

import (
	"encoding/json"

	"github.com/pixelfold/atlasforge/pkg/errors"
)

// Default layout values applied when a folder has no config.json, or when
// a grid config omits individual fields.
const (
	DefaultCols     = 4
	DefaultRows     = 4
	DefaultSlotSize = 512
)

// Config is a folder's fully resolved configuration: exactly one layout
// mode plus the fitting policy. It is produced once at the boundary by
// [ResolveConfig]; everything downstream operates on the canonical
// (Canvas, []Slot) shape obtained via [Layout].
//
// Fit is empty when the folder did not specify one, letting callers apply
// a project-wide default before falling back to FitNone.
type Config struct {
	Mode LayoutMode
	Fit  FitMode
}

// rawConfig mirrors the on-disk config.json schema. Pointer fields
// distinguish absent keys from zero values; unknown keys are ignored.
type rawConfig struct {
	Cols         *int      `json:"cols"`
	Rows         *int      `json:"rows"`
	SlotWidth    *int      `json:"slot_width"`
	SlotHeight   *int      `json:"slot_height"`
	CanvasWidth  *int      `json:"canvas_width"`
	CanvasHeight *int      `json:"canvas_height"`
	Slots        []rawSlot `json:"slots"`
	Fit          *string   `json:"fit"`
}

type rawSlot struct {
	Index    *int    `json:"index"`
	X        *int    `json:"x"`
	Y        *int    `json:"y"`
	W        *int    `json:"w"`
	H        *int    `json:"h"`
	Filename *string `json:"filename"`
}

// DefaultLayout is the layout used when a folder has no configuration:
// a 4×4 grid of 512×512 slots on a 2048×2048 canvas.
func DefaultLayout() UniformGrid {
	return UniformGrid{
		Cols:       DefaultCols,
		Rows:       DefaultRows,
		SlotWidth:  DefaultSlotSize,
		SlotHeight: DefaultSlotSize,
	}
}

// ResolveConfig parses an optional per-folder configuration document into
// a Config. A nil or empty document yields the full defaults.
//
// The two layout shapes are mutually exclusive: a document providing both
// grid keys (cols/rows/slot_width/slot_height) and custom keys
// (canvas_width/canvas_height/slots) fails fast with INVALID_CONFIG.
// Wrong field types (non-integer dimensions, non-array slots) also fail
// with INVALID_CONFIG. Unrecognized keys are ignored.
func ResolveConfig(data []byte) (Config, error) {
	if len(data) == 0 {
		return Config{Mode: DefaultLayout()}, nil
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config.json")
	}

	fit, err := resolveFit(raw.Fit)
	if err != nil {
		return Config{}, err
	}

	hasGrid := raw.Cols != nil || raw.Rows != nil || raw.SlotWidth != nil || raw.SlotHeight != nil
	hasCustom := raw.Slots != nil || raw.CanvasWidth != nil || raw.CanvasHeight != nil

	if hasGrid && hasCustom {
		return Config{}, errors.New(errors.ErrCodeInvalidConfig,
			"config mixes grid keys (cols/rows/slot_width/slot_height) with custom keys (canvas_width/canvas_height/slots)")
	}

	if hasCustom {
		mode, err := resolveCustom(raw)
		if err != nil {
			return Config{}, err
		}
		return Config{Mode: mode, Fit: fit}, nil
	}

	// Grid shape, or an empty document: missing fields fall back per-field.
	mode, err := resolveGrid(raw)
	if err != nil {
		return Config{}, err
	}
	return Config{Mode: mode, Fit: fit}, nil
}

func resolveGrid(raw rawConfig) (UniformGrid, error) {
	g := DefaultLayout()
	if raw.Cols != nil {
		g.Cols = *raw.Cols
	}
	if raw.Rows != nil {
		g.Rows = *raw.Rows
	}
	if raw.SlotWidth != nil {
		g.SlotWidth = *raw.SlotWidth
	}
	if raw.SlotHeight != nil {
		g.SlotHeight = *raw.SlotHeight
	}

	if g.Cols <= 0 || g.Rows <= 0 {
		return UniformGrid{}, errors.New(errors.ErrCodeInvalidConfig,
			"cols and rows must be positive integers (got %dx%d)", g.Cols, g.Rows)
	}
	if g.SlotWidth <= 0 || g.SlotHeight <= 0 {
		return UniformGrid{}, errors.New(errors.ErrCodeInvalidConfig,
			"slot_width and slot_height must be positive integers (got %dx%d)", g.SlotWidth, g.SlotHeight)
	}
	return g, nil
}

func resolveCustom(raw rawConfig) (CustomSlots, error) {
	if raw.Slots == nil {
		return CustomSlots{}, errors.New(errors.ErrCodeInvalidConfig,
			"custom config requires a slots array")
	}
	if raw.CanvasWidth == nil || raw.CanvasHeight == nil {
		return CustomSlots{}, errors.New(errors.ErrCodeInvalidConfig,
			"custom config requires canvas_width and canvas_height")
	}
	if len(raw.Slots) == 0 {
		return CustomSlots{}, errors.New(errors.ErrCodeInvalidConfig, "slots array is empty")
	}

	mode := CustomSlots{
		CanvasWidth:  *raw.CanvasWidth,
		CanvasHeight: *raw.CanvasHeight,
		Slots:        make([]Slot, len(raw.Slots)),
	}
	for i, rs := range raw.Slots {
		if rs.Index == nil || rs.X == nil || rs.Y == nil || rs.W == nil || rs.H == nil {
			return CustomSlots{}, errors.New(errors.ErrCodeInvalidConfig,
				"slot %d is missing one of index/x/y/w/h", i)
		}
		if *rs.Index < 0 {
			return CustomSlots{}, errors.New(errors.ErrCodeInvalidConfig,
				"slot index must be non-negative (got %d)", *rs.Index)
		}
		s := Slot{Index: *rs.Index, X: *rs.X, Y: *rs.Y, W: *rs.W, H: *rs.H}
		if rs.Filename != nil {
			s.Filename = *rs.Filename
		}
		mode.Slots[i] = s
	}
	return mode, nil
}

func resolveFit(s *string) (FitMode, error) {
	if s == nil {
		return "", nil
	}
	switch FitMode(*s) {
	case FitNone, FitCover:
		return FitMode(*s), nil
	default:
		return "", errors.New(errors.ErrCodeInvalidConfig,
			"invalid fit %q (must be %q or %q)", *s, FitNone, FitCover)
	}
}
