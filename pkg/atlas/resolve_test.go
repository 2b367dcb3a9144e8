package atlas

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixelfold/atlasforge/pkg/errors"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// pngBytes encodes a solid-color PNG for use in MapSource fixtures.
func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestResolveAllPlaceholder(t *testing.T) {
	// Empty folder except the placeholder: every slot falls back.
	src := MapSource{
		"placeholder.png": pngBytes(t, 8, 8, blue),
	}
	_, slots, err := Layout(DefaultLayout())
	if err != nil {
		t.Fatalf("Layout error: %v", err)
	}

	resolved, err := Resolve(src, slots)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(resolved) != 16 {
		t.Fatalf("len(resolved) = %d, want 16", len(resolved))
	}
	for _, rs := range resolved {
		if rs.Source != "placeholder.png" {
			t.Errorf("slot %d source = %q, want placeholder.png", rs.Index, rs.Source)
		}
		if rs.Image == nil {
			t.Errorf("slot %d has nil image", rs.Index)
		}
	}
}

func TestResolvePartialSources(t *testing.T) {
	src := MapSource{
		"1.png":           pngBytes(t, 8, 8, red),
		"2.png":           pngBytes(t, 8, 8, red),
		"3.png":           pngBytes(t, 8, 8, red),
		"placeholder.png": pngBytes(t, 8, 8, blue),
	}
	_, slots, err := Layout(DefaultLayout())
	if err != nil {
		t.Fatalf("Layout error: %v", err)
	}

	resolved, err := Resolve(src, slots)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	for _, rs := range resolved {
		want := "placeholder.png"
		if rs.Index <= 3 {
			want = rs.SourceName()
		}
		if rs.Source != want {
			t.Errorf("slot %d source = %q, want %q", rs.Index, rs.Source, want)
		}
	}
}

func TestResolveMissingPlaceholder(t *testing.T) {
	// Slot 2 has no sprite and the folder has no placeholder.
	src := MapSource{
		"1.png": pngBytes(t, 8, 8, red),
	}
	slots := []Slot{
		{Index: 1, X: 0, Y: 0, W: 8, H: 8},
		{Index: 2, X: 8, Y: 0, W: 8, H: 8},
	}

	_, err := Resolve(src, slots)
	if !errors.Is(err, errors.ErrCodeMissingPlaceholder) {
		t.Fatalf("error = %v, want MISSING_PLACEHOLDER", err)
	}
}

func TestResolveNoPlaceholderNeeded(t *testing.T) {
	// All slots bound: placeholder absence is irrelevant.
	src := MapSource{
		"1.png": pngBytes(t, 8, 8, red),
	}
	slots := []Slot{{Index: 1, X: 0, Y: 0, W: 8, H: 8}}

	resolved, err := Resolve(src, slots)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if resolved[0].Source != "1.png" {
		t.Errorf("source = %q, want 1.png", resolved[0].Source)
	}
}

func TestResolveNonPNGIgnored(t *testing.T) {
	// A non-.png override is never considered: the slot falls back.
	src := MapSource{
		"hero.jpg":        pngBytes(t, 8, 8, red),
		"placeholder.png": pngBytes(t, 8, 8, blue),
	}
	slots := []Slot{{Index: 1, X: 0, Y: 0, W: 8, H: 8, Filename: "hero.jpg"}}

	resolved, err := Resolve(src, slots)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if resolved[0].Source != "placeholder.png" {
		t.Errorf("source = %q, want placeholder.png", resolved[0].Source)
	}
}

func TestResolvePlaceholderDecodedOnce(t *testing.T) {
	src := MapSource{
		"placeholder.png": pngBytes(t, 8, 8, blue),
	}
	slots := []Slot{
		{Index: 1, X: 0, Y: 0, W: 8, H: 8},
		{Index: 2, X: 8, Y: 0, W: 8, H: 8},
	}

	resolved, err := Resolve(src, slots)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if resolved[0].Image != resolved[1].Image {
		t.Error("placeholder image should be decoded once and shared")
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1.png", pngBytes(t, 4, 4, red))

	src := DirSource{Dir: dir}

	rc, ok, err := src.Open("1.png")
	if err != nil || !ok {
		t.Fatalf("Open(1.png) = ok:%v err:%v", ok, err)
	}
	rc.Close()

	_, ok, err = src.Open("2.png")
	if err != nil {
		t.Fatalf("Open(2.png) error: %v", err)
	}
	if ok {
		t.Error("Open(2.png) should report absent")
	}
}
