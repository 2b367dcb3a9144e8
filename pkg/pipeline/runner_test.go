package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pixelfold/atlasforge/pkg/atlas"
	"github.com/pixelfold/atlasforge/pkg/cache"
	"github.com/pixelfold/atlasforge/pkg/errors"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func testRunner() *Runner {
	return NewRunner(cache.NewNullCache(), nil, testLogger())
}

// pngBytes encodes a solid-color PNG of the given size.
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
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newSourceTree lays out a source dir with one folder containing only a
// placeholder sprite.
func newSourceTree(t *testing.T, folder string) (srcDir, outDir string) {
	t.Helper()
	root := t.TempDir()
	srcDir = filepath.Join(root, "src")
	outDir = filepath.Join(root, "out")
	writeFile(t, filepath.Join(srcDir, folder, "placeholder.png"),
		pngBytes(t, 32, 32, color.RGBA{R: 255, A: 255}))
	return srcDir, outDir
}

func readManifest(t *testing.T, path string) atlas.Manifest {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	m, err := atlas.DecodeManifest(data)
	if err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	return m
}

func TestBuildDefaults(t *testing.T) {
	srcDir, outDir := newSourceTree(t, "characters")

	result, err := testRunner().Build(context.Background(), Options{
		SourceDir: srcDir,
		OutputDir: outDir,
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if result.Stats.Built != 1 || result.Stats.Failed != 0 {
		t.Fatalf("stats = %+v, want 1 built", result.Stats)
	}

	fr := result.Folders[0]
	if fr.SlotCount != 16 {
		t.Errorf("slot count = %d, want 16", fr.SlotCount)
	}

	m := readManifest(t, filepath.Join(outDir, "atlas_characters.json"))
	if m.AtlasName != "characters" {
		t.Errorf("atlas name = %q, want characters", m.AtlasName)
	}
	if m.CanvasWidth != 2048 || m.CanvasHeight != 2048 {
		t.Errorf("canvas = %dx%d, want 2048x2048", m.CanvasWidth, m.CanvasHeight)
	}
	if len(m.Slots) != 16 {
		t.Fatalf("manifest slots = %d, want 16", len(m.Slots))
	}
	for i, s := range m.Slots {
		if s.Index != i+1 {
			t.Errorf("slot %d index = %d, want %d", i, s.Index, i+1)
		}
		if s.Source != "placeholder.png" {
			t.Errorf("slot %d source = %q, want placeholder.png", i, s.Source)
		}
	}

	imgData, err := os.ReadFile(filepath.Join(outDir, "atlas_characters.png"))
	if err != nil {
		t.Fatalf("read atlas image: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(imgData))
	if err != nil {
		t.Fatalf("decode atlas image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2048 || b.Dy() != 2048 {
		t.Errorf("image = %dx%d, want 2048x2048", b.Dx(), b.Dy())
	}
}

func TestBuildPartialSprites(t *testing.T) {
	srcDir, outDir := newSourceTree(t, "tiles")
	writeFile(t, filepath.Join(srcDir, "tiles", "1.png"),
		pngBytes(t, 16, 16, color.RGBA{G: 255, A: 255}))
	writeFile(t, filepath.Join(srcDir, "tiles", "3.png"),
		pngBytes(t, 16, 16, color.RGBA{B: 255, A: 255}))

	result, err := testRunner().Build(context.Background(), Options{
		SourceDir: srcDir,
		OutputDir: outDir,
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if result.Stats.Built != 1 {
		t.Fatalf("stats = %+v, want 1 built", result.Stats)
	}

	m := readManifest(t, filepath.Join(outDir, "atlas_tiles.json"))
	want := map[int]string{1: "1.png", 2: "placeholder.png", 3: "3.png"}
	for idx, src := range want {
		if got := m.Slots[idx-1].Source; got != src {
			t.Errorf("slot %d source = %q, want %q", idx, got, src)
		}
	}
}

func TestBuildCustomLayout(t *testing.T) {
	srcDir, outDir := newSourceTree(t, "ui")
	writeFile(t, filepath.Join(srcDir, "ui", "config.json"), []byte(`{
		"canvas_width": 1024,
		"canvas_height": 512,
		"slots": [
			{"index": 1, "x": 0, "y": 0, "w": 512, "h": 512},
			{"index": 2, "x": 512, "y": 0, "w": 512, "h": 512, "filename": "banner.png"}
		]
	}`))
	writeFile(t, filepath.Join(srcDir, "ui", "banner.png"),
		pngBytes(t, 64, 64, color.RGBA{G: 255, A: 255}))

	result, err := testRunner().Build(context.Background(), Options{
		SourceDir: srcDir,
		OutputDir: outDir,
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if result.Stats.Built != 1 {
		t.Fatalf("stats = %+v, want 1 built", result.Stats)
	}

	m := readManifest(t, filepath.Join(outDir, "atlas_ui.json"))
	if m.CanvasWidth != 1024 || m.CanvasHeight != 512 {
		t.Errorf("canvas = %dx%d, want 1024x512", m.CanvasWidth, m.CanvasHeight)
	}
	if len(m.Slots) != 2 {
		t.Fatalf("manifest slots = %d, want 2", len(m.Slots))
	}
	if m.Slots[1].Source != "banner.png" {
		t.Errorf("slot 2 source = %q, want banner.png", m.Slots[1].Source)
	}
}

func TestBuildFolderFailureDoesNotAbortSiblings(t *testing.T) {
	srcDir, outDir := newSourceTree(t, "good")
	writeFile(t, filepath.Join(srcDir, "bad", "config.json"), []byte(`{"cols": 0}`))
	writeFile(t, filepath.Join(srcDir, "bad", "placeholder.png"),
		pngBytes(t, 8, 8, color.RGBA{A: 255}))

	result, err := testRunner().Build(context.Background(), Options{
		SourceDir: srcDir,
		OutputDir: outDir,
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if result.Stats.Built != 1 || result.Stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 1 built + 1 failed", result.Stats)
	}
	if result.FailedCount() != 1 {
		t.Errorf("FailedCount = %d, want 1", result.FailedCount())
	}

	// Byte order: "bad" before "good".
	if result.Folders[0].Folder != "bad" || result.Folders[1].Folder != "good" {
		t.Errorf("folder order = [%s %s], want [bad good]",
			result.Folders[0].Folder, result.Folders[1].Folder)
	}
	if !errors.Is(result.Folders[0].Err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad folder error = %v, want INVALID_CONFIG", result.Folders[0].Err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "atlas_good.png")); err != nil {
		t.Error("good folder output should exist")
	}
	if _, err := os.Stat(filepath.Join(outDir, "atlas_bad.png")); !os.IsNotExist(err) {
		t.Error("failed folder must leave no output")
	}
}

func TestBuildMissingPlaceholder(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	writeFile(t, filepath.Join(srcDir, "sparse", "1.png"),
		pngBytes(t, 8, 8, color.RGBA{A: 255}))

	result, err := testRunner().Build(context.Background(), Options{
		SourceDir: srcDir,
		OutputDir: filepath.Join(root, "out"),
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if result.Stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 1 failed", result.Stats)
	}
	if !errors.Is(result.Folders[0].Err, errors.ErrCodeMissingPlaceholder) {
		t.Errorf("error = %v, want MISSING_PLACEHOLDER", result.Folders[0].Err)
	}
}

func TestBuildDeterministic(t *testing.T) {
	srcDir, outDir := newSourceTree(t, "fx")
	writeFile(t, filepath.Join(srcDir, "fx", "2.png"),
		pngBytes(t, 24, 24, color.RGBA{R: 128, B: 64, A: 255}))

	opts := Options{SourceDir: srcDir, OutputDir: outDir, Logger: testLogger()}
	if _, err := testRunner().Build(context.Background(), opts); err != nil {
		t.Fatalf("first build: %v", err)
	}
	img1, _ := os.ReadFile(filepath.Join(outDir, "atlas_fx.png"))
	man1, _ := os.ReadFile(filepath.Join(outDir, "atlas_fx.json"))

	if _, err := testRunner().Build(context.Background(), opts); err != nil {
		t.Fatalf("second build: %v", err)
	}
	img2, _ := os.ReadFile(filepath.Join(outDir, "atlas_fx.png"))
	man2, _ := os.ReadFile(filepath.Join(outDir, "atlas_fx.json"))

	if !bytes.Equal(img1, img2) {
		t.Error("atlas image not byte-identical across runs")
	}
	if !bytes.Equal(man1, man2) {
		t.Error("manifest not byte-identical across runs")
	}
}

func TestBuildSkipCache(t *testing.T) {
	srcDir, outDir := newSourceTree(t, "icons")

	fc, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	runner := NewRunner(fc, nil, testLogger())
	opts := Options{SourceDir: srcDir, OutputDir: outDir, Logger: testLogger()}
	ctx := context.Background()

	r1, err := runner.Build(ctx, opts)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	if r1.Stats.Built != 1 || r1.Stats.Skipped != 0 {
		t.Fatalf("first run stats = %+v, want 1 built", r1.Stats)
	}

	r2, err := runner.Build(ctx, opts)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if r2.Stats.Skipped != 1 {
		t.Fatalf("second run stats = %+v, want 1 skipped", r2.Stats)
	}

	// A cache hit with a missing output must rebuild.
	if err := os.Remove(filepath.Join(outDir, "atlas_icons.png")); err != nil {
		t.Fatal(err)
	}
	r3, err := runner.Build(ctx, opts)
	if err != nil {
		t.Fatalf("third build: %v", err)
	}
	if r3.Stats.Built != 1 {
		t.Fatalf("third run stats = %+v, want 1 built", r3.Stats)
	}

	// Refresh bypasses the cache.
	refresh := opts
	refresh.Refresh = true
	r4, err := runner.Build(ctx, refresh)
	if err != nil {
		t.Fatalf("refresh build: %v", err)
	}
	if r4.Stats.Built != 1 || r4.Stats.Skipped != 0 {
		t.Fatalf("refresh stats = %+v, want 1 built", r4.Stats)
	}

	// Changing an input invalidates the fingerprint.
	writeFile(t, filepath.Join(srcDir, "icons", "1.png"),
		pngBytes(t, 8, 8, color.RGBA{R: 1, A: 255}))
	r5, err := runner.Build(ctx, opts)
	if err != nil {
		t.Fatalf("build after change: %v", err)
	}
	if r5.Stats.Built != 1 {
		t.Fatalf("stats after input change = %+v, want 1 built", r5.Stats)
	}
}

func TestBuildDryRun(t *testing.T) {
	srcDir, outDir := newSourceTree(t, "props")
	writeFile(t, filepath.Join(srcDir, "broken", "config.json"), []byte(`{"cols": "two"}`))

	result, err := testRunner().Build(context.Background(), Options{
		SourceDir: srcDir,
		OutputDir: outDir,
		DryRun:    true,
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if result.Stats.Failed != 1 {
		t.Errorf("stats = %+v, want the broken folder to fail validation", result.Stats)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("dry run must not create the output directory")
	}
}

func TestBuildExplicitFolders(t *testing.T) {
	srcDir, outDir := newSourceTree(t, "a")
	writeFile(t, filepath.Join(srcDir, "b", "placeholder.png"),
		pngBytes(t, 8, 8, color.RGBA{A: 255}))

	result, err := testRunner().Build(context.Background(), Options{
		SourceDir: srcDir,
		OutputDir: outDir,
		Folders:   []string{"b"},
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(result.Folders) != 1 || result.Folders[0].Folder != "b" {
		t.Fatalf("folders = %+v, want only b", result.Folders)
	}
	if _, err := os.Stat(filepath.Join(outDir, "atlas_a.png")); !os.IsNotExist(err) {
		t.Error("folder a should not be built")
	}

	_, err = testRunner().Build(context.Background(), Options{
		SourceDir: srcDir,
		OutputDir: outDir,
		Folders:   []string{"missing"},
		Logger:    testLogger(),
	})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("unknown folder error = %v, want NOT_FOUND", err)
	}
}

func TestBuildSkipsHiddenAndFiles(t *testing.T) {
	srcDir, outDir := newSourceTree(t, "visible")
	writeFile(t, filepath.Join(srcDir, ".hidden", "placeholder.png"),
		pngBytes(t, 8, 8, color.RGBA{A: 255}))
	writeFile(t, filepath.Join(srcDir, "stray.txt"), []byte("not a folder"))

	result, err := testRunner().Build(context.Background(), Options{
		SourceDir: srcDir,
		OutputDir: outDir,
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(result.Folders) != 1 || result.Folders[0].Folder != "visible" {
		t.Errorf("folders = %+v, want only visible", result.Folders)
	}
}

func TestBuildMissingSourceDir(t *testing.T) {
	_, err := testRunner().Build(context.Background(), Options{
		SourceDir: filepath.Join(t.TempDir(), "nope"),
		Logger:    testLogger(),
	})
	if err == nil {
		t.Fatal("expected error for missing source dir")
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	var empty Options
	if err := empty.ValidateAndSetDefaults(); err == nil {
		t.Error("missing SourceDir should fail")
	}

	bad := Options{SourceDir: "src", Fit: "stretch"}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("invalid fit should fail")
	}

	opts := Options{SourceDir: "src"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults error: %v", err)
	}
	if opts.OutputDir != DefaultOutputDir {
		t.Errorf("OutputDir = %q, want %q", opts.OutputDir, DefaultOutputDir)
	}
	if opts.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", opts.Workers, DefaultWorkers)
	}
	if opts.Fit != atlas.FitNone {
		t.Errorf("Fit = %q, want %q", opts.Fit, atlas.FitNone)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}
}

func TestOutputNames(t *testing.T) {
	img, man := OutputNames("characters")
	if img != "atlas_characters.png" || man != "atlas_characters.json" {
		t.Errorf("OutputNames = (%q, %q)", img, man)
	}
}
