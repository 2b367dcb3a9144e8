// Package atlas implements the layout-and-validation engine for texture
// atlas building.
//
// The engine takes a per-folder configuration, normalizes it into a single
// canonical layout shape, validates it against canvas and naming
// constraints, resolves each logical slot to a source image or a
// placeholder, composes the atlas image, and emits a deterministic
// manifest.
//
// # Pipeline
//
// The five stages run strictly sequentially for one folder:
//
//  1. ResolveConfig: parse config.json into a LayoutMode (or defaults)
//  2. Layout: synthesize and validate (Canvas, []Slot)
//  3. Resolve: bind each slot to a source image or the placeholder
//  4. Compose: draw each resolved image into its slot rectangle
//  5. BuildManifest + Encode: emit the canonical slot record
//
// No stage performs output I/O; callers own writing the composed image and
// manifest (see pkg/pipeline for the all-or-nothing write discipline).
//
// # Determinism
//
// Given identical inputs (config bytes, sprite bytes), every stage
// produces identical results: slot synthesis is purely arithmetic,
// resolution is a pure function of the injected Source, and the manifest
// encoder uses a fixed field order. Two runs over unchanged inputs yield
// byte-identical outputs.
package atlas
