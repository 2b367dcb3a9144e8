// Package pkg provides the core libraries for Atlasforge texture atlas building.
//
// # Overview
//
// Atlasforge packs folders of sprite PNGs into fixed-size texture atlases,
// one composed image plus one JSON manifest per folder. The pkg directory
// is organized into:
//
//  1. [atlas] - Domain logic (config resolution, layout, slot resolution, composition, manifests)
//  2. [pipeline] - Orchestration (discover folders → build each → emit pairs)
//  3. [cache] - Skip cache backends (file, redis, null)
//  4. [server] - Read-only preview server over built atlases
//  5. [config] - Project settings (atlasforge.toml)
//  6. [io] - Atomic output writing
//  7. [errors] - Structured error codes shared across packages
//
// # Architecture
//
// The typical data flow through Atlasforge:
//
//	source folder (sprites + optional config.json)
//	         ↓
//	atlas.ResolveConfig → atlas.Layout → atlas.Resolve
//	         ↓
//	atlas.Compose → atlas.EncodePNG + Manifest.Encode
//	         ↓
//	io.WritePair → atlas_<folder>.png + atlas_<folder>.json
//
// Folders are independent: the pipeline runs them in parallel and one
// folder's failure never affects another's outputs.
package pkg
