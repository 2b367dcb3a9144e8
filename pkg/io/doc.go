// Package io provides atomic output writing for atlas artifacts.
//
// An atlas and its manifest are a pair: a loader that finds one without
// the other (or a half-written file) has corrupt state. Every write here
// goes to a temporary file in the destination directory first and is
// renamed into place only when complete, and [WritePair] stages both
// files before renaming either, so a failure at any point leaves the
// previous outputs untouched.
package io
