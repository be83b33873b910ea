// Package core implements the asset import and normalization pipeline.
//
// An import starts as a batch of raw rows extracted from an uploaded
// document. The pipeline normalizes each row (parses monetary values and
// resolves free-text location and category fields against the canonical
// registries by fuzzy matching), flags duplicate patrimony numbers, and on
// operator confirmation creates one canonical asset record per ready row
// with itemized success/failure accounting.
//
// The package has no HTTP or UI dependencies and can be driven by any
// frontend. Persistence is abstracted behind the Store interface.
package core
