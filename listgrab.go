// Package listgrab extracts structured listing data from a single product
// listing page. Listing sites render their pages from a JSON document embedded
// in a script element; listgrab fetches the page, locates and decodes that
// document, normalizes it into a stable Listing record and renders the record
// as JSON, text or CSV.
//
// This package contains domain types, interfaces and the pure normalization
// and formatting logic, following Ben Johnson's Standard Package Layout.
// Implementations live in subdirectories named after their primary dependency
// (e.g., http/, goquery/, rod/).
package listgrab
