// Package repository defines the data access interface for DASE documents.
//
// The actual implementation is in the sqlite subpackage.
//
// # SQLite Implementation
//
// The sqlite implementation stores one row per document in the documents
// table, keyed by the root element's GUID. It handles:
//
// - Upserts that keep the original creation time
// - Lookup by ID or by name
// - Content-free listings for browsing
//
// # Schema Migration
//
// The sqlite repository migrates the schema on startup and is tested
// against in-memory databases.
package repository
