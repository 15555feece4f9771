// Package service implements the document workflows of DASE.
//
// DocumentService coordinates the serialization engine, the document
// repository, the format codecs and a metadata validator:
//
//   - Save serializes an element tree and stores it
//   - Load reads a stored document, checks its digest and deserializes it
//   - Import and Export move trees between the store and JSON, YAML or XML
//   - Validate and Check evaluate the metadata rules of a tree
//
// Load returns the most complete tree it could build together with any
// data-level errors, mirroring the engine.
//
// # Event System
//
// The EventBus provides a simple publish/subscribe mechanism. Save, Load
// and Delete publish events; slow subscribers miss events rather than
// block the caller.
package service
