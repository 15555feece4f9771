// Package domain defines the persisted document types shared by the
// repository and service layers.
//
// A Document carries the XML produced by the serialization engine together
// with the tag of its root element and a BLAKE2b content digest. The digest
// is computed when the document is created and checked on load, so a row
// edited outside the store is detected before it is deserialized.
package domain
