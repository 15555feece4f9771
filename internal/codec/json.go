package codec

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"dase/internal/element"
	"dase/internal/registry"
)

// DocumentVersion is written into JSON and YAML envelopes
const DocumentVersion = 1

// JSONCodec handles JSON import/export
type JSONCodec struct {
	registry *registry.Registry
}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec(reg *registry.Registry) *JSONCodec {
	return &JSONCodec{registry: reg}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports an element tree from JSON
func (c *JSONCodec) Parse(r io.Reader) (*element.Element, error) {
	var doc Document
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse JSON")
	}

	return Restore(c.registry, doc.Root)
}

// Export exports an element tree to JSON
func (c *JSONCodec) Export(root *element.Element, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	doc := Document{Version: DocumentVersion, Root: Snapshot(c.registry, root)}
	if err := encoder.Encode(doc); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}

	return nil
}
