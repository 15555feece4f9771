package codec

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"dase/internal/element"
	"dase/internal/registry"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct {
	registry *registry.Registry
}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec(reg *registry.Registry) *YAMLCodec {
	return &YAMLCodec{registry: reg}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports an element tree from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*element.Element, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	return Restore(c.registry, doc.Root)
}

// Export exports an element tree to YAML
func (c *YAMLCodec) Export(root *element.Element, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	doc := Document{Version: DocumentVersion, Root: Snapshot(c.registry, root)}
	if err := encoder.Encode(&doc); err != nil {
		return errors.Wrap(err, "failed to encode YAML")
	}

	return nil
}
