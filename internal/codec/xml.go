package codec

import (
	"io"

	"github.com/pkg/errors"

	"dase/internal/element"
	"dase/internal/serialization"
)

// XMLCodec reads and writes the native XML dialect through an engine
type XMLCodec struct {
	engine *serialization.Engine
}

// NewXMLCodec creates a codec over engine
func NewXMLCodec(engine *serialization.Engine) *XMLCodec {
	return &XMLCodec{engine: engine}
}

// Format returns the codec format identifier
func (c *XMLCodec) Format() string {
	return "xml"
}

// Parse deserializes r. Recorded errors are returned together with the
// partial tree.
func (c *XMLCodec) Parse(r io.Reader) (*element.Element, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read XML")
	}

	res := c.engine.Deserialize(string(data))
	return res.Data, res.Err()
}

// Export serializes root to w
func (c *XMLCodec) Export(root *element.Element, w io.Writer) error {
	res := c.engine.Serialize(root)
	if !res.Success {
		return errors.Wrap(res.Err(), "failed to serialize XML")
	}
	if _, err := io.WriteString(w, res.Data); err != nil {
		return errors.Wrap(err, "failed to write XML")
	}

	return nil
}
