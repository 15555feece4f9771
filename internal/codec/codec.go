package codec

import (
	"io"
	"sort"

	"github.com/pkg/errors"

	"dase/internal/element"
)

// ErrUnknownFormat is returned by Lookup for unsupported format names
var ErrUnknownFormat = errors.New("unknown format")

// Importer interface for reading element trees from various formats
type Importer interface {
	Parse(r io.Reader) (*element.Element, error)
	Format() string
}

// Exporter interface for writing element trees to various formats
type Exporter interface {
	Export(root *element.Element, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// Set is a collection of codecs keyed by format
type Set map[string]Codec

// NewSet indexes codecs by their format
func NewSet(codecs ...Codec) Set {
	s := make(Set, len(codecs))
	for _, c := range codecs {
		s[c.Format()] = c
	}
	return s
}

// Lookup returns the codec for format
func (s Set) Lookup(format string) (Codec, error) {
	c, ok := s[format]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
	return c, nil
}

// Formats lists the available format names, sorted
func (s Set) Formats() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
