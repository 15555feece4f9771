package convert

import (
	"fmt"
	"strconv"
	"strings"
)

// Type names understood by the converter
const (
	TypeString     = "String"
	TypeInt32      = "Int32"
	TypeInt64      = "Int64"
	TypeDouble     = "Double"
	TypeDecimal    = "Decimal"
	TypeBoolean    = "Boolean"
	TypeDateTime   = "DateTime"
	TypeGuid       = "Guid"
	TypeSize       = "Size"
	TypeRect       = "Rect"
	TypePoint      = "Point"
	TypeColor      = "Color"
	TypeThickness  = "Thickness"
	TypeGuidArray  = "Guid[]"
	TypePointArray = "Point[]"
)

// Decimal is a fixed-point style number compared with an epsilon
type Decimal float64

// Point is a 2D position on a diagram surface
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is a width/height pair
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is a positioned size
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Color is an RGBA color
type Color struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
	A uint8 `json:"a" yaml:"a"`
}

// Thickness describes the four edges of a margin or border
type Thickness struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// field is one K=v pair of the struct wire form
type field struct {
	key   string
	value string
}

func formatFields(fields ...field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.key+"="+f.value)
	}
	return "{" + strings.Join(parts, ";") + "}"
}

// parseFields splits "{K=v;K=v}" into a key map. ok is false on malformed input.
func parseFields(s string) (map[string]string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, false
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	out := make(map[string]string)
	if body == "" {
		return out, true
	}
	for _, part := range strings.Split(body, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, found := strings.Cut(part, "=")
		if !found {
			return nil, false
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// floats reads the named keys as float64 values; missing keys stay zero
func floats(m map[string]string, keys ...string) ([]float64, bool) {
	out := make([]float64, len(keys))
	for i, k := range keys {
		raw, ok := m[k]
		if !ok || raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func (p Point) String() string {
	return formatFields(field{"X", formatFloat(p.X)}, field{"Y", formatFloat(p.Y)})
}

func (s Size) String() string {
	return formatFields(field{"Width", formatFloat(s.Width)}, field{"Height", formatFloat(s.Height)})
}

func (r Rect) String() string {
	return formatFields(
		field{"X", formatFloat(r.X)},
		field{"Y", formatFloat(r.Y)},
		field{"Width", formatFloat(r.Width)},
		field{"Height", formatFloat(r.Height)},
	)
}

func (c Color) String() string {
	return formatFields(
		field{"R", strconv.Itoa(int(c.R))},
		field{"G", strconv.Itoa(int(c.G))},
		field{"B", strconv.Itoa(int(c.B))},
		field{"A", strconv.Itoa(int(c.A))},
	)
}

func (t Thickness) String() string {
	return formatFields(
		field{"Left", formatFloat(t.Left)},
		field{"Top", formatFloat(t.Top)},
		field{"Right", formatFloat(t.Right)},
		field{"Bottom", formatFloat(t.Bottom)},
	)
}

// ParsePoint parses "{X=1;Y=2}"; malformed input yields the zero Point
func ParsePoint(s string) Point {
	m, ok := parseFields(s)
	if !ok {
		return Point{}
	}
	v, ok := floats(m, "X", "Y")
	if !ok {
		return Point{}
	}
	return Point{X: v[0], Y: v[1]}
}

// ParseSize parses "{Width=1;Height=2}"
func ParseSize(s string) Size {
	m, ok := parseFields(s)
	if !ok {
		return Size{}
	}
	v, ok := floats(m, "Width", "Height")
	if !ok {
		return Size{}
	}
	return Size{Width: v[0], Height: v[1]}
}

// ParseRect parses "{X=0;Y=0;Width=1;Height=2}"
func ParseRect(s string) Rect {
	m, ok := parseFields(s)
	if !ok {
		return Rect{}
	}
	v, ok := floats(m, "X", "Y", "Width", "Height")
	if !ok {
		return Rect{}
	}
	return Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
}

// ParseThickness parses "{Left=1;Top=1;Right=1;Bottom=1}"
func ParseThickness(s string) Thickness {
	m, ok := parseFields(s)
	if !ok {
		return Thickness{}
	}
	v, ok := floats(m, "Left", "Top", "Right", "Bottom")
	if !ok {
		return Thickness{}
	}
	return Thickness{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
}

// ParseColor parses "{R=255;G=0;B=0;A=255}"
func ParseColor(s string) Color {
	m, ok := parseFields(s)
	if !ok {
		return Color{}
	}
	var out [4]uint8
	for i, k := range []string{"R", "G", "B", "A"} {
		raw, ok := m[k]
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			return Color{}
		}
		out[i] = uint8(n)
	}
	return Color{R: out[0], G: out[1], B: out[2], A: out[3]}
}

// mapFloat reads a numeric entry of a loosely typed map (JSON/YAML decoded)
func mapFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint8:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// fromMap builds a compound value from a key/value map for the given type name
func fromMap(typeName string, m map[string]any) (any, error) {
	switch typeName {
	case TypePoint:
		return Point{X: mapFloat(m, "X"), Y: mapFloat(m, "Y")}, nil
	case TypeSize:
		return Size{Width: mapFloat(m, "Width"), Height: mapFloat(m, "Height")}, nil
	case TypeRect:
		return Rect{X: mapFloat(m, "X"), Y: mapFloat(m, "Y"), Width: mapFloat(m, "Width"), Height: mapFloat(m, "Height")}, nil
	case TypeColor:
		return Color{R: uint8(mapFloat(m, "R")), G: uint8(mapFloat(m, "G")), B: uint8(mapFloat(m, "B")), A: uint8(mapFloat(m, "A"))}, nil
	case TypeThickness:
		return Thickness{Left: mapFloat(m, "Left"), Top: mapFloat(m, "Top"), Right: mapFloat(m, "Right"), Bottom: mapFloat(m, "Bottom")}, nil
	}
	return nil, fmt.Errorf("type %s has no map form", typeName)
}
