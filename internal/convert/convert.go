// Package convert is the string codec for property values.
//
// Every persisted property value travels as text, either as an XML attribute
// or as the content of an XData element. The converter maps a logical type
// name (String, Int32, Guid, Point, ...) to a Go representation and back.
//
// Conversions never fail: malformed input yields the zero value of the type
// (the Unix epoch for DateTime, a zero struct for compound types and an empty
// slice for arrays).
//
// Compound values use the wire form {K=v;K=v}; arrays are joined with '|'.
package convert

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Epoch is the zero value of DateTime
var Epoch = time.Unix(0, 0).UTC()

// epsilon used for Decimal and Double default comparison
const epsilon = 1e-9

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToString renders a value in its wire form
func ToString(typeName string, value any) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	case Decimal:
		return formatFloat(float64(v))
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case uuid.UUID:
		return v.String()
	case Point:
		return v.String()
	case Size:
		return v.String()
	case Rect:
		return v.String()
	case Color:
		return v.String()
	case Thickness:
		return v.String()
	case []uuid.UUID:
		parts := make([]string, len(v))
		for i, id := range v {
			parts[i] = id.String()
		}
		return strings.Join(parts, "|")
	case []Point:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = p.String()
		}
		return strings.Join(parts, "|")
	case map[string]any:
		if typeName == "" {
			typeName = InferTypeName(v)
		}
		if compound, err := fromMap(typeName, v); err == nil {
			return ToString(typeName, compound)
		}
	case fmt.Stringer:
		return v.String()
	}

	return fmt.Sprint(value)
}

// FromString parses wire text into the Go value for typeName. Unknown type
// names are returned as plain strings.
func FromString(typeName, text string) any {
	switch typeName {
	case TypeString, "":
		return text
	case TypeInt32:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
		if err != nil {
			return int32(0)
		}
		return int32(n)
	case TypeInt64:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return int64(0)
		}
		return n
	case TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return float64(0)
		}
		return f
	case TypeDecimal:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Decimal(0)
		}
		return Decimal(f)
	case TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return false
		}
		return b
	case TypeDateTime:
		return parseTime(text)
	case TypeGuid:
		id, err := uuid.Parse(strings.TrimSpace(text))
		if err != nil {
			return uuid.Nil
		}
		return id
	case TypeSize:
		return ParseSize(text)
	case TypeRect:
		return ParseRect(text)
	case TypePoint:
		return ParsePoint(text)
	case TypeColor:
		return ParseColor(text)
	case TypeThickness:
		return ParseThickness(text)
	case TypeGuidArray:
		return parseGuids(text)
	case TypePointArray:
		return parsePoints(text)
	}
	return text
}

// Zero returns the zero value for a type name
func Zero(typeName string) any {
	return FromString(typeName, "")
}

func parseTime(text string) time.Time {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC()
		}
	}
	return Epoch
}

func parseGuids(text string) []uuid.UUID {
	out := []uuid.UUID{}
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, part := range strings.Split(text, "|") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return []uuid.UUID{}
		}
		out = append(out, id)
	}
	return out
}

func parsePoints(text string) []Point {
	out := []Point{}
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, part := range strings.Split(text, "|") {
		m, ok := parseFields(part)
		if !ok {
			return []Point{}
		}
		v, ok := floats(m, "X", "Y")
		if !ok {
			return []Point{}
		}
		out = append(out, Point{X: v[0], Y: v[1]})
	}
	return out
}

// IsDefaultValue reports whether value equals def for the given type. Nil
// values compare as the zero value of the type.
func IsDefaultValue(typeName string, value, def any) bool {
	if typeName == "" {
		typeName = InferTypeName(def)
	}
	if value == nil && def == nil {
		return true
	}
	if value == nil {
		value = Zero(typeName)
	}
	if def == nil {
		def = Zero(typeName)
	}

	switch v := value.(type) {
	case Decimal:
		return math.Abs(float64(v)-toFloat(def)) < epsilon
	case float64:
		return math.Abs(v-toFloat(def)) < epsilon
	case float32:
		return math.Abs(float64(v)-toFloat(def)) < epsilon
	case time.Time:
		d, ok := def.(time.Time)
		return ok && v.Equal(d)
	case []uuid.UUID, []Point:
		rv, rd := reflect.ValueOf(value), reflect.ValueOf(def)
		if rv.Len() == 0 && rd.Kind() == reflect.Slice && rd.Len() == 0 {
			return true
		}
		return reflect.DeepEqual(value, def)
	}

	if reflect.DeepEqual(value, def) {
		return true
	}
	return ToString(typeName, value) == ToString(typeName, def)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case Decimal:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return math.NaN()
}

// InferTypeName guesses the logical type name from a runtime value
func InferTypeName(value any) string {
	switch v := value.(type) {
	case nil:
		return TypeString
	case string:
		if isGuidShaped(v) {
			return TypeGuid
		}
		return TypeString
	case bool:
		return TypeBoolean
	case int32, int16, int8, uint8, uint16:
		return TypeInt32
	case int, int64, uint32:
		return TypeInt64
	case float32, float64:
		return TypeDouble
	case Decimal:
		return TypeDecimal
	case time.Time:
		return TypeDateTime
	case uuid.UUID:
		return TypeGuid
	case Point:
		return TypePoint
	case Size:
		return TypeSize
	case Rect:
		return TypeRect
	case Color:
		return TypeColor
	case Thickness:
		return TypeThickness
	case []uuid.UUID:
		return TypeGuidArray
	case []Point:
		return TypePointArray
	case map[string]any:
		return inferFromKeys(v)
	}
	return TypeString
}

func inferFromKeys(m map[string]any) string {
	has := func(keys ...string) bool {
		for _, k := range keys {
			if _, ok := m[k]; !ok {
				return false
			}
		}
		return true
	}

	switch {
	case has("X", "Y", "Width", "Height"):
		return TypeRect
	case has("Width", "Height"):
		return TypeSize
	case has("X", "Y"):
		return TypePoint
	case has("Left", "Top", "Right", "Bottom"):
		return TypeThickness
	case has("R", "G", "B"):
		return TypeColor
	}
	return TypeString
}

func isGuidShaped(s string) bool {
	if len(s) != 36 && len(s) != 38 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Coerce converts value to the Go type of like when both are numeric or both
// are strings. It reports false when no conversion applies, and for numbers
// that the target type cannot hold: out of range, or a fraction an integer
// type would drop. Float precision may narrow.
func Coerce(value, like any) (any, bool) {
	if like == nil || value == nil {
		return value, true
	}
	vt, lt := reflect.TypeOf(value), reflect.TypeOf(like)
	if vt == lt {
		return value, true
	}
	if isNumeric(vt.Kind()) && isNumeric(lt.Kind()) {
		v := reflect.ValueOf(value)
		if !fits(v, lt) {
			return value, false
		}
		return v.Convert(lt).Interface(), true
	}
	if vt.Kind() == reflect.String && lt.Kind() == reflect.String {
		return reflect.ValueOf(value).Convert(lt).Interface(), true
	}
	return value, false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsNumber reports whether v holds a Go numeric value
func IsNumber(v any) bool {
	return v != nil && isNumeric(reflect.TypeOf(v).Kind())
}

// NumbersEqual compares two numeric values by value regardless of their Go
// types. ok is false when either side is not a number.
func NumbersEqual(a, b any) (equal, ok bool) {
	if !IsNumber(a) || !IsNumber(b) {
		return false, false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	ka, kb := kindClass(va.Kind()), kindClass(vb.Kind())
	switch {
	case ka == classSigned && kb == classSigned:
		return va.Int() == vb.Int(), true
	case ka == classUnsigned && kb == classUnsigned:
		return va.Uint() == vb.Uint(), true
	case ka == classSigned && kb == classUnsigned:
		return va.Int() >= 0 && uint64(va.Int()) == vb.Uint(), true
	case ka == classUnsigned && kb == classSigned:
		return vb.Int() >= 0 && uint64(vb.Int()) == va.Uint(), true
	}
	// a float on either side: an integer equals a float only when the float
	// is integral and converts back exactly
	if ka != classFloat {
		va, vb = vb, va
	}
	f := va.Float()
	switch kindClass(vb.Kind()) {
	case classFloat:
		if va.Kind() == reflect.Float32 || vb.Kind() == reflect.Float32 {
			return float32(f) == float32(vb.Float()), true
		}
		return f == vb.Float(), true
	case classSigned:
		return fits(va, reflect.TypeOf(int64(0))) && int64(f) == vb.Int(), true
	default:
		return fits(va, reflect.TypeOf(uint64(0))) && uint64(f) == vb.Uint(), true
	}
}

type numClass int

const (
	classSigned numClass = iota
	classUnsigned
	classFloat
)

func kindClass(k reflect.Kind) numClass {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return classUnsigned
	case reflect.Float32, reflect.Float64:
		return classFloat
	}
	return classSigned
}

// 2^63 and 2^64 as float64, the first values past the integer ranges
const (
	twoTo63 = 9223372036854775808.0
	twoTo64 = 18446744073709551616.0
)

// fits reports whether the numeric v converts to t without wrapping or
// truncation
func fits(v reflect.Value, t reflect.Type) bool {
	target := reflect.New(t).Elem()
	switch kindClass(v.Kind()) {
	case classSigned:
		i := v.Int()
		switch kindClass(t.Kind()) {
		case classSigned:
			return !target.OverflowInt(i)
		case classUnsigned:
			return i >= 0 && !target.OverflowUint(uint64(i))
		}
		f := v.Convert(t).Float()
		return f >= -twoTo63 && f < twoTo63 && int64(f) == i
	case classUnsigned:
		u := v.Uint()
		switch kindClass(t.Kind()) {
		case classSigned:
			return u <= math.MaxInt64 && !target.OverflowInt(int64(u))
		case classUnsigned:
			return !target.OverflowUint(u)
		}
		f := v.Convert(t).Float()
		return f < twoTo64 && uint64(f) == u
	}

	f := v.Float()
	switch kindClass(t.Kind()) {
	case classSigned:
		return f == math.Trunc(f) && f >= -twoTo63 && f < twoTo63 && !target.OverflowInt(int64(f))
	case classUnsigned:
		return f == math.Trunc(f) && f >= 0 && f < twoTo64 && !target.OverflowUint(uint64(f))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return true
	}
	return !target.OverflowFloat(f)
}
