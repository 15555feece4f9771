package metadata

import (
	"reflect"

	"dase/internal/convert"
	"dase/internal/element"
	"dase/internal/registry"
)

// RuleContext is what conditions and validators see
type RuleContext struct {
	Element  *element.Element
	Property *element.Property
	Value    any

	registry *registry.Registry
}

// PropertyValue returns the current value of another property of the same
// element, looked up by name. Unknown names yield nil.
func (c RuleContext) PropertyValue(name string) any {
	if c.Element == nil || c.registry == nil {
		return nil
	}
	p := c.registry.PropertyByName(c.Element.Tag, name)
	if p == nil {
		return nil
	}
	return c.Element.Get(p)
}

// Condition decides one boolean aspect of a property
type Condition func(RuleContext) bool

// Validator returns the messages for a property, or none
type Validator func(RuleContext) []Message

// TextProvider computes a hint or placeholder
type TextProvider func(RuleContext) string

// Rule is the declarative metadata of one property. Nil conditions take the
// defaults: visible, editable, optional.
type Rule struct {
	IsVisible   Condition
	IsReadOnly  Condition
	IsRequired  Condition
	Validators  []Validator
	Hint        TextProvider
	Placeholder TextProvider
}

// Always is a condition that holds
func Always(RuleContext) bool { return true }

// Never is a condition that does not hold
func Never(RuleContext) bool { return false }

// WhenPropertyEquals holds when the named property equals value
func WhenPropertyEquals(name string, value any) Condition {
	return func(c RuleContext) bool {
		return valuesEqual(c.PropertyValue(name), value)
	}
}

// WhenPropertyIn holds when the named property equals one of values
func WhenPropertyIn(name string, values ...any) Condition {
	return func(c RuleContext) bool {
		actual := c.PropertyValue(name)
		for _, v := range values {
			if valuesEqual(actual, v) {
				return true
			}
		}
		return false
	}
}

// WhenPropertyNotIn holds when the named property equals none of values
func WhenPropertyNotIn(name string, values ...any) Condition {
	return Not(WhenPropertyIn(name, values...))
}

// AllOf holds when every condition holds
func AllOf(conds ...Condition) Condition {
	return func(c RuleContext) bool {
		for _, cond := range conds {
			if !cond(c) {
				return false
			}
		}
		return true
	}
}

// AnyOf holds when at least one condition holds
func AnyOf(conds ...Condition) Condition {
	return func(c RuleContext) bool {
		for _, cond := range conds {
			if cond(c) {
				return true
			}
		}
		return false
	}
}

// Not negates cond
func Not(cond Condition) Condition {
	return func(c RuleContext) bool { return !cond(c) }
}

func valuesEqual(actual, want any) bool {
	if actual == nil || want == nil {
		return actual == nil && want == nil
	}
	if equal, ok := convert.NumbersEqual(actual, want); ok {
		return equal
	}
	if coerced, ok := convert.Coerce(actual, want); ok {
		actual = coerced
	}
	return reflect.DeepEqual(actual, want)
}
