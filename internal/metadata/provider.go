// Package metadata evaluates declarative per-property rules: visibility,
// read-only state, required fields, hints and validation messages.
//
// Domains build a Provider once and attach rules to their property
// descriptors:
//
//	p := metadata.NewProvider(reg)
//	p.AddRule(columnLength, metadata.Rule{
//		IsVisible:  metadata.WhenPropertyIn("DataType", "String", "Binary"),
//		IsRequired: metadata.Always,
//	})
//
// Validation problems are returned as Message values, never as errors.
package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dase/internal/element"
	"dase/internal/registry"
)

// Severity ranks a validation message
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	case SeverityInfo:
		return "Info"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// UserFix is a named remediation the user may apply
type UserFix struct {
	Name        string
	Description string
	Apply       func(e *element.Element) bool
}

// Message is one validation result for a property
type Message struct {
	Severity     Severity
	Text         string
	PropertyID   uuid.UUID
	PropertyName string
	Fixes        []UserFix
}

// Errorf builds an error message
func Errorf(format string, args ...any) Message {
	return Message{Severity: SeverityError, Text: fmt.Sprintf(format, args...)}
}

// Warningf builds a warning message
func Warningf(format string, args ...any) Message {
	return Message{Severity: SeverityWarning, Text: fmt.Sprintf(format, args...)}
}

// Infof builds an informational message
func Infof(format string, args ...any) Message {
	return Message{Severity: SeverityInfo, Text: fmt.Sprintf(format, args...)}
}

// WithFix returns m with fix appended
func (m Message) WithFix(fix UserFix) Message {
	m.Fixes = append(append([]UserFix(nil), m.Fixes...), fix)
	return m
}

// HasErrors reports whether any message is an error
func HasErrors(messages []Message) bool {
	for _, m := range messages {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}

// PropertyMetadata is the evaluated state of one property on one element
type PropertyMetadata struct {
	Property    *element.Property
	Visible     bool
	ReadOnly    bool
	Required    bool
	Hint        string
	Placeholder string
	Messages    []Message
}

type globalValidator struct {
	match     func(*element.Property) bool
	validator Validator
}

// Provider holds the rules of one domain. Domain providers embed it.
type Provider struct {
	registry *registry.Registry

	mu      sync.RWMutex
	rules   map[uuid.UUID]Rule
	globals []globalValidator
}

// NewProvider creates a provider resolving properties through reg
func NewProvider(reg *registry.Registry) *Provider {
	return &Provider{
		registry: reg,
		rules:    make(map[uuid.UUID]Rule),
	}
}

// Registry returns the registry the provider resolves against
func (p *Provider) Registry() *registry.Registry {
	return p.registry
}

// AddRule sets the rule for prop, replacing any previous one
func (p *Provider) AddRule(prop *element.Property, rule Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules[prop.ID] = rule
}

// AddGlobalValidator runs v for every property accepted by match. A nil
// match accepts all properties.
func (p *Provider) AddGlobalValidator(match func(*element.Property) bool, v Validator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.globals = append(p.globals, globalValidator{match: match, validator: v})
}

// Metadata evaluates the rule of prop on e
func (p *Provider) Metadata(e *element.Element, prop *element.Property) PropertyMetadata {
	p.mu.RLock()
	rule, hasRule := p.rules[prop.ID]
	globals := append([]globalValidator(nil), p.globals...)
	p.mu.RUnlock()

	ctx := RuleContext{Element: e, Property: prop, Value: e.Get(prop), registry: p.registry}
	md := PropertyMetadata{Property: prop, Visible: true}

	var messages []Message
	if hasRule {
		md.Visible = eval(rule.IsVisible, ctx, true)
		md.ReadOnly = eval(rule.IsReadOnly, ctx, false)
		md.Required = eval(rule.IsRequired, ctx, false)
		if rule.Hint != nil {
			md.Hint = rule.Hint(ctx)
		}
		if rule.Placeholder != nil {
			md.Placeholder = rule.Placeholder(ctx)
		}
		for _, v := range rule.Validators {
			messages = append(messages, v(ctx)...)
		}
	}
	for _, g := range globals {
		if g.match == nil || g.match(prop) {
			messages = append(messages, g.validator(ctx)...)
		}
	}

	if md.Required && md.Visible && !md.ReadOnly && isEmpty(ctx.Value) {
		messages = append(messages, Errorf("%s is required", prop.Name))
	}

	for i := range messages {
		if messages[i].PropertyID == uuid.Nil {
			messages[i].PropertyID = prop.ID
		}
		if messages[i].PropertyName == "" {
			messages[i].PropertyName = prop.Name
		}
	}
	md.Messages = messages
	return md
}

// AllMetadata evaluates every registered property of e
func (p *Provider) AllMetadata(e *element.Element) []PropertyMetadata {
	props := p.registry.Properties(e.Tag)
	out := make([]PropertyMetadata, 0, len(props))
	for _, prop := range props {
		out = append(out, p.Metadata(e, prop))
	}
	return out
}

// ValidateAll collects the messages of every registered property of e
func (p *Provider) ValidateAll(e *element.Element) []Message {
	var out []Message
	for _, md := range p.AllMetadata(e) {
		out = append(out, md.Messages...)
	}
	return out
}

// ValidateTree runs ValidateAll over root and its descendants in pre-order
func (p *Provider) ValidateTree(root *element.Element) map[uuid.UUID][]Message {
	out := make(map[uuid.UUID][]Message)
	var walk func(*element.Element)
	walk = func(e *element.Element) {
		if msgs := p.ValidateAll(e); len(msgs) > 0 {
			out[e.ID()] = msgs
		}
		for _, c := range e.Children() {
			walk(c)
		}
	}
	walk(root)
	return out
}

func eval(cond Condition, ctx RuleContext, def bool) bool {
	if cond == nil {
		return def
	}
	return cond(ctx)
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case uuid.UUID:
		return x == uuid.Nil
	case element.Localized:
		return x.IsEmpty()
	case element.Link, element.LinkedShape:
		link, _ := element.LinkOf(x)
		return link.ElementID == uuid.Nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr:
		return rv.IsNil()
	}
	return false
}
