package orm

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"dase/internal/config"
	"dase/internal/element"
	"dase/internal/metadata"
	"dase/internal/registry"
)

// MetadataProvider evaluates the relational model rules against one type
// table
type MetadataProvider struct {
	*metadata.Provider
	types *config.TypesConfiguration
}

// NewMetadataProvider creates the provider. A nil types table uses the
// built-in one.
func NewMetadataProvider(reg *registry.Registry, types *config.TypesConfiguration) *MetadataProvider {
	if types == nil {
		types = config.DefaultTypesConfiguration()
	}
	p := &MetadataProvider{Provider: metadata.NewProvider(reg), types: types}
	p.fieldRules()
	p.referenceRules()
	p.AddGlobalValidator(func(prop *element.Property) bool { return prop.CultureSensitive }, defaultCultureText)
	return p
}

// Types returns the type table the rules use
func (p *MetadataProvider) Types() *config.TypesConfiguration {
	return p.types
}

func names(defs []config.TypeDefinition) []any {
	out := make([]any, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

func setValue(prop *element.Property, v any) func(*element.Element) bool {
	return func(e *element.Element) bool {
		return e.Set(prop, v) == nil
	}
}

func (p *MetadataProvider) typeOf(ctx metadata.RuleContext) (config.TypeDefinition, bool) {
	name, _ := ctx.PropertyValue(DataType.Name).(string)
	return p.types.TypeByName(name)
}

func (p *MetadataProvider) fieldRules() {
	lengthTypes := names(p.types.LengthTypes())
	scaleTypes := names(p.types.ScaleTypes())
	autoIncrementTypes := names(p.types.AutoIncrementTypes())
	isPrimaryKey := metadata.WhenPropertyEquals(IsPrimaryKey.Name, true)

	p.AddRule(DataType, metadata.Rule{
		IsRequired: metadata.Always,
		Validators: []metadata.Validator{p.knownType},
		Hint: func(ctx metadata.RuleContext) string {
			if def, ok := p.typeOf(ctx); ok && def.Category != "" {
				return def.Category
			}
			return strings.Join(p.types.Names(), ", ")
		},
	})

	p.AddRule(Length, metadata.Rule{
		IsVisible:  metadata.WhenPropertyIn(DataType.Name, lengthTypes...),
		Validators: []metadata.Validator{p.lengthInRange},
		Placeholder: func(ctx metadata.RuleContext) string {
			if def, ok := p.typeOf(ctx); ok && def.DefaultLength > 0 {
				return fmt.Sprintf("%d", def.DefaultLength)
			}
			return ""
		},
	})

	p.AddRule(Scale, metadata.Rule{
		IsVisible:  metadata.WhenPropertyIn(DataType.Name, scaleTypes...),
		Validators: []metadata.Validator{p.scaleWithinLength},
		Placeholder: func(ctx metadata.RuleContext) string {
			if def, ok := p.typeOf(ctx); ok && def.HasScale {
				return fmt.Sprintf("%d", def.DefaultScale)
			}
			return ""
		},
	})

	p.AddRule(IsPrimaryKey, metadata.Rule{
		Validators: []metadata.Validator{p.primaryKeyType},
	})

	p.AddRule(IsAutoIncrement, metadata.Rule{
		IsVisible:  metadata.WhenPropertyIn(DataType.Name, autoIncrementTypes...),
		Validators: []metadata.Validator{autoIncrementNeedsKey},
	})

	p.AddRule(IsRequired, metadata.Rule{
		IsReadOnly: isPrimaryKey,
		Hint: func(ctx metadata.RuleContext) string {
			if isPrimaryKey(ctx) {
				return "primary key fields are always required"
			}
			return ""
		},
	})
}

func (p *MetadataProvider) referenceRules() {
	p.AddRule(Source, metadata.Rule{
		IsRequired: metadata.Always,
		Validators: []metadata.Validator{linksToTable},
	})
	p.AddRule(Target, metadata.Rule{
		IsRequired: metadata.Always,
		Validators: []metadata.Validator{linksToTable, targetHasKey},
	})
	p.AddRule(OnDelete, metadata.Rule{
		Validators: []metadata.Validator{onDeleteAction},
		Hint: func(metadata.RuleContext) string {
			return strings.Join([]string{ActionNoAction, ActionCascade, ActionSetNull, ActionRestrict}, ", ")
		},
	})
}

func (p *MetadataProvider) knownType(ctx metadata.RuleContext) []metadata.Message {
	name, _ := ctx.Value.(string)
	if strings.TrimSpace(name) == "" {
		return nil
	}
	if _, ok := p.types.TypeByName(name); ok {
		return nil
	}
	msg := metadata.Errorf("unknown data type %q", name)
	for _, def := range p.types.Types {
		if strings.EqualFold(def.Name, name) {
			return []metadata.Message{msg.WithFix(metadata.UserFix{
				Name:        "Use " + def.Name,
				Description: fmt.Sprintf("Change the data type to %s", def.Name),
				Apply:       setValue(DataType, def.Name),
			})}
		}
	}
	return []metadata.Message{msg}
}

func (p *MetadataProvider) lengthInRange(ctx metadata.RuleContext) []metadata.Message {
	def, ok := p.typeOf(ctx)
	length, _ := ctx.Value.(int32)
	if !ok || !def.HasLength {
		return nil
	}
	switch {
	case length < 0:
		return []metadata.Message{metadata.Errorf("length cannot be negative").WithFix(metadata.UserFix{
			Name:        "Reset length",
			Description: "Use the default length of the data type",
			Apply:       setValue(Length, int32(0)),
		})}
	case def.MaxLength > 0 && int(length) > def.MaxLength:
		return []metadata.Message{metadata.Errorf("length %d exceeds the %s maximum of %d", length, def.Name, def.MaxLength).WithFix(metadata.UserFix{
			Name:        "Use maximum length",
			Description: fmt.Sprintf("Set the length to %d", def.MaxLength),
			Apply:       setValue(Length, int32(def.MaxLength)),
		})}
	}
	return nil
}

func (p *MetadataProvider) scaleWithinLength(ctx metadata.RuleContext) []metadata.Message {
	def, ok := p.typeOf(ctx)
	if !ok || !def.HasScale {
		return nil
	}
	scale, _ := ctx.Value.(int32)
	length, _ := ctx.PropertyValue(Length.Name).(int32)
	if length == 0 {
		length = int32(def.DefaultLength)
	}
	if scale < 0 || scale > length {
		return []metadata.Message{metadata.Errorf("scale %d must be between 0 and the length %d", scale, length).WithFix(metadata.UserFix{
			Name:        "Use default scale",
			Description: fmt.Sprintf("Set the scale to %d", def.DefaultScale),
			Apply:       setValue(Scale, int32(def.DefaultScale)),
		})}
	}
	return nil
}

func (p *MetadataProvider) primaryKeyType(ctx metadata.RuleContext) []metadata.Message {
	if pk, _ := ctx.Value.(bool); !pk {
		return nil
	}
	def, ok := p.typeOf(ctx)
	if ok && def.CanBePrimaryKey {
		return nil
	}
	msg := metadata.Errorf("%v cannot be used in a primary key", ctx.PropertyValue(DataType.Name))
	if keys := p.types.PrimaryKeyTypes(); len(keys) > 0 {
		msg = msg.WithFix(metadata.UserFix{
			Name:        "Use " + keys[0].Name,
			Description: fmt.Sprintf("Change the data type to %s", keys[0].Name),
			Apply:       setValue(DataType, keys[0].Name),
		})
	}
	return []metadata.Message{msg.WithFix(metadata.UserFix{
		Name:        "Remove from primary key",
		Description: "Clear the primary key flag",
		Apply:       setValue(IsPrimaryKey, false),
	})}
}

func autoIncrementNeedsKey(ctx metadata.RuleContext) []metadata.Message {
	if auto, _ := ctx.Value.(bool); !auto {
		return nil
	}
	if pk, _ := ctx.PropertyValue(IsPrimaryKey.Name).(bool); pk {
		return nil
	}
	return []metadata.Message{metadata.Warningf("auto-increment is only applied to primary key fields").WithFix(metadata.UserFix{
		Name:        "Make primary key",
		Description: "Add the field to the primary key",
		Apply:       setValue(IsPrimaryKey, true),
	})}
}

func linksToTable(ctx metadata.RuleContext) []metadata.Message {
	link, ok := element.LinkOf(ctx.Value)
	if !ok || link.ElementID == uuid.Nil {
		return nil
	}
	target := ctx.Element.LinkedElement(ctx.Property)
	switch {
	case target == nil:
		return []metadata.Message{metadata.Errorf("%s refers to a missing element", ctx.Property.Name)}
	case target.Tag != TagTable:
		return []metadata.Message{metadata.Errorf("%s must refer to a table, not a %s", ctx.Property.Name, target.Tag)}
	}
	return nil
}

func targetHasKey(ctx metadata.RuleContext) []metadata.Message {
	target := ctx.Element.LinkedElement(ctx.Property)
	if target == nil || target.Tag != TagTable {
		return nil
	}
	if len(PrimaryKey(target)) == 0 {
		return []metadata.Message{metadata.Warningf("table %s has no primary key", target.Name)}
	}
	return nil
}

func onDeleteAction(ctx metadata.RuleContext) []metadata.Message {
	action, _ := ctx.Value.(string)
	switch action {
	case ActionNoAction, ActionCascade, ActionSetNull, ActionRestrict:
		return nil
	}
	return []metadata.Message{metadata.Errorf("unknown delete action %q", action).WithFix(metadata.UserFix{
		Name:        "Use " + ActionNoAction,
		Description: "Take no action when the target row is deleted",
		Apply:       setValue(OnDelete, ActionNoAction),
	})}
}

// defaultCultureText warns when translations exist but the default culture
// has no text
func defaultCultureText(ctx metadata.RuleContext) []metadata.Message {
	l, ok := ctx.Value.(element.Localized)
	if !ok || l.IsEmpty() || l.DefaultCulture == "" {
		return nil
	}
	if l.Texts[l.DefaultCulture] != "" {
		return nil
	}
	return []metadata.Message{metadata.Warningf("%s has no %s text", ctx.Property.Name, l.DefaultCulture)}
}
