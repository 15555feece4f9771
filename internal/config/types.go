package config

// Target and group of the ORM type table
const (
	TargetORM  = "ORM"
	GroupTypes = "Types"
)

// TypeDefinition describes one column data type
type TypeDefinition struct {
	Name             string `json:"name"`
	Category         string `json:"category,omitempty"`
	CanBePrimaryKey  bool   `json:"canBePrimaryKey,omitempty"`
	CanAutoIncrement bool   `json:"canAutoIncrement,omitempty"`
	HasLength        bool   `json:"hasLength,omitempty"`
	HasScale         bool   `json:"hasScale,omitempty"`
	DefaultLength    int    `json:"defaultLength,omitempty"`
	MaxLength        int    `json:"maxLength,omitempty"`
	DefaultScale     int    `json:"defaultScale,omitempty"`
}

// TypesConfiguration is the content of .DASE/ORM.Types.json
type TypesConfiguration struct {
	Version int              `json:"version"`
	Types   []TypeDefinition `json:"types"`
}

// DefaultTypesConfiguration returns the built-in type table
func DefaultTypesConfiguration() *TypesConfiguration {
	return &TypesConfiguration{
		Version: 1,
		Types: []TypeDefinition{
			{Name: "Int32", Category: "Numeric", CanBePrimaryKey: true, CanAutoIncrement: true},
			{Name: "Int64", Category: "Numeric", CanBePrimaryKey: true, CanAutoIncrement: true},
			{Name: "Decimal", Category: "Numeric", HasLength: true, HasScale: true, DefaultLength: 18, MaxLength: 38, DefaultScale: 2},
			{Name: "Double", Category: "Numeric"},
			{Name: "Boolean", Category: "Logical"},
			{Name: "String", Category: "Text", CanBePrimaryKey: true, HasLength: true, DefaultLength: 255, MaxLength: 4000},
			{Name: "Text", Category: "Text"},
			{Name: "Guid", Category: "Identity", CanBePrimaryKey: true},
			{Name: "DateTime", Category: "Temporal"},
			{Name: "Binary", Category: "Binary", HasLength: true, DefaultLength: 256, MaxLength: 8000},
		},
	}
}

// PrimaryKeyTypes lists the types usable in a primary key
func (c *TypesConfiguration) PrimaryKeyTypes() []TypeDefinition {
	return c.filter(func(t TypeDefinition) bool { return t.CanBePrimaryKey })
}

// AutoIncrementTypes lists the types that may auto-increment
func (c *TypesConfiguration) AutoIncrementTypes() []TypeDefinition {
	return c.filter(func(t TypeDefinition) bool { return t.CanAutoIncrement })
}

// LengthTypes lists the types that take a length
func (c *TypesConfiguration) LengthTypes() []TypeDefinition {
	return c.filter(func(t TypeDefinition) bool { return t.HasLength })
}

// ScaleTypes lists the types that take a scale
func (c *TypesConfiguration) ScaleTypes() []TypeDefinition {
	return c.filter(func(t TypeDefinition) bool { return t.HasScale })
}

// TypeByName finds a type definition
func (c *TypesConfiguration) TypeByName(name string) (TypeDefinition, bool) {
	for _, t := range c.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TypeDefinition{}, false
}

// Names lists the type names in table order
func (c *TypesConfiguration) Names() []string {
	out := make([]string, len(c.Types))
	for i, t := range c.Types {
		out[i] = t.Name
	}
	return out
}

func (c *TypesConfiguration) filter(keep func(TypeDefinition) bool) []TypeDefinition {
	var out []TypeDefinition
	for _, t := range c.Types {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
