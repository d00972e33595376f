package gemini

type Type string

const (
	TypeObject  Type = "OBJECT"
	TypeArray   Type = "ARRAY"
	TypeString  Type = "STRING"
	TypeInteger Type = "INTEGER"
	TypeNumber  Type = "NUMBER"
	TypeBoolean Type = "BOOLEAN"
)

// Schema is the OpenAPI subset accepted by generationConfig.responseSchema.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

func String(desc string) *Schema { return &Schema{Type: TypeString, Description: desc} }

func Enum(values ...string) *Schema { return &Schema{Type: TypeString, Enum: values} }

func ArrayOf(items *Schema, desc string) *Schema {
	return &Schema{Type: TypeArray, Items: items, Description: desc}
}

func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}
