package automation

// Component identifies the input widget a field is edited with. The
// set is open: this package only records the value, interpretation
// belongs to the configuration surface.
type Component string

const (
	ComponentText     Component = "text"
	ComponentMessage  Component = "message"
	ComponentBoolean  Component = "boolean"
	ComponentNumber   Component = "number"
	ComponentDate     Component = "date"
	ComponentCategory Component = "category"
	ComponentGroup    Component = "group"
	ComponentUser     Component = "user"
	ComponentTag      Component = "tag"
)

// FieldDefinition describes one configurable input of a script or
// trigger. Values are immutable once the owning definition is built.
type FieldDefinition struct {
	Name                string         `json:"name"`
	Component           Component      `json:"component"`
	AcceptsPlaceholders bool           `json:"accepts_placeholders"`
	Triggerable         string         `json:"triggerable,omitempty"`
	Required            bool           `json:"required"`
	Extra               map[string]any `json:"extra,omitempty"`
}

// FieldSpec carries the optional attributes of a field declaration.
// Zero values match the declaration defaults: not required, no
// placeholders, no triggerable restriction, empty extra.
type FieldSpec struct {
	Component           Component
	AcceptsPlaceholders bool
	Triggerable         string
	Required            bool
	Extra               map[string]any
}

func newFieldDefinition(name string, spec FieldSpec) FieldDefinition {
	extra := make(map[string]any, len(spec.Extra))
	for k, v := range spec.Extra {
		extra[k] = v
	}
	return FieldDefinition{
		Name:                name,
		Component:           spec.Component,
		AcceptsPlaceholders: spec.AcceptsPlaceholders,
		Triggerable:         spec.Triggerable,
		Required:            spec.Required,
		Extra:               extra,
	}
}
