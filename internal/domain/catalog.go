package domain

import (
	"fmt"
	"regexp"
)

// TypeDefinition is one entry of the entity or relationship type catalog.
// Catalogs are seeded out of band; the service only reads them.
type TypeDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	IDPrefix    string          `json:"id_prefix,omitempty"`
	Schema      *PropertySchema `json:"schema,omitempty"`
}

// PropertySchema constrains the properties of one type.
type PropertySchema struct {
	Required []PropertyDef `json:"required,omitempty"`
	Optional []PropertyDef `json:"optional,omitempty"`
	// Statuses narrows the allowed status values for this type. Empty
	// means the global default set applies.
	Statuses []EntityStatus `json:"statuses,omitempty"`
}

// PropertyDef describes a single property constraint.
type PropertyDef struct {
	Name    string   `json:"name"`
	Type    string   `json:"type,omitempty"` // string, number, bool
	Pattern string   `json:"pattern,omitempty"`
	Enum    []string `json:"enum,omitempty"`
}

// Validate checks the supplied properties against the schema. Required
// properties must be present; any property with a matching definition must
// satisfy its pattern and enum constraints.
func (s *PropertySchema) Validate(props map[string]any) error {
	if s == nil {
		return nil
	}
	for _, def := range s.Required {
		val, ok := props[def.Name]
		if !ok || val == nil {
			return &ValidationError{Field: def.Name, Reason: "required property missing"}
		}
		if err := def.check(val); err != nil {
			return err
		}
	}
	for _, def := range s.Optional {
		if val, ok := props[def.Name]; ok && val != nil {
			if err := def.check(val); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d PropertyDef) check(val any) error {
	str, isString := val.(string)

	switch d.Type {
	case "", "string":
		if !isString && d.Type == "string" {
			return &ValidationError{Field: d.Name, Reason: "expected a string"}
		}
	case "number":
		switch val.(type) {
		case int, int64, float64:
		default:
			return &ValidationError{Field: d.Name, Reason: "expected a number"}
		}
	case "bool":
		if _, ok := val.(bool); !ok {
			return &ValidationError{Field: d.Name, Reason: "expected a boolean"}
		}
	}

	if d.Pattern != "" && isString {
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return &ValidationError{Field: d.Name, Reason: fmt.Sprintf("invalid schema pattern %q", d.Pattern)}
		}
		if !re.MatchString(str) {
			return &ValidationError{Field: d.Name, Reason: fmt.Sprintf("value does not match pattern %q", d.Pattern)}
		}
	}

	if len(d.Enum) > 0 && isString {
		for _, allowed := range d.Enum {
			if allowed == str {
				return nil
			}
		}
		return &ValidationError{Field: d.Name, Reason: fmt.Sprintf("value %q not in enumeration", str)}
	}

	return nil
}
