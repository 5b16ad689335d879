package loader

import "github.com/arkemis/dbufdb/internal/schema"

// RawType is how the external schema collaborator (DependoBuf parser)
// spells a declared type reference before the loader has resolved it
// against the registry namespace.
type RawType struct {
	Primitive *schema.Primitive `json:"primitive,omitempty"` // non-nil for a scalar
	Name      string            `json:"name,omitempty"`      // message or enum name, otherwise
}

// RawField is one field of a message or enum-variant declaration as
// delivered by the schema collaborator, including its dependency
// metadata (field names it depends on, per spec §3 FieldDecl).
type RawField struct {
	Name         string   `json:"name"`
	Type         RawType  `json:"type"`
	Dependencies []string `json:"dependencies,omitempty"` // names of strictly-earlier fields
}

// RawVariant is one variant of an EnumDecl.
type RawVariant struct {
	Name   string      `json:"name"`
	Fields []RawField  `json:"fields,omitempty"`
}

// RawMessage and RawEnum are the two declaration shapes FETCH TYPES
// delivers; a Declaration is exactly one of the two (spec §6: "a
// sequence of MessageDecl and EnumDecl already parsed").
type RawMessage struct {
	Name   string     `json:"name"`
	Fields []RawField `json:"fields"`
}

type RawEnum struct {
	Name     string       `json:"name"`
	Variants []RawVariant `json:"variants"`
}

// Declaration is one entry of the batch handed to Load.
type Declaration struct {
	Message *RawMessage `json:"message,omitempty"`
	Enum    *RawEnum    `json:"enum,omitempty"`
}

func (d Declaration) name() string {
	if d.Message != nil {
		return d.Message.Name
	}
	if d.Enum != nil {
		return d.Enum.Name
	}
	return ""
}
