package table

import (
	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/value"
)

// Conforms implements the Structural Conformance Check (spec §4.4): it
// recursively checks that v has the shape required by typeName,
// against registry's declared types. It does not evaluate dependency
// arrows — those are metadata consumed only by the Dependency
// Analyser, never by conformance checking.
func Conforms(registry *schema.Registry, typeName string, v value.Value) error {
	decl, ok := registry.Resolve(typeName)
	if !ok {
		return dberrors.NewUnknownType(typeName)
	}
	return conformsToDecl(registry, decl, v)
}

func conformsToDT(registry *schema.Registry, dt schema.DT, v value.Value) error {
	switch dt.Kind {
	case schema.DTPrimitive:
		return conformsToPrimitive(dt.Prim, v)
	default:
		decl, ok := registry.Resolve(dt.Name)
		if !ok {
			return dberrors.NewUnknownType(dt.Name)
		}
		return conformsToDecl(registry, decl, v)
	}
}

func conformsToPrimitive(p schema.Primitive, v value.Value) error {
	switch p {
	case schema.Int:
		if v.Tag() != value.TagInt {
			return dberrors.NewTypeMismatch(p.String(), v.Tag().String())
		}
	case schema.Double:
		if v.Tag() != value.TagDouble {
			return dberrors.NewTypeMismatch(p.String(), v.Tag().String())
		}
	case schema.String:
		if v.Tag() != value.TagString {
			return dberrors.NewTypeMismatch(p.String(), v.Tag().String())
		}
	case schema.Bool:
		if v.Tag() != value.TagBool {
			return dberrors.NewTypeMismatch(p.String(), v.Tag().String())
		}
	}
	return nil
}

func conformsToDecl(registry *schema.Registry, decl schema.Decl, v value.Value) error {
	if decl.IsMessage() {
		return conformsToMessage(registry, decl.Message, v)
	}
	return conformsToEnum(registry, decl.Enum, v)
}

func conformsToMessage(registry *schema.Registry, m *schema.MessageDecl, v value.Value) error {
	typeName, ok := v.MessageType()
	if !ok {
		return dberrors.NewTypeMismatch(m.Name, v.Tag().String())
	}
	if typeName != m.Name {
		return dberrors.NewTypeMismatch(m.Name, typeName)
	}
	fields := v.Fields()
	if len(fields) != len(m.Fields) {
		return dberrors.NewArityMismatch(m.Name, len(m.Fields), len(fields))
	}
	for i, fd := range m.Fields {
		if err := conformsToDT(registry, fd.Type, fields[i]); err != nil {
			return err
		}
	}
	return nil
}

func conformsToEnum(registry *schema.Registry, e *schema.EnumDecl, v value.Value) error {
	enumName, variantName, ok := v.VariantParts()
	if !ok {
		return dberrors.NewTypeMismatch(e.Name, v.Tag().String())
	}
	if enumName != e.Name {
		return dberrors.NewTypeMismatch(e.Name, enumName)
	}
	variantFields, ok := e.VariantFields(variantName)
	if !ok {
		return dberrors.NewUnknownVariant(e.Name, variantName)
	}
	fields := v.Fields()
	if len(fields) != len(variantFields) {
		return dberrors.NewArityMismatch(e.Name+"::"+variantName, len(variantFields), len(fields))
	}
	for i, fd := range variantFields {
		if err := conformsToDT(registry, fd.Type, fields[i]); err != nil {
			return err
		}
	}
	return nil
}
