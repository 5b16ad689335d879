package loader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/schema"
)

func primType(p schema.Primitive) RawType { return RawType{Primitive: &p} }

func kindOf(t *testing.T, err error) dberrors.Kind {
	t.Helper()
	var e *dberrors.Error
	require.ErrorAs(t, err, &e)
	return e.Kind()
}

func TestLoadSimpleMessage(t *testing.T) {
	r := schema.New()
	l := New(r)

	err := l.Load([]Declaration{{Message: &RawMessage{
		Name: "User",
		Fields: []RawField{
			{Name: "name", Type: primType(schema.String)},
			{Name: "age", Type: primType(schema.Int)},
		},
	}}})
	require.NoError(t, err)

	decl, ok := r.Resolve("User")
	require.True(t, ok)
	require.Len(t, decl.Message.Fields, 2)
}

func TestLoadIdenticalRedeclarationIsIdempotent(t *testing.T) {
	r := schema.New()
	l := New(r)
	batch := []Declaration{{Message: &RawMessage{
		Name:   "User",
		Fields: []RawField{{Name: "name", Type: primType(schema.String)}},
	}}}

	require.NoError(t, l.Load(batch))
	require.NoError(t, l.Load(batch), "re-loading an identical declaration must be accepted")
}

func TestLoadConflictingRedeclarationFails(t *testing.T) {
	r := schema.New()
	l := New(r)
	require.NoError(t, l.Load([]Declaration{{Message: &RawMessage{
		Name:   "User",
		Fields: []RawField{{Name: "name", Type: primType(schema.String)}},
	}}}))

	err := l.Load([]Declaration{{Message: &RawMessage{
		Name:   "User",
		Fields: []RawField{{Name: "name", Type: primType(schema.Int)}},
	}}})
	require.Error(t, err)
	require.Equal(t, dberrors.SchemaConflict, kindOf(t, err))
}

func TestLoadUnknownTypeReference(t *testing.T) {
	r := schema.New()
	l := New(r)
	err := l.Load([]Declaration{{Message: &RawMessage{
		Name:   "Post",
		Fields: []RawField{{Name: "author", Type: RawType{Name: "User"}}},
	}}})
	require.Error(t, err)
	require.Equal(t, dberrors.UnknownType, kindOf(t, err))
}

func TestLoadForwardReferenceWithinBatchIsAllowed(t *testing.T) {
	r := schema.New()
	l := New(r)
	err := l.Load([]Declaration{
		{Message: &RawMessage{
			Name:   "Post",
			Fields: []RawField{{Name: "author", Type: RawType{Name: "User"}}},
		}},
		{Message: &RawMessage{
			Name:   "User",
			Fields: []RawField{{Name: "name", Type: primType(schema.String)}},
		}},
	})
	require.NoError(t, err)
}

func TestLoadBadDependencyOrder(t *testing.T) {
	r := schema.New()
	l := New(r)

	// b depends on c, which is declared after b: not a strictly earlier field.
	err := l.Load([]Declaration{{Message: &RawMessage{
		Name: "Dep",
		Fields: []RawField{
			{Name: "a", Type: primType(schema.Int)},
			{Name: "b", Type: primType(schema.Int), Dependencies: []string{"c"}},
			{Name: "c", Type: primType(schema.Int)},
		},
	}}})
	require.Error(t, err)
	require.Equal(t, dberrors.BadDependency, kindOf(t, err))
}

func TestLoadBadDependencyOnUndeclaredField(t *testing.T) {
	r := schema.New()
	l := New(r)
	err := l.Load([]Declaration{{Message: &RawMessage{
		Name: "Dep",
		Fields: []RawField{
			{Name: "b", Type: primType(schema.Int), Dependencies: []string{"missing"}},
		},
	}}})
	require.Error(t, err)
	require.Equal(t, dberrors.BadDependency, kindOf(t, err))
}

func TestLoadDuplicateFieldName(t *testing.T) {
	r := schema.New()
	l := New(r)
	err := l.Load([]Declaration{{Message: &RawMessage{
		Name: "User",
		Fields: []RawField{
			{Name: "name", Type: primType(schema.String)},
			{Name: "name", Type: primType(schema.Int)},
		},
	}}})
	require.Error(t, err)
	require.Equal(t, dberrors.DuplicateField, kindOf(t, err))
}

func TestLoadMessageCycleRejected(t *testing.T) {
	r := schema.New()
	l := New(r)
	err := l.Load([]Declaration{
		{Message: &RawMessage{Name: "A", Fields: []RawField{{Name: "b", Type: RawType{Name: "B"}}}}},
		{Message: &RawMessage{Name: "B", Fields: []RawField{{Name: "a", Type: RawType{Name: "A"}}}}},
	})
	require.Error(t, err)
}

func TestLoadEnum(t *testing.T) {
	r := schema.New()
	l := New(r)
	err := l.Load([]Declaration{{Enum: &RawEnum{
		Name: "Status",
		Variants: []RawVariant{
			{Name: "Admin"},
			{Name: "User"},
		},
	}}})
	require.NoError(t, err)

	decl, ok := r.Resolve("Status")
	require.True(t, ok)
	require.True(t, decl.IsEnum())
	require.Equal(t, []string{"Admin", "User"}, decl.Enum.Order)
}

func TestLoadDuplicateVariantRejected(t *testing.T) {
	r := schema.New()
	l := New(r)
	err := l.Load([]Declaration{{Enum: &RawEnum{
		Name: "Status",
		Variants: []RawVariant{
			{Name: "Admin"},
			{Name: "Admin"},
		},
	}}})
	require.Error(t, err)
	require.Equal(t, dberrors.DuplicateField, kindOf(t, err))
}

func TestLoadBatchIsAtomicOnFailure(t *testing.T) {
	r := schema.New()
	l := New(r)
	err := l.Load([]Declaration{
		{Message: &RawMessage{Name: "Good", Fields: []RawField{{Name: "x", Type: primType(schema.Int)}}}},
		{Message: &RawMessage{Name: "Bad", Fields: []RawField{{Name: "y", Type: RawType{Name: "Nope"}}}}},
	})
	require.Error(t, err)

	_, ok := r.Resolve("Good")
	require.False(t, ok, "a batch containing one invalid declaration must not commit any of it")
}
