package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryResolveAndFieldIndex(t *testing.T) {
	r := New()
	r.CommitBatch(map[string]Decl{
		"User": {Message: &MessageDecl{
			Name: "User",
			Fields: []FieldDecl{
				{Name: "name", Type: PrimitiveType(String)},
				{Name: "age", Type: PrimitiveType(Int)},
			},
		}},
	})

	decl, ok := r.Resolve("User")
	require.True(t, ok)
	require.True(t, decl.IsMessage())

	idx, err := r.FieldIndex("User", "age")
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	_, err = r.FieldIndex("User", "nope")
	require.Error(t, err)

	_, err = r.FieldIndex("Missing", "age")
	require.Error(t, err)
}

func TestRegistryDeps(t *testing.T) {
	r := New()
	r.CommitBatch(map[string]Decl{
		"Dep": {Message: &MessageDecl{
			Name: "Dep",
			Fields: []FieldDecl{
				{Name: "a", Type: PrimitiveType(Int)},
				{Name: "b", Type: PrimitiveType(Int), Dependencies: []int{0}},
			},
		}},
	})

	deps, err := r.Deps("Dep", "b")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, deps)

	deps, err = r.Deps("Dep", "a")
	require.NoError(t, err)
	require.Empty(t, deps)
}

func TestRegistrySnapshotIsIndependentCopy(t *testing.T) {
	r := New()
	r.CommitBatch(map[string]Decl{"A": {Message: &MessageDecl{Name: "A"}}})
	snap := r.Snapshot()
	r.CommitBatch(map[string]Decl{"B": {Message: &MessageDecl{Name: "B"}}})

	_, ok := snap["B"]
	require.False(t, ok, "a snapshot taken before a later commit must not observe it")
	require.Len(t, r.All(), 2)
}

func TestDTEqual(t *testing.T) {
	require.True(t, PrimitiveType(Int).Equal(PrimitiveType(Int)))
	require.False(t, PrimitiveType(Int).Equal(PrimitiveType(Double)))
	require.True(t, MessageType("User").Equal(MessageType("User")))
	require.False(t, MessageType("User").Equal(EnumType("User")), "same name but different DTKind is not equal")
	require.True(t, PrimitiveType(Int).IsNumeric())
	require.False(t, PrimitiveType(String).IsNumeric())
}

func TestEnumDeclVariantFields(t *testing.T) {
	e := &EnumDecl{
		Name:  "Status",
		Order: []string{"Admin", "User"},
		Variants: map[string][]FieldDecl{
			"Admin": {},
			"User":  {{Name: "since", Type: PrimitiveType(Int)}},
		},
	}
	fields, ok := e.VariantFields("User")
	require.True(t, ok)
	require.Len(t, fields, 1)

	_, ok = e.VariantFields("Guest")
	require.False(t, ok)
}
