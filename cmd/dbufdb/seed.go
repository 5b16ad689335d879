package main

import (
	"encoding/json"
	"os"

	"github.com/arkemis/dbufdb/internal/loader"
	"github.com/arkemis/dbufdb/internal/schema"
)

func prim(p schema.Primitive) loader.RawType { return loader.RawType{Primitive: &p} }
func named(name string) loader.RawType       { return loader.RawType{Name: name} }

// userStatusBatch builds the schema of spec.md §8 scenarios A-D:
// message User{name, surname, age, year_of_birth, status Status} and
// enum Status{Admin, User}.
func userStatusBatch() []loader.Declaration {
	return []loader.Declaration{
		{Enum: &loader.RawEnum{
			Name: "Status",
			Variants: []loader.RawVariant{
				{Name: "Admin"},
				{Name: "User"},
			},
		}},
		{Message: &loader.RawMessage{
			Name: "User",
			Fields: []loader.RawField{
				{Name: "name", Type: prim(schema.String)},
				{Name: "surname", Type: prim(schema.String)},
				{Name: "age", Type: prim(schema.Int)},
				{Name: "year_of_birth", Type: prim(schema.Int)},
				{Name: "status", Type: named("Status")},
			},
		}},
	}
}

// depBatch builds scenario E's schema: message Dep{a Int; b Int
// depends on a}.
func depBatch() []loader.Declaration {
	return []loader.Declaration{
		{Message: &loader.RawMessage{
			Name: "Dep",
			Fields: []loader.RawField{
				{Name: "a", Type: prim(schema.Int)},
				{Name: "b", Type: prim(schema.Int), Dependencies: []string{"a"}},
			},
		}},
	}
}

// loaderBatchToQueryPath writes batch as the JSON-encoded file
// FETCH TYPES expects (SPEC_FULL §4.9's FileSource wire format) and
// returns its path.
func loaderBatchToQueryPath(batch []loader.Declaration) (string, error) {
	f, err := os.CreateTemp("", "dbufdb-schema-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(batch); err != nil {
		return "", err
	}
	return f.Name(), nil
}
