// Package loader implements the Schema Loader (L): it transforms a
// batch of already-parsed declarations into committed Schema Registry
// (S) entries, validating well-formedness per spec §4.1 before ever
// touching the registry. Grounded on the teacher's
// pkg/schema/parser.go NewParser(opts ...ParserOption) functional
// options idiom and its "quick validation first, then full structural
// validation" staging.
package loader

import (
	"fmt"

	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/schema"
)

// Loader validates and commits declaration batches into a Registry.
type Loader struct {
	registry *schema.Registry
}

// Option configures loader behavior. The core loader has no tunables
// today, but the functional-options shape is kept so a host can add
// one (e.g. a stricter-naming check) without breaking callers —
// matching the teacher's ParserOption pattern.
type Option func(*Loader)

func New(registry *schema.Registry, opts ...Option) *Loader {
	l := &Loader{registry: registry}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load validates one batch of declarations and, only if the whole
// batch is well-formed, commits it to the registry atomically (spec
// §4.1/§4.2: "a load is atomic — on any error the batch is rolled
// back").
func (l *Loader) Load(batch []Declaration) error {
	existing := l.registry.Snapshot()

	// Stage 1: duplicate names within the batch itself.
	seen := make(map[string]Declaration, len(batch))
	for _, d := range batch {
		name := d.name()
		if name == "" {
			return dberrors.NewParse("declaration has no name")
		}
		if prior, dup := seen[name]; dup {
			if !declEqual(prior, d) {
				return dberrors.NewSchemaConflict(name)
			}
			continue // identical redeclaration within the batch: accepted
		}
		seen[name] = d
	}

	// Stage 2: conflicts against the existing registry (idempotent
	// re-application of an identical declaration is accepted; any
	// difference under the same name is rejected).
	pendingNames := make(map[string]bool, len(seen))
	for name := range seen {
		pendingNames[name] = true
		if existingDecl, ok := existing[name]; ok {
			if !declMatchesCommitted(seen[name], existingDecl) {
				return dberrors.NewSchemaConflict(name)
			}
		}
	}

	// Stage 3: every referenced type name must resolve, against the
	// union of the existing registry and the batch's own names
	// (intra-batch forward references are allowed).
	resolvable := func(name string) bool {
		if _, ok := existing[name]; ok {
			return true
		}
		return pendingNames[name]
	}
	for _, d := range seen {
		if d.Message != nil {
			if err := validateFields(d.Message.Name, d.Message.Fields, resolvable); err != nil {
				return err
			}
		}
		if d.Enum != nil {
			for _, v := range d.Enum.Variants {
				if err := validateFields(d.Enum.Name+"::"+v.Name, v.Fields, resolvable); err != nil {
					return err
				}
			}
			if err := checkDuplicateVariants(d.Enum); err != nil {
				return err
			}
		}
	}

	// Stage 4: message reference cycles (spec §9: "no cycles in S").
	if err := checkMessageCycles(existing, seen); err != nil {
		return err
	}

	// kindOf resolves whether a referenced type name names a message
	// or an enum, across both the existing registry and this batch.
	kindOf := func(name string) schema.DTKind {
		if d, ok := seen[name]; ok {
			if d.Message != nil {
				return schema.DTMessage
			}
			return schema.DTEnum
		}
		if d, ok := existing[name]; ok {
			if d.IsMessage() {
				return schema.DTMessage
			}
			return schema.DTEnum
		}
		return schema.DTMessage // unreachable: resolvability already checked
	}

	// Build the committed Decl for each new/changed name.
	toCommit := make(map[string]schema.Decl, len(seen))
	for name, d := range seen {
		if _, already := existing[name]; already {
			continue // identical, nothing to commit
		}
		committed, err := buildDecl(d, kindOf)
		if err != nil {
			return err
		}
		toCommit[name] = committed
	}

	l.registry.CommitBatch(toCommit)
	return nil
}

// validateFields checks per-field: no duplicate names within the
// declaration, the declared type resolves, and every dependency name
// refers to a strictly earlier field in the same declaration (spec
// §4.1 BadDependency).
func validateFields(declName string, fields []RawField, resolvable func(string) bool) error {
	seenNames := make(map[string]bool, len(fields))
	indexOf := make(map[string]int, len(fields))
	for i, f := range fields {
		if seenNames[f.Name] {
			return dberrors.NewDuplicateField(fmt.Sprintf("duplicate field %q in %s", f.Name, declName), f.Name)
		}
		seenNames[f.Name] = true
		indexOf[f.Name] = i
	}
	for i, f := range fields {
		if f.Type.Primitive == nil {
			if f.Type.Name == "" {
				return dberrors.NewUnknownType("")
			}
			if !resolvable(f.Type.Name) {
				return dberrors.NewUnknownType(f.Type.Name)
			}
		}
		for _, depName := range f.Dependencies {
			depIdx, ok := indexOf[depName]
			if !ok {
				return dberrors.NewBadDependency(
					fmt.Sprintf("%s.%s depends on undeclared field %q", declName, f.Name, depName),
					f.Name, depName)
			}
			if depIdx >= i {
				return dberrors.NewBadDependency(
					fmt.Sprintf("%s.%s dependency %q does not precede it", declName, f.Name, depName),
					f.Name, depName)
			}
		}
	}
	return nil
}

func checkDuplicateVariants(e *RawEnum) error {
	seen := make(map[string]bool, len(e.Variants))
	for _, v := range e.Variants {
		if seen[v.Name] {
			return dberrors.NewDuplicateField(fmt.Sprintf("duplicate variant %q in enum %s", v.Name, e.Name), v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// checkMessageCycles walks the "field of type MessageType(n)" edges
// among the union of existing + newly-declared messages and rejects
// any cycle (spec §9's non-goal on recursive/mutually-recursive
// message types).
func checkMessageCycles(existing map[string]schema.Decl, batch map[string]Declaration) error {
	fieldsOf := func(name string) []RawField {
		if d, ok := batch[name]; ok && d.Message != nil {
			return d.Message.Fields
		}
		if d, ok := existing[name]; ok && d.IsMessage() {
			out := make([]RawField, len(d.Message.Fields))
			for i, f := range d.Message.Fields {
				rf := RawField{Name: f.Name}
				if f.Type.Kind == schema.DTPrimitive {
					p := f.Type.Prim
					rf.Type = RawType{Primitive: &p}
				} else {
					rf.Type = RawType{Name: f.Type.Name}
				}
				out[i] = rf
			}
			return out
		}
		return nil
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var visit func(name string, chain []string) error
	visit = func(name string, chain []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return dberrors.NewBadDependency(
				fmt.Sprintf("cyclic message reference: %v", append(chain, name)), name, name)
		}
		color[name] = gray
		for _, f := range fieldsOf(name) {
			if f.Type.Primitive == nil && f.Type.Name != "" {
				isMessage := false
				if d, ok := batch[f.Type.Name]; ok {
					isMessage = d.Message != nil
				} else if d, ok := existing[f.Type.Name]; ok {
					isMessage = d.IsMessage()
				}
				if isMessage {
					if err := visit(f.Type.Name, append(chain, name)); err != nil {
						return err
					}
				}
			}
		}
		color[name] = black
		return nil
	}

	names := make([]string, 0, len(batch))
	for name, d := range batch {
		if d.Message != nil {
			names = append(names, name)
		}
	}
	for _, n := range names {
		if err := visit(n, nil); err != nil {
			return err
		}
	}
	return nil
}

func buildDecl(d Declaration, kindOf func(string) schema.DTKind) (schema.Decl, error) {
	if d.Message != nil {
		fields := make([]schema.FieldDecl, len(d.Message.Fields))
		for i, f := range d.Message.Fields {
			fields[i] = schema.FieldDecl{
				Name:         f.Name,
				Type:         resolveType(f.Type, kindOf),
				Dependencies: resolveDeps(d.Message.Fields, f.Dependencies),
			}
		}
		return schema.Decl{Message: &schema.MessageDecl{Name: d.Message.Name, Fields: fields}}, nil
	}
	order := make([]string, 0, len(d.Enum.Variants))
	variants := make(map[string][]schema.FieldDecl, len(d.Enum.Variants))
	for _, v := range d.Enum.Variants {
		fields := make([]schema.FieldDecl, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = schema.FieldDecl{
				Name:         f.Name,
				Type:         resolveType(f.Type, kindOf),
				Dependencies: resolveDeps(v.Fields, f.Dependencies),
			}
		}
		variants[v.Name] = fields
		order = append(order, v.Name)
	}
	return schema.Decl{Enum: &schema.EnumDecl{Name: d.Enum.Name, Variants: variants, Order: order}}, nil
}

func resolveType(rt RawType, kindOf func(string) schema.DTKind) schema.DT {
	if rt.Primitive != nil {
		return schema.PrimitiveType(*rt.Primitive)
	}
	return schema.DT{Kind: kindOf(rt.Name), Name: rt.Name}
}

func resolveDeps(fields []RawField, depNames []string) []int {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	out := make([]int, 0, len(depNames))
	for _, n := range depNames {
		if i, ok := idx[n]; ok {
			out = append(out, i)
		}
	}
	return out
}

// declEqual reports whether two raw declarations within the same batch
// are identical redeclarations (spec §4.1: "identical redeclaration is
// silently accepted"). Compared structurally on the raw form — no type
// resolution needed, so forward references within the batch can't
// throw this off.
func declEqual(a, b Declaration) bool {
	if (a.Message == nil) != (b.Message == nil) {
		return false
	}
	if a.Message != nil {
		return a.Message.Name == b.Message.Name && rawFieldsEqual(a.Message.Fields, b.Message.Fields)
	}
	if (a.Enum == nil) != (b.Enum == nil) {
		return false
	}
	if a.Enum == nil {
		return true
	}
	if a.Enum.Name != b.Enum.Name || len(a.Enum.Variants) != len(b.Enum.Variants) {
		return false
	}
	for i := range a.Enum.Variants {
		if a.Enum.Variants[i].Name != b.Enum.Variants[i].Name {
			return false
		}
		if !rawFieldsEqual(a.Enum.Variants[i].Fields, b.Enum.Variants[i].Fields) {
			return false
		}
	}
	return true
}

// declMatchesCommitted reports whether a raw declaration is an
// identical redeclaration of an already-committed one. Compares
// against the committed Decl's resolved fields directly, so it needs
// no kindOf resolver of its own.
func declMatchesCommitted(a Declaration, b schema.Decl) bool {
	if a.Message != nil {
		if !b.IsMessage() || a.Message.Name != b.Message.Name {
			return false
		}
		return rawFieldsMatchDecl(a.Message.Fields, b.Message.Fields)
	}
	if a.Enum != nil {
		if !b.IsEnum() || a.Enum.Name != b.Enum.Name || len(a.Enum.Variants) != len(b.Enum.Order) {
			return false
		}
		for i, v := range a.Enum.Variants {
			if v.Name != b.Enum.Order[i] {
				return false
			}
			declFields, ok := b.Enum.VariantFields(v.Name)
			if !ok || !rawFieldsMatchDecl(v.Fields, declFields) {
				return false
			}
		}
		return true
	}
	return false
}

func rawFieldsEqual(a, b []RawField) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !rawTypeEqual(a[i].Type, b[i].Type) {
			return false
		}
		if !stringSliceEqual(a[i].Dependencies, b[i].Dependencies) {
			return false
		}
	}
	return true
}

func rawTypeEqual(a, b RawType) bool {
	if (a.Primitive == nil) != (b.Primitive == nil) {
		return false
	}
	if a.Primitive != nil {
		return *a.Primitive == *b.Primitive
	}
	return a.Name == b.Name
}

// rawFieldsMatchDecl compares a raw field list against an already
// resolved, committed FieldDecl list — the committed side already
// carries the correct DTKind, so no resolver is needed here either.
func rawFieldsMatchDecl(raw []RawField, decl []schema.FieldDecl) bool {
	if len(raw) != len(decl) {
		return false
	}
	for i := range raw {
		if raw[i].Name != decl[i].Name || !rawTypeMatchesDT(raw[i].Type, decl[i].Type) {
			return false
		}
		if !intSliceEqual(resolveDeps(raw, raw[i].Dependencies), decl[i].Dependencies) {
			return false
		}
	}
	return true
}

func rawTypeMatchesDT(rt RawType, dt schema.DT) bool {
	if rt.Primitive != nil {
		return dt.Kind == schema.DTPrimitive && dt.Prim == *rt.Primitive
	}
	return dt.Kind != schema.DTPrimitive && dt.Name == rt.Name
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
