// Package table implements the Table Catalog (T): create/drop/insert
// and lazy scan over typed row vectors, each row conforming
// structurally to the table's declared message type. Grounded on the
// teacher's pkg/schema/registry/filesystem.go mutex-guarded
// map-of-slices storage shape, repurposed here from opaque JSON blobs
// to typed value.Value rows.
package table

import (
	"sync"

	"github.com/arkemis/dbufdb/internal/dberrors"
	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/value"
)

// Table holds one named, typed row vector.
type Table struct {
	Name     string
	RowType  string // message type name every row conforms to
	Registry *schema.Registry

	mu   sync.RWMutex
	rows []value.Value
}

// Catalog (T) owns every created table, keyed by name.
type Catalog struct {
	registry *schema.Registry

	mu     sync.RWMutex
	tables map[string]*Table
}

func New(registry *schema.Registry) *Catalog {
	return &Catalog{registry: registry, tables: make(map[string]*Table)}
}

// Create registers a new, empty table whose rows must conform to
// rowType (spec §4.3: CREATE TABLE). rowType must resolve to a message
// declaration, not an enum or primitive.
func (c *Catalog) Create(name, rowType string) error {
	decl, ok := c.registry.Resolve(rowType)
	if !ok {
		return dberrors.NewUnknownType(rowType)
	}
	if !decl.IsMessage() {
		return dberrors.NewNotAMessage(rowType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[name]; exists {
		return dberrors.NewTableExists(name)
	}
	c.tables[name] = &Table{Name: name, RowType: rowType, Registry: c.registry}
	return nil
}

// Drop removes a table and all of its rows.
func (c *Catalog) Drop(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[name]; !exists {
		return dberrors.NewNoSuchTable(name)
	}
	delete(c.tables, name)
	return nil
}

// Lookup returns the named table, or NoSuchTable.
func (c *Catalog) Lookup(name string) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[name]
	if !ok {
		return nil, dberrors.NewNoSuchTable(name)
	}
	return t, nil
}

// Insert appends rows to a table, all-or-nothing per batch (spec
// §4.3: "insert is all-or-nothing"): every row is checked for
// structural conformance to the table's declared row type before any
// row is appended.
func (c *Catalog) Insert(name string, rows []value.Value) error {
	t, err := c.Lookup(name)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := Conforms(c.registry, t.RowType, row); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, rows...)
	return nil
}

// Scan returns a lazy, finite iterator over the table's current rows
// (spec §4.3: "scan is lazy, finite, not restartable across
// mutation"). The returned Cursor iterates over a copy of the rows
// taken at call time; it does not reflect inserts that occur after
// Scan returns.
func (c *Catalog) Scan(name string) (*Cursor, error) {
	t, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	snapshot := make([]value.Value, len(t.rows))
	copy(snapshot, t.rows)
	return &Cursor{rows: snapshot}, nil
}

// Cursor is a one-shot, forward-only iterator over a row snapshot.
type Cursor struct {
	rows []value.Value
	pos  int
}

// Next returns the next row and true, or the zero Value and false
// once exhausted. Not restartable: once exhausted it stays exhausted.
func (cur *Cursor) Next() (value.Value, bool) {
	if cur.pos >= len(cur.rows) {
		return value.Value{}, false
	}
	row := cur.rows[cur.pos]
	cur.pos++
	return row, true
}

// Len reports the total number of rows in this snapshot.
func (cur *Cursor) Len() int { return len(cur.rows) }
