// Package rtsqlite backs the sqlite3 module in generated programs,
// binding against the bundled sqlite library.
package rtsqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"auriga/runtime/rtval"
)

// Conn is an open database handle.
type Conn struct {
	db *sql.DB
}

// Connect opens (or creates) the database at path.
func Connect(path string) *Conn {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		panic(fmt.Sprintf("sqlite connect: %v", err))
	}
	return &Conn{db: db}
}

// Execute runs a statement that returns no rows.
func (c *Conn) Execute(query string, args ...any) {
	if _, err := c.db.Exec(query, args...); err != nil {
		panic(fmt.Sprintf("sqlite execute: %v", err))
	}
}

// Fetchall runs a query and returns the rows as a boxed list of
// boxed lists.
func (c *Conn) Fetchall(query string, args ...any) rtval.Value {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		panic(fmt.Sprintf("sqlite query: %v", err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		panic(fmt.Sprintf("sqlite query: %v", err))
	}
	var out []rtval.Value
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			panic(fmt.Sprintf("sqlite scan: %v", err))
		}
		row := make([]rtval.Value, len(cells))
		for i, cell := range cells {
			row[i] = boxCell(cell)
		}
		out = append(out, rtval.List(row...))
	}
	if err := rows.Err(); err != nil {
		panic(fmt.Sprintf("sqlite query: %v", err))
	}
	return rtval.List(out...)
}

func (c *Conn) Close() {
	c.db.Close()
}

func boxCell(cell any) rtval.Value {
	switch x := cell.(type) {
	case nil:
		return rtval.None()
	case int64:
		return rtval.Int(x)
	case float64:
		return rtval.Float(x)
	case string:
		return rtval.Str(x)
	case []byte:
		return rtval.Str(string(x))
	case bool:
		return rtval.Bool(x)
	}
	return rtval.Str(fmt.Sprint(cell))
}
