package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// nullStringJSON marshals as string or null (for API contract: "file": "x" or "file": null).
type nullStringJSON struct{ sql.NullString }

func (n nullStringJSON) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.String)
}

func (n *nullStringJSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Valid = false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.String, n.Valid = s, true
	return nil
}

// nullInt64JSON marshals as number or null.
type nullInt64JSON struct{ sql.NullInt64 }

func (n nullInt64JSON) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Int64)
}

func (n *nullInt64JSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Valid = false
		return nil
	}
	var i int64
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	n.Int64, n.Valid = i, true
	return nil
}

// DB wraps *sql.DB and provides summary query helpers.
type DB struct {
	*sql.DB
}

// NewDB returns a DB wrapper.
func NewDB(db *sql.DB) *DB {
	return &DB{DB: db}
}

// Function is one analyzed function.
type Function struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Package   nullStringJSON `json:"package"`
	File      nullStringJSON `json:"file"`
	Line      nullInt64JSON  `json:"line"`
	NumParams int            `json:"num_params"`
}

// SummaryNode is one node of a parameter's access tree.
type SummaryNode struct {
	Path     string         `json:"path"`
	Type     nullStringJSON `json:"type"`
	Depth    int            `json:"depth"`
	Read     bool           `json:"read"`
	Write    bool           `json:"write"`
	Access   bool           `json:"access"`
	AddrVars int            `json:"addr_vars"`
}

// ParamSummary groups the access tree of one parameter.
type ParamSummary struct {
	Name   string        `json:"name"`
	Index  int           `json:"index"`
	Escape string        `json:"escape,omitempty"`
	Nodes  []SummaryNode `json:"nodes"`
}

// CallSite is one argument binding at a caller.
type CallSite struct {
	CallerID   string         `json:"caller_id"`
	CallerName string         `json:"caller_name"`
	Index      int            `json:"index"`
	Arg        nullStringJSON `json:"arg"`
	File       nullStringJSON `json:"file"`
	Line       nullInt64JSON  `json:"line"`
	Edges      int            `json:"edges"`
	Dynamic    bool           `json:"dynamic,omitempty"`
}

// FunctionSummary is the /api/summary response.
type FunctionSummary struct {
	Function Function       `json:"function"`
	Params   []ParamSummary `json:"params"`
	Callers  []CallSite     `json:"callers"`
}

// SharedParam is a parameter whose nested pointers are reached from call sites.
type SharedParam struct {
	FunctionID string `json:"function_id"`
	Name       string `json:"name"`
	Param      string `json:"param"`
	Index      int    `json:"index"`
	Accessed   int    `json:"accessed"`
	Written    bool   `json:"written"`
}

// Overview is the stats_overview row.
type Overview struct {
	Functions     int `json:"functions"`
	Trees         int `json:"trees"`
	Nodes         int `json:"nodes"`
	Bindings      int `json:"bindings"`
	AccessedNodes int `json:"accessed_nodes"`
}

// requiredTables are written by every argtree-gen run.
var requiredTables = []string{"functions", "summaries", "bindings", "stats_overview"}

// checkSchema reports the first generator table missing from db.
func checkSchema(db *sql.DB) error {
	for _, name := range requiredTables {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n); err != nil {
			return fmt.Errorf("inspect schema: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("not an argtree-gen database: missing table %s", name)
		}
	}
	return nil
}
