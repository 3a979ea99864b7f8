package main

import (
	"database/sql"
	"encoding/json"
)

func scanFunction(row interface{ Scan(...any) error }) (Function, error) {
	var f Function
	var pkg, file sql.NullString
	var line sql.NullInt64
	if err := row.Scan(&f.ID, &f.Name, &pkg, &file, &line, &f.NumParams); err != nil {
		return f, err
	}
	f.Package = nullStringJSON{pkg}
	f.File = nullStringJSON{file}
	f.Line = nullInt64JSON{line}
	return f, nil
}

// Search returns functions whose name or package contains pattern.
func (db *DB) Search(pattern string, limit int) ([]Function, error) {
	if limit <= 0 || limit > maxFunctionResults {
		limit = 50
	}
	like := "%" + pattern + "%"
	rows, err := db.Query(queryFunctionSearch, like, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Function{}
	for rows.Next() {
		f, err := scanFunction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Summary returns the parameter access trees of a function and the call
// sites that pass arguments to it. Unknown IDs yield sql.ErrNoRows.
func (db *DB) Summary(functionID string) (*FunctionSummary, error) {
	fn, err := scanFunction(db.QueryRow(queryFunctionByID, functionID))
	if err != nil {
		return nil, err
	}
	out := &FunctionSummary{Function: fn, Params: []ParamSummary{}, Callers: []CallSite{}}

	rows, err := db.Query(querySummaryRows, functionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byIndex := map[int]int{}
	for rows.Next() {
		var n SummaryNode
		var param, typ, escape, category sql.NullString
		var index int
		if err := rows.Scan(&param, &index, &n.Path, &typ, &n.Depth, &category,
			&n.Read, &n.Write, &n.Access, &n.AddrVars, &escape); err != nil {
			return nil, err
		}
		n.Type = nullStringJSON{typ}
		i, ok := byIndex[index]
		if !ok {
			i = len(out.Params)
			byIndex[index] = i
			out.Params = append(out.Params, ParamSummary{Name: param.String, Index: index})
		}
		if n.Depth == 0 && escape.Valid {
			out.Params[i].Escape = escape.String
		}
		out.Params[i].Nodes = append(out.Params[i].Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query(queryCallersOf, functionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c CallSite
		var arg, file, props sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&c.CallerID, &c.CallerName, &c.Index, &arg, &file, &line, &c.Edges, &props); err != nil {
			return nil, err
		}
		c.Arg = nullStringJSON{arg}
		c.File = nullStringJSON{file}
		c.Line = nullInt64JSON{line}
		if props.Valid {
			var p struct {
				Dynamic bool `json:"dynamic"`
			}
			if json.Unmarshal([]byte(props.String), &p) == nil {
				c.Dynamic = p.Dynamic
			}
		}
		out.Callers = append(out.Callers, c)
	}
	return out, rows.Err()
}

// Shared lists parameters with nested pointers reached from call sites,
// most accessed first.
func (db *DB) Shared(limit int) ([]SharedParam, error) {
	if limit <= 0 || limit > maxSharedResults {
		limit = maxSharedResults
	}
	rows, err := db.Query(querySharedParams, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SharedParam{}
	for rows.Next() {
		var s SharedParam
		var param sql.NullString
		if err := rows.Scan(&s.FunctionID, &s.Name, &param, &s.Index, &s.Accessed, &s.Written); err != nil {
			return nil, err
		}
		s.Param = param.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// Overview returns the precomputed totals.
func (db *DB) Overview() (*Overview, error) {
	var o Overview
	err := db.QueryRow(queryOverview).Scan(&o.Functions, &o.Trees, &o.Nodes, &o.Bindings, &o.AccessedNodes)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
