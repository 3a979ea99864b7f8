package main

import (
	"fmt"
	"os"
	"sort"

	"argtree-gen/internal/argtree"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const batchSize = 50000

// WriteDB writes functions, access summaries and call-site bindings to a
// SQLite database file, replacing any existing file.
func WriteDB(path string, an *Analysis, validate bool, prog *Progress) error {
	prog.Log("Writing SQLite to %s ...", path)

	_ = os.Remove(path) // ignore if doesn't exist

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return writeConn(conn, an, validate, prog)
}

func writeConn(conn *sqlite.Conn, an *Analysis, validate bool, prog *Progress) error {
	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -64000",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return err
		}
	}

	// Indexes are created after the bulk insert.
	if err := createTables(conn); err != nil {
		return err
	}

	if err := insertAll(conn, an, prog); err != nil {
		return err
	}

	prog.Log("Creating indexes...")
	if err := createIndexes(conn); err != nil {
		return err
	}

	prog.Log("Computing summary statistics...")
	if err := createSummaryStats(conn, an); err != nil {
		return err
	}

	if validate {
		if err := runValidation(conn, prog); err != nil {
			return err
		}
	}
	return nil
}

func insertAll(conn *sqlite.Conn, an *Analysis, prog *Progress) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	if err := insertFunctions(conn, an.Funcs, prog); err != nil {
		return err
	}
	if err := insertSummaries(conn, an.Summaries, prog); err != nil {
		return err
	}
	return insertBindings(conn, an.Bindings, prog)
}

func createTables(conn *sqlite.Conn) error {
	ddl := `
CREATE TABLE functions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    package TEXT,
    file TEXT,
    line INTEGER,
    num_params INTEGER NOT NULL
);

CREATE TABLE summaries (
    tree_id TEXT NOT NULL,
    function_id TEXT,
    param TEXT,
    param_index INTEGER NOT NULL,
    path TEXT NOT NULL,
    type TEXT,
    depth INTEGER NOT NULL,
    category TEXT NOT NULL,
    read INTEGER NOT NULL,
    write INTEGER NOT NULL,
    access INTEGER NOT NULL,
    addr_vars INTEGER NOT NULL,
    escape TEXT
);

CREATE TABLE bindings (
    caller_id TEXT NOT NULL,
    callee_id TEXT NOT NULL,
    arg_index INTEGER NOT NULL,
    arg TEXT,
    file TEXT,
    line INTEGER,
    edges INTEGER NOT NULL,
    properties TEXT
);
`
	return sqlitex.ExecuteScript(conn, ddl, nil)
}

func createIndexes(conn *sqlite.Conn) error {
	indexes := `
CREATE INDEX idx_functions_package ON functions(package);
CREATE INDEX idx_functions_name ON functions(name);
CREATE INDEX idx_summaries_function ON summaries(function_id, param_index);
CREATE INDEX idx_summaries_tree ON summaries(tree_id);
CREATE INDEX idx_summaries_access ON summaries(access);
CREATE INDEX idx_bindings_callee ON bindings(callee_id, arg_index);
CREATE INDEX idx_bindings_caller ON bindings(caller_id);
`
	return sqlitex.ExecuteScript(conn, indexes, nil)
}

func insertFunctions(conn *sqlite.Conn, funcs []FuncInfo, prog *Progress) error {
	stmt, err := conn.Prepare(`INSERT OR IGNORE INTO functions (id, name, package, file, line, num_params) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare function insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, f := range funcs {
		stmt.BindText(1, f.ID)
		stmt.BindText(2, f.Name)
		bindTextOrNull(stmt, 3, f.Package)
		bindTextOrNull(stmt, 4, f.File)
		bindIntOrNull(stmt, 5, f.Line)
		stmt.BindInt64(6, int64(f.NumParams))

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert function %s: %w", f.ID, err)
		}
		_ = stmt.Reset()
	}

	prog.Log("Inserted %d functions", len(funcs))
	return nil
}

func insertSummaries(conn *sqlite.Conn, rows []Summary, prog *Progress) error {
	stmt, err := conn.Prepare(`INSERT INTO summaries (tree_id, function_id, param, param_index, path, type, depth, category, read, write, access, addr_vars, escape) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare summary insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, s := range rows {
		stmt.BindText(1, s.TreeID)
		bindTextOrNull(stmt, 2, s.FuncID)
		bindTextOrNull(stmt, 3, s.Param)
		stmt.BindInt64(4, int64(s.Index))
		stmt.BindText(5, s.Path)
		bindTextOrNull(stmt, 6, s.Type)
		stmt.BindInt64(7, int64(s.Depth))
		stmt.BindText(8, s.Category)
		stmt.BindBool(9, s.Read)
		stmt.BindBool(10, s.Write)
		stmt.BindBool(11, s.Access)
		stmt.BindInt64(12, int64(s.AddrVars))
		bindTextOrNull(stmt, 13, s.Escape)

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert summary %s %s: %w", s.TreeID, s.Path, err)
		}
		_ = stmt.Reset()

		if (i+1)%batchSize == 0 {
			prog.Verbose("  inserted %d/%d summaries", i+1, len(rows))
		}
	}

	prog.Log("Inserted %d summary rows", len(rows))
	return nil
}

func insertBindings(conn *sqlite.Conn, rows []Binding, prog *Progress) error {
	stmt, err := conn.Prepare(`INSERT INTO bindings (caller_id, callee_id, arg_index, arg, file, line, edges, properties) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare binding insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, b := range rows {
		stmt.BindText(1, b.CallerID)
		stmt.BindText(2, b.CalleeID)
		stmt.BindInt64(3, int64(b.Index))
		bindTextOrNull(stmt, 4, b.Arg)
		bindTextOrNull(stmt, 5, b.File)
		bindIntOrNull(stmt, 6, b.Line)
		stmt.BindInt64(7, int64(b.Edges))
		bindTextOrNull(stmt, 8, PropsJSON(b.Properties))

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert binding %s→%s: %w", b.CallerID, b.CalleeID, err)
		}
		_ = stmt.Reset()

		if (i+1)%batchSize == 0 {
			prog.Verbose("  inserted %d/%d bindings", i+1, len(rows))
		}
	}

	prog.Log("Inserted %d bindings", len(rows))
	return nil
}

// createSummaryStats builds the overview and edge-count tables and the views
// the query server reads.
func createSummaryStats(conn *sqlite.Conn, an *Analysis) error {
	ddl := `
CREATE TABLE stats_overview AS
  SELECT
    (SELECT COUNT(*) FROM functions) as total_functions,
    (SELECT COUNT(DISTINCT tree_id) FROM summaries) as total_trees,
    (SELECT COUNT(*) FROM summaries) as total_nodes,
    (SELECT COUNT(*) FROM bindings) as total_bindings,
    (SELECT COUNT(*) FROM summaries WHERE access = 1 AND depth > 0) as accessed_nodes;

CREATE TABLE stats_edge_kinds (
    kind TEXT PRIMARY KEY,
    count INTEGER NOT NULL
);

-- Parameters with at least one nested pointer reached from a call site
CREATE VIEW v_shared_params AS
  SELECT s.function_id, f.name, s.param, s.param_index,
         COUNT(*) as accessed,
         MAX(s.write) as written
  FROM summaries s
  JOIN functions f ON f.id = s.function_id
  WHERE s.access = 1 AND s.depth > 0 AND s.category = 'formal_in'
  GROUP BY s.function_id, s.param_index
  ORDER BY accessed DESC;
`
	if err := sqlitex.ExecuteScript(conn, ddl, nil); err != nil {
		return err
	}

	counts := an.EdgeCounts()
	kinds := make([]argtree.EdgeKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		if err := sqlitex.Execute(conn,
			`INSERT INTO stats_edge_kinds (kind, count) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{string(k), counts[k]}}); err != nil {
			return fmt.Errorf("insert edge stats: %w", err)
		}
	}
	return nil
}

func runValidation(conn *sqlite.Conn, prog *Progress) error {
	prog.Log("Running validation queries...")

	// Summaries must point at recorded functions.
	var orphans int64
	if err := sqlitex.ExecuteTransient(conn,
		`SELECT COUNT(*) FROM summaries WHERE function_id IS NOT NULL AND function_id NOT IN (SELECT id FROM functions)`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				orphans = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
		return err
	}
	if orphans > 0 {
		prog.Warn("%d summary rows reference unknown functions", orphans)
	} else {
		prog.Log("  OK: every summary row has a function")
	}

	// Each tree has exactly one root row.
	var rootless int64
	if err := sqlitex.ExecuteTransient(conn,
		`SELECT COUNT(*) FROM (SELECT tree_id FROM summaries GROUP BY tree_id HAVING SUM(depth = 0) != 1)`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				rootless = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
		return err
	}
	if rootless > 0 {
		prog.Warn("%d trees without exactly one root", rootless)
	} else {
		prog.Log("  OK: one root per tree")
	}

	if err := sqlitex.ExecuteTransient(conn,
		`SELECT category, COUNT(*) FROM summaries GROUP BY category ORDER BY COUNT(*) DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				prog.Log("  summaries: %s = %d", stmt.ColumnText(0), stmt.ColumnInt64(1))
				return nil
			},
		}); err != nil {
		return err
	}

	return sqlitex.ExecuteTransient(conn,
		`SELECT kind, count FROM stats_edge_kinds ORDER BY count DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				prog.Log("  edges: %s = %d", stmt.ColumnText(0), stmt.ColumnInt64(1))
				return nil
			},
		})
}

// Helper functions for nullable bindings.

func bindTextOrNull(stmt *sqlite.Stmt, param int, val string) {
	if val == "" {
		stmt.BindNull(param)
	} else {
		stmt.BindText(param, val)
	}
}

func bindIntOrNull(stmt *sqlite.Stmt, param, val int) {
	if val == 0 {
		stmt.BindNull(param)
	} else {
		stmt.BindInt64(param, int64(val))
	}
}
