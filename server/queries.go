package main

// SQL against the tables written by argtree-gen (functions, summaries,
// bindings, stats_overview, v_shared_params).

const maxFunctionResults = 100
const maxSharedResults = 200

const queryFunctionSearch = `
SELECT id, name, package, file, line, num_params FROM functions
WHERE name LIKE ? OR package LIKE ?
ORDER BY name, id LIMIT ?
`

const queryFunctionByID = `SELECT id, name, package, file, line, num_params FROM functions WHERE id = ?`

const querySummaryRows = `
SELECT param, param_index, path, type, depth, category, read, write, access, addr_vars, escape
FROM summaries
WHERE function_id = ? AND category = 'formal_in'
ORDER BY param_index, depth, rowid
`

const queryCallersOf = `
SELECT b.caller_id, COALESCE(f.name, ''), b.arg_index, b.arg, b.file, b.line, b.edges, b.properties
FROM bindings b LEFT JOIN functions f ON f.id = b.caller_id
WHERE b.callee_id = ?
ORDER BY b.file, b.line, b.arg_index
LIMIT 500
`

const querySharedParams = `
SELECT function_id, name, param, param_index, accessed, written FROM v_shared_params LIMIT ?
`

const queryOverview = `
SELECT total_functions, total_trees, total_nodes, total_bindings, accessed_nodes FROM stats_overview
`
