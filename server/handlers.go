package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
)

// endpoint describes one API route for the index page.
type endpoint struct {
	Path   string `json:"path"`
	Params string `json:"params,omitempty"`
	Desc   string `json:"description"`
}

var endpoints = []endpoint{
	{"/api/functions", "q, limit", "functions whose name or package contains q"},
	{"/api/summary", "function_id", "parameter access trees and callers of one function"},
	{"/api/shared", "limit", "parameters with nested pointers reached from call sites"},
	{"/api/overview", "", "totals over the whole database"},
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, endpoints)
}

func (a *App) handleFunctions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}
	limitStr := r.URL.Query().Get("limit")
	limit, atoiErr := strconv.Atoi(limitStr)
	if limitStr != "" && atoiErr != nil {
		log.Printf("functions: invalid limit %q, using default", limitStr)
	}
	list, err := a.db.Search(q, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (a *App) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("function_id")
	if id == "" {
		http.Error(w, "missing query parameter function_id", http.StatusBadRequest)
		return
	}
	s, err := a.db.Summary(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "function not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, s)
}

func (a *App) handleShared(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit, atoiErr := strconv.Atoi(limitStr)
	if limitStr != "" && atoiErr != nil {
		log.Printf("shared: invalid limit %q, using default", limitStr)
	}
	list, err := a.db.Shared(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (a *App) handleOverview(w http.ResponseWriter, r *http.Request) {
	o, err := a.db.Overview()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, o)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
