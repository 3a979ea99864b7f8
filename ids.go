package main

import (
	"fmt"
)

// FuncID generates a deterministic ID for a function or method.
// recv is empty for plain functions.
func FuncID(pkg, recv, name, file string, line, col int) string {
	if recv != "" {
		return fmt.Sprintf("%s::%s.%s@%s:%d:%d", pkg, recv, name, file, line, col)
	}
	return fmt.Sprintf("%s::%s@%s:%d:%d", pkg, name, file, line, col)
}

// ParamTreeID identifies the formal-in tree of parameter index of a function.
func ParamTreeID(funcID string, index int) string {
	return fmt.Sprintf("%s::param%d", funcID, index)
}

// GlobalTreeID identifies the tree of a package-level variable.
func GlobalTreeID(pkg, name string) string {
	return fmt.Sprintf("global::%s.%s", pkg, name)
}

// ActualTreeID identifies the actual-in tree of argument index at a call
// site. A dynamic site has one tree per resolved callee.
func ActualTreeID(callerID, calleeID, file string, line, col, index int) string {
	return fmt.Sprintf("%s::call@%s:%d:%d->%s::arg%d", callerID, file, line, col, calleeID, index)
}
