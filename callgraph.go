package main

import (
	"go/token"
	"go/types"
	"strings"

	"argtree-gen/internal/argtree"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/ssa"
)

// ConnectCallSites builds a VTA call graph and, for every call made from a
// known function, builds one actual-in tree per pointer or struct argument.
// Actual trees of known callees are connected node by node to the callee's
// formal-in tree; arguments passed to callees outside the analyzed modules
// are conservatively marked read and written.
func ConnectCallSites(ssaResult *SSAResult, fset *token.FileSet, env argtree.Env, maxDepth int, an *Analysis, prog *Progress) {
	prog.Log("Building VTA call graph...")

	cg := vta.CallGraph(ssaResult.AllFuncs, nil)
	cg.DeleteSyntheticNodes()

	var sites, actuals, external, paramIn int
	_ = callgraph.GraphVisitEdges(cg, func(edge *callgraph.Edge) error {
		caller := edge.Caller.Func
		callee := edge.Callee.Func
		if edge.Site == nil || !modSet.IsKnownFunc(caller) {
			return nil
		}
		sites++

		common := edge.Site.Common()
		args := callArgs(common)
		params := paramTypes(callee)
		// Instantiations share the formal trees of their generic origin.
		if origin := callee.Origin(); origin != nil {
			callee = origin
		}
		formals := an.Formals[callee]
		callerID := ssaFuncID(caller, fset)
		calleeID := ssaFuncID(callee, fset)
		file, line, col := valuePos(edge.Site.Pos(), fset)

		for i, arg := range args {
			if i >= len(params) {
				break
			}
			if !isAggregateArg(env.Types, arg) {
				continue
			}
			if !(i == 0 && common.IsInvoke()) && !types.Identical(arg.Type(), params[i]) {
				prog.Verbose("%s: argument %d of %s does not match %s", callerID, i, calleeID, params[i])
				continue
			}

			var t *argtree.Tree
			if formals != nil {
				t = formals[i].Tree.Prototype()
				t.Rebind(arg, argtree.ActualIn)
			} else {
				t = argtree.NewTree(arg, params[i], argtree.ActualIn, env)
			}
			t.Build(maxDepth)

			props := map[string]any{}
			if common.IsInvoke() {
				props["dynamic"] = true
			}
			var edges int
			if formals != nil {
				edges = argtree.ConnectParamIn(t, formals[i].Tree)
				paramIn += edges
			} else {
				t.AddAccessForAllNodes(argtree.ReadWrite)
				props["external"] = true
				external++
			}

			an.Actuals = append(an.Actuals, &TreeRecord{
				ID:     ActualTreeID(callerID, calleeID, file, line, col, i),
				FuncID: callerID,
				Name:   ssaValueName(arg),
				Index:  i,
				Tree:   t,
			})
			an.Bindings = append(an.Bindings, Binding{
				CallerID:   callerID,
				CalleeID:   calleeID,
				Index:      i,
				Arg:        ssaValueName(arg),
				File:       file,
				Line:       line,
				Edges:      edges,
				Properties: props,
			})
			actuals++
		}
		return nil
	})

	prog.Log("Call sites: %d edges, %d actual-in trees (%d external), %d parameter_in edges",
		sites, actuals, external, paramIn)
}

// callArgs lines the call's operands up with the callee's parameters. In
// invoke mode the receiver is the interface value, not Args[0]. A call
// through a method value passes the receiver bound in the closure.
func callArgs(common *ssa.CallCommon) []ssa.Value {
	var recv ssa.Value
	switch {
	case common.IsInvoke():
		recv = common.Value
	default:
		if mc, ok := common.Value.(*ssa.MakeClosure); ok && isBoundWrapper(mc) {
			recv = mc.Bindings[0]
		}
	}
	if recv == nil {
		return common.Args
	}
	args := make([]ssa.Value, 0, 1+len(common.Args))
	args = append(args, recv)
	return append(args, common.Args...)
}

// isBoundWrapper reports whether mc creates a method value such as t.Set.
func isBoundWrapper(mc *ssa.MakeClosure) bool {
	fn, ok := mc.Fn.(*ssa.Function)
	return ok && len(mc.Bindings) == 1 && strings.HasPrefix(fn.Synthetic, "bound method wrapper")
}

// paramTypes returns the parameter types of fn with the receiver first.
// Functions without a body have no Params, so the signature is used.
func paramTypes(fn *ssa.Function) []types.Type {
	sig := fn.Signature
	var out []types.Type
	if recv := sig.Recv(); recv != nil {
		out = append(out, recv.Type())
	}
	for i := 0; i < sig.Params().Len(); i++ {
		out = append(out, sig.Params().At(i).Type())
	}
	return out
}

// isAggregateArg reports whether arg can carry an access tree deeper than its
// root: a non-constant pointer or struct.
func isAggregateArg(ti argtree.TypeInfo, arg ssa.Value) bool {
	if _, ok := arg.(*ssa.Const); ok {
		return false
	}
	return ti.Classify(ti.Normalize(arg.Type())) != argtree.Scalar
}
