// Copyright the solguard authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package callgraph builds the inter-procedural call graph over the contract set.
// Call sites are discovered in the lowered CFGs and classified syntactically; edges
// to resolvable callees are indexed both by caller and by callee.
package callgraph

import (
	"sort"

	"github.com/solguard/solguard/analysis/cfg"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/internal/funcutil"
	"github.com/solguard/solguard/internal/graphutil"
)

// CallSite is one call expression in some function's body
type CallSite struct {
	// Caller is the qualified name of the enclosing function
	Caller string

	// Class is the syntactic classification of the call
	Class CallClass

	// Resolved is the callee's definition when the name resolves to a function in
	// the analyzed source, none for external and builtin calls
	Resolved funcutil.Optional[*lang.FunctionDefinition]

	// Block is the basic block holding the call in the caller's CFG
	Block cfg.BlockID

	Pos lang.Pos
}

// CallGraph indexes every call site by caller and by resolved callee
type CallGraph struct {
	// Sites are all discovered call sites, in caller order
	Sites []*CallSite

	// EdgesByCaller maps a qualified function name to the sites inside it
	EdgesByCaller map[string][]*CallSite

	// EdgesByCallee maps a qualified function name to the sites resolving to it
	EdgesByCallee map[string][]*CallSite

	// Recursive holds the qualified names of functions on some call cycle,
	// including direct self-recursion
	Recursive map[string]bool

	// Functions maps qualified names to definitions
	Functions map[string]*lang.FunctionDefinition

	contracts map[string]*lang.ContractDefinition
}

// Build constructs the call graph. cfgs maps qualified function names to their
// control-flow graphs; functions without a CFG contribute no call sites.
func Build(units []*lang.SourceUnit, cfgs map[string]*cfg.ControlFlowGraph) *CallGraph {
	cg := &CallGraph{
		EdgesByCaller: map[string][]*CallSite{},
		EdgesByCallee: map[string][]*CallSite{},
		Recursive:     map[string]bool{},
		Functions:     map[string]*lang.FunctionDefinition{},
		contracts:     map[string]*lang.ContractDefinition{},
	}
	lang.IterateFunctions(units, func(fn *lang.FunctionDefinition) {
		cg.Functions[fn.QualifiedName()] = fn
	})
	lang.IterateContracts(units, func(c *lang.ContractDefinition) {
		cg.contracts[c.Name] = c
	})

	names := make([]string, 0, len(cg.Functions))
	for name := range cg.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		g, ok := cfgs[name]
		if !ok {
			continue
		}
		cg.collectSites(cg.Functions[name], g)
	}
	cg.markRecursive(names)
	return cg
}

func (cg *CallGraph) collectSites(fn *lang.FunctionDefinition, g *cfg.ControlFlowGraph) {
	for _, id := range g.BlockIDs() {
		for _, stmt := range g.Blocks[id].Stmts {
			for _, e := range statementExprs(stmt) {
				lang.VisitExprTree(e, func(x lang.Expression) {
					call, ok := x.(*lang.CallExpression)
					if !ok {
						return
					}
					cg.addSite(fn, call, id)
				})
			}
		}
	}
}

func statementExprs(stmt cfg.Statement) []lang.Expression {
	var out []lang.Expression
	if stmt.Expression != nil {
		out = append(out, stmt.Expression)
	}
	if stmt.Cond != nil {
		out = append(out, stmt.Cond)
	}
	return out
}

func (cg *CallGraph) addSite(fn *lang.FunctionDefinition, call *lang.CallExpression, block cfg.BlockID) {
	class := Classify(call)
	if class.Builtin {
		return
	}
	site := &CallSite{
		Caller:   fn.QualifiedName(),
		Class:    class,
		Resolved: funcutil.None[*lang.FunctionDefinition](),
		Block:    block,
		Pos:      call.Pos,
	}
	if callee, ok := cg.resolve(fn, class); ok {
		site.Resolved = funcutil.Some(callee)
		// A member call on a known contract or library stays in analyzed code
		site.Class.External = false
	}
	cg.Sites = append(cg.Sites, site)
	cg.EdgesByCaller[site.Caller] = append(cg.EdgesByCaller[site.Caller], site)
	if site.Resolved.IsSome() {
		qn := site.Resolved.Value().QualifiedName()
		cg.EdgesByCallee[qn] = append(cg.EdgesByCallee[qn], site)
	}
}

// resolve maps a classified callee name to a function definition. Plain identifier
// calls and this.f() calls resolve in the caller's contract first (walking the
// declared bases), then among free functions. Member calls resolve only when the
// base names a contract or library in the analyzed source.
func (cg *CallGraph) resolve(caller *lang.FunctionDefinition, class CallClass) (*lang.FunctionDefinition, bool) {
	if class.LowLevel || class.TransferOrSend {
		return nil, false
	}
	if class.This || (class.BaseName == "" && !class.Super) {
		for contract := caller.Contract; contract != ""; {
			if fn, ok := cg.Functions[contract+"."+class.MemberName]; ok {
				return fn, true
			}
			c, ok := cg.contracts[contract]
			if !ok || len(c.Bases) == 0 {
				break
			}
			// Name-based lookup along the first base is enough here; the symbols
			// layer owns full linearization
			contract = c.Bases[0]
		}
		fn, ok := cg.Functions[class.MemberName]
		return fn, ok
	}
	if class.Super {
		c, ok := cg.contracts[caller.Contract]
		if !ok {
			return nil, false
		}
		for _, base := range c.Bases {
			if fn, ok := cg.Functions[base+"."+class.MemberName]; ok {
				return fn, true
			}
		}
		return nil, false
	}
	if _, ok := cg.contracts[class.BaseName]; ok {
		fn, ok := cg.Functions[class.BaseName+"."+class.MemberName]
		return fn, ok
	}
	return nil, false
}

// Callees returns the qualified names of the resolved callees of a function, sorted
// and deduplicated.
func (cg *CallGraph) Callees(caller string) []string {
	seen := map[string]bool{}
	for _, site := range cg.EdgesByCaller[caller] {
		if site.Resolved.IsSome() {
			seen[site.Resolved.Value().QualifiedName()] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Callers returns the qualified names of the functions calling into callee
func (cg *CallGraph) Callers(callee string) []string {
	seen := map[string]bool{}
	for _, site := range cg.EdgesByCallee[callee] {
		seen[site.Caller] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// markRecursive flags every function on a call cycle. A singleton SCC is recursive
// only when it has a self edge.
func (cg *CallGraph) markRecursive(names []string) {
	sccs := graphutil.StronglyConnectedComponents(names, cg.Callees)
	for _, scc := range sccs {
		if len(scc) > 1 {
			for _, name := range scc {
				cg.Recursive[name] = true
			}
			continue
		}
		name := scc[0]
		for _, callee := range cg.Callees(name) {
			if callee == name {
				cg.Recursive[name] = true
			}
		}
	}
}

// IsRecursive reports whether the function participates in any call cycle
func (cg *CallGraph) IsRecursive(name string) bool {
	return cg.Recursive[name]
}

// CanReach reports whether callee is reachable from caller through resolved edges
// within maxDepth call hops. maxDepth <= 0 means unbounded.
func (cg *CallGraph) CanReach(caller, callee string, maxDepth int) bool {
	type frame struct {
		name  string
		depth int
	}
	seen := map[string]bool{}
	stack := []frame{{caller, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.name == callee && f.depth > 0 {
			return true
		}
		if seen[f.name] || (maxDepth > 0 && f.depth >= maxDepth) {
			continue
		}
		seen[f.name] = true
		for _, next := range cg.Callees(f.name) {
			stack = append(stack, frame{next, f.depth + 1})
		}
	}
	return false
}

// Cycles enumerates the elementary call cycles of the resolved graph, each as a list
// of qualified function names.
func (cg *CallGraph) Cycles() [][]string {
	names := make([]string, 0, len(cg.Functions))
	for name := range cg.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	ids := make(map[string]int64, len(names))
	labels := make(map[int64]string, len(names))
	for i, name := range names {
		ids[name] = int64(i)
		labels[int64(i)] = name
	}
	adjacency := map[int64][]int64{}
	for _, name := range names {
		for _, callee := range cg.Callees(name) {
			adjacency[ids[name]] = append(adjacency[ids[name]], ids[callee])
		}
		if adjacency[ids[name]] == nil {
			adjacency[ids[name]] = []int64{}
		}
	}

	var cycles [][]string
	for _, cycle := range graphutil.FindAllElementaryCycles(graphutil.NewIntGraph(adjacency, labels)) {
		cycles = append(cycles, funcutil.Map(cycle, func(id int64) string { return labels[id] }))
	}
	return cycles
}
