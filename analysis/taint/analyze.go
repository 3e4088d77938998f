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

package taint

import (
	"github.com/solguard/solguard/analysis/callgraph"
	"github.com/solguard/solguard/analysis/cfg"
	"github.com/solguard/solguard/analysis/config"
	"github.com/solguard/solguard/analysis/dataflow"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/symbols"
)

// SinkKind classifies what the tainted data reached
type SinkKind int

const (
	// ExternalCallSink is an argument, value or target of an external call
	ExternalCallSink SinkKind = iota
	// StateWriteSink is a storage variable written with tainted data
	StateWriteSink
	// IndexWriteSink is a write whose index expression is tainted
	IndexWriteSink
	// AssertSink is a require/assert condition over tainted data
	AssertSink
	// ConfiguredSink is a sink named in the configuration's taint problems
	ConfiguredSink
)

func (k SinkKind) String() string {
	switch k {
	case ExternalCallSink:
		return "external-call"
	case StateWriteSink:
		return "state-write"
	case IndexWriteSink:
		return "index-write"
	case AssertSink:
		return "assert"
	case ConfiguredSink:
		return "configured"
	}
	return "?"
}

// SinkHit records taint reaching a sink
type SinkHit struct {
	// Function is the qualified name of the function holding the sink
	Function string

	// Sink is the printable form of the sink call or write target
	Sink string

	// Kind classifies the sink
	Kind SinkKind

	// Block is the basic block holding the sink
	Block cfg.BlockID

	// Sources are the origins of the taint reaching the sink
	Sources []Source

	Pos lang.Pos
}

// FunctionTaint is the per-function analysis output
type FunctionTaint struct {
	FuncName string

	// Entry holds the solved fact at the entry of each block
	Entry map[cfg.BlockID]Fact

	// Hits are the sinks reached by taint inside this function
	Hits []SinkHit
}

// Result is the whole-program taint analysis output
type Result struct {
	// Functions maps qualified names to their per-function results
	Functions map[string]*FunctionTaint

	// Hits aggregates the sink hits of every function
	Hits []SinkHit

	// Failed maps functions whose solve did not converge to the solver error.
	// Their sinks are reported with an unknown source rather than dropped.
	Failed map[string]error
}

// TaintedAt reports whether the variable carries taint at the entry of the block.
// Functions that failed to solve answer true for every variable.
func (r *Result) TaintedAt(fn string, block cfg.BlockID, variable string) bool {
	if r.Failed[fn] != nil {
		return true
	}
	ft, ok := r.Functions[fn]
	if !ok {
		return false
	}
	return ft.Entry[block].Tainted(variable)
}

type analyzer struct {
	conf   *config.Config
	logger *config.LogGroup

	// table resolves which written names are storage variables; may be nil, in
	// which case no state-write sinks are reported
	table *symbols.SymbolTable
}

// the transfer function only rewrites facts on assignments; sink detection happens
// in a separate pass over the solved facts
type transfer struct {
	a *analyzer
}

func (t transfer) Transfer(stmt cfg.Statement, fact Fact) Fact {
	if stmt.Kind != cfg.Assign || fact.isTop {
		return fact
	}

	switch src := stmt.Source.(type) {
	case *lang.VariableDeclaration:
		sources := t.a.exprSources(src.Value, fact)
		return t.update(fact, src.Names, sources, true)
	default:
		assign, ok := stmt.Expression.(*lang.Assignment)
		if !ok {
			return fact
		}
		sources := t.a.exprSources(assign.RHS, fact)
		if assign.Operator != "=" {
			// compound assignment keeps the taint already on the target
			for _, name := range lang.AssignedNames(assign.LHS) {
				sources = sources.union(fact.vars[name])
			}
		}
		names := lang.AssignedNames(assign.LHS)
		// writing through an index or member only updates part of the base, so the
		// existing taint must be kept
		_, plain := assign.LHS.(*lang.Identifier)
		return t.update(fact, names, sources, plain)
	}
}

func (t transfer) update(fact Fact, names []string, sources sourceSet, strong bool) Fact {
	if len(names) == 0 {
		return fact
	}
	vars := make(map[string]sourceSet, len(fact.vars)+len(names))
	for v, s := range fact.vars {
		vars[v] = s
	}
	for _, name := range names {
		if strong {
			if len(sources) == 0 {
				delete(vars, name)
			} else {
				vars[name] = sources
			}
		} else {
			vars[name] = vars[name].union(sources)
		}
	}
	return Fact{vars: vars}
}

// exprSources computes the taint origins of an expression's value under a fact
func (a *analyzer) exprSources(e lang.Expression, fact Fact) sourceSet {
	switch x := e.(type) {
	case nil:
		return nil
	case *lang.Identifier:
		set := fact.vars[x.Name]
		if a.conf.IsExtraSource(x.Name) {
			set = set.union(sourceSet{{Kind: ConfiguredSource, Label: x.Name, Pos: x.Pos}: true})
		}
		return set
	case *lang.MemberAccess:
		printed := lang.ExprString(x)
		if envSources[printed] {
			return sourceSet{{Kind: EnvironmentSource, Label: printed, Pos: x.Pos}: true}
		}
		if a.conf.IsExtraSource(printed) {
			return sourceSet{{Kind: ConfiguredSource, Label: printed, Pos: x.Pos}: true}
		}
		return a.exprSources(x.Base, fact)
	case *lang.IndexAccess:
		return a.exprSources(x.Base, fact).union(a.exprSources(x.Index, fact))
	case *lang.CallExpression:
		class := callgraph.Classify(x)
		if a.conf.IsSanitizer(class.CalleeName) {
			return nil
		}
		var set sourceSet
		for _, arg := range x.Args {
			set = set.union(a.exprSources(arg, fact))
		}
		set = set.union(a.exprSources(x.Value, fact))
		if class.External {
			set = set.union(sourceSet{{Kind: ExternalReturnSource, Label: class.CalleeName, Pos: x.Pos}: true})
		}
		return set
	case *lang.Assignment:
		return a.exprSources(x.RHS, fact)
	case *lang.BinaryExpression:
		return a.exprSources(x.Left, fact).union(a.exprSources(x.Right, fact))
	case *lang.UnaryExpression:
		return a.exprSources(x.Operand, fact)
	case *lang.TupleExpression:
		var set sourceSet
		for _, c := range x.Components {
			set = set.union(a.exprSources(c, fact))
		}
		return set
	}
	return nil
}

// Analyze runs the taint analysis over every function with a CFG. The symbol table
// may be nil; state-write sinks are then not reported.
func Analyze(units []*lang.SourceUnit, cfgs map[string]*cfg.ControlFlowGraph, table *symbols.SymbolTable, conf *config.Config, logger *config.LogGroup) *Result {
	a := &analyzer{conf: conf, logger: logger, table: table}
	result := &Result{
		Functions: map[string]*FunctionTaint{},
		Failed:    map[string]error{},
	}

	lang.IterateFunctions(units, func(fn *lang.FunctionDefinition) {
		name := fn.QualifiedName()
		g, ok := cfgs[name]
		if !ok {
			return
		}
		ft, err := a.analyzeFunction(fn, g)
		if err != nil {
			logger.Warnf("taint analysis of %s did not converge: %v", name, err)
			result.Failed[name] = err
			// degrade to reporting every sink with an unknown origin
			ft = &FunctionTaint{FuncName: name, Hits: a.scanSinksAssumeAll(fn, g)}
		}
		result.Functions[name] = ft
		result.Hits = append(result.Hits, ft.Hits...)
	})
	return result
}

func (a *analyzer) analyzeFunction(fn *lang.FunctionDefinition, g *cfg.ControlFlowGraph) (*FunctionTaint, error) {
	initial := Fact{vars: map[string]sourceSet{}}
	// only externally reachable functions take attacker-controlled arguments;
	// internal callees receive whatever their callers computed
	if fn.IsExposed() {
		for _, p := range fn.Parameters {
			if p.Name == "" {
				continue
			}
			initial.vars[p.Name] = sourceSet{{Kind: ParameterSource, Label: p.Name, Pos: p.Pos}: true}
		}
	}

	analysis := dataflow.Analysis[Fact]{
		Direction:     dataflow.Forward,
		Lattice:       lattice{initial: initial},
		Transfer:      transfer{a: a},
		MaxIterations: a.conf.MaxIterations,
	}
	entry, err := dataflow.Solve(g, analysis)
	if err != nil {
		return nil, err
	}

	ft := &FunctionTaint{FuncName: fn.QualifiedName(), Entry: entry}
	for _, id := range g.BlockIDs() {
		fact := entry[id]
		for _, stmt := range g.Blocks[id].Stmts {
			ft.Hits = append(ft.Hits, a.sinkHits(fn, id, stmt, fact, false)...)
			fact = analysis.Transfer.Transfer(stmt, fact)
		}
	}
	return ft, nil
}

// scanSinksAssumeAll reports every sink in the function with an unknown source
func (a *analyzer) scanSinksAssumeAll(fn *lang.FunctionDefinition, g *cfg.ControlFlowGraph) []SinkHit {
	var hits []SinkHit
	for _, id := range g.BlockIDs() {
		for _, stmt := range g.Blocks[id].Stmts {
			hits = append(hits, a.sinkHits(fn, id, stmt, Fact{}, true)...)
		}
	}
	return hits
}

// sinkHits finds the sinks in a statement that receive taint under the given fact:
// external calls, require/assert conditions, tainted storage writes and tainted
// write indices. assumeAll reports sinks unconditionally with an unknown source.
func (a *analyzer) sinkHits(fn *lang.FunctionDefinition, block cfg.BlockID, stmt cfg.Statement, fact Fact, assumeAll bool) []SinkHit {
	var hits []SinkHit
	record := func(kind SinkKind, name string, set sourceSet, pos lang.Pos) {
		if assumeAll {
			set = sourceSet{{Kind: EnvironmentSource, Label: "unknown", Pos: pos}: true}
		}
		if len(set) == 0 {
			return
		}
		sources := make([]Source, 0, len(set))
		for s := range set {
			sources = append(sources, s)
		}
		hits = append(hits, SinkHit{
			Function: fn.QualifiedName(),
			Sink:     name,
			Kind:     kind,
			Block:    block,
			Sources:  sources,
			Pos:      pos,
		})
	}

	collectCall := func(e lang.Expression) {
		call, ok := e.(*lang.CallExpression)
		if !ok {
			return
		}
		class := callgraph.Classify(call)
		argTaint := func() sourceSet {
			var set sourceSet
			for _, arg := range call.Args {
				set = set.union(a.exprSources(arg, fact))
			}
			return set
		}
		switch {
		case class.Builtin && (class.CalleeName == "require" || class.CalleeName == "assert"):
			record(AssertSink, class.CalleeName, argTaint(), call.Pos)
		case class.External:
			set := argTaint().union(a.exprSources(call.Value, fact))
			// the call target itself may be attacker controlled
			if ma, ok := call.Callee.(*lang.MemberAccess); ok {
				set = set.union(a.exprSources(ma.Base, fact))
			}
			record(ExternalCallSink, class.CalleeName, set, call.Pos)
		case a.conf.IsExtraSink(class.CalleeName):
			record(ConfiguredSink, class.CalleeName, argTaint(), call.Pos)
		}
	}

	if stmt.Expression != nil {
		lang.VisitExprTree(stmt.Expression, collectCall)
	}
	if stmt.Cond != nil {
		lang.VisitExprTree(stmt.Cond, collectCall)
	}
	a.writeSinks(fn, stmt, fact, record)
	return hits
}

// writeSinks reports tainted writes: a storage variable receiving tainted data and
// any write through a tainted index expression
func (a *analyzer) writeSinks(fn *lang.FunctionDefinition, stmt cfg.Statement, fact Fact, record func(SinkKind, string, sourceSet, lang.Pos)) {
	if stmt.Kind != cfg.Assign {
		return
	}
	assign, ok := stmt.Expression.(*lang.Assignment)
	if !ok {
		return
	}

	if idx, ok := assign.LHS.(*lang.IndexAccess); ok {
		record(IndexWriteSink, lang.ExprString(assign.LHS), a.exprSources(idx.Index, fact), stmt.Pos)
	}

	if a.table == nil || fn.Contract == "" {
		return
	}
	base, ok := lang.BaseIdentifier(assign.LHS)
	if !ok || a.shadowed(fn, base) || !a.table.IsStateVariable(fn.Contract, base) {
		return
	}
	set := a.exprSources(assign.RHS, fact)
	if assign.Operator != "=" {
		for _, name := range lang.AssignedNames(assign.LHS) {
			set = set.union(fact.vars[name])
		}
	}
	record(StateWriteSink, lang.ExprString(assign.LHS), set, stmt.Pos)
}

// shadowed reports whether a parameter or named return hides the storage variable
func (a *analyzer) shadowed(fn *lang.FunctionDefinition, name string) bool {
	for _, p := range fn.Parameters {
		if p.Name == name {
			return true
		}
	}
	for _, r := range fn.Returns {
		if r.Name == name {
			return true
		}
	}
	return false
}
