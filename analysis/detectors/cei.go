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

package detectors

import (
	"fmt"
	"strings"

	"github.com/solguard/solguard/analysis"
	"github.com/solguard/solguard/analysis/callgraph"
	"github.com/solguard/solguard/analysis/cfg"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/report"
	"github.com/solguard/solguard/analysis/symbols"
	"github.com/solguard/solguard/internal/funcutil"
)

// orderingViolation is a storage write that may execute after an external call
type orderingViolation struct {
	call  cfg.Statement
	block cfg.BlockID
	class callgraph.CallClass
	write cfg.Statement
	vars  []string
}

// externalThenWrite finds storage writes ordered after an external call inside one
// function: later statements of the call's own block, plus any write in a block
// reachable from it. One violation is reported per call site.
func externalThenWrite(fn *lang.FunctionDefinition, g *cfg.ControlFlowGraph, table *symbols.SymbolTable) []orderingViolation {
	isWrite := stateWriteChecker(fn, table)

	var violations []orderingViolation
	for _, id := range g.BlockIDs() {
		block := g.Blocks[id]
		for i, stmt := range block.Stmts {
			class, ok := externalCallIn(stmt)
			if !ok {
				continue
			}
			if w, vars, found := writeAfter(g, id, i+1, isWrite); found {
				violations = append(violations, orderingViolation{
					call:  stmt,
					block: id,
					class: class,
					write: w,
					vars:  vars,
				})
			}
		}
	}
	return violations
}

func externalCallIn(stmt cfg.Statement) (callgraph.CallClass, bool) {
	found := false
	var class callgraph.CallClass
	if stmt.Expression != nil {
		lang.VisitExprTree(stmt.Expression, func(e lang.Expression) {
			if found {
				return
			}
			if call, ok := e.(*lang.CallExpression); ok {
				if c := callgraph.Classify(call); c.External {
					found = true
					class = c
				}
			}
		})
	}
	return class, found
}

// stateWriteChecker returns a predicate over assignment pseudo-statements that
// reports the storage variables they write, honoring local shadowing.
func stateWriteChecker(fn *lang.FunctionDefinition, table *symbols.SymbolTable) func(cfg.Statement) []string {
	shadowed := map[string]bool{}
	for _, p := range fn.Parameters {
		shadowed[p.Name] = true
	}
	for _, p := range fn.Returns {
		shadowed[p.Name] = true
	}
	lang.VisitStatements(fn.Body, func(stmt lang.Statement) {
		if decl, ok := stmt.(*lang.VariableDeclaration); ok {
			for _, n := range decl.Names {
				shadowed[n] = true
			}
		}
	})

	return func(stmt cfg.Statement) []string {
		if stmt.Kind != cfg.Assign {
			return nil
		}
		var names []string
		if assign, ok := stmt.Expression.(*lang.Assignment); ok {
			names = lang.AssignedNames(assign.LHS)
		}
		var written []string
		for _, n := range names {
			if !shadowed[n] && table.IsStateVariable(fn.Contract, n) {
				written = append(written, n)
			}
		}
		return written
	}
}

// writeAfter searches for the first storage write at or after (block, index) in
// execution order
func writeAfter(g *cfg.ControlFlowGraph, start cfg.BlockID, index int, isWrite func(cfg.Statement) []string) (cfg.Statement, []string, bool) {
	for _, stmt := range g.Blocks[start].Stmts[index:] {
		if vars := isWrite(stmt); len(vars) > 0 {
			return stmt, vars, true
		}
	}

	seen := map[cfg.BlockID]bool{start: true}
	stack := g.Successors(start)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, stmt := range g.Blocks[id].Stmts {
			if vars := isWrite(stmt); len(vars) > 0 {
				return stmt, vars, true
			}
		}
		stack = append(stack, g.Successors(id)...)
	}
	return cfg.Statement{}, nil, false
}

// hasReentrancyGuard recognizes the conventional mutex modifier names
func hasReentrancyGuard(fn *lang.FunctionDefinition) bool {
	return funcutil.Exists(fn.Modifiers, func(m lang.ModifierInvocation) bool {
		return strings.EqualFold(m.Name, "nonReentrant") || strings.EqualFold(m.Name, "noReentrancy")
	})
}

// ceiDetector reports functions that update storage after an external interaction,
// violating the checks-effects-interactions ordering.
type ceiDetector struct{}

func (ceiDetector) Name() string { return "checks-effects-interactions" }

func (ceiDetector) RequiredPasses() []analysis.PassId {
	return []analysis.PassId{analysis.SymbolTablePass, analysis.CfgPass}
}

func (d ceiDetector) Detect(s *analysis.State) []report.Bug {
	table := s.MustSymbolTable()
	cfgs := s.MustCfgs()

	var bugs []report.Bug
	lang.IterateFunctions(s.SourceUnits, func(fn *lang.FunctionDefinition) {
		g, ok := cfgs[fn.QualifiedName()]
		if !ok || fn.Contract == "" {
			return
		}
		if hasReentrancyGuard(fn) {
			return
		}
		for _, v := range externalThenWrite(fn, g, table) {
			bugs = append(bugs, report.Bug{
				Detector: d.Name(),
				Function: fn.QualifiedName(),
				Message: fmt.Sprintf("storage variable %s written after external call %s",
					strings.Join(v.vars, ", "), v.class.CalleeName),
				Kind:           report.Vulnerability,
				Risk:           report.Medium,
				Conf:           report.MediumConfidence,
				SWC:            "SWC-107",
				CWE:            "CWE-696",
				Recommendation: "move the storage update before the external call",
				Pos:            v.write.Pos,
			})
		}
	})
	return bugs
}
