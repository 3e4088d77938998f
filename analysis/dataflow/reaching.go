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

package dataflow

import (
	"github.com/solguard/solguard/analysis/cfg"
	"github.com/solguard/solguard/analysis/lang"
)

// Definition is one write to a variable, identified by the variable name and the
// source position of the writing statement.
type Definition struct {
	Variable string
	Pos      lang.Pos
}

// Use is one read of a variable
type Use struct {
	Variable string
	Pos      lang.Pos
}

// DefSet is the reaching-definitions fact: the set of definitions that may reach a
// program point. The meet is set union, with the explicit top element acting as its
// identity so that unvisited blocks do not pollute the merge.
type DefSet struct {
	isTop bool
	defs  map[Definition]bool
}

// NewDefSet builds a fact holding exactly the given definitions
func NewDefSet(defs ...Definition) DefSet {
	s := DefSet{defs: map[Definition]bool{}}
	for _, d := range defs {
		s.defs[d] = true
	}
	return s
}

// Defs returns the definitions in the set. Top has no meaningful contents.
func (s DefSet) Defs() []Definition {
	out := make([]Definition, 0, len(s.defs))
	for d := range s.defs {
		out = append(out, d)
	}
	return out
}

// Meet is set union; top is the identity
func (s DefSet) Meet(other DefSet) DefSet {
	if s.isTop {
		return other
	}
	if other.isTop {
		return s
	}
	merged := make(map[Definition]bool, len(s.defs)+len(other.defs))
	for d := range s.defs {
		merged[d] = true
	}
	for d := range other.defs {
		merged[d] = true
	}
	return DefSet{defs: merged}
}

// Equal reports whether two facts hold the same definitions
func (s DefSet) Equal(other DefSet) bool {
	if s.isTop || other.isTop {
		return s.isTop == other.isTop
	}
	if len(s.defs) != len(other.defs) {
		return false
	}
	for d := range s.defs {
		if !other.defs[d] {
			return false
		}
	}
	return true
}

// LessOrEqual is subset inclusion; top is above everything
func (s DefSet) LessOrEqual(other DefSet) bool {
	if other.isTop {
		return true
	}
	if s.isTop {
		return false
	}
	for d := range s.defs {
		if !other.defs[d] {
			return false
		}
	}
	return true
}

type defSetLattice struct{}

func (defSetLattice) Bottom() DefSet { return DefSet{defs: map[Definition]bool{}} }
func (defSetLattice) Top() DefSet    { return DefSet{isTop: true} }

// reachingTransfer implements gen/kill for reaching definitions: an assignment kills
// every earlier definition of the written variables and generates its own.
type reachingTransfer struct{}

func (reachingTransfer) Transfer(stmt cfg.Statement, fact DefSet) DefSet {
	written := statementWrites(stmt)
	if len(written) == 0 {
		return fact
	}
	out := map[Definition]bool{}
	for d := range fact.defs {
		if !written[d.Variable] {
			out[d] = true
		}
	}
	for v := range written {
		out[Definition{Variable: v, Pos: stmt.Pos}] = true
	}
	return DefSet{defs: out}
}

// statementWrites returns the set of variable names written by a pseudo-statement
func statementWrites(stmt cfg.Statement) map[string]bool {
	if stmt.Kind != cfg.Assign {
		return nil
	}
	written := map[string]bool{}
	switch src := stmt.Source.(type) {
	case *lang.VariableDeclaration:
		for _, n := range src.Names {
			if n != "" {
				written[n] = true
			}
		}
	default:
		if assign, ok := stmt.Expression.(*lang.Assignment); ok {
			for _, n := range lang.AssignedNames(assign.LHS) {
				written[n] = true
			}
		}
	}
	return written
}

// ReachingDefinitions runs the forward reaching-definitions analysis over one CFG and
// returns the definitions reaching the entry of each block.
func ReachingDefinitions(g *cfg.ControlFlowGraph, maxIterations int) (map[cfg.BlockID]DefSet, error) {
	return Solve(g, Analysis[DefSet]{
		Direction:     Forward,
		Lattice:       defSetLattice{},
		Transfer:      reachingTransfer{},
		MaxIterations: maxIterations,
	})
}

// DefUseChains maps each definition to the uses it may reach
type DefUseChains struct {
	FuncName string
	Chains   map[Definition][]Use
}

// BuildDefUse computes def-use chains for one function from its reaching-definitions
// solution: inside each block the statements are walked in order, connecting every
// read of a variable to the definitions live at that statement.
func BuildDefUse(g *cfg.ControlFlowGraph, maxIterations int) (*DefUseChains, error) {
	entryFacts, err := ReachingDefinitions(g, maxIterations)
	if err != nil {
		return nil, err
	}

	chains := &DefUseChains{FuncName: g.FuncName, Chains: map[Definition][]Use{}}
	transfer := reachingTransfer{}
	for _, id := range g.BlockIDs() {
		fact := entryFacts[id]
		for _, stmt := range g.Blocks[id].Stmts {
			for _, use := range statementReads(stmt) {
				for d := range fact.defs {
					if d.Variable == use.Variable {
						chains.Chains[d] = append(chains.Chains[d], use)
					}
				}
			}
			fact = transfer.Transfer(stmt, fact)
		}
	}
	return chains, nil
}

// statementReads collects the variables read by a pseudo-statement. The written base
// of an assignment LHS is not a read; an index into the LHS is.
func statementReads(stmt cfg.Statement) []Use {
	var uses []Use
	record := func(e lang.Expression) {
		if id, ok := e.(*lang.Identifier); ok {
			uses = append(uses, Use{Variable: id.Name, Pos: id.Pos})
		}
	}

	if assign, ok := stmt.Expression.(*lang.Assignment); ok {
		lang.VisitExprTree(assign.RHS, record)
		// Index and member subexpressions on the LHS are reads even though the
		// base identifier is a write
		lang.VisitExprTree(assign.LHS, func(e lang.Expression) {
			if ix, ok := e.(*lang.IndexAccess); ok {
				lang.VisitExprTree(ix.Index, record)
			}
		})
		return uses
	}

	if stmt.Kind == cfg.Branch {
		lang.VisitExprTree(stmt.Cond, record)
		return uses
	}
	lang.VisitExprTree(stmt.Expression, record)
	return uses
}
