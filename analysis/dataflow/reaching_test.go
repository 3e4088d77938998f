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
	"testing"

	"github.com/solguard/solguard/analysis/cfg"
	"github.com/solguard/solguard/analysis/lang"
)

func assignStmt(name string, line int) cfg.Statement {
	pos := lang.Pos{File: "t.sol", Line: line}
	return cfg.Statement{
		Kind: cfg.Assign,
		Expression: &lang.Assignment{
			LHS:      &lang.Identifier{Name: name, Pos: pos},
			Operator: "=",
			RHS:      &lang.Literal{Kind: "number", Value: "1", Pos: pos},
			Pos:      pos,
		},
		Source: &lang.ExpressionStatement{Pos: pos},
		Pos:    pos,
	}
}

func useStmt(name string, line int) cfg.Statement {
	pos := lang.Pos{File: "t.sol", Line: line}
	return cfg.Statement{
		Kind:       cfg.Expr,
		Expression: &lang.Identifier{Name: name, Pos: pos},
		Source:     &lang.ExpressionStatement{Pos: pos},
		Pos:        pos,
	}
}

func hasDef(s DefSet, name string, line int) bool {
	for _, d := range s.Defs() {
		if d.Variable == name && d.Pos.Line == line {
			return true
		}
	}
	return false
}

func TestReachingKill(t *testing.T) {
	g := cfg.NewControlFlowGraph("T.f")
	entry := g.NewBlock()
	g.Entry = entry.ID
	b := g.NewBlock()
	exit := g.NewBlock()
	g.AddEdge(entry.ID, b.ID)
	g.AddEdge(b.ID, exit.ID)
	g.Exits[exit.ID] = true
	b.Stmts = append(b.Stmts, assignStmt("x", 1), assignStmt("x", 2))

	facts, err := ReachingDefinitions(g, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at := facts[exit.ID]
	if hasDef(at, "x", 1) {
		t.Errorf("definition of x at line 1 should be killed by the redefinition")
	}
	if !hasDef(at, "x", 2) {
		t.Errorf("definition of x at line 2 should reach the exit")
	}
}

func TestReachingBranchUnion(t *testing.T) {
	g := cfg.NewControlFlowGraph("T.g")
	entry := g.NewBlock()
	g.Entry = entry.ID
	thenB := g.NewBlock()
	elseB := g.NewBlock()
	merge := g.NewBlock()
	g.AddEdge(entry.ID, thenB.ID)
	g.AddEdge(entry.ID, elseB.ID)
	g.AddEdge(thenB.ID, merge.ID)
	g.AddEdge(elseB.ID, merge.ID)
	g.Exits[merge.ID] = true
	thenB.Stmts = append(thenB.Stmts, assignStmt("x", 10))
	elseB.Stmts = append(elseB.Stmts, assignStmt("x", 20))

	facts, err := ReachingDefinitions(g, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at := facts[merge.ID]
	if !hasDef(at, "x", 10) || !hasDef(at, "x", 20) {
		t.Errorf("both branch definitions should reach the merge, got %v", at.Defs())
	}
}

func TestReachingLoop(t *testing.T) {
	g := cfg.NewControlFlowGraph("T.loop")
	entry := g.NewBlock()
	g.Entry = entry.ID
	pre := g.NewBlock()
	header := g.NewBlock()
	body := g.NewBlock()
	exit := g.NewBlock()
	g.AddEdge(entry.ID, pre.ID)
	g.AddEdge(pre.ID, header.ID)
	g.AddEdge(header.ID, body.ID)
	g.AddEdge(header.ID, exit.ID)
	g.AddEdge(body.ID, header.ID)
	g.Exits[exit.ID] = true
	pre.Stmts = append(pre.Stmts, assignStmt("i", 1))
	body.Stmts = append(body.Stmts, assignStmt("i", 2))

	facts, err := ReachingDefinitions(g, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Both the initial and the loop-carried definition reach the header
	at := facts[header.ID]
	if !hasDef(at, "i", 1) || !hasDef(at, "i", 2) {
		t.Errorf("header should see both definitions of i, got %v", at.Defs())
	}
}

func TestReachingVariableDeclaration(t *testing.T) {
	g := cfg.NewControlFlowGraph("T.decl")
	entry := g.NewBlock()
	g.Entry = entry.ID
	b := g.NewBlock()
	exit := g.NewBlock()
	g.AddEdge(entry.ID, b.ID)
	g.AddEdge(b.ID, exit.ID)
	g.Exits[exit.ID] = true
	pos := lang.Pos{File: "t.sol", Line: 3}
	b.Stmts = append(b.Stmts, cfg.Statement{
		Kind:   cfg.Assign,
		Source: &lang.VariableDeclaration{Names: []string{"a", "b"}, Pos: pos},
		Pos:    pos,
	})

	facts, err := ReachingDefinitions(g, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at := facts[exit.ID]
	if !hasDef(at, "a", 3) || !hasDef(at, "b", 3) {
		t.Errorf("declaration should define both names, got %v", at.Defs())
	}
}

func TestDefUseChains(t *testing.T) {
	g := cfg.NewControlFlowGraph("T.du")
	entry := g.NewBlock()
	g.Entry = entry.ID
	b := g.NewBlock()
	exit := g.NewBlock()
	g.AddEdge(entry.ID, b.ID)
	g.AddEdge(b.ID, exit.ID)
	g.Exits[exit.ID] = true
	b.Stmts = append(b.Stmts, assignStmt("x", 1), useStmt("x", 2), assignStmt("x", 3), useStmt("x", 4))

	chains, err := BuildDefUse(g, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	uses := func(line int) []Use {
		for d, us := range chains.Chains {
			if d.Variable == "x" && d.Pos.Line == line {
				return us
			}
		}
		return nil
	}
	u1 := uses(1)
	if len(u1) != 1 || u1[0].Pos.Line != 2 {
		t.Errorf("def at line 1: got uses %v, want the read at line 2", u1)
	}
	u3 := uses(3)
	if len(u3) != 1 || u3[0].Pos.Line != 4 {
		t.Errorf("def at line 3: got uses %v, want the read at line 4", u3)
	}
}
