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

package cfg

import (
	"testing"

	"github.com/solguard/solguard/analysis/lang"
)

func buildFunc(t *testing.T, body ...lang.Statement) *ControlFlowGraph {
	t.Helper()
	g := Build(&lang.FunctionDefinition{Name: "f", Contract: "C", Body: body})
	if err := g.Validate(); err != nil {
		t.Fatalf("built graph does not validate: %v", err)
	}
	return g
}

func setStmt(name string, value string) lang.Statement {
	return &lang.ExpressionStatement{Expression: &lang.Assignment{
		LHS: &lang.Identifier{Name: name}, Operator: "=",
		RHS: &lang.Literal{Kind: "number", Value: value},
	}}
}

// blockOf returns the block containing the n-th pseudo-statement of the given kind
func blockOf(t *testing.T, g *ControlFlowGraph, kind StatementKind, n int) *BasicBlock {
	t.Helper()
	for _, id := range g.BlockIDs() {
		for _, s := range g.Blocks[id].Stmts {
			if s.Kind == kind {
				if n == 0 {
					return g.Blocks[id]
				}
				n--
			}
		}
	}
	t.Fatalf("no block holds statement kind %s", kind)
	return nil
}

// blockAssigning returns the block holding the assignment to the named variable
func blockAssigning(t *testing.T, g *ControlFlowGraph, name string) *BasicBlock {
	t.Helper()
	for _, id := range g.BlockIDs() {
		for _, s := range g.Blocks[id].Stmts {
			if s.Kind != Assign {
				continue
			}
			if a, ok := s.Expression.(*lang.Assignment); ok {
				if n, ok := lang.BaseIdentifier(a.LHS); ok && n == name {
					return g.Blocks[id]
				}
			}
		}
	}
	t.Fatalf("no block assigns %s", name)
	return nil
}

func TestBuildLinear(t *testing.T) {
	g := buildFunc(t, setStmt("x", "1"), setStmt("y", "2"))

	reachable := g.Reachable()
	for _, id := range g.BlockIDs() {
		if !reachable[id] {
			t.Errorf("block %d of a straight-line body should be reachable", id)
		}
	}
	b := blockOf(t, g, Assign, 0)
	if len(b.Stmts) != 2 {
		t.Errorf("straight-line statements should share a block, got %d", len(b.Stmts))
	}
	if g.Blocks[g.Entry].Preds == nil || len(g.Blocks[g.Entry].Preds) != 0 {
		t.Error("entry block must have no predecessors")
	}
}

func TestBuildIfElse(t *testing.T) {
	g := buildFunc(t,
		&lang.IfStatement{
			Condition: &lang.Identifier{Name: "cond"},
			Then:      []lang.Statement{setStmt("a", "1")},
			Else:      []lang.Statement{setStmt("a", "2")},
		},
		setStmt("b", "3"),
	)

	cond := blockOf(t, g, Branch, 0)
	branch := cond.Stmts[len(cond.Stmts)-1]
	if branch.TrueDest == branch.FalseDest {
		t.Fatal("branch targets must differ when an else body exists")
	}
	if !cond.Succs[branch.TrueDest] || !cond.Succs[branch.FalseDest] {
		t.Error("branch targets must be graph successors of the condition block")
	}

	// both arms reach the merge block holding the trailing assignment
	merge := blockAssigning(t, g, "b")
	if !g.Blocks[branch.TrueDest].Succs[merge.ID] || !g.Blocks[branch.FalseDest].Succs[merge.ID] {
		t.Error("both arms should flow into the merge block")
	}
}

func TestBuildCodeAfterReturn(t *testing.T) {
	g := buildFunc(t,
		&lang.ReturnStatement{},
		setStmt("x", "2"),
	)

	dead := blockAssigning(t, g, "x")
	if g.Reachable()[dead.ID] {
		t.Error("statements after a return must land in an unreachable block")
	}
	if len(dead.Preds) != 0 {
		t.Errorf("dead block should have no predecessors, got %d", len(dead.Preds))
	}
}

func TestBuildWhileBackEdge(t *testing.T) {
	g := buildFunc(t,
		&lang.WhileStatement{
			Condition: &lang.Identifier{Name: "cond"},
			Body:      []lang.Statement{setStmt("x", "1")},
		},
	)

	header := blockOf(t, g, Branch, 0)
	body := blockAssigning(t, g, "x")
	if !body.Succs[header.ID] {
		t.Error("loop body must edge back to the header")
	}
	if !header.Succs[body.ID] {
		t.Error("header must edge into the body")
	}
	branch := header.Stmts[len(header.Stmts)-1]
	if branch.TrueDest != body.ID {
		t.Errorf("true target should be the body, got %d", branch.TrueDest)
	}
}

func TestBuildDoWhileEntersBodyFirst(t *testing.T) {
	g := buildFunc(t,
		&lang.WhileStatement{
			Condition: &lang.Identifier{Name: "cond"},
			Body:      []lang.Statement{setStmt("x", "1")},
			DoWhile:   true,
		},
	)

	header := blockOf(t, g, Branch, 0)
	body := blockAssigning(t, g, "x")

	// the body is entered directly, not through the condition
	entered := false
	for pred := range body.Preds {
		if pred != header.ID {
			entered = true
		}
	}
	if !entered {
		t.Error("do-while body must have an incoming edge that bypasses the condition")
	}
	if !body.Succs[header.ID] {
		t.Error("body must flow into the condition after the first iteration")
	}
}

func TestBuildBreakLeavesLoop(t *testing.T) {
	g := buildFunc(t,
		&lang.WhileStatement{
			Condition: &lang.Identifier{Name: "cond"},
			Body: []lang.Statement{
				setStmt("x", "1"),
				&lang.BreakStatement{},
			},
		},
		setStmt("done", "1"),
	)

	header := blockOf(t, g, Branch, 0)
	body := blockAssigning(t, g, "x")
	after := blockAssigning(t, g, "done")

	// the break edge and the header's false edge must agree on the loop exit
	branch := header.Stmts[len(header.Stmts)-1]
	if !body.Succs[branch.FalseDest] {
		t.Error("break must edge to the loop exit")
	}
	if !g.Reachable()[after.ID] {
		t.Error("code after the loop must stay reachable")
	}
}

func TestBuildForLoopPostBlock(t *testing.T) {
	g := buildFunc(t,
		&lang.ForStatement{
			Init:      &lang.VariableDeclaration{Names: []string{"i"}, Value: &lang.Literal{Kind: "number", Value: "0"}},
			Condition: &lang.BinaryExpression{Left: &lang.Identifier{Name: "i"}, Operator: "<", Right: &lang.Identifier{Name: "n"}},
			Post:      &lang.ExpressionStatement{Expression: &lang.UnaryExpression{Operator: "++", Operand: &lang.Identifier{Name: "i"}}},
			Body:      []lang.Statement{setStmt("sum", "1")},
		},
	)

	header := blockOf(t, g, Branch, 0)
	body := blockAssigning(t, g, "sum")

	// body flows through the post block back to the header, not directly
	if body.Succs[header.ID] {
		t.Error("with a post statement the body must not edge straight to the header")
	}
	backToHeader := false
	for succ := range body.Succs {
		if g.Blocks[succ].Succs[header.ID] {
			backToHeader = true
		}
	}
	if !backToHeader {
		t.Error("body must reach the header through the post block")
	}
}

func TestBuildInfiniteForHasNoFalseEdge(t *testing.T) {
	g := buildFunc(t,
		&lang.ForStatement{
			Body: []lang.Statement{
				setStmt("x", "1"),
				&lang.BreakStatement{},
			},
		},
		setStmt("done", "1"),
	)

	header := blockOf(t, g, Branch, 0)
	branch := header.Stmts[len(header.Stmts)-1]
	if branch.FalseDest != NoBlock {
		t.Errorf("a condition-less loop header has no false target, got %d", branch.FalseDest)
	}
	if len(header.Succs) != 1 {
		t.Errorf("header should only edge into the body, got %d successors", len(header.Succs))
	}
	if !g.Reachable()[blockAssigning(t, g, "done").ID] {
		t.Error("break must keep the code after the loop reachable")
	}
}

func TestBuildRevertTerminates(t *testing.T) {
	g := buildFunc(t,
		&lang.IfStatement{
			Condition: &lang.Identifier{Name: "bad"},
			Then:      []lang.Statement{&lang.RevertStatement{}},
		},
		setStmt("x", "1"),
	)

	rev := blockOf(t, g, Revert, 0)
	after := blockAssigning(t, g, "x")
	if rev.Succs[after.ID] {
		t.Error("the reverting arm must not flow into the code after the branch")
	}
	if !g.Reachable()[after.ID] {
		t.Error("the non-reverting path must keep the trailing code reachable")
	}
}
