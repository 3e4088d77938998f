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
	"github.com/solguard/solguard/analysis/lang"
)

// Build constructs the control-flow graph of a function body. The graph starts at a
// synthetic entry block and the final block of the top-level body links to a synthetic
// exit. Statements following a return or revert in the same lexical block end up in a
// block with no incoming edge from the live path; such blocks are kept in the graph.
func Build(fn *lang.FunctionDefinition) *ControlFlowGraph {
	g := NewControlFlowGraph(fn.QualifiedName())
	entry := g.NewBlock()
	g.Entry = entry.ID

	b := &builder{g: g}
	first := g.NewBlock()
	g.AddEdge(entry.ID, first.ID)
	b.cur = first

	b.buildStmts(fn.Body)

	exit := g.NewBlock()
	g.AddEdge(b.cur.ID, exit.ID)
	g.Exits[exit.ID] = true
	for id, blk := range g.Blocks {
		if len(blk.Succs) == 0 {
			g.Exits[id] = true
		}
	}
	return g
}

// loopCtx records the jump targets of the innermost enclosing loop
type loopCtx struct {
	continueTo BlockID
	breakTo    BlockID
}

type builder struct {
	g     *ControlFlowGraph
	cur   *BasicBlock
	loops []loopCtx
}

func (b *builder) buildStmts(stmts []lang.Statement) {
	for _, s := range stmts {
		b.buildStmt(s)
	}
}

func (b *builder) buildStmt(stmt lang.Statement) {
	switch s := stmt.(type) {
	case nil:
	case *lang.Block:
		b.buildStmts(s.Statements)
	case *lang.IfStatement:
		b.buildIf(s)
	case *lang.ForStatement:
		b.buildFor(s)
	case *lang.WhileStatement:
		if s.DoWhile {
			b.buildDoWhile(s)
		} else {
			b.buildWhile(s)
		}
	case *lang.ReturnStatement:
		b.append(Statement{Kind: Return, Expression: s.Value, Source: s, Pos: s.Pos})
		b.terminate()
	case *lang.RevertStatement:
		b.append(Statement{Kind: Revert, Expression: s.Reason, Source: s, Pos: s.Pos})
		b.terminate()
	case *lang.BreakStatement:
		if len(b.loops) > 0 {
			b.g.AddEdge(b.cur.ID, b.loops[len(b.loops)-1].breakTo)
		}
		b.terminate()
	case *lang.ContinueStatement:
		if len(b.loops) > 0 {
			b.g.AddEdge(b.cur.ID, b.loops[len(b.loops)-1].continueTo)
		}
		b.terminate()
	case *lang.ExpressionStatement:
		b.append(lowerExpression(s.Expression, s, s.Pos))
	case *lang.VariableDeclaration:
		b.append(Statement{Kind: Assign, Expression: s.Value, Source: s, Pos: s.Pos})
	case *lang.TryStatement:
		// Simplified sequential model: the guarded call, then the body, then each
		// catch body in order. No exception edges.
		b.append(Statement{Kind: Call, Expression: s.Call, Source: s, Pos: s.Pos})
		b.buildStmts(s.Body)
		for _, c := range s.Catches {
			b.buildStmts(c.Body)
		}
	case *lang.EmitStatement:
		b.append(Statement{Kind: Call, Expression: s.Event, Source: s, Pos: s.Pos})
	case *lang.AssemblyStatement:
		b.append(Statement{Kind: Assembly, Source: s, Pos: s.Pos})
	case *lang.PlaceholderStatement:
		b.append(Statement{Kind: Placeholder, Source: s, Pos: s.Pos})
	}
}

func lowerExpression(e lang.Expression, src lang.Statement, pos lang.Pos) Statement {
	switch e.(type) {
	case *lang.Assignment:
		return Statement{Kind: Assign, Expression: e, Source: src, Pos: pos}
	case *lang.CallExpression:
		return Statement{Kind: Call, Expression: e, Source: src, Pos: pos}
	}
	return Statement{Kind: Expr, Expression: e, Source: src, Pos: pos}
}

func (b *builder) append(s Statement) {
	b.cur.Stmts = append(b.cur.Stmts, s)
}

// terminate starts a fresh block with no incoming edge. Statements lowered after a
// return/revert/break land there and stay unreachable from the entry block.
func (b *builder) terminate() {
	b.cur = b.g.NewBlock()
}

func (b *builder) buildIf(s *lang.IfStatement) {
	condBlock := b.cur
	branchIdx := len(condBlock.Stmts)
	condBlock.Stmts = append(condBlock.Stmts, Statement{Kind: Branch, Cond: s.Condition, Source: s, Pos: s.Pos})

	thenBlock := b.g.NewBlock()
	merge := b.g.NewBlock()
	b.g.AddEdge(condBlock.ID, thenBlock.ID)

	elseTarget := merge.ID
	if len(s.Else) > 0 {
		elseBlock := b.g.NewBlock()
		elseTarget = elseBlock.ID
		b.g.AddEdge(condBlock.ID, elseBlock.ID)

		b.cur = elseBlock
		b.buildStmts(s.Else)
		b.g.AddEdge(b.cur.ID, merge.ID)
	} else {
		b.g.AddEdge(condBlock.ID, merge.ID)
	}
	condBlock.Stmts[branchIdx].TrueDest = thenBlock.ID
	condBlock.Stmts[branchIdx].FalseDest = elseTarget

	b.cur = thenBlock
	b.buildStmts(s.Then)
	b.g.AddEdge(b.cur.ID, merge.ID)

	b.cur = merge
}

func (b *builder) buildFor(s *lang.ForStatement) {
	if s.Init != nil {
		b.buildStmt(s.Init)
	}

	header := b.g.NewBlock()
	b.g.AddEdge(b.cur.ID, header.ID)
	body := b.g.NewBlock()
	exit := b.g.NewBlock()

	// a for(;;) header has no false edge; the loop leaves only through break
	falseDest := exit.ID
	if s.Condition == nil {
		falseDest = NoBlock
	}
	header.Stmts = append(header.Stmts, Statement{
		Kind: Branch, Cond: s.Condition, Source: s,
		TrueDest: body.ID, FalseDest: falseDest,
		Pos: s.Pos,
	})
	b.g.AddEdge(header.ID, body.ID)
	if s.Condition != nil {
		b.g.AddEdge(header.ID, exit.ID)
	}

	continueTo := header.ID
	var post *BasicBlock
	if s.Post != nil {
		post = b.g.NewBlock()
		continueTo = post.ID
	}

	b.loops = append(b.loops, loopCtx{continueTo: continueTo, breakTo: exit.ID})
	b.cur = body
	b.buildStmts(s.Body)
	b.g.AddEdge(b.cur.ID, continueTo)
	b.loops = b.loops[:len(b.loops)-1]

	if post != nil {
		b.cur = post
		b.buildStmt(s.Post)
		b.g.AddEdge(b.cur.ID, header.ID)
	}

	b.cur = exit
}

func (b *builder) buildWhile(s *lang.WhileStatement) {
	header := b.g.NewBlock()
	b.g.AddEdge(b.cur.ID, header.ID)
	body := b.g.NewBlock()
	exit := b.g.NewBlock()

	header.Stmts = append(header.Stmts, Statement{
		Kind: Branch, Cond: s.Condition, Source: s,
		TrueDest: body.ID, FalseDest: exit.ID,
		Pos: s.Pos,
	})
	b.g.AddEdge(header.ID, body.ID)
	b.g.AddEdge(header.ID, exit.ID)

	b.loops = append(b.loops, loopCtx{continueTo: header.ID, breakTo: exit.ID})
	b.cur = body
	b.buildStmts(s.Body)
	b.g.AddEdge(b.cur.ID, header.ID)
	b.loops = b.loops[:len(b.loops)-1]

	b.cur = exit
}

func (b *builder) buildDoWhile(s *lang.WhileStatement) {
	body := b.g.NewBlock()
	b.g.AddEdge(b.cur.ID, body.ID)
	header := b.g.NewBlock()
	exit := b.g.NewBlock()

	// The condition is evaluated after the first iteration
	header.Stmts = append(header.Stmts, Statement{
		Kind: Branch, Cond: s.Condition, Source: s,
		TrueDest: body.ID, FalseDest: exit.ID,
		Pos: s.Pos,
	})
	b.g.AddEdge(header.ID, body.ID)
	b.g.AddEdge(header.ID, exit.ID)

	b.loops = append(b.loops, loopCtx{continueTo: header.ID, breakTo: exit.ID})
	b.cur = body
	b.buildStmts(s.Body)
	b.g.AddEdge(b.cur.ID, header.ID)
	b.loops = b.loops[:len(b.loops)-1]

	b.cur = exit
}
