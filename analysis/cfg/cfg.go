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

// Package cfg builds intra-procedural control-flow graphs over function bodies.
// Statements are lowered into a small set of pseudo-statements; the graph is
// constructed once per function and immutable afterwards.
package cfg

import (
	"fmt"

	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/internal/funcutil"
)

// BlockID identifies a basic block within one function's CFG
type BlockID int

// NoBlock marks an absent branch target, such as the false edge of a
// condition-less loop header
const NoBlock BlockID = -1

// StatementKind is the kind of a lowered pseudo-statement
type StatementKind int

const (
	// Assign covers assignments and variable declarations
	Assign StatementKind = iota
	// Call covers function calls evaluated for their effects (including emits)
	Call
	// Branch records a condition and its two targets
	Branch
	// Return terminates the function normally
	Return
	// Revert aborts execution
	Revert
	// Assembly is an opaque inline assembly block
	Assembly
	// Placeholder is the `_` statement in a modifier body
	Placeholder
	// Expr is any other expression evaluated for its value
	Expr
)

func (k StatementKind) String() string {
	switch k {
	case Assign:
		return "assign"
	case Call:
		return "call"
	case Branch:
		return "branch"
	case Return:
		return "return"
	case Revert:
		return "revert"
	case Assembly:
		return "assembly"
	case Placeholder:
		return "placeholder"
	case Expr:
		return "expr"
	}
	return "?"
}

// Statement is a lowered pseudo-statement inside a basic block. Source points back to
// the AST statement it was lowered from; Expression is set for assign/call/expr kinds,
// Cond and the branch targets for Branch.
type Statement struct {
	Kind       StatementKind
	Expression lang.Expression
	Source     lang.Statement
	Cond       lang.Expression
	TrueDest   BlockID
	FalseDest  BlockID
	Pos        lang.Pos
}

// BasicBlock is a node of the CFG, identified by an integer id
type BasicBlock struct {
	ID    BlockID
	Stmts []Statement

	// Preds and Succs are sets of block ids
	Preds map[BlockID]bool
	Succs map[BlockID]bool
}

// ControlFlowGraph owns the blocks of one function. Entry has no predecessors;
// unreachable blocks are tolerated (they are what the dead-code detector reports).
type ControlFlowGraph struct {
	// FuncName is the qualified name of the function the graph was built from
	FuncName string

	Blocks map[BlockID]*BasicBlock
	Entry  BlockID

	// Exits holds the synthetic exit plus any block without successors
	Exits map[BlockID]bool

	nextID BlockID
}

// NewControlFlowGraph returns an empty graph for the named function
func NewControlFlowGraph(funcName string) *ControlFlowGraph {
	return &ControlFlowGraph{
		FuncName: funcName,
		Blocks:   map[BlockID]*BasicBlock{},
		Exits:    map[BlockID]bool{},
	}
}

// NewBlock allocates a fresh empty block and returns it
func (g *ControlFlowGraph) NewBlock() *BasicBlock {
	b := &BasicBlock{
		ID:    g.nextID,
		Preds: map[BlockID]bool{},
		Succs: map[BlockID]bool{},
	}
	g.Blocks[b.ID] = b
	g.nextID++
	return b
}

// AddEdge adds a directed edge between two blocks
func (g *ControlFlowGraph) AddEdge(from, to BlockID) {
	g.Blocks[from].Succs[to] = true
	g.Blocks[to].Preds[from] = true
}

// Successors returns the successor ids of a block in increasing order
func (g *ControlFlowGraph) Successors(id BlockID) []BlockID {
	return funcutil.SetToOrderedSlice(g.Blocks[id].Succs)
}

// Predecessors returns the predecessor ids of a block in increasing order
func (g *ControlFlowGraph) Predecessors(id BlockID) []BlockID {
	return funcutil.SetToOrderedSlice(g.Blocks[id].Preds)
}

// BlockIDs returns all block ids in increasing order
func (g *ControlFlowGraph) BlockIDs() []BlockID {
	ids := make(map[BlockID]bool, len(g.Blocks))
	for id := range g.Blocks {
		ids[id] = true
	}
	return funcutil.SetToOrderedSlice(ids)
}

// Reachable returns the set of blocks reachable from the entry block
func (g *ControlFlowGraph) Reachable() map[BlockID]bool {
	seen := map[BlockID]bool{}
	stack := []BlockID{g.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		for succ := range g.Blocks[id].Succs {
			if !seen[succ] {
				stack = append(stack, succ)
			}
		}
	}
	return seen
}

// Validate checks the structural invariants of the graph: every edge endpoint is a
// known block, edges are mirrored in the pred/succ sets, and the entry block has no
// predecessors.
func (g *ControlFlowGraph) Validate() error {
	entry, ok := g.Blocks[g.Entry]
	if !ok {
		return fmt.Errorf("entry block %d missing from block map", g.Entry)
	}
	if len(entry.Preds) > 0 {
		return fmt.Errorf("entry block %d has predecessors", g.Entry)
	}
	for id, b := range g.Blocks {
		for succ := range b.Succs {
			sb, ok := g.Blocks[succ]
			if !ok {
				return fmt.Errorf("block %d has edge to missing block %d", id, succ)
			}
			if !sb.Preds[id] {
				return fmt.Errorf("edge %d->%d not mirrored in predecessor set", id, succ)
			}
		}
		for pred := range b.Preds {
			pb, ok := g.Blocks[pred]
			if !ok {
				return fmt.Errorf("block %d has edge from missing block %d", id, pred)
			}
			if !pb.Succs[id] {
				return fmt.Errorf("edge %d->%d not mirrored in successor set", pred, id)
			}
		}
	}
	return nil
}
