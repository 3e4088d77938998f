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
	"errors"
	"fmt"

	"github.com/solguard/solguard/analysis/cfg"
	"github.com/solguard/solguard/analysis/config"
)

// ErrFixpointNotReached is returned when the iteration budget is exhausted before the
// analysis converges. This signals a non-monotone transfer function or a pathological
// CFG, and must not be silently swallowed by callers.
var ErrFixpointNotReached = errors.New("fixpoint not reached within iteration budget")

// ErrInvalidCFG is returned when the graph references a block missing from its block
// map. This indicates a builder bug upstream, not a property of the analyzed program.
var ErrInvalidCFG = errors.New("invalid control-flow graph")

// Solve computes the fixpoint of the analysis over the graph. For a Forward analysis
// the returned map holds the entry fact of each block; for a Backward analysis it
// holds the exit fact. Iterations are counted per worklist pop.
func Solve[F Fact[F]](g *cfg.ControlFlowGraph, a Analysis[F]) (map[cfg.BlockID]F, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCFG, err)
	}

	maxIterations := a.MaxIterations
	if maxIterations <= 0 {
		maxIterations = config.DefaultMaxIterations
	}

	// into(b) are the blocks whose facts meet at b; outof(b) the blocks to re-queue
	// when b's fact changes. The backward analysis is the structural mirror.
	into := g.Predecessors
	outof := g.Successors
	isStart := func(id cfg.BlockID) bool { return id == g.Entry }
	if a.Direction == Backward {
		into = g.Successors
		outof = g.Predecessors
		isStart = func(id cfg.BlockID) bool { return g.Exits[id] }
	}

	inFacts := map[cfg.BlockID]F{}
	outFacts := map[cfg.BlockID]F{}
	for _, id := range g.BlockIDs() {
		if isStart(id) {
			inFacts[id] = a.Lattice.Bottom()
		} else {
			inFacts[id] = a.Lattice.Top()
		}
		outFacts[id] = a.Lattice.Top()
	}

	// FIFO worklist with a companion membership set to avoid duplicate entries
	worklist := g.BlockIDs()
	queued := map[cfg.BlockID]bool{}
	for _, id := range worklist {
		queued[id] = true
	}

	iterations := 0
	for len(worklist) > 0 {
		iterations++
		if iterations > maxIterations {
			return nil, fmt.Errorf("%w: %s after %d iterations", ErrFixpointNotReached, g.FuncName, maxIterations)
		}

		id := worklist[0]
		worklist = worklist[1:]
		queued[id] = false

		newIn := inFacts[id]
		if sources := into(id); len(sources) > 0 {
			newIn = outFacts[sources[0]]
			for _, src := range sources[1:] {
				newIn = newIn.Meet(outFacts[src])
			}
		}
		newOut := a.TransferBlock(g.Blocks[id], newIn)

		if !newIn.Equal(inFacts[id]) || !newOut.Equal(outFacts[id]) {
			inFacts[id] = newIn
			outFacts[id] = newOut
			for _, next := range outof(id) {
				if !queued[next] {
					queued[next] = true
					worklist = append(worklist, next)
				}
			}
		}
	}

	return inFacts, nil
}
