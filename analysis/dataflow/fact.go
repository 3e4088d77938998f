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

// Package dataflow implements a generic worklist fixpoint solver for lattice-based
// analyses over control-flow graphs, and the concrete analyses built on it.
package dataflow

import (
	"github.com/solguard/solguard/analysis/cfg"
)

// Direction selects forward or backward propagation
type Direction int

const (
	// Forward propagates facts from predecessors to successors
	Forward Direction = iota
	// Backward propagates facts from successors to predecessors
	Backward
)

// Fact is the contract every lattice element type must satisfy. Meet must be
// commutative, associative and idempotent (a join semilattice), and every transfer
// function used with the solver must be monotone with respect to LessOrEqual.
// The solver itself does not enforce monotonicity; a violation shows up as a
// convergence failure when the iteration budget runs out.
type Fact[F any] interface {
	// Meet combines the facts flowing in from multiple predecessors (or successors,
	// for a backward analysis)
	Meet(other F) F

	// Equal reports whether two facts carry the same information. The solver uses
	// inequality as its re-propagation trigger, so Equal must be reliable.
	Equal(other F) bool

	// LessOrEqual is the partial order of the lattice
	LessOrEqual(other F) bool
}

// Lattice supplies the distinguished elements of a fact type: Bottom is the initial
// state at the analysis entry, Top the "no information yet" sentinel placed on every
// other block before its first visit. Top must be the identity of Meet.
type Lattice[F Fact[F]] interface {
	Bottom() F
	Top() F
}

// TransferFunction transforms a fact across one pseudo-statement
type TransferFunction[F Fact[F]] interface {
	Transfer(stmt cfg.Statement, fact F) F
}

// Analysis bundles everything the solver needs: a direction, the lattice, the
// transfer function and an iteration budget (<= 0 selects the default of 1000).
type Analysis[F Fact[F]] struct {
	Direction     Direction
	Lattice       Lattice[F]
	Transfer      TransferFunction[F]
	MaxIterations int
}

// TransferBlock folds the transfer function over the statements of a block, in
// program order for a forward analysis and in reverse order for a backward one.
func (a Analysis[F]) TransferBlock(block *cfg.BasicBlock, fact F) F {
	if a.Direction == Backward {
		for i := len(block.Stmts) - 1; i >= 0; i-- {
			fact = a.Transfer.Transfer(block.Stmts[i], fact)
		}
		return fact
	}
	for _, stmt := range block.Stmts {
		fact = a.Transfer.Transfer(stmt, fact)
	}
	return fact
}
