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

// Package taint tracks attacker-influenced values through function bodies. Taint
// enters through transaction environment fields, parameters of externally callable
// functions and external call returns, and is reported when it reaches an external
// call or a configured sink. The propagation runs as a forward analysis on the
// dataflow solver.
package taint

import (
	"github.com/solguard/solguard/analysis/lang"
)

// SourceKind describes where a tainted value originated
type SourceKind int

const (
	// EnvironmentSource is a transaction environment field like msg.sender
	EnvironmentSource SourceKind = iota
	// ParameterSource is a function parameter
	ParameterSource
	// ExternalReturnSource is the return value of an external call
	ExternalReturnSource
	// ConfiguredSource is an identifier listed as a source in the configuration
	ConfiguredSource
)

func (k SourceKind) String() string {
	switch k {
	case EnvironmentSource:
		return "environment"
	case ParameterSource:
		return "parameter"
	case ExternalReturnSource:
		return "external-return"
	case ConfiguredSource:
		return "configured"
	}
	return "?"
}

// Source is one origin of taint
type Source struct {
	Kind  SourceKind
	Label string
	Pos   lang.Pos
}

// envSources are the transaction environment fields treated as taint sources
var envSources = map[string]bool{
	"msg.sender":       true,
	"msg.value":        true,
	"msg.data":         true,
	"tx.origin":        true,
	"tx.gasprice":      true,
	"block.timestamp":  true,
	"block.number":     true,
	"block.coinbase":   true,
	"block.difficulty": true,
	"block.prevrandao": true,
}

type sourceSet map[Source]bool

func (s sourceSet) union(other sourceSet) sourceSet {
	if len(other) == 0 {
		return s
	}
	merged := make(sourceSet, len(s)+len(other))
	for k := range s {
		merged[k] = true
	}
	for k := range other {
		merged[k] = true
	}
	return merged
}

func (s sourceSet) equal(other sourceSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other[k] {
			return false
		}
	}
	return true
}

// Fact maps variable names to the sources that may influence them. The explicit top
// element is the pre-visit state of unreached blocks and the identity of Meet.
type Fact struct {
	isTop bool
	vars  map[string]sourceSet
}

// Sources returns the origins tainting a variable at this fact, nil when clean
func (f Fact) Sources(variable string) []Source {
	set := f.vars[variable]
	if len(set) == 0 {
		return nil
	}
	out := make([]Source, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// Tainted reports whether the variable carries taint at this fact
func (f Fact) Tainted(variable string) bool {
	return len(f.vars[variable]) > 0
}

// Meet is pointwise union over variables; top is the identity
func (f Fact) Meet(other Fact) Fact {
	if f.isTop {
		return other
	}
	if other.isTop {
		return f
	}
	merged := make(map[string]sourceSet, len(f.vars)+len(other.vars))
	for v, s := range f.vars {
		merged[v] = s
	}
	for v, s := range other.vars {
		merged[v] = merged[v].union(s)
	}
	return Fact{vars: merged}
}

// Equal reports whether two facts taint the same variables from the same sources
func (f Fact) Equal(other Fact) bool {
	if f.isTop || other.isTop {
		return f.isTop == other.isTop
	}
	if !subsumes(other, f) {
		return false
	}
	return subsumes(f, other)
}

// LessOrEqual holds when every taint in f is also in other; top is above everything
func (f Fact) LessOrEqual(other Fact) bool {
	if other.isTop {
		return true
	}
	if f.isTop {
		return false
	}
	return subsumes(other, f)
}

// subsumes reports whether big carries at least the taint of small
func subsumes(big, small Fact) bool {
	for v, s := range small.vars {
		if len(s) == 0 {
			continue
		}
		bs := big.vars[v]
		for src := range s {
			if !bs[src] {
				return false
			}
		}
	}
	return true
}

type lattice struct {
	// initial is the fact at function entry, with the parameters already tainted
	initial Fact
}

func (l lattice) Bottom() Fact { return l.initial }
func (l lattice) Top() Fact    { return Fact{isTop: true} }
