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

// Package analysis orchestrates the analysis passes over a contract set: it owns
// the shared state the passes populate and the manager that schedules them in
// dependency order.
package analysis

import "fmt"

// PassId identifies an analysis pass. The set of passes is closed; each id has a
// stable string form used in configuration and reports.
type PassId int

const (
	// SymbolTablePass indexes contracts, functions and modifiers by name
	SymbolTablePass PassId = iota
	// InheritancePass checks every contract linearizes cleanly
	InheritancePass
	// CfgPass builds a control-flow graph per function
	CfgPass
	// CallGraphPass builds the inter-procedural call graph
	CallGraphPass
	// DefUsePass computes per-function def-use chains
	DefUsePass
	// TaintPass tracks attacker-influenced values to sinks
	TaintPass
	// StateMutationPass indexes storage reads and writes per function
	StateMutationPass
	// AccessControlPass identifies guard modifiers and the functions they protect
	AccessControlPass

	numPassIds // sentinel, keep last
)

var passIdNames = map[PassId]string{
	SymbolTablePass:   "symbol-table",
	InheritancePass:   "inheritance",
	CfgPass:           "cfg",
	CallGraphPass:     "call-graph",
	DefUsePass:        "def-use",
	TaintPass:         "taint-analysis",
	StateMutationPass: "state-mutation",
	AccessControlPass: "access-control",
}

// passMeta carries scheduling metadata: whether the pass consumes the per-function
// control-flow graphs and whether it combines syntactic facts with solved dataflow
// facts. Used for registration validation only, never for dispatch.
type passMeta struct {
	requiresIR bool
	hybrid     bool
}

var passMetas = map[PassId]passMeta{
	CallGraphPass: {requiresIR: true},
	DefUsePass:    {requiresIR: true},
	TaintPass:     {requiresIR: true, hybrid: true},
}

// RequiresIR reports whether the pass reads the control-flow graphs; such a pass
// must declare CfgPass among its dependencies.
func (id PassId) RequiresIR() bool { return passMetas[id].requiresIR }

// IsHybrid reports whether the pass mixes syntactic scanning with dataflow results
func (id PassId) IsHybrid() bool { return passMetas[id].hybrid }

func (id PassId) String() string {
	if name, ok := passIdNames[id]; ok {
		return name
	}
	return fmt.Sprintf("pass(%d)", int(id))
}

// PassIdFromString parses the string form of a pass id
func PassIdFromString(s string) (PassId, bool) {
	for id, name := range passIdNames {
		if name == s {
			return id, true
		}
	}
	return 0, false
}

// AllPassIds returns every pass id in declaration order
func AllPassIds() []PassId {
	ids := make([]PassId, 0, int(numPassIds))
	for id := PassId(0); id < numPassIds; id++ {
		ids = append(ids, id)
	}
	return ids
}
