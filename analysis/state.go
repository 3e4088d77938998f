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

package analysis

import (
	"errors"
	"fmt"
	"sync"

	"github.com/solguard/solguard/analysis/callgraph"
	"github.com/solguard/solguard/analysis/cfg"
	"github.com/solguard/solguard/analysis/config"
	"github.com/solguard/solguard/analysis/dataflow"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/symbols"
	"github.com/solguard/solguard/analysis/taint"
)

// ErrMissingArtifact is returned by the typed accessors when the producing pass has
// not run or did not complete.
var ErrMissingArtifact = errors.New("analysis artifact not available")

// State is the shared state of an analysis run. The source units are set at
// construction; each artifact slot is populated by exactly one pass, and consumers
// go through the typed accessors, which report a missing artifact instead of
// handing out nil.
type State struct {
	Logger *config.LogGroup
	Config *config.Config

	// SourceUnits are the normalized inputs of the run
	SourceUnits []*lang.SourceUnit

	symbolTable *symbols.SymbolTable
	cfgs        map[string]*cfg.ControlFlowGraph
	callGraph   *callgraph.CallGraph
	defUse      map[string]*dataflow.DefUseChains
	taintResult *taint.Result
	mutationMap *taint.StateMutationMap
	access      *AccessControlInfo

	completed map[PassId]bool

	errorMutex sync.Mutex
	errors     map[string][]error
}

// NewState initializes the state for a run over the given source units
func NewState(units []*lang.SourceUnit, conf *config.Config, logger *config.LogGroup) *State {
	return &State{
		Logger:      logger,
		Config:      conf,
		SourceUnits: units,
		completed:   map[PassId]bool{},
		errors:      map[string][]error{},
	}
}

// AddError adds an error with key and keeps track of it in the state
func (s *State) AddError(key string, err error) {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	if err != nil {
		s.errors[key] = append(s.errors[key], err)
	}
}

// CheckError checks whether there is an error in the state, and if there is, returns
// the first of them and removes it.
func (s *State) CheckError() error {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	for key, errs := range s.errors {
		if len(errs) > 0 {
			err := errs[0]
			s.errors[key] = errs[1:]
			if len(s.errors[key]) == 0 {
				delete(s.errors, key)
			}
			return err
		}
	}
	return nil
}

// HasErrors reports whether any pass recorded an error
func (s *State) HasErrors() bool {
	s.errorMutex.Lock()
	defer s.errorMutex.Unlock()
	for _, errs := range s.errors {
		if len(errs) > 0 {
			return true
		}
	}
	return false
}

// Completed reports whether the pass has run to completion in this state
func (s *State) Completed(id PassId) bool {
	return s.completed[id]
}

func (s *State) markCompleted(id PassId) {
	s.completed[id] = true
}

// SetSymbolTable stores the symbol table and marks the producing pass complete
func (s *State) SetSymbolTable(t *symbols.SymbolTable) {
	s.symbolTable = t
	s.markCompleted(SymbolTablePass)
}

// SymbolTable returns the symbol table artifact
func (s *State) SymbolTable() (*symbols.SymbolTable, error) {
	if s.symbolTable == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, SymbolTablePass)
	}
	return s.symbolTable, nil
}

// MustSymbolTable is SymbolTable for callers whose dependencies are already checked
func (s *State) MustSymbolTable() *symbols.SymbolTable {
	t, err := s.SymbolTable()
	if err != nil {
		panic(err)
	}
	return t
}

// SetCfgs stores the per-function control-flow graphs
func (s *State) SetCfgs(cfgs map[string]*cfg.ControlFlowGraph) {
	s.cfgs = cfgs
	s.markCompleted(CfgPass)
}

// Cfgs returns the control-flow graphs keyed by qualified function name
func (s *State) Cfgs() (map[string]*cfg.ControlFlowGraph, error) {
	if s.cfgs == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, CfgPass)
	}
	return s.cfgs, nil
}

// MustCfgs is Cfgs for callers whose dependencies are already checked
func (s *State) MustCfgs() map[string]*cfg.ControlFlowGraph {
	cfgs, err := s.Cfgs()
	if err != nil {
		panic(err)
	}
	return cfgs
}

// SetCallGraph stores the call graph artifact
func (s *State) SetCallGraph(cg *callgraph.CallGraph) {
	s.callGraph = cg
	s.markCompleted(CallGraphPass)
}

// CallGraph returns the call graph artifact
func (s *State) CallGraph() (*callgraph.CallGraph, error) {
	if s.callGraph == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, CallGraphPass)
	}
	return s.callGraph, nil
}

// MustCallGraph is CallGraph for callers whose dependencies are already checked
func (s *State) MustCallGraph() *callgraph.CallGraph {
	cg, err := s.CallGraph()
	if err != nil {
		panic(err)
	}
	return cg
}

// SetDefUse stores the def-use chains keyed by qualified function name
func (s *State) SetDefUse(chains map[string]*dataflow.DefUseChains) {
	s.defUse = chains
	s.markCompleted(DefUsePass)
}

// DefUse returns the def-use chains artifact
func (s *State) DefUse() (map[string]*dataflow.DefUseChains, error) {
	if s.defUse == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, DefUsePass)
	}
	return s.defUse, nil
}

// SetTaint stores the taint analysis result
func (s *State) SetTaint(r *taint.Result) {
	s.taintResult = r
	s.markCompleted(TaintPass)
}

// Taint returns the taint analysis artifact
func (s *State) Taint() (*taint.Result, error) {
	if s.taintResult == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, TaintPass)
	}
	return s.taintResult, nil
}

// MustTaint is Taint for callers whose dependencies are already checked
func (s *State) MustTaint() *taint.Result {
	r, err := s.Taint()
	if err != nil {
		panic(err)
	}
	return r
}

// SetMutationMap stores the state-mutation index
func (s *State) SetMutationMap(m *taint.StateMutationMap) {
	s.mutationMap = m
	s.markCompleted(StateMutationPass)
}

// MutationMap returns the state-mutation artifact
func (s *State) MutationMap() (*taint.StateMutationMap, error) {
	if s.mutationMap == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, StateMutationPass)
	}
	return s.mutationMap, nil
}

// MustMutationMap is MutationMap for callers whose dependencies are already checked
func (s *State) MustMutationMap() *taint.StateMutationMap {
	m, err := s.MutationMap()
	if err != nil {
		panic(err)
	}
	return m
}

// SetAccessControl stores the access-control summary
func (s *State) SetAccessControl(a *AccessControlInfo) {
	s.access = a
	s.markCompleted(AccessControlPass)
}

// AccessControl returns the access-control artifact
func (s *State) AccessControl() (*AccessControlInfo, error) {
	if s.access == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, AccessControlPass)
	}
	return s.access, nil
}

// MustAccessControl is AccessControl for callers whose dependencies are already checked
func (s *State) MustAccessControl() *AccessControlInfo {
	a, err := s.AccessControl()
	if err != nil {
		panic(err)
	}
	return a
}
