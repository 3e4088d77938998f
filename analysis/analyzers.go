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
	"fmt"

	"github.com/solguard/solguard/analysis/callgraph"
	"github.com/solguard/solguard/analysis/cfg"
	"github.com/solguard/solguard/analysis/dataflow"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/symbols"
	"github.com/solguard/solguard/analysis/taint"
	"github.com/solguard/solguard/internal/funcutil"
)

// StandardPasses returns the full pipeline in registration order
func StandardPasses() []Pass {
	return []Pass{
		symbolTablePass{},
		inheritancePass{},
		cfgPass{},
		callGraphPass{},
		defUsePass{},
		taintPass{},
		mutationPass{},
		accessControlPass{},
	}
}

// RunStandardPasses runs the full pipeline over the state
func RunStandardPasses(s *State) error {
	pm := NewPassManager()
	for _, p := range StandardPasses() {
		pm.Register(p)
	}
	return pm.Run(s)
}

type symbolTablePass struct{}

func (symbolTablePass) ID() PassId            { return SymbolTablePass }
func (symbolTablePass) Dependencies() []PassId { return nil }
func (symbolTablePass) IsCompleted(s *State) bool { return s.Completed(SymbolTablePass) }

func (symbolTablePass) Run(s *State) error {
	table, err := symbols.Build(s.SourceUnits)
	if err != nil {
		return err
	}
	s.SetSymbolTable(table)
	s.Logger.Infof("symbol table: %d contracts, %d functions", len(table.ContractNames), len(table.Functions))
	return nil
}

type inheritancePass struct{}

func (inheritancePass) ID() PassId            { return InheritancePass }
func (inheritancePass) Dependencies() []PassId { return []PassId{SymbolTablePass} }
func (inheritancePass) IsCompleted(s *State) bool { return s.Completed(InheritancePass) }

// Run checks every contract has a consistent linearization. Failures are recorded
// per contract; the pass itself completes so downstream passes can analyze the
// contracts that do linearize.
func (p inheritancePass) Run(s *State) error {
	table := s.MustSymbolTable()
	for _, name := range table.ContractNames {
		if _, err := table.Linearize(name); err != nil {
			s.AddError(p.ID().String(), fmt.Errorf("contract %s: %w", name, err))
			s.Logger.Warnf("contract %s does not linearize: %v", name, err)
		}
	}
	s.markCompleted(InheritancePass)
	return nil
}

type cfgPass struct{}

func (cfgPass) ID() PassId            { return CfgPass }
func (cfgPass) Dependencies() []PassId { return nil }
func (cfgPass) IsCompleted(s *State) bool { return s.Completed(CfgPass) }

func (cfgPass) Run(s *State) error {
	var fns []*lang.FunctionDefinition
	lang.IterateFunctions(s.SourceUnits, func(fn *lang.FunctionDefinition) {
		if fn.Contract == "" || s.Config.MatchContractFilter(fn.Contract) {
			fns = append(fns, fn)
		}
	})

	graphs := funcutil.MapParallel(fns, cfg.Build, s.Config.NumWorkers)

	cfgs := make(map[string]*cfg.ControlFlowGraph, len(graphs))
	for _, g := range graphs {
		cfgs[g.FuncName] = g
	}
	s.SetCfgs(cfgs)
	s.Logger.Infof("built %d control-flow graphs", len(cfgs))
	return nil
}

type callGraphPass struct{}

func (callGraphPass) ID() PassId            { return CallGraphPass }
func (callGraphPass) Dependencies() []PassId { return []PassId{CfgPass} }
func (callGraphPass) IsCompleted(s *State) bool { return s.Completed(CallGraphPass) }

func (callGraphPass) Run(s *State) error {
	cg := callgraph.Build(s.SourceUnits, s.MustCfgs())
	s.SetCallGraph(cg)
	s.Logger.Infof("call graph: %d sites, %d recursive functions", len(cg.Sites), len(cg.Recursive))
	return nil
}

type defUsePass struct{}

func (defUsePass) ID() PassId            { return DefUsePass }
func (defUsePass) Dependencies() []PassId { return []PassId{CfgPass} }
func (defUsePass) IsCompleted(s *State) bool { return s.Completed(DefUsePass) }

// Run builds def-use chains per function. A function whose solve fails is skipped
// with a recorded error rather than failing the whole pass.
func (p defUsePass) Run(s *State) error {
	chains := map[string]*dataflow.DefUseChains{}
	for name, g := range s.MustCfgs() {
		du, err := dataflow.BuildDefUse(g, s.Config.MaxIterations)
		if err != nil {
			s.AddError(p.ID().String(), fmt.Errorf("function %s: %w", name, err))
			s.Logger.Warnf("def-use analysis of %s failed: %v", name, err)
			continue
		}
		chains[name] = du
	}
	s.SetDefUse(chains)
	return nil
}

type taintPass struct{}

func (taintPass) ID() PassId            { return TaintPass }
func (taintPass) Dependencies() []PassId { return []PassId{SymbolTablePass, CfgPass} }
func (taintPass) IsCompleted(s *State) bool { return s.Completed(TaintPass) }

func (taintPass) Run(s *State) error {
	result := taint.Analyze(s.SourceUnits, s.MustCfgs(), s.MustSymbolTable(), s.Config, s.Logger)
	s.SetTaint(result)
	s.Logger.Infof("taint analysis: %d sink hits", len(result.Hits))
	return nil
}

type mutationPass struct{}

func (mutationPass) ID() PassId            { return StateMutationPass }
func (mutationPass) Dependencies() []PassId { return []PassId{SymbolTablePass} }
func (mutationPass) IsCompleted(s *State) bool { return s.Completed(StateMutationPass) }

func (mutationPass) Run(s *State) error {
	s.SetMutationMap(taint.BuildMutationMap(s.SourceUnits, s.MustSymbolTable()))
	return nil
}

type accessControlPass struct{}

func (accessControlPass) ID() PassId            { return AccessControlPass }
func (accessControlPass) Dependencies() []PassId { return []PassId{SymbolTablePass} }
func (accessControlPass) IsCompleted(s *State) bool { return s.Completed(AccessControlPass) }

func (accessControlPass) Run(s *State) error {
	s.SetAccessControl(BuildAccessControl(s.SourceUnits, s.MustSymbolTable()))
	return nil
}
