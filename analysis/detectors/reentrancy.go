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

package detectors

import (
	"fmt"
	"strings"

	"github.com/solguard/solguard/analysis"
	"github.com/solguard/solguard/analysis/callgraph"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/report"
	"github.com/solguard/solguard/internal/funcutil"
)

// reentrancyDetector reports exposed functions where a low-level external call is
// followed by a storage write. Unlike the ordering detector, it only fires on call
// forms that hand the callee enough gas to re-enter, and grades them higher.
type reentrancyDetector struct{}

func (reentrancyDetector) Name() string { return "reentrancy" }

func (reentrancyDetector) RequiredPasses() []analysis.PassId {
	return []analysis.PassId{analysis.SymbolTablePass, analysis.CfgPass, analysis.CallGraphPass, analysis.TaintPass}
}

// onCallCycle collects the functions participating in some elementary call cycle
func onCallCycle(cg *callgraph.CallGraph) map[string]bool {
	members := map[string]bool{}
	for _, cycle := range cg.Cycles() {
		set := make(map[string]bool, len(cycle))
		for _, name := range cycle {
			set[name] = true
		}
		funcutil.Union(members, set)
	}
	return members
}

func (d reentrancyDetector) Detect(s *analysis.State) []report.Bug {
	table := s.MustSymbolTable()
	cfgs := s.MustCfgs()
	taintResult := s.MustTaint()
	cyclic := onCallCycle(s.MustCallGraph())

	var bugs []report.Bug
	lang.IterateFunctions(s.SourceUnits, func(fn *lang.FunctionDefinition) {
		g, ok := cfgs[fn.QualifiedName()]
		if !ok || fn.Contract == "" || !fn.IsExposed() {
			return
		}
		if hasReentrancyGuard(fn) {
			return
		}
		for _, v := range externalThenWrite(fn, g, table) {
			// transfer/send forward a fixed gas stipend too small to re-enter
			if !v.class.LowLevel {
				continue
			}
			conf := report.MediumConfidence
			// attacker influence over the call, or the function sitting on a call
			// cycle, strengthens the finding
			if taintResult.TaintedAt(fn.QualifiedName(), v.block, v.class.BaseName) || cyclic[fn.QualifiedName()] {
				conf = report.HighConfidence
			}
			bugs = append(bugs, report.Bug{
				Detector: d.Name(),
				Function: fn.QualifiedName(),
				Message: fmt.Sprintf("storage variable %s written after re-enterable call %s",
					strings.Join(v.vars, ", "), v.class.CalleeName),
				Kind:           report.Vulnerability,
				Risk:           report.High,
				Conf:           conf,
				SWC:            "SWC-107",
				CWE:            "CWE-841",
				Recommendation: "apply a reentrancy guard or complete all storage updates before the call",
				Pos:            v.call.Pos,
			})
		}
	})
	return bugs
}
