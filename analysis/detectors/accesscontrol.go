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
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/report"
)

// privilegedNames are storage variable names whose writers are expected to be
// guarded
var privilegedNames = []string{"owner", "admin", "operator", "governance", "implementation", "paused", "minter"}

func isPrivilegedVar(varKey string) bool {
	name := varKey
	if i := strings.LastIndex(varKey, "."); i >= 0 {
		name = varKey[i+1:]
	}
	lower := strings.ToLower(name)
	for _, p := range privilegedNames {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// accessControlDetector reports exposed functions that write privileged storage
// without any caller check, and unguarded selfdestruct/delegatecall.
type accessControlDetector struct{}

func (accessControlDetector) Name() string { return "missing-access-control" }

func (accessControlDetector) RequiredPasses() []analysis.PassId {
	return []analysis.PassId{analysis.SymbolTablePass, analysis.StateMutationPass, analysis.AccessControlPass}
}

func (d accessControlDetector) Detect(s *analysis.State) []report.Bug {
	access := s.MustAccessControl()
	mutation := s.MustMutationMap()

	var bugs []report.Bug
	lang.IterateFunctions(s.SourceUnits, func(fn *lang.FunctionDefinition) {
		qn := fn.QualifiedName()
		if fn.Contract == "" || !fn.IsExposed() || fn.IsConstructor {
			return
		}
		if access.IsGuarded(qn) {
			return
		}

		for _, varKey := range mutation.Writes(qn) {
			if !isPrivilegedVar(varKey) {
				continue
			}
			bugs = append(bugs, report.Bug{
				Detector:       d.Name(),
				Function:       qn,
				Message:        fmt.Sprintf("exposed function writes privileged variable %s without a caller check", varKey),
				Kind:           report.Vulnerability,
				Risk:           report.High,
				Conf:           report.MediumConfidence,
				SWC:            "SWC-105",
				CWE:            "CWE-284",
				Recommendation: "restrict the function with an authorization modifier",
				Pos:            fn.Pos,
			})
		}

		for _, danger := range dangerousCalls(fn) {
			bugs = append(bugs, report.Bug{
				Detector:       d.Name(),
				Function:       qn,
				Message:        fmt.Sprintf("exposed function reaches %s without a caller check", danger.kind),
				Kind:           report.Vulnerability,
				Risk:           report.Critical,
				Conf:           report.HighConfidence,
				SWC:            "SWC-106",
				CWE:            "CWE-284",
				Recommendation: "restrict the function with an authorization modifier",
				Pos:            danger.pos,
			})
		}
	})
	return bugs
}

type dangerousCall struct {
	kind string
	pos  lang.Pos
}

func dangerousCalls(fn *lang.FunctionDefinition) []dangerousCall {
	var out []dangerousCall
	lang.VisitExpressions(fn.Body, func(e lang.Expression) {
		call, ok := e.(*lang.CallExpression)
		if !ok {
			return
		}
		switch callee := call.Callee.(type) {
		case *lang.Identifier:
			if callee.Name == "selfdestruct" {
				out = append(out, dangerousCall{kind: "selfdestruct", pos: call.Pos})
			}
		case *lang.MemberAccess:
			if callee.Member == "delegatecall" {
				out = append(out, dangerousCall{kind: "delegatecall", pos: call.Pos})
			}
		}
	})
	return out
}
