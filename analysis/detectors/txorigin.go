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
	"github.com/solguard/solguard/analysis"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/report"
)

// txOriginDetector reports tx.origin used in a comparison or require, where it
// almost always stands in for msg.sender and is phishable through an intermediate
// contract.
type txOriginDetector struct{}

func (txOriginDetector) Name() string { return "tx-origin-auth" }

func (txOriginDetector) RequiredPasses() []analysis.PassId { return nil }

func (d txOriginDetector) Detect(s *analysis.State) []report.Bug {
	var bugs []report.Bug
	lang.IterateFunctions(s.SourceUnits, func(fn *lang.FunctionDefinition) {
		for _, pos := range txOriginChecks(fn.Body) {
			bugs = append(bugs, report.Bug{
				Detector:       d.Name(),
				Function:       fn.QualifiedName(),
				Message:        "tx.origin used in an authorization check",
				Kind:           report.Vulnerability,
				Risk:           report.Medium,
				Conf:           report.HighConfidence,
				SWC:            "SWC-115",
				CWE:            "CWE-477",
				Recommendation: "compare against msg.sender instead of tx.origin",
				Pos:            pos,
			})
		}
	})
	return bugs
}

// txOriginChecks finds tx.origin inside comparisons and require/assert conditions
func txOriginChecks(body []lang.Statement) []lang.Pos {
	var found []lang.Pos
	record := func(e lang.Expression) {
		found = lang.FoldExprTree(e, found, func(acc []lang.Pos, x lang.Expression) []lang.Pos {
			if ma, ok := x.(*lang.MemberAccess); ok && lang.ExprString(ma) == "tx.origin" {
				return append(acc, ma.Pos)
			}
			return acc
		})
	}
	lang.VisitStatements(body, func(stmt lang.Statement) {
		switch s := stmt.(type) {
		case *lang.IfStatement:
			record(s.Condition)
		case *lang.ExpressionStatement:
			call, ok := s.Expression.(*lang.CallExpression)
			if !ok {
				return
			}
			if id, ok := call.Callee.(*lang.Identifier); ok && (id.Name == "require" || id.Name == "assert") {
				for _, arg := range call.Args {
					record(arg)
				}
			}
		}
	})
	return found
}
