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

	"github.com/solguard/solguard/analysis"
	"github.com/solguard/solguard/analysis/report"
)

// deadCodeDetector reports statements that can never execute: blocks disconnected
// from the function entry, which the CFG builder produces for code following a
// return, revert, break or continue.
type deadCodeDetector struct{}

func (deadCodeDetector) Name() string { return "dead-code" }

func (deadCodeDetector) RequiredPasses() []analysis.PassId {
	return []analysis.PassId{analysis.CfgPass}
}

func (d deadCodeDetector) Detect(s *analysis.State) []report.Bug {
	var bugs []report.Bug
	for name, g := range s.MustCfgs() {
		reachable := g.Reachable()
		for _, id := range g.BlockIDs() {
			block := g.Blocks[id]
			if reachable[id] || len(block.Stmts) == 0 {
				continue
			}
			bugs = append(bugs, report.Bug{
				Detector:       d.Name(),
				Function:       name,
				Message:        fmt.Sprintf("unreachable code (%d statement(s) can never execute)", len(block.Stmts)),
				Kind:           report.Refactoring,
				Risk:           report.Info,
				Conf:           report.HighConfidence,
				SWC:            "SWC-135",
				CWE:            "CWE-561",
				Recommendation: "remove the unreachable statements",
				Pos:            block.Stmts[0].Pos,
			})
		}
	}
	return bugs
}
