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

// Package detectors holds the bug detectors that consume the analysis artifacts
// and produce findings.
package detectors

import (
	"github.com/solguard/solguard/analysis"
	"github.com/solguard/solguard/analysis/report"
)

// Detector inspects the analysis state and reports findings. RequiredPasses lists
// the artifacts the detector reads; a detector is skipped when one is missing.
type Detector interface {
	Name() string
	RequiredPasses() []analysis.PassId
	Detect(s *analysis.State) []report.Bug
}

// All returns every registered detector
func All() []Detector {
	return []Detector{
		ceiDetector{},
		reentrancyDetector{},
		accessControlDetector{},
		deadCodeDetector{},
		txOriginDetector{},
	}
}

// RunAll runs the detectors selected by the configuration. A detector whose
// required passes did not complete is skipped with a warning instead of failing
// the run.
func RunAll(s *analysis.State) []report.Bug {
	var bugs []report.Bug
	for _, d := range All() {
		if !s.Config.RunsDetector(d.Name()) {
			continue
		}
		if missing, ok := missingPass(s, d); !ok {
			s.Logger.Warnf("detector %s skipped: pass %s did not complete", d.Name(), missing)
			continue
		}
		found := d.Detect(s)
		s.Logger.Debugf("detector %s: %d finding(s)", d.Name(), len(found))
		bugs = append(bugs, found...)
	}
	report.Sort(bugs)
	return bugs
}

func missingPass(s *analysis.State, d Detector) (analysis.PassId, bool) {
	for _, id := range d.RequiredPasses() {
		if !s.Completed(id) {
			return id, false
		}
	}
	return 0, true
}
