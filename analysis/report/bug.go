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

// Package report defines the finding record produced by the detectors and the
// writers that render findings as text or SARIF.
package report

import (
	"fmt"
	"sort"

	"github.com/solguard/solguard/analysis/lang"
)

// RiskLevel grades the severity of a finding
type RiskLevel int

const (
	// Info findings are observations without direct security impact
	Info RiskLevel = iota
	// Low findings require unusual conditions to exploit
	Low
	// Medium findings are exploitable under common conditions
	Medium
	// High findings are directly exploitable
	High
	// Critical findings allow theft or destruction of funds
	Critical
)

func (r RiskLevel) String() string {
	switch r {
	case Info:
		return "info"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	}
	return "?"
}

// ParseRiskLevel maps a name like "high" to its RiskLevel
func ParseRiskLevel(s string) (RiskLevel, error) {
	for r := Info; r <= Critical; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return Info, fmt.Errorf("unknown risk level %q", s)
}

// BugKind separates security findings from code-quality ones
type BugKind int

const (
	// Vulnerability findings are exploitable weaknesses
	Vulnerability BugKind = iota
	// Refactoring findings are code-quality issues without a direct exploit
	Refactoring
)

func (k BugKind) String() string {
	switch k {
	case Vulnerability:
		return "vulnerability"
	case Refactoring:
		return "refactoring"
	}
	return "?"
}

// Confidence grades how likely a finding is a true positive
type Confidence int

const (
	// LowConfidence findings come from coarse heuristics
	LowConfidence Confidence = iota
	// MediumConfidence findings have supporting dataflow evidence
	MediumConfidence
	// HighConfidence findings follow from the analyzed structure directly
	HighConfidence
)

func (c Confidence) String() string {
	switch c {
	case LowConfidence:
		return "low"
	case MediumConfidence:
		return "medium"
	case HighConfidence:
		return "high"
	}
	return "?"
}

// Bug is one finding. CWE and SWC carry the public weakness identifiers when the
// detector maps to one.
type Bug struct {
	// Detector is the name of the detector that produced the finding
	Detector string

	// Function is the qualified name of the affected function, may be empty for
	// contract-level findings
	Function string

	// Message is the human-readable description
	Message string

	// Kind says whether the finding is a vulnerability or refactoring advice
	Kind BugKind

	// Risk and Conf grade the finding
	Risk RiskLevel
	Conf Confidence

	// CWE is the Common Weakness Enumeration id ("CWE-841"), optional
	CWE string

	// SWC is the Smart Contract Weakness Classification id ("SWC-107"), optional
	SWC string

	// Recommendation suggests a fix, optional
	Recommendation string

	Pos lang.Pos
}

// Sort orders findings for stable output: by file, line, then detector name
func Sort(bugs []Bug) {
	sort.Slice(bugs, func(i, j int) bool {
		a, b := bugs[i], bugs[j]
		if a.Pos.File != b.Pos.File {
			return a.Pos.File < b.Pos.File
		}
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		return a.Detector < b.Detector
	})
}
