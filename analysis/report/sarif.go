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

package report

import (
	"encoding/json"
)

// toolName identifies the driver in SARIF output
const toolName = "solguard"

type sarif struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Locations  []sarifLoc        `json:"locations"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	Physical sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

func sarifLevel(r RiskLevel) string {
	switch r {
	case Info, Low:
		return "note"
	case Medium:
		return "warning"
	default:
		return "error"
	}
}

// ToSARIF renders the findings as a SARIF 2.1.0 document
func ToSARIF(bugs []Bug) ([]byte, error) {
	Sort(bugs)

	ruleSeen := map[string]bool{}
	var rules []sarifRule
	var results []sarifResult
	for _, b := range bugs {
		if !ruleSeen[b.Detector] {
			ruleSeen[b.Detector] = true
			desc := b.Detector
			if b.SWC != "" {
				desc = desc + " (" + b.SWC + ")"
			}
			rules = append(rules, sarifRule{ID: b.Detector, ShortDescription: sarifMessage{Text: desc}})
		}
		results = append(results, sarifResult{
			RuleID:  b.Detector,
			Level:   sarifLevel(b.Risk),
			Message: sarifMessage{Text: b.Message},
			Locations: []sarifLoc{{Physical: sarifPhys{
				ArtifactLocation: sarifArt{URI: b.Pos.File},
				Region:           sarifRegion{StartLine: b.Pos.Line, StartColumn: b.Pos.Column},
			}}},
			Properties: map[string]string{
				"kind":       b.Kind.String(),
				"confidence": b.Conf.String(),
			},
		})
	}

	doc := sarif{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: toolName, Rules: rules}},
			Results: results,
		}},
	}
	return json.MarshalIndent(doc, "", "  ")
}
