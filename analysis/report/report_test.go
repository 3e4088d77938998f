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
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/solguard/solguard/analysis/lang"
)

func sampleBugs() []Bug {
	return []Bug{
		{
			Detector: "reentrancy",
			Function: "Vault.withdraw",
			Message:  "state written after external call",
			Kind:     Vulnerability,
			Risk:     High,
			Conf:     MediumConfidence,
			SWC:      "SWC-107",
			CWE:      "CWE-841",
			Pos:      lang.Pos{File: "vault.sol", Line: 42, Column: 9},
		},
		{
			Detector: "tx-origin",
			Function: "Vault.auth",
			Message:  "tx.origin used for authorization",
			Kind:     Vulnerability,
			Risk:     Medium,
			Conf:     HighConfidence,
			SWC:      "SWC-115",
			Pos:      lang.Pos{File: "vault.sol", Line: 10, Column: 5},
		},
	}
}

func TestSortByLocation(t *testing.T) {
	bugs := sampleBugs()
	Sort(bugs)
	if bugs[0].Pos.Line != 10 || bugs[1].Pos.Line != 42 {
		t.Errorf("findings should be sorted by line, got %d then %d", bugs[0].Pos.Line, bugs[1].Pos.Line)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleBugs()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"reentrancy", "Vault.withdraw", "vault.sol:42:9", "SWC-107", "vulnerability", "2 finding(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("report should contain %q:\n%s", want, out)
		}
	}
}

func TestWriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no findings") {
		t.Errorf("empty report should say so, got %q", buf.String())
	}
}

func TestToSARIF(t *testing.T) {
	b, err := ToSARIF(sampleBugs())
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc["version"] != "2.1.0" {
		t.Errorf("version = %v, want 2.1.0", doc["version"])
	}

	runs := doc["runs"].([]any)
	run := runs[0].(map[string]any)
	results := run["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	first := results[0].(map[string]any)
	// tx-origin at line 10 sorts first and is medium risk
	if first["ruleId"] != "tx-origin" || first["level"] != "warning" {
		t.Errorf("unexpected first result: %v", first)
	}
	props := first["properties"].(map[string]any)
	if props["kind"] != "vulnerability" {
		t.Errorf("result properties should carry the finding kind, got %v", props)
	}
	driver := run["tool"].(map[string]any)["driver"].(map[string]any)
	if driver["name"] != "solguard" {
		t.Errorf("driver name = %v", driver["name"])
	}
	if len(driver["rules"].([]any)) != 2 {
		t.Errorf("expected one rule per detector")
	}
}
