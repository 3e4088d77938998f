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
	"fmt"
	"io"

	"github.com/solguard/solguard/internal/formatutil"
)

func riskColor(r RiskLevel) func(...interface{}) string {
	switch r {
	case Critical, High:
		return formatutil.Red
	case Medium:
		return formatutil.Yellow
	case Low:
		return formatutil.Cyan
	default:
		return formatutil.Faint
	}
}

// WriteText renders the findings as a plain-text report, one block per finding,
// sorted by location.
func WriteText(w io.Writer, bugs []Bug) error {
	Sort(bugs)

	for _, b := range bugs {
		header := fmt.Sprintf("[%s] %s", b.Risk, b.Detector)
		if _, err := fmt.Fprintln(w, riskColor(b.Risk)(header)); err != nil {
			return err
		}
		if b.Function != "" {
			fmt.Fprintf(w, "  function:   %s\n", b.Function)
		}
		fmt.Fprintf(w, "  location:   %s\n", b.Pos)
		fmt.Fprintf(w, "  message:    %s\n", b.Message)
		fmt.Fprintf(w, "  kind:       %s\n", b.Kind)
		fmt.Fprintf(w, "  confidence: %s\n", b.Conf)
		if b.SWC != "" || b.CWE != "" {
			ids := b.SWC
			if b.CWE != "" {
				if ids != "" {
					ids += ", "
				}
				ids += b.CWE
			}
			fmt.Fprintf(w, "  references: %s\n", ids)
		}
		if b.Recommendation != "" {
			fmt.Fprintf(w, "  fix:        %s\n", b.Recommendation)
		}
		fmt.Fprintln(w)
	}

	summary := fmt.Sprintf("%d finding(s)", len(bugs))
	if len(bugs) == 0 {
		_, err := fmt.Fprintln(w, formatutil.Green("no findings"))
		return err
	}
	_, err := fmt.Fprintln(w, formatutil.Bold(summary))
	return err
}
