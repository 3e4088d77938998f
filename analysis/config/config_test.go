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

package config

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunsDetector(t *testing.T) {
	conf := NewDefault()
	if !conf.RunsDetector("reentrancy") {
		t.Error("an empty detector list selects everything")
	}

	conf.Detectors = []string{"dead-code", "tx-origin-auth"}
	if !conf.RunsDetector("dead-code") {
		t.Error("listed detector should be selected")
	}
	if conf.RunsDetector("reentrancy") {
		t.Error("unlisted detector should not be selected")
	}
}

func TestSilenceWarn(t *testing.T) {
	conf := NewDefault()
	conf.SilenceWarn = true
	l := NewLogGroup(conf)
	var buf bytes.Buffer
	l.SetAllOutput(&buf)
	l.SetAllFlags(0)

	l.Warnf("noisy warning")
	if strings.Contains(buf.String(), "noisy warning") {
		t.Errorf("silence-warn should suppress warnings, got %q", buf.String())
	}

	// errors are never silenced
	l.Errorf("real error")
	if !strings.Contains(buf.String(), "real error") {
		t.Errorf("errors must still be logged, got %q", buf.String())
	}

	conf.SilenceWarn = false
	l = NewLogGroup(conf)
	buf.Reset()
	l.SetAllOutput(&buf)
	l.Warnf("visible warning")
	if !strings.Contains(buf.String(), "visible warning") {
		t.Errorf("warnings should pass through by default, got %q", buf.String())
	}
}
