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

package taint

import (
	"testing"

	"github.com/solguard/solguard/analysis/cfg"
	"github.com/solguard/solguard/analysis/config"
	"github.com/solguard/solguard/analysis/lang"
	"github.com/solguard/solguard/analysis/symbols"
)

func ident(name string) *lang.Identifier { return &lang.Identifier{Name: name} }

func member(base, m string) *lang.MemberAccess {
	return &lang.MemberAccess{Base: ident(base), Member: m}
}

func assign(lhs lang.Expression, rhs lang.Expression) lang.Statement {
	return &lang.ExpressionStatement{
		Expression: &lang.Assignment{LHS: lhs, Operator: "=", RHS: rhs},
	}
}

func callOn(base, m string, args ...lang.Expression) lang.Statement {
	return &lang.ExpressionStatement{
		Expression: &lang.CallExpression{Callee: member(base, m), Args: args},
	}
}

func callTo(name string, args ...lang.Expression) lang.Statement {
	return &lang.ExpressionStatement{
		Expression: &lang.CallExpression{Callee: ident(name), Args: args},
	}
}

func analyzeFunc(t *testing.T, conf *config.Config, fn *lang.FunctionDefinition, stateVars ...string) *Result {
	t.Helper()
	contract := &lang.ContractDefinition{Name: fn.Contract, Kind: lang.KindContract, Functions: []*lang.FunctionDefinition{fn}}
	for _, v := range stateVars {
		contract.StateVariables = append(contract.StateVariables, &lang.StateVariable{Name: v, Type: "uint256"})
	}
	units := []*lang.SourceUnit{{Path: "t.sol", Contracts: []*lang.ContractDefinition{contract}}}
	table, err := symbols.Build(units)
	if err != nil {
		t.Fatal(err)
	}
	cfgs := map[string]*cfg.ControlFlowGraph{fn.QualifiedName(): cfg.Build(fn)}
	logger := config.NewLogGroup(conf)
	return Analyze(units, cfgs, table, conf, logger)
}

func makeFunc(name string, params []string, body ...lang.Statement) *lang.FunctionDefinition {
	fn := &lang.FunctionDefinition{
		Name:       name,
		Contract:   "C",
		Visibility: lang.Public,
		Body:       body,
	}
	for _, p := range params {
		fn.Parameters = append(fn.Parameters, &lang.Parameter{Name: p, Type: "uint256"})
	}
	return fn
}

func hasHitWithKind(hits []SinkHit, kind SourceKind) bool {
	for _, h := range hits {
		for _, s := range h.Sources {
			if s.Kind == kind {
				return true
			}
		}
	}
	return false
}

func TestFactMeetProperties(t *testing.T) {
	sender := Source{Kind: EnvironmentSource, Label: "msg.sender"}
	param := Source{Kind: ParameterSource, Label: "amount"}
	facts := []Fact{
		{isTop: true},
		{vars: map[string]sourceSet{}},
		{vars: map[string]sourceSet{"x": {sender: true}}},
		{vars: map[string]sourceSet{"x": {param: true}, "y": {sender: true}}},
	}
	for _, a := range facts {
		if !a.Meet(a).Equal(a) {
			t.Errorf("meet is not idempotent on %+v", a)
		}
		for _, b := range facts {
			if !a.Meet(b).Equal(b.Meet(a)) {
				t.Errorf("meet is not commutative on %+v, %+v", a, b)
			}
		}
	}
}

func TestEnvironmentTaintReachesSink(t *testing.T) {
	fn := makeFunc("f", nil,
		assign(ident("x"), member("msg", "sender")),
		callOn("target", "call", ident("x")),
	)
	result := analyzeFunc(t, config.NewDefault(), fn)

	if len(result.Hits) != 1 {
		t.Fatalf("got %d hits, want 1: %+v", len(result.Hits), result.Hits)
	}
	if !hasHitWithKind(result.Hits, EnvironmentSource) {
		t.Errorf("hit should carry the msg.sender source, got %+v", result.Hits[0].Sources)
	}
}

func TestParameterTaintReachesSink(t *testing.T) {
	fn := makeFunc("withdraw", []string{"amount"},
		callOn("recipient", "transfer", ident("amount")),
	)
	result := analyzeFunc(t, config.NewDefault(), fn)

	if !hasHitWithKind(result.Hits, ParameterSource) {
		t.Fatalf("parameter should taint the transfer value, got %+v", result.Hits)
	}
}

func TestInternalParametersAreNotSources(t *testing.T) {
	fn := makeFunc("payOut", []string{"amount"},
		callOn("recipient", "transfer", ident("amount")),
	)
	fn.Visibility = lang.Internal
	result := analyzeFunc(t, config.NewDefault(), fn)

	if len(result.Hits) != 0 {
		t.Errorf("internal function parameters should not be seeded, got %+v", result.Hits)
	}
}

func TestStrongUpdateClearsTaint(t *testing.T) {
	fn := makeFunc("f", nil,
		assign(ident("x"), member("msg", "sender")),
		assign(ident("x"), &lang.Literal{Kind: "number", Value: "1"}),
		callOn("target", "call", ident("x")),
	)
	result := analyzeFunc(t, config.NewDefault(), fn)

	if len(result.Hits) != 0 {
		t.Errorf("overwritten variable should be clean, got %+v", result.Hits)
	}
}

func TestBranchTaintSurvivesMerge(t *testing.T) {
	fn := makeFunc("f", nil,
		&lang.IfStatement{
			Condition: ident("cond"),
			Then:      []lang.Statement{assign(ident("x"), member("msg", "sender"))},
			Else:      []lang.Statement{assign(ident("x"), &lang.Literal{Kind: "number", Value: "0"})},
		},
		callOn("target", "call", ident("x")),
	)
	result := analyzeFunc(t, config.NewDefault(), fn)

	if len(result.Hits) != 1 {
		t.Fatalf("taint from one branch should survive the merge, got %+v", result.Hits)
	}
}

func TestExternalReturnIsSource(t *testing.T) {
	fn := makeFunc("f", nil,
		assign(ident("price"), &lang.CallExpression{Callee: member("oracle", "latestAnswer")}),
		callOn("target", "call", ident("price")),
	)
	result := analyzeFunc(t, config.NewDefault(), fn)

	if !hasHitWithKind(result.Hits, ExternalReturnSource) {
		t.Fatalf("external call return should be a source, got %+v", result.Hits)
	}
}

func TestSanitizerClearsTaint(t *testing.T) {
	conf := config.NewDefault()
	conf.TaintProblems = []config.TaintSpec{{Sanitizers: []string{"sanitize"}}}
	fn := makeFunc("f", nil,
		assign(ident("x"), &lang.CallExpression{Callee: ident("sanitize"), Args: []lang.Expression{member("msg", "sender")}}),
		callOn("target", "call", ident("x")),
	)
	result := analyzeFunc(t, conf, fn)

	if len(result.Hits) != 0 {
		t.Errorf("sanitized value should not trigger a hit, got %+v", result.Hits)
	}
}

func TestConfiguredSink(t *testing.T) {
	conf := config.NewDefault()
	conf.TaintProblems = []config.TaintSpec{{Sinks: []string{"burn"}}}
	fn := makeFunc("f", nil,
		callTo("burn", member("msg", "value")),
	)
	result := analyzeFunc(t, conf, fn)

	if len(result.Hits) != 1 {
		t.Fatalf("configured sink should be reported, got %+v", result.Hits)
	}
	if result.Hits[0].Sink != "burn" {
		t.Errorf("sink = %s, want burn", result.Hits[0].Sink)
	}
}

func TestIndexWriteKeepsBaseTaint(t *testing.T) {
	fn := makeFunc("f", nil,
		assign(ident("m"), member("msg", "data")),
		assign(&lang.IndexAccess{Base: ident("m"), Index: &lang.Literal{Kind: "number", Value: "0"}},
			&lang.Literal{Kind: "number", Value: "0"}),
		callOn("target", "call", ident("m")),
	)
	result := analyzeFunc(t, config.NewDefault(), fn)

	if len(result.Hits) != 1 {
		t.Errorf("partial write should not clear the base taint, got %+v", result.Hits)
	}
}

func hitOfKind(hits []SinkHit, kind SinkKind) *SinkHit {
	for i := range hits {
		if hits[i].Kind == kind {
			return &hits[i]
		}
	}
	return nil
}

func TestAssertConditionIsSink(t *testing.T) {
	fn := makeFunc("f", nil,
		callTo("require", &lang.BinaryExpression{
			Left:     member("tx", "origin"),
			Operator: "==",
			Right:    ident("owner"),
		}),
	)
	result := analyzeFunc(t, config.NewDefault(), fn)

	hit := hitOfKind(result.Hits, AssertSink)
	if hit == nil {
		t.Fatalf("tainted require condition should be a sink, got %+v", result.Hits)
	}
	if hit.Sink != "require" {
		t.Errorf("sink = %s, want require", hit.Sink)
	}
}

func TestStateWriteIsSink(t *testing.T) {
	fn := makeFunc("setOwner", []string{"next"},
		assign(ident("owner"), ident("next")),
	)
	result := analyzeFunc(t, config.NewDefault(), fn, "owner")

	hit := hitOfKind(result.Hits, StateWriteSink)
	if hit == nil {
		t.Fatalf("tainted storage write should be a sink, got %+v", result.Hits)
	}
	if !hasHitWithKind([]SinkHit{*hit}, ParameterSource) {
		t.Errorf("write should carry the parameter source, got %+v", hit.Sources)
	}
}

func TestShadowedWriteIsNotStateSink(t *testing.T) {
	// the parameter hides the storage variable of the same name
	fn := makeFunc("f", []string{"owner"},
		assign(ident("owner"), member("msg", "sender")),
	)
	result := analyzeFunc(t, config.NewDefault(), fn, "owner")

	if hitOfKind(result.Hits, StateWriteSink) != nil {
		t.Errorf("write to the shadowing parameter is not a storage write, got %+v", result.Hits)
	}
}

func TestTaintedIndexIsSink(t *testing.T) {
	fn := makeFunc("f", nil,
		assign(&lang.IndexAccess{Base: ident("m"), Index: member("msg", "sender")},
			&lang.Literal{Kind: "number", Value: "1"}),
	)
	result := analyzeFunc(t, config.NewDefault(), fn)

	if hitOfKind(result.Hits, IndexWriteSink) == nil {
		t.Fatalf("write through a tainted index should be a sink, got %+v", result.Hits)
	}
}

func TestTaintedAtQuery(t *testing.T) {
	fn := makeFunc("f", []string{"amount"})
	result := analyzeFunc(t, config.NewDefault(), fn)

	ft := result.Functions["C.f"]
	if ft == nil {
		t.Fatal("missing per-function result")
	}
	tainted := false
	for block := range ft.Entry {
		if result.TaintedAt("C.f", block, "amount") {
			tainted = true
		}
	}
	if !tainted {
		t.Error("parameter should be tainted somewhere in the function")
	}
}
